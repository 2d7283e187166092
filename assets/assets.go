// Package assets prepares local files for upload: content hashes, PDF checks and QR images.
package assets

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypePNG = "image/png"
)

var ErrNotPDF = errors.New("assets: not a valid PDF")

// HashHex returns the hex SHA-256 digest of everything read from r
func HashHex(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FileHash returns the hex SHA-256 digest of the file content.
// The document server uses it as the attachment id.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("[WARN] %v", closeErr)
		}
	}()
	return HashHex(f)
}

func pdfConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ValidatePDF checks that data parses as a PDF document
func ValidatePDF(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return fmt.Errorf("%w: missing %%PDF header", ErrNotPDF)
	}
	if err := api.Validate(bytes.NewReader(data), pdfConf()); err != nil {
		return fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	return nil
}

// CheckPDF validates a local PDF file
func CheckPDF(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err = ValidatePDF(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// PageDims returns the width and height of the first page of a local PDF
func PageDims(path string) (float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Printf("[WARN] %v", closeErr)
		}
	}()
	dims, err := api.PageDims(f, pdfConf())
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrNotPDF, err)
	}
	if len(dims) == 0 {
		return 0, 0, fmt.Errorf("%w: no pages", ErrNotPDF)
	}
	return dims[0].Width, dims[0].Height, nil
}

// QRCodePNG encodes content as a size x size PNG QR code
func QRCodePNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, errors.New("assets: empty QR content")
	}
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = png.Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
