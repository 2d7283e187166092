package responses

import (
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
)

const ContentTypePDF = "application/pdf"

// WritePDFBytesWithFilename answers 200 with a PDF body of known length
func WritePDFBytesWithFilename(w http.ResponseWriter, filename string, PDFBytes []byte) {
	w.Header().Set("Content-Length", strconv.Itoa(len(PDFBytes)))
	WritePDFResponseHeaders(w, filename)
	if _, err := w.Write(PDFBytes); err != nil {
		log.Printf("[ERROR] writing PDF to response: %v", err)
	}
}

// WritePDFResponseHeaders write HTTP response headers for PDF response. i.e. headers are frozen
func WritePDFResponseHeaders(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", ContentTypePDF)
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.WriteHeader(http.StatusOK) // Response Header Sent & Frozen
}

// CopyPDF streams a PDF response body to dst. The response must carry a PDF content type
func CopyPDF(dst io.Writer, res *http.Response) (int64, error) {
	if ct := res.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != ContentTypePDF {
			return 0, fmt.Errorf("unexpected content type %q", ct)
		}
	}
	return io.Copy(dst, res.Body)
}
