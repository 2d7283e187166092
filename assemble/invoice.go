package assemble

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/assets"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/journal"
	"github.com/zeptools/gw-invoicer/layout"
	"github.com/zeptools/gw-invoicer/render"
)

var ErrNoLayer = errors.New("assemble: layer name is empty")

const (
	ItemsTop = 455

	PaymentQRID   = "payment-qr"
	PaymentQRSize = 100
	PaymentQRTop  = 90 // under the company details, above the invoice number rule
	paymentQRPx   = 300
)

// InvoiceState is threaded through the invoice stages
type InvoiceState struct {
	Invoice *invoice.Invoice
	Layer   string
	Layout  layout.Layout
	Cursor  float64 // below the last item row, set by the items stage
	Output  string
	Written int64
}

func (a *Assembler) InvoiceStages() []Stage[InvoiceState] {
	stages := []Stage[InvoiceState]{
		{Name: "create-layer", Run: func(ctx context.Context, s *InvoiceState) error {
			return a.Docs.CreateLayer(ctx, s.Layer, a.Opts.TemplateLayer)
		}},
		{Name: "set-invoice-number", Run: func(ctx context.Context, s *InvoiceState) error {
			return a.Docs.UpdateAnnotation(ctx, s.Layer, InvoiceNumberID, map[string]any{"text": "Invoice #" + s.Invoice.Number})
		}},
		{Name: "set-customer", Run: func(ctx context.Context, s *InvoiceState) error {
			return a.Docs.UpdateAnnotation(ctx, s.Layer, CustomerDetailsID, map[string]any{"text": s.Invoice.Customer})
		}},
		{Name: "page-dimensions", Run: func(ctx context.Context, s *InvoiceState) error {
			l, err := a.pageDimensions(ctx, s.Layout)
			s.Layout = l
			return err
		}},
		{Name: "derive-geometry", Run: func(_ context.Context, s *InvoiceState) error {
			l, err := s.Layout.Derive()
			s.Layout = l
			return err
		}},
		{Name: "items", Run: func(ctx context.Context, s *InvoiceState) error {
			b, err := render.Items(s.Layout, s.Invoice.Items, ItemsTop)
			if err != nil {
				return err
			}
			if err = a.createBlock(ctx, s.Layer, b); err != nil {
				return err
			}
			s.Cursor = b.Cursor
			return nil
		}},
		{Name: "summary", Run: func(ctx context.Context, s *InvoiceState) error {
			b, err := render.Summary(s.Layout, s.Invoice.Items, s.Cursor, a.Opts.Summary)
			if err != nil {
				return err
			}
			return a.createBlock(ctx, s.Layer, b)
		}},
	}
	if a.Opts.PaymentQR {
		stages = append(stages, Stage[InvoiceState]{Name: "payment-qr", Run: a.addPaymentQR})
	}
	stages = append(stages, Stage[InvoiceState]{Name: "export", Run: a.export})
	if !a.Opts.SkipPDFCheck {
		stages = append(stages, Stage[InvoiceState]{Name: "verify", Run: func(_ context.Context, s *InvoiceState) error {
			return assets.CheckPDF(s.Output)
		}})
	}
	return stages
}

// BuildInvoice clones the template into a layer named after the invoice number,
// fills it and exports the flattened PDF to output (Opts.Output if empty)
func (a *Assembler) BuildInvoice(ctx context.Context, inv *invoice.Invoice, output string) (*InvoiceState, error) {
	if inv == nil {
		return nil, invoice.ErrMissingNumber
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if output == "" {
		output = a.Opts.Output
	}
	state := &InvoiceState{Invoice: inv, Layer: inv.Number, Layout: a.Layout, Output: output}
	run := Run{Kind: journal.KindInvoice, Layer: state.Layer}
	release, err := a.lockRun(run)
	if err != nil {
		return state, err
	}
	defer release()
	if err = RunStages(ctx, run, a.InvoiceStages(), state, a.Journal); err != nil {
		return state, err
	}
	log.Printf("[INFO] invoice %q written to %s (%d bytes)", inv.Number, state.Output, state.Written)
	return state, nil
}

// PaymentReference is the text encoded in the payment QR code
func PaymentReference(inv *invoice.Invoice, vatRate float64) (string, error) {
	totals, err := invoice.ComputeTotals(inv.Items, vatRate)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INVOICE:%s;TOTAL:%s", inv.Number, render.Money(totals.Total)), nil
}

func (a *Assembler) addPaymentQR(ctx context.Context, s *InvoiceState) error {
	ref, err := PaymentReference(s.Invoice, a.Opts.Summary.VATRate)
	if err != nil {
		return err
	}
	png, err := assets.QRCodePNG(ref, paymentQRPx)
	if err != nil {
		return err
	}
	hash, err := assets.HashHex(bytes.NewReader(png))
	if err != nil {
		return err
	}
	l := s.Layout
	bbox := annotation.BBox{l.PageWidth - l.Margin - PaymentQRSize, PaymentQRTop, PaymentQRSize, PaymentQRSize}
	qr := annotation.Image(PaymentQRID, bbox, hash, assets.ContentTypePNG)
	return a.Docs.CreateImageAnnotation(ctx, s.Layer, qr, bytes.NewReader(png))
}

// export writes to a temporary file next to the output and renames it when complete
func (a *Assembler) export(ctx context.Context, s *InvoiceState) error {
	dir := filepath.Dir(s.Output)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Output)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if _, statErr := os.Stat(tmp.Name()); statErr == nil {
			_ = os.Remove(tmp.Name())
		}
	}()
	n, err := a.Docs.ExportLayerPDF(ctx, s.Layer, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), s.Output); err != nil {
		return err
	}
	s.Written = n
	return nil
}
