package assemble

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/apis/docserver"
	"github.com/zeptools/gw-invoicer/layout"
	"github.com/zeptools/gw-invoicer/locks/keyonlylocks"
	"github.com/zeptools/gw-invoicer/render"
)

const DefaultConcurrency = 4

// DocServer is the part of the document server API the assembler uses
type DocServer interface {
	CreateDocument(ctx context.Context, title string, filename string, pdf io.Reader) error
	CreateLayer(ctx context.Context, name string, sourceLayer string) error
	PageDimensions(ctx context.Context) (float64, float64, error)
	CreateAnnotation(ctx context.Context, layer string, a annotation.Annotation) error
	CreateImageAnnotation(ctx context.Context, layer string, a annotation.Annotation, attachment io.Reader) error
	UpdateAnnotation(ctx context.Context, layer string, id string, updates map[string]any) error
	ExportLayerPDF(ctx context.Context, layer string, w io.Writer) (int64, error)
}

var _ DocServer = (*docserver.Client)(nil)

// Options are read from .core.json
type Options struct {
	AssetsDir     string             `json:"assets_dir"`     // where blank.pdf and logo.pdf live
	BlankPDF      string             `json:"blank_pdf"`      // base document, relative to AssetsDir
	LogoPDF       string             `json:"logo_pdf"`       // relative to AssetsDir
	Output        string             `json:"output"`         // exported invoice file
	DocumentTitle string             `json:"document_title"` // title of the uploaded document
	Company       string             `json:"company"`        // company details text block
	Concurrency   int                `json:"concurrency"`    // annotation requests in flight per row
	SkipPDFCheck  bool               `json:"skip_pdf_check"` // skip validating local and exported PDFs
	PaymentQR     bool               `json:"payment_qr"`     // add a payment QR code to invoices
	Summary       render.SummaryConf `json:"summary"`

	TemplateLayer string `json:"-"` // from the document server config
}

func DefaultOptions() Options {
	return Options{
		AssetsDir:     ".",
		BlankPDF:      "blank.pdf",
		LogoPDF:       "logo.pdf",
		Output:        "invoice.pdf",
		DocumentTitle: "invoice",
		Company:       "ACME Inc.\n1764 Reppert Coal Road\nDetroit, MI, 48226",
		Concurrency:   DefaultConcurrency,
		Summary:       render.DefaultSummaryConf(),
		TemplateLayer: "invoice-template",
	}
}

// Assembler runs template and invoice builds against a document server
type Assembler struct {
	Docs    DocServer
	Journal Recorder // optional
	Opts    Options
	Layout  layout.Layout // starting layout, without page dimensions

	running keyonlylocks.Set // one run per kind and layer at a time
}

func New(docs DocServer, rec Recorder, opts Options) *Assembler {
	return &Assembler{Docs: docs, Journal: rec, Opts: opts, Layout: layout.Default()}
}

// lockRun fails with keyonlylocks.ErrHeld if the same run is in progress
func (a *Assembler) lockRun(run Run) (func(), error) {
	release, err := a.running.TryAcquire(keyonlylocks.Key(run.Kind, run.Layer))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", run, err)
	}
	return release, nil
}

func (a *Assembler) assetPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.Opts.AssetsDir, name)
}

func (a *Assembler) concurrency() int {
	if a.Opts.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return a.Opts.Concurrency
}

// createAnnotations sends the annotations of one row concurrently and waits for all of them
func (a *Assembler) createAnnotations(ctx context.Context, layer string, annotations []annotation.Annotation) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency())
	for _, an := range annotations {
		g.Go(func() error {
			if err := a.Docs.CreateAnnotation(gctx, layer, an); err != nil {
				return fmt.Errorf("annotation %q: %w", an.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// createBlock sends a rendered block row by row
func (a *Assembler) createBlock(ctx context.Context, layer string, b render.Block) error {
	for _, row := range b.Rows {
		if err := a.createAnnotations(ctx, layer, row); err != nil {
			return err
		}
	}
	return nil
}

// pageDimensions fetches the page size and fixes it on l
func (a *Assembler) pageDimensions(ctx context.Context, l layout.Layout) (layout.Layout, error) {
	width, height, err := a.Docs.PageDimensions(ctx)
	if err != nil {
		return l, err
	}
	if size, ok := layout.MatchPaperSize(width, height); ok {
		log.Printf("[INFO][PIPELINE] page %gx%g (%s)", width, height, size.Name)
	} else {
		log.Printf("[INFO][PIPELINE] page %gx%g", width, height)
	}
	return l.WithPageDimensions(width, height)
}
