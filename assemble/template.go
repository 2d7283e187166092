package assemble

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/assets"
	"github.com/zeptools/gw-invoicer/journal"
	"github.com/zeptools/gw-invoicer/layout"
	"github.com/zeptools/gw-invoicer/render"
)

// Annotation ids shared by the template and the invoices cloned from it
const (
	LogoID            = "logo-annotation"
	CompanyDetailsID  = "company-details"
	InvoiceNumberID   = "invoice-number"
	CustomerDetailsID = "customer-details"
)

// Fixed positions of the template elements
const (
	LogoSize            = 130
	CompanyDetailsWidth = 300
	InvoiceNumberTop    = 250
	InvoiceNumberRule   = 290
	CustomerDetailsTop  = 300
	HeaderRowTop        = 420
)

var HeaderLabels = []any{"Item", "Qty", "Unit Cost", "Line total"}

func headerStyle() layout.Style {
	return layout.Style{"fontSize": 14, "fontStyle": []string{"bold"}}
}

// TemplateState is threaded through the template stages
type TemplateState struct {
	Layer  string
	Layout layout.Layout
}

func (a *Assembler) TemplateStages() []Stage[TemplateState] {
	return []Stage[TemplateState]{
		{Name: "create-document", Run: a.createDocument},
		{Name: "create-template-layer", Run: func(ctx context.Context, s *TemplateState) error {
			return a.Docs.CreateLayer(ctx, s.Layer, "")
		}},
		{Name: "add-logo", Run: a.addLogo},
		{Name: "page-dimensions", Run: func(ctx context.Context, s *TemplateState) error {
			l, err := a.pageDimensions(ctx, s.Layout)
			s.Layout = l
			return err
		}},
		{Name: "company-details", Run: a.addCompanyDetails},
		{Name: "invoice-number-placeholder", Run: a.addInvoiceNumberPlaceholder},
		{Name: "customer-placeholder", Run: func(ctx context.Context, s *TemplateState) error {
			placeholder := annotation.Text(CustomerDetailsID, map[string]any{
				"text":     "N/A",
				"bbox":     annotation.BBox{s.Layout.Margin, CustomerDetailsTop, 250, 60},
				"fontSize": 16,
			})
			return a.Docs.CreateAnnotation(ctx, s.Layer, placeholder)
		}},
		{Name: "derive-geometry", Run: func(_ context.Context, s *TemplateState) error {
			l, err := s.Layout.Derive()
			s.Layout = l
			return err
		}},
		{Name: "header-row", Run: func(ctx context.Context, s *TemplateState) error {
			row, err := render.Row(s.Layout, HeaderLabels, HeaderRowTop, render.WithStyle(headerStyle()))
			if err != nil {
				return err
			}
			return a.createAnnotations(ctx, s.Layer, row)
		}},
	}
}

// BuildTemplate uploads the blank document and builds the template layer on it
func (a *Assembler) BuildTemplate(ctx context.Context) (layout.Layout, error) {
	state := &TemplateState{Layer: a.Opts.TemplateLayer, Layout: a.Layout}
	if state.Layer == "" {
		return state.Layout, ErrNoLayer
	}
	run := Run{Kind: journal.KindTemplate, Layer: state.Layer}
	release, err := a.lockRun(run)
	if err != nil {
		return state.Layout, err
	}
	defer release()
	if err = RunStages(ctx, run, a.TemplateStages(), state, a.Journal); err != nil {
		return state.Layout, err
	}
	log.Printf("[INFO] template layer %q created", state.Layer)
	return state.Layout, nil
}

func (a *Assembler) createDocument(ctx context.Context, _ *TemplateState) error {
	path := a.assetPath(a.Opts.BlankPDF)
	if !a.Opts.SkipPDFCheck {
		if err := assets.CheckPDF(path); err != nil {
			return err
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer closeFile(f)
	return a.Docs.CreateDocument(ctx, a.Opts.DocumentTitle, filepath.Base(path), f)
}

func (a *Assembler) addLogo(ctx context.Context, s *TemplateState) error {
	path := a.assetPath(a.Opts.LogoPDF)
	if !a.Opts.SkipPDFCheck {
		if err := assets.CheckPDF(path); err != nil {
			return err
		}
	}
	hash, err := assets.FileHash(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer closeFile(f)
	m := s.Layout.Margin
	logo := annotation.Image(LogoID, annotation.BBox{m, m, LogoSize, LogoSize}, hash, assets.ContentTypePDF)
	return a.Docs.CreateImageAnnotation(ctx, s.Layer, logo, f)
}

func (a *Assembler) addCompanyDetails(ctx context.Context, s *TemplateState) error {
	l := s.Layout
	details := annotation.Text(CompanyDetailsID, map[string]any{
		"text":            a.Opts.Company,
		"bbox":            annotation.BBox{l.PageWidth - l.Margin - CompanyDetailsWidth, l.Margin, CompanyDetailsWidth, 50},
		"fontSize":        14,
		"horizontalAlign": "right",
	})
	return a.Docs.CreateAnnotation(ctx, s.Layer, details)
}

func (a *Assembler) addInvoiceNumberPlaceholder(ctx context.Context, s *TemplateState) error {
	placeholder := annotation.Text(InvoiceNumberID, map[string]any{
		"text":     "Invoice N/A",
		"bbox":     annotation.BBox{s.Layout.Margin, InvoiceNumberTop, 250, 50},
		"fontSize": 24,
	})
	if err := a.Docs.CreateAnnotation(ctx, s.Layer, placeholder); err != nil {
		return err
	}
	rule := annotation.Rule(annotation.RuleID(InvoiceNumberRule), s.Layout, InvoiceNumberRule)
	return a.Docs.CreateAnnotation(ctx, s.Layer, rule)
}

func closeFile(f *os.File) {
	if err := f.Close(); err != nil {
		log.Printf("[WARN] %v", err)
	}
}
