package assemble_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/apis/docserver"
	"github.com/zeptools/gw-invoicer/apis/docserver/docservertest"
	"github.com/zeptools/gw-invoicer/assemble"
	"github.com/zeptools/gw-invoicer/db/kvdb/impls/memory"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/journal"
)

type fixture struct {
	srv     *docservertest.Server
	asm     *assemble.Assembler
	journal *journal.Journal
	dir     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := docservertest.NewServer("secret")
	t.Cleanup(srv.Close)

	conf := docserver.DefaultConf()
	conf.Host = srv.BaseURL()
	conf.AuthToken = "secret"
	client := docserver.NewClient(srv.Client(), &conf)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.pdf"), []byte("%PDF-blank"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.pdf"), []byte("%PDF-logo"), 0o644))

	opts := assemble.DefaultOptions()
	opts.AssetsDir = dir
	opts.Output = filepath.Join(dir, "invoice.pdf")
	opts.SkipPDFCheck = true
	opts.TemplateLayer = conf.TemplateLayer

	j := journal.New(memory.New())
	return &fixture{srv: srv, asm: assemble.New(client, j, opts), journal: j, dir: dir}
}

func sampleInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		Number:   "2024-001",
		Customer: "Jane Doe\n1 Main St",
		Items:    []invoice.Item{{Name: "Hammer", UnitCost: 12.5, Quantity: 2}},
	}
}

func textOf(t *testing.T, srv *docservertest.Server, layer string, id string) string {
	t.Helper()
	c, ok := srv.Annotation("invoice", layer, id)
	require.True(t, ok, "annotation %s/%s", layer, id)
	return c.Text()
}

func TestBuildTemplate(t *testing.T) {
	f := newFixture(t)

	l, err := f.asm.BuildTemplate(context.Background())
	require.NoError(t, err)
	assert.True(t, l.Derived())
	assert.Equal(t, 612.0, l.PageWidth)

	doc, ok := f.srv.Document("invoice")
	require.True(t, ok)
	assert.Equal(t, "invoice", doc.Title)
	assert.Equal(t, []byte("%PDF-blank"), doc.File)

	assert.Equal(t, []string{
		"company-details",
		"customer-details",
		"ht-290",
		"ht-450",
		"invoice-number",
		"logo-annotation",
		"row-420-column-0",
		"row-420-column-1",
		"row-420-column-2",
		"row-420-column-3",
	}, f.srv.AnnotationIDs("invoice", "invoice-template"))

	details, _ := f.srv.Annotation("invoice", "invoice-template", "company-details")
	bbox, ok := details.BBox()
	require.True(t, ok)
	assert.Equal(t, annotation.BBox{282, 30, 300, 50}, bbox)
	assert.Equal(t, "right", details["horizontalAlign"])
	assert.Equal(t, "ACME Inc.\n1764 Reppert Coal Road\nDetroit, MI, 48226", details.Text())

	assert.Equal(t, "Invoice N/A", textOf(t, f.srv, "invoice-template", "invoice-number"))
	assert.Equal(t, "N/A", textOf(t, f.srv, "invoice-template", "customer-details"))

	header, _ := f.srv.Annotation("invoice", "invoice-template", "row-420-column-3")
	assert.Equal(t, "Line total", header.Text())
	assert.Equal(t, float64(14), header["fontSize"])
	assert.Equal(t, []any{"bold"}, header["fontStyle"])

	logo, _ := f.srv.Annotation("invoice", "invoice-template", "logo-annotation")
	hash, _ := logo["imageAttachmentId"].(string)
	data, ok := f.srv.Attachment(hash)
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-logo"), data)

	e, found, err := f.journal.Get(context.Background(), journal.KindTemplate, "invoice-template")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, journal.StatusDone, e.Status)
	assert.Equal(t, "header-row", e.Stage)
}

func TestBuildInvoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.asm.BuildTemplate(ctx)
	require.NoError(t, err)

	state, err := f.asm.BuildInvoice(ctx, sampleInvoice(), "")
	require.NoError(t, err)
	assert.Equal(t, 490.0, state.Cursor)
	assert.Equal(t, int64(len(docservertest.PDF)), state.Written)

	layer := "2024-001"
	assert.Equal(t, "Invoice #2024-001", textOf(t, f.srv, layer, "invoice-number"))
	assert.Equal(t, "Jane Doe\n1 Main St", textOf(t, f.srv, layer, "customer-details"))
	assert.Equal(t, "Invoice N/A", textOf(t, f.srv, "invoice-template", "invoice-number"))

	tests := []struct {
		id   string
		want string
	}{
		{"row-455-column-0", "Hammer"},
		{"row-455-column-1", "2"},
		{"row-455-column-2", "12.50"},
		{"row-455-column-3", "25.00"},
		{"row-500-column-2", "Subtotal"},
		{"row-500-column-3", "25.00"},
		{"row-520-column-2", "VAT"},
		{"row-520-column-3", "5.75"},
		{"row-540-column-2", "Total"},
		{"row-540-column-3", "30.75"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, textOf(t, f.srv, layer, tt.id))
		})
	}
	_, ok := f.srv.Annotation("invoice", layer, "ht-485")
	assert.True(t, ok, "item rows are ruled")
	total, _ := f.srv.Annotation("invoice", layer, "row-540-column-3")
	assert.Equal(t, float64(13), total["fontSize"])

	out, err := os.ReadFile(filepath.Join(f.dir, "invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, docservertest.PDF, out)

	e, _, err := f.journal.Get(ctx, journal.KindInvoice, layer)
	require.NoError(t, err)
	assert.Equal(t, journal.StatusDone, e.Status)
	assert.Equal(t, "export", e.Stage)
}

func TestBuildInvoiceWithPaymentQR(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.asm.Opts.PaymentQR = true
	_, err := f.asm.BuildTemplate(ctx)
	require.NoError(t, err)

	_, err = f.asm.BuildInvoice(ctx, sampleInvoice(), filepath.Join(f.dir, "with-qr.pdf"))
	require.NoError(t, err)

	qr, ok := f.srv.Annotation("invoice", "2024-001", assemble.PaymentQRID)
	require.True(t, ok)
	bbox, _ := qr.BBox()
	assert.Equal(t, annotation.BBox{482, 90, 100, 100}, bbox)
	assert.Less(t, bbox[1]+bbox[3], float64(assemble.InvoiceNumberRule), "QR ends above the invoice number rule")
	assert.Greater(t, bbox[1], float64(f.asm.Layout.Margin+50), "QR starts below the company details")
	hash, _ := qr["imageAttachmentId"].(string)
	png, ok := f.srv.Attachment(hash)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(png), "\x89PNG"))

	ref, err := assemble.PaymentReference(sampleInvoice(), 0.23)
	require.NoError(t, err)
	assert.Equal(t, "INVOICE:2024-001;TOTAL:30.75", ref)
}

func TestBuildInvoiceStopsAtFailingStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.asm.BuildTemplate(ctx)
	require.NoError(t, err)

	f.srv.Fail = func(r *http.Request) int {
		if r.Method == http.MethodPut {
			return http.StatusInternalServerError
		}
		return 0
	}
	_, err = f.asm.BuildInvoice(ctx, sampleInvoice(), "")
	var stageErr *assemble.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "set-invoice-number", stageErr.Stage)
	assert.Contains(t, err.Error(), `stage "set-invoice-number"`)

	assert.True(t, f.srv.HasLayer("invoice", "2024-001"), "the cloned layer is left in place")
	_, statErr := os.Stat(filepath.Join(f.dir, "invoice.pdf"))
	assert.True(t, os.IsNotExist(statErr))

	e, _, err := f.journal.Get(ctx, journal.KindInvoice, "2024-001")
	require.NoError(t, err)
	assert.Equal(t, journal.StatusFailed, e.Status)
	assert.Equal(t, "set-invoice-number", e.Stage)
}

func TestBuildInvoiceRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.asm.BuildInvoice(context.Background(), &invoice.Invoice{}, "")
	assert.ErrorIs(t, err, invoice.ErrMissingNumber)
	assert.Empty(t, f.srv.Requests())
}

func TestBuildTemplateNeedsLayerName(t *testing.T) {
	f := newFixture(t)
	f.asm.Opts.TemplateLayer = ""
	_, err := f.asm.BuildTemplate(context.Background())
	assert.ErrorIs(t, err, assemble.ErrNoLayer)
}
