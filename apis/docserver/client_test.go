package docserver_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/apis/docserver"
	"github.com/zeptools/gw-invoicer/apis/docserver/docservertest"
)

func newClient(t *testing.T) (*docserver.Client, *docservertest.Server) {
	t.Helper()
	srv := docservertest.NewServer("secret")
	t.Cleanup(srv.Close)
	conf := docserver.DefaultConf()
	conf.Host = srv.BaseURL()
	conf.AuthToken = "secret"
	return docserver.NewClient(srv.Client(), &conf), srv
}

func TestCreateDocumentAndPageDimensions(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.PageWidth, srv.PageHeight = 595.27559, 841.88976

	require.NoError(t, c.CreateDocument(ctx, "invoice", "blank.pdf", strings.NewReader("%PDF-blank")))
	doc, ok := srv.Document("invoice")
	require.True(t, ok)
	assert.Equal(t, "invoice", doc.Title)
	assert.Equal(t, []byte("%PDF-blank"), doc.File)

	w, h, err := c.PageDimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 595.27559, w)
	assert.Equal(t, 841.88976, h)
}

func TestUnauthorized(t *testing.T) {
	c, _ := newClient(t)
	c.Conf.AuthToken = "wrong"

	_, err := c.DocumentInfo(context.Background())
	var httpErr *docserver.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, http.MethodGet, httpErr.Method)
	assert.Equal(t, "unauthorized", httpErr.Reason)
	assert.Contains(t, httpErr.Error(), "unauthorized")
}

func TestNotFound(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.DocumentInfo(context.Background())
	assert.ErrorIs(t, err, docserver.ErrNotFound)
}

func TestLayersAndAnnotations(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.SeedDocument("invoice")

	require.NoError(t, c.CreateLayer(ctx, "invoice-template", ""))
	placeholder := annotation.Text("invoice-number", map[string]any{"text": "Invoice N/A", "fontSize": 24})
	require.NoError(t, c.CreateAnnotation(ctx, "invoice-template", placeholder))

	require.NoError(t, c.CreateLayer(ctx, "42", "invoice-template"))
	require.NoError(t, c.UpdateAnnotation(ctx, "42", "invoice-number", map[string]any{"text": "Invoice #42"}))

	updated, ok := srv.Annotation("invoice", "42", "invoice-number")
	require.True(t, ok)
	assert.Equal(t, "Invoice #42", updated.Text())
	assert.Equal(t, float64(24), updated["fontSize"], "untouched keys keep their value")

	original, ok := srv.Annotation("invoice", "invoice-template", "invoice-number")
	require.True(t, ok)
	assert.Equal(t, "Invoice N/A", original.Text(), "template layer is not touched")

	got, err := c.GetAnnotation(ctx, "42", "invoice-number")
	require.NoError(t, err)
	assert.Equal(t, "invoice-number", got.ID)
	assert.Equal(t, annotation.TypeText, got.Content.Type())

	err = c.UpdateAnnotation(ctx, "42", "missing", map[string]any{"text": "x"})
	assert.ErrorIs(t, err, docserver.ErrNotFound)
}

func TestCreateImageAnnotation(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.SeedDocument("invoice")
	srv.SeedLayer("invoice", "invoice-template")

	logo := annotation.Image("logo-annotation", annotation.BBox{30, 30, 130, 130}, "cafe01", "application/pdf")
	require.NoError(t, c.CreateImageAnnotation(ctx, "invoice-template", logo, strings.NewReader("%PDF-logo")))

	data, ok := srv.Attachment("cafe01")
	require.True(t, ok)
	assert.Equal(t, []byte("%PDF-logo"), data)
	content, ok := srv.Annotation("invoice", "invoice-template", "logo-annotation")
	require.True(t, ok)
	assert.Equal(t, annotation.TypeImage, content.Type())

	noHash := annotation.Image("broken", annotation.BBox{}, "", "image/png")
	assert.Error(t, c.CreateImageAnnotation(ctx, "invoice-template", noHash, strings.NewReader("")))
}

func TestExportLayerPDF(t *testing.T) {
	ctx := context.Background()
	c, srv := newClient(t)
	srv.SeedDocument("invoice")
	srv.SeedLayer("invoice", "42")

	var buf bytes.Buffer
	n, err := c.ExportLayerPDF(ctx, "42", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(docservertest.PDF)), n)
	assert.Equal(t, docservertest.PDF, buf.Bytes())

	_, err = c.ExportLayerPDF(ctx, "43", &buf)
	assert.ErrorIs(t, err, docserver.ErrNotFound)
}

func TestServerErrorsPropagate(t *testing.T) {
	c, srv := newClient(t)
	srv.SeedDocument("invoice")
	srv.Fail = func(r *http.Request) int { return http.StatusBadGateway }

	err := c.CreateLayer(context.Background(), "42", "")
	var httpErr *docserver.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.False(t, errors.Is(err, docserver.ErrNotFound))
}

func TestConfApplyEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "5000")
	t.Setenv("SERVER_API_AUTH_TOKEN", "tok")
	conf := docserver.DefaultConf()
	conf.ApplyEnv()
	assert.Equal(t, "http://localhost:5000/api", conf.Host)
	assert.Equal(t, "tok", conf.AuthToken)
	assert.NoError(t, conf.Validate())

	empty := docserver.Conf{}
	assert.Error(t, empty.Validate())
}
