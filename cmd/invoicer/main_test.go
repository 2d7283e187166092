package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeptools/gw-invoicer/apis/docserver/docservertest"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/journal"
	"github.com/zeptools/gw-invoicer/sec"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// newAppRoot lays out config/ and assets for a run against srv
func newAppRoot(t *testing.T, srv *docservertest.Server) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "config"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "blank.pdf"), []byte("%PDF-blank"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "assets", "logo.pdf"), []byte("%PDF-logo"), 0o644))

	writeJSON(t, filepath.Join(root, "config", ".core.json"), map[string]any{
		"app_name":       "invoicer",
		"assets_dir":     "assets",
		"output":         filepath.Join(root, "invoice.pdf"),
		"concurrency":    2,
		"skip_pdf_check": true,
	})
	writeJSON(t, filepath.Join(root, "config", ".docserver.json"), map[string]any{
		"host":        srv.BaseURL(),
		"auth_token":  "secret",
		"document_id": "invoice",
	})
	writeJSON(t, filepath.Join(root, "invoice.json"), invoice.Invoice{
		Number:   "2024-007",
		Customer: "Jane Doe",
		Items:    []invoice.Item{{Name: "Screws", UnitCost: 0.5, Quantity: 10}},
	})
	return root
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	var out bytes.Buffer
	err := run(ctx, cancel, args, &out)
	return out.String(), err
}

func TestTemplateThenInvoice(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SERVER_API_AUTH_TOKEN", "")
	srv := docservertest.NewServer("secret")
	t.Cleanup(srv.Close)
	root := newAppRoot(t, srv)

	_, err := runCLI(t, "-root", root, "template")
	require.NoError(t, err)
	assert.True(t, srv.HasLayer("invoice", "invoice-template"))

	_, err = runCLI(t, "-root", root, "invoice", "-input", filepath.Join(root, "invoice.json"))
	require.NoError(t, err)

	c, ok := srv.Annotation("invoice", "2024-007", "invoice-number")
	require.True(t, ok)
	assert.Equal(t, "Invoice #2024-007", c.Text())
	out, err := os.ReadFile(filepath.Join(root, "invoice.pdf"))
	require.NoError(t, err)
	assert.Equal(t, docservertest.PDF, out)
}

func TestViewerToken(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("SERVER_API_AUTH_TOKEN", "")
	srv := docservertest.NewServer("secret")
	t.Cleanup(srv.Close)
	root := newAppRoot(t, srv)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	require.NoError(t, sec.SavePrivatePEMKeyLocal(filepath.Join(root, "config", "viewer.pem"), key))
	writeJSON(t, filepath.Join(root, "config", ".viewer.json"), map[string]any{
		"private_key":    "config/viewer.pem",
		"kid":            "viewer-1",
		"expire_seconds": 600,
	})

	out, err := runCLI(t, "-root", root, "viewer-token", "-layer", "2024-007")
	require.NoError(t, err)
	claims, kid, err := sec.ParseViewerToken(strings.TrimSpace(out), &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "viewer-1", kid)
	assert.Equal(t, "invoice", claims.DocumentID)
	assert.Equal(t, "2024-007", claims.Layer)

	out, err = runCLI(t, "-root", root, "viewer-token", "-public-key")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "-----BEGIN PUBLIC KEY-----"), out)

	_, err = runCLI(t, "-root", root, "viewer-token")
	assert.Error(t, err)
}

func TestUsageErrors(t *testing.T) {
	_, err := runCLI(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "-root", t.TempDir(), "bogus")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCLI(t, "-root", t.TempDir(), "status")
	assert.ErrorIs(t, err, os.ErrNotExist, "missing .core.json")
}

func TestPrintStatus(t *testing.T) {
	var empty bytes.Buffer
	require.NoError(t, printStatus(&empty, nil))
	assert.Equal(t, "no runs recorded\n", empty.String())

	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, printStatus(&buf, []journal.Entry{
		{Kind: journal.KindTemplate, Layer: "invoice-template", Status: journal.StatusDone, Stage: "header-row", StartedAt: started, FinishedAt: started.Add(1500 * time.Millisecond)},
		{Kind: journal.KindInvoice, Layer: "2024-007", Status: journal.StatusFailed, Stage: "export", Error: "boom", StartedAt: started},
	}))
	out := buf.String()
	assert.Contains(t, out, "invoice-template")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "2024-007")
	assert.Contains(t, out, "boom")
}
