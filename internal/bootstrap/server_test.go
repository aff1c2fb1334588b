package bootstrap

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestServerModuleServesAttachedDocument(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "page.html")
	if err := os.WriteFile(docPath, []byte(`<html><body><textarea id="notes"></textarea></body></html>`), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	cfg := testConfig()
	cfg.Store.DataDir = filepath.Join(dir, "data")
	cfg.HTTP.Addr = "127.0.0.1:0"

	var e *echo.Echo
	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(cfg, discardLogger(), DocumentPath(docPath)),
		Module,
		ServerModule,
		fx.Populate(&e),
	)
	app.RequireStart()
	defer app.RequireStop()

	base := "http://" + e.Listener.Addr().String()

	resp := doRequest(t, http.MethodPost, base+"/api/v1/document/focus/notes", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected focus status: %d", resp.StatusCode)
	}

	body := `{"action":"INJECT_TEXT","text":"from the daemon","isNewResponse":true}`
	resp = doRequest(t, http.MethodPost, base+"/api/v1/messages?endpoint=page-1", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected inject status: %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, base+"/api/v1/document", "")
	rendered, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(rendered), "from the daemon") {
		t.Fatalf("expected injected text in rendered document, got %s", rendered)
	}
}

func TestProvidePageWithoutDocument(t *testing.T) {
	page, err := ProvidePage(fxtest.NewLifecycle(t), "", nil, discardLogger())
	if err != nil || page != nil {
		t.Fatalf("expected no page without a document, got %v %v", page, err)
	}
}

func TestProvidePageMissingFile(t *testing.T) {
	_, err := ProvidePage(fxtest.NewLifecycle(t), DocumentPath(filepath.Join(t.TempDir(), "missing.html")), nil, discardLogger())
	if err == nil {
		t.Fatalf("expected error for missing document")
	}
}

func doRequest(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
