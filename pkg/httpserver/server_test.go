package httpserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/devserver/internal/vfs"
)

func newTestServer(t *testing.T, fsys *vfs.Memory) *Server {
	t.Helper()
	srv, err := New(Options{
		Fsys:       fsys,
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(srv.Close)
	return srv
}

func TestServerServesPublicAsset(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/public/robots.txt", []byte("User-agent: *"))
	srv := newTestServer(t, fsys)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/robots.txt")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "User-agent: *" {
		t.Errorf("body = %q", body)
	}
}

func TestServerServesRouterShim(t *testing.T) {
	fsys := vfs.NewMemory()
	srv := newTestServer(t, fsys)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/_next/shims/router.js")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestServerExposesMetrics(t *testing.T) {
	fsys := vfs.NewMemory()
	srv := newTestServer(t, fsys)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	// Drive one request through the dispatcher so the metrics below have
	// at least one observation.
	if _, err := http.Get(ts.URL + "/_next/shims/router.js"); err != nil {
		t.Fatalf("GET error = %v", err)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "devserver_requests_total") {
		t.Errorf("expected devserver_requests_total in metrics output, got %q", body)
	}
}

func TestServerReportsConfig(t *testing.T) {
	fsys := vfs.NewMemory()
	srv := newTestServer(t, fsys)

	if srv.Config() == nil {
		t.Fatal("Config() = nil")
	}
	if srv.Config().UsesAppRouter() {
		t.Errorf("expected pages-mode default for an empty project")
	}
}

func TestServerNotFoundIsWellFormed(t *testing.T) {
	fsys := vfs.NewMemory()
	srv := newTestServer(t, fsys)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/does-not-exist")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 0 {
		t.Fatalf("expected a well-formed status, got 0")
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		t.Errorf("expected a non-empty error body")
	}
}
