package shell

import (
	"strings"
	"testing"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/routeresolve"
	"github.com/vango-dev/devserver/internal/vfs"
)

func newTestSynth(fsys vfs.VFS) (*Synthesizer, *config.Config) {
	cfg, _ := config.Resolve(fsys)
	return New(fsys, cfg, nil), cfg
}

func TestRenderIncludesImportMapAndHMR(t *testing.T) {
	fsys := vfs.NewMemory()
	s, _ := newTestSynth(fsys)

	html := s.Render(Data{
		Pathname:      "/",
		VirtualPrefix: "/__virtual__/4000",
		StatusCode:    200,
		Route:         &routeresolve.Route{HandlerFile: "/pages/index.jsx"},
	})

	if !strings.Contains(html, `<div id="__next">`) {
		t.Errorf("expected #__next mount point in:\n%s", html)
	}
	if !strings.Contains(html, "/_next/pages") {
		t.Errorf("expected pages lazy-load URL in:\n%s", html)
	}
	if !strings.Contains(html, "importmap") {
		t.Errorf("expected an import map script in:\n%s", html)
	}
	if !strings.Contains(html, "WebSocket") {
		t.Errorf("expected the HMR client script in:\n%s", html)
	}
}

func TestRenderEnvIsolation(t *testing.T) {
	fsys := vfs.NewMemory()
	s, cfg := newTestSynth(fsys)
	cfg.SetEnv("NEXT_PUBLIC_A", "x")
	cfg.SetEnv("SECRET", "s")

	html := s.Render(Data{Pathname: "/", VirtualPrefix: "", StatusCode: 200})

	if !strings.Contains(html, `"NEXT_PUBLIC_A":"x"`) {
		t.Errorf("expected public env var in output:\n%s", html)
	}
	if strings.Contains(html, "SECRET") {
		t.Errorf("secret env var name must never appear in HTML:\n%s", html)
	}
}

func TestAppModeNestsLayouts(t *testing.T) {
	fsys := vfs.NewMemory()
	s, _ := newTestSynth(fsys)

	html := s.Render(Data{
		Pathname:      "/about",
		AppMode:       true,
		VirtualPrefix: "/__virtual__/1",
		StatusCode:    200,
		Route: &routeresolve.Route{
			HandlerFile: "/app/(marketing)/about/page.tsx",
			Layouts:     []string{"/app/layout.tsx", "/app/(marketing)/layout.tsx"},
		},
	})

	if !strings.Contains(html, "/_next/app/app/layout.js") {
		t.Errorf("expected root layout lazy-load URL in:\n%s", html)
	}
	if !strings.Contains(html, "/_next/app/app/(marketing)/layout.js") {
		t.Errorf("expected group layout lazy-load URL in:\n%s", html)
	}
}

func TestAppModePassesConventionURLs(t *testing.T) {
	fsys := vfs.NewMemory()
	s, _ := newTestSynth(fsys)

	html := s.Render(Data{
		Pathname:      "/dashboard",
		AppMode:       true,
		VirtualPrefix: "",
		StatusCode:    200,
		Route: &routeresolve.Route{
			HandlerFile: "/app/dashboard/page.tsx",
			Conventions: routeresolve.Conventions{
				NotFound: "/app/not-found.tsx",
				Error:    "/app/dashboard/error.tsx",
			},
		},
	})

	if !strings.Contains(html, "/_next/app/app/not-found.js") {
		t.Errorf("expected not-found convention URL in mount script:\n%s", html)
	}
	if !strings.Contains(html, "/_next/app/app/dashboard/error.js") {
		t.Errorf("expected error convention URL in mount script:\n%s", html)
	}
}

func TestNotFoundHTML(t *testing.T) {
	fsys := vfs.NewMemory()
	s, _ := newTestSynth(fsys)
	html := s.NotFoundHTML("/missing", "")
	if !strings.Contains(html, "404") {
		t.Errorf("expected 404 marker in:\n%s", html)
	}
}
