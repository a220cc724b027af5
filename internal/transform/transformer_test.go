package transform

import (
	"context"
	"testing"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/vfs"
)

// stubBackend returns code with a fixed suffix appended, enough to observe
// that it ran without depending on the real esbuild binary in tests.
type stubBackend struct {
	calls int
	fail  bool
}

func (s *stubBackend) Transform(ctx context.Context, code string, opts Options) (Result, error) {
	s.calls++
	if s.fail {
		return Result{}, errTransformFail
	}
	return Result{Code: code + "\n// transformed:" + string(opts.Format)}, nil
}

var errTransformFail = &stubError{"stub transform failure"}

type stubError struct{ msg string }

func (e *stubError) Error() string { return e.msg }

func newTestConfig() *config.Config {
	cfg, _ := config.Resolve(vfs.NewMemory())
	return cfg
}

func TestESMCacheHitOnUnchangedSource(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte("export default function Home() { return null }"))
	backend := &stubBackend{}
	tr := New(fsys, newTestConfig(), backend, nil)

	out1, err := tr.ESM(context.Background(), "/pages/index.jsx", "/__virtual__/1")
	if err != nil {
		t.Fatalf("first transform: %v", err)
	}
	if out1.CacheHit {
		t.Fatalf("first transform should be a cache miss")
	}

	out2, err := tr.ESM(context.Background(), "/pages/index.jsx", "/__virtual__/1")
	if err != nil {
		t.Fatalf("second transform: %v", err)
	}
	if !out2.CacheHit {
		t.Fatalf("second transform should be a cache hit")
	}
	if out1.Code != out2.Code {
		t.Fatalf("cache hit output differs from original:\n%q\n%q", out1.Code, out2.Code)
	}
	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}
}

func TestESMCacheInvalidatesOnEdit(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte("export default function Home() { return 1 }"))
	tr := New(fsys, newTestConfig(), &stubBackend{}, nil)

	if _, err := tr.ESM(context.Background(), "/pages/index.jsx", ""); err != nil {
		t.Fatal(err)
	}

	fsys.WriteFile("/pages/index.jsx", []byte("export default function Home() { return 2 }"))
	out, err := tr.ESM(context.Background(), "/pages/index.jsx", "")
	if err != nil {
		t.Fatal(err)
	}
	if out.CacheHit {
		t.Fatalf("expected a miss immediately after edit")
	}

	out2, err := tr.ESM(context.Background(), "/pages/index.jsx", "")
	if err != nil {
		t.Fatal(err)
	}
	if !out2.CacheHit {
		t.Fatalf("expected a hit on the call following the edit")
	}
}

func TestESMRedirectsBareImportToCDN(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte(`import React from "react"
import { clsx } from "clsx"
export default function Home() { return null }`))
	tr := New(fsys, newTestConfig(), &stubBackend{}, nil)

	out, err := tr.ESM(context.Background(), "/pages/index.jsx", "")
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out.Code, `"https://esm.sh/react"`) {
		t.Errorf("expected react import redirected to CDN, got:\n%s", out.Code)
	}
	if !contains(out.Code, `"https://esm.sh/clsx"`) {
		t.Errorf("expected clsx import redirected to CDN, got:\n%s", out.Code)
	}
}

func TestESMResolvesAlias(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte(`import { Button } from "@/components/Button"
export default function Home() { return null }`))
	cfg := newTestConfig()
	cfg.AliasMap["@/"] = "/src/"
	tr := New(fsys, cfg, &stubBackend{}, nil)

	out, err := tr.ESM(context.Background(), "/pages/index.jsx", "/__virtual__/1")
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out.Code, `"/__virtual__/1/src/components/Button"`) {
		t.Errorf("expected alias rewritten, got:\n%s", out.Code)
	}
}

func TestESMInjectsReactRefreshForComponents(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/about.tsx", []byte(`export default function About() { return null }`))
	tr := New(fsys, newTestConfig(), &stubBackend{}, nil)

	out, err := tr.ESM(context.Background(), "/pages/about.tsx", "")
	if err != nil {
		t.Fatal(err)
	}
	if !contains(out.Code, "__REACT_REFRESH_RUNTIME__") {
		t.Errorf("expected react refresh registration, got:\n%s", out.Code)
	}
}

func TestCJSHasNoReactRefreshOrCDNRewrite(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/api/hello/route.ts", []byte(`import { z } from "zod"
export function GET() { return new Response("ok") }`))
	tr := New(fsys, newTestConfig(), &stubBackend{}, nil)

	out, err := tr.CJS(context.Background(), "/app/api/hello/route.ts")
	if err != nil {
		t.Fatal(err)
	}
	if contains(out.Code, "esm.sh") {
		t.Errorf("CJS path must not redirect bare imports to a CDN, got:\n%s", out.Code)
	}
	if contains(out.Code, "__REACT_REFRESH_RUNTIME__") {
		t.Errorf("CJS path must not inject React Refresh, got:\n%s", out.Code)
	}
}

func TestESMNonJSXPassesThroughWithNilBackend(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/util.js", []byte(`export const x = 1;`))
	tr := New(fsys, newTestConfig(), nil, nil)

	out, err := tr.ESM(context.Background(), "/pages/util.js", "")
	if err != nil {
		t.Fatal(err)
	}
	if out.TransformErr != nil {
		t.Fatalf("non-JSX source should pass through without a transformer backend, got error: %v", out.TransformErr)
	}
}

func TestESMJSXFailsWithoutBackend(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte(`export default function Home() { return <div/> }`))
	tr := New(fsys, newTestConfig(), nil, nil)

	out, err := tr.ESM(context.Background(), "/pages/index.jsx", "")
	if err != nil {
		t.Fatal(err)
	}
	if out.TransformErr == nil {
		t.Fatalf("expected a TransformError for JSX with no backend")
	}
	if !contains(out.Code, "console.error") {
		t.Errorf("expected a readable error module body, got:\n%s", out.Code)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (substr == "" || indexOf(s, substr) >= 0)
}
