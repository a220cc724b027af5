package routeresolve

import (
	"testing"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/vfs"
)

func newPagesResolver(fsys vfs.VFS) *Resolver {
	cfg, _ := config.Resolve(fsys)
	cfg.ForceRouter(config.PreferPages)
	return New(fsys, cfg)
}

func newAppResolver(fsys vfs.VFS) *Resolver {
	cfg, _ := config.Resolve(fsys)
	cfg.ForceRouter(config.PreferApp)
	return New(fsys, cfg)
}

func TestPagesIndex(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/index.jsx", []byte("export default function Home() {}"))

	r := newPagesResolver(fsys)
	route, ok := r.ResolvePage("/")
	if !ok {
		t.Fatal("expected index page to resolve")
	}
	if route.HandlerFile != "/pages/index.jsx" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
}

func TestPagesDynamicSegment(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/pages/users/[id].jsx", []byte("export default function User() {}"))

	r := newPagesResolver(fsys)
	route, ok := r.ResolvePage("/users/42")
	if !ok {
		t.Fatal("expected dynamic segment to resolve")
	}
	if route.HandlerFile != "/pages/users/[id].jsx" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
	if route.Params["id"].Single != "42" {
		t.Errorf("params[id] = %+v", route.Params["id"])
	}
}

func TestAppRouteGroupLayout(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/layout.tsx", []byte("export default function RootLayout() {}"))
	fsys.WriteFile("/app/(marketing)/layout.tsx", []byte("export default function MarketingLayout() {}"))
	fsys.WriteFile("/app/(marketing)/about/page.tsx", []byte("export default function About() {}"))

	r := newAppResolver(fsys)
	route, ok := r.ResolvePage("/about")
	if !ok {
		t.Fatal("expected /about to resolve through route group")
	}
	if route.HandlerFile != "/app/(marketing)/about/page.tsx" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
	if len(route.Layouts) != 2 || route.Layouts[0] != "/app/layout.tsx" || route.Layouts[1] != "/app/(marketing)/layout.tsx" {
		t.Errorf("Layouts = %v, want outermost-first [/app/layout.tsx /app/(marketing)/layout.tsx]", route.Layouts)
	}
}

func TestAppCatchAll(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/docs/[...slug]/page.tsx", []byte("export default function Docs() {}"))

	r := newAppResolver(fsys)
	route, ok := r.ResolvePage("/docs/a/b/c")
	if !ok {
		t.Fatal("expected catch-all to resolve")
	}
	pv := route.Params["slug"]
	if !pv.IsList || len(pv.List) != 3 || pv.List[0] != "a" || pv.List[1] != "b" || pv.List[2] != "c" {
		t.Errorf("params[slug] = %+v", pv)
	}
}

func TestAppOptionalCatchAll(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/docs/[[...slug]]/page.tsx", []byte("export default function Docs() {}"))

	r := newAppResolver(fsys)

	route, ok := r.ResolvePage("/docs")
	if !ok {
		t.Fatal("expected optional catch-all to match the empty remainder")
	}
	if route.HandlerFile != "/app/docs/[[...slug]]/page.tsx" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
	pv := route.Params["slug"]
	if !pv.IsList || len(pv.List) != 0 {
		t.Errorf("params[slug] = %+v, want empty list", pv)
	}

	route, ok = r.ResolvePage("/docs/a/b")
	if !ok {
		t.Fatal("expected optional catch-all to match a non-empty remainder")
	}
	pv = route.Params["slug"]
	if !pv.IsList || len(pv.List) != 2 || pv.List[0] != "a" || pv.List[1] != "b" {
		t.Errorf("params[slug] = %+v", pv)
	}
}

func TestAppOptionalCatchAllRouteHandler(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/api/items/[[...filter]]/route.ts", []byte("export function GET() {}"))

	r := newAppResolver(fsys)
	route, ok := r.ResolveRouteHandler("/api/items")
	if !ok {
		t.Fatal("expected optional catch-all route handler to match the empty remainder")
	}
	if route.HandlerFile != "/app/api/items/[[...filter]]/route.ts" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
	pv := route.Params["filter"]
	if !pv.IsList || len(pv.List) != 0 {
		t.Errorf("params[filter] = %+v, want empty list", pv)
	}
}

func TestAppConventions(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/not-found.tsx", []byte("export default function NotFound() {}"))
	fsys.WriteFile("/app/dashboard/error.tsx", []byte("export default function Error() {}"))
	fsys.WriteFile("/app/dashboard/page.tsx", []byte("export default function Dashboard() {}"))

	r := newAppResolver(fsys)
	route, ok := r.ResolvePage("/dashboard")
	if !ok {
		t.Fatal("expected /dashboard to resolve")
	}
	if route.Conventions.NotFound != "/app/not-found.tsx" {
		t.Errorf("Conventions.NotFound = %q", route.Conventions.NotFound)
	}
	if route.Conventions.Error != "/app/dashboard/error.tsx" {
		t.Errorf("Conventions.Error = %q", route.Conventions.Error)
	}
}

func TestResolveNotFound(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/layout.tsx", []byte("x"))

	r := newAppResolver(fsys)
	_, ok := r.ResolvePage("/missing")
	if ok {
		t.Fatal("expected resolution to fail for a nonexistent route")
	}
}

func TestAppRouteHandler(t *testing.T) {
	fsys := vfs.NewMemory()
	fsys.WriteFile("/app/api/users/route.ts", []byte("export function GET() {}"))

	r := newAppResolver(fsys)
	route, ok := r.ResolveRouteHandler("/api/users")
	if !ok {
		t.Fatal("expected route handler to resolve")
	}
	if route.HandlerFile != "/app/api/users/route.ts" {
		t.Errorf("HandlerFile = %q", route.HandlerFile)
	}
}
