// Package routeresolve implements the Route Resolver (component B): given a
// pathname, it walks the pages-routed or app-routed directory tree to find
// a page/handler file plus enclosing layouts and convention files, and
// extracts dynamic params. Resolution is stateless: it re-walks the VFS on
// every call, and all caching lives in the module transformer, not here.
package routeresolve

import (
	"strings"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/vfs"
)

// extensions lists the supported source extensions, in match priority
// order.
var extensions = []string{".jsx", ".tsx", ".js", ".ts"}

// ParamValue is either a single string (one dynamic segment) or an ordered
// sequence of strings (a catch-all).
type ParamValue struct {
	Single string
	List   []string
	IsList bool
}

// Params maps a dynamic segment name to its matched value.
type Params map[string]ParamValue

// Conventions holds the nearest ancestor loading/error/not-found files for
// an app-mode route.
type Conventions struct {
	Loading  string
	Error    string
	NotFound string
}

// Route is the result of resolution.
type Route struct {
	HandlerFile string
	Layouts     []string
	Params      Params
	Conventions Conventions
}

// Resolver implements both Pages mode and App mode resolution against a
// VFS, per the active router-mode preference in cfg.
type Resolver struct {
	fsys vfs.VFS
	cfg  *config.Config
}

// New constructs a Resolver.
func New(fsys vfs.VFS, cfg *config.Config) *Resolver {
	return &Resolver{fsys: fsys, cfg: cfg}
}

// UsesAppRouter reports whether the resolver is operating in App mode.
func (r *Resolver) UsesAppRouter() bool {
	return r.cfg.UsesAppRouter()
}

// ResolvePage resolves a page route for pathname, dispatching to Pages mode
// or App mode per the configured router preference.
func (r *Resolver) ResolvePage(pathname string) (*Route, bool) {
	if r.UsesAppRouter() {
		return r.resolveAppPage(pathname)
	}
	return r.resolvePagesPage(pathname)
}

// ResolveRouteHandler resolves an app-mode route.<ext> handler (API
// endpoints under the app-routed tree). It is only meaningful in App mode;
// Pages-mode API routes are plain files resolved via ResolvePage against a
// path already rooted under "/api".
func (r *Resolver) ResolveRouteHandler(pathname string) (*Route, bool) {
	segments := splitSegments(pathname)
	params := Params{}
	var scratch []string
	dir, ok := r.walkAppSegments(r.cfg.AppDir, segments, params, &scratch)
	if !ok {
		return nil, false
	}
	for _, ext := range extensions {
		f := vfs.Join(dir, "route"+ext)
		if r.fsys.ExistsSync(f) {
			return &Route{HandlerFile: f, Params: params}, true
		}
	}
	// Optional catch-all also matches an empty remainder: a route file
	// inside an "[[...name]]" child serves the bare path with name bound to
	// an empty list.
	if f, name, ok := r.findOptionalCatchAllRoute(dir); ok {
		params[name] = ParamValue{List: []string{}, IsList: true}
		return &Route{HandlerFile: f, Params: params}, true
	}
	return nil, false
}

func (r *Resolver) findOptionalCatchAllRoute(dir string) (file, name string, ok bool) {
	entries, err := r.fsys.ReaddirSync(dir)
	if err != nil {
		return "", "", false
	}
	for _, e := range entries {
		n, isOpt := matchOptionalCatchAll(e)
		if !isOpt {
			continue
		}
		child := vfs.Join(dir, e)
		if !r.fsys.IsDirectorySync(child) {
			continue
		}
		for _, ext := range extensions {
			f := vfs.Join(child, "route"+ext)
			if r.fsys.ExistsSync(f) {
				return f, n, true
			}
		}
	}
	return "", "", false
}

// splitSegments splits a "/"-rooted pathname into non-empty segments.
func splitSegments(pathname string) []string {
	trimmed := strings.Trim(pathname, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// parentDir returns the "/"-rooted parent of dir.
func parentDir(dir string) string {
	if dir == "/" || dir == "" {
		return "/"
	}
	idx := strings.LastIndexByte(dir, '/')
	if idx <= 0 {
		return "/"
	}
	return dir[:idx]
}
