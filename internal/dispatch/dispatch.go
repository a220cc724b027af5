// Package dispatch implements the Request Dispatcher (component E): the
// top-level entry point that strips virtual/base/asset prefixes, routes to
// a shim, static asset, API handler, or page, and drives streaming
// responses for handlers.
package dispatch

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/evaluator"
	"github.com/vango-dev/devserver/internal/routeresolve"
	"github.com/vango-dev/devserver/internal/shell"
	"github.com/vango-dev/devserver/internal/transform"
	"github.com/vango-dev/devserver/internal/vfs"
)

// Request is the inbound HTTP-shaped request.
type Request struct {
	Method  string
	URL     string // path+query, absolute URL tolerated (parsed with net/url)
	Headers map[string]string
	Body    []byte
}

// Response is the unary outbound shape.
type Response struct {
	Status     int
	StatusText string
	Headers    map[string]string
	Body       []byte
}

// StreamCallbacks is the streaming response contract: OnStart
// happens-before every OnChunk, which happens-before OnEnd.
type StreamCallbacks struct {
	OnStart func(status int, statusText string, headers map[string]string)
	OnChunk func(chunk []byte)
	OnEnd   func()
}

// Dispatcher is the top-level request entry point.
type Dispatcher struct {
	fsys          vfs.VFS
	cfg           *config.Config
	resolver      *routeresolve.Resolver
	transformer   *transform.Transformer
	synth         *shell.Synthesizer
	evaluator     evaluator.Evaluator
	logger        *slog.Logger
	virtualPrefix string // e.g. "/__virtual__/4821"
}

// New constructs a Dispatcher. virtualPrefix is this server instance's
// namespace prefix ("/__virtual__/<port>"), so a service worker can
// forward traffic to the right server instance.
func New(
	fsys vfs.VFS,
	cfg *config.Config,
	resolver *routeresolve.Resolver,
	transformer *transform.Transformer,
	synth *shell.Synthesizer,
	eval evaluator.Evaluator,
	logger *slog.Logger,
	virtualPrefix string,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		fsys: fsys, cfg: cfg, resolver: resolver, transformer: transformer,
		synth: synth, evaluator: eval, logger: logger, virtualPrefix: virtualPrefix,
	}
}

// HandleRequest is the unary entry point.
func (d *Dispatcher) HandleRequest(ctx context.Context, req Request) Response {
	var resp Response
	d.HandleStreamingRequest(ctx, req, StreamCallbacks{
		OnStart: func(status int, statusText string, headers map[string]string) {
			resp.Status, resp.StatusText, resp.Headers = status, statusText, headers
		},
		OnChunk: func(chunk []byte) {
			resp.Body = append(resp.Body, chunk...)
		},
		OnEnd: func() {},
	})
	return resp
}

// HandleStreamingRequest drives the dispatch decision chain; cb.OnStart
// is always called exactly once before any OnChunk, and OnEnd exactly
// once after the last OnChunk.
func (d *Dispatcher) HandleStreamingRequest(ctx context.Context, req Request, cb StreamCallbacks) {
	pathname, query := d.parsePath(req.URL)

	// 1-3: strip virtual/asset/base prefixes.
	pathname = stripVirtualPrefix(pathname)
	pathname = stripPrefixTolerateDoubleSlash(pathname, d.cfg.AssetPrefix)
	pathname = stripPrefixTolerateDoubleSlash(pathname, d.cfg.BasePath)
	if pathname == "" {
		pathname = "/"
	}

	switch {
	case strings.HasPrefix(pathname, shimRoot):
		d.serveShim(cb, pathname)
		return
	case pathname == routeInfoPath:
		d.serveRouteInfo(cb, query)
		return
	case strings.HasPrefix(pathname, pagesLazyRoot):
		d.servePagesLazyLoad(ctx, cb, pathname)
		return
	case strings.HasPrefix(pathname, appLazyRoot):
		d.serveAppLazyLoad(ctx, cb, pathname)
		return
	case strings.HasPrefix(pathname, staticRoot):
		d.serveStatic(cb, strings.TrimPrefix(pathname, staticRoot))
		return
	}

	if d.resolver.UsesAppRouter() {
		if route, ok := d.resolver.ResolveRouteHandler(pathname); ok {
			d.executeWebHandler(ctx, cb, req, route)
			return
		}
	}

	if strings.HasPrefix(pathname, "/api/") {
		if route, ok := d.resolver.ResolvePage(pathname); ok {
			d.executeLegacyHandler(ctx, cb, req, route.HandlerFile, route.Params)
			return
		}
	}

	if file := d.publicAssetFile(pathname); file != "" {
		d.serveRawFile(cb, file)
		return
	}

	if loader, ok := loaderFor(pathname); ok && d.fsys.ExistsSync(pathname) {
		d.transformAndServe(ctx, cb, pathname, loader)
		return
	}

	if file, ok := d.resolveExtensionless(pathname); ok {
		if loader, ok := loaderFor(file); ok {
			d.transformAndServe(ctx, cb, file, loader)
		} else {
			d.serveRawFile(cb, file)
		}
		return
	}

	if d.fsys.ExistsSync(pathname) && !d.fsys.IsDirectorySync(pathname) {
		d.serveRawFile(cb, pathname)
		return
	}

	d.servePageRoute(ctx, cb, pathname)
}

// parsePath extracts the pathname and raw query from a request URL that
// may be absolute or path+query only.
func (d *Dispatcher) parsePath(raw string) (pathname string, query string) {
	u, err := url.Parse(raw)
	if err != nil {
		return raw, ""
	}
	return u.Path, u.RawQuery
}

const (
	shimRoot      = "/_next/shims/"
	routeInfoPath = "/_next/route-info"
	pagesLazyRoot = "/_next/pages/"
	appLazyRoot   = "/_next/app/"
	staticRoot    = "/_next/static"
)

// stripVirtualPrefix strips "/__virtual__/<port>" if present.
func stripVirtualPrefix(p string) string {
	if !strings.HasPrefix(p, "/__virtual__/") {
		return p
	}
	rest := p[len("/__virtual__/"):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[idx:]
	}
	return "/"
}

// stripPrefixTolerateDoubleSlash strips prefix from p, collapsing the
// pathological "//" that arises from concatenating two prefixes.
func stripPrefixTolerateDoubleSlash(p, prefix string) string {
	if prefix == "" {
		return p
	}
	candidates := []string{prefix, prefix + "/"}
	for _, c := range candidates {
		if strings.HasPrefix(p, c) {
			rest := strings.TrimPrefix(p, prefix)
			for strings.HasPrefix(rest, "//") {
				rest = rest[1:]
			}
			if rest == "" {
				rest = "/"
			}
			return rest
		}
	}
	return p
}

// loaderFor reports whether pathname's extension needs JS/TS/JSX transform.
func loaderFor(pathname string) (string, bool) {
	switch strings.ToLower(path.Ext(pathname)) {
	case ".jsx":
		return "jsx", true
	case ".tsx":
		return "tsx", true
	case ".ts":
		return "ts", true
	case ".js", ".mjs", ".cjs":
		return "js", true
	default:
		return "", false
	}
}

// extensionAttempts are tried in priority order for extensionless paths
// (direct and index-file variants) and for app-mode lazy-load paths.
var extensionAttempts = []string{".tsx", ".ts", ".jsx", ".js"}

func (d *Dispatcher) resolveExtensionless(pathname string) (string, bool) {
	if path.Ext(pathname) != "" {
		return "", false
	}
	for _, ext := range extensionAttempts {
		f := pathname + ext
		if d.fsys.ExistsSync(f) && !d.fsys.IsDirectorySync(f) {
			return f, true
		}
	}
	for _, ext := range extensionAttempts {
		f := vfs.Join(pathname, "index"+ext)
		if d.fsys.ExistsSync(f) {
			return f, true
		}
	}
	return "", false
}

// publicAssetFile maps pathname to a file under the public-assets
// directory, returning "" if absent.
func (d *Dispatcher) publicAssetFile(pathname string) string {
	f := vfs.Join(d.cfg.PublicDir, pathname)
	if d.fsys.ExistsSync(f) && !d.fsys.IsDirectorySync(f) {
		return f
	}
	return ""
}

func (d *Dispatcher) transformAndServe(ctx context.Context, cb StreamCallbacks, file, _ string) {
	out, err := d.transformer.ESM(ctx, file, d.virtualPrefix)
	d.sendTransformOutput(cb, out, err)
}

func (d *Dispatcher) sendTransformOutput(cb StreamCallbacks, out transform.Output, err error) {
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E220").Wrap(err))
		return
	}
	headers := map[string]string{"Content-Type": "application/javascript; charset=utf-8"}
	if out.CacheHit {
		headers["X-Cache"] = "hit"
	} else {
		headers["X-Cache"] = "miss"
	}
	if out.TransformErr != nil {
		headers["X-Transform-Error"] = "true"
	}
	cb.OnStart(200, "OK", headers)
	cb.OnChunk([]byte(out.Code))
	cb.OnEnd()
}

func (d *Dispatcher) serveRawFile(cb StreamCallbacks, file string) {
	data, err := d.fsys.ReadFileSync(file)
	if err != nil {
		d.errorJSON(cb, 404, errors.New("E200").WithDetail(file))
		return
	}
	// Global stylesheets served as static bytes (the shell's <link> tags)
	// are minified; CSS Modules are scoped earlier, at transform time, on
	// a different path (ExtractCSSModule).
	if strings.ToLower(path.Ext(file)) == ".css" {
		data = transform.MinifyCSS(data)
	}
	headers := map[string]string{"Content-Type": contentTypeFor(file)}
	cb.OnStart(200, "OK", headers)
	cb.OnChunk(data)
	cb.OnEnd()
}

func (d *Dispatcher) serveStatic(cb StreamCallbacks, vfsPath string) {
	if vfsPath == "" || vfsPath == "/" {
		d.errorJSON(cb, 404, errors.New("E200"))
		return
	}
	d.serveRawFile(cb, vfsPath)
}

func contentTypeFor(file string) string {
	switch strings.ToLower(path.Ext(file)) {
	case ".css":
		return "text/css; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".js", ".mjs":
		return "application/javascript; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// errorJSON sends a well-formed error response. No error escapes the
// dispatcher: every exit path returns a well-formed response.
func (d *Dispatcher) errorJSON(cb StreamCallbacks, status int, de *errors.DevError) {
	cb.OnStart(status, statusText(status), map[string]string{"Content-Type": "application/json; charset=utf-8"})
	cb.OnChunk([]byte(de.FormatJSON()))
	cb.OnEnd()
}

func (d *Dispatcher) notFoundErr(pathname string) *errors.DevError {
	return errors.New("E200").WithDetail(pathname)
}

func statusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 500:
		return "Internal Server Error"
	default:
		return ""
	}
}
