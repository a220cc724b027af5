package dispatch

import (
	"context"
	"strings"
)

// servePagesLazyLoad answers "/_next/pages/<logical-path>.js" (shell.go's
// pagesLazyURL), recovering the page's logical pathname and re-resolving it
// through the route resolver so dynamic-segment pages lazy-load correctly.
func (d *Dispatcher) servePagesLazyLoad(ctx context.Context, cb StreamCallbacks, pathname string) {
	logical := strings.TrimSuffix(strings.TrimPrefix(pathname, pagesLazyRoot), ".js")
	if logical == "index" || logical == "" {
		logical = "/"
	} else {
		logical = "/" + logical
	}

	route, ok := d.resolver.ResolvePage(logical)
	if !ok {
		d.errorJSON(cb, 404, d.notFoundErr(logical))
		return
	}
	out, err := d.transformer.ESM(ctx, route.HandlerFile, d.virtualPrefix)
	d.sendTransformOutput(cb, out, err)
}

// serveAppLazyLoad answers "/_next/app/<file-path>.js" (shell.go's
// appLazyURL), recovering the extensionless VFS path and trying each
// supported extension to find the underlying source file.
func (d *Dispatcher) serveAppLazyLoad(ctx context.Context, cb StreamCallbacks, pathname string) {
	withoutExt := strings.TrimSuffix(strings.TrimPrefix(pathname, appLazyRoot), ".js")
	base := "/" + strings.TrimPrefix(withoutExt, "/")

	for _, ext := range extensionAttempts {
		f := base + ext
		if d.fsys.ExistsSync(f) {
			out, err := d.transformer.ESM(ctx, f, d.virtualPrefix)
			d.sendTransformOutput(cb, out, err)
			return
		}
	}
	d.errorJSON(cb, 404, d.notFoundErr(base))
}
