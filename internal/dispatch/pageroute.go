package dispatch

import (
	"context"

	"github.com/vango-dev/devserver/internal/routeresolve"
	"github.com/vango-dev/devserver/internal/shell"
)

// servePageRoute is the page-route fallback: in app mode, fall back to
// "/not-found" when nothing resolves; in pages mode, fall back to a
// "/404" page; otherwise synthesize the built-in 404.
func (d *Dispatcher) servePageRoute(_ context.Context, cb StreamCallbacks, pathname string) {
	appMode := d.resolver.UsesAppRouter()

	route, ok := d.resolver.ResolvePage(pathname)
	if ok {
		html := d.synth.Render(shell.Data{
			Pathname:      pathname,
			AppMode:       appMode,
			Route:         route,
			VirtualPrefix: d.virtualPrefix,
			StatusCode:    200,
		})
		d.sendHTML(cb, 200, html)
		return
	}

	if appMode {
		if nf, ok := d.resolver.ResolveNotFound(); ok {
			html := d.synth.Render(shell.Data{
				Pathname:      pathname,
				AppMode:       true,
				Route:         &routeresolve.Route{HandlerFile: nf},
				VirtualPrefix: d.virtualPrefix,
				StatusCode:    404,
			})
			d.sendHTML(cb, 404, html)
			return
		}
	} else {
		if nf, ok := d.resolver.ResolvePage("/404"); ok {
			html := d.synth.Render(shell.Data{
				Pathname:      pathname,
				AppMode:       false,
				Route:         nf,
				VirtualPrefix: d.virtualPrefix,
				StatusCode:    404,
			})
			d.sendHTML(cb, 404, html)
			return
		}
	}

	d.sendHTML(cb, 404, d.synth.NotFoundHTML(pathname, d.virtualPrefix))
}

func (d *Dispatcher) sendHTML(cb StreamCallbacks, status int, html string) {
	cb.OnStart(status, statusText(status), map[string]string{"Content-Type": "text/html; charset=utf-8"})
	cb.OnChunk([]byte(html))
	cb.OnEnd()
}
