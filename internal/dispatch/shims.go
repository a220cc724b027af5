package dispatch

import "strings"

// shimSources are the framework-internal modules the import map points at
// (shell.shimNames); each is a small browser-only stand-in for a Node-side
// or build-time-only API a file-based page/layout module might import.
var shimSources = map[string]string{
	"link": `
export default function Link(props) {
  var a = document.createElement('a');
  return a;
}
export function useLinkProps(href) { return { href: href, onClick: function(e) {
  if (e) e.preventDefault();
  history.pushState({}, '', href);
  window.dispatchEvent(new PopStateEvent('popstate'));
} }; }
`,
	"router": `
export function useRouter() {
  return {
    pathname: location.pathname,
    query: Object.fromEntries(new URLSearchParams(location.search)),
    push: function(href) { history.pushState({}, '', href); window.dispatchEvent(new PopStateEvent('popstate')); },
    replace: function(href) { history.replaceState({}, '', href); window.dispatchEvent(new PopStateEvent('popstate')); },
    back: function() { history.back(); },
  };
}
`,
	"head": `
export default function Head(props) { return null; }
`,
	"navigation": `
export function useRouter() {
  return {
    push: function(href) { history.pushState({}, '', href); window.dispatchEvent(new PopStateEvent('popstate')); },
    replace: function(href) { history.replaceState({}, '', href); window.dispatchEvent(new PopStateEvent('popstate')); },
    back: function() { history.back(); },
  };
}
export function usePathname() { return location.pathname; }
export function useSearchParams() { return new URLSearchParams(location.search); }
`,
	"image": `
export default function Image(props) { return null; }
`,
	"dynamic": `
export default function dynamic(loader, options) {
  return function DynamicComponent(props) { return null; };
}
`,
	"script": `
export default function Script(props) { return null; }
`,
	"font": `
export function useFont() { return { className: '' }; }
`,
	"font/google": `
function fontLoader() { return { className: '', style: { fontFamily: 'inherit' } }; }
export default new Proxy({}, { get: function() { return fontLoader; } });
export var Inter = fontLoader, Roboto = fontLoader, Open_Sans = fontLoader;
`,
}

func (d *Dispatcher) serveShim(cb StreamCallbacks, pathname string) {
	name := strings.TrimSuffix(strings.TrimPrefix(pathname, shimRoot), ".js")
	src, ok := shimSources[name]
	if !ok {
		d.errorJSON(cb, 404, d.notFoundErr(pathname))
		return
	}
	cb.OnStart(200, "OK", map[string]string{"Content-Type": "application/javascript; charset=utf-8"})
	cb.OnChunk([]byte(src))
	cb.OnEnd()
}
