package transform

import (
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
)

// cssMinifier is stateless and safe for concurrent use across requests;
// tdewolff/minify's own examples construct one instance and reuse it.
var cssMinifier = newCSSMinifier()

func newCSSMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	return m
}

// MinifyCSS minifies a plain global stylesheet before it is served from
// the static/public roots (the HTML shell's global <link> tags point at
// these bytes). CSS Modules scoping (ExtractCSSModule) happens earlier,
// at transform time, on a separate path. On any minifier error the
// original bytes pass through unmodified; a dev server must never fail a
// static asset request over a minification quirk.
func MinifyCSS(source []byte) []byte {
	out, err := cssMinifier.Bytes("text/css", source)
	if err != nil {
		return source
	}
	return out
}
