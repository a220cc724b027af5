// Package shell implements the HTML Shell Synthesizer (component D): it
// produces the bootstrap HTML document for a page-route request, wired for
// client-side navigation and hot updates.
package shell

import (
	"encoding/json"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/hmr"
	"github.com/vango-dev/devserver/internal/routeresolve"
	"github.com/vango-dev/devserver/internal/vfs"
)

// globalStylesheetCandidates lists conventional global-CSS file locations
// the synthesizer probes when emitting <link> tags.
var globalStylesheetCandidates = []string{
	"/app/globals.css",
	"/styles/globals.css",
	"/pages/globals.css",
}

// styleFrameworkConfigCandidates lists conventional style-framework config
// files probed when deciding whether to inject the style CDN.
var styleFrameworkConfigCandidates = []string{
	"/tailwind.config.js",
	"/tailwind.config.ts",
}

// Synthesizer builds dev-mode HTML shells.
type Synthesizer struct {
	fsys   vfs.VFS
	cfg    *config.Config
	logger *slog.Logger
}

// New constructs a Synthesizer.
func New(fsys vfs.VFS, cfg *config.Config, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{fsys: fsys, cfg: cfg, logger: logger}
}

// Data describes one page-route render.
type Data struct {
	Pathname      string
	AppMode       bool
	Route         *routeresolve.Route // nil for a built-in 404 with no convention match
	VirtualPrefix string              // e.g. "/__virtual__/4821"
	StatusCode    int                 // 200 or 404
}

// Render synthesizes the full HTML document for data. Section order
// matters: the React Refresh preamble must run before the app module
// graph evaluates, and the import map must precede the mount script.
func (s *Synthesizer) Render(data Data) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\"/>\n")
	b.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\"/>\n")

	// 1. Base tag rooted at the virtual prefix.
	base := data.VirtualPrefix + s.cfg.BasePath
	if base == "" {
		base = "/"
	}
	b.WriteString("<base href=\"")
	b.WriteString(htmlAttrEscape(ensureTrailingSlash(base)))
	b.WriteString("\"/>\n")

	// 2. Environment-injection script: only NEXT_PUBLIC_-prefixed keys.
	s.writeEnvScript(&b, data)

	// 3. Optional style CDN + style-framework config, if discoverable.
	s.writeStyleFramework(&b)

	// 4. CORS-proxy helpers.
	b.WriteString(corsProxyScript)

	// 5. Global CSS <link> tags.
	s.writeGlobalStylesheets(&b, data.VirtualPrefix)

	// 6. React Refresh preamble; must run before the app module graph.
	b.WriteString(reactRefreshPreamble)

	// 7. Import map.
	s.writeImportMap(&b, data.VirtualPrefix)

	b.WriteString("</head>\n<body>\n<div id=\"__next\">")
	if data.StatusCode == 404 {
		b.WriteString(notFoundFallbackHTML)
	}
	b.WriteString("</div>\n")

	// 8. HMR client script.
	b.WriteString(hmr.ClientScript)

	// 9. Mount script: client-side router.
	s.writeMountScript(&b, data)

	// 10. Initialization timestamp, used by tests.
	b.WriteString("<script>window.__NEXT_DEV_INIT__ = Date.now();</script>\n")

	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// NotFoundHTML synthesizes the built-in 404 document used when no
// convention file resolves one.
func (s *Synthesizer) NotFoundHTML(pathname, virtualPrefix string) string {
	return s.Render(Data{Pathname: pathname, VirtualPrefix: virtualPrefix, StatusCode: 404})
}

func (s *Synthesizer) writeEnvScript(b *strings.Builder, data Data) {
	public := s.cfg.PublicEnv()
	encoded, err := json.Marshal(public)
	if err != nil {
		s.logger.Error("shell: failed to encode public env", "error", err)
		encoded = []byte("{}")
	}
	b.WriteString("<script>\n")
	b.WriteString("window.process = window.process || {};\n")
	b.WriteString("window.process.env = ")
	b.Write(jsonScriptSafe(encoded))
	b.WriteString(";\n")
	b.WriteString("window.__NEXT_BASE_PATH__ = ")
	b.Write(jsonScriptSafe(mustJSON(s.cfg.BasePath)))
	b.WriteString(";\n")
	b.WriteString("</script>\n")
}

func (s *Synthesizer) writeStyleFramework(b *strings.Builder) {
	for _, candidate := range styleFrameworkConfigCandidates {
		if s.fsys.ExistsSync(candidate) {
			b.WriteString("<script src=\"https://cdn.tailwindcss.com\"></script>\n")
			b.WriteString("<script>window.__TAILWIND_CONFIG_PATH__ = ")
			b.Write(jsonScriptSafe(mustJSON(candidate)))
			b.WriteString(";</script>\n")
			return
		}
	}
}

func (s *Synthesizer) writeGlobalStylesheets(b *strings.Builder, virtualPrefix string) {
	for _, candidate := range globalStylesheetCandidates {
		if s.fsys.ExistsSync(candidate) {
			href := vfs.Join(virtualPrefix, "/_next/static", candidate)
			b.WriteString("<link rel=\"stylesheet\" href=\"")
			b.WriteString(htmlAttrEscape(href))
			b.WriteString("\"/>\n")
		}
	}
}

func (s *Synthesizer) writeImportMap(b *strings.Builder, virtualPrefix string) {
	imports := map[string]string{
		"react":     "https://esm.sh/react@18",
		"react-dom": "https://esm.sh/react-dom@18",
	}
	for _, shim := range shimNames {
		imports[shim] = vfs.Join(virtualPrefix, "/_next/shims", shim) + ".js"
	}
	// Prefix entry so subpath specifiers like "font/google" resolve too.
	imports["font/"] = vfs.Join(virtualPrefix, "/_next/shims/font") + "/"
	encoded, err := json.Marshal(map[string]any{"imports": imports})
	if err != nil {
		s.logger.Error("shell: failed to encode import map", "error", err)
		encoded = []byte(`{"imports":{}}`)
	}
	b.WriteString("<script type=\"importmap\">")
	b.Write(jsonScriptSafe(encoded))
	b.WriteString("</script>\n")
}

// shimNames are the framework-internal specifiers the import map routes to
// server-served shim modules.
var shimNames = []string{"link", "router", "head", "navigation", "image", "dynamic", "script", "font"}

func (s *Synthesizer) writeMountScript(b *strings.Builder, data Data) {
	pageURL := ""
	layoutURLs := []string{}
	conventions := map[string]string{}
	if data.Route != nil {
		if data.AppMode {
			pageURL = appLazyURL(data.VirtualPrefix, data.Route.HandlerFile)
			for _, l := range data.Route.Layouts {
				layoutURLs = append(layoutURLs, appLazyURL(data.VirtualPrefix, l))
			}
			if c := data.Route.Conventions.NotFound; c != "" {
				conventions["notFound"] = appLazyURL(data.VirtualPrefix, c)
			}
			if c := data.Route.Conventions.Error; c != "" {
				conventions["error"] = appLazyURL(data.VirtualPrefix, c)
			}
			if c := data.Route.Conventions.Loading; c != "" {
				conventions["loading"] = appLazyURL(data.VirtualPrefix, c)
			}
		} else {
			pageURL = pagesLazyURL(data.VirtualPrefix, data.Pathname)
		}
	}

	layoutsJSON, _ := json.Marshal(layoutURLs)
	routeInfoURL := vfs.Join(data.VirtualPrefix, "/_next/route-info") + "?pathname=" + urlQueryEscape(data.Pathname)

	b.WriteString("<script type=\"module\">\n")
	b.WriteString(mountRouterRuntime)
	b.WriteString("window.__NEXT_MOUNT__(")
	b.Write(jsonScriptSafe(mustJSON(pageURL)))
	b.WriteString(", ")
	b.Write(jsonScriptSafe(layoutsJSON))
	b.WriteString(", ")
	b.Write(jsonScriptSafe(mustJSON(routeInfoURL)))
	b.WriteString(", ")
	b.Write(jsonScriptSafe(mustJSON(data.AppMode)))
	b.WriteString(", ")
	b.Write(jsonScriptSafe(mustJSON(conventions)))
	b.WriteString(");\n")
	b.WriteString("</script>\n")
}

// pagesLazyURL builds the "/_next/pages/<logical-path>.js" URL used for
// pages-mode lazy loading.
func pagesLazyURL(virtualPrefix, pathname string) string {
	logical := pathname
	if logical == "/" || logical == "" {
		logical = "/index"
	}
	return vfs.Join(virtualPrefix, "/_next/pages", logical) + ".js"
}

// appLazyURL builds the "/_next/app/<file-path>.js" URL used for app-mode
// lazy loading, derived directly from the resolved handler/layout file
// path.
func appLazyURL(virtualPrefix, filePath string) string {
	ext := path.Ext(filePath)
	withoutExt := strings.TrimSuffix(filePath, ext)
	return vfs.Join(virtualPrefix, "/_next/app", withoutExt) + ".js"
}

func ensureTrailingSlash(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return b
}

// jsonScriptSafe escapes "</" sequences so embedded JSON can't prematurely
// close the surrounding <script> tag.
func jsonScriptSafe(b []byte) []byte {
	return []byte(strings.ReplaceAll(string(b), "</", "<\\/"))
}

func htmlAttrEscape(s string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(s)
}

func urlQueryEscape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '/' || c == '-' || c == '_' || c == '.' || c == '~' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'):
			b.WriteByte(c)
		default:
			b.WriteString("%")
			hex := strconv.FormatInt(int64(c), 16)
			if len(hex) < 2 {
				hex = "0" + hex
			}
			b.WriteString(strings.ToUpper(hex))
		}
	}
	return b.String()
}
