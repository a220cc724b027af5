package transform

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/vfs"
)

// reModuleCSSImport matches "import X from './y.module.css'" (a default
// binding import of a CSS Modules file).
var reModuleCSSImport = regexp.MustCompile(`import\s+(\w+)\s+from\s+(['"])([^'"]+\.module\.css)['"];?`)

// rePlainCSSImport matches "import './y.css'" (a side-effect-only import of
// a plain, global stylesheet).
var rePlainCSSImport = regexp.MustCompile(`import\s+(['"])([^'"]+\.css)['"];?`)

// stripCSSImports replaces CSS Modules imports with a generated class-map
// object literal plus an injected <style> tag, and strips plain CSS
// imports outright (global styles load via HTML <link> tags instead).
func stripCSSImports(code, sourcefile string, fsys vfs.VFS, cfg *config.Config) string {
	dir := path.Dir(sourcefile)

	code = reModuleCSSImport.ReplaceAllStringFunc(code, func(match string) string {
		m := reModuleCSSImport.FindStringSubmatch(match)
		binding, specifier := m[1], m[3]
		cssPath := resolveCSSSpecifier(specifier, dir, cfg)

		data, err := fsys.ReadFileSync(cssPath)
		if err != nil {
			// Missing file: fall back to an empty map rather than failing
			// the whole module transform.
			return fmt.Sprintf("const %s = {};", binding)
		}

		result := ExtractCSSModule(data, cssPath)
		return buildCSSModuleBinding(binding, cssPath, result)
	})

	code = rePlainCSSImport.ReplaceAllString(code, "")
	return code
}

// resolveCSSSpecifier resolves a CSS import specifier to a VFS-absolute
// path: alias prefixes first, else relative to the importing file's
// directory.
func resolveCSSSpecifier(specifier, dir string, cfg *config.Config) string {
	if target, ok := cfg.ResolveAlias(specifier); ok {
		return target
	}
	if strings.HasPrefix(specifier, "/") {
		return specifier
	}
	return vfs.Join(dir, specifier)
}

// buildCSSModuleBinding renders the JS snippet that replaces a CSS Modules
// import: a const object literal of original->scoped class names, plus an
// inline script appending a <style> tag bearing the scoped rules at module
// execution.
func buildCSSModuleBinding(binding, cssPath string, result CSSModuleResult) string {
	var b strings.Builder
	b.WriteString("const ")
	b.WriteString(binding)
	b.WriteString(" = {")
	names := make([]string, 0, len(result.ClassMap))
	for orig := range result.ClassMap {
		names = append(names, orig)
	}
	sort.Strings(names)
	for i, orig := range names {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Quote(orig))
		b.WriteString(":")
		b.WriteString(strconv.Quote(result.ClassMap[orig]))
	}
	b.WriteString("};\n")
	b.WriteString("if (typeof document !== 'undefined') {\n")
	b.WriteString("  (function() {\n")
	b.WriteString("    var __id = ")
	b.WriteString(strconv.Quote("css-module:" + cssPath))
	b.WriteString(";\n")
	b.WriteString("    if (!document.getElementById(__id)) {\n")
	b.WriteString("      var __style = document.createElement('style');\n")
	b.WriteString("      __style.id = __id;\n")
	b.WriteString("      __style.textContent = ")
	b.WriteString(strconv.Quote(result.ScopedCSS))
	b.WriteString(";\n")
	b.WriteString("      document.head.appendChild(__style);\n")
	b.WriteString("    }\n")
	b.WriteString("  })();\n")
	b.WriteString("}\n")
	return b.String()
}
