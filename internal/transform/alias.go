package transform

import (
	"regexp"

	"github.com/vango-dev/devserver/internal/config"
)

// reImportSpecifier matches the string literal in "from '...'" (static
// import/export) and "import('...')" (dynamic import) positions, the only
// two positions alias resolution applies to.
var reImportSpecifier = regexp.MustCompile(`\bfrom\s+(?:'([^']+)'|"([^"]+)")|\bimport\(\s*(?:'([^']+)'|"([^"]+)")\s*\)`)

// rewriteAliases resolves every configured path alias found in an import
// specifier to an absolute URL rooted at virtualPrefix + the alias target +
// the remainder of the specifier.
func rewriteAliases(code string, cfg *config.Config, virtualPrefix string) string {
	if len(cfg.AliasMap) == 0 {
		return code
	}
	return reImportSpecifier.ReplaceAllStringFunc(code, func(match string) string {
		sub := reImportSpecifier.FindStringSubmatch(match)
		var quote, spec string
		switch {
		case sub[1] != "":
			quote, spec = "'", sub[1]
		case sub[2] != "":
			quote, spec = "\"", sub[2]
		case sub[3] != "":
			quote, spec = "'", sub[3]
		case sub[4] != "":
			quote, spec = "\"", sub[4]
		}
		target, ok := cfg.ResolveAlias(spec)
		if !ok {
			return match
		}
		rewritten := virtualPrefix + target
		return replaceSpecifier(match, quote, spec, rewritten)
	})
}

// replaceSpecifier swaps the quoted specifier inside match, preserving
// whichever surrounding syntax ("from '...'" vs "import('...')") matched.
func replaceSpecifier(match, quote, oldSpec, newSpec string) string {
	old := quote + oldSpec + quote
	neu := quote + newSpec + quote
	idx := indexOf(match, old)
	if idx < 0 {
		return match
	}
	return match[:idx] + neu + match[idx+len(old):]
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
