package transform

import (
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/js"
)

// cdnBase is the CDN origin bare specifiers are redirected to.
const cdnBase = "https://esm.sh/"

// reservedPrefixes lists framework-reserved specifier prefixes that must
// never be redirected to the CDN.
var reservedPrefixes = []string{"next/", "link", "router", "head", "navigation", "image", "dynamic", "script", "font/"}

// rewriteBareImportsToCDN redirects every bare (non-relative,
// non-framework-reserved) import specifier to the CDN. Only applied on
// the browser ESM path.
//
// The emitted code is parsed with the real JS parser
// (github.com/tdewolff/parse/v2/js, the module-grammar sibling of the CSS
// tokenizer the CSS Modules path uses) and only string literals in
// import, export-from, and dynamic-import positions are mutated; comments
// and ordinary strings never match. The parse identifies the specifier
// literals, and a second pass over the token stream splices them in place
// so the surrounding text, comments included, survives byte for byte. The
// regex path at the bottom is the fallback, used only when the parser
// reports a hard error.
func rewriteBareImportsToCDN(code string) string {
	specifiers, err := parseSpecifierTokens(code)
	if err != nil {
		return rewriteSpecifiersWithRegex(code)
	}
	if len(specifiers) == 0 {
		return code
	}
	out, err := rewriteSpecifiersWithLexer(code, specifiers)
	if err != nil {
		return rewriteSpecifiersWithRegex(code)
	}
	return out
}

// specifierCollector walks the AST recording the quoted specifier tokens
// of import declarations, export-from declarations, and dynamic import()
// calls with a string-literal argument.
type specifierCollector struct {
	tokens map[string]struct{}
}

func (c *specifierCollector) Enter(n js.INode) js.IVisitor {
	switch node := n.(type) {
	case *js.ImportStmt:
		if len(node.Module) > 0 {
			c.tokens[string(node.Module)] = struct{}{}
		}
	case *js.ExportStmt:
		if len(node.Module) > 0 {
			c.tokens[string(node.Module)] = struct{}{}
		}
	case *js.CallExpr:
		isImport := false
		switch x := node.X.(type) {
		case *js.Var:
			isImport = string(x.Data) == "import"
		case *js.LiteralExpr:
			isImport = x.TokenType == js.ImportToken
		}
		if isImport && len(node.Args.List) > 0 {
			if lit, ok := node.Args.List[0].Value.(*js.LiteralExpr); ok && lit.TokenType == js.StringToken {
				c.tokens[string(lit.Data)] = struct{}{}
			}
		}
	}
	return c
}

func (c *specifierCollector) Exit(n js.INode) {}

func parseSpecifierTokens(code string) (map[string]struct{}, error) {
	ast, err := js.Parse(parse.NewInputString(code), js.Options{})
	if err != nil {
		return nil, err
	}
	collector := &specifierCollector{tokens: make(map[string]struct{})}
	js.Walk(collector, ast)
	return collector.tokens, nil
}

// Specifier-position state for the splice pass, advanced only on
// significant tokens.
const (
	specNone       = iota
	specImport     // saw "import": the first string before ";" is the specifier
	specImportCall // saw "import(": a string-literal first argument is the specifier
	specExport     // saw "export": only a string directly after "from" is a specifier
	specExportFrom // saw "export ... from": the very next string is the specifier
)

// rewriteSpecifiersWithLexer re-walks the token stream and replaces
// exactly the string tokens that are both in a specifier grammar position
// and in the parser-collected set, copying every other token through
// verbatim.
func rewriteSpecifiersWithLexer(code string, specifiers map[string]struct{}) (string, error) {
	lexer := js.NewLexer(parse.NewInputString(code))

	var out strings.Builder
	out.Grow(len(code) + 64)
	state := specNone
	braceDepth := 0

	for {
		tt, data := lexer.Next()
		if tt == js.ErrorToken {
			if err := lexer.Err(); err != nil && err != io.EOF {
				return "", err
			}
			break
		}

		switch tt {
		case js.WhitespaceToken, js.LineTerminatorToken, js.CommentToken, js.CommentLineTerminatorToken:
			out.Write(data)
			continue
		}

		switch tt {
		case js.ImportToken:
			state = specImport
		case js.ExportToken:
			state = specExport
			braceDepth = 0
		case js.SemicolonToken:
			state = specNone
		case js.StringToken:
			if state == specImport || state == specImportCall || state == specExportFrom {
				if tok := string(data); inSpecifierSet(specifiers, tok) {
					out.WriteString(rewriteSpecifierToken(tok))
					state = specNone
					continue
				}
			}
			state = specNone
		default:
			switch state {
			case specImport:
				if tt == js.OpenParenToken {
					state = specImportCall
				} else if tt == js.DotToken {
					// import.meta, not a declaration.
					state = specNone
				}
			case specImportCall:
				// First argument is not a string literal; leave it alone.
				state = specNone
			case specExport:
				// "from" only binds outside the export clause's braces, so
				// "export { a as from } from ..." still finds the real one.
				switch {
				case tt == js.OpenBraceToken:
					braceDepth++
				case tt == js.CloseBraceToken:
					if braceDepth > 0 {
						braceDepth--
					}
				case braceDepth == 0 && string(data) == "from":
					state = specExportFrom
				}
			case specExportFrom:
				// The specifier follows "from" immediately; anything else
				// means "from" was an ordinary identifier.
				state = specNone
			}
		}
		out.Write(data)
	}

	return out.String(), nil
}

// inSpecifierSet checks membership tolerating either quoted or bare
// storage of the parsed module token.
func inSpecifierSet(set map[string]struct{}, tok string) bool {
	if _, ok := set[tok]; ok {
		return true
	}
	if len(tok) >= 2 {
		if _, ok := set[tok[1:len(tok)-1]]; ok {
			return true
		}
	}
	return false
}

// rewriteSpecifierToken rewrites one quoted specifier token, preserving its
// quote character; non-bare specifiers pass through untouched.
func rewriteSpecifierToken(tok string) string {
	if len(tok) < 2 {
		return tok
	}
	quote, spec := tok[:1], tok[1:len(tok)-1]
	if !isBareSpecifier(spec) {
		return tok
	}
	return quote + cdnBase + spec + quote
}

// Fallback path: the same grammar positions matched by regex, reached only
// when the parser errors on the source.
var (
	reStaticSpecifier   = regexp.MustCompile(`(\bfrom\s+)(?:'([^']+)'|"([^"]+)")`)
	reBareDynamicImport = regexp.MustCompile(`(\bimport\(\s*)(?:'([^']+)'|"([^"]+)")(\s*\))`)
)

func rewriteSpecifiersWithRegex(code string) string {
	code = reStaticSpecifier.ReplaceAllStringFunc(code, rewriteMatch(reStaticSpecifier))
	code = reBareDynamicImport.ReplaceAllStringFunc(code, rewriteMatch(reBareDynamicImport))
	return code
}

func rewriteMatch(re *regexp.Regexp) func(string) string {
	return func(match string) string {
		groups := re.FindStringSubmatch(match)
		quote, spec := "'", groups[2]
		if spec == "" {
			quote, spec = "\"", groups[3]
		}
		if !isBareSpecifier(spec) {
			return match
		}
		rewritten := cdnBase + spec
		return groups[1] + quote + rewritten + quote + lastGroup(groups)
	}
}

// lastGroup returns the trailing group (the closing "')" for dynamic
// imports, or "" for static imports which have no fourth group).
func lastGroup(groups []string) string {
	if len(groups) > 4 {
		return groups[4]
	}
	return ""
}

// isBareSpecifier reports whether spec is a bare module specifier: not
// relative, not absolute, and not one of the framework's reserved
// internal specifiers (those are served as shims, never redirected).
func isBareSpecifier(spec string) bool {
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return false
	}
	for _, prefix := range reservedPrefixes {
		if spec == prefix || strings.HasPrefix(spec, prefix) {
			return false
		}
	}
	return true
}
