package transform

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// CSSModuleResult is the output of extracting a CSS Modules stylesheet:
// the class-name rewrite map the JS import binding becomes, and the
// rewritten stylesheet text with every class selector scoped.
type CSSModuleResult struct {
	// ClassMap maps the original class name (no leading ".") to its scoped
	// name, "<origName>__<hash>".
	ClassMap map[string]string

	// ScopedCSS is the stylesheet with every ".origName" selector rewritten
	// to ".origName__hash", ready to inject via a <style> tag.
	ScopedCSS string

	// UsedFallback reports whether the real parser errored and extraction
	// fell back to the regex path.
	UsedFallback bool
}

// ExtractCSSModule tokenizes source with a real CSS parser
// (github.com/tdewolff/parse/v2/css) and returns the scoped class map
// plus rewritten stylesheet. filePath seeds the scope hash. The regex
// fallback is used only when the tokenizer itself reports a hard parse
// error.
func ExtractCSSModule(source []byte, filePath string) CSSModuleResult {
	suffix := "__" + pathFingerprint(filePath)

	classMap, scoped, err := extractWithParser(source, suffix)
	if err != nil {
		classMap, scoped = extractWithRegex(source, suffix)
		return CSSModuleResult{ClassMap: classMap, ScopedCSS: scoped, UsedFallback: true}
	}
	return CSSModuleResult{ClassMap: classMap, ScopedCSS: scoped}
}

// extractWithParser walks the token stream looking for selector-position
// ".identifier" pairs (a DelimToken "." immediately followed by an
// IdentToken, outside of strings/at-rules/declaration blocks). It rewrites
// each occurrence in place and records the name mapping.
func extractWithParser(source []byte, suffix string) (map[string]string, string, error) {
	input := parse.NewInput(bytes.NewReader(source))
	tokenizer := css.NewLexer(input)

	classMap := make(map[string]string)
	var out bytes.Buffer
	pendingDot := false
	braceDepth := 0

	for {
		tt, data := tokenizer.Next()
		if tt == css.ErrorToken {
			if err := tokenizer.Err(); err != nil && err != io.EOF {
				return nil, "", fmt.Errorf("css tokenize: %w", err)
			}
			break
		}

		switch tt {
		case css.LeftBraceToken:
			braceDepth++
			pendingDot = false
		case css.RightBraceToken:
			if braceDepth > 0 {
				braceDepth--
			}
			pendingDot = false
		case css.DelimToken:
			// Only "." at the top level of a rule (outside a declaration
			// block) can start a class selector.
			if string(data) == "." && braceDepth == 0 {
				pendingDot = true
				continue
			}
			pendingDot = false
		case css.IdentToken:
			if pendingDot {
				name := string(data)
				scoped, ok := classMap[name]
				if !ok {
					scoped = name + suffix
					classMap[name] = scoped
				}
				out.WriteByte('.')
				out.WriteString(scoped)
				pendingDot = false
				continue
			}
		default:
			pendingDot = false
		}

		out.Write(data)
	}

	return classMap, out.String(), nil
}

// reClassSelector matches a class selector token outside of braces closely
// enough for the fallback path; it does not attempt to track nesting.
var reClassSelector = regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_-]*)`)

func extractWithRegex(source []byte, suffix string) (map[string]string, string) {
	classMap := make(map[string]string)
	text := string(source)
	// Don't rewrite inside declaration blocks: split on "{...}" bodies and
	// only rewrite the selector portions between them.
	var out strings.Builder
	depth := 0
	i := 0
	for i < len(text) {
		switch text[i] {
		case '{':
			depth++
			out.WriteByte(text[i])
			i++
			continue
		case '}':
			if depth > 0 {
				depth--
			}
			out.WriteByte(text[i])
			i++
			continue
		}
		if depth == 0 {
			if loc := reClassSelector.FindStringIndex(text[i:]); loc != nil && loc[0] == 0 {
				m := reClassSelector.FindStringSubmatch(text[i:])
				name := m[1]
				scoped, ok := classMap[name]
				if !ok {
					scoped = name + suffix
					classMap[name] = scoped
				}
				out.WriteByte('.')
				out.WriteString(scoped)
				i += len(m[0])
				continue
			}
		}
		out.WriteByte(text[i])
		i++
	}
	return classMap, out.String()
}
