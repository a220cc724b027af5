package transform

import "testing"

func TestExtractCSSModuleScopesClassSelectors(t *testing.T) {
	css := []byte(`.title { color: red; }
.title.active { color: blue; }
.card .title { font-weight: bold; }
`)
	result := ExtractCSSModule(css, "/pages/index.module.css")

	if result.UsedFallback {
		t.Fatalf("expected the real parser to succeed, fell back to regex")
	}
	scoped, ok := result.ClassMap["title"]
	if !ok {
		t.Fatalf("expected a scoped name for 'title', got map %v", result.ClassMap)
	}
	if !contains(result.ScopedCSS, "."+scoped) {
		t.Errorf("expected scoped selector %q in output:\n%s", scoped, result.ScopedCSS)
	}
	if contains(result.ScopedCSS, ".title {") || contains(result.ScopedCSS, ".title.") {
		t.Errorf("expected original .title selector to be fully replaced:\n%s", result.ScopedCSS)
	}
	if _, ok := result.ClassMap["card"]; !ok {
		t.Errorf("expected 'card' class also extracted, got %v", result.ClassMap)
	}
}

func TestExtractCSSModuleConsistentAcrossRuns(t *testing.T) {
	css := []byte(`.button { padding: 4px; }`)
	r1 := ExtractCSSModule(css, "/pages/x.module.css")
	r2 := ExtractCSSModule(css, "/pages/x.module.css")
	if r1.ClassMap["button"] != r2.ClassMap["button"] {
		t.Fatalf("scoped class name should be stable for the same path: %q vs %q", r1.ClassMap["button"], r2.ClassMap["button"])
	}
}
