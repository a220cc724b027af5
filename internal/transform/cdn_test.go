package transform

import (
	"strings"
	"testing"
)

func TestRewriteBareImportsLeavesOrdinaryStringsAlone(t *testing.T) {
	src := `const msg = "Please migrate from 'oldpkg' to 'newpkg'";
import React from "react";
`
	out := rewriteBareImportsToCDN(src)
	if !strings.Contains(out, `"Please migrate from 'oldpkg' to 'newpkg'"`) {
		t.Errorf("ordinary string was corrupted:\n%s", out)
	}
	if !strings.Contains(out, `"https://esm.sh/react"`) {
		t.Errorf("expected react import redirected, got:\n%s", out)
	}
}

func TestRewriteBareImportsLeavesCommentsAlone(t *testing.T) {
	src := `// import fake from "left-pad"
/* const x = import("lodash") */
import real from "lodash";
`
	out := rewriteBareImportsToCDN(src)
	if !strings.Contains(out, `// import fake from "left-pad"`) {
		t.Errorf("line comment was rewritten:\n%s", out)
	}
	if !strings.Contains(out, `/* const x = import("lodash") */`) {
		t.Errorf("block comment was rewritten:\n%s", out)
	}
	if strings.Count(out, "https://esm.sh/") != 1 {
		t.Errorf("expected exactly one CDN rewrite, got:\n%s", out)
	}
}

func TestRewriteBareImportsGrammarPositions(t *testing.T) {
	src := `import a from "alpha";
export { b } from "beta";
export const keep = "gamma";
function load() { return import("delta"); }
import "./relative.js";
import Link from "next/link";
`
	out := rewriteBareImportsToCDN(src)

	for _, want := range []string{
		`"https://esm.sh/alpha"`,
		`"https://esm.sh/beta"`,
		`"https://esm.sh/delta"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output:\n%s", want, out)
		}
	}
	if !strings.Contains(out, `export const keep = "gamma";`) {
		t.Errorf("non-specifier export string was rewritten:\n%s", out)
	}
	if !strings.Contains(out, `"./relative.js"`) {
		t.Errorf("relative specifier must stay untouched:\n%s", out)
	}
	if !strings.Contains(out, `"next/link"`) {
		t.Errorf("reserved specifier must stay untouched:\n%s", out)
	}
}

func TestRewriteBareImportsDynamicNonLiteralUntouched(t *testing.T) {
	src := `function load(name) { return import(name); }`
	out := rewriteBareImportsToCDN(src)
	if out != src {
		t.Errorf("dynamic import with a non-literal argument must pass through, got:\n%s", out)
	}
}
