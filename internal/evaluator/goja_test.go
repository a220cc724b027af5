package evaluator

import (
	"context"
	"testing"

	"github.com/dop251/goja"
)

func TestEvalLegacyDefaultExport(t *testing.T) {
	g := NewGoja()
	mod, err := g.Eval(context.Background(), Options{
		Code:     `module.exports = function(req, res) { res.end('ok'); }`,
		Filename: "/pages/api/hello.js",
	})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	fn, ok := mod.Default()
	if !ok {
		t.Fatalf("expected a default export")
	}
	if _, callable := goja.AssertFunction(fn); !callable {
		t.Fatalf("expected default export to be callable")
	}
}

func TestEvalWebStyleMethodExport(t *testing.T) {
	g := NewGoja()
	mod, err := g.Eval(context.Background(), Options{
		Code: `exports.GET = function(request) {
			return Response.json({ hello: 'world' });
		}`,
		Filename: "/app/api/hello/route.ts",
	})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	fn, ok := mod.Method("GET")
	if !ok {
		t.Fatalf("expected a GET export")
	}
	if _, ok := mod.Method("POST"); ok {
		t.Fatalf("did not expect a POST export")
	}

	req, err := mod.NewRequest("GET", "http://localhost/api/hello", map[string]string{"accept": "application/json"}, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	result, err := mod.Call(fn, req)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	resp, ok := mod.ReadResponse(result)
	if !ok {
		t.Fatalf("expected a Response value")
	}
	if resp.Status != 200 {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if resp.Headers["content-type"] != "application/json" {
		t.Errorf("Headers = %v, want content-type application/json", resp.Headers)
	}
	if string(resp.Body) != `{"hello":"world"}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestRequireUnwhitelistedFails(t *testing.T) {
	g := NewGoja()
	_, err := g.Eval(context.Background(), Options{
		Code: `const fs = require('fs');`,
	})
	if err == nil {
		t.Fatalf("expected require('fs') to fail with no whitelist entry")
	}
}

func TestRequireWhitelistedCryptoUUID(t *testing.T) {
	g := NewGoja()
	mod, err := g.Eval(context.Background(), Options{
		Code:    `exports.id = require('node:crypto').randomUUID();`,
		Require: DefaultWhitelist(),
	})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	v, ok := mod.Get("id")
	if !ok {
		t.Fatalf("expected id export")
	}
	if len(v.String()) != 36 {
		t.Errorf("randomUUID() = %q, want 36 chars", v.String())
	}
}
