// Package transform implements the Module Transformer (component C): it
// turns a source file into browser-ready ESM or in-process-executable CJS,
// with CSS Modules scoping, path-alias resolution, bare-import CDN
// rewriting, React Refresh injection, and a content-hash cache.
package transform

import "context"

// Format is the transform target ("esm" | "cjs").
type Format string

const (
	FormatESM Format = "esm"
	FormatCJS Format = "cjs"
)

// Options describes one transform request.
type Options struct {
	Loader          string // "jsx", "tsx", "js", "ts"
	Format          Format
	Target          string
	JSXAutomatic    bool
	JSXImportSource string
	Sourcefile      string
}

// Result is the transformer backend's output.
type Result struct {
	Code string
}

// Backend is the opaque JS/TS transformer. The default implementation
// (Esbuild) binds it to a real dependency; hosts may substitute another.
type Backend interface {
	Transform(ctx context.Context, code string, opts Options) (Result, error)
}
