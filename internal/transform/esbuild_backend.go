package transform

import (
	"context"
	"fmt"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild binds Backend to esbuild's public Transform API; nothing beyond
// field mapping is needed.
type Esbuild struct{}

// NewEsbuildBackend constructs the default transformer backend.
func NewEsbuildBackend() *Esbuild {
	return &Esbuild{}
}

func (Esbuild) Transform(ctx context.Context, code string, opts Options) (Result, error) {
	loader, ok := loaderFor(opts.Loader)
	if !ok {
		return Result{}, fmt.Errorf("transform: unsupported loader %q", opts.Loader)
	}

	format := api.FormatESModule
	if opts.Format == FormatCJS {
		format = api.FormatCommonJS
	}

	transformOpts := api.TransformOptions{
		Loader:     loader,
		Format:     format,
		Target:     api.ESNext,
		Sourcefile: opts.Sourcefile,
		LogLevel:   api.LogLevelSilent,
	}
	if opts.JSXAutomatic {
		transformOpts.JSX = api.JSXAutomatic
		transformOpts.JSXImportSource = opts.JSXImportSource
	}

	result := api.Transform(code, transformOpts)
	if len(result.Errors) > 0 {
		return Result{}, fmt.Errorf("transform: %s", result.Errors[0].Text)
	}
	return Result{Code: string(result.Code)}, nil
}

func loaderFor(name string) (api.Loader, bool) {
	switch name {
	case "jsx":
		return api.LoaderJSX, true
	case "tsx":
		return api.LoaderTSX, true
	case "ts":
		return api.LoaderTS, true
	case "js", "mjs", "cjs":
		return api.LoaderJS, true
	case "json":
		return api.LoaderJSON, true
	default:
		return 0, false
	}
}
