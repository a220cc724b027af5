package transform

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/vango-dev/devserver/internal/config"
	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/vfs"
)

// jsxImportSource is the automatic-JSX runtime import target.
const jsxImportSource = "react"

// Output is one transform's result, carrying the cache-hit marker the
// dispatcher surfaces as the "X-Cache" response header.
type Output struct {
	Code     string
	CacheHit bool

	// TransformErr is set, and Code instead holds a readable error module
	// that logs the failure to the console, when the backend failed.
	TransformErr *errors.DevError
}

// Transformer implements the Module Transformer (component C): it produces
// browser ESM or in-process-executable CJS from one source file, with
// content-hash caching, CSS Modules scoping, alias resolution, bare-import
// CDN redirection, and React Refresh injection.
type Transformer struct {
	fsys    vfs.VFS
	cfg     *config.Config
	backend Backend
	cache   *cache
	logger  *slog.Logger
}

// New constructs a Transformer. backend may be nil (no transformer
// available in the host environment): sources other than .jsx/.tsx (.ts
// included) then still pass through CSS stripping and alias rewriting
// verbatim, while .jsx/.tsx sources report a TransformErr output.
func New(fsys vfs.VFS, cfg *config.Config, backend Backend, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{fsys: fsys, cfg: cfg, backend: backend, cache: newCache(), logger: logger}
}

// ESM transforms filePath for the browser client router. virtualPrefix is
// prepended to alias-rewritten import URLs (the server's virtual-origin
// prefix, e.g. "/__virtual__/4821").
func (t *Transformer) ESM(ctx context.Context, filePath, virtualPrefix string) (Output, error) {
	source, err := t.fsys.ReadFileSync(filePath)
	if err != nil {
		return Output{}, err
	}
	hash := contentHash(source)

	if entry, ok := t.cache.get(filePath, FormatESM); ok && entry.SourceHash == hash {
		t.logger.Debug("transform cache hit", "path", filePath, "format", "esm")
		return Output{Code: entry.Output, CacheHit: true}, nil
	}
	t.logger.Debug("transform cache miss", "path", filePath, "format", "esm")

	code := stripCSSImports(string(source), filePath, t.fsys, t.cfg)
	code = rewriteAliases(code, t.cfg, virtualPrefix)

	loader, needsTransform := loaderForPath(filePath)
	isJSX := loader == "jsx" || loader == "tsx"

	if t.backend == nil {
		if isJSX {
			return t.transformErrorOutput(filePath, FormatESM, errors.New("E220").
				WithDetail("no transformer backend is configured; JSX/TSX sources cannot pass through untransformed")), nil
		}
		t.cache.put(filePath, FormatESM, CacheEntry{SourceHash: hash, Output: code})
		return Output{Code: code}, nil
	}

	if needsTransform {
		result, err := t.backend.Transform(ctx, code, Options{
			Loader:          loader,
			Format:          FormatESM,
			Target:          "esnext",
			JSXAutomatic:    isJSX,
			JSXImportSource: jsxImportSource,
			Sourcefile:      filePath,
		})
		if err != nil {
			t.logger.Error("transform failed", "path", filePath, "error", err)
			return t.transformErrorOutput(filePath, FormatESM, errors.New("E220").Wrap(err)), nil
		}
		code = result.Code
	}

	code = rewriteBareImportsToCDN(code)
	if isJSX {
		code = injectReactRefresh(code, filePath)
	}

	t.cache.put(filePath, FormatESM, CacheEntry{SourceHash: hash, Output: code})
	return Output{Code: code}, nil
}

// CJS transforms filePath for in-process request handler execution: same
// alias resolution as ESM, CJS target, no React Refresh, no CDN rewrite
// (the evaluator sandbox provides its own require whitelist instead). CSS
// stripping is skipped here: the handler modules this path serves
// (route.ts/api handlers) are server-only code with no stylesheets.
func (t *Transformer) CJS(ctx context.Context, filePath string) (Output, error) {
	source, err := t.fsys.ReadFileSync(filePath)
	if err != nil {
		return Output{}, err
	}
	hash := contentHash(source)

	if entry, ok := t.cache.get(filePath, FormatCJS); ok && entry.SourceHash == hash {
		t.logger.Debug("transform cache hit", "path", filePath, "format", "cjs")
		return Output{Code: entry.Output, CacheHit: true}, nil
	}
	t.logger.Debug("transform cache miss", "path", filePath, "format", "cjs")

	code := rewriteAliases(string(source), t.cfg, "")

	loader, needsTransform := loaderForPath(filePath)
	isJSX := loader == "jsx" || loader == "tsx"

	if t.backend == nil {
		if isJSX {
			return t.transformErrorOutput(filePath, FormatCJS, errors.New("E220").
				WithDetail("no transformer backend is configured; JSX/TSX sources cannot pass through untransformed")), nil
		}
		t.cache.put(filePath, FormatCJS, CacheEntry{SourceHash: hash, Output: code})
		return Output{Code: code}, nil
	}

	if needsTransform {
		result, err := t.backend.Transform(ctx, code, Options{
			Loader:          loader,
			Format:          FormatCJS,
			Target:          "es2020",
			JSXAutomatic:    isJSX,
			JSXImportSource: jsxImportSource,
			Sourcefile:      filePath,
		})
		if err != nil {
			t.logger.Error("transform failed", "path", filePath, "error", err)
			return t.transformErrorOutput(filePath, FormatCJS, errors.New("E220").Wrap(err)), nil
		}
		code = result.Code
	}

	t.cache.put(filePath, FormatCJS, CacheEntry{SourceHash: hash, Output: code})
	return Output{Code: code}, nil
}

// transformErrorOutput builds a syntactically valid JS module that logs
// the error to the console instead of throwing, so the importer still
// gets a module and the sandboxed iframe doesn't crash.
func (t *Transformer) transformErrorOutput(filePath string, format Format, de *errors.DevError) Output {
	msg := quoteJS("[transform error] " + filePath + ": " + de.Message)
	var body string
	if format == FormatCJS {
		body = "console.error(" + msg + ");\nmodule.exports = undefined;\n"
	} else {
		body = "console.error(" + msg + ");\nexport default undefined;\n"
	}
	return Output{Code: body, TransformErr: de}
}

// loaderForPath derives the esbuild loader name from a file extension. The
// second return reports whether the extension needs the transform backend
// at all (plain ".js"/".mjs" pass-through candidates still route through
// the backend for consistency, but non-JS/TS/JSX extensions do not).
func loaderForPath(filePath string) (loader string, needsTransform bool) {
	ext := strings.ToLower(path.Ext(filePath))
	switch ext {
	case ".jsx":
		return "jsx", true
	case ".tsx":
		return "tsx", true
	case ".ts":
		return "ts", true
	case ".js", ".mjs", ".cjs":
		return "js", true
	default:
		return "", false
	}
}
