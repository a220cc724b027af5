// Package evaluator is the module-evaluation capability behind request
// handler execution: an abstract interface that takes transformed CJS
// text plus a context (require whitelist, env, module object) and invokes
// it, so the request dispatcher owns only the evaluation contract, not
// the mechanism. The default implementation (Goja) embeds a JS
// interpreter in-process.
package evaluator

import "context"

// Options configures one module evaluation.
type Options struct {
	// Code is the transformed CJS source to execute.
	Code string

	// Filename is used for diagnostics only.
	Filename string

	// Env is the full (not public-filtered) environment map exposed as
	// process.env.
	Env map[string]string

	// Require lists the built-in module ids this handler invocation may
	// require; any other id fails.
	Require map[string]BuiltinFactory
}

// BuiltinFactory constructs the exports object for one whitelisted
// built-in, given the live Module the require call is happening inside.
type BuiltinFactory func(m *Module) (any, error)

// Evaluator is the pluggable capability object. The dispatcher depends
// only on this interface.
type Evaluator interface {
	// Eval executes opts.Code once in a fresh module context (a module
	// object, an exports object, a require function, and process.env) and
	// returns the resulting Module for the caller to inspect and invoke
	// exports on.
	Eval(ctx context.Context, opts Options) (*Module, error)
}
