package evaluator

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// Goja implements Evaluator by embedding a goja JS runtime per call. Each
// Eval gets a fresh *goja.Runtime: goja runtimes are not safe for
// concurrent use, and handler invocations share no VM state, so one
// runtime per request keeps that guarantee trivially true.
type Goja struct{}

// NewGoja constructs the default Evaluator.
func NewGoja() *Goja { return &Goja{} }

// Module is a single evaluated CJS module: its runtime, its module.exports
// value, and convenience accessors the dispatcher uses to find and invoke
// handler exports.
type Module struct {
	rt       *goja.Runtime
	Exports  goja.Value
	Filename string
}

// Runtime returns the module's goja runtime, for callers (the legacy and
// web-style handler executors) that need to build request/response
// objects natively in Go.
func (m *Module) Runtime() *goja.Runtime { return m.rt }

func (g *Goja) Eval(ctx context.Context, opts Options) (*Module, error) {
	rt := goja.New()
	rt.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	if err := rt.Set("console", consoleShim(rt)); err != nil {
		return nil, err
	}
	if _, err := rt.RunString(webAPIPolyfill); err != nil {
		return nil, fmt.Errorf("evaluator: loading web API polyfill: %w", err)
	}

	exportsObj := rt.NewObject()
	moduleObj := rt.NewObject()
	_ = moduleObj.Set("exports", exportsObj)
	if err := rt.Set("exports", exportsObj); err != nil {
		return nil, err
	}
	if err := rt.Set("module", moduleObj); err != nil {
		return nil, err
	}

	processObj := rt.NewObject()
	envObj := rt.NewObject()
	for k, v := range opts.Env {
		_ = envObj.Set(k, v)
	}
	_ = processObj.Set("env", envObj)
	if err := rt.Set("process", processObj); err != nil {
		return nil, err
	}

	m := &Module{rt: rt, Filename: opts.Filename}
	if err := rt.Set("require", rt.ToValue(requireFunc(m, opts.Require))); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("evaluator: panic executing module: %v", r)
			}
		}()
		_, err := rt.RunString(opts.Code)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		rt.Interrupt("evaluation timed out")
		return nil, ctx.Err()
	case <-time.After(30 * time.Second):
		rt.Interrupt("evaluation timed out")
		return nil, fmt.Errorf("evaluator: execution exceeded 30s")
	}

	m.Exports = moduleObj.Get("exports")
	return m, nil
}

// requireFunc builds the require() implementation installed in the module
// scope: only ids present in whitelist resolve; everything else throws.
func requireFunc(m *Module, whitelist map[string]BuiltinFactory) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		factory, ok := whitelist[id]
		if !ok {
			panic(m.rt.NewTypeError("require target not whitelisted: %s", id))
		}
		exports, err := factory(m)
		if err != nil {
			panic(m.rt.NewGoError(err))
		}
		return m.rt.ToValue(exports)
	}
}

// consoleShim gives handler code a console.log/warn/error that writes
// nowhere: handler stdout is not part of the response contract.
func consoleShim(rt *goja.Runtime) *goja.Object {
	obj := rt.NewObject()
	noop := rt.ToValue(func(goja.FunctionCall) goja.Value { return goja.Undefined() })
	for _, name := range []string{"log", "warn", "error", "info", "debug"} {
		_ = obj.Set(name, noop)
	}
	return obj
}

// Get looks up a named property on Exports, tolerating Exports being a
// primitive or function (goja panics turning those into TypeErrors are
// recovered and treated as "not found").
func (m *Module) Get(name string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	obj := m.Exports.ToObject(m.rt)
	val := obj.Get(name)
	if val == nil || goja.IsUndefined(val) {
		return nil, false
	}
	return val, true
}

// Default resolves module.exports.default, unwrapping one extra level if
// that value itself has a .default (ESM interop wrapping). Falls back to
// Exports itself when it is directly callable (module.exports = handler).
func (m *Module) Default() (goja.Value, bool) {
	if def, ok := m.Get("default"); ok {
		if inner, ok := tryGetProp(m.rt, def, "default"); ok {
			return inner, true
		}
		return def, true
	}
	if _, ok := goja.AssertFunction(m.Exports); ok {
		return m.Exports, true
	}
	return nil, false
}

// Method looks up the export matching an HTTP method name, trying the
// exact case first, then upper and lower case.
func (m *Module) Method(httpMethod string) (goja.Value, bool) {
	for _, name := range []string{httpMethod, upper(httpMethod), lower(httpMethod)} {
		if v, ok := m.Get(name); ok {
			if _, callable := goja.AssertFunction(v); callable {
				return v, true
			}
		}
	}
	return nil, false
}

// Call invokes a callable export, awaiting the result if it is a Promise.
// goja settles promises synchronously as soon as no pending host call is
// outstanding, which is always true here: every "async" operation this
// sandbox exposes to handler code is itself synchronous Go code, so by the
// time Call returns, any Promise the handler returned has already settled.
func (m *Module) Call(fn goja.Value, args ...goja.Value) (goja.Value, error) {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, fmt.Errorf("evaluator: value is not callable")
	}
	result, err := callable(goja.Undefined(), args...)
	if err != nil {
		return nil, err
	}
	return m.awaitIfPromise(result)
}

func (m *Module) awaitIfPromise(v goja.Value) (goja.Value, error) {
	promise, ok := v.Export().(*goja.Promise)
	if !ok {
		return v, nil
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return promise.Result(), nil
	case goja.PromiseStateRejected:
		return nil, fmt.Errorf("evaluator: promise rejected: %v", promise.Result())
	default:
		return nil, fmt.Errorf("evaluator: promise did not settle synchronously")
	}
}

func tryGetProp(rt *goja.Runtime, v goja.Value, name string) (result goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			result, ok = nil, false
		}
	}()
	obj := v.ToObject(rt)
	val := obj.Get(name)
	if val == nil || goja.IsUndefined(val) {
		return nil, false
	}
	return val, true
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}
