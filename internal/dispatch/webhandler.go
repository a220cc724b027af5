package dispatch

import (
	"context"
	"fmt"

	"github.com/dop251/goja"
	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/evaluator"
	"github.com/vango-dev/devserver/internal/routeresolve"
)

// handlerContextWrapperSrc builds the second argument app-router handlers
// receive: { params }. params is resolved already, nothing to await, but
// handlers written for frameworks where segment resolution can be async
// expect a promise, so it's wrapped with Promise.resolve rather than
// handed over as a plain object.
const handlerContextWrapperSrc = `
(function(params) {
  return { params: Promise.resolve(params) };
})
`

func buildHandlerContext(rt *goja.Runtime, params routeresolve.Params) (goja.Value, error) {
	wrapperFn, err := rt.RunString(handlerContextWrapperSrc)
	if err != nil {
		return nil, err
	}
	callable, ok := goja.AssertFunction(wrapperFn)
	if !ok {
		return nil, fmt.Errorf("dispatch: handler context wrapper did not evaluate to a function")
	}
	return callable(goja.Undefined(), rt.ToValue(paramsToObject(rt, params)))
}

// executeWebHandler runs an app-mode "route.<ext>" handler: the module
// exports one function per HTTP method, each taking a Fetch-API-shaped
// Request and returning (or resolving to) a Response.
func (d *Dispatcher) executeWebHandler(ctx context.Context, cb StreamCallbacks, req Request, route *routeresolve.Route) {
	out, err := d.transformer.CJS(ctx, route.HandlerFile)
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E220").Wrap(err))
		return
	}
	if out.TransformErr != nil {
		d.errorJSON(cb, 500, out.TransformErr)
		return
	}

	mod, err := d.evaluator.Eval(ctx, evaluator.Options{
		Code:     out.Code,
		Filename: route.HandlerFile,
		Env:      d.cfg.Env(),
		Require:  evaluator.DefaultWhitelist(),
	})
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(route.HandlerFile))
		return
	}

	fn, ok := mod.Method(req.Method)
	if !ok {
		d.errorJSON(cb, 405, errors.Newf(errors.CategoryRoute, "Method %s not allowed", req.Method).WithDetail(route.HandlerFile))
		return
	}

	webReq, err := mod.NewRequest(req.Method, req.URL, req.Headers, req.Body)
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err))
		return
	}

	handlerCtx, err := buildHandlerContext(mod.Runtime(), route.Params)
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(route.HandlerFile))
		return
	}

	result, err := mod.Call(fn, webReq, handlerCtx)
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(route.HandlerFile))
		return
	}

	resp, ok := mod.ReadResponse(result)
	if !ok {
		// Not a Response instance: plain objects are JSON-encoded, anything
		// else is serialized in its string form, both with status 200.
		if obj, isObj := result.(*goja.Object); isObj && !isJSPrimitiveWrapper(obj) {
			body, err := stringifyJSON(mod.Runtime(), result)
			if err != nil {
				d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(route.HandlerFile))
				return
			}
			cb.OnStart(200, "OK", map[string]string{"Content-Type": "application/json; charset=utf-8"})
			cb.OnChunk([]byte(body))
			cb.OnEnd()
			return
		}
		cb.OnStart(200, "OK", map[string]string{"Content-Type": "text/plain; charset=utf-8"})
		if result != nil && !goja.IsUndefined(result) && !goja.IsNull(result) {
			cb.OnChunk([]byte(result.String()))
		}
		cb.OnEnd()
		return
	}

	status := resp.Status
	if status == 0 {
		status = 200
	}
	headers := resp.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	cb.OnStart(status, statusText(status), headers)
	cb.OnChunk(resp.Body)
	cb.OnEnd()
}
