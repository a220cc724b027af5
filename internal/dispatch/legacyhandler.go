package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/vango-dev/devserver/internal/errors"
	"github.com/vango-dev/devserver/internal/evaluator"
	"github.com/vango-dev/devserver/internal/routeresolve"
)

// handlerTimeout bounds both a stuck handler invocation and the grace
// window after it resolves without ending the response. A var, not a
// const, so tests can shrink it rather than actually waiting 30s.
var handlerTimeout = 30 * time.Second

// resSinkWrapperSrc gives the Go-backed sink object a live "headersSent"
// getter using a plain ES5 accessor property, rather than guessing at a
// low-level goja property-descriptor API: Object.create with a property
// descriptor is ordinary JS, evaluated the same way webAPIPolyfill is.
const resSinkWrapperSrc = `
(function(sink) {
  return Object.create(sink, {
    headersSent: { get: function() { return sink.__started(); }, enumerable: true }
  });
})
`

// legacyResponseSink backs the Node-style "res" object legacy handlers
// receive: status/setHeader/getHeader/write/json/send/end/redirect/
// headersSent, forwarding every write straight to the dispatcher's stream
// callbacks as it happens, rather than buffering.
type legacyResponseSink struct {
	cb StreamCallbacks

	// mu guards every field below: the handler invocation runs on its own
	// goroutine (so a stuck handler can't wedge handlerTimeout), while the
	// dispatcher goroutine concurrently inspects/ends the sink once that
	// timeout fires.
	mu      sync.Mutex
	status  int
	headers map[string]string
	started bool
	ended   bool
	endOnce sync.Once
	done    chan struct{}
}

func newLegacyResponseSink(cb StreamCallbacks) *legacyResponseSink {
	return &legacyResponseSink{cb: cb, status: 200, headers: map[string]string{}, done: make(chan struct{})}
}

// isEnded reports whether end has been called; the dispatcher consults it
// once the handler invocation resolves.
func (s *legacyResponseSink) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

func (s *legacyResponseSink) isStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *legacyResponseSink) setStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.status = code
	}
}

func (s *legacyResponseSink) setHeader(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		s.headers[key] = value
	}
}

func (s *legacyResponseSink) getHeader(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.headers[key]
	return v, ok
}

// waitForEnd blocks until end is called or timeout elapses, covering a
// response whose asynchronous completion lands after the handler
// invocation itself has already resolved.
func (s *legacyResponseSink) waitForEnd(timeout time.Duration) bool {
	select {
	case <-s.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *legacyResponseSink) ensureStarted() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	status, headers := s.status, s.headers
	s.mu.Unlock()
	s.cb.OnStart(status, statusText(status), headers)
}

func (s *legacyResponseSink) write(chunk []byte) {
	s.ensureStarted()
	if len(chunk) > 0 {
		s.cb.OnChunk(chunk)
	}
}

// end finishes the response with a final chunk, exactly once: both the
// handler's own res.end()/json()/send() and the dispatcher's timeout path
// (forceEnd) may race to close it out, so the actual work runs under
// endOnce regardless of which caller wins.
func (s *legacyResponseSink) end(chunk []byte) {
	s.endOnce.Do(func() {
		s.write(chunk)
		s.cb.OnEnd()
		s.mu.Lock()
		s.ended = true
		s.mu.Unlock()
		close(s.done)
	})
}

// wrapResponseSink builds the goja "res" value: a plain object whose
// methods close over sink, wrapped in a small JS shim that adds a live
// headersSent getter.
func wrapResponseSink(rt *goja.Runtime, sink *legacyResponseSink) (goja.Value, error) {
	obj := rt.NewObject()

	_ = obj.Set("status", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			sink.setStatus(int(call.Arguments[0].ToInteger()))
		}
		return rt.ToValue(obj)
	})

	_ = obj.Set("setHeader", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) >= 2 {
			sink.setHeader(call.Arguments[0].String(), call.Arguments[1].String())
		}
		return goja.Undefined()
	})

	_ = obj.Set("getHeader", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Undefined()
		}
		v, ok := sink.getHeader(call.Arguments[0].String())
		if !ok {
			return goja.Undefined()
		}
		return rt.ToValue(v)
	})

	_ = obj.Set("write", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 {
			sink.write([]byte(call.Arguments[0].String()))
		}
		return rt.ToValue(true)
	})

	_ = obj.Set("json", func(call goja.FunctionCall) goja.Value {
		sink.setHeader("content-type", "application/json; charset=utf-8")
		body := "null"
		if len(call.Arguments) > 0 {
			if s, err := stringifyJSON(rt, call.Arguments[0]); err == nil {
				body = s
			}
		}
		sink.end([]byte(body))
		return goja.Undefined()
	})

	_ = obj.Set("send", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			sink.end(nil)
			return goja.Undefined()
		}
		arg := call.Arguments[0]
		if o, ok := arg.(*goja.Object); ok && !isJSPrimitiveWrapper(o) {
			sink.setHeader("content-type", "application/json; charset=utf-8")
			body, err := stringifyJSON(rt, arg)
			if err != nil {
				body = "null"
			}
			sink.end([]byte(body))
			return goja.Undefined()
		}
		sink.end([]byte(arg.String()))
		return goja.Undefined()
	})

	_ = obj.Set("end", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) > 0 && !goja.IsUndefined(call.Arguments[0]) {
			sink.end([]byte(call.Arguments[0].String()))
		} else {
			sink.end(nil)
		}
		return goja.Undefined()
	})

	_ = obj.Set("redirect", func(call goja.FunctionCall) goja.Value {
		status := 302
		var target string
		switch len(call.Arguments) {
		case 1:
			target = call.Arguments[0].String()
		case 2:
			status = int(call.Arguments[0].ToInteger())
			target = call.Arguments[1].String()
		}
		sink.setStatus(status)
		sink.setHeader("location", target)
		sink.end(nil)
		return goja.Undefined()
	})

	_ = obj.Set("__started", func(call goja.FunctionCall) goja.Value {
		return rt.ToValue(sink.isStarted())
	})

	wrapperFn, err := rt.RunString(resSinkWrapperSrc)
	if err != nil {
		return nil, err
	}
	callable, ok := goja.AssertFunction(wrapperFn)
	if !ok {
		return nil, fmt.Errorf("dispatch: res wrapper did not evaluate to a function")
	}
	return callable(goja.Undefined(), rt.ToValue(obj))
}

func isJSPrimitiveWrapper(o *goja.Object) bool {
	switch o.ClassName() {
	case "String", "Number", "Boolean":
		return true
	default:
		return false
	}
}

func stringifyJSON(rt *goja.Runtime, v goja.Value) (string, error) {
	obj, ok := rt.GlobalObject().Get("JSON").(*goja.Object)
	if !ok {
		return "", fmt.Errorf("dispatch: JSON global unavailable")
	}
	stringify, ok := goja.AssertFunction(obj.Get("stringify"))
	if !ok {
		return "", fmt.Errorf("dispatch: JSON.stringify unavailable")
	}
	result, err := stringify(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	if goja.IsUndefined(result) {
		return "null", nil
	}
	return result.String(), nil
}

// buildLegacyRequest constructs the mock "req" legacy handlers receive:
// URL-parsed query, parsed cookies, JSON-parsed body when the content-type
// says so, plus method/headers/params.
func buildLegacyRequest(rt *goja.Runtime, req Request, params routeresolve.Params) goja.Value {
	obj := rt.NewObject()
	_ = obj.Set("method", req.Method)
	_ = obj.Set("url", req.URL)

	headersObj := rt.NewObject()
	for k, v := range req.Headers {
		_ = headersObj.Set(strings.ToLower(k), v)
	}
	_ = obj.Set("headers", headersObj)

	queryObj := rt.NewObject()
	if u, err := url.Parse(req.URL); err == nil {
		for k, values := range u.Query() {
			if len(values) == 1 {
				_ = queryObj.Set(k, values[0])
			} else {
				_ = queryObj.Set(k, values)
			}
		}
	}
	cookiesObj := rt.NewObject()
	if cookieHeader := headerLookup(req.Headers, "cookie"); cookieHeader != "" {
		header := http.Header{}
		header.Set("Cookie", cookieHeader)
		dummy := http.Request{Header: header}
		for _, c := range dummy.Cookies() {
			_ = cookiesObj.Set(c.Name, c.Value)
		}
	}
	_ = obj.Set("cookies", cookiesObj)

	_ = obj.Set("query", mergeParamsIntoQuery(rt, queryObj, params))
	_ = obj.Set("params", paramsToObject(rt, params))

	contentType := headerLookup(req.Headers, "content-type")
	if len(req.Body) > 0 && strings.Contains(contentType, "application/json") {
		var parsed any
		if json.Unmarshal(req.Body, &parsed) == nil {
			_ = obj.Set("body", rt.ToValue(parsed))
		} else {
			_ = obj.Set("body", string(req.Body))
		}
	} else if len(req.Body) > 0 {
		_ = obj.Set("body", string(req.Body))
	} else {
		_ = obj.Set("body", goja.Undefined())
	}

	return obj
}

// forceEnd marks the sink ended without writing further bytes: used when
// the dispatcher itself must close out a stream the handler will not
// finish (a thrown error after headers were already sent, or a handler
// timeout).
func (s *legacyResponseSink) forceEnd() {
	s.endOnce.Do(func() {
		s.cb.OnEnd()
		s.mu.Lock()
		s.ended = true
		s.mu.Unlock()
		close(s.done)
	})
}

// paramsToObject converts resolved dynamic-segment values into a plain JS
// object, shared between the legacy req.params and the app-router handler
// context's params.
func paramsToObject(rt *goja.Runtime, params routeresolve.Params) *goja.Object {
	obj := rt.NewObject()
	for name, v := range params {
		if v.IsList {
			_ = obj.Set(name, v.List)
		} else {
			_ = obj.Set(name, v.Single)
		}
	}
	return obj
}

// mergeParamsIntoQuery folds dynamic route params into req.query the way
// Next.js's legacy API routes do, without overwriting an explicit query
// string value of the same name.
func mergeParamsIntoQuery(rt *goja.Runtime, queryObj *goja.Object, params routeresolve.Params) *goja.Object {
	for name, v := range params {
		if existing := queryObj.Get(name); existing != nil && !goja.IsUndefined(existing) {
			continue
		}
		if v.IsList {
			_ = queryObj.Set(name, v.List)
		} else {
			_ = queryObj.Set(name, v.Single)
		}
	}
	return queryObj
}

func headerLookup(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// executeLegacyHandler runs a pages-mode "/api/*" handler: a CJS module
// default-exporting a function(req, res) in the Node http-handler style.
func (d *Dispatcher) executeLegacyHandler(ctx context.Context, cb StreamCallbacks, req Request, handlerFile string, params routeresolve.Params) {
	out, err := d.transformer.CJS(ctx, handlerFile)
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
		Filename: handlerFile,
		Env:      d.cfg.Env(),
		Require:  evaluator.DefaultWhitelist(),
	})
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(handlerFile))
		return
	}

	fn, ok := mod.Default()
	if !ok {
		d.errorJSON(cb, 404, errors.New("E242").WithDetail(handlerFile))
		return
	}

	rt := mod.Runtime()
	sink := newLegacyResponseSink(cb)
	resObj, err := wrapResponseSink(rt, sink)
	if err != nil {
		d.errorJSON(cb, 500, errors.New("E240").Wrap(err))
		return
	}
	reqObj := buildLegacyRequest(rt, req, params)

	// mod.Call runs on its own goroutine so a handler that never returns
	// (an infinite loop, a promise that never settles) cannot wedge the
	// dispatcher past handlerTimeout. No attempt is made to interrupt the
	// handler: the goroutine is left running, unobserved, if the select
	// below times out first.
	callDone := make(chan error, 1)
	go func() {
		_, err := mod.Call(fn, reqObj, resObj)
		callDone <- err
	}()

	select {
	case err := <-callDone:
		if err != nil {
			if sink.isStarted() {
				cb.OnChunk([]byte(fmt.Sprintf("\n[handler error: %s]", err)))
				sink.forceEnd()
				return
			}
			d.errorJSON(cb, 500, errors.New("E240").Wrap(err).WithDetail(handlerFile))
			return
		}
		if sink.isEnded() {
			return
		}
		// The invocation resolved without calling end; give it the
		// remainder of the timeout window in case an asynchronous
		// completion still lands.
		if sink.waitForEnd(handlerTimeout) {
			return
		}
	case <-time.After(handlerTimeout):
	}

	// Timed out. Headers may already be on the wire (invariant: OnStart
	// fires at most once, so a late 500 JSON body can't be substituted in
	// that case); either way, close out the stream and surface E241.
	if sink.isStarted() {
		sink.forceEnd()
		return
	}
	d.errorJSON(cb, 500, errors.New("E241").WithDetail(handlerFile))
}
