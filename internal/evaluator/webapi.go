package evaluator

import (
	"fmt"

	"github.com/dop251/goja"
)

// webAPIPolyfill gives handler code the minimal Headers/Request/Response
// surface app-router handlers expect. It is loaded into every module's
// runtime before the module body runs.
const webAPIPolyfill = `
class Headers {
  constructor(init) {
    this._map = {};
    if (init) {
      if (init instanceof Headers) {
        for (var k in init._map) this._map[k] = init._map[k];
      } else {
        for (var k in init) this._map[k.toLowerCase()] = String(init[k]);
      }
    }
  }
  get(name) { var v = this._map[name.toLowerCase()]; return v === undefined ? null : v; }
  set(name, value) { this._map[name.toLowerCase()] = String(value); }
  has(name) { return name.toLowerCase() in this._map; }
  delete(name) { delete this._map[name.toLowerCase()]; }
  entries() {
    var out = [];
    for (var k in this._map) out.push([k, this._map[k]]);
    return out;
  }
  forEach(fn) { for (var k in this._map) fn(this._map[k], k, this); }
}

class Request {
  constructor(url, init) {
    init = init || {};
    this.url = url;
    this.method = (init.method || 'GET').toUpperCase();
    this.headers = new Headers(init.headers);
    this._body = init.body === undefined ? null : init.body;
  }
  async text() { return this._body == null ? '' : String(this._body); }
  async json() { return JSON.parse(this._body == null ? 'null' : String(this._body)); }
}

class Response {
  constructor(body, init) {
    init = init || {};
    this.__isResponse = true;
    this.status = init.status || 200;
    this.statusText = init.statusText || '';
    this.headers = new Headers(init.headers);
    this._body = body === undefined ? null : body;
  }
  async text() { return this._body == null ? '' : String(this._body); }
  async json() { return JSON.parse(this._body == null ? 'null' : String(this._body)); }
  static json(obj, init) {
    init = Object.assign({}, init);
    init.headers = Object.assign({ 'content-type': 'application/json' }, init.headers);
    return new Response(JSON.stringify(obj), init);
  }
}
`

// NewRequest constructs a Request instance in this module's runtime
// bearing method, headers, URL (with search), and body.
func (m *Module) NewRequest(method, url string, headers map[string]string, body []byte) (goja.Value, error) {
	ctor := m.rt.Get("Request")
	if ctor == nil || goja.IsUndefined(ctor) {
		return nil, fmt.Errorf("evaluator: Request constructor unavailable")
	}
	init := m.rt.NewObject()
	_ = init.Set("method", method)
	headersObj := m.rt.NewObject()
	for k, v := range headers {
		_ = headersObj.Set(k, v)
	}
	_ = init.Set("headers", headersObj)
	if body != nil {
		_ = init.Set("body", string(body))
	}
	result, err := m.rt.New(ctor, m.rt.ToValue(url), init)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// WebResponse is the Go-side translation of a returned Response instance.
type WebResponse struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// ReadResponse extracts a WebResponse from a value the handler returned,
// reporting ok=false if v is not a Response instance. Rather than
// reimplementing JS's prototype-chain "instanceof" from Go, this checks
// the marker property the polyfill's Response constructor sets on every
// instance; "Response" is this package's own class, not arbitrary user
// code, so the marker is just as precise.
func (m *Module) ReadResponse(v goja.Value) (WebResponse, bool) {
	if v == nil {
		return WebResponse{}, false
	}
	obj, ok := tryToObject(m.rt, v)
	if !ok {
		return WebResponse{}, false
	}
	marker := obj.Get("__isResponse")
	if marker == nil || !marker.ToBoolean() {
		return WebResponse{}, false
	}

	status := 200
	if sv := obj.Get("status"); sv != nil && !goja.IsUndefined(sv) {
		status = int(sv.ToInteger())
	}
	headers := map[string]string{}
	if hv := obj.Get("headers"); hv != nil {
		if hobj, ok := tryToObject(m.rt, hv); ok {
			if entriesFn, ok := goja.AssertFunction(hobj.Get("entries")); ok {
				if res, err := entriesFn(hv); err == nil {
					if arr, ok := tryToObject(m.rt, res); ok {
						length := arr.Get("length").ToInteger()
						for i := int64(0); i < length; i++ {
							pair, ok := tryToObject(m.rt, arr.Get(fmt.Sprintf("%d", i)))
							if !ok {
								continue
							}
							headers[pair.Get("0").String()] = pair.Get("1").String()
						}
					}
				}
			}
		}
	}
	body := ""
	if bv := obj.Get("_body"); bv != nil && !goja.IsUndefined(bv) && !goja.IsNull(bv) {
		body = bv.String()
	}
	return WebResponse{Status: status, Headers: headers, Body: []byte(body)}, true
}

func tryToObject(rt *goja.Runtime, v goja.Value) (obj *goja.Object, ok bool) {
	defer func() {
		if recover() != nil {
			obj, ok = nil, false
		}
	}()
	o := v.ToObject(rt)
	return o, o != nil
}
