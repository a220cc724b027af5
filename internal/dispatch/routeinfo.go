package dispatch

import (
	"fmt"
	"net/url"
	"strings"
)

// serveRouteInfo answers "/_next/route-info?pathname=..." with the params
// and found/not-found status the client router's fetchParams() uses to
// populate window.__NEXT_ROUTE_PARAMS__ before rendering a navigation.
func (d *Dispatcher) serveRouteInfo(cb StreamCallbacks, rawQuery string) {
	values, _ := url.ParseQuery(rawQuery)
	pathname := values.Get("pathname")
	if pathname == "" {
		pathname = "/"
	}

	route, found := d.resolver.ResolvePage(pathname)

	var b strings.Builder
	b.WriteString(`{"found":`)
	if found {
		b.WriteString("true")
	} else {
		b.WriteString("false")
	}
	b.WriteString(`,"params":{`)
	if found {
		first := true
		for name, v := range route.Params {
			if !first {
				b.WriteString(",")
			}
			first = false
			fmt.Fprintf(&b, "%q:", name)
			if v.IsList {
				b.WriteString("[")
				for i, seg := range v.List {
					if i > 0 {
						b.WriteString(",")
					}
					fmt.Fprintf(&b, "%q", seg)
				}
				b.WriteString("]")
			} else {
				fmt.Fprintf(&b, "%q", v.Single)
			}
		}
	}
	b.WriteString("}}")

	cb.OnStart(200, "OK", map[string]string{"Content-Type": "application/json; charset=utf-8"})
	cb.OnChunk([]byte(b.String()))
	cb.OnEnd()
}
