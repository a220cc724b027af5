// Package errors provides structured, actionable error values for the dev
// server core.
//
// The package implements the fault taxonomy from the error-handling design:
// every failure that can occur while resolving a route, transforming a
// module, or executing a request handler carries a stable code, a category,
// and (where the failure traces back to a source file) a location inside
// the virtual filesystem.
//
// # Categories
//
//   - route: route resolution failures (not found, ambiguous match)
//   - transform: module transform failures (parser error, unsupported loader)
//   - handler: request handler failures (thrown error, bad export, timeout)
//   - config: configuration parse failures
//   - watch: HMR watcher failures
//
// # Usage
//
//	err := errors.New("E200").
//	    WithDetail("no page.tsx or route.tsx under /app/users/[id]").
//	    WithSuggestion("add a page.tsx file or check the dynamic segment name")
//
//	fmt.Println(err.Format())
package errors
