package evaluator

import (
	"crypto/rand"
	"fmt"

	"github.com/dop251/goja"
)

// DefaultWhitelist is the built-in require() whitelist for handler
// execution; ids outside it fail. It is deliberately small: route/API
// handlers in a dev server rarely need more than a UUID source, and every
// addition here is more sandbox surface to reason about.
func DefaultWhitelist() map[string]BuiltinFactory {
	return map[string]BuiltinFactory{
		"node:crypto": cryptoBuiltin,
		"crypto":      cryptoBuiltin,
	}
}

func cryptoBuiltin(m *Module) (any, error) {
	rt := m.Runtime()
	obj := rt.NewObject()
	_ = obj.Set("randomUUID", func(goja.FunctionCall) goja.Value {
		return rt.ToValue(randomUUID())
	})
	return obj, nil
}

func randomUUID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}
