// Package binding resolves declarative node bindings against a runtime
// context.
//
// A binding maps a prop name to a path into the request's runtime context:
//
//	bindings: {"price": "product.variants[0].price"}
//
// Paths are parsed into typed tokens (TokenKey, TokenIndex) and walked one
// step at a time. Any failure along the way (a missing key, an index out of
// range, a nil value, a key applied to a slice) leaves the binding unresolved
// rather than returning an error, so a stale binding never breaks a render.
// The keys __proto__, constructor and prototype are never resolved.
//
// # Usage
//
//	ctx := binding.Context{
//	    "product": map[string]any{
//	        "variants": []any{map[string]any{"price": 1999}},
//	    },
//	}
//
//	v, ok := binding.ResolvePath("product.variants[0].price", ctx) // 1999, true
//
//	props := binding.EffectiveProps(n, ctx) // static props + resolved overlay
//
// All functions in this package are pure and safe for concurrent use.
package binding
