package binding

import (
	"reflect"
	"strings"

	"github.com/vango-dev/storefront/pkg/node"
)

// forbidden keys never resolve, whatever the context holds.
var forbidden = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsForbiddenKey reports whether key is one of the reserved lookups that
// resolution always refuses.
func IsForbiddenKey(key string) bool {
	return forbidden[key]
}

// ResolvePath parses path and walks ctx with it. It never fails: a malformed
// path, a missing key, an out-of-range index, a type mismatch, a nil value
// along the way, or a forbidden key all yield ok == false.
func ResolvePath(path string, ctx Context) (any, bool) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, false
	}
	return Lookup(p, ctx)
}

// Lookup walks root token by token. Key tokens apply to maps with string
// keys and to structs (by json name or field name); index tokens apply to
// slices and arrays. Pointers and interfaces are followed.
func Lookup(p Path, root any) (any, bool) {
	if len(p.Tokens) == 0 {
		return nil, false
	}
	cur := root
	for _, tok := range p.Tokens {
		if isNil(cur) {
			return nil, false
		}
		var ok bool
		switch tok.Kind {
		case TokenKey:
			cur, ok = lookupKey(cur, tok.Key)
		case TokenIndex:
			cur, ok = lookupIndex(cur, tok.Index)
		}
		if !ok {
			return nil, false
		}
	}
	if isNil(cur) {
		return nil, false
	}
	return cur, true
}

func lookupKey(cur any, key string) (any, bool) {
	if forbidden[key] {
		return nil, false
	}
	switch m := cur.(type) {
	case Context:
		v, ok := m[key]
		return v, ok
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	}

	rv := indirect(reflect.ValueOf(cur))
	switch rv.Kind() {
	case reflect.Map:
		kt := rv.Type().Key()
		if kt.Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key).Convert(kt))
		if !v.IsValid() || !v.CanInterface() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Struct:
		return structField(rv, key)
	}
	return nil, false
}

func lookupIndex(cur any, idx int) (any, bool) {
	if s, ok := cur.([]any); ok {
		if idx < 0 || idx >= len(s) {
			return nil, false
		}
		return s[idx], true
	}

	rv := indirect(reflect.ValueOf(cur))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		v := rv.Index(idx)
		if !v.CanInterface() {
			return nil, false
		}
		return v.Interface(), true
	}
	return nil, false
}

func structField(rv reflect.Value, key string) (any, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		if name == key {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// indirect follows pointers and interfaces. A nil pointer yields the zero
// Value, whose Kind is Invalid.
func indirect(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// ResolveBindings resolves each binding against ctx and returns an overlay
// holding only the props whose paths resolved. Unresolved bindings are
// omitted so the node's static value stays visible.
func ResolveBindings(bindings map[string]string, ctx Context) map[string]any {
	out := make(map[string]any, len(bindings))
	for prop, path := range bindings {
		if v, ok := ResolvePath(path, ctx); ok {
			out[prop] = v
		}
	}
	return out
}

// EffectiveProps returns a copy of n's static props overlaid with its
// resolved bindings.
func EffectiveProps(n *node.Node, ctx Context) map[string]any {
	if n == nil {
		return nil
	}
	props := node.CopyMap(n.Props)
	if props == nil {
		props = make(map[string]any, len(n.Bindings))
	}
	for k, v := range ResolveBindings(n.Bindings, ctx) {
		props[k] = node.CopyValue(v)
	}
	return props
}
