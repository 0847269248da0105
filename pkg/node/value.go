package node

import "reflect"

// ValueKind is the JSON kind of a prop or payload value.
type ValueKind string

const (
	KindAny     ValueKind = ""
	KindString  ValueKind = "string"
	KindNumber  ValueKind = "number"
	KindBoolean ValueKind = "boolean"
	KindObject  ValueKind = "object"
	KindArray   ValueKind = "array"
	KindNull    ValueKind = "null"
)

// Valid reports whether k is a kind a schema may declare.
func (k ValueKind) Valid() bool {
	switch k {
	case KindAny, KindString, KindNumber, KindBoolean, KindObject, KindArray:
		return true
	}
	return false
}

// Accepts reports whether v has kind k. KindAny accepts everything.
func (k ValueKind) Accepts(v any) bool {
	return k == KindAny || KindOf(v) == k
}

// KindOf returns the JSON kind of v. Go maps and structs are objects;
// slices and arrays are arrays.
func KindOf(v any) ValueKind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case bool:
		return KindBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return KindNumber
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Struct:
		return KindObject
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.String:
		return KindString
	case reflect.Bool:
		return KindBoolean
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	}
	return "unknown"
}
