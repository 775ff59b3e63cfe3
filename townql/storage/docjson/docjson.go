// Package docjson converts JSON documents into the plain Go values stores
// hand to the engine: integral numbers become int64, others float64.
package docjson

import (
	"fmt"
	"math"

	"github.com/valyala/fastjson"
)

var parsers fastjson.ParserPool

// Decode parses a JSON object into a field map.
func Decode(b []byte) (map[string]any, error) {
	p := parsers.Get()
	defer parsers.Put(p)

	v, err := p.ParseBytes(b)
	if err != nil {
		return nil, err
	}
	return Object(v)
}

// Object converts a parsed JSON object. The result does not reference v.
func Object(v *fastjson.Value) (map[string]any, error) {
	obj, err := v.Object()
	if err != nil {
		return nil, fmt.Errorf("expected JSON object, got %s", v.Type())
	}
	out := make(map[string]any, obj.Len())
	obj.Visit(func(key []byte, val *fastjson.Value) {
		out[string(key)] = Value(val)
	})
	return out, nil
}

// Value converts any parsed JSON value.
func Value(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeNull:
		return nil
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		f := v.GetFloat64()
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case fastjson.TypeArray:
		arr := v.GetArray()
		out := make([]any, 0, len(arr))
		for _, item := range arr {
			out = append(out, Value(item))
		}
		return out
	case fastjson.TypeObject:
		m, _ := Object(v)
		return m
	}
	return nil
}
