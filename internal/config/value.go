package config

import (
	"github.com/vk/tablegrid/internal/frame"
	"github.com/zclconf/go-cty/cty"
)

// GoValue converts a configuration value into plain Go: primitives as
// frame.ToGo does, lists, sets and tuples as []any, maps and objects as
// map[string]any.
func GoValue(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	ty := v.Type()
	switch {
	case ty.IsPrimitiveType():
		return frame.ToGo(v)
	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := make([]any, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			out = append(out, GoValue(e))
		}
		return out
	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]any, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			out[k.AsString()] = GoValue(e)
		}
		return out
	}
	return nil
}
