package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Key returns the canonical string form of a primitive value, used for index
// lookups, join keys and group-by keys.
func Key(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	if !v.IsKnown() {
		return "unknown"
	}
	switch v.Type() {
	case cty.String:
		return "s:" + v.AsString()
	case cty.Number:
		return "n:" + v.AsBigFloat().Text('g', -1)
	case cty.Bool:
		if v.True() {
			return "b:true"
		}
		return "b:false"
	}
	return "v:" + v.GoString()
}

// Null is the untyped null cell used for missing values.
var Null = cty.NullVal(cty.DynamicPseudoType)

// Val converts a native Go value into a cell.
func Val(v any) (cty.Value, error) {
	switch x := v.(type) {
	case cty.Value:
		return x, nil
	case nil:
		return Null, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int8:
		return cty.NumberIntVal(int64(x)), nil
	case int16:
		return cty.NumberIntVal(int64(x)), nil
	case int32:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint:
		return cty.NumberUIntVal(uint64(x)), nil
	case uint32:
		return cty.NumberUIntVal(uint64(x)), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float32:
		return cty.NumberFloatVal(float64(x)), nil
	case float64:
		if math.IsNaN(x) {
			return cty.NullVal(cty.Number), nil
		}
		return cty.NumberFloatVal(x), nil
	case json.Number:
		return cty.ParseNumberVal(x.String())
	}
	return cty.NilVal, fmt.Errorf("unsupported cell type %T", v)
}

// Vals converts every argument with Val and panics on unsupported types.
// It is meant for literals in step code and tests.
func Vals(vs ...any) []cty.Value {
	out := make([]cty.Value, len(vs))
	for i, v := range vs {
		c, err := Val(v)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

// Strings builds string cells.
func Strings(ss ...string) []cty.Value {
	out := make([]cty.Value, len(ss))
	for i, s := range ss {
		out[i] = cty.StringVal(s)
	}
	return out
}

// Ints builds number cells from integers.
func Ints(is ...int64) []cty.Value {
	out := make([]cty.Value, len(is))
	for i, n := range is {
		out[i] = cty.NumberIntVal(n)
	}
	return out
}

// Floats builds number cells from floats.
func Floats(fs ...float64) []cty.Value {
	out := make([]cty.Value, len(fs))
	for i, f := range fs {
		out[i] = cty.NumberFloatVal(f)
	}
	return out
}

// Range builds the integer labels 0..n-1.
func Range(n int) []cty.Value {
	out := make([]cty.Value, n)
	for i := range out {
		out[i] = cty.NumberIntVal(int64(i))
	}
	return out
}

// ToGo converts a primitive cell back into a native Go value: nil, string,
// bool, int64 (integral numbers) or float64.
func ToGo(v cty.Value) any {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Bool:
		return v.True()
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i
			}
		}
		f, _ := bf.Float64()
		return f
	}
	return v.GoString()
}

// Format renders a cell for text output.
func Format(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		return v.AsBigFloat().Text('g', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	}
	return v.GoString()
}

// Float returns the float64 of a number cell.
func Float(v cty.Value) (float64, bool) {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

// elemType is the type of the first non-null value, or DynamicPseudoType.
func elemType(vs []cty.Value) cty.Type {
	for _, v := range vs {
		if !v.IsNull() {
			return v.Type()
		}
	}
	return cty.DynamicPseudoType
}

// less orders cells: numbers numerically, strings lexically, everything
// else (and mixed types) by Key.
func less(a, b cty.Value) bool {
	fa, okA := Float(a)
	fb, okB := Float(b)
	if okA && okB {
		return fa < fb
	}
	if !a.IsNull() && !b.IsNull() && a.Type() == cty.String && b.Type() == cty.String {
		return a.AsString() < b.AsString()
	}
	return Key(a) < Key(b)
}

func sortValues(vs []cty.Value) {
	sort.SliceStable(vs, func(i, j int) bool { return less(vs[i], vs[j]) })
}
