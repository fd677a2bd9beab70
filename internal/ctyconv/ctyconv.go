// Package ctyconv converts between native Go values, as produced by the
// YAML and JSON decoders, and the cty value system used by the expression
// engine. Conversion is structural: mappings become cty objects, sequences
// become cty tuples, so heterogeneous trees round-trip without a schema.
package ctyconv

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// FromNative converts a decoded Go value into a cty.Value. A nil input
// becomes a null of dynamic type.
func FromNative(v any) (cty.Value, error) {
	switch v := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return v, nil
	case bool:
		return cty.BoolVal(v), nil
	case string:
		return cty.StringVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case uint64:
		return cty.NumberUIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case map[string]any:
		if len(v) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(v))
		for k, elem := range v {
			cv, err := FromNative(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in attribute %q: %w", k, err)
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	case []any:
		if len(v) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(v))
		for i, elem := range v {
			cv, err := FromNative(elem)
			if err != nil {
				return cty.NilVal, fmt.Errorf("in element %d: %w", i, err)
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	default:
		// Last resort for unusual scalar kinds (int32, float32, ...).
		ty, err := gocty.ImpliedType(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("unsupported value of type %T: %w", v, err)
		}
		return gocty.ToCtyValue(v, ty)
	}
}

// ObjectFromNative is FromNative restricted to mapping roots. It is used
// where the caller requires an object-like value, such as the evaluation
// context or the globals table.
func ObjectFromNative(v any) (cty.Value, error) {
	cv, err := FromNative(v)
	if err != nil {
		return cty.NilVal, err
	}
	if !cv.Type().IsObjectType() && !cv.Type().IsMapType() {
		return cty.NilVal, fmt.Errorf("expected a mapping, got %s", cv.Type().FriendlyName())
	}
	return cv, nil
}

// ToNative converts a cty.Value back into native Go values. Null and
// unknown values become nil. Integral numbers come back as int64, all
// other numbers as float64.
func ToNative(v cty.Value) (any, error) {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil

	case ty == cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			i, acc := bf.Int64()
			if acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil

	case ty == cty.Bool:
		return v.True(), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		slice := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			nv, err := ToNative(elem)
			if err != nil {
				return nil, err
			}
			slice = append(slice, nv)
		}
		return slice, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := make(map[string]any, v.LengthInt())
		for k, elem := range v.AsValueMap() {
			nv, err := ToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("in attribute %q: %w", k, err)
			}
			m[k] = nv
		}
		return m, nil

	default:
		return nil, fmt.Errorf("cannot convert value of type %s to a native Go value", ty.FriendlyName())
	}
}

// SortedKeys returns the attribute names of an object-like value in
// lexical order, for deterministic iteration.
func SortedKeys(v cty.Value) []string {
	if v == cty.NilVal || v.IsNull() || !v.CanIterateElements() {
		return nil
	}
	m := v.AsValueMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
