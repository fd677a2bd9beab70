package expr

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Functions returns the helper table available inside every template
// expression, keyed by the name a template author calls them with
// ($$.default, $$.merge).
func Functions() map[string]function.Function {
	return map[string]function.Function{
		"default": defaultFunc,
		"merge":   mergeFunc,
	}
}

// Truthy implements the template language's truthiness: undefined, null,
// false, zero and the empty string are falsy; everything else is truthy.
func Truthy(v cty.Value) bool {
	if Undefined(v) {
		return false
	}
	switch v.Type() {
	case cty.Bool:
		return v.True()
	case cty.Number:
		return v.AsBigFloat().Sign() != 0
	case cty.String:
		return v.AsString() != ""
	}
	return true
}

func isObjectLike(v cty.Value) bool {
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}

// defaultFunc returns its first argument when truthy and the fallback
// otherwise.
var defaultFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{
			Name:             "value",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		{
			Name:             "fallback",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return cty.DynamicPseudoType, nil
	},
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		if Truthy(args[0]) {
			return args[0], nil
		}
		return args[1], nil
	},
})

// mergeFunc produces a new mapping with every entry of the destination
// plus any source entry whose key the destination does not define.
// Shallow and non-mutating. A non-null operand that is not object-like is
// a fatal error: that indicates a broken template, not missing data.
var mergeFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{
			Name:             "destination",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		{
			Name:             "source",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
	},
	Type: func(args []cty.Value) (cty.Type, error) {
		return cty.DynamicPseudoType, nil
	},
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		dst, src := args[0], args[1]
		if !dst.IsNull() && !isObjectLike(dst) {
			return cty.NilVal, function.NewArgErrorf(0, "merge: destination must be object-like, got %s", dst.Type().FriendlyName())
		}
		if !src.IsNull() && !isObjectLike(src) {
			return cty.NilVal, function.NewArgErrorf(1, "merge: source must be object-like, got %s", src.Type().FriendlyName())
		}
		if dst.IsNull() && src.IsNull() {
			return cty.NullVal(cty.DynamicPseudoType), nil
		}

		merged := make(map[string]cty.Value)
		if !src.IsNull() {
			for k, v := range src.AsValueMap() {
				merged[k] = v
			}
		}
		if !dst.IsNull() {
			for k, v := range dst.AsValueMap() {
				merged[k] = v
			}
		}
		if len(merged) == 0 {
			return cty.EmptyObjectVal, nil
		}
		return cty.ObjectVal(merged), nil
	},
})
