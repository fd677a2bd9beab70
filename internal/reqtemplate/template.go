package reqtemplate

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/Pchelolo/restbase/internal/expr"
)

// subTemplate is one entry of the function table: an independently
// compiled, independently testable resolver invoked by handle from the
// evaluation plan.
type subTemplate interface {
	eval(sc *evalScope) (cty.Value, error)
}

// stringTemplate concatenates literal and expression fragments into one
// string, or yields a single expression's value unchanged. The fragment
// accumulator is a local of each call, so a compiled template stays safe
// under concurrent evaluation.
type stringTemplate struct {
	part string
	segs []segment
}

func (st *stringTemplate) eval(sc *evalScope) (cty.Value, error) {
	scope := sc.exprScope(st.part)

	if len(st.segs) == 1 && st.segs[0].isExpr() {
		return st.segs[0].expr.Eval(scope)
	}

	var acc strings.Builder
	for _, seg := range st.segs {
		if !seg.isExpr() {
			acc.WriteString(seg.literal)
			continue
		}
		v, err := seg.expr.Eval(scope)
		if err != nil {
			return cty.NilVal, err
		}
		// One undefined fragment makes the whole interpolation
		// undefined; partial strings never leak into the output.
		if expr.Undefined(v) {
			return cty.NilVal, nil
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return cty.NilVal, fmt.Errorf("fragment %q is not string-like: %w", seg.expr.Source(), err)
		}
		acc.WriteString(s.AsString())
	}
	return cty.StringVal(acc.String()), nil
}

// methodTemplate resolves the request method with the fixed precedence:
// explicit spec value, then the inbound request's method, then "get".
type methodTemplate struct {
	tpl     *stringTemplate // non-nil when the spec method is templated
	literal string
}

func (mt *methodTemplate) eval(sc *evalScope) (cty.Value, error) {
	if mt.tpl != nil {
		v, err := mt.tpl.eval(sc)
		if err != nil {
			return cty.NilVal, err
		}
		if !expr.Undefined(v) {
			s, err := convert.Convert(v, cty.String)
			if err != nil {
				return cty.NilVal, fmt.Errorf("method template: %w", err)
			}
			return cty.StringVal(strings.ToLower(s.AsString())), nil
		}
	}
	if mt.literal != "" {
		return cty.StringVal(strings.ToLower(mt.literal)), nil
	}
	if m := attrOf(sc.request, "method"); !expr.Undefined(m) && m.Type() == cty.String {
		return cty.StringVal(strings.ToLower(m.AsString())), nil
	}
	return cty.StringVal(defaultMethod), nil
}
