package expr

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Scope carries the variable bindings for a single evaluation call. A
// fresh Scope per call keeps compiled expressions safe for concurrent
// evaluation; nothing in this package holds mutable state across calls.
type Scope struct {
	vars  map[string]cty.Value
	funcs map[string]function.Function
}

// NewScope builds a scope over the given bindings, with the helper
// function table attached.
func NewScope(vars map[string]cty.Value) *Scope {
	return &Scope{vars: vars, funcs: Functions()}
}

// Undefined reports whether an evaluation result stands for a missing
// value: the zero cty.Value, null, or unknown.
func Undefined(v cty.Value) bool {
	return v == cty.NilVal || v.IsNull() || !v.IsKnown()
}

// Eval evaluates the expression in the scope. References that have
// nothing behind them yield undefined (cty.NilVal with a nil error);
// every other failure, such as a helper function rejecting its operands,
// is an error.
//
// Tolerance works in two layers. First, each traversal recorded at parse
// time that does not resolve against the scope is grafted into a patched
// copy of the bindings as a chain of single-attribute objects ending in
// null, so missing data flows through the expression as null and can
// still reach helpers like default() as an argument. Second, diagnostics
// of the unresolved family that slip through anyway (dynamic indexes,
// traversals into scalars) are mapped to undefined as a whole.
func (e *Expr) Eval(sc *Scope) (cty.Value, error) {
	vars := sc.vars
	for _, tr := range e.traversals {
		vars = graftMissing(vars, tr)
	}

	ectx := &hcl.EvalContext{Variables: vars, Functions: sc.funcs}
	v, diags := e.hclExpr.Value(ectx)
	if diags.HasErrors() {
		if onlyUnresolved(diags) {
			return cty.NilVal, nil
		}
		return cty.NilVal, fmt.Errorf("evaluating expression %q: %s", e.source, diags.Error())
	}
	if Undefined(v) {
		return cty.NilVal, nil
	}
	return v, nil
}

// unresolvedSummaries lists the diagnostic summaries hclsyntax produces
// when a reference simply has nothing behind it, as opposed to a
// genuinely broken expression.
var unresolvedSummaries = map[string]struct{}{
	"Unknown variable":                         {},
	"Unsupported attribute":                    {},
	"Missing map element":                      {},
	"Invalid index":                            {},
	"Attempt to get attribute from null value": {},
	"Attempt to index null value":              {},
}

func onlyUnresolved(diags hcl.Diagnostics) bool {
	if len(diags) == 0 {
		return false
	}
	for _, d := range diags {
		if _, ok := unresolvedSummaries[d.Summary]; !ok {
			return false
		}
	}
	return true
}

// graftMissing returns a bindings map in which the given traversal is
// guaranteed to resolve, grafting nulls along any missing suffix. The
// input map is never mutated; an unchanged map is returned as-is.
func graftMissing(vars map[string]cty.Value, tr hcl.Traversal) map[string]cty.Value {
	root := tr.RootName()
	rest := tr[1:]

	cur, ok := vars[root]
	if ok {
		patchedVal, changed := graftValue(cur, rest)
		if !changed {
			return vars
		}
		patched := copyBindings(vars)
		patched[root] = patchedVal
		return patched
	}

	patched := copyBindings(vars)
	patched[root] = nullChain(rest)
	return patched
}

func copyBindings(vars map[string]cty.Value) map[string]cty.Value {
	out := make(map[string]cty.Value, len(vars)+1)
	for k, v := range vars {
		out[k] = v
	}
	return out
}

// stepName extracts the attribute or string-index key of a traversal
// step. Numeric and dynamic index steps have no graftable name.
func stepName(t hcl.Traverser) (string, bool) {
	switch t := t.(type) {
	case hcl.TraverseAttr:
		return t.Name, true
	case hcl.TraverseIndex:
		if t.Key.Type() == cty.String {
			return t.Key.AsString(), true
		}
	}
	return "", false
}

// nullChain builds the value grafted in place of a missing reference: a
// chain of single-attribute objects following the named steps, ending in
// a null of dynamic type.
func nullChain(steps []hcl.Traverser) cty.Value {
	var names []string
	for _, st := range steps {
		name, ok := stepName(st)
		if !ok {
			break
		}
		names = append(names, name)
	}

	v := cty.NullVal(cty.DynamicPseudoType)
	for i := len(names) - 1; i >= 0; i-- {
		v = cty.ObjectVal(map[string]cty.Value{names[i]: v})
	}
	return v
}

// graftValue descends an existing value along the traversal steps and
// grafts a null chain at the first missing attribute. It reports whether
// a patched copy was produced.
func graftValue(v cty.Value, steps []hcl.Traverser) (cty.Value, bool) {
	if len(steps) == 0 {
		return v, false
	}
	name, ok := stepName(steps[0])
	if !ok {
		return v, false
	}
	if v.IsNull() || !v.IsKnown() {
		return v, false
	}
	if ty := v.Type(); !ty.IsObjectType() && !ty.IsMapType() {
		return v, false
	}

	attrs := v.AsValueMap()
	if attrs == nil {
		attrs = make(map[string]cty.Value, 1)
	}
	child, ok := attrs[name]
	if !ok {
		attrs[name] = nullChain(steps[1:])
		return cty.ObjectVal(attrs), true
	}

	patchedChild, changed := graftValue(child, steps[1:])
	if !changed {
		return v, false
	}
	attrs[name] = patchedChild
	return cty.ObjectVal(attrs), true
}
