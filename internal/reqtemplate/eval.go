package reqtemplate

import (
	"context"
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/Pchelolo/restbase/internal/ctxlog"
	"github.com/Pchelolo/restbase/internal/ctyconv"
	"github.com/Pchelolo/restbase/internal/expr"
)

const (
	// paramsPart is the request part uri expressions resolve against.
	paramsPart = "params"
	// methodPart is the request part the method template resolves
	// against.
	methodPart = "method"
	// defaultMethod is used when neither the spec nor the inbound
	// request carries a method.
	defaultMethod = "get"
)

// evalScope is the per-call evaluation state: the full context bound
// under the absolute root, the globals table, and the inbound request
// whose parts serve relative lookups. A fresh scope per Eval call is what
// makes a compiled Template safe for concurrent use.
type evalScope struct {
	root    cty.Value
	request cty.Value
	globals cty.Value
	funcs   []subTemplate
}

// Eval runs the compiled template against one evaluation context and
// returns the resolved request. The context is conventionally an object
// with a "request" attribute carrying params/headers/query/body/method,
// plus any auxiliary named values. Fields whose expressions cannot be
// resolved are omitted from the result; only a genuinely broken template,
// such as merge over a number, produces an error.
func (t *Template) Eval(ctx context.Context, evalCtx cty.Value) (map[string]any, error) {
	logger := ctxlog.FromContext(ctx)
	if evalCtx == cty.NilVal || evalCtx.IsNull() ||
		(!evalCtx.Type().IsObjectType() && !evalCtx.Type().IsMapType()) {
		return nil, errors.New("evaluation context must be an object-like value")
	}

	sc := &evalScope{
		root:    evalCtx,
		request: attrOf(evalCtx, "request"),
		globals: t.globals,
		funcs:   t.funcs,
	}

	out := make(map[string]any, len(t.plan)+1)
	for _, pe := range t.plan {
		v, err := pe.resolve(sc)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", pe.path, err)
		}
		nv, err := ctyconv.ToNative(v)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", pe.path, err)
		}
		pe.setter.set(out, nv)
	}

	if t.uri != nil {
		u, err := t.uri.resolveURI(sc)
		if err != nil {
			return nil, fmt.Errorf("resolving uri: %w", err)
		}
		if u != nil {
			out["uri"] = u
		}
	}

	logger.Debug("Evaluated request template.", "fields", len(out))
	return out, nil
}

// resolve produces the leaf's value for this call: constants come back
// unchanged, inline expressions evaluate against their part scope, and
// sub-template references dispatch through the function table.
func (pe planEntry) resolve(sc *evalScope) (cty.Value, error) {
	switch n := pe.src.(type) {
	case literalNode:
		return n.val, nil
	case exprNode:
		return n.e.Eval(sc.exprScope(pe.part))
	case callNode:
		return sc.funcs[n.handle].eval(sc)
	default:
		return cty.NilVal, fmt.Errorf("unknown plan node variant %T", pe.src)
	}
}

// exprScope builds the bindings for expressions of one request part: the
// part's own top-level fields under their bare names (the relative view),
// the full context under the absolute root, and the globals table.
func (sc *evalScope) exprScope(part string) *expr.Scope {
	vars := map[string]cty.Value{
		expr.ContextRoot: sc.root,
		expr.GlobalsRoot: sc.globals,
	}
	if pv := sc.partView(part); isObjectLike(pv) {
		for k, v := range pv.AsValueMap() {
			if k == expr.ContextRoot || k == expr.GlobalsRoot {
				continue
			}
			vars[k] = v
		}
	}
	return expr.NewScope(vars)
}

// partView returns the inbound request's sub-object for a request part.
func (sc *evalScope) partView(part string) cty.Value {
	return attrOf(sc.request, part)
}

// params returns the inbound request's parameter map for uri expansion.
func (sc *evalScope) params() map[string]cty.Value {
	if p := sc.partView(paramsPart); isObjectLike(p) {
		return p.AsValueMap()
	}
	return nil
}

// attrOf returns the named attribute of an object-like value, or NilVal
// when the value has no such attribute.
func attrOf(v cty.Value, name string) cty.Value {
	if !isObjectLike(v) {
		return cty.NilVal
	}
	if val, ok := v.AsValueMap()[name]; ok {
		return val
	}
	return cty.NilVal
}

func isObjectLike(v cty.Value) bool {
	if v == cty.NilVal || v.IsNull() || !v.IsKnown() {
		return false
	}
	ty := v.Type()
	return ty.IsObjectType() || ty.IsMapType()
}
