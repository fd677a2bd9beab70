// Package expr binds the template expression language to the HCL
// expression engine. A placeholder body is normalized once (see
// normalizeSource), parsed once with hclsyntax, and then evaluated any
// number of times against per-call scopes. References that do not resolve
// evaluate to undefined rather than failing, which is what lets the
// request-template compiler omit output fields whose data is missing.
package expr

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

// Expr is one compiled placeholder expression. It is immutable after
// Parse and safe for concurrent evaluation.
type Expr struct {
	source     string
	hclExpr    hcl.Expression
	traversals []hcl.Traversal
}

// Parse normalizes and parses a placeholder body. Malformed input is a
// fatal template syntax error.
func Parse(source string) (*Expr, error) {
	norm, err := normalizeSource(source)
	if err != nil {
		return nil, err
	}
	hclExpr, diags := hclsyntax.ParseExpression([]byte(norm), "template", hcl.Pos{Line: 1, Column: 1, Byte: 0})
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing expression %q: %s", source, diags.Error())
	}
	return &Expr{
		source:     source,
		hclExpr:    hclExpr,
		traversals: hclExpr.Variables(),
	}, nil
}

// Source returns the original placeholder body, before normalization.
func (e *Expr) Source() string { return e.source }

// RootNames returns the sorted, distinct root identifiers the expression
// references.
func (e *Expr) RootNames() []string {
	seen := make(map[string]struct{}, len(e.traversals))
	var names []string
	for _, tr := range e.traversals {
		root := tr.RootName()
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		names = append(names, root)
	}
	sort.Strings(names)
	return names
}

// HasAbsoluteRefs reports whether the expression reaches outside the
// current request part, through the context root or the globals table.
func (e *Expr) HasAbsoluteRefs() bool {
	for _, tr := range e.traversals {
		if root := tr.RootName(); root == ContextRoot || root == GlobalsRoot {
			return true
		}
	}
	return false
}

// TraversalKey renders a traversal in its canonical source form, for
// diagnostics and log output.
func TraversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}
