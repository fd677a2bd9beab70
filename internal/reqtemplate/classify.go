package reqtemplate

import (
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/Pchelolo/restbase/internal/expr"
)

// node is the compile-time representation of one leaf's value source, a
// tagged variant built once by the classifier. Nothing stringly survives
// compilation: a complex template is referenced by its handle, never by
// synthetic call syntax injected back into the tree.
type node interface {
	isNode()
	// kind is the classification name, for log output.
	kind() string
}

// literalNode passes a constant through unchanged.
type literalNode struct {
	val cty.Value
}

// exprNode is a single bare placeholder whose references stay within the
// current request part; it is evaluated inline against the part scope.
type exprNode struct {
	e *expr.Expr
}

// callNode references a sub-template in the function table by its opaque
// handle.
type callNode struct {
	handle int
}

func (literalNode) isNode() {}
func (exprNode) isNode()    {}
func (callNode) isNode()    {}

func (literalNode) kind() string { return "literal" }
func (exprNode) kind() string    { return "inline-expression" }
func (callNode) kind() string    { return "sub-template" }

// classifyLeaf decides how one string leaf will be resolved:
//
//  1. no placeholders: a plain literal;
//  2. the whole leaf is one placeholder referencing only fields of the
//     current request part: the bare expression is inlined;
//  3. anything else (literal/placeholder interpolation, or references
//     through the context or globals root): a standalone sub-template,
//     registered in the function table and invoked by handle.
func (c *compiler) classifyLeaf(part, raw string) (node, error) {
	if !strings.ContainsAny(raw, "{}") {
		return literalNode{val: cty.StringVal(raw)}, nil
	}

	segs, err := tokenize(raw)
	if err != nil {
		return nil, err
	}

	if len(segs) == 1 && segs[0].isExpr() && !segs[0].expr.HasAbsoluteRefs() {
		return exprNode{e: segs[0].expr}, nil
	}

	handle := c.register(&stringTemplate{part: part, segs: segs})
	return callNode{handle: handle}, nil
}
