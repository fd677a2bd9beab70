package reqtemplate

import (
	"fmt"
	"strings"

	"github.com/Pchelolo/restbase/internal/expr"
)

// A segment is one run of a template string: either a literal chunk or a
// parsed placeholder expression.
type segment struct {
	literal string
	expr    *expr.Expr
}

func (s segment) isExpr() bool { return s.expr != nil }

// tokenize splits a raw template string into literal and expression
// segments with a single left-to-right scan. A '{' at depth zero closes
// the current literal run and opens an expression run; the matching '}'
// hands the run's content to the expression parser. Deeper brace pairs
// (object literals inside an expression) are counted but do not split the
// run. Unbalanced braces are a syntax error.
func tokenize(raw string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder
	depth := 0
	start := 0

	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if depth == 0 {
				if lit.Len() > 0 {
					segs = append(segs, segment{literal: lit.String()})
					lit.Reset()
				}
				start = i + 1
			}
			depth++
		case '}':
			if depth == 0 {
				return nil, fmt.Errorf("unbalanced '}' at offset %d in template %q", i, raw)
			}
			depth--
			if depth == 0 {
				e, err := expr.Parse(raw[start:i])
				if err != nil {
					return nil, err
				}
				segs = append(segs, segment{expr: e})
			}
		default:
			if depth == 0 {
				lit.WriteByte(raw[i])
			}
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unbalanced '{' in template %q", raw)
	}
	if lit.Len() > 0 {
		segs = append(segs, segment{literal: lit.String()})
	}
	return segs, nil
}
