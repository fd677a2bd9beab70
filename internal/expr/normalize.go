package expr

import (
	"fmt"
	"strings"
)

// Reserved root identifiers inside normalized expressions. Template
// authors must not bind their own variables under these names.
const (
	// ContextRoot is the identifier the absolute context root ($) is
	// rewritten to.
	ContextRoot = "_"
	// GlobalsRoot is the identifier the globals table ($$) is rewritten
	// to when referenced as a value rather than called.
	GlobalsRoot = "__"
)

// normalizeSource rewrites a placeholder body into syntax the HCL parser
// accepts. The template expression language uses $ for the context root,
// $$ for the globals table, and allows single-quoted strings; none of
// these are legal HCL. The rewrite is purely lexical, skips string
// literals, and runs exactly once per placeholder at compile time.
func normalizeSource(src string) (string, error) {
	var out strings.Builder
	out.Grow(len(src))

	for i := 0; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'':
			end, err := rewriteQuoted(&out, src, i, c)
			if err != nil {
				return "", err
			}
			i = end
		case '$':
			i = rewriteDollar(&out, src, i)
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}

// rewriteQuoted copies a string literal starting at src[start] (which
// holds the opening quote) into out as a double-quoted HCL string. It
// returns the index of the closing quote in src. HCL's ${ and %{ template
// sequences are escaped so quoted text stays literal.
func rewriteQuoted(out *strings.Builder, src string, start int, quote byte) (int, error) {
	out.WriteByte('"')
	for i := start + 1; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			next := src[i+1]
			if quote == '\'' && next == '\'' {
				out.WriteByte('\'')
			} else {
				out.WriteByte('\\')
				out.WriteByte(next)
			}
			i++
		case c == quote:
			out.WriteByte('"')
			return i, nil
		case c == '"':
			// Only reachable for single-quoted literals.
			out.WriteString(`\"`)
		case (c == '$' || c == '%') && i+1 < len(src) && src[i+1] == '{':
			out.WriteByte(c)
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return 0, fmt.Errorf("unterminated string literal in expression %q", src)
}

// rewriteDollar handles a $ at src[i] outside any string literal and
// returns the index of the last consumed byte. "$" becomes the context
// root; "$$.name(" becomes a helper function call; any other "$$"
// reference becomes a traversal of the globals root.
func rewriteDollar(out *strings.Builder, src string, i int) int {
	if i+1 >= len(src) || src[i+1] != '$' {
		out.WriteString(ContextRoot)
		return i
	}

	if dot := i + 2; dot < len(src) && src[dot] == '.' {
		end := dot + 1
		for end < len(src) && isIdentByte(src[end]) {
			end++
		}
		if end > dot+1 && end < len(src) && src[end] == '(' {
			out.WriteString(src[dot+1 : end])
			return end - 1
		}
	}
	out.WriteString(GlobalsRoot)
	return i + 1
}

func isIdentByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
