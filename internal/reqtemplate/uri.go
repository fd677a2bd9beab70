package reqtemplate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/Pchelolo/restbase/internal/expr"
	"github.com/Pchelolo/restbase/internal/uritemplate"
)

// uriResolver resolves the uri field by one of three mutually exclusive
// strategies selected at compile time. Each strategy needs a different
// resolution mechanism: a fully dynamic string, a separately resolved
// authority glued to an expanded path, or a plain path expansion.
type uriResolver interface {
	resolveURI(sc *evalScope) (*uritemplate.URI, error)
	strategy() string
}

// wholeURI handles a uri field that is entirely one expression. It is
// evaluated over the inbound request's parameter map and the result is
// coerced into the structured URI type.
type wholeURI struct {
	e *expr.Expr
}

// hostPathURI handles a templated host prefix followed by a static path
// template: the host is string-interpolated, the path expanded, and the
// two concatenated into one structured value.
type hostPathURI struct {
	host *stringTemplate
	path *uritemplate.Template
}

// pathURI delegates the whole uri field to the path template engine,
// expanded against the inbound request's parameters.
type pathURI struct {
	tpl *uritemplate.Template
}

func (wholeURI) strategy() string    { return "whole-uri-expression" }
func (hostPathURI) strategy() string { return "templated-host" }
func (pathURI) strategy() string     { return "path-template" }

// compileURI matches the uri field against the three strategies. The
// entire field being one placeholder selects the whole-URI expression; a
// placeholder in the host prefix (before the first slash outside braces)
// selects host templating; anything else is a plain path template whose
// {param} placeholders are path parameters, not expressions.
func (c *compiler) compileURI(raw string) (uriResolver, error) {
	if e, ok := wholeExpression(raw); ok {
		return wholeURI{e: e}, nil
	}

	if host, path, ok := splitTemplatedHost(raw); ok {
		hostSegs, err := tokenize(host)
		if err != nil {
			return nil, fmt.Errorf("in uri host template: %w", err)
		}
		tpl, err := uritemplate.Parse(path)
		if err != nil {
			return nil, err
		}
		return hostPathURI{
			host: &stringTemplate{part: paramsPart, segs: hostSegs},
			path: tpl,
		}, nil
	}

	tpl, err := uritemplate.Parse(raw)
	if err != nil {
		return nil, err
	}
	return pathURI{tpl: tpl}, nil
}

// wholeExpression reports whether the entire uri field is one placeholder
// with expression content. A placeholder whose content does not parse as
// an expression (such as a {+rest} path marker) is left to the path
// template engine instead.
func wholeExpression(raw string) (*expr.Expr, bool) {
	if len(raw) < 2 || raw[0] != '{' || raw[len(raw)-1] != '}' {
		return nil, false
	}
	depth := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
		}
		if depth == 0 && i < len(raw)-1 {
			return nil, false
		}
	}
	if depth != 0 {
		return nil, false
	}
	e, err := expr.Parse(raw[1 : len(raw)-1])
	if err != nil {
		return nil, false
	}
	return e, true
}

// splitTemplatedHost splits a uri field into host prefix and path
// remainder at the first slash outside braces, reporting whether the
// prefix is templated at all.
func splitTemplatedHost(raw string) (host, path string, ok bool) {
	depth := 0
	slash := -1
	for i := 0; i < len(raw) && slash < 0; i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '/':
			if depth == 0 {
				slash = i
			}
		}
	}
	if slash < 0 {
		slash = len(raw)
	}
	host, path = raw[:slash], raw[slash:]
	return host, path, strings.Contains(host, "{")
}

func (u wholeURI) resolveURI(sc *evalScope) (*uritemplate.URI, error) {
	v, err := u.e.Eval(sc.exprScope(paramsPart))
	if err != nil {
		return nil, err
	}
	if expr.Undefined(v) {
		return nil, nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return nil, fmt.Errorf("uri expression %q did not produce a string-like value: %w", u.e.Source(), err)
	}
	return uritemplate.FromString(s.AsString()), nil
}

func (u hostPathURI) resolveURI(sc *evalScope) (*uritemplate.URI, error) {
	hostVal, err := u.host.eval(sc)
	if err != nil {
		return nil, err
	}
	if expr.Undefined(hostVal) {
		return nil, nil
	}
	hostStr, err := convert.Convert(hostVal, cty.String)
	if err != nil {
		return nil, fmt.Errorf("uri host template did not produce a string-like value: %w", err)
	}

	resolved, err := u.path.Expand(sc.params())
	if err != nil {
		if errors.Is(err, uritemplate.ErrMissingParam) {
			return nil, nil
		}
		return nil, err
	}
	resolved.Host = hostStr.AsString()
	return resolved, nil
}

func (u pathURI) resolveURI(sc *evalScope) (*uritemplate.URI, error) {
	resolved, err := u.tpl.Expand(sc.params())
	if err != nil {
		if errors.Is(err, uritemplate.ErrMissingParam) {
			return nil, nil
		}
		return nil, err
	}
	return resolved, nil
}
