// Package uritemplate implements parsing and expansion of URI path
// patterns with {param} placeholders. Patterns are parsed once into a
// Template and expanded many times against parameter maps, producing a
// structured URI value rather than a bare string, so callers can attach a
// separately resolved authority before rendering.
package uritemplate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrMissingParam is wrapped by Expand when the parameter map lacks a
// value for a placeholder. Callers treat it as an unresolved reference.
var ErrMissingParam = errors.New("missing path parameter")

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam               // {name}: one path segment
	segRest                // {+name}: remainder of the path, slashes allowed
)

type segment struct {
	kind segmentKind
	text string // literal text or parameter name
}

// Template is a parsed URI path pattern.
type Template struct {
	pattern  string
	segments []segment
}

// Parse parses a path pattern. Placeholders must span a whole path
// segment; a {+name} placeholder captures the rest of the path.
func Parse(pattern string) (*Template, error) {
	t := &Template{pattern: pattern}
	for _, part := range strings.Split(pattern, "/") {
		switch {
		case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") && len(part) > 2:
			name := part[1 : len(part)-1]
			kind := segParam
			if strings.HasPrefix(name, "+") {
				name = name[1:]
				kind = segRest
			}
			if name == "" || strings.ContainsAny(name, "{}/") {
				return nil, fmt.Errorf("invalid placeholder %q in pattern %q", part, pattern)
			}
			t.segments = append(t.segments, segment{kind: kind, text: name})
		case strings.ContainsAny(part, "{}"):
			return nil, fmt.Errorf("placeholder must span a whole path segment in pattern %q, got %q", pattern, part)
		default:
			t.segments = append(t.segments, segment{kind: segLiteral, text: part})
		}
	}
	return t, nil
}

// Pattern returns the source pattern the template was parsed from.
func (t *Template) Pattern() string { return t.pattern }

// ParamNames returns the placeholder names in pattern order.
func (t *Template) ParamNames() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.kind != segLiteral {
			names = append(names, seg.text)
		}
	}
	return names
}

// Expand resolves the template against a parameter map. Parameter values
// are coerced to strings. A placeholder without a usable parameter value
// fails with an error wrapping ErrMissingParam.
func (t *Template) Expand(params map[string]cty.Value) (*URI, error) {
	u := &URI{Path: make([]string, 0, len(t.segments))}
	for _, seg := range t.segments {
		if seg.kind == segLiteral {
			u.Path = append(u.Path, seg.text)
			continue
		}

		v, ok := params[seg.text]
		if !ok || v == cty.NilVal || v.IsNull() || !v.IsKnown() {
			return nil, fmt.Errorf("%w: %q in pattern %q", ErrMissingParam, seg.text, t.pattern)
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("path parameter %q: %w", seg.text, err)
		}
		u.Path = append(u.Path, s.AsString())
	}
	return u, nil
}

// URI is a resolved, structured URI: an optional authority plus resolved
// path segments. A URI built from a fully dynamic string keeps the string
// as-is.
type URI struct {
	Host string
	Path []string

	raw string
}

// FromString wraps an already-rendered URI string in the structured type.
func FromString(s string) *URI {
	return &URI{raw: s}
}

// String renders the URI. Path segments are joined with "/"; a leading
// empty segment therefore yields an absolute path.
func (u *URI) String() string {
	if u.raw != "" {
		return u.raw
	}
	return u.Host + strings.Join(u.Path, "/")
}

// MarshalJSON renders the URI as its string form.
func (u *URI) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}
