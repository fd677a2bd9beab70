package reqtemplate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/Pchelolo/restbase/internal/ctxlog"
	"github.com/Pchelolo/restbase/internal/ctyconv"
)

// Spec is a declarative request template: request-part names (uri,
// method, headers, query, body, ...) mapped to nested values whose string
// leaves may embed {expr} placeholders.
type Spec map[string]any

// Options adjusts compilation.
type Options struct {
	// Globals is bound under the $$ root inside expressions, next to the
	// built-in helper functions. Typical content is deployment options
	// such as an upstream host.
	Globals map[string]cty.Value
}

// Template is a compiled request template: the per-leaf evaluation plan,
// the function table of sub-templates, and the uri resolution strategy.
// It never mutates after Compile and may be evaluated concurrently.
type Template struct {
	plan    []planEntry
	funcs   []subTemplate
	uri     uriResolver
	globals cty.Value
}

// planEntry pairs one leaf's value source with its precomputed setter.
type planEntry struct {
	path   string // dotted leaf path, for diagnostics
	part   string
	src    node
	setter *setter
}

// compiler accumulates the plan and the function table during the single
// compile-time walk of the spec.
type compiler struct {
	logger *slog.Logger
	funcs  []subTemplate
	plan   []planEntry
}

// register adds a sub-template to the function table and returns its
// opaque handle. Handles are indexes, so uniqueness does not depend on
// field naming.
func (c *compiler) register(st subTemplate) int {
	c.funcs = append(c.funcs, st)
	return len(c.funcs) - 1
}

// Compile builds the evaluator for a whole template spec. All template
// syntax errors surface here; a compiled Template cannot fail on
// malformed template text at evaluation time.
func Compile(ctx context.Context, spec Spec, opts *Options) (*Template, error) {
	logger := ctxlog.FromContext(ctx)
	if len(spec) == 0 {
		return nil, errors.New("template spec must be a non-empty mapping")
	}
	if opts == nil {
		opts = &Options{}
	}

	c := &compiler{logger: logger}

	// The method resolver is registered in the function table like any
	// complex field, so it rides the same plan walk instead of being a
	// special-cased branch.
	mt, err := c.compileMethod(spec)
	if err != nil {
		return nil, err
	}
	c.plan = append(c.plan, planEntry{
		path:   "method",
		part:   methodPart,
		src:    callNode{handle: c.register(mt)},
		setter: newSetter([]pathStep{{key: "method", kind: kindObject}}),
	})

	var uri uriResolver
	if rawURI, ok := spec["uri"]; ok {
		s, ok := rawURI.(string)
		if !ok {
			return nil, fmt.Errorf("uri field must be a string, got %T", rawURI)
		}
		uri, err = c.compileURI(s)
		if err != nil {
			return nil, err
		}
		logger.Debug("Compiled uri field.", "strategy", uri.strategy())
	}

	for _, part := range sortedKeys(spec) {
		if part == "uri" || part == "method" {
			continue
		}
		steps := []pathStep{{key: part, kind: kindObject}}
		if err := c.walk(part, part, spec[part], steps); err != nil {
			return nil, err
		}
	}

	globals := cty.EmptyObjectVal
	if len(opts.Globals) > 0 {
		globals = cty.ObjectVal(opts.Globals)
	}

	logger.Debug("Compiled template spec.",
		"plan_entries", len(c.plan),
		"sub_templates", len(c.funcs),
	)
	return &Template{plan: c.plan, funcs: c.funcs, uri: uri, globals: globals}, nil
}

// compileMethod builds the method resolver: explicit spec value first,
// then the inbound request's method, then the fixed default.
func (c *compiler) compileMethod(spec Spec) (subTemplate, error) {
	raw, ok := spec["method"]
	if !ok {
		return &methodTemplate{}, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("method field must be a string, got %T", raw)
	}
	if !strings.ContainsAny(s, "{}") {
		return &methodTemplate{literal: s}, nil
	}
	segs, err := tokenize(s)
	if err != nil {
		return nil, fmt.Errorf("in method template: %w", err)
	}
	return &methodTemplate{tpl: &stringTemplate{part: methodPart, segs: segs}}, nil
}

// walk descends one request part's subtree, classifying every leaf and
// recording its setter steps. Mapping keys are visited in lexical order
// so the compiled plan, and with it evaluation, is deterministic.
func (c *compiler) walk(part, path string, v any, steps []pathStep) error {
	switch v := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(v) {
			childSteps := append(slices.Clone(steps), pathStep{key: k, kind: kindObject})
			if err := c.walk(part, path+"."+k, v[k], childSteps); err != nil {
				return err
			}
		}
		return nil

	case []any:
		for i, elem := range v {
			childSteps := append(slices.Clone(steps), pathStep{index: i, kind: kindArray, size: len(v)})
			if err := c.walk(part, fmt.Sprintf("%s[%d]", path, i), elem, childSteps); err != nil {
				return err
			}
		}
		return nil

	case string:
		n, err := c.classifyLeaf(part, v)
		if err != nil {
			return fmt.Errorf("at %s: %w", path, err)
		}
		c.logger.Debug("Classified template leaf.", "path", path, "kind", n.kind())
		c.plan = append(c.plan, planEntry{path: path, part: part, src: n, setter: newSetter(steps)})
		return nil

	case nil, bool, int, int64, uint64, float64:
		val, err := ctyconv.FromNative(v)
		if err != nil {
			return fmt.Errorf("at %s: %w", path, err)
		}
		c.plan = append(c.plan, planEntry{path: path, part: part, src: literalNode{val: val}, setter: newSetter(steps)})
		return nil

	default:
		return fmt.Errorf("unsupported spec value of type %T at %s", v, path)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
