package reqtemplate

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/Pchelolo/restbase/internal/ctyconv"
	"github.com/Pchelolo/restbase/internal/uritemplate"
)

// mustContext builds an evaluation context from a native Go tree.
func mustContext(t *testing.T, v map[string]any) cty.Value {
	t.Helper()
	cv, err := ctyconv.FromNative(v)
	require.NoError(t, err)
	return cv
}

// uriString replaces the structured uri in a resolved request with its
// rendered string, so results compare cleanly with cmp.Diff.
func uriString(res map[string]any) map[string]any {
	if u, ok := res["uri"].(*uritemplate.URI); ok {
		res["uri"] = u.String()
	}
	return res
}

func TestEvalEndToEnd(t *testing.T) {
	ctx := context.Background()

	spec := Spec{
		"uri":     "/{domain}/test",
		"method":  "post",
		"headers": map[string]any{"x": "{$.request.params.domain}"},
		"body":    map[string]any{"a": "{field}"},
	}
	tpl, err := Compile(ctx, spec, nil)
	require.NoError(t, err)

	evalCtx := mustContext(t, map[string]any{
		"request": map[string]any{
			"params": map[string]any{"domain": "en.wikipedia.org"},
			"method": "get",
			"body":   map[string]any{"field": "v"},
		},
	})

	res, err := tpl.Eval(ctx, evalCtx)
	require.NoError(t, err)

	expected := map[string]any{
		"method":  "post",
		"uri":     "/en.wikipedia.org/test",
		"headers": map[string]any{"x": "en.wikipedia.org"},
		"body":    map[string]any{"a": "v"},
	}
	assert.Empty(t, cmp.Diff(expected, uriString(res)))
}

func TestEvalHostTemplatedURI(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{"uri": "{host}/api/{path}"}, nil)
	require.NoError(t, err)

	res, err := tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{
			"params": map[string]any{"host": "svc.example", "path": "x"},
		},
	}))
	require.NoError(t, err)

	u, ok := res["uri"].(*uritemplate.URI)
	require.True(t, ok, "uri should resolve to the structured type")
	assert.Equal(t, "svc.example", u.Host)
	assert.Equal(t, "svc.example/api/x", u.String())
}

func TestEvalDeterminism(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri":   "/{domain}/thing",
		"query": map[string]any{"q": "{$.request.query.q}", "lang": "{lang}"},
	}, nil)
	require.NoError(t, err)

	evalCtx := mustContext(t, map[string]any{
		"request": map[string]any{
			"params": map[string]any{"domain": "d"},
			"query":  map[string]any{"q": "cats", "lang": "en"},
		},
	})

	first, err := tpl.Eval(ctx, evalCtx)
	require.NoError(t, err)
	second, err := tpl.Eval(ctx, evalCtx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(uriString(first), uriString(second)))
}

func TestEvalOmissionOnMiss(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri": "/fixed",
		"headers": map[string]any{
			"present": "{$.request.headers.present}",
			"absent":  "{$.request.headers.nosuch}",
		},
		"body": map[string]any{"only": "{$.missing.path}"},
	}, nil)
	require.NoError(t, err)

	res, err := tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{
			"headers": map[string]any{"present": "yes"},
		},
	}))
	require.NoError(t, err)

	// The missing leaf's key is entirely absent, not null or empty.
	headers, ok := res["headers"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"present": "yes"}, headers)

	// A part whose every leaf misses is absent as a whole.
	_, hasBody := res["body"]
	assert.False(t, hasBody)
}

func TestEvalLiteralFidelity(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri":     "/fixed",
		"headers": map[string]any{"content-type": "application/json"},
		"body":    map[string]any{"n": 42, "flag": true},
	}, nil)
	require.NoError(t, err)

	for _, evalCtx := range []map[string]any{
		{"request": map[string]any{}},
		{"request": map[string]any{"headers": map[string]any{"content-type": "text/plain"}}},
	} {
		res, err := tpl.Eval(ctx, mustContext(t, evalCtx))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"content-type": "application/json"}, res["headers"])
		assert.Equal(t, map[string]any{"n": int64(42), "flag": true}, res["body"])
	}
}

func TestEvalShapePreservation(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri": "/fixed",
		"body": map[string]any{
			"nested": map[string]any{
				"one": map[string]any{
					"two": map[string]any{"tree": "{$.request.body.value}"},
				},
			},
		},
	}, nil)
	require.NoError(t, err)

	res, err := tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{"body": map[string]any{"value": "leaf"}},
	}))
	require.NoError(t, err)

	expected := map[string]any{
		"nested": map[string]any{
			"one": map[string]any{
				"two": map[string]any{"tree": "leaf"},
			},
		},
	}
	assert.Empty(t, cmp.Diff(expected, res["body"]))
}

func TestEvalSequences(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri": "/fixed",
		"body": map[string]any{
			"items": []any{"{$.request.body.a}", "literal", "{$.request.body.missing}"},
		},
	}, nil)
	require.NoError(t, err)

	res, err := tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{"body": map[string]any{"a": "A"}},
	}))
	require.NoError(t, err)

	// Unresolved elements keep their slot so indexes stay stable.
	assert.Equal(t, map[string]any{"items": []any{"A", "literal", nil}}, res["body"])
}

func TestMethodPrecedence(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name     string
		spec     Spec
		request  map[string]any
		expected string
	}{
		{
			name:     "explicit literal wins",
			spec:     Spec{"uri": "/x", "method": "POST"},
			request:  map[string]any{"method": "delete"},
			expected: "post",
		},
		{
			name:     "inbound method next",
			spec:     Spec{"uri": "/x"},
			request:  map[string]any{"method": "PUT"},
			expected: "put",
		},
		{
			name:     "fixed default last",
			spec:     Spec{"uri": "/x"},
			request:  map[string]any{},
			expected: "get",
		},
		{
			name:     "templated method",
			spec:     Spec{"uri": "/x", "method": "{$.request.query.verb}"},
			request:  map[string]any{"query": map[string]any{"verb": "HEAD"}},
			expected: "head",
		},
		{
			name:     "templated method falls back when unresolved",
			spec:     Spec{"uri": "/x", "method": "{$.request.query.verb}"},
			request:  map[string]any{"method": "options"},
			expected: "options",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := Compile(ctx, tc.spec, nil)
			require.NoError(t, err)

			res, err := tpl.Eval(ctx, mustContext(t, map[string]any{"request": tc.request}))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, res["method"])
		})
	}
}

func TestGlobalsBinding(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri":     "{$$.options.host}/api/{path}",
		"headers": map[string]any{"x-backend": "{$$.options.name}"},
	}, &Options{Globals: map[string]cty.Value{
		"options": cty.ObjectVal(map[string]cty.Value{
			"host": cty.StringVal("svc.example"),
			"name": cty.StringVal("backend-1"),
		}),
	}})
	require.NoError(t, err)

	res, err := tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{"params": map[string]any{"path": "x"}},
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"x-backend": "backend-1"}, res["headers"])
	assert.Equal(t, "svc.example/api/x", uriString(res)["uri"])
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name string
		spec Spec
	}{
		{name: "empty spec", spec: Spec{}},
		{name: "unbalanced braces", spec: Spec{"uri": "/x", "body": map[string]any{"a": "{oops"}}},
		{name: "malformed expression", spec: Spec{"uri": "/x", "body": map[string]any{"a": "{1 ++}"}}},
		{name: "non-string uri", spec: Spec{"uri": 7}},
		{name: "non-string method", spec: Spec{"uri": "/x", "method": []any{"get"}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(ctx, tc.spec, nil)
			require.Error(t, err)
		})
	}
}

func TestEvalFatalOnBrokenMerge(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri":  "/x",
		"body": map[string]any{"merged": "{merge(n, {})}"},
	}, nil)
	require.NoError(t, err)

	_, err = tpl.Eval(ctx, mustContext(t, map[string]any{
		"request": map[string]any{"body": map[string]any{"n": 5}},
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge")
}

func TestEvalConcurrent(t *testing.T) {
	ctx := context.Background()

	tpl, err := Compile(ctx, Spec{
		"uri":     "/{domain}/page/{title}",
		"headers": map[string]any{"x": "/v1/{$.request.params.title}"},
	}, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				res, err := tpl.Eval(ctx, mustContextAny(map[string]any{
					"request": map[string]any{
						"params": map[string]any{"domain": "d", "title": "t"},
					},
				}))
				if assert.NoError(t, err) {
					assert.Equal(t, map[string]any{"x": "/v1/t"}, res["headers"])
				}
			}
		}()
	}
	wg.Wait()
}

// mustContextAny is mustContext without the testing.T plumbing, for use
// inside goroutines.
func mustContextAny(v map[string]any) cty.Value {
	cv, err := ctyconv.FromNative(v)
	if err != nil {
		panic(err)
	}
	return cv
}
