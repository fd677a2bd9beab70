package reqtemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetter(t *testing.T) {
	t.Run("builds nested object containers", func(t *testing.T) {
		s := newSetter([]pathStep{
			{key: "body", kind: kindObject},
			{key: "nested", kind: kindObject},
			{key: "one", kind: kindObject},
			{key: "two", kind: kindObject},
			{key: "tree", kind: kindObject},
		})

		root := map[string]any{}
		s.set(root, "leaf")

		expected := map[string]any{
			"body": map[string]any{
				"nested": map[string]any{
					"one": map[string]any{
						"two": map[string]any{
							"tree": "leaf",
						},
					},
				},
			},
		}
		assert.Equal(t, expected, root)
	})

	t.Run("undefined leaves root untouched", func(t *testing.T) {
		s := newSetter([]pathStep{
			{key: "body", kind: kindObject},
			{key: "a", kind: kindObject},
		})

		root := map[string]any{}
		s.set(root, nil)
		assert.Empty(t, root)
	})

	t.Run("sequence containers use recorded size", func(t *testing.T) {
		first := newSetter([]pathStep{
			{key: "body", kind: kindObject},
			{key: "items", kind: kindObject},
			{index: 0, kind: kindArray, size: 2},
		})
		second := newSetter([]pathStep{
			{key: "body", kind: kindObject},
			{key: "items", kind: kindObject},
			{index: 1, kind: kindArray, size: 2},
		})

		root := map[string]any{}
		first.set(root, "a")
		second.set(root, "b")

		assert.Equal(t, map[string]any{
			"body": map[string]any{"items": []any{"a", "b"}},
		}, root)
	})

	t.Run("unresolved sequence slot keeps nil placeholder", func(t *testing.T) {
		first := newSetter([]pathStep{
			{key: "body", kind: kindObject},
			{key: "items", kind: kindObject},
			{index: 1, kind: kindArray, size: 2},
		})

		root := map[string]any{}
		first.set(root, "b")

		items, ok := root["body"].(map[string]any)["items"].([]any)
		require.True(t, ok)
		assert.Equal(t, []any{nil, "b"}, items)
	})

	t.Run("setters are reusable across roots", func(t *testing.T) {
		s := newSetter([]pathStep{
			{key: "headers", kind: kindObject},
			{key: "x", kind: kindObject},
		})

		first := map[string]any{}
		second := map[string]any{}
		s.set(first, "1")
		s.set(second, "2")

		assert.Equal(t, map[string]any{"headers": map[string]any{"x": "1"}}, first)
		assert.Equal(t, map[string]any{"headers": map[string]any{"x": "2"}}, second)
	})
}
