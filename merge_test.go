package cloudlydb

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// normalize rewrites every number as its decimal string so results can be
// compared regardless of their numeric type.
func normalize(v any) any {
	switch m := v.(type) {
	case Whole:
		return Whole(normalize(map[string]any(m)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = normalize(val)
		}
		return out
	}
	if d, ok := toDecimal(v); ok {
		return d.String()
	}
	return v
}

func TestMergeStats(t *testing.T) {
	tests := []struct {
		name      string
		original  map[string]any
		increment map[string]any
		path      string
		want      map[string]any
	}{
		{
			name:      "empty original returns the increment",
			original:  nil,
			increment: map[string]any{"views": 1, "daily": map[string]any{"mon": 1}},
			want:      map[string]any{"views": 1, "daily": map[string]any{"mon": 1}},
		},
		{
			name:      "path nests the increment",
			original:  map[string]any{},
			increment: map[string]any{"views": 1},
			path:      "stats",
			want:      map[string]any{"stats": map[string]any{"views": 1}},
		},
		{
			name:      "dotted path nests every segment",
			original:  nil,
			increment: map[string]any{"views": 1},
			path:      "stats.daily",
			want:      map[string]any{"stats": map[string]any{"daily": map[string]any{"views": 1}}},
		},
		{
			name:     "sums overlaps and copies new keys",
			original: map[string]any{"a": 1, "b": 2, "c": map[string]any{"d": 3}},
			increment: map[string]any{
				"b": 3,
				"c": map[string]any{"d": 1, "e": 2},
				"f": map[string]any{"g": 1},
			},
			want: map[string]any{
				"b": 5,
				"c": map[string]any{"d": 4, "e": 2},
				"f": Whole{"g": 1},
			},
		},
		{
			name: "merges under a path",
			original: map[string]any{
				"name":  "page",
				"stats": map[string]any{"boys": 2, "girls": 1},
			},
			increment: map[string]any{"boys": 1, "teachers": 1},
			path:      "stats",
			want: map[string]any{
				"stats": map[string]any{"boys": 3, "teachers": 1},
			},
		},
		{
			name:      "new path under existing data is written whole",
			original:  map[string]any{"name": "page"},
			increment: map[string]any{"views": 1},
			path:      "stats",
			want:      map[string]any{"stats": Whole{"views": 1}},
		},
		{
			name:      "whole increments replace stored maps",
			original:  map[string]any{"s": map[string]any{"a": 1}},
			increment: map[string]any{"s": Whole{"b": 1}},
			want:      map[string]any{"s": Whole{"b": 1}},
		},
		{
			name:      "empty subtrees are dropped",
			original:  map[string]any{"s": map[string]any{"a": 1}},
			increment: map[string]any{"s": map[string]any{}, "b": 1},
			want:      map[string]any{"b": 1},
		},
		{
			name:      "stored numbers decode as attributevalue numbers",
			original:  map[string]any{"views": attributevalue.Number("10"), "ratio": json.Number("0.5")},
			increment: map[string]any{"views": 2.5, "ratio": decimal.RequireFromString("0.25")},
			want:      map[string]any{"views": "12.5", "ratio": "0.75"},
		},
		{
			name:      "floats add exactly",
			original:  map[string]any{"x": 0.1},
			increment: map[string]any{"x": 0.2},
			want:      map[string]any{"x": "0.3"},
		},
		{
			name:      "unsigned and sized integers",
			original:  map[string]any{"x": uint64(18446744073709551615)},
			increment: map[string]any{"x": int8(1)},
			want:      map[string]any{"x": "18446744073709551616"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergeStats(tt.original, tt.increment, tt.path)
			require.NoError(t, err)
			assert.Equal(t, normalize(tt.want), normalize(got))
		})
	}
}

func TestMergeStatsKeepsInputs(t *testing.T) {
	original := map[string]any{"a": 1, "c": map[string]any{"d": 3}}
	increment := map[string]any{"a": 1, "c": map[string]any{"d": 1}}

	_, err := MergeStats(original, increment, "")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"a": 1, "c": map[string]any{"d": 3}}, original)
	assert.Equal(t, map[string]any{"a": 1, "c": map[string]any{"d": 1}}, increment)
}

func TestMergeStatsErrors(t *testing.T) {
	tests := []struct {
		name      string
		original  map[string]any
		increment map[string]any
		path      string
		want      error
	}{
		{
			name:      "stored string",
			original:  map[string]any{"a": "x"},
			increment: map[string]any{"a": 1},
			want:      ErrIncompatibleStats,
		},
		{
			name:      "increment string",
			original:  map[string]any{"a": 1},
			increment: map[string]any{"a": "x"},
			want:      ErrIncompatibleStats,
		},
		{
			name:      "map over number",
			original:  map[string]any{"a": 1},
			increment: map[string]any{"a": map[string]any{"b": 1}},
			want:      ErrIncompatibleStats,
		},
		{
			name:      "number over map",
			original:  map[string]any{"a": map[string]any{"b": 1}},
			increment: map[string]any{"a": 2},
			want:      ErrIncompatibleStats,
		},
		{
			name:      "nested mismatch",
			original:  map[string]any{"s": map[string]any{"b": true}},
			increment: map[string]any{"s": map[string]any{"b": 1}},
			want:      ErrIncompatibleStats,
		},
		{
			name:      "empty path segment",
			original:  nil,
			increment: map[string]any{"a": 1},
			path:      "stats..daily",
			want:      ErrInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MergeStats(tt.original, tt.increment, tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("error names the path", func(t *testing.T) {
		_, err := MergeStats(
			map[string]any{"s": map[string]any{"b": "x"}},
			map[string]any{"s": map[string]any{"b": 1}},
			"",
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "s.b")
	})
}

func TestMergeStatsCompilesToSet(t *testing.T) {
	merged, err := MergeStats(
		map[string]any{"stats": map[string]any{"boys": 2}},
		map[string]any{"boys": 1, "clubs": map[string]any{"chess": 1}},
		"stats",
	)
	require.NoError(t, err)

	expr, err := Compile(merged, ModeAssign)
	require.NoError(t, err)
	assert.Equal(t, "SET #stats.#statsboys = :statsboys, #stats.#statsclubs = :statsclubs", expr.String())
	assert.Equal(t, "3", normalize(expr.Values[":statsboys"]))
	assert.Equal(t, map[string]any{"chess": 1}, expr.Values[":statsclubs"])
}
