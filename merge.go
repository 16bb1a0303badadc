package cloudlydb

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/shopspring/decimal"
)

// MergeStats merges an increment into the stats currently stored in
// original and returns the map to assign back.
//
// When path is set (e.g. "stats" or "stats.daily") the increment is nested
// under it first. The result only holds keys present in the increment:
//   - keys new to original are copied; new maps are wrapped in Whole so they
//     are written as a single value
//   - overlapping numbers are summed exactly
//   - overlapping maps are merged into fresh maps
//   - Whole values in the increment replace what is stored
//
// Merging reads a snapshot of original, so concurrent writers can lose
// updates. Use Table.MarshalAccumulate for atomic counters.
func MergeStats(original, increment map[string]any, path string) (map[string]any, error) {
	if path != "" {
		nested, err := nestUnder(increment, path)
		if err != nil {
			return nil, err
		}
		increment = nested
	}
	if len(original) == 0 {
		return increment, nil
	}

	type frame struct {
		original  map[string]any
		increment map[string]any
		out       map[string]any
		path      string
	}

	result := make(map[string]any, len(increment))
	stack := []frame{{original: original, increment: increment, out: result}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for key, value := range f.increment {
			keyPath := joinPath(f.path, key)
			prior, exists := f.original[key]

			if !exists {
				if m, ok := value.(map[string]any); ok {
					f.out[key] = Whole(m)
				} else {
					f.out[key] = value
				}
				continue
			}

			switch v := value.(type) {
			case Whole:
				f.out[key] = v
			case map[string]any:
				stored, ok := asMap(prior)
				if !ok {
					return nil, fmt.Errorf("%w: %s: cannot merge a map into %T", ErrIncompatibleStats, keyPath, prior)
				}
				child := make(map[string]any, len(v))
				f.out[key] = child
				stack = append(stack, frame{original: stored, increment: v, out: child, path: keyPath})
			default:
				sum, err := addNumbers(prior, value)
				if err != nil {
					return nil, fmt.Errorf("%w: %s: %v", ErrIncompatibleStats, keyPath, err)
				}
				f.out[key] = sum
			}
		}
	}

	pruneEmpty(result)
	return result, nil
}

func nestUnder(increment map[string]any, path string) (map[string]any, error) {
	segments := strings.Split(path, ".")
	out := increment
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			return nil, fmt.Errorf("%w: empty segment in path %q", ErrInvalidField, path)
		}
		out = map[string]any{segments[i]: out}
	}
	return out, nil
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Whole:
		return m, true
	}
	return nil, false
}

// pruneEmpty drops merged maps that ended up with no keys so that nothing
// is assigned over the stored subtree.
func pruneEmpty(m map[string]any) {
	for k, v := range m {
		child, ok := v.(map[string]any)
		if !ok {
			continue
		}
		pruneEmpty(child)
		if len(child) == 0 {
			delete(m, k)
		}
	}
}

func addNumbers(a, b any) (decimal.Decimal, error) {
	x, ok := toDecimal(a)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("stored value %v (%T) is not a number", a, a)
	}
	y, ok := toDecimal(b)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("increment %v (%T) is not a number", b, b)
	}
	return x.Add(y), nil
}

// toDecimal converts the numeric representations produced by Go callers and
// by the attributevalue decoder into an exact decimal.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case *decimal.Decimal:
		if n == nil {
			return decimal.Decimal{}, false
		}
		return *n, true
	case attributevalue.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt32(n), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0), true
	case uint8:
		return decimal.NewFromInt(int64(n)), true
	case uint16:
		return decimal.NewFromInt(int64(n)), true
	case uint32:
		return decimal.NewFromInt(int64(n)), true
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), true
	case float32:
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat32(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(n), true
	}
	return decimal.Decimal{}, false
}
