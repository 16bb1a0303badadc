package cloudlydb

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// marshalValues converts compiled placeholder values into attribute values.
func marshalValues(values map[string]any) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(values))
	for alias, value := range values {
		av, err := marshalValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", alias, err)
		}
		out[alias] = av
	}
	return out, nil
}

// marshalValue converts a document value into an attribute value. Floats are
// converted to exact decimals first so they round-trip as written.
func marshalValue(value any) (types.AttributeValue, error) {
	switch v := value.(type) {
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil, fmt.Errorf("cannot store %v", v)
		}
		return numberValue(decimal.NewFromFloat32(v)), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("cannot store %v", v)
		}
		return numberValue(decimal.NewFromFloat(v)), nil
	case decimal.Decimal:
		return numberValue(v), nil
	case json.Number:
		if _, err := decimal.NewFromString(string(v)); err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", string(v), err)
		}
		return &types.AttributeValueMemberN{Value: string(v)}, nil
	case Whole:
		return marshalMap(v)
	case map[string]any:
		return marshalMap(v)
	case []any:
		list := make([]types.AttributeValue, len(v))
		for i, elem := range v {
			av, err := marshalValue(elem)
			if err != nil {
				return nil, err
			}
			list[i] = av
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	}
	return attributevalue.Marshal(value)
}

func marshalMap(m map[string]any) (types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(m))
	for k, v := range m {
		av, err := marshalValue(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = av
	}
	return &types.AttributeValueMemberM{Value: out}, nil
}

func numberValue(d decimal.Decimal) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: d.String()}
}

// unmarshalDocument decodes a map attribute, keeping numbers as
// attributevalue.Number.
func unmarshalDocument(av types.AttributeValue) (map[string]any, error) {
	var out map[string]any
	err := attributevalue.UnmarshalWithOptions(av, &out, func(o *attributevalue.DecoderOptions) {
		o.UseNumber = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

func stringValues(values map[string]string) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(values))
	for alias, value := range values {
		out[alias] = &types.AttributeValueMemberS{Value: value}
	}
	return out
}
