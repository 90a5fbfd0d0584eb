package configdao

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/savaki/config-provisioner/internal/errors"
)

// adaptItem converts a configuration record's content into DynamoDB
// attribute values.
func adaptItem(content map[string]any) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(content))
	for k, v := range content {
		av, err := adaptValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		item[k] = av
	}
	return item, nil
}

// adaptValue recursively converts a value. Floats go through their decimal
// string form rather than their binary value: DynamoDB numbers are exact
// decimals, and round-tripping 3.14 through float64 formatting must yield
// "3.14", not a binary approximation artifact.
func adaptValue(value any) (types.AttributeValue, error) {
	switch v := value.(type) {
	case map[string]any:
		m := make(map[string]types.AttributeValue, len(v))
		for k, elem := range v {
			av, err := adaptValue(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case map[any]any:
		// YAML decoding can produce non-string keys
		m := make(map[string]types.AttributeValue, len(v))
		for k, elem := range v {
			av, err := adaptValue(elem)
			if err != nil {
				return nil, fmt.Errorf("key %v: %w", k, err)
			}
			m[fmt.Sprint(k)] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case []any:
		l := make([]types.AttributeValue, 0, len(v))
		for i, elem := range v {
			av, err := adaptValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			l = append(l, av)
		}
		return &types.AttributeValueMemberL{Value: l}, nil
	case float64:
		return adaptFloat(v)
	case float32:
		return adaptFloat(float64(v))
	case json.Number:
		return &types.AttributeValueMemberN{Value: v.String()}, nil
	default:
		return attributevalue.Marshal(value)
	}
}

func adaptFloat(f float64) (types.AttributeValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v", errors.ErrNonFiniteNumber, f)
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatFloat(f, 'f', -1, 64)}, nil
}
