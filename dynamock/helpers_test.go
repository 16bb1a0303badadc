package dynamock

import "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

type attributes = map[string]types.AttributeValue

func s(v string) types.AttributeValue { return &types.AttributeValueMemberS{Value: v} }
func n(v string) types.AttributeValue { return &types.AttributeValueMemberN{Value: v} }
func m(v attributes) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: v}
}
