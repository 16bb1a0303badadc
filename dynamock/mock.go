package dynamock

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/cloudlydb"
)

type APICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// Client defines the DynamoDB operations used by cloudlydb.
type Client = cloudlydb.DynamoDBClient

// MockClient is an expectation-based mock for DynamoDB operations. Any
// operation without an expectation fails the test.
type MockClient struct {
	PutFunc    APICall[dynamodb.PutItemInput, dynamodb.PutItemOutput]
	GetFunc    APICall[dynamodb.GetItemInput, dynamodb.GetItemOutput]
	QueryFunc  APICall[dynamodb.QueryInput, dynamodb.QueryOutput]
	DeleteFunc APICall[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput]
	UpdateFunc APICall[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput]
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock with no expectations.
func NewMockClient(t testing.TB) *MockClient {
	return &MockClient{
		PutFunc:    unexpected[dynamodb.PutItemInput, dynamodb.PutItemOutput](t, "PutItem"),
		GetFunc:    unexpected[dynamodb.GetItemInput, dynamodb.GetItemOutput](t, "GetItem"),
		QueryFunc:  unexpected[dynamodb.QueryInput, dynamodb.QueryOutput](t, "Query"),
		DeleteFunc: unexpected[dynamodb.DeleteItemInput, dynamodb.DeleteItemOutput](t, "DeleteItem"),
		UpdateFunc: unexpected[dynamodb.UpdateItemInput, dynamodb.UpdateItemOutput](t, "UpdateItem"),
	}
}

func unexpected[T, U any](t testing.TB, op string) APICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Helper()
		t.Fatalf("unexpected call to %s", op)
		return nil, nil
	}
}

func (m *MockClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return m.PutFunc(ctx, params, optFns...)
}

func (m *MockClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return m.GetFunc(ctx, params, optFns...)
}

func (m *MockClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return m.UpdateFunc(ctx, params, optFns...)
}

func (m *MockClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return m.DeleteFunc(ctx, params, optFns...)
}

func (m *MockClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return m.QueryFunc(ctx, params, optFns...)
}
