package cloudlydb

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// EndpointEnvVar overrides the DynamoDB endpoint, e.g. to point at DynamoDB Local.
const EndpointEnvVar = "DYNAMODB_ENDPOINT_URL"

// NewClient creates a DynamoDB client from the default AWS configuration
// chain. When DYNAMODB_ENDPOINT_URL is set the client sends every request to
// that endpoint.
func NewClient(ctx context.Context, optFns ...func(*config.LoadOptions) error) (*dynamodb.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := os.Getenv(EndpointEnvVar)
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// TableFromEnv creates a Table named by the environment variable envVar.
func TableFromEnv(envVar string, opts ...func(*Table)) (*Table, error) {
	name := os.Getenv(envVar)
	if name == "" {
		return nil, fmt.Errorf("environment variable %s is not set", envVar)
	}
	return NewTable(name, opts...), nil
}
