package dynamock

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// Names of the secondary index created by [LocalDynamoDB.CreateTable].
const (
	IndexName         = "gsi1"
	IndexPartitionKey = "gsi1pk"
	IndexSortKey      = "gsi1sk"
)

// LocalDynamoDB is a connection to a DynamoDB Local instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
}

// NewLocalClient creates a client for DynamoDB Local listening on port.
func NewLocalClient(port int) *dynamodb.Client {
	return NewLocalClientFromConfig(aws.Config{Region: "us-east-1"}, localEndpoint(port))
}

// NewLocalClientFromConfig points cfg at the DynamoDB Local endpoint using
// anonymous credentials.
func NewLocalClientFromConfig(cfg aws.Config, endpoint string) *dynamodb.Client {
	cfg.Credentials = aws.AnonymousCredentials{}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
}

// NewLocalDynamoDB creates a LocalDynamoDB for the given port on localhost.
func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return NewLocalDynamoDBAt(localEndpoint(port))
}

// NewLocalDynamoDBAt creates a LocalDynamoDB for an endpoint URL such as
// "http://127.0.0.1:32768".
func NewLocalDynamoDBAt(endpoint string) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClientFromConfig(aws.Config{Region: "us-east-1"}, endpoint),
		Endpoint: endpoint,
	}
}

func localEndpoint(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// IsAvailable reports whether DynamoDB Local answers at the endpoint.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := l.Client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}, func(o *dynamodb.Options) {
		o.RetryMaxAttempts = 1
	})
	return err == nil
}

// WaitForAvailable polls until DynamoDB Local is reachable or timeout elapses.
func (l *LocalDynamoDB) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if l.IsAvailable(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("DynamoDB Local not available at %s after %v", l.Endpoint, timeout)
}

// CreateTableInput returns the schema of a record table: string pk and sk
// keys plus the gsi1 index over gsi1pk and gsi1sk.
func CreateTableInput(tableName string) *dynamodb.CreateTableInput {
	str := func(name string) types.AttributeDefinition {
		return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
	}
	keys := func(pk, sk string) []types.KeySchemaElement {
		return []types.KeySchemaElement{
			{AttributeName: aws.String(pk), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(sk), KeyType: types.KeyTypeRange},
		}
	}

	return &dynamodb.CreateTableInput{
		TableName:            aws.String(tableName),
		BillingMode:          types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{str("pk"), str("sk"), str(IndexPartitionKey), str(IndexSortKey)},
		KeySchema:            keys("pk", "sk"),
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName:  aws.String(IndexName),
				KeySchema:  keys(IndexPartitionKey, IndexSortKey),
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	}
}

// CreateTable creates a record table and waits for it to become active.
func (l *LocalDynamoDB) CreateTable(ctx context.Context, tableName string) error {
	if _, err := l.Client.CreateTable(ctx, CreateTableInput(tableName)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	waiter := dynamodb.NewTableExistsWaiter(l.Client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, 30*time.Second)
}

// DeleteTable deletes a table and waits until it is gone.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	if _, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(tableName)}); err != nil {
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}
	waiter := dynamodb.NewTableNotExistsWaiter(l.Client)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(tableName)}, 30*time.Second)
}

// ListTables returns all table names in the instance.
func (l *LocalDynamoDB) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	paginator := dynamodb.NewListTablesPaginator(l.Client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tables: %w", err)
		}
		names = append(names, page.TableNames...)
	}
	return names, nil
}
