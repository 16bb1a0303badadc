// Package dynamock provides testing utilities for cloudlydb.
//
// This package includes:
//   - MockClient, an expectation-based mock for unit tests
//   - record builders and JSON seeding
//   - DynamoDB Local helpers for integration tests, backed by a
//     testcontainers container when no local instance is running
//
// # Mock Client
//
// MockClient fails the test on any call without an expectation:
//
//	mock := dynamock.NewMockClient(t)
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		return &dynamodb.PutItemOutput{}, nil
//	}
//
// # Builders and Seeding
//
//	rec := dynamock.NewRecord(
//		dynamock.WithModel("Order", "1"),
//		dynamock.WithAttribute("gsi1pk", "C1"),
//		dynamock.WithField("total", 10),
//	).Build()
//
//	seeder := dynamock.NewSeeder(client, table)
//	err := seeder.SeedRecords(ctx, rec)
//	n, err := seeder.SeedFromJSON(ctx, file)
//
// Seed documents are JSON arrays of resources keyed by pk and sk, or by
// type and id:
//
//	[
//		{"type": "Product", "id": "P1", "attributes": {"name": "Laptop"}},
//		{"pk": "Order", "sk": "Order#1", "keys": {"gsi1pk": "C1"}, "attributes": {"total": 10}}
//	]
//
// # DynamoDB Local
//
//	dynamock.RunIntegrationTest(t, nil, func(local *dynamock.LocalDynamoDB, store *cloudlydb.Store) {
//		// the store is bound to a fresh table that is deleted afterwards
//	})
//
// Tables are created with string pk and sk keys and a gsi1 index over
// gsi1pk and gsi1sk, registered on the store's table. DynamoDB Local on
// port 8000 is used when it is running; otherwise one amazon/dynamodb-local
// container is started for the whole test binary. Integration tests are
// skipped in short mode and when no container runtime is available.
package dynamock
