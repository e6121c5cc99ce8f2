// Package dynamock provides testing utilities for the dynattr library.
//
// This package includes:
//   - Expectation-based mock DynamoDB client for unit testing
//   - Local DynamoDB integration utilities
//   - Schema-driven table lifecycle management with automatic cleanup
//   - Test data seeding helpers, including JSON fixtures
//
// # Mock Client
//
// The MockClient provides an expectation-based mock implementation where you
// set expectations for specific operations; any unset operation fails the
// test immediately:
//
//	mock := dynamock.NewMockClient(t)
//
//	mock.PutFunc = func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
//		// Verify the operation parameters
//		return &dynamodb.PutItemOutput{}, nil
//	}
//
//	session := dynattr.NewSession(mock)
//	err := session.PutItem(ctx, rec)
//
// NotFoundError returns the error the real service produces for a missing
// table, for driving the not-found paths:
//
//	mock.DescribeTableFunc = func(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
//		return nil, dynamock.NotFoundError()
//	}
//
// # Local DynamoDB
//
// For integration testing, the package provides utilities to work with local
// DynamoDB instances:
//
//	local := dynamock.NewLocalDynamoDB(8000)
//	if local.IsAvailable(ctx) {
//		err := local.CreateSchemaTable(ctx, userSchema)
//		// ... run tests
//		err = local.DeleteTable(ctx, userSchema.TableName())
//	}
//
// # Integration Test Helpers
//
// Isolated tables are created up front and removed afterwards:
//
//	dynamock.WithIsolatedSchema(t, client,
//		func(tableName string) *dynattr.Schema {
//			return dynattr.MustSchema(tableName,
//				dynattr.String("id", dynattr.HashKey()),
//			)
//		},
//		func(schema *dynattr.Schema) {
//			// Your test code here
//		})
//
//	dynamock.RunIntegrationTest(t, nil, func(local *dynamock.LocalDynamoDB, tableName string) {
//		// Your integration test code here
//	})
//
// # Test Data Seeding
//
// Seed records, loose values, raw items or JSON fixtures into a table:
//
//	seeder := dynamock.NewSeeder(client, userSchema)
//
//	err := seeder.SeedValues(ctx, map[string]any{"id": "u1", "age": 30})
//	count, err := seeder.SeedFromJSON(ctx, strings.NewReader(`[{"id":"u2","age":41}]`))
//
// SeedItems and SeedRawFromJSON bypass the schema's validation pipeline,
// which makes it easy to plant fixtures the schema would reject.
package dynamock
