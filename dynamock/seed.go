package dynamock

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/nisimpson/dynattr"
)

// TableManager manages DynamoDB tables for testing, providing automatic
// cleanup of everything it created.
type TableManager struct {
	client *dynamodb.Client
	tables []string // track created tables for cleanup
}

// NewTableManager creates a new table manager with the given DynamoDB client.
func NewTableManager(client *dynamodb.Client) *TableManager {
	return &TableManager{
		client: client,
		tables: make([]string, 0),
	}
}

// CreateSchemaTable creates the schema's table and tracks it for cleanup.
func (tm *TableManager) CreateSchemaTable(ctx context.Context, schema *dynattr.Schema) error {
	local := &LocalDynamoDB{Client: tm.client}
	if err := local.CreateSchemaTable(ctx, schema); err != nil {
		return err
	}
	tm.tables = append(tm.tables, schema.TableName())
	return nil
}

// Cleanup deletes all tables created by this manager.
func (tm *TableManager) Cleanup(ctx context.Context) error {
	local := &LocalDynamoDB{Client: tm.client}
	for _, tableName := range tm.tables {
		if err := local.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s: %w", tableName, err)
		}
	}
	tm.tables = tm.tables[:0]
	return nil
}

// TableNames returns the names of all tables managed by this manager.
func (tm *TableManager) TableNames() []string {
	names := make([]string, len(tm.tables))
	copy(names, tm.tables)
	return names
}

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// WithIsolatedSchema runs a test function against a uniquely named table that
// is created up front and removed afterwards, even if the test panics. The
// build function receives the generated table name and returns the schema to
// create.
func WithIsolatedSchema(t *testing.T, client *dynamodb.Client, build func(tableName string) *dynattr.Schema, fn func(schema *dynattr.Schema)) {
	ctx := context.Background()
	tableName := fmt.Sprintf("test-%s-%d", t.Name(), time.Now().UnixNano())
	schema := build(tableName)

	tm := NewTableManager(client)
	defer func() {
		if err := tm.Cleanup(ctx); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", tableName, err)
		}
	}()

	if err := tm.CreateSchemaTable(ctx, schema); err != nil {
		t.Fatalf("Failed to create test table %s: %v", tableName, err)
	}

	fn(schema)
}

// WithLocalDynamoDB runs a test function with a local DynamoDB instance,
// skipping the test when the instance is not reachable.
func WithLocalDynamoDB(t *testing.T, port int, fn func(local *LocalDynamoDB)) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	local := NewLocalDynamoDB(port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		t.Skipf("DynamoDB Local not available on port %d", port)
	}

	fn(local)
}

// WithDefaultLocalDynamoDB runs a test function with the default local
// DynamoDB instance on port 8000.
func WithDefaultLocalDynamoDB(t *testing.T, fn func(local *LocalDynamoDB)) {
	WithLocalDynamoDB(t, DefaultLocalPort, fn)
}

// IntegrationTestConfig holds configuration for integration tests.
type IntegrationTestConfig struct {
	Port             int
	SkipIfNotRunning bool
	TablePrefix      string
	CleanupTimeout   time.Duration
}

// DefaultIntegrationTestConfig returns a default configuration for
// integration tests.
func DefaultIntegrationTestConfig() *IntegrationTestConfig {
	return &IntegrationTestConfig{
		Port:             DefaultLocalPort,
		SkipIfNotRunning: true,
		TablePrefix:      "integration-test",
		CleanupTimeout:   30 * time.Second,
	}
}

// RunIntegrationTest runs an integration test against DynamoDB Local with a
// unique table name. The test function creates the table itself, typically
// through Session.CreateTable; the runner removes it afterwards when present.
func RunIntegrationTest(t *testing.T, config *IntegrationTestConfig, fn func(local *LocalDynamoDB, tableName string)) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	if config == nil {
		config = DefaultIntegrationTestConfig()
	}

	local := NewLocalDynamoDB(config.Port)
	ctx := context.Background()

	if !local.IsAvailable(ctx) {
		if config.SkipIfNotRunning {
			t.Skipf("DynamoDB Local not available on port %d", config.Port)
		} else {
			t.Fatalf("DynamoDB Local not available on port %d", config.Port)
		}
	}

	tableName := NewTestTable(config.TablePrefix)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), config.CleanupTimeout)
		defer cancel()

		if err := local.DeleteTable(cleanupCtx, tableName); err != nil {
			t.Errorf("Failed to cleanup table %s: %v", tableName, err)
		}
	}()

	fn(local, tableName)
}

// Seeder loads test data into one schema's table.
type Seeder struct {
	client dynattr.DynamoDBClient
	schema *dynattr.Schema
}

// NewSeeder creates a test data seeder for the given schema.
func NewSeeder(client dynattr.DynamoDBClient, schema *dynattr.Schema) *Seeder {
	return &Seeder{
		client: client,
		schema: schema,
	}
}

// SeedRecord cleans and stores a single record.
func (s *Seeder) SeedRecord(ctx context.Context, rec *dynattr.Record) error {
	if err := rec.Clean(); err != nil {
		return fmt.Errorf("failed to clean record: %w", err)
	}
	item, err := s.schema.MarshalItem(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return s.SeedItems(ctx, item)
}

// SeedRecords stores multiple records.
func (s *Seeder) SeedRecords(ctx context.Context, recs ...*dynattr.Record) error {
	for _, rec := range recs {
		if err := s.SeedRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// SeedValues builds a record from loose field values and stores it.
func (s *Seeder) SeedValues(ctx context.Context, values map[string]any) error {
	rec, err := s.schema.NewRecordFrom(values)
	if err != nil {
		return fmt.Errorf("failed to build record: %w", err)
	}
	return s.SeedRecord(ctx, rec)
}

// SeedItems stores already serialized wire items as they are, bypassing the
// schema's validation pipeline. Useful for planting malformed data.
func (s *Seeder) SeedItems(ctx context.Context, items ...dynattr.Item) error {
	for _, item := range items {
		_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.schema.TableName()),
			Item:      item,
		})
		if err != nil {
			return fmt.Errorf("failed to put item: %w", err)
		}
	}
	return nil
}

// SeedFromJSON reads a JSON array of objects keyed by binding name, builds a
// record from each through the schema's validation pipeline, and stores them.
// Returns the number of records saved.
func (s *Seeder) SeedFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	count := 0
	for i, row := range rows {
		if err := s.SeedValues(ctx, row); err != nil {
			return count, fmt.Errorf("failed to seed row %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

// SeedRawFromJSON reads a JSON array of objects keyed by wire name and stores
// each as an item using the SDK's generic attribute value marshaling, without
// consulting the schema's attributes at all. Numbers become N values, strings
// become S values, and so on. Useful for planting fixtures the schema would
// reject.
func (s *Seeder) SeedRawFromJSON(ctx context.Context, r io.Reader) (int, error) {
	var rows []map[string]any
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return 0, fmt.Errorf("failed to parse JSON document: %w", err)
	}

	count := 0
	for i, row := range rows {
		item, err := attributevalue.MarshalMap(row)
		if err != nil {
			return count, fmt.Errorf("failed to marshal row %d: %w", i, err)
		}
		if err := s.SeedItems(ctx, item); err != nil {
			return count, fmt.Errorf("failed to seed row %d: %w", i, err)
		}
		count++
	}
	return count, nil
}

// AssertTableExists verifies that a table exists.
func AssertTableExists(t *testing.T, client *dynamodb.Client, tableName string) {
	ctx := context.Background()

	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &tableName,
	})
	if err != nil {
		t.Errorf("Table %s does not exist: %v", tableName, err)
	}
}

// AssertTableNotExists verifies that a table does not exist.
func AssertTableNotExists(t *testing.T, client *dynamodb.Client, tableName string) {
	ctx := context.Background()

	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: &tableName,
	})
	if err == nil {
		t.Errorf("Table %s should not exist but it does", tableName)
	}
}
