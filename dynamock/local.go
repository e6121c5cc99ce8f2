package dynamock

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynattr"
)

// DefaultLocalPort is the default port for DynamoDB Local.
const DefaultLocalPort = 8000

// LocalDynamoDB represents a connection to a local DynamoDB instance.
type LocalDynamoDB struct {
	Client   *dynamodb.Client
	Endpoint string
	Port     int
}

// NewLocalClient creates a DynamoDB client configured to connect to a local
// DynamoDB instance. This is useful for integration testing with DynamoDB
// Local.
//
// Example usage:
//
//	client := dynamock.NewLocalClient(8000)
//	session := dynattr.NewSession(client)
func NewLocalClient(port int) *dynamodb.Client {
	endpoint := fmt.Sprintf("http://localhost:%d", port)

	cfg := aws.Config{
		Region:      "us-east-1", // DynamoDB Local doesn't care about region
		Credentials: aws.AnonymousCredentials{},
		EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{
					URL:           endpoint,
					SigningRegion: region,
				}, nil
			},
		),
	}

	return dynamodb.NewFromConfig(cfg)
}

// NewLocalClientFromConfig creates a local DynamoDB client using the provided
// AWS config, overriding its endpoint and credentials for local use.
func NewLocalClientFromConfig(cfg aws.Config, port int) *dynamodb.Client {
	endpoint := fmt.Sprintf("http://localhost:%d", port)

	cfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		},
	)
	cfg.Credentials = aws.AnonymousCredentials{}

	return dynamodb.NewFromConfig(cfg)
}

// MustNewLocalClient creates a local DynamoDB client and panics if the
// instance cannot be reached. Useful for test setup that should fail fast.
func MustNewLocalClient(port int) *dynamodb.Client {
	client := NewLocalClient(port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{}); err != nil {
		panic(fmt.Sprintf("failed to connect to DynamoDB Local on port %d: %v", port, err))
	}
	return client
}

// NewLocalDynamoDB creates a LocalDynamoDB instance with the specified port.
// This provides table lifecycle utilities beyond just the client.
func NewLocalDynamoDB(port int) *LocalDynamoDB {
	return &LocalDynamoDB{
		Client:   NewLocalClient(port),
		Endpoint: fmt.Sprintf("http://localhost:%d", port),
		Port:     port,
	}
}

// NewDefaultLocalClient creates a local DynamoDB client using the default port.
func NewDefaultLocalClient() *dynamodb.Client {
	return NewLocalClient(DefaultLocalPort)
}

// NewDefaultLocalDynamoDB creates a LocalDynamoDB instance using the default port.
func NewDefaultLocalDynamoDB() *LocalDynamoDB {
	return NewLocalDynamoDB(DefaultLocalPort)
}

// IsAvailable checks if DynamoDB Local is running on the configured port.
func (l *LocalDynamoDB) IsAvailable(ctx context.Context) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", l.Port), 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()

	// A listening port is not enough; make sure it speaks DynamoDB
	_, err = l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	return err == nil
}

// WaitForAvailable waits for DynamoDB Local to become available, returning an
// error if it does not within the timeout.
func (l *LocalDynamoDB) WaitForAvailable(ctx context.Context, timeout time.Duration) error {
	err := waitUntil(ctx, timeout, 500*time.Millisecond, func(ctx context.Context) (bool, error) {
		return l.IsAvailable(ctx), nil
	})
	if errors.Is(err, errWaitTimeout) {
		return fmt.Errorf("DynamoDB Local not available at %s after %v", l.Endpoint, timeout)
	}
	return err
}

// CreateSchemaTable creates the table described by the schema's key attributes
// and waits for it to become active. Convenience for integration tests that
// want a table without going through a session.
func (l *LocalDynamoDB) CreateSchemaTable(ctx context.Context, schema *dynattr.Schema) error {
	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(schema.TableName()),
		KeySchema:            schema.KeySchema(),
		AttributeDefinitions: schema.AttributeDefinitions(),
		BillingMode:          types.BillingModePayPerRequest,
	}
	if _, err := l.Client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create table %s: %w", schema.TableName(), err)
	}
	return l.WaitForTableActive(ctx, schema.TableName(), 30*time.Second)
}

// WaitForTableActive waits for a table to become active.
func (l *LocalDynamoDB) WaitForTableActive(ctx context.Context, tableName string, timeout time.Duration) error {
	err := waitUntil(ctx, timeout, time.Second, func(ctx context.Context) (bool, error) {
		out, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			return false, fmt.Errorf("failed to describe table %s: %w", tableName, err)
		}
		return out.Table.TableStatus == types.TableStatusActive, nil
	})
	if errors.Is(err, errWaitTimeout) {
		return fmt.Errorf("table %s did not become active within %v", tableName, timeout)
	}
	return err
}

// DeleteTable deletes a table and waits for it to be fully removed. Deleting
// a table that does not exist is a no-op.
func (l *LocalDynamoDB) DeleteTable(ctx context.Context, tableName string) error {
	_, err := l.Client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}
	return l.WaitForTableDeleted(ctx, tableName, 30*time.Second)
}

// WaitForTableDeleted waits for a table to be fully deleted.
func (l *LocalDynamoDB) WaitForTableDeleted(ctx context.Context, tableName string, timeout time.Duration) error {
	err := waitUntil(ctx, timeout, time.Second, func(ctx context.Context) (bool, error) {
		_, err := l.Client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
			TableName: aws.String(tableName),
		})
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return true, nil
			}
			return false, fmt.Errorf("error checking table deletion status: %w", err)
		}
		return false, nil
	})
	if errors.Is(err, errWaitTimeout) {
		return fmt.Errorf("table %s was not deleted within %v", tableName, timeout)
	}
	return err
}

// ListTables returns all table names in the local DynamoDB instance.
func (l *LocalDynamoDB) ListTables(ctx context.Context) ([]string, error) {
	out, err := l.Client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return out.TableNames, nil
}

// Cleanup deletes every table in the local DynamoDB instance. Useful for
// cleaning up after integration tests.
func (l *LocalDynamoDB) Cleanup(ctx context.Context) error {
	tables, err := l.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables for cleanup: %w", err)
	}
	for _, tableName := range tables {
		if err := l.DeleteTable(ctx, tableName); err != nil {
			return fmt.Errorf("failed to delete table %s during cleanup: %w", tableName, err)
		}
	}
	return nil
}

var errWaitTimeout = errors.New("dynamock: wait timed out")

// waitUntil polls check every interval until it reports done, fails, or the
// timeout elapses.
func waitUntil(ctx context.Context, timeout, interval time.Duration, check func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return errWaitTimeout
}
