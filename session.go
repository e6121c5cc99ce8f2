package dynattr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// Session binds a transport client to table and item operations. Sessions are
// cheap; hold one per unit of work and Close it when done. All operations on
// a closed session fail with ErrSessionClosed.
type Session struct {
	log zerolog.Logger

	mu     sync.Mutex
	client DynamoDBClient
	closed bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger attaches a logger used to trace session operations at debug
// level. The default logger discards everything.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = logger }
}

// NewSession creates an open session over the given client.
func NewSession(client DynamoDBClient, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the session's client. Closing twice is a no-op. When the
// client implements io.Closer its Close error is returned; closing never
// fails otherwise.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	client := s.client
	s.client = nil
	s.log.Debug().Msg("session closed")
	if closer, ok := client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// active returns the transport client while the session remains open.
func (s *Session) active() (DynamoDBClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.client, nil
}

// DescribeTable returns the remote description of the named table. A table
// the remote store does not know maps to ErrTableNotFound; any other
// transport failure passes through unchanged.
func (s *Session) DescribeTable(ctx context.Context, name string) (*types.TableDescription, error) {
	client, err := s.active()
	if err != nil {
		return nil, err
	}
	out, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err != nil {
		return nil, translateError(err, name)
	}
	s.log.Debug().Str("table", name).Msg("described table")
	return out.Table, nil
}

type createTableOptions struct {
	throughput *types.ProvisionedThroughput
	skipExists bool
}

// CreateTableOption configures CreateTable.
type CreateTableOption func(*createTableOptions)

// WithProvisionedThroughput selects provisioned billing with the given read
// and write capacity units. Without it tables are created in pay-per-request
// mode.
func WithProvisionedThroughput(read, write int64) CreateTableOption {
	return func(o *createTableOptions) {
		o.throughput = &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(read),
			WriteCapacityUnits: aws.Int64(write),
		}
	}
}

// WithoutExistenceCheck skips the describe-first idempotency check, letting
// the remote store reject a table that already exists.
func WithoutExistenceCheck() CreateTableOption {
	return func(o *createTableOptions) { o.skipExists = true }
}

// CreateTable creates the schema's table from its key attributes. By default
// the table is described first and, when it already exists, the existing
// description is returned without issuing a create, so repeated calls are
// idempotent.
func (s *Session) CreateTable(ctx context.Context, schema *Schema, opts ...CreateTableOption) (*types.TableDescription, error) {
	if schema == nil {
		return nil, ErrNoSchema
	}
	var options createTableOptions
	for _, opt := range opts {
		opt(&options)
	}
	if !options.skipExists {
		desc, err := s.DescribeTable(ctx, schema.TableName())
		if err == nil {
			return desc, nil
		}
		if !errors.Is(err, ErrTableNotFound) {
			return nil, err
		}
	}
	client, err := s.active()
	if err != nil {
		return nil, err
	}
	input := &dynamodb.CreateTableInput{
		TableName:            aws.String(schema.TableName()),
		KeySchema:            schema.KeySchema(),
		AttributeDefinitions: schema.AttributeDefinitions(),
		BillingMode:          types.BillingModePayPerRequest,
	}
	if options.throughput != nil {
		input.BillingMode = types.BillingModeProvisioned
		input.ProvisionedThroughput = options.throughput
	}
	out, err := client.CreateTable(ctx, input)
	if err != nil {
		return nil, err
	}
	s.log.Debug().
		Str("table", schema.TableName()).
		Str("billing", string(input.BillingMode)).
		Msg("created table")
	return out.TableDescription, nil
}

type putOptions struct {
	skipClean bool
}

// PutOption configures PutItem.
type PutOption func(*putOptions)

// WithoutClean skips the validation pipeline before a put. Values still
// coerce into their wire forms during serialization.
func WithoutClean() PutOption {
	return func(o *putOptions) { o.skipClean = true }
}

// PutItem validates and stores a record, replacing any existing item with the
// same key. Validation failures abort the put before any transport call. A
// successful put clears the record's changed-field set.
func (s *Session) PutItem(ctx context.Context, r *Record, opts ...PutOption) error {
	if r == nil || r.Schema() == nil {
		return ErrNoSchema
	}
	var options putOptions
	for _, opt := range opts {
		opt(&options)
	}
	if !options.skipClean {
		if err := r.Clean(); err != nil {
			return err
		}
	}
	schema := r.Schema()
	item, err := schema.MarshalItem(r)
	if err != nil {
		return err
	}
	client, err := s.active()
	if err != nil {
		return err
	}
	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(schema.TableName()),
		Item:      item,
	})
	if err != nil {
		return translateError(err, schema.TableName())
	}
	s.log.Debug().
		Str("table", schema.TableName()).
		Int("attributes", len(item)).
		Msg("put item")
	r.ResetChanged()
	return nil
}

type getOptions struct {
	consistent bool
	projection []string
}

// GetOption configures GetItem.
type GetOption func(*getOptions)

// WithConsistentRead makes the get strongly consistent.
func WithConsistentRead() GetOption {
	return func(o *getOptions) { o.consistent = true }
}

// WithProjection narrows the get to the named fields. Names are binding
// names; they resolve to wire names when the request is built.
func WithProjection(fields ...string) GetOption {
	return func(o *getOptions) { o.projection = append(o.projection, fields...) }
}

// GetItem retrieves the record stored under the given key. A missing item
// yields ErrItemNotFound and a missing table yields ErrTableNotFound.
func (s *Session) GetItem(ctx context.Context, schema *Schema, key Key, opts ...GetOption) (*Record, error) {
	if schema == nil {
		return nil, ErrNoSchema
	}
	var options getOptions
	for _, opt := range opts {
		opt(&options)
	}
	wireKey, err := schema.MarshalKey(key)
	if err != nil {
		return nil, err
	}
	input := &dynamodb.GetItemInput{
		TableName: aws.String(schema.TableName()),
		Key:       wireKey,
	}
	if options.consistent {
		input.ConsistentRead = aws.Bool(true)
	}
	if len(options.projection) > 0 {
		proj, err := projectionOf(schema, options.projection)
		if err != nil {
			return nil, err
		}
		expr, err := expression.NewBuilder().WithProjection(proj).Build()
		if err != nil {
			return nil, fmt.Errorf("dynattr: failed to build projection: %w", err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}
	client, err := s.active()
	if err != nil {
		return nil, err
	}
	out, err := client.GetItem(ctx, input)
	if err != nil {
		return nil, translateError(err, schema.TableName())
	}
	if len(out.Item) == 0 {
		return nil, ErrItemNotFound
	}
	s.log.Debug().Str("table", schema.TableName()).Msg("got item")
	return schema.UnmarshalItem(out.Item)
}

func projectionOf(schema *Schema, fields []string) (expression.ProjectionBuilder, error) {
	var proj expression.ProjectionBuilder
	for _, field := range fields {
		attr := schema.Attribute(field)
		if attr == nil {
			return proj, fmt.Errorf("dynattr: schema %s has no field %q", schema.TableName(), field)
		}
		proj = proj.AddNames(expression.Name(attr.Name()))
	}
	return proj, nil
}

// DeleteItem removes the item identified by the record's key attributes.
// Deleting something already absent, including from a table that does not
// exist, succeeds as a no-op.
func (s *Session) DeleteItem(ctx context.Context, r *Record) error {
	if r == nil || r.Schema() == nil {
		return ErrNoSchema
	}
	schema := r.Schema()
	key, err := schema.RecordKey(r)
	if err != nil {
		return err
	}
	wireKey, err := schema.MarshalKey(key)
	if err != nil {
		return err
	}
	client, err := s.active()
	if err != nil {
		return err
	}
	_, err = client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(schema.TableName()),
		Key:       wireKey,
	})
	if err != nil {
		if errors.Is(translateError(err, schema.TableName()), ErrTableNotFound) {
			return nil
		}
		return err
	}
	s.log.Debug().Str("table", schema.TableName()).Msg("deleted item")
	return nil
}

// Scan returns a filter over every item in the schema's table.
func (s *Session) Scan(schema *Schema) Filter {
	return Filter{session: s, schema: schema, op: opScan}
}

// Query returns a filter over the schema's table driven by a key condition.
// Use Filter.Key to supply the hash key value before iterating.
func (s *Session) Query(schema *Schema) Filter {
	return Filter{session: s, schema: schema, op: opQuery}
}
