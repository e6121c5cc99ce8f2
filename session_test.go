package dynattr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// stubClient fakes the transport one operation at a time. A test sets the
// function fields it expects to be exercised; calling anything else fails.
type stubClient struct {
	createTable   func(*dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error)
	describeTable func(*dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error)
	putItem       func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	getItem       func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	deleteItem    func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	scan          func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	query         func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
}

func (c *stubClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if c.createTable == nil {
		return nil, errors.New("unexpected CreateTable call")
	}
	return c.createTable(params)
}

func (c *stubClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if c.describeTable == nil {
		return nil, errors.New("unexpected DescribeTable call")
	}
	return c.describeTable(params)
}

func (c *stubClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if c.putItem == nil {
		return nil, errors.New("unexpected PutItem call")
	}
	return c.putItem(params)
}

func (c *stubClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if c.getItem == nil {
		return nil, errors.New("unexpected GetItem call")
	}
	return c.getItem(params)
}

func (c *stubClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if c.deleteItem == nil {
		return nil, errors.New("unexpected DeleteItem call")
	}
	return c.deleteItem(params)
}

func (c *stubClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if c.scan == nil {
		return nil, errors.New("unexpected Scan call")
	}
	return c.scan(params)
}

func (c *stubClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if c.query == nil {
		return nil, errors.New("unexpected Query call")
	}
	return c.query(params)
}

func notFoundError() error {
	return &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
}

func notesSchema() *Schema {
	return MustSchema("notes",
		String("id", HashKey()),
		String("title"),
		Integer("views"),
	)
}

func TestSessionClose(t *testing.T) {
	t.Run("closing twice is a no-op", func(t *testing.T) {
		session := NewSession(&stubClient{})
		if err := session.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if err := session.Close(); err != nil {
			t.Errorf("Second close failed: %v", err)
		}
	})

	t.Run("operations after close fail", func(t *testing.T) {
		schema := notesSchema()
		session := NewSession(&stubClient{})
		session.Close()

		if _, err := session.DescribeTable(context.Background(), "notes"); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
		if _, err := session.CreateTable(context.Background(), schema, WithoutExistenceCheck()); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
		r := schema.NewRecord()
		r.Set("id", "n1")
		if err := session.PutItem(context.Background(), r); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
		if _, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"}); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
		if err := session.DeleteItem(context.Background(), r); !errors.Is(err, ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
	})

	t.Run("close releases a closable client", func(t *testing.T) {
		client := &closableClient{}
		session := NewSession(client)
		if err := session.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		if !client.closed {
			t.Error("Expected client to be closed")
		}
	})
}

type closableClient struct {
	stubClient
	closed bool
}

func (c *closableClient) Close() error {
	c.closed = true
	return nil
}

func TestDescribeTable(t *testing.T) {
	t.Run("returns the remote description", func(t *testing.T) {
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				if *params.TableName != "notes" {
					t.Errorf("Expected table 'notes', got %s", *params.TableName)
				}
				return &dynamodb.DescribeTableOutput{
					Table: &types.TableDescription{TableName: aws.String("notes")},
				}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		desc, err := session.DescribeTable(context.Background(), "notes")
		if err != nil {
			t.Fatalf("DescribeTable failed: %v", err)
		}
		if *desc.TableName != "notes" {
			t.Errorf("Expected 'notes', got %s", *desc.TableName)
		}
	})

	t.Run("missing table maps to ErrTableNotFound", func(t *testing.T) {
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				return nil, notFoundError()
			},
		}
		session := NewSession(client)
		defer session.Close()

		_, err := session.DescribeTable(context.Background(), "gone")
		if !errors.Is(err, ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("other transport errors pass through", func(t *testing.T) {
		boom := errors.New("throttled")
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				return nil, boom
			},
		}
		session := NewSession(client)
		defer session.Close()

		_, err := session.DescribeTable(context.Background(), "notes")
		if !errors.Is(err, boom) {
			t.Errorf("Expected throttled error, got %v", err)
		}
	})
}

func TestCreateTable(t *testing.T) {
	t.Run("returns the existing table without creating", func(t *testing.T) {
		describes := 0
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				describes++
				return &dynamodb.DescribeTableOutput{
					Table: &types.TableDescription{TableName: params.TableName},
				}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		desc, err := session.CreateTable(context.Background(), notesSchema())
		if err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}
		if *desc.TableName != "notes" {
			t.Errorf("Expected 'notes', got %s", *desc.TableName)
		}
		if describes != 1 {
			t.Errorf("Expected 1 describe, got %d", describes)
		}
	})

	t.Run("creates a missing table in pay-per-request mode", func(t *testing.T) {
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				return nil, notFoundError()
			},
			createTable: func(params *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
				if *params.TableName != "notes" {
					t.Errorf("Expected table 'notes', got %s", *params.TableName)
				}
				if params.BillingMode != types.BillingModePayPerRequest {
					t.Errorf("Expected pay-per-request billing, got %s", params.BillingMode)
				}
				if len(params.KeySchema) != 1 || *params.KeySchema[0].AttributeName != "id" {
					t.Errorf("Unexpected key schema %v", params.KeySchema)
				}
				if len(params.AttributeDefinitions) != 1 {
					t.Errorf("Expected 1 definition, got %d", len(params.AttributeDefinitions))
				}
				return &dynamodb.CreateTableOutput{
					TableDescription: &types.TableDescription{TableName: params.TableName},
				}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		desc, err := session.CreateTable(context.Background(), notesSchema())
		if err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}
		if *desc.TableName != "notes" {
			t.Errorf("Expected 'notes', got %s", *desc.TableName)
		}
	})

	t.Run("repeated calls issue at most one create", func(t *testing.T) {
		creates := 0
		var created *types.TableDescription
		client := &stubClient{}
		client.describeTable = func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
			if created == nil {
				return nil, notFoundError()
			}
			return &dynamodb.DescribeTableOutput{Table: created}, nil
		}
		client.createTable = func(params *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
			creates++
			created = &types.TableDescription{TableName: params.TableName}
			return &dynamodb.CreateTableOutput{TableDescription: created}, nil
		}
		session := NewSession(client)
		defer session.Close()

		schema := notesSchema()
		for i := 0; i < 2; i++ {
			desc, err := session.CreateTable(context.Background(), schema)
			if err != nil {
				t.Fatalf("CreateTable %d failed: %v", i, err)
			}
			if desc == nil {
				t.Fatalf("CreateTable %d returned no description", i)
			}
		}
		if creates != 1 {
			t.Errorf("Expected 1 create, got %d", creates)
		}
	})

	t.Run("provisioned billing carries capacity units", func(t *testing.T) {
		client := &stubClient{
			createTable: func(params *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
				if params.BillingMode != types.BillingModeProvisioned {
					t.Errorf("Expected provisioned billing, got %s", params.BillingMode)
				}
				tp := params.ProvisionedThroughput
				if tp == nil || *tp.ReadCapacityUnits != 5 || *tp.WriteCapacityUnits != 10 {
					t.Errorf("Unexpected throughput %v", tp)
				}
				return &dynamodb.CreateTableOutput{
					TableDescription: &types.TableDescription{TableName: params.TableName},
				}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		_, err := session.CreateTable(context.Background(), notesSchema(),
			WithProvisionedThroughput(5, 10), WithoutExistenceCheck())
		if err != nil {
			t.Fatalf("CreateTable failed: %v", err)
		}
	})

	t.Run("propagates describe failures other than not-found", func(t *testing.T) {
		boom := errors.New("denied")
		client := &stubClient{
			describeTable: func(params *dynamodb.DescribeTableInput) (*dynamodb.DescribeTableOutput, error) {
				return nil, boom
			},
		}
		session := NewSession(client)
		defer session.Close()

		if _, err := session.CreateTable(context.Background(), notesSchema()); !errors.Is(err, boom) {
			t.Errorf("Expected denied error, got %v", err)
		}
	})

	t.Run("requires a schema", func(t *testing.T) {
		session := NewSession(&stubClient{})
		defer session.Close()
		if _, err := session.CreateTable(context.Background(), nil); !errors.Is(err, ErrNoSchema) {
			t.Errorf("Expected ErrNoSchema, got %v", err)
		}
	})
}

func TestPutItem(t *testing.T) {
	t.Run("assigns defaults and transmits every attribute", func(t *testing.T) {
		fixedTime := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		schema := MustSchema("records",
			UUID("id", HashKey(), WithDefaultFactory(NewUUID)),
			DateTime("created", RangeKey(), WithDefaultFactory(TimeNow(func() time.Time { return fixedTime }))),
			Integer("age"),
		)
		var sent Item
		client := &stubClient{
			putItem: func(params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				sent = params.Item
				return &dynamodb.PutItemOutput{}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("age", 10)
		if err := session.PutItem(context.Background(), r); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}

		if len(sent) != 3 {
			t.Fatalf("Expected 3 attributes, got %d", len(sent))
		}
		id := sent["id"].(*types.AttributeValueMemberS)
		if _, err := uuid.Parse(id.Value); err != nil {
			t.Errorf("Expected generated UUID, got %s", id.Value)
		}
		created := sent["created"].(*types.AttributeValueMemberS)
		if created.Value != "2025-03-01T00:00:00Z" {
			t.Errorf("Expected fixed timestamp, got %s", created.Value)
		}
		age := sent["age"].(*types.AttributeValueMemberN)
		if age.Value != "10" {
			t.Errorf("Expected '10', got %s", age.Value)
		}
	})

	t.Run("validation failures abort before the transport", func(t *testing.T) {
		schema := notesSchema()
		session := NewSession(&stubClient{})
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "n1")
		r.Set("views", "many")

		err := session.PutItem(context.Background(), r)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected validation error, got %v", err)
		}
		if verr.Field("views") == nil {
			t.Errorf("Expected views failure, got %v", verr)
		}
	})

	t.Run("a successful put resets change tracking", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			putItem: func(params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				return &dynamodb.PutItemOutput{}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "n1")
		r.Set("views", int64(1))
		if err := session.PutItem(context.Background(), r); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
		if len(r.Changed()) != 0 {
			t.Errorf("Expected no changed fields, got %v", r.Changed())
		}
	})

	t.Run("WithoutClean skips validators but still coerces", func(t *testing.T) {
		schema := MustSchema("users",
			String("name", HashKey(), WithValidators(MinLength(5))),
			Integer("logins"),
		)
		var sent Item
		client := &stubClient{
			putItem: func(params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				sent = params.Item
				return &dynamodb.PutItemOutput{}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("name", "ab")
		r.Set("logins", "7")
		if err := session.PutItem(context.Background(), r, WithoutClean()); err != nil {
			t.Fatalf("PutItem failed: %v", err)
		}
		if name := sent["name"].(*types.AttributeValueMemberS); name.Value != "ab" {
			t.Errorf("Expected 'ab', got %s", name.Value)
		}
		if logins := sent["logins"].(*types.AttributeValueMemberN); logins.Value != "7" {
			t.Errorf("Expected '7', got %s", logins.Value)
		}
	})

	t.Run("missing table maps to ErrTableNotFound", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			putItem: func(params *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
				return nil, notFoundError()
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "n1")
		if err := session.PutItem(context.Background(), r); !errors.Is(err, ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("requires a schema-bound record", func(t *testing.T) {
		session := NewSession(&stubClient{})
		defer session.Close()
		if err := session.PutItem(context.Background(), nil); !errors.Is(err, ErrNoSchema) {
			t.Errorf("Expected ErrNoSchema, got %v", err)
		}
	})
}

func TestGetItem(t *testing.T) {
	stored := Item{
		"id":    &types.AttributeValueMemberS{Value: "n1"},
		"title": &types.AttributeValueMemberS{Value: "first"},
		"views": &types.AttributeValueMemberN{Value: "3"},
	}

	t.Run("decodes the stored item", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			getItem: func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				if *params.TableName != "notes" {
					t.Errorf("Expected table 'notes', got %s", *params.TableName)
				}
				if id := params.Key["id"].(*types.AttributeValueMemberS); id.Value != "n1" {
					t.Errorf("Expected key 'n1', got %s", id.Value)
				}
				if params.ConsistentRead != nil {
					t.Error("Expected eventually consistent read by default")
				}
				return &dynamodb.GetItemOutput{Item: stored}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"})
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if r.Get("title") != "first" || r.Get("views") != int64(3) {
			t.Errorf("Unexpected values: %v, %v", r.Get("title"), r.Get("views"))
		}
		if len(r.Changed()) != 0 {
			t.Errorf("Expected loaded record unchanged, got %v", r.Changed())
		}
	})

	t.Run("missing item yields ErrItemNotFound", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			getItem: func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return &dynamodb.GetItemOutput{}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		if _, err := session.GetItem(context.Background(), schema, Key{Hash: "gone"}); !errors.Is(err, ErrItemNotFound) {
			t.Errorf("Expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("consistent reads set the flag", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			getItem: func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				if params.ConsistentRead == nil || !*params.ConsistentRead {
					t.Error("Expected consistent read")
				}
				return &dynamodb.GetItemOutput{Item: stored}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		if _, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"}, WithConsistentRead()); err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
	})

	t.Run("projections resolve binding names to wire names", func(t *testing.T) {
		schema := MustSchema("notes",
			String("id", HashKey()),
			String("title", WithWireName("t")),
		)
		client := &stubClient{
			getItem: func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				if params.ProjectionExpression == nil {
					t.Fatal("Expected a projection expression")
				}
				found := false
				for _, name := range params.ExpressionAttributeNames {
					if name == "t" {
						found = true
					}
				}
				if !found {
					t.Errorf("Expected wire name 't' in %v", params.ExpressionAttributeNames)
				}
				return &dynamodb.GetItemOutput{Item: Item{
					"t": &types.AttributeValueMemberS{Value: "first"},
				}}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"}, WithProjection("title"))
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if r.Get("title") != "first" {
			t.Errorf("Expected projected title, got %v", r.Get("title"))
		}
		if r.Get("id") != nil {
			t.Errorf("Expected id unset on projected read, got %v", r.Get("id"))
		}
	})

	t.Run("rejects projections of unknown fields", func(t *testing.T) {
		schema := notesSchema()
		session := NewSession(&stubClient{})
		defer session.Close()

		if _, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"}, WithProjection("missing")); err == nil {
			t.Error("Expected error for unknown projection field")
		}
	})

	t.Run("missing table maps to ErrTableNotFound", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			getItem: func(params *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
				return nil, notFoundError()
			},
		}
		session := NewSession(client)
		defer session.Close()

		if _, err := session.GetItem(context.Background(), schema, Key{Hash: "n1"}); !errors.Is(err, ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
	})
}

func TestDeleteItem(t *testing.T) {
	t.Run("issues a delete for the record key", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			deleteItem: func(params *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
				if *params.TableName != "notes" {
					t.Errorf("Expected table 'notes', got %s", *params.TableName)
				}
				if id := params.Key["id"].(*types.AttributeValueMemberS); id.Value != "n1" {
					t.Errorf("Expected key 'n1', got %s", id.Value)
				}
				if len(params.Key) != 1 {
					t.Errorf("Expected 1 key entry, got %d", len(params.Key))
				}
				return &dynamodb.DeleteItemOutput{}, nil
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "n1")
		r.Set("title", "first")
		if err := session.DeleteItem(context.Background(), r); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}
	})

	t.Run("missing table is a successful no-op", func(t *testing.T) {
		schema := notesSchema()
		client := &stubClient{
			deleteItem: func(params *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
				return nil, notFoundError()
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "gone")
		if err := session.DeleteItem(context.Background(), r); err != nil {
			t.Errorf("Expected no-op, got %v", err)
		}
	})

	t.Run("other transport errors pass through", func(t *testing.T) {
		schema := notesSchema()
		boom := errors.New("throttled")
		client := &stubClient{
			deleteItem: func(params *dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error) {
				return nil, boom
			},
		}
		session := NewSession(client)
		defer session.Close()

		r := schema.NewRecord()
		r.Set("id", "n1")
		if err := session.DeleteItem(context.Background(), r); !errors.Is(err, boom) {
			t.Errorf("Expected throttled error, got %v", err)
		}
	})

	t.Run("requires key values before the transport", func(t *testing.T) {
		schema := notesSchema()
		session := NewSession(&stubClient{})
		defer session.Close()

		r := schema.NewRecord()
		if err := session.DeleteItem(context.Background(), r); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Expected ErrInvalidKey, got %v", err)
		}
	})
}
