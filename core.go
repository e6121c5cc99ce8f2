// Package dynattr provides a typed, schema-driven attribute mapping layer
// between Go record values and the AWS SDK for Go v2 DynamoDB wire format.
package dynattr

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// AttributeKind enumerates the wire-level value kinds supported by DynamoDB.
// The kind value is the tag carried by the serialized form of an attribute.
type AttributeKind string

const (
	KindNumber    AttributeKind = "N"
	KindString    AttributeKind = "S"
	KindBinary    AttributeKind = "B"
	KindBool      AttributeKind = "BOOL"
	KindList      AttributeKind = "L"
	KindMap       AttributeKind = "M"
	KindNumberSet AttributeKind = "NS"
	KindStringSet AttributeKind = "SS"
	KindBinarySet AttributeKind = "BS"
)

// Indexable reports whether values of this kind may participate in a table's
// primary key. DynamoDB only indexes number, string and binary attributes.
func (k AttributeKind) Indexable() bool {
	switch k {
	case KindNumber, KindString, KindBinary:
		return true
	}
	return false
}

// scalarType maps an indexable kind onto the SDK scalar type used in
// attribute definition entries.
func (k AttributeKind) scalarType() types.ScalarAttributeType {
	switch k {
	case KindNumber:
		return types.ScalarAttributeTypeN
	case KindBinary:
		return types.ScalarAttributeTypeB
	default:
		return types.ScalarAttributeTypeS
	}
}

// KeyRole identifies an attribute's position in the table's primary key.
type KeyRole string

const (
	KeyRoleNone  KeyRole = ""
	KeyRoleHash  KeyRole = "HASH"
	KeyRoleRange KeyRole = "RANGE"
)

func (r KeyRole) keyType() types.KeyType {
	if r == KeyRoleRange {
		return types.KeyTypeRange
	}
	return types.KeyTypeHash
}

// Item is an alias for the dynamodb attribute value map.
type Item = map[string]types.AttributeValue

// Clock is a function type that returns the current time for dependency injection.
type Clock func() time.Time

// DefaultClock returns the current UTC time.
func DefaultClock() time.Time {
	return time.Now().UTC()
}

// DynamoDBClient is the subset of the DynamoDB API consumed by a Session.
// It is satisfied by *dynamodb.Client and by the dynamock test doubles.
type DynamoDBClient interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}
