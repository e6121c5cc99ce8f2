package dynattr

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// String declares a string attribute. Values are Go strings; byte slices and
// fmt.Stringer implementations coerce, anything else is rejected.
func String(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, stringConverter{}, opts...)
}

// Integer declares a number attribute holding int64 values.
func Integer(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, intConverter{}, opts...)
}

// Float declares a number attribute holding float64 values.
func Float(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, floatConverter{}, opts...)
}

// Boolean declares a boolean attribute. The integers 0 and 1 coerce.
func Boolean(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, boolConverter{}, opts...)
}

// Binary declares a binary attribute holding byte slices. The wire payload is
// the hex encoding of the value, so items remain readable in the console.
func Binary(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, binaryConverter{}, opts...)
}

// DateTime declares a string attribute holding time.Time values serialized in
// RFC 3339 form with nanosecond precision.
func DateTime(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, timeConverter{}, opts...)
}

// UUID declares a string attribute holding uuid.UUID values.
func UUID(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, uuidConverter{}, opts...)
}

// URL declares a string attribute holding *url.URL values.
func URL(field string, opts ...AttributeOption) *Attribute {
	return NewAttribute(field, urlConverter{}, opts...)
}

// NewUUID is a default factory producing a random UUID per record, typically
// paired with a hash key:
//
//	dynattr.UUID("id", dynattr.HashKey(), dynattr.WithDefaultFactory(dynattr.NewUUID))
func NewUUID() any { return uuid.New() }

// TimeNow returns a default factory producing timestamps from tick. Tests
// inject a fixed clock; production code passes DefaultClock.
func TimeNow(tick Clock) func() any {
	return func() any { return tick() }
}

type stringConverter struct{}

func (stringConverter) Kind() AttributeKind { return KindString }

func (stringConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid string"}}
}

func (c stringConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberS{Value: v.(string)}, nil
}

func (stringConverter) Unwire(av types.AttributeValue) (any, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return nil, &MalformedWireError{Want: KindString, Got: wireTag(av)}
	}
	return s.Value, nil
}

type intConverter struct{}

func (intConverter) Kind() AttributeKind { return KindNumber }

func (intConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid integer"}}
		}
		return n, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid integer"}}
}

func (c intConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v.(int64), 10)}, nil
}

func (intConverter) Unwire(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, &MalformedWireError{Want: KindNumber, Got: wireTag(av)}
	}
	return n.Value, nil
}

type floatConverter struct{}

func (floatConverter) Kind() AttributeKind { return KindNumber }

func (floatConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid float"}}
		}
		return f, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid float"}}
}

func (c floatConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberN{Value: formatFloat(v.(float64))}, nil
}

func (floatConverter) Unwire(av types.AttributeValue) (any, error) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return nil, &MalformedWireError{Want: KindNumber, Got: wireTag(av)}
	}
	return n.Value, nil
}

// formatFloat renders floats without exponent notation, which keeps every
// value inside the wire grammar the remote store accepts.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

type boolConverter struct{}

func (boolConverter) Kind() AttributeKind { return KindBool }

func (boolConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case int64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	case float64:
		if v == 0 || v == 1 {
			return v == 1, nil
		}
	}
	return nil, &ValidationError{Messages: []string{"Invalid bool"}}
}

func (c boolConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberBOOL{Value: v.(bool)}, nil
}

func (boolConverter) Unwire(av types.AttributeValue) (any, error) {
	b, ok := av.(*types.AttributeValueMemberBOOL)
	if !ok {
		return nil, &MalformedWireError{Want: KindBool, Got: wireTag(av)}
	}
	return b.Value, nil
}

type binaryConverter struct{}

func (binaryConverter) Kind() AttributeKind { return KindBinary }

func (binaryConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		b, err := hex.DecodeString(v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid binary"}}
		}
		return b, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid binary"}}
}

func (c binaryConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	encoded := hex.EncodeToString(v.([]byte))
	return &types.AttributeValueMemberB{Value: []byte(encoded)}, nil
}

func (binaryConverter) Unwire(av types.AttributeValue) (any, error) {
	b, ok := av.(*types.AttributeValueMemberB)
	if !ok {
		return nil, &MalformedWireError{Want: KindBinary, Got: wireTag(av)}
	}
	return string(b.Value), nil
}

type timeConverter struct{}

func (timeConverter) Kind() AttributeKind { return KindString }

func (timeConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return v, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid date-time"}}
		}
		return t, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid date-time"}}
}

func (c timeConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberS{Value: v.(time.Time).Format(time.RFC3339Nano)}, nil
}

func (timeConverter) Unwire(av types.AttributeValue) (any, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return nil, &MalformedWireError{Want: KindString, Got: wireTag(av)}
	}
	return s.Value, nil
}

type uuidConverter struct{}

func (uuidConverter) Kind() AttributeKind { return KindString }

func (uuidConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid UUID"}}
		}
		return id, nil
	case []byte:
		id, err := uuid.FromBytes(v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid UUID"}}
		}
		return id, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid UUID"}}
}

func (c uuidConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	return &types.AttributeValueMemberS{Value: v.(uuid.UUID).String()}, nil
}

func (uuidConverter) Unwire(av types.AttributeValue) (any, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return nil, &MalformedWireError{Want: KindString, Got: wireTag(av)}
	}
	return s.Value, nil
}

type urlConverter struct{}

func (urlConverter) Kind() AttributeKind { return KindString }

func (urlConverter) CleanValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case *url.URL:
		if v == nil {
			return nil, nil
		}
		return v, nil
	case string:
		u, err := url.Parse(v)
		if err != nil {
			return nil, &ValidationError{Messages: []string{"Invalid URL"}}
		}
		return u, nil
	}
	return nil, &ValidationError{Messages: []string{"Invalid URL"}}
}

func (c urlConverter) Wire(value any) (types.AttributeValue, error) {
	v, err := c.CleanValue(value)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	return &types.AttributeValueMemberS{Value: v.(*url.URL).String()}, nil
}

func (urlConverter) Unwire(av types.AttributeValue) (any, error) {
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return nil, &MalformedWireError{Want: KindString, Got: wireTag(av)}
	}
	return s.Value, nil
}
