package dynattr

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Converter implements the kind-specific behavior of an attribute: coercing
// arbitrary input into the attribute's value type and translating values to
// and from their tagged wire form.
//
// Implementations must be stateless; one converter instance is shared by every
// record of the schema its attribute is bound to.
type Converter interface {
	// Kind returns the wire kind produced by Wire.
	Kind() AttributeKind

	// CleanValue coerces raw into the converter's value type. A nil input
	// passes through untouched for scalar kinds; set and list kinds turn it
	// into an empty collection. Input that cannot be coerced fails with a
	// ValidationError.
	CleanValue(raw any) (any, error)

	// Wire translates a value into its tagged wire form. Implementations
	// coerce first, so loosely typed values serialize the same way cleaned
	// ones do.
	Wire(value any) (types.AttributeValue, error)

	// Unwire extracts the raw payload from a tagged wire value. A value
	// carrying a different tag than Kind fails with a MalformedWireError.
	Unwire(av types.AttributeValue) (any, error)
}

// Attribute is a named, typed field descriptor. One attribute instance
// describes the same field for every record of the schema it is bound to; it
// carries configuration and behavior, never per-record state.
type Attribute struct {
	field      string // binding name used to address the value on a record
	wireName   string // serialized name, defaults to the binding name
	keyRole    KeyRole
	notNull    bool
	defValue   any
	defFactory func() any
	validators []Validator
	conv       Converter
	schema     string // table name of the owning schema, set when bound
}

// AttributeOption configures an Attribute during construction.
type AttributeOption func(*Attribute)

// WithWireName overrides the serialized name of the attribute. Without it the
// binding name doubles as the wire name.
func WithWireName(name string) AttributeOption {
	return func(a *Attribute) { a.wireName = name }
}

// HashKey marks the attribute as the table's hash (partition) key.
func HashKey() AttributeOption {
	return func(a *Attribute) { a.keyRole = KeyRoleHash }
}

// RangeKey marks the attribute as the table's range (sort) key.
func RangeKey() AttributeOption {
	return func(a *Attribute) { a.keyRole = KeyRoleRange }
}

// NotNull makes a nil value fail validation at clean time.
func NotNull() AttributeOption {
	return func(a *Attribute) { a.notNull = true }
}

// WithDefault supplies a value substituted for nil at clean time. Mutually
// exclusive with WithDefaultFactory.
func WithDefault(v any) AttributeOption {
	return func(a *Attribute) { a.defValue = v }
}

// WithDefaultFactory supplies a function invoked at clean time to produce a
// value for a nil field. Mutually exclusive with WithDefault.
func WithDefaultFactory(fn func() any) AttributeOption {
	return func(a *Attribute) { a.defFactory = fn }
}

// WithValidators appends validators run, in order, after a value cleans
// successfully. Validator failures accumulate; a later validator still runs
// when an earlier one fails.
func WithValidators(v ...Validator) AttributeOption {
	return func(a *Attribute) { a.validators = append(a.validators, v...) }
}

// NewAttribute creates an attribute with the given binding name and converter.
// The built-in constructors such as String and Integer cover the standard
// kinds; NewAttribute is the extension point for custom value types. An
// attribute only becomes usable once bound to a schema by NewSchema.
func NewAttribute(field string, conv Converter, opts ...AttributeOption) *Attribute {
	a := &Attribute{field: field, conv: conv}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FieldName returns the binding name used to address the value on a record.
func (a *Attribute) FieldName() string { return a.field }

// Name returns the attribute's wire name.
func (a *Attribute) Name() string {
	if a.wireName != "" {
		return a.wireName
	}
	return a.field
}

// Kind returns the wire kind this attribute serializes to.
func (a *Attribute) Kind() AttributeKind { return a.conv.Kind() }

// KeyRole returns the attribute's role in the primary key, if any.
func (a *Attribute) KeyRole() KeyRole { return a.keyRole }

// bind attaches the attribute to its owning schema. Binding happens exactly
// once; sharing an attribute instance between schemas is a definition error.
func (a *Attribute) bind(schema string) error {
	if a.conv == nil {
		return &SchemaError{Schema: schema, Attribute: a.field, Reason: "nil converter"}
	}
	if a.schema != "" {
		return &SchemaError{Schema: schema, Attribute: a.field,
			Reason: "already bound to schema " + a.schema}
	}
	if a.keyRole != KeyRoleNone && !a.Kind().Indexable() {
		return &SchemaError{Schema: schema, Attribute: a.field,
			Reason: fmt.Sprintf("kind %s cannot be used as a %s key", a.Kind(), a.keyRole)}
	}
	if a.defValue != nil && a.defFactory != nil {
		return &SchemaError{Schema: schema, Attribute: a.field,
			Reason: "default and default factory are mutually exclusive"}
	}
	a.schema = schema
	return nil
}

// KeySchema returns the key schema entry for this attribute, or false when it
// holds no key role.
func (a *Attribute) KeySchema() (types.KeySchemaElement, bool) {
	if a.keyRole == KeyRoleNone {
		return types.KeySchemaElement{}, false
	}
	return types.KeySchemaElement{
		AttributeName: aws.String(a.Name()),
		KeyType:       a.keyRole.keyType(),
	}, true
}

// Definition returns the attribute definition entry used when creating tables.
func (a *Attribute) Definition() types.AttributeDefinition {
	return types.AttributeDefinition{
		AttributeName: aws.String(a.Name()),
		AttributeType: a.Kind().scalarType(),
	}
}

// Clean coerces, null-checks and validates a single value, substituting the
// attribute default when the value is nil. Coercion failures return
// immediately; validator failures accumulate into one ValidationError.
func (a *Attribute) Clean(raw any) (any, error) {
	if raw == nil {
		raw = a.defaultValue()
	}
	value, err := a.conv.CleanValue(raw)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if a.notNull {
			return nil, &ValidationError{Messages: []string{"A value is required"}}
		}
		return nil, nil
	}
	var messages []string
	for _, validate := range a.validators {
		if err := validate(value); err != nil {
			messages = append(messages, validationMessages(err)...)
		}
	}
	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}
	return value, nil
}

func (a *Attribute) defaultValue() any {
	if a.defFactory != nil {
		return a.defFactory()
	}
	return a.defValue
}

// ToWire serializes a value into its tagged wire form. A nil value serializes
// to the NULL tag.
func (a *Attribute) ToWire(value any) (types.AttributeValue, error) {
	if value == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	av, err := a.conv.Wire(value)
	if err != nil {
		return nil, fmt.Errorf("attribute %s: %w", a.Name(), err)
	}
	return av, nil
}

// FromWire deserializes a tagged wire value. The NULL tag yields nil. A value
// carrying a different tag than the attribute's kind fails with a
// MalformedWireError; anything else passes through CleanValue.
func (a *Attribute) FromWire(av types.AttributeValue) (any, error) {
	if av == nil {
		return nil, &MalformedWireError{Attribute: a.Name(), Want: a.Kind()}
	}
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return nil, nil
	}
	raw, err := a.conv.Unwire(av)
	if err != nil {
		var malformed *MalformedWireError
		if errors.As(err, &malformed) && malformed.Attribute == "" {
			malformed.Attribute = a.Name()
		}
		return nil, err
	}
	return a.conv.CleanValue(raw)
}

// wireTag returns the kind tag carried by a wire value, for error reporting.
func wireTag(av types.AttributeValue) string {
	switch av.(type) {
	case *types.AttributeValueMemberN:
		return "N"
	case *types.AttributeValueMemberS:
		return "S"
	case *types.AttributeValueMemberB:
		return "B"
	case *types.AttributeValueMemberBOOL:
		return "BOOL"
	case *types.AttributeValueMemberL:
		return "L"
	case *types.AttributeValueMemberM:
		return "M"
	case *types.AttributeValueMemberNS:
		return "NS"
	case *types.AttributeValueMemberSS:
		return "SS"
	case *types.AttributeValueMemberBS:
		return "BS"
	case *types.AttributeValueMemberNULL:
		return "NULL"
	}
	return ""
}
