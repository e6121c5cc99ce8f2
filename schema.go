package dynattr

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Schema binds an ordered set of attributes to a table name. Schemas are
// immutable once constructed; records, wire items and table definitions all
// derive from the same schema instance.
type Schema struct {
	tableName string
	attrs     []*Attribute
	byField   map[string]*Attribute
	keys      map[KeyRole]*Attribute
}

// NewSchema registers the given attributes, in declaration order, as the
// schema for one table. Registration binds each attribute exactly once and
// rejects duplicate field names, duplicate wire names, conflicting key roles
// and non-indexable key kinds with a SchemaError.
func NewSchema(tableName string, attrs ...*Attribute) (*Schema, error) {
	if tableName == "" {
		return nil, &SchemaError{Reason: "table name is required"}
	}
	s := &Schema{
		tableName: tableName,
		attrs:     make([]*Attribute, 0, len(attrs)),
		byField:   make(map[string]*Attribute, len(attrs)),
		keys:      make(map[KeyRole]*Attribute, 2),
	}
	wireNames := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		if attr == nil {
			return nil, &SchemaError{Schema: tableName, Reason: "nil attribute"}
		}
		if attr.field == "" {
			return nil, &SchemaError{Schema: tableName, Reason: "attribute with empty field name"}
		}
		if err := attr.bind(tableName); err != nil {
			return nil, err
		}
		if _, ok := s.byField[attr.field]; ok {
			return nil, &SchemaError{Schema: tableName, Attribute: attr.field,
				Reason: "duplicate field name"}
		}
		if held, ok := wireNames[attr.Name()]; ok {
			return nil, &SchemaError{Schema: tableName, Attribute: attr.field,
				Reason: fmt.Sprintf("wire name %q already used by %s", attr.Name(), held)}
		}
		if role := attr.keyRole; role != KeyRoleNone {
			if held, ok := s.keys[role]; ok {
				return nil, &SchemaError{Schema: tableName, Attribute: attr.field,
					Reason: fmt.Sprintf("%s key already held by %s", role, held.field)}
			}
			s.keys[role] = attr
		}
		s.attrs = append(s.attrs, attr)
		s.byField[attr.field] = attr
		wireNames[attr.Name()] = attr.field
	}
	return s, nil
}

// MustSchema is like NewSchema but panics on definition errors. It is meant
// for package-level schema variables, where a bad definition should fail fast.
func MustSchema(tableName string, attrs ...*Attribute) *Schema {
	s, err := NewSchema(tableName, attrs...)
	if err != nil {
		panic(err)
	}
	return s
}

// TableName returns the table this schema maps to.
func (s *Schema) TableName() string { return s.tableName }

// Attributes returns the schema's attributes in declaration order. The slice
// is a copy; the schema itself never changes after construction.
func (s *Schema) Attributes() []*Attribute {
	out := make([]*Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out
}

// Attribute returns the attribute bound to the given field name, or nil.
func (s *Schema) Attribute(field string) *Attribute {
	return s.byField[field]
}

// KeyAttribute returns the attribute holding the given key role, or nil.
func (s *Schema) KeyAttribute(role KeyRole) *Attribute {
	return s.keys[role]
}

// KeySchema returns the table's key schema entries, hash key first. Table
// creation requires that ordering regardless of declaration order.
func (s *Schema) KeySchema() []types.KeySchemaElement {
	out := make([]types.KeySchemaElement, 0, len(s.keys))
	for _, role := range []KeyRole{KeyRoleHash, KeyRoleRange} {
		attr := s.keys[role]
		if attr == nil {
			continue
		}
		if entry, ok := attr.KeySchema(); ok {
			out = append(out, entry)
		}
	}
	return out
}

// AttributeDefinitions returns definitions for the schema's key attributes,
// which is the set table creation requires.
func (s *Schema) AttributeDefinitions() []types.AttributeDefinition {
	out := make([]types.AttributeDefinition, 0, len(s.keys))
	for _, attr := range s.attrs {
		if attr.keyRole != KeyRoleNone {
			out = append(out, attr.Definition())
		}
	}
	return out
}

// MarshalItem serializes every attribute of the record into a wire item.
// Unset nullable fields serialize to the NULL tag, so the item always carries
// one entry per schema attribute.
func (s *Schema) MarshalItem(r *Record) (Item, error) {
	if err := s.owns(r); err != nil {
		return nil, err
	}
	item := make(Item, len(s.attrs))
	for _, attr := range s.attrs {
		av, err := attr.ToWire(r.values[attr.field])
		if err != nil {
			return nil, err
		}
		item[attr.Name()] = av
	}
	return item, nil
}

// MarshalChanged serializes only the fields modified since the record was
// created, loaded or last reset. Callers wanting partial writes start here.
func (s *Schema) MarshalChanged(r *Record) (Item, error) {
	if err := s.owns(r); err != nil {
		return nil, err
	}
	item := make(Item, len(r.changed))
	for _, attr := range s.attrs {
		if _, ok := r.changed[attr.field]; !ok {
			continue
		}
		av, err := attr.ToWire(r.values[attr.field])
		if err != nil {
			return nil, err
		}
		item[attr.Name()] = av
	}
	return item, nil
}

// UnmarshalItem decodes a wire item into a fresh record. Attributes absent
// from the item stay unset, which keeps projected reads lossless; unknown
// names in the item are ignored. The returned record reports no changed
// fields.
func (s *Schema) UnmarshalItem(item Item) (*Record, error) {
	r := s.NewRecord()
	for _, attr := range s.attrs {
		av, ok := item[attr.Name()]
		if !ok {
			continue
		}
		value, err := attr.FromWire(av)
		if err != nil {
			return nil, err
		}
		if value != nil {
			r.values[attr.field] = value
		}
	}
	return r, nil
}

// Key identifies one item by its primary key values. Range is ignored for
// hash-only schemas.
type Key struct {
	Hash  any
	Range any
}

// MarshalKey serializes primary key values into the wire form used by get and
// delete requests. Values coerce through their attributes, so a Key built
// from loose types addresses the same item a cleaned record produced.
func (s *Schema) MarshalKey(k Key) (Item, error) {
	hashAttr := s.keys[KeyRoleHash]
	if hashAttr == nil {
		return nil, fmt.Errorf("schema %s has no hash key attribute: %w", s.tableName, ErrInvalidKey)
	}
	if k.Hash == nil {
		return nil, fmt.Errorf("missing hash key value: %w", ErrInvalidKey)
	}
	item := make(Item, 2)
	av, err := hashAttr.ToWire(k.Hash)
	if err != nil {
		return nil, err
	}
	item[hashAttr.Name()] = av

	rangeAttr := s.keys[KeyRoleRange]
	if rangeAttr == nil {
		return item, nil
	}
	if k.Range == nil {
		return nil, fmt.Errorf("missing range key value: %w", ErrInvalidKey)
	}
	av, err = rangeAttr.ToWire(k.Range)
	if err != nil {
		return nil, err
	}
	item[rangeAttr.Name()] = av
	return item, nil
}

// RecordKey extracts the primary key values held by a record.
func (s *Schema) RecordKey(r *Record) (Key, error) {
	if err := s.owns(r); err != nil {
		return Key{}, err
	}
	hashAttr := s.keys[KeyRoleHash]
	if hashAttr == nil {
		return Key{}, fmt.Errorf("schema %s has no hash key attribute: %w", s.tableName, ErrInvalidKey)
	}
	k := Key{Hash: r.values[hashAttr.field]}
	if k.Hash == nil {
		return Key{}, fmt.Errorf("record has no hash key value: %w", ErrInvalidKey)
	}
	if rangeAttr := s.keys[KeyRoleRange]; rangeAttr != nil {
		k.Range = r.values[rangeAttr.field]
		if k.Range == nil {
			return Key{}, fmt.Errorf("record has no range key value: %w", ErrInvalidKey)
		}
	}
	return k, nil
}

func (s *Schema) owns(r *Record) error {
	if r == nil || r.schema == nil {
		return ErrNoSchema
	}
	if r.schema != s {
		return fmt.Errorf("dynattr: record belongs to schema %s, not %s", r.schema.tableName, s.tableName)
	}
	return nil
}
