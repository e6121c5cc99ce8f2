package dynattr

import (
	"bytes"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"sort"
	"time"
)

// Record holds the field values of one item of a schema, addressed by binding
// name, together with the set of fields modified since the record was created,
// loaded or last reset. Records are created through Schema.NewRecord or by
// decoding a wire item; they are not safe for concurrent mutation.
type Record struct {
	schema  *Schema
	values  map[string]any
	changed map[string]struct{}
}

// NewRecord creates an empty record of this schema.
func (s *Schema) NewRecord() *Record {
	return &Record{
		schema:  s,
		values:  make(map[string]any, len(s.attrs)),
		changed: make(map[string]struct{}),
	}
}

// NewRecordFrom creates a record with the given initial field values. Every
// set field is marked changed, so a subsequent MarshalChanged covers them.
func (s *Schema) NewRecordFrom(values map[string]any) (*Record, error) {
	r := s.NewRecord()
	for _, attr := range s.attrs {
		value, ok := values[attr.field]
		if !ok {
			continue
		}
		if err := r.Set(attr.field, value); err != nil {
			return nil, err
		}
	}
	for field := range values {
		if s.byField[field] == nil {
			return nil, fmt.Errorf("dynattr: schema %s has no field %q", s.tableName, field)
		}
	}
	return r, nil
}

// Schema returns the schema the record is bound to.
func (r *Record) Schema() *Schema { return r.schema }

// Get returns the current value of the named field, or nil when unset.
func (r *Record) Get(field string) any {
	return r.values[field]
}

// Set assigns a field value. The field is marked changed only when the new
// value differs from the current one. Setting an unknown field is an error.
func (r *Record) Set(field string, value any) error {
	if r.schema == nil {
		return ErrNoSchema
	}
	if r.schema.byField[field] == nil {
		return fmt.Errorf("dynattr: schema %s has no field %q", r.schema.tableName, field)
	}
	if equalValues(r.values[field], value) {
		return nil
	}
	r.values[field] = value
	r.changed[field] = struct{}{}
	return nil
}

// Changed returns the names of fields modified since the record was created,
// loaded or last reset, in sorted order.
func (r *Record) Changed() []string {
	out := make([]string, 0, len(r.changed))
	for field := range r.changed {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// ResetChanged clears the changed-field set, typically after the record's
// current state has been persisted.
func (r *Record) ResetChanged() {
	clear(r.changed)
}

// Clean runs every attribute's pipeline against the record's current values:
// coercion, default substitution, null checks and validators. Coerced values
// and resolved defaults are written back to the record, marking those fields
// changed. Failures never short-circuit; they collect per field and a non-nil
// return is always a *ValidationError with one Fields entry per failing field.
func (r *Record) Clean() error {
	if r.schema == nil {
		return ErrNoSchema
	}
	fields := make(map[string]*ValidationError)
	for _, attr := range r.schema.attrs {
		current := r.values[attr.field]
		cleaned, err := attr.Clean(current)
		if err != nil {
			fields[attr.field] = asValidationError(err)
			continue
		}
		if cleaned == nil {
			continue
		}
		if !equalValues(current, cleaned) {
			r.values[attr.field] = cleaned
			r.changed[attr.field] = struct{}{}
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// equalValues reports whether two attribute values are equal. It understands
// the value types produced by the built-in converters; values of other
// comparable types fall through to ==.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case []byte:
		bv, ok := b.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case *url.URL:
		bv, ok := b.(*url.URL)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return av.String() == bv.String()
	case []string:
		bv, ok := b.([]string)
		return ok && slices.Equal(av, bv)
	case []int64:
		bv, ok := b.([]int64)
		return ok && slices.Equal(av, bv)
	case []int:
		bv, ok := b.([]int)
		return ok && slices.Equal(av, bv)
	case []float64:
		bv, ok := b.([]float64)
		return ok && slices.Equal(av, bv)
	case [][]byte:
		bv, ok := b.([][]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !bytes.Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Record:
		bv, ok := b.(*Record)
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		if av.schema != bv.schema {
			return false
		}
		for _, attr := range av.schema.attrs {
			if !equalValues(av.values[attr.field], bv.values[attr.field]) {
				return false
			}
		}
		return true
	}
	// Remaining slice and map types are not comparable with ==.
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}
