// Package assert provides fluent assertion utilities for testing dynattr
// schemas, records and the wire items they produce. It makes tests more
// readable by providing expressive assertion methods.
//
// # Usage
//
//	import "github.com/nisimpson/dynattr/dynamock/assert"
//
//	// Assert on a wire item
//	assert.Item(t, item).
//		HasCount(3).
//		HasString("id", "user-1").
//		HasNumber("age", "42")
//
//	// Assert on a record
//	assert.Record(t, rec).
//		HasValue("age", int64(42)).
//		HasNoValue("email").
//		HasChanged("age")
//
//	// Assert on validation failures
//	assert.Validation(t, err).
//		HasFieldError("age").
//		FieldHasMessage("age", "Invalid integer")
package assert

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/nisimpson/dynattr"
	"github.com/nisimpson/dynattr/dynamock"
)

// ItemAssertion provides fluent assertions for a single DynamoDB item.
type ItemAssertion struct {
	t    *testing.T
	item dynattr.Item
}

// Item creates a new ItemAssertion for the given wire item.
func Item(t *testing.T, item dynattr.Item) *ItemAssertion {
	return &ItemAssertion{
		t:    t,
		item: item,
	}
}

// HasCount asserts that the item carries the expected number of attributes.
func (a *ItemAssertion) HasCount(expected int) *ItemAssertion {
	if len(a.item) != expected {
		a.t.Errorf("expected %d attributes, got %d", expected, len(a.item))
	}
	return a
}

// HasAttribute asserts that the item carries the named attribute.
func (a *ItemAssertion) HasAttribute(name string) *ItemAssertion {
	if _, exists := a.item[name]; !exists {
		a.t.Errorf("item missing attribute %s", name)
	}
	return a
}

// HasString asserts that the named attribute is an S value with the expected
// payload.
func (a *ItemAssertion) HasString(name, expected string) *ItemAssertion {
	if attr, exists := a.item[name]; !exists {
		a.t.Errorf("item missing attribute %s", name)
	} else if s, ok := attr.(*types.AttributeValueMemberS); !ok {
		a.t.Errorf("attribute %s is not a string", name)
	} else if s.Value != expected {
		a.t.Errorf("attribute %s expected %s, got %s", name, expected, s.Value)
	}
	return a
}

// HasNumber asserts that the named attribute is an N value with the expected
// decimal payload.
func (a *ItemAssertion) HasNumber(name, expected string) *ItemAssertion {
	if attr, exists := a.item[name]; !exists {
		a.t.Errorf("item missing attribute %s", name)
	} else if n, ok := attr.(*types.AttributeValueMemberN); !ok {
		a.t.Errorf("attribute %s is not a number", name)
	} else if n.Value != expected {
		a.t.Errorf("attribute %s expected %s, got %s", name, expected, n.Value)
	}
	return a
}

// HasBool asserts that the named attribute is a BOOL value with the expected
// payload.
func (a *ItemAssertion) HasBool(name string, expected bool) *ItemAssertion {
	if attr, exists := a.item[name]; !exists {
		a.t.Errorf("item missing attribute %s", name)
	} else if b, ok := attr.(*types.AttributeValueMemberBOOL); !ok {
		a.t.Errorf("attribute %s is not a bool", name)
	} else if b.Value != expected {
		a.t.Errorf("attribute %s expected %v, got %v", name, expected, b.Value)
	}
	return a
}

// HasNull asserts that the named attribute serialized to the NULL tag.
func (a *ItemAssertion) HasNull(name string) *ItemAssertion {
	if attr, exists := a.item[name]; !exists {
		a.t.Errorf("item missing attribute %s", name)
	} else if _, ok := attr.(*types.AttributeValueMemberNULL); !ok {
		a.t.Errorf("attribute %s is not null", name)
	}
	return a
}

// HasStringSet asserts that the named attribute is an SS value with exactly
// the expected elements in order.
func (a *ItemAssertion) HasStringSet(name string, expected ...string) *ItemAssertion {
	attr, exists := a.item[name]
	if !exists {
		a.t.Errorf("item missing attribute %s", name)
		return a
	}
	ss, ok := attr.(*types.AttributeValueMemberSS)
	if !ok {
		a.t.Errorf("attribute %s is not a string set", name)
		return a
	}
	if len(ss.Value) != len(expected) {
		a.t.Errorf("attribute %s expected %d elements, got %d", name, len(expected), len(ss.Value))
		return a
	}
	for i, want := range expected {
		if ss.Value[i] != want {
			a.t.Errorf("attribute %s element %d expected %s, got %s", name, i, want, ss.Value[i])
		}
	}
	return a
}

// ItemsAssertion provides fluent assertions for collections of items, such as
// scan or query pages.
type ItemsAssertion struct {
	t     *testing.T
	items []dynattr.Item
}

// Items creates a new ItemsAssertion for the given items.
func Items(t *testing.T, items []dynattr.Item) *ItemsAssertion {
	return &ItemsAssertion{
		t:     t,
		items: items,
	}
}

// HasCount asserts that the collection has the expected number of items.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	return a.HasCount(0)
}

// IsNotEmpty asserts that the collection is not empty.
func (a *ItemsAssertion) IsNotEmpty() *ItemsAssertion {
	if len(a.items) == 0 {
		a.t.Error("expected items to not be empty")
	}
	return a
}

// ContainsString asserts that at least one item carries the named attribute
// as an S value with the expected payload.
func (a *ItemsAssertion) ContainsString(name, expected string) *ItemsAssertion {
	for _, item := range a.items {
		if s, ok := item[name].(*types.AttributeValueMemberS); ok && s.Value == expected {
			return a
		}
	}
	a.t.Errorf("expected to find attribute %s with value %s in items", name, expected)
	return a
}

// RecordAssertion provides fluent assertions for dynattr records.
type RecordAssertion struct {
	t   *testing.T
	rec *dynattr.Record
}

// Record creates a new RecordAssertion for the given record.
func Record(t *testing.T, rec *dynattr.Record) *RecordAssertion {
	return &RecordAssertion{
		t:   t,
		rec: rec,
	}
}

// HasValue asserts that the named field holds the expected value. Comparison
// uses == after nil checks, so it suits scalar field values.
func (a *RecordAssertion) HasValue(field string, expected any) *RecordAssertion {
	got := a.rec.Get(field)
	if got == nil {
		a.t.Errorf("field %s is unset, expected %v", field, expected)
	} else if got != expected {
		a.t.Errorf("field %s expected %v, got %v", field, expected, got)
	}
	return a
}

// HasNoValue asserts that the named field is unset.
func (a *RecordAssertion) HasNoValue(field string) *RecordAssertion {
	if got := a.rec.Get(field); got != nil {
		a.t.Errorf("field %s expected to be unset, got %v", field, got)
	}
	return a
}

// HasSomeValue asserts that the named field holds any non-nil value, for
// fields populated by default factories.
func (a *RecordAssertion) HasSomeValue(field string) *RecordAssertion {
	if a.rec.Get(field) == nil {
		a.t.Errorf("field %s expected to be set", field)
	}
	return a
}

// HasChanged asserts that the named field is marked changed.
func (a *RecordAssertion) HasChanged(field string) *RecordAssertion {
	for _, f := range a.rec.Changed() {
		if f == field {
			return a
		}
	}
	a.t.Errorf("field %s expected to be marked changed", field)
	return a
}

// HasNotChanged asserts that the named field is not marked changed.
func (a *RecordAssertion) HasNotChanged(field string) *RecordAssertion {
	for _, f := range a.rec.Changed() {
		if f == field {
			a.t.Errorf("field %s expected to be unchanged", field)
		}
	}
	return a
}

// CanClean asserts that the record passes its validation pipeline.
func (a *RecordAssertion) CanClean() *RecordAssertion {
	if err := a.rec.Clean(); err != nil {
		a.t.Errorf("record failed to clean: %v", err)
	}
	return a
}

// ValidationAssertion provides fluent assertions for validation failures.
type ValidationAssertion struct {
	t    *testing.T
	verr *dynattr.ValidationError
}

// Validation creates a new ValidationAssertion from an error, failing the
// test immediately when the error is not a *dynattr.ValidationError.
func Validation(t *testing.T, err error) *ValidationAssertion {
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	verr := dynamock.AsValidationError(t, err)
	return &ValidationAssertion{
		t:    t,
		verr: verr,
	}
}

// HasFieldError asserts that the named field or list index failed.
func (a *ValidationAssertion) HasFieldError(field string) *ValidationAssertion {
	if a.verr.Field(field) == nil {
		a.t.Errorf("expected a validation error for field %s", field)
	}
	return a
}

// HasNoFieldError asserts that the named field passed.
func (a *ValidationAssertion) HasNoFieldError(field string) *ValidationAssertion {
	if a.verr.Field(field) != nil {
		a.t.Errorf("expected no validation error for field %s, got %v", field, a.verr.Field(field))
	}
	return a
}

// HasFieldCount asserts the number of failing fields.
func (a *ValidationAssertion) HasFieldCount(expected int) *ValidationAssertion {
	if len(a.verr.Fields) != expected {
		a.t.Errorf("expected %d failing fields, got %d", expected, len(a.verr.Fields))
	}
	return a
}

// FieldHasMessage asserts that the named field's error carries the expected
// message.
func (a *ValidationAssertion) FieldHasMessage(field, expected string) *ValidationAssertion {
	ferr := a.verr.Field(field)
	if ferr == nil {
		a.t.Errorf("expected a validation error for field %s", field)
		return a
	}
	for _, msg := range ferr.Messages {
		if msg == expected {
			return a
		}
	}
	a.t.Errorf("field %s expected message %q, got %v", field, expected, ferr.Messages)
	return a
}

// FieldHasMessageCount asserts how many messages the named field's error
// accumulated.
func (a *ValidationAssertion) FieldHasMessageCount(field string, expected int) *ValidationAssertion {
	ferr := a.verr.Field(field)
	if ferr == nil {
		a.t.Errorf("expected a validation error for field %s", field)
		return a
	}
	if len(ferr.Messages) != expected {
		a.t.Errorf("field %s expected %d messages, got %d", field, expected, len(ferr.Messages))
	}
	return a
}
