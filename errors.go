package dynattr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrItemNotFound is returned when a get or first operation matches no item.
	ErrItemNotFound = errors.New("dynattr: item not found")

	// ErrTableNotFound is returned when the remote store reports that the
	// requested table does not exist.
	ErrTableNotFound = errors.New("dynattr: table not found")

	// ErrSessionClosed is returned by operations attempted after Close.
	ErrSessionClosed = errors.New("dynattr: session closed")

	// ErrNoSchema is returned when an operation is given a nil schema or a
	// record with no schema bound to it.
	ErrNoSchema = errors.New("dynattr: no schema bound")

	// ErrInvalidKey is returned when a primary key cannot be assembled from
	// the supplied values.
	ErrInvalidKey = errors.New("dynattr: invalid key")
)

// SchemaError reports an invalid schema or attribute definition. Schema errors
// indicate a programming mistake and surface at registration time, before any
// record exists.
type SchemaError struct {
	Schema    string // table name of the offending schema
	Attribute string // field name, when the problem is attribute scoped
	Reason    string
}

func (e *SchemaError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("dynattr: schema %s: attribute %s: %s", e.Schema, e.Attribute, e.Reason)
	}
	return fmt.Sprintf("dynattr: schema %s: %s", e.Schema, e.Reason)
}

// MalformedWireError reports a wire value that does not carry the tag the
// attribute expects.
type MalformedWireError struct {
	Attribute string // wire name of the attribute
	Index     int    // position of the offending list element, valid when Indexed
	Indexed   bool   // whether the error names a list element
	Want      AttributeKind
	Got       string // tag found on the wire, empty when the value is missing
}

func (e *MalformedWireError) Error() string {
	name := e.Attribute
	if e.Indexed {
		name = fmt.Sprintf("%s[%d]", e.Attribute, e.Index)
	}
	if e.Got == "" {
		return fmt.Sprintf("dynattr: attribute %s: missing %s value", name, e.Want)
	}
	return fmt.Sprintf("dynattr: attribute %s: want %s value, got %s", name, e.Want, e.Got)
}

// ValidationError reports one or more data problems found while cleaning a
// value or a record. Messages apply to the value itself. Fields carries nested
// errors keyed by field name for records and by decimal index for list
// elements.
type ValidationError struct {
	Messages []string
	Fields   map[string]*ValidationError
}

func (e *ValidationError) Error() string {
	if detail := e.detail(); detail != "" {
		return "dynattr: validation failed: " + detail
	}
	return "dynattr: validation failed"
}

func (e *ValidationError) detail() string {
	parts := make([]string, 0, len(e.Messages)+len(e.Fields))
	parts = append(parts, e.Messages...)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k].detail())
	}
	return strings.Join(parts, "; ")
}

// Field returns the nested error recorded for the named field or list index,
// or nil when that field passed.
func (e *ValidationError) Field(name string) *ValidationError {
	return e.Fields[name]
}

// asValidationError coerces an arbitrary clean or validator failure into a
// ValidationError so that field errors aggregate uniformly.
func asValidationError(err error) *ValidationError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return &ValidationError{Messages: []string{err.Error()}}
}

// validationMessages flattens an error into its validator messages.
func validationMessages(err error) []string {
	var verr *ValidationError
	if errors.As(err, &verr) && len(verr.Messages) > 0 {
		return verr.Messages
	}
	return []string{err.Error()}
}

// translateError maps the transport's resource-not-found condition onto
// ErrTableNotFound. Every other transport error passes through unchanged.
func translateError(err error, table string) error {
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("table %q: %w", table, ErrTableNotFound)
	}
	var api smithy.APIError
	if errors.As(err, &api) && api.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("table %q: %w", table, ErrTableNotFound)
	}
	return err
}
