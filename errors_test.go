package dynattr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Schema: "notes", Attribute: "id", Reason: "duplicate field name"}
	if err.Error() != "dynattr: schema notes: attribute id: duplicate field name" {
		t.Errorf("Unexpected message: %v", err)
	}

	err = &SchemaError{Schema: "notes", Reason: "table name is required"}
	if err.Error() != "dynattr: schema notes: table name is required" {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestMalformedWireErrorMessage(t *testing.T) {
	err := &MalformedWireError{Attribute: "views", Want: KindNumber, Got: "S"}
	if err.Error() != "dynattr: attribute views: want N value, got S" {
		t.Errorf("Unexpected message: %v", err)
	}

	err = &MalformedWireError{Attribute: "views", Want: KindNumber}
	if err.Error() != "dynattr: attribute views: missing N value" {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	t.Run("flat messages", func(t *testing.T) {
		err := &ValidationError{Messages: []string{"Invalid integer"}}
		if err.Error() != "dynattr: validation failed: Invalid integer" {
			t.Errorf("Unexpected message: %v", err)
		}
	})

	t.Run("field errors sort by name", func(t *testing.T) {
		err := &ValidationError{Fields: map[string]*ValidationError{
			"views": {Messages: []string{"Invalid integer"}},
			"email": {Messages: []string{"Invalid string"}},
		}}
		want := "dynattr: validation failed: email: Invalid string; views: Invalid integer"
		if err.Error() != want {
			t.Errorf("Expected %q, got %q", want, err.Error())
		}
	})

	t.Run("nested list indexes", func(t *testing.T) {
		err := &ValidationError{Fields: map[string]*ValidationError{
			"names": {Fields: map[string]*ValidationError{
				"1": {Messages: []string{"Invalid string"}},
			}},
		}}
		want := "dynattr: validation failed: names: 1: Invalid string"
		if err.Error() != want {
			t.Errorf("Expected %q, got %q", want, err.Error())
		}
	})

	t.Run("field accessor", func(t *testing.T) {
		err := &ValidationError{Fields: map[string]*ValidationError{
			"views": {Messages: []string{"Invalid integer"}},
		}}
		if f := err.Field("views"); f == nil || f.Messages[0] != "Invalid integer" {
			t.Errorf("Unexpected field error: %v", f)
		}
		if err.Field("other") != nil {
			t.Error("Expected nil for a passing field")
		}
	})
}

func TestAsValidationError(t *testing.T) {
	verr := &ValidationError{Messages: []string{"Invalid bool"}}
	if got := asValidationError(fmt.Errorf("wrapped: %w", verr)); got != verr {
		t.Errorf("Expected unwrap to the original, got %v", got)
	}

	plain := errors.New("broken pipe")
	got := asValidationError(plain)
	if len(got.Messages) != 1 || got.Messages[0] != "broken pipe" {
		t.Errorf("Expected wrapped message, got %v", got)
	}
}

func TestTranslateError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		if err := translateError(nil, "notes"); err != nil {
			t.Errorf("Expected nil, got %v", err)
		}
	})

	t.Run("typed not-found maps to ErrTableNotFound", func(t *testing.T) {
		cause := &types.ResourceNotFoundException{Message: aws.String("Requested resource not found")}
		err := translateError(fmt.Errorf("operation failed: %w", cause), "notes")
		if !errors.Is(err, ErrTableNotFound) {
			t.Fatalf("Expected ErrTableNotFound, got %v", err)
		}
		if err.Error() != `table "notes": dynattr: table not found` {
			t.Errorf("Unexpected message: %v", err)
		}
	})

	t.Run("generic api error codes map as well", func(t *testing.T) {
		cause := &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such table"}
		if err := translateError(cause, "notes"); !errors.Is(err, ErrTableNotFound) {
			t.Errorf("Expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("other errors pass through unchanged", func(t *testing.T) {
		cause := &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"}
		if err := translateError(cause, "notes"); !errors.Is(err, cause) {
			t.Errorf("Expected the original error, got %v", err)
		}
	})
}
