package dynattr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator checks an already coerced value and returns an error describing
// the problem. All validators attached to an attribute run in order; their
// messages accumulate rather than short-circuiting.
type Validator func(value any) error

var (
	ruleValidator     *validator.Validate
	ruleValidatorOnce sync.Once
)

// Rule adapts a go-playground/validator tag expression into a Validator, for
// example "min=3,max=64", "email" or "oneof=red green blue". The tag
// vocabulary is the validator package's Var syntax.
func Rule(tag string) Validator {
	return func(value any) error {
		ruleValidatorOnce.Do(func() {
			ruleValidator = validator.New(validator.WithRequiredStructEnabled())
		})
		if err := ruleValidator.Var(value, tag); err != nil {
			return fmt.Errorf("Value does not satisfy rule %q", tag)
		}
		return nil
	}
}

// MinLength validates that a string value is at least n characters long.
func MinLength(n int) Validator {
	return func(value any) error {
		if s, ok := value.(string); ok && len(s) < n {
			return fmt.Errorf("Shorter than minimum length %d", n)
		}
		return nil
	}
}

// MaxLength validates that a string value is at most n characters long.
func MaxLength(n int) Validator {
	return func(value any) error {
		if s, ok := value.(string); ok && len(s) > n {
			return fmt.Errorf("Longer than maximum length %d", n)
		}
		return nil
	}
}

// Range validates that an integer value lies within [min, max].
func Range(min, max int64) Validator {
	return func(value any) error {
		if n, ok := value.(int64); ok && (n < min || n > max) {
			return fmt.Errorf("Not in range %d to %d", min, max)
		}
		return nil
	}
}

// In validates that a value is one of the permitted values.
func In(allowed ...any) Validator {
	return func(value any) error {
		v := normalizeScalar(value)
		for _, a := range allowed {
			if equalValues(v, normalizeScalar(a)) {
				return nil
			}
		}
		return errors.New("Not a permitted value")
	}
}

// normalizeScalar widens numeric literals so In(1, 2) matches cleaned int64
// values.
func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float32:
		return float64(n)
	}
	return v
}
