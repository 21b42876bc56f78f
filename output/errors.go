package output

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrSchemaValidation is matched by every decoding failure: the model
	// output does not have the declared shape.
	ErrSchemaValidation = errors.New("schema validation failed")
	// ErrUnsupportedType is returned for return types without a strategy.
	ErrUnsupportedType = errors.New("unsupported return type")
)

// SchemaError describes why a raw completion could not be decoded.
type SchemaError struct {
	Kind Kind   // Strategy that failed
	Raw  string // Model output as received
	Err  error  // Underlying cause
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s output: %v", ErrSchemaValidation, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *SchemaError) Unwrap() error { return e.Err }

// Is makes every SchemaError match ErrSchemaValidation.
func (e *SchemaError) Is(target error) bool { return target == ErrSchemaValidation }
