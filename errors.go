package brine

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrUnknownType indicates a type name or Go type is absent from the registry.
	ErrUnknownType = errors.New("unknown type")

	// ErrDuplicateType indicates a type name or Go type was registered twice.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrReservedType indicates a type name collides with a reserved tag.
	ErrReservedType = errors.New("reserved type name")

	// ErrInvalidTag indicates a brine struct tag is malformed or collides.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrFrozen indicates registration was attempted after Freeze.
	ErrFrozen = errors.New("registry frozen")

	// ErrInvalidTarget indicates a nil, non-pointer, or non-struct target.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrCycle indicates an object graph references itself.
	ErrCycle = errors.New("reference cycle")

	// ErrCoerce indicates a leaf could not be converted to its tagged primitive.
	ErrCoerce = errors.New("coerce failed")

	// ErrMismatch indicates a tree value cannot be stored in the target field.
	ErrMismatch = errors.New("shape mismatch")

	// ErrUnsupportedFormat indicates no codec is configured for a content type.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrTypeMismatch indicates a document names a different type than requested.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrEncode indicates a codec failed to encode a document.
	ErrEncode = errors.New("encode failed")

	// ErrDecode indicates a codec failed to decode input data.
	ErrDecode = errors.New("decode failed")
)

// ConfigError represents a registry configuration error.
// These are programmer defects, not data-quality problems.
type ConfigError struct {
	Err      error  // Underlying sentinel error (ErrUnknownType, etc.)
	TypeName string // Type name that triggered the error
	Field    string // Field path where the type name was found
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.TypeName != "" {
		return fmt.Sprintf("%s %q (field %s)", e.Err.Error(), e.TypeName, e.Field)
	}
	if e.TypeName != "" {
		return fmt.Sprintf("%s %q", e.Err.Error(), e.TypeName)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (field %s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// FieldError represents a failure while injecting a single field.
type FieldError struct {
	Err   error  // Underlying sentinel error (ErrCoerce, ErrMismatch)
	Field string // Dotted path of the field that failed
	Cause error  // Original error from the conversion
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s field %s: %v", e.Err.Error(), e.Field, e.Cause)
	}
	return fmt.Sprintf("%s field %s", e.Err.Error(), e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// CodecError represents an encode/decode error.
type CodecError struct {
	Err         error  // Underlying sentinel error (ErrEncode, ErrDecode)
	ContentType string // Codec content type
	Cause       error  // Original error from the codec
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Err.Error(), e.ContentType, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Err.Error(), e.ContentType)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *CodecError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// newConfigError creates a ConfigError.
func newConfigError(sentinel error, typeName, field string) error {
	return &ConfigError{
		Err:      sentinel,
		TypeName: typeName,
		Field:    field,
	}
}

// newFieldError creates a FieldError for injection failures.
func newFieldError(sentinel error, field string, cause error) error {
	return &FieldError{
		Err:   sentinel,
		Field: field,
		Cause: cause,
	}
}

// newCodecError creates a CodecError for encode/decode failures.
func newCodecError(sentinel error, contentType string, cause error) error {
	return &CodecError{
		Err:         sentinel,
		ContentType: contentType,
		Cause:       cause,
	}
}
