package errors

import (
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents internal error codes for store operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Caller errors (4xx equivalent)
	ErrCodeValidation           ErrorCode = 1000
	ErrCodeMissingRequiredField ErrorCode = 1001
	ErrCodeAlreadyHasID         ErrorCode = 1002
	ErrCodeDuplicateID          ErrorCode = 1003
	ErrCodeNotFound             ErrorCode = 1004

	// Engine errors (5xx equivalent)
	ErrCodeStorageWrite ErrorCode = 2000
	ErrCodeEngine       ErrorCode = 2001
	ErrCodeInternal     ErrorCode = 2002
)

// String is the wire name of the code, as printed in error responses
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "OK"
	case ErrCodeValidation:
		return "VALIDATION_FAILED"
	case ErrCodeMissingRequiredField:
		return "MISSING_REQUIRED_FIELD"
	case ErrCodeAlreadyHasID:
		return "ALREADY_HAS_ID"
	case ErrCodeDuplicateID:
		return "DUPLICATE_ID"
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeStorageWrite:
		return "STORAGE_WRITE_FAILED"
	case ErrCodeEngine:
		return "ENGINE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// Sentinels usable with errors.Is against any *StoreError of the same code.
var (
	ErrValidation           = &StoreError{Code: ErrCodeValidation, Message: "validation failed"}
	ErrMissingRequiredField = &StoreError{Code: ErrCodeMissingRequiredField, Message: "missing required field"}
	ErrAlreadyHasID         = &StoreError{Code: ErrCodeAlreadyHasID, Message: "object already has an id"}
	ErrDuplicateID          = &StoreError{Code: ErrCodeDuplicateID, Message: "id already in use"}
	ErrNotFound             = &StoreError{Code: ErrCodeNotFound, Message: "not found"}
	ErrStorageWrite         = &StoreError{Code: ErrCodeStorageWrite, Message: "storage write failed"}
	ErrEngine               = &StoreError{Code: ErrCodeEngine, Message: "engine failure"}
)

// StoreError represents a structured error with code and context
type StoreError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is matches any StoreError carrying the same code.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// GRPCStatus lets status.FromError recognise store errors directly.
func (e *StoreError) GRPCStatus() *status.Status {
	return status.New(e.toGRPCCode(), e.Error())
}

// toGRPCCode maps internal error codes to gRPC codes
func (e *StoreError) toGRPCCode() codes.Code {
	switch e.Code {
	case ErrCodeOK:
		return codes.OK
	case ErrCodeValidation, ErrCodeMissingRequiredField:
		return codes.InvalidArgument
	case ErrCodeAlreadyHasID, ErrCodeDuplicateID:
		return codes.AlreadyExists
	case ErrCodeNotFound:
		return codes.NotFound
	case ErrCodeStorageWrite:
		return codes.Aborted
	case ErrCodeEngine:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// NewStoreError creates a new StoreError
func NewStoreError(code ErrorCode, message string, cause error) *StoreError {
	return &StoreError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *StoreError) WithDetail(key string, value interface{}) *StoreError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Convenience constructors for the store's taxonomy

func Validation(field, reason string) *StoreError {
	return NewStoreError(ErrCodeValidation, fmt.Sprintf("%s: %s", field, reason), nil).
		WithDetail("field", field)
}

func MissingRequiredField(field string) *StoreError {
	return NewStoreError(ErrCodeMissingRequiredField, fmt.Sprintf("%s is required when saving dog data", field), nil).
		WithDetail("field", field)
}

func AlreadyHasID(id interface{}) *StoreError {
	return NewStoreError(ErrCodeAlreadyHasID, "dog already has an id (use update for existing dogs)", nil).
		WithDetail("id", id)
}

func DuplicateID(id int64) *StoreError {
	return NewStoreError(ErrCodeDuplicateID, fmt.Sprintf("dog id %d is already in use", id), nil).
		WithDetail("id", id)
}

func NotFound(kind, id string) *StoreError {
	return NewStoreError(ErrCodeNotFound, fmt.Sprintf("%s %q does not exist", kind, id), nil).
		WithDetail("kind", kind).
		WithDetail("id", id)
}

func StorageWrite(message string, cause error) *StoreError {
	return NewStoreError(ErrCodeStorageWrite, message, cause)
}

func Engine(message string, cause error) *StoreError {
	return NewStoreError(ErrCodeEngine, message, cause)
}

func Internal(message string, cause error) *StoreError {
	return NewStoreError(ErrCodeInternal, message, cause)
}

// IsStoreError checks if an error is, or wraps, a StoreError
func IsStoreError(err error) bool {
	var se *StoreError
	return stderrors.As(err, &se)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var se *StoreError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// Field returns the offending field name recorded on validation errors.
func Field(err error) string {
	var se *StoreError
	if !stderrors.As(err, &se) {
		return ""
	}
	if f, ok := se.Details["field"].(string); ok {
		return f
	}
	return ""
}
