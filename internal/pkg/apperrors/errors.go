package apperrors

import "errors"

// Error kinds. Every error leaving the core wraps exactly one of these.
var (
	// ErrValidationFailed marks missing or malformed input. Reported before any mutation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrConstraintViolation marks a uniqueness or foreign-key rejection.
	ErrConstraintViolation = errors.New("constraint violation")
	// ErrResourceNotFound marks a referenced row that does not exist.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrIOFailure marks an artifact storage failure (unreachable, full, permission denied).
	ErrIOFailure = errors.New("artifact storage failure")
	// ErrTransactionFailure marks a database failure (unreachable, deadlock, failed commit).
	ErrTransactionFailure = errors.New("transaction failure")
)

// Student errors
var (
	ErrStudentNotFound     = newKindError(ErrResourceNotFound, "student not found", "id")
	ErrAadharAlreadyExists = newKindError(ErrConstraintViolation, "aadhar number already exists", "aadharNumber")
)

// Contact errors
var (
	ErrContactNotFound     = newKindError(ErrResourceNotFound, "contact not found", "id")
	ErrMobileAlreadyExists = newKindError(ErrConstraintViolation, "mobile number already exists for this student", "mobileNumber")
)

// Artifact errors
var (
	ErrInvalidArtifactRef = newKindError(ErrValidationFailed, "invalid artifact reference", "ref")
	ErrArtifactTooLarge   = newKindError(ErrValidationFailed, "artifact exceeds the maximum allowed size", "file")
)

func newKindError(kind error, message, field string) *CustomError {
	return &CustomError{
		Err:     kind,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) error {
	return &CustomError{
		Err:     ErrValidationFailed,
		Message: message,
		Details: map[string]interface{}{"field": field},
	}
}

// NewResourceNotFoundError creates a new custom error for resource not found with a message
func NewResourceNotFoundError(message string) error {
	return &CustomError{
		Err:     ErrResourceNotFound,
		Message: message,
	}
}

// Is returns whether err matches target or any of the errors in errList
func Is(err, target error, errList ...error) bool {
	if errors.Is(err, target) {
		return true
	}

	for _, e := range errList {
		if errors.Is(err, e) {
			return true
		}
	}

	return false
}

// Kind returns the error kind err belongs to, or nil when it wraps none of them.
func Kind(err error) error {
	for _, kind := range []error{
		ErrValidationFailed,
		ErrConstraintViolation,
		ErrResourceNotFound,
		ErrIOFailure,
		ErrTransactionFailure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// CustomError represents application-specific errors with additional context
type CustomError struct {
	Err     error
	Message string
	Code    string
	Details map[string]interface{}
}

// Error implements error interface
func (e *CustomError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// Unwrap implements errors.Unwrap interface
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Field returns the input field the error refers to, if any.
func (e *CustomError) Field() string {
	if e.Details == nil {
		return ""
	}
	field, _ := e.Details["field"].(string)
	return field
}

// NewCustomError creates a CustomError with underlying error
func NewCustomError(err error, message string) *CustomError {
	return &CustomError{
		Err:     err,
		Message: message,
	}
}

// WithDetails adds context details to the error
func (e *CustomError) WithDetails(details map[string]interface{}) *CustomError {
	e.Details = details
	return e
}

// WithCode adds an error code
func (e *CustomError) WithCode(code string) *CustomError {
	e.Code = code
	return e
}
