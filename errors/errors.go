package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures surfaced by the seeder, the formatter and the API
type ErrorType int

const (
	// General errors
	ErrUnknown ErrorType = iota
	ErrInvalidInput
	ErrNotFound
	ErrPermissionDenied

	// Configuration and input files
	ErrConfig
	ErrFileNotFound

	// Data shape errors
	ErrSchema
	ErrParse
	ErrConstraintViolation

	// Database errors
	ErrDatabaseNotFound
	ErrDatabaseConnectionFailed
	ErrDatabaseCorrupted
	ErrDatabaseOperationFailed
)

// AppError is an error with a type and optional context
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type
func (e *AppError) Is(target error) bool {
	targetErr, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == targetErr.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetContext retrieves context value
func (e *AppError) GetContext(key string) (interface{}, bool) {
	if e.Context == nil {
		return nil, false
	}
	val, ok := e.Context[key]
	return val, ok
}

// New creates a new AppError
func New(errType ErrorType, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new AppError with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *AppError {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error
func Wrap(errType ErrorType, cause error, message string) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(errType ErrorType, cause error, format string, args ...interface{}) *AppError {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsErrorType checks if an error is of a specific AppError type
func IsErrorType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// GetErrorType extracts the error type from an error
func GetErrorType(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrUnknown
}

// ExitCode returns the process exit code for an error
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrInvalidInput:
			return 1
		case ErrNotFound, ErrFileNotFound, ErrDatabaseNotFound:
			return 2
		case ErrConstraintViolation:
			return 3
		case ErrPermissionDenied:
			return 4
		case ErrConfig:
			return 5
		case ErrSchema, ErrParse:
			return 10
		case ErrDatabaseConnectionFailed, ErrDatabaseCorrupted, ErrDatabaseOperationFailed:
			return 20
		default:
			return 1
		}
	}

	return 1
}

// UserFriendlyMessage returns a user-friendly error message
func UserFriendlyMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrInvalidInput:
			return "Invalid input provided. Please check your command and try again."
		case ErrNotFound:
			return "The requested resource was not found."
		case ErrPermissionDenied:
			return "Permission denied. Please check your permissions and try again."
		case ErrConfig:
			return fmt.Sprintf("Invalid configuration: %s", appErr.Error())
		case ErrFileNotFound:
			return fmt.Sprintf("File not found: %s", appErr.Error())
		case ErrSchema:
			return fmt.Sprintf("Unexpected data layout: %s", appErr.Error())
		case ErrParse:
			return fmt.Sprintf("Could not parse input: %s", appErr.Error())
		case ErrConstraintViolation:
			return fmt.Sprintf("A record conflicts with existing data: %s", appErr.Error())
		case ErrDatabaseNotFound:
			return "Database not found. Please check the database path and try again."
		case ErrDatabaseConnectionFailed:
			return "Failed to connect to the database. Please check the database configuration."
		case ErrDatabaseCorrupted:
			return "The database appears to be corrupted. Please restore from a backup."
		case ErrDatabaseOperationFailed:
			return "Database operation failed. Please check the database logs for more information."
		default:
			return appErr.Error()
		}
	}

	return err.Error()
}

// Suggestion returns a suggestion for resolving the error
func Suggestion(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrInvalidInput:
			return "Use 'exploronomics --help' to see available commands and options."
		case ErrConfig:
			return "Check exploronomics.yaml and EXPLORONOMICS_* environment variables."
		case ErrDatabaseNotFound:
			return "Use 'exploronomics init' to create the database and the countries table."
		case ErrSchema:
			if _, ok := appErr.GetContext("table"); ok {
				return "Use 'exploronomics init' to create the countries table."
			}
			return "Make sure the CSV contains the 'Series Name' and '1999 [YR1999]' columns."
		case ErrConstraintViolation:
			return "The store already holds one of these country codes; seeding is not idempotent."
		case ErrDatabaseConnectionFailed:
			return "Check database file permissions and ensure it's not corrupted."
		case ErrDatabaseCorrupted:
			return "Restore the database from one of the .bak files created by 'exploronomics seed --backup'."
		default:
			if appErr.Cause != nil {
				return fmt.Sprintf("Underlying error: %v", appErr.Cause)
			}
			return "Check the logs for more detailed error information."
		}
	}

	return "Check the error message and logs for more information."
}

// Common error constructors

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(message string) *AppError {
	return New(ErrInvalidInput, message)
}

// NewNotFoundError creates an error for not found resources
func NewNotFoundError(resource, identifier string) *AppError {
	return Newf(ErrNotFound, "%s '%s' not found", resource, identifier)
}

// NewFileNotFoundError creates an error for a missing input file
func NewFileNotFoundError(path string, cause error) *AppError {
	return Wrapf(ErrFileNotFound, cause, "file '%s' does not exist", path).
		WithContext("path", path)
}

// NewMissingColumnError creates a schema error for a CSV column that is not present
func NewMissingColumnError(column string) *AppError {
	return Newf(ErrSchema, "missing required column %q", column).
		WithContext("column", column)
}

// NewParseError creates an error for malformed input at a given line
func NewParseError(cause error, line int) *AppError {
	return Wrapf(ErrParse, cause, "malformed input at line %d", line).
		WithContext("line", line)
}

// NewDatabaseConnectionError creates an error for database connection failures
func NewDatabaseConnectionError(cause error) *AppError {
	return Wrap(ErrDatabaseConnectionFailed, cause, "Failed to connect to database")
}
