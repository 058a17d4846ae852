package procfixture

import (
	"errors"
	"fmt"
)

// Common errors returned by procfixture operations
var (
	// ErrUnknownFault indicates a name or path that maps to no fault
	ErrUnknownFault = errors.New("procfixture: unknown fault")

	// ErrDuplicateRoute indicates a second handler registered for the same path
	ErrDuplicateRoute = errors.New("procfixture: duplicate route")

	// ErrInvalidRoute indicates a malformed route path or a nil handler
	ErrInvalidRoute = errors.New("procfixture: invalid route")

	// ErrUnknownMode indicates a workload mode the test application does not know
	ErrUnknownMode = errors.New("procfixture: unknown workload mode")

	// ErrUnexpectedStatus indicates a trigger response that does not match its fault
	ErrUnexpectedStatus = errors.New("procfixture: unexpected status")

	// ErrInvalidConfig indicates a configuration that failed validation
	ErrInvalidConfig = errors.New("procfixture: invalid config")
)

// InvalidOperationError is raised by faults that model an operation invalid
// for the current state of the service.
type InvalidOperationError struct {
	// Fault is the stimulus that raised the error
	Fault Fault
	// Message describes the failure
	Message string
}

// Error returns a formatted error message
func (e *InvalidOperationError) Error() string {
	if e.Message == "" {
		return "operation is not valid due to the current state of the object"
	}
	return e.Message
}

// ArgumentError is raised by faults that model a rejected argument.
type ArgumentError struct {
	// Fault is the stimulus that raised the error
	Fault Fault
	// Message describes the failure
	Message string
}

// Error returns a formatted error message
func (e *ArgumentError) Error() string {
	if e.Message == "" {
		return "value does not fall within the expected range"
	}
	return e.Message
}

// ExitError reports a process exit requested by the terminate fault.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("process exit requested with status %d", e.Code)
}

// ErrorType names the kind of a raised error for logs, metrics and responses
func ErrorType(err error) string {
	var ioe *InvalidOperationError
	var ae *ArgumentError
	var ee ExitError
	switch {
	case errors.As(err, &ioe):
		return "InvalidOperationError"
	case errors.As(err, &ae):
		return "ArgumentError"
	case errors.As(err, &ee):
		return "ExitError"
	default:
		return "Error"
	}
}

// OpError represents an error from a fault or trigger operation
type OpError struct {
	// Fault is the stimulus involved in the operation
	Fault Fault
	// Path is the route or file path involved in the operation
	Path string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	return fmt.Sprintf("procfixture %s %q: %v", e.Fault.String(), e.Path, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors from bulk operations
type MultiError struct {
	// Errors contains all accumulated errors
	Errors []error
}

// Error returns a summary of the accumulated errors
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred", len(m.Errors))
}

// Add appends an error to the collection if it's not nil
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// Unwrap exposes the accumulated errors to errors.Is and errors.As
func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Err returns nil if no errors occurred, otherwise returns the MultiError itself
func (m *MultiError) Err() error {
	if len(m.Errors) == 0 {
		return nil
	}
	return m
}
