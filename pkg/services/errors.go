// Package services combines the catalog and instance layers into the operations the
// CLI and the HTTP API expose.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/demodeck/pkg/catalog"
	"github.com/dukex/demodeck/pkg/execution"
	"github.com/dukex/demodeck/pkg/persistence"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	// ErrCatalogNotSynced is returned when no collection has been resolved yet.
	ErrCatalogNotSynced = errors.New("catalog has not been synced")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error should be reported as a bad request.
func IsValidationError(err error) bool {
	var invalid *catalog.ValidationError

	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, persistence.ErrInvalidInstanceID) ||
		errors.As(err, &invalid)
}

// IsNotFound checks if an error refers to a missing demo or instance.
func IsNotFound(err error) bool {
	return errors.Is(err, catalog.ErrDemoNotFound) || persistence.IsInstanceNotFound(err)
}

// IsConflictError checks if an error conflicts with the current instance state.
func IsConflictError(err error) bool {
	return errors.Is(err, execution.ErrAlreadyRunning) || errors.Is(err, ErrCatalogNotSynced)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	if err == nil {
		err = ErrInvalidRequest
	}

	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
