package persistence

import (
	"errors"
	"fmt"
	"regexp"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrInstanceNotFound indicates no unit is stored for the given instance id.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInvalidInstanceID indicates an id that cannot safely name a storage location.
	ErrInvalidInstanceID = errors.New("invalid instance id")
)

// Unit names the persisted half of an instance.
type Unit string

const (
	UnitSpec   Unit = "spec"
	UnitStatus Unit = "status"
)

var instanceIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateInstanceID rejects ids that could escape the instances directory.
func ValidateInstanceID(id string) error {
	if !instanceIDPattern.MatchString(id) || id == "." || id == ".." || len(id) > 255 {
		return fmt.Errorf("%w: %q", ErrInvalidInstanceID, id)
	}

	return nil
}

// InstanceError wraps instance-related errors with additional context.
type InstanceError struct {
	Op         string // Operation being performed (e.g., "SpecByID", "SaveStatus")
	InstanceID string
	Unit       Unit  // Unit involved, empty when both
	Err        error // Underlying error
}

func (e *InstanceError) Error() string {
	if e.Unit != "" {
		return fmt.Sprintf("%s operation failed for %s of instance %s: %v", e.Op, e.Unit, e.InstanceID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for instance %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e *InstanceError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for instance errors.
func (e *InstanceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewInstanceError creates a new instance error with context.
func NewInstanceError(op, id string, unit Unit, err error) *InstanceError {
	return &InstanceError{
		Op:         op,
		InstanceID: id,
		Unit:       unit,
		Err:        err,
	}
}

// IsInstanceNotFound checks if an error indicates an instance was not found.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}
