// Package faults provides the error taxonomy shared by catalog sync, parsing and execution.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how callers should react to it.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindAcquisition   Kind = "acquisition"
	KindParse         Kind = "parse"
	KindExecution     Kind = "execution"
)

// Reason narrows down an acquisition failure.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonAuthOrNotFound  Reason = "auth_or_not_found"
	ReasonMissingTarget   Reason = "missing_target"
	ReasonGeneric         Reason = "generic"
	ReasonInstallRejected Reason = "install_rejected"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAcquisition   = errors.New("acquisition error")
	ErrParse         = errors.New("parse error")
	ErrExecution     = errors.New("execution error")
)

// Error wraps a failure with its kind and the operation that produced it.
type Error struct {
	Kind    Kind   // Error class
	Op      string // Operation being performed (e.g., "sync", "execute")
	Reason  Reason // Acquisition sub-case, empty otherwise
	Message string // Human-readable context
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Kind)
	if e.Reason != ReasonNone {
		msg += " (" + string(e.Reason) + ")"
	}

	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error comparison against the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfiguration:
		return e.Kind == KindConfiguration
	case ErrAcquisition:
		return e.Kind == KindAcquisition
	case ErrParse:
		return e.Kind == KindParse
	case ErrExecution:
		return e.Kind == KindExecution
	default:
		return false
	}
}

// Configuration creates a configuration error. These are never retried.
func Configuration(op, format string, args ...any) *Error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Acquisition creates an acquisition error for a failed fetch, update or install.
func Acquisition(op string, reason Reason, message string, err error) *Error {
	return &Error{Kind: KindAcquisition, Op: op, Reason: reason, Message: message, Err: err}
}

// Parse creates a parse error for unreadable or unparseable documents.
func Parse(op, message string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Message: message, Err: err}
}

// Execution creates an execution error for spawn failures, non-zero exits and persistence failures.
func Execution(op, message string, err error) *Error {
	return &Error{Kind: KindExecution, Op: op, Message: message, Err: err}
}

// IsConfiguration checks if err is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsAcquisition checks if err is an acquisition error.
func IsAcquisition(err error) bool {
	return errors.Is(err, ErrAcquisition)
}

// IsParse checks if err is a parse error.
func IsParse(err error) bool {
	return errors.Is(err, ErrParse)
}

// IsExecution checks if err is an execution error.
func IsExecution(err error) bool {
	return errors.Is(err, ErrExecution)
}

// ReasonOf returns the acquisition reason carried by err, if any.
func ReasonOf(err error) Reason {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}

	return ReasonNone
}
