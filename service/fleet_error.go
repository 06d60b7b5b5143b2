// Package service implements the coprocessor control plane: node endpoints, fleets with
// automatic placement, the constraint table, and the log subscriber.
package service

import (
	"errors"
	"fmt"
)

const (
	// ErrDiscoveryFailed means the discovery transport could not run a pass.
	ErrDiscoveryFailed = "discovery_failed"
	// ErrUnsatisfiableConstraint means a constrained process has no eligible discovered node.
	ErrUnsatisfiableConstraint = "unsatisfiable_constraint"
	// ErrNoNodesAvailable means unconstrained work was declared but no node was discovered.
	ErrNoNodesAvailable = "no_nodes_available"
	// ErrBadParameter means that provided parameter does not match declared.
	ErrBadParameter = "bad_parameter"
	// ErrInternalServerError means that an internal server error has occurred.
	ErrInternalServerError = "internal_server_error"
)

// FleetError is a coded error surfaced by fleet operations and the node command server.
type FleetError struct {
	// Code is a machine-readable code.
	Code string `json:"code,omitempty"`
	// Message is a human-readable message.
	Message string `json:"message"`
	// Inner is a wrapped error that is never shown to API consumers.
	Inner error `json:"-"`
}

// NewFleetError creates a new FleetError.
func NewFleetError(code string, message string, inner error) *FleetError {
	return &FleetError{
		Code:    code,
		Message: message,
		Inner:   inner,
	}
}

func NewDiscoveryFailedError(message string, inner error) *FleetError {
	return NewFleetError(ErrDiscoveryFailed, message, inner)
}

func NewUnsatisfiableConstraintError(message string, inner error) *FleetError {
	return NewFleetError(ErrUnsatisfiableConstraint, message, inner)
}

func NewNoNodesAvailableError(message string, inner error) *FleetError {
	return NewFleetError(ErrNoNodesAvailable, message, inner)
}

// NewBadParameterError keeps an already coded inner error as is.
func NewBadParameterError(message string, inner error) *FleetError {
	if fleetInner := ToFleetError(inner); fleetInner != nil {
		return fleetInner
	}
	return NewFleetError(ErrBadParameter, message, inner)
}

// NewInternalServerError keeps an already coded inner error as is.
func NewInternalServerError(message string, inner error) *FleetError {
	if fleetInner := ToFleetError(inner); fleetInner != nil {
		return fleetInner
	}
	return NewFleetError(ErrInternalServerError, message, inner)
}

func (e FleetError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s %s: %v", e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s %s", e.Code, e.Message)
}

// Unwrap the error returning the error's reason.
func (e FleetError) Unwrap() error {
	return e.Inner
}

// ToFleetError returns the FleetError in err's chain, or nil.
func ToFleetError(err error) *FleetError {
	var e *FleetError
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// ToFleetErrorCode returns the code of the error, if available.
func ToFleetErrorCode(err error) string {
	if fe := ToFleetError(err); fe != nil {
		return fe.Code
	}
	return ""
}

func IsFleetError(err error, code string) bool {
	if fe := ToFleetError(err); fe != nil {
		return fe.Code == code
	}
	return false
}

func IsDiscoveryFailedError(err error) bool {
	return IsFleetError(err, ErrDiscoveryFailed)
}

func IsUnsatisfiableConstraintError(err error) bool {
	return IsFleetError(err, ErrUnsatisfiableConstraint)
}

func IsNoNodesAvailableError(err error) bool {
	return IsFleetError(err, ErrNoNodesAvailable)
}

func IsBadParameterError(err error) bool {
	return IsFleetError(err, ErrBadParameter)
}

func IsInternalServerError(err error) bool {
	return IsFleetError(err, ErrInternalServerError)
}
