package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFoundError is returned when an id does not resolve
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidTransitionError is returned when a state-machine precondition fails.
// The message always names the required state.
type InvalidTransitionError struct {
	Entity   string
	ID       string
	Current  string
	Required []string
	Message  string
}

func (e *InvalidTransitionError) Error() string {
	return e.Message
}

// NewInvalidTransition builds the "Only <entities> with status X can be <done>" form
func NewInvalidTransition(entity, id, current, done string, required ...string) *InvalidTransitionError {
	return &InvalidTransitionError{
		Entity:   entity,
		ID:       id,
		Current:  current,
		Required: required,
		Message:  fmt.Sprintf("Only %ss with status %s can be %s", entity, strings.Join(required, " or "), done),
	}
}

// NewStatusRequired builds the "<entity> must be X to <action>" form
func NewStatusRequired(entity, id, current, action string, required ...string) *InvalidTransitionError {
	return &InvalidTransitionError{
		Entity:   entity,
		ID:       id,
		Current:  current,
		Required: required,
		Message:  fmt.Sprintf("%s must be %s to %s", entity, strings.Join(required, " or "), action),
	}
}

// InsufficientStockError reports a shortfall for one component type
type InsufficientStockError struct {
	TypeComponentID string
	Requested       int
	Available       int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for component type %s: requested %d, available %d",
		e.TypeComponentID, e.Requested, e.Available)
}

// ConflictError is a business-rule violation that is not a status precondition
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewConflict builds a ConflictError
func NewConflict(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ConsistencyFaultError means a locked read contradicts the ledger. It is
// never retried.
type ConsistencyFaultError struct {
	Operation string
	Detail    string
}

func (e *ConsistencyFaultError) Error() string {
	return fmt.Sprintf("consistency fault during %s: %s", e.Operation, e.Detail)
}

// NewConsistencyFault builds a ConsistencyFaultError
func NewConsistencyFault(operation, format string, args ...any) *ConsistencyFaultError {
	return &ConsistencyFaultError{Operation: operation, Detail: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed or missing caller input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ForbiddenError means the caller's role or scope may not perform the operation
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// IsConsistencyFault reports whether err is or wraps a ConsistencyFaultError
func IsConsistencyFault(err error) bool {
	var cf *ConsistencyFaultError
	return errors.As(err, &cf)
}
