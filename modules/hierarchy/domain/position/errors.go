package position

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("position %q not found", e.ID)
}

type CycleError struct {
	ID          string
	NewParentID string
}

func (e *CycleError) Error() string {
	if e.ID == e.NewParentID {
		return fmt.Sprintf("position %q cannot report to itself", e.ID)
	}
	return fmt.Sprintf("moving position %q under %q would create a cycle", e.ID, e.NewParentID)
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

func NewNotFound(id string) error { return &NotFoundError{ID: id} }

func NewValidation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsCycle(err error) bool {
	var target *CycleError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
