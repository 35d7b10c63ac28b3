package types

import (
	"errors"
	"fmt"
)

var (
	// ErrStore means the backing store could not be opened or its schema
	// could not be created.
	ErrStore = errors.New("store unavailable")
	// ErrConstraint is a uniqueness violation reported by the store.
	ErrConstraint = errors.New("constraint violation")
	ErrValidation = errors.New("validation failed")
	// ErrAssembly covers document generation and rendering failures.
	ErrAssembly = errors.New("document assembly failed")
	ErrShare    = errors.New("share failed")

	ErrDefectNotFound    = errors.New("defect not found")
	ErrDuplicateDefectID = fmt.Errorf("%w: defect id already exists", ErrConstraint)
	ErrTemplateContract  = fmt.Errorf("%w: unresolved template placeholder", ErrAssembly)
	ErrRender            = fmt.Errorf("%w: pdf render failed", ErrAssembly)
	ErrShareUnavailable  = fmt.Errorf("%w: Sharing is not available on this device", ErrShare)
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
