package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyName    = errors.New("name must not be empty")
	ErrInvalidTheme = errors.New("unknown theme")
	ErrInvalidRole  = errors.New("unknown role")
	ErrInvalidID    = errors.New("invalid project id")

	// ErrNotAuthorized is returned when the caller is anonymous or not the owner.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound is returned by owner-scoped reads of a missing project.
	ErrNotFound = errors.New("project not found")
	// ErrNotFoundOrUnpublished is the single error of public reads. Missing and
	// unpublished projects are indistinguishable to the caller.
	ErrNotFoundOrUnpublished = errors.New("project not found or not published")
	// ErrTransport matches every TransportError.
	ErrTransport = errors.New("transport failure")
)

// ValidationError is raised locally and never reaches the remote service.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// TransportError wraps network, timeout and unexpected remote failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
