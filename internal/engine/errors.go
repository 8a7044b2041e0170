package engine

import (
	"errors"
	"fmt"

	"bradboard/internal/repo"
)

var ErrForbidden = errors.New("forbidden")

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError names the missing entity and unwraps to repo.ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string { return e.Entity + " not found" }

func (e NotFoundError) Unwrap() error { return repo.ErrNotFound }

// ForbiddenError unwraps to ErrForbidden.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string { return e.Reason }

func (e ForbiddenError) Unwrap() error { return ErrForbidden }

func notFound(err error, entity, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NotFoundError{Entity: entity, ID: id}
	}
	return err
}
