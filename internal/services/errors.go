// Package services defines the business logic for users, jobs, companies and
// referrals. This file centralizes the service-level error taxonomy so that
// every collection reports failures the same way and callers can match them
// with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tbourn/referral-backend/internal/repo"
)

var (
	// ErrNotFound indicates that the addressed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for payloads or query parameters that fail
	// type, enumeration or range checks. No write has happened.
	ErrValidation = errors.New("validation failed")

	// ErrConstraint is returned when the store rejects a write because of a
	// uniqueness, foreign-key or CHECK constraint.
	ErrConstraint = errors.New("constraint violation")

	// ErrStorage wraps any other store failure.
	ErrStorage = errors.New("storage failure")
)

// Error carries one of the sentinel kinds above together with the entity it
// concerns and a client-safe detail message.
type Error struct {
	Kind   error
	Entity string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Kind == ErrNotFound:
		return e.Entity + " not found"
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Is matches the error kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap exposes the underlying store error, if any.
func (e *Error) Unwrap() error { return e.Err }

func notFound(entity string) error {
	return &Error{Kind: ErrNotFound, Entity: entity}
}

func invalid(entity, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

// classify maps a repo error onto the taxonomy. Errors that are already
// classified pass through unchanged.
func classify(entity string, err error) error {
	var se *Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &se):
		return err
	case errors.Is(err, repo.ErrNotFound):
		return notFound(entity)
	case repo.IsConstraintViolation(err):
		return &Error{Kind: ErrConstraint, Entity: entity, Detail: constraintDetail(entity, err), Err: err}
	default:
		return &Error{Kind: ErrStorage, Entity: entity, Err: err}
	}
}

func constraintDetail(entity string, err error) string {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return entity + " conflicts with an existing record"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return entity + " references a record that does not exist"
	default:
		return entity + " violates a data constraint"
	}
}
