package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// IsConstraintViolation reports whether err was raised by a uniqueness,
// foreign-key, NOT NULL or CHECK constraint in the store.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	// Postgres: SQLSTATE class 23 is "integrity constraint violation".
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	// glebarez/sqlite often returns plain-text errors for constraint failures.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "constraint failed") ||
		strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "foreign key constraint")
}
