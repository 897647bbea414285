package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"metakit/internal/core/apperror"
)

// Postgres error codes the repositories care about.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique-index violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign-key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// MapWriteError translates driver errors from an insert or update into the
// application error vocabulary. Unique violations become duplicates so the
// database index stays the authority on uniqueness under concurrency.
func MapWriteError(err error, entity, field, value string) error {
	if err == nil {
		return nil
	}
	if IsUniqueViolation(err) {
		return apperror.NewDuplicate(entity, field, value).WithCause(err)
	}
	return apperror.NewInternal(err)
}

// MapReadError translates driver errors from a single-row read.
func MapReadError(err error, entity string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, id)
	}
	return apperror.NewInternal(err)
}
