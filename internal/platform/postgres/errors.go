package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// PostgreSQL SQLSTATE codes handled by MapError.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
	notNullViolationCode    = "23502"
)

// constraintErrors names the store error for each schema constraint, so a
// violation reads the same as the check the Go code would have made.
var constraintErrors = map[string]error{
	"users_email_key":       store.ErrEmailExists,
	"users_username_key":    store.ErrUsernameExists,
	"users_role_check":      fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidRole),
	"tasks_user_id_fkey":    fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTaskOwner),
	"tasks_priority_check":  fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrInvalidPriority),
	"tasks_title_not_blank": fmt.Errorf("%w: %w", store.ErrInvalidEntity, domain.ErrEmptyTitle),
}

// MapError translates driver errors into store sentinels. The original error
// stays in the chain for logging; unknown errors are returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	if known, ok := constraintErrors[pgErr.ConstraintName]; ok {
		return fmt.Errorf("%w: %w", known, err)
	}

	switch pgErr.Code {
	case uniqueViolationCode:
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	case foreignKeyViolationCode, checkViolationCode:
		return fmt.Errorf("%w: constraint %s: %w", store.ErrInvalidEntity, pgErr.ConstraintName, err)
	case notNullViolationCode:
		return fmt.Errorf("%w: column %s is required: %w", store.ErrInvalidEntity, pgErr.ColumnName, err)
	}
	return err
}

// constraintName returns the violated constraint, or "" for other errors.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// expectRows returns notFound when an UPDATE or DELETE touched no row.
func expectRows(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
