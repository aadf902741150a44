package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/platform/postgres"
	"github.com/phrazzld/taskflow-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "tasks",
		ColumnName:     "title",
		ConstraintName: constraint,
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want []error
	}{
		{"no rows", sql.ErrNoRows, []error{store.ErrNotFound, sql.ErrNoRows}},
		{"email taken", newPgError("23505", "users_email_key"), []error{store.ErrEmailExists, store.ErrDuplicate}},
		{"username taken", newPgError("23505", "users_username_key"), []error{store.ErrUsernameExists}},
		{"unknown unique", newPgError("23505", "other_key"), []error{store.ErrDuplicate}},
		{"missing owner", newPgError("23503", "tasks_user_id_fkey"), []error{store.ErrInvalidEntity, domain.ErrEmptyTaskOwner}},
		{"bad priority", newPgError("23514", "tasks_priority_check"), []error{store.ErrInvalidEntity, domain.ErrInvalidPriority}},
		{"blank title", newPgError("23514", "tasks_title_not_blank"), []error{domain.ErrEmptyTitle}},
		{"unknown check", newPgError("23514", "other_check"), []error{store.ErrInvalidEntity}},
		{"not null", newPgError("23502", ""), []error{store.ErrInvalidEntity}},
		{"wrapped driver error", fmt.Errorf("insert: %w", newPgError("23505", "users_email_key")), []error{store.ErrEmailExists}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := postgres.MapError(tt.err)
			for _, want := range tt.want {
				assert.ErrorIs(t, got, want)
			}
			var pgErr *pgconn.PgError
			if errors.As(tt.err, &pgErr) {
				assert.ErrorAs(t, got, &pgErr, "driver error kept in chain")
			}
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	t.Parallel()

	assert.Nil(t, postgres.MapError(nil))

	other := errors.New("connection reset")
	assert.Equal(t, other, postgres.MapError(other))

	serialization := newPgError("40001", "")
	assert.Equal(t, error(serialization), postgres.MapError(serialization))
}
