package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create validates and inserts the task, setting its ID and timestamps.
	// Returns ErrInvalidEntity if the owner does not exist or a constraint fails.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// GetByIDs returns the tasks among ids that exist, ordered by id. When
	// ownerID is non-nil only tasks owned by that user are returned; foreign
	// and missing ids are silently absent from the result.
	GetByIDs(ctx context.Context, ids []int64, ownerID *int64) ([]*domain.Task, error)

	// Update overwrites the mutable fields of an existing task and refreshes
	// UpdatedAt. Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task. Returns ErrTaskNotFound if it does not exist.
	Delete(ctx context.Context, id int64) error

	// DeleteByIDs removes every listed task and returns how many rows went.
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)

	// List returns tasks ordered by position, then newest first. A nil
	// ownerID lists every user's tasks.
	List(ctx context.Context, ownerID *int64, filter domain.TaskFilter) ([]*domain.Task, error)

	// Stats aggregates a user's tasks.
	Stats(ctx context.Context, userID int64) (*domain.TaskStats, error)

	// WithTx returns a TaskStore bound to the given transaction.
	WithTx(tx *sql.Tx) TaskStore
}
