package service

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// TaskTransactor runs bulk work inside a database transaction using the task
// store bound to that transaction.
type TaskTransactor struct {
	db    *sql.DB
	tasks store.TaskStore
}

var _ bulk.Transactor = (*TaskTransactor)(nil)

// NewTaskTransactor creates a TaskTransactor.
func NewTaskTransactor(db *sql.DB, tasks store.TaskStore) *TaskTransactor {
	if db == nil || tasks == nil {
		panic("task transactor needs a db and a task store")
	}
	return &TaskTransactor{db: db, tasks: tasks}
}

// WithinTransaction implements bulk.Transactor.
func (t *TaskTransactor) WithinTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tx bulk.TaskTx) error,
) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &txTasks{TaskStore: t.tasks.WithTx(tx), tx: tx})
	})
}

type txTasks struct {
	store.TaskStore
	tx *sql.Tx
}

func (t *txTasks) Savepoint(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return store.WithSavepoint(ctx, t.tx, name, fn)
}
