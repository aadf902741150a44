package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// ErrInjected is a convenient failure for the *Fn hooks.
var ErrInjected = errors.New("injected failure")

// TaskDB is an in-memory task table implementing bulk.Transactor.
//
// Transactions and savepoints snapshot the table and restore it on error,
// which gives tests the same all-or-nothing behaviour as Postgres.
type TaskDB struct {
	mu     sync.Mutex
	tasks  map[int64]*domain.Task
	nextID int64

	// Hooks run before the corresponding write; a non-nil error aborts it.
	CreateFn func(task *domain.Task) error
	UpdateFn func(task *domain.Task) error
	DeleteFn func(ids []int64) error

	// CommitErr makes the next commit fail once.
	CommitErr error

	// SavepointRollbackErr makes rolling back to a savepoint fail, leaving
	// the transaction unusable as Postgres would.
	SavepointRollbackErr error

	// Transactions counts WithinTransaction calls.
	Transactions int
}

// NewTaskDB creates an empty TaskDB.
func NewTaskDB() *TaskDB {
	return &TaskDB{tasks: make(map[int64]*domain.Task), nextID: 1}
}

var _ bulk.Transactor = (*TaskDB)(nil)

// Seed inserts tasks directly, assigning ids to those without one.
func (db *TaskDB) Seed(tasks ...*domain.Task) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, t := range tasks {
		db.insert(t)
	}
}

// Get returns a copy of a stored task.
func (db *TaskDB) Get(id int64) (*domain.Task, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// All returns copies of every stored task ordered by id.
func (db *TaskDB) All() []*domain.Task {
	db.mu.Lock()
	defer db.mu.Unlock()
	out := make([]*domain.Task, 0, len(db.tasks))
	for _, t := range db.tasks {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored tasks.
func (db *TaskDB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.tasks)
}

// WithinTransaction implements bulk.Transactor. Transactions are serialised.
func (db *TaskDB) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx bulk.TaskTx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.Transactions++
	saved := db.snapshot()
	if err := fn(ctx, &taskTx{db: db}); err != nil {
		db.restore(saved)
		return err
	}
	if err := db.CommitErr; err != nil {
		db.CommitErr = nil
		db.restore(saved)
		return err
	}
	return nil
}

func (db *TaskDB) insert(t *domain.Task) {
	if t.ID == 0 {
		t.ID = db.nextID
	}
	if t.ID >= db.nextID {
		db.nextID = t.ID + 1
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	t.UpdatedAt = t.CreatedAt
	db.tasks[t.ID] = t.Clone()
}

func (db *TaskDB) snapshot() map[int64]*domain.Task {
	c := make(map[int64]*domain.Task, len(db.tasks))
	for id, t := range db.tasks {
		c[id] = t.Clone()
	}
	return c
}

func (db *TaskDB) restore(saved map[int64]*domain.Task) {
	db.tasks = saved
}

// taskTx runs with db.mu held by WithinTransaction.
type taskTx struct {
	db *TaskDB
}

func (tx *taskTx) Create(_ context.Context, task *domain.Task) error {
	if tx.db.CreateFn != nil {
		if err := tx.db.CreateFn(task); err != nil {
			return err
		}
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	if err := task.Validate(); err != nil {
		return errors.Join(store.ErrInvalidEntity, err)
	}
	task.ID = 0
	task.CreatedAt = time.Time{}
	tx.db.insert(task)
	return nil
}

func (tx *taskTx) GetByIDs(_ context.Context, ids []int64, ownerID *int64) ([]*domain.Task, error) {
	out := make([]*domain.Task, 0, len(ids))
	for _, id := range ids {
		t, ok := tx.db.tasks[id]
		if !ok {
			continue
		}
		if ownerID != nil && t.UserID != *ownerID {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *taskTx) Update(_ context.Context, task *domain.Task) error {
	if tx.db.UpdateFn != nil {
		if err := tx.db.UpdateFn(task); err != nil {
			return err
		}
	}
	if err := task.Validate(); err != nil {
		return errors.Join(store.ErrInvalidEntity, err)
	}
	if _, ok := tx.db.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	tx.db.tasks[task.ID] = task.Clone()
	return nil
}

func (tx *taskTx) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	if tx.db.DeleteFn != nil {
		if err := tx.db.DeleteFn(ids); err != nil {
			return 0, err
		}
	}
	var n int64
	for _, id := range ids {
		if _, ok := tx.db.tasks[id]; ok {
			delete(tx.db.tasks, id)
			n++
		}
	}
	return n, nil
}

func (tx *taskTx) Savepoint(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	saved := tx.db.snapshot()
	if err := fn(ctx); err != nil {
		if rbErr := tx.db.SavepointRollbackErr; rbErr != nil {
			return fmt.Errorf("%w: rollback to savepoint: %v (original error: %w)",
				store.ErrTransactionFailed, rbErr, err)
		}
		tx.db.restore(saved)
		return err
	}
	return nil
}
