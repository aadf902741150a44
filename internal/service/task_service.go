package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Listing limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// TaskInput carries the fields of a new task.
type TaskInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	DueDate     *time.Time
	Position    int
}

// TaskService provides single-task operations scoped by caller identity.
type TaskService interface {
	CreateTask(ctx context.Context, actor domain.Identity, in TaskInput) (*domain.Task, error)

	// GetTask returns store.ErrTaskNotFound for a missing task and
	// ErrNotOwned when a non-admin asks for someone else's.
	GetTask(ctx context.Context, actor domain.Identity, id int64) (*domain.Task, error)

	UpdateTask(ctx context.Context, actor domain.Identity, id int64, patch bulk.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, actor domain.Identity, id int64) error

	// ListTasks lists the caller's tasks, or every task for an admin.
	ListTasks(ctx context.Context, actor domain.Identity, filter domain.TaskFilter) ([]*domain.Task, error)

	GetStats(ctx context.Context, actor domain.Identity) (*domain.TaskStats, error)
}

type taskServiceImpl struct {
	tasks   store.TaskStore
	db      *sql.DB
	loader  *cache.Loader
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewTaskService creates a TaskService. loader and emitter may be nil, which
// disables read caching and change events respectively.
func NewTaskService(
	tasks store.TaskStore,
	db *sql.DB,
	loader *cache.Loader,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if db == nil {
		return nil, fmt.Errorf("database cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &taskServiceImpl{
		tasks:   tasks,
		db:      db,
		loader:  loader,
		emitter: emitter,
		logger:  logger.With("component", "task_service"),
	}, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, actor domain.Identity, in TaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(actor.UserID, in.Title, in.Description)
	if err != nil {
		return nil, err
	}
	if in.Priority != "" {
		p, err := domain.ParsePriority(string(in.Priority))
		if err != nil {
			return nil, err
		}
		task.Priority = p
	}
	task.DueDate = in.DueDate
	task.Position = in.Position

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, err
		}
		log.Error("failed to create task", "error", err, "user_id", actor.UserID)
		return nil, NewTaskServiceError("create", "failed to save task", err)
	}

	log.Info("task created", "task_id", task.ID, "user_id", task.UserID)
	s.changed(ctx, task.UserID, task.ID, "created")
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, actor domain.Identity, id int64) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewTaskServiceError("get", "failed to load task", err)
	}
	if !actor.CanAccess(task.UserID) {
		logger.FromContextOrDefault(ctx, s.logger).Warn("task access denied",
			"task_id", id, "owner_id", task.UserID, "user_id", actor.UserID)
		return nil, ErrNotOwned
	}
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actor domain.Identity,
	id int64,
	patch bulk.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.tasks.WithTx(tx)

		task, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(task.UserID) {
			return ErrNotOwned
		}

		patch.Apply(task)
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if err := txStore.Update(ctx, task); err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotOwned), store.IsNotFoundError(err), errors.Is(err, store.ErrInvalidEntity):
			log.Debug("task update rejected", "task_id", id, "user_id", actor.UserID, "error", err)
			return nil, err
		}
		log.Error("failed to update task", "error", err, "task_id", id)
		return nil, NewTaskServiceError("update", "failed to save task", err)
	}

	log.Info("task updated", "task_id", id, "fields", patch.Fields())
	s.changed(ctx, updated.UserID, id, "updated")
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, actor domain.Identity, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var ownerID int64
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.tasks.WithTx(tx)

		task, err := txStore.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanAccess(task.UserID) {
			return ErrNotOwned
		}
		ownerID = task.UserID
		return txStore.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrNotOwned) || store.IsNotFoundError(err) {
			return err
		}
		log.Error("failed to delete task", "error", err, "task_id", id)
		return NewTaskServiceError("delete", "failed to delete task", err)
	}

	log.Info("task deleted", "task_id", id, "user_id", ownerID)
	s.changed(ctx, ownerID, id, "deleted")
	return nil
}

func (s *taskServiceImpl) ListTasks(
	ctx context.Context,
	actor domain.Identity,
	filter domain.TaskFilter,
) ([]*domain.Task, error) {
	filter = normalizeFilter(filter)
	load := func(ctx context.Context) ([]*domain.Task, error) {
		tasks, err := s.tasks.List(ctx, actor.OwnerScope(), filter)
		if err != nil {
			return nil, NewTaskServiceError("list", "failed to list tasks", err)
		}
		return tasks, nil
	}

	// Admin listings span every tenant and are never cached.
	if s.loader == nil || actor.IsAdmin() {
		return load(ctx)
	}
	return cache.GetOrLoad(ctx, s.loader, listKey(actor.UserID, filter), load)
}

func (s *taskServiceImpl) GetStats(ctx context.Context, actor domain.Identity) (*domain.TaskStats, error) {
	load := func(ctx context.Context) (*domain.TaskStats, error) {
		stats, err := s.tasks.Stats(ctx, actor.UserID)
		if err != nil {
			return nil, NewTaskServiceError("stats", "failed to compute stats", err)
		}
		return stats, nil
	}
	if s.loader == nil {
		return load(ctx)
	}
	return cache.GetOrLoad(ctx, s.loader, cache.UserStatsKey(actor.UserID), load)
}

func (s *taskServiceImpl) changed(ctx context.Context, userID, taskID int64, action string) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(events.TypeTasksChanged, userID, map[string]any{
		"task_id": taskID,
		"action":  action,
	})
	if err == nil {
		err = s.emitter.EmitEvent(ctx, event)
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit task change",
			"error", err, "task_id", taskID)
	}
}

func normalizeFilter(f domain.TaskFilter) domain.TaskFilter {
	f.Query = strings.TrimSpace(f.Query)
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	f.Limit = min(f.Limit, MaxListLimit)
	f.Offset = max(f.Offset, 0)
	return f
}

// listKey picks the cache entry for a normalized filter. The default listing
// has a fixed key; anything else is keyed by a digest of the filter.
func listKey(userID int64, f domain.TaskFilter) string {
	if f.Completed == nil && f.Priority == nil && f.Query == "" && f.Limit == DefaultListLimit && f.Offset == 0 {
		return cache.UserTasksKey(userID)
	}

	var b strings.Builder
	if f.Completed != nil {
		fmt.Fprintf(&b, "completed=%t;", *f.Completed)
	}
	if f.Priority != nil {
		fmt.Fprintf(&b, "priority=%s;", *f.Priority)
	}
	fmt.Fprintf(&b, "q=%s;limit=%d;offset=%d", strings.ToLower(f.Query), f.Limit, f.Offset)

	sum := sha256.Sum256([]byte(b.String()))
	return cache.UserSearchKey(userID, hex.EncodeToString(sum[:8]))
}
