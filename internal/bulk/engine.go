package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/phrazzld/taskflow-api/internal/store"
)

// Request limits.
const (
	MaxCreateItems  = 100
	MaxBatchItems   = 1000
	MaxSuffixLength = 50

	DefaultDuplicateSuffix = " (Copy)"
)

const itemSavepoint = "bulk_item"

// ItemResult is the outcome of one item. Index refers to the item's position
// in the request.
type ItemResult struct {
	Index  int    `json:"index"`
	TaskID int64  `json:"task_id,omitempty"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// Result is what a bulk call returns. It always carries the operation, even
// when the operation failed.
type Result struct {
	Operation Operation      `json:"operation"`
	Items     []ItemResult   `json:"results"`
	Tasks     []*domain.Task `json:"tasks,omitempty"`
}

// Move sets one task's position.
type Move struct {
	TaskID   int64 `json:"id"`
	Position int   `json:"position"`
}

// UndoResult describes an applied undo.
type UndoResult struct {
	OperationID   string       `json:"operation_id"`
	OperationType Kind         `json:"operation_type"`
	Reversal      ReversalKind `json:"reversal"`
	AffectedItems int          `json:"affected_items"`
	// RecreatedTaskIDs holds the new ids of tasks brought back after a delete.
	RecreatedTaskIDs []int64 `json:"recreated_task_ids,omitempty"`
}

// Engine runs bulk operations, undo and template application.
type Engine struct {
	tx        Transactor
	registry  *Registry
	templates *TemplateStore
	emitter   events.EventEmitter
	metrics   *Metrics
	logger    *slog.Logger
}

// NewEngine wires an Engine. emitter and metrics may be nil.
func NewEngine(
	tx Transactor,
	registry *Registry,
	templates *TemplateStore,
	emitter events.EventEmitter,
	metrics *Metrics,
	logger *slog.Logger,
) *Engine {
	if tx == nil {
		panic("bulk: transactor cannot be nil")
	}
	if registry == nil {
		panic("bulk: registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tx:        tx,
		registry:  registry,
		templates: templates,
		emitter:   emitter,
		metrics:   metrics,
		logger:    logger.With("component", "bulk_engine"),
	}
}

// Create inserts one task per item, owned by the caller.
func (e *Engine) Create(ctx context.Context, actor domain.Identity, items []map[string]any) (*Result, error) {
	if err := checkCount(len(items), MaxCreateItems); err != nil {
		return nil, err
	}
	for i, item := range items {
		if !hasTitle(item) {
			return nil, fmt.Errorf("%w: task %d has no title", ErrValidation, i)
		}
	}

	return e.run(ctx, actor, KindCreate, len(items), func(ctx context.Context, tx TaskTx, x *execution) error {
		rev := &Reversal{Kind: ReversalDeleteCreated}
		x.reversal = rev
		for i, item := range items {
			if x.tracker.Cancelled() {
				break
			}
			var created *domain.Task
			ok, err := x.apply(ctx, tx, i, 0, func(ctx context.Context) (int64, error) {
				patch, err := ParsePatch(item)
				if err != nil {
					return 0, err
				}
				task := &domain.Task{UserID: actor.UserID, Priority: domain.PriorityMedium}
				patch.Apply(task)
				if err := tx.Create(ctx, task); err != nil {
					return 0, err
				}
				created = task
				return task.ID, nil
			})
			if err != nil {
				return err
			}
			if ok {
				rev.TaskIDs = append(rev.TaskIDs, created.ID)
				x.tasks = append(x.tasks, created)
				x.touch(actor.UserID)
			}
		}
		return nil
	}), nil
}

// Update applies an allow-listed field patch to every matched task.
func (e *Engine) Update(ctx context.Context, actor domain.Identity, ids []int64, fields map[string]any) (*Result, error) {
	ids, err := normalizeIDs(ids, MaxBatchItems)
	if err != nil {
		return nil, err
	}
	patch, err := ParsePatch(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return e.patchTasks(ctx, actor, KindUpdate, ids, patch), nil
}

// ChangeStatus sets the completed flag on every matched task.
func (e *Engine) ChangeStatus(ctx context.Context, actor domain.Identity, ids []int64, completed bool) (*Result, error) {
	ids, err := normalizeIDs(ids, MaxBatchItems)
	if err != nil {
		return nil, err
	}
	return e.patchTasks(ctx, actor, KindStatusChange, ids, TaskPatch{Completed: &completed}), nil
}

// ChangePriority sets the priority of every matched task.
func (e *Engine) ChangePriority(ctx context.Context, actor domain.Identity, ids []int64, priority string) (*Result, error) {
	ids, err := normalizeIDs(ids, MaxBatchItems)
	if err != nil {
		return nil, err
	}
	p, err := domain.ParsePriority(priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return e.patchTasks(ctx, actor, KindPriorityChange, ids, TaskPatch{Priority: &p}), nil
}

func (e *Engine) patchTasks(ctx context.Context, actor domain.Identity, kind Kind, ids []int64, patch TaskPatch) *Result {
	return e.run(ctx, actor, kind, len(ids), func(ctx context.Context, tx TaskTx, x *execution) error {
		tasks, index, err := x.scope(ctx, tx, ids, actor)
		if err != nil {
			return err
		}
		rev := &Reversal{Kind: ReversalRestoreUpdated}
		x.reversal = rev
		for _, task := range tasks {
			if x.tracker.Cancelled() {
				break
			}
			before := Snapshot(task)
			ok, err := x.apply(ctx, tx, index[task.ID], task.ID, func(ctx context.Context) (int64, error) {
				t := task.Clone()
				patch.Apply(t)
				return t.ID, tx.Update(ctx, t)
			})
			if err != nil {
				return err
			}
			if ok {
				rev.Snapshots = append(rev.Snapshots, before)
				x.touch(task.UserID)
			}
		}
		return nil
	})
}

// Delete removes every matched task.
func (e *Engine) Delete(ctx context.Context, actor domain.Identity, ids []int64) (*Result, error) {
	ids, err := normalizeIDs(ids, MaxBatchItems)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, actor, KindDelete, len(ids), func(ctx context.Context, tx TaskTx, x *execution) error {
		tasks, index, err := x.scope(ctx, tx, ids, actor)
		if err != nil {
			return err
		}
		rev := &Reversal{Kind: ReversalRecreateDeleted}
		x.reversal = rev
		for _, task := range tasks {
			if x.tracker.Cancelled() {
				break
			}
			ok, err := x.apply(ctx, tx, index[task.ID], task.ID, func(ctx context.Context) (int64, error) {
				n, err := tx.DeleteByIDs(ctx, []int64{task.ID})
				if err != nil {
					return 0, err
				}
				if n == 0 {
					return 0, store.ErrTaskNotFound
				}
				return task.ID, nil
			})
			if err != nil {
				return err
			}
			if ok {
				rev.Snapshots = append(rev.Snapshots, Snapshot(task))
				x.touch(task.UserID)
			}
		}
		return nil
	}), nil
}

// Reorder sets explicit positions. It records no reversal.
func (e *Engine) Reorder(ctx context.Context, actor domain.Identity, moves []Move) (*Result, error) {
	if err := checkCount(len(moves), MaxBatchItems); err != nil {
		return nil, err
	}
	ids := make([]int64, len(moves))
	positions := make(map[int64]int, len(moves))
	for i, m := range moves {
		if m.TaskID <= 0 {
			return nil, fmt.Errorf("%w: task id %d is not valid", ErrValidation, m.TaskID)
		}
		if m.Position < 0 {
			return nil, fmt.Errorf("%w: position for task %d must not be negative", ErrValidation, m.TaskID)
		}
		if _, dup := positions[m.TaskID]; dup {
			return nil, fmt.Errorf("%w: task %d appears more than once", ErrValidation, m.TaskID)
		}
		positions[m.TaskID] = m.Position
		ids[i] = m.TaskID
	}

	return e.run(ctx, actor, KindReorder, len(ids), func(ctx context.Context, tx TaskTx, x *execution) error {
		tasks, index, err := x.scope(ctx, tx, ids, actor)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if x.tracker.Cancelled() {
				break
			}
			ok, err := x.apply(ctx, tx, index[task.ID], task.ID, func(ctx context.Context) (int64, error) {
				t := task.Clone()
				t.Position = positions[task.ID]
				return t.ID, tx.Update(ctx, t)
			})
			if err != nil {
				return err
			}
			if ok {
				x.touch(task.UserID)
			}
		}
		return nil
	}), nil
}

// Duplicate copies every matched task into the caller's list. The copies are
// incomplete and their titles carry suffix.
func (e *Engine) Duplicate(ctx context.Context, actor domain.Identity, ids []int64, suffix string) (*Result, error) {
	ids, err := normalizeIDs(ids, MaxCreateItems)
	if err != nil {
		return nil, err
	}
	if len([]rune(suffix)) > MaxSuffixLength {
		return nil, fmt.Errorf("%w: suffix must be at most %d characters", ErrValidation, MaxSuffixLength)
	}

	return e.run(ctx, actor, KindDuplicate, len(ids), func(ctx context.Context, tx TaskTx, x *execution) error {
		tasks, index, err := x.scope(ctx, tx, ids, actor)
		if err != nil {
			return err
		}
		rev := &Reversal{Kind: ReversalDeleteCreated}
		x.reversal = rev
		for _, task := range tasks {
			if x.tracker.Cancelled() {
				break
			}
			var created *domain.Task
			ok, err := x.apply(ctx, tx, index[task.ID], task.ID, func(ctx context.Context) (int64, error) {
				c := task.Clone()
				c.ID = 0
				c.UserID = actor.UserID
				c.Title = task.Title + suffix
				c.Completed = false
				c.CreatedAt = time.Time{}
				if err := tx.Create(ctx, c); err != nil {
					return 0, err
				}
				created = c
				return c.ID, nil
			})
			if err != nil {
				return err
			}
			if ok {
				rev.TaskIDs = append(rev.TaskIDs, created.ID)
				x.tasks = append(x.tasks, created)
				x.touch(actor.UserID)
			}
		}
		return nil
	}), nil
}

// Status returns an operation visible to the caller.
func (e *Engine) Status(ctx context.Context, actor domain.Identity, id string) (Operation, error) {
	op, err := e.registry.Lookup(ctx, id)
	if err != nil {
		return Operation{}, err
	}
	if !actor.CanAccess(op.UserID) {
		return Operation{}, ErrOperationNotFound
	}
	return op, nil
}

// Cancel requests cancellation of an operation visible to the caller.
func (e *Engine) Cancel(ctx context.Context, actor domain.Identity, id string) (Operation, error) {
	if _, err := e.Status(ctx, actor, id); err != nil {
		return Operation{}, err
	}
	op, err := e.registry.Cancel(ctx, id)
	if err != nil {
		return op, err
	}
	logger.FromContextOrDefault(ctx, e.logger).Info("bulk operation cancelled",
		"operation_id", id, "user_id", actor.UserID)
	return op, nil
}

// Undo reverts one of the caller's operations; an empty id selects the
// most recent one.
func (e *Engine) Undo(ctx context.Context, actor domain.Identity, operationID string) (*UndoResult, error) {
	log := logger.FromContextOrDefault(ctx, e.logger)

	entry, err := e.registry.AcquireUndo(actor.UserID, operationID)
	if err != nil {
		e.metrics.ObserveUndo(err)
		return nil, err
	}

	res, touched, err := e.revert(ctx, entry)
	e.registry.ReleaseUndo(actor.UserID, entry.Operation.ID, err == nil)
	e.metrics.ObserveUndo(err)
	if err != nil {
		log.Error("undo failed",
			"operation_id", entry.Operation.ID,
			"user_id", actor.UserID,
			"error", err)
		if errors.Is(err, ErrNotReversible) {
			return nil, err
		}
		return nil, fmt.Errorf("undo of %s failed: %w", entry.Operation.ID, err)
	}

	e.emit(ctx, events.TypeUndoApplied, touched, res)
	log.Info("undo applied",
		"operation_id", res.OperationID,
		"reversal", res.Reversal,
		"affected_items", res.AffectedItems)
	return res, nil
}

func (e *Engine) revert(ctx context.Context, entry *UndoEntry) (*UndoResult, map[int64]struct{}, error) {
	rev := entry.Reversal
	res := &UndoResult{
		OperationID:   entry.Operation.ID,
		OperationType: entry.Operation.Kind,
		Reversal:      rev.Kind,
	}
	touched := make(map[int64]struct{})

	err := e.tx.WithinTransaction(ctx, func(ctx context.Context, tx TaskTx) error {
		res.AffectedItems = 0
		res.RecreatedTaskIDs = nil
		clear(touched)

		switch rev.Kind {
		case ReversalDeleteCreated:
			tasks, err := tx.GetByIDs(ctx, rev.TaskIDs, nil)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				touched[t.UserID] = struct{}{}
			}
			n, err := tx.DeleteByIDs(ctx, rev.TaskIDs)
			if err != nil {
				return err
			}
			res.AffectedItems = int(n)

		case ReversalRestoreUpdated:
			tasks, err := tx.GetByIDs(ctx, snapshotIDs(rev.Snapshots), nil)
			if err != nil {
				return err
			}
			current := make(map[int64]*domain.Task, len(tasks))
			for _, t := range tasks {
				current[t.ID] = t
			}
			for _, snap := range rev.Snapshots {
				t, ok := current[snap.ID]
				if !ok {
					continue
				}
				snap.restore(t)
				if err := tx.Update(ctx, t); err != nil {
					return err
				}
				touched[t.UserID] = struct{}{}
				res.AffectedItems++
			}

		case ReversalRecreateDeleted:
			for _, snap := range rev.Snapshots {
				t := snap.recreate()
				if err := tx.Create(ctx, t); err != nil {
					return err
				}
				touched[t.UserID] = struct{}{}
				res.RecreatedTaskIDs = append(res.RecreatedTaskIDs, t.ID)
				res.AffectedItems++
			}

		default:
			return ErrNotReversible
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, touched, nil
}

// UndoHistory lists the caller's undo stack, most recent first.
func (e *Engine) UndoHistory(_ context.Context, actor domain.Identity) []HistoryEntry {
	return e.registry.UndoHistory(actor.UserID)
}

// CreateTemplate stores a template owned by the caller.
func (e *Engine) CreateTemplate(ctx context.Context, actor domain.Identity, in TemplateInput) (*Template, error) {
	return e.templates.Create(ctx, actor.UserID, in)
}

// ListTemplates returns the caller's templates, optionally by category.
func (e *Engine) ListTemplates(ctx context.Context, actor domain.Identity, category string) ([]*Template, error) {
	return e.templates.List(ctx, actor.UserID, category)
}

// ApplyTemplate creates tasks from a template. Overrides replace the
// corresponding field of every template task.
func (e *Engine) ApplyTemplate(
	ctx context.Context,
	actor domain.Identity,
	templateID string,
	overrides map[string]any,
) (*Result, error) {
	for name := range overrides {
		if _, ok := allowedFields[name]; !ok {
			return nil, fmt.Errorf("%w: field %q cannot be overridden", ErrValidation, name)
		}
	}

	t, err := e.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(t.OwnerID) {
		return nil, ErrTemplateForbidden
	}
	items, err := t.Instantiate(overrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return e.Create(ctx, actor, items)
}

// run tracks one bulk call around body. A transaction-fatal error fails the
// operation but is not returned; the caller reads it from the operation.
func (e *Engine) run(
	ctx context.Context,
	actor domain.Identity,
	kind Kind,
	total int,
	body func(ctx context.Context, tx TaskTx, x *execution) error,
) *Result {
	started := time.Now()
	tr := e.registry.Begin(ctx, actor.UserID, kind, total)
	log := logger.FromContextOrDefault(ctx, e.logger).With(
		"operation_id", tr.ID(),
		"operation_type", kind,
		"user_id", actor.UserID,
	)

	x := &execution{tracker: tr}
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context, tx TaskTx) error {
		x.reset()
		return body(ctx, tx, x)
	})
	if err != nil {
		log.Error("bulk operation rolled back", "error", err)
		tr.Fail(ctx, "bulk operation failed; no changes were applied")
		op := tr.Snapshot()
		e.metrics.ObserveOperation(op, time.Since(started))
		return &Result{Operation: op, Items: []ItemResult{}}
	}

	tr.Finish(ctx, x.processed, x.failed)
	op := tr.Snapshot()

	if op.SuccessfulItems() > 0 {
		e.registry.PushUndo(op, x.reversal)
		e.emit(ctx, events.TypeBulkOperationFinished, x.touched, op)
	}

	log.Info("bulk operation finished",
		"status", op.Status,
		"total", op.TotalItems,
		"processed", op.ProcessedItems,
		"failed", op.FailedItems,
		"duration_ms", time.Since(started).Milliseconds())
	e.metrics.ObserveOperation(op, time.Since(started))

	return &Result{Operation: op, Items: x.items, Tasks: x.tasks}
}

// emit publishes one event per affected owner. Failures are logged only.
func (e *Engine) emit(ctx context.Context, eventType string, owners map[int64]struct{}, payload any) {
	if e.emitter == nil {
		return
	}
	log := logger.FromContextOrDefault(ctx, e.logger)
	for userID := range owners {
		ev, err := events.NewEvent(eventType, userID, payload)
		if err != nil {
			log.Warn("failed to build event", "type", eventType, "error", err)
			return
		}
		if err := e.emitter.EmitEvent(ctx, ev); err != nil {
			log.Warn("event handling failed",
				"type", eventType,
				"user_id", userID,
				"error", err)
		}
	}
}

// execution accumulates the state of one run of a bulk body.
type execution struct {
	tracker   *Tracker
	processed int
	failed    int
	items     []ItemResult
	tasks     []*domain.Task
	reversal  *Reversal
	touched   map[int64]struct{}
}

func (x *execution) reset() {
	x.processed, x.failed = 0, 0
	x.items = []ItemResult{}
	x.tasks = nil
	x.reversal = nil
	x.touched = make(map[int64]struct{})
}

func (x *execution) touch(userID int64) {
	x.touched[userID] = struct{}{}
}

// scope loads the requested tasks the actor may touch, in request order, and
// rescopes the operation total to them. index maps task id to its position in
// the request.
func (x *execution) scope(
	ctx context.Context,
	tx TaskTx,
	ids []int64,
	actor domain.Identity,
) ([]*domain.Task, map[int64]int, error) {
	found, err := tx.GetByIDs(ctx, ids, actor.OwnerScope())
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]*domain.Task, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	tasks := make([]*domain.Task, 0, len(found))
	index := make(map[int64]int, len(found))
	for i, id := range ids {
		if t, ok := byID[id]; ok {
			tasks = append(tasks, t)
			index[id] = i
		}
	}
	x.tracker.SetTotal(ctx, len(tasks))
	return tasks, index, nil
}

// apply runs one item inside a savepoint. Item-level failures are recorded
// and reported as ok=false; any other error is returned and aborts the run.
func (x *execution) apply(
	ctx context.Context,
	tx TaskTx,
	index int,
	taskID int64,
	fn func(ctx context.Context) (int64, error),
) (bool, error) {
	id := taskID
	err := tx.Savepoint(ctx, itemSavepoint, func(ctx context.Context) error {
		got, err := fn(ctx)
		if got != 0 {
			id = got
		}
		return err
	})
	if err != nil && !isItemError(err) {
		return false, err
	}

	x.processed++
	res := ItemResult{Index: index, TaskID: id, OK: err == nil}
	if err != nil {
		x.failed++
		res.Error = err.Error()
	}
	x.items = append(x.items, res)
	x.tracker.Track(ctx, x.processed, x.failed)
	return err == nil, nil
}

// isItemError reports whether err only concerns the item that produced it.
// A failed savepoint rollback leaves the transaction aborted, whatever the
// item's own error was.
func isItemError(err error) bool {
	if errors.Is(err, store.ErrTransactionFailed) {
		return false
	}
	return errors.Is(err, ErrItemInvalid) ||
		errors.Is(err, store.ErrInvalidEntity) ||
		errors.Is(err, store.ErrDuplicate) ||
		errors.Is(err, store.ErrNotFound)
}

func checkCount(n, limit int) error {
	if n == 0 {
		return fmt.Errorf("%w: no items given", ErrValidation)
	}
	if n > limit {
		return fmt.Errorf("%w: at most %d items per request, got %d", ErrValidation, limit, n)
	}
	return nil
}

// normalizeIDs validates ids and drops repeats, keeping first occurrence.
func normalizeIDs(ids []int64, limit int) ([]int64, error) {
	if err := checkCount(len(ids), limit); err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("%w: task id %d is not valid", ErrValidation, id)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
