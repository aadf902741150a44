package bulk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// RegistryOptions bounds what the registry keeps.
type RegistryOptions struct {
	// MaxOperations caps how many operations are tracked in memory.
	MaxOperations int
	// StatusTTL is how long operation status and undo entries live.
	StatusTTL time.Duration
	// UndoStackSize caps each user's undo stack.
	UndoStackSize int
}

// DefaultRegistryOptions mirrors the configuration defaults.
func DefaultRegistryOptions() RegistryOptions {
	return RegistryOptions{MaxOperations: 10000, StatusTTL: time.Hour, UndoStackSize: 10}
}

// Registry is the process-wide index of bulk operations and undo stacks.
//
// Operations live in a size- and TTL-bounded LRU and are mirrored to the
// key-value store so status stays readable after eviction or a restart.
// Undo stacks live in memory only.
type Registry struct {
	ops    *expirable.LRU[string, *Tracker]
	kv     cache.Store
	opts   RegistryOptions
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	stacks map[int64]*undoStack
}

// NewRegistry creates a Registry. kv may be nil, in which case status is
// memory-only.
func NewRegistry(kv cache.Store, opts RegistryOptions, logger *slog.Logger) *Registry {
	def := DefaultRegistryOptions()
	if opts.MaxOperations <= 0 {
		opts.MaxOperations = def.MaxOperations
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = def.StatusTTL
	}
	if opts.UndoStackSize <= 0 {
		opts.UndoStackSize = def.UndoStackSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		ops:    expirable.NewLRU[string, *Tracker](opts.MaxOperations, nil, opts.StatusTTL),
		kv:     kv,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "bulk_registry"),
		stacks: make(map[int64]*undoStack),
	}
}

// Begin registers a new pending operation and returns its tracker.
func (r *Registry) Begin(ctx context.Context, userID int64, kind Kind, total int) *Tracker {
	op := NewOperation(userID, kind, total, r.now())
	t := newTracker(op, r.now, r.mirror)
	r.ops.Add(op.ID, t)
	r.mirror(ctx, op.Clone())
	return t
}

// Lookup returns the latest known state of an operation, falling back to the
// key-value mirror when it is no longer held in memory.
func (r *Registry) Lookup(ctx context.Context, id string) (Operation, error) {
	if t, ok := r.ops.Get(id); ok {
		return t.Snapshot(), nil
	}
	if r.kv == nil {
		return Operation{}, ErrOperationNotFound
	}

	var op Operation
	hit, err := r.kv.Get(ctx, cache.OperationKey(id), &op)
	if err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("operation mirror read failed",
			"operation_id", id, "error", err)
		return Operation{}, ErrOperationNotFound
	}
	if !hit {
		return Operation{}, ErrOperationNotFound
	}
	return op, nil
}

// Cancel requests cancellation of an in-memory operation owned by the
// caller. Operations only present in the mirror can no longer be cancelled.
func (r *Registry) Cancel(ctx context.Context, id string) (Operation, error) {
	t, ok := r.ops.Get(id)
	if !ok {
		op, err := r.Lookup(ctx, id)
		if err != nil {
			return Operation{}, err
		}
		if op.Status.Terminal() {
			return op, ErrOperationFinished
		}
		return Operation{}, ErrOperationNotFound
	}
	if !t.Cancel(ctx) {
		return t.Snapshot(), ErrOperationFinished
	}
	return t.Snapshot(), nil
}

// Tracked returns how many operations are held in memory.
func (r *Registry) Tracked() int {
	return r.ops.Len()
}

func (r *Registry) mirror(ctx context.Context, op Operation) {
	if r.kv == nil {
		return
	}
	if err := r.kv.Set(ctx, cache.OperationKey(op.ID), op, r.opts.StatusTTL); err != nil {
		logger.FromContextOrDefault(ctx, r.logger).Warn("operation mirror write failed",
			"operation_id", op.ID, "status", op.Status, "error", err)
	}
}

// PushUndo records a reversible operation on its owner's stack. Operations
// with an empty reversal are ignored.
func (r *Registry) PushUndo(op Operation, rev *Reversal) {
	if rev.Empty() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stack(op.UserID)
	s.push(&UndoEntry{
		Operation: op,
		Reversal:  rev,
		ExpiresAt: r.now().Add(r.opts.StatusTTL),
	})
}

// AcquireUndo reserves an undo entry. An empty opID selects the most recent
// entry. The entry stays on the stack, marked in flight, until ReleaseUndo.
func (r *Registry) AcquireUndo(userID int64, opID string) (*UndoEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stacks[userID]
	if ok {
		s.prune(r.now())
	}
	if !ok || len(s.entries) == 0 {
		if opID != "" {
			return nil, ErrUndoNotFound
		}
		return nil, ErrUndoStackEmpty
	}

	var e *UndoEntry
	if opID == "" {
		e = s.latest()
	} else if e = s.find(opID); e == nil {
		return nil, ErrUndoNotFound
	}

	if e.inFlight {
		return nil, ErrUndoInProgress
	}
	if e.Reversal.Empty() {
		return nil, ErrNotReversible
	}
	e.inFlight = true
	return e, nil
}

// ReleaseUndo ends a reservation. A successful undo removes the entry; a
// failed one leaves it available for another attempt.
func (r *Registry) ReleaseUndo(userID int64, opID string, undone bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stacks[userID]
	if !ok {
		return
	}
	if !undone {
		if e := s.find(opID); e != nil {
			e.inFlight = false
		}
		return
	}
	s.remove(opID)
	if len(s.entries) == 0 {
		delete(r.stacks, userID)
	}
}

// UndoHistory lists a user's undo stack, most recent first.
func (r *Registry) UndoHistory(userID int64) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stacks[userID]
	if !ok {
		return []HistoryEntry{}
	}
	s.prune(r.now())
	if len(s.entries) == 0 {
		delete(r.stacks, userID)
		return []HistoryEntry{}
	}
	return s.history()
}

func (r *Registry) stack(userID int64) *undoStack {
	s, ok := r.stacks[userID]
	if !ok {
		s = &undoStack{limit: r.opts.UndoStackSize}
		r.stacks[userID] = s
	}
	return s
}
