package bulk

import (
	"context"
	"sync"
	"time"
)

// mirrorEvery is how many items may be processed between status mirrors.
const mirrorEvery = 25

// Tracker serialises updates to one operation and mirrors its state
// whenever the status changes and periodically while items are processed.
type Tracker struct {
	mu          sync.Mutex
	op          *Operation
	now         func() time.Time
	mirror      func(ctx context.Context, op Operation)
	sinceMirror int
}

func newTracker(op *Operation, now func() time.Time, mirror func(context.Context, Operation)) *Tracker {
	if mirror == nil {
		mirror = func(context.Context, Operation) {}
	}
	return &Tracker{op: op, now: now, mirror: mirror}
}

// ID returns the operation id.
func (t *Tracker) ID() string {
	return t.op.ID
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Operation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.op.Clone()
}

// Cancelled reports whether a cancel request has landed.
func (t *Tracker) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.op.Status == StatusCancelled
}

// SetTotal rescopes a pending operation.
func (t *Tracker) SetTotal(ctx context.Context, total int) {
	t.update(ctx, func(op *Operation) bool { return op.SetTotal(total) })
}

// Track records progress without finishing the operation.
func (t *Tracker) Track(ctx context.Context, processed, failed int) {
	t.mu.Lock()
	before := t.op.Status
	prev := t.op.ProcessedItems
	changed := t.op.Track(processed, failed, t.now())
	if !changed {
		t.mu.Unlock()
		return
	}
	t.sinceMirror += t.op.ProcessedItems - prev
	flush := t.op.Status != before || t.sinceMirror >= mirrorEvery
	if flush {
		t.sinceMirror = 0
	}
	snap := t.op.Clone()
	t.mu.Unlock()

	if flush {
		t.mirror(ctx, snap)
	}
}

// Finish completes the operation after its work has been committed. A
// cancelled operation stays cancelled.
func (t *Tracker) Finish(ctx context.Context, processed, failed int) {
	t.update(ctx, func(op *Operation) bool {
		if op.Status == StatusCancelled {
			return op.settle(processed, failed)
		}
		return op.UpdateProgress(processed, failed, "", t.now())
	})
}

// Fail marks the operation failed. An operation cancelled before its
// transaction rolled back stays cancelled but reports nothing processed.
func (t *Tracker) Fail(ctx context.Context, errMsg string) {
	t.update(ctx, func(op *Operation) bool {
		if op.Status == StatusCancelled {
			return op.discard()
		}
		return op.Fail(errMsg, t.now())
	})
}

// Cancel requests cancellation; it reports false for terminal operations.
func (t *Tracker) Cancel(ctx context.Context) bool {
	return t.update(ctx, func(op *Operation) bool { return op.Cancel(t.now()) })
}

func (t *Tracker) update(ctx context.Context, fn func(*Operation) bool) bool {
	t.mu.Lock()
	changed := fn(t.op)
	snap := t.op.Clone()
	if changed {
		t.sinceMirror = 0
	}
	t.mu.Unlock()

	if changed {
		t.mirror(ctx, snap)
	}
	return changed
}
