package bulk

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, kv cache.Store, opts RegistryOptions) *Registry {
	t.Helper()
	log, _ := logger.NewTestLogger()
	return NewRegistry(kv, opts, log)
}

func finishedOp(userID int64, kind Kind) Operation {
	op := NewOperation(userID, kind, 1, epoch)
	op.UpdateProgress(1, 0, "", epoch)
	return op.Clone()
}

func deleteCreated(ids ...int64) *Reversal {
	return &Reversal{Kind: ReversalDeleteCreated, TaskIDs: ids}
}

func TestRegistry_BeginMirrorsToCache(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore(time.Minute)
	r := newTestRegistry(t, kv, RegistryOptions{})

	tr := r.Begin(ctx, 3, KindCreate, 2)

	var mirrored Operation
	hit, err := kv.Get(ctx, cache.OperationKey(tr.ID()), &mirrored)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, StatusPending, mirrored.Status)
	assert.Equal(t, int64(3), mirrored.UserID)

	tr.Track(ctx, 1, 0)
	tr.Finish(ctx, 2, 0)

	_, err = kv.Get(ctx, cache.OperationKey(tr.ID()), &mirrored)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, mirrored.Status)
	assert.Equal(t, 2, mirrored.ProcessedItems)
}

func TestRegistry_LookupFallsBackToMirrorAfterEviction(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore(time.Minute)
	r := newTestRegistry(t, kv, RegistryOptions{MaxOperations: 2})

	first := r.Begin(ctx, 1, KindDelete, 0)
	first.Finish(ctx, 0, 0)
	r.Begin(ctx, 1, KindDelete, 0)
	r.Begin(ctx, 1, KindDelete, 0)
	assert.Equal(t, 2, r.Tracked())

	op, err := r.Lookup(ctx, first.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, op.Status)

	_, err = r.Cancel(ctx, first.ID())
	assert.ErrorIs(t, err, ErrOperationFinished)
}

func TestRegistry_LookupUnknown(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOptions{})
	_, err := r.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestRegistry_Cancel(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t, cache.NewMemoryStore(time.Minute), RegistryOptions{})

	tr := r.Begin(ctx, 1, KindUpdate, 5)
	tr.Track(ctx, 1, 0)

	op, err := r.Cancel(ctx, tr.ID())
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, op.Status)
	assert.True(t, tr.Cancelled())

	_, err = r.Cancel(ctx, tr.ID())
	assert.ErrorIs(t, err, ErrOperationFinished)
}

func TestTracker_MirrorsPeriodically(t *testing.T) {
	ctx := context.Background()
	var writes []Operation
	op := NewOperation(1, KindCreate, 100, epoch)
	tr := newTracker(op, func() time.Time { return epoch }, func(_ context.Context, o Operation) {
		writes = append(writes, o)
	})

	for i := 1; i <= 60; i++ {
		tr.Track(ctx, i, 0)
	}

	// pending->running at item 1, then every mirrorEvery items.
	require.Len(t, writes, 3)
	assert.Equal(t, StatusRunning, writes[0].Status)
	assert.Equal(t, 26, writes[1].ProcessedItems)
	assert.Equal(t, 51, writes[2].ProcessedItems)
}

func TestTracker_FailAfterCancelKeepsCancelled(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(NewOperation(1, KindDelete, 4, epoch), time.Now, nil)
	tr.Track(ctx, 2, 0)
	require.True(t, tr.Cancel(ctx))

	tr.Fail(ctx, "rolled back")

	op := tr.Snapshot()
	assert.Equal(t, StatusCancelled, op.Status)
	assert.Zero(t, op.ProcessedItems)
	assert.Empty(t, op.ErrorMessage)
}

func TestRegistry_UndoStackEvictsOldest(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOptions{UndoStackSize: 10})

	var ids []string
	for i := 0; i < 11; i++ {
		op := finishedOp(5, KindCreate)
		ids = append(ids, op.ID)
		r.PushUndo(op, deleteCreated(int64(i+1)))
	}

	history := r.UndoHistory(5)
	require.Len(t, history, 10)
	assert.Equal(t, ids[10], history[0].OperationID, "most recent first")
	assert.Equal(t, ids[1], history[9].OperationID)

	_, err := r.AcquireUndo(5, ids[0])
	assert.ErrorIs(t, err, ErrUndoNotFound)
}

func TestRegistry_PushUndoIgnoresEmptyReversal(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOptions{})
	r.PushUndo(finishedOp(1, KindReorder), nil)
	r.PushUndo(finishedOp(1, KindUpdate), &Reversal{Kind: ReversalRestoreUpdated})

	assert.Empty(t, r.UndoHistory(1))
	_, err := r.AcquireUndo(1, "")
	assert.ErrorIs(t, err, ErrUndoStackEmpty)
}

func TestRegistry_AcquireRelease(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOptions{})
	older, newer := finishedOp(2, KindCreate), finishedOp(2, KindDelete)
	r.PushUndo(older, deleteCreated(1))
	r.PushUndo(newer, &Reversal{Kind: ReversalRecreateDeleted, Snapshots: []TaskSnapshot{{ID: 4, UserID: 2, Title: "x"}}})

	t.Run("latest by default", func(t *testing.T) {
		e, err := r.AcquireUndo(2, "")
		require.NoError(t, err)
		assert.Equal(t, newer.ID, e.Operation.ID)

		_, err = r.AcquireUndo(2, newer.ID)
		assert.ErrorIs(t, err, ErrUndoInProgress)
		_, err = r.AcquireUndo(2, "")
		assert.ErrorIs(t, err, ErrUndoInProgress)

		history := r.UndoHistory(2)
		require.Len(t, history, 2)
		assert.False(t, history[0].CanUndo)
		assert.True(t, history[1].CanUndo)

		r.ReleaseUndo(2, newer.ID, false)
		_, err = r.AcquireUndo(2, newer.ID)
		require.NoError(t, err)
		r.ReleaseUndo(2, newer.ID, true)
	})

	t.Run("by id", func(t *testing.T) {
		e, err := r.AcquireUndo(2, older.ID)
		require.NoError(t, err)
		assert.Equal(t, ReversalDeleteCreated, e.Reversal.Kind)
		r.ReleaseUndo(2, older.ID, true)

		_, err = r.AcquireUndo(2, "")
		assert.ErrorIs(t, err, ErrUndoStackEmpty)
	})

	t.Run("other users are isolated", func(t *testing.T) {
		r.PushUndo(finishedOp(3, KindCreate), deleteCreated(9))
		_, err := r.AcquireUndo(4, "")
		assert.ErrorIs(t, err, ErrUndoStackEmpty)
	})
}

func TestRegistry_UndoEntriesExpire(t *testing.T) {
	r := newTestRegistry(t, nil, RegistryOptions{StatusTTL: time.Minute})
	now := epoch
	r.now = func() time.Time { return now }

	op := finishedOp(1, KindCreate)
	r.PushUndo(op, deleteCreated(1))
	require.Len(t, r.UndoHistory(1), 1)

	now = now.Add(2 * time.Minute)
	assert.Empty(t, r.UndoHistory(1))
	_, err := r.AcquireUndo(1, op.ID)
	assert.ErrorIs(t, err, ErrUndoNotFound)
}

func TestUndoStack_Remove(t *testing.T) {
	s := &undoStack{limit: 3}
	for i := 0; i < 3; i++ {
		op := finishedOp(1, KindCreate)
		op.ID = fmt.Sprintf("op-%d", i)
		s.push(&UndoEntry{Operation: op, Reversal: deleteCreated(int64(i))})
	}
	s.remove("op-1")
	require.Len(t, s.entries, 2)
	assert.Equal(t, "op-2", s.latest().Operation.ID)
	assert.Nil(t, s.find("op-1"))
}

func TestUndoStack_PushKeepsInFlightEntries(t *testing.T) {
	s := &undoStack{limit: 2}
	for i := 0; i < 2; i++ {
		op := finishedOp(1, KindCreate)
		op.ID = fmt.Sprintf("op-%d", i)
		s.push(&UndoEntry{Operation: op, Reversal: deleteCreated(int64(i))})
	}
	s.find("op-0").inFlight = true

	op := finishedOp(1, KindCreate)
	op.ID = "op-2"
	s.push(&UndoEntry{Operation: op, Reversal: deleteCreated(2)})

	require.Len(t, s.entries, 2)
	assert.NotNil(t, s.find("op-0"), "the entry being undone survives")
	assert.Nil(t, s.find("op-1"))
	assert.Equal(t, "op-2", s.latest().Operation.ID)

	s.find("op-0").inFlight = false
	op = finishedOp(1, KindCreate)
	op.ID = "op-3"
	s.push(&UndoEntry{Operation: op, Reversal: deleteCreated(3)})
	require.Len(t, s.entries, 2)
	assert.Nil(t, s.find("op-0"))
}
