package bulk

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestOperation_Lifecycle(t *testing.T) {
	op := NewOperation(7, KindUpdate, 4, epoch)
	require.NotEmpty(t, op.ID)
	assert.Equal(t, StatusPending, op.Status)
	assert.Nil(t, op.StartedAt)
	assert.Zero(t, op.ProgressPercentage())

	assert.True(t, op.UpdateProgress(1, 0, "", epoch.Add(time.Second)))
	assert.Equal(t, StatusRunning, op.Status)
	require.NotNil(t, op.StartedAt)
	assert.Equal(t, 25.0, op.ProgressPercentage())

	op.UpdateProgress(3, 1, "", epoch.Add(2*time.Second))
	assert.Equal(t, StatusRunning, op.Status)
	assert.Nil(t, op.CompletedAt)

	op.UpdateProgress(4, 1, "", epoch.Add(3*time.Second))
	assert.Equal(t, StatusCompleted, op.Status)
	require.NotNil(t, op.CompletedAt)
	assert.Equal(t, 100.0, op.ProgressPercentage())
	assert.Equal(t, 3, op.SuccessfulItems())
	assert.Empty(t, op.ErrorMessage)
}

func TestOperation_TerminalStatesAreFinal(t *testing.T) {
	tests := []struct {
		name   string
		finish func(op *Operation)
		want   Status
	}{
		{"completed", func(op *Operation) { op.UpdateProgress(2, 0, "", epoch) }, StatusCompleted},
		{"failed", func(op *Operation) { op.Fail("boom", epoch) }, StatusFailed},
		{"cancelled", func(op *Operation) { op.Cancel(epoch) }, StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation(1, KindDelete, 2, epoch)
			tt.finish(op)
			before := op.Clone()

			assert.False(t, op.UpdateProgress(1, 1, "", epoch.Add(time.Minute)))
			assert.False(t, op.UpdateProgress(0, 0, "late error", epoch.Add(time.Minute)))
			assert.False(t, op.Track(2, 2, epoch.Add(time.Minute)))
			assert.False(t, op.Fail("again", epoch.Add(time.Minute)))
			assert.False(t, op.Cancel(epoch.Add(time.Minute)))
			assert.False(t, op.SetTotal(10))

			assert.Equal(t, tt.want, op.Status)
			assert.Equal(t, before, *op)
		})
	}
}

func TestOperation_FailResetsCounters(t *testing.T) {
	op := NewOperation(1, KindCreate, 3, epoch)
	op.Track(2, 1, epoch)

	assert.True(t, op.UpdateProgress(2, 1, "database unavailable", epoch))
	assert.Equal(t, StatusFailed, op.Status)
	assert.Equal(t, "database unavailable", op.ErrorMessage)
	assert.Zero(t, op.ProcessedItems)
	assert.Zero(t, op.FailedItems)
	assert.NotNil(t, op.CompletedAt)
}

func TestOperation_ProgressIsMonotoneAndBounded(t *testing.T) {
	op := NewOperation(1, KindUpdate, 10, epoch)
	reports := []struct{ processed, failed int }{
		{3, 0}, {2, 0}, {5, 9}, {4, 1}, {50, 2}, {9, 0},
	}

	last := op.ProgressPercentage()
	for _, r := range reports {
		op.Track(r.processed, r.failed, epoch)
		p := op.ProgressPercentage()
		assert.GreaterOrEqual(t, p, last)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 100.0)
		assert.LessOrEqual(t, op.FailedItems, op.ProcessedItems)
		assert.LessOrEqual(t, op.ProcessedItems, op.TotalItems)
		last = p
	}
	assert.Equal(t, StatusRunning, op.Status, "Track never finishes an operation")
}

func TestOperation_ZeroTotal(t *testing.T) {
	op := NewOperation(1, KindDelete, 0, epoch)
	assert.Equal(t, 100.0, op.ProgressPercentage())

	op.UpdateProgress(0, 0, "", epoch)
	assert.Equal(t, StatusCompleted, op.Status)
	assert.NotNil(t, op.StartedAt)
}

func TestOperation_RepeatedStatusReadsAgree(t *testing.T) {
	op := NewOperation(1, KindUpdate, 5, epoch)
	op.Track(2, 0, epoch)

	first, second := op.Clone(), op.Clone()
	assert.Equal(t, first, second)
}

func TestOperation_SetTotalOnlyWhilePending(t *testing.T) {
	op := NewOperation(1, KindDelete, 5, epoch)
	assert.True(t, op.SetTotal(2))
	assert.Equal(t, 2, op.TotalItems)

	op.Track(1, 0, epoch)
	assert.False(t, op.SetTotal(4))
	assert.Equal(t, 2, op.TotalItems)
}

func TestOperation_CancelledSettleAndDiscard(t *testing.T) {
	op := NewOperation(1, KindDelete, 5, epoch)
	op.Track(2, 0, epoch)
	require.True(t, op.Cancel(epoch))

	assert.True(t, op.settle(3, 1))
	assert.Equal(t, 3, op.ProcessedItems)
	assert.Equal(t, StatusCancelled, op.Status)

	assert.True(t, op.discard())
	assert.Zero(t, op.ProcessedItems)
	assert.Empty(t, op.ErrorMessage)
}

func TestOperation_MarshalJSON(t *testing.T) {
	op := NewOperation(9, KindReorder, 4, epoch)
	op.Track(1, 0, epoch)

	data, err := json.Marshal(op)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, op.ID, got["operation_id"])
	assert.Equal(t, "reorder", got["operation_type"])
	assert.Equal(t, "running", got["status"])
	assert.Equal(t, 25.0, got["progress_percentage"])
	assert.Equal(t, false, got["is_completed"])
	assert.NotContains(t, got, "error_message")

	var back Operation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, op.Clone().ID, back.ID)
	assert.Equal(t, 1, back.ProcessedItems)
}
