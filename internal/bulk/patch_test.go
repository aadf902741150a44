package bulk

import (
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatch(t *testing.T) {
	due := "2026-03-01T09:00:00Z"
	p, err := ParsePatch(map[string]any{
		"title":       "  Ship it  ",
		"description": nil,
		"completed":   true,
		"priority":    "HIGH",
		"due_date":    due,
	})
	require.NoError(t, err)

	require.NotNil(t, p.Title)
	assert.Equal(t, "Ship it", *p.Title)
	require.NotNil(t, p.Description)
	assert.Empty(t, *p.Description)
	assert.True(t, *p.Completed)
	assert.Equal(t, domain.PriorityHigh, *p.Priority)
	require.NotNil(t, p.DueDate)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), *p.DueDate)
	assert.Equal(t, []string{"title", "description", "completed", "priority", "due_date"}, p.Fields())
}

func TestParsePatch_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"empty", map[string]any{}, "no fields"},
		{"unknown field", map[string]any{"user_id": 2}, `"user_id" cannot be set`},
		{"id is not patchable", map[string]any{"id": 1}, `"id" cannot be set`},
		{"blank title", map[string]any{"title": "   "}, "title cannot be empty"},
		{"long title", map[string]any{"title": strings.Repeat("a", 256)}, "at most 255"},
		{"title type", map[string]any{"title": 12}, "title must be a string"},
		{"completed type", map[string]any{"completed": "yes"}, "completed must be a boolean"},
		{"bad priority", map[string]any{"priority": "urgent"}, "priority must be one of"},
		{"bad due date", map[string]any{"due_date": "tomorrow"}, "RFC 3339"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePatch(tt.fields)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrItemInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTaskPatch_Apply(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	task := &domain.Task{ID: 1, UserID: 2, Title: "old", Priority: domain.PriorityLow, DueDate: &due}

	p, err := ParsePatch(map[string]any{"completed": true, "due_date": nil})
	require.NoError(t, err)
	p.Apply(task)

	assert.True(t, task.Completed)
	assert.Nil(t, task.DueDate)
	assert.Equal(t, "old", task.Title, "untouched fields are kept")
	assert.Equal(t, domain.PriorityLow, task.Priority)
}

func TestSnapshotRestore(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	taskDue := due
	orig := &domain.Task{ID: 4, UserID: 2, Title: "a", Description: "d", Priority: domain.PriorityHigh, DueDate: &taskDue, Position: 3}
	snap := Snapshot(orig)

	orig.Title = "changed"
	*orig.DueDate = due.Add(time.Hour)
	assert.Equal(t, due, *snap.DueDate, "snapshot is independent of the task")

	snap.restore(orig)
	assert.Equal(t, "a", orig.Title)
	assert.Equal(t, due, *orig.DueDate)

	re := snap.recreate()
	assert.Zero(t, re.ID)
	assert.Equal(t, int64(2), re.UserID)
	assert.Equal(t, 3, re.Position)

	assert.True(t, (*Reversal)(nil).Empty())
	assert.False(t, (&Reversal{Kind: ReversalRecreateDeleted, Snapshots: []TaskSnapshot{snap}}).Empty())
}
