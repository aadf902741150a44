package bulk

import (
	"time"

	"github.com/phrazzld/taskflow-api/internal/domain"
)

// ReversalKind names how an operation is undone.
type ReversalKind string

const (
	// ReversalDeleteCreated deletes tasks an operation created.
	ReversalDeleteCreated ReversalKind = "delete_created"
	// ReversalRestoreUpdated writes back the pre-change field values.
	ReversalRestoreUpdated ReversalKind = "restore_updated"
	// ReversalRecreateDeleted inserts deleted tasks again under new ids.
	ReversalRecreateDeleted ReversalKind = "recreate_deleted"
)

// Reversal is the data needed to invert a committed operation. It only
// covers items that succeeded.
type Reversal struct {
	Kind      ReversalKind   `json:"kind"`
	TaskIDs   []int64        `json:"task_ids,omitempty"`
	Snapshots []TaskSnapshot `json:"snapshots,omitempty"`
}

// Empty reports whether there is nothing to invert.
func (r *Reversal) Empty() bool {
	return r == nil || (len(r.TaskIDs) == 0 && len(r.Snapshots) == 0)
}

// TaskSnapshot is the user-visible state of a task at a point in time.
type TaskSnapshot struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Completed   bool            `json:"completed"`
	Priority    domain.Priority `json:"priority"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Position    int             `json:"position"`
}

// Snapshot captures t.
func Snapshot(t *domain.Task) TaskSnapshot {
	c := t.Clone()
	return TaskSnapshot{
		ID:          c.ID,
		UserID:      c.UserID,
		Title:       c.Title,
		Description: c.Description,
		Completed:   c.Completed,
		Priority:    c.Priority,
		DueDate:     c.DueDate,
		Position:    c.Position,
	}
}

// restore writes the snapshot's fields back onto t, leaving identity and
// timestamps alone.
func (s TaskSnapshot) restore(t *domain.Task) {
	t.Title = s.Title
	t.Description = s.Description
	t.Completed = s.Completed
	t.Priority = s.Priority
	t.Position = s.Position
	t.DueDate = nil
	if s.DueDate != nil {
		d := *s.DueDate
		t.DueDate = &d
	}
}

// recreate builds a new, unsaved task from the snapshot.
func (s TaskSnapshot) recreate() *domain.Task {
	t := &domain.Task{UserID: s.UserID}
	s.restore(t)
	return t
}

func snapshotIDs(snaps []TaskSnapshot) []int64 {
	ids := make([]int64, len(snaps))
	for i, s := range snaps {
		ids[i] = s.ID
	}
	return ids
}
