package bulk

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind names the action a bulk operation performs.
type Kind string

const (
	KindCreate         Kind = "create"
	KindUpdate         Kind = "update"
	KindDelete         Kind = "delete"
	KindStatusChange   Kind = "status_change"
	KindPriorityChange Kind = "priority_change"
	KindReorder        Kind = "reorder"
	KindDuplicate      Kind = "duplicate"
)

// Status is the lifecycle state of an operation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Operation is the tracked record of one bulk call.
//
// ProcessedItems counts every attempted item, successful or not, so
// FailedItems <= ProcessedItems <= TotalItems always holds.
type Operation struct {
	ID             string     `json:"operation_id"`
	Kind           Kind       `json:"operation_type"`
	Status         Status     `json:"status"`
	UserID         int64      `json:"user_id"`
	TotalItems     int        `json:"total_items"`
	ProcessedItems int        `json:"processed_items"`
	FailedItems    int        `json:"failed_items"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewOperation returns a pending operation with a fresh id.
func NewOperation(userID int64, kind Kind, total int, now time.Time) *Operation {
	if total < 0 {
		total = 0
	}
	return &Operation{
		ID:         uuid.NewString(),
		Kind:       kind,
		Status:     StatusPending,
		UserID:     userID,
		TotalItems: total,
		CreatedAt:  now,
	}
}

// ProgressPercentage is processed/total as a percentage. An operation with
// nothing to do is considered fully progressed.
func (o *Operation) ProgressPercentage() float64 {
	if o.TotalItems == 0 {
		return 100
	}
	return float64(o.ProcessedItems) / float64(o.TotalItems) * 100
}

// SuccessfulItems is the number of processed items that did not fail.
func (o *Operation) SuccessfulItems() int {
	return o.ProcessedItems - o.FailedItems
}

// Track records in-flight progress. It moves a pending operation to running
// but never finishes it; counters only grow and are clamped to the
// invariants. It reports whether anything changed.
func (o *Operation) Track(processed, failed int, now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	changed := o.begin(now)
	p, f := o.clamp(processed, failed)
	if p != o.ProcessedItems || f != o.FailedItems {
		o.ProcessedItems, o.FailedItems = p, f
		changed = true
	}
	return changed
}

// UpdateProgress applies a progress report. A non-empty errMsg fails the
// operation; otherwise it completes once every item has been processed.
// Reports against a terminal operation are ignored.
func (o *Operation) UpdateProgress(processed, failed int, errMsg string, now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	if errMsg != "" {
		o.Fail(errMsg, now)
		return true
	}
	changed := o.Track(processed, failed, now)
	if o.ProcessedItems >= o.TotalItems {
		o.finish(StatusCompleted, now)
		changed = true
	}
	return changed
}

// Fail moves the operation to failed. Nothing a failed operation touched was
// kept, so its counters are reset.
func (o *Operation) Fail(errMsg string, now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	o.begin(now)
	o.ProcessedItems, o.FailedItems = 0, 0
	o.ErrorMessage = errMsg
	o.finish(StatusFailed, now)
	return true
}

// Cancel moves a pending or running operation to cancelled. Items already
// processed are not rolled back.
func (o *Operation) Cancel(now time.Time) bool {
	if o.Status.Terminal() {
		return false
	}
	o.finish(StatusCancelled, now)
	return true
}

// SetTotal rescopes the item count before work starts, once the items the
// caller may actually touch are known.
func (o *Operation) SetTotal(total int) bool {
	if o.Status != StatusPending || total < 0 {
		return false
	}
	o.TotalItems = total
	return true
}

func (o *Operation) begin(now time.Time) bool {
	if o.Status != StatusPending {
		return false
	}
	o.Status = StatusRunning
	t := now
	o.StartedAt = &t
	return true
}

func (o *Operation) finish(status Status, now time.Time) {
	o.Status = status
	t := now
	o.CompletedAt = &t
}

func (o *Operation) clamp(processed, failed int) (int, int) {
	processed = min(max(processed, o.ProcessedItems), o.TotalItems)
	failed = min(max(failed, o.FailedItems), processed)
	return processed, failed
}

// settle brings a cancelled operation's counters up to what its run
// actually committed.
func (o *Operation) settle(processed, failed int) bool {
	if o.Status != StatusCancelled {
		return false
	}
	p, f := o.clamp(processed, failed)
	if p == o.ProcessedItems && f == o.FailedItems {
		return false
	}
	o.ProcessedItems, o.FailedItems = p, f
	return true
}

// discard resets the counters of a cancelled operation whose transaction
// rolled back.
func (o *Operation) discard() bool {
	if o.ProcessedItems == 0 && o.FailedItems == 0 {
		return false
	}
	o.ProcessedItems, o.FailedItems = 0, 0
	return true
}

// MarshalJSON adds the derived progress fields.
func (o Operation) MarshalJSON() ([]byte, error) {
	type plain Operation
	return json.Marshal(struct {
		plain
		ProgressPercentage float64 `json:"progress_percentage"`
		IsCompleted        bool    `json:"is_completed"`
	}{plain(o), o.ProgressPercentage(), o.Status.Terminal()})
}

// Clone returns an independent copy.
func (o *Operation) Clone() Operation {
	c := *o
	if o.StartedAt != nil {
		t := *o.StartedAt
		c.StartedAt = &t
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		c.CompletedAt = &t
	}
	return c
}
