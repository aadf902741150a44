package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTitleLength matches the width of the tasks.title column.
const MaxTitleLength = 255

// Task validation errors
var (
	ErrEmptyTitle      = errors.New("task title cannot be empty")
	ErrTitleTooLong    = fmt.Errorf("task title must be at most %d characters", MaxTitleLength)
	ErrInvalidPriority = errors.New("priority must be one of low, medium, high")
	ErrEmptyTaskOwner  = errors.New("task owner cannot be empty")
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority validates a raw priority string.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrInvalidPriority, s)
}

// Task is a unit of work owned by exactly one user.
//
// Position is an explicit ordering key; listings sort by position ascending
// and then by most recently created.
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask creates an incomplete task with medium priority.
func NewTask(userID int64, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: description,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks the task's invariants.
func (t *Task) Validate() error {
	if t.UserID <= 0 {
		return ErrEmptyTaskOwner
	}
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len([]rune(title)) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if _, err := ParsePriority(string(t.Priority)); err != nil {
		return err
	}
	return nil
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	return &c
}

// TaskFilter narrows a task listing. Nil fields are not applied.
type TaskFilter struct {
	Completed *bool
	Priority  *Priority
	Query     string
	Limit     int
	Offset    int
}

// TaskStats summarises a user's tasks.
type TaskStats struct {
	Total      int              `json:"total"`
	Completed  int              `json:"completed"`
	Pending    int              `json:"pending"`
	ByPriority map[Priority]int `json:"by_priority"`
}
