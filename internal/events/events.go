package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// TypeTasksChanged is emitted after single-task CRUD writes.
	TypeTasksChanged = "tasks.changed"

	// TypeBulkOperationFinished is emitted after a bulk operation commits.
	TypeBulkOperationFinished = "bulk.operation_finished"

	// TypeUndoApplied is emitted after an undo commits.
	TypeUndoApplied = "bulk.undo_applied"
)

// Event describes a change to one user's data.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Type   string    `json:"type"`
	UserID int64     `json:"user_id"`

	// Payload is the type-specific body, already encoded.
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event for userID. A nil payload is omitted.
func NewEvent(eventType string, userID int64, payload any) (*Event, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		UserID:    userID,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler reacts to emitted events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter is what services publish through. They never see handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
