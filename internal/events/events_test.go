package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	HandledCount int
	LastEvent    *Event
	HandlerError error
}

func (h *MockEventHandler) HandleEvent(ctx context.Context, event *Event) error {
	h.HandledCount++
	h.LastEvent = event
	return h.HandlerError
}

func TestNewEvent(t *testing.T) {
	payload := map[string]any{"operation_id": "op-1", "processed": 2}

	event, err := NewEvent(TypeBulkOperationFinished, 7, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TypeBulkOperationFinished, event.Type)
	assert.Equal(t, int64(7), event.UserID)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded struct {
		OperationID string `json:"operation_id"`
		Processed   int    `json:"processed"`
	}
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "op-1", decoded.OperationID)
	assert.Equal(t, 2, decoded.Processed)
}

func TestNewEvent_NilPayload(t *testing.T) {
	event, err := NewEvent(TypeTasksChanged, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, event.Payload)
}

func TestNewEvent_UnmarshalablePayload(t *testing.T) {
	_, err := NewEvent(TypeTasksChanged, 1, make(chan int))
	assert.Error(t, err)
}
