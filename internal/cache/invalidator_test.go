package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidator_InvalidateUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	keep := []string{UserTasksKey(10), UserSearchKey(10, "q"), UserKey(2)}
	drop := []string{
		UserKey(1),
		UserTasksKey(1),
		UserStatsKey(1),
		UserSearchKey(1, "abc"),
		"suggestions:recent_user_1_titles",
	}
	for _, k := range append(keep, drop...) {
		require.NoError(t, m.Set(ctx, k, 1, 0))
	}

	NewInvalidator(m, nil).InvalidateUser(ctx, 1)

	var v int
	for _, k := range drop {
		hit, _ := m.Get(ctx, k, &v)
		assert.False(t, hit, k)
	}
	for _, k := range keep {
		hit, _ := m.Get(ctx, k, &v)
		assert.True(t, hit, k)
	}
}

type failingStore struct{ Store }

func (failingStore) Delete(context.Context, ...string) error {
	return errors.New("redis down")
}

func (failingStore) DeletePattern(context.Context, string) (int, error) {
	return 0, errors.New("redis down")
}

func TestInvalidator_FailuresAreLogged(t *testing.T) {
	log, buf := logger.NewTestLogger()

	assert.NotPanics(t, func() {
		NewInvalidator(failingStore{}, log).InvalidateUser(context.Background(), 3)
	})
	msgs := buf.Messages()
	assert.Contains(t, msgs, "failed to invalidate user keys")
	assert.Contains(t, msgs, "failed to invalidate cache pattern")
}

func TestInvalidator_HandleEvent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(time.Minute)
	require.NoError(t, m.Set(ctx, UserTasksKey(4), []int{1}, 0))

	emitter := events.NewInMemoryEventEmitter(nil)
	emitter.RegisterHandler(NewInvalidator(m, nil))

	ev, err := events.NewEvent(events.TypeBulkOperationFinished, 4, nil)
	require.NoError(t, err)
	require.NoError(t, emitter.EmitEvent(ctx, ev))

	assert.Equal(t, 0, m.Len())
}
