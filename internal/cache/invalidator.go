package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/events"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// Invalidator forgets derived per-user cache entries after a mutation.
// Failures are logged and never returned: the next read recomputes anyway.
type Invalidator struct {
	store  Store
	logger *slog.Logger
}

// NewInvalidator creates an Invalidator over store.
func NewInvalidator(store Store, logger *slog.Logger) *Invalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Invalidator{store: store, logger: logger.With("component", "cache_invalidator")}
}

var _ events.EventHandler = (*Invalidator)(nil)

// HandleEvent invalidates the caches of the event's user. It never fails.
func (i *Invalidator) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.UserID <= 0 {
		return nil
	}
	i.InvalidateUser(ctx, event.UserID)
	return nil
}

// InvalidateUser drops the user's record and task listing plus every search,
// suggestion and stats entry scoped to the user.
func (i *Invalidator) InvalidateUser(ctx context.Context, userID int64) {
	log := logger.FromContextOrDefault(ctx, i.logger)

	if err := i.store.Delete(ctx, UserKey(userID), UserTasksKey(userID)); err != nil {
		log.Warn("failed to invalidate user keys", "user_id", userID, "error", err)
	}

	removed := 0
	for _, pattern := range UserPatterns(userID) {
		n, err := i.store.DeletePattern(ctx, pattern)
		if err != nil {
			log.Warn("failed to invalidate cache pattern",
				"user_id", userID, "pattern", pattern, "error", err)
			continue
		}
		removed += n
	}

	log.Debug("invalidated user caches", "user_id", userID, "pattern_keys_removed", removed)
}

// UserPatterns lists the glob patterns covering a user's derived entries.
func UserPatterns(userID int64) []string {
	var patterns []string
	for _, prefix := range []string{PrefixSearch, PrefixSuggestions, PrefixStats} {
		patterns = append(patterns,
			fmt.Sprintf("%suser_%d_*", prefix, userID),
			fmt.Sprintf("%s*user_%d_*", prefix, userID),
		)
	}
	return patterns
}
