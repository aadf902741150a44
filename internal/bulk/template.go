package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskflow-api/internal/cache"
	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// Template limits.
const (
	MaxTemplateNameLength = 100
	MaxTemplateTasks      = 50
)

// Template is a named, reusable list of task payloads.
type Template struct {
	ID          string           `json:"id"`
	OwnerID     int64            `json:"owner_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Tasks       []map[string]any `json:"tasks"`
	IsPublic    bool             `json:"is_public"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TemplateInput is the user-supplied part of a Template.
type TemplateInput struct {
	Name        string
	Description string
	Category    string
	Tasks       []map[string]any
	// IsPublic is recorded but templates are only ever applied by their
	// owner or an admin.
	IsPublic bool
}

// Validate checks name and task list bounds. Errors wrap ErrValidation.
func (in *TemplateInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > MaxTemplateNameLength {
		return fmt.Errorf("%w: template name must be 1-%d characters", ErrValidation, MaxTemplateNameLength)
	}
	if n := len(in.Tasks); n == 0 || n > MaxTemplateTasks {
		return fmt.Errorf("%w: template must hold 1-%d tasks", ErrValidation, MaxTemplateTasks)
	}
	for i, t := range in.Tasks {
		if !hasTitle(t) {
			return fmt.Errorf("%w: template task %d has no title", ErrValidation, i)
		}
	}
	return nil
}

// TemplateStore keeps templates in the key-value cache with a bounded
// lifetime, plus a per-owner index of template ids.
type TemplateStore struct {
	// indexMu serialises owner index rewrites within this process.
	indexMu sync.Mutex

	kv     cache.Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewTemplateStore creates a TemplateStore.
func NewTemplateStore(kv cache.Store, ttl time.Duration, logger *slog.Logger) *TemplateStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemplateStore{
		kv:     kv,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "template_store"),
	}
}

// Create validates and stores a new template owned by ownerID.
func (s *TemplateStore) Create(ctx context.Context, ownerID int64, in TemplateInput) (*Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	tasks, err := copyPayloads(in.Tasks)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	t := &Template{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Tasks:       tasks,
		IsPublic:    in.IsPublic,
		CreatedAt:   s.now(),
	}
	if err := s.kv.Set(ctx, cache.TemplateKey(t.ID), t, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to store template: %w", err)
	}

	if err := s.index(ctx, ownerID, t.ID); err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("template created",
		"template_id", t.ID, "user_id", ownerID, "tasks", len(t.Tasks))
	return t, nil
}

// Get loads a template by id.
func (s *TemplateStore) Get(ctx context.Context, id string) (*Template, error) {
	var t Template
	hit, err := s.kv.Get(ctx, cache.TemplateKey(id), &t)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if !hit {
		return nil, ErrTemplateNotFound
	}
	return &t, nil
}

// List returns the owner's live templates, optionally narrowed to one
// category. Index entries whose template has expired are skipped.
func (s *TemplateStore) List(ctx context.Context, ownerID int64, category string) ([]*Template, error) {
	ids, err := s.ownerIndex(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)

	out := make([]*Template, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, ErrTemplateNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if category != "" && !strings.EqualFold(t.Category, category) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TemplateStore) index(ctx context.Context, ownerID int64, id string) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	ids, err := s.ownerIndex(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, cache.UserTemplatesKey(ownerID), append(ids, id), s.ttl); err != nil {
		return fmt.Errorf("failed to index template: %w", err)
	}
	return nil
}

func (s *TemplateStore) ownerIndex(ctx context.Context, ownerID int64) ([]string, error) {
	var ids []string
	if _, err := s.kv.Get(ctx, cache.UserTemplatesKey(ownerID), &ids); err != nil {
		return nil, fmt.Errorf("failed to load template index: %w", err)
	}
	return ids, nil
}

// Instantiate returns deep copies of the template's task payloads with
// overrides merged over each one.
func (t *Template) Instantiate(overrides map[string]any) ([]map[string]any, error) {
	items, err := copyPayloads(t.Tasks)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		for k, v := range overrides {
			item[k] = v
		}
	}
	return items, nil
}

// copyPayloads deep-copies JSON-shaped payloads.
func copyPayloads(in []map[string]any) ([]map[string]any, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("task payloads are not JSON: %w", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func hasTitle(item map[string]any) bool {
	s, ok := item[FieldTitle].(string)
	return ok && strings.TrimSpace(s) != ""
}
