package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/domain"
	"github.com/phrazzld/taskflow-api/internal/service"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	alice = domain.Identity{UserID: 7, Role: domain.RoleUser}
	bob   = domain.Identity{UserID: 8, Role: domain.RoleUser}
	admin = domain.Identity{UserID: 1, Role: domain.RoleAdmin}
)

// asIdentity stands in for the auth middleware.
func asIdentity(id *domain.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id != nil {
				r = r.WithContext(shared.WithIdentity(r.Context(), *id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func mountTasks(h *TaskHandler, id *domain.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(asIdentity(id))
	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Get("/stats", h.GetStats)
		r.Get("/{id}", h.GetTask)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
	})
	return r
}

func mountBulk(h *BulkHandler, id *domain.Identity) http.Handler {
	r := chi.NewRouter()
	r.Use(asIdentity(id))
	r.Route("/api/bulk", func(r chi.Router) {
		r.Post("/create", h.Create)
		r.Put("/update", h.Update)
		r.Delete("/delete", h.Delete)
		r.Put("/status", h.ChangeStatus)
		r.Put("/priority", h.ChangePriority)
		r.Put("/reorder", h.Reorder)
		r.Post("/duplicate", h.Duplicate)
		r.Get("/status/{operation_id}", h.Status)
		r.Post("/operations/{operation_id}/cancel", h.Cancel)
		r.Post("/undo", h.Undo)
		r.Get("/undo/history", h.UndoHistory)
		r.Post("/templates", h.CreateTemplate)
		r.Get("/templates", h.ListTemplates)
		r.Post("/templates/apply", h.ApplyTemplate)
		r.Get("/shortcuts", h.Shortcuts)
	})
	return r
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Register(ctx context.Context, email, username, password string) (*domain.User, error) {
	args := m.Called(ctx, email, username, password)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	args := m.Called(ctx, email, password)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, ok := args.Get(0).(*domain.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTaskService struct {
	mock.Mock
}

var _ service.TaskService = (*mockTaskService)(nil)

func (m *mockTaskService) CreateTask(ctx context.Context, actor domain.Identity, in service.TaskInput) (*domain.Task, error) {
	args := m.Called(ctx, actor, in)
	if t, ok := args.Get(0).(*domain.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) GetTask(ctx context.Context, actor domain.Identity, id int64) (*domain.Task, error) {
	args := m.Called(ctx, actor, id)
	if t, ok := args.Get(0).(*domain.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) UpdateTask(
	ctx context.Context,
	actor domain.Identity,
	id int64,
	patch bulk.TaskPatch,
) (*domain.Task, error) {
	args := m.Called(ctx, actor, id, patch)
	if t, ok := args.Get(0).(*domain.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, actor domain.Identity, id int64) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *mockTaskService) ListTasks(ctx context.Context, actor domain.Identity, filter domain.TaskFilter) ([]*domain.Task, error) {
	args := m.Called(ctx, actor, filter)
	if t, ok := args.Get(0).([]*domain.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTaskService) GetStats(ctx context.Context, actor domain.Identity) (*domain.TaskStats, error) {
	args := m.Called(ctx, actor)
	if s, ok := args.Get(0).(*domain.TaskStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
