package api

import (
	"time"

	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	User         *domain.User `json:"user,omitempty"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	// ExpiresAt is the RFC 3339 expiry of the access token.
	ExpiresAt string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for creating a single task.
type CreateTaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=255"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"    validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	Position    int        `json:"position"    validate:"gte=0"`
}

// TaskListResponse wraps a task listing.
type TaskListResponse struct {
	Tasks  []*domain.Task `json:"tasks"`
	Count  int            `json:"count"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// BulkCreateRequest is the body of POST /api/bulk/create.
type BulkCreateRequest struct {
	Tasks []map[string]any `json:"tasks" validate:"required,min=1"`
}

// BulkUpdateRequest is the body of PUT /api/bulk/update.
type BulkUpdateRequest struct {
	TaskIDs    []int64        `json:"task_ids"    validate:"required,min=1"`
	UpdateData map[string]any `json:"update_data" validate:"required"`
}

// BulkIDsRequest is the body of DELETE /api/bulk/delete.
type BulkIDsRequest struct {
	TaskIDs []int64 `json:"task_ids" validate:"required,min=1"`
}

// BulkStatusRequest is the body of PUT /api/bulk/status.
type BulkStatusRequest struct {
	TaskIDs   []int64 `json:"task_ids"  validate:"required,min=1"`
	Completed *bool   `json:"completed" validate:"required"`
}

// BulkPriorityRequest is the body of PUT /api/bulk/priority.
type BulkPriorityRequest struct {
	TaskIDs  []int64 `json:"task_ids" validate:"required,min=1"`
	Priority string  `json:"priority" validate:"required"`
}

// BulkReorderRequest is the body of PUT /api/bulk/reorder.
type BulkReorderRequest struct {
	TaskPositions []bulk.Move `json:"task_positions" validate:"required,min=1"`
}

// BulkDuplicateRequest is the body of POST /api/bulk/duplicate. A missing
// suffix defaults to " (Copy)".
type BulkDuplicateRequest struct {
	TaskIDs []int64 `json:"task_ids" validate:"required,min=1"`
	Suffix  *string `json:"suffix"`
}

// UndoRequest is the body of POST /api/bulk/undo. An empty id undoes the
// most recent operation.
type UndoRequest struct {
	OperationID string `json:"operation_id"`
}

// UndoResponse reports an applied undo.
type UndoResponse struct {
	*bulk.UndoResult
	Message string `json:"message"`
}

// UndoHistoryResponse lists the caller's undo stack, newest first.
type UndoHistoryResponse struct {
	Operations []bulk.HistoryEntry `json:"operations"`
	Count      int                 `json:"count"`
}

// TemplateRequest is the body of POST /api/bulk/templates.
type TemplateRequest struct {
	Name        string           `json:"name"        validate:"required"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Tasks       []map[string]any `json:"tasks"       validate:"required,min=1"`
	IsPublic    bool             `json:"is_public"`
}

// ApplyTemplateRequest is the body of POST /api/bulk/templates/apply.
type ApplyTemplateRequest struct {
	TemplateID string         `json:"template_id" validate:"required"`
	Overrides  map[string]any `json:"overrides"`
}

// TemplateListResponse wraps a template listing.
type TemplateListResponse struct {
	Templates []*bulk.Template `json:"templates"`
	Count     int              `json:"count"`
}

// ShortcutsResponse maps client key bindings to the bulk endpoints they call.
type ShortcutsResponse struct {
	Shortcuts      map[string]string `json:"shortcuts"`
	BulkOperations map[string]string `json:"bulk_operations"`
}
