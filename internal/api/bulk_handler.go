package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/taskflow-api/internal/api/shared"
	"github.com/phrazzld/taskflow-api/internal/bulk"
	"github.com/phrazzld/taskflow-api/internal/domain"
)

// BulkHandler serves the bulk operation, undo and template endpoints.
type BulkHandler struct {
	engine *bulk.Engine
}

// NewBulkHandler creates a BulkHandler.
func NewBulkHandler(engine *bulk.Engine) *BulkHandler {
	return &BulkHandler{engine: engine}
}

// Create handles POST /api/bulk/create.
func (h *BulkHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.Create(r.Context(), actor, req.Tasks)
	h.respond(w, r, res, err)
}

// Update handles PUT /api/bulk/update.
func (h *BulkHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.Update(r.Context(), actor, req.TaskIDs, req.UpdateData)
	h.respond(w, r, res, err)
}

// Delete handles DELETE /api/bulk/delete.
func (h *BulkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkIDsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.Delete(r.Context(), actor, req.TaskIDs)
	h.respond(w, r, res, err)
}

// ChangeStatus handles PUT /api/bulk/status.
func (h *BulkHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.ChangeStatus(r.Context(), actor, req.TaskIDs, *req.Completed)
	h.respond(w, r, res, err)
}

// ChangePriority handles PUT /api/bulk/priority.
func (h *BulkHandler) ChangePriority(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkPriorityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.ChangePriority(r.Context(), actor, req.TaskIDs, req.Priority)
	h.respond(w, r, res, err)
}

// Reorder handles PUT /api/bulk/reorder.
func (h *BulkHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.Reorder(r.Context(), actor, req.TaskPositions)
	h.respond(w, r, res, err)
}

// Duplicate handles POST /api/bulk/duplicate.
func (h *BulkHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req BulkDuplicateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	suffix := bulk.DefaultDuplicateSuffix
	if req.Suffix != nil {
		suffix = *req.Suffix
	}
	res, err := h.engine.Duplicate(r.Context(), actor, req.TaskIDs, suffix)
	h.respond(w, r, res, err)
}

// Status handles GET /api/bulk/status/{operation_id}.
func (h *BulkHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	op, err := h.engine.Status(r.Context(), actor, chi.URLParam(r, "operation_id"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get bulk operation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, op)
}

// Cancel handles POST /api/bulk/operations/{operation_id}/cancel.
func (h *BulkHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	op, err := h.engine.Cancel(r.Context(), actor, chi.URLParam(r, "operation_id"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to cancel bulk operation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, op)
}

// Undo handles POST /api/bulk/undo. An empty body undoes the most recent
// operation.
func (h *BulkHandler) Undo(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req UndoRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil && !errors.Is(err, shared.ErrEmptyBody) {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	res, err := h.engine.Undo(r.Context(), actor, req.OperationID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to undo operation")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UndoResponse{
		UndoResult: res,
		Message:    "Operation undone",
	})
}

// UndoHistory handles GET /api/bulk/undo/history.
func (h *BulkHandler) UndoHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	history := h.engine.UndoHistory(r.Context(), actor)
	if history == nil {
		history = []bulk.HistoryEntry{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, UndoHistoryResponse{Operations: history, Count: len(history)})
}

var bulkShortcuts = ShortcutsResponse{
	Shortcuts: map[string]string{
		"Ctrl+A / Cmd+A": "Select all tasks",
		"Delete":         "Delete selected tasks",
		"Ctrl+D / Cmd+D": "Duplicate selected tasks",
		"Ctrl+Z / Cmd+Z": "Undo last operation",
		"Space":          "Toggle completion status",
		"1":              "Set priority to high",
		"2":              "Set priority to medium",
		"3":              "Set priority to low",
		"Enter":          "Edit selected task",
		"Escape":         "Clear selection",
	},
	BulkOperations: map[string]string{
		"select_all":     "/api/tasks",
		"bulk_delete":    "/api/bulk/delete",
		"bulk_duplicate": "/api/bulk/duplicate",
		"bulk_status":    "/api/bulk/status",
		"bulk_priority":  "/api/bulk/priority",
		"undo":           "/api/bulk/undo",
	},
}

// Shortcuts handles GET /api/bulk/shortcuts. The table is static; callers
// only need to be authenticated.
func (h *BulkHandler) Shortcuts(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireIdentity(w, r); !ok {
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, bulkShortcuts)
}

// CreateTemplate handles POST /api/bulk/templates.
func (h *BulkHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req TemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	t, err := h.engine.CreateTemplate(r.Context(), actor, bulk.TemplateInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Tasks:       req.Tasks,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create template")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, t)
}

// ListTemplates handles GET /api/bulk/templates?category=.
func (h *BulkHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	templates, err := h.engine.ListTemplates(r.Context(), actor, r.URL.Query().Get("category"))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list templates")
		return
	}
	if templates == nil {
		templates = []*bulk.Template{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, TemplateListResponse{Templates: templates, Count: len(templates)})
}

// ApplyTemplate handles POST /api/bulk/templates/apply.
func (h *BulkHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req ApplyTemplateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.engine.ApplyTemplate(r.Context(), actor, req.TemplateID, req.Overrides)
	h.respond(w, r, res, err)
}

// respond writes a bulk result. A failed operation is still a 200: the
// caller reads the outcome from the status field.
func (h *BulkHandler) respond(w http.ResponseWriter, r *http.Request, res *bulk.Result, err error) {
	if err != nil {
		HandleAPIError(w, r, err, "Bulk operation failed")
		return
	}
	body, err := operationResponse(res)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to encode bulk result")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, body)
}

// operationResponse flattens the operation fields next to the per-item
// results and any returned tasks.
func operationResponse(res *bulk.Result) (map[string]any, error) {
	raw, err := json.Marshal(res.Operation)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	items := res.Items
	if items == nil {
		items = []bulk.ItemResult{}
	}
	body["results"] = items
	if res.Tasks != nil {
		body["tasks"] = res.Tasks
	} else if res.Operation.Kind == bulk.KindCreate || res.Operation.Kind == bulk.KindDuplicate {
		body["tasks"] = []*domain.Task{}
	}
	return body, nil
}
