package tasks

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Marcvolkov/task-management-system/internal/auth"
	"github.com/Marcvolkov/task-management-system/internal/httpx"
	"github.com/Marcvolkov/task-management-system/internal/smart"
)

type Handler struct {
	store    Store
	validate *validator.Validate
}

func NewHandler(store Store) *Handler {
	return &Handler{
		store:    store,
		validate: validator.New(),
	}
}

// -------------------------------
// CRUD
// -------------------------------

// List: GET /api/tasks?status=&priority=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	f := Filters{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
	}

	list, err := h.store.List(r.Context(), uid, f)
	if err != nil {
		slog.Error("task list failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error fetching tasks")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(list),
		"tasks":   list,
	})
}

// Get: GET /api/tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.store.Get(r.Context(), uid, id)
	if errors.Is(err, ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("task get failed", "err", err, "user_id", uid, "task_id", id)
		httpx.Error(w, http.StatusInternalServerError, "Error fetching task")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

type createRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// Create: POST /api/tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	task, err := h.store.Create(r.Context(), uid, Draft{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		slog.Error("task create failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error creating task")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "task": task})
}

type smartCreateRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// SmartCreate: POST /api/tasks/smart. Runs the enrichment engine over the
// free text before delegating to the store.
func (h *Handler) SmartCreate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req smartCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	estimated := smart.EstimateDuration(req.Title, req.Description)

	task, err := h.store.Create(r.Context(), uid, Draft{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         smart.SuggestPriority(req.Title, req.Description),
		Category:         smart.Categorize(req.Title, req.Description),
		EstimatedMinutes: &estimated,
	})
	if err != nil {
		slog.Error("smart create failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error creating smart task")
		return
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":       true,
		"task":          task,
		"smartEnhanced": true,
		"suggestedTags": smart.SuggestTags(req.Title, req.Description),
	})
}

type updateRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

// Update: PUT /api/tasks/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	task, err := h.store.Update(r.Context(), uid, id, Patch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if errors.Is(err, ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("task update failed", "err", err, "user_id", uid, "task_id", id)
		httpx.Error(w, http.StatusInternalServerError, "Error updating task")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "task": task})
}

// Delete: DELETE /api/tasks/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid task id")
		return
	}

	err = h.store.Delete(r.Context(), uid, id)
	if errors.Is(err, ErrNotFound) {
		httpx.Error(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		slog.Error("task delete failed", "err", err, "user_id", uid, "task_id", id)
		httpx.Error(w, http.StatusInternalServerError, "Error deleting task")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Task deleted successfully",
	})
}

// Stats: GET /api/tasks/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.store.Stats(r.Context(), uid)
	if err != nil {
		slog.Error("task stats failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error fetching statistics")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

type bulkUpdateRequest struct {
	TaskIDs []int  `json:"taskIds" validate:"required,min=1,dive,gt=0"`
	Status  string `json:"status" validate:"required,oneof=pending in_progress completed"`
}

// BulkUpdate: PUT /api/tasks/bulk-update
func (h *Handler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req bulkUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	updated, err := h.store.BulkSetStatus(r.Context(), uid, req.TaskIDs, req.Status)
	if err != nil {
		slog.Error("bulk update failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error updating tasks")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(updated),
		"tasks":   updated,
	})
}

// -------------------------------
// SEARCH / SUGGESTIONS / EXPORT
// -------------------------------

// Search: GET /api/tasks/search?q=. Loads the user's tasks and ranks them by
// relevance tier, then recency.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		httpx.Error(w, http.StatusBadRequest, "Search query is required")
		return
	}

	list, err := h.store.List(r.Context(), uid, Filters{})
	if err != nil {
		slog.Error("task search failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error searching tasks")
		return
	}

	results := Rank(list, q)

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"count":       len(results),
		"tasks":       results,
		"searchQuery": q,
		"searchWords": Tokenize(q),
	})
}

// Suggestions: GET /api/tasks/suggestions?query=
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query().Get("query")
	if len([]rune(query)) < 2 {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"suggestions": []string{},
		})
		return
	}

	list, err := h.store.List(r.Context(), uid, Filters{})
	if err != nil {
		slog.Error("suggestions failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error fetching suggestions")
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"suggestions": Suggest(list, query),
		"query":       query,
	})
}

// Export: GET /api/tasks/export/{format}
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	format := strings.ToLower(chi.URLParam(r, "format"))
	if format != "json" && format != "csv" {
		httpx.Error(w, http.StatusBadRequest, "Invalid format. Supported formats: json, csv")
		return
	}

	list, err := h.store.List(r.Context(), uid, Filters{})
	if err != nil {
		slog.Error("task export failed", "err", err, "user_id", uid)
		httpx.Error(w, http.StatusInternalServerError, "Error exporting tasks")
		return
	}

	if format == "json" {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"count":      len(list),
			"exportDate": time.Now().UTC().Format(time.RFC3339),
			"tasks":      list,
		})
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=tasks.csv")
	_, _ = w.Write([]byte(exportCSV(list)))
}

func exportCSV(list []Task) string {
	var b strings.Builder
	b.WriteString("\uFEFF") // BOM so spreadsheet apps pick up the encoding
	b.WriteString("Title,Description,Status,Priority,Created At,Updated At\n")

	for i, t := range list {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(csvQuote(t.Title))
		b.WriteByte(',')
		b.WriteString(csvQuote(t.Description))
		b.WriteByte(',')
		b.WriteString(csvQuote(t.Status))
		b.WriteByte(',')
		b.WriteString(csvQuote(t.Priority))
		b.WriteByte(',')
		b.WriteString(t.CreatedAt.UTC().Format("2006-01-02"))
		b.WriteByte(',')
		b.WriteString(t.UpdatedAt.UTC().Format("2006-01-02"))
	}
	return b.String()
}

func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// validationMessage maps the first failed rule to the API's stable error
// wording.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}

	fe := verrs[0]
	switch fe.Field() {
	case "Title":
		return "Title is required"
	case "Priority":
		return "Priority must be low, medium, or high"
	case "Status":
		if fe.Tag() == "required" {
			return "Valid status is required"
		}
		return "Status must be pending, in_progress, or completed"
	case "TaskIDs":
		return "Task IDs array is required"
	}
	return "invalid request"
}
