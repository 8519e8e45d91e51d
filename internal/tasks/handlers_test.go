package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Marcvolkov/task-management-system/internal/auth"
)

// fakeStore keeps tasks in memory so handlers can be exercised without a
// database.
type fakeStore struct {
	tasks  []Task
	nextID int
	fail   bool
}

var errFakeStore = errors.New("store unavailable")

func newFakeStore(seed ...Task) *fakeStore {
	next := 1
	for _, t := range seed {
		if t.ID >= next {
			next = t.ID + 1
		}
	}
	return &fakeStore{tasks: seed, nextID: next}
}

func (s *fakeStore) List(_ context.Context, userID int, f Filters) ([]Task, error) {
	if s.fail {
		return nil, errFakeStore
	}
	out := make([]Task, 0)
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, userID, id int) (Task, error) {
	for _, t := range s.tasks {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return Task{}, ErrNotFound
}

func (s *fakeStore) Create(_ context.Context, userID int, d Draft) (Task, error) {
	if s.fail {
		return Task{}, errFakeStore
	}
	priority := d.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	now := time.Now()
	t := Task{
		ID:               s.nextID,
		Title:            d.Title,
		Description:      d.Description,
		Status:           StatusPending,
		Priority:         priority,
		Category:         d.Category,
		EstimatedMinutes: d.EstimatedMinutes,
		CreatedAt:        now,
		UpdatedAt:        now,
		UserID:           userID,
	}
	s.nextID++
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *fakeStore) Update(_ context.Context, userID, id int, p Patch) (Task, error) {
	for i, t := range s.tasks {
		if t.ID != id || t.UserID != userID {
			continue
		}
		if p.Title != nil {
			t.Title = *p.Title
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.Priority != nil {
			t.Priority = *p.Priority
		}
		if p.Status != nil {
			t.Status = *p.Status
			if *p.Status == StatusCompleted {
				now := time.Now()
				t.CompletedAt = &now
			} else {
				t.CompletedAt = nil
			}
		}
		t.UpdatedAt = time.Now()
		s.tasks[i] = t
		return t, nil
	}
	return Task{}, ErrNotFound
}

func (s *fakeStore) Delete(_ context.Context, userID, id int) error {
	for i, t := range s.tasks {
		if t.ID == id && t.UserID == userID {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *fakeStore) Stats(_ context.Context, userID int) (Stats, error) {
	var st Stats
	for _, t := range s.tasks {
		if t.UserID != userID {
			continue
		}
		st.Total++
		switch t.Status {
		case StatusPending:
			st.Pending++
		case StatusInProgress:
			st.InProgress++
		case StatusCompleted:
			st.Completed++
		}
		switch t.Priority {
		case PriorityHigh:
			st.HighPriority++
		case PriorityMedium:
			st.MediumPriority++
		case PriorityLow:
			st.LowPriority++
		}
	}
	return st, nil
}

func (s *fakeStore) BulkSetStatus(_ context.Context, userID int, ids []int, status string) ([]Task, error) {
	out := make([]Task, 0)
	for _, id := range ids {
		t, err := s.Update(context.Background(), userID, id, Patch{Status: &status})
		if err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func doRequest(t *testing.T, h http.HandlerFunc, method, target, body string, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(auth.WithUserID(req.Context(), 1))

	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return payload
}

func TestCreateHandler_RequiresTitle(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.Create, http.MethodPost, "/api/tasks", `{"description":"no title"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Title is required" {
		t.Fatalf("error = %v, want %q", got, "Title is required")
	}
}

func TestCreateHandler_RejectsBadPriority(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.Create, http.MethodPost, "/api/tasks", `{"title":"x","priority":"severe"}`, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Priority must be low, medium, or high" {
		t.Fatalf("error = %v", got)
	}
}

func TestCreateHandler_DefaultsPriority(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store)

	rec := doRequest(t, h.Create, http.MethodPost, "/api/tasks", `{"title":"plain task"}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if store.tasks[0].Priority != PriorityMedium {
		t.Fatalf("priority = %q, want medium", store.tasks[0].Priority)
	}
}

func TestSmartCreateHandler_EnrichesTask(t *testing.T) {
	store := newFakeStore()
	h := NewHandler(store)

	rec := doRequest(t, h.SmartCreate, http.MethodPost, "/api/tasks/smart",
		`{"title":"URGENT: fix login bug","description":""}`, nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	created := store.tasks[0]
	if created.Priority != PriorityHigh {
		t.Errorf("priority = %q, want high", created.Priority)
	}
	if created.Category != "bug" {
		t.Errorf("category = %q, want bug", created.Category)
	}
	if created.EstimatedMinutes == nil || *created.EstimatedMinutes != 60 {
		t.Errorf("estimated_minutes = %v, want 60", created.EstimatedMinutes)
	}

	payload := decodeBody(t, rec)
	if payload["smartEnhanced"] != true {
		t.Errorf("smartEnhanced = %v, want true", payload["smartEnhanced"])
	}
	if _, ok := payload["suggestedTags"]; !ok {
		t.Errorf("response missing suggestedTags: %v", payload)
	}
}

func TestSearchHandler_RequiresQuery(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.Search, http.MethodGet, "/api/tasks/search", "", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSearchHandler_OrdersByRelevance(t *testing.T) {
	now := time.Now()
	store := newFakeStore(
		Task{ID: 1, Title: "Backend tasks", Status: StatusPending, Priority: PriorityMedium, CreatedAt: now.Add(-time.Hour), UserID: 1},
		Task{ID: 2, Title: "backend", Status: StatusPending, Priority: PriorityMedium, CreatedAt: now.Add(-2 * time.Hour), UserID: 1},
		Task{ID: 3, Title: "Cleanup", Description: "backend work", Status: StatusPending, Priority: PriorityMedium, CreatedAt: now, UserID: 1},
		Task{ID: 4, Title: "backend", Status: StatusPending, Priority: PriorityMedium, CreatedAt: now, UserID: 2}, // other user
	)
	h := NewHandler(store)

	rec := doRequest(t, h.Search, http.MethodGet, "/api/tasks/search?q=backend", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	payload := decodeBody(t, rec)
	rawTasks := payload["tasks"].([]any)
	if len(rawTasks) != 3 {
		t.Fatalf("matched %d tasks, want 3 (cross-user leak?)", len(rawTasks))
	}

	wantOrder := []float64{2, 1, 3}
	for i, raw := range rawTasks {
		id := raw.(map[string]any)["id"].(float64)
		if id != wantOrder[i] {
			t.Fatalf("tasks[%d].id = %v, want %v", i, id, wantOrder[i])
		}
	}

	words := payload["searchWords"].([]any)
	if len(words) != 1 || words[0] != "backend" {
		t.Errorf("searchWords = %v, want [backend]", words)
	}
}

func TestSuggestionsHandler_ShortQuery(t *testing.T) {
	h := NewHandler(newFakeStore(
		Task{ID: 1, Title: "meeting", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
	))

	rec := doRequest(t, h.Suggestions, http.MethodGet, "/api/tasks/suggestions?query=m", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	payload := decodeBody(t, rec)
	if got := payload["suggestions"].([]any); len(got) != 0 {
		t.Fatalf("suggestions = %v, want empty for short query", got)
	}
}

func TestSuggestionsHandler_ReturnsWords(t *testing.T) {
	h := NewHandler(newFakeStore(
		Task{ID: 1, Title: "meeting", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
		Task{ID: 2, Title: "message", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
		Task{ID: 3, Title: "memo", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
	))

	rec := doRequest(t, h.Suggestions, http.MethodGet, "/api/tasks/suggestions?query=me", "", nil)

	payload := decodeBody(t, rec)
	got := payload["suggestions"].([]any)
	want := []string{"meeting", "memo", "message"}
	if len(got) != len(want) {
		t.Fatalf("suggestions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("suggestions[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBulkUpdateHandler_Validation(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.BulkUpdate, http.MethodPut, "/api/tasks/bulk-update",
		`{"status":"completed"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing ids", rec.Code)
	}

	rec = doRequest(t, h.BulkUpdate, http.MethodPut, "/api/tasks/bulk-update",
		`{"taskIds":[1],"status":"archived"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad status", rec.Code)
	}
}

func TestBulkUpdateHandler_SetsCompletedAt(t *testing.T) {
	store := newFakeStore(
		Task{ID: 1, Title: "a", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
		Task{ID: 2, Title: "b", Status: StatusInProgress, Priority: PriorityMedium, UserID: 1},
	)
	h := NewHandler(store)

	rec := doRequest(t, h.BulkUpdate, http.MethodPut, "/api/tasks/bulk-update",
		`{"taskIds":[1,2],"status":"completed"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	for _, task := range store.tasks {
		if task.Status != StatusCompleted {
			t.Errorf("task %d status = %q, want completed", task.ID, task.Status)
		}
		if task.CompletedAt == nil {
			t.Errorf("task %d completed_at not set", task.ID)
		}
	}
}

func TestUpdateHandler_ClearsCompletedAt(t *testing.T) {
	done := time.Now()
	store := newFakeStore(
		Task{ID: 1, Title: "a", Status: StatusCompleted, Priority: PriorityMedium, CompletedAt: &done, UserID: 1},
	)
	h := NewHandler(store)

	rec := doRequest(t, h.Update, http.MethodPut, "/api/tasks/1",
		`{"status":"pending"}`, map[string]string{"id": "1"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if store.tasks[0].CompletedAt != nil {
		t.Fatalf("completed_at still set after leaving completed")
	}
}

func TestUpdateHandler_NotFound(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.Update, http.MethodPut, "/api/tasks/99",
		`{"title":"x"}`, map[string]string{"id": "99"})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestDeleteHandler(t *testing.T) {
	store := newFakeStore(
		Task{ID: 1, Title: "a", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
	)
	h := NewHandler(store)

	rec := doRequest(t, h.Delete, http.MethodDelete, "/api/tasks/1", "", map[string]string{"id": "1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, h.Delete, http.MethodDelete, "/api/tasks/1", "", map[string]string{"id": "1"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListHandler_ScopedToUser(t *testing.T) {
	store := newFakeStore(
		Task{ID: 1, Title: "mine", Status: StatusPending, Priority: PriorityMedium, UserID: 1},
		Task{ID: 2, Title: "theirs", Status: StatusPending, Priority: PriorityMedium, UserID: 2},
	)
	h := NewHandler(store)

	rec := doRequest(t, h.List, http.MethodGet, "/api/tasks", "", nil)

	payload := decodeBody(t, rec)
	if payload["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", payload["count"])
	}
}

func TestListHandler_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.fail = true
	h := NewHandler(store)

	rec := doRequest(t, h.List, http.MethodGet, "/api/tasks", "", nil)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decodeBody(t, rec)["error"]; got != "Error fetching tasks" {
		t.Fatalf("error = %v, want generic message", got)
	}
}

func TestExportHandler_InvalidFormat(t *testing.T) {
	h := NewHandler(newFakeStore())

	rec := doRequest(t, h.Export, http.MethodGet, "/api/tasks/export/xml", "", map[string]string{"format": "xml"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExportHandler_CSV(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	store := newFakeStore(
		Task{ID: 1, Title: `Say "hi"`, Description: "greet", Status: StatusPending, Priority: PriorityMedium, CreatedAt: created, UpdatedAt: created, UserID: 1},
	)
	h := NewHandler(store)

	rec := doRequest(t, h.Export, http.MethodGet, "/api/tasks/export/csv", "", map[string]string{"format": "csv"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Errorf("csv body missing BOM")
	}
	if !strings.Contains(body, "Title,Description,Status,Priority,Created At,Updated At") {
		t.Errorf("csv body missing header: %q", body)
	}
	if !strings.Contains(body, `"Say ""hi""","greet","pending","medium",2026-03-01,2026-03-01`) {
		t.Errorf("csv row malformed: %q", body)
	}
}

func TestHandlers_RejectMissingUser(t *testing.T) {
	h := NewHandler(newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
