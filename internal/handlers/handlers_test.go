package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nbinmostafa/project-management-tracker/internal/auth"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
	"github.com/nbinmostafa/project-management-tracker/internal/store"
)

const testSecret = "test-secret"

func setupTestHandlers(t *testing.T) (*Handlers, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	v, err := auth.NewVerifier(testSecret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return New(s, v, nil), s
}

func bearer(t *testing.T, owner string) string {
	t.Helper()
	signer, err := auth.NewSigner(testSecret)
	if err != nil {
		t.Fatalf("failed to create signer: %v", err)
	}
	token, err := signer.Sign(owner, time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return "Bearer " + token
}

// serve sends a request through the full authenticated router.
func serve(t *testing.T, h *Handlers, owner, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("Authorization", bearer(t, owner))
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

// withRoute sets the owner and chi URL params the router would provide.
func withRoute(req *http.Request, owner string, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, ownerKey{}, owner)
	return req.WithContext(ctx)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := codec.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAuthenticate(t *testing.T) {
	h, _ := setupTestHandlers(t)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer a.b.c", http.StatusUnauthorized},
		{"valid token", bearer(t, "alice"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/projects", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.code == http.StatusUnauthorized {
				body := decode[map[string]string](t, rec)
				if body["detail"] != "Not authenticated" {
					t.Errorf("expected detail, got %v", body)
				}
			}
		})
	}
}

func TestCreateProjectHandler_Success(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := serve(t, h, "alice", "POST", "/projects", `{"name":"New Project","description":"A new project"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}
	project := decode[models.Project](t, rec)
	if project.ID == 0 || project.Name != "New Project" {
		t.Errorf("unexpected project: %+v", project)
	}
}

func TestCreateProjectHandler_ValidationError(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest("POST", "/projects", strings.NewReader(`{"name":"   "}`))
	req = withRoute(req, "alice", nil)
	rec := httptest.NewRecorder()

	h.CreateProject(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
	body := decode[map[string][]validationDetail](t, rec)
	if len(body["detail"]) != 1 || body["detail"][0].Msg != "name is required" {
		t.Errorf("unexpected detail: %+v", body)
	}
}

func TestProjectHandlers_OwnerScoped(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	mine := &models.Project{Name: "Mine"}
	s.CreateProject(ctx, "alice", mine)
	s.CreateProject(ctx, "bob", &models.Project{Name: "Theirs"})

	rec := serve(t, h, "alice", "GET", "/projects", "")
	projects := decode[[]models.Project](t, rec)
	if len(projects) != 1 || projects[0].Name != "Mine" {
		t.Errorf("expected only alice's project, got %+v", projects)
	}

	rec = serve(t, h, "bob", "GET", "/projects/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["detail"] != "Project not found" {
		t.Errorf("unexpected detail: %v", body)
	}
}

func TestUpdateProjectHandler_Success(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	project := &models.Project{Name: "Original"}
	s.CreateProject(ctx, "alice", project)

	req := httptest.NewRequest("PUT", "/projects/1", strings.NewReader(`{"name":"Updated","description":"Updated description"}`))
	req = withRoute(req, "alice", map[string]string{"id": "1"})
	rec := httptest.NewRecorder()

	h.UpdateProject(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	updated, err := s.GetProject(ctx, "alice", project.ID)
	if err != nil {
		t.Fatalf("GetProject failed: %v", err)
	}
	if updated.Name != "Updated" {
		t.Errorf("expected name %q, got %q", "Updated", updated.Name)
	}
	if updated.Description == nil || *updated.Description != "Updated description" {
		t.Errorf("expected description to persist, got %v", updated.Description)
	}
}

func TestDeleteProjectHandler_Success(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	s.CreateProject(ctx, "alice", &models.Project{Name: "Test"})

	rec := serve(t, h, "alice", "DELETE", "/projects/1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}

	if _, err := s.GetProject(ctx, "alice", 1); err == nil {
		t.Error("expected project to be deleted")
	}
}

func TestCreateTaskHandler(t *testing.T) {
	h, s := setupTestHandlers(t)
	s.CreateProject(context.Background(), "alice", &models.Project{Name: "Work"})

	tests := []struct {
		name   string
		owner  string
		target string
		body   string
		code   int
	}{
		{"defaults applied", "alice", "/projects/1/tasks", `{"title":"Plan"}`, http.StatusCreated},
		{"missing title", "alice", "/projects/1/tasks", `{"title":""}`, http.StatusUnprocessableEntity},
		{"bad status", "alice", "/projects/1/tasks", `{"title":"x","status":"blocked"}`, http.StatusUnprocessableEntity},
		{"foreign project", "bob", "/projects/1/tasks", `{"title":"x"}`, http.StatusNotFound},
		{"missing project", "alice", "/projects/99/tasks", `{"title":"x"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, tt.owner, "POST", tt.target, tt.body)
			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.code != http.StatusCreated {
				return
			}
			task := decode[models.Task](t, rec)
			if task.Status != models.StatusNotStarted || task.Priority != models.PriorityMedium {
				t.Errorf("expected defaults, got %s/%s", task.Status, task.Priority)
			}
			if task.ProjectID != 1 {
				t.Errorf("expected project 1, got %d", task.ProjectID)
			}
		})
	}
}

func TestUpdateTaskHandler(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	s.CreateProject(ctx, "alice", &models.Project{Name: "Work"})
	deadline := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	task := &models.Task{ProjectID: 1, Title: "Ship", Status: models.StatusNotStarted, Priority: models.PriorityHigh, Deadline: &deadline}
	s.CreateTask(ctx, "alice", task)

	t.Run("status only", func(t *testing.T) {
		rec := serve(t, h, "alice", "PATCH", "/tasks/1", `{"status":"in_progress"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		got := decode[models.Task](t, rec)
		if got.Status != models.StatusInProgress {
			t.Errorf("expected in_progress, got %s", got.Status)
		}
		if got.Title != "Ship" || got.Priority != models.PriorityHigh || got.Deadline == nil {
			t.Errorf("expected untouched fields to survive, got %+v", got)
		}
	})

	t.Run("null deadline clears", func(t *testing.T) {
		rec := serve(t, h, "alice", "PATCH", "/tasks/1", `{"deadline":null}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		stored, _ := s.GetTask(ctx, "alice", 1)
		if stored.Deadline != nil {
			t.Errorf("expected deadline cleared, got %v", stored.Deadline)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := serve(t, h, "alice", "PATCH", "/tasks/1", `{"status":"archived"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		rec := serve(t, h, "bob", "PATCH", "/tasks/1", `{"status":"done"}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
		if body := decode[map[string]string](t, rec); body["detail"] != "Task not found" {
			t.Errorf("unexpected detail: %v", body)
		}
	})
}

func TestListTasksHandler(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	s.CreateProject(ctx, "alice", &models.Project{Name: "Work"})
	s.CreateProject(ctx, "alice", &models.Project{Name: "Home"})
	for _, task := range []models.Task{
		{ProjectID: 1, Title: "Write report", Status: models.StatusInProgress, Priority: models.PriorityHigh},
		{ProjectID: 1, Title: "File report", Status: models.StatusDone, Priority: models.PriorityLow},
		{ProjectID: 2, Title: "Buy milk", Status: models.StatusDone, Priority: models.PriorityLow},
	} {
		task := task
		s.CreateTask(ctx, "alice", &task)
	}

	tests := []struct {
		name   string
		target string
		code   int
		total  int
		items  int
	}{
		{"all", "/tasks", http.StatusOK, 3, 3},
		{"project", "/projects/1/tasks", http.StatusOK, 2, 2},
		{"filtered", "/tasks?q=REPORT&status=done", http.StatusOK, 1, 1},
		{"paged", "/tasks?page=2&page_size=2", http.StatusOK, 3, 1},
		{"bad status", "/tasks?status=nope", http.StatusUnprocessableEntity, 0, 0},
		{"missing project", "/projects/9/tasks", http.StatusNotFound, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, h, "alice", "GET", tt.target, "")
			if rec.Code != tt.code {
				t.Fatalf("expected status %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			page := decode[models.TaskPage](t, rec)
			if page.Total != tt.total || len(page.Items) != tt.items {
				t.Errorf("expected total %d with %d items, got %d with %d", tt.total, tt.items, page.Total, len(page.Items))
			}
		})
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	h, s := setupTestHandlers(t)
	ctx := context.Background()

	s.CreateProject(ctx, "alice", &models.Project{Name: "Work"})
	s.CreateTask(ctx, "alice", &models.Task{ProjectID: 1, Title: "Temp", Status: models.StatusNotStarted, Priority: models.PriorityLow})

	req := httptest.NewRequest("DELETE", "/tasks/1", nil)
	req = withRoute(req, "alice", map[string]string{"id": "1"})
	rec := httptest.NewRecorder()

	h.DeleteTask(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	rec = serve(t, h, "alice", "DELETE", "/tasks/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected second delete to be %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := setupTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if body := decode[map[string]string](t, rec); body["status"] != "ok" {
		t.Errorf("unexpected body: %v", body)
	}
}
