package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/nbinmostafa/project-management-tracker/internal/auth"
	"github.com/nbinmostafa/project-management-tracker/internal/handlers"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
	"github.com/nbinmostafa/project-management-tracker/internal/store"
)

const testSecret = "cli-secret"

// setupEnv points the CLI at a temporary prefs database and a config file
// that does not exist.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PREFS_PATH", filepath.Join(dir, "prefs", "prefs.db"))
	t.Setenv("LOG_LEVEL", "error")
	return filepath.Join(dir, "tracker.yaml")
}

// setupServer runs the API over an in-memory database and points the CLI
// at it as alice.
func setupServer(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	verifier, _ := auth.NewVerifier(testSecret)
	logger := log.New()
	logger.SetLevel(log.ErrorLevel)

	r := chi.NewRouter()
	r.Mount("/", handlers.New(s, verifier, logger).Routes())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	t.Setenv("TRACKER_API_URL", srv.URL)
	t.Setenv("TRACKER_USER", "alice")
	t.Setenv("JWT_SECRET", testSecret)
	return s
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, s *store.SQLiteStore, project string, tasks map[string]models.Status) int64 {
	t.Helper()
	ctx := context.Background()
	p := &models.Project{Name: project}
	if err := s.CreateProject(ctx, "alice", p); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	for title, status := range tasks {
		task := &models.Task{ProjectID: p.ID, Title: title, Status: status, Priority: models.PriorityHigh}
		if err := s.CreateTask(ctx, "alice", task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
	return p.ID
}

func TestViewModeCommand(t *testing.T) {
	cfg := setupEnv(t)

	out, err := run(t, cfg, "view-mode")
	if err != nil {
		t.Fatalf("view-mode failed: %v", err)
	}
	if strings.TrimSpace(out) != "list" {
		t.Errorf("expected default list, got %q", out)
	}

	if _, err := run(t, cfg, "view-mode", "board"); err != nil {
		t.Fatalf("setting view mode failed: %v", err)
	}
	out, _ = run(t, cfg, "view-mode")
	if strings.TrimSpace(out) != "board" {
		t.Errorf("expected saved board mode, got %q", out)
	}

	if _, err := run(t, cfg, "view-mode", "grid"); err == nil {
		t.Error("expected error for unknown view mode")
	}
}

func TestBoardCommand(t *testing.T) {
	cfg := setupEnv(t)
	s := setupServer(t)
	seed(t, s, "Launch", map[string]models.Status{
		"Write docs": models.StatusDone,
		"Ship it":    models.StatusNotStarted,
	})

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "board view",
			args: []string{"board", "--view", "board"},
			want: []string{"== Not Started (1) ==", "== Completed (1) ==", "Ship it [high] Launch", "2 tasks, 0 in progress, 1 done (50% complete)"},
		},
		{
			name: "list view",
			args: []string{"board", "--view", "list", "--status", "done"},
			want: []string{"TITLE", "Write docs", "page 1 of 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, cfg, tt.args...)
			if err != nil {
				t.Fatalf("board failed: %v\n%s", err, out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestBoardCommand_RequiresUser(t *testing.T) {
	cfg := setupEnv(t)
	t.Setenv("TRACKER_USER", "")

	if _, err := run(t, cfg, "board", "--view", "list"); err == nil {
		t.Error("expected error without a user")
	}
}

func TestMoveCommand(t *testing.T) {
	cfg := setupEnv(t)
	s := setupServer(t)
	seed(t, s, "Launch", map[string]models.Status{"Ship it": models.StatusNotStarted})

	page, err := s.ListTasks(context.Background(), "alice", nil, models.ViewCriteria{})
	if err != nil || len(page.Items) != 1 {
		t.Fatalf("ListTasks failed: %v", err)
	}
	id := page.Items[0].ID

	out, err := run(t, cfg, "move", fmt.Sprint(id), "in_progress")
	if err != nil {
		t.Fatalf("move failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Not Started -> In Progress") {
		t.Errorf("unexpected output: %s", out)
	}

	got, err := s.GetTask(context.Background(), "alice", id)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if got.Status != models.StatusInProgress {
		t.Errorf("expected in_progress on the server, got %s", got.Status)
	}

	out, err = run(t, cfg, "move", fmt.Sprint(id), "in_progress")
	if err != nil {
		t.Fatalf("repeat move failed: %v", err)
	}
	if !strings.Contains(out, "already In Progress") {
		t.Errorf("expected no-op message, got %s", out)
	}
}

func TestMoveCommand_Rejects(t *testing.T) {
	cfg := setupEnv(t)
	setupServer(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad id", []string{"move", "abc", "done"}},
		{"bad status", []string{"move", "1", "archived"}},
		{"missing task", []string{"move", "99", "done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, cfg, tt.args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}
