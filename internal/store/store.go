package store

import (
	"context"
	"errors"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

var (
	// ErrNotFound is wrapped by every "does not exist" error. Records owned by
	// another user are reported as not found too.
	ErrNotFound        = errors.New("not found")
	ErrProjectNotFound = &notFoundError{kind: "project"}
	ErrTaskNotFound    = &notFoundError{kind: "task"}
)

type notFoundError struct {
	kind string
}

func (e *notFoundError) Error() string { return e.kind + " not found" }
func (e *notFoundError) Unwrap() error { return ErrNotFound }

// Store defines the interface for data persistence operations.
// Every operation is scoped to the owning user.
type Store interface {
	// Project operations
	CreateProject(ctx context.Context, owner string, project *models.Project) error
	GetProject(ctx context.Context, owner string, id int64) (*models.Project, error)
	ListProjects(ctx context.Context, owner string) ([]models.Project, error)
	UpdateProject(ctx context.Context, owner string, project *models.Project) error
	DeleteProject(ctx context.Context, owner string, id int64) error

	// Task operations
	CreateTask(ctx context.Context, owner string, task *models.Task) error
	GetTask(ctx context.Context, owner string, id int64) (*models.Task, error)
	ListTasks(ctx context.Context, owner string, projectID *int64, criteria models.ViewCriteria) (models.TaskPage, error)
	UpdateTask(ctx context.Context, owner string, task *models.Task) error
	DeleteTask(ctx context.Context, owner string, id int64) error

	// Lifecycle
	Close() error
}
