package models

import (
	"strings"
	"time"
)

// Status is the workflow state of a task. Values outside the known set are
// kept as received so they can be displayed, but they are never valid targets
// for a transition.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the known statuses in lane order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusDone}

// statusCompleted is a legacy spelling of done still found on older tasks.
const statusCompleted Status = "completed"

// IsDone reports whether s counts as finished, including the legacy
// "completed" value.
func (s Status) IsDone() bool {
	return s == StatusDone || s == statusCompleted
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns a human-friendly label, or the raw value for unknown statuses.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Completed"
	}
	return string(s)
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Rank returns a numeric weight for sorting by priority.
// Higher numbers indicate higher priority; unknown values rank lowest.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	default:
		return 0
	}
}

// Task represents a single task within a project.
type Task struct {
	ID        int64      `json:"id"`
	ProjectID int64      `json:"project_id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status"`
	Priority  Priority   `json:"priority"`
	Deadline  *time.Time `json:"deadline"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MaxTitleLength is the longest title the API accepts.
const MaxTitleLength = 200

// Validate checks that the task has valid field values.
func (t *Task) Validate() error {
	if err := validateTitle(t.Title); err != nil {
		return err
	}

	if t.ProjectID <= 0 {
		return ValidationError{Field: "project_id", Message: "project_id is required"}
	}

	if !t.Status.Valid() {
		return ValidationError{Field: "status", Message: "status must be 'not_started', 'in_progress', or 'done'"}
	}

	if !t.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "priority must be 'high', 'medium', or 'low'"}
	}

	return nil
}

// IsOverdue returns true if the task has a deadline before now and is not done.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Status == StatusDone || t.Deadline == nil {
		return false
	}
	return t.Deadline.Before(now)
}

// TaskInput is the payload for creating a task.
type TaskInput struct {
	Title    string     `json:"title"`
	Status   Status     `json:"status,omitempty"`
	Priority Priority   `json:"priority,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// WithDefaults fills the status and priority the API would default to.
func (in TaskInput) WithDefaults() TaskInput {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = StatusNotStarted
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	return in
}

// Validate checks the input after defaults are applied.
func (in TaskInput) Validate() error {
	in = in.WithDefaults()
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if !in.Status.Valid() {
		return ValidationError{Field: "status", Message: "status must be 'not_started', 'in_progress', or 'done'"}
	}
	if !in.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "priority must be 'high', 'medium', or 'low'"}
	}
	return nil
}

// Task builds the task the input describes, for the given project.
func (in TaskInput) Task(projectID int64) Task {
	in = in.WithDefaults()
	return Task{
		ProjectID: projectID,
		Title:     in.Title,
		Status:    in.Status,
		Priority:  in.Priority,
		Deadline:  in.Deadline,
	}
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ValidationError{Field: "title", Message: "title is required"}
	}
	if len(title) > MaxTitleLength {
		return ValidationError{Field: "title", Message: "title must be 200 characters or fewer"}
	}
	return nil
}
