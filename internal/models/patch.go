package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

var codec = sonic.ConfigStd

// TaskPatch is a field-level delta for a task. Nil fields are untouched.
// ClearDeadline removes the deadline and takes precedence over Deadline.
type TaskPatch struct {
	Title         *string
	Status        *Status
	Priority      *Priority
	Deadline      *time.Time
	ClearDeadline bool
}

// StatusPatch is shorthand for a patch that only changes the status.
func StatusPatch(s Status) TaskPatch {
	return TaskPatch{Status: &s}
}

// IsEmpty reports whether the patch touches no field.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil && p.Deadline == nil && !p.ClearDeadline
}

// Validate rejects patches that would leave the task invalid.
func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return ValidationError{Field: "patch", Message: "update had no fields"}
	}
	if p.Title != nil {
		if err := validateTitle(*p.Title); err != nil {
			return err
		}
	}
	if p.Status != nil && !p.Status.Valid() {
		return ValidationError{Field: "status", Message: "status must be 'not_started', 'in_progress', or 'done'"}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return ValidationError{Field: "priority", Message: "priority must be 'high', 'medium', or 'low'"}
	}
	return nil
}

// ApplyTo writes the patched fields onto t.
func (p TaskPatch) ApplyTo(t *Task) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	switch {
	case p.ClearDeadline:
		t.Deadline = nil
	case p.Deadline != nil:
		d := *p.Deadline
		t.Deadline = &d
	}
}

// SnapshotOf captures the current values in t of exactly the fields p touches.
// Applying the snapshot after p restores t.
func (p TaskPatch) SnapshotOf(t Task) TaskPatch {
	var snap TaskPatch
	if p.Title != nil {
		title := t.Title
		snap.Title = &title
	}
	if p.Status != nil {
		status := t.Status
		snap.Status = &status
	}
	if p.Priority != nil {
		priority := t.Priority
		snap.Priority = &priority
	}
	if p.Deadline != nil || p.ClearDeadline {
		if t.Deadline == nil {
			snap.ClearDeadline = true
		} else {
			d := *t.Deadline
			snap.Deadline = &d
		}
	}
	return snap
}

// Fields returns the JSON names of the touched fields, for logging.
func (p TaskPatch) Fields() []string {
	var fields []string
	if p.Title != nil {
		fields = append(fields, "title")
	}
	if p.Status != nil {
		fields = append(fields, "status")
	}
	if p.Priority != nil {
		fields = append(fields, "priority")
	}
	if p.Deadline != nil || p.ClearDeadline {
		fields = append(fields, "deadline")
	}
	return fields
}

// MarshalJSON emits only the touched fields; a cleared deadline is sent as null.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	body := make(map[string]any, 4)
	if p.Title != nil {
		body["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Status != nil {
		body["status"] = *p.Status
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	switch {
	case p.ClearDeadline:
		body["deadline"] = nil
	case p.Deadline != nil:
		body["deadline"] = p.Deadline.UTC().Format(time.RFC3339)
	}
	return codec.Marshal(body)
}

// UnmarshalJSON distinguishes an absent deadline from an explicit null.
func (p *TaskPatch) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = TaskPatch{}
	for key, value := range raw {
		switch key {
		case "title":
			title, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid title: expected string, got %T", value)
			}
			p.Title = &title
		case "status":
			status, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid status: expected string, got %T", value)
			}
			s := Status(status)
			p.Status = &s
		case "priority":
			priority, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid priority: expected string, got %T", value)
			}
			pr := Priority(priority)
			p.Priority = &pr
		case "deadline":
			if value == nil {
				p.ClearDeadline = true
				continue
			}
			text, ok := value.(string)
			if !ok {
				return fmt.Errorf("invalid deadline: expected string, got %T", value)
			}
			deadline, err := time.Parse(time.RFC3339, text)
			if err != nil {
				return fmt.Errorf("invalid deadline: %w", err)
			}
			p.Deadline = &deadline
		}
	}
	return nil
}
