package models

import (
	"testing"
	"time"
)

func TestTaskPatch_SnapshotRestores(t *testing.T) {
	deadline := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	original := Task{ID: 1, Title: "Draft", Status: StatusNotStarted, Priority: PriorityLow, Deadline: &deadline}

	title := "Final"
	status := StatusDone
	patch := TaskPatch{Title: &title, Status: &status, ClearDeadline: true}

	snap := patch.SnapshotOf(original)

	task := original
	patch.ApplyTo(&task)
	if task.Title != "Final" || task.Status != StatusDone || task.Deadline != nil {
		t.Fatalf("patch not applied: %+v", task)
	}

	snap.ApplyTo(&task)
	if task.Title != "Draft" {
		t.Errorf("expected title restored, got %q", task.Title)
	}
	if task.Status != StatusNotStarted {
		t.Errorf("expected status restored, got %q", task.Status)
	}
	if task.Priority != PriorityLow {
		t.Errorf("expected untouched priority, got %q", task.Priority)
	}
	if task.Deadline == nil || !task.Deadline.Equal(deadline) {
		t.Errorf("expected deadline restored, got %v", task.Deadline)
	}
}

func TestTaskPatch_Validate(t *testing.T) {
	empty := ""
	bogus := Status("archived")

	tests := []struct {
		name    string
		patch   TaskPatch
		wantErr bool
	}{
		{name: "empty patch", patch: TaskPatch{}, wantErr: true},
		{name: "empty title", patch: TaskPatch{Title: &empty}, wantErr: true},
		{name: "unknown status", patch: TaskPatch{Status: &bogus}, wantErr: true},
		{name: "status change", patch: StatusPatch(StatusInProgress), wantErr: false},
		{name: "clear deadline", patch: TaskPatch{ClearDeadline: true}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTaskPatch_JSONDeadlineNull(t *testing.T) {
	data, err := codec.Marshal(TaskPatch{ClearDeadline: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"deadline":null}` {
		t.Fatalf("unexpected body: %s", data)
	}

	var decoded TaskPatch
	if err := codec.Unmarshal([]byte(`{"status":"done","deadline":null}`), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.ClearDeadline {
		t.Error("expected explicit null to clear the deadline")
	}
	if decoded.Status == nil || *decoded.Status != StatusDone {
		t.Errorf("expected status done, got %v", decoded.Status)
	}
	if decoded.Title != nil || decoded.Priority != nil {
		t.Errorf("expected absent fields to stay nil: %+v", decoded)
	}
}

func TestTaskPatch_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		check   func(t *testing.T, p TaskPatch)
	}{
		{
			name: "deadline set",
			body: `{"deadline":"2026-05-01T09:30:00Z"}`,
			check: func(t *testing.T, p TaskPatch) {
				want := time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
				if p.Deadline == nil || !p.Deadline.Equal(want) || p.ClearDeadline {
					t.Errorf("expected deadline %v, got %+v", want, p)
				}
			},
		},
		{
			name: "absent deadline untouched",
			body: `{"title":"Plan"}`,
			check: func(t *testing.T, p TaskPatch) {
				if p.Deadline != nil || p.ClearDeadline {
					t.Errorf("expected deadline untouched, got %+v", p)
				}
				if p.Title == nil || *p.Title != "Plan" {
					t.Errorf("expected title Plan, got %v", p.Title)
				}
			},
		},
		{name: "numeric title", body: `{"title":5}`, wantErr: true},
		{name: "malformed deadline", body: `{"deadline":"next week"}`, wantErr: true},
		{name: "not an object", body: `["done"]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p TaskPatch
			err := codec.Unmarshal([]byte(tt.body), &p)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, p)
		})
	}
}
