package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// ListTasks returns one page of the caller's tasks. Under /projects/{id}/tasks
// the listing is limited to that project.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var projectID *int64
	if chi.URLParam(r, "id") != "" {
		id, err := parseID(r, "id")
		if err != nil {
			respondError(w, http.StatusNotFound, "Project not found")
			return
		}
		projectID = &id
	}

	criteria := models.ParseCriteria(r.URL.Query())
	if criteria.Status != "" && !criteria.Status.Valid() {
		respondInvalid(w, models.ValidationError{Field: "status", Message: "status must be 'not_started', 'in_progress', or 'done'"})
		return
	}
	if criteria.Priority != "" && !criteria.Priority.Valid() {
		respondInvalid(w, models.ValidationError{Field: "priority", Message: "priority must be 'high', 'medium', or 'low'"})
		return
	}

	page, err := h.store.ListTasks(ctx, Owner(ctx), projectID, criteria)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// GetTask returns one task.
func (h *Handlers) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.store.GetTask(ctx, Owner(ctx), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// CreateTask creates a new task in a project.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projectID, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	var in models.TaskInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := in.Validate(); err != nil {
		respondInvalid(w, err)
		return
	}

	task := in.Task(projectID)
	if err := h.store.CreateTask(ctx, Owner(ctx), &task); err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, task)
}

// UpdateTask applies a partial update. Fields absent from the body are left
// unchanged; "deadline": null clears the deadline.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := Owner(ctx)

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	task, err := h.store.GetTask(ctx, owner, id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	var patch models.TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		respondInvalid(w, err)
		return
	}

	if patch.IsEmpty() {
		respondJSON(w, http.StatusOK, task)
		return
	}

	if err := patch.Validate(); err != nil {
		respondInvalid(w, err)
		return
	}

	patch.ApplyTo(task)
	if err := h.store.UpdateTask(ctx, owner, task); err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Task not found")
		return
	}

	if err := h.store.DeleteTask(ctx, Owner(ctx), id); err != nil {
		h.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
