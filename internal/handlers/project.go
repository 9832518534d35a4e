package handlers

import (
	"net/http"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// ListProjects returns the caller's projects ordered by id.
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context(), Owner(r.Context()))
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

// GetProject returns one project.
func (h *Handlers) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	project, err := h.store.GetProject(ctx, Owner(ctx), id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// CreateProject creates a new project.
func (h *Handlers) CreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in models.ProjectInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := in.Validate(); err != nil {
		respondInvalid(w, err)
		return
	}

	project := &models.Project{Name: in.Name, Description: in.Description}
	if err := h.store.CreateProject(ctx, Owner(ctx), project); err != nil {
		h.respondServerError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

// UpdateProject replaces the name and description of an existing project.
func (h *Handlers) UpdateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := Owner(ctx)

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	project, err := h.store.GetProject(ctx, owner, id)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	var in models.ProjectInput
	if err := decodeBody(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := in.Validate(); err != nil {
		respondInvalid(w, err)
		return
	}

	project.Name = in.Name
	project.Description = in.Description

	if err := h.store.UpdateProject(ctx, owner, project); err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project and its tasks.
func (h *Handlers) DeleteProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusNotFound, "Project not found")
		return
	}

	if err := h.store.DeleteProject(ctx, Owner(ctx), id); err != nil {
		h.respondStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
