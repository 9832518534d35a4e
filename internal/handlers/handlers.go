// Package handlers serves the tracker API: owner-scoped projects and tasks as
// JSON over chi. Errors are {"detail": ...} bodies.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/nbinmostafa/project-management-tracker/internal/auth"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
	"github.com/nbinmostafa/project-management-tracker/internal/store"
)

var codec = sonic.ConfigStd

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store    store.Store
	verifier *auth.Verifier
	log      *log.Entry
}

// New creates a new Handlers instance.
func New(s store.Store, v *auth.Verifier, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handlers{
		store:    s,
		verifier: v,
		log:      logger.WithField("component", "api"),
	}
}

// Routes returns the authenticated API routes.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.Authenticate)

	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.ListProjects)
		r.Post("/", h.CreateProject)
		r.Get("/{id}", h.GetProject)
		r.Put("/{id}", h.UpdateProject)
		r.Delete("/{id}", h.DeleteProject)
		r.Get("/{id}/tasks", h.ListTasks)
		r.Post("/{id}/tasks", h.CreateTask)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Get("/{id}", h.GetTask)
		r.Patch("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
	})

	return r
}

type ownerKey struct{}

// Authenticate requires a bearer JWT and stores its subject as the request owner.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := h.verifier.UserIDFromAuthHeader(r.Header.Get("Authorization"))
		if err != nil {
			h.log.WithError(err).Debug("rejected request")
			w.Header().Set("WWW-Authenticate", "Bearer")
			respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

// Owner returns the authenticated user id stored by Authenticate.
func Owner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

// parseID extracts and parses an integer ID from URL parameters.
func parseID(r *http.Request, param string) (int64, error) {
	idStr := chi.URLParam(r, param)
	return strconv.ParseInt(idStr, 10, 64)
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return codec.Unmarshal(data, v)
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	data, err := codec.Marshal(v)
	if err != nil {
		log.WithError(err).Error("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	respondJSON(w, code, map[string]string{"detail": message})
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// respondInvalid sends a 422 with a list of field errors.
func respondInvalid(w http.ResponseWriter, err error) {
	field := "body"
	var ve models.ValidationError
	if errors.As(err, &ve) {
		field = ve.Field
	}
	respondJSON(w, http.StatusUnprocessableEntity, map[string][]validationDetail{
		"detail": {{Loc: []string{"body", field}, Msg: err.Error(), Type: "value_error"}},
	})
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.log.WithError(err).Error("internal server error")
	respondError(w, http.StatusInternalServerError, "Internal Server Error")
}

// respondStoreError maps store errors to status codes.
func (h *Handlers) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrProjectNotFound):
		respondError(w, http.StatusNotFound, "Project not found")
	case errors.Is(err, store.ErrTaskNotFound):
		respondError(w, http.StatusNotFound, "Task not found")
	default:
		h.respondServerError(w, err)
	}
}
