// Package session is the controller behind one task view. It owns the view's
// working set, mutation engine and drag controller, and shares the
// process-wide project name resolver.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nbinmostafa/project-management-tracker/internal/board"
	"github.com/nbinmostafa/project-management-tracker/internal/dragdrop"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
	"github.com/nbinmostafa/project-management-tracker/internal/mutation"
	"github.com/nbinmostafa/project-management-tracker/internal/resolver"
)

// loadPageSize is the page size used when paging through every task.
const loadPageSize = 100

// Remote is the API surface a Session reads and writes through.
type Remote interface {
	mutation.Remote
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
	ListTasks(ctx context.Context, projectID *int64, criteria models.ViewCriteria) (models.TaskPage, error)
}

// Deps are the collaborators of a Session.
type Deps struct {
	Remote   Remote
	Resolver *resolver.Resolver
	Logger   *log.Logger
}

// Session is one open view. Every request it issues is bound to the view's
// lifetime and aborted by Close.
type Session struct {
	remote   Remote
	resolver *resolver.Resolver
	store    *board.Store
	engine   *mutation.Engine
	drag     *dragdrop.Controller
	log      *log.Entry
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	focus   *models.Project
	lastErr string
}

// New opens a view. parent bounds the view's lifetime in addition to Close.
func New(parent context.Context, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		remote:   deps.Remote,
		resolver: deps.Resolver,
		store:    board.New(),
		log:      logger.WithField("component", "session"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}

	s.engine = mutation.New(s.store, deps.Remote,
		mutation.WithLogger(logger),
		mutation.WithNotifier(mutation.NotifierFunc(func(f mutation.Failure) {
			s.setError(f.Message)
		})),
	)
	s.drag = dragdrop.New(s.store, dragdrop.SinkFunc(func(i dragdrop.Intent) {
		s.engine.Mutate(s.ctx, i.TaskID, models.StatusPatch(i.Status))
	}))

	return s
}

// Load replaces the working set. With a project id it loads that project's
// tasks, otherwise every task of the user. Project names are prefetched
// afterwards so board cards render without waiting.
func (s *Session) Load(ctx context.Context, projectID *int64) error {
	ctx, stop := s.bind(ctx)
	defer stop()

	var (
		projects []models.Project
		tasks    []models.Task
		focus    models.Project
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = s.remote.ListProjects(gctx)
		return err
	})
	if projectID != nil {
		g.Go(func() error {
			var err error
			focus, err = s.remote.GetProject(gctx, *projectID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		tasks, err = s.fetchAllTasks(gctx, projectID)
		return err
	})

	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.setError(err.Error())
		}
		s.log.WithError(err).Warn("failed to load tasks")
		return err
	}

	s.store.Load(tasks, projects)
	s.resolver.Seed(projects)

	s.mu.Lock()
	s.lastErr = ""
	s.focus = nil
	if projectID != nil {
		s.focus = &focus
	}
	s.mu.Unlock()

	s.log.WithFields(log.Fields{"tasks": len(tasks), "projects": len(projects)}).Debug("loaded view")

	return s.resolver.Prefetch(ctx, s.store.ProjectIDs())
}

func (s *Session) fetchAllTasks(ctx context.Context, projectID *int64) ([]models.Task, error) {
	criteria := models.ViewCriteria{PageSize: loadPageSize, Page: 1}
	var all []models.Task
	for {
		page, err := s.remote.ListTasks(ctx, projectID, criteria)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) == 0 || len(all) >= page.Total || criteria.Page >= page.TotalPages() {
			return all, nil
		}
		criteria.Page++
	}
}

// bind returns a context that ends when either ctx or the view ends.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Project returns the project the view is focused on, if any.
func (s *Session) Project() (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focus == nil {
		return models.Project{}, false
	}
	return *s.focus, true
}

// List returns one page of the list view.
func (s *Session) List(criteria models.ViewCriteria) models.TaskPage {
	return s.store.Query(criteria)
}

// Board returns the filtered tasks partitioned into lanes.
func (s *Session) Board(criteria models.ViewCriteria) board.Lanes {
	return s.store.Lanes(criteria)
}

// Stats returns the dashboard counts for the working set.
func (s *Session) Stats() board.Stats {
	return s.store.Stats()
}

// Card is a task as rendered on the board.
type Card struct {
	models.Task
	ProjectName string
	Overdue     bool
}

// Lane is one column of the board.
type Lane struct {
	Status models.Status
	Label  string
	Cards  []Card
}

// Cards returns the board lanes with each card's project name resolved.
func (s *Session) Cards(ctx context.Context, criteria models.ViewCriteria) []Lane {
	lanes := s.store.Lanes(criteria)
	now := s.now()

	out := make([]Lane, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		tasks := lanes.Lane(status)
		lane := Lane{Status: status, Label: status.Label(), Cards: make([]Card, 0, len(tasks))}
		for _, t := range tasks {
			lane.Cards = append(lane.Cards, Card{
				Task:        t,
				ProjectName: s.ProjectName(ctx, t.ProjectID),
				Overdue:     t.IsOverdue(now),
			})
		}
		out = append(out, lane)
	}
	return out
}

// ProjectName returns the display name of a project.
func (s *Session) ProjectName(ctx context.Context, projectID int64) string {
	return s.resolver.DisplayName(ctx, projectID)
}

// MoveTask changes a task's status.
func (s *Session) MoveTask(taskID int64, status models.Status) *mutation.Pending {
	return s.engine.Mutate(s.ctx, taskID, models.StatusPatch(status))
}

// EditTask applies a field-level change to a task.
func (s *Session) EditTask(taskID int64, patch models.TaskPatch) *mutation.Pending {
	return s.engine.Mutate(s.ctx, taskID, patch)
}

// CreateTask adds a task to a project.
func (s *Session) CreateTask(projectID int64, in models.TaskInput) *mutation.Pending {
	return s.engine.Create(s.ctx, projectID, in)
}

// DeleteTask removes a task.
func (s *Session) DeleteTask(taskID int64) *mutation.Pending {
	return s.engine.Delete(s.ctx, taskID)
}

// Drag returns the board's drag controller. Its intents become status
// mutations bound to the view.
func (s *Session) Drag() *dragdrop.Controller {
	return s.drag
}

// Task returns the current state of a task in the working set.
func (s *Session) Task(taskID int64) (models.Task, bool) {
	return s.store.Get(taskID)
}

// OnChange registers fn to run after every change to the working set.
func (s *Session) OnChange(fn func()) {
	s.store.OnChange(fn)
}

// LastError returns the most recent user-facing failure, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// DismissError clears LastError.
func (s *Session) DismissError() {
	s.setError("")
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// Close ends the view: in-flight requests are aborted and no late response
// touches the working set.
func (s *Session) Close() {
	s.engine.Close()
	s.drag.Cancel()
	s.cancel()
}
