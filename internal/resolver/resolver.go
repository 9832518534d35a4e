// Package resolver maps project ids to display names. Lookups are
// deduplicated while in flight and their outcomes are kept for the life of
// the process, including negative ones.
package resolver

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/nbinmostafa/project-management-tracker/internal/gateway"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Lookup fetches a single project from the API.
type Lookup interface {
	GetProject(ctx context.Context, id int64) (models.Project, error)
}

// State is the cache state of one project id.
type State string

const (
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateMissing  State = "missing"
	StateFailed   State = "failed"
)

// Entry is a cached lookup outcome. Name is set only when State is resolved.
type Entry struct {
	State State
	Name  string
}

func (e Entry) terminal() bool {
	return e.State != StatePending
}

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
)

// Resolver is shared by every view. Construct one at startup.
type Resolver struct {
	lookup      Lookup
	timeout     time.Duration
	concurrency int
	log         *log.Entry

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[int64]Entry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout bounds each remote lookup.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithConcurrency limits how many lookups Prefetch runs at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.log = l.WithField("component", "resolver") }
}

// New creates a Resolver backed by lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{
		lookup:      lookup,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
		log:         log.StandardLogger().WithField("component", "resolver"),
		entries:     make(map[int64]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the project's name. ok is false when the project does not
// exist or could not be looked up; either outcome is cached and never retried.
//
// Concurrent calls for the same id share one remote lookup. Cancelling ctx
// only stops this caller from waiting: the lookup itself runs to completion so
// the shared cache is still populated.
func (r *Resolver) Resolve(ctx context.Context, projectID int64) (string, bool) {
	if e, ok := r.Peek(projectID); ok && e.terminal() {
		return e.Name, e.State == StateResolved
	}

	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(strconv.FormatInt(projectID, 10), func() (any, error) {
		return r.fetch(detached, projectID), nil
	})

	select {
	case res := <-ch:
		e := res.Val.(Entry)
		return e.Name, e.State == StateResolved
	case <-ctx.Done():
		return "", false
	}
}

// DisplayName returns the project's name, or "Project #<id>" when it cannot be
// resolved.
func (r *Resolver) DisplayName(ctx context.Context, projectID int64) string {
	if name, ok := r.Resolve(ctx, projectID); ok {
		return name
	}
	return Fallback(projectID)
}

// Fallback is the label shown for a project whose name is unknown.
func Fallback(projectID int64) string {
	return fmt.Sprintf("Project #%d", projectID)
}

// Prefetch resolves the distinct ids concurrently and waits for them. It only
// returns an error when ctx ends first.
func (r *Resolver) Prefetch(ctx context.Context, ids []int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if e, ok := r.Peek(id); ok && e.terminal() {
			continue
		}

		g.Go(func() error {
			r.Resolve(gctx, id)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// Peek returns the cache entry for id without triggering a lookup.
func (r *Resolver) Peek(projectID int64) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[projectID]
	return e, ok
}

// Seed records names that are already known, e.g. from a project listing.
// Existing terminal entries are left alone.
func (r *Resolver) Seed(projects []models.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range projects {
		if e, ok := r.entries[p.ID]; ok && e.terminal() {
			continue
		}
		r.entries[p.ID] = Entry{State: StateResolved, Name: p.Name}
	}
}

func (r *Resolver) fetch(ctx context.Context, projectID int64) Entry {
	// A flight that finished between the caller's cache check and this call
	// has already stored its outcome.
	r.mu.Lock()
	if e, ok := r.entries[projectID]; ok && e.terminal() {
		r.mu.Unlock()
		return e
	}
	r.entries[projectID] = Entry{State: StatePending}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var e Entry
	project, err := r.lookup.GetProject(ctx, projectID)
	switch {
	case err == nil:
		e = Entry{State: StateResolved, Name: project.Name}
	case gateway.IsNotFound(err):
		e = Entry{State: StateMissing}
	default:
		r.log.WithField("project_id", projectID).WithError(err).Warn("project lookup failed")
		e = Entry{State: StateFailed}
	}

	r.mu.Lock()
	r.entries[projectID] = e
	r.mu.Unlock()
	return e
}
