// Package mutation applies task changes to the board immediately and
// reconciles them with the API afterwards, rolling back on failure.
//
// Mutations of the same task are serialized: while one is in flight, later
// ones wait in a FIFO queue and take their rollback snapshot only when they
// are applied. Mutations of different tasks run independently.
package mutation

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nbinmostafa/project-management-tracker/internal/board"
	"github.com/nbinmostafa/project-management-tracker/internal/gateway"
	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

var (
	// ErrClosed is returned for mutations that were still queued when the
	// engine was closed.
	ErrClosed = errors.New("mutation engine closed")
	// ErrNotCreated is returned for mutations of a task whose create failed.
	ErrNotCreated = errors.New("task was never created")
)

// Remote is the subset of the API the engine writes through.
type Remote interface {
	CreateTask(ctx context.Context, projectID int64, in models.TaskInput) (models.Task, error)
	UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (models.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Failure describes a mutation the server rejected or never received.
type Failure struct {
	MutationID string
	TaskID     int64
	Op         Op
	Message    string
	Status     int
}

// Notifier is told about every failed mutation after it has been rolled back.
type Notifier interface {
	MutationFailed(f Failure)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Failure)

func (fn NotifierFunc) MutationFailed(f Failure) { fn(f) }

// Engine owns the per-task mutation queues for one board.Store.
type Engine struct {
	store  *board.Store
	remote Remote
	notify Notifier
	log    *log.Entry
	now    func() time.Time

	mu      sync.Mutex
	queues  map[int64][]*Pending
	aliases map[int64]int64
	nextID  int64
	closed  bool
}

// Option configures an Engine.
type Option func(*Engine)

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l.WithField("component", "mutation") }
}

// New creates an Engine writing to store and remote.
func New(store *board.Store, remote Remote, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		remote:  remote,
		notify:  NotifierFunc(func(Failure) {}),
		log:     log.StandardLogger().WithField("component", "mutation"),
		now:     time.Now,
		queues:  make(map[int64][]*Pending),
		aliases: make(map[int64]int64),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Mutate changes the task's fields. An invalid patch is rejected without any
// state change or network call. Otherwise, when no other mutation of the task
// is outstanding, the patch is visible in the store before Mutate returns.
//
// The remote call is bound to ctx.
func (e *Engine) Mutate(ctx context.Context, taskID int64, patch models.TaskPatch) *Pending {
	p := newPending(ctx, OpUpdate, taskID)
	p.Patch = patch
	if err := patch.Validate(); err != nil {
		p.settle(StateRejected, models.Task{}, err)
		return p
	}
	return e.enqueue(p)
}

// Create inserts the task under a provisional negative id and creates it
// remotely. On success the provisional task is swapped for the server's; on
// failure it is removed.
func (e *Engine) Create(ctx context.Context, projectID int64, in models.TaskInput) *Pending {
	in = in.WithDefaults()
	candidate := in.Task(projectID)

	e.mu.Lock()
	e.nextID--
	provisional := e.nextID
	e.mu.Unlock()

	p := newPending(ctx, OpCreate, provisional)
	p.input = in
	p.projectID = projectID
	if err := candidate.Validate(); err != nil {
		p.settle(StateRejected, models.Task{}, err)
		return p
	}
	return e.enqueue(p)
}

// Delete removes the task locally and remotely. On failure the exact prior
// task is restored.
func (e *Engine) Delete(ctx context.Context, taskID int64) *Pending {
	return e.enqueue(newPending(ctx, OpDelete, taskID))
}

// Close stops the engine from writing to the store. Queued mutations are
// canceled; responses that arrive later are dropped.
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	var queued []*Pending
	for _, q := range e.queues {
		for _, p := range q {
			if !p.started {
				queued = append(queued, p)
			}
		}
	}
	e.mu.Unlock()

	for _, p := range queued {
		p.settle(StateCanceled, models.Task{}, ErrClosed)
	}
}

// Outstanding returns the number of mutations queued or in flight for taskID.
func (e *Engine) Outstanding(taskID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queues[e.canonical(taskID)])
}

func (e *Engine) enqueue(p *Pending) *Pending {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		p.settle(StateCanceled, models.Task{}, ErrClosed)
		return p
	}
	key := e.canonical(p.TaskID)
	q := e.queues[key]
	e.queues[key] = append(q, p)
	head := len(q) == 0
	p.started = head
	e.mu.Unlock()

	if head {
		e.start(key, p)
	}
	return p
}

// canonical maps a provisional id to the server id once its create confirmed.
// Callers hold e.mu.
func (e *Engine) canonical(id int64) int64 {
	if real, ok := e.aliases[id]; ok {
		return real
	}
	return id
}

// start applies p to the store and issues its remote call. p must be the head
// of the queue for key.
func (e *Engine) start(key int64, p *Pending) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		p.settle(StateCanceled, models.Task{}, ErrClosed)
		e.advance(key, p)
		return
	}

	switch p.Op {
	case OpUpdate:
		if key < 0 {
			e.finish(key, p, models.Task{}, ErrNotCreated)
			return
		}
		if current, ok := e.store.Get(key); ok {
			snap := p.Patch.SnapshotOf(current)
			p.snapshot = &snap
		}
		e.store.Apply(key, p.Patch)

	case OpCreate:
		e.store.Insert(e.provisionalTask(p, key))

	case OpDelete:
		if key < 0 {
			e.finish(key, p, models.Task{}, ErrNotCreated)
			return
		}
		if prior, ok := e.store.Remove(key); ok {
			p.removed = &prior
		}
	}

	p.setState(StateApplied)
	e.log.WithFields(log.Fields{"mutation_id": p.ID, "task_id": key, "op": p.Op, "fields": p.Patch.Fields()}).Debug("mutation applied")

	go e.run(key, p)
}

func (e *Engine) provisionalTask(p *Pending, id int64) models.Task {
	now := e.now().UTC()
	task := p.input.Task(p.projectID)
	task.ID = id
	task.CreatedAt = now
	task.UpdatedAt = now
	return task
}

func (e *Engine) run(key int64, p *Pending) {
	var (
		task models.Task
		err  error
	)
	switch p.Op {
	case OpUpdate:
		task, err = e.remote.UpdateTask(p.ctx, key, p.Patch)
	case OpCreate:
		task, err = e.remote.CreateTask(p.ctx, p.projectID, p.input)
	case OpDelete:
		err = e.remote.DeleteTask(p.ctx, key)
	}
	e.finish(key, p, task, err)
}

// finish reconciles the store with the outcome of p, settles it and starts the
// next queued mutation of the same task.
func (e *Engine) finish(key int64, p *Pending, task models.Task, err error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	state := StateConfirmed
	if err != nil {
		state = StateRolledBack
		if p.State() == StateQueued {
			state = StateRejected
		}
	}

	if err == nil && p.Op == OpCreate && task.ID != 0 {
		e.promote(key, p, task.ID)
	}

	if !closed {
		if err == nil {
			e.confirm(key, p, task)
		} else {
			e.rollback(key, p)
			e.fail(key, p, err)
		}
	}
	p.settle(state, task, err)

	if next, nextKey := e.advance(key, p); next != nil {
		e.start(nextKey, next)
	}
}

func (e *Engine) confirm(key int64, p *Pending, echo models.Task) {
	switch p.Op {
	case OpUpdate:
		if echo.ID == 0 {
			break
		}
		// Only the touched fields and UpdatedAt come from the echo.
		serverValues := p.Patch.SnapshotOf(echo)
		e.store.Update(key, func(t *models.Task) {
			serverValues.ApplyTo(t)
			if !echo.UpdatedAt.IsZero() {
				t.UpdatedAt = echo.UpdatedAt
			}
		})
	case OpCreate:
		if echo.ID == 0 {
			e.store.Remove(key)
			break
		}
		e.store.Replace(key, echo)
	}
	e.log.WithFields(log.Fields{"mutation_id": p.ID, "task_id": key, "op": p.Op}).Debug("mutation confirmed")
}

func (e *Engine) rollback(key int64, p *Pending) {
	switch p.Op {
	case OpUpdate:
		if p.snapshot != nil {
			e.store.Apply(key, *p.snapshot)
		}
	case OpCreate:
		e.store.Remove(key)
	case OpDelete:
		if p.removed != nil {
			e.store.Insert(*p.removed)
		}
	}
}

func (e *Engine) fail(key int64, p *Pending, err error) {
	f := Failure{
		MutationID: p.ID,
		TaskID:     key,
		Op:         p.Op,
		Message:    err.Error(),
		Status:     gateway.StatusOf(err),
	}
	if f.Message == "" {
		f.Message = fallbackMessage(p.Op)
	}

	e.log.WithFields(log.Fields{
		"mutation_id": f.MutationID,
		"task_id":     f.TaskID,
		"op":          f.Op,
		"status":      f.Status,
	}).WithError(err).Warn("mutation rolled back")

	e.notify.MutationFailed(f)
}

// promote moves the mutations queued behind a confirmed create to the server
// id. It runs before the server task becomes visible in the store, so a
// mutation issued for the server id from then on queues behind them.
func (e *Engine) promote(provisional int64, p *Pending, serverID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.aliases[provisional] = serverID
	rest := without(e.queues[provisional], p)
	delete(e.queues, provisional)
	if len(rest) > 0 {
		e.queues[serverID] = append(e.queues[serverID], rest...)
	}
}

// advance removes p from its queue and returns the mutation to start next, if
// the head of the queue has not been started yet.
func (e *Engine) advance(key int64, p *Pending) (*Pending, int64) {
	e.mu.Lock()
	key = e.canonical(key)
	q := without(e.queues[key], p)
	if len(q) == 0 {
		delete(e.queues, key)
		e.mu.Unlock()
		return nil, 0
	}

	if e.closed {
		var canceled, inFlight []*Pending
		for _, queued := range q {
			if queued.started {
				inFlight = append(inFlight, queued)
			} else {
				canceled = append(canceled, queued)
			}
		}
		if len(inFlight) > 0 {
			e.queues[key] = inFlight
		} else {
			delete(e.queues, key)
		}
		e.mu.Unlock()
		for _, queued := range canceled {
			queued.settle(StateCanceled, models.Task{}, ErrClosed)
		}
		return nil, 0
	}

	e.queues[key] = q
	next := q[0]
	if next.started {
		e.mu.Unlock()
		return nil, 0
	}
	next.started = true
	e.mu.Unlock()
	return next, key
}

func without(q []*Pending, p *Pending) []*Pending {
	out := make([]*Pending, 0, len(q))
	for _, queued := range q {
		if queued != p {
			out = append(out, queued)
		}
	}
	return out
}

func fallbackMessage(op Op) string {
	switch op {
	case OpCreate:
		return "failed to create task"
	case OpDelete:
		return "failed to delete task"
	}
	return "failed to update task"
}
