package mutation

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Op is the kind of remote call a mutation makes.
type Op string

const (
	OpUpdate Op = "update"
	OpCreate Op = "create"
	OpDelete Op = "delete"
)

// State is the lifecycle of a Pending mutation.
//
//	queued -> applied -> confirmed | rolled_back
//
// rejected and canceled are terminal states for mutations that never reached
// the server.
type State string

const (
	StateQueued     State = "queued"
	StateApplied    State = "applied"
	StateConfirmed  State = "confirmed"
	StateRolledBack State = "rolled_back"
	StateRejected   State = "rejected"
	StateCanceled   State = "canceled"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateRolledBack, StateRejected, StateCanceled:
		return true
	}
	return false
}

// Pending tracks one mutation from acceptance until it is reconciled.
type Pending struct {
	ID     string
	TaskID int64
	Op     Op
	Patch  models.TaskPatch

	ctx       context.Context
	input     models.TaskInput
	projectID int64

	// rollback state, captured when the mutation is applied
	snapshot *models.TaskPatch
	removed  *models.Task

	// started is guarded by the engine's mutex.
	started bool

	mu    sync.Mutex
	state State
	err   error
	task  models.Task
	done  chan struct{}
}

func newPending(ctx context.Context, op Op, taskID int64) *Pending {
	return &Pending{
		ID:     uuid.NewString(),
		TaskID: taskID,
		Op:     op,
		ctx:    ctx,
		state:  StateQueued,
		done:   make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (p *Pending) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Err returns the failure once settled, nil on success.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Task returns the server's copy of the task after a confirmed update or create.
func (p *Pending) Task() models.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.task
}

// Done is closed once the mutation is settled and the store reconciled.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the mutation settles or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pending) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Pending) settle(s State, task models.Task, err error) {
	p.mu.Lock()
	if p.state.Terminal() {
		p.mu.Unlock()
		return
	}
	p.state, p.task, p.err = s, task, err
	p.mu.Unlock()
	close(p.done)
}
