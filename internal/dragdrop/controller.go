// Package dragdrop turns a drag of a task card across status lanes into at
// most one status-change intent.
package dragdrop

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Phase is the controller state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDragging Phase = "dragging"
	PhaseHovering Phase = "hovering"
)

// Session is a snapshot of the drag in progress. It is the zero value with
// PhaseIdle when nothing is being dragged.
type Session struct {
	Phase  Phase
	TaskID int64
	Lane   models.Status
	// Active is true while the pointer is over a valid lane.
	Active bool
}

// Intent asks for the task to be moved to Status.
type Intent struct {
	TaskID int64
	Status models.Status
}

// StatusSource reports a task's current status.
type StatusSource interface {
	Status(taskID int64) (models.Status, bool)
}

// IntentSink receives the intent produced by a successful drop.
type IntentSink interface {
	Submit(Intent)
}

// SinkFunc adapts a function to IntentSink.
type SinkFunc func(Intent)

func (fn SinkFunc) Submit(i Intent) { fn(i) }

// Controller is the drag state machine for one board. It is reused for every
// drag of the board's lifetime.
type Controller struct {
	source StatusSource
	sink   IntentSink
	log    *log.Entry

	mu      sync.Mutex
	session Session
}

// New creates an idle Controller.
func New(source StatusSource, sink IntentSink) *Controller {
	return &Controller{
		source:  source,
		sink:    sink,
		log:     log.StandardLogger().WithField("component", "dragdrop"),
		session: Session{Phase: PhaseIdle},
	}
}

// Grab starts dragging taskID. Grabbing while a drag is in progress replaces it.
func (c *Controller) Grab(taskID int64) {
	c.mu.Lock()
	c.session = Session{Phase: PhaseDragging, TaskID: taskID}
	c.mu.Unlock()
}

// Hover records the lane under the pointer. Hovering another lane just moves
// the target. A lane that is not a known status counts as no lane.
func (c *Controller) Hover(lane models.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Phase == PhaseIdle {
		return
	}
	if !lane.Valid() {
		c.leave()
		return
	}
	c.session.Phase = PhaseHovering
	c.session.Lane = lane
	c.session.Active = true
}

// Leave records that the pointer left every lane.
func (c *Controller) Leave() {
	c.mu.Lock()
	c.leave()
	c.mu.Unlock()
}

func (c *Controller) leave() {
	if c.session.Phase == PhaseHovering {
		c.session = Session{Phase: PhaseDragging, TaskID: c.session.TaskID}
	}
}

// Release drops the task. When it is over a lane other than the task's
// current status, exactly one intent is submitted and returned. The
// controller is idle afterwards in every case.
func (c *Controller) Release() (Intent, bool) {
	c.mu.Lock()
	s := c.session
	c.session = Session{Phase: PhaseIdle}
	c.mu.Unlock()

	if s.Phase != PhaseHovering || !s.Lane.Valid() {
		return Intent{}, false
	}

	current, ok := c.source.Status(s.TaskID)
	if !ok {
		c.log.WithField("task_id", s.TaskID).Debug("dropped task is no longer on the board")
		return Intent{}, false
	}
	if current == s.Lane {
		return Intent{}, false
	}

	intent := Intent{TaskID: s.TaskID, Status: s.Lane}
	c.sink.Submit(intent)
	return intent, true
}

// Cancel abandons the drag without an intent.
func (c *Controller) Cancel() {
	c.mu.Lock()
	c.session = Session{Phase: PhaseIdle}
	c.mu.Unlock()
}

// Session returns the current drag state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}
