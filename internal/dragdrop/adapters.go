package dragdrop

import (
	"strconv"
	"strings"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// PointerAdapter feeds events from a pointer-based drag library, where the
// dragged card and the lane under it are reported as string ids.
type PointerAdapter struct {
	c *Controller
}

func NewPointerAdapter(c *Controller) *PointerAdapter {
	return &PointerAdapter{c: c}
}

func (a *PointerAdapter) DragStart(activeID string) {
	if id, ok := parseTaskID(activeID); ok {
		a.c.Grab(id)
	}
}

// DragOver reports the lane under the pointer; an empty overID means none.
func (a *PointerAdapter) DragOver(activeID, overID string) {
	if overID == "" {
		a.c.Leave()
		return
	}
	a.c.Hover(models.Status(overID))
}

// DragEnd finishes the drag over overID, or outside every lane when empty.
func (a *PointerAdapter) DragEnd(activeID, overID string) (Intent, bool) {
	if overID == "" {
		a.c.Cancel()
		return Intent{}, false
	}
	if id, ok := parseTaskID(activeID); ok && a.c.Session().TaskID != id {
		a.c.Grab(id)
	}
	a.c.Hover(models.Status(overID))
	return a.c.Release()
}

func (a *PointerAdapter) DragCancel() {
	a.c.Cancel()
}

// NativeAdapter feeds browser drag-and-drop events. The drop event arrives
// before dragend, and carries the dragged id in its transfer data.
type NativeAdapter struct {
	c *Controller
}

func NewNativeAdapter(c *Controller) *NativeAdapter {
	return &NativeAdapter{c: c}
}

// DragStart is fired on the card; transfer is the id written to the
// transfer data.
func (a *NativeAdapter) DragStart(transfer string) {
	if id, ok := parseTaskID(transfer); ok {
		a.c.Grab(id)
	}
}

func (a *NativeAdapter) DragOver(lane string) {
	a.c.Hover(models.Status(lane))
}

func (a *NativeAdapter) DragLeave(lane string) {
	if s := a.c.Session(); s.Phase == PhaseHovering && string(s.Lane) == lane {
		a.c.Leave()
	}
}

// Drop is fired on a lane. transfer may be empty, in which case the grabbed
// task is used.
func (a *NativeAdapter) Drop(lane, transfer string) (Intent, bool) {
	if id, ok := parseTaskID(transfer); ok && a.c.Session().TaskID != id {
		a.c.Grab(id)
	}
	a.c.Hover(models.Status(lane))
	return a.c.Release()
}

// DragEnd is fired on the card after a drop or an abandoned drag.
func (a *NativeAdapter) DragEnd() {
	a.c.Cancel()
}

func parseTaskID(raw string) (int64, bool) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "task-")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
