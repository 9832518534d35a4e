// Package board holds the in-memory working set of tasks and projects for one
// view and derives filtered, sorted and paginated projections from it.
package board

import (
	"sync"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Store owns the canonical in-memory tasks and projects of a view.
// All methods are safe for concurrent use; each mutation is atomic.
type Store struct {
	mu       sync.RWMutex
	tasks    map[int64]models.Task
	projects map[int64]models.Project
	onChange func()
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		tasks:    make(map[int64]models.Task),
		projects: make(map[int64]models.Project),
	}
}

// OnChange registers fn to be called after every mutation.
// fn runs outside the store lock.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces the working set. There is no merge: a reload is a full replacement.
func (s *Store) Load(tasks []models.Task, projects []models.Project) {
	s.mu.Lock()
	s.tasks = make(map[int64]models.Task, len(tasks))
	for _, t := range tasks {
		s.tasks[t.ID] = cloneTask(t)
	}
	s.projects = make(map[int64]models.Project, len(projects))
	for _, p := range projects {
		s.projects[p.ID] = p
	}
	s.mu.Unlock()
	s.changed()
}

// Apply updates the task in place. A missing task is silently ignored,
// e.g. when it was removed by a concurrent delete. It reports whether a task
// was updated.
func (s *Store) Apply(taskID int64, patch models.TaskPatch) bool {
	return s.Update(taskID, patch.ApplyTo)
}

// Update runs fn on the stored task under the write lock. Like Apply, a
// missing task is a no-op.
func (s *Store) Update(taskID int64, fn func(*models.Task)) bool {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if ok {
		fn(&t)
		s.tasks[taskID] = t
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return ok
}

// Insert adds or overwrites a task.
func (s *Store) Insert(task models.Task) {
	s.mu.Lock()
	s.tasks[task.ID] = cloneTask(task)
	s.mu.Unlock()
	s.changed()
}

// Remove deletes a task and returns it.
func (s *Store) Remove(taskID int64) (models.Task, bool) {
	s.mu.Lock()
	t, ok := s.tasks[taskID]
	if ok {
		delete(s.tasks, taskID)
	}
	s.mu.Unlock()
	if ok {
		s.changed()
	}
	return t, ok
}

// Replace swaps the task stored under oldID for task, in one step.
// Used to exchange a provisional task for the one the server created.
func (s *Store) Replace(oldID int64, task models.Task) {
	s.mu.Lock()
	delete(s.tasks, oldID)
	s.tasks[task.ID] = cloneTask(task)
	s.mu.Unlock()
	s.changed()
}

// Get returns a copy of the task.
func (s *Store) Get(taskID int64) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	return cloneTask(t), ok
}

// Status returns the task's current status.
func (s *Store) Status(taskID int64) (models.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	return t.Status, ok
}

// Len returns the number of tasks in the working set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Project returns the project with the given id.
func (s *Store) Project(id int64) (models.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	return p, ok
}

// Projects returns all projects ordered by id.
func (s *Store) Projects() []models.Project {
	s.mu.RLock()
	out := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortProjects(out)
	return out
}

// ProjectIDs returns the distinct project ids referenced by tasks, ascending.
func (s *Store) ProjectIDs() []int64 {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, t := range s.tasks {
		if _, ok := seen[t.ProjectID]; ok {
			continue
		}
		seen[t.ProjectID] = struct{}{}
		ids = append(ids, t.ProjectID)
	}
	s.mu.RUnlock()
	sortIDs(ids)
	return ids
}

func (s *Store) snapshot() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, cloneTask(t))
	}
	return out
}

func (s *Store) changed() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func cloneTask(t models.Task) models.Task {
	if t.Deadline != nil {
		d := *t.Deadline
		t.Deadline = &d
	}
	return t
}
