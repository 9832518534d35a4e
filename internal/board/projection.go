package board

import (
	"math"
	"sort"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Query returns the page of tasks selected by criteria. It never mutates the
// store and is deterministic: for unchanged data and criteria it returns the
// same items in the same order. A page beyond the last one is clamped.
func (s *Store) Query(criteria models.ViewCriteria) models.TaskPage {
	c := criteria.Normalize()
	matched := filterTasks(s.snapshot(), c)
	sortTasks(matched, c.SortBy, c.SortOrder)

	total := len(matched)
	page := c.Page
	if pages := models.PageCount(total, c.PageSize); page > pages {
		page = pages
	}

	start := (page - 1) * c.PageSize
	end := start + c.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return models.TaskPage{
		Items:    matched[start:end],
		Page:     page,
		PageSize: c.PageSize,
		Total:    total,
	}
}

// Lanes is the board view: the filtered tasks partitioned by status.
type Lanes struct {
	NotStarted []models.Task
	InProgress []models.Task
	Done       []models.Task
}

// Lane returns the tasks in the lane for status.
func (l Lanes) Lane(status models.Status) []models.Task {
	switch LaneOf(status) {
	case models.StatusInProgress:
		return l.InProgress
	case models.StatusDone:
		return l.Done
	default:
		return l.NotStarted
	}
}

// Total returns the number of tasks across all lanes.
func (l Lanes) Total() int {
	return len(l.NotStarted) + len(l.InProgress) + len(l.Done)
}

// LaneOf returns the lane a status is displayed in. Unknown statuses are shown
// in the not-started lane; this is a display rule only.
func LaneOf(status models.Status) models.Status {
	if status.Valid() {
		return status
	}
	return models.StatusNotStarted
}

// Lanes partitions the filtered, sorted (unpaginated) tasks into status lanes.
func (s *Store) Lanes(criteria models.ViewCriteria) Lanes {
	c := criteria.Normalize()
	matched := filterTasks(s.snapshot(), c)
	sortTasks(matched, c.SortBy, c.SortOrder)

	var lanes Lanes
	for _, t := range matched {
		switch LaneOf(t.Status) {
		case models.StatusInProgress:
			lanes.InProgress = append(lanes.InProgress, t)
		case models.StatusDone:
			lanes.Done = append(lanes.Done, t)
		default:
			lanes.NotStarted = append(lanes.NotStarted, t)
		}
	}
	return lanes
}

// Stats summarises the working set for a dashboard.
type Stats struct {
	Total       int
	InProgress  int
	Done        int
	PercentDone int
}

// Stats counts tasks by status across the whole working set.
func (s *Store) Stats() Stats {
	var st Stats
	for _, t := range s.snapshot() {
		st.Total++
		switch {
		case t.Status == models.StatusInProgress:
			st.InProgress++
		case t.Status.IsDone():
			st.Done++
		}
	}
	if st.Total > 0 {
		st.PercentDone = int(math.Round(float64(st.Done) / float64(st.Total) * 100))
	}
	return st
}

func filterTasks(tasks []models.Task, c models.ViewCriteria) []models.Task {
	out := tasks[:0]
	for _, t := range tasks {
		if c.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// sortTasks orders tasks by key and direction. Ties are always broken by id
// ascending so pagination is stable. Tasks without a deadline sort last when
// ordering by deadline, in either direction.
func sortTasks(tasks []models.Task, key models.SortKey, order models.SortOrder) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if key == models.SortByDeadline {
			switch {
			case a.Deadline == nil && b.Deadline != nil:
				return false
			case a.Deadline != nil && b.Deadline == nil:
				return true
			}
		}
		if c := compareBy(a, b, key); c != 0 {
			if order == models.SortDesc {
				return c > 0
			}
			return c < 0
		}
		return a.ID < b.ID
	})
}

func compareBy(a, b models.Task, key models.SortKey) int {
	switch key {
	case models.SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortByDeadline:
		if a.Deadline == nil || b.Deadline == nil {
			return 0
		}
		return a.Deadline.Compare(*b.Deadline)
	case models.SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func sortProjects(projects []models.Project) {
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
