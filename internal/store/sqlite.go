package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := runMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const projectColumns = `id, name, description, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (models.Project, error) {
	var (
		p    models.Project
		desc sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	if desc.Valid {
		p.Description = &desc.String
	}
	return p, nil
}

// CreateProject creates a new project for owner.
func (s *SQLiteStore) CreateProject(ctx context.Context, owner string, project *models.Project) error {
	now := s.now()
	project.CreatedAt = now
	project.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (owner_id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, owner, strings.TrimSpace(project.Name), project.Description, now, now)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	project.ID = id
	project.Name = strings.TrimSpace(project.Name)

	return nil
}

// GetProject retrieves one of owner's projects by ID.
func (s *SQLiteStore) GetProject(ctx context.Context, owner string, id int64) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE id = ? AND owner_id = ?
	`, id, owner)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrProjectNotFound, id)
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListProjects retrieves all of owner's projects ordered by id.
func (s *SQLiteStore) ListProjects(ctx context.Context, owner string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY id ASC
	`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	return projects, rows.Err()
}

// UpdateProject updates the name and description of an existing project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, owner string, project *models.Project) error {
	project.UpdatedAt = s.now()
	project.Name = strings.TrimSpace(project.Name)

	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, description = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, project.Name, project.Description, project.UpdatedAt, project.ID, owner)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return expectRow(result, ErrProjectNotFound, project.ID)
}

// DeleteProject deletes a project and its associated tasks.
func (s *SQLiteStore) DeleteProject(ctx context.Context, owner string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return expectRow(result, ErrProjectNotFound, id)
}

const taskColumns = `id, project_id, title, status, priority, deadline, created_at, updated_at`

func scanTask(row scanner) (models.Task, error) {
	var (
		t        models.Task
		deadline sql.NullTime
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Status, &t.Priority, &deadline, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		t.Deadline = &d
	}
	return t, nil
}

func deadlineArg(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.UTC()
}

// CreateTask creates a task in one of owner's projects.
func (s *SQLiteStore) CreateTask(ctx context.Context, owner string, task *models.Task) error {
	if _, err := s.GetProject(ctx, owner, task.ProjectID); err != nil {
		return err
	}

	now := s.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (project_id, owner_id, title, status, priority, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ProjectID, owner, task.Title, task.Status, task.Priority, deadlineArg(task.Deadline), now, now)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id

	return nil
}

// GetTask retrieves one of owner's tasks by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, owner string, id int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?
	`, id, owner)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// ListTasks returns one page of owner's tasks, optionally limited to a
// project. Filtering, ordering and page clamping match board.Store.Query.
func (s *SQLiteStore) ListTasks(ctx context.Context, owner string, projectID *int64, criteria models.ViewCriteria) (models.TaskPage, error) {
	c := criteria.Normalize()

	if projectID != nil {
		if _, err := s.GetProject(ctx, owner, *projectID); err != nil {
			return models.TaskPage{}, err
		}
	}

	where, args := taskFilter(owner, projectID, c)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return models.TaskPage{}, fmt.Errorf("failed to count tasks: %w", err)
	}

	page := c.Page
	if pages := models.PageCount(total, c.PageSize); page > pages {
		page = pages
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where +
		` ORDER BY ` + taskOrder(c.SortBy, c.SortOrder) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, c.PageSize, (page-1)*c.PageSize)...)
	if err != nil {
		return models.TaskPage{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	items := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return models.TaskPage{}, fmt.Errorf("failed to scan task: %w", err)
		}
		items = append(items, task)
	}
	if err := rows.Err(); err != nil {
		return models.TaskPage{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	return models.TaskPage{Items: items, Page: page, PageSize: c.PageSize, Total: total}, nil
}

func taskFilter(owner string, projectID *int64, c models.ViewCriteria) (string, []any) {
	clauses := []string{"owner_id = ?"}
	args := []any{owner}

	if projectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *projectID)
	}
	if c.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, c.Status)
	}
	if c.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, c.Priority)
	}
	if c.Query != "" {
		clauses = append(clauses, `LOWER(title) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(c.Query))+"%")
	}

	return strings.Join(clauses, " AND "), args
}

func taskOrder(key models.SortKey, order models.SortOrder) string {
	dir := "DESC"
	if order == models.SortAsc {
		dir = "ASC"
	}

	switch key {
	case models.SortByUpdatedAt:
		return "updated_at " + dir + ", id ASC"
	case models.SortByDeadline:
		return "deadline IS NULL, deadline " + dir + ", id ASC"
	case models.SortByPriority:
		return "CASE priority WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 ELSE 0 END " + dir + ", id ASC"
	default:
		return "created_at " + dir + ", id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// UpdateTask writes every field of an existing task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, owner string, task *models.Task) error {
	task.UpdatedAt = s.now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, status = ?, priority = ?, deadline = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, task.Title, task.Status, task.Priority, deadlineArg(task.Deadline), task.UpdatedAt, task.ID, owner)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return expectRow(result, ErrTaskNotFound, task.ID)
}

// DeleteTask deletes a task by ID.
func (s *SQLiteStore) DeleteTask(ctx context.Context, owner string, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(result, ErrTaskNotFound, id)
}

func expectRow(result sql.Result, notFound error, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", notFound, id)
	}
	return nil
}
