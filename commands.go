package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
	"github.com/nbinmostafa/project-management-tracker/internal/prefs"
	"github.com/nbinmostafa/project-management-tracker/internal/session"
)

func (a *App) openSession(ctx context.Context) (*session.Session, error) {
	client, res, err := a.remote()
	if err != nil {
		return nil, err
	}
	return session.New(ctx, session.Deps{Remote: client, Resolver: res, Logger: a.log}), nil
}

func (a *App) openPrefs() (*prefs.Store, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.PrefsPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return prefs.Open(a.cfg.PrefsPath)
}

func newBoardCmd(app *App) *cobra.Command {
	var (
		projectID int64
		criteria  models.ViewCriteria
		status    string
		priority  string
		sortBy    string
		order     string
		mode      string
	)

	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show tasks as a board or a list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			criteria.Status = models.Status(status)
			criteria.Priority = models.Priority(priority)
			criteria.SortBy = models.SortKey(sortBy)
			criteria.SortOrder = models.SortOrder(order)

			viewMode, err := app.resolveViewMode(ctx, mode)
			if err != nil {
				return err
			}

			s, err := app.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var scope *int64
			if projectID > 0 {
				scope = &projectID
			}
			if err := s.Load(ctx, scope); err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}

			out := cmd.OutOrStdout()
			if p, ok := s.Project(); ok {
				fmt.Fprintf(out, "%s\n\n", p.Name)
			}

			if viewMode == models.ViewModeBoard {
				printBoard(out, s.Cards(ctx, criteria))
			} else {
				printList(ctx, out, s, criteria)
			}

			st := s.Stats()
			fmt.Fprintf(out, "\n%d tasks, %d in progress, %d done (%d%% complete)\n", st.Total, st.InProgress, st.Done, st.PercentDone)
			return nil
		},
	}

	cmd.Flags().Int64Var(&projectID, "project", 0, "Only show tasks of this project")
	cmd.Flags().StringVarP(&criteria.Query, "query", "q", "", "Case-insensitive title search")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (not_started|in_progress|done)")
	cmd.Flags().StringVar(&priority, "priority", "", "Filter by priority (low|medium|high)")
	cmd.Flags().StringVar(&sortBy, "sort-by", string(models.SortByCreatedAt), "Sort key (created_at|updated_at|deadline|priority)")
	cmd.Flags().StringVar(&order, "order", string(models.SortDesc), "Sort order (asc|desc)")
	cmd.Flags().IntVar(&criteria.Page, "page", 1, "Page of the list view")
	cmd.Flags().IntVar(&criteria.PageSize, "page-size", models.DefaultPageSize, "Page size of the list view")
	cmd.Flags().StringVar(&mode, "view", "", "Override the saved view mode (list|board)")

	return cmd
}

func (a *App) resolveViewMode(ctx context.Context, override string) (models.ViewMode, error) {
	if override != "" {
		m, ok := models.ParseViewMode(override)
		if !ok {
			return "", fmt.Errorf("unknown view mode %q", override)
		}
		return m, nil
	}

	p, err := a.openPrefs()
	if err != nil {
		return "", err
	}
	defer p.Close()
	return p.ViewMode(ctx)
}

func printBoard(out io.Writer, lanes []session.Lane) {
	for i, lane := range lanes {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s (%d) ==\n", lane.Label, len(lane.Cards))
		for _, c := range lane.Cards {
			line := fmt.Sprintf("  #%d %s [%s] %s", c.ID, c.Title, c.Priority, c.ProjectName)
			if !c.Status.Valid() {
				line += " (status: " + string(c.Status) + ")"
			}
			if c.Overdue {
				line += " OVERDUE"
			}
			fmt.Fprintln(out, line)
		}
	}
}

func printList(ctx context.Context, out io.Writer, s *session.Session, criteria models.ViewCriteria) {
	page := s.List(criteria)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDEADLINE\tPROJECT")
	for _, t := range page.Items {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status.Label(), t.Priority, deadline, s.ProjectName(ctx, t.ProjectID))
	}
	w.Flush()
	fmt.Fprintf(out, "page %d of %d\n", page.Page, page.TotalPages())
}

func newMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <task-id> <status>",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			taskID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid task id %q", args[0])
			}
			status := models.Status(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown status %q", args[1])
			}

			s, err := app.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Load(ctx, nil); err != nil {
				return fmt.Errorf("failed to load tasks: %w", err)
			}
			before, ok := s.Task(taskID)
			if !ok {
				return fmt.Errorf("task %d not found", taskID)
			}
			if before.Status == status {
				fmt.Fprintf(cmd.OutOrStdout(), "#%d is already %s\n", taskID, status.Label())
				return nil
			}

			if err := s.MoveTask(taskID, status).Wait(ctx); err != nil {
				return fmt.Errorf("failed to move task: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s: %s -> %s\n", taskID, before.Title, before.Status.Label(), status.Label())
			return nil
		},
	}
}

func newViewModeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "view-mode [list|board]",
		Short: "Show or set the saved view mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			p, err := app.openPrefs()
			if err != nil {
				return err
			}
			defer p.Close()

			if len(args) == 1 {
				mode, ok := models.ParseViewMode(args[0])
				if !ok {
					return fmt.Errorf("unknown view mode %q", args[0])
				}
				if err := p.SetViewMode(ctx, mode); err != nil {
					return err
				}
			}

			mode, err := p.ViewMode(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), mode)
			return nil
		},
	}
}
