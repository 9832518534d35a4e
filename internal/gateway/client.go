// Package gateway is the JSON-over-HTTP client for the tracker API.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/nbinmostafa/project-management-tracker/internal/models"
)

// Client talks to the tracker API. Every failure is returned as *APIError.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenProvider
	log     *log.Entry
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenProvider sets the source of bearer tokens.
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) { c.tokens = tp }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l.WithField("component", "gateway") }
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// http.Client, so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.StandardLogger().WithField("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// ListProjects returns every project visible to the caller.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject returns one project. A missing project is a 404 APIError.
func (c *Client) GetProject(ctx context.Context, id int64) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d", id), nil, &project)
	return project, err
}

func (c *Client) CreateProject(ctx context.Context, in models.ProjectInput) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodPost, "/projects", in, &project)
	return project, err
}

func (c *Client) UpdateProject(ctx context.Context, id int64, in models.ProjectInput) (models.Project, error) {
	var project models.Project
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/projects/%d", id), in, &project)
	return project, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/projects/%d", id), nil, nil)
}

// ListTasks returns one page of tasks. A nil projectID lists tasks across all
// of the caller's projects.
func (c *Client) ListTasks(ctx context.Context, projectID *int64, criteria models.ViewCriteria) (models.TaskPage, error) {
	path := "/tasks"
	if projectID != nil {
		path = fmt.Sprintf("/projects/%d/tasks", *projectID)
	}
	if q := criteria.Values().Encode(); q != "" {
		path += "?" + q
	}

	var listing taskListing
	if err := c.do(ctx, http.MethodGet, path, nil, &listing); err != nil {
		return models.TaskPage{}, err
	}
	return listing.page(criteria), nil
}

func (c *Client) CreateTask(ctx context.Context, projectID int64, in models.TaskInput) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%d/tasks", projectID), in, &task)
	return task, err
}

// UpdateTask sends only the fields set in patch and returns the updated task.
func (c *Client) UpdateTask(ctx context.Context, id int64, patch models.TaskPatch) (models.Task, error) {
	var task models.Task
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d", id), patch, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tasks/%d", id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("failed to encode request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("failed to build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		token, ok, err := c.tokens.Token(ctx)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("failed to obtain token: %v", err)}
		}
		if ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(log.Fields{"method": method, "path": path}).WithError(err).Debug("request failed")
		return networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkError(err)
	}

	c.log.WithFields(log.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp.StatusCode, data)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

// taskListing accepts both the paginated envelope and a bare array of tasks.
type taskListing struct {
	Items    []models.Task
	Page     int
	PageSize int
	Total    *int
}

func (l *taskListing) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return sonic.ConfigStd.Unmarshal(trimmed, &l.Items)
	}
	var envelope struct {
		Items    []models.Task `json:"items"`
		Page     int           `json:"page"`
		PageSize int           `json:"page_size"`
		Total    *int          `json:"total"`
	}
	if err := sonic.ConfigStd.Unmarshal(data, &envelope); err != nil {
		return err
	}
	l.Items, l.Page, l.PageSize, l.Total = envelope.Items, envelope.Page, envelope.PageSize, envelope.Total
	return nil
}

func (l taskListing) page(criteria models.ViewCriteria) models.TaskPage {
	p := models.TaskPage{Items: l.Items, Page: l.Page, PageSize: l.PageSize, Total: len(l.Items)}
	if l.Items == nil {
		p.Items = []models.Task{}
	}
	if l.Total != nil {
		p.Total = *l.Total
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = criteria.Normalize().PageSize
		if l.Total == nil && len(l.Items) > 0 {
			p.PageSize = len(l.Items)
		}
	}
	return p
}
