package models

import (
	"strings"
	"time"
)

// Project groups tasks. A project owns zero or more tasks.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	MaxProjectNameLength        = 120
	MaxProjectDescriptionLength = 2000
)

// Validate checks that the project has valid field values.
func (p *Project) Validate() error {
	return ProjectInput{Name: p.Name, Description: p.Description}.Validate()
}

// ProjectInput is the payload for creating or updating a project.
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Validate checks that the name is present and both fields fit their limits.
func (in ProjectInput) Validate() error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if len(name) > MaxProjectNameLength {
		return ValidationError{Field: "name", Message: "name must be 120 characters or fewer"}
	}
	if in.Description != nil && len(*in.Description) > MaxProjectDescriptionLength {
		return ValidationError{Field: "description", Message: "description must be 2000 characters or fewer"}
	}
	return nil
}
