package model

import (
	"strings"
	"time"

	"taskhub/internal/apperr"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusOnHold,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

func (s ProjectStatus) Terminal() bool {
	return s == ProjectStatusCompleted || s == ProjectStatusCancelled
}

// CanTransition reports whether the project may move to the given status.
// Non-terminal statuses are freely interchangeable; terminal statuses accept
// nothing further.
func (s ProjectStatus) CanTransition(to ProjectStatus) bool {
	return !s.Terminal() && to.Valid() && to != s
}

func ParseProjectStatus(s string) (ProjectStatus, error) {
	st := ProjectStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", apperr.Validationf("unknown project status %q", s)
	}
	return st, nil
}

// Milestone is owned exclusively by its project and lives inside the project
// document, so project deletion cascades for free. ProjectID always equals
// the owning project's id.
type Milestone struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     time.Time  `json:"due_date"`
	OwnerID     string     `json:"owner_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Project struct {
	Ident
	Name        string        `json:"name"`
	Description string        `json:"description"`
	OwnerID     string        `json:"owner_id"`
	Status      ProjectStatus `json:"status"`
	TeamID      string        `json:"team_id,omitempty"`
	Milestones  []Milestone   `json:"milestones"`
}

func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validationf("project name cannot be empty")
	}
	if p.OwnerID == "" {
		return apperr.Validationf("project owner is required")
	}
	if !p.Status.Valid() {
		return apperr.Validationf("unknown project status %q", p.Status)
	}
	for i := range p.Milestones {
		if p.Milestones[i].ProjectID != p.ID {
			return apperr.Validationf("milestone %s does not belong to project %s", p.Milestones[i].ID, p.ID)
		}
	}
	return nil
}

// Milestone returns a pointer into the project's milestone slice, or nil.
func (p *Project) Milestone(id string) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}

func (p *Project) Clone() *Project {
	cp := *p
	cp.Milestones = make([]Milestone, len(p.Milestones))
	for i, m := range p.Milestones {
		if m.CompletedAt != nil {
			at := *m.CompletedAt
			m.CompletedAt = &at
		}
		cp.Milestones[i] = m
	}
	return &cp
}
