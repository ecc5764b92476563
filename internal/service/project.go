package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/pkg/metrics"
)

type ProjectService struct {
	projects ProjectStore
	users    UserStore
	teams    TeamStore
	tasks    TaskStore
	deps     Deps
}

func NewProjectService(projects ProjectStore, users UserStore, teams TeamStore, tasks TaskStore, deps Deps) *ProjectService {
	return &ProjectService{
		projects: projects,
		users:    users,
		teams:    teams,
		tasks:    tasks,
		deps:     deps.withDefaults(),
	}
}

// CreateProject validates the owner and, when given, the team before the
// first persist. New projects start in PLANNING.
func (s *ProjectService) CreateProject(ctx context.Context, name, description, ownerID, teamID string) (*model.Project, error) {
	if _, err := s.users.Get(ctx, ownerID); err != nil {
		return nil, err
	}
	if teamID != "" {
		if _, err := s.teams.Get(ctx, teamID); err != nil {
			return nil, err
		}
	}

	now := s.deps.Clock.Now()
	project := &model.Project{
		Ident:       model.Ident{ID: s.deps.IDs.NewID(), CreatedAt: now, UpdatedAt: now},
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     ownerID,
		Status:      model.ProjectStatusPlanning,
		TeamID:      teamID,
	}
	if err := project.Validate(); err != nil {
		return nil, err
	}

	created, err := s.projects.Add(ctx, project)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEntityCreated("project")
	s.deps.publish(event.ProjectCreated, event.ProjectCreatedPayload{
		ProjectID: created.ID,
		Name:      created.Name,
		OwnerID:   created.OwnerID,
		TeamID:    created.TeamID,
	})
	s.deps.Log.Info("Project created",
		zap.String("project_id", created.ID),
		zap.String("name", created.Name),
	)
	return created, nil
}

func (s *ProjectService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	return s.projects.Get(ctx, id)
}

// AddMilestone appends a milestone owned by the project.
func (s *ProjectService) AddMilestone(ctx context.Context, projectID, title, description string, dueDate time.Time, ownerID string) (*model.Milestone, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.Validationf("milestone title cannot be empty")
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, ownerID); err != nil {
		return nil, err
	}

	milestone := model.Milestone{
		ID:          s.deps.IDs.NewID(),
		ProjectID:   project.ID,
		Title:       strings.TrimSpace(title),
		Description: description,
		DueDate:     dueDate,
		OwnerID:     ownerID,
	}
	project.Milestones = append(project.Milestones, milestone)
	project.UpdatedAt = s.deps.Clock.Now()
	if _, err := s.projects.Update(ctx, project); err != nil {
		return nil, err
	}
	return &milestone, nil
}

// CompleteMilestone flips the completion flag. Completing an already
// completed milestone is a no-op.
func (s *ProjectService) CompleteMilestone(ctx context.Context, projectID, milestoneID string) error {
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return err
	}
	milestone := project.Milestone(milestoneID)
	if milestone == nil {
		return apperr.NotFoundf("milestone %s not found in project %s", milestoneID, projectID)
	}
	if milestone.Completed {
		return nil
	}

	now := s.deps.Clock.Now()
	milestone.Completed = true
	milestone.CompletedAt = &now
	project.UpdatedAt = now
	if _, err := s.projects.Update(ctx, project); err != nil {
		return err
	}

	s.deps.publish(event.MilestoneCompleted, event.MilestoneCompletedPayload{
		ProjectID:   projectID,
		MilestoneID: milestoneID,
	})
	return nil
}

// TransitionStatus moves the project between statuses. PLANNING, ACTIVE and
// ON_HOLD are freely interchangeable; COMPLETED and CANCELLED are terminal.
func (s *ProjectService) TransitionStatus(ctx context.Context, projectID string, newStatus model.ProjectStatus) (*model.Project, error) {
	if !newStatus.Valid() {
		return nil, apperr.Validationf("unknown project status %q", newStatus)
	}
	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Status.CanTransition(newStatus) {
		return nil, apperr.InvalidTransitionf("cannot transition project from %s to %s", project.Status, newStatus)
	}

	project.Status = newStatus
	project.UpdatedAt = s.deps.Clock.Now()
	return s.projects.Update(ctx, project)
}

// DeleteProject removes the project and, with it, every milestone it owns.
// Tasks keep their project reference; readers surface it as not-found.
func (s *ProjectService) DeleteProject(ctx context.Context, id string) error {
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	metrics.IncrementEntityDeleted("project")
	s.deps.Log.Info("Project deleted", zap.String("project_id", id))
	return nil
}

type ProjectStatistics struct {
	TasksTotal          int
	TasksByStatus       map[model.TaskStatus]int
	TasksOverdue        int
	ProgressPercent     int
	MilestonesTotal     int
	MilestonesCompleted int
	MilestonesPercent   int
}

// Statistics is a derived read over the project's tasks and milestones,
// computed on demand and never cached.
func (s *ProjectService) Statistics(ctx context.Context, projectID string) (ProjectStatistics, error) {
	stats := ProjectStatistics{TasksByStatus: make(map[model.TaskStatus]int)}

	project, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return stats, err
	}

	tasks, err := s.tasks.List(ctx, func(t *model.Task) bool { return t.ProjectID == projectID })
	if err != nil {
		return stats, err
	}

	now := s.deps.Clock.Now()
	stats.TasksTotal = len(tasks)
	for _, t := range tasks {
		stats.TasksByStatus[t.Status]++
		if t.IsOverdue(now) {
			stats.TasksOverdue++
		}
	}
	if stats.TasksTotal > 0 {
		stats.ProgressPercent = stats.TasksByStatus[model.TaskStatusDone] * 100 / stats.TasksTotal
	}

	stats.MilestonesTotal = len(project.Milestones)
	for _, m := range project.Milestones {
		if m.Completed {
			stats.MilestonesCompleted++
		}
	}
	if stats.MilestonesTotal > 0 {
		stats.MilestonesPercent = stats.MilestonesCompleted * 100 / stats.MilestonesTotal
	}
	return stats, nil
}

// ListOverdueTasks returns the project's overdue, non-terminal tasks.
func (s *ProjectService) ListOverdueTasks(ctx context.Context, projectID string) ([]*model.Task, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	now := s.deps.Clock.Now()
	return s.tasks.List(ctx, func(t *model.Task) bool {
		return t.ProjectID == projectID && t.IsOverdue(now)
	})
}
