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

type TaskService struct {
	tasks    TaskStore
	users    UserStore
	projects ProjectStore
	deps     Deps
}

func NewTaskService(tasks TaskStore, users UserStore, projects ProjectStore, deps Deps) *TaskService {
	return &TaskService{
		tasks:    tasks,
		users:    users,
		projects: projects,
		deps:     deps.withDefaults(),
	}
}

type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  string
	ProjectID   string
	Priority    model.TaskPriority
	DueDate     *time.Time
	Tags        []string
}

// CreateTask validates the referenced assignee and project before the first
// persist. The initial status is always TODO.
func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*model.Task, error) {
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}

	if in.AssigneeID != "" {
		assignee, err := s.users.Get(ctx, in.AssigneeID)
		if err != nil {
			return nil, err
		}
		if !assignee.Active {
			return nil, apperr.Validationf("assignee %s is deactivated", in.AssigneeID)
		}
	}
	if in.ProjectID != "" {
		if _, err := s.projects.Get(ctx, in.ProjectID); err != nil {
			return nil, err
		}
	}

	now := s.deps.Clock.Now()
	task := &model.Task{
		Ident:       model.Ident{ID: s.deps.IDs.NewID(), CreatedAt: now, UpdatedAt: now},
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      model.TaskStatusTodo,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		ProjectID:   in.ProjectID,
		DueDate:     in.DueDate,
	}
	for _, tag := range in.Tags {
		task.AddTag(tag)
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	created, err := s.tasks.Add(ctx, task)
	if err != nil {
		return nil, err
	}

	metrics.IncrementEntityCreated("task")
	s.deps.publish(event.TaskCreated, event.TaskCreatedPayload{
		TaskID:     created.ID,
		Title:      created.Title,
		AssigneeID: created.AssigneeID,
		ProjectID:  created.ProjectID,
		Priority:   string(created.Priority),
	})
	s.deps.Log.Info("Task created",
		zap.String("task_id", created.ID),
		zap.String("title", created.Title),
	)
	return created, nil
}

func (s *TaskService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return s.tasks.Get(ctx, id)
}

// UpdateStatus drives the task state machine. The edge must be in the
// transition table and the actor must pass the authorization policy; the
// accepted transition is persisted as a single atomic update.
func (s *TaskService) UpdateStatus(ctx context.Context, taskID string, newStatus model.TaskStatus, actorID string) (*model.Task, error) {
	if !newStatus.Valid() {
		return nil, apperr.Validationf("unknown task status %q", newStatus)
	}
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !task.Status.CanTransition(newStatus) {
		metrics.IncrementTaskTransitionRejected(string(task.Status), string(newStatus))
		return nil, apperr.InvalidTransitionf("cannot transition task from %s to %s", task.Status, newStatus)
	}

	actor, err := s.users.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	var project *model.Project
	if task.ProjectID != "" {
		// A dangling project reference is tolerated here; the policy then
		// sees no project owner.
		if p, err := s.projects.Get(ctx, task.ProjectID); err == nil {
			project = p
		} else if !apperr.IsNotFound(err) {
			return nil, err
		}
	}
	if !canTransitionTask(actor, task, project) {
		metrics.IncrementAuthorizationDenied("task.update_status")
		return nil, apperr.Authorizationf("user %s may not transition task %s", actorID, taskID)
	}

	from := task.Status
	task.Status = newStatus
	task.UpdatedAt = s.deps.Clock.Now()
	updated, err := s.tasks.Update(ctx, task)
	if err != nil {
		return nil, err
	}

	metrics.IncrementTaskTransition(string(from), string(newStatus))
	s.deps.publish(event.TaskStatusChanged, event.TaskStatusChangedPayload{
		TaskID:  taskID,
		From:    string(from),
		To:      string(newStatus),
		ActorID: actorID,
	})
	s.deps.Log.Info("Task status changed",
		zap.String("task_id", taskID),
		zap.String("from", string(from)),
		zap.String("to", string(newStatus)),
	)
	return updated, nil
}

// Assign re-validates that the user exists and is active before assignment.
func (s *TaskService) Assign(ctx context.Context, taskID, userID string) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	assignee, err := s.users.Get(ctx, userID)
	if apperr.IsNotFound(err) {
		return nil, apperr.Validationf("assignee %s does not exist", userID)
	}
	if err != nil {
		return nil, err
	}
	if !assignee.Active {
		return nil, apperr.Validationf("assignee %s is deactivated", userID)
	}

	task.AssigneeID = userID
	task.UpdatedAt = s.deps.Clock.Now()
	updated, err := s.tasks.Update(ctx, task)
	if err != nil {
		return nil, err
	}

	s.deps.publish(event.TaskAssigned, event.TaskAssignedPayload{
		TaskID:     taskID,
		AssigneeID: userID,
	})
	return updated, nil
}

// AddComment appends to the task's comment sequence. Comments are
// append-only.
func (s *TaskService) AddComment(ctx context.Context, taskID, authorID, body string) (*model.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperr.Validationf("comment body cannot be empty")
	}
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, authorID); err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        s.deps.IDs.NewID(),
		AuthorID:  authorID,
		Body:      strings.TrimSpace(body),
		CreatedAt: s.deps.Clock.Now(),
	}
	task.Comments = append(task.Comments, comment)
	task.UpdatedAt = comment.CreatedAt
	if _, err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.deps.publish(event.TaskCommentAdded, event.TaskCommentAddedPayload{
		TaskID:    taskID,
		CommentID: comment.ID,
		AuthorID:  authorID,
	})
	return &comment, nil
}

func (s *TaskService) AddTag(ctx context.Context, taskID, tag string) (*model.Task, error) {
	return s.mutateTags(ctx, taskID, func(t *model.Task) bool { return t.AddTag(tag) })
}

func (s *TaskService) RemoveTag(ctx context.Context, taskID, tag string) (*model.Task, error) {
	return s.mutateTags(ctx, taskID, func(t *model.Task) bool { return t.RemoveTag(tag) })
}

func (s *TaskService) mutateTags(ctx context.Context, taskID string, mutate func(*model.Task) bool) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !mutate(task) {
		return task, nil
	}
	task.UpdatedAt = s.deps.Clock.Now()
	return s.tasks.Update(ctx, task)
}

// DeleteTask removes the task; its comments go with it.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}
	metrics.IncrementEntityDeleted("task")
	s.deps.Log.Info("Task deleted", zap.String("task_id", id))
	return nil
}

func (s *TaskService) ListByStatus(ctx context.Context, status model.TaskStatus) ([]*model.Task, error) {
	if !status.Valid() {
		return nil, apperr.Validationf("unknown task status %q", status)
	}
	return s.tasks.List(ctx, func(t *model.Task) bool { return t.Status == status })
}

func (s *TaskService) ListByAssignee(ctx context.Context, userID string) ([]*model.Task, error) {
	return s.tasks.List(ctx, func(t *model.Task) bool { return t.AssigneeID == userID })
}

func (s *TaskService) ListByProject(ctx context.Context, projectID string) ([]*model.Task, error) {
	return s.tasks.List(ctx, func(t *model.Task) bool { return t.ProjectID == projectID })
}

// ListOverdue returns tasks past their due date that are not in a terminal
// status.
func (s *TaskService) ListOverdue(ctx context.Context) ([]*model.Task, error) {
	now := s.deps.Clock.Now()
	return s.tasks.List(ctx, func(t *model.Task) bool { return t.IsOverdue(now) })
}

// TaskFilter narrows a search; zero values match everything.
type TaskFilter struct {
	Status     model.TaskStatus
	Priority   model.TaskPriority
	AssigneeID string
}

// SearchTasks matches the query against title and description, then applies
// the filter.
func (s *TaskService) SearchTasks(ctx context.Context, query string, filter TaskFilter) ([]*model.Task, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return s.tasks.List(ctx, func(t *model.Task) bool {
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
		if filter.Status != "" && t.Status != filter.Status {
			return false
		}
		if filter.Priority != "" && t.Priority != filter.Priority {
			return false
		}
		if filter.AssigneeID != "" && t.AssigneeID != filter.AssigneeID {
			return false
		}
		return true
	})
}

type TaskStatistics struct {
	Total      int
	ByStatus   map[model.TaskStatus]int
	ByPriority map[model.TaskPriority]int
	Overdue    int
}

// Statistics is a derived read, computed on demand and never cached. An
// empty assigneeID covers all tasks.
func (s *TaskService) Statistics(ctx context.Context, assigneeID string) (TaskStatistics, error) {
	stats := TaskStatistics{
		ByStatus:   make(map[model.TaskStatus]int),
		ByPriority: make(map[model.TaskPriority]int),
	}
	tasks, err := s.tasks.List(ctx, func(t *model.Task) bool {
		return assigneeID == "" || t.AssigneeID == assigneeID
	})
	if err != nil {
		return stats, err
	}

	now := s.deps.Clock.Now()
	stats.Total = len(tasks)
	for _, t := range tasks {
		stats.ByStatus[t.Status]++
		stats.ByPriority[t.Priority]++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats, nil
}
