package model

import (
	"slices"
	"strings"
	"time"

	"taskhub/internal/apperr"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are accepted.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}

// taskTransitions is the full status state machine. Terminal states map to
// an empty set.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusInProgress: {TaskStatusInReview, TaskStatusTodo, TaskStatusCancelled},
	TaskStatusInReview:   {TaskStatusDone, TaskStatusInProgress, TaskStatusCancelled},
	TaskStatusDone:       {},
	TaskStatusCancelled:  {},
}

// CanTransition reports whether the edge s -> to is in the transition table.
func (s TaskStatus) CanTransition(to TaskStatus) bool {
	return slices.Contains(taskTransitions[s], to)
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", apperr.Validationf("unknown task status %q", s)
	}
	return st, nil
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

func ParseTaskPriority(s string) (TaskPriority, error) {
	p := TaskPriority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", apperr.Validationf("unknown task priority %q", s)
	}
	return p, nil
}

// Comment is owned by exactly one task and is append-only.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Task struct {
	Ident
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssigneeID  string       `json:"assignee_id,omitempty"`
	ProjectID   string       `json:"project_id,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Comments    []Comment    `json:"comments"`
	Tags        []string     `json:"tags"`
}

// Validate checks the task's own field invariants. Cross-entity references
// (assignee, project) are the service layer's job.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return apperr.Validationf("task title cannot be empty")
	}
	if !t.Status.Valid() {
		return apperr.Validationf("unknown task status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return apperr.Validationf("unknown task priority %q", t.Priority)
	}
	return nil
}

// IsOverdue reports whether the task is past due and not in a terminal state.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status.Terminal() {
		return false
	}
	return t.DueDate.Before(now)
}

// AddTag appends a normalized tag, ignoring duplicates. Reports whether the
// tag set changed.
func (t *Task) AddTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" || slices.Contains(t.Tags, tag) {
		return false
	}
	t.Tags = append(t.Tags, tag)
	return true
}

// RemoveTag removes a tag. Reports whether the tag set changed.
func (t *Task) RemoveTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	i := slices.Index(t.Tags, tag)
	if i < 0 {
		return false
	}
	t.Tags = slices.Delete(t.Tags, i, i+1)
	return true
}

func (t *Task) Clone() *Task {
	cp := *t
	if t.DueDate != nil {
		due := *t.DueDate
		cp.DueDate = &due
	}
	cp.Comments = slices.Clone(t.Comments)
	cp.Tags = slices.Clone(t.Tags)
	return &cp
}
