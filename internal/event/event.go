// Package event defines the domain events the services publish and the
// publisher they publish through. Events are a side channel: a publish
// failure never fails the operation that produced it.
package event

// Routing keys on the events exchange.
const (
	UserCreated        = "user.created"
	TaskCreated        = "task.created"
	TaskStatusChanged  = "task.status_changed"
	TaskAssigned       = "task.assigned"
	TaskCommentAdded   = "task.comment_added"
	ProjectCreated     = "project.created"
	MilestoneCompleted = "project.milestone_completed"
	TeamMemberAdded    = "team.member_added"
)

// Publisher is satisfied by mq.Publisher.
type Publisher interface {
	Publish(routingKey string, payload any) error
}

// Nop discards all events; used when MQ is disabled and in tests.
type Nop struct{}

func (Nop) Publish(string, any) error { return nil }

type UserCreatedPayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type TaskCreatedPayload struct {
	TaskID     string `json:"task_id"`
	Title      string `json:"title"`
	AssigneeID string `json:"assignee_id,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
	Priority   string `json:"priority"`
}

type TaskStatusChangedPayload struct {
	TaskID  string `json:"task_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	ActorID string `json:"actor_id"`
}

type TaskAssignedPayload struct {
	TaskID     string `json:"task_id"`
	AssigneeID string `json:"assignee_id"`
}

type TaskCommentAddedPayload struct {
	TaskID    string `json:"task_id"`
	CommentID string `json:"comment_id"`
	AuthorID  string `json:"author_id"`
}

type ProjectCreatedPayload struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`
	TeamID    string `json:"team_id,omitempty"`
}

type MilestoneCompletedPayload struct {
	ProjectID   string `json:"project_id"`
	MilestoneID string `json:"milestone_id"`
}

type TeamMemberAddedPayload struct {
	TeamID string `json:"team_id"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}
