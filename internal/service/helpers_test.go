package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/service"
)

// fakeClock is a settable Clock for deterministic timestamps.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// seqIDs mints predictable ids: id-1, id-2, ...
type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

// fakeHasher is a transparent PasswordHasher so tests stay fast.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (fakeHasher) Verify(password, hash string) bool    { return hash == "hashed:"+password }

type publishedEvent struct {
	Key     string
	Payload any
}

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *capturingPublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Key: routingKey, Payload: payload})
	return nil
}

func (p *capturingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, len(p.events))
	for i, e := range p.events {
		keys[i] = e.Key
	}
	return keys
}

// env wires all four services over fresh in-memory stores.
type env struct {
	users    service.UserStore
	tasks    service.TaskStore
	projects service.ProjectStore
	teams    service.TeamStore

	userSvc    *service.UserService
	taskSvc    *service.TaskService
	projectSvc *service.ProjectService
	teamSvc    *service.TeamService

	clock  *fakeClock
	events *capturingPublisher
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		users:    repository.NewMemoryStore[*model.User]("user"),
		tasks:    repository.NewMemoryStore[*model.Task]("task"),
		projects: repository.NewMemoryStore[*model.Project]("project"),
		teams:    repository.NewMemoryStore[*model.Team]("team"),
		clock:    newFakeClock(),
		events:   &capturingPublisher{},
	}
	deps := service.Deps{
		Clock:  e.clock,
		IDs:    &seqIDs{},
		Events: e.events,
	}
	e.userSvc = service.NewUserService(e.users, fakeHasher{}, deps)
	e.taskSvc = service.NewTaskService(e.tasks, e.users, e.projects, deps)
	e.projectSvc = service.NewProjectService(e.projects, e.users, e.teams, e.tasks, deps)
	e.teamSvc = service.NewTeamService(e.teams, e.users, deps)
	return e
}

func (e *env) mustCreateUser(t *testing.T, username string, role model.Role) *model.User {
	t.Helper()
	user, err := e.userSvc.CreateUser(context.Background(), username, username+"@example.com", "secret123", role)
	require.NoError(t, err)
	return user
}

// seedTask plants a task directly in the store, bypassing the service, so
// tests can start from an arbitrary status.
func (e *env) seedTask(t *testing.T, id string, status model.TaskStatus, assigneeID string) *model.Task {
	t.Helper()
	now := e.clock.Now()
	task := &model.Task{
		Ident:      model.Ident{ID: id, CreatedAt: now, UpdatedAt: now},
		Title:      "seeded " + id,
		Status:     status,
		Priority:   model.PriorityMedium,
		AssigneeID: assigneeID,
	}
	added, err := e.tasks.Add(context.Background(), task)
	require.NoError(t, err)
	return added
}
