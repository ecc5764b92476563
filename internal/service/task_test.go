package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhub/internal/apperr"
	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/service"
)

func TestCreateTask(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleUser)

	task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Title:      "  Ship it  ",
		AssigneeID: alice.ID,
		Tags:       []string{"Release", "release"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Ship it", task.Title)
	assert.Equal(t, model.TaskStatusTodo, task.Status, "initial status is always TODO")
	assert.Equal(t, model.PriorityMedium, task.Priority, "priority defaults to medium")
	assert.Equal(t, []string{"release"}, task.Tags)

	t.Run("missing assignee", func(t *testing.T) {
		_, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "x", AssigneeID: "ghost"})
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("deactivated assignee", func(t *testing.T) {
		bob := e.mustCreateUser(t, "bob", model.RoleUser)
		_, err := e.userSvc.Deactivate(ctx, bob.ID)
		require.NoError(t, err)

		_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "x", AssigneeID: bob.ID})
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "x", ProjectID: "ghost"})
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "   "})
		assert.True(t, apperr.IsValidation(err))
	})
}

// TestUpdateStatusEdges exercises every edge of the transition table from a
// fresh task in the source state, and verifies every unlisted edge is
// rejected.
func TestUpdateStatusEdges(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.mustCreateUser(t, "root_admin", model.RoleAdmin)

	allowed := map[model.TaskStatus][]model.TaskStatus{
		model.TaskStatusTodo:       {model.TaskStatusInProgress, model.TaskStatusCancelled},
		model.TaskStatusInProgress: {model.TaskStatusInReview, model.TaskStatusTodo, model.TaskStatusCancelled},
		model.TaskStatusInReview:   {model.TaskStatusDone, model.TaskStatusInProgress, model.TaskStatusCancelled},
		model.TaskStatusDone:       {},
		model.TaskStatusCancelled:  {},
	}
	all := []model.TaskStatus{
		model.TaskStatusTodo, model.TaskStatusInProgress, model.TaskStatusInReview,
		model.TaskStatusDone, model.TaskStatusCancelled,
	}

	i := 0
	for from, tos := range allowed {
		allowedSet := map[model.TaskStatus]bool{}
		for _, to := range tos {
			allowedSet[to] = true
		}
		for _, to := range all {
			i++
			task := e.seedTask(t, fmt.Sprintf("edge-%d", i), from, admin.ID)

			updated, err := e.taskSvc.UpdateStatus(ctx, task.ID, to, admin.ID)
			if allowedSet[to] {
				require.NoError(t, err, "%s -> %s", from, to)
				assert.Equal(t, to, updated.Status)
			} else {
				assert.True(t, apperr.IsInvalidTransition(err), "%s -> %s got %v", from, to, err)
			}
		}
	}
}

// TestTaskLifecycleScenario is the concrete walk-through: alice the manager
// drives T1 through the machine, including the rejected shortcuts.
func TestTaskLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleManager)

	p1, err := e.projectSvc.CreateProject(ctx, "P1", "", alice.ID, "")
	require.NoError(t, err)

	t1, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Title:      "T1",
		AssigneeID: alice.ID,
		ProjectID:  p1.ID,
	})
	require.NoError(t, err)
	require.Equal(t, model.TaskStatusTodo, t1.Status)

	updated, err := e.taskSvc.UpdateStatus(ctx, t1.ID, model.TaskStatusInProgress, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusInProgress, updated.Status)

	_, err = e.taskSvc.UpdateStatus(ctx, t1.ID, model.TaskStatusDone, alice.ID)
	assert.True(t, apperr.IsInvalidTransition(err), "must pass through review")

	_, err = e.taskSvc.UpdateStatus(ctx, t1.ID, model.TaskStatusInReview, alice.ID)
	require.NoError(t, err)
	final, err := e.taskSvc.UpdateStatus(ctx, t1.ID, model.TaskStatusDone, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, final.Status)

	_, err = e.taskSvc.UpdateStatus(ctx, t1.ID, model.TaskStatusTodo, alice.ID)
	assert.True(t, apperr.IsInvalidTransition(err), "done is terminal")
}

func TestUpdateStatusAuthorization(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	owner := e.mustCreateUser(t, "owner", model.RoleUser)
	assignee := e.mustCreateUser(t, "assignee", model.RoleUser)
	manager := e.mustCreateUser(t, "manager", model.RoleManager)
	bystander := e.mustCreateUser(t, "bystander", model.RoleUser)

	project, err := e.projectSvc.CreateProject(ctx, "P", "", owner.ID, "")
	require.NoError(t, err)

	newTask := func(t *testing.T) *model.Task {
		task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
			Title:      "guarded",
			AssigneeID: assignee.ID,
			ProjectID:  project.ID,
		})
		require.NoError(t, err)
		return task
	}

	t.Run("assignee may transition", func(t *testing.T) {
		task := newTask(t)
		_, err := e.taskSvc.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, assignee.ID)
		assert.NoError(t, err)
	})

	t.Run("project owner may transition", func(t *testing.T) {
		task := newTask(t)
		_, err := e.taskSvc.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, owner.ID)
		assert.NoError(t, err)
	})

	t.Run("manager may transition", func(t *testing.T) {
		task := newTask(t)
		_, err := e.taskSvc.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, manager.ID)
		assert.NoError(t, err)
	})

	t.Run("bystander is denied", func(t *testing.T) {
		task := newTask(t)
		_, err := e.taskSvc.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, bystander.ID)
		assert.True(t, apperr.IsAuthorization(err), "got %v", err)

		// And the task is untouched.
		got, err := e.taskSvc.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TaskStatusTodo, got.Status)
	})
}

func TestAssign(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleUser)
	bob := e.mustCreateUser(t, "bob", model.RoleUser)

	task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "unowned"})
	require.NoError(t, err)

	updated, err := e.taskSvc.Assign(ctx, task.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, updated.AssigneeID)

	t.Run("unknown assignee", func(t *testing.T) {
		_, err := e.taskSvc.Assign(ctx, task.ID, "ghost")
		assert.True(t, apperr.IsValidation(err), "got %v", err)
	})

	t.Run("deactivated assignee", func(t *testing.T) {
		_, err := e.userSvc.Deactivate(ctx, bob.ID)
		require.NoError(t, err)

		_, err = e.taskSvc.Assign(ctx, task.ID, bob.ID)
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("existing assignment survives deactivation", func(t *testing.T) {
		_, err := e.userSvc.Deactivate(ctx, alice.ID)
		require.NoError(t, err)

		got, err := e.taskSvc.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.AssigneeID)
	})
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleUser)

	task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "discussed"})
	require.NoError(t, err)

	first, err := e.taskSvc.AddComment(ctx, task.ID, alice.ID, " first ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Body)
	assert.Equal(t, alice.ID, first.AuthorID)

	e.clock.Advance(time.Minute)
	second, err := e.taskSvc.AddComment(ctx, task.ID, alice.ID, "second")
	require.NoError(t, err)

	got, err := e.taskSvc.GetTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, got.Comments, 2)
	assert.Equal(t, first.ID, got.Comments[0].ID)
	assert.Equal(t, second.ID, got.Comments[1].ID)
	assert.True(t, got.Comments[0].CreatedAt.Before(got.Comments[1].CreatedAt))

	t.Run("empty body", func(t *testing.T) {
		_, err := e.taskSvc.AddComment(ctx, task.ID, alice.ID, "   ")
		assert.True(t, apperr.IsValidation(err))
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := e.taskSvc.AddComment(ctx, "ghost", alice.ID, "hello")
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("missing author", func(t *testing.T) {
		_, err := e.taskSvc.AddComment(ctx, task.ID, "ghost", "hello")
		assert.True(t, apperr.IsNotFound(err))
	})
}

func TestListOverdue(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.mustCreateUser(t, "root_admin", model.RoleAdmin)

	past := e.clock.Now().Add(-time.Hour)
	late, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "late", DueDate: &past})
	require.NoError(t, err)
	_, err = e.taskSvc.UpdateStatus(ctx, late.ID, model.TaskStatusInProgress, admin.ID)
	require.NoError(t, err)

	// Identical due date, but already done: excluded.
	finished, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "finished", DueDate: &past})
	require.NoError(t, err)
	for _, status := range []model.TaskStatus{
		model.TaskStatusInProgress, model.TaskStatusInReview, model.TaskStatusDone,
	} {
		_, err = e.taskSvc.UpdateStatus(ctx, finished.ID, status, admin.ID)
		require.NoError(t, err)
	}

	future := e.clock.Now().Add(time.Hour)
	_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "on time", DueDate: &future})
	require.NoError(t, err)

	overdue, err := e.taskSvc.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)
}

func TestListByStatusAndAssignee(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleUser)

	mine, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "mine", AssigneeID: alice.ID})
	require.NoError(t, err)
	_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "nobody's"})
	require.NoError(t, err)

	byAssignee, err := e.taskSvc.ListByAssignee(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, byAssignee, 1)
	assert.Equal(t, mine.ID, byAssignee[0].ID)

	todo, err := e.taskSvc.ListByStatus(ctx, model.TaskStatusTodo)
	require.NoError(t, err)
	assert.Len(t, todo, 2)

	_, err = e.taskSvc.ListByStatus(ctx, "paused")
	assert.True(t, apperr.IsValidation(err))
}

func TestSearchTasks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleUser)

	_, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Title: "Fix login crash", AssigneeID: alice.ID, Priority: model.PriorityUrgent,
	})
	require.NoError(t, err)
	_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Title: "Crash course docs", Priority: model.PriorityLow,
	})
	require.NoError(t, err)

	found, err := e.taskSvc.SearchTasks(ctx, "crash", service.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = e.taskSvc.SearchTasks(ctx, "crash", service.TaskFilter{AssigneeID: alice.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Fix login crash", found[0].Title)

	found, err = e.taskSvc.SearchTasks(ctx, "", service.TaskFilter{Priority: model.PriorityLow})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestTaskStatistics(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	admin := e.mustCreateUser(t, "root_admin", model.RoleAdmin)

	past := e.clock.Now().Add(-time.Hour)
	a, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{
		Title: "a", AssigneeID: admin.ID, Priority: model.PriorityHigh, DueDate: &past,
	})
	require.NoError(t, err)
	_, err = e.taskSvc.UpdateStatus(ctx, a.ID, model.TaskStatusInProgress, admin.ID)
	require.NoError(t, err)
	_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "b", AssigneeID: admin.ID})
	require.NoError(t, err)
	_, err = e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "other"})
	require.NoError(t, err)

	stats, err := e.taskSvc.Statistics(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[model.TaskStatusInProgress])
	assert.Equal(t, 1, stats.ByStatus[model.TaskStatusTodo])
	assert.Equal(t, 1, stats.ByPriority[model.PriorityHigh])
	assert.Equal(t, 1, stats.Overdue)

	all, err := e.taskSvc.Statistics(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
}

func TestTaskTagsAndDelete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "tagged"})
	require.NoError(t, err)

	updated, err := e.taskSvc.AddTag(ctx, task.ID, "Infra")
	require.NoError(t, err)
	assert.Equal(t, []string{"infra"}, updated.Tags)

	updated, err = e.taskSvc.RemoveTag(ctx, task.ID, "INFRA")
	require.NoError(t, err)
	assert.Empty(t, updated.Tags)

	require.NoError(t, e.taskSvc.DeleteTask(ctx, task.ID))
	assert.True(t, apperr.IsNotFound(e.taskSvc.DeleteTask(ctx, task.ID)))

	_, err = e.taskSvc.GetTask(ctx, task.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTaskEventsPublished(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	alice := e.mustCreateUser(t, "alice", model.RoleManager)

	task, err := e.taskSvc.CreateTask(ctx, service.CreateTaskInput{Title: "observed", AssigneeID: alice.ID})
	require.NoError(t, err)
	_, err = e.taskSvc.UpdateStatus(ctx, task.ID, model.TaskStatusInProgress, alice.ID)
	require.NoError(t, err)
	_, err = e.taskSvc.AddComment(ctx, task.ID, alice.ID, "note")
	require.NoError(t, err)

	assert.Equal(t, []string{
		event.UserCreated,
		event.TaskCreated,
		event.TaskStatusChanged,
		event.TaskCommentAdded,
	}, e.events.keys())
}
