package service

import (
	"taskhub/internal/model"
)

// Authorization policy for mutating operations, kept in one place so the
// permission rules and the transition table stay independently testable.

// canTransitionTask: the actor must be the task's assignee, the owning
// project's owner, or hold an ADMIN/MANAGER role. project may be nil when
// the task has no project or the reference dangles.
func canTransitionTask(actor *model.User, task *model.Task, project *model.Project) bool {
	if actor.Role == model.RoleAdmin || actor.Role == model.RoleManager {
		return true
	}
	if task.AssigneeID != "" && task.AssigneeID == actor.ID {
		return true
	}
	if project != nil && project.OwnerID == actor.ID {
		return true
	}
	return false
}

// canChangeRole: only admins change account roles.
func canChangeRole(actor *model.User) bool {
	return actor.IsAdmin()
}
