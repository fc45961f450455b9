package models

// Actor is the authenticated principal on whose behalf an operation runs.
// It is always passed in explicitly; the core never resolves identity itself.
type Actor struct {
	ID   int
	Role UserRole
}

func (a Actor) IsSupervisor() bool {
	return a.Role == UserRoleSupervisor || a.Role == UserRoleAdmin
}

func (a Actor) IsOperator() bool {
	return a.Role == UserRoleOperator
}

// canManageTask reports whether the actor may drive a task's timer:
// the task's assignee, or anyone with the supervisor capability.
func (a Actor) canManageTask(task *Task) bool {
	if a.IsSupervisor() {
		return true
	}
	return task.AssigneeId != nil && *task.AssigneeId == a.ID
}
