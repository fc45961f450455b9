package models_test

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
)

func TestTaskTimerLifecycle(t *testing.T) {
	ctx := setupIntegration(t)

	operator := createTestUser(t, ctx, "timer-operator", models.UserRoleOperator)
	other := createTestUser(t, ctx, "timer-other", models.UserRoleOperator)
	supervisor := createTestUser(t, ctx, "timer-supervisor", models.UserRoleSupervisor)

	order, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerName: "Acme",
		AssigneeId:   operator.ID,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	tasks, err := models.ListTasks(ctx, &models.TaskFilter{OrderId: &order.ID})
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d (%v)", len(tasks), err)
	}
	taskId := tasks[0].ID

	assignee := models.Actor{ID: operator.ID, Role: models.UserRoleOperator}
	stranger := models.Actor{ID: other.ID, Role: models.UserRoleOperator}
	boss := models.Actor{ID: supervisor.ID, Role: models.UserRoleSupervisor}

	// Only the assignee or a supervisor may drive the timer.
	if _, err := models.StartTask(ctx, taskId, stranger); !errors.Is(err, utils.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-assignee, got %v", err)
	}

	task, err := models.StartTask(ctx, taskId, assignee)
	if err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if task.State != models.TaskStateRunning || task.StartedAt == nil {
		t.Fatalf("expected running task with open interval, got %s %v", task.State, task.StartedAt)
	}
	firstStart := *task.StartedAt

	// Starting again is idempotent; the open interval is preserved.
	task, err = models.StartTask(ctx, taskId, assignee)
	if err != nil {
		t.Fatalf("StartTask (again): %v", err)
	}
	if task.StartedAt == nil || !task.StartedAt.Equal(firstStart) {
		t.Fatalf("double start moved the interval: %v != %v", task.StartedAt, firstStart)
	}

	task, err = models.PauseTask(ctx, taskId, assignee)
	if err != nil {
		t.Fatalf("PauseTask: %v", err)
	}
	if task.State != models.TaskStatePending || task.StartedAt != nil {
		t.Fatalf("pause should return to Pending with closed interval, got %s %v", task.State, task.StartedAt)
	}
	paused := task.AccumulatedSecs

	// Pausing an already-paused task changes nothing.
	task, err = models.PauseTask(ctx, taskId, assignee)
	if err != nil {
		t.Fatalf("PauseTask (again): %v", err)
	}
	if task.AccumulatedSecs != paused {
		t.Fatalf("idempotent pause changed the total: %d != %d", task.AccumulatedSecs, paused)
	}

	// Supervisors may finish someone else's task.
	task, err = models.FinishTask(ctx, taskId, boss)
	if err != nil {
		t.Fatalf("FinishTask: %v", err)
	}
	if task.State != models.TaskStateDone || task.FinishedAt == nil || task.StartedAt != nil {
		t.Fatalf("finish left inconsistent task: %s started=%v finished=%v",
			task.State, task.StartedAt, task.FinishedAt)
	}
	if task.AccumulatedSecs < paused {
		t.Fatalf("finish lost folded time: %d < %d", task.AccumulatedSecs, paused)
	}

	// Done is terminal.
	if _, err := models.StartTask(ctx, taskId, assignee); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition restarting done task, got %v", err)
	}
	if _, err := models.FinishTask(ctx, taskId, assignee); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition re-finishing, got %v", err)
	}
	if _, err := models.SetTaskState(ctx, taskId, "Pending", assignee); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition dragging done task, got %v", err)
	}

	// The single task finishing closed the order.
	refreshedOrder, err := models.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if refreshedOrder.State != models.OrderStateDone || refreshedOrder.ClosedAt == nil {
		t.Fatalf("order should be Done after its only task finished, got %s", refreshedOrder.State)
	}
}

func TestSetTaskStateMatchesTimerSemantics(t *testing.T) {
	ctx := setupIntegration(t)

	operator := createTestUser(t, ctx, "board-operator", models.UserRoleOperator)
	order, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerName: "Acme",
		AssigneeId:   operator.ID,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	tasks, _ := models.ListTasks(ctx, &models.TaskFilter{OrderId: &order.ID})
	taskId := tasks[0].ID
	assignee := models.Actor{ID: operator.ID, Role: models.UserRoleOperator}

	task, err := models.SetTaskState(ctx, taskId, "Running", assignee)
	if err != nil {
		t.Fatalf("SetTaskState Running: %v", err)
	}
	if task.StartedAt == nil {
		t.Fatalf("board move to Running did not open the interval")
	}

	time.Sleep(1100 * time.Millisecond)

	task, err = models.SetTaskState(ctx, taskId, "Pending", assignee)
	if err != nil {
		t.Fatalf("SetTaskState Pending: %v", err)
	}
	if task.StartedAt != nil {
		t.Fatalf("board move to Pending left the interval open")
	}
	if task.AccumulatedSecs < 1 {
		t.Fatalf("board pause did not fold elapsed time: %d", task.AccumulatedSecs)
	}

	task, err = models.SetTaskState(ctx, taskId, "Done", assignee)
	if err != nil {
		t.Fatalf("SetTaskState Done: %v", err)
	}
	if task.State != models.TaskStateDone || task.FinishedAt == nil {
		t.Fatalf("board move to Done incomplete: %s %v", task.State, task.FinishedAt)
	}

	refreshedOrder, _ := models.GetOrder(ctx, order.ID)
	if refreshedOrder.State != models.OrderStateDone {
		t.Fatalf("board completion should close the order, got %s", refreshedOrder.State)
	}
}
