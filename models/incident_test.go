package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
)

func TestIncidentReportingAndReviewWorkflow(t *testing.T) {
	ctx := setupIntegration(t)

	operator := createTestUser(t, ctx, "inc-operator", models.UserRoleOperator)
	other := createTestUser(t, ctx, "inc-other", models.UserRoleOperator)
	supervisor := createTestUser(t, ctx, "inc-supervisor", models.UserRoleSupervisor)

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
	stranger := models.Actor{ID: other.ID, Role: models.UserRoleOperator}
	boss := models.Actor{ID: supervisor.ID, Role: models.UserRoleSupervisor}

	// Only the assigned operator may report against the task.
	if _, err := models.ReportIncident(ctx, &models.NewIncident{
		TaskId:      taskId,
		Category:    "Machine",
		Urgency:     "High",
		Description: "machine jam",
	}, stranger); !errors.Is(err, utils.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-assignee, got %v", err)
	}
	if _, err := models.ReportIncident(ctx, &models.NewIncident{
		TaskId:      taskId,
		Category:    "Machine",
		Urgency:     "High",
		Description: "machine jam",
	}, boss); !errors.Is(err, utils.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for supervisor reporter, got %v", err)
	}

	incident, err := models.ReportIncident(ctx, &models.NewIncident{
		TaskId:      taskId,
		Category:    "Machine",
		Urgency:     "High",
		Description: "machine jam",
	}, assignee)
	if err != nil {
		t.Fatalf("ReportIncident: %v", err)
	}
	if incident.State != models.IncidentStatePending {
		t.Fatalf("new incident should be Pending, got %s", incident.State)
	}

	// Review moves forward one step at a time, supervisor only.
	if _, err := models.AdvanceIncident(ctx, incident.ID, "InReview", assignee); !errors.Is(err, utils.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for operator review, got %v", err)
	}
	if _, err := models.AdvanceIncident(ctx, incident.ID, "Resolved", boss); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition skipping InReview, got %v", err)
	}

	incident, err = models.AdvanceIncident(ctx, incident.ID, "InReview", boss)
	if err != nil {
		t.Fatalf("AdvanceIncident InReview: %v", err)
	}
	incident, err = models.AdvanceIncident(ctx, incident.ID, "Resolved", boss)
	if err != nil {
		t.Fatalf("AdvanceIncident Resolved: %v", err)
	}
	if incident.State != models.IncidentStateResolved {
		t.Fatalf("expected Resolved, got %s", incident.State)
	}

	// Resolved is terminal; moving backwards is rejected.
	if _, err := models.AdvanceIncident(ctx, incident.ID, "Pending", boss); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition moving backwards, got %v", err)
	}
	// Re-applying the current state is rejected too, so a duplicate advance
	// never passes.
	if _, err := models.AdvanceIncident(ctx, incident.ID, "Resolved", boss); !errors.Is(err, utils.ErrIllegalTransition) {
		t.Fatalf("expected ErrIllegalTransition re-resolving, got %v", err)
	}

	rows, err := models.GetTaskIncidents(ctx, taskId)
	if err != nil {
		t.Fatalf("GetTaskIncidents: %v", err)
	}
	if len(rows) != 1 || rows[0].ReporterName != operator.Name {
		t.Fatalf("incident listing incomplete: %+v", rows)
	}
}

// Cancelling an order deletes its tasks, but the incidents filed against
// them stay on record and keep appearing in listings.
func TestIncidentsSurviveOrderCancellation(t *testing.T) {
	ctx := setupIntegration(t)

	operator := createTestUser(t, ctx, "surv-operator", models.UserRoleOperator)
	supervisor := createTestUser(t, ctx, "surv-supervisor", models.UserRoleSupervisor)
	assignee := models.Actor{ID: operator.ID, Role: models.UserRoleOperator}
	boss := models.Actor{ID: supervisor.ID, Role: models.UserRoleSupervisor}

	order, err := models.CreateOrder(ctx, &models.NewOrder{
		CustomerName: "Acme",
		AssigneeId:   operator.ID,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	tasks, _ := models.ListTasks(ctx, &models.TaskFilter{OrderId: &order.ID})
	taskId := tasks[0].ID

	incident, err := models.ReportIncident(ctx, &models.NewIncident{
		TaskId:      taskId,
		Category:    "Machine",
		Urgency:     "High",
		Description: "machine jam",
	}, assignee)
	if err != nil {
		t.Fatalf("ReportIncident: %v", err)
	}

	if _, err := models.UpdateOrderStatus(ctx, order.ID, "Cancelled", boss); err != nil {
		t.Fatalf("UpdateOrderStatus Cancelled: %v", err)
	}

	rows, err := models.ListIncidents(ctx, &models.IncidentFilter{TaskId: &taskId})
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != incident.ID {
		t.Fatalf("incident vanished after cancellation: %+v", rows)
	}
	if rows[0].TaskTitle != nil || rows[0].OrderCode != nil {
		t.Fatalf("deleted task should list with null task/order, got %+v", rows[0])
	}
	if rows[0].ReporterName != operator.Name {
		t.Fatalf("reporter name missing after cancellation: %+v", rows[0])
	}
}
