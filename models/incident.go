package models

import (
	"context"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/config"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
)

// Incident is a problem report raised by an operator against one of their
// tasks. It moves Pending -> InReview -> Resolved, forward only.
type Incident struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TaskId        int             `gorm:"index;not null" json:"task_id"`
	ReporterId    int             `gorm:"index;not null" json:"reporter_id"`
	Category      string          `gorm:"size:50;not null" json:"category"`
	Urgency       IncidentUrgency `gorm:"size:20;not null" json:"urgency"`
	Description   string          `gorm:"size:500;not null" json:"description"`
	AttachmentUrl *string         `gorm:"size:255;default:null" json:"attachment_url"`
	State         IncidentState   `gorm:"size:20;not null;default:Pending" json:"state"`
	ReportedAt    time.Time       `gorm:"index;not null" json:"reported_at"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIncident struct {
	TaskId        int     `json:"task_id" binding:"required"`
	Category      string  `json:"category" binding:"required"`
	Urgency       string  `json:"urgency" binding:"required"`
	Description   string  `json:"description" binding:"required"`
	AttachmentUrl *string `json:"attachment_url"`
}

// ReportIncident files an incident. Only the operator assigned to the task
// may report against it.
func ReportIncident(ctx context.Context, input *NewIncident, actor Actor) (*Incident, error) {
	db := config.GetDB()

	if !actor.IsOperator() {
		return nil, utils.Unauthorizedf("incident reporting is an operator action")
	}
	urgency, err := ParseIncidentUrgency(input.Urgency)
	if err != nil {
		return nil, err
	}

	task, err := GetTask(ctx, input.TaskId)
	if err != nil {
		return nil, err
	}
	if task.AssigneeId == nil || *task.AssigneeId != actor.ID {
		return nil, utils.Unauthorizedf("user %d is not assigned to task %d", actor.ID, input.TaskId)
	}

	incident := Incident{
		TaskId:        input.TaskId,
		ReporterId:    actor.ID,
		Category:      input.Category,
		Urgency:       urgency,
		Description:   input.Description,
		AttachmentUrl: input.AttachmentUrl,
		State:         IncidentStatePending,
		ReportedAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&incident).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

// AdvanceIncident moves an incident one step forward in the review workflow.
// Skipping steps or moving backwards is rejected.
func AdvanceIncident(ctx context.Context, id int, target string, actor Actor) (*Incident, error) {
	if !actor.IsSupervisor() {
		return nil, utils.Unauthorizedf("incident review requires the supervisor role")
	}
	state, err := ParseIncidentState(target)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	incident, err := utils.FetchModel[Incident](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("incident %d", id)
	}
	if !canAdvanceIncident(incident.State, state) {
		return nil, utils.IllegalTransitionf(
			"incident %d cannot move from %s to %s", id, incident.State, state)
	}

	// Compare-and-set on the loaded state so two concurrent advances cannot
	// both apply.
	res := db.WithContext(ctx).Model(&Incident{}).
		Where("id = ? AND state = ?", id, incident.State).
		Update("state", state)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.IllegalTransitionf(
			"incident %d moved out of %s before the update", id, incident.State)
	}
	incident.State = state
	return incident, nil
}

// IncidentRow is the review list read shape joined with reporter and task.
// Task and order are nullable: cancellation deletes the order's tasks, but
// the incidents filed against them survive and keep listing.
type IncidentRow struct {
	Incident
	ReporterName string  `json:"reporter_name"`
	TaskTitle    *string `json:"task_title"`
	OrderCode    *string `json:"order_code"`
}

type IncidentFilter struct {
	State   *IncidentState
	Urgency *IncidentUrgency
	TaskId  *int
}

// ListIncidents returns incidents newest first.
func ListIncidents(ctx context.Context, filter *IncidentFilter) ([]*IncidentRow, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).
		Table("incidents n").
		Select(`n.*, u.name AS reporter_name, t.title AS task_title, o.code AS order_code`).
		Joins("LEFT JOIN users u ON u.id = n.reporter_id").
		Joins("LEFT JOIN tasks t ON t.id = n.task_id").
		Joins("LEFT JOIN orders o ON o.id = t.order_id")

	if filter != nil {
		if filter.State != nil {
			query = query.Where("n.state = ?", *filter.State)
		}
		if filter.Urgency != nil {
			query = query.Where("n.urgency = ?", *filter.Urgency)
		}
		if filter.TaskId != nil {
			query = query.Where("n.task_id = ?", *filter.TaskId)
		}
	}

	var rows []*IncidentRow
	if err := query.Order("n.reported_at DESC, n.id DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTaskIncidents lists incidents filed against one task, newest first.
func GetTaskIncidents(ctx context.Context, taskId int) ([]*IncidentRow, error) {
	if err := utils.ValidateResourceId[Task](ctx, taskId); err != nil {
		return nil, utils.NotFoundf("task %d", taskId)
	}
	return ListIncidents(ctx, &IncidentFilter{TaskId: &taskId})
}
