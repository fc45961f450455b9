package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/config"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Order is a customer production order. State is derived from its tasks
// (closed when all are done) except for manual closure and cancellation.
type Order struct {
	ID             int        `gorm:"primary_key" json:"id"`
	Code           string     `gorm:"size:36;uniqueIndex;not null" json:"code"`
	CustomerName   string     `gorm:"size:150;not null" json:"customer_name"`
	CustomerId     *int       `gorm:"index;default:null" json:"customer_id"`
	Area           *string    `gorm:"size:50;default:null" json:"area"`
	Priority       string     `gorm:"size:20;not null;default:Normal" json:"priority"`
	Description    *string    `gorm:"size:500;default:null" json:"description"`
	State          OrderState `gorm:"size:20;not null;default:InProgress" json:"state"`
	CommitmentDate *time.Time `gorm:"default:null" json:"commitment_date"`
	ClosedAt       *time.Time `gorm:"default:null" json:"closed_at"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewOrder struct {
	CustomerName   string     `json:"customer_name" binding:"required"`
	CustomerId     *int       `json:"customer_id"`
	Area           *string    `json:"area"`
	Priority       string     `json:"priority" binding:"omitempty,priority"`
	Description    *string    `json:"description"`
	CommitmentDate *time.Time `json:"commitment_date"`
	AssigneeId     int        `json:"assignee_id" binding:"required"`
	TaskTitle      *string    `json:"task_title"`
}

// validateAssignee accepts only active operators as task assignees.
func validateAssignee(ctx context.Context, userId int) error {
	count, err := utils.ResourceCountWhere[User](ctx,
		"id = ? AND role = ? AND is_active = true", userId, UserRoleOperator)
	if err != nil {
		return err
	}
	if count == 0 {
		return utils.InvalidArgumentf("assignee %d must be an active operator", userId)
	}
	return nil
}

// CreateOrder opens an order together with its first task in one
// transaction, so an order never exists without at least one task.
func CreateOrder(ctx context.Context, input *NewOrder) (*Order, error) {
	db := config.GetDB()

	if err := validateAssignee(ctx, input.AssigneeId); err != nil {
		return nil, err
	}
	priority := input.Priority
	if priority == "" {
		priority = "Normal"
	}

	order := Order{
		Code:           uuid.NewString(),
		CustomerName:   input.CustomerName,
		CustomerId:     input.CustomerId,
		Area:           input.Area,
		Priority:       priority,
		Description:    input.Description,
		State:          OrderStateInProgress,
		CommitmentDate: input.CommitmentDate,
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	title := fmt.Sprintf("Order %d", order.ID)
	if input.TaskTitle != nil && *input.TaskTitle != "" {
		title = *input.TaskTitle
	}
	task := Task{
		OrderId:     order.ID,
		Title:       title,
		Description: input.Description,
		State:       TaskStatePending,
		AssigneeId:  &input.AssigneeId,
	}
	if err := tx.WithContext(ctx).Create(&task).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// lockOrder loads an order FOR UPDATE inside tx.
func lockOrder(ctx context.Context, tx *gorm.DB, id int) (*Order, error) {
	var order Order
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("order %d", id)
		}
		return nil, classifyDBError(err)
	}
	return &order, nil
}

// syncOrderOnTaskDone closes the order when its last open task just turned
// done. It runs inside the task-finishing transaction so the task completion
// and the order closure commit or roll back together. The order row is
// locked before counting: two transactions finishing the last two tasks
// would otherwise each see the other's uncommitted task as still open and
// both skip the close.
func syncOrderOnTaskDone(ctx context.Context, tx *gorm.DB, orderId int, now time.Time) error {
	order, err := lockOrder(ctx, tx, orderId)
	if err != nil {
		return err
	}
	if order.State != OrderStateInProgress {
		return nil
	}

	var open int64
	if err := tx.WithContext(ctx).Model(&Task{}).
		Where("order_id = ? AND state <> ?", orderId, TaskStateDone).
		Count(&open).Error; err != nil {
		return classifyDBError(err)
	}
	if open > 0 {
		return nil
	}

	if err := tx.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"State":    OrderStateDone,
		"ClosedAt": now,
	}).Error; err != nil {
		return classifyDBError(err)
	}
	return nil
}

// UpdateOrderStatus is the manual closure path, supervisor only. Closing an
// order forces every open task done with its time folded; cancelling deletes
// the order's tasks outright.
func UpdateOrderStatus(ctx context.Context, id int, target string, actor Actor) (*Order, error) {
	if !actor.IsSupervisor() {
		return nil, utils.Unauthorizedf("order status changes require the supervisor role")
	}
	state, err := ParseOrderState(target)
	if err != nil {
		return nil, err
	}
	if state == OrderStateInProgress {
		return nil, utils.InvalidArgumentf("orders can only be manually set to Done or Cancelled")
	}

	db := config.GetDB()
	tx := db.Begin()

	order, err := lockOrder(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.State == state {
		tx.Rollback()
		return order, nil
	}
	if order.State != OrderStateInProgress {
		tx.Rollback()
		return nil, utils.IllegalTransitionf("order %d is already closed as %s", id, order.State)
	}

	now := time.Now().UTC()
	switch state {
	case OrderStateDone:
		var tasks []*Task
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND state <> ?", id, TaskStateDone).
			Find(&tasks).Error; err != nil {
			tx.Rollback()
			return nil, classifyDBError(err)
		}
		for _, task := range tasks {
			if err := finishTaskInTx(ctx, tx, task, now); err != nil {
				tx.Rollback()
				return nil, err
			}
		}
	case OrderStateCancelled:
		if err := tx.WithContext(ctx).
			Where("order_id = ?", id).
			Delete(&Task{}).Error; err != nil {
			tx.Rollback()
			return nil, classifyDBError(err)
		}
	}

	order.State = state
	order.ClosedAt = &now
	if err := tx.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"State":    order.State,
		"ClosedAt": order.ClosedAt,
	}).Error; err != nil {
		tx.Rollback()
		return nil, classifyDBError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}
	return order, nil
}

type EditOrderInput struct {
	CustomerName   string     `json:"customer_name" binding:"required"`
	Area           *string    `json:"area"`
	Priority       string     `json:"priority" binding:"omitempty,priority"`
	Description    *string    `json:"description"`
	CommitmentDate *time.Time `json:"commitment_date"`
	AssigneeId     *int       `json:"assignee_id"`
}

// EditOrder updates the order's business fields and propagates description
// and assignee changes to its tasks.
func EditOrder(ctx context.Context, id int, input *EditOrderInput) (*Order, error) {
	db := config.GetDB()

	order, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("order %d", id)
	}
	if input.AssigneeId != nil {
		if err := validateAssignee(ctx, *input.AssigneeId); err != nil {
			return nil, err
		}
	}
	priority := input.Priority
	if priority == "" {
		priority = order.Priority
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(order).Updates(map[string]interface{}{
		"CustomerName":   input.CustomerName,
		"Area":           input.Area,
		"Priority":       priority,
		"Description":    input.Description,
		"CommitmentDate": input.CommitmentDate,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	taskUpdates := map[string]interface{}{"Description": input.Description}
	if input.AssigneeId != nil {
		taskUpdates["AssigneeId"] = *input.AssigneeId
	}
	if err := tx.WithContext(ctx).Model(&Task{}).
		Where("order_id = ?", id).
		Updates(taskUpdates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return order, nil
}

// DuplicateOrder clones an order and its tasks as a fresh open order. Tasks
// restart from Pending with zeroed timers.
func DuplicateOrder(ctx context.Context, id int) (*Order, error) {
	db := config.GetDB()

	source, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("order %d", id)
	}
	var sourceTasks []*Task
	if err := db.WithContext(ctx).
		Where("order_id = ?", id).Order("id ASC").
		Find(&sourceTasks).Error; err != nil {
		return nil, err
	}

	clone := Order{
		Code:           uuid.NewString(),
		CustomerName:   source.CustomerName,
		CustomerId:     source.CustomerId,
		Area:           source.Area,
		Priority:       source.Priority,
		Description:    source.Description,
		State:          OrderStateInProgress,
		CommitmentDate: source.CommitmentDate,
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&clone).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for _, src := range sourceTasks {
		task := Task{
			OrderId:     clone.ID,
			Title:       src.Title,
			Description: src.Description,
			State:       TaskStatePending,
			AssigneeId:  src.AssigneeId,
		}
		if err := tx.WithContext(ctx).Create(&task).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &clone, nil
}

func GetOrder(ctx context.Context, id int) (*Order, error) {
	order, err := utils.FetchModel[Order](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("order %d", id)
	}
	return order, nil
}

// OrderRow is the order list read shape joined with the lead task and its
// assignee.
type OrderRow struct {
	Order
	TaskTitle    *string `json:"task_title"`
	AssigneeName *string `json:"assignee_name"`
}

type OrderFilter struct {
	State    *OrderState
	Area     *string
	Priority *string
	From     *time.Time
	Until    *time.Time
}

// ListOrders returns orders with their lead task, most urgent commitment
// first and undated orders last.
func ListOrders(ctx context.Context, filter *OrderFilter) ([]*OrderRow, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).
		Table("orders o").
		Select(`o.*, t.title AS task_title, u.name AS assignee_name`).
		Joins(`LEFT JOIN tasks t ON t.id =
			(SELECT MIN(t2.id) FROM tasks t2 WHERE t2.order_id = o.id)`).
		Joins("LEFT JOIN users u ON u.id = t.assignee_id")

	if filter != nil {
		if filter.State != nil {
			query = query.Where("o.state = ?", *filter.State)
		}
		if filter.Area != nil {
			query = query.Where("o.area = ?", *filter.Area)
		}
		if filter.Priority != nil {
			query = query.Where("o.priority = ?", *filter.Priority)
		}
		if filter.From != nil {
			query = query.Where("o.commitment_date >= ?", utils.StartOfDay(*filter.From))
		}
		if filter.Until != nil {
			query = query.Where("o.commitment_date < ?", utils.EndOfDayExclusive(*filter.Until))
		}
	}

	var rows []*OrderRow
	if err := query.
		Order("o.commitment_date IS NULL, o.commitment_date ASC, o.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
