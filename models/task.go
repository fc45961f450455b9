package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/config"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Task is one unit of shop-floor work under an order. The timer is the pair
// (AccumulatedSecs, StartedAt): StartedAt is non-nil exactly while the task
// is Running, and pausing folds the open interval into AccumulatedSecs.
type Task struct {
	ID              int        `gorm:"primary_key" json:"id"`
	OrderId         int        `gorm:"index;not null" json:"order_id"`
	Title           string     `gorm:"size:150;not null" json:"title"`
	Description     *string    `gorm:"size:500;default:null" json:"description"`
	State           TaskState  `gorm:"size:20;not null;default:Pending" json:"state"`
	AssigneeId      *int       `gorm:"index;default:null" json:"assignee_id"`
	AccumulatedSecs int64      `gorm:"not null;default:0" json:"accumulated_secs"`
	StartedAt       *time.Time `gorm:"default:null" json:"started_at"`
	FinishedAt      *time.Time `gorm:"default:null" json:"finished_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// foldElapsed closes an open timer interval into the accumulated total.
// A nil start means the timer is not running and the total passes through.
// Clock skew can make the interval negative; it is clamped to zero so a
// fold never shrinks the total.
func foldElapsed(accumulated int64, startedAt *time.Time, now time.Time) int64 {
	if startedAt == nil {
		return accumulated
	}
	elapsed := int64(now.Sub(*startedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	return accumulated + elapsed
}

// ElapsedSeconds is the task's live total: folded time plus the currently
// open interval, if any.
func (t *Task) ElapsedSeconds(now time.Time) int64 {
	return foldElapsed(t.AccumulatedSecs, t.StartedAt, now)
}

// lockTask loads a task FOR UPDATE inside tx.
func lockTask(ctx context.Context, tx *gorm.DB, id int) (*Task, error) {
	var task Task
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("task %d", id)
		}
		return nil, classifyDBError(err)
	}
	return &task, nil
}

// StartTask opens the timer. Starting an already-running task is a no-op
// returning current state; starting a done task is rejected.
func StartTask(ctx context.Context, id int, actor Actor) (*Task, error) {
	db := config.GetDB()
	tx := db.Begin()

	task, err := lockTask(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !actor.canManageTask(task) {
		tx.Rollback()
		return nil, utils.Unauthorizedf("user %d cannot operate task %d", actor.ID, id)
	}
	if task.State == TaskStateDone {
		tx.Rollback()
		return nil, utils.IllegalTransitionf("task %d is done and cannot be restarted", id)
	}
	if task.StartedAt != nil {
		// Already running; idempotent.
		tx.Rollback()
		return task, nil
	}

	// The parent order needs no update here: orders are born InProgress,
	// cancelled orders have no tasks, and done orders only have done tasks,
	// which cannot be restarted.
	now := time.Now().UTC()
	task.StartedAt = &now
	task.State = TaskStateRunning
	if err := tx.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"StartedAt": task.StartedAt,
		"State":     task.State,
	}).Error; err != nil {
		tx.Rollback()
		return nil, classifyDBError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}
	return task, nil
}

// PauseTask folds the open interval and returns the task to Pending.
// Pausing a task that is not running is a no-op.
func PauseTask(ctx context.Context, id int, actor Actor) (*Task, error) {
	db := config.GetDB()
	tx := db.Begin()

	task, err := lockTask(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !actor.canManageTask(task) {
		tx.Rollback()
		return nil, utils.Unauthorizedf("user %d cannot operate task %d", actor.ID, id)
	}
	if task.StartedAt == nil {
		tx.Rollback()
		return task, nil
	}

	now := time.Now().UTC()
	task.AccumulatedSecs = foldElapsed(task.AccumulatedSecs, task.StartedAt, now)
	task.StartedAt = nil
	task.State = TaskStatePending
	if err := tx.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"AccumulatedSecs": task.AccumulatedSecs,
		"StartedAt":       nil,
		"State":           task.State,
	}).Error; err != nil {
		tx.Rollback()
		return nil, classifyDBError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}
	return task, nil
}

// FinishTask folds any open interval, stamps completion and moves the task
// to Done, then synchronizes the parent order in the same transaction.
func FinishTask(ctx context.Context, id int, actor Actor) (*Task, error) {
	db := config.GetDB()
	tx := db.Begin()

	task, err := lockTask(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !actor.canManageTask(task) {
		tx.Rollback()
		return nil, utils.Unauthorizedf("user %d cannot operate task %d", actor.ID, id)
	}
	if task.State == TaskStateDone {
		tx.Rollback()
		return nil, utils.IllegalTransitionf("task %d is already done", id)
	}

	now := time.Now().UTC()
	if err := finishTaskInTx(ctx, tx, task, now); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := syncOrderOnTaskDone(ctx, tx, task.OrderId, now); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}
	return task, nil
}

// finishTaskInTx applies the terminal-state mutation to an already-locked
// task. Shared by FinishTask and the forced completion on manual order
// closure.
func finishTaskInTx(ctx context.Context, tx *gorm.DB, task *Task, now time.Time) error {
	task.AccumulatedSecs = foldElapsed(task.AccumulatedSecs, task.StartedAt, now)
	task.StartedAt = nil
	task.FinishedAt = &now
	task.State = TaskStateDone
	if err := tx.WithContext(ctx).Model(task).Updates(map[string]interface{}{
		"AccumulatedSecs": task.AccumulatedSecs,
		"StartedAt":       nil,
		"FinishedAt":      task.FinishedAt,
		"State":           task.State,
	}).Error; err != nil {
		return classifyDBError(err)
	}
	return nil
}

// SetTaskState is the direct board move. It reuses the timer semantics of
// the dedicated operations so the StartedAt/state invariant holds no matter
// which path mutated the task.
func SetTaskState(ctx context.Context, id int, target string, actor Actor) (*Task, error) {
	state, err := ParseTaskState(target)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()

	task, err := lockTask(ctx, tx, id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !actor.canManageTask(task) {
		tx.Rollback()
		return nil, utils.Unauthorizedf("user %d cannot operate task %d", actor.ID, id)
	}
	// Done is terminal for board moves too, including Done -> Done.
	if task.State == TaskStateDone || !canTransitionTask(task.State, state) {
		tx.Rollback()
		return nil, utils.IllegalTransitionf("task %d cannot move from %s to %s", id, task.State, state)
	}
	if task.State == state {
		tx.Rollback()
		return task, nil
	}

	now := time.Now().UTC()
	switch state {
	case TaskStateRunning:
		task.StartedAt = &now
		task.State = TaskStateRunning
		if err := tx.WithContext(ctx).Model(task).Updates(map[string]interface{}{
			"StartedAt": task.StartedAt,
			"State":     task.State,
		}).Error; err != nil {
			tx.Rollback()
			return nil, classifyDBError(err)
		}
	case TaskStatePending:
		task.AccumulatedSecs = foldElapsed(task.AccumulatedSecs, task.StartedAt, now)
		task.StartedAt = nil
		task.State = TaskStatePending
		if err := tx.WithContext(ctx).Model(task).Updates(map[string]interface{}{
			"AccumulatedSecs": task.AccumulatedSecs,
			"StartedAt":       nil,
			"State":           task.State,
		}).Error; err != nil {
			tx.Rollback()
			return nil, classifyDBError(err)
		}
	case TaskStateDone:
		if err := finishTaskInTx(ctx, tx, task, now); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := syncOrderOnTaskDone(ctx, tx, task.OrderId, now); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}
	return task, nil
}

func GetTask(ctx context.Context, id int) (*Task, error) {
	task, err := utils.FetchModel[Task](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("task %d", id)
	}
	return task, nil
}

// TaskBoardRow is the board read shape: the task joined with its order and
// assignee for display.
type TaskBoardRow struct {
	Task
	OrderCode    string  `json:"order_code"`
	CustomerName string  `json:"customer_name"`
	Area         *string `json:"area"`
	Priority     string  `json:"priority"`
	AssigneeName *string `json:"assignee_name"`
}

type TaskFilter struct {
	State      *TaskState
	AssigneeId *int
	OrderId    *int
}

// ListTasks returns board rows for tasks of open orders, oldest first so the
// board keeps a stable ordering.
func ListTasks(ctx context.Context, filter *TaskFilter) ([]*TaskBoardRow, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).
		Table("tasks t").
		Select(`t.*, o.code AS order_code, o.customer_name, o.area, o.priority,
			u.name AS assignee_name`).
		Joins("JOIN orders o ON o.id = t.order_id").
		Joins("LEFT JOIN users u ON u.id = t.assignee_id").
		Where("o.state <> ?", OrderStateCancelled)

	if filter != nil {
		if filter.State != nil {
			query = query.Where("t.state = ?", *filter.State)
		}
		if filter.AssigneeId != nil {
			query = query.Where("t.assignee_id = ?", *filter.AssigneeId)
		}
		if filter.OrderId != nil {
			query = query.Where("t.order_id = ?", *filter.OrderId)
		}
	}

	var rows []*TaskBoardRow
	if err := query.Order("t.id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
