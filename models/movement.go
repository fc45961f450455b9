package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/config"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"github.com/bsm/redislock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement is one append-only stock ledger row. Qty is stored signed:
// positive for inbound, negative for outbound and consumption adjustments.
// Rows are never updated or deleted.
type Movement struct {
	ID            int             `gorm:"primary_key" json:"id"`
	SupplyItemId  int             `gorm:"index;not null" json:"supply_item_id"`
	Kind          MovementKind    `gorm:"size:20;not null" json:"kind"`
	Qty           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	OccurredAt    time.Time       `gorm:"index;not null" json:"occurred_at"`
	OrderId       *int            `gorm:"index;default:null" json:"order_id"`
	TaskId        *int            `gorm:"index;default:null" json:"task_id"`
	ResponsibleId *int            `gorm:"default:null" json:"responsible_id"`
	Reason        *string         `gorm:"size:255;default:null" json:"reason"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewMovement struct {
	SupplyItemId  int             `json:"supply_item_id" binding:"required"`
	Kind          string          `json:"kind" binding:"required"`
	Qty           decimal.Decimal `json:"qty" binding:"required"`
	OrderId       *int            `json:"order_id"`
	TaskId        *int            `json:"task_id"`
	ResponsibleId *int            `json:"responsible_id"`
	Reason        *string         `json:"reason"`
}

// signedDelta derives the ledger sign from the movement kind. Inbound and
// outbound take a positive magnitude; adjustments carry their own sign and
// only zero is rejected.
func signedDelta(kind MovementKind, qty decimal.Decimal) (decimal.Decimal, error) {
	switch kind {
	case MovementKindInbound:
		if !qty.IsPositive() {
			return decimal.Zero, utils.InvalidArgumentf("inbound quantity must be positive, got %s", qty)
		}
		return qty, nil
	case MovementKindOutbound:
		if !qty.IsPositive() {
			return decimal.Zero, utils.InvalidArgumentf("outbound quantity must be positive, got %s", qty)
		}
		return qty.Neg(), nil
	case MovementKindAdjustment:
		if qty.IsZero() {
			return decimal.Zero, utils.InvalidArgumentf("adjustment quantity cannot be zero")
		}
		return qty, nil
	}
	return decimal.Zero, utils.InvalidArgumentf("invalid movement kind %q", kind)
}

// classifyDBError maps driver-level failures onto the domain taxonomy.
// MySQL 1205 is a lock wait timeout, 3572 a NOWAIT rejection, 1213 a
// deadlock victim; all mean a row is held by a concurrent writer and the
// caller may retry.
func classifyDBError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1205, 1213, 3572:
			return fmt.Errorf("row is locked by a concurrent writer: %w", utils.ErrBusy)
		}
	}
	return err
}

// validateRefInTx checks a referenced row still exists inside the ledger
// transaction, so a concurrent cancellation cannot delete it between the
// check and the movement insert.
func validateRefInTx(ctx context.Context, tx *gorm.DB, model interface{}, id int, what string) error {
	var count int64
	if err := tx.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return classifyDBError(err)
	}
	if count == 0 {
		return utils.NotFoundf("%s %d", what, id)
	}
	return nil
}

// RecordMovement appends a ledger row and refreshes the item's stock cache
// in a single transaction. The supply item row is locked FOR UPDATE for the
// duration so concurrent movements against the same item serialize, and the
// non-negative stock invariant is checked against the locked value.
func RecordMovement(ctx context.Context, input *NewMovement) (*Movement, error) {
	db := config.GetDB()

	kind, err := ParseMovementKind(input.Kind)
	if err != nil {
		return nil, err
	}
	delta, err := signedDelta(kind, input.Qty)
	if err != nil {
		return nil, err
	}
	if kind == MovementKindOutbound && input.OrderId == nil {
		return nil, utils.InvalidArgumentf("outbound movements require an order")
	}

	tx := db.Begin()

	var item SupplyItem
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&item, input.SupplyItemId).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFoundf("supply item %d", input.SupplyItemId)
		}
		return nil, classifyDBError(err)
	}

	if input.OrderId != nil {
		if err := validateRefInTx(ctx, tx, &Order{}, *input.OrderId, "order"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if input.TaskId != nil {
		if err := validateRefInTx(ctx, tx, &Task{}, *input.TaskId, "task"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if input.ResponsibleId != nil {
		if err := validateRefInTx(ctx, tx, &User{}, *input.ResponsibleId, "user"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	newStock := item.Stock.Add(delta)
	if newStock.IsNegative() {
		tx.Rollback()
		return nil, utils.InsufficientStockf(
			"movement of %s would drive %q to %s (stock %s)",
			delta, item.Name, newStock, item.Stock)
	}

	if err := tx.WithContext(ctx).Model(&item).Update("stock", newStock).Error; err != nil {
		tx.Rollback()
		return nil, classifyDBError(err)
	}

	movement := Movement{
		SupplyItemId:  input.SupplyItemId,
		Kind:          kind,
		Qty:           delta,
		OccurredAt:    time.Now().UTC(),
		OrderId:       input.OrderId,
		TaskId:        input.TaskId,
		ResponsibleId: input.ResponsibleId,
		Reason:        input.Reason,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		tx.Rollback()
		return nil, classifyDBError(err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, classifyDBError(err)
	}

	utils.RemoveRedisList[SupplyItem]()
	return &movement, nil
}

// QuickConsumption is the one-tap material draw an operator records against
// a running task.
type QuickConsumption struct {
	TaskId       int             `json:"task_id" binding:"required"`
	SupplyItemId int             `json:"supply_item_id" binding:"required"`
	Qty          decimal.Decimal `json:"qty" binding:"required"`
	Reason       *string         `json:"reason"`
}

// RegisterQuickConsumption records a negative adjustment on behalf of an
// operator. The quantity is a positive magnitude and must not exceed current
// stock. A redis advisory lock narrows the race window across instances; the
// row lock inside RecordMovement remains the real guarantee, so a failed
// lock acquisition only logs.
func RegisterQuickConsumption(ctx context.Context, input *QuickConsumption, actor Actor) (*Movement, error) {
	ctx, span := otel.Tracer("shopfloor").Start(ctx, "RegisterQuickConsumption")
	defer span.End()

	if !actor.IsOperator() {
		return nil, utils.Unauthorizedf("quick consumption is an operator action")
	}
	if !input.Qty.IsPositive() {
		return nil, utils.InvalidArgumentf("consumption quantity must be positive, got %s", input.Qty)
	}

	item, err := GetSupplyItem(ctx, input.SupplyItemId)
	if err != nil {
		return nil, err
	}
	if input.Qty.GreaterThan(item.Stock) {
		return nil, utils.InsufficientStockf(
			"consumption of %s exceeds stock %s of %q", input.Qty, item.Stock, item.Name)
	}

	lockKey := fmt.Sprintf("lock:supply-item:%d", input.SupplyItemId)
	lock, err := config.GetRedisLock().Obtain(ctx, lockKey, 5*time.Second, nil)
	if err != nil {
		if !errors.Is(err, redislock.ErrNotObtained) {
			config.LogError(config.GetLogger(), "movement", "RegisterQuickConsumption",
				lockKey, nil, err)
		}
	} else {
		defer lock.Release(ctx)
	}

	reason := "quick consumption"
	if input.Reason != nil && *input.Reason != "" {
		reason = *input.Reason
	}

	return RecordMovement(ctx, &NewMovement{
		SupplyItemId:  input.SupplyItemId,
		Kind:          string(MovementKindAdjustment),
		Qty:           input.Qty.Neg(),
		TaskId:        &input.TaskId,
		ResponsibleId: &actor.ID,
		Reason:        &reason,
	})
}

// KardexFilter narrows the movement history query. From/Until are whole
// calendar days; Until is inclusive of the named day.
type KardexFilter struct {
	SupplyItemId *int
	Kind         *MovementKind
	OrderId      *int
	From         *time.Time
	Until        *time.Time
}

// KardexRow is one line of the movement history report, denormalized for
// display.
type KardexRow struct {
	MovementId      int             `json:"movement_id"`
	OccurredAt      time.Time       `json:"occurred_at"`
	ItemName        string          `json:"item_name"`
	Unit            string          `json:"unit"`
	Kind            MovementKind    `json:"kind"`
	Qty             decimal.Decimal `json:"qty"`
	OrderCode       *string         `json:"order_code"`
	TaskTitle       *string         `json:"task_title"`
	ResponsibleName *string         `json:"responsible_name"`
	Reason          *string         `json:"reason"`
}

// QueryMovements returns the kardex, newest first. Date bounds are half-open
// on day granularity: rows from the start of From through the end of Until.
func QueryMovements(ctx context.Context, filter *KardexFilter) ([]*KardexRow, error) {
	db := config.GetDB()

	query := db.WithContext(ctx).
		Table("movements m").
		Select(`m.id AS movement_id, m.occurred_at, i.name AS item_name, i.unit,
			m.kind, m.qty, o.code AS order_code, t.title AS task_title,
			u.name AS responsible_name, m.reason`).
		Joins("JOIN supply_items i ON i.id = m.supply_item_id").
		Joins("LEFT JOIN orders o ON o.id = m.order_id").
		Joins("LEFT JOIN tasks t ON t.id = m.task_id").
		Joins("LEFT JOIN users u ON u.id = m.responsible_id")

	if filter != nil {
		if filter.SupplyItemId != nil {
			query = query.Where("m.supply_item_id = ?", *filter.SupplyItemId)
		}
		if filter.Kind != nil {
			query = query.Where("m.kind = ?", *filter.Kind)
		}
		if filter.OrderId != nil {
			query = query.Where("m.order_id = ?", *filter.OrderId)
		}
		if filter.From != nil {
			query = query.Where("m.occurred_at >= ?", utils.StartOfDay(*filter.From))
		}
		if filter.Until != nil {
			query = query.Where("m.occurred_at < ?", utils.EndOfDayExclusive(*filter.Until))
		}
	}

	var rows []*KardexRow
	if err := query.Order("m.occurred_at DESC, m.id DESC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTaskConsumptions lists the material drawn against one task, newest
// first.
func GetTaskConsumptions(ctx context.Context, taskId int) ([]*KardexRow, error) {
	if err := utils.ValidateResourceId[Task](ctx, taskId); err != nil {
		return nil, utils.NotFoundf("task %d", taskId)
	}

	db := config.GetDB()
	var rows []*KardexRow
	if err := db.WithContext(ctx).
		Table("movements m").
		Select(`m.id AS movement_id, m.occurred_at, i.name AS item_name, i.unit,
			m.kind, m.qty, u.name AS responsible_name, m.reason`).
		Joins("JOIN supply_items i ON i.id = m.supply_item_id").
		Joins("LEFT JOIN users u ON u.id = m.responsible_id").
		Where("m.task_id = ? AND m.kind = ?", taskId, MovementKindAdjustment).
		Order("m.occurred_at DESC, m.id DESC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
