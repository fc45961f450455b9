package models

import (
	"context"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/config"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"github.com/shopspring/decimal"
)

// SupplyItem is a raw-material stock keeping unit. Stock is a materialized
// cache of the signed sum of all movements against the item and is only ever
// written inside the same transaction as a movement insert (see movement.go).
type SupplyItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	Name      string          `gorm:"size:100;not null;unique" json:"name" binding:"required"`
	Unit      string          `gorm:"size:20;not null" json:"unit" binding:"required"`
	Stock     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"stock"`
	MinStock  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_stock"`
	Code      *string         `gorm:"size:50;default:null" json:"code"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplyItem struct {
	Name     string          `json:"name" binding:"required"`
	Unit     string          `json:"unit" binding:"required"`
	Stock    decimal.Decimal `json:"stock"`
	MinStock decimal.Decimal `json:"min_stock"`
	Code     *string         `json:"code"`
}

// StockStatus tags the item LOW when stock has fallen under the reorder
// threshold. Computed on read, never stored.
func (item *SupplyItem) StockStatus() StockStatus {
	if item.Stock.LessThan(item.MinStock) {
		return StockStatusLow
	}
	return StockStatusOK
}

// SupplyItemView is the catalog read shape: the item plus its derived status.
type SupplyItemView struct {
	SupplyItem
	Status StockStatus `json:"status"`
}

/*
caches:
	SupplyItemList
*/

func CreateSupplyItem(ctx context.Context, input *NewSupplyItem) (*SupplyItem, error) {
	db := config.GetDB()

	if err := utils.ValidateUnique[SupplyItem](ctx, "name", input.Name, 0); err != nil {
		return nil, utils.InvalidArgumentf("supply item name %q already exists", input.Name)
	}
	if input.Stock.IsNegative() {
		return nil, utils.InvalidArgumentf("initial stock cannot be negative")
	}
	if input.MinStock.IsNegative() {
		return nil, utils.InvalidArgumentf("minimum stock cannot be negative")
	}

	item := SupplyItem{
		Name:     input.Name,
		Unit:     input.Unit,
		MinStock: input.MinStock,
		Code:     input.Code,
	}

	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Seed stock through the ledger so the cache always equals the movement
	// sum, even for the opening balance.
	if input.Stock.IsPositive() {
		reason := "opening stock"
		opening := Movement{
			SupplyItemId: item.ID,
			Kind:         MovementKindInbound,
			Qty:          input.Stock,
			OccurredAt:   time.Now().UTC(),
			Reason:       &reason,
		}
		if err := tx.WithContext(ctx).Create(&opening).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.WithContext(ctx).Model(&item).Update("stock", input.Stock).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		item.Stock = input.Stock
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	utils.RemoveRedisList[SupplyItem]()
	return &item, nil
}

// UpdateSupplyItem changes catalog fields only. Stock is deliberately not
// updatable here; the ledger is the sole stock mutation path.
func UpdateSupplyItem(ctx context.Context, id int, input *NewSupplyItem) (*SupplyItem, error) {
	db := config.GetDB()

	item, err := utils.FetchModel[SupplyItem](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("supply item %d", id)
	}
	if err := utils.ValidateUnique[SupplyItem](ctx, "name", input.Name, id); err != nil {
		return nil, utils.InvalidArgumentf("supply item name %q already exists", input.Name)
	}
	if input.MinStock.IsNegative() {
		return nil, utils.InvalidArgumentf("minimum stock cannot be negative")
	}

	if err := db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"Name":     input.Name,
		"Unit":     input.Unit,
		"MinStock": input.MinStock,
		"Code":     input.Code,
	}).Error; err != nil {
		return nil, err
	}

	utils.RemoveRedisList[SupplyItem]()
	return item, nil
}

func GetSupplyItem(ctx context.Context, id int) (*SupplyItem, error) {
	item, err := utils.FetchModel[SupplyItem](ctx, id)
	if err != nil {
		return nil, utils.NotFoundf("supply item %d", id)
	}
	return item, nil
}

// ListSupplyItems returns the catalog ordered by name, each item tagged with
// its derived stock status. The raw item list is cached in redis and
// invalidated by item writes and committed movements.
func ListSupplyItems(ctx context.Context) ([]*SupplyItemView, error) {
	items, err := utils.RetrieveRedisList[SupplyItem]()
	if err != nil {
		return nil, err
	}
	if items == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Order("name ASC").Find(&items).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[SupplyItem](items); err != nil {
			return nil, err
		}
	}

	views := make([]*SupplyItemView, 0, len(items))
	for _, item := range items {
		views = append(views, &SupplyItemView{SupplyItem: *item, Status: item.StockStatus()})
	}
	return views, nil
}

// GetLowStockAlerts lists items under their reorder threshold, most depleted
// first.
func GetLowStockAlerts(ctx context.Context) ([]*SupplyItem, error) {
	db := config.GetDB()
	var items []*SupplyItem
	if err := db.WithContext(ctx).
		Where("stock < min_stock").
		Order("stock ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
