package repositories

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

// ErrVersionConflict is returned when an aggregate update loses the
// optimistic version check; callers retry or surface a conflict error.
var ErrVersionConflict = errors.New("version conflict")

type ItemRepository struct {
	DB *gorm.DB
}

func (r *ItemRepository) GetByID(tenantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	return r.getByID(r.DB, tenantID, itemID)
}

// GetByIDTx reads the item inside an open transaction so the caller sees its
// own uncommitted writes.
func (r *ItemRepository) GetByIDTx(tx *gorm.DB, tenantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	return r.getByID(tx, tenantID, itemID)
}

func (r *ItemRepository) getByID(db *gorm.DB, tenantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := db.
		Preload("StockLevels").
		Where("tenant_id = ? AND id = ?", tenantID, itemID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) GetBySKU(tenantID uuid.UUID, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.DB.
		Preload("StockLevels").
		Where("tenant_id = ? AND sku = ?", tenantID, sku).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *ItemRepository) List(tenantID uuid.UUID, activeOnly bool, page, limit int) ([]models.InventoryItem, int64, error) {
	query := r.DB.Model(&models.InventoryItem{}).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.InventoryItem
	err := query.
		Order("sku ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// ListActive loads all active items with their stock levels, for the
// replenishment scan.
func (r *ItemRepository) ListActive(tenantID uuid.UUID) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.DB.
		Preload("StockLevels").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("sku ASC").
		Find(&items).Error
	return items, err
}

func (r *ItemRepository) Create(item *models.InventoryItem) error {
	return r.DB.Create(item).Error
}

func (r *ItemRepository) Save(item *models.InventoryItem) error {
	return r.DB.Save(item).Error
}

// SaveAggregates persists the aggregate fields the ledger maintains, bumping
// the version column. A stale version means a concurrent writer won; the
// update is rejected with ErrVersionConflict.
func (r *ItemRepository) SaveAggregates(tx *gorm.DB, item *models.InventoryItem) error {
	oldVersion := item.Version
	result := tx.Model(&models.InventoryItem{}).
		Where("id = ? AND version = ?", item.ID, oldVersion).
		Updates(map[string]interface{}{
			"total_quantity":     item.TotalQuantity,
			"total_reserved":     item.TotalReserved,
			"current_cost":       item.CurrentCost,
			"average_cost":       item.AverageCost,
			"last_purchase_cost": item.LastPurchaseCost,
			"waste_percentage":   item.WastePercentage,
			"last_counted_at":    item.LastCountedAt,
			"version":            oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	item.Version = oldVersion + 1
	return nil
}

// AdjustStockLevel applies a delta to the per-location stock row, creating
// it on first use.
func (r *ItemRepository) AdjustStockLevel(tx *gorm.DB, tenantID, itemID, locationID uuid.UUID, delta float64) error {
	var level models.StockLevel
	err := tx.
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", tenantID, itemID, locationID).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		level = models.StockLevel{
			TenantID:   tenantID,
			ItemID:     itemID,
			LocationID: locationID,
			Quantity:   delta,
		}
		return tx.Create(&level).Error
	}
	if err != nil {
		return err
	}

	return tx.Model(&models.StockLevel{}).
		Where("id = ?", level.ID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

// SetStockLevel sets the per-location quantity to an absolute value, used by
// cycle counts.
func (r *ItemRepository) SetStockLevel(tx *gorm.DB, tenantID, itemID, locationID uuid.UUID, quantity float64) error {
	var level models.StockLevel
	err := tx.
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", tenantID, itemID, locationID).
		First(&level).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		level = models.StockLevel{
			TenantID:   tenantID,
			ItemID:     itemID,
			LocationID: locationID,
			Quantity:   quantity,
		}
		return tx.Create(&level).Error
	}
	if err != nil {
		return err
	}

	return tx.Model(&models.StockLevel{}).
		Where("id = ?", level.ID).
		Update("quantity", quantity).Error
}

func (r *ItemRepository) StockLevel(tenantID, itemID, locationID uuid.UUID) (*models.StockLevel, error) {
	return r.stockLevel(r.DB, tenantID, itemID, locationID)
}

func (r *ItemRepository) StockLevelTx(tx *gorm.DB, tenantID, itemID, locationID uuid.UUID) (*models.StockLevel, error) {
	return r.stockLevel(tx, tenantID, itemID, locationID)
}

func (r *ItemRepository) stockLevel(db *gorm.DB, tenantID, itemID, locationID uuid.UUID) (*models.StockLevel, error) {
	var level models.StockLevel
	err := db.
		Where("tenant_id = ? AND item_id = ? AND location_id = ?", tenantID, itemID, locationID).
		First(&level).Error
	if err != nil {
		return nil, err
	}
	return &level, nil
}
