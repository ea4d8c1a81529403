package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

type MovementRepository struct {
	DB *gorm.DB
}

func (r *MovementRepository) Create(tx *gorm.DB, m *models.StockMovement) error {
	return tx.Create(m).Error
}

func (r *MovementRepository) GetByID(tenantID, movementID uuid.UUID) (*models.StockMovement, error) {
	var m models.StockMovement
	err := r.DB.
		Where("tenant_id = ? AND id = ?", tenantID, movementID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MovementRepository) GetByIDTx(tx *gorm.DB, tenantID, movementID uuid.UUID) (*models.StockMovement, error) {
	var m models.StockMovement
	err := tx.
		Where("tenant_id = ? AND id = ?", tenantID, movementID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type MovementFilter struct {
	ItemID   *uuid.UUID
	Types    []models.MovementType
	FromDate *time.Time
	ToDate   *time.Time
}

// List returns movements with pagination, newest first.
func (r *MovementRepository) List(tenantID uuid.UUID, filter MovementFilter, page, limit int) ([]models.StockMovement, int64, error) {
	query := r.DB.Model(&models.StockMovement{}).Where("tenant_id = ?", tenantID)

	if filter.ItemID != nil {
		query = query.Where("item_id = ?", *filter.ItemID)
	}
	if len(filter.Types) > 0 {
		query = query.Where("type IN ?", filter.Types)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&movements).Error
	return movements, total, err
}

// SumQuantity totals movement quantities of the given types since a cutoff,
// excluding reversed entries. PENDING cycle counts never match because they
// are filtered by type anyway.
func (r *MovementRepository) SumQuantity(tenantID, itemID uuid.UUID, types []models.MovementType, since time.Time) (float64, error) {
	var total float64
	err := r.DB.Model(&models.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tenant_id = ? AND item_id = ? AND type IN ? AND is_reversed = ? AND created_at >= ?",
			tenantID, itemID, types, false, since).
		Scan(&total).Error
	return total, err
}

// ItemConsumption is one item's consumption value over a window.
type ItemConsumption struct {
	ItemID uuid.UUID
	Value  float64
}

// ConsumptionValues sums outgoing consumption cost (sales and production)
// per item since the cutoff, highest value first.
func (r *MovementRepository) ConsumptionValues(tenantID uuid.UUID, since time.Time) ([]ItemConsumption, error) {
	var rows []ItemConsumption
	err := r.DB.Model(&models.StockMovement{}).
		Select("item_id, COALESCE(SUM(total_cost), 0) AS value").
		Where("tenant_id = ? AND type IN ? AND is_reversed = ? AND created_at >= ?",
			tenantID, []models.MovementType{models.MovementSale, models.MovementProduction}, false, since).
		Group("item_id").
		Order("value DESC").
		Scan(&rows).Error
	return rows, err
}

// PurchaseCosts returns the unit costs of purchase receipts since the
// cutoff, oldest first, for price-volatility monitoring.
func (r *MovementRepository) PurchaseCosts(tenantID, itemID uuid.UUID, since time.Time) ([]float64, error) {
	var costs []float64
	err := r.DB.Model(&models.StockMovement{}).
		Select("unit_cost").
		Where("tenant_id = ? AND item_id = ? AND type = ? AND is_reversed = ? AND created_at >= ?",
			tenantID, itemID, models.MovementPurchase, false, since).
		Order("created_at ASC").
		Scan(&costs).Error
	return costs, err
}

// Since returns the applied movements of an item after the cutoff, oldest
// first, for reconstructing historical stock positions.
func (r *MovementRepository) Since(tenantID, itemID uuid.UUID, since time.Time) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	err := r.DB.
		Where("tenant_id = ? AND item_id = ? AND created_at >= ? AND approval_status <> ?",
			tenantID, itemID, since, models.ApprovalPending).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}
