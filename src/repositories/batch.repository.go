package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

type BatchRepository struct {
	DB *gorm.DB
}

// ActiveBatches returns the consumable batches of an item: active, not
// quarantined, with remaining quantity, ordered by received date. Ties on
// the received date keep insertion order via the created_at column.
func (r *BatchRepository) ActiveBatches(tx *gorm.DB, tenantID, itemID uuid.UUID, newestFirst bool) ([]models.Batch, error) {
	order := "received_at ASC, created_at ASC"
	if newestFirst {
		order = "received_at DESC, created_at DESC"
	}

	var batches []models.Batch
	err := tx.
		Where("tenant_id = ? AND item_id = ? AND is_active = ? AND quarantined = ? AND quantity > 0",
			tenantID, itemID, true, false).
		Order(order).
		Find(&batches).Error
	return batches, err
}

func (r *BatchRepository) GetByID(tenantID, batchID uuid.UUID) (*models.Batch, error) {
	return r.getByID(r.DB, tenantID, batchID)
}

// GetByIDTx reads the batch inside an open transaction so the caller sees
// its own uncommitted writes.
func (r *BatchRepository) GetByIDTx(tx *gorm.DB, tenantID, batchID uuid.UUID) (*models.Batch, error) {
	return r.getByID(tx, tenantID, batchID)
}

func (r *BatchRepository) getByID(db *gorm.DB, tenantID, batchID uuid.UUID) (*models.Batch, error) {
	var batch models.Batch
	err := db.
		Where("tenant_id = ? AND id = ?", tenantID, batchID).
		First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *BatchRepository) Create(tx *gorm.DB, batch *models.Batch) error {
	return tx.Create(batch).Error
}

func (r *BatchRepository) Save(tx *gorm.DB, batch *models.Batch) error {
	return tx.Save(batch).Error
}

// Expiring lists non-quarantined batches with stock that expire before the
// cutoff, soonest first.
func (r *BatchRepository) Expiring(tenantID uuid.UUID, before time.Time) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.DB.
		Where("tenant_id = ? AND is_active = ? AND quarantined = ? AND quantity > 0 AND expiry_date IS NOT NULL AND expiry_date <= ?",
			tenantID, true, false, before).
		Order("expiry_date ASC").
		Find(&batches).Error
	return batches, err
}

func (r *BatchRepository) Quarantined(tenantID uuid.UUID) ([]models.Batch, error) {
	var batches []models.Batch
	err := r.DB.
		Where("tenant_id = ? AND is_active = ? AND quarantined = ?", tenantID, true, true).
		Order("received_at ASC").
		Find(&batches).Error
	return batches, err
}

// NonQuarantinedTotal sums the remaining quantity across consumable batches,
// used to check the batch/aggregate invariant.
func (r *BatchRepository) NonQuarantinedTotal(tenantID, itemID uuid.UUID) (float64, error) {
	var total float64
	err := r.DB.Model(&models.Batch{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("tenant_id = ? AND item_id = ? AND is_active = ? AND quarantined = ?",
			tenantID, itemID, true, false).
		Scan(&total).Error
	return total, err
}
