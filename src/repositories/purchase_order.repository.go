package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

type PurchaseOrderRepository struct {
	DB *gorm.DB
}

func (r *PurchaseOrderRepository) Create(tx *gorm.DB, po *models.PurchaseOrder) error {
	return tx.Create(po).Error
}

func (r *PurchaseOrderRepository) GetByID(tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return r.getByID(r.DB, tenantID, orderID)
}

func (r *PurchaseOrderRepository) GetByIDTx(tx *gorm.DB, tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return r.getByID(tx, tenantID, orderID)
}

func (r *PurchaseOrderRepository) getByID(db *gorm.DB, tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	var po models.PurchaseOrder
	err := db.
		Preload("Lines").
		Preload("Approvals").
		Preload("Payments").
		Where("tenant_id = ? AND id = ?", tenantID, orderID).
		First(&po).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *PurchaseOrderRepository) Save(tx *gorm.DB, po *models.PurchaseOrder) error {
	return tx.Omit("Lines", "Approvals", "Payments").Save(po).Error
}

func (r *PurchaseOrderRepository) SaveLine(tx *gorm.DB, line *models.PurchaseOrderLine) error {
	return tx.Save(line).Error
}

func (r *PurchaseOrderRepository) AddApproval(tx *gorm.DB, approval *models.PurchaseOrderApproval) error {
	return tx.Create(approval).Error
}

func (r *PurchaseOrderRepository) AddPayment(tx *gorm.DB, payment *models.PurchaseOrderPayment) error {
	return tx.Create(payment).Error
}

func (r *PurchaseOrderRepository) List(tenantID uuid.UUID, status models.PurchaseOrderStatus, page, limit int) ([]models.PurchaseOrder, int64, error) {
	query := r.DB.Model(&models.PurchaseOrder{}).Where("tenant_id = ?", tenantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.PurchaseOrder
	err := query.
		Preload("Lines").
		Order("order_date DESC, created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	return orders, total, err
}

// CountForTenant backs order-number generation.
func (r *PurchaseOrderRepository) CountForTenant(tx *gorm.DB, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.PurchaseOrder{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}
