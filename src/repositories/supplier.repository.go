package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

type SupplierRepository struct {
	DB *gorm.DB
}

func (r *SupplierRepository) GetByID(tenantID, supplierID uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	err := r.DB.
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, supplierID).
		First(&supplier).Error
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) ListActive(tenantID uuid.UUID) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	err := r.DB.
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("code ASC").
		Find(&suppliers).Error
	return suppliers, err
}

func (r *SupplierRepository) Create(supplier *models.Supplier) error {
	return r.DB.Create(supplier).Error
}

func (r *SupplierRepository) Save(tx *gorm.DB, supplier *models.Supplier) error {
	return tx.Omit("Items").Save(supplier).Error
}

// ItemListings returns the supplier catalog entries offering an item, in
// listing order, tenant-checked through the supplier row.
func (r *SupplierRepository) ItemListings(tenantID, itemID uuid.UUID) ([]models.SupplierItem, error) {
	var listings []models.SupplierItem
	err := r.DB.
		Joins("JOIN suppliers ON suppliers.id = supplier_items.supplier_id").
		Where("suppliers.tenant_id = ? AND suppliers.is_active = ? AND supplier_items.item_id = ?",
			tenantID, true, itemID).
		Order("supplier_items.created_at ASC").
		Find(&listings).Error
	return listings, err
}

// Listing returns one supplier's catalog entry for an item, if any.
func (r *SupplierRepository) Listing(supplierID, itemID uuid.UUID) (*models.SupplierItem, error) {
	var listing models.SupplierItem
	err := r.DB.
		Where("supplier_id = ? AND item_id = ?", supplierID, itemID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
