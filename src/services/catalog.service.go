package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ CATALOG SERVICE ============
// CatalogService manages the master data behind the ledger: items,
// locations, suppliers and recipes.
type CatalogService struct {
	DB        *gorm.DB
	Items     *repositories.ItemRepository
	Suppliers *repositories.SupplierRepository
	Recipes   *repositories.RecipeRepository
	Ledger    *MovementService
}

// CreateItem registers an item. An opening quantity, when given, posts an
// OPENING_STOCK movement so the first stock write carries an audit trail.
func (s *CatalogService) CreateItem(item *models.InventoryItem, openingQty float64, locationID *uuid.UUID, actor models.Actor) (*models.InventoryItem, error) {
	if item.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if item.SKU == "" {
		return nil, validationErr("sku", "sku is required")
	}
	if item.Name == "" {
		return nil, validationErr("name", "name is required")
	}
	if item.BaseUnit == "" {
		return nil, validationErr("base_unit", "base unit is required")
	}
	if item.CostingMethod == "" {
		item.CostingMethod = models.CostingFIFO
	}
	if !item.CostingMethod.IsValid() {
		return nil, validationErr("costing_method", "unknown costing method")
	}
	for unit, factor := range item.Conversions {
		if factor <= 0 {
			return nil, validationErr("conversions", "conversion factor for "+unit+" must be positive")
		}
	}
	item.IsActive = true
	item.TotalQuantity = 0
	item.TotalReserved = 0

	if err := s.Items.Create(item); err != nil {
		return nil, err
	}

	if openingQty > 0 {
		if locationID == nil {
			return item, validationErr("location_id", "opening stock requires a location")
		}
		cost := item.CurrentCost
		if _, err := s.Ledger.Record(RecordMovementRequest{
			TenantID:     item.TenantID,
			ItemID:       item.ID,
			Type:         models.MovementOpeningStock,
			Quantity:     openingQty,
			Unit:         item.BaseUnit,
			ToLocationID: locationID,
			UnitCost:     &cost,
			Actor:        actor,
		}); err != nil {
			return item, err
		}
	}
	return item, nil
}

func (s *CatalogService) GetItem(tenantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.Items.GetByID(tenantID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("inventory item", itemID)
	}
	return item, err
}

func (s *CatalogService) GetItemBySKU(tenantID uuid.UUID, sku string) (*models.InventoryItem, error) {
	item, err := s.Items.GetBySKU(tenantID, sku)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "inventory item", ID: sku}
	}
	return item, err
}

func (s *CatalogService) ListItems(tenantID uuid.UUID, activeOnly bool, page, limit int) ([]models.InventoryItem, int64, error) {
	return s.Items.List(tenantID, activeOnly, page, limit)
}

// UpdateItem applies master-data changes. Aggregates and costs belong to
// the ledger and are not touched here.
func (s *CatalogService) UpdateItem(tenantID, itemID uuid.UUID, apply func(*models.InventoryItem) error) (*models.InventoryItem, error) {
	item, err := s.GetItem(tenantID, itemID)
	if err != nil {
		return nil, err
	}
	if err := apply(item); err != nil {
		return nil, err
	}
	if !item.CostingMethod.IsValid() {
		return nil, validationErr("costing_method", "unknown costing method")
	}
	if err := s.Items.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeactivateItem retires an item from new movements; history stays intact.
func (s *CatalogService) DeactivateItem(tenantID, itemID uuid.UUID) error {
	item, err := s.GetItem(tenantID, itemID)
	if err != nil {
		return err
	}
	item.IsActive = false
	return s.Items.Save(item)
}

func (s *CatalogService) CreateLocation(loc *models.Location) (*models.Location, error) {
	if loc.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if loc.Code == "" {
		return nil, validationErr("code", "location code is required")
	}
	if err := s.DB.Create(loc).Error; err != nil {
		return nil, err
	}
	return loc, nil
}

func (s *CatalogService) ListLocations(tenantID uuid.UUID) ([]models.Location, error) {
	var locations []models.Location
	err := s.DB.Where("tenant_id = ?", tenantID).Order("code").Find(&locations).Error
	return locations, err
}

func (s *CatalogService) CreateSupplier(supplier *models.Supplier) (*models.Supplier, error) {
	if supplier.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if supplier.Name == "" {
		return nil, validationErr("name", "supplier name is required")
	}
	if err := s.Suppliers.Create(supplier); err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *CatalogService) ListSuppliers(tenantID uuid.UUID) ([]models.Supplier, error) {
	return s.Suppliers.ListActive(tenantID)
}

// LinkSupplierItem records a supplier's listing for an item.
func (s *CatalogService) LinkSupplierItem(link *models.SupplierItem) (*models.SupplierItem, error) {
	if link.SupplierID == uuid.Nil || link.ItemID == uuid.Nil {
		return nil, validationErr("supplier_id", "supplier and item are required")
	}
	if link.Cost < 0 {
		return nil, validationErr("cost", "cost cannot be negative")
	}
	if err := s.DB.Create(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (s *CatalogService) CreateRecipe(recipe *models.Recipe) (*models.Recipe, error) {
	if recipe.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if recipe.Name == "" {
		return nil, validationErr("name", "recipe name is required")
	}
	if recipe.TheoreticalYield <= 0 {
		return nil, validationErr("theoretical_yield", "yield must be positive")
	}
	if recipe.EffectiveYield <= 0 {
		recipe.EffectiveYield = recipe.TheoreticalYield
	}
	for _, ing := range recipe.Ingredients {
		if ing.Quantity <= 0 {
			return nil, validationErr("ingredients", "ingredient quantity must be positive")
		}
		item, err := s.Items.GetByID(recipe.TenantID, ing.ItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("inventory item", ing.ItemID)
		}
		if err != nil {
			return nil, err
		}
		if _, err := item.ConvertToBase(1, ing.Unit); err != nil {
			return nil, validationErr("ingredients", err.Error())
		}
	}
	recipe.IsActive = true
	if err := s.Recipes.Create(recipe); err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *CatalogService) ListRecipes(tenantID uuid.UUID) ([]models.Recipe, error) {
	return s.Recipes.ListActive(tenantID)
}
