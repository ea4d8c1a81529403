package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/config"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ReorderSuggestion is one line of the replenishment report.
type ReorderSuggestion struct {
	ItemID         uuid.UUID  `json:"item_id"`
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	Available      float64    `json:"available"`
	ReorderPoint   float64    `json:"reorder_point"`
	SuggestedQty   float64    `json:"suggested_quantity"`
	SupplierID     *uuid.UUID `json:"supplier_id,omitempty"`
	UnitCost       float64    `json:"unit_cost"`
	EstimatedTotal float64    `json:"estimated_total"`
}

// ============ REPLENISHMENT SERVICE ============
// ReplenishmentService watches reorder points and turns breaches into
// draft purchase orders grouped per supplier.
type ReplenishmentService struct {
	DB        *gorm.DB
	Items     *repositories.ItemRepository
	Suppliers *repositories.SupplierRepository
	Movements *repositories.MovementRepository
	OrderSvc  *PurchaseOrderService
	Cfg       config.CostingConfig
}

// needsReorder reports whether an item's available stock sits at or under
// its reorder point. Items without a reorder point never trigger.
func needsReorder(item *models.InventoryItem) bool {
	return item.ReorderPoint > 0 && item.TotalAvailable() <= item.ReorderPoint
}

// DetectReorders lists active items whose available stock sits at or under
// the reorder point, each with a suggested order quantity.
func (s *ReplenishmentService) DetectReorders(tenantID uuid.UUID) ([]ReorderSuggestion, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}

	items, err := s.Items.ListActive(tenantID)
	if err != nil {
		return nil, err
	}

	suggestions := make([]ReorderSuggestion, 0)
	for i := range items {
		item := &items[i]
		if !needsReorder(item) {
			continue
		}
		available := item.TotalAvailable()

		qty := s.suggestedQuantity(item)
		supplierID, unitCost := s.resolveSupplier(tenantID, item, &qty)

		suggestions = append(suggestions, ReorderSuggestion{
			ItemID:         item.ID,
			SKU:            item.SKU,
			Name:           item.Name,
			Available:      available,
			ReorderPoint:   item.ReorderPoint,
			SuggestedQty:   qty,
			SupplierID:     supplierID,
			UnitCost:       unitCost,
			EstimatedTotal: qty * unitCost,
		})
	}
	return suggestions, nil
}

// GenerateOrders turns the current reorder suggestions into one DRAFT
// purchase order per supplier. Items with no supplier are skipped and
// reported back for manual sourcing.
func (s *ReplenishmentService) GenerateOrders(tenantID uuid.UUID) ([]models.PurchaseOrder, []ReorderSuggestion, error) {
	suggestions, err := s.DetectReorders(tenantID)
	if err != nil {
		return nil, nil, err
	}

	bySupplier := make(map[uuid.UUID][]ReorderSuggestion)
	var unsourced []ReorderSuggestion
	for _, sg := range suggestions {
		if sg.SupplierID == nil {
			unsourced = append(unsourced, sg)
			continue
		}
		bySupplier[*sg.SupplierID] = append(bySupplier[*sg.SupplierID], sg)
	}

	orders := make([]models.PurchaseOrder, 0, len(bySupplier))
	for supplierID, group := range bySupplier {
		lines := make([]CreateOrderLineRequest, 0, len(group))
		for _, sg := range group {
			price := sg.UnitCost
			lines = append(lines, CreateOrderLineRequest{
				ItemID:    sg.ItemID,
				Quantity:  sg.SuggestedQty,
				UnitPrice: &price,
			})
		}

		po, err := s.OrderSvc.Create(CreateOrderRequest{
			TenantID:   tenantID,
			SupplierID: supplierID,
			Actor:      models.SystemActor(),
			Lines:      lines,
		})
		if err != nil {
			logger.Log.Error().Err(err).
				Str("supplier_id", supplierID.String()).
				Msg("replenishment order creation failed")
			return orders, unsourced, err
		}
		orders = append(orders, *po)
	}

	if len(orders) > 0 {
		logger.Log.Info().
			Int("orders", len(orders)).
			Int("unsourced_items", len(unsourced)).
			Msg("replenishment orders generated")
	}
	return orders, unsourced, nil
}

// RecomputeReorderParams refreshes demand-driven parameters for one item:
// reorder point from trailing consumption and lead time, order quantity
// from the economic order quantity formula.
func (s *ReplenishmentService) RecomputeReorderParams(tenantID, itemID uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.Items.GetByID(tenantID, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("inventory item", itemID)
	}
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -s.Cfg.DemandSampleDays)
	consumed, err := s.Movements.SumQuantity(tenantID, itemID,
		[]models.MovementType{models.MovementSale, models.MovementProduction},
		since)
	if err != nil {
		return nil, err
	}
	dailyDemand := consumed / float64(s.Cfg.DemandSampleDays)

	leadTime := 7
	if item.PreferredSupplierID != nil {
		if supplier, err := s.Suppliers.GetByID(tenantID, *item.PreferredSupplierID); err == nil && supplier.LeadTimeDays > 0 {
			leadTime = supplier.LeadTimeDays
		}
	}

	item.ReorderPoint = ReorderPointFor(dailyDemand, leadTime, item.SafetyStock)

	holdingCost := s.Cfg.HoldingCostRate * item.CurrentCost
	item.EconomicOrderQuantity = EOQ(dailyDemand*365, s.Cfg.OrderingCost, holdingCost)

	if err := s.Items.Save(item); err != nil {
		return nil, err
	}
	return item, nil
}

// suggestedQuantity picks the first usable quantity source.
func (s *ReplenishmentService) suggestedQuantity(item *models.InventoryItem) float64 {
	switch {
	case item.EconomicOrderQuantity > 0:
		return item.EconomicOrderQuantity
	case item.ReorderQuantity > 0:
		return item.ReorderQuantity
	default:
		return item.ReorderPoint * 2
	}
}

// resolveSupplier picks the preferred supplier, falling back to the first
// listing, and floors the quantity at the supplier's minimum order.
func (s *ReplenishmentService) resolveSupplier(tenantID uuid.UUID, item *models.InventoryItem, qty *float64) (*uuid.UUID, float64) {
	unitCost := item.CurrentCost

	if item.PreferredSupplierID != nil {
		if listing, err := s.Suppliers.Listing(*item.PreferredSupplierID, item.ID); err == nil {
			unitCost = listing.Cost
			if listing.MinOrderQuantity > *qty {
				*qty = listing.MinOrderQuantity
			}
			return item.PreferredSupplierID, unitCost
		}
		return item.PreferredSupplierID, unitCost
	}

	listings, err := s.Suppliers.ItemListings(tenantID, item.ID)
	if err != nil || len(listings) == 0 {
		return nil, unitCost
	}
	listing := listings[0]
	unitCost = listing.Cost
	if listing.MinOrderQuantity > *qty {
		*qty = listing.MinOrderQuantity
	}
	return &listing.SupplierID, unitCost
}
