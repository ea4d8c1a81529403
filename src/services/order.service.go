package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ REQUEST STRUCTS ============
type OrderLineRequest struct {
	RecipeID uuid.UUID
	Quantity float64
}

type DeductForOrderRequest struct {
	TenantID   uuid.UUID
	OrderID    uuid.UUID
	LocationID uuid.UUID
	Actor      models.Actor
	Lines      []OrderLineRequest
}

// ingredientDemand is one aggregated item requirement in base units.
type ingredientDemand struct {
	ItemID   uuid.UUID
	Name     string
	Unit     string
	Quantity float64
}

// DeductionResult reports what an order consumed.
type DeductionResult struct {
	OrderID   uuid.UUID              `json:"order_id"`
	Movements []models.StockMovement `json:"movements"`
	TotalCost float64                `json:"total_cost"`
}

// ============ ORDER SERVICE ============
// OrderService bridges the point of sale and the stock ledger: selling a
// menu item expands its recipe into ingredient demand and posts SALE
// movements. Deduction is all or nothing at the availability check; if a
// later movement still fails, the ones already posted are reversed.
type OrderService struct {
	DB      *gorm.DB
	Items   *repositories.ItemRepository
	Recipes *repositories.RecipeRepository
	Ledger  *MovementService
}

// DeductForOrder consumes the ingredients behind an order's menu lines.
func (s *OrderService) DeductForOrder(req DeductForOrderRequest) (*DeductionResult, error) {
	if req.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if req.OrderID == uuid.Nil {
		return nil, validationErr("order_id", "order reference is required")
	}
	if req.LocationID == uuid.Nil {
		return nil, validationErr("location_id", "location is required")
	}
	if len(req.Lines) == 0 {
		return nil, validationErr("lines", "at least one line is required")
	}

	recipes, demand, err := s.expandDemand(req.TenantID, req.Lines)
	if err != nil {
		return nil, err
	}

	// All-or-nothing availability check before anything moves.
	if err := s.checkAvailability(req.TenantID, demand); err != nil {
		return nil, err
	}

	result := &DeductionResult{OrderID: req.OrderID}
	for _, d := range demand {
		movement, err := s.Ledger.Record(RecordMovementRequest{
			TenantID:       req.TenantID,
			ItemID:         d.ItemID,
			Type:           models.MovementSale,
			Quantity:       d.Quantity,
			Unit:           d.Unit,
			FromLocationID: &req.LocationID,
			ReferenceType:  "ORDER",
			ReferenceID:    &req.OrderID,
			Actor:          req.Actor,
		})
		if err != nil {
			s.compensate(req.TenantID, result.Movements, req.Actor)
			return nil, err
		}
		result.Movements = append(result.Movements, *movement)
		result.TotalCost += movement.TotalCost
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, line := range req.Lines {
			recipe := recipes[line.RecipeID]
			sale := &models.MenuSale{
				TenantID:  req.TenantID,
				RecipeID:  recipe.ID,
				OrderID:   &req.OrderID,
				Quantity:  line.Quantity,
				UnitPrice: recipe.SellingPrice,
				SoldAt:    now,
			}
			if err := s.Recipes.CreateSale(tx, sale); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.compensate(req.TenantID, result.Movements, req.Actor)
		return nil, err
	}

	return result, nil
}

// ReturnForOrder restocks the ingredients of returned menu lines and drops
// the matching sales records.
func (s *OrderService) ReturnForOrder(req DeductForOrderRequest) (*DeductionResult, error) {
	if req.OrderID == uuid.Nil {
		return nil, validationErr("order_id", "order reference is required")
	}
	if req.LocationID == uuid.Nil {
		return nil, validationErr("location_id", "location is required")
	}

	_, demand, err := s.expandDemand(req.TenantID, req.Lines)
	if err != nil {
		return nil, err
	}

	result := &DeductionResult{OrderID: req.OrderID}
	for _, d := range demand {
		movement, err := s.Ledger.Record(RecordMovementRequest{
			TenantID:      req.TenantID,
			ItemID:        d.ItemID,
			Type:          models.MovementReturnCustomer,
			Quantity:      d.Quantity,
			Unit:          d.Unit,
			ToLocationID:  &req.LocationID,
			ReferenceType: "ORDER",
			ReferenceID:   &req.OrderID,
			Actor:         req.Actor,
		})
		if err != nil {
			return result, err
		}
		result.Movements = append(result.Movements, *movement)
		result.TotalCost += movement.TotalCost
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Recipes.DeleteSalesForOrder(tx, req.TenantID, req.OrderID)
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// expandDemand resolves recipes and folds their bills of materials into one
// requirement per item, in the item's base unit.
func (s *OrderService) expandDemand(tenantID uuid.UUID, lines []OrderLineRequest) (map[uuid.UUID]*models.Recipe, []ingredientDemand, error) {
	recipes := make(map[uuid.UUID]*models.Recipe, len(lines))
	perItem := make(map[uuid.UUID]*ingredientDemand)
	order := make([]uuid.UUID, 0)

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, nil, validationErr("quantity", "line quantity must be positive")
		}
		recipe, ok := recipes[line.RecipeID]
		if !ok {
			loaded, err := s.Recipes.GetByID(tenantID, line.RecipeID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, notFoundErr("recipe", line.RecipeID)
			}
			if err != nil {
				return nil, nil, err
			}
			if !loaded.IsActive {
				return nil, nil, validationErr("recipe_id", "recipe is not active")
			}
			recipes[line.RecipeID] = loaded
			recipe = loaded
		}
		if len(recipe.Ingredients) == 0 {
			continue
		}

		yield := recipe.EffectiveYield
		if yield <= 0 {
			yield = recipe.TheoreticalYield
		}
		if yield <= 0 {
			yield = 1
		}

		for _, ing := range recipe.Ingredients {
			item, err := s.Items.GetByID(tenantID, ing.ItemID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, notFoundErr("inventory item", ing.ItemID)
			}
			if err != nil {
				return nil, nil, err
			}

			perServing := ing.Quantity / yield
			baseQty, err := item.ConvertToBase(perServing*line.Quantity, ing.Unit)
			if err != nil {
				return nil, nil, validationErr("unit", err.Error())
			}

			if d, ok := perItem[item.ID]; ok {
				d.Quantity += baseQty
			} else {
				perItem[item.ID] = &ingredientDemand{
					ItemID:   item.ID,
					Name:     item.Name,
					Unit:     item.BaseUnit,
					Quantity: baseQty,
				}
				order = append(order, item.ID)
			}
		}
	}

	demand := make([]ingredientDemand, 0, len(order))
	for _, id := range order {
		demand = append(demand, *perItem[id])
	}
	return recipes, demand, nil
}

// checkAvailability collects every shortfall so the caller sees the full
// picture in one response.
func (s *OrderService) checkAvailability(tenantID uuid.UUID, demand []ingredientDemand) error {
	var shortfalls []Shortfall
	for _, d := range demand {
		item, err := s.Items.GetByID(tenantID, d.ItemID)
		if err != nil {
			return err
		}
		available := item.TotalAvailable()
		if available+quantityEpsilon < d.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				ItemID:     d.ItemID,
				Ingredient: d.Name,
				Required:   d.Quantity,
				Available:  available,
				Unit:       d.Unit,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// compensate restocks movements already posted when a later step fails.
func (s *OrderService) compensate(tenantID uuid.UUID, posted []models.StockMovement, actor models.Actor) {
	reason := "order deduction rolled back"
	for i := range posted {
		if _, err := s.Ledger.Reverse(tenantID, posted[i].ID, actor, &reason); err != nil {
			logger.Log.Error().Err(err).
				Str("movement_id", posted[i].ID.String()).
				Msg("order deduction compensation failed, manual adjustment needed")
		}
	}
}
