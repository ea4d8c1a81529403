package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// Retries for the optimistic version check before giving up.
const maxConflictRetries = 3

// quantityEpsilon absorbs float residue when deciding a batch is empty.
const quantityEpsilon = 1e-9

// ============ REQUEST STRUCTS ============
type RecordMovementRequest struct {
	TenantID uuid.UUID
	ItemID   uuid.UUID
	Type     models.MovementType

	// Positive except for ADJUSTMENT, which carries its own sign.
	Quantity float64
	Unit     string

	FromLocationID *uuid.UUID
	ToLocationID   *uuid.UUID
	BatchID        *uuid.UUID

	// Optional cost override; resolved through the costing engine when nil.
	UnitCost *float64

	ReferenceType string
	ReferenceID   *uuid.UUID

	Actor  models.Actor
	Reason *string
	Notes  *string
}

// ============ MOVEMENT SERVICE ============
// MovementService is the stock movement ledger: the single write path for
// every quantity-affecting event. Each accepted movement snapshots the stock
// position, applies the delta to the item aggregate, the location level and
// the batch store in one transaction, and appends an immutable entry.
type MovementService struct {
	DB        *gorm.DB
	Items     *repositories.ItemRepository
	Batches   *repositories.BatchRepository
	Movements *repositories.MovementRepository
	Cache     cache.ReportCache
	Costing   CostingEngine
}

// Record validates, prices, applies and persists one movement. Lost updates
// detected by the item version check are retried a few times before
// surfacing a conflict.
func (s *MovementService) Record(req RecordMovementRequest) (*models.StockMovement, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	var movement *models.StockMovement
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var txErr error
			movement, txErr = s.applyTx(tx, req)
			return txErr
		})
		if errors.Is(err, repositories.ErrVersionConflict) {
			logger.Log.Warn().
				Str("item_id", req.ItemID.String()).
				Int("attempt", attempt+1).
				Msg("movement hit version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.invalidateReports(req.TenantID)
		return movement, nil
	}
	return nil, &ConcurrencyConflictError{Entity: "inventory item", ID: req.ItemID}
}

// Reverse compensates a movement: it appends a new entry with the negated
// delta and swapped locations, and marks the original reversed. History is
// never deleted.
func (s *MovementService) Reverse(tenantID, movementID uuid.UUID, actor models.Actor, reason *string) (*models.StockMovement, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}

	var reversal *models.StockMovement
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			original, err := s.Movements.GetByIDTx(tx, tenantID, movementID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("movement", movementID)
			}
			if err != nil {
				return err
			}
			if original.IsReversed {
				return &InvalidStateTransitionError{Entity: "movement", From: "REVERSED", To: "REVERSED"}
			}
			if original.ApprovalStatus == models.ApprovalPending {
				return &InvalidStateTransitionError{Entity: "movement", From: "PENDING", To: "REVERSED"}
			}

			revReq := RecordMovementRequest{
				TenantID:       tenantID,
				ItemID:         original.ItemID,
				FromLocationID: original.ToLocationID,
				ToLocationID:   original.FromLocationID,
				BatchID:        original.BatchID,
				UnitCost:       &original.UnitCost,
				ReferenceType:  "REVERSAL",
				ReferenceID:    &original.ID,
				Actor:          actor,
				Reason:         reason,
			}
			if original.Type == models.MovementTransfer {
				revReq.Type = models.MovementTransfer
				revReq.Quantity = original.Quantity
			} else {
				revReq.Type = models.MovementAdjustment
				revReq.Quantity = -original.SignedDelta()
			}

			rev, err := s.applyTx(tx, revReq)
			if err != nil {
				return err
			}
			rev.ReversalOf = &original.ID
			if err := tx.Model(&models.StockMovement{}).
				Where("id = ?", rev.ID).
				Update("reversal_of", original.ID).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.StockMovement{}).
				Where("id = ?", original.ID).
				Updates(map[string]interface{}{
					"is_reversed":        true,
					"reversal_reference": rev.ID,
				}).Error; err != nil {
				return err
			}

			reversal = rev
			return nil
		})
		if errors.Is(err, repositories.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		s.invalidateReports(tenantID)
		return reversal, nil
	}
	return nil, &ConcurrencyConflictError{Entity: "movement", ID: movementID}
}

func (s *MovementService) GetMovements(tenantID uuid.UUID, filter repositories.MovementFilter, page, limit int) ([]models.StockMovement, int64, error) {
	if tenantID == uuid.Nil {
		return nil, 0, validationErr("tenant_id", "tenant context is required")
	}
	return s.Movements.List(tenantID, filter, page, limit)
}

// ============ VALIDATION ============
func (s *MovementService) validate(req *RecordMovementRequest) error {
	switch {
	case req.TenantID == uuid.Nil:
		return validationErr("tenant_id", "tenant context is required")
	case req.ItemID == uuid.Nil:
		return validationErr("item_id", "item is required")
	case !req.Type.IsValid():
		return validationErr("type", "unknown movement type")
	case req.Type == models.MovementCycleCount:
		return validationErr("type", "cycle counts are recorded through the count workflow")
	case req.Quantity == 0:
		return validationErr("quantity", "quantity cannot be zero")
	case req.Quantity < 0 && req.Type != models.MovementAdjustment:
		return validationErr("quantity", "quantity must be positive")
	case req.Actor.IsZero():
		return validationErr("actor", "performing actor is required")
	}

	if req.Type == models.MovementTransfer {
		if req.FromLocationID == nil || req.ToLocationID == nil {
			return validationErr("location", "transfer requires both source and destination locations")
		}
		if *req.FromLocationID == *req.ToLocationID {
			return validationErr("location", "transfer source and destination must differ")
		}
	}
	if req.Type.IsOutgoing() && req.FromLocationID == nil {
		return validationErr("from_location_id", "outgoing movement requires a source location")
	}
	if req.Type.IsIncoming() && req.ToLocationID == nil {
		return validationErr("to_location_id", "incoming movement requires a destination location")
	}
	if req.Type == models.MovementAdjustment {
		if req.Quantity > 0 && req.ToLocationID == nil {
			return validationErr("to_location_id", "positive adjustment requires a destination location")
		}
		if req.Quantity < 0 && req.FromLocationID == nil {
			return validationErr("from_location_id", "negative adjustment requires a source location")
		}
	}
	return nil
}

// ============ TRANSACTIONAL CORE ============
// applyTx runs the full movement pipeline inside the caller's transaction:
// snapshot, cost, batch consumption, aggregate and level updates, append.
// Receiving and the order workflows call it to fold movements into their own
// unit of work.
func (s *MovementService) applyTx(tx *gorm.DB, req RecordMovementRequest) (*models.StockMovement, error) {
	item, err := s.Items.GetByIDTx(tx, req.TenantID, req.ItemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("inventory item", req.ItemID)
	}
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, validationErr("item_id", "item is deactivated")
	}

	qty, err := item.ConvertToBase(math.Abs(req.Quantity), req.Unit)
	if err != nil {
		return nil, validationErr("unit", err.Error())
	}
	if req.Quantity < 0 {
		qty = -qty
	}

	delta := signedDelta(req.Type, qty)

	if req.Type == models.MovementTransfer {
		level, lvlErr := s.Items.StockLevelTx(tx, req.TenantID, req.ItemID, *req.FromLocationID)
		available := 0.0
		if lvlErr == nil {
			available = level.Available()
		} else if !errors.Is(lvlErr, gorm.ErrRecordNotFound) {
			return nil, lvlErr
		}
		if available+quantityEpsilon < qty {
			return nil, &InsufficientStockError{Shortfalls: []Shortfall{{
				ItemID:     item.ID,
				Ingredient: item.Name,
				Required:   qty,
				Available:  available,
				Unit:       item.BaseUnit,
			}}}
		}
	}

	if delta < 0 && item.TotalAvailable()+delta < -quantityEpsilon {
		return nil, &InsufficientStockError{Shortfalls: []Shortfall{{
			ItemID:     item.ID,
			Ingredient: item.Name,
			Required:   -delta,
			Available:  item.TotalAvailable(),
			Unit:       item.BaseUnit,
		}}}
	}

	unitCost, batches, err := s.resolveCost(tx, item, req, qty, delta)
	if err != nil {
		return nil, err
	}

	stockBefore := item.TotalQuantity
	stockAfter := stockBefore + delta

	if err := s.applyBatchEffects(tx, item, req, qty, delta, batches); err != nil {
		return nil, err
	}

	if err := s.applyLocationEffects(tx, req, qty, delta); err != nil {
		return nil, err
	}

	item.TotalQuantity = stockAfter
	s.applyCostEffects(tx, item, req.Type, qty, unitCost)

	if err := s.Items.SaveAggregates(tx, item); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		TenantID:        req.TenantID,
		ItemID:          item.ID,
		Type:            req.Type,
		Quantity:        qty,
		Unit:            item.BaseUnit,
		FromLocationID:  req.FromLocationID,
		ToLocationID:    req.ToLocationID,
		BatchID:         req.BatchID,
		UnitCost:        unitCost,
		TotalCost:       math.Abs(qty) * unitCost,
		StockBefore:     stockBefore,
		StockAfter:      stockAfter,
		ApprovalStatus:  models.ApprovalNone,
		ReferenceType:   req.ReferenceType,
		ReferenceID:     req.ReferenceID,
		PerformedByType: req.Actor.Type,
		PerformedByID:   req.Actor.UserID,
		Reason:          req.Reason,
		Notes:           req.Notes,
		CreatedAt:       time.Now(),
	}

	if err := s.Movements.Create(tx, movement); err != nil {
		return nil, err
	}

	return movement, nil
}

func signedDelta(t models.MovementType, qty float64) float64 {
	switch {
	case t == models.MovementTransfer:
		return 0
	case t == models.MovementAdjustment:
		return qty
	case t.IsIncoming():
		return qty
	case t.IsOutgoing():
		return -qty
	}
	return 0
}

// resolveCost picks the unit cost: the caller's override, or the costing
// engine over the item's consumable batches for outgoing movements, or the
// current cost.
func (s *MovementService) resolveCost(tx *gorm.DB, item *models.InventoryItem, req RecordMovementRequest, qty, delta float64) (float64, []models.Batch, error) {
	var batches []models.Batch
	var err error
	if item.BatchTracked {
		newestFirst := item.CostingMethod == models.CostingLIFO
		batches, err = s.Batches.ActiveBatches(tx, req.TenantID, item.ID, newestFirst)
		if err != nil {
			return 0, nil, err
		}
	}

	if req.UnitCost != nil {
		return *req.UnitCost, batches, nil
	}
	if delta < 0 {
		if item.CostingMethod == models.CostingSpecific && req.BatchID != nil {
			for _, b := range batches {
				if b.ID == *req.BatchID {
					return b.UnitCost, batches, nil
				}
			}
		}
		return s.Costing.ResolveUnitCost(item, batches, -delta), batches, nil
	}
	return item.CurrentCost, batches, nil
}

// applyBatchEffects consumes or fills batches for batch-tracked items. A
// consumed batch is deactivated when its quantity reaches zero. Incoming
// quantities land on the referenced batch: batches are created empty by
// receiving, and the PURCHASE movement is the single write that fills them.
func (s *MovementService) applyBatchEffects(tx *gorm.DB, item *models.InventoryItem, req RecordMovementRequest, qty, delta float64, batches []models.Batch) error {
	if !item.BatchTracked || delta == 0 {
		return nil
	}

	if delta < 0 {
		consume := -delta
		if item.CostingMethod == models.CostingSpecific && req.BatchID != nil {
			return s.consumeSpecificBatch(tx, req, consume)
		}
		return s.consumeAllocations(tx, batches, consume)
	}

	if req.BatchID == nil {
		return nil
	}
	batch, err := s.Batches.GetByIDTx(tx, req.TenantID, *req.BatchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr("batch", *req.BatchID)
	}
	if err != nil {
		return err
	}
	batch.Quantity += delta
	batch.IsActive = true
	return s.Batches.Save(tx, batch)
}

// consumeAllocations walks an allocation plan over the given batches,
// decrementing quantities and retiring batches that reach zero.
func (s *MovementService) consumeAllocations(tx *gorm.DB, batches []models.Batch, consume float64) error {
	allocations, _ := s.Costing.Allocate(batches, consume)
	for _, a := range allocations {
		for i := range batches {
			if batches[i].ID != a.BatchID {
				continue
			}
			batches[i].Quantity -= a.Quantity
			if batches[i].Quantity <= quantityEpsilon {
				batches[i].Quantity = 0
				batches[i].IsActive = false
			}
			if err := s.Batches.Save(tx, &batches[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *MovementService) consumeSpecificBatch(tx *gorm.DB, req RecordMovementRequest, consume float64) error {
	batch, err := s.Batches.GetByIDTx(tx, req.TenantID, *req.BatchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr("batch", *req.BatchID)
	}
	if err != nil {
		return err
	}
	if batch.Quantity+quantityEpsilon < consume {
		return &InsufficientStockError{Shortfalls: []Shortfall{{
			ItemID:    req.ItemID,
			Required:  consume,
			Available: batch.Quantity,
		}}}
	}
	batch.Quantity -= consume
	if batch.Quantity <= quantityEpsilon {
		batch.Quantity = 0
		batch.IsActive = false
	}
	return s.Batches.Save(tx, batch)
}

func (s *MovementService) applyLocationEffects(tx *gorm.DB, req RecordMovementRequest, qty, delta float64) error {
	if req.Type == models.MovementTransfer {
		if err := s.Items.AdjustStockLevel(tx, req.TenantID, req.ItemID, *req.FromLocationID, -qty); err != nil {
			return err
		}
		return s.Items.AdjustStockLevel(tx, req.TenantID, req.ItemID, *req.ToLocationID, qty)
	}
	if delta > 0 && req.ToLocationID != nil {
		return s.Items.AdjustStockLevel(tx, req.TenantID, req.ItemID, *req.ToLocationID, delta)
	}
	if delta < 0 && req.FromLocationID != nil {
		return s.Items.AdjustStockLevel(tx, req.TenantID, req.ItemID, *req.FromLocationID, delta)
	}
	return nil
}

// applyCostEffects maintains the item's cost fields. Purchases refresh the
// current and last purchase cost; the running average follows either the
// batch store or, for untracked items, the incremental weighted formula.
func (s *MovementService) applyCostEffects(tx *gorm.DB, item *models.InventoryItem, t models.MovementType, qty, unitCost float64) {
	if t == models.MovementPurchase {
		item.LastPurchaseCost = unitCost
		item.CurrentCost = unitCost
	}

	if item.BatchTracked {
		newestFirst := item.CostingMethod == models.CostingLIFO
		if batches, err := s.Batches.ActiveBatches(tx, item.TenantID, item.ID, newestFirst); err == nil {
			if avg := WeightedAverageCost(batches); avg > 0 {
				item.AverageCost = avg
			}
		}
		return
	}

	// Untracked incoming stock folds into the running average.
	if t.IsIncoming() && item.TotalQuantity > 0 {
		prevQty := item.TotalQuantity - qty
		if prevQty < 0 {
			prevQty = 0
		}
		item.AverageCost = (prevQty*item.AverageCost + qty*unitCost) / (prevQty + qty)
	}
}

func (s *MovementService) invalidateReports(tenantID uuid.UUID) {
	if err := s.Cache.InvalidateTenant(context.Background(), tenantID); err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("report cache invalidation failed")
	}
}
