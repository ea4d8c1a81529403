package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ REQUEST STRUCTS ============
type RecordWasteRequest struct {
	TenantID   uuid.UUID
	ItemID     uuid.UUID
	Type       models.MovementType // WASTE, DAMAGE, EXPIRED or THEFT
	Quantity   float64
	Unit       string
	LocationID uuid.UUID
	BatchID    *uuid.UUID
	Actor      models.Actor
	Reason     *string
}

type CycleCountRequest struct {
	TenantID        uuid.UUID
	ItemID          uuid.UUID
	LocationID      *uuid.UUID // nil counts the whole item
	CountedQuantity float64
	Actor           models.Actor
	Notes           *string
}

// CycleCountResult reports the outcome of a count. Movement is nil when the
// count matched the system quantity.
type CycleCountResult struct {
	Movement        *models.StockMovement `json:"movement,omitempty"`
	SystemQuantity  float64               `json:"system_quantity"`
	CountedQuantity float64               `json:"counted_quantity"`
	Variance        float64               `json:"variance"`
	VariancePercent float64               `json:"variance_percent"`
	Applied         bool                  `json:"applied"`
}

// ============ COUNT SERVICE ============
// CountService runs the waste and cycle-count workflow. Counts whose
// variance stays under the approval threshold apply immediately; larger
// variances persist as PENDING movements that leave stock untouched until
// an approver signs off.
type CountService struct {
	DB        *gorm.DB
	Items     *repositories.ItemRepository
	Movements *repositories.MovementRepository
	Ledger    *MovementService
	Cache     cache.ReportCache
	Cfg       config.CostingConfig
}

// RecordWaste writes the waste movement and refreshes the item's rolling
// waste percentage from the trailing window.
func (s *CountService) RecordWaste(req RecordWasteRequest) (*models.StockMovement, error) {
	if !req.Type.IsWaste() {
		if req.Type == "" {
			req.Type = models.MovementWaste
		} else {
			return nil, validationErr("type", "waste type must be WASTE, DAMAGE, EXPIRED or THEFT")
		}
	}
	if req.LocationID == uuid.Nil {
		return nil, validationErr("location_id", "location is required")
	}

	movement, err := s.Ledger.Record(RecordMovementRequest{
		TenantID:       req.TenantID,
		ItemID:         req.ItemID,
		Type:           req.Type,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		FromLocationID: &req.LocationID,
		BatchID:        req.BatchID,
		Actor:          req.Actor,
		Reason:         req.Reason,
	})
	if err != nil {
		return nil, err
	}

	if err := s.refreshWastePercentage(req.TenantID, req.ItemID); err != nil {
		logger.Log.Warn().Err(err).
			Str("item_id", req.ItemID.String()).
			Msg("waste percentage refresh failed")
	}

	return movement, nil
}

// refreshWastePercentage recomputes wasteQty/(usedQty+wasteQty) over the
// trailing window.
func (s *CountService) refreshWastePercentage(tenantID, itemID uuid.UUID) error {
	since := time.Now().AddDate(0, 0, -s.Cfg.WasteWindowDays)

	wasteQty, err := s.Movements.SumQuantity(tenantID, itemID,
		[]models.MovementType{models.MovementWaste, models.MovementDamage, models.MovementExpired, models.MovementTheft},
		since)
	if err != nil {
		return err
	}
	usedQty, err := s.Movements.SumQuantity(tenantID, itemID,
		[]models.MovementType{models.MovementSale, models.MovementProduction},
		since)
	if err != nil {
		return err
	}

	pct := 0.0
	if usedQty+wasteQty > 0 {
		pct = wasteQty / (usedQty + wasteQty)
	}

	return s.DB.Model(&models.InventoryItem{}).
		Where("tenant_id = ? AND id = ?", tenantID, itemID).
		Update("waste_percentage", pct).Error
}

// CycleCount reconciles a physical count against the system quantity. A
// zero variance only touches the count timestamp. Variances within the
// threshold auto-apply; larger ones are persisted PENDING and reported with
// an ApprovalRequiredError so callers know stock was not changed.
func (s *CountService) CycleCount(req CycleCountRequest) (*CycleCountResult, error) {
	if req.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if req.CountedQuantity < 0 {
		return nil, validationErr("counted_quantity", "counted quantity cannot be negative")
	}
	if req.Actor.IsZero() {
		return nil, validationErr("actor", "performing actor is required")
	}

	var result *CycleCountResult
	var approvalErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		approvalErr = nil
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			item, err := s.Items.GetByIDTx(tx, req.TenantID, req.ItemID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("inventory item", req.ItemID)
			}
			if err != nil {
				return err
			}

			if req.LocationID == nil && len(item.StockLevels) > 1 {
				return validationErr("location_id", "item is stocked in multiple locations, count each location separately")
			}

			system := item.TotalQuantity
			if req.LocationID != nil {
				level, lvlErr := s.Items.StockLevelTx(tx, req.TenantID, req.ItemID, *req.LocationID)
				if lvlErr != nil && !errors.Is(lvlErr, gorm.ErrRecordNotFound) {
					return lvlErr
				}
				system = 0
				if lvlErr == nil {
					system = level.Quantity
				}
			}

			variance := req.CountedQuantity - system
			variancePct := 100.0
			if system != 0 {
				variancePct = variance / system * 100
			} else if variance == 0 {
				variancePct = 0
			}

			result = &CycleCountResult{
				SystemQuantity:  system,
				CountedQuantity: req.CountedQuantity,
				Variance:        variance,
				VariancePercent: variancePct,
			}

			now := time.Now()
			item.LastCountedAt = &now

			if variance == 0 {
				// Count matched; only the timestamp moves.
				return s.Items.SaveAggregates(tx, item)
			}

			requiresApproval := math.Abs(variancePct) > s.Cfg.VarianceApprovalPercent
			counted := req.CountedQuantity
			movement := &models.StockMovement{
				TenantID:         req.TenantID,
				ItemID:           item.ID,
				Type:             models.MovementCycleCount,
				Quantity:         math.Abs(variance),
				Unit:             item.BaseUnit,
				FromLocationID:   req.LocationID,
				UnitCost:         item.CurrentCost,
				TotalCost:        math.Abs(variance) * item.CurrentCost,
				StockBefore:      system,
				StockAfter:       counted,
				CountedQuantity:  &counted,
				SystemQuantity:   &system,
				Variance:         &variance,
				VariancePercent:  &variancePct,
				RequiresApproval: requiresApproval,
				PerformedByType:  req.Actor.Type,
				PerformedByID:    req.Actor.UserID,
				Notes:            req.Notes,
				CreatedAt:        now,
			}

			if requiresApproval {
				movement.ApprovalStatus = models.ApprovalPending
				if err := s.Movements.Create(tx, movement); err != nil {
					return err
				}
				// Stock stays untouched until an approver acts.
				if err := s.Items.SaveAggregates(tx, item); err != nil {
					return err
				}
				result.Movement = movement
				approvalErr = &ApprovalRequiredError{MovementID: movement.ID, VariancePercent: variancePct}
				return nil
			}

			movement.ApprovalStatus = models.ApprovalApproved
			approvedAt := now
			movement.ApprovedAt = &approvedAt
			if err := s.Movements.Create(tx, movement); err != nil {
				return err
			}
			if err := s.applyCountTx(tx, item, movement); err != nil {
				return err
			}
			if err := s.Items.SaveAggregates(tx, item); err != nil {
				return err
			}
			result.Movement = movement
			result.Applied = true
			return nil
		})
		if errors.Is(err, repositories.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if result.Applied {
			s.invalidate(req.TenantID)
		}
		return result, approvalErr
	}
	return nil, &ConcurrencyConflictError{Entity: "inventory item", ID: req.ItemID}
}

// ApproveCycleCount applies a pending count: the stored counted quantity
// becomes the stock position.
func (s *CountService) ApproveCycleCount(tenantID, movementID uuid.UUID, approver models.Actor) (*models.StockMovement, error) {
	return s.resolveCycleCount(tenantID, movementID, approver, true)
}

// RejectCycleCount resolves a pending count without touching stock.
func (s *CountService) RejectCycleCount(tenantID, movementID uuid.UUID, approver models.Actor) (*models.StockMovement, error) {
	return s.resolveCycleCount(tenantID, movementID, approver, false)
}

func (s *CountService) resolveCycleCount(tenantID, movementID uuid.UUID, approver models.Actor, approve bool) (*models.StockMovement, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if approver.Type != models.ActorUser || approver.UserID == nil {
		return nil, validationErr("actor", "approval requires a user actor")
	}

	var movement *models.StockMovement
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err := s.DB.Transaction(func(tx *gorm.DB) error {
			m, err := s.Movements.GetByIDTx(tx, tenantID, movementID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("movement", movementID)
			}
			if err != nil {
				return err
			}
			if m.Type != models.MovementCycleCount || m.ApprovalStatus != models.ApprovalPending {
				return &InvalidStateTransitionError{
					Entity: "movement",
					From:   string(m.ApprovalStatus),
					To:     string(models.ApprovalApproved),
				}
			}

			now := time.Now()
			status := models.ApprovalApproved
			if !approve {
				status = models.ApprovalRejected
			}
			if err := tx.Model(&models.StockMovement{}).
				Where("id = ?", m.ID).
				Updates(map[string]interface{}{
					"approval_status": status,
					"approved_by":     approver.UserID,
					"approved_at":     now,
				}).Error; err != nil {
				return err
			}
			m.ApprovalStatus = status
			m.ApprovedBy = approver.UserID
			m.ApprovedAt = &now

			if approve {
				item, err := s.Items.GetByIDTx(tx, tenantID, m.ItemID)
				if err != nil {
					return err
				}
				if err := s.applyCountTx(tx, item, m); err != nil {
					return err
				}
				if err := s.Items.SaveAggregates(tx, item); err != nil {
					return err
				}
			}

			movement = m
			return nil
		})
		if errors.Is(err, repositories.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if approve {
			s.invalidate(tenantID)
		}
		return movement, nil
	}
	return nil, &ConcurrencyConflictError{Entity: "movement", ID: movementID}
}

// applyCountTx sets the counted absolute quantity on the scoped level and
// shifts the item aggregate by the variance. Whole-item counts are only
// accepted for items with at most one stock level, so the level always
// follows the aggregate. The item row is saved by the caller.
func (s *CountService) applyCountTx(tx *gorm.DB, item *models.InventoryItem, m *models.StockMovement) error {
	variance := 0.0
	if m.Variance != nil {
		variance = *m.Variance
	}

	if m.FromLocationID != nil {
		if m.CountedQuantity != nil {
			if err := s.Items.SetStockLevel(tx, m.TenantID, item.ID, *m.FromLocationID, *m.CountedQuantity); err != nil {
				return err
			}
		}
		item.TotalQuantity += variance
		return s.reconcileBatchesTx(tx, item, variance, m)
	}

	if m.CountedQuantity != nil {
		item.TotalQuantity = *m.CountedQuantity
		if len(item.StockLevels) == 1 {
			if err := s.Items.SetStockLevel(tx, m.TenantID, item.ID, item.StockLevels[0].LocationID, *m.CountedQuantity); err != nil {
				return err
			}
		}
	}
	return s.reconcileBatchesTx(tx, item, variance, m)
}

// reconcileBatchesTx keeps the batch store in step with an applied count so
// the non-quarantined batch sum still matches the aggregate. Shrinkage
// consumes batches in the item's costing order; surplus lands on a fresh
// batch priced at the current cost.
func (s *CountService) reconcileBatchesTx(tx *gorm.DB, item *models.InventoryItem, variance float64, m *models.StockMovement) error {
	if !item.BatchTracked || variance == 0 {
		return nil
	}

	if variance < 0 {
		newestFirst := item.CostingMethod == models.CostingLIFO
		batches, err := s.Ledger.Batches.ActiveBatches(tx, item.TenantID, item.ID, newestFirst)
		if err != nil {
			return err
		}
		return s.Ledger.consumeAllocations(tx, batches, -variance)
	}

	surplus := &models.Batch{
		TenantID:    item.TenantID,
		ItemID:      item.ID,
		BatchNumber: fmt.Sprintf("COUNT-%s", m.ID.String()[:8]),
		Quantity:    variance,
		UnitCost:    item.CurrentCost,
		ReceivedAt:  time.Now(),
		IsActive:    true,
	}
	return s.Ledger.Batches.Create(tx, surplus)
}

func (s *CountService) invalidate(tenantID uuid.UUID) {
	if err := s.Cache.InvalidateTenant(context.Background(), tenantID); err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("report cache invalidation failed")
	}
}
