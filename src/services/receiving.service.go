package services

import (
	"context"
	"errors"
	"fmt"
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
type ReceiveLineRequest struct {
	LineID      uuid.UUID
	Quantity    float64
	BatchNumber string
	ExpiryDate  *time.Time
	UnitCost    *float64 // overrides the line price when the invoice differs

	// QCPassed carries the dock-side quality result: true posts the stock
	// immediately even on a QC-flagged line, false quarantines it, nil
	// falls back to the line's QCRequired flag.
	QCPassed *bool
}

type ReceiveRequest struct {
	TenantID   uuid.UUID
	OrderID    uuid.UUID
	LocationID uuid.UUID
	Actor      models.Actor
	Reference  *string
	Lines      []ReceiveLineRequest
}

// ReceiptResult reports per-line outcomes of one receiving session.
type ReceiptResult struct {
	Order       *models.PurchaseOrder `json:"order"`
	Movements   []models.StockMovement `json:"movements"`
	Quarantined []models.Batch         `json:"quarantined"`
}

// ============ RECEIVING SERVICE ============
// ReceivingService books goods against purchase orders. Lines flagged for
// quality control land in quarantined batches that hold no stock until
// released; everything else posts a PURCHASE movement immediately.
type ReceivingService struct {
	DB        *gorm.DB
	Orders    *repositories.PurchaseOrderRepository
	Items     *repositories.ItemRepository
	Batches   *repositories.BatchRepository
	Suppliers *repositories.SupplierRepository
	Ledger    *MovementService
	Cache     cache.ReportCache
	Cfg       config.CostingConfig
}

// quarantineOnArrival decides whether a received line's stock is held for
// quality control. An explicit dock-side result wins; without one the
// line's QC flag applies.
func quarantineOnArrival(line *models.PurchaseOrderLine, qcPassed *bool) bool {
	if qcPassed != nil {
		return !*qcPassed
	}
	return line.QCRequired
}

// Receive books the given lines atomically. Either every line posts or none
// does.
func (s *ReceivingService) Receive(req ReceiveRequest) (*ReceiptResult, error) {
	if req.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if req.LocationID == uuid.Nil {
		return nil, validationErr("location_id", "receiving location is required")
	}
	if len(req.Lines) == 0 {
		return nil, validationErr("lines", "at least one line is required")
	}
	if req.Actor.IsZero() {
		return nil, validationErr("actor", "performing actor is required")
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, validationErr(fmt.Sprintf("lines[%d].quantity", i), "quantity must be positive")
		}
	}

	var result *ReceiptResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		po, err := s.Orders.GetByIDTx(tx, req.TenantID, req.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", req.OrderID)
		}
		if err != nil {
			return err
		}
		if !po.Status.CanReceive() {
			return &InvalidStateTransitionError{
				Entity: "purchase order",
				From:   string(po.Status),
				To:     string(models.POStatusPartialReceived),
			}
		}

		result = &ReceiptResult{}

		lineByID := make(map[uuid.UUID]*models.PurchaseOrderLine, len(po.Lines))
		for i := range po.Lines {
			lineByID[po.Lines[i].ID] = &po.Lines[i]
		}

		receivedAt := time.Now()
		for _, rl := range req.Lines {
			line, ok := lineByID[rl.LineID]
			if !ok {
				return notFoundErr("purchase order line", rl.LineID)
			}
			if rl.Quantity > line.Outstanding()+quantityEpsilon {
				return validationErr("quantity",
					fmt.Sprintf("receipt of %.3f exceeds outstanding %.3f on line %s", rl.Quantity, line.Outstanding(), line.ID))
			}

			unitCost := line.UnitPrice
			if rl.UnitCost != nil {
				unitCost = *rl.UnitCost
			}

			batchNumber := rl.BatchNumber
			if batchNumber == "" {
				batchNumber = fmt.Sprintf("%s-%s", po.OrderNumber, line.ID.String()[:8])
			}

			quarantine := quarantineOnArrival(line, rl.QCPassed)

			// Batches start empty so only the movement writes stock.
			batch := &models.Batch{
				TenantID:        req.TenantID,
				ItemID:          line.ItemID,
				BatchNumber:     batchNumber,
				Quantity:        0,
				UnitCost:        unitCost,
				ReceivedAt:      receivedAt,
				ExpiryDate:      rl.ExpiryDate,
				SupplierID:      &po.SupplierID,
				PurchaseOrderID: &po.ID,
				Quarantined:     quarantine,
				IsActive:        true,
			}
			if err := s.Batches.Create(tx, batch); err != nil {
				return err
			}

			if quarantine {
				// Quarantined stock holds quantity on the batch only and
				// does not count as received; both happen when quality
				// releases it.
				batch.Quantity = rl.Quantity
				if err := s.Batches.Save(tx, batch); err != nil {
					return err
				}
				result.Quarantined = append(result.Quarantined, *batch)
			} else {
				movement, err := s.Ledger.applyTx(tx, RecordMovementRequest{
					TenantID:      req.TenantID,
					ItemID:        line.ItemID,
					Type:          models.MovementPurchase,
					Quantity:      rl.Quantity,
					Unit:          line.Unit,
					ToLocationID:  &req.LocationID,
					BatchID:       &batch.ID,
					UnitCost:      &unitCost,
					ReferenceType: "PURCHASE_ORDER",
					ReferenceID:   &po.ID,
					Actor:         req.Actor,
					Notes:         req.Reference,
				})
				if err != nil {
					return err
				}
				result.Movements = append(result.Movements, *movement)

				line.ReceivedQuantity += rl.Quantity
				line.Status = DeriveLineStatus(line)
				if err := s.Orders.SaveLine(tx, line); err != nil {
					return err
				}
			}
		}

		if err := s.refreshOrderTx(tx, po, receivedAt); err != nil {
			return err
		}

		result.Order = po
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(req.TenantID)
	return result, nil
}

// ReleaseQuarantine passes quality control on a batch: the held quantity
// posts to the ledger as a PURCHASE, counts toward the order line's received
// quantity, and the batch leaves quarantine.
func (s *ReceivingService) ReleaseQuarantine(tenantID, batchID uuid.UUID, locationID uuid.UUID, actor models.Actor) (*models.StockMovement, error) {
	if locationID == uuid.Nil {
		return nil, validationErr("location_id", "release location is required")
	}

	var movement *models.StockMovement
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		batch, err := s.Batches.GetByIDTx(tx, tenantID, batchID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("batch", batchID)
		}
		if err != nil {
			return err
		}
		if !batch.Quarantined {
			return &InvalidStateTransitionError{Entity: "batch", From: "RELEASED", To: "RELEASED"}
		}

		held := batch.Quantity
		batch.Quarantined = false
		batch.QualityChecked = true
		// The movement restores the quantity; zero it first so the batch
		// is not counted twice.
		batch.Quantity = 0
		if err := s.Batches.Save(tx, batch); err != nil {
			return err
		}

		item, err := s.Items.GetByIDTx(tx, tenantID, batch.ItemID)
		if err != nil {
			return err
		}
		m, err := s.Ledger.applyTx(tx, RecordMovementRequest{
			TenantID:      tenantID,
			ItemID:        batch.ItemID,
			Type:          models.MovementPurchase,
			Quantity:      held,
			Unit:          item.BaseUnit,
			ToLocationID:  &locationID,
			BatchID:       &batch.ID,
			UnitCost:      &batch.UnitCost,
			ReferenceType: "QUALITY_RELEASE",
			ReferenceID:   &batch.ID,
			Actor:         actor,
		})
		if err != nil {
			return err
		}

		if batch.PurchaseOrderID != nil {
			po, err := s.Orders.GetByIDTx(tx, tenantID, *batch.PurchaseOrderID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil {
				for i := range po.Lines {
					line := &po.Lines[i]
					if line.ItemID != batch.ItemID {
						continue
					}
					line.ReceivedQuantity += held
					line.Status = DeriveLineStatus(line)
					if err := s.Orders.SaveLine(tx, line); err != nil {
						return err
					}
					break
				}
				if err := s.refreshOrderTx(tx, po, time.Now()); err != nil {
					return err
				}
			}
		}

		movement = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(tenantID)
	return movement, nil
}

// RejectQuarantine fails quality control. The held quantity never reached
// the ledger or the line's received quantity, so the batch is simply
// retired and the shortfall stays outstanding on the order.
func (s *ReceivingService) RejectQuarantine(tenantID, batchID uuid.UUID, reason string) (*models.Batch, error) {
	var rejected *models.Batch
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		batch, err := s.Batches.GetByIDTx(tx, tenantID, batchID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("batch", batchID)
		}
		if err != nil {
			return err
		}
		if !batch.Quarantined {
			return &InvalidStateTransitionError{Entity: "batch", From: "RELEASED", To: "REJECTED"}
		}

		held := batch.Quantity
		batch.Quarantined = false
		batch.QualityChecked = true
		batch.Quantity = 0
		batch.IsActive = false
		if err := s.Batches.Save(tx, batch); err != nil {
			return err
		}

		if batch.PurchaseOrderID != nil {
			po, err := s.Orders.GetByIDTx(tx, tenantID, *batch.PurchaseOrderID)
			if err == nil {
				if err := s.recordSupplierDefect(tx, po.TenantID, po.SupplierID); err != nil {
					return err
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		logger.Log.Info().
			Str("batch_id", batch.ID.String()).
			Float64("quantity", held).
			Str("reason", reason).
			Msg("quarantined batch rejected")

		rejected = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// refreshOrderTx recomputes the order's derived receiving state after any
// receipt or quality release. Completion sets the payment due date and
// scores the supplier once.
func (s *ReceivingService) refreshOrderTx(tx *gorm.DB, po *models.PurchaseOrder, receivedAt time.Time) error {
	po.ReceivingStatus = DeriveReceivingStatus(po.Lines)
	previous := po.Status
	switch po.ReceivingStatus {
	case models.ReceivingComplete:
		po.Status = models.POStatusReceived
		if po.PaymentDueAt == nil {
			due := receivedAt.AddDate(0, 0, s.Cfg.PaymentTermsDays)
			po.PaymentDueAt = &due
		}
	case models.ReceivingPartial:
		if po.Status != models.POStatusDisputed {
			po.Status = models.POStatusPartialReceived
		}
	}
	if err := s.Orders.Save(tx, po); err != nil {
		return err
	}

	if po.Status == models.POStatusReceived && previous != models.POStatusReceived {
		return s.recordSupplierDelivery(tx, po, receivedAt)
	}
	return nil
}

// recordSupplierDelivery scores a completed order against its required date.
func (s *ReceivingService) recordSupplierDelivery(tx *gorm.DB, po *models.PurchaseOrder, completedAt time.Time) error {
	supplier, err := s.Suppliers.GetByID(po.TenantID, po.SupplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	supplier.TotalOrders++
	if po.RequiredDate == nil || !completedAt.After(*po.RequiredDate) {
		supplier.OnTimeOrders++
	}
	supplier.OnTimeRate = float64(supplier.OnTimeOrders) / float64(supplier.TotalOrders)
	supplier.RiskLevel = supplier.ComputeRisk()
	return s.Suppliers.Save(tx, supplier)
}

// recordSupplierDefect nudges the defect rate up after a quality rejection.
func (s *ReceivingService) recordSupplierDefect(tx *gorm.DB, tenantID, supplierID uuid.UUID) error {
	supplier, err := s.Suppliers.GetByID(tenantID, supplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	orders := supplier.TotalOrders
	if orders == 0 {
		orders = 1
	}
	supplier.DefectRate = (supplier.DefectRate*float64(orders) + 1) / float64(orders+1)
	supplier.RiskLevel = supplier.ComputeRisk()
	return s.Suppliers.Save(tx, supplier)
}

func (s *ReceivingService) invalidate(tenantID uuid.UUID) {
	if err := s.Cache.InvalidateTenant(context.Background(), tenantID); err != nil {
		logger.Log.Warn().Err(err).Str("tenant_id", tenantID.String()).Msg("report cache invalidation failed")
	}
}
