package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/config"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ REQUEST STRUCTS ============
type CreateOrderLineRequest struct {
	ItemID     uuid.UUID
	Quantity   float64
	Unit       string
	UnitPrice  *float64 // falls back to the supplier listing, then item cost
	QCRequired bool
}

type CreateOrderRequest struct {
	TenantID     uuid.UUID
	SupplierID   uuid.UUID
	RequiredDate *time.Time
	Notes        *string
	Actor        models.Actor
	Lines        []CreateOrderLineRequest
}

type PayOrderRequest struct {
	TenantID  uuid.UUID
	OrderID   uuid.UUID
	Amount    float64
	Method    string
	Reference *string
}

// ============ DERIVED STATUS ============

// DeriveLineStatus folds received quantity into a line state.
func DeriveLineStatus(line *models.PurchaseOrderLine) models.POLineStatus {
	if line.Status == models.POLineCancelled {
		return models.POLineCancelled
	}
	switch {
	case line.ReceivedQuantity <= 0:
		return models.POLinePending
	case line.ReceivedQuantity+quantityEpsilon < line.Quantity:
		return models.POLinePartial
	default:
		return models.POLineReceived
	}
}

// DeriveReceivingStatus folds line states into the order's receiving state.
// Cancelled lines do not block completion.
func DeriveReceivingStatus(lines []models.PurchaseOrderLine) models.ReceivingStatus {
	anyReceived := false
	allDone := true
	for i := range lines {
		if lines[i].Status == models.POLineCancelled {
			continue
		}
		if lines[i].ReceivedQuantity > 0 {
			anyReceived = true
		}
		if lines[i].ReceivedQuantity+quantityEpsilon < lines[i].Quantity {
			allDone = false
		}
	}
	switch {
	case anyReceived && allDone:
		return models.ReceivingComplete
	case anyReceived:
		return models.ReceivingPartial
	default:
		return models.ReceivingNotReceived
	}
}

// DerivePaymentStatus compares recorded payments against the order total
// and the payment due date.
func DerivePaymentStatus(po *models.PurchaseOrder, now time.Time) models.PaymentStatus {
	paid := 0.0
	for i := range po.Payments {
		paid += po.Payments[i].Amount
	}
	switch {
	case paid+quantityEpsilon >= po.Total && po.Total > 0:
		return models.PaymentPaid
	case po.PaymentDueAt != nil && now.After(*po.PaymentDueAt):
		return models.PaymentOverdue
	case paid > 0:
		return models.PaymentPartial
	default:
		return models.PaymentUnpaid
	}
}

// ============ PURCHASE ORDER SERVICE ============
// PurchaseOrderService drives an order through its lifecycle. Transitions
// go through PurchaseOrderStatus.CanTransitionTo so the state machine lives
// in one place.
type PurchaseOrderService struct {
	DB        *gorm.DB
	Orders    *repositories.PurchaseOrderRepository
	Items     *repositories.ItemRepository
	Suppliers *repositories.SupplierRepository
	Ledger    *MovementService
	Cfg       config.CostingConfig
}

// Create builds a DRAFT order. Line prices default to the supplier listing
// for the item, then the item's current cost.
func (s *PurchaseOrderService) Create(req CreateOrderRequest) (*models.PurchaseOrder, error) {
	if req.TenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}
	if req.SupplierID == uuid.Nil {
		return nil, validationErr("supplier_id", "supplier is required")
	}
	if len(req.Lines) == 0 {
		return nil, validationErr("lines", "at least one line is required")
	}
	if req.Actor.IsZero() {
		return nil, validationErr("actor", "creating actor is required")
	}

	supplier, err := s.Suppliers.GetByID(req.TenantID, req.SupplierID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("supplier", req.SupplierID)
	}
	if err != nil {
		return nil, err
	}

	var po *models.PurchaseOrder
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		po = &models.PurchaseOrder{
			TenantID:      req.TenantID,
			SupplierID:    supplier.ID,
			Status:        models.POStatusDraft,
			OrderDate:     now,
			RequiredDate:  req.RequiredDate,
			Notes:         req.Notes,
			CreatedByType: req.Actor.Type,
			CreatedByID:   req.Actor.UserID,
		}
		if po.RequiredDate == nil && supplier.LeadTimeDays > 0 {
			required := now.AddDate(0, 0, supplier.LeadTimeDays)
			po.RequiredDate = &required
		}

		seq, err := s.Orders.CountForTenant(tx, req.TenantID)
		if err != nil {
			return err
		}
		po.OrderNumber = fmt.Sprintf("PO-%s-%05d", now.Format("200601"), seq+1)

		for i, rl := range req.Lines {
			if rl.Quantity <= 0 {
				return validationErr(fmt.Sprintf("lines[%d].quantity", i), "quantity must be positive")
			}
			item, err := s.Items.GetByIDTx(tx, req.TenantID, rl.ItemID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundErr("inventory item", rl.ItemID)
			}
			if err != nil {
				return err
			}

			price := item.CurrentCost
			if listing, err := s.Suppliers.Listing(supplier.ID, item.ID); err == nil {
				price = listing.Cost
			}
			if rl.UnitPrice != nil {
				price = *rl.UnitPrice
			}

			unit := rl.Unit
			if unit == "" {
				unit = item.BaseUnit
			}

			po.Lines = append(po.Lines, models.PurchaseOrderLine{
				ItemID:     item.ID,
				Quantity:   rl.Quantity,
				Unit:       unit,
				UnitPrice:  price,
				QCRequired: rl.QCRequired,
				Status:     models.POLinePending,
			})
			po.Subtotal += rl.Quantity * price
		}
		po.Total = po.Subtotal

		return s.Orders.Create(tx, po)
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Info().
		Str("order_number", po.OrderNumber).
		Str("supplier_id", supplier.ID.String()).
		Float64("total", po.Total).
		Msg("purchase order created")
	return po, nil
}

// Submit moves a DRAFT into the approval queue.
func (s *PurchaseOrderService) Submit(tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(tenantID, orderID, models.POStatusPendingApproval, nil)
}

// Approve records one approval level. The order advances to APPROVED once
// the configured number of levels have signed off.
func (s *PurchaseOrderService) Approve(tenantID, orderID uuid.UUID, approver models.Actor, comment *string) (*models.PurchaseOrder, error) {
	if approver.Type != models.ActorUser || approver.UserID == nil {
		return nil, validationErr("actor", "approval requires a user actor")
	}

	var po *models.PurchaseOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.Orders.GetByIDTx(tx, tenantID, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", orderID)
		}
		if err != nil {
			return err
		}
		if current.Status != models.POStatusPendingApproval {
			return &InvalidStateTransitionError{
				Entity: "purchase order",
				From:   string(current.Status),
				To:     string(models.POStatusApproved),
			}
		}

		granted := 0
		for i := range current.Approvals {
			if current.Approvals[i].Approved {
				granted++
			}
			if current.Approvals[i].ApproverID == *approver.UserID && current.Approvals[i].Approved {
				return validationErr("actor", "approver has already signed off on this order")
			}
		}

		approval := &models.PurchaseOrderApproval{
			OrderID:    current.ID,
			Level:      granted + 1,
			ApproverID: *approver.UserID,
			Approved:   true,
			Comment:    comment,
			DecidedAt:  time.Now(),
		}
		if err := s.Orders.AddApproval(tx, approval); err != nil {
			return err
		}

		if granted+1 >= s.Cfg.ApprovalLevels {
			current.Status = models.POStatusApproved
			if err := s.Orders.Save(tx, current); err != nil {
				return err
			}
		}
		current.Approvals = append(current.Approvals, *approval)
		po = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// Reject sends a pending order back to DRAFT for rework.
func (s *PurchaseOrderService) Reject(tenantID, orderID uuid.UUID, approver models.Actor, comment *string) (*models.PurchaseOrder, error) {
	if approver.Type != models.ActorUser || approver.UserID == nil {
		return nil, validationErr("actor", "rejection requires a user actor")
	}

	var po *models.PurchaseOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.Orders.GetByIDTx(tx, tenantID, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", orderID)
		}
		if err != nil {
			return err
		}
		if current.Status != models.POStatusPendingApproval {
			return &InvalidStateTransitionError{
				Entity: "purchase order",
				From:   string(current.Status),
				To:     string(models.POStatusDraft),
			}
		}

		approval := &models.PurchaseOrderApproval{
			OrderID:    current.ID,
			Level:      len(current.Approvals) + 1,
			ApproverID: *approver.UserID,
			Approved:   false,
			Comment:    comment,
			DecidedAt:  time.Now(),
		}
		if err := s.Orders.AddApproval(tx, approval); err != nil {
			return err
		}

		current.Status = models.POStatusDraft
		if err := s.Orders.Save(tx, current); err != nil {
			return err
		}
		current.Approvals = append(current.Approvals, *approval)
		po = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// Send marks an approved order as transmitted to the supplier.
func (s *PurchaseOrderService) Send(tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(tenantID, orderID, models.POStatusSent, nil)
}

// Acknowledge records the supplier's confirmation.
func (s *PurchaseOrderService) Acknowledge(tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	return s.transition(tenantID, orderID, models.POStatusAcknowledged, nil)
}

// Dispute flags a delivery problem without blocking further receipts.
func (s *PurchaseOrderService) Dispute(tenantID, orderID uuid.UUID, reason string) (*models.PurchaseOrder, error) {
	if reason == "" {
		return nil, validationErr("reason", "dispute reason is required")
	}
	return s.transition(tenantID, orderID, models.POStatusDisputed, func(po *models.PurchaseOrder) {
		po.DisputeReason = &reason
	})
}

// Cancel ends a non-terminal order. Stock already received stays on hand;
// returns go through ReturnLine.
func (s *PurchaseOrderService) Cancel(tenantID, orderID uuid.UUID, reason *string) (*models.PurchaseOrder, error) {
	return s.transition(tenantID, orderID, models.POStatusCancelled, func(po *models.PurchaseOrder) {
		if reason != nil {
			po.Notes = reason
		}
	})
}

// Pay records a payment and re-derives the payment status. A fully received
// and fully paid order completes.
func (s *PurchaseOrderService) Pay(req PayOrderRequest) (*models.PurchaseOrder, error) {
	if req.Amount <= 0 {
		return nil, validationErr("amount", "payment amount must be positive")
	}

	var po *models.PurchaseOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.Orders.GetByIDTx(tx, req.TenantID, req.OrderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", req.OrderID)
		}
		if err != nil {
			return err
		}
		if current.Status == models.POStatusCancelled || current.Status == models.POStatusDraft {
			return &InvalidStateTransitionError{
				Entity: "purchase order",
				From:   string(current.Status),
				To:     "PAID",
			}
		}

		now := time.Now()
		payment := &models.PurchaseOrderPayment{
			OrderID:   current.ID,
			Amount:    req.Amount,
			Method:    req.Method,
			Reference: req.Reference,
			PaidAt:    now,
		}
		if err := s.Orders.AddPayment(tx, payment); err != nil {
			return err
		}
		current.Payments = append(current.Payments, *payment)

		current.PaymentStatus = DerivePaymentStatus(current, now)
		if current.PaymentStatus == models.PaymentPaid &&
			current.ReceivingStatus == models.ReceivingComplete &&
			current.Status.CanTransitionTo(models.POStatusCompleted) {
			current.Status = models.POStatusCompleted
		}
		if err := s.Orders.Save(tx, current); err != nil {
			return err
		}
		po = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

// ReturnLine sends previously received goods back to the supplier: a
// RETURN_SUPPLIER movement removes the stock and the line tracks the
// returned quantity.
func (s *PurchaseOrderService) ReturnLine(tenantID, orderID, lineID uuid.UUID, quantity float64, locationID uuid.UUID, actor models.Actor, reason *string) (*models.PurchaseOrder, error) {
	if quantity <= 0 {
		return nil, validationErr("quantity", "return quantity must be positive")
	}
	if locationID == uuid.Nil {
		return nil, validationErr("location_id", "source location is required")
	}

	var po *models.PurchaseOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.Orders.GetByIDTx(tx, tenantID, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", orderID)
		}
		if err != nil {
			return err
		}

		var line *models.PurchaseOrderLine
		for i := range current.Lines {
			if current.Lines[i].ID == lineID {
				line = &current.Lines[i]
				break
			}
		}
		if line == nil {
			return notFoundErr("purchase order line", lineID)
		}

		returnable := line.ReceivedQuantity - line.ReturnedQuantity
		if quantity > returnable+quantityEpsilon {
			return validationErr("quantity",
				fmt.Sprintf("return of %.3f exceeds returnable %.3f", quantity, math.Max(returnable, 0)))
		}

		if _, err := s.Ledger.applyTx(tx, RecordMovementRequest{
			TenantID:       tenantID,
			ItemID:         line.ItemID,
			Type:           models.MovementReturnSupplier,
			Quantity:       quantity,
			Unit:           line.Unit,
			FromLocationID: &locationID,
			UnitCost:       &line.UnitPrice,
			ReferenceType:  "PURCHASE_ORDER",
			ReferenceID:    &current.ID,
			Actor:          actor,
			Reason:         reason,
		}); err != nil {
			return err
		}

		line.ReturnedQuantity += quantity
		if err := s.Orders.SaveLine(tx, line); err != nil {
			return err
		}
		po = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *PurchaseOrderService) Get(tenantID, orderID uuid.UUID) (*models.PurchaseOrder, error) {
	po, err := s.Orders.GetByID(tenantID, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("purchase order", orderID)
	}
	return po, err
}

func (s *PurchaseOrderService) List(tenantID uuid.UUID, status models.PurchaseOrderStatus, page, limit int) ([]models.PurchaseOrder, int64, error) {
	return s.Orders.List(tenantID, status, page, limit)
}

// transition applies one guarded status change.
func (s *PurchaseOrderService) transition(tenantID, orderID uuid.UUID, target models.PurchaseOrderStatus, mutate func(*models.PurchaseOrder)) (*models.PurchaseOrder, error) {
	var po *models.PurchaseOrder
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		current, err := s.Orders.GetByIDTx(tx, tenantID, orderID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundErr("purchase order", orderID)
		}
		if err != nil {
			return err
		}
		if !current.Status.CanTransitionTo(target) {
			return &InvalidStateTransitionError{
				Entity: "purchase order",
				From:   string(current.Status),
				To:     string(target),
			}
		}

		current.Status = target
		if mutate != nil {
			mutate(current)
		}
		if err := s.Orders.Save(tx, current); err != nil {
			return err
		}
		po = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return po, nil
}
