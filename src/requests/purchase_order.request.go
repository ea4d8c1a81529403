package requests

import (
	"time"

	"github.com/google/uuid"
)

// ============ PURCHASE ORDERS ============
type CreateOrderLineRequest struct {
	ItemID     uuid.UUID `json:"item_id" binding:"required"`
	Quantity   float64   `json:"quantity" binding:"required,gt=0"`
	Unit       string    `json:"unit,omitempty"`
	UnitPrice  *float64  `json:"unit_price,omitempty"`
	QCRequired bool      `json:"qc_required,omitempty"`
}

type CreateOrderRequest struct {
	SupplierID   uuid.UUID                `json:"supplier_id" binding:"required"`
	RequiredDate *time.Time               `json:"required_date,omitempty"`
	Notes        *string                  `json:"notes,omitempty"`
	PerformedBy  *uuid.UUID               `json:"performed_by,omitempty"`
	Lines        []CreateOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type ApprovalRequest struct {
	ApprovedBy uuid.UUID `json:"approved_by" binding:"required"`
	Comment    *string   `json:"comment,omitempty"`
}

type DisputeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type PayOrderRequest struct {
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Method    string  `json:"method,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

// ============ RECEIVING ============
type ReceiveLineRequest struct {
	LineID      uuid.UUID  `json:"line_id" binding:"required"`
	Quantity    float64    `json:"quantity" binding:"required,gt=0"`
	BatchNumber string     `json:"batch_number,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	UnitCost    *float64   `json:"unit_cost,omitempty"`
	QCPassed    *bool      `json:"qc_passed,omitempty"`
}

type ReceiveRequest struct {
	LocationID  uuid.UUID            `json:"location_id" binding:"required"`
	Reference   *string              `json:"reference,omitempty"`
	PerformedBy *uuid.UUID           `json:"performed_by,omitempty"`
	Lines       []ReceiveLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type QualityReleaseRequest struct {
	LocationID  uuid.UUID  `json:"location_id" binding:"required"`
	PerformedBy *uuid.UUID `json:"performed_by,omitempty"`
}

type QualityRejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type ReturnLineRequest struct {
	LineID      uuid.UUID  `json:"line_id" binding:"required"`
	Quantity    float64    `json:"quantity" binding:"required,gt=0"`
	LocationID  uuid.UUID  `json:"location_id" binding:"required"`
	PerformedBy *uuid.UUID `json:"performed_by,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
}
