package models

import (
	"time"

	"github.com/google/uuid"
)

// ============ STATUS ENUMS ============
type PurchaseOrderStatus string

const (
	POStatusDraft           PurchaseOrderStatus = "DRAFT"
	POStatusPendingApproval PurchaseOrderStatus = "PENDING_APPROVAL"
	POStatusApproved        PurchaseOrderStatus = "APPROVED"
	POStatusSent            PurchaseOrderStatus = "SENT"
	POStatusAcknowledged    PurchaseOrderStatus = "ACKNOWLEDGED"
	POStatusPartialReceived PurchaseOrderStatus = "PARTIAL_RECEIVED"
	POStatusReceived        PurchaseOrderStatus = "RECEIVED"
	POStatusCompleted       PurchaseOrderStatus = "COMPLETED"
	POStatusCancelled       PurchaseOrderStatus = "CANCELLED"
	POStatusDisputed        PurchaseOrderStatus = "DISPUTED"
)

func (s PurchaseOrderStatus) String() string {
	return string(s)
}

func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == POStatusCompleted || s == POStatusCancelled
}

// CanTransitionTo guards the order state machine.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	if target == POStatusCancelled {
		return !s.IsTerminal()
	}
	if target == POStatusDisputed {
		return s == POStatusSent || s == POStatusAcknowledged ||
			s == POStatusPartialReceived || s == POStatusReceived
	}
	switch s {
	case POStatusDraft:
		return target == POStatusPendingApproval
	case POStatusPendingApproval:
		return target == POStatusApproved || target == POStatusDraft
	case POStatusApproved:
		return target == POStatusSent
	case POStatusSent:
		return target == POStatusAcknowledged || target == POStatusPartialReceived ||
			target == POStatusReceived || target == POStatusCompleted
	case POStatusAcknowledged:
		return target == POStatusPartialReceived || target == POStatusReceived ||
			target == POStatusCompleted
	case POStatusPartialReceived:
		return target == POStatusPartialReceived || target == POStatusReceived ||
			target == POStatusCompleted
	case POStatusReceived:
		return target == POStatusCompleted
	case POStatusDisputed:
		return target == POStatusPartialReceived || target == POStatusReceived ||
			target == POStatusCompleted
	}
	return false
}

// CanReceive reports whether goods may be booked against the order.
func (s PurchaseOrderStatus) CanReceive() bool {
	switch s {
	case POStatusApproved, POStatusSent, POStatusAcknowledged, POStatusPartialReceived, POStatusDisputed:
		return true
	}
	return false
}

type ReceivingStatus string

const (
	ReceivingNotReceived ReceivingStatus = "NOT_RECEIVED"
	ReceivingPartial     ReceivingStatus = "PARTIAL"
	ReceivingComplete    ReceivingStatus = "COMPLETE"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "UNPAID"
	PaymentPartial PaymentStatus = "PARTIAL"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentOverdue PaymentStatus = "OVERDUE"
)

type POLineStatus string

const (
	POLinePending   POLineStatus = "PENDING"
	POLinePartial   POLineStatus = "PARTIAL"
	POLineReceived  POLineStatus = "RECEIVED"
	POLineCancelled POLineStatus = "CANCELLED"
)

// ============ PURCHASE ORDER ============
type PurchaseOrder struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_po_number" json:"tenant_id"`
	OrderNumber string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_po_number" json:"order_number"`
	SupplierID  uuid.UUID `gorm:"type:uuid;not null;index" json:"supplier_id"`

	Status          PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:DRAFT" json:"status"`
	ReceivingStatus ReceivingStatus     `gorm:"type:varchar(20);not null;default:NOT_RECEIVED" json:"receiving_status"`
	PaymentStatus   PaymentStatus       `gorm:"type:varchar(20);not null;default:UNPAID" json:"payment_status"`

	OrderDate    time.Time  `gorm:"not null" json:"order_date"`
	RequiredDate *time.Time `json:"required_date,omitempty"`
	PaymentDueAt *time.Time `json:"payment_due_at,omitempty"`

	Subtotal float64 `gorm:"not null;default:0" json:"subtotal"`
	Total    float64 `gorm:"not null;default:0" json:"total"`

	DisputeReason *string `gorm:"type:text" json:"dispute_reason,omitempty"`
	Notes         *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedByType ActorType  `gorm:"type:varchar(10);not null" json:"created_by_type"`
	CreatedByID   *uuid.UUID `gorm:"type:uuid" json:"created_by_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Lines     []PurchaseOrderLine     `gorm:"foreignKey:OrderID" json:"lines,omitempty"`
	Approvals []PurchaseOrderApproval `gorm:"foreignKey:OrderID" json:"approvals,omitempty"`
	Payments  []PurchaseOrderPayment  `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

type PurchaseOrderLine struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID  uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`

	Quantity  float64 `gorm:"not null" json:"quantity"`
	Unit      string  `gorm:"type:varchar(20)" json:"unit"`
	UnitPrice float64 `gorm:"not null" json:"unit_price"`

	ReceivedQuantity float64 `gorm:"not null;default:0" json:"received_quantity"`
	ReturnedQuantity float64 `gorm:"not null;default:0" json:"returned_quantity"`

	QCRequired bool         `gorm:"not null;default:false" json:"qc_required"`
	Status     POLineStatus `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

func (l *PurchaseOrderLine) Outstanding() float64 {
	return l.Quantity - l.ReceivedQuantity
}

type PurchaseOrderApproval struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`

	Level      int       `gorm:"not null" json:"level"`
	ApproverID uuid.UUID `gorm:"type:uuid;not null" json:"approver_id"`
	Approved   bool      `gorm:"not null" json:"approved"`
	Comment    *string   `gorm:"type:text" json:"comment,omitempty"`
	DecidedAt  time.Time `gorm:"not null" json:"decided_at"`
}

func (PurchaseOrderApproval) TableName() string {
	return "purchase_order_approvals"
}

type PurchaseOrderPayment struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`

	Amount    float64   `gorm:"not null" json:"amount"`
	Method    string    `gorm:"type:varchar(30)" json:"method"`
	Reference *string   `gorm:"type:varchar(100)" json:"reference,omitempty"`
	PaidAt    time.Time `gorm:"not null" json:"paid_at"`
}

func (PurchaseOrderPayment) TableName() string {
	return "purchase_order_payments"
}
