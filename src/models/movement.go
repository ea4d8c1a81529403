package models

import (
	"time"

	"github.com/google/uuid"
)

// ============ MOVEMENT TYPES ============
type MovementType string

const (
	MovementPurchase       MovementType = "PURCHASE"
	MovementSale           MovementType = "SALE"
	MovementTransfer       MovementType = "TRANSFER"
	MovementAdjustment     MovementType = "ADJUSTMENT"
	MovementProduction     MovementType = "PRODUCTION"
	MovementWaste          MovementType = "WASTE"
	MovementReturnCustomer MovementType = "RETURN_CUSTOMER"
	MovementReturnSupplier MovementType = "RETURN_SUPPLIER"
	MovementCycleCount     MovementType = "CYCLE_COUNT"
	MovementDamage         MovementType = "DAMAGE"
	MovementTheft          MovementType = "THEFT"
	MovementExpired        MovementType = "EXPIRED"
	MovementSample         MovementType = "SAMPLE"
	MovementDonation       MovementType = "DONATION"
	MovementOpeningStock   MovementType = "OPENING_STOCK"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementTransfer, MovementAdjustment,
		MovementProduction, MovementWaste, MovementReturnCustomer, MovementReturnSupplier,
		MovementCycleCount, MovementDamage, MovementTheft, MovementExpired,
		MovementSample, MovementDonation, MovementOpeningStock:
		return true
	}
	return false
}

// IsIncoming reports whether the type adds stock. ADJUSTMENT is signed and
// CYCLE_COUNT sets an absolute level; neither belongs to either partition.
func (t MovementType) IsIncoming() bool {
	switch t {
	case MovementPurchase, MovementReturnCustomer, MovementOpeningStock:
		return true
	}
	return false
}

func (t MovementType) IsOutgoing() bool {
	switch t {
	case MovementSale, MovementProduction, MovementWaste, MovementReturnSupplier,
		MovementDamage, MovementTheft, MovementExpired, MovementSample, MovementDonation:
		return true
	}
	return false
}

// IsWaste reports whether the type counts toward the item's waste percentage.
func (t MovementType) IsWaste() bool {
	switch t {
	case MovementWaste, MovementDamage, MovementTheft, MovementExpired:
		return true
	}
	return false
}

// ============ APPROVAL ============
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "NONE"
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ============ ACTOR ============
// Actor distinguishes automated mutations from user-initiated ones instead
// of a sentinel "system" user string.
type ActorType string

const (
	ActorUser   ActorType = "USER"
	ActorSystem ActorType = "SYSTEM"
)

type Actor struct {
	Type   ActorType  `json:"type"`
	UserID *uuid.UUID `json:"user_id,omitempty"`
}

func SystemActor() Actor {
	return Actor{Type: ActorSystem}
}

func UserActor(id uuid.UUID) Actor {
	return Actor{Type: ActorUser, UserID: &id}
}

func (a Actor) IsZero() bool {
	return a.Type == ""
}

// ============ STOCK MOVEMENT ============
// StockMovement is an append-only ledger entry. Rows are never mutated in
// place except for approval-state transitions and the reversal flags; every
// other correction is a new compensating entry.
type StockMovement struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID uuid.UUID    `gorm:"type:uuid;not null;index:idx_move_tenant_item_date" json:"tenant_id"`
	ItemID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_move_tenant_item_date" json:"item_id"`
	Type     MovementType `gorm:"type:varchar(20);not null;index" json:"type"`

	// Positive except for ADJUSTMENT, which carries its own sign.
	Quantity float64 `gorm:"not null" json:"quantity"`
	Unit     string  `gorm:"type:varchar(20)" json:"unit"`

	FromLocationID *uuid.UUID `gorm:"type:uuid" json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID `gorm:"type:uuid" json:"to_location_id,omitempty"`
	BatchID        *uuid.UUID `gorm:"type:uuid;index" json:"batch_id,omitempty"`

	UnitCost  float64 `gorm:"not null;default:0" json:"unit_cost"`
	TotalCost float64 `gorm:"not null;default:0" json:"total_cost"`

	StockBefore float64 `gorm:"not null" json:"stock_before"`
	StockAfter  float64 `gorm:"not null" json:"stock_after"`

	// Cycle-count payload, present only on CYCLE_COUNT entries.
	CountedQuantity *float64 `json:"counted_quantity,omitempty"`
	SystemQuantity  *float64 `json:"system_quantity,omitempty"`
	Variance        *float64 `json:"variance,omitempty"`
	VariancePercent *float64 `json:"variance_percent,omitempty"`

	RequiresApproval bool           `gorm:"not null;default:false" json:"requires_approval"`
	ApprovalStatus   ApprovalStatus `gorm:"type:varchar(20);not null;default:NONE" json:"approval_status"`
	ApprovedBy       *uuid.UUID     `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"`

	IsReversed        bool       `gorm:"not null;default:false" json:"is_reversed"`
	ReversalOf        *uuid.UUID `gorm:"type:uuid;index" json:"reversal_of,omitempty"`
	ReversalReference *uuid.UUID `gorm:"type:uuid" json:"reversal_reference,omitempty"`

	// Optional link to the document that produced the movement.
	ReferenceType string     `gorm:"type:varchar(30)" json:"reference_type,omitempty"`
	ReferenceID   *uuid.UUID `gorm:"type:uuid;index" json:"reference_id,omitempty"`

	PerformedByType ActorType  `gorm:"type:varchar(10);not null" json:"performed_by_type"`
	PerformedByID   *uuid.UUID `gorm:"type:uuid" json:"performed_by_id,omitempty"`

	Reason *string `gorm:"type:text" json:"reason,omitempty"`
	Notes  *string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_move_tenant_item_date" json:"created_at"`
}

func (StockMovement) TableName() string {
	return "stock_movements"
}

// SignedDelta is the change the movement applies to the item's total
// quantity. Transfers move stock between locations of the same item, so
// their item-level delta is zero. Approved cycle counts apply the counted
// variance.
func (m *StockMovement) SignedDelta() float64 {
	switch {
	case m.Type == MovementTransfer:
		return 0
	case m.Type == MovementAdjustment:
		return m.Quantity
	case m.Type == MovementCycleCount:
		if m.Variance != nil {
			return *m.Variance
		}
		return 0
	case m.Type.IsIncoming():
		return m.Quantity
	case m.Type.IsOutgoing():
		return -m.Quantity
	}
	return 0
}

func (m *StockMovement) Performer() Actor {
	return Actor{Type: m.PerformedByType, UserID: m.PerformedByID}
}
