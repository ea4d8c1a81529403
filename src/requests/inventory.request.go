package requests

import (
	"github.com/google/uuid"
)

// ============ MOVEMENTS ============
type RecordMovementRequest struct {
	ItemID         uuid.UUID  `json:"item_id" binding:"required"`
	Type           string     `json:"type" binding:"required"`
	Quantity       float64    `json:"quantity" binding:"required,gt=0"`
	Unit           string     `json:"unit,omitempty"`
	FromLocationID *uuid.UUID `json:"from_location_id,omitempty"`
	ToLocationID   *uuid.UUID `json:"to_location_id,omitempty"`
	BatchID        *uuid.UUID `json:"batch_id,omitempty"`
	UnitCost       *float64   `json:"unit_cost,omitempty"`
	ReferenceType  string     `json:"reference_type,omitempty"`
	ReferenceID    *uuid.UUID `json:"reference_id,omitempty"`
	PerformedBy    *uuid.UUID `json:"performed_by,omitempty"`
	Reason         *string    `json:"reason,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

type ReverseMovementRequest struct {
	PerformedBy *uuid.UUID `json:"performed_by,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
}

type TransferRequest struct {
	ItemID         uuid.UUID  `json:"item_id" binding:"required"`
	Quantity       float64    `json:"quantity" binding:"required,gt=0"`
	Unit           string     `json:"unit,omitempty"`
	FromLocationID uuid.UUID  `json:"from_location_id" binding:"required"`
	ToLocationID   uuid.UUID  `json:"to_location_id" binding:"required"`
	PerformedBy    *uuid.UUID `json:"performed_by,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
}

// ============ WASTE & COUNTS ============
type RecordWasteRequest struct {
	ItemID      uuid.UUID  `json:"item_id" binding:"required"`
	Type        string     `json:"type,omitempty"` // WASTE, DAMAGE, EXPIRED or THEFT
	Quantity    float64    `json:"quantity" binding:"required,gt=0"`
	Unit        string     `json:"unit,omitempty"`
	LocationID  uuid.UUID  `json:"location_id" binding:"required"`
	BatchID     *uuid.UUID `json:"batch_id,omitempty"`
	PerformedBy *uuid.UUID `json:"performed_by,omitempty"`
	Reason      *string    `json:"reason,omitempty"`
}

type CycleCountRequest struct {
	ItemID          uuid.UUID  `json:"item_id" binding:"required"`
	LocationID      *uuid.UUID `json:"location_id,omitempty"`
	CountedQuantity float64    `json:"counted_quantity" binding:"min=0"`
	PerformedBy     *uuid.UUID `json:"performed_by,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

type ResolveCountRequest struct {
	ApprovedBy uuid.UUID `json:"approved_by" binding:"required"`
}

// ============ MASTER DATA ============
type CreateItemRequest struct {
	SKU             string             `json:"sku" binding:"required"`
	Name            string             `json:"name" binding:"required"`
	Category        string             `json:"category,omitempty"`
	BaseUnit        string             `json:"base_unit" binding:"required"`
	Conversions     map[string]float64 `json:"conversions,omitempty"`
	CostingMethod   string             `json:"costing_method,omitempty"`
	BatchTracked    bool               `json:"batch_tracked,omitempty"`
	CurrentCost     float64            `json:"current_cost,omitempty"`
	ReorderPoint    float64            `json:"reorder_point,omitempty"`
	ReorderQuantity float64            `json:"reorder_quantity,omitempty"`
	SafetyStock     float64            `json:"safety_stock,omitempty"`

	PreferredSupplierID *uuid.UUID `json:"preferred_supplier_id,omitempty"`

	OpeningQuantity float64    `json:"opening_quantity,omitempty"`
	LocationID      *uuid.UUID `json:"location_id,omitempty"`
	PerformedBy     *uuid.UUID `json:"performed_by,omitempty"`
}

type UpdateItemRequest struct {
	Name            *string            `json:"name,omitempty"`
	Category        *string            `json:"category,omitempty"`
	Conversions     map[string]float64 `json:"conversions,omitempty"`
	CostingMethod   *string            `json:"costing_method,omitempty"`
	ReorderPoint    *float64           `json:"reorder_point,omitempty"`
	ReorderQuantity *float64           `json:"reorder_quantity,omitempty"`
	SafetyStock     *float64           `json:"safety_stock,omitempty"`

	PreferredSupplierID *uuid.UUID `json:"preferred_supplier_id,omitempty"`
}

type CreateLocationRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type CreateSupplierRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	LeadTimeDays int    `json:"lead_time_days,omitempty"`
}

type LinkSupplierItemRequest struct {
	SupplierID       uuid.UUID `json:"supplier_id" binding:"required"`
	ItemID           uuid.UUID `json:"item_id" binding:"required"`
	SupplierSKU      string    `json:"supplier_sku,omitempty"`
	Cost             float64   `json:"cost" binding:"min=0"`
	MinOrderQuantity float64   `json:"min_order_quantity,omitempty"`
	LeadTimeDays     int       `json:"lead_time_days,omitempty"`
}

// ============ RECIPES ============
type RecipeIngredientRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity float64   `json:"quantity" binding:"required,gt=0"`
	Unit     string    `json:"unit" binding:"required"`
}

type CreateRecipeRequest struct {
	Name             string                    `json:"name" binding:"required"`
	Category         string                    `json:"category,omitempty"`
	TheoreticalYield float64                   `json:"theoretical_yield" binding:"required,gt=0"`
	PrepTimeMinutes  int                       `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes  int                       `json:"cook_time_minutes,omitempty"`
	SellingPrice     float64                   `json:"selling_price,omitempty"`
	Ingredients      []RecipeIngredientRequest `json:"ingredients" binding:"required,min=1,dive"`
}

type ProductionRunRequest struct {
	RecipeID    uuid.UUID  `json:"recipe_id" binding:"required"`
	Batches     float64    `json:"batches" binding:"required,gt=0"`
	ActualYield float64    `json:"actual_yield" binding:"min=0"`
	LocationID  uuid.UUID  `json:"location_id" binding:"required"`
	PerformedBy *uuid.UUID `json:"performed_by,omitempty"`
}

// ============ ORDERS ============
type OrderLineRequest struct {
	RecipeID uuid.UUID `json:"recipe_id" binding:"required"`
	Quantity float64   `json:"quantity" binding:"required,gt=0"`
}

type DeductOrderRequest struct {
	OrderID     uuid.UUID          `json:"order_id" binding:"required"`
	LocationID  uuid.UUID          `json:"location_id" binding:"required"`
	PerformedBy *uuid.UUID         `json:"performed_by,omitempty"`
	Lines       []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}
