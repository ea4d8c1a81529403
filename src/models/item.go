package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============ ENUMS & TYPES ============
type CostingMethod string

const (
	CostingFIFO            CostingMethod = "FIFO"
	CostingLIFO            CostingMethod = "LIFO"
	CostingWeightedAverage CostingMethod = "WEIGHTED_AVERAGE"
	CostingSpecific        CostingMethod = "SPECIFIC"
)

func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingFIFO, CostingLIFO, CostingWeightedAverage, CostingSpecific:
		return true
	}
	return false
}

// UsesBatchOrder reports whether the method consumes batches in date order.
func (m CostingMethod) UsesBatchOrder() bool {
	return m == CostingFIFO || m == CostingLIFO
}

// UnitConversions maps a unit name to its factor into the item's base unit,
// e.g. {"kg": 1000} on an item whose base unit is grams. Stored as jsonb.
type UnitConversions map[string]float64

func (u UnitConversions) Value() (driver.Value, error) {
	if u == nil {
		return "{}", nil
	}
	b, err := json.Marshal(u)
	return string(b), err
}

func (u *UnitConversions) Scan(value interface{}) error {
	if value == nil {
		*u = UnitConversions{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for UnitConversions: %T", value)
	}
	return json.Unmarshal(raw, u)
}

// ============ INVENTORY ITEM ============
type InventoryItem struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_sku;index" json:"tenant_id"`
	SKU      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_sku" json:"sku"`
	Name     string    `gorm:"type:varchar(200);not null" json:"name"`
	Category string    `gorm:"type:varchar(100);index" json:"category"`

	BaseUnit    string          `gorm:"type:varchar(20);not null" json:"base_unit"`
	Conversions UnitConversions `gorm:"type:jsonb" json:"conversions"`

	CostingMethod CostingMethod `gorm:"type:varchar(20);not null;default:FIFO" json:"costing_method"`
	BatchTracked  bool          `gorm:"not null;default:false" json:"batch_tracked"`

	CurrentCost      float64 `gorm:"not null;default:0" json:"current_cost"`
	AverageCost      float64 `gorm:"not null;default:0" json:"average_cost"`
	LastPurchaseCost float64 `gorm:"not null;default:0" json:"last_purchase_cost"`

	// Replenishment parameters
	ReorderPoint          float64    `gorm:"not null;default:0" json:"reorder_point"`
	ReorderQuantity       float64    `gorm:"not null;default:0" json:"reorder_quantity"`
	SafetyStock           float64    `gorm:"not null;default:0" json:"safety_stock"`
	EconomicOrderQuantity float64    `gorm:"not null;default:0" json:"economic_order_quantity"`
	PreferredSupplierID   *uuid.UUID `gorm:"type:uuid" json:"preferred_supplier_id,omitempty"`

	// Aggregates, maintained incrementally by the movement ledger.
	TotalQuantity float64 `gorm:"not null;default:0" json:"total_quantity"`
	TotalReserved float64 `gorm:"not null;default:0" json:"total_reserved"`

	WastePercentage float64    `gorm:"not null;default:0" json:"waste_percentage"`
	LastCountedAt   *time.Time `json:"last_counted_at,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	// Optimistic concurrency token, bumped on every aggregate mutation.
	Version int64 `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StockLevels []StockLevel `gorm:"foreignKey:ItemID" json:"stock_levels,omitempty"`
}

func (InventoryItem) TableName() string {
	return "inventory_items"
}

func (i *InventoryItem) TotalAvailable() float64 {
	return i.TotalQuantity - i.TotalReserved
}

// ConvertToBase converts a quantity expressed in the given unit into the
// item's base unit using the conversion table. The base unit maps to itself.
func (i *InventoryItem) ConvertToBase(qty float64, unit string) (float64, error) {
	if unit == "" || unit == i.BaseUnit {
		return qty, nil
	}
	factor, ok := i.Conversions[unit]
	if !ok || factor <= 0 {
		return 0, fmt.Errorf("no conversion from %q to base unit %q for item %s", unit, i.BaseUnit, i.SKU)
	}
	return qty * factor, nil
}

// ============ STOCK LEVEL ============
type StockLevel struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_location" json:"item_id"`
	LocationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_location" json:"location_id"`

	Zone string `gorm:"type:varchar(50)" json:"zone"`
	Bin  string `gorm:"type:varchar(50)" json:"bin"`

	Quantity float64 `gorm:"not null;default:0" json:"quantity"`
	Reserved float64 `gorm:"not null;default:0" json:"reserved"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (StockLevel) TableName() string {
	return "stock_levels"
}

func (l *StockLevel) Available() float64 {
	return l.Quantity - l.Reserved
}

// ============ BATCH ============
// Batches live in their own table keyed by item id, not embedded in the item
// record, so the "active, non-quarantined, ordered by received date" scan is
// an indexed query and batches carry their own rows for concurrent updates.
type Batch struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	ItemID   uuid.UUID `gorm:"type:uuid;not null;index:idx_batch_item_received" json:"item_id"`

	BatchNumber string  `gorm:"type:varchar(100);not null" json:"batch_number"`
	Quantity    float64 `gorm:"not null;default:0" json:"quantity"`
	UnitCost    float64 `gorm:"not null;default:0" json:"unit_cost"`

	ReceivedAt     time.Time  `gorm:"not null;index:idx_batch_item_received" json:"received_at"`
	ExpiryDate     *time.Time `gorm:"index" json:"expiry_date,omitempty"`
	ManufacturedAt *time.Time `json:"manufactured_at,omitempty"`

	SupplierID      *uuid.UUID `gorm:"type:uuid" json:"supplier_id,omitempty"`
	PurchaseOrderID *uuid.UUID `gorm:"type:uuid;index" json:"purchase_order_id,omitempty"`

	Quarantined    bool `gorm:"not null;default:false" json:"quarantined"`
	QualityChecked bool `gorm:"not null;default:false" json:"quality_checked"`
	IsActive       bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Batch) TableName() string {
	return "batches"
}

// ============ LOCATION ============
type Location struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_loc_code" json:"tenant_id"`
	Code     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_loc_code" json:"code"`
	Name     string    `gorm:"type:varchar(100);not null" json:"name"`

	CreatedAt time.Time `json:"created_at"`
}

func (Location) TableName() string {
	return "locations"
}
