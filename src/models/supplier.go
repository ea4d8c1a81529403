package models

import (
	"time"

	"github.com/google/uuid"
)

type SupplierRiskLevel string

const (
	SupplierRiskLow    SupplierRiskLevel = "LOW"
	SupplierRiskMedium SupplierRiskLevel = "MEDIUM"
	SupplierRiskHigh   SupplierRiskLevel = "HIGH"
)

type Supplier struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_supplier_code" json:"tenant_id"`
	Code     string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_tenant_supplier_code" json:"code"`
	Name     string    `gorm:"type:varchar(200);not null" json:"name"`

	LeadTimeDays int  `gorm:"not null;default:1" json:"lead_time_days"`
	IsActive     bool `gorm:"not null;default:true" json:"is_active"`

	// Performance metrics, updated at receiving time.
	TotalOrders   int     `gorm:"not null;default:0" json:"total_orders"`
	OnTimeOrders  int     `gorm:"not null;default:0" json:"on_time_orders"`
	OnTimeRate    float64 `gorm:"not null;default:0" json:"on_time_rate"`
	QualityRating float64 `gorm:"not null;default:0" json:"quality_rating"`
	DefectRate    float64 `gorm:"not null;default:0" json:"defect_rate"`

	RiskLevel SupplierRiskLevel `gorm:"type:varchar(10);not null;default:LOW" json:"risk_level"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []SupplierItem `gorm:"foreignKey:SupplierID" json:"items,omitempty"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// ComputeRisk derives the risk bucket from the performance metrics.
func (s *Supplier) ComputeRisk() SupplierRiskLevel {
	switch {
	case s.TotalOrders == 0:
		return SupplierRiskLow
	case s.OnTimeRate < 0.7 || s.DefectRate > 0.1:
		return SupplierRiskHigh
	case s.OnTimeRate < 0.9 || s.DefectRate > 0.03:
		return SupplierRiskMedium
	}
	return SupplierRiskLow
}

type SupplierItem struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_item" json:"supplier_id"`
	ItemID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_item;index" json:"item_id"`

	SupplierSKU      string  `gorm:"type:varchar(100)" json:"supplier_sku"`
	Cost             float64 `gorm:"not null;default:0" json:"cost"`
	MinOrderQuantity float64 `gorm:"not null;default:0" json:"min_order_quantity"`
	LeadTimeDays     int     `gorm:"not null;default:0" json:"lead_time_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SupplierItem) TableName() string {
	return "supplier_items"
}
