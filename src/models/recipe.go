package models

import (
	"time"

	"github.com/google/uuid"
)

// ============ MENU ENGINEERING ============
type MenuClass string

const (
	MenuStar      MenuClass = "STAR"
	MenuPuzzle    MenuClass = "PUZZLE"
	MenuPlowhorse MenuClass = "PLOWHORSE"
	MenuDog       MenuClass = "DOG"
)

// ============ RECIPE ============
type Recipe struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_recipe_name" json:"tenant_id"`
	Name     string    `gorm:"type:varchar(200);not null;uniqueIndex:idx_tenant_recipe_name" json:"name"`
	Category string    `gorm:"type:varchar(100)" json:"category"`

	// Portions produced by one batch of the recipe. EffectiveYield starts at
	// TheoreticalYield and is adjusted when production runs drift past the
	// variance threshold.
	TheoreticalYield float64 `gorm:"not null;default:1" json:"theoretical_yield"`
	EffectiveYield   float64 `gorm:"not null;default:1" json:"effective_yield"`

	PrepTimeMinutes int `gorm:"not null;default:0" json:"prep_time_minutes"`
	CookTimeMinutes int `gorm:"not null;default:0" json:"cook_time_minutes"`

	SellingPrice float64 `gorm:"not null;default:0" json:"selling_price"`
	IsActive     bool    `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Ingredients []RecipeIngredient `gorm:"foreignKey:RecipeID" json:"ingredients,omitempty"`
}

func (Recipe) TableName() string {
	return "recipes"
}

// RecipeIngredient is one bill-of-materials line: the quantity of an
// inventory item needed for one batch of the recipe.
type RecipeIngredient struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;index" json:"recipe_id"`
	ItemID   uuid.UUID `gorm:"type:uuid;not null;index" json:"item_id"`

	Quantity float64 `gorm:"not null" json:"quantity"`
	Unit     string  `gorm:"type:varchar(20);not null" json:"unit"`
}

func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// ============ YIELD TRACKING ============
type ProductionYield struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;index:idx_yield_recipe_run" json:"recipe_id"`

	TheoreticalYield float64   `gorm:"not null" json:"theoretical_yield"`
	ActualYield      float64   `gorm:"not null" json:"actual_yield"`
	VariancePercent  float64   `gorm:"not null" json:"variance_percent"`
	RunAt            time.Time `gorm:"not null;index:idx_yield_recipe_run" json:"run_at"`
}

func (ProductionYield) TableName() string {
	return "production_yields"
}

// ============ SALES ============
// MenuSale records units of a menu item sold, written by the order deduction
// path; it is the popularity input for menu engineering.
type MenuSale struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_sale_tenant_recipe" json:"tenant_id"`
	RecipeID uuid.UUID `gorm:"type:uuid;not null;index:idx_sale_tenant_recipe" json:"recipe_id"`

	OrderID   *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	Quantity  float64    `gorm:"not null" json:"quantity"`
	UnitPrice float64    `gorm:"not null" json:"unit_price"`
	SoldAt    time.Time  `gorm:"not null;index" json:"sold_at"`
}

func (MenuSale) TableName() string {
	return "menu_sales"
}
