package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

type RecipeRepository struct {
	DB *gorm.DB
}

func (r *RecipeRepository) GetByID(tenantID, recipeID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.DB.
		Preload("Ingredients").
		Where("tenant_id = ? AND id = ?", tenantID, recipeID).
		First(&recipe).Error
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *RecipeRepository) ListActive(tenantID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.DB.
		Preload("Ingredients").
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("name ASC").
		Find(&recipes).Error
	return recipes, err
}

func (r *RecipeRepository) Create(recipe *models.Recipe) error {
	return r.DB.Create(recipe).Error
}

func (r *RecipeRepository) Save(tx *gorm.DB, recipe *models.Recipe) error {
	return tx.Omit("Ingredients").Save(recipe).Error
}

// RecentYields returns the last n production runs, newest first.
func (r *RecipeRepository) RecentYields(tenantID, recipeID uuid.UUID, n int) ([]models.ProductionYield, error) {
	var yields []models.ProductionYield
	err := r.DB.
		Where("tenant_id = ? AND recipe_id = ?", tenantID, recipeID).
		Order("run_at DESC").
		Limit(n).
		Find(&yields).Error
	return yields, err
}

func (r *RecipeRepository) CreateYield(tx *gorm.DB, y *models.ProductionYield) error {
	return tx.Create(y).Error
}

func (r *RecipeRepository) CreateSale(tx *gorm.DB, sale *models.MenuSale) error {
	return tx.Create(sale).Error
}

func (r *RecipeRepository) DeleteSalesForOrder(tx *gorm.DB, tenantID, orderID uuid.UUID) error {
	return tx.
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Delete(&models.MenuSale{}).Error
}

// RecipeSales aggregates units sold and revenue for one recipe in a window.
type RecipeSales struct {
	RecipeID uuid.UUID
	Units    float64
	Revenue  float64
}

func (r *RecipeRepository) SalesTotals(tenantID uuid.UUID, since time.Time) ([]RecipeSales, error) {
	var rows []RecipeSales
	err := r.DB.Model(&models.MenuSale{}).
		Select("recipe_id, COALESCE(SUM(quantity), 0) AS units, COALESCE(SUM(quantity * unit_price), 0) AS revenue").
		Where("tenant_id = ? AND sold_at >= ?", tenantID, since).
		Group("recipe_id").
		Scan(&rows).Error
	return rows, err
}
