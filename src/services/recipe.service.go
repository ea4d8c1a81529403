package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ RESULT STRUCTS ============
type IngredientCost struct {
	ItemID       uuid.UUID `json:"item_id"`
	Name         string    `json:"name"`
	Quantity     float64   `json:"quantity"`
	Unit         string    `json:"unit"`
	UnitCost     float64   `json:"unit_cost"`
	WasteFactor  float64   `json:"waste_factor"`
	ExtendedCost float64   `json:"extended_cost"`
}

type RecipeCost struct {
	RecipeID        uuid.UUID        `json:"recipe_id"`
	Name            string           `json:"name"`
	Yield           float64          `json:"yield"`
	Ingredients     []IngredientCost `json:"ingredients"`
	FoodCost        float64          `json:"food_cost"`
	LaborCost       float64          `json:"labor_cost"`
	OverheadCost    float64          `json:"overhead_cost"`
	PortionCost     float64          `json:"portion_cost"`
	SellingPrice    float64          `json:"selling_price"`
	FoodCostPercent float64          `json:"food_cost_percent"`
	Margin          float64          `json:"margin"`
	SuggestedPrice  float64          `json:"suggested_price"`
}

type MenuItemAnalysis struct {
	RecipeID     uuid.UUID        `json:"recipe_id"`
	Name         string           `json:"name"`
	UnitsSold    float64          `json:"units_sold"`
	Revenue      float64          `json:"revenue"`
	PortionCost  float64          `json:"portion_cost"`
	Margin       float64          `json:"margin"`
	Class        models.MenuClass `json:"class"`
}

type MenuEngineeringReport struct {
	Since           time.Time          `json:"since"`
	MedianUnits     float64            `json:"median_units"`
	MedianMargin    float64            `json:"median_margin"`
	Items           []MenuItemAnalysis `json:"items"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

type ProductionRunRequest struct {
	TenantID    uuid.UUID
	RecipeID    uuid.UUID
	Batches     float64 // recipe batches produced
	ActualYield float64 // portions actually obtained
	LocationID  uuid.UUID
	Actor       models.Actor
}

type ProductionRunResult struct {
	Yield     *models.ProductionYield `json:"yield"`
	Movements []models.StockMovement  `json:"movements"`
	// AdjustedYield is set when the rolling variance pushed the recipe's
	// effective yield to a new value.
	AdjustedYield *float64 `json:"adjusted_yield,omitempty"`
}

// ============ RECIPE SERVICE ============
// RecipeService prices recipes from live ingredient costs and tracks how
// production runs actually yield against theory.
type RecipeService struct {
	DB      *gorm.DB
	Recipes *repositories.RecipeRepository
	Items   *repositories.ItemRepository
	Ledger  *MovementService
	Cache   cache.ReportCache
	Cfg     config.RecipeConfig
}

// Cost prices one portion of a recipe: ingredient cost inflated by each
// item's waste percentage, plus labor and overhead.
func (s *RecipeService) Cost(tenantID, recipeID uuid.UUID) (*RecipeCost, error) {
	recipe, err := s.Recipes.GetByID(tenantID, recipeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("recipe", recipeID)
	}
	if err != nil {
		return nil, err
	}
	return s.costRecipe(tenantID, recipe)
}

func (s *RecipeService) costRecipe(tenantID uuid.UUID, recipe *models.Recipe) (*RecipeCost, error) {
	yield := recipe.EffectiveYield
	if yield <= 0 {
		yield = recipe.TheoreticalYield
	}
	if yield <= 0 {
		yield = 1
	}

	result := &RecipeCost{
		RecipeID:     recipe.ID,
		Name:         recipe.Name,
		Yield:        yield,
		SellingPrice: recipe.SellingPrice,
	}

	for _, ing := range recipe.Ingredients {
		item, err := s.Items.GetByID(tenantID, ing.ItemID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("inventory item", ing.ItemID)
		}
		if err != nil {
			return nil, err
		}

		baseQty, err := item.ConvertToBase(ing.Quantity/yield, ing.Unit)
		if err != nil {
			return nil, validationErr("unit", err.Error())
		}

		unitCost := ingredientUnitCost(item)
		wasteFactor := 1 + item.WastePercentage
		extended := baseQty * unitCost * wasteFactor

		result.Ingredients = append(result.Ingredients, IngredientCost{
			ItemID:       item.ID,
			Name:         item.Name,
			Quantity:     baseQty,
			Unit:         item.BaseUnit,
			UnitCost:     unitCost,
			WasteFactor:  wasteFactor,
			ExtendedCost: extended,
		})
		result.FoodCost += extended
	}

	batchMinutes := float64(recipe.PrepTimeMinutes + recipe.CookTimeMinutes)
	result.LaborCost = batchMinutes / 60 * s.Cfg.HourlyLaborRate / yield
	result.OverheadCost = (result.FoodCost + result.LaborCost) * s.Cfg.OverheadPercentage
	result.PortionCost = result.FoodCost + result.LaborCost + result.OverheadCost

	if recipe.SellingPrice > 0 {
		result.FoodCostPercent = result.FoodCost / recipe.SellingPrice
		result.Margin = recipe.SellingPrice - result.PortionCost
	}
	if s.Cfg.TargetFoodCostPercent > 0 {
		result.SuggestedPrice = result.PortionCost / s.Cfg.TargetFoodCostPercent
	}
	return result, nil
}

// RecordProductionRun consumes the ingredients of a batch, logs the yield,
// and adjusts the recipe's effective yield when recent runs drift past the
// variance threshold.
func (s *RecipeService) RecordProductionRun(req ProductionRunRequest) (*ProductionRunResult, error) {
	if req.Batches <= 0 {
		return nil, validationErr("batches", "batch count must be positive")
	}
	if req.ActualYield < 0 {
		return nil, validationErr("actual_yield", "actual yield cannot be negative")
	}
	if req.LocationID == uuid.Nil {
		return nil, validationErr("location_id", "location is required")
	}

	recipe, err := s.Recipes.GetByID(req.TenantID, req.RecipeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundErr("recipe", req.RecipeID)
	}
	if err != nil {
		return nil, err
	}

	result := &ProductionRunResult{}

	for _, ing := range recipe.Ingredients {
		movement, err := s.Ledger.Record(RecordMovementRequest{
			TenantID:       req.TenantID,
			ItemID:         ing.ItemID,
			Type:           models.MovementProduction,
			Quantity:       ing.Quantity * req.Batches,
			Unit:           ing.Unit,
			FromLocationID: &req.LocationID,
			ReferenceType:  "PRODUCTION_RUN",
			ReferenceID:    &recipe.ID,
			Actor:          req.Actor,
		})
		if err != nil {
			return nil, err
		}
		result.Movements = append(result.Movements, *movement)
	}

	theoretical := recipe.TheoreticalYield * req.Batches
	variancePct := 0.0
	if theoretical > 0 {
		variancePct = (req.ActualYield - theoretical) / theoretical * 100
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		yield := &models.ProductionYield{
			TenantID:         req.TenantID,
			RecipeID:         recipe.ID,
			TheoreticalYield: theoretical,
			ActualYield:      req.ActualYield,
			VariancePercent:  variancePct,
			RunAt:            time.Now(),
		}
		if err := s.Recipes.CreateYield(tx, yield); err != nil {
			return err
		}
		result.Yield = yield

		adjusted, err := s.maybeAdjustYield(tx, recipe)
		if err != nil {
			return err
		}
		result.AdjustedYield = adjusted
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// maybeAdjustYield looks at the trailing run window; a sustained drift past
// the threshold rebases the effective yield on observed output.
func (s *RecipeService) maybeAdjustYield(tx *gorm.DB, recipe *models.Recipe) (*float64, error) {
	runs, err := s.Recipes.RecentYields(recipe.TenantID, recipe.ID, s.Cfg.YieldWindowRuns)
	if err != nil {
		return nil, err
	}
	if len(runs) < s.Cfg.YieldWindowRuns {
		return nil, nil
	}

	sumVariance := 0.0
	sumRatio := 0.0
	for _, run := range runs {
		sumVariance += run.VariancePercent
		if run.TheoreticalYield > 0 {
			sumRatio += run.ActualYield / run.TheoreticalYield
		}
	}
	avgVariance := sumVariance / float64(len(runs))
	if math.Abs(avgVariance) <= s.Cfg.YieldVariancePercent {
		return nil, nil
	}

	newYield := recipe.TheoreticalYield * (sumRatio / float64(len(runs)))
	recipe.EffectiveYield = newYield
	if err := s.Recipes.Save(tx, recipe); err != nil {
		return nil, err
	}

	logger.Log.Info().
		Str("recipe_id", recipe.ID.String()).
		Float64("avg_variance_pct", avgVariance).
		Float64("effective_yield", newYield).
		Msg("recipe effective yield adjusted")
	return &newYield, nil
}

// MenuEngineering classifies active menu items on a popularity and margin
// grid split at the medians.
func (s *RecipeService) MenuEngineering(ctx context.Context, tenantID uuid.UUID, since time.Time) (*MenuEngineeringReport, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}

	var cached MenuEngineeringReport
	if hit, err := s.Cache.Get(ctx, tenantID, "menu_engineering", &cached); err == nil && hit && cached.Since.Equal(since) {
		return &cached, nil
	}

	recipes, err := s.Recipes.ListActive(tenantID)
	if err != nil {
		return nil, err
	}

	totals, err := s.Recipes.SalesTotals(tenantID, since)
	if err != nil {
		return nil, err
	}
	salesByRecipe := make(map[uuid.UUID]repositories.RecipeSales, len(totals))
	for _, t := range totals {
		salesByRecipe[t.RecipeID] = t
	}

	report := &MenuEngineeringReport{Since: since, GeneratedAt: time.Now()}
	for i := range recipes {
		recipe := &recipes[i]
		cost, err := s.costRecipe(tenantID, recipe)
		if err != nil {
			return nil, err
		}

		sales := salesByRecipe[recipe.ID]
		report.Items = append(report.Items, MenuItemAnalysis{
			RecipeID:    recipe.ID,
			Name:        recipe.Name,
			UnitsSold:   sales.Units,
			Revenue:     sales.Revenue,
			PortionCost: cost.PortionCost,
			Margin:      recipe.SellingPrice - cost.PortionCost,
		})
	}

	if len(report.Items) > 0 {
		units := make([]float64, len(report.Items))
		margins := make([]float64, len(report.Items))
		for i, item := range report.Items {
			units[i] = item.UnitsSold
			margins[i] = item.Margin
		}
		report.MedianUnits = median(units)
		report.MedianMargin = median(margins)

		for i := range report.Items {
			report.Items[i].Class = classifyMenuItem(
				report.Items[i].UnitsSold, report.Items[i].Margin,
				report.MedianUnits, report.MedianMargin)
		}
	}

	if err := s.Cache.Set(ctx, tenantID, "menu_engineering", report); err != nil {
		logger.Log.Warn().Err(err).Msg("menu engineering cache write failed")
	}
	return report, nil
}

// classifyMenuItem places an item in the popularity/margin quadrants.
// Items at or above both medians are stars; high popularity with a thin
// margin is a plowhorse, the inverse a puzzle, and neither a dog.
func classifyMenuItem(units, margin, medianUnits, medianMargin float64) models.MenuClass {
	popular := units >= medianUnits
	profitable := margin >= medianMargin
	switch {
	case popular && profitable:
		return models.MenuStar
	case popular:
		return models.MenuPlowhorse
	case profitable:
		return models.MenuPuzzle
	default:
		return models.MenuDog
	}
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ingredientUnitCost picks the cost basis that matches the item's costing
// method for read-path pricing.
func ingredientUnitCost(item *models.InventoryItem) float64 {
	if item.CostingMethod == models.CostingWeightedAverage && item.AverageCost > 0 {
		return item.AverageCost
	}
	return item.CurrentCost
}
