package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-inventory/src/middleware"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/requests"
	"restaurant-inventory/src/services"
)

type ReportHandler struct {
	Analytics *services.AnalyticsService
	Recipes   *services.RecipeService
	Orders    *services.OrderService
	Catalog   *services.CatalogService
}

// ============ STOCK REPORTS ============

func (h *ReportHandler) Valuation(c *gin.Context) {
	report, err := h.Analytics.Valuation(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) ExpiringBatches(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("within_days", "7"))

	batches, err := h.Analytics.ExpiringBatches(middleware.TenantFrom(c), days)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": batches})
}

func (h *ReportHandler) ABCAnalysis(c *gin.Context) {
	report, err := h.Analytics.ABCAnalysis(c.Request.Context(), middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) Turnover(c *gin.Context) {
	periodDays, _ := strconv.Atoi(c.DefaultQuery("period_days", "30"))

	report, err := h.Analytics.Turnover(c.Request.Context(), middleware.TenantFrom(c), periodDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) PriceVolatility(c *gin.Context) {
	periodDays, _ := strconv.Atoi(c.DefaultQuery("period_days", "90"))

	report, err := h.Analytics.PriceVolatility(c.Request.Context(), middleware.TenantFrom(c), periodDays)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// ============ RECIPES ============

func (h *ReportHandler) RecipeCost(c *gin.Context) {
	recipeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipe id"})
		return
	}

	cost, err := h.Recipes.Cost(middleware.TenantFrom(c), recipeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cost})
}

func (h *ReportHandler) MenuEngineering(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("period_days", "30"))
	since := time.Now().AddDate(0, 0, -days)

	report, err := h.Recipes.MenuEngineering(c.Request.Context(), middleware.TenantFrom(c), since)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *ReportHandler) RecordProductionRun(c *gin.Context) {
	var req requests.ProductionRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Recipes.RecordProductionRun(services.ProductionRunRequest{
		TenantID:    middleware.TenantFrom(c),
		RecipeID:    req.RecipeID,
		Batches:     req.Batches,
		ActualYield: req.ActualYield,
		LocationID:  req.LocationID,
		Actor:       actorFrom(req.PerformedBy),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (h *ReportHandler) ListRecipes(c *gin.Context) {
	recipes, err := h.Catalog.ListRecipes(middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipes})
}

// ============ ORDER DEDUCTION ============

func (h *ReportHandler) DeductForOrder(c *gin.Context) {
	var req requests.DeductOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Orders.DeductForOrder(toDeductRequest(middleware.TenantFrom(c), req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (h *ReportHandler) ReturnForOrder(c *gin.Context) {
	var req requests.DeductOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Orders.ReturnForOrder(toDeductRequest(middleware.TenantFrom(c), req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func toDeductRequest(tenantID uuid.UUID, req requests.DeductOrderRequest) services.DeductForOrderRequest {
	lines := make([]services.OrderLineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.OrderLineRequest{
			RecipeID: l.RecipeID,
			Quantity: l.Quantity,
		})
	}
	return services.DeductForOrderRequest{
		TenantID:   tenantID,
		OrderID:    req.OrderID,
		LocationID: req.LocationID,
		Actor:      actorFrom(req.PerformedBy),
		Lines:      lines,
	}
}

// CreateRecipe lives here with the other recipe endpoints.
func (h *ReportHandler) CreateRecipe(c *gin.Context) {
	var req requests.CreateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ingredients := make([]models.RecipeIngredient, 0, len(req.Ingredients))
	for _, ing := range req.Ingredients {
		ingredients = append(ingredients, models.RecipeIngredient{
			ItemID:   ing.ItemID,
			Quantity: ing.Quantity,
			Unit:     ing.Unit,
		})
	}

	recipe, err := h.Catalog.CreateRecipe(&models.Recipe{
		TenantID:         middleware.TenantFrom(c),
		Name:             req.Name,
		Category:         req.Category,
		TheoreticalYield: req.TheoreticalYield,
		PrepTimeMinutes:  req.PrepTimeMinutes,
		CookTimeMinutes:  req.CookTimeMinutes,
		SellingPrice:     req.SellingPrice,
		Ingredients:      ingredients,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": recipe})
}
