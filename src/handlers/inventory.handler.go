package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-inventory/src/middleware"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
	"restaurant-inventory/src/requests"
	"restaurant-inventory/src/services"
)

type InventoryHandler struct {
	Catalog   *services.CatalogService
	Ledger    *services.MovementService
	Counts    *services.CountService
	Replenish *services.ReplenishmentService
}

// ============ ITEMS ============

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req requests.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := &models.InventoryItem{
		TenantID:            middleware.TenantFrom(c),
		SKU:                 req.SKU,
		Name:                req.Name,
		Category:            req.Category,
		BaseUnit:            req.BaseUnit,
		Conversions:         req.Conversions,
		CostingMethod:       models.CostingMethod(req.CostingMethod),
		BatchTracked:        req.BatchTracked,
		CurrentCost:         req.CurrentCost,
		ReorderPoint:        req.ReorderPoint,
		ReorderQuantity:     req.ReorderQuantity,
		SafetyStock:         req.SafetyStock,
		PreferredSupplierID: req.PreferredSupplierID,
	}

	item, err := h.Catalog.CreateItem(item, req.OpeningQuantity, req.LocationID, actorFrom(req.PerformedBy))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, err := h.Catalog.GetItem(middleware.TenantFrom(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	activeOnly := c.DefaultQuery("active", "true") == "true"

	items, total, err := h.Catalog.ListItems(middleware.TenantFrom(c), activeOnly, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (int(total) + limit - 1) / limit,
		},
	})
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	var req requests.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item, err := h.Catalog.UpdateItem(middleware.TenantFrom(c), itemID, func(item *models.InventoryItem) error {
		if req.Name != nil {
			item.Name = *req.Name
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.Conversions != nil {
			item.Conversions = req.Conversions
		}
		if req.CostingMethod != nil {
			item.CostingMethod = models.CostingMethod(*req.CostingMethod)
		}
		if req.ReorderPoint != nil {
			item.ReorderPoint = *req.ReorderPoint
		}
		if req.ReorderQuantity != nil {
			item.ReorderQuantity = *req.ReorderQuantity
		}
		if req.SafetyStock != nil {
			item.SafetyStock = *req.SafetyStock
		}
		if req.PreferredSupplierID != nil {
			item.PreferredSupplierID = req.PreferredSupplierID
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (h *InventoryHandler) DeactivateItem(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	if err := h.Catalog.DeactivateItem(middleware.TenantFrom(c), itemID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "item deactivated"})
}

// ============ LOCATIONS & SUPPLIERS ============

func (h *InventoryHandler) CreateLocation(c *gin.Context) {
	var req requests.CreateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc, err := h.Catalog.CreateLocation(&models.Location{
		TenantID: middleware.TenantFrom(c),
		Code:     req.Code,
		Name:     req.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": loc})
}

func (h *InventoryHandler) ListLocations(c *gin.Context) {
	locations, err := h.Catalog.ListLocations(middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": locations})
}

func (h *InventoryHandler) CreateSupplier(c *gin.Context) {
	var req requests.CreateSupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supplier, err := h.Catalog.CreateSupplier(&models.Supplier{
		TenantID:     middleware.TenantFrom(c),
		Code:         req.Code,
		Name:         req.Name,
		LeadTimeDays: req.LeadTimeDays,
		IsActive:     true,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": supplier})
}

func (h *InventoryHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.Catalog.ListSuppliers(middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": suppliers})
}

func (h *InventoryHandler) LinkSupplierItem(c *gin.Context) {
	var req requests.LinkSupplierItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.Catalog.LinkSupplierItem(&models.SupplierItem{
		SupplierID:       req.SupplierID,
		ItemID:           req.ItemID,
		SupplierSKU:      req.SupplierSKU,
		Cost:             req.Cost,
		MinOrderQuantity: req.MinOrderQuantity,
		LeadTimeDays:     req.LeadTimeDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": link})
}

// ============ MOVEMENTS ============

func (h *InventoryHandler) RecordMovement(c *gin.Context) {
	var req requests.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Ledger.Record(services.RecordMovementRequest{
		TenantID:       middleware.TenantFrom(c),
		ItemID:         req.ItemID,
		Type:           models.MovementType(req.Type),
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		FromLocationID: req.FromLocationID,
		ToLocationID:   req.ToLocationID,
		BatchID:        req.BatchID,
		UnitCost:       req.UnitCost,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Actor:          actorFrom(req.PerformedBy),
		Reason:         req.Reason,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": movement})
}

func (h *InventoryHandler) Transfer(c *gin.Context) {
	var req requests.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Ledger.Record(services.RecordMovementRequest{
		TenantID:       middleware.TenantFrom(c),
		ItemID:         req.ItemID,
		Type:           models.MovementTransfer,
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		FromLocationID: &req.FromLocationID,
		ToLocationID:   &req.ToLocationID,
		Actor:          actorFrom(req.PerformedBy),
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": movement})
}

func (h *InventoryHandler) ReverseMovement(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement id"})
		return
	}

	var req requests.ReverseMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Ledger.Reverse(middleware.TenantFrom(c), movementID, actorFrom(req.PerformedBy), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "movement reversed",
		"data":    movement,
	})
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	filter := repositories.MovementFilter{}
	if itemStr := c.Query("item_id"); itemStr != "" {
		itemID, err := uuid.Parse(itemStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item_id"})
			return
		}
		filter.ItemID = &itemID
	}
	if typeStr := c.Query("type"); typeStr != "" {
		filter.Types = []models.MovementType{models.MovementType(typeStr)}
	}
	if fromStr := c.Query("from_date"); fromStr != "" {
		from, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from_date, use YYYY-MM-DD"})
			return
		}
		filter.FromDate = &from
	}
	if toStr := c.Query("to_date"); toStr != "" {
		to, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to_date, use YYYY-MM-DD"})
			return
		}
		to = time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, to.Location())
		filter.ToDate = &to
	}

	movements, total, err := h.Ledger.GetMovements(middleware.TenantFrom(c), filter, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": movements,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (int(total) + limit - 1) / limit,
		},
	})
}

// ============ WASTE & COUNTS ============

func (h *InventoryHandler) RecordWaste(c *gin.Context) {
	var req requests.RecordWasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Counts.RecordWaste(services.RecordWasteRequest{
		TenantID:   middleware.TenantFrom(c),
		ItemID:     req.ItemID,
		Type:       models.MovementType(req.Type),
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		LocationID: req.LocationID,
		BatchID:    req.BatchID,
		Actor:      actorFrom(req.PerformedBy),
		Reason:     req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": movement})
}

func (h *InventoryHandler) CycleCount(c *gin.Context) {
	var req requests.CycleCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Counts.CycleCount(services.CycleCountRequest{
		TenantID:        middleware.TenantFrom(c),
		ItemID:          req.ItemID,
		LocationID:      req.LocationID,
		CountedQuantity: req.CountedQuantity,
		Actor:           actorFrom(req.PerformedBy),
		Notes:           req.Notes,
	})
	if err != nil {
		var approval *services.ApprovalRequiredError
		if errors.As(err, &approval) && result != nil {
			c.JSON(http.StatusAccepted, gin.H{
				"message": "variance exceeds threshold, approval required",
				"data":    result,
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (h *InventoryHandler) ApproveCycleCount(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement id"})
		return
	}

	var req requests.ResolveCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Counts.ApproveCycleCount(middleware.TenantFrom(c), movementID, models.UserActor(req.ApprovedBy))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "count approved and applied",
		"data":    movement,
	})
}

func (h *InventoryHandler) RejectCycleCount(c *gin.Context) {
	movementID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid movement id"})
		return
	}

	var req requests.ResolveCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Counts.RejectCycleCount(middleware.TenantFrom(c), movementID, models.UserActor(req.ApprovedBy))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "count rejected, stock unchanged",
		"data":    movement,
	})
}

// ============ REPLENISHMENT ============

func (h *InventoryHandler) ReorderSuggestions(c *gin.Context) {
	suggestions, err := h.Replenish.DetectReorders(middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": suggestions})
}

func (h *InventoryHandler) GenerateReplenishmentOrders(c *gin.Context) {
	orders, unsourced, err := h.Replenish.GenerateOrders(middleware.TenantFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"data":      orders,
		"unsourced": unsourced,
	})
}

func (h *InventoryHandler) RecomputeReorderParams(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id"})
		return
	}

	item, err := h.Replenish.RecomputeReorderParams(middleware.TenantFrom(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
