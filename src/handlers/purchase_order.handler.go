package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restaurant-inventory/src/middleware"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/requests"
	"restaurant-inventory/src/services"
)

type PurchaseOrderHandler struct {
	Orders    *services.PurchaseOrderService
	Receiving *services.ReceivingService
}

// ============ LIFECYCLE ============

func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req requests.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]services.CreateOrderLineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.CreateOrderLineRequest{
			ItemID:     l.ItemID,
			Quantity:   l.Quantity,
			Unit:       l.Unit,
			UnitPrice:  l.UnitPrice,
			QCRequired: l.QCRequired,
		})
	}

	po, err := h.Orders.Create(services.CreateOrderRequest{
		TenantID:     middleware.TenantFrom(c),
		SupplierID:   req.SupplierID,
		RequiredDate: req.RequiredDate,
		Notes:        req.Notes,
		Actor:        actorFrom(req.PerformedBy),
		Lines:        lines,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": po})
}

func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	po, err := h.Orders.Get(middleware.TenantFrom(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": po})
}

func (h *PurchaseOrderHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	status := models.PurchaseOrderStatus(c.Query("status"))

	orders, total, err := h.Orders.List(middleware.TenantFrom(c), status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": orders,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": (int(total) + limit - 1) / limit,
		},
	})
}

func (h *PurchaseOrderHandler) Submit(c *gin.Context) {
	h.simpleTransition(c, h.Orders.Submit, "order submitted for approval")
}

func (h *PurchaseOrderHandler) Approve(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.Approve(middleware.TenantFrom(c), orderID, models.UserActor(req.ApprovedBy), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": po})
}

func (h *PurchaseOrderHandler) Reject(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.Reject(middleware.TenantFrom(c), orderID, models.UserActor(req.ApprovedBy), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "order rejected, returned to draft",
		"data":    po,
	})
}

func (h *PurchaseOrderHandler) Send(c *gin.Context) {
	h.simpleTransition(c, h.Orders.Send, "order sent to supplier")
}

func (h *PurchaseOrderHandler) Acknowledge(c *gin.Context) {
	h.simpleTransition(c, h.Orders.Acknowledge, "order acknowledged by supplier")
}

func (h *PurchaseOrderHandler) Dispute(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.DisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.Dispute(middleware.TenantFrom(c), orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": po})
}

func (h *PurchaseOrderHandler) Cancel(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.Cancel(middleware.TenantFrom(c), orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "order cancelled",
		"data":    po,
	})
}

func (h *PurchaseOrderHandler) Pay(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.PayOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.Pay(services.PayOrderRequest{
		TenantID:  middleware.TenantFrom(c),
		OrderID:   orderID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": po})
}

// ============ RECEIVING ============

func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.ReceiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lines := make([]services.ReceiveLineRequest, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, services.ReceiveLineRequest{
			LineID:      l.LineID,
			Quantity:    l.Quantity,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
			UnitCost:    l.UnitCost,
			QCPassed:    l.QCPassed,
		})
	}

	result, err := h.Receiving.Receive(services.ReceiveRequest{
		TenantID:   middleware.TenantFrom(c),
		OrderID:    orderID,
		LocationID: req.LocationID,
		Actor:      actorFrom(req.PerformedBy),
		Reference:  req.Reference,
		Lines:      lines,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": result})
}

func (h *PurchaseOrderHandler) ReturnLine(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	var req requests.ReturnLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	po, err := h.Orders.ReturnLine(middleware.TenantFrom(c), orderID, req.LineID,
		req.Quantity, req.LocationID, actorFrom(req.PerformedBy), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "goods returned to supplier",
		"data":    po,
	})
}

func (h *PurchaseOrderHandler) ReleaseQuarantine(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	var req requests.QualityReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := h.Receiving.ReleaseQuarantine(middleware.TenantFrom(c), batchID, req.LocationID, actorFrom(req.PerformedBy))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "batch released from quarantine",
		"data":    movement,
	})
}

func (h *PurchaseOrderHandler) RejectQuarantine(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("batchId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}

	var req requests.QualityRejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch, err := h.Receiving.RejectQuarantine(middleware.TenantFrom(c), batchID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "batch rejected",
		"data":    batch,
	})
}

func (h *PurchaseOrderHandler) simpleTransition(c *gin.Context, fn func(uuid.UUID, uuid.UUID) (*models.PurchaseOrder, error), message string) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	po, err := fn(middleware.TenantFrom(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    po,
	})
}
