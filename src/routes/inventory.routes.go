package routes

import (
	"restaurant-inventory/src/handlers"

	"github.com/gin-gonic/gin"
)

func RegisterInventoryRoutes(r *gin.RouterGroup, handler *handlers.InventoryHandler) {
	// Master data
	r.POST("/items", handler.CreateItem)
	r.GET("/items", handler.ListItems)
	r.GET("/items/:id", handler.GetItem)
	r.PUT("/items/:id", handler.UpdateItem)
	r.DELETE("/items/:id", handler.DeactivateItem)
	r.POST("/items/:id/reorder-params", handler.RecomputeReorderParams)

	r.POST("/locations", handler.CreateLocation)
	r.GET("/locations", handler.ListLocations)

	r.POST("/suppliers", handler.CreateSupplier)
	r.GET("/suppliers", handler.ListSuppliers)
	r.POST("/suppliers/items", handler.LinkSupplierItem)

	// Stock ledger
	r.POST("/movements", handler.RecordMovement)
	r.GET("/movements", handler.ListMovements)
	r.POST("/movements/:id/reverse", handler.ReverseMovement)
	r.POST("/transfers", handler.Transfer)

	// Waste and counts
	r.POST("/waste", handler.RecordWaste)
	r.POST("/counts", handler.CycleCount)
	r.POST("/counts/:id/approve", handler.ApproveCycleCount)
	r.POST("/counts/:id/reject", handler.RejectCycleCount)

	// Replenishment
	r.GET("/replenishment/suggestions", handler.ReorderSuggestions)
	r.POST("/replenishment/orders", handler.GenerateReplenishmentOrders)
}

func RegisterPurchaseOrderRoutes(r *gin.RouterGroup, handler *handlers.PurchaseOrderHandler) {
	r.POST("", handler.Create)
	r.GET("", handler.List)
	r.GET("/:id", handler.Get)

	r.POST("/:id/submit", handler.Submit)
	r.POST("/:id/approve", handler.Approve)
	r.POST("/:id/reject", handler.Reject)
	r.POST("/:id/send", handler.Send)
	r.POST("/:id/acknowledge", handler.Acknowledge)
	r.POST("/:id/dispute", handler.Dispute)
	r.POST("/:id/cancel", handler.Cancel)
	r.POST("/:id/pay", handler.Pay)

	r.POST("/:id/receive", handler.Receive)
	r.POST("/:id/return", handler.ReturnLine)

	r.POST("/quarantine/:batchId/release", handler.ReleaseQuarantine)
	r.POST("/quarantine/:batchId/reject", handler.RejectQuarantine)
}

func RegisterReportRoutes(r *gin.RouterGroup, handler *handlers.ReportHandler) {
	r.GET("/valuation", handler.Valuation)
	r.GET("/expiring", handler.ExpiringBatches)
	r.GET("/abc", handler.ABCAnalysis)
	r.GET("/turnover", handler.Turnover)
	r.GET("/price-volatility", handler.PriceVolatility)
	r.GET("/menu-engineering", handler.MenuEngineering)
}

func RegisterRecipeRoutes(r *gin.RouterGroup, handler *handlers.ReportHandler) {
	r.POST("", handler.CreateRecipe)
	r.GET("", handler.ListRecipes)
	r.GET("/:id/cost", handler.RecipeCost)
	r.POST("/production-runs", handler.RecordProductionRun)
}

func RegisterOrderRoutes(r *gin.RouterGroup, handler *handlers.ReportHandler) {
	r.POST("/deduct", handler.DeductForOrder)
	r.POST("/return", handler.ReturnForOrder)
}
