package main

import (
	"github.com/gin-gonic/gin"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/handlers"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/middleware"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
	"restaurant-inventory/src/routes"
	"restaurant-inventory/src/services"
)

func main() {
	cfg := config.Load()
	db := config.InitDB(cfg.Database)

	if err := db.AutoMigrate(
		&models.Location{},
		&models.InventoryItem{},
		&models.StockLevel{},
		&models.Batch{},
		&models.StockMovement{},
		&models.Supplier{},
		&models.SupplierItem{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderLine{},
		&models.PurchaseOrderApproval{},
		&models.PurchaseOrderPayment{},
		&models.Recipe{},
		&models.RecipeIngredient{},
		&models.ProductionYield{},
		&models.MenuSale{},
	); err != nil {
		logger.Log.Fatal().Err(err).Msg("migration failed")
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("report cache unavailable, running without cache")
		reportCache = cache.NewNoopReportCache()
	}

	// Repositories
	itemRepo := &repositories.ItemRepository{DB: db}
	batchRepo := &repositories.BatchRepository{DB: db}
	movementRepo := &repositories.MovementRepository{DB: db}
	orderRepo := &repositories.PurchaseOrderRepository{DB: db}
	supplierRepo := &repositories.SupplierRepository{DB: db}
	recipeRepo := &repositories.RecipeRepository{DB: db}

	// Services
	ledger := &services.MovementService{
		DB:        db,
		Items:     itemRepo,
		Batches:   batchRepo,
		Movements: movementRepo,
		Cache:     reportCache,
	}
	counts := &services.CountService{
		DB:        db,
		Items:     itemRepo,
		Movements: movementRepo,
		Ledger:    ledger,
		Cache:     reportCache,
		Cfg:       cfg.Costing,
	}
	orderSvc := &services.PurchaseOrderService{
		DB:        db,
		Orders:    orderRepo,
		Items:     itemRepo,
		Suppliers: supplierRepo,
		Ledger:    ledger,
		Cfg:       cfg.Costing,
	}
	receiving := &services.ReceivingService{
		DB:        db,
		Orders:    orderRepo,
		Items:     itemRepo,
		Batches:   batchRepo,
		Suppliers: supplierRepo,
		Ledger:    ledger,
		Cache:     reportCache,
		Cfg:       cfg.Costing,
	}
	replenish := &services.ReplenishmentService{
		DB:        db,
		Items:     itemRepo,
		Suppliers: supplierRepo,
		Movements: movementRepo,
		OrderSvc:  orderSvc,
		Cfg:       cfg.Costing,
	}
	catalog := &services.CatalogService{
		DB:        db,
		Items:     itemRepo,
		Suppliers: supplierRepo,
		Recipes:   recipeRepo,
		Ledger:    ledger,
	}
	recipes := &services.RecipeService{
		DB:      db,
		Recipes: recipeRepo,
		Items:   itemRepo,
		Ledger:  ledger,
		Cache:   reportCache,
		Cfg:     cfg.Recipe,
	}
	orders := &services.OrderService{
		DB:      db,
		Items:   itemRepo,
		Recipes: recipeRepo,
		Ledger:  ledger,
	}
	analytics := &services.AnalyticsService{
		Items:     itemRepo,
		Batches:   batchRepo,
		Movements: movementRepo,
		Cache:     reportCache,
		Cfg:       cfg.Costing,
	}

	// Handlers
	inventoryHandler := &handlers.InventoryHandler{
		Catalog:   catalog,
		Ledger:    ledger,
		Counts:    counts,
		Replenish: replenish,
	}
	poHandler := &handlers.PurchaseOrderHandler{
		Orders:    orderSvc,
		Receiving: receiving,
	}
	reportHandler := &handlers.ReportHandler{
		Analytics: analytics,
		Recipes:   recipes,
		Orders:    orders,
		Catalog:   catalog,
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(middleware.Logger(), middleware.Recovery())

	api := router.Group("/api/v1", middleware.Tenant())
	routes.RegisterInventoryRoutes(api.Group("/inventory"), inventoryHandler)
	routes.RegisterPurchaseOrderRoutes(api.Group("/purchase-orders"), poHandler)
	routes.RegisterReportRoutes(api.Group("/reports"), reportHandler)
	routes.RegisterRecipeRoutes(api.Group("/recipes"), reportHandler)
	routes.RegisterOrderRoutes(api.Group("/orders"), reportHandler)

	addr := ":" + cfg.Server.Port
	logger.Log.Info().Str("addr", addr).Msg("starting server")
	if err := router.Run(addr); err != nil {
		logger.Log.Fatal().Err(err).Msg("server failed")
	}
}
