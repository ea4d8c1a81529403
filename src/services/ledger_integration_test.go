package services_test

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
	"restaurant-inventory/src/services"
)

// Integration coverage for the movement ledger and the count workflow.
// Set INVENTORY_TEST_DSN to a disposable postgres database to run it, e.g.
//
//	INVENTORY_TEST_DSN="host=localhost user=postgres password=postgres dbname=inventory_test port=5432 sslmode=disable"
var (
	testDB        *gorm.DB
	testLedger    *services.MovementService
	testCounts    *services.CountService
	testReceiving *services.ReceivingService
)

func TestMain(m *testing.M) {
	dsn := os.Getenv("INVENTORY_TEST_DSN")
	if dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			panic("failed to connect test database: " + err.Error())
		}
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
		); err != nil {
			panic("test migration failed: " + err.Error())
		}
		db.Exec("TRUNCATE stock_movements, batches, stock_levels, inventory_items, locations, " +
			"purchase_order_payments, purchase_order_approvals, purchase_order_lines, purchase_orders, " +
			"supplier_items, suppliers CASCADE")

		itemRepo := &repositories.ItemRepository{DB: db}
		batchRepo := &repositories.BatchRepository{DB: db}
		movementRepo := &repositories.MovementRepository{DB: db}
		orderRepo := &repositories.PurchaseOrderRepository{DB: db}
		supplierRepo := &repositories.SupplierRepository{DB: db}

		testDB = db
		testLedger = &services.MovementService{
			DB:        db,
			Items:     itemRepo,
			Batches:   batchRepo,
			Movements: movementRepo,
			Cache:     cache.NewNoopReportCache(),
		}
		testCounts = &services.CountService{
			DB:        db,
			Items:     itemRepo,
			Movements: movementRepo,
			Ledger:    testLedger,
			Cache:     cache.NewNoopReportCache(),
			Cfg: config.CostingConfig{
				WasteWindowDays:         90,
				VarianceApprovalPercent: 5.0,
			},
		}
		testReceiving = &services.ReceivingService{
			DB:        db,
			Orders:    orderRepo,
			Items:     itemRepo,
			Batches:   batchRepo,
			Suppliers: supplierRepo,
			Ledger:    testLedger,
			Cache:     cache.NewNoopReportCache(),
			Cfg: config.CostingConfig{
				PaymentTermsDays: 30,
			},
		}
	}

	os.Exit(m.Run())
}

func requireTestDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("INVENTORY_TEST_DSN not set")
	}
}

func seedItem(t *testing.T, tenantID uuid.UUID, sku string) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		TenantID:      tenantID,
		SKU:           sku,
		Name:          "Item " + sku,
		BaseUnit:      "g",
		Conversions:   models.UnitConversions{"kg": 1000},
		CostingMethod: models.CostingFIFO,
		CurrentCost:   2.0,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(item).Error)
	return item
}

func seedLocation(t *testing.T, tenantID uuid.UUID, code string) *models.Location {
	t.Helper()
	loc := &models.Location{TenantID: tenantID, Code: code, Name: "Location " + code}
	require.NoError(t, testDB.Create(loc).Error)
	return loc
}

func openStock(t *testing.T, item *models.InventoryItem, loc *models.Location, qty float64) {
	t.Helper()
	_, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:     item.TenantID,
		ItemID:       item.ID,
		Type:         models.MovementOpeningStock,
		Quantity:     qty,
		ToLocationID: &loc.ID,
		Actor:        models.SystemActor(),
	})
	require.NoError(t, err)
}

func reloadItem(t *testing.T, item *models.InventoryItem) *models.InventoryItem {
	t.Helper()
	var fresh models.InventoryItem
	require.NoError(t, testDB.First(&fresh, "id = ?", item.ID).Error)
	return &fresh
}

func TestLedgerRecordsAndSnapshotsStock(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "LEDGER-01")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))

	openStock(t, item, loc, 100)
	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)

	sale, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:       tenant,
		ItemID:         item.ID,
		Type:           models.MovementSale,
		Quantity:       30,
		FromLocationID: &loc.ID,
		Actor:          models.SystemActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, sale.StockBefore)
	assert.Equal(t, 70.0, sale.StockAfter)
	assert.Equal(t, 70.0, reloadItem(t, item).TotalQuantity)
}

func TestLedgerConvertsUnits(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "LEDGER-KG")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))

	movement, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:     tenant,
		ItemID:       item.ID,
		Type:         models.MovementOpeningStock,
		Quantity:     2,
		Unit:         "kg",
		ToLocationID: &loc.ID,
		Actor:        models.SystemActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, movement.Quantity)
	assert.Equal(t, "g", movement.Unit)
	assert.Equal(t, 2000.0, reloadItem(t, item).TotalQuantity)
}

func TestLedgerRejectsOverdraw(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "LEDGER-SHORT")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 10)

	_, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:       tenant,
		ItemID:         item.ID,
		Type:           models.MovementSale,
		Quantity:       50,
		FromLocationID: &loc.ID,
		Actor:          models.SystemActor(),
	})

	var short *services.InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Len(t, short.Shortfalls, 1)
	assert.Equal(t, 10.0, short.Shortfalls[0].Available)
	assert.Equal(t, 10.0, reloadItem(t, item).TotalQuantity)
}

func TestTransferMovesStockBetweenLocations(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "LEDGER-XFER")
	src := seedLocation(t, tenant, fmt.Sprintf("SRC-%s", uuid.New().String()[:8]))
	dst := seedLocation(t, tenant, fmt.Sprintf("DST-%s", uuid.New().String()[:8]))
	openStock(t, item, src, 100)

	_, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:       tenant,
		ItemID:         item.ID,
		Type:           models.MovementTransfer,
		Quantity:       40,
		FromLocationID: &src.ID,
		ToLocationID:   &dst.ID,
		Actor:          models.SystemActor(),
	})
	require.NoError(t, err)

	// Item total is unchanged; only the per-location split moves.
	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)

	var levels []models.StockLevel
	require.NoError(t, testDB.Where("item_id = ?", item.ID).Find(&levels).Error)
	byLocation := make(map[uuid.UUID]float64, len(levels))
	for _, l := range levels {
		byLocation[l.LocationID] = l.Quantity
	}
	assert.Equal(t, 60.0, byLocation[src.ID])
	assert.Equal(t, 40.0, byLocation[dst.ID])
}

func TestReverseCompensatesMovement(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "LEDGER-REV")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 100)

	sale, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:       tenant,
		ItemID:         item.ID,
		Type:           models.MovementSale,
		Quantity:       30,
		FromLocationID: &loc.ID,
		Actor:          models.SystemActor(),
	})
	require.NoError(t, err)

	reversal, err := testLedger.Reverse(tenant, sale.ID, models.SystemActor(), nil)
	require.NoError(t, err)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, sale.ID, *reversal.ReversalOf)
	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)

	var original models.StockMovement
	require.NoError(t, testDB.First(&original, "id = ?", sale.ID).Error)
	assert.True(t, original.IsReversed)

	// Reversing twice is rejected.
	_, err = testLedger.Reverse(tenant, sale.ID, models.SystemActor(), nil)
	var state *services.InvalidStateTransitionError
	assert.True(t, errors.As(err, &state))
}

func TestCycleCountWithinThresholdApplies(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "COUNT-AUTO")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 100)

	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 97,
		Actor:           models.UserActor(uuid.New()),
	})
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, -3.0, result.Variance)
	assert.InDelta(t, -3.0, result.VariancePercent, 1e-9)
	require.NotNil(t, result.Movement)
	assert.Equal(t, models.ApprovalApproved, result.Movement.ApprovalStatus)
	assert.Equal(t, 97.0, reloadItem(t, item).TotalQuantity)
}

func TestCycleCountAboveThresholdWaitsForApproval(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "COUNT-GATE")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 100)

	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 80,
		Actor:           models.UserActor(uuid.New()),
	})
	var approval *services.ApprovalRequiredError
	require.ErrorAs(t, err, &approval)
	require.NotNil(t, result)
	assert.False(t, result.Applied)
	require.NotNil(t, result.Movement)
	assert.Equal(t, models.ApprovalPending, result.Movement.ApprovalStatus)

	// Stock stays untouched until the approver acts.
	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)

	approver := models.UserActor(uuid.New())
	approved, err := testCounts.ApproveCycleCount(tenant, result.Movement.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, approved.ApprovalStatus)
	assert.Equal(t, 80.0, reloadItem(t, item).TotalQuantity)
}

func TestCycleCountRejectionLeavesStockAlone(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "COUNT-REJ")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 100)

	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 60,
		Actor:           models.UserActor(uuid.New()),
	})
	var approval *services.ApprovalRequiredError
	require.ErrorAs(t, err, &approval)
	require.NotNil(t, result.Movement)

	rejected, err := testCounts.RejectCycleCount(tenant, result.Movement.ID, models.UserActor(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, rejected.ApprovalStatus)
	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)
}

func receiveIntoBatch(t *testing.T, item *models.InventoryItem, loc *models.Location, number string, qty, unitCost float64) *models.Batch {
	t.Helper()
	batch := &models.Batch{
		TenantID:    item.TenantID,
		ItemID:      item.ID,
		BatchNumber: number,
		UnitCost:    unitCost,
		ReceivedAt:  time.Now(),
		IsActive:    true,
	}
	require.NoError(t, testDB.Create(batch).Error)

	_, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:     item.TenantID,
		ItemID:       item.ID,
		Type:         models.MovementPurchase,
		Quantity:     qty,
		ToLocationID: &loc.ID,
		BatchID:      &batch.ID,
		UnitCost:     &unitCost,
		Actor:        models.SystemActor(),
	})
	require.NoError(t, err)
	return batch
}

func TestCycleCountShrinkageConsumesBatches(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "COUNT-BATCH")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	batch := receiveIntoBatch(t, item, loc, "LOT-001", 100, 2.0)

	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 96,
		Actor:           models.UserActor(uuid.New()),
	})
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, 96.0, reloadItem(t, item).TotalQuantity)

	// The batch tracks the adjusted quantity too.
	var fresh models.Batch
	require.NoError(t, testDB.First(&fresh, "id = ?", batch.ID).Error)
	assert.InDelta(t, 96.0, fresh.Quantity, 1e-9)
}

func TestCycleCountSurplusCreatesBatch(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "COUNT-SURPLUS")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	receiveIntoBatch(t, item, loc, "LOT-002", 100, 2.0)

	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 103,
		Actor:           models.UserActor(uuid.New()),
	})
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, 103.0, reloadItem(t, item).TotalQuantity)

	// Found stock lands in its own batch so the batch sum still matches.
	var batches []models.Batch
	require.NoError(t, testDB.Where("item_id = ? AND batch_number LIKE ?", item.ID, "COUNT-%").Find(&batches).Error)
	require.Len(t, batches, 1)
	assert.InDelta(t, 3.0, batches[0].Quantity, 1e-9)
	assert.Equal(t, item.CurrentCost, batches[0].UnitCost)
}

func TestWholeItemCountRejectedAcrossLocations(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "COUNT-MULTI")
	kitchen := seedLocation(t, tenant, fmt.Sprintf("KIT-%s", uuid.New().String()[:8]))
	cellar := seedLocation(t, tenant, fmt.Sprintf("CEL-%s", uuid.New().String()[:8]))
	openStock(t, item, kitchen, 60)
	openStock(t, item, cellar, 40)

	_, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		CountedQuantity: 95,
		Actor:           models.UserActor(uuid.New()),
	})
	var invalid *services.ValidationError
	require.ErrorAs(t, err, &invalid)

	// Per-location counts still work.
	result, err := testCounts.CycleCount(services.CycleCountRequest{
		TenantID:        tenant,
		ItemID:          item.ID,
		LocationID:      &kitchen.ID,
		CountedQuantity: 58,
		Actor:           models.UserActor(uuid.New()),
	})
	require.NoError(t, err)
	require.True(t, result.Applied)
	assert.Equal(t, 98.0, reloadItem(t, item).TotalQuantity)
}

func TestWasteMovement(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedItem(t, tenant, "WASTE-01")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	openStock(t, item, loc, 50)

	movement, err := testCounts.RecordWaste(services.RecordWasteRequest{
		TenantID:   tenant,
		ItemID:     item.ID,
		Quantity:   5,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
	})
	require.NoError(t, err)
	assert.Equal(t, models.MovementWaste, movement.Type)
	assert.Equal(t, 45.0, reloadItem(t, item).TotalQuantity)
}
