package services_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-inventory/src/models"
	"restaurant-inventory/src/services"
)

func seedBatchItem(t *testing.T, tenantID uuid.UUID, sku string) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		TenantID:      tenantID,
		SKU:           sku,
		Name:          "Item " + sku,
		BaseUnit:      "g",
		Conversions:   models.UnitConversions{"kg": 1000},
		CostingMethod: models.CostingFIFO,
		CurrentCost:   2.0,
		BatchTracked:  true,
		IsActive:      true,
	}
	require.NoError(t, testDB.Create(item).Error)
	return item
}

func seedSupplier(t *testing.T, tenantID uuid.UUID) *models.Supplier {
	t.Helper()
	supplier := &models.Supplier{
		TenantID:     tenantID,
		Code:         fmt.Sprintf("SUP-%s", uuid.New().String()[:8]),
		Name:         "Test Supplier",
		LeadTimeDays: 2,
		IsActive:     true,
	}
	require.NoError(t, testDB.Create(supplier).Error)
	return supplier
}

func seedSentOrder(t *testing.T, tenantID uuid.UUID, supplier *models.Supplier, item *models.InventoryItem, quantity, unitPrice float64, qcRequired bool) *models.PurchaseOrder {
	t.Helper()
	po := &models.PurchaseOrder{
		TenantID:      tenantID,
		OrderNumber:   fmt.Sprintf("PO-%s", uuid.New().String()[:8]),
		SupplierID:    supplier.ID,
		Status:        models.POStatusSent,
		OrderDate:     time.Now(),
		Subtotal:      quantity * unitPrice,
		Total:         quantity * unitPrice,
		CreatedByType: models.ActorSystem,
		Lines: []models.PurchaseOrderLine{{
			ItemID:     item.ID,
			Quantity:   quantity,
			Unit:       item.BaseUnit,
			UnitPrice:  unitPrice,
			QCRequired: qcRequired,
		}},
	}
	require.NoError(t, testDB.Create(po).Error)
	return po
}

func reloadOrder(t *testing.T, orderID uuid.UUID) *models.PurchaseOrder {
	t.Helper()
	var po models.PurchaseOrder
	require.NoError(t, testDB.Preload("Lines").First(&po, "id = ?", orderID).Error)
	return &po
}

func reloadBatch(t *testing.T, batchID uuid.UUID) *models.Batch {
	t.Helper()
	var batch models.Batch
	require.NoError(t, testDB.First(&batch, "id = ?", batchID).Error)
	return &batch
}

func TestReceivePostsStockAndCompletesOrder(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "RECV-FULL")
	loc := seedLocation(t, tenant, fmt.Sprintf("DOCK-%s", uuid.New().String()[:8]))
	supplier := seedSupplier(t, tenant)
	po := seedSentOrder(t, tenant, supplier, item, 100, 1.5, false)

	result, err := testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 100}},
	})
	require.NoError(t, err)
	require.Len(t, result.Movements, 1)
	assert.Equal(t, models.MovementPurchase, result.Movements[0].Type)
	assert.Empty(t, result.Quarantined)

	assert.Equal(t, 100.0, reloadItem(t, item).TotalQuantity)

	fresh := reloadOrder(t, po.ID)
	assert.Equal(t, models.POStatusReceived, fresh.Status)
	assert.Equal(t, models.ReceivingComplete, fresh.ReceivingStatus)
	require.NotNil(t, fresh.PaymentDueAt)
	require.Len(t, fresh.Lines, 1)
	assert.Equal(t, models.POLineReceived, fresh.Lines[0].Status)
	assert.Equal(t, 100.0, fresh.Lines[0].ReceivedQuantity)

	var scored models.Supplier
	require.NoError(t, testDB.First(&scored, "id = ?", supplier.ID).Error)
	assert.Equal(t, 1, scored.TotalOrders)
	assert.Equal(t, 1, scored.OnTimeOrders)
}

func TestReceiveQuarantineHoldsStockUntilRelease(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "RECV-QC")
	loc := seedLocation(t, tenant, fmt.Sprintf("DOCK-%s", uuid.New().String()[:8]))
	supplier := seedSupplier(t, tenant)
	po := seedSentOrder(t, tenant, supplier, item, 50, 2.0, true)

	result, err := testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 50}},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Movements)
	require.Len(t, result.Quarantined, 1)
	assert.True(t, result.Quarantined[0].Quarantined)
	assert.Equal(t, 50.0, result.Quarantined[0].Quantity)

	// Held goods are not on hand and do not count as received.
	assert.Equal(t, 0.0, reloadItem(t, item).TotalQuantity)
	fresh := reloadOrder(t, po.ID)
	assert.Equal(t, models.ReceivingNotReceived, fresh.ReceivingStatus)
	assert.Equal(t, 0.0, fresh.Lines[0].ReceivedQuantity)

	movement, err := testReceiving.ReleaseQuarantine(tenant, result.Quarantined[0].ID, loc.ID, models.UserActor(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, 50.0, movement.Quantity)

	assert.Equal(t, 50.0, reloadItem(t, item).TotalQuantity)
	released := reloadBatch(t, result.Quarantined[0].ID)
	assert.False(t, released.Quarantined)
	assert.True(t, released.QualityChecked)
	assert.Equal(t, 50.0, released.Quantity)

	fresh = reloadOrder(t, po.ID)
	assert.Equal(t, models.POStatusReceived, fresh.Status)
	assert.Equal(t, models.ReceivingComplete, fresh.ReceivingStatus)
	assert.Equal(t, 50.0, fresh.Lines[0].ReceivedQuantity)
}

func TestReceiveDockFailureOverridesLineFlag(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "RECV-DOCK")
	loc := seedLocation(t, tenant, fmt.Sprintf("DOCK-%s", uuid.New().String()[:8]))
	supplier := seedSupplier(t, tenant)
	po := seedSentOrder(t, tenant, supplier, item, 20, 3.0, false)

	failed := false
	result, err := testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 20, QCPassed: &failed}},
	})
	require.NoError(t, err)
	require.Len(t, result.Quarantined, 1)
	assert.Empty(t, result.Movements)
	assert.Equal(t, 0.0, reloadItem(t, item).TotalQuantity)
}

func TestRejectQuarantineKeepsShortfallOutstanding(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "RECV-REJ")
	loc := seedLocation(t, tenant, fmt.Sprintf("DOCK-%s", uuid.New().String()[:8]))
	supplier := seedSupplier(t, tenant)
	po := seedSentOrder(t, tenant, supplier, item, 40, 2.5, true)

	result, err := testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 40}},
	})
	require.NoError(t, err)
	require.Len(t, result.Quarantined, 1)

	rejected, err := testReceiving.RejectQuarantine(tenant, result.Quarantined[0].ID, "mould on arrival")
	require.NoError(t, err)
	assert.False(t, rejected.IsActive)
	assert.Equal(t, 0.0, rejected.Quantity)

	assert.Equal(t, 0.0, reloadItem(t, item).TotalQuantity)
	fresh := reloadOrder(t, po.ID)
	assert.Equal(t, 0.0, fresh.Lines[0].ReceivedQuantity)
	assert.Equal(t, 40.0, fresh.Lines[0].Outstanding())

	var scored models.Supplier
	require.NoError(t, testDB.First(&scored, "id = ?", supplier.ID).Error)
	assert.Greater(t, scored.DefectRate, 0.0)
}

func TestSaleConsumesReceivedBatchesFifo(t *testing.T) {
	requireTestDB(t)
	tenant := uuid.New()
	item := seedBatchItem(t, tenant, "RECV-FIFO")
	loc := seedLocation(t, tenant, fmt.Sprintf("MAIN-%s", uuid.New().String()[:8]))
	supplier := seedSupplier(t, tenant)
	po := seedSentOrder(t, tenant, supplier, item, 20, 2.0, false)

	// Two receipts at different prices, oldest first.
	cheap := 2.0
	dear := 3.0
	_, err := testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 10, BatchNumber: "B-OLD", UnitCost: &cheap}},
	})
	require.NoError(t, err)
	_, err = testReceiving.Receive(services.ReceiveRequest{
		TenantID:   tenant,
		OrderID:    po.ID,
		LocationID: loc.ID,
		Actor:      models.UserActor(uuid.New()),
		Lines:      []services.ReceiveLineRequest{{LineID: po.Lines[0].ID, Quantity: 10, BatchNumber: "B-NEW", UnitCost: &dear}},
	})
	require.NoError(t, err)

	sale, err := testLedger.Record(services.RecordMovementRequest{
		TenantID:       tenant,
		ItemID:         item.ID,
		Type:           models.MovementSale,
		Quantity:       15,
		FromLocationID: &loc.ID,
		Actor:          models.SystemActor(),
	})
	require.NoError(t, err)

	// 10 at 2.0 plus 5 at 3.0.
	assert.InDelta(t, 35.0, sale.TotalCost, 1e-9)

	var batches []models.Batch
	require.NoError(t, testDB.Where("item_id = ?", item.ID).Order("received_at ASC, created_at ASC").Find(&batches).Error)
	require.Len(t, batches, 2)
	assert.Equal(t, 0.0, batches[0].Quantity)
	assert.False(t, batches[0].IsActive)
	assert.InDelta(t, 5.0, batches[1].Quantity, 1e-9)
	assert.Equal(t, 5.0, reloadItem(t, item).TotalQuantity)
}
