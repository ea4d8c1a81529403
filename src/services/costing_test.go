package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-inventory/src/models"
)

func makeBatch(qty, cost float64, receivedDaysAgo int) models.Batch {
	return models.Batch{
		ID:         uuid.New(),
		Quantity:   qty,
		UnitCost:   cost,
		ReceivedAt: time.Now().AddDate(0, 0, -receivedDaysAgo),
		IsActive:   true,
	}
}

func TestAllocateWalksBatchesInOrder(t *testing.T) {
	engine := CostingEngine{}
	batches := []models.Batch{
		makeBatch(10, 2.0, 5),
		makeBatch(5, 3.0, 1),
	}

	allocations, total := engine.Allocate(batches, 12)

	require.Len(t, allocations, 2)
	assert.Equal(t, batches[0].ID, allocations[0].BatchID)
	assert.Equal(t, 10.0, allocations[0].Quantity)
	assert.Equal(t, 2.0, allocations[0].UnitCost)
	assert.Equal(t, batches[1].ID, allocations[1].BatchID)
	assert.Equal(t, 2.0, allocations[1].Quantity)
	assert.Equal(t, 3.0, allocations[1].UnitCost)
	assert.InDelta(t, 26.0, total, 1e-9) // 10*2 + 2*3
}

func TestAllocateSkipsEmptyBatches(t *testing.T) {
	engine := CostingEngine{}
	batches := []models.Batch{
		makeBatch(0, 2.0, 5),
		makeBatch(8, 3.0, 1),
	}

	allocations, total := engine.Allocate(batches, 5)

	require.Len(t, allocations, 1)
	assert.Equal(t, batches[1].ID, allocations[0].BatchID)
	assert.Equal(t, 5.0, allocations[0].Quantity)
	assert.InDelta(t, 15.0, total, 1e-9)
}

func TestAllocateStopsAtAvailableStock(t *testing.T) {
	engine := CostingEngine{}
	batches := []models.Batch{makeBatch(4, 2.0, 1)}

	allocations, total := engine.Allocate(batches, 10)

	require.Len(t, allocations, 1)
	assert.Equal(t, 4.0, allocations[0].Quantity)
	assert.InDelta(t, 8.0, total, 1e-9)
}

func TestResolveUnitCostFIFO(t *testing.T) {
	engine := CostingEngine{}
	item := &models.InventoryItem{CostingMethod: models.CostingFIFO, CurrentCost: 5}
	batches := []models.Batch{
		makeBatch(10, 2.0, 5),
		makeBatch(5, 3.0, 1),
	}

	cost := engine.ResolveUnitCost(item, batches, 12)

	assert.InDelta(t, 26.0/12.0, cost, 1e-9)
}

func TestResolveUnitCostLIFO(t *testing.T) {
	engine := CostingEngine{}
	item := &models.InventoryItem{CostingMethod: models.CostingLIFO, CurrentCost: 5}
	// LIFO callers pass the batches newest first.
	batches := []models.Batch{
		makeBatch(5, 3.0, 1),
		makeBatch(10, 2.0, 5),
	}

	cost := engine.ResolveUnitCost(item, batches, 12)

	// 5*3 + 7*2 = 29 over 12 units
	assert.InDelta(t, 29.0/12.0, cost, 1e-9)
}

func TestResolveUnitCostWeightedAverage(t *testing.T) {
	engine := CostingEngine{}
	item := &models.InventoryItem{CostingMethod: models.CostingWeightedAverage, CurrentCost: 5}
	batches := []models.Batch{
		makeBatch(10, 2.0, 5),
		makeBatch(5, 3.0, 1),
	}

	cost := engine.ResolveUnitCost(item, batches, 3)

	assert.InDelta(t, 35.0/15.0, cost, 1e-9)
}

func TestResolveUnitCostUncoveredRemainderUsesCurrentCost(t *testing.T) {
	engine := CostingEngine{}
	item := &models.InventoryItem{CostingMethod: models.CostingFIFO, CurrentCost: 5}
	batches := []models.Batch{makeBatch(10, 2.0, 5)}

	cost := engine.ResolveUnitCost(item, batches, 15)

	// 10 units at 2 from the batch, 5 units at current cost
	assert.InDelta(t, (20.0+25.0)/15.0, cost, 1e-9)
}

func TestResolveUnitCostWithoutBatches(t *testing.T) {
	engine := CostingEngine{}
	item := &models.InventoryItem{CostingMethod: models.CostingFIFO, CurrentCost: 4.5}

	assert.Equal(t, 4.5, engine.ResolveUnitCost(item, nil, 10))
	assert.Equal(t, 4.5, engine.ResolveUnitCost(item, []models.Batch{makeBatch(10, 2, 1)}, 0))
}

func TestWeightedAverageCost(t *testing.T) {
	batches := []models.Batch{
		makeBatch(10, 2.0, 5),
		makeBatch(5, 3.0, 1),
	}
	assert.InDelta(t, 35.0/15.0, WeightedAverageCost(batches), 1e-9)
	assert.Equal(t, 0.0, WeightedAverageCost(nil))
	assert.Equal(t, 0.0, WeightedAverageCost([]models.Batch{makeBatch(0, 7, 1)}))
}

func TestEOQ(t *testing.T) {
	// sqrt(2 * 3650 * 50 / 2.5) = sqrt(146000)
	assert.InDelta(t, 382.0995, EOQ(3650, 50, 2.5), 0.001)

	assert.Equal(t, 0.0, EOQ(0, 50, 2.5))
	assert.Equal(t, 0.0, EOQ(3650, 0, 2.5))
	assert.Equal(t, 0.0, EOQ(3650, 50, 0))
}

func TestReorderPointFor(t *testing.T) {
	assert.InDelta(t, 45.0, ReorderPointFor(5, 7, 10), 1e-9)
	assert.InDelta(t, 10.0, ReorderPointFor(-3, 7, 10), 1e-9)
	assert.InDelta(t, 0.0, ReorderPointFor(0, 14, 0), 1e-9)
}
