package services

import (
	"math"

	"github.com/google/uuid"

	"restaurant-inventory/src/models"
)

// CostingEngine resolves unit costs from batch state. It never mutates
// batches; consumption is applied by the movement ledger using the
// allocation plan the engine produces.
type CostingEngine struct{}

// BatchAllocation is one batch's share of a costed consumption.
type BatchAllocation struct {
	BatchID  uuid.UUID
	Quantity float64
	UnitCost float64
}

// ResolveUnitCost prices a consumption of qty units of the item. The batch
// slice must already be ordered for the item's costing method (oldest first
// for FIFO, newest first for LIFO). With no batches the item's current cost
// applies.
func (CostingEngine) ResolveUnitCost(item *models.InventoryItem, batches []models.Batch, qty float64) float64 {
	if len(batches) == 0 || qty <= 0 {
		return item.CurrentCost
	}

	switch item.CostingMethod {
	case models.CostingWeightedAverage:
		return WeightedAverageCost(batches)
	case models.CostingFIFO, models.CostingLIFO, models.CostingSpecific:
		allocations, total := allocate(batches, qty)
		consumed := 0.0
		for _, a := range allocations {
			consumed += a.Quantity
		}
		if consumed <= 0 {
			return item.CurrentCost
		}
		if consumed < qty {
			// Not enough batch stock to cover the request; the uncovered
			// remainder is priced at the item's current cost.
			total += (qty - consumed) * item.CurrentCost
			consumed = qty
		}
		return total / consumed
	}
	return item.CurrentCost
}

// Allocate produces the per-batch consumption plan for qty units, walking
// the (pre-ordered) batches until the request is satisfied. The returned
// total is the summed cost of the allocated quantity.
func (CostingEngine) Allocate(batches []models.Batch, qty float64) ([]BatchAllocation, float64) {
	return allocate(batches, qty)
}

func allocate(batches []models.Batch, qty float64) ([]BatchAllocation, float64) {
	var allocations []BatchAllocation
	remaining := qty
	total := 0.0

	for _, b := range batches {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, b.Quantity)
		if take <= 0 {
			continue
		}
		allocations = append(allocations, BatchAllocation{
			BatchID:  b.ID,
			Quantity: take,
			UnitCost: b.UnitCost,
		})
		total += take * b.UnitCost
		remaining -= take
	}

	return allocations, total
}

// WeightedAverageCost is Σ(qty×cost)/Σ(qty) over the given batches.
func WeightedAverageCost(batches []models.Batch) float64 {
	totalQty := 0.0
	totalValue := 0.0
	for _, b := range batches {
		totalQty += b.Quantity
		totalValue += b.Quantity * b.UnitCost
	}
	if totalQty <= 0 {
		return 0
	}
	return totalValue / totalQty
}

// EOQ is the economic order quantity: sqrt(2×D×S/H) with annual demand D,
// ordering cost S and per-unit holding cost H.
func EOQ(annualDemand, orderingCost, holdingCost float64) float64 {
	if annualDemand <= 0 || orderingCost <= 0 || holdingCost <= 0 {
		return 0
	}
	return math.Sqrt(2 * annualDemand * orderingCost / holdingCost)
}

// ReorderPointFor is demand over the lead time plus safety stock.
func ReorderPointFor(dailyDemand float64, leadTimeDays int, safetyStock float64) float64 {
	if dailyDemand < 0 {
		dailyDemand = 0
	}
	return dailyDemand*float64(leadTimeDays) + safetyStock
}
