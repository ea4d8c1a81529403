package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"restaurant-inventory/src/models"
)

func TestClassifyMenuItem(t *testing.T) {
	const medianUnits, medianMargin = 100.0, 5.0

	cases := []struct {
		name   string
		units  float64
		margin float64
		want   models.MenuClass
	}{
		{"popular and profitable", 150, 8, models.MenuStar},
		{"popular, thin margin", 150, 2, models.MenuPlowhorse},
		{"profitable, slow mover", 40, 8, models.MenuPuzzle},
		{"neither", 40, 2, models.MenuDog},
		{"exactly at both medians", 100, 5, models.MenuStar},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyMenuItem(tc.units, tc.margin, medianUnits, medianMargin)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 7.0, median([]float64{7}))
	assert.Equal(t, 3.0, median([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}

func TestMedianDoesNotMutateInput(t *testing.T) {
	values := []float64{9, 1, 5}
	_ = median(values)
	assert.Equal(t, []float64{9, 1, 5}, values)
}

func TestIngredientUnitCost(t *testing.T) {
	item := &models.InventoryItem{
		CostingMethod: models.CostingWeightedAverage,
		AverageCost:   2.5,
		CurrentCost:   3.0,
	}
	assert.Equal(t, 2.5, ingredientUnitCost(item))

	// Weighted average with no observed average falls back to current cost.
	item.AverageCost = 0
	assert.Equal(t, 3.0, ingredientUnitCost(item))

	item.CostingMethod = models.CostingFIFO
	item.AverageCost = 2.5
	assert.Equal(t, 3.0, ingredientUnitCost(item))
}
