package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-inventory/src/repositories"
)

func TestTurnoverSpeed(t *testing.T) {
	assert.Equal(t, TurnoverSlow, turnoverSpeed(120))
	assert.Equal(t, TurnoverSlow, turnoverSpeed(90.1))
	assert.Equal(t, TurnoverNormal, turnoverSpeed(90))
	assert.Equal(t, TurnoverNormal, turnoverSpeed(45))
	assert.Equal(t, TurnoverFast, turnoverSpeed(30))
	assert.Equal(t, TurnoverFast, turnoverSpeed(8))
	assert.Equal(t, TurnoverVeryFast, turnoverSpeed(7))
	assert.Equal(t, TurnoverVeryFast, turnoverSpeed(1))
}

func TestCoefficientOfVariation(t *testing.T) {
	mean, cv := coefficientOfVariation([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 0.4, cv, 1e-9) // population stddev 2 over mean 5

	mean, cv = coefficientOfVariation([]float64{3, 3, 3})
	assert.InDelta(t, 3.0, mean, 1e-9)
	assert.InDelta(t, 0.0, cv, 1e-9)
}

func TestCoefficientOfVariationZeroMean(t *testing.T) {
	mean, cv := coefficientOfVariation([]float64{1, -1})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 0.0, cv)
}

func TestABCClassificationCuts(t *testing.T) {
	consumption := []repositories.ItemConsumption{
		{ItemID: uuid.New(), Value: 800},
		{ItemID: uuid.New(), Value: 150},
		{ItemID: uuid.New(), Value: 50},
	}

	lines := abcLines(consumption, 1000)
	require.Len(t, lines, 3)
	assert.Equal(t, ABCClassA, lines[0].Class)
	assert.InDelta(t, 80.0, lines[0].CumulativePercent, 1e-9)
	assert.Equal(t, ABCClassB, lines[1].Class)
	assert.InDelta(t, 95.0, lines[1].CumulativePercent, 1e-9)
	assert.Equal(t, ABCClassC, lines[2].Class)
	assert.InDelta(t, 100.0, lines[2].CumulativePercent, 1e-9)
}

func TestABCClassificationSingleItem(t *testing.T) {
	lines := abcLines([]repositories.ItemConsumption{{ItemID: uuid.New(), Value: 42}}, 42)
	require.Len(t, lines, 1)
	// One item carries 100 percent of the value and still lands in C only
	// past the 95 percent cut.
	assert.Equal(t, ABCClassC, lines[0].Class)
}
