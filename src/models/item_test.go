package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBase(t *testing.T) {
	item := &InventoryItem{
		SKU:         "FLOUR-01",
		BaseUnit:    "g",
		Conversions: UnitConversions{"kg": 1000, "bag": 25000},
	}

	qty, err := item.ConvertToBase(2, "kg")
	require.NoError(t, err)
	assert.Equal(t, 2000.0, qty)

	qty, err = item.ConvertToBase(0.5, "bag")
	require.NoError(t, err)
	assert.Equal(t, 12500.0, qty)
}

func TestConvertToBasePassthrough(t *testing.T) {
	item := &InventoryItem{BaseUnit: "g"}

	qty, err := item.ConvertToBase(42, "g")
	require.NoError(t, err)
	assert.Equal(t, 42.0, qty)

	// An empty unit means the quantity is already in the base unit.
	qty, err = item.ConvertToBase(42, "")
	require.NoError(t, err)
	assert.Equal(t, 42.0, qty)
}

func TestConvertToBaseUnknownUnit(t *testing.T) {
	item := &InventoryItem{
		SKU:         "FLOUR-01",
		BaseUnit:    "g",
		Conversions: UnitConversions{"kg": 1000},
	}

	_, err := item.ConvertToBase(1, "lb")
	assert.Error(t, err)
}

func TestTotalAvailable(t *testing.T) {
	item := &InventoryItem{TotalQuantity: 100, TotalReserved: 30}
	assert.Equal(t, 70.0, item.TotalAvailable())
}

func TestUnitConversionsScan(t *testing.T) {
	var u UnitConversions

	require.NoError(t, u.Scan([]byte(`{"kg":1000}`)))
	assert.Equal(t, 1000.0, u["kg"])

	require.NoError(t, u.Scan(`{"l":1000}`))
	assert.Equal(t, 1000.0, u["l"])

	require.NoError(t, u.Scan(nil))
	assert.Empty(t, u)

	assert.Error(t, u.Scan(42))
}

func TestCostingMethodUsesBatchOrder(t *testing.T) {
	assert.True(t, CostingFIFO.UsesBatchOrder())
	assert.True(t, CostingLIFO.UsesBatchOrder())
	assert.False(t, CostingWeightedAverage.UsesBatchOrder())
	assert.False(t, CostingSpecific.UsesBatchOrder())
}
