package repositories

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"restaurant-inventory/src/models"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return db, mock
}

func TestSaveAggregatesBumpsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ItemRepository{DB: db}

	item := &models.InventoryItem{
		ID:            uuid.New(),
		TotalQuantity: 70,
		Version:       3,
	}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "inventory_items"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveAggregates(db, item))
	assert.Equal(t, int64(4), item.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAggregatesDetectsStaleVersion(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ItemRepository{DB: db}

	item := &models.InventoryItem{ID: uuid.New(), Version: 3}

	// A concurrent writer already bumped the version, so the guarded update
	// matches no rows.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "inventory_items"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveAggregates(db, item)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, int64(3), item.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ItemRepository{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "inventory_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDLoadsStockLevels(t *testing.T) {
	db, mock := newMockDB(t)
	repo := &ItemRepository{DB: db}

	tenantID := uuid.New()
	itemID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "inventory_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "sku", "total_quantity", "version"}).
			AddRow(itemID, tenantID, "TOMATO-01", 40.0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "stock_levels"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "item_id", "location_id", "quantity"}).
			AddRow(uuid.New(), itemID, uuid.New(), 40.0))

	item, err := repo.GetByID(tenantID, itemID)
	require.NoError(t, err)
	assert.Equal(t, "TOMATO-01", item.SKU)
	assert.Equal(t, 40.0, item.TotalQuantity)
	require.Len(t, item.StockLevels, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
