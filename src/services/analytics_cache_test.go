package services

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/repositories"
)

// memReportCache is an in-process cache.ReportCache for exercising the
// cache-hit paths without redis.
type memReportCache struct {
	entries map[string][]byte
}

func newMemReportCache() *memReportCache {
	return &memReportCache{entries: make(map[string][]byte)}
}

func (c *memReportCache) key(tenantID uuid.UUID, name string) string {
	return tenantID.String() + ":" + name
}

func (c *memReportCache) Get(_ context.Context, tenantID uuid.UUID, name string, dest interface{}) (bool, error) {
	payload, ok := c.entries[c.key(tenantID, name)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(payload, dest)
}

func (c *memReportCache) Set(_ context.Context, tenantID uuid.UUID, name string, payload interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.entries[c.key(tenantID, name)] = encoded
	return nil
}

func (c *memReportCache) InvalidateTenant(_ context.Context, tenantID uuid.UUID) error {
	for k := range c.entries {
		if len(k) > 37 && k[:36] == tenantID.String() {
			delete(c.entries, k)
		}
	}
	return nil
}

var _ cache.ReportCache = (*memReportCache)(nil)

func newCacheTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
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

func TestPriceVolatilityCacheHitRequiresMatchingPeriod(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	mem := newMemReportCache()

	seeded := &VolatilityReport{
		PeriodDays:  90,
		Threshold:   0.2,
		GeneratedAt: time.Now(),
		Lines:       []VolatilityLine{{ItemID: uuid.New(), SKU: "FLOUR-01", MeanCost: 1.5, CoefficientOfVariation: 0.4, Samples: 6}},
	}
	require.NoError(t, mem.Set(ctx, tenantID, "volatility", seeded))

	// A matching window must be served from cache: Items is nil, so any
	// fallthrough to the repository would panic.
	svc := &AnalyticsService{Cache: mem, Cfg: config.CostingConfig{PriceVolatilityThreshold: 0.2}}
	report, err := svc.PriceVolatility(ctx, tenantID, 90)
	require.NoError(t, err)
	require.Len(t, report.Lines, 1)
	assert.Equal(t, "FLOUR-01", report.Lines[0].SKU)
	assert.Equal(t, 90, report.PeriodDays)
}

func TestPriceVolatilityRecomputesForDifferentPeriod(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	mem := newMemReportCache()

	seeded := &VolatilityReport{
		PeriodDays:  90,
		GeneratedAt: time.Now(),
		Lines:       []VolatilityLine{{ItemID: uuid.New(), SKU: "FLOUR-01"}},
	}
	require.NoError(t, mem.Set(ctx, tenantID, "volatility", seeded))

	db, mock := newCacheTestDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "inventory_items"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	svc := &AnalyticsService{
		Items: &repositories.ItemRepository{DB: db},
		Cache: mem,
		Cfg:   config.CostingConfig{PriceVolatilityThreshold: 0.2},
	}
	report, err := svc.PriceVolatility(ctx, tenantID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, report.PeriodDays)
	assert.Empty(t, report.Lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMenuEngineeringCacheHitRequiresMatchingSince(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mem := newMemReportCache()

	seeded := &MenuEngineeringReport{
		Since:       since,
		GeneratedAt: time.Now(),
		Items:       []MenuItemAnalysis{{RecipeID: uuid.New(), Name: "Margherita", UnitsSold: 40}},
	}
	require.NoError(t, mem.Set(ctx, tenantID, "menu_engineering", seeded))

	svc := &RecipeService{Cache: mem}
	report, err := svc.MenuEngineering(ctx, tenantID, since)
	require.NoError(t, err)
	require.Len(t, report.Items, 1)
	assert.Equal(t, "Margherita", report.Items[0].Name)
}

func TestMenuEngineeringRecomputesForDifferentSince(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	mem := newMemReportCache()

	seeded := &MenuEngineeringReport{
		Since:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt: time.Now(),
		Items:       []MenuItemAnalysis{{RecipeID: uuid.New(), Name: "Margherita"}},
	}
	require.NoError(t, mem.Set(ctx, tenantID, "menu_engineering", seeded))

	db, mock := newCacheTestDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "recipes"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM "menu_sales"`)).
		WillReturnRows(sqlmock.NewRows([]string{"recipe_id", "units", "revenue"}))

	since := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	svc := &RecipeService{Recipes: &repositories.RecipeRepository{DB: db}, Cache: mem}
	report, err := svc.MenuEngineering(ctx, tenantID, since)
	require.NoError(t, err)
	assert.Empty(t, report.Items)
	assert.True(t, report.Since.Equal(since))
	assert.NoError(t, mock.ExpectationsWereMet())
}
