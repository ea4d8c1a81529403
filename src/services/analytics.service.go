package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"restaurant-inventory/src/cache"
	"restaurant-inventory/src/config"
	"restaurant-inventory/src/logger"
	"restaurant-inventory/src/models"
	"restaurant-inventory/src/repositories"
)

// ============ REPORT STRUCTS ============
type ValuationLine struct {
	ItemID   uuid.UUID `json:"item_id"`
	SKU      string    `json:"sku"`
	Name     string    `json:"name"`
	Quantity float64   `json:"quantity"`
	UnitCost float64   `json:"unit_cost"`
	Value    float64   `json:"value"`
}

type ValuationReport struct {
	TotalValue  float64         `json:"total_value"`
	Lines       []ValuationLine `json:"lines"`
	GeneratedAt time.Time       `json:"generated_at"`
}

type ABCClass string

const (
	ABCClassA ABCClass = "A"
	ABCClassB ABCClass = "B"
	ABCClassC ABCClass = "C"
)

type ABCLine struct {
	ItemID            uuid.UUID `json:"item_id"`
	ConsumptionValue  float64   `json:"consumption_value"`
	CumulativePercent float64   `json:"cumulative_percent"`
	Class             ABCClass  `json:"class"`
}

type ABCReport struct {
	Lines       []ABCLine `json:"lines"`
	GeneratedAt time.Time `json:"generated_at"`
}

type TurnoverSpeed string

const (
	TurnoverSlow     TurnoverSpeed = "SLOW"
	TurnoverNormal   TurnoverSpeed = "NORMAL"
	TurnoverFast     TurnoverSpeed = "FAST"
	TurnoverVeryFast TurnoverSpeed = "VERY_FAST"
)

type TurnoverLine struct {
	ItemID     uuid.UUID     `json:"item_id"`
	SKU        string        `json:"sku"`
	Usage      float64       `json:"usage"`
	AvgStock   float64       `json:"avg_stock"`
	Turnover   float64       `json:"turnover"`
	DaysOnHand float64       `json:"days_on_hand"`
	Speed      TurnoverSpeed `json:"speed"`
}

type TurnoverReport struct {
	PeriodDays  int            `json:"period_days"`
	Lines       []TurnoverLine `json:"lines"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type VolatilityLine struct {
	ItemID                 uuid.UUID `json:"item_id"`
	SKU                    string    `json:"sku"`
	MeanCost               float64   `json:"mean_cost"`
	CoefficientOfVariation float64   `json:"coefficient_of_variation"`
	Samples                int       `json:"samples"`
}

type VolatilityReport struct {
	PeriodDays  int              `json:"period_days"`
	Threshold   float64          `json:"threshold"`
	Lines       []VolatilityLine `json:"lines"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ============ ANALYTICS SERVICE ============
// AnalyticsService serves the read-side reports. Every report tolerates an
// empty ledger and caches its result per tenant until the next stock write.
type AnalyticsService struct {
	Items     *repositories.ItemRepository
	Batches   *repositories.BatchRepository
	Movements *repositories.MovementRepository
	Cache     cache.ReportCache
	Cfg       config.CostingConfig
}

// Valuation prices current stock per item on its costing basis.
func (s *AnalyticsService) Valuation(ctx context.Context, tenantID uuid.UUID) (*ValuationReport, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}

	var cached ValuationReport
	if hit, err := s.Cache.Get(ctx, tenantID, "valuation", &cached); err == nil && hit {
		return &cached, nil
	}

	items, err := s.Items.ListActive(tenantID)
	if err != nil {
		return nil, err
	}

	report := &ValuationReport{Lines: make([]ValuationLine, 0, len(items)), GeneratedAt: time.Now()}
	for i := range items {
		item := &items[i]
		unitCost := ingredientUnitCost(item)
		value := item.TotalQuantity * unitCost
		report.Lines = append(report.Lines, ValuationLine{
			ItemID:   item.ID,
			SKU:      item.SKU,
			Name:     item.Name,
			Quantity: item.TotalQuantity,
			UnitCost: unitCost,
			Value:    value,
		})
		report.TotalValue += value
	}

	s.cacheSet(ctx, tenantID, "valuation", report)
	return report, nil
}

// ExpiringBatches lists active batches expiring within the horizon.
func (s *AnalyticsService) ExpiringBatches(tenantID uuid.UUID, withinDays int) ([]models.Batch, error) {
	if withinDays <= 0 {
		withinDays = 7
	}
	return s.Batches.Expiring(tenantID, time.Now().AddDate(0, 0, withinDays))
}

// ABCAnalysis ranks items by trailing twelve month consumption value and
// cuts the cumulative share at 80 and 95 percent.
func (s *AnalyticsService) ABCAnalysis(ctx context.Context, tenantID uuid.UUID) (*ABCReport, error) {
	if tenantID == uuid.Nil {
		return nil, validationErr("tenant_id", "tenant context is required")
	}

	var cached ABCReport
	if hit, err := s.Cache.Get(ctx, tenantID, "abc", &cached); err == nil && hit {
		return &cached, nil
	}

	consumption, err := s.Movements.ConsumptionValues(tenantID, time.Now().AddDate(-1, 0, 0))
	if err != nil {
		return nil, err
	}

	report := &ABCReport{GeneratedAt: time.Now()}
	total := 0.0
	for _, c := range consumption {
		total += c.Value
	}
	if total == 0 {
		s.cacheSet(ctx, tenantID, "abc", report)
		return report, nil
	}

	sort.Slice(consumption, func(i, j int) bool {
		return consumption[i].Value > consumption[j].Value
	})
	report.Lines = abcLines(consumption, total)

	s.cacheSet(ctx, tenantID, "abc", report)
	return report, nil
}

// abcLines classifies consumption rows, which must already be sorted by
// value descending, by cumulative value share: A up to 80 percent, B up to
// 95, C for the tail.
func abcLines(consumption []repositories.ItemConsumption, total float64) []ABCLine {
	cumulative := 0.0
	lines := make([]ABCLine, 0, len(consumption))
	for _, c := range consumption {
		cumulative += c.Value
		pct := cumulative / total * 100
		class := ABCClassC
		switch {
		case pct <= 80:
			class = ABCClassA
		case pct <= 95:
			class = ABCClassB
		}
		lines = append(lines, ABCLine{
			ItemID:            c.ItemID,
			ConsumptionValue:  c.Value,
			CumulativePercent: pct,
			Class:             class,
		})
	}
	return lines
}

// Turnover annualizes consumption against stock on hand and buckets each
// item by days of cover.
func (s *AnalyticsService) Turnover(ctx context.Context, tenantID uuid.UUID, periodDays int) (*TurnoverReport, error) {
	if periodDays <= 0 {
		periodDays = 30
	}

	var cached TurnoverReport
	if hit, err := s.Cache.Get(ctx, tenantID, "turnover", &cached); err == nil && hit && cached.PeriodDays == periodDays {
		return &cached, nil
	}

	items, err := s.Items.ListActive(tenantID)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -periodDays)
	report := &TurnoverReport{PeriodDays: periodDays, GeneratedAt: time.Now()}
	for i := range items {
		item := &items[i]
		usage, err := s.Movements.SumQuantity(tenantID, item.ID,
			[]models.MovementType{models.MovementSale, models.MovementProduction},
			since)
		if err != nil {
			return nil, err
		}

		line := TurnoverLine{
			ItemID:   item.ID,
			SKU:      item.SKU,
			Usage:    usage,
			AvgStock: item.TotalQuantity,
		}
		if item.TotalQuantity > 0 && usage > 0 {
			line.Turnover = usage / item.TotalQuantity * (365.0 / float64(periodDays))
			dailyUsage := usage / float64(periodDays)
			line.DaysOnHand = item.TotalQuantity / dailyUsage
			line.Speed = turnoverSpeed(line.DaysOnHand)
		} else {
			// No usage in the period. Stock on hand with no movement is
			// the slowest bucket.
			line.Speed = TurnoverSlow
		}
		report.Lines = append(report.Lines, line)
	}

	s.cacheSet(ctx, tenantID, "turnover", report)
	return report, nil
}

// PriceVolatility flags items whose purchase costs swing past the
// configured coefficient of variation.
func (s *AnalyticsService) PriceVolatility(ctx context.Context, tenantID uuid.UUID, periodDays int) (*VolatilityReport, error) {
	if periodDays <= 0 {
		periodDays = 90
	}

	var cached VolatilityReport
	if hit, err := s.Cache.Get(ctx, tenantID, "volatility", &cached); err == nil && hit && cached.PeriodDays == periodDays {
		return &cached, nil
	}

	items, err := s.Items.ListActive(tenantID)
	if err != nil {
		return nil, err
	}

	since := time.Now().AddDate(0, 0, -periodDays)
	report := &VolatilityReport{PeriodDays: periodDays, Threshold: s.Cfg.PriceVolatilityThreshold, GeneratedAt: time.Now()}
	for i := range items {
		item := &items[i]
		costs, err := s.Movements.PurchaseCosts(tenantID, item.ID, since)
		if err != nil {
			return nil, err
		}
		if len(costs) < 2 {
			continue
		}

		mean, cv := coefficientOfVariation(costs)
		if cv <= s.Cfg.PriceVolatilityThreshold {
			continue
		}
		report.Lines = append(report.Lines, VolatilityLine{
			ItemID:                 item.ID,
			SKU:                    item.SKU,
			MeanCost:               mean,
			CoefficientOfVariation: cv,
			Samples:                len(costs),
		})
	}

	s.cacheSet(ctx, tenantID, "volatility", report)
	return report, nil
}

func turnoverSpeed(daysOnHand float64) TurnoverSpeed {
	switch {
	case daysOnHand > 90:
		return TurnoverSlow
	case daysOnHand > 30:
		return TurnoverNormal
	case daysOnHand > 7:
		return TurnoverFast
	default:
		return TurnoverVeryFast
	}
}

func coefficientOfVariation(values []float64) (mean, cv float64) {
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0, 0
	}

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance) / mean
}

func (s *AnalyticsService) cacheSet(ctx context.Context, tenantID uuid.UUID, name string, v interface{}) {
	if err := s.Cache.Set(ctx, tenantID, name, v); err != nil {
		logger.Log.Warn().Err(err).Str("report", name).Msg("report cache write failed")
	}
}
