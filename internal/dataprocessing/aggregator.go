package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// Aggregator turns cleaned price records into the dashboard series
// and KPIs.
type Aggregator struct {
	logger   *slog.Logger
	topMakes int
}

// AggregatorConfig holds configuration options for the Aggregator.
type AggregatorConfig struct {
	TopMakes int // Cap on the make series; 0 means the default of 12.
}

// NewAggregator creates a new aggregator with the given configuration.
func NewAggregator(logger *slog.Logger, config AggregatorConfig) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if config.TopMakes <= 0 {
		config.TopMakes = 12
	}

	return &Aggregator{
		logger:   logger.With(slog.String("component", "aggregator")),
		topMakes: config.TopMakes,
	}
}

// Build produces the full dashboard from cleaned records: average
// price by make (descending, top-N), record count by fuel, average
// price by model year, average price by calendar quarter, and the
// KPI block.
func (a *Aggregator) Build(ctx context.Context, records []domain.PriceRecord) domain.Dashboard {
	dashboard := domain.Dashboard{
		AvgPriceByMake:    a.avgPriceByMake(records),
		CountByFuel:       a.countByFuel(records),
		AvgPriceByYear:    a.avgPriceByYear(records),
		AvgPriceByQuarter: a.avgPriceByQuarter(records),
		KPIs:              a.kpis(records),
		GeneratedAt:       time.Now().UTC(),
	}

	a.logger.InfoContext(ctx, "dashboard built",
		slog.Int("record_count", len(records)),
		slog.Int("make_points", dashboard.AvgPriceByMake.Len()),
		slog.Int("quarter_points", dashboard.AvgPriceByQuarter.Len()))

	return dashboard
}

// bucket accumulates a running sum for one group key.
type bucket struct {
	sum   float64
	count int
}

func (b bucket) average() float64 {
	if b.count == 0 {
		return 0
	}
	return round2(b.sum / float64(b.count))
}

// avgPriceByMake groups by make and ranks by average price,
// descending, capped at the configured top-N.
func (a *Aggregator) avgPriceByMake(records []domain.PriceRecord) domain.ChartSeries {
	buckets := make(map[string]bucket)
	for _, r := range records {
		b := buckets[r.Make]
		b.sum += r.Price
		b.count++
		buckets[r.Make] = b
	}

	makes := make([]string, 0, len(buckets))
	for name := range buckets {
		makes = append(makes, name)
	}
	sort.Slice(makes, func(i, j int) bool {
		ai, aj := buckets[makes[i]].average(), buckets[makes[j]].average()
		if ai != aj {
			return ai > aj
		}
		return makes[i] < makes[j]
	})

	if len(makes) > a.topMakes {
		makes = makes[:a.topMakes]
	}

	series := domain.ChartSeries{
		Title:  "Average price by make",
		Labels: make([]string, 0, len(makes)),
		Values: make([]float64, 0, len(makes)),
	}
	for _, name := range makes {
		series.Labels = append(series.Labels, name)
		series.Values = append(series.Values, buckets[name].average())
	}

	return series
}

// countByFuel groups by fuel category, descending by count.
func (a *Aggregator) countByFuel(records []domain.PriceRecord) domain.ChartSeries {
	counts := make(map[domain.FuelType]int)
	for _, r := range records {
		counts[r.Fuel]++
	}

	fuels := make([]domain.FuelType, 0, len(counts))
	for fuel := range counts {
		fuels = append(fuels, fuel)
	}
	sort.Slice(fuels, func(i, j int) bool {
		if counts[fuels[i]] != counts[fuels[j]] {
			return counts[fuels[i]] > counts[fuels[j]]
		}
		return fuels[i] < fuels[j]
	})

	series := domain.ChartSeries{
		Title:  "Records by fuel type",
		Labels: make([]string, 0, len(fuels)),
		Values: make([]float64, 0, len(fuels)),
	}
	for _, fuel := range fuels {
		series.Labels = append(series.Labels, string(fuel))
		series.Values = append(series.Values, float64(counts[fuel]))
	}

	return series
}

// avgPriceByYear groups by model year, ascending. Records without a
// model year are excluded.
func (a *Aggregator) avgPriceByYear(records []domain.PriceRecord) domain.ChartSeries {
	buckets := make(map[int]bucket)
	for _, r := range records {
		if r.ModelYear == 0 {
			continue
		}
		b := buckets[r.ModelYear]
		b.sum += r.Price
		b.count++
		buckets[r.ModelYear] = b
	}

	years := make([]int, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Ints(years)

	series := domain.ChartSeries{
		Title:  "Average price by model year",
		Labels: make([]string, 0, len(years)),
		Values: make([]float64, 0, len(years)),
	}
	for _, year := range years {
		series.Labels = append(series.Labels, strconv.Itoa(year))
		series.Values = append(series.Values, buckets[year].average())
	}

	return series
}

// avgPriceByQuarter bins records into calendar quarters of their
// reference month, chronological. Records without a reference month
// are excluded; quarters with no records are absent, never
// zero-filled.
func (a *Aggregator) avgPriceByQuarter(records []domain.PriceRecord) domain.ChartSeries {
	buckets := make(map[string]bucket)
	for _, r := range records {
		quarter := r.Quarter()
		if quarter == "" {
			continue
		}
		b := buckets[quarter]
		b.sum += r.Price
		b.count++
		buckets[quarter] = b
	}

	quarters := make([]string, 0, len(buckets))
	for quarter := range buckets {
		quarters = append(quarters, quarter)
	}
	// "2023Q2" keys sort chronologically as plain strings.
	sort.Strings(quarters)

	series := domain.ChartSeries{
		Title:  "Average price by quarter",
		Labels: make([]string, 0, len(quarters)),
		Values: make([]float64, 0, len(quarters)),
	}
	for _, quarter := range quarters {
		series.Labels = append(series.Labels, quarter)
		series.Values = append(series.Values, buckets[quarter].average())
	}

	return series
}

// kpis computes the headline figures. Averages over zero records are
// 0, never NaN.
func (a *Aggregator) kpis(records []domain.PriceRecord) domain.KPISummary {
	kpis := domain.KPISummary{
		TotalRecords: len(records),
	}

	if len(records) == 0 {
		return kpis
	}

	makes := make(map[string]struct{})
	var sum float64
	for _, r := range records {
		sum += r.Price
		makes[r.Make] = struct{}{}
	}

	kpis.AveragePrice = round2(sum / float64(len(records)))
	kpis.DistinctMakes = len(makes)

	return kpis
}

// round2 rounds to two decimal places for stable JSON output.
func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
