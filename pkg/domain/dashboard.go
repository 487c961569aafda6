package domain

import "time"

// ChartSeries is a chart-ready label/value pairing. Labels and Values
// always have the same length.
type ChartSeries struct {
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Len returns the number of points in the series.
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// KPISummary holds the headline figures shown above the charts.
type KPISummary struct {
	TotalRecords  int     `json:"total_records"`
	AveragePrice  float64 `json:"average_price"`
	DistinctMakes int     `json:"distinct_makes"`
}

// Dashboard is the full aggregated view of a dataset: four chart
// series plus the KPI block.
type Dashboard struct {
	AvgPriceByMake    ChartSeries `json:"avg_price_by_make"`
	CountByFuel       ChartSeries `json:"count_by_fuel"`
	AvgPriceByYear    ChartSeries `json:"avg_price_by_year"`
	AvgPriceByQuarter ChartSeries `json:"avg_price_by_quarter"`
	KPIs              KPISummary  `json:"kpis"`
	GeneratedAt       time.Time   `json:"generated_at"`
}

// DatasetMeta describes an uploaded dataset snapshot.
type DatasetMeta struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	RowCount   int       `json:"row_count"`
	UploadedAt time.Time `json:"uploaded_at"`
}
