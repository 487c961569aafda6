package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// XLSXWriter writes the summary workbook: one sheet of KPIs, one per
// chart series, and one with the cleaned records.
type XLSXWriter struct {
	logger *slog.Logger
}

// NewXLSXWriter creates a new XLSX writer instance.
func NewXLSXWriter(logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{logger: logger.With(slog.String("component", "xlsx_writer"))}
}

// WriteSummary writes the workbook to a file.
func (w *XLSXWriter) WriteSummary(path string, dashboard domain.Dashboard, records []domain.PriceRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	w.logger.Info("writing summary workbook",
		slog.String("path", path),
		slog.Int("record_count", len(records)))

	return w.WriteSummaryTo(file, dashboard, records)
}

// WriteSummaryTo streams the workbook to the given writer. Used by
// the HTTP export endpoint.
func (w *XLSXWriter) WriteSummaryTo(out io.Writer, dashboard domain.Dashboard, records []domain.PriceRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeKPISheet(f, dashboard.KPIs); err != nil {
		return err
	}

	seriesSheets := []struct {
		name   string
		series domain.ChartSeries
	}{
		{"By Make", dashboard.AvgPriceByMake},
		{"By Fuel", dashboard.CountByFuel},
		{"By Year", dashboard.AvgPriceByYear},
		{"By Quarter", dashboard.AvgPriceByQuarter},
	}
	for _, sheet := range seriesSheets {
		if err := w.writeSeriesSheet(f, sheet.name, sheet.series); err != nil {
			return err
		}
	}

	if err := w.writeRecordsSheet(f, records); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by Summary.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// writeKPISheet writes the headline figures.
func (w *XLSXWriter) writeKPISheet(f *excelize.File, kpis domain.KPISummary) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Total records", kpis.TotalRecords},
		{"Average price", kpis.AveragePrice},
		{"Distinct makes", kpis.DistinctMakes},
	}

	return w.setRows(f, sheet, rows)
}

// writeSeriesSheet writes one chart series as a label/value table.
func (w *XLSXWriter) writeSeriesSheet(f *excelize.File, sheet string, series domain.ChartSeries) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := make([][]interface{}, 0, series.Len()+1)
	rows = append(rows, []interface{}{series.Title, ""})
	for i, label := range series.Labels {
		rows = append(rows, []interface{}{label, series.Values[i]})
	}

	return w.setRows(f, sheet, rows)
}

// writeRecordsSheet writes the cleaned records.
func (w *XLSXWriter) writeRecordsSheet(f *excelize.File, records []domain.PriceRecord) error {
	const sheet = "Records"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}

	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, []interface{}{"Make", "Model", "ModelYear", "Fuel", "Price", "ReferenceMonth"})
	for _, r := range records {
		refMonth := ""
		if r.HasReferenceMonth() {
			refMonth = r.ReferenceMonth.Format("2006-01")
		}
		rows = append(rows, []interface{}{r.Make, r.Model, r.ModelYear, string(r.Fuel), r.Price, refMonth})
	}

	return w.setRows(f, sheet, rows)
}

// setRows writes rows starting at A1.
func (w *XLSXWriter) setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
