package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// recordHeader is the canonical column order for cleaned record
// exports.
var recordHeader = []string{"Make", "Model", "ModelYear", "ZeroKM", "Fuel", "Price", "ReferenceMonth"}

// CSVWriter provides CSV export functionality.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger.With(slog.String("component", "csv_writer"))}
}

// WriteRecords writes cleaned records to a CSV file. A UTF-8 BOM is
// prepended so Excel opens the file correctly.
func (w *CSVWriter) WriteRecords(path string, records []domain.PriceRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	w.logger.Info("writing records CSV",
		slog.String("path", path),
		slog.Int("record_count", len(records)))

	return w.WriteRecordsTo(file, records)
}

// WriteRecordsTo streams cleaned records as CSV to the given writer,
// without a BOM. Used by the HTTP export endpoint.
func (w *CSVWriter) WriteRecordsTo(out io.Writer, records []domain.PriceRecord) error {
	writer := csv.NewWriter(out)

	if err := writer.Write(recordHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		refMonth := ""
		if r.HasReferenceMonth() {
			refMonth = r.ReferenceMonth.Format("2006-01")
		}

		row := []string{
			r.Make,
			r.Model,
			strconv.Itoa(r.ModelYear),
			strconv.FormatBool(r.ZeroKM),
			string(r.Fuel),
			strconv.FormatFloat(r.Price, 'f', 2, 64),
			refMonth,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSeries writes a single chart series as a two-column CSV.
func (w *CSVWriter) WriteSeries(path string, series domain.ChartSeries) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"Label", "Value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, label := range series.Labels {
		row := []string{label, strconv.FormatFloat(series.Values[i], 'f', 2, 64)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	return writer.Error()
}
