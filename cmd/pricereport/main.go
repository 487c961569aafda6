// Command pricereport batch-processes a directory of vehicle price
// files (CSV or XLSX) into a combined dashboard report: a cleaned
// records CSV, a dashboard JSON document, and a summary workbook.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/filipesmpacheco/projdataviz/internal/config"
	"github.com/filipesmpacheco/projdataviz/internal/dataprocessing"
	"github.com/filipesmpacheco/projdataviz/internal/exporter"
	"github.com/filipesmpacheco/projdataviz/internal/infrastructure"
	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

const maxParallelFiles = 4

func main() {
	inDir := flag.String("in", "data", "input directory with .csv and .xlsx price files")
	outDir := flag.String("out", "reports", "output directory for generated reports")
	topMakes := flag.Int("top", 12, "maximum number of makes in the by-make chart")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	logger, err := infrastructure.InitializeLogger(config.LoggingConfig{
		Level:  *logLevel,
		Output: "stdout",
	})
	if err != nil {
		slog.Error("failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := run(context.Background(), logger, *inDir, *outDir, *topMakes); err != nil {
		logger.Error("report generation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, inDir, outDir string, topMakes int) error {
	files, err := findInputFiles(inDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .csv or .xlsx files found in %s", inDir)
	}

	logger.Info("processing price files",
		slog.Int("file_count", len(files)),
		slog.String("input_dir", inDir))

	parser := dataprocessing.NewParser(logger)

	var mu sync.Mutex
	var records []domain.PriceRecord
	var stats dataprocessing.ParseStats

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)

	for _, path := range files {
		g.Go(func() error {
			fileRecords, fileStats, err := parseFile(gctx, parser, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}

			mu.Lock()
			records = append(records, fileRecords...)
			mergeStats(&stats, fileStats)
			mu.Unlock()

			logger.Info("file processed",
				slog.String("file", filepath.Base(path)),
				slog.Int("rows_kept", fileStats.RowsKept),
				slog.Int("rows_dropped", fileStats.Dropped()))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	aggregator := dataprocessing.NewAggregator(logger, dataprocessing.AggregatorConfig{TopMakes: topMakes})
	dashboard := aggregator.Build(ctx, records)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stamp := time.Now().Format("2006-01-02")
	recordsPath := filepath.Join(outDir, fmt.Sprintf("records_%s.csv", stamp))
	dashboardPath := filepath.Join(outDir, fmt.Sprintf("dashboard_%s.json", stamp))
	summaryPath := filepath.Join(outDir, fmt.Sprintf("summary_%s.xlsx", stamp))

	csvWriter := exporter.NewCSVWriter(logger)
	if err := csvWriter.WriteRecords(recordsPath, records); err != nil {
		return fmt.Errorf("failed to write records csv: %w", err)
	}
	if err := exporter.WriteDashboardJSON(dashboardPath, dashboard); err != nil {
		return fmt.Errorf("failed to write dashboard json: %w", err)
	}
	xlsxWriter := exporter.NewXLSXWriter(logger)
	if err := xlsxWriter.WriteSummary(summaryPath, dashboard, records); err != nil {
		return fmt.Errorf("failed to write summary workbook: %w", err)
	}

	logger.Info("report generated",
		slog.Int("total_records", dashboard.KPIs.TotalRecords),
		slog.Int("rows_dropped", stats.Dropped()),
		slog.Float64("average_price", dashboard.KPIs.AveragePrice),
		slog.String("records_csv", recordsPath),
		slog.String("dashboard_json", dashboardPath),
		slog.String("summary_xlsx", summaryPath))

	return nil
}

// findInputFiles lists price files in dir, sorted by name for stable output.
func findInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".csv", ".xlsx":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseFile(ctx context.Context, parser *dataprocessing.Parser, path string) ([]domain.PriceRecord, dataprocessing.ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dataprocessing.ParseStats{}, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return parser.ParseXLSX(ctx, f)
	}
	return parser.ParseCSV(ctx, f)
}

func mergeStats(dst *dataprocessing.ParseStats, src dataprocessing.ParseStats) {
	dst.RowsRead += src.RowsRead
	dst.RowsKept += src.RowsKept
	dst.DroppedShortRow += src.DroppedShortRow
	dst.DroppedMissingMake += src.DroppedMissingMake
	dst.DroppedMissingPrice += src.DroppedMissingPrice
	dst.DroppedBadYear += src.DroppedBadYear
}
