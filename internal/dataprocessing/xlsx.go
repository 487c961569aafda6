package dataprocessing

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// headerScanDepth bounds how deep into a sheet the header row is
// searched. Price workbooks often carry title rows above the table.
const headerScanDepth = 10

// ParseXLSX reads an Excel workbook and extracts vehicle price
// records. Sheets are scanned in order; the first one containing a
// recognizable header row wins.
func (p *Parser) ParseXLSX(ctx context.Context, r io.Reader) ([]domain.PriceRecord, ParseStats, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil || len(rows) < 2 {
			continue
		}

		headerRow, columns, found := scanForHeader(rows)
		if !found {
			continue
		}

		p.logger.InfoContext(ctx, "found price data sheet",
			slog.String("sheet_name", sheetName),
			slog.Int("header_row", headerRow),
			slog.Int("total_rows", len(rows)))

		records, stats := p.cleanRows(ctx, rows[headerRow+1:], columns)

		p.logger.InfoContext(ctx, "XLSX ingest complete",
			slog.Int("rows_read", stats.RowsRead),
			slog.Int("rows_kept", stats.RowsKept),
			slog.Int("rows_dropped", stats.Dropped()))

		return records, stats, nil
	}

	return nil, ParseStats{}, fmt.Errorf("could not find price data sheet in workbook")
}

// scanForHeader looks for the header row within the first rows of a
// sheet and returns its index and column mapping.
func scanForHeader(rows [][]string) (int, columnIndices, bool) {
	depth := headerScanDepth
	if len(rows) < depth {
		depth = len(rows)
	}

	for i := 0; i < depth; i++ {
		columns := findColumnIndices(rows[i])
		if columns.hasRequired() {
			return i, columns, true
		}
	}

	return 0, columnIndices{}, false
}
