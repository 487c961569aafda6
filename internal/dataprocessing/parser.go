package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// ParseStats counts what happened to the rows of a single ingest.
// Row-level problems are not errors; they degrade to a per-reason
// drop count.
type ParseStats struct {
	RowsRead            int `json:"rows_read"`
	RowsKept            int `json:"rows_kept"`
	DroppedShortRow     int `json:"dropped_short_row"`
	DroppedMissingMake  int `json:"dropped_missing_make"`
	DroppedMissingPrice int `json:"dropped_missing_price"`
	DroppedBadYear      int `json:"dropped_bad_year"`
}

// Dropped returns the total number of dropped rows.
func (s ParseStats) Dropped() int {
	return s.DroppedShortRow + s.DroppedMissingMake + s.DroppedMissingPrice + s.DroppedBadYear
}

// Parser reads vehicle price files and produces cleaned records.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with the given logger.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With(slog.String("component", "parser"))}
}

// columnIndices holds the positions of the canonical fields in the
// source header. A value of -1 means the column is absent.
type columnIndices struct {
	makeCol     int
	modelCol    int
	yearCol     int
	fuelCol     int
	priceCol    int
	refMonthCol int
}

// hasRequired reports whether the minimum set of columns was found.
// Make and price are the only hard requirements.
func (c columnIndices) hasRequired() bool {
	return c.makeCol != -1 && c.priceCol != -1
}

// missing lists which required canonical columns were not found.
func (c columnIndices) missing() []string {
	var m []string
	if c.makeCol == -1 {
		m = append(m, "make")
	}
	if c.priceCol == -1 {
		m = append(m, "price")
	}
	return m
}

// findColumnIndices maps header names to canonical field positions.
// Matching is case-insensitive and tolerant of accents, underscores,
// spaces and pt-BR naming.
func findColumnIndices(header []string) columnIndices {
	indices := columnIndices{
		makeCol:     -1,
		modelCol:    -1,
		yearCol:     -1,
		fuelCol:     -1,
		priceCol:    -1,
		refMonthCol: -1,
	}

	for i, col := range header {
		switch normalizeHeader(col) {
		case "make", "marca", "brand", "fabricante":
			if indices.makeCol == -1 {
				indices.makeCol = i
			}
		case "model", "modelo", "nome", "vehicle", "veiculo":
			if indices.modelCol == -1 {
				indices.modelCol = i
			}
		case "year", "modelyear", "ano", "anomodelo", "anodomodelo":
			if indices.yearCol == -1 {
				indices.yearCol = i
			}
		case "fuel", "fueltype", "combustivel", "tipocombustivel":
			if indices.fuelCol == -1 {
				indices.fuelCol = i
			}
		case "price", "avgprice", "averageprice", "preco", "precomedio", "valor", "valormedio":
			if indices.priceCol == -1 {
				indices.priceCol = i
			}
		case "referencemonth", "refmonth", "mesreferencia", "mesdereferencia", "referencia", "month", "mes", "date", "data":
			if indices.refMonthCol == -1 {
				indices.refMonthCol = i
			}
		}
	}

	return indices
}

// ParseCSV reads CSV content and returns the cleaned records. The
// delimiter is sniffed from the header line (pt-BR exports commonly
// use semicolons) and a UTF-8 BOM is stripped if present.
func (p *Parser) ParseCSV(ctx context.Context, r io.Reader) ([]domain.PriceRecord, ParseStats, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to read input: %w", err)
	}

	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, ParseStats{}, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(rows) < 2 {
		return nil, ParseStats{}, fmt.Errorf("input has no data rows")
	}

	columns := findColumnIndices(rows[0])
	if !columns.hasRequired() {
		return nil, ParseStats{}, fmt.Errorf("required columns not found: %v, header: %v", columns.missing(), rows[0])
	}

	records, stats := p.cleanRows(ctx, rows[1:], columns)

	p.logger.InfoContext(ctx, "CSV ingest complete",
		slog.Int("rows_read", stats.RowsRead),
		slog.Int("rows_kept", stats.RowsKept),
		slog.Int("rows_dropped", stats.Dropped()))

	return records, stats, nil
}

// cleanRows coerces raw rows into PriceRecords, counting drops per
// reason.
func (p *Parser) cleanRows(ctx context.Context, rows [][]string, columns columnIndices) ([]domain.PriceRecord, ParseStats) {
	var stats ParseStats
	records := make([]domain.PriceRecord, 0, len(rows))

	for _, row := range rows {
		stats.RowsRead++

		if isBlankRow(row) {
			stats.RowsRead--
			continue
		}

		// Rows shorter than the rightmost required column are unusable.
		if len(row) <= columns.makeCol || len(row) <= columns.priceCol {
			stats.DroppedShortRow++
			continue
		}

		record, reason := cleanRecord(row, columns)
		switch reason {
		case dropNone:
			records = append(records, record)
			stats.RowsKept++
		case dropMissingMake:
			stats.DroppedMissingMake++
		case dropMissingPrice:
			stats.DroppedMissingPrice++
		case dropBadYear:
			stats.DroppedBadYear++
		}
	}

	if stats.Dropped() > 0 {
		p.logger.DebugContext(ctx, "rows dropped during cleaning",
			slog.Int("short_row", stats.DroppedShortRow),
			slog.Int("missing_make", stats.DroppedMissingMake),
			slog.Int("missing_price", stats.DroppedMissingPrice),
			slog.Int("bad_year", stats.DroppedBadYear))
	}

	return records, stats
}

// sniffDelimiter picks the CSV delimiter by inspecting the header
// line. Semicolon wins on a tie because comma is then likely the
// decimal separator.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}

	semicolons := bytes.Count(line, []byte{';'})
	commas := bytes.Count(line, []byte{','})

	if semicolons >= commas && semicolons > 0 {
		return ';'
	}
	return ','
}

// isBlankRow reports whether every cell in the row is empty.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
