package exporter

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

func testRecords() []domain.PriceRecord {
	return []domain.PriceRecord{
		{
			Make:           "Fiat",
			Model:          "Uno Mille",
			ModelYear:      2012,
			Fuel:           domain.FuelFlex,
			Price:          15400,
			ReferenceMonth: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			Make:  "Toyota",
			Model: "Corolla",
			Fuel:  domain.FuelHybrid,
			Price: 132500.5,
		},
	}
}

func TestWriteRecordsTo(t *testing.T) {
	var buf bytes.Buffer
	writer := NewCSVWriter(slog.Default())

	require.NoError(t, writer.WriteRecordsTo(&buf, testRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Make", "Model", "ModelYear", "ZeroKM", "Fuel", "Price", "ReferenceMonth"}, rows[0])
	assert.Equal(t, []string{"Fiat", "Uno Mille", "2012", "false", "flex", "15400.00", "2023-04"}, rows[1])
	assert.Equal(t, "", rows[2][6], "missing reference month is blank")
	assert.Equal(t, "0", rows[2][2], "missing model year is zero")
}

func TestWriteRecordsFileHasBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "records.csv")
	writer := NewCSVWriter(slog.Default())

	require.NoError(t, writer.WriteRecords(path, testRecords()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "file starts with UTF-8 BOM")
	assert.Contains(t, string(data), "Fiat")
}

func TestWriteRecordsEmpty(t *testing.T) {
	var buf bytes.Buffer
	writer := NewCSVWriter(nil)

	require.NoError(t, writer.WriteRecordsTo(&buf, nil))
	assert.Equal(t, 1, strings.Count(strings.TrimSpace(buf.String()), "\n")+1, "header only")
}

func TestWriteSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.csv")
	writer := NewCSVWriter(slog.Default())

	series := domain.ChartSeries{
		Title:  "Average price by make",
		Labels: []string{"Toyota", "Fiat"},
		Values: []float64{130000, 35000},
	}
	require.NoError(t, writer.WriteSeries(path, series))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Toyota", "130000.00"}, rows[1])
}
