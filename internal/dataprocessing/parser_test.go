package dataprocessing

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

func TestParseCSVCommaDelimited(t *testing.T) {
	input := strings.Join([]string{
		"Make,Model,Year,Fuel,Price,ReferenceMonth",
		"Fiat,Uno Mille,2012,Flex,\"15,400.00\",2023-04",
		"Volkswagen,Gol 1.6,2015,Gasoline,\"22,900.00\",2023-04",
		"Chevrolet,Onix LT,2020,Flex,\"48,700.00\",2023-05",
	}, "\n")

	parser := NewParser(slog.Default())
	records, stats, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.RowsRead)
	assert.Equal(t, 3, stats.RowsKept)
	assert.Zero(t, stats.Dropped())
	require.Len(t, records, 3)

	assert.Equal(t, "Fiat", records[0].Make)
	assert.Equal(t, "Uno Mille", records[0].Model)
	assert.Equal(t, 2012, records[0].ModelYear)
	assert.Equal(t, domain.FuelFlex, records[0].Fuel)
	assert.InDelta(t, 15400.0, records[0].Price, 0.001)
	assert.Equal(t, "2023Q2", records[0].Quarter())
}

func TestParseCSVSemicolonPtBR(t *testing.T) {
	input := strings.Join([]string{
		"Marca;Modelo;Ano;Combustível;Preço Médio;Mês de Referência",
		"Fiat;Uno Mille 1.0;2012;Flex;R$ 15.400,00;abril de 2023",
		"Toyota;Corolla XEi;2021;Híbrido;R$ 132.500,00;maio de 2023",
	}, "\n")

	parser := NewParser(slog.Default())
	records, stats, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.RowsKept)
	require.Len(t, records, 2)
	assert.InDelta(t, 15400.0, records[0].Price, 0.001)
	assert.Equal(t, domain.FuelHybrid, records[1].Fuel)
	assert.Equal(t, "2023Q2", records[1].Quarter())
}

func TestParseCSVStripsBOM(t *testing.T) {
	input := "\xEF\xBB\xBFMake,Price\nFiat,15000\n"

	parser := NewParser(slog.Default())
	records, _, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Fiat", records[0].Make)
}

func TestParseCSVQuotedFields(t *testing.T) {
	input := strings.Join([]string{
		"Make,Model,Price",
		`Fiat,"Uno, Mille Economy",15000`,
	}, "\n")

	parser := NewParser(slog.Default())
	records, _, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Uno, Mille Economy", records[0].Model)
}

func TestParseCSVDropCounting(t *testing.T) {
	input := strings.Join([]string{
		"Make,Year,Price",
		"Fiat,2012,15000",   // kept
		",2015,20000",       // missing make
		"VW,2015,",          // missing price
		"VW,2015,not-money", // unparseable price
		"Ford,1850,30000",   // bad year
		"",                  // blank row, not counted
		"Honda,2018,52000",  // kept
	}, "\n")

	parser := NewParser(slog.Default())
	records, stats, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 6, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 1, stats.DroppedMissingMake)
	assert.Equal(t, 2, stats.DroppedMissingPrice)
	assert.Equal(t, 1, stats.DroppedBadYear)
	assert.Equal(t, 4, stats.Dropped())
}

func TestParseCSVShortRows(t *testing.T) {
	input := strings.Join([]string{
		"Make,Model,Year,Fuel,Price",
		"Fiat,Uno,2012,Flex,15000",
		"Fiat,Uno", // too short to reach the price column
	}, "\n")

	parser := NewParser(slog.Default())
	records, stats, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, 1, stats.DroppedShortRow)
}

func TestParseCSVShortRowKeptWhenRequiredCellsPresent(t *testing.T) {
	input := strings.Join([]string{
		"Make,Price,Model,Year,Fuel,ReferenceMonth",
		"Fiat,15000", // optional trailing cells missing, make and price present
	}, "\n")

	parser := NewParser(slog.Default())
	records, stats, err := parser.ParseCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, 0, stats.DroppedShortRow)
	assert.Equal(t, "Fiat", records[0].Make)
	assert.Equal(t, float64(15000), records[0].Price)
	assert.Empty(t, records[0].Model)
	assert.Zero(t, records[0].ModelYear)
	assert.False(t, records[0].HasReferenceMonth())
}

func TestParseCSVMissingRequiredColumns(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no price column",
			input: "Make,Model\nFiat,Uno\n",
			want:  "price",
		},
		{
			name:  "no make column",
			input: "Model,Price\nUno,15000\n",
			want:  "make",
		},
		{
			name:  "empty input",
			input: "",
			want:  "no data rows",
		},
		{
			name:  "header only",
			input: "Make,Price\n",
			want:  "no data rows",
		},
	}

	parser := NewParser(slog.Default())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parser.ParseCSV(context.Background(), strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{name: "semicolons", input: "Marca;Preço\nFiat;1,0\n", want: ';'},
		{name: "commas", input: "Make,Price\nFiat,1.0\n", want: ','},
		{name: "tie prefers semicolon", input: "a;b,c\n", want: ';'},
		{name: "no delimiter defaults to comma", input: "single\n", want: ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffDelimiter([]byte(tt.input)))
		})
	}
}

func TestParseCSVNilLoggerUsesDefault(t *testing.T) {
	parser := NewParser(nil)
	records, _, err := parser.ParseCSV(context.Background(), strings.NewReader("Make,Price\nFiat,100\n"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
