package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/filipesmpacheco/projdataviz/pkg/domain"
)

// dropReason classifies why a row was excluded from the dataset.
type dropReason int

const (
	dropNone dropReason = iota
	dropMissingMake
	dropMissingPrice
	dropBadYear
)

// zeroKMYearCode is the sentinel some price tables use for a brand
// new (zero km) vehicle instead of a model year.
const zeroKMYearCode = 32000

// cleanRecord coerces one raw row into a PriceRecord. Make and price
// are required; everything else is best-effort.
func cleanRecord(row []string, columns columnIndices) (domain.PriceRecord, dropReason) {
	cell := func(col int) string {
		if col >= 0 && col < len(row) {
			return strings.TrimSpace(row[col])
		}
		return ""
	}

	record := domain.PriceRecord{
		Make:  cell(columns.makeCol),
		Model: cell(columns.modelCol),
	}
	if record.Make == "" {
		return domain.PriceRecord{}, dropMissingMake
	}

	price, err := parsePrice(cell(columns.priceCol))
	if err != nil || price <= 0 {
		return domain.PriceRecord{}, dropMissingPrice
	}
	record.Price = price

	if raw := cell(columns.yearCol); raw != "" {
		year, zeroKM, err := parseModelYear(raw)
		if err != nil {
			return domain.PriceRecord{}, dropBadYear
		}
		record.ModelYear = year
		record.ZeroKM = zeroKM
	}

	record.Fuel = normalizeFuel(cell(columns.fuelCol))

	if month, ok := parseReferenceMonth(cell(columns.refMonthCol)); ok {
		record.ReferenceMonth = month
	}

	return record, dropNone
}

// parsePrice coerces a locale-formatted money string into a float.
// It accepts both "1.234,56" (pt-BR) and "1,234.56" shapes, with an
// optional currency prefix. Decimal arithmetic is used so thousands
// stripping never loses precision before the final conversion.
func parsePrice(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimPrefix(s, "$")
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, s)

	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			// pt-BR: dots are thousands, comma is the decimal mark.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// en: commas are thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 <= 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastDot >= 0:
		// A lone dot followed by exactly three digits is a thousands
		// separator in pt-BR exports ("1.234" is 1234, not 1.234).
		if strings.Count(s, ".") > 1 || (lastDot > 0 && len(s)-lastDot-1 == 3) {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", raw, err)
	}

	f, _ := d.Float64()
	return f, nil
}

// parseModelYear coerces a model year cell. The 32000 sentinel maps
// to the current calendar year with the zero-km flag set. Years
// outside [1900, next year] are rejected.
func parseModelYear(raw string) (int, bool, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, fmt.Errorf("unparseable model year %q: %w", raw, err)
	}

	if year == zeroKMYearCode {
		return time.Now().Year(), true, nil
	}

	if year < 1900 || year > time.Now().Year()+1 {
		return 0, false, fmt.Errorf("model year %d out of range", year)
	}

	return year, false, nil
}

// normalizeFuel maps pt-BR and English fuel labels onto the fixed
// fuel categories. Unrecognized labels fall into FuelOther.
func normalizeFuel(raw string) domain.FuelType {
	switch foldAccents(strings.ToLower(strings.TrimSpace(raw))) {
	case "gasolina", "gasoline", "petrol", "gas":
		return domain.FuelGasoline
	case "etanol", "ethanol", "alcool", "alcohol":
		return domain.FuelEthanol
	case "diesel", "oleo diesel":
		return domain.FuelDiesel
	case "flex", "bicombustivel", "flexfuel", "flex-fuel":
		return domain.FuelFlex
	case "eletrico", "electric", "ev":
		return domain.FuelElectric
	case "hibrido", "hybrid":
		return domain.FuelHybrid
	default:
		return domain.FuelOther
	}
}

// ptMonths maps pt-BR month names to their calendar month.
var ptMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// referenceMonthLayouts are tried in order for numeric date shapes.
var referenceMonthLayouts = []string{
	"2006-01",
	"2006/01",
	"01/2006",
	"2006-01-02",
	"02/01/2006",
	"January 2006",
	"Jan 2006",
}

// parseReferenceMonth coerces a reference month cell into a
// month-resolution date. It accepts numeric shapes ("2023-04",
// "04/2023"), English month names and pt-BR month names ("abril de
// 2023"). Unparseable values are not an error; the row is simply
// excluded from date-binned series.
func parseReferenceMonth(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range referenceMonthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}

	// pt-BR shapes: "abril de 2023", "abril/2023", "abril 2023".
	folded := foldAccents(strings.ToLower(s))
	folded = strings.ReplaceAll(folded, "/", " ")
	folded = strings.ReplaceAll(folded, " de ", " ")
	parts := strings.Fields(folded)
	if len(parts) == 2 {
		if month, ok := ptMonths[parts[0]]; ok {
			if year, err := strconv.Atoi(parts[1]); err == nil && year >= 1900 && year <= 9999 {
				return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
			}
		}
	}

	return time.Time{}, false
}

// accentFolder maps the accented characters seen in pt-BR headers and
// labels to their ASCII base.
var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
	"Á", "a", "À", "a", "Ã", "a", "Â", "a",
	"É", "e", "Ê", "e",
	"Í", "i",
	"Ó", "o", "Õ", "o", "Ô", "o",
	"Ú", "u", "Ü", "u",
	"Ç", "c",
)

// foldAccents replaces accented characters with their ASCII base.
func foldAccents(s string) string {
	return accentFolder.Replace(s)
}

// normalizeHeader canonicalizes a header cell for column matching:
// BOM and zero-width characters stripped, accents folded, lowered,
// and separators removed.
func normalizeHeader(col string) string {
	s := strings.TrimSpace(col)
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimLeft(s, "\u200B\u200C\u200D\u2060\uFEFF")
	s = foldAccents(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '(', ')':
			return -1
		}
		return r
	}, s)
	return s
}
