package domain

import (
	"fmt"
	"time"
)

// FuelType is the normalized fuel category of a vehicle price record.
type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelEthanol  FuelType = "ethanol"
	FuelDiesel   FuelType = "diesel"
	FuelFlex     FuelType = "flex"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
	FuelOther    FuelType = "other"
)

// PriceRecord is a single cleaned vehicle price observation.
// ReferenceMonth is zero when the source row carried no parseable
// reference date; such records are excluded from date-binned series.
type PriceRecord struct {
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	ModelYear      int       `json:"model_year"`
	ZeroKM         bool      `json:"zero_km,omitempty"`
	Fuel           FuelType  `json:"fuel"`
	Price          float64   `json:"price"`
	ReferenceMonth time.Time `json:"reference_month,omitempty"`
}

// HasReferenceMonth reports whether the record carries a reference date.
func (r PriceRecord) HasReferenceMonth() bool {
	return !r.ReferenceMonth.IsZero()
}

// Quarter returns the calendar quarter key for the reference month,
// e.g. "2023Q2". It returns the empty string when no reference month
// is set.
func (r PriceRecord) Quarter() string {
	if !r.HasReferenceMonth() {
		return ""
	}
	q := (int(r.ReferenceMonth.Month())-1)/3 + 1
	return fmt.Sprintf("%dQ%d", r.ReferenceMonth.Year(), q)
}
