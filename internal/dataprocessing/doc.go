// Package dataprocessing turns raw vehicle price files into cleaned
// records and chart-ready aggregates.
//
// The package is organized in three stages:
//
//   - Parser reads CSV or XLSX input, strips BOMs, sniffs the
//     delimiter and maps header names to canonical fields.
//   - The field cleaner coerces locale-formatted prices, model years,
//     fuel labels and reference months into typed values, dropping
//     rows only when the price or make is unusable.
//   - Aggregator groups cleaned records into the four dashboard
//     series and the KPI block.
//
// Row-level problems never fail an ingest; they are counted per
// reason in ParseStats. Only an unreadable input returns an error.
package dataprocessing
