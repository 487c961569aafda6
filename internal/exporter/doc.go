// Package exporter writes cleaned records and dashboard aggregates
// to CSV, JSON and XLSX outputs, both to files (report CLI) and to
// streams (HTTP download endpoints).
package exporter
