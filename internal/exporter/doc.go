// Package exporter turns collections reports into downloadable artifacts.
//
// The CSV and XLSX outputs keep every value numeric: amounts are plain
// decimals and conversion rates are ratios. Human-facing strings such as
// "KES 1,200.50" or "12.50%" come from the display helpers in format.go and are
// never fed back into a table.
package exporter
