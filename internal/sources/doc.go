// Package sources provides the batch stores the collections pipeline reads
// from: a Google Sheets spreadsheet (one worksheet per agent), a local Excel
// workbook with the same layout, and an in-memory source for tests and demos.
package sources
