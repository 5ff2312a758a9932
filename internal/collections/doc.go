// Package collections turns per-agent debt-collection worksheets into the
// dashboard's reporting tables.
//
// A pass runs in four steps:
//
//  1. Normalizer maps each raw batch onto the canonical field set and coerces
//     Outstanding Balance and Amount Paid to numbers.
//  2. Aggregator fetches every non-excluded batch from a BatchSource and
//     concatenates the records, skipping batches that fail to load.
//  3. Classify attributes each record's Amount Paid to its account state.
//  4. Compute derives the state metrics, agent totals, partial-payment and
//     feedback tables.
//
// Everything after the fetch is a pure function of the records, so a pass can
// be repeated or run concurrently without coordination. The tables carry raw
// numbers only; display formatting lives in the exporter package.
package collections
