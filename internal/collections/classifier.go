package collections

import (
	"strings"

	"collectdash/pkg/contracts/domain"
)

// Attribution is a record's Amount Paid split across the tracked states.
// States is indexed like TrackedStates; at most one entry is non-zero.
// Collections is the Amount Paid regardless of state.
type Attribution struct {
	States      [4]float64
	Collections float64
}

// StateIndex returns the tracked-state index matching the account state
// case-insensitively, or -1.
func StateIndex(accountState string) int {
	for i, s := range TrackedStates {
		if strings.EqualFold(accountState, s) {
			return i
		}
	}
	return -1
}

// Classify attributes one record's payment to its account state.
func Classify(rec domain.Record) Attribution {
	attr := Attribution{Collections: rec.AmountPaid}
	if i := StateIndex(rec.AccountState()); i >= 0 {
		attr.States[i] = rec.AmountPaid
	}
	return attr
}

// ClassifyAll classifies every record, preserving order.
func ClassifyAll(records []domain.Record) []Attribution {
	out := make([]Attribution, len(records))
	for i, rec := range records {
		out[i] = Classify(rec)
	}
	return out
}
