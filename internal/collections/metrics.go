package collections

import (
	"sort"
	"strings"

	"collectdash/pkg/contracts/domain"
)

type stateAccumulator struct {
	allocated float64
	collected float64
}

type partialAccumulator struct {
	count  int
	amount float64
}

// trackedStateKey returns the canonical tracked-state label for a record, or
// "" when its Account State is not tracked.
func trackedStateKey(rec domain.Record) string {
	if i := StateIndex(rec.AccountState()); i >= 0 {
		return TrackedStates[i]
	}
	return ""
}

// ComputeStateMetrics sums allocated balance and collected amount per tracked
// state. Every tracked state gets a row; TOTAL is the sum of those rows and its
// conversion rate is derived from the summed amounts.
func ComputeStateMetrics(records []domain.Record) domain.StateMetricsTable {
	groups := GroupBy(records, trackedStateKey, func(acc stateAccumulator, rec domain.Record) stateAccumulator {
		attr := Classify(rec)
		acc.allocated += rec.OutstandingBalance
		for _, v := range attr.States {
			acc.collected += v
		}
		return acc
	})

	table := domain.StateMetricsTable{
		Rows:  make([]domain.StateMetricsRow, 0, len(TrackedStates)),
		Total: domain.StateMetricsRow{AccountState: domain.TotalLabel},
	}
	for i, acc := range groups.Reindex(TrackedStates, stateAccumulator{}) {
		table.Rows = append(table.Rows, domain.StateMetricsRow{
			AccountState:   TrackedStates[i],
			Allocated:      acc.allocated,
			Collected:      acc.collected,
			ConversionRate: SafeDiv(acc.collected, acc.allocated),
		})
		table.Total.Allocated += acc.allocated
		table.Total.Collected += acc.collected
	}
	table.Total.ConversionRate = SafeDiv(table.Total.Collected, table.Total.Allocated)
	return table
}

// ComputeAgentTotals sums state attributions and collections per agent.
// Rows are sorted by agent name.
func ComputeAgentTotals(records []domain.Record) domain.AgentTotalsTable {
	groups := GroupBy(records, func(rec domain.Record) string { return rec.Agent },
		func(acc Attribution, rec domain.Record) Attribution {
			attr := Classify(rec)
			for i, v := range attr.States {
				acc.States[i] += v
			}
			acc.Collections += attr.Collections
			return acc
		})

	agents := groups.Keys()
	sort.Strings(agents)

	table := domain.AgentTotalsTable{
		States: append([]string(nil), TrackedStates...),
		Rows:   make([]domain.AgentTotalsRow, 0, len(agents)),
	}
	for _, agent := range agents {
		acc, _ := groups.Get(agent)
		row := domain.AgentTotalsRow{
			Agent:       agent,
			States:      append([]float64(nil), acc.States[:]...),
			Collections: acc.Collections,
		}
		row.ConversionRate = SafeDiv(row.Collections, row.StateSum())
		table.Rows = append(table.Rows, row)
	}
	return table
}

// IsPayingPartially reports whether the record's trimmed Repayment Status is
// exactly PayingPartially.
func IsPayingPartially(rec domain.Record) bool {
	return strings.TrimSpace(rec.RepaymentStatus()) == PayingPartially
}

// ComputePartials counts partial payers and their payments per tracked state.
// States match case-insensitively, as in ComputeStateMetrics.
func ComputePartials(records []domain.Record) domain.PartialsTable {
	partials := make([]domain.Record, 0)
	for _, rec := range records {
		if IsPayingPartially(rec) {
			partials = append(partials, rec)
		}
	}

	groups := GroupBy(partials, trackedStateKey, func(acc partialAccumulator, rec domain.Record) partialAccumulator {
		acc.count++
		acc.amount += rec.AmountPaid
		return acc
	})

	table := domain.PartialsTable{
		Rows:  make([]domain.PartialsRow, 0, len(TrackedStates)),
		Total: domain.PartialsRow{AccountState: domain.TotalLabel},
	}
	for i, acc := range groups.Reindex(TrackedStates, partialAccumulator{}) {
		table.Rows = append(table.Rows, domain.PartialsRow{
			AccountState: TrackedStates[i],
			Count:        acc.count,
			Amount:       acc.amount,
		})
		table.Total.Count += acc.count
		table.Total.Amount += acc.amount
	}
	return table
}

// Compute derives every reporting table from the unified records.
func Compute(records []domain.Record) domain.CollectionsReport {
	report := domain.CollectionsReport{
		RecordCount: len(records),
		States:      ComputeStateMetrics(records),
		Agents:      ComputeAgentTotals(records),
		Partials:    ComputePartials(records),
		Feedback:    SummarizeFeedback(records),
	}
	report.TotalCollected = report.States.Total.Collected
	return report
}
