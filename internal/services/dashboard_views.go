package services

import (
	"fmt"
	"sort"
	"strings"

	"collectdash/internal/collections"
	"collectdash/pkg/contracts/domain"
)

// Agent table columns beyond the tracked states.
const (
	MetricTotalCollected = "Total Collected"
	MetricConversionRate = "Conversion Rate"
)

// Account-state analytics metrics.
const (
	MetricPartialsCount = "Paying Partially Count"
	MetricPartialAmount = "Partial Amount"
)

// AnalyticsMetrics lists the account-state analytics series, in menu order.
var AnalyticsMetrics = []string{MetricTotalCollected, MetricPartialsCount, MetricPartialAmount, MetricConversionRate}

// RankMetrics lists the agent columns that agents can be ranked by.
func RankMetrics() []string {
	out := append([]string(nil), collections.TrackedStates...)
	return append(out, MetricTotalCollected, MetricConversionRate)
}

// RankedAgent is one entry of an agent ranking.
type RankedAgent struct {
	Rank  int     `json:"rank"`
	Agent string  `json:"agent"`
	Value float64 `json:"value"`
}

// Ranking orders agents by one metric, highest first.
type Ranking struct {
	Metric string        `json:"metric"`
	Agents []RankedAgent `json:"agents"`
}

// SeriesPoint is one bar of an account-state chart.
type SeriesPoint struct {
	AccountState string  `json:"account_state"`
	Value        float64 `json:"value"`
}

// AnalyticsSeries is one metric across the tracked account states.
type AnalyticsSeries struct {
	Metric string        `json:"metric"`
	Points []SeriesPoint `json:"points"`
}

// FilterAgents keeps the selected agents' rows, preserving table order.
// An empty selection keeps every agent.
func FilterAgents(table domain.AgentTotalsTable, selected []string) (domain.AgentTotalsTable, error) {
	out := domain.AgentTotalsTable{States: append([]string(nil), table.States...)}
	if len(selected) == 0 {
		out.Rows = append([]domain.AgentTotalsRow(nil), table.Rows...)
		return out, nil
	}

	want := make(map[string]bool, len(selected))
	for _, name := range selected {
		want[name] = true
	}
	for _, row := range table.Rows {
		if want[row.Agent] {
			out.Rows = append(out.Rows, row)
			delete(want, row.Agent)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for name := range want {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		return domain.AgentTotalsTable{}, fmt.Errorf("%w: %s", ErrUnknownAgent, strings.Join(missing, ", "))
	}
	return out, nil
}

// RankAgents orders agents by metric, highest first. Ties keep table order.
// metric is a tracked state, Total Collected or Conversion Rate; labels
// match case-insensitively and snake_case keys are accepted.
func RankAgents(table domain.AgentTotalsTable, metric string) (Ranking, error) {
	label, ok := matchMetric(metric, RankMetrics())
	if !ok {
		return Ranking{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	value := func(row domain.AgentTotalsRow) float64 {
		switch label {
		case MetricTotalCollected:
			return row.Collections
		case MetricConversionRate:
			return row.ConversionRate
		}
		for i, state := range table.States {
			if state == label && i < len(row.States) {
				return row.States[i]
			}
		}
		return 0
	}

	ranked := make([]RankedAgent, len(table.Rows))
	for i, row := range table.Rows {
		ranked[i] = RankedAgent{Agent: row.Agent, Value: value(row)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return Ranking{Metric: label, Agents: ranked}, nil
}

// Analytics returns one metric per tracked account state. The TOTAL row is
// not part of the series.
func Analytics(report domain.CollectionsReport, metric string) (AnalyticsSeries, error) {
	label, ok := matchMetric(metric, AnalyticsMetrics)
	if !ok {
		return AnalyticsSeries{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	points := make([]SeriesPoint, 0, len(collections.TrackedStates))
	for _, state := range collections.TrackedStates {
		var v float64
		switch label {
		case MetricTotalCollected, MetricConversionRate:
			row, _ := report.States.Row(state)
			v = row.Collected
			if label == MetricConversionRate {
				v = row.ConversionRate
			}
		case MetricPartialsCount, MetricPartialAmount:
			for _, p := range report.Partials.Rows {
				if p.AccountState != state {
					continue
				}
				v = p.Amount
				if label == MetricPartialsCount {
					v = float64(p.Count)
				}
			}
		}
		points = append(points, SeriesPoint{AccountState: state, Value: v})
	}
	return AnalyticsSeries{Metric: label, Points: points}, nil
}

// matchMetric resolves metric against labels. An empty metric selects the
// first label.
func matchMetric(metric string, labels []string) (string, bool) {
	if strings.TrimSpace(metric) == "" {
		return labels[0], true
	}
	key := metricKey(metric)
	for _, label := range labels {
		if metricKey(label) == key {
			return label, true
		}
	}
	return "", false
}

func metricKey(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
