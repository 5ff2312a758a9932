package domain

import "time"

// TotalLabel is the row label of the appended summation row.
const TotalLabel = "TOTAL"

// StateMetricsRow is one row of the per-account-state table.
// ConversionRate is a ratio (collected / allocated), not a percentage.
type StateMetricsRow struct {
	AccountState   string  `json:"account_state"`
	Allocated      float64 `json:"total_allocated_balance"`
	Collected      float64 `json:"total_collected"`
	ConversionRate float64 `json:"conversion_rate"`
}

// StateMetricsTable holds one row per tracked state plus the TOTAL row.
type StateMetricsTable struct {
	Rows  []StateMetricsRow `json:"rows"`
	Total StateMetricsRow   `json:"total"`
}

// Row returns the row for a tracked state or TOTAL.
func (t StateMetricsTable) Row(state string) (StateMetricsRow, bool) {
	if state == TotalLabel {
		return t.Total, true
	}
	for _, r := range t.Rows {
		if r.AccountState == state {
			return r, true
		}
	}
	return StateMetricsRow{}, false
}

// AgentTotalsRow is one agent's attributed amounts.
// States is ordered like the tracked state list.
type AgentTotalsRow struct {
	Agent          string    `json:"agent"`
	States         []float64 `json:"states"`
	Collections    float64   `json:"total_collected"`
	ConversionRate float64   `json:"conversion_rate"`
}

// StateSum is the sum of the per-state attributed amounts.
func (r AgentTotalsRow) StateSum() float64 {
	var sum float64
	for _, v := range r.States {
		sum += v
	}
	return sum
}

// AgentTotalsTable lists agents in ascending name order.
type AgentTotalsTable struct {
	States []string         `json:"states"`
	Rows   []AgentTotalsRow `json:"rows"`
}

// PartialsRow counts records paying partially within one account state.
type PartialsRow struct {
	AccountState string  `json:"account_state"`
	Count        int     `json:"partials_count"`
	Amount       float64 `json:"partial_amount"`
}

// PartialsTable holds one row per tracked state plus the TOTAL row.
type PartialsTable struct {
	Rows  []PartialsRow `json:"rows"`
	Total PartialsRow   `json:"total"`
}

// FeedbackRow aggregates records by feedback category.
type FeedbackRow struct {
	Feedback string  `json:"feedback"`
	Count    int     `json:"count"`
	Amount   float64 `json:"amount"`
}

// FeedbackSummary always holds every category, in category-list order.
type FeedbackSummary struct {
	Rows []FeedbackRow `json:"rows"`
}

// CollectionsReport bundles every derived table of one aggregation run.
type CollectionsReport struct {
	TotalCollected float64           `json:"total_collected"`
	RecordCount    int               `json:"record_count"`
	States         StateMetricsTable `json:"state_metrics"`
	Agents         AgentTotalsTable  `json:"agent_totals"`
	Partials       PartialsTable     `json:"partials"`
	Feedback       FeedbackSummary   `json:"feedback"`
}

// BatchWarning records a batch skipped during aggregation.
type BatchWarning struct {
	Batch   string `json:"batch"`
	Message string `json:"message"`
}

// DashboardSnapshot is an immutable result of one refresh pass.
type DashboardSnapshot struct {
	Epoch      int64             `json:"epoch"`
	ComputedAt time.Time         `json:"computed_at"`
	Report     CollectionsReport `json:"report"`
	Warnings   []BatchWarning    `json:"warnings,omitempty"`
	Agents     []string          `json:"agents"`
}

// Clone returns a deep copy so callers never share slices with a cache.
func (s *DashboardSnapshot) Clone() *DashboardSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	r := &out.Report

	r.States.Rows = append([]StateMetricsRow(nil), s.Report.States.Rows...)
	r.Agents.States = append([]string(nil), s.Report.Agents.States...)
	r.Agents.Rows = make([]AgentTotalsRow, len(s.Report.Agents.Rows))
	for i, row := range s.Report.Agents.Rows {
		row.States = append([]float64(nil), row.States...)
		r.Agents.Rows[i] = row
	}
	r.Partials.Rows = append([]PartialsRow(nil), s.Report.Partials.Rows...)
	r.Feedback.Rows = append([]FeedbackRow(nil), s.Report.Feedback.Rows...)

	out.Warnings = append([]BatchWarning(nil), s.Warnings...)
	out.Agents = append([]string(nil), s.Agents...)
	return &out
}
