package collections

import (
	"collectdash/pkg/contracts/domain"
)

type feedbackAccumulator struct {
	count  int
	amount float64
}

// SummarizeFeedback counts records and sums Outstanding Balance per feedback
// category. Only exact category matches count; every category appears in
// FeedbackCategories order, zero-filled.
func SummarizeFeedback(records []domain.Record) domain.FeedbackSummary {
	known := make(map[string]struct{}, len(FeedbackCategories))
	for _, c := range FeedbackCategories {
		known[c] = struct{}{}
	}

	matched := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		if fb, ok := rec.Get(domain.FieldFeedback); ok {
			if _, isKnown := known[fb]; isKnown {
				matched = append(matched, rec)
			}
		}
	}

	groups := GroupBy(matched, domain.Record.Feedback, func(acc feedbackAccumulator, rec domain.Record) feedbackAccumulator {
		acc.count++
		acc.amount += rec.OutstandingBalance
		return acc
	})

	summary := domain.FeedbackSummary{Rows: make([]domain.FeedbackRow, 0, len(FeedbackCategories))}
	for i, acc := range groups.Reindex(FeedbackCategories, feedbackAccumulator{}) {
		summary.Rows = append(summary.Rows, domain.FeedbackRow{
			Feedback: FeedbackCategories[i],
			Count:    acc.count,
			Amount:   acc.amount,
		})
	}
	return summary
}
