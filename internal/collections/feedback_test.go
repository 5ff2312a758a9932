package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectdash/pkg/contracts/domain"
)

func TestSummarizeFeedback(t *testing.T) {
	summary := SummarizeFeedback(sampleRecords())

	require.Len(t, summary.Rows, len(FeedbackCategories))
	for i, row := range summary.Rows {
		assert.Equal(t, FeedbackCategories[i], row.Feedback)
	}

	byName := map[string]domain.FeedbackRow{}
	for _, row := range summary.Rows {
		byName[row.Feedback] = row
	}
	assert.Equal(t, 2, byName["Employed"].Count)
	assert.Equal(t, 1250.0, byName["Employed"].Amount)
	assert.Equal(t, 1, byName["Retired"].Count)
	assert.Equal(t, 1, byName["Deceased"].Count)
	assert.Equal(t, 3000.0, byName["Deceased"].Amount)
	assert.Equal(t, 1, byName["Unemployed"].Count)
	assert.Equal(t, 0, byName["Refer to Legal"].Count)
	assert.Equal(t, 0.0, byName["Refer to Legal"].Amount)
}

func TestSummarizeFeedback_NoMatches(t *testing.T) {
	records := []domain.Record{
		rec("Alice", "NPL", "", "employed", 100, 0),
		rec("Alice", "NPL", "", "Employed ", 100, 0),
	}
	summary := SummarizeFeedback(records)

	require.Len(t, summary.Rows, 8)
	for _, row := range summary.Rows {
		assert.Zero(t, row.Count)
		assert.Zero(t, row.Amount)
	}
}

func TestSummarizeFeedback_Empty(t *testing.T) {
	summary := SummarizeFeedback(nil)
	require.Len(t, summary.Rows, 8)
	assert.Equal(t, "Employed with MOU Institution", summary.Rows[0].Feedback)
	assert.Equal(t, "Deceased", summary.Rows[7].Feedback)
}
