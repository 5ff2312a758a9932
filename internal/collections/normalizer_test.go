package collections

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectdash/pkg/contracts/domain"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{name: "currency and separators", input: "KES 1,200.50", want: 1200.50},
		{name: "empty string", input: "", want: 0},
		{name: "letters", input: "abc", want: 0},
		{name: "whitespace only", input: "   ", want: 0},
		{name: "plain number string", input: "750", want: 750},
		{name: "trailing currency", input: "3,000 KES", want: 3000},
		{name: "negative", input: "-25.5", want: -25.5},
		{name: "float cell", input: 1500.25, want: 1500.25},
		{name: "int cell", input: 42, want: 42},
		{name: "nil cell", input: nil, want: 0},
		{name: "bool cell", input: true, want: 0},
		{name: "nan string", input: "NaN", want: 0},
		{name: "infinite float", input: math.Inf(1), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ParseAmount(tt.input), 1e-9)
		})
	}
}

func TestNormalizer_CustomCurrency(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{CurrencyToken: "USD"})
	assert.InDelta(t, 99.5, n.ParseAmount("USD 99.50"), 1e-9)
	assert.Equal(t, 0.0, n.ParseAmount("KES 99.50"))
}

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(NormalizerOptions{})

	t.Run("empty batch", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Alice"})
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run("header without canonical fields", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Alice", Rows: [][]any{
			{"Foo", "Bar"},
			{"1", "2"},
		}})
		assert.Empty(t, recs)
	})

	t.Run("header only", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Alice", Rows: [][]any{
			{"LID", "Amount Paid"},
		}})
		assert.Empty(t, recs)
	})

	t.Run("columns out of order and subset", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Alice", Rows: [][]any{
			{"Amount Paid", "Unrelated", "Account State", "LID", "Outstanding Balance"},
			{"KES 1,000", "x", "Arrears", 1234567.0, "5,000"},
			{"", "y", "NPL", "L-2", "abc"},
		}})
		require.Len(t, recs, 2)

		first := recs[0]
		assert.Equal(t, "Alice", first.Agent)
		assert.Equal(t, 1000.0, first.AmountPaid)
		assert.Equal(t, 5000.0, first.OutstandingBalance)
		assert.Equal(t, "Arrears", first.AccountState())
		lid, ok := first.Get(domain.FieldLID)
		assert.True(t, ok)
		assert.Equal(t, "1234567", lid)
		_, hasUnrelated := first.Get("Unrelated")
		assert.False(t, hasUnrelated)
		_, hasFeedback := first.Get(domain.FieldFeedback)
		assert.False(t, hasFeedback, "absent canonical fields are not fabricated")

		second := recs[1]
		assert.Equal(t, 0.0, second.AmountPaid)
		assert.Equal(t, 0.0, second.OutstandingBalance)
	})

	t.Run("monetary columns missing default to zero", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Bob", Rows: [][]any{
			{"LID", "Feedback"},
			{"L-1", "Employed"},
		}})
		require.Len(t, recs, 1)
		assert.Equal(t, 0.0, recs[0].AmountPaid)
		assert.Equal(t, 0.0, recs[0].OutstandingBalance)
		assert.Equal(t, "Employed", recs[0].Feedback())
	})

	t.Run("short rows leave trailing fields absent", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Bob", Rows: [][]any{
			{"LID", "Account State", "Amount Paid"},
			{"L-1"},
		}})
		require.Len(t, recs, 1)
		_, ok := recs[0].Get(domain.FieldAccountState)
		assert.False(t, ok)
		assert.Equal(t, 0.0, recs[0].AmountPaid)
	})

	t.Run("aliases and trimmed headers", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Carol", Rows: [][]any{
			{"Name", " Follow-up Date ", "Amount Paid "},
			{"Jane", "2024-05-01", 10.0},
		}})
		require.Len(t, recs, 1)
		name, ok := recs[0].Get(domain.FieldAccountHolderName)
		assert.True(t, ok)
		assert.Equal(t, "Jane", name)
		date, ok := recs[0].Get(domain.FieldFollowUpDate)
		assert.True(t, ok)
		assert.Equal(t, "2024-05-01", date)
		assert.Equal(t, 10.0, recs[0].AmountPaid)
	})

	t.Run("exact header beats alias", func(t *testing.T) {
		recs := n.Normalize(domain.RawBatch{Name: "Carol", Rows: [][]any{
			{"Account Holder Name", "Name"},
			{"Exact", "Alias"},
		}})
		require.Len(t, recs, 1)
		name, _ := recs[0].Get(domain.FieldAccountHolderName)
		assert.Equal(t, "Exact", name)
	})
}
