package collections

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"collectdash/pkg/contracts/domain"
)

// DefaultCurrencyToken is stripped from monetary cells before parsing.
const DefaultCurrencyToken = "KES"

// NormalizerOptions configures header matching and amount parsing.
type NormalizerOptions struct {
	// Fields is the canonical field set. Nil selects CanonicalFields.
	Fields []string
	// Aliases maps alternative header names to canonical fields.
	// Nil selects DefaultHeaderAliases.
	Aliases map[string]string
	// CurrencyToken is removed from monetary cells. Empty selects DefaultCurrencyToken.
	CurrencyToken string
}

// Normalizer converts raw batches into canonical records.
type Normalizer struct {
	fields   map[string]struct{}
	aliases  map[string]string
	currency string
}

// NewNormalizer creates a normalizer, filling unset options with defaults.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	if opts.Fields == nil {
		opts.Fields = CanonicalFields
	}
	if opts.Aliases == nil {
		opts.Aliases = DefaultHeaderAliases
	}
	if opts.CurrencyToken == "" {
		opts.CurrencyToken = DefaultCurrencyToken
	}

	fields := make(map[string]struct{}, len(opts.Fields))
	for _, f := range opts.Fields {
		fields[f] = struct{}{}
	}
	aliases := make(map[string]string, len(opts.Aliases))
	for alias, target := range opts.Aliases {
		if _, ok := fields[target]; ok {
			aliases[alias] = target
		}
	}

	return &Normalizer{fields: fields, aliases: aliases, currency: opts.CurrencyToken}
}

// Normalize maps every value row of the batch onto the canonical fields
// present in its header. An empty batch, or one whose header shares no field
// with the canonical set, yields no records.
func (n *Normalizer) Normalize(batch domain.RawBatch) []domain.Record {
	positions := n.headerPositions(batch.Header())
	if len(positions) == 0 {
		return []domain.Record{}
	}

	balanceCol, hasBalance := positions[domain.FieldOutstandingBalance]
	paidCol, hasPaid := positions[domain.FieldAmountPaid]

	records := make([]domain.Record, 0, len(batch.Rows)-1)
	for _, row := range batch.Rows[1:] {
		rec := domain.Record{
			Agent:  batch.Name,
			Fields: make(map[string]string, len(positions)),
		}
		for field, col := range positions {
			if field == domain.FieldOutstandingBalance || field == domain.FieldAmountPaid {
				continue
			}
			if col >= len(row) {
				continue
			}
			if v, ok := cellString(row[col]); ok {
				rec.Fields[field] = v
			}
		}
		if hasBalance && balanceCol < len(row) {
			rec.OutstandingBalance = n.ParseAmount(row[balanceCol])
		}
		if hasPaid && paidCol < len(row) {
			rec.AmountPaid = n.ParseAmount(row[paidCol])
		}
		records = append(records, rec)
	}
	return records
}

// headerPositions maps canonical fields to column indexes. Exact canonical
// headers win over aliases; among duplicates the rightmost column wins.
func (n *Normalizer) headerPositions(header []any) map[string]int {
	positions := make(map[string]int)
	exact := make(map[string]bool)
	for i, cell := range header {
		name, ok := cellString(cell)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if _, canonical := n.fields[name]; canonical {
			positions[name] = i
			exact[name] = true
			continue
		}
		if target, alias := n.aliases[name]; alias && !exact[target] {
			positions[target] = i
		}
	}
	return positions
}

// ParseAmount coerces a monetary cell to a float. Thousands separators, the
// currency token and surrounding whitespace are removed first. Empty,
// malformed or non-finite values become 0.
func (n *Normalizer) ParseAmount(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		return 0
	case string:
		return n.parseAmountString(x)
	default:
		return n.parseAmountString(fmt.Sprint(x))
	}
}

func (n *Normalizer) parseAmountString(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, n.currency, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return finite(d.InexactFloat64())
}

// ParseAmount parses a monetary value with the default currency token.
func ParseAmount(v any) float64 {
	return defaultNormalizer.ParseAmount(v)
}

var defaultNormalizer = NewNormalizer(NormalizerOptions{})

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// cellString renders a non-monetary cell. Whole numbers print without a
// fractional part so that unformatted IDs and phone numbers stay readable.
func cellString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return fmt.Sprint(x), true
	}
}
