package collections

import (
	"fmt"
	"strings"

	"collectdash/pkg/contracts/domain"
)

// Tracked account states, in output order.
const (
	StateArrears    = "Arrears"
	StateWriteOff   = "Write Off"
	StateNPL        = "NPL"
	StateNoInterest = "No Interest"
)

// TrackedStates is the fixed list of account states reported on.
var TrackedStates = []string{StateArrears, StateWriteOff, StateNPL, StateNoInterest}

// PayingPartially is the Repayment Status marking a partial payer.
const PayingPartially = "Paying Partially"

// FeedbackCategories is the fixed feedback vocabulary, in output order.
var FeedbackCategories = []string{
	"Employed with MOU Institution",
	"Employed",
	"Unemployed",
	"Retired",
	"Self Employed",
	"Refer to Legal",
	"Referred to Legal",
	"Deceased",
}

// DefaultExcludedBatches names worksheets that are not agent batches.
var DefaultExcludedBatches = []string{
	"Portfolio Summary",
	"Summary",
	"Dashboard",
	"Master",
	"Agent Chat",
	"Collections",
	"Daily Performance",
}

// CanonicalFields is the canonical field set in canonical order.
var CanonicalFields = []string{
	domain.FieldLID,
	domain.FieldAccountHolderID,
	domain.FieldAccountHolderName,
	domain.FieldMobile,
	domain.FieldProduct,
	domain.FieldOutstandingBalance,
	domain.FieldContactDate,
	domain.FieldAccountState,
	domain.FieldRepaymentStatus,
	domain.FieldFeedback,
	domain.FieldAmountPaid,
	domain.FieldFollowUpDate,
	domain.FieldDueTasks,
	domain.FieldProspects,
	domain.FieldAddStatus,
	domain.FieldRepaymentDate,
	domain.FieldEmployer,
}

// DefaultHeaderAliases maps alternative header spellings to canonical fields.
var DefaultHeaderAliases = map[string]string{
	"Name":           domain.FieldAccountHolderName,
	"Follow-up Date": domain.FieldFollowUpDate,
}

// ExclusionPolicy selects how batch names are compared with the exclusion list.
type ExclusionPolicy string

const (
	// ExcludeFold compares names case-insensitively.
	ExcludeFold ExclusionPolicy = "fold"
	// ExcludeExact compares names byte-for-byte.
	ExcludeExact ExclusionPolicy = "exact"
)

// ParseExclusionPolicy validates a policy name. Empty selects ExcludeFold.
func ParseExclusionPolicy(s string) (ExclusionPolicy, error) {
	switch ExclusionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExcludeFold:
		return ExcludeFold, nil
	case ExcludeExact:
		return ExcludeExact, nil
	default:
		return "", fmt.Errorf("unknown exclusion policy %q", s)
	}
}

// Exclusions decides which batch names are skipped.
type Exclusions struct {
	policy ExclusionPolicy
	names  map[string]struct{}
}

// NewExclusions builds an exclusion matcher. A nil names slice selects DefaultExcludedBatches.
func NewExclusions(policy ExclusionPolicy, names []string) Exclusions {
	if names == nil {
		names = DefaultExcludedBatches
	}
	if policy == "" {
		policy = ExcludeFold
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[exclusionKey(policy, n)] = struct{}{}
	}
	return Exclusions{policy: policy, names: set}
}

// Excluded reports whether the batch name is on the exclusion list.
func (e Exclusions) Excluded(name string) bool {
	_, ok := e.names[exclusionKey(e.policy, name)]
	return ok
}

// Filter returns the non-excluded names, preserving order.
func (e Exclusions) Filter(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !e.Excluded(n) {
			out = append(out, n)
		}
	}
	return out
}

func exclusionKey(policy ExclusionPolicy, name string) string {
	if policy == ExcludeExact {
		return name
	}
	return strings.ToLower(name)
}
