package domain

// Canonical field names read from agent worksheets.
const (
	FieldLID                = "LID"
	FieldAccountHolderID    = "Account Holder ID"
	FieldAccountHolderName  = "Account Holder Name"
	FieldMobile             = "Mobile"
	FieldProduct            = "Product"
	FieldOutstandingBalance = "Outstanding Balance"
	FieldContactDate        = "Contact Date"
	FieldAccountState       = "Account State"
	FieldRepaymentStatus    = "Repayment Status"
	FieldFeedback           = "Feedback"
	FieldAmountPaid         = "Amount Paid"
	FieldFollowUpDate       = "Follow up date"
	FieldDueTasks           = "Due Tasks"
	FieldProspects          = "Prospects"
	FieldAddStatus          = "Add Status"
	FieldRepaymentDate      = "Repayment Date"
	FieldEmployer           = "Employer"

	// FieldAgent is attached to every normalized record; it is never read from a header.
	FieldAgent = "Agent"
)

// RawBatch is one named source's rows as returned by the batch source.
// Rows[0] is the header row; the remaining rows are positional values.
// Cells keep the type the source produced (float64 for unformatted numbers,
// string for text, nil for missing cells).
type RawBatch struct {
	Name string  `json:"name"`
	Rows [][]any `json:"rows"`
}

// Header returns the header row, or nil when the batch is empty.
func (b RawBatch) Header() []any {
	if len(b.Rows) == 0 {
		return nil
	}
	return b.Rows[0]
}

// Record is a normalized row from one agent batch.
//
// OutstandingBalance and AmountPaid are always set (0 when the cell was
// missing or malformed). Fields holds only the other canonical fields that the
// batch header actually carried; absent keys mean the column was absent.
type Record struct {
	Agent              string            `json:"agent"`
	OutstandingBalance float64           `json:"outstanding_balance"`
	AmountPaid         float64           `json:"amount_paid"`
	Fields             map[string]string `json:"fields,omitempty"`
}

// Get returns a canonical field value and whether the batch carried it.
func (r Record) Get(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// AccountState returns the Account State value or "" when absent.
func (r Record) AccountState() string {
	return r.Fields[FieldAccountState]
}

// RepaymentStatus returns the Repayment Status value or "" when absent.
func (r Record) RepaymentStatus() string {
	return r.Fields[FieldRepaymentStatus]
}

// Feedback returns the Feedback value or "" when absent.
func (r Record) Feedback() string {
	return r.Fields[FieldFeedback]
}
