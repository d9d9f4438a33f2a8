package sqlprep

import "github.com/kydance/sqlprep/internal/models"

type (
	// Warning is an advisory finding about the input text.
	Warning = models.Warning
	// LiteralKind tags each extracted parameter.
	LiteralKind = models.LiteralKind
	// SQLOpType is the operation of one parsed statement.
	SQLOpType = models.SQLOpType
	// TableInfo names a table referenced by the input.
	TableInfo = models.TableInfo

	// Date, Time and Timestamp carry temporal literal text exactly as written.
	Date      = models.Date
	Time      = models.Time
	Timestamp = models.Timestamp
)

// Result is the outcome of one conversion. The i-th Params entry belongs to
// the i-th "?" in PreparedSQL.
type Result struct {
	PreparedSQL string        `json:"prepared_sql"`
	Params      []any         `json:"params"`
	Kinds       []LiteralKind `json:"kinds"`
	Warnings    []Warning     `json:"warnings"`
	OpTypes     []SQLOpType   `json:"op_types"`
	Tables      []*TableInfo  `json:"tables"`
}

// HasWarnings reports whether the validator flagged anything.
func (r *Result) HasWarnings() bool { return len(r.Warnings) > 0 }

// WarningMessages returns the warning descriptions in order.
func (r *Result) WarningMessages() []string {
	msgs := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		msgs[i] = w.Description
	}
	return msgs
}
