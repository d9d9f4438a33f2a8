package models

// SQLOpType represents the type of SQL operation
type SQLOpType string

// String returns the string representation of the SQLOpType.
func (s SQLOpType) String() string { return string(s) }

const (
	SQLOperationUnknown SQLOpType = "UNKNOWN"
	SQLOperationSelect  SQLOpType = "SELECT"
	SQLOperationInsert  SQLOpType = "INSERT"
	SQLOperationReplace SQLOpType = "REPLACE"
	SQLOperationUpdate  SQLOpType = "UPDATE"
	SQLOperationDelete  SQLOpType = "DELETE"
	SQLOperationExplain SQLOpType = "EXPLAIN"
	SQLOperationSetOpr  SQLOpType = "SETOPR" // UNION / EXCEPT / INTERSECT
	SQLOperationDrop    SQLOpType = "DROP"
	SQLOperationOther   SQLOpType = "OTHER"
)

// Warning is an advisory finding of the injection heuristics. It never blocks
// a conversion.
type Warning struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// String returns the description.
func (w Warning) String() string { return w.Description }
