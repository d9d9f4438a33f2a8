package models

// TableInfo names a table referenced by a statement.
type TableInfo struct {
	schema    string // database
	tableName string // table name
}

// NewTableInfo creates a new TableInfo object.
// args should be 0 or 2: the schema, then the table name.
func NewTableInfo(args ...string) *TableInfo {
	switch len(args) {
	case 0:
		return &TableInfo{}
	case 2:
		return &TableInfo{schema: args[0], tableName: args[1]}
	}

	panic("invalid args: len(args) should be 0 or 2 (schema, table name)")
}

func (t *TableInfo) TableName() string { return t.tableName }
func (t *TableInfo) Schema() string    { return t.schema }

// QualifiedName returns schema.table, or just the table name when no schema is set.
func (t *TableInfo) QualifiedName() string {
	if t.schema != "" {
		return t.schema + "." + t.tableName
	}
	return t.tableName
}

// MarshalText implements encoding.TextMarshaler using QualifiedName.
func (t *TableInfo) MarshalText() ([]byte, error) { return []byte(t.QualifiedName()), nil }
