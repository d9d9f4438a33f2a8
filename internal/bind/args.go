package bind

import (
	"fmt"
	"strconv"

	"github.com/kydance/sqlprep/internal/models"
)

// Args is a Binder for database/sql: it fills the positional argument slice
// later passed to Stmt.ExecContext / QueryContext.
type Args struct {
	values []any
}

// NewArgs returns an Args with room for n placeholders.
func NewArgs(n int) *Args {
	return &Args{values: make([]any, n)}
}

// Values returns the bound arguments in placeholder order.
func (a *Args) Values() []any { return a.values }

func (a *Args) set(pos int, v any) error {
	if pos < 1 || pos > len(a.values) {
		return fmt.Errorf("position %d out of range [1, %d]", pos, len(a.values))
	}
	a.values[pos-1] = v
	return nil
}

// BindNull binds SQL NULL. database/sql carries no type for a nil argument,
// so typ is not used.
func (a *Args) BindNull(pos int, _ SQLType) error { return a.set(pos, nil) }

func (a *Args) BindString(pos int, v string) error   { return a.set(pos, v) }
func (a *Args) BindInt64(pos int, v int64) error     { return a.set(pos, v) }
func (a *Args) BindFloat64(pos int, v float64) error { return a.set(pos, v) }
func (a *Args) BindBool(pos int, v bool) error       { return a.set(pos, v) }

// BindObject passes v through, except for uint64 values above MaxInt64:
// database/sql rejects those, so they go as decimal text.
func (a *Args) BindObject(pos int, v any) error {
	if u, ok := v.(uint64); ok {
		return a.set(pos, strconv.FormatUint(u, 10))
	}
	return a.set(pos, v)
}

// Temporal literals are passed as their text, untouched by any timezone.
func (a *Args) BindDate(pos int, v models.Date) error { return a.set(pos, string(v)) }
func (a *Args) BindTime(pos int, v models.Time) error { return a.set(pos, string(v)) }
func (a *Args) BindTimestamp(pos int, v models.Timestamp) error {
	return a.set(pos, string(v))
}
