// Package bind maps extracted literal values onto typed binding calls of a
// prepared statement handle.
package bind

import (
	"errors"
	"fmt"
	"math"

	"github.com/kydance/sqlprep/internal/models"
)

// SQLType is the type tag handed to BindNull.
type SQLType int

const (
	// TypeUnknown is the generic "no type" tag used for NULL literals, whose
	// column type is not known at rewrite time.
	TypeUnknown SQLType = iota
	TypeString
	TypeInt64
	TypeFloat64
	TypeDate
	TypeTime
	TypeTimestamp
	TypeBool
)

// Binder is a prepared execution handle that accepts typed values at
// 1-based positions.
type Binder interface {
	BindNull(pos int, typ SQLType) error
	BindString(pos int, v string) error
	BindInt64(pos int, v int64) error
	BindFloat64(pos int, v float64) error
	BindDate(pos int, v models.Date) error
	BindTime(pos int, v models.Time) error
	BindTimestamp(pos int, v models.Timestamp) error
	BindBool(pos int, v bool) error
	BindObject(pos int, v any) error
}

// ErrBind is matched by every *Error through errors.Is.
var ErrBind = errors.New("bind parameter")

// Error reports the parameter a Binder rejected.
type Error struct {
	Position int    // 1-based
	Type     string // runtime type of the value
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("bind parameter %d (%s): %v", e.Position, e.Type, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrBind }

// All binds params to b in order, position 1 being the first placeholder.
// It stops at the first failure.
func All(b Binder, params []any) error {
	for idx, param := range params {
		pos := idx + 1
		if err := One(b, pos, param); err != nil {
			return &Error{Position: pos, Type: fmt.Sprintf("%T", param), Err: err}
		}
	}
	return nil
}

// One binds a single value using the narrowest binding call for its runtime
// type, and BindObject for anything else.
func One(b Binder, pos int, value any) error {
	switch v := value.(type) {
	case nil:
		return b.BindNull(pos, TypeUnknown)
	case string:
		return b.BindString(pos, v)
	case int64:
		return b.BindInt64(pos, v)
	case int:
		return b.BindInt64(pos, int64(v))
	case int32:
		return b.BindInt64(pos, int64(v))
	case int16:
		return b.BindInt64(pos, int64(v))
	case int8:
		return b.BindInt64(pos, int64(v))
	case uint32:
		return b.BindInt64(pos, int64(v))
	case uint16:
		return b.BindInt64(pos, int64(v))
	case uint8:
		return b.BindInt64(pos, int64(v))
	case uint64:
		if v <= math.MaxInt64 {
			return b.BindInt64(pos, int64(v))
		}
		return b.BindObject(pos, v)
	case float64:
		return b.BindFloat64(pos, v)
	case float32:
		return b.BindFloat64(pos, float64(v))
	case models.Date:
		return b.BindDate(pos, v)
	case models.Time:
		return b.BindTime(pos, v)
	case models.Timestamp:
		return b.BindTimestamp(pos, v)
	case bool:
		return b.BindBool(pos, v)
	default:
		return b.BindObject(pos, v)
	}
}
