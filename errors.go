package sqlprep

import (
	"errors"
	"fmt"

	"github.com/kydance/sqlprep/internal/bind"
	"github.com/kydance/sqlprep/internal/templatize"
)

var (
	// ErrParse is matched by every *ParseError through errors.Is.
	ErrParse = errors.New("parse SQL")
	// ErrEmptyStatement is wrapped by the *ParseError returned for blank input.
	ErrEmptyStatement = templatize.ErrEmptyStatement
	// ErrBind is matched by every *BindError through errors.Is.
	ErrBind = bind.ErrBind
)

// ParseError is returned when the input cannot be parsed into at least one
// statement. The input itself is only kept as a short preview.
type ParseError struct {
	Length  int    // length of the input in bytes
	Preview string // truncated input
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse SQL (%d bytes) %q: %v", e.Length, e.Preview, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// BindError reports the parameter that could not be bound.
type BindError = bind.Error
