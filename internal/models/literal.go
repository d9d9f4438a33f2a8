package models

import (
	"database/sql/driver"
	"time"
)

// LiteralKind tags a literal found in a statement.
type LiteralKind uint8

const (
	LiteralUnknown LiteralKind = iota
	LiteralString
	LiteralInteger
	LiteralFloat
	LiteralDate
	LiteralTime
	LiteralTimestamp
	LiteralNull
	LiteralHex
)

var literalKindNames = [...]string{
	LiteralUnknown:   "unknown",
	LiteralString:    "string",
	LiteralInteger:   "integer",
	LiteralFloat:     "float",
	LiteralDate:      "date",
	LiteralTime:      "time",
	LiteralTimestamp: "timestamp",
	LiteralNull:      "null",
	LiteralHex:       "hex",
}

func (k LiteralKind) String() string {
	if int(k) < len(literalKindNames) {
		return literalKindNames[k]
	}
	return literalKindNames[LiteralUnknown]
}

// MarshalText implements encoding.TextMarshaler.
func (k LiteralKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Layouts used by the Parse helpers of the temporal literal types.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05.999999999"
	TimestampLayout = "2006-01-02 15:04:05.999999999"
)

// Date is the text of a DATE '...' literal, kept exactly as written.
type Date string

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) { return string(d), nil }

// Parse interprets the literal as a UTC calendar date.
func (d Date) Parse() (time.Time, error) { return time.Parse(DateLayout, string(d)) }

// Time is the text of a TIME '...' literal, kept exactly as written.
type Time string

// Value implements driver.Valuer.
func (t Time) Value() (driver.Value, error) { return string(t), nil }

// Parse interprets the literal as a time of day on the zero date, UTC.
func (t Time) Parse() (time.Time, error) { return time.Parse(TimeLayout, string(t)) }

// Timestamp is the text of a TIMESTAMP '...' literal, kept exactly as written.
// No timezone conversion is ever applied.
type Timestamp string

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) { return string(t), nil }

// Parse interprets the literal as a UTC timestamp.
func (t Timestamp) Parse() (time.Time, error) { return time.Parse(TimestampLayout, string(t)) }
