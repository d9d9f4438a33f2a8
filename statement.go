package sqlprep

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/kydance/sqlprep/internal/bind"
)

// Statement is a prepared statement with its extracted parameters already
// bound. It must be closed.
type Statement struct {
	stmt   *sqlx.Stmt
	args   []any
	result *Result
}

// Open connects to a database and verifies the connection.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Prepare converts query, logs its warnings, prepares the rewritten text on
// db and binds the extracted parameters. "?" markers are rebound to the
// driver's placeholder style first.
func (c *Converter) Prepare(ctx context.Context, db *sqlx.DB, query string) (*Statement, error) {
	res, err := c.Convert(query)
	if err != nil {
		return nil, err
	}
	c.logWarnings(query, res.Warnings)

	stmt, err := db.PreparexContext(ctx, db.Rebind(res.PreparedSQL))
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}

	args := bind.NewArgs(len(res.Params))
	if err := bind.All(args, res.Params); err != nil {
		if cerr := stmt.Close(); cerr != nil {
			c.logger.Warn("close statement", zap.Error(cerr))
		}
		return nil, err
	}

	return &Statement{stmt: stmt, args: args.Values(), result: res}, nil
}

// ExecContext executes the statement with its bound parameters.
func (s *Statement) ExecContext(ctx context.Context) (sql.Result, error) {
	return s.stmt.ExecContext(ctx, s.args...)
}

// QueryxContext runs the statement as a query.
func (s *Statement) QueryxContext(ctx context.Context) (*sqlx.Rows, error) {
	return s.stmt.QueryxContext(ctx, s.args...)
}

// QueryRowxContext runs the statement as a single row query.
func (s *Statement) QueryRowxContext(ctx context.Context) *sqlx.Row {
	return s.stmt.QueryRowxContext(ctx, s.args...)
}

// Args returns the bound parameters.
func (s *Statement) Args() []any { return s.args }

// Result returns the conversion the statement was prepared from.
func (s *Statement) Result() *Result { return s.result }

func (s *Statement) Close() error { return s.stmt.Close() }
