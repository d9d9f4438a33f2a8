package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/kydance/sqlprep"
	"github.com/kydance/sqlprep/internal/models"

	// Register database drivers
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

func newExecCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec SQL...",
		Short: "Run statements as prepared statements against the configured database",
		Long: `Rewrite each argument, prepare it on the configured database, bind the
extracted parameters and run it. Queries print their rows; other statements
print the number of affected rows. Statements run in order on one connection.`,
		Example: `  sqlprep exec --driver sqlite --dsn ./app.db "SELECT * FROM users WHERE id = 1"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := sqlprep.Open(ctx, a.cfg.Driver, a.cfg.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			db.SetMaxOpenConns(1)

			for _, query := range args {
				if err := runStatement(cmd, a.converter, db, query); err != nil {
					return err
				}
			}
			return nil
		},
	}

	return cmd
}

func runStatement(cmd *cobra.Command, conv *sqlprep.Converter, db *sqlx.DB, query string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	stmt, err := conv.Prepare(ctx, db, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if returnsRows(stmt.Result()) {
		rows, err := stmt.QueryxContext(ctx)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		return renderRows(out, rows)
	}

	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	fmt.Fprintf(out, "%d row(s) affected\n", affected)
	return nil
}

func returnsRows(res *sqlprep.Result) bool {
	if len(res.OpTypes) == 0 {
		return false
	}
	switch res.OpTypes[0] {
	case models.SQLOperationSelect, models.SQLOperationSetOpr, models.SQLOperationExplain:
		return true
	default:
		return false
	}
}

func renderRows(w io.Writer, rows *sqlx.Rows) error {
	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	t.AppendHeader(header)

	count := 0
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		row := make(table.Row, len(values))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = formatValue(v)
		}
		t.AppendRow(row)
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}

	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", count)
	return nil
}
