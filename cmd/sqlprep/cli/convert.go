package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/kydance/sqlprep"
)

func newConvertCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "convert [SQL...]",
		Short: "Rewrite statements and print the parameters and warnings",
		Long: `Rewrite each argument into a parameterized statement. With no arguments the
statement is read from stdin.`,
		Example: `  sqlprep convert "SELECT * FROM users WHERE name = 'kyden' AND age > 18"
  echo "DELETE FROM t WHERE id = 1" | sqlprep convert --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sqls, err := readStatements(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			results, err := a.converter.ConvertAll(cmd.Context(), sqls)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			for i, res := range results {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				renderResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

func readStatements(in io.Reader, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	sql := strings.TrimSpace(string(data))
	if sql == "" {
		return nil, fmt.Errorf("no SQL given: pass it as an argument or on stdin")
	}
	return []string{sql}, nil
}

func renderResult(w io.Writer, res *sqlprep.Result) {
	fmt.Fprintln(w, res.PreparedSQL)

	if len(res.Params) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Kind", "Value"})
		for i, p := range res.Params {
			t.AppendRow(table.Row{i + 1, res.Kinds[i], formatValue(p)})
		}
		t.Render()
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "warning [%s]: %s\n", warning.Category, warning.Description)
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("0x%X", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
