package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd("1.2.3", "abc123", "2026-01-01")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestConvertCmd(t *testing.T) {
	out, err := run(t, "", "convert", "SELECT * FROM users WHERE name = 'kyden' AND age > 18 AND deleted IS NULL")
	require.NoError(t, err)

	as := assert.New(t)
	as.Contains(out, "SELECT * FROM users WHERE name = ? AND age > ? AND deleted IS NULL")
	as.Contains(out, "kyden")
	as.Contains(out, "integer")
	as.NotContains(out, "warning")
}

func TestConvertCmd_Stdin(t *testing.T) {
	out, err := run(t, "SELECT 1; DROP TABLE x;\n", "convert")
	require.NoError(t, err)
	assert.Contains(t, out, "warning [stacked-query]")
}

func TestConvertCmd_JSON(t *testing.T) {
	out, err := run(t, "", "convert", "--json",
		"UPDATE users SET name = 'x' WHERE id = 2",
		"SELECT * FROM t WHERE a = 'x' AND b = 42 AND c = 3.5")
	require.NoError(t, err)

	var results []struct {
		PreparedSQL string   `json:"prepared_sql"`
		Params      []any    `json:"params"`
		Kinds       []string `json:"kinds"`
		OpTypes     []string `json:"op_types"`
		Tables      []string `json:"tables"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)

	as := assert.New(t)
	as.Equal("UPDATE users SET name = ? WHERE id = ?", results[0].PreparedSQL)
	as.Equal([]any{"x", float64(2)}, results[0].Params)
	as.Equal([]string{"string", "integer"}, results[0].Kinds)
	as.Equal([]string{"UPDATE"}, results[0].OpTypes)
	as.Equal([]string{"users"}, results[0].Tables)
	as.Equal("SELECT * FROM t WHERE a = ? AND b = ? AND c = ?", results[1].PreparedSQL)
}

func TestConvertCmd_Errors(t *testing.T) {
	_, err := run(t, "", "convert", "SELEC * FORM")
	assert.Error(t, err)

	_, err = run(t, "   ", "convert")
	assert.Error(t, err)

	_, err = run(t, "", "--driver", "oracle", "convert", "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestExecCmd_SQLite(t *testing.T) {
	out, err := run(t, "", "exec",
		"CREATE TABLE users (id INTEGER, name TEXT)",
		"INSERT INTO users (id, name) VALUES (1, 'kyden'), (2, 'other')",
		"SELECT name FROM users WHERE id = 1")
	require.NoError(t, err)

	as := assert.New(t)
	as.Contains(out, "2 row(s) affected")
	as.Contains(out, "kyden")
	as.NotContains(out, "other")
	as.Contains(out, "(1 rows)")
}

func TestExecCmd_RequiresSQL(t *testing.T) {
	_, err := run(t, "", "exec")
	assert.Error(t, err)
}

func TestVersionCmd(t *testing.T) {
	out, err := run(t, "", "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])
}
