package templatize

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kydance/sqlprep/internal/models"
)

func TestTemplatizeSQL_Rewrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		want   string
		params []any
	}{
		{
			name:   "mixed literal types",
			sql:    "SELECT * FROM t WHERE a = 'x' AND b = 42 AND c = 3.5",
			want:   "SELECT * FROM t WHERE a = ? AND b = ? AND c = ?",
			params: []any{"x", int64(42), 3.5},
		},
		{
			name:   "boolean literal",
			sql:    "SELECT * FROM users WHERE name = 'kyden' AND age = 25 AND active = true",
			want:   "SELECT * FROM users WHERE name = ? AND age = ? AND active = ?",
			params: []any{"kyden", int64(25), int64(1)},
		},
		{
			name:   "join with aliases",
			sql:    "SELECT u.name, o.order_id FROM users u JOIN orders o ON u.id = o.user_id WHERE u.age > 18 AND o.amount > 100.50",
			want:   "SELECT u.name, o.order_id FROM users AS u JOIN orders AS o ON u.id = o.user_id WHERE u.age > ? AND o.amount > ?",
			params: []any{int64(18), 100.5},
		},
		{
			name:   "left join",
			sql:    "SELECT * FROM users u LEFT JOIN orders o ON u.id = o.customer_id WHERE o.status = 'open'",
			want:   "SELECT * FROM users AS u LEFT JOIN orders AS o ON u.id = o.customer_id WHERE o.status = ?",
			params: []any{"open"},
		},
		{
			name:   "group by and having",
			sql:    "SELECT department, COUNT(*) AS count FROM employees WHERE salary >= 50000 GROUP BY department HAVING count > 5",
			want:   "SELECT department, COUNT(*) AS count FROM employees WHERE salary >= ? GROUP BY department HAVING count > ?",
			params: []any{int64(50000), int64(5)},
		},
		{
			name:   "null literals are kept",
			sql:    "SELECT * FROM t WHERE a = NULL OR b IN (1, NULL)",
			want:   "SELECT * FROM t WHERE a = ? OR b IN (?, ?)",
			params: []any{nil, int64(1), nil},
		},
		{
			name:   "between bounds",
			sql:    "SELECT * FROM t WHERE salary BETWEEN 50000.0 AND 100000.0",
			want:   "SELECT * FROM t WHERE salary BETWEEN ? AND ?",
			params: []any{50000.0, 100000.0},
		},
		{
			name:   "not between",
			sql:    "SELECT * FROM t WHERE a NOT BETWEEN 1 AND 2",
			want:   "SELECT * FROM t WHERE a NOT BETWEEN ? AND ?",
			params: []any{int64(1), int64(2)},
		},
		{
			name:   "like pattern",
			sql:    "SELECT * FROM users WHERE name NOT LIKE 'a%'",
			want:   "SELECT * FROM users WHERE name NOT LIKE ?",
			params: []any{"a%"},
		},
		{
			name:   "parentheses are preserved",
			sql:    "SELECT * FROM t WHERE (a = 1 OR b = 2) AND c = 'z'",
			want:   "SELECT * FROM t WHERE (a = ? OR b = ?) AND c = ?",
			params: []any{int64(1), int64(2), "z"},
		},
		{
			name:   "negative number",
			sql:    "SELECT * FROM t WHERE a > -5",
			want:   "SELECT * FROM t WHERE a > ?",
			params: []any{int64(-5)},
		},
		{
			name:   "select list literal and case",
			sql:    "SELECT CASE WHEN a > 1 THEN 'big' ELSE 'small' END FROM t",
			want:   "SELECT CASE WHEN a > ? THEN ? ELSE ? END FROM t",
			params: []any{int64(1), "big", "small"},
		},
		{
			name:   "in subquery",
			sql:    "SELECT * FROM t WHERE id IN (SELECT id FROM u WHERE x = 3)",
			want:   "SELECT * FROM t WHERE id IN (SELECT id FROM u WHERE x = ?)",
			params: []any{int64(3)},
		},
		{
			name:   "exists subquery",
			sql:    "SELECT * FROM t WHERE NOT EXISTS (SELECT 1 FROM u WHERE u.id = t.id)",
			want:   "SELECT * FROM t WHERE NOT EXISTS (SELECT ? FROM u WHERE u.id = t.id)",
			params: []any{int64(1)},
		},
		{
			name:   "union all",
			sql:    "SELECT a FROM t WHERE x = 1 UNION ALL SELECT a FROM u WHERE y = 2",
			want:   "SELECT a FROM t WHERE x = ? UNION ALL SELECT a FROM u WHERE y = ?",
			params: []any{int64(1), int64(2)},
		},
		{
			name:   "insert values",
			sql:    "INSERT INTO users (name, age) VALUES ('a', 1), ('b', 2)",
			want:   "INSERT INTO users (name, age) VALUES (?, ?), (?, ?)",
			params: []any{"a", int64(1), "b", int64(2)},
		},
		{
			name:   "update",
			sql:    "UPDATE users SET name = 'x', age = age + 1 WHERE id = 7",
			want:   "UPDATE users SET name = ?, age = age + ? WHERE id = ?",
			params: []any{"x", int64(1), int64(7)},
		},
		{
			name:   "date literal",
			sql:    "SELECT * FROM orders WHERE created > DATE '2023-01-01'",
			want:   "SELECT * FROM orders WHERE created > ?",
			params: []any{models.Date("2023-01-01")},
		},
		{
			name:   "timestamp literal",
			sql:    "SELECT * FROM orders WHERE created < TIMESTAMP '2023-01-01 10:00:00'",
			want:   "SELECT * FROM orders WHERE created < ?",
			params: []any{models.Timestamp("2023-01-01 10:00:00")},
		},
		{
			name:   "hex literal",
			sql:    "SELECT * FROM t WHERE h = X'4142'",
			want:   "SELECT * FROM t WHERE h = ?",
			params: []any{[]byte("AB")},
		},
		{
			name:   "quoted identifiers",
			sql:    "SELECT `order` FROM `my table` WHERE `order` = 'o'",
			want:   "SELECT `order` FROM `my table` WHERE `order` = ?",
			params: []any{"o"},
		},
	}

	templatizer := NewSQLTemplatizer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			as := assert.New(t)

			out, err := templatizer.TemplatizeSQL(tt.sql)
			require.NoError(t, err)

			as.Equal(tt.want, out.SQL)
			as.Equal(tt.params, out.Params)
			as.Len(out.Kinds, len(out.Params))
			as.Equal(strings.Count(out.SQL, "?"), len(out.Params))
		})
	}
}

func TestTemplatizeSQL_LiteralFree(t *testing.T) {
	t.Parallel()
	as := assert.New(t)
	templatizer := NewSQLTemplatizer(nil)

	for _, sql := range []string{
		"SELECT * FROM users",
		"SELECT a, b FROM t WHERE a = b ORDER BY a DESC",
		"SELECT COUNT(*) FROM t",
		"SELECT GROUP_CONCAT(name SEPARATOR ';') FROM t",
		"SELECT u.name FROM users AS u LEFT JOIN orders AS o ON u.id = o.user_id",
	} {
		out, err := templatizer.TemplatizeSQL(sql)
		as.NoError(err, sql)
		as.Equal(sql, out.SQL)
		as.Empty(out.Params, sql)
	}
}

func TestTemplatizeSQL_Kinds(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	out, err := NewSQLTemplatizer(nil).TemplatizeSQL(
		"SELECT * FROM t WHERE a = 'x' AND b = 1 AND c = 1.5 AND d = NULL AND e = X'FF' AND f = TIME '10:00:00'")
	as.NoError(err)
	as.Equal([]models.LiteralKind{
		models.LiteralString,
		models.LiteralInteger,
		models.LiteralFloat,
		models.LiteralNull,
		models.LiteralHex,
		models.LiteralTime,
	}, out.Kinds)
	as.Equal(models.Time("10:00:00"), out.Params[5])
}

func TestTemplatizeSQL_Functions(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	out, err := NewSQLTemplatizer(nil).TemplatizeSQL(
		"SELECT * FROM t WHERE created > DATE_ADD(NOW(), INTERVAL 1 DAY) AND name = UPPER('x')")
	as.NoError(err)
	as.Contains(out.SQL, "INTERVAL ? DAY")
	as.Contains(out.SQL, "UPPER(?)")
	as.Equal([]any{int64(1), "x"}, out.Params)
	as.Equal(strings.Count(out.SQL, "?"), len(out.Params))
}

func TestTemplatizeSQL_DeleteWithLimit(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	out, err := NewSQLTemplatizer(nil).TemplatizeSQL("DELETE FROM users WHERE id = 7 LIMIT 1")
	as.NoError(err)
	as.Equal("DELETE FROM users WHERE id = ? LIMIT ?", out.SQL)
	as.Equal([]any{int64(7), int64(1)}, out.Params)
	as.Equal([]models.SQLOpType{models.SQLOperationDelete}, out.OpTypes)
}

func TestTemplatizeSQL_StructuralForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		want   string
		params []any
		// fold compares case-insensitively where the parser normalizes a keyword's case
		fold bool
	}{
		{
			name:   "all subquery with '?' in strings",
			sql:    "SELECT * FROM t WHERE a = 'a?b' AND b > ALL (SELECT c FROM u WHERE c = 'q?')",
			want:   "SELECT * FROM t WHERE a = ? AND b > ALL (SELECT c FROM u WHERE c = ?)",
			params: []any{"a?b", "q?"},
		},
		{
			name:   "any subquery",
			sql:    "SELECT * FROM t WHERE a > ANY (SELECT b FROM u WHERE c = 5)",
			want:   "SELECT * FROM t WHERE a > ANY (SELECT b FROM u WHERE c = ?)",
			params: []any{int64(5)},
		},
		{
			name:   "window function offset",
			sql:    "SELECT a, LAG(a, 1) OVER (PARTITION BY b ORDER BY c DESC) FROM t",
			want:   "SELECT a, LAG(a, ?) OVER (PARTITION BY b ORDER BY c DESC) FROM t",
			params: []any{int64(1)},
		},
		{
			name:   "named window with frame",
			sql:    "SELECT SUM(a) OVER w FROM t WINDOW w AS (ORDER BY b ROWS BETWEEN 2 PRECEDING AND CURRENT ROW)",
			want:   "SELECT SUM(a) OVER w FROM t WINDOW w AS (ORDER BY b ROWS BETWEEN ? PRECEDING AND CURRENT ROW)",
			params: []any{int64(2)},
		},
		{
			name:   "trim remstr",
			sql:    "SELECT TRIM('x' FROM s) FROM t",
			want:   "SELECT TRIM(? FROM s) FROM t",
			params: []any{"x"},
			fold:   true,
		},
		{
			name:   "trim direction",
			sql:    "SELECT TRIM(LEADING 'x' FROM s) FROM t",
			want:   "SELECT TRIM(LEADING ? FROM s) FROM t",
			params: []any{"x"},
			fold:   true,
		},
		{
			name:   "convert using",
			sql:    "SELECT CONVERT('abc' USING utf8mb4)",
			want:   "SELECT CONVERT(? USING utf8mb4)",
			params: []any{"abc"},
			fold:   true,
		},
		{
			name:   "position in",
			sql:    "SELECT POSITION('a' IN s) FROM t",
			want:   "SELECT POSITION(? IN s) FROM t",
			params: []any{"a"},
			fold:   true,
		},
		{
			name:   "match against",
			sql:    "SELECT * FROM t WHERE MATCH (a) AGAINST ('foo')",
			want:   "SELECT * FROM t WHERE MATCH (a) AGAINST (?)",
			params: []any{"foo"},
		},
		{
			name:   "match against boolean mode",
			sql:    "SELECT * FROM t WHERE MATCH (a, b) AGAINST ('+foo' IN BOOLEAN MODE)",
			want:   "SELECT * FROM t WHERE MATCH (a, b) AGAINST (? IN BOOLEAN MODE)",
			params: []any{"+foo"},
		},
		{
			name:   "collate",
			sql:    "SELECT * FROM t WHERE a = 'x' COLLATE utf8mb4_bin",
			want:   "SELECT * FROM t WHERE a = ? COLLATE utf8mb4_bin",
			params: []any{"x"},
			fold:   true,
		},
		{
			name: "nested unary minus",
			sql:  "SELECT - -a FROM t",
			want: "SELECT - -a FROM t",
		},
		{
			name:   "with table statement",
			sql:    "WITH cte AS (SELECT 1) TABLE cte",
			want:   "WITH cte AS (SELECT ?) TABLE cte",
			params: []any{int64(1)},
		},
		{
			name:   "values statement",
			sql:    "VALUES ROW(1, 'a'), ROW(2, 'b')",
			want:   "VALUES ROW(?, ?), ROW(?, ?)",
			params: []any{int64(1), "a", int64(2), "b"},
		},
		{
			name:   "force index",
			sql:    "SELECT * FROM t FORCE INDEX (idx) WHERE a = 1",
			want:   "SELECT * FROM t FORCE INDEX (idx) WHERE a = ?",
			params: []any{int64(1)},
		},
		{
			name: "use index for join",
			sql:  "SELECT * FROM t AS x USE INDEX FOR JOIN (i1, i2)",
			want: "SELECT * FROM t AS x USE INDEX FOR JOIN (i1, i2)",
		},
		{
			name:   "partition",
			sql:    "SELECT * FROM t PARTITION (p0, p1) WHERE a = 1",
			want:   "SELECT * FROM t PARTITION (p0, p1) WHERE a = ?",
			params: []any{int64(1)},
		},
		{
			name:   "calc found rows with limit",
			sql:    "SELECT SQL_CALC_FOUND_ROWS a FROM t LIMIT 10",
			want:   "SELECT SQL_CALC_FOUND_ROWS a FROM t LIMIT ?",
			params: []any{int64(10)},
		},
		{
			name: "straight join",
			sql:  "SELECT DISTINCT STRAIGHT_JOIN a FROM t",
			want: "SELECT DISTINCT STRAIGHT_JOIN a FROM t",
		},
		{
			name: "priority and cache",
			sql:  "SELECT HIGH_PRIORITY SQL_NO_CACHE a FROM t",
			want: "SELECT HIGH_PRIORITY SQL_NO_CACHE a FROM t",
		},
	}

	templatizer := NewSQLTemplatizer(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			as := assert.New(t)

			out, err := templatizer.TemplatizeSQL(tt.sql)
			require.NoError(t, err)

			if tt.fold {
				as.Equal(strings.ToUpper(tt.want), strings.ToUpper(out.SQL))
			} else {
				as.Equal(tt.want, out.SQL)
			}
			if tt.params == nil {
				as.Empty(out.Params)
			} else {
				as.Equal(tt.params, out.Params)
			}
			as.Equal(strings.Count(out.SQL, "?"), len(out.Params))

			again, err := templatizer.TemplatizeSQL(tt.sql)
			require.NoError(t, err)
			as.Equal(out.SQL, again.SQL)
		})
	}

	// Output without placeholders must survive another pass unchanged.
	for _, tt := range tests {
		if tt.params != nil {
			continue
		}
		out, err := templatizer.TemplatizeSQL(tt.want)
		require.NoError(t, err, tt.want)
		assert.Equal(t, tt.want, out.SQL)
	}
}

func TestTemplatizeSQL_UnsupportedLiteral(t *testing.T) {
	t.Parallel()
	as := assert.New(t)
	templatizer := NewSQLTemplatizer(nil)

	for _, sql := range []string{
		"SET @a = 1",
		"CREATE TABLE t (a INT DEFAULT 0)",
	} {
		out, err := templatizer.TemplatizeSQL(sql)
		as.ErrorIs(err, ErrInlineLiteral, sql)
		as.Nil(out)
	}

	out, err := templatizer.TemplatizeSQL("CREATE TABLE users (id INTEGER, name TEXT)")
	as.NoError(err)
	as.Empty(out.Params)
}

func TestTemplatizeSQL_StrayMarker(t *testing.T) {
	t.Parallel()
	as := assert.New(t)
	templatizer := NewSQLTemplatizer(nil)

	for _, sql := range []string{
		"SELECT `a?b` FROM t WHERE c = 1",
		"SELECT GROUP_CONCAT(name SEPARATOR '?') FROM t",
	} {
		out, err := templatizer.TemplatizeSQL(sql)
		as.ErrorIs(err, ErrStrayMarker, sql)
		as.Nil(out)
	}
}

func TestTemplatizeSQL_MultipleStatements(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	out, err := NewSQLTemplatizer(nil).TemplatizeSQL("SELECT 1; DROP TABLE x;")
	as.NoError(err)
	as.True(strings.HasPrefix(out.SQL, "SELECT ?; "), out.SQL)
	as.Contains(out.SQL, "DROP TABLE")
	as.Equal([]any{int64(1)}, out.Params)
	as.Equal([]models.SQLOpType{models.SQLOperationSelect, models.SQLOperationDrop}, out.OpTypes)
}

func TestTemplatizeSQL_Tables(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	out, err := NewSQLTemplatizer(nil).TemplatizeSQL(
		"SELECT * FROM users u JOIN orders o ON u.id = o.user_id JOIN users x ON x.id = o.approver_id")
	as.NoError(err)
	as.Equal([]*models.TableInfo{
		models.NewTableInfo("", "users"),
		models.NewTableInfo("", "orders"),
	}, out.Tables)
}

func TestTemplatizeSQL_Errors(t *testing.T) {
	t.Parallel()
	as := assert.New(t)
	templatizer := NewSQLTemplatizer(nil)

	out, err := templatizer.TemplatizeSQL("SELEC * FORM")
	as.Error(err)
	as.Nil(out)

	out, err = templatizer.TemplatizeSQL("SELECT * FROM WHERE name = 'kyden'")
	as.Error(err)
	as.Nil(out)

	out, err = templatizer.TemplatizeSQL("   ")
	as.ErrorIs(err, ErrEmptyStatement)
	as.Nil(out)

	out, err = templatizer.TemplatizeSQL("SELECT * FROM t WHERE a = ?")
	as.ErrorIs(err, ErrParamMarker)
	as.Nil(out)
}

func TestTemplatizeSQL_Concurrent(t *testing.T) {
	t.Parallel()
	templatizer := NewSQLTemplatizer(nil)

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			sql := fmt.Sprintf("SELECT * FROM t%d WHERE a = %d AND b = 'v%d'", i, i, i)
			out, err := templatizer.TemplatizeSQL(sql)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, fmt.Sprintf("SELECT * FROM t%d WHERE a = ? AND b = ?", i), out.SQL)
			assert.Equal(t, []any{int64(i), fmt.Sprintf("v%d", i)}, out.Params)
		}(i)
	}
	wg.Wait()
}

func TestNeedsQuote(t *testing.T) {
	t.Parallel()
	as := assert.New(t)

	as.False(needsQuote("users"))
	as.False(needsQuote("user_id"))
	as.False(needsQuote("t1"))
	as.True(needsQuote("order"))
	as.True(needsQuote("my table"))
	as.True(needsQuote("123"))
	as.True(needsQuote(""))
}
