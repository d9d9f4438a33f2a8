// Package templatize rewrites SQL statements into placeholder form.
//
// Every literal in the statement (string, number, NULL, hex/bit, DATE/TIME/
// TIMESTAMP literal) is replaced with a `?` and its value is appended to an
// ordered parameter list, so that the i-th parameter belongs to the i-th
// placeholder of the rewritten text. Writing the text and collecting the
// values happen in the same visitor pass over the TiDB parser AST.
//
// Key Components:
//   - SQLTemplatizer: parses input text and drives the rewrite. Safe for
//     concurrent use.
//   - TemplateVisitor: implements ast.Visitor and serializes SELECT, set
//     operations, INSERT/REPLACE, UPDATE, DELETE and EXPLAIN. Nodes without a
//     dedicated handler are written with the parser's own Restore.
//
// Example usage:
//
//	templatizer := templatize.NewSQLTemplatizer(zap.NewNop())
//	out, err := templatizer.TemplatizeSQL("SELECT * FROM users WHERE id = 1")
//	// out.SQL    == "SELECT * FROM users WHERE id = ?"
//	// out.Params == []any{int64(1)}
package templatize
