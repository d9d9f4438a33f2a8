package templatize

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/mysql"
	"github.com/pingcap/tidb/pkg/parser/opcode"
	"github.com/pingcap/tidb/pkg/parser/test_driver"
	"go.uber.org/zap"

	"github.com/kydance/sqlprep/internal/models"
)

var joinTypeMap = map[ast.JoinType]string{
	ast.LeftJoin:  " LEFT JOIN ",
	ast.RightJoin: " RIGHT JOIN ",
}

var opLiteral = map[opcode.Op]string{
	opcode.LogicAnd:   "AND",
	opcode.LogicOr:    "OR",
	opcode.LogicXor:   "XOR",
	opcode.EQ:         "=",
	opcode.NE:         "!=",
	opcode.LT:         "<",
	opcode.LE:         "<=",
	opcode.GT:         ">",
	opcode.GE:         ">=",
	opcode.NullEQ:     "<=>",
	opcode.Plus:       "+",
	opcode.Minus:      "-",
	opcode.Mul:        "*",
	opcode.Div:        "/",
	opcode.IntDiv:     "DIV",
	opcode.Mod:        "%",
	opcode.And:        "&",
	opcode.Or:         "|",
	opcode.Xor:        "^",
	opcode.LeftShift:  "<<",
	opcode.RightShift: ">>",
	opcode.Not:        "NOT",
	opcode.Not2:       "!",
	opcode.BitNeg:     "~",
}

func opString(op opcode.Op) string {
	if s, ok := opLiteral[op]; ok {
		return s
	}
	return strings.ToUpper(op.String())
}

// restore writes n with the parser's own restorer. It refuses subtrees that
// carry literals, since those would reach the output inline.
func (v *TemplateVisitor) restore(n ast.Node) {
	var finder literalFinder
	n.Accept(&finder)
	switch {
	case finder.marker:
		v.err = ErrParamMarker
		return
	case finder.literal:
		v.err = fmt.Errorf("%w: %T", ErrInlineLiteral, n)
		return
	}

	if v.logger != nil {
		v.logger.Debug("restoring node verbatim", zap.String("type", fmt.Sprintf("%T", n)))
	}

	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, v.builder)
	if err := n.Restore(ctx); err != nil {
		v.err = fmt.Errorf("restore %T: %w", n, err)
	}
}

// literalFinder reports whether a subtree holds a literal or a '?' marker.
type literalFinder struct {
	literal bool
	marker  bool
}

func (f *literalFinder) Enter(n ast.Node) (ast.Node, bool) {
	switch n.(type) {
	case ast.ParamMarkerExpr:
		f.marker = true
	case *test_driver.ValueExpr:
		f.literal = true
	}
	return n, f.literal || f.marker
}

func (f *literalFinder) Leave(n ast.Node) (ast.Node, bool) { return n, true }

// SELECT: fields, FROM, WHERE, GROUP BY, HAVING, ORDER BY, LIMIT, locking
func (v *TemplateVisitor) handleSelectStmt(node *ast.SelectStmt) {
	if node.IsInBraces {
		v.builder.WriteString("(")
		defer v.builder.WriteString(")")
	}

	if node.With != nil {
		v.handleWithClause(node.With)
	}

	switch node.Kind {
	case ast.SelectStmtKindTable:
		v.builder.WriteString("TABLE ")
		if node.From != nil && node.From.TableRefs != nil {
			node.From.TableRefs.Accept(v)
		}
		v.writeSelectTail(node)
		return
	case ast.SelectStmtKindValues:
		v.builder.WriteString("VALUES ")
		for idx, row := range node.Lists {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.builder.WriteString("ROW(")
			v.writeExprList(row.Values)
			v.builder.WriteString(")")
		}
		v.writeSelectTail(node)
		return
	}

	v.builder.WriteString("SELECT ")
	v.writeSelectOpts(node)

	if node.Fields != nil {
		for idx, field := range node.Fields.Fields {
			if idx > 0 {
				v.builder.WriteString(", ")
			}

			if field.WildCard != nil {
				if field.WildCard.Schema.O != "" {
					v.writeIdent(field.WildCard.Schema.O)
					v.builder.WriteString(".")
				}
				if field.WildCard.Table.O != "" {
					v.writeIdent(field.WildCard.Table.O)
					v.builder.WriteString(".")
				}
				v.builder.WriteString("*")
				continue
			}

			field.Expr.Accept(v)
			if field.AsName.O != "" {
				v.builder.WriteString(" AS ")
				v.writeIdent(field.AsName.O)
			}
		}
	}

	if node.From != nil && node.From.TableRefs != nil {
		v.builder.WriteString(" FROM ")
		node.From.TableRefs.Accept(v)
	}

	if node.Where != nil {
		v.builder.WriteString(" WHERE ")
		node.Where.Accept(v)
	}

	if node.GroupBy != nil {
		v.builder.WriteString(" GROUP BY ")
		for idx, item := range node.GroupBy.Items {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			item.Accept(v)
		}
		if node.GroupBy.Rollup {
			v.builder.WriteString(" WITH ROLLUP")
		}
	}

	if node.Having != nil && node.Having.Expr != nil {
		v.builder.WriteString(" HAVING ")
		node.Having.Expr.Accept(v)
	}

	if len(node.WindowSpecs) > 0 {
		v.builder.WriteString(" WINDOW ")
		for idx := range node.WindowSpecs {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.writeWindowSpec(&node.WindowSpecs[idx])
		}
	}

	v.writeSelectTail(node)
}

// writeSelectTail writes ORDER BY, LIMIT and the locking clause.
func (v *TemplateVisitor) writeSelectTail(node *ast.SelectStmt) {
	v.handleOrderBy(node.OrderBy)

	if node.Limit != nil {
		v.handleLimit(node.Limit)
	}

	if node.LockInfo != nil && node.LockInfo.LockType != ast.SelectLockNone {
		v.builder.WriteString(" ")
		v.builder.WriteString(strings.ToUpper(node.LockInfo.LockType.String()))
	}
}

// writeSelectOpts writes hints and modifiers between SELECT and the field list.
func (v *TemplateVisitor) writeSelectOpts(node *ast.SelectStmt) {
	if len(node.TableHints) > 0 {
		v.builder.WriteString("/*+ ")
		ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, v.builder)
		for idx, hint := range node.TableHints {
			if idx > 0 {
				v.builder.WriteString(" ")
			}
			if err := hint.Restore(ctx); err != nil {
				v.err = fmt.Errorf("restore optimizer hint: %w", err)
				return
			}
		}
		v.builder.WriteString(" */ ")
	}

	opts := node.SelectStmtOpts
	switch {
	case node.Distinct:
		v.builder.WriteString("DISTINCT ")
	case opts != nil && opts.ExplicitAll:
		v.builder.WriteString("ALL ")
	}
	if opts == nil {
		return
	}

	if opts.Priority != mysql.NoPriority {
		v.builder.WriteString(mysql.Priority2Str[opts.Priority])
		v.builder.WriteString(" ")
	}
	if opts.StraightJoin {
		v.builder.WriteString("STRAIGHT_JOIN ")
	}
	if opts.SQLSmallResult {
		v.builder.WriteString("SQL_SMALL_RESULT ")
	}
	if opts.SQLBigResult {
		v.builder.WriteString("SQL_BIG_RESULT ")
	}
	if opts.SQLBufferResult {
		v.builder.WriteString("SQL_BUFFER_RESULT ")
	}
	if !opts.SQLCache {
		v.builder.WriteString("SQL_NO_CACHE ")
	}
	if opts.CalcFoundRows {
		v.builder.WriteString("SQL_CALC_FOUND_ROWS ")
	}
}

func (v *TemplateVisitor) handleWithClause(node *ast.WithClause) {
	v.builder.WriteString("WITH ")
	if node.IsRecursive {
		v.builder.WriteString("RECURSIVE ")
	}

	for idx, cte := range node.CTEs {
		if idx > 0 {
			v.builder.WriteString(", ")
		}

		v.writeIdent(cte.Name.O)
		if len(cte.ColNameList) > 0 {
			v.builder.WriteString(" (")
			for jdx, col := range cte.ColNameList {
				if jdx > 0 {
					v.builder.WriteString(", ")
				}
				v.writeIdent(col.O)
			}
			v.builder.WriteString(")")
		}

		v.builder.WriteString(" AS ")
		cte.Query.Accept(v)
	}
	v.builder.WriteString(" ")
}

// UNION / EXCEPT / INTERSECT
func (v *TemplateVisitor) handleSetOprStmt(node *ast.SetOprStmt) {
	if node.IsInBraces {
		v.builder.WriteString("(")
		defer v.builder.WriteString(")")
	}

	if node.With != nil {
		v.handleWithClause(node.With)
	}

	if node.SelectList != nil {
		v.handleSetOprSelectList(node.SelectList)
	}

	v.handleOrderBy(node.OrderBy)

	if node.Limit != nil {
		v.handleLimit(node.Limit)
	}
}

func (v *TemplateVisitor) handleSetOprSelectList(node *ast.SetOprSelectList) {
	for idx, sel := range node.Selects {
		var after *ast.SetOprType
		switch s := sel.(type) {
		case *ast.SelectStmt:
			after = s.AfterSetOperator
		case *ast.SetOprSelectList:
			after = s.AfterSetOperator
		}

		if idx > 0 && after != nil {
			v.builder.WriteString(" ")
			v.builder.WriteString(after.String())
			v.builder.WriteString(" ")
		}

		if list, ok := sel.(*ast.SetOprSelectList); ok {
			v.builder.WriteString("(")
			v.handleSetOprSelectList(list)
			v.builder.WriteString(")")
			continue
		}
		sel.Accept(v)
	}
}

// INSERT / REPLACE
func (v *TemplateVisitor) handleInsertStmt(node *ast.InsertStmt) {
	if len(node.Lists) == 0 && node.Select == nil {
		// INSERT ... SET a = 1
		v.restore(node)
		return
	}

	if node.IsReplace {
		v.builder.WriteString("REPLACE ")
	} else {
		v.builder.WriteString("INSERT ")
	}
	if node.IgnoreErr {
		v.builder.WriteString("IGNORE ")
	}
	v.builder.WriteString("INTO ")

	if node.Table != nil && node.Table.TableRefs != nil {
		node.Table.TableRefs.Accept(v)
	}

	if len(node.Columns) > 0 {
		v.builder.WriteString(" (")
		for idx, col := range node.Columns {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.writeIdent(col.Name.O)
		}
		v.builder.WriteString(")")
	}

	if len(node.Lists) > 0 {
		v.builder.WriteString(" VALUES ")
		for idx, list := range node.Lists {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.builder.WriteString("(")
			v.writeExprList(list)
			v.builder.WriteString(")")
		}
	} else { // INSERT ... SELECT ...
		v.builder.WriteString(" ")
		node.Select.Accept(v)
	}

	if len(node.OnDuplicate) > 0 {
		v.builder.WriteString(" ON DUPLICATE KEY UPDATE ")
		v.writeAssignments(node.OnDuplicate)
	}
}

// UPDATE
func (v *TemplateVisitor) handleUpdateStmt(node *ast.UpdateStmt) {
	v.builder.WriteString("UPDATE ")
	if node.IgnoreErr {
		v.builder.WriteString("IGNORE ")
	}

	if node.TableRefs != nil && node.TableRefs.TableRefs != nil {
		node.TableRefs.TableRefs.Accept(v)
	}

	v.builder.WriteString(" SET ")
	v.writeAssignments(node.List)

	if node.Where != nil {
		v.builder.WriteString(" WHERE ")
		node.Where.Accept(v)
	}

	v.handleOrderBy(node.Order)

	if node.Limit != nil {
		v.handleLimit(node.Limit)
	}
}

// DELETE
func (v *TemplateVisitor) handleDeleteStmt(node *ast.DeleteStmt) {
	v.builder.WriteString("DELETE ")

	if node.Tables != nil && len(node.Tables.Tables) > 0 {
		for idx, tbl := range node.Tables.Tables {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.writeTableName(tbl)
		}
		v.builder.WriteString(" ")
	}
	v.builder.WriteString("FROM ")

	if node.TableRefs != nil && node.TableRefs.TableRefs != nil {
		node.TableRefs.TableRefs.Accept(v)
	}

	if node.Where != nil {
		v.builder.WriteString(" WHERE ")
		node.Where.Accept(v)
	}

	v.handleOrderBy(node.Order)

	if node.Limit != nil {
		v.handleLimit(node.Limit)
	}
}

// EXPLAIN [ANALYZE] [FORMAT = x] stmt
func (v *TemplateVisitor) handleExplainStmt(node *ast.ExplainStmt) {
	v.builder.WriteString("EXPLAIN ")
	if node.Analyze {
		v.builder.WriteString("ANALYZE ")
	}
	if node.Format != "" {
		v.builder.WriteString("FORMAT = ")
		v.builder.WriteString(node.Format)
		v.builder.WriteString(" ")
	}

	if node.Stmt != nil {
		node.Stmt.Accept(v)
	}
}

func (v *TemplateVisitor) handleTableSource(node *ast.TableSource) {
	var hints []*ast.IndexHint
	switch src := node.Source.(type) {
	case *ast.TableName:
		v.handleTableName(src)
		hints = src.IndexHints
	case *ast.SelectStmt, *ast.SetOprStmt:
		v.builder.WriteString("(")
		src.Accept(v)
		v.builder.WriteString(")")
	case *ast.Join:
		v.builder.WriteString("(")
		v.handleJoin(src)
		v.builder.WriteString(")")
	default:
		src.Accept(v)
	}

	if node.AsName.O != "" {
		v.builder.WriteString(" AS ")
		v.writeIdent(node.AsName.O)
	}

	for _, hint := range hints {
		v.writeIndexHint(hint)
	}
}

// writeIndexHint writes USE|IGNORE|FORCE INDEX [FOR ...] (names).
func (v *TemplateVisitor) writeIndexHint(hint *ast.IndexHint) {
	switch hint.HintType {
	case ast.HintUse:
		v.builder.WriteString(" USE INDEX")
	case ast.HintIgnore:
		v.builder.WriteString(" IGNORE INDEX")
	case ast.HintForce:
		v.builder.WriteString(" FORCE INDEX")
	default:
		v.err = fmt.Errorf("unknown index hint type %d", hint.HintType)
		return
	}

	switch hint.HintScope {
	case ast.HintForJoin:
		v.builder.WriteString(" FOR JOIN")
	case ast.HintForOrderBy:
		v.builder.WriteString(" FOR ORDER BY")
	case ast.HintForGroupBy:
		v.builder.WriteString(" FOR GROUP BY")
	}

	v.builder.WriteString(" (")
	for idx, name := range hint.IndexNames {
		if idx > 0 {
			v.builder.WriteString(", ")
		}
		v.writeIdent(name.O)
	}
	v.builder.WriteString(")")
}

// handleTableName writes the name and records it as a referenced table.
func (v *TemplateVisitor) handleTableName(node *ast.TableName) {
	v.writeTableName(node)
	v.tables = append(v.tables, models.NewTableInfo(node.Schema.O, node.Name.O))
}

func (v *TemplateVisitor) writeTableName(node *ast.TableName) {
	if node.Schema.O != "" {
		v.writeIdent(node.Schema.O)
		v.builder.WriteString(".")
	}
	v.writeIdent(node.Name.O)

	if len(node.PartitionNames) > 0 {
		v.builder.WriteString(" PARTITION (")
		for idx, name := range node.PartitionNames {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.writeIdent(name.O)
		}
		v.builder.WriteString(")")
	}
}

func (v *TemplateVisitor) handleJoin(node *ast.Join) {
	if node.Left != nil {
		switch left := node.Left.(type) {
		case *ast.Join:
			v.handleJoin(left)
		case *ast.TableSource:
			v.handleTableSource(left)
		default:
			left.Accept(v)
		}
	}

	// a FROM with a single table is a Join without a right side
	if node.Right == nil {
		return
	}

	switch {
	case node.StraightJoin:
		v.builder.WriteString(" STRAIGHT_JOIN ")
	case node.NaturalJoin:
		v.builder.WriteString(" NATURAL")
		if s, ok := joinTypeMap[node.Tp]; ok {
			v.builder.WriteString(strings.TrimSuffix(s, "JOIN "))
			v.builder.WriteString("JOIN ")
		} else {
			v.builder.WriteString(" JOIN ")
		}
	default:
		if s, ok := joinTypeMap[node.Tp]; ok {
			v.builder.WriteString(s)
		} else if node.On == nil && len(node.Using) == 0 {
			v.builder.WriteString(" CROSS JOIN ")
		} else {
			v.builder.WriteString(" JOIN ")
		}
	}

	switch right := node.Right.(type) {
	case *ast.TableSource:
		v.handleTableSource(right)
	case *ast.Join:
		v.builder.WriteString("(")
		v.handleJoin(right)
		v.builder.WriteString(")")
	default:
		right.Accept(v)
	}

	if node.On != nil {
		v.builder.WriteString(" ON ")
		node.On.Expr.Accept(v)
	}

	if len(node.Using) > 0 {
		v.builder.WriteString(" USING (")
		for idx, col := range node.Using {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.writeColumnName(col)
		}
		v.builder.WriteString(")")
	}
}

func (v *TemplateVisitor) handleOrderBy(node *ast.OrderByClause) {
	if node == nil || len(node.Items) == 0 {
		return
	}

	v.builder.WriteString(" ORDER BY ")
	for idx, item := range node.Items {
		if idx > 0 {
			v.builder.WriteString(", ")
		}
		item.Accept(v)
	}
}

func (v *TemplateVisitor) handleByItem(node *ast.ByItem) {
	node.Expr.Accept(v)
	if node.Desc {
		v.builder.WriteString(" DESC")
	}
}

func (v *TemplateVisitor) handleLimit(node *ast.Limit) {
	v.builder.WriteString(" LIMIT ")

	if node.Offset != nil {
		node.Offset.Accept(v)
		v.builder.WriteString(", ")
	}

	node.Count.Accept(v)
}

func (v *TemplateVisitor) writeAssignments(list []*ast.Assignment) {
	for idx, item := range list {
		if idx > 0 {
			v.builder.WriteString(", ")
		}
		v.handleAssignment(item)
	}
}

func (v *TemplateVisitor) handleAssignment(node *ast.Assignment) {
	v.writeColumnName(node.Column)
	v.builder.WriteString(" = ")
	node.Expr.Accept(v)
}

func (v *TemplateVisitor) writeExprList(list []ast.ExprNode) {
	for idx, item := range list {
		if idx > 0 {
			v.builder.WriteString(", ")
		}
		item.Accept(v)
	}
}

func (v *TemplateVisitor) handleColumnNameExpr(node *ast.ColumnNameExpr) {
	v.writeColumnName(node.Name)
}

func (v *TemplateVisitor) writeColumnName(name *ast.ColumnName) {
	if name.Schema.O != "" {
		v.writeIdent(name.Schema.O)
		v.builder.WriteString(".")
	}
	if name.Table.O != "" {
		v.writeIdent(name.Table.O)
		v.builder.WriteString(".")
	}
	v.writeIdent(name.Name.O)
}

func (v *TemplateVisitor) handleBinaryOperationExpr(node *ast.BinaryOperationExpr) {
	node.L.Accept(v)
	v.builder.WriteString(" ")
	v.builder.WriteString(opString(node.Op))
	v.builder.WriteString(" ")
	node.R.Accept(v)
}

func (v *TemplateVisitor) handleUnaryOperationExpr(node *ast.UnaryOperationExpr) {
	if node.Op == opcode.Minus {
		if val, ok := node.V.(*test_driver.ValueExpr); ok && v.addNegated(val) {
			return
		}
	}

	v.builder.WriteString(opString(node.Op))
	if _, nested := node.V.(*ast.UnaryOperationExpr); nested || node.Op == opcode.Not {
		// keeps "- -a" from becoming the comment "--a"
		v.builder.WriteString(" ")
	}
	node.V.Accept(v)
}

func (v *TemplateVisitor) handlePatternInExpr(node *ast.PatternInExpr) {
	node.Expr.Accept(v)
	if node.Not {
		v.builder.WriteString(" NOT")
	}
	v.builder.WriteString(" IN ")

	if node.Sel != nil {
		node.Sel.Accept(v)
		return
	}

	v.builder.WriteString("(")
	v.writeExprList(node.List)
	v.builder.WriteString(")")
}

func (v *TemplateVisitor) handlePatternLikeOrIlikeExpr(node *ast.PatternLikeOrIlikeExpr) {
	node.Expr.Accept(v)
	if node.Not {
		v.builder.WriteString(" NOT")
	}
	if node.IsLike {
		v.builder.WriteString(" LIKE ")
	} else {
		v.builder.WriteString(" ILIKE ")
	}

	node.Pattern.Accept(v)

	if node.Escape != 0 && node.Escape != '\\' {
		v.builder.WriteString(" ESCAPE ")
		v.writeQuoted(string(node.Escape))
	}
}

func (v *TemplateVisitor) handlePatternRegexpExpr(node *ast.PatternRegexpExpr) {
	node.Expr.Accept(v)
	if node.Not {
		v.builder.WriteString(" NOT")
	}
	v.builder.WriteString(" REGEXP ")
	node.Pattern.Accept(v)
}

func (v *TemplateVisitor) handleBetweenExpr(node *ast.BetweenExpr) {
	node.Expr.Accept(v)
	if node.Not {
		v.builder.WriteString(" NOT")
	}
	v.builder.WriteString(" BETWEEN ")
	node.Left.Accept(v)
	v.builder.WriteString(" AND ")
	node.Right.Accept(v)
}

func (v *TemplateVisitor) handleIsNullExpr(node *ast.IsNullExpr) {
	node.Expr.Accept(v)
	if node.Not {
		v.builder.WriteString(" IS NOT NULL")
	} else {
		v.builder.WriteString(" IS NULL")
	}
}

func (v *TemplateVisitor) handleIsTruthExpr(node *ast.IsTruthExpr) {
	node.Expr.Accept(v)
	v.builder.WriteString(" IS ")
	if node.Not {
		v.builder.WriteString("NOT ")
	}
	if node.True > 0 {
		v.builder.WriteString("TRUE")
	} else {
		v.builder.WriteString("FALSE")
	}
}

func (v *TemplateVisitor) handleCaseExpr(node *ast.CaseExpr) {
	v.builder.WriteString("CASE")

	// simple CASE: CASE expr WHEN v1 THEN r1 ... END
	if node.Value != nil {
		v.builder.WriteString(" ")
		node.Value.Accept(v)
	}

	for _, when := range node.WhenClauses {
		v.builder.WriteString(" WHEN ")
		when.Expr.Accept(v)
		v.builder.WriteString(" THEN ")
		when.Result.Accept(v)
	}

	if node.ElseClause != nil {
		v.builder.WriteString(" ELSE ")
		node.ElseClause.Accept(v)
	}

	v.builder.WriteString(" END")
}

func (v *TemplateVisitor) handleExistsSubqueryExpr(node *ast.ExistsSubqueryExpr) {
	if node.Not {
		v.builder.WriteString("NOT ")
	}
	v.builder.WriteString("EXISTS ")
	node.Sel.Accept(v)
}

func (v *TemplateVisitor) handleFuncCallExpr(node *ast.FuncCallExpr) {
	switch node.FnName.L {
	case ast.DateLiteral, ast.TimeLiteral, ast.TimestampLiteral:
		if v.addTemporal(node) {
			return
		}
	case "extract":
		// EXTRACT(unit FROM expr)
		if len(node.Args) == 2 {
			if unit, ok := node.Args[0].(*ast.TimeUnitExpr); ok {
				v.builder.WriteString(node.FnName.O)
				v.builder.WriteString("(")
				v.builder.WriteString(unit.Unit.String())
				v.builder.WriteString(" FROM ")
				node.Args[1].Accept(v)
				v.builder.WriteString(")")
				return
			}
		}
	case "trim":
		if len(node.Args) > 1 {
			v.writeTrim(node)
			return
		}
	case "position":
		// POSITION(substr IN str)
		if len(node.Args) == 2 {
			v.builder.WriteString(node.FnName.O)
			v.builder.WriteString("(")
			node.Args[0].Accept(v)
			v.builder.WriteString(" IN ")
			node.Args[1].Accept(v)
			v.builder.WriteString(")")
			return
		}
	case "convert":
		// CONVERT(expr USING charset); the charset arrives as a string value
		if len(node.Args) == 2 {
			if cs, ok := valueString(node.Args[1]); ok {
				v.builder.WriteString(node.FnName.O)
				v.builder.WriteString("(")
				node.Args[0].Accept(v)
				v.builder.WriteString(" USING ")
				v.builder.WriteString(cs)
				v.builder.WriteString(")")
				return
			}
		}
	case "char":
		if v.writeChar(node) {
			return
		}
	case "get_format":
		// GET_FORMAT(DATE|TIME|DATETIME, locale)
		if len(node.Args) == 2 {
			if sel, ok := valueString(node.Args[0]); ok {
				v.builder.WriteString(node.FnName.O)
				v.builder.WriteString("(")
				v.builder.WriteString(strings.ToUpper(sel))
				v.builder.WriteString(", ")
				node.Args[1].Accept(v)
				v.builder.WriteString(")")
				return
			}
		}
	case "weight_string":
		if v.writeWeightString(node) {
			return
		}
	}

	v.builder.WriteString(node.FnName.O)
	v.builder.WriteString("(")

	first := true
	for idx := 0; idx < len(node.Args); idx++ {
		if !first {
			v.builder.WriteString(", ")
		}
		first = false

		// DATE_ADD(d, INTERVAL n DAY) is parsed as args [d, n, DAY]
		if idx+1 < len(node.Args) {
			if unit, ok := node.Args[idx+1].(*ast.TimeUnitExpr); ok {
				v.builder.WriteString("INTERVAL ")
				node.Args[idx].Accept(v)
				v.builder.WriteString(" ")
				v.builder.WriteString(unit.Unit.String())
				idx++
				continue
			}
		}

		node.Args[idx].Accept(v)
	}

	v.builder.WriteString(")")
}

// valueString returns the text of a string value the parser uses to carry a
// keyword, such as a charset name.
func valueString(node ast.ExprNode) (string, bool) {
	val, ok := node.(*test_driver.ValueExpr)
	if !ok {
		return "", false
	}
	str, ok := val.GetValue().(string)
	return str, ok
}

// writeTrim handles TRIM([BOTH|LEADING|TRAILING] [remstr] FROM str), parsed
// as args [str, remstr] or [str, remstr, direction].
func (v *TemplateVisitor) writeTrim(node *ast.FuncCallExpr) {
	v.builder.WriteString(node.FnName.O)
	v.builder.WriteString("(")

	if len(node.Args) == 3 {
		node.Args[2].Accept(v)
		v.builder.WriteString(" ")
	}

	// TRIM(BOTH FROM s) leaves remstr as a NULL placeholder value
	if val, ok := node.Args[1].(*test_driver.ValueExpr); !ok || val.GetValue() != nil {
		node.Args[1].Accept(v)
		v.builder.WriteString(" ")
	}

	v.builder.WriteString("FROM ")
	node.Args[0].Accept(v)
	v.builder.WriteString(")")
}

// writeChar handles CHAR(n, ... [USING charset]). The parser appends the
// charset, or a NULL value when there is none, as the last argument.
func (v *TemplateVisitor) writeChar(node *ast.FuncCallExpr) bool {
	if len(node.Args) < 2 {
		return false
	}
	last, ok := node.Args[len(node.Args)-1].(*test_driver.ValueExpr)
	if !ok {
		return false
	}
	charset, isString := last.GetValue().(string)
	if last.GetValue() != nil && !isString {
		return false
	}

	v.builder.WriteString(node.FnName.O)
	v.builder.WriteString("(")
	v.writeExprList(node.Args[:len(node.Args)-1])
	if charset != "" {
		v.builder.WriteString(" USING ")
		v.builder.WriteString(charset)
	}
	v.builder.WriteString(")")
	return true
}

// writeWeightString handles WEIGHT_STRING(str [AS CHAR|BINARY(n)]), parsed as
// args [str] or [str, type, length]. The type and length are syntax, not data.
func (v *TemplateVisitor) writeWeightString(node *ast.FuncCallExpr) bool {
	if len(node.Args) != 3 {
		return false
	}
	tp, ok := valueString(node.Args[1])
	if !ok {
		return false
	}
	length, ok := node.Args[2].(*test_driver.ValueExpr)
	if !ok {
		return false
	}

	v.builder.WriteString(node.FnName.O)
	v.builder.WriteString("(")
	node.Args[0].Accept(v)
	v.builder.WriteString(" AS ")
	v.builder.WriteString(strings.ToUpper(tp))
	fmt.Fprintf(v.builder, "(%v)", length.GetValue())
	v.builder.WriteString(")")
	return true
}

// expr op ANY|ALL (subquery)
func (v *TemplateVisitor) handleCompareSubqueryExpr(node *ast.CompareSubqueryExpr) {
	node.L.Accept(v)
	v.builder.WriteString(" ")
	v.builder.WriteString(opString(node.Op))
	if node.All {
		v.builder.WriteString(" ALL ")
	} else {
		v.builder.WriteString(" ANY ")
	}
	node.R.Accept(v)
}

func (v *TemplateVisitor) handleWindowFuncExpr(node *ast.WindowFuncExpr) {
	v.builder.WriteString(strings.ToUpper(node.Name))
	v.builder.WriteString("(")

	countStar := false
	if strings.EqualFold(node.Name, ast.AggFuncCount) && !node.Distinct && len(node.Args) == 1 {
		if val, ok := node.Args[0].(*test_driver.ValueExpr); ok {
			n, isInt := val.GetValue().(int64)
			countStar = isInt && n == 1
		}
	}

	switch {
	case countStar:
		// COUNT(*) OVER (...) is parsed as COUNT(1)
		v.builder.WriteString("*")
	default:
		if node.Distinct {
			v.builder.WriteString("DISTINCT ")
		}
		v.writeExprList(node.Args)
	}
	v.builder.WriteString(")")

	if node.FromLast {
		v.builder.WriteString(" FROM LAST")
	}
	if node.IgnoreNull {
		v.builder.WriteString(" IGNORE NULLS")
	}

	v.builder.WriteString(" OVER ")
	v.writeWindowSpec(&node.Spec)
}

// writeWindowSpec writes either a bare window name (OVER w), a named
// definition (w AS (...)) or an inline one ((PARTITION BY ...)).
func (v *TemplateVisitor) writeWindowSpec(spec *ast.WindowSpec) {
	if spec.Name.O != "" {
		v.writeIdent(spec.Name.O)
		if spec.OnlyAlias {
			return
		}
		v.builder.WriteString(" AS ")
	}

	v.builder.WriteString("(")
	sep := ""
	if spec.Ref.O != "" {
		v.writeIdent(spec.Ref.O)
		sep = " "
	}

	if spec.PartitionBy != nil && len(spec.PartitionBy.Items) > 0 {
		v.builder.WriteString(sep)
		v.builder.WriteString("PARTITION BY ")
		for idx, item := range spec.PartitionBy.Items {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.handleByItem(item)
		}
		sep = " "
	}

	if spec.OrderBy != nil && len(spec.OrderBy.Items) > 0 {
		v.builder.WriteString(sep)
		v.builder.WriteString("ORDER BY ")
		for idx, item := range spec.OrderBy.Items {
			if idx > 0 {
				v.builder.WriteString(", ")
			}
			v.handleByItem(item)
		}
		sep = " "
	}

	if spec.Frame != nil {
		v.builder.WriteString(sep)
		v.writeFrame(spec.Frame)
	}
	v.builder.WriteString(")")
}

func (v *TemplateVisitor) writeFrame(frame *ast.FrameClause) {
	switch frame.Type {
	case ast.Rows:
		v.builder.WriteString("ROWS")
	case ast.Ranges:
		v.builder.WriteString("RANGE")
	default:
		v.err = fmt.Errorf("unsupported window frame type %d", frame.Type)
		return
	}

	v.builder.WriteString(" BETWEEN ")
	v.writeFrameBound(&frame.Extent.Start)
	v.builder.WriteString(" AND ")
	v.writeFrameBound(&frame.Extent.End)
}

func (v *TemplateVisitor) writeFrameBound(bound *ast.FrameBound) {
	if bound.Type == ast.CurrentRow {
		v.builder.WriteString("CURRENT ROW")
		return
	}

	switch {
	case bound.UnBounded:
		v.builder.WriteString("UNBOUNDED")
	case bound.Unit != ast.TimeUnitInvalid:
		v.builder.WriteString("INTERVAL ")
		bound.Expr.Accept(v)
		v.builder.WriteString(" ")
		v.builder.WriteString(bound.Unit.String())
	case bound.Expr != nil:
		bound.Expr.Accept(v)
	}

	if bound.Type == ast.Preceding {
		v.builder.WriteString(" PRECEDING")
	} else {
		v.builder.WriteString(" FOLLOWING")
	}
}

// MATCH (cols) AGAINST (expr [modifier])
func (v *TemplateVisitor) handleMatchAgainst(node *ast.MatchAgainst) {
	v.builder.WriteString("MATCH (")
	for idx, col := range node.ColumnNames {
		if idx > 0 {
			v.builder.WriteString(", ")
		}
		v.writeColumnName(col)
	}
	v.builder.WriteString(") AGAINST (")
	node.Against.Accept(v)

	if node.Modifier.IsBooleanMode() {
		v.builder.WriteString(" IN BOOLEAN MODE")
	}
	if node.Modifier.WithQueryExpansion() {
		v.builder.WriteString(" WITH QUERY EXPANSION")
	}
	v.builder.WriteString(")")
}

func (v *TemplateVisitor) handleAggregateFuncExpr(node *ast.AggregateFuncExpr) {
	// COUNT(*) is parsed as COUNT(1)
	if strings.EqualFold(node.F, ast.AggFuncCount) && !node.Distinct && len(node.Args) == 1 {
		if val, ok := node.Args[0].(*test_driver.ValueExpr); ok {
			if n, ok := val.GetValue().(int64); ok && n == 1 {
				v.builder.WriteString(node.F)
				v.builder.WriteString("(*)")
				return
			}
		}
	}

	args := node.Args
	var separator ast.ExprNode
	if strings.EqualFold(node.F, ast.AggFuncGroupConcat) && len(args) > 1 {
		args, separator = args[:len(args)-1], args[len(args)-1]
	}

	v.builder.WriteString(node.F)
	v.builder.WriteString("(")
	if node.Distinct {
		v.builder.WriteString("DISTINCT ")
	}
	v.writeExprList(args)

	v.handleOrderBy(node.Order)

	if separator != nil {
		v.builder.WriteString(" SEPARATOR ")
		if val, ok := separator.(*test_driver.ValueExpr); ok {
			v.writeQuoted(fmt.Sprint(val.GetValue()))
		} else {
			separator.Accept(v)
		}
	}
	v.builder.WriteString(")")
}

func (v *TemplateVisitor) handleFuncCastExpr(node *ast.FuncCastExpr) {
	var sep string
	switch node.FunctionType {
	case ast.CastFunction:
		v.builder.WriteString("CAST(")
		sep = " AS "
	case ast.CastConvertFunction:
		v.builder.WriteString("CONVERT(")
		sep = ", "
	case ast.CastBinaryOperator:
		v.builder.WriteString("BINARY ")
		node.Expr.Accept(v)
		return
	default:
		v.restore(node)
		return
	}

	node.Expr.Accept(v)
	v.builder.WriteString(sep)
	node.Tp.RestoreAsCastType(format.NewRestoreCtx(format.DefaultRestoreFlags, v.builder), node.ExplicitCharSet)
	v.builder.WriteString(")")
}

func (v *TemplateVisitor) writeQuoted(s string) {
	v.builder.WriteString("'")
	v.builder.WriteString(strings.ReplaceAll(s, "'", "''"))
	v.builder.WriteString("'")
}

// writeIdent writes an identifier, back-quoting it only when it cannot be
// written bare.
func (v *TemplateVisitor) writeIdent(name string) {
	if !needsQuote(name) {
		v.builder.WriteString(name)
		return
	}

	v.builder.WriteString("`")
	v.builder.WriteString(strings.ReplaceAll(name, "`", "``"))
	v.builder.WriteString("`")
}

func needsQuote(name string) bool {
	if name == "" {
		return true
	}

	allDigits := true
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9':
		case r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			allDigits = false
		default:
			return true
		}
	}
	if allDigits {
		return true
	}

	_, reserved := reservedWords[strings.ToLower(name)]
	return reserved
}

var reservedWords = map[string]struct{}{
	"add": {}, "all": {}, "alter": {}, "and": {}, "as": {}, "asc": {}, "between": {},
	"by": {}, "case": {}, "check": {}, "column": {}, "create": {}, "cross": {},
	"database": {}, "default": {}, "delete": {}, "desc": {}, "distinct": {}, "drop": {},
	"else": {}, "end": {}, "exists": {}, "false": {}, "for": {}, "force": {}, "from": {},
	"group": {}, "groups": {}, "having": {}, "if": {}, "ignore": {}, "in": {}, "index": {},
	"inner": {}, "insert": {}, "interval": {}, "into": {}, "is": {}, "join": {}, "key": {},
	"keys": {}, "left": {}, "like": {}, "limit": {}, "lock": {}, "match": {}, "natural": {},
	"not": {}, "null": {}, "on": {}, "or": {}, "order": {}, "outer": {}, "primary": {},
	"range": {}, "rank": {}, "read": {}, "references": {}, "regexp": {}, "rename": {},
	"replace": {}, "right": {}, "row": {}, "rows": {}, "schema": {}, "select": {}, "set": {},
	"show": {}, "table": {}, "then": {}, "to": {}, "true": {}, "union": {}, "unique": {},
	"update": {}, "usage": {}, "use": {}, "using": {}, "values": {}, "when": {}, "where": {},
	"window": {}, "with": {}, "write": {}, "xor": {},
}
