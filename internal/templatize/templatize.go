package templatize

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/test_driver"
	"go.uber.org/zap"

	"github.com/kydance/sqlprep/internal/models"
)

const paramsMaxCount = 64

var (
	// ErrEmptyStatement is returned for blank input.
	ErrEmptyStatement = errors.New("empty SQL statement")
	// ErrNoStatements is returned when the input parses to zero statements (e.g. only comments).
	ErrNoStatements = errors.New("no valid SQL statements found")
	// ErrParamMarker is returned when the input already contains `?` markers.
	ErrParamMarker = errors.New("statement already contains parameter markers")
	// ErrInlineLiteral is returned when a literal sits inside syntax the
	// rewriter cannot reproduce with a placeholder.
	ErrInlineLiteral = errors.New("literal inside unsupported syntax")
	// ErrStrayMarker is returned when a '?' appears in the output outside a
	// parameter position, e.g. in a quoted identifier.
	ErrStrayMarker = errors.New("'?' outside a parameter position")
)

// Templated is the outcome of templatizing one input text.
type Templated struct {
	SQL     string
	Params  []any
	Kinds   []models.LiteralKind
	OpTypes []models.SQLOpType
	Tables  []*models.TableInfo
}

// SQLTemplatizer rewrites SQL text into placeholder form. It is safe for
// concurrent use: parsers and visitors are pooled and never shared by two calls.
type SQLTemplatizer struct {
	logger *zap.Logger

	parsers  sync.Pool
	visitors sync.Pool
}

func NewSQLTemplatizer(logger *zap.Logger) *SQLTemplatizer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SQLTemplatizer{
		logger: logger,
		parsers: sync.Pool{
			New: func() any { return parser.New() },
		},
		visitors: sync.Pool{
			New: func() any {
				return &TemplateVisitor{
					builder: &strings.Builder{},
					params:  make([]any, 0, paramsMaxCount),
					kinds:   make([]models.LiteralKind, 0, paramsMaxCount),
				}
			},
		},
	}
}

// TemplatizeSQL returns the templatized SQL and the parameters.
// Multiple statements separated by semicolons are rewritten in order and joined with "; ".
func (p *SQLTemplatizer) TemplatizeSQL(sql string) (*Templated, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, ErrEmptyStatement
	}

	ps := p.parsers.Get().(*parser.Parser)
	stmts, _, err := ps.Parse(sql, "", "")
	p.parsers.Put(ps)
	if err != nil {
		return nil, err
	}

	if len(stmts) == 0 {
		return nil, ErrNoStatements
	}

	var (
		result strings.Builder
		out    = &Templated{}
		seen   = make(map[string]struct{})
	)

	for idx := range stmts {
		if idx > 0 {
			result.WriteString("; ")
		}

		one, err := p.templatizeOneStmt(stmts[idx])
		if err != nil {
			return nil, fmt.Errorf("error processing statement %d: %w", idx+1, err)
		}

		result.WriteString(one.SQL)
		out.Params = append(out.Params, one.Params...)
		out.Kinds = append(out.Kinds, one.Kinds...)
		out.OpTypes = append(out.OpTypes, opTypeOf(stmts[idx]))

		for _, tbl := range one.Tables {
			if _, ok := seen[tbl.QualifiedName()]; ok {
				continue
			}
			seen[tbl.QualifiedName()] = struct{}{}
			out.Tables = append(out.Tables, tbl)
		}
	}

	out.SQL = result.String()
	return out, nil
}

// templatizeOneStmt handles a single SQL statement
func (p *SQLTemplatizer) templatizeOneStmt(stmt ast.StmtNode) (*Templated, error) {
	v := p.visitors.Get().(*TemplateVisitor)
	v.logger = p.logger
	defer func() {
		v.reset()
		p.visitors.Put(v)
	}()

	stmt.Accept(v)
	if v.err != nil {
		return nil, v.err
	}

	// The visitor goes back to the pool, so everything handed out is copied.
	out := &Templated{
		SQL:    v.builder.String(),
		Params: make([]any, len(v.params)),
		Kinds:  make([]models.LiteralKind, len(v.kinds)),
		Tables: make([]*models.TableInfo, len(v.tables)),
	}
	copy(out.Params, v.params)
	copy(out.Kinds, v.kinds)
	copy(out.Tables, v.tables)

	if strings.Count(out.SQL, placeholder) != len(out.Params) {
		return nil, ErrStrayMarker
	}

	return out, nil
}

func opTypeOf(stmt ast.StmtNode) models.SQLOpType {
	switch node := stmt.(type) {
	case *ast.SelectStmt:
		return models.SQLOperationSelect
	case *ast.SetOprStmt:
		return models.SQLOperationSetOpr
	case *ast.InsertStmt:
		if node.IsReplace {
			return models.SQLOperationReplace
		}
		return models.SQLOperationInsert
	case *ast.UpdateStmt:
		return models.SQLOperationUpdate
	case *ast.DeleteStmt:
		return models.SQLOperationDelete
	case *ast.ExplainStmt:
		return models.SQLOperationExplain
	case *ast.DropTableStmt, *ast.DropDatabaseStmt:
		return models.SQLOperationDrop
	default:
		return models.SQLOperationOther
	}
}

// TemplateVisitor implements the ast.Visitor interface. It writes the
// rewritten statement and collects literal values in one pass, so the i-th
// parameter always belongs to the i-th placeholder in the builder.
type TemplateVisitor struct {
	builder *strings.Builder
	params  []any
	kinds   []models.LiteralKind
	tables  []*models.TableInfo
	logger  *zap.Logger
	err     error
}

func (v *TemplateVisitor) reset() {
	v.builder.Reset()
	v.params = v.params[:0]
	v.kinds = v.kinds[:0]
	v.tables = v.tables[:0]
	v.logger = nil
	v.err = nil
}

// Enter implement ast.Visitor interface. It handles ast.Node
//
// Return: nil, true - children are already written, do not traverse them again
func (v *TemplateVisitor) Enter(n ast.Node) (ast.Node, bool) { //nolint:funlen,gocyclo
	if n == nil || v.err != nil {
		return n, true
	}

	switch node := n.(type) {
	// 1. literals and column references
	case ast.ParamMarkerExpr:
		v.err = ErrParamMarker
		return nil, true
	case *test_driver.ValueExpr:
		v.handleValueExpr(node)
		return nil, true
	case *ast.ColumnNameExpr:
		v.handleColumnNameExpr(node)
		return nil, true
	case *ast.BinaryOperationExpr:
		v.handleBinaryOperationExpr(node)
		return nil, true
	case *ast.TableName:
		v.handleTableName(node)
		return nil, true

	// 2. statements
	case *ast.SelectStmt:
		v.handleSelectStmt(node)
		return nil, true
	case *ast.SetOprStmt:
		v.handleSetOprStmt(node)
		return nil, true
	case *ast.InsertStmt:
		v.handleInsertStmt(node)
		return nil, true
	case *ast.UpdateStmt:
		v.handleUpdateStmt(node)
		return nil, true
	case *ast.DeleteStmt:
		v.handleDeleteStmt(node)
		return nil, true
	case *ast.ExplainStmt:
		v.handleExplainStmt(node)
		return nil, true

	// 3. table references and joins
	case *ast.TableSource:
		v.handleTableSource(node)
		return nil, true
	case *ast.Join:
		v.handleJoin(node)
		return nil, true
	case *ast.OnCondition:
		node.Expr.Accept(v)
		return nil, true

	// 4. predicates
	case *ast.PatternInExpr:
		v.handlePatternInExpr(node)
		return nil, true
	case *ast.PatternLikeOrIlikeExpr:
		v.handlePatternLikeOrIlikeExpr(node)
		return nil, true
	case *ast.PatternRegexpExpr:
		v.handlePatternRegexpExpr(node)
		return nil, true
	case *ast.BetweenExpr:
		v.handleBetweenExpr(node)
		return nil, true
	case *ast.IsNullExpr:
		v.handleIsNullExpr(node)
		return nil, true
	case *ast.IsTruthExpr:
		v.handleIsTruthExpr(node)
		return nil, true
	case *ast.ParenthesesExpr:
		v.builder.WriteString("(")
		node.Expr.Accept(v)
		v.builder.WriteString(")")
		return nil, true
	case *ast.CaseExpr:
		v.handleCaseExpr(node)
		return nil, true
	case *ast.RowExpr:
		v.builder.WriteString("(")
		v.writeExprList(node.Values)
		v.builder.WriteString(")")
		return nil, true

	// 5. functions and aggregates
	case *ast.FuncCallExpr:
		v.handleFuncCallExpr(node)
		return nil, true
	case *ast.AggregateFuncExpr:
		v.handleAggregateFuncExpr(node)
		return nil, true
	case *ast.FuncCastExpr:
		v.handleFuncCastExpr(node)
		return nil, true
	case *ast.UnaryOperationExpr:
		v.handleUnaryOperationExpr(node)
		return nil, true
	case *ast.WindowFuncExpr:
		v.handleWindowFuncExpr(node)
		return nil, true
	case *ast.SetCollationExpr:
		node.Expr.Accept(v)
		v.builder.WriteString(" COLLATE ")
		v.builder.WriteString(node.Collate)
		return nil, true
	case *ast.MatchAgainst:
		v.handleMatchAgainst(node)
		return nil, true
	case *ast.TimeUnitExpr:
		v.builder.WriteString(node.Unit.String())
		return nil, true

	// 6. modifiers
	case *ast.ByItem:
		v.handleByItem(node)
		return nil, true
	case *ast.Limit:
		v.handleLimit(node)
		return nil, true
	case *ast.Assignment:
		v.handleAssignment(node)
		return nil, true
	case *ast.ValuesExpr:
		v.builder.WriteString("VALUES(")
		v.handleColumnNameExpr(node.Column)
		v.builder.WriteString(")")
		return nil, true
	case *ast.DefaultExpr:
		v.builder.WriteString("DEFAULT")
		if node.Name != nil {
			v.builder.WriteString("(")
			v.writeColumnName(node.Name)
			v.builder.WriteString(")")
		}
		return nil, true

	// 7. subqueries
	case *ast.SubqueryExpr:
		v.builder.WriteString("(")
		node.Query.Accept(v)
		v.builder.WriteString(")")
		return nil, true
	case *ast.ExistsSubqueryExpr:
		v.handleExistsSubqueryExpr(node)
		return nil, true
	case *ast.CompareSubqueryExpr:
		v.handleCompareSubqueryExpr(node)
		return nil, true

	default:
		v.restore(n)
		return n, true
	}
}

// Leave implements the ast.Visitor interface.
func (v *TemplateVisitor) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}
