package templatize

import (
	"math"
	"strconv"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/kydance/sqlprep/internal/models"
)

const placeholder = "?"

// addParam writes one placeholder and records its value.
func (v *TemplateVisitor) addParam(value any, kind models.LiteralKind) {
	v.builder.WriteString(placeholder)
	v.params = append(v.params, value)
	v.kinds = append(v.kinds, kind)
}

func (v *TemplateVisitor) handleValueExpr(node *test_driver.ValueExpr) {
	v.addParam(extractLiteral(node))
}

// extractLiteral maps a parsed literal to the value bound later.
func extractLiteral(node *test_driver.ValueExpr) (any, models.LiteralKind) {
	switch val := node.GetValue().(type) {
	case nil:
		return nil, models.LiteralNull
	case string:
		return val, models.LiteralString
	case int64:
		return val, models.LiteralInteger
	case uint64:
		// LIMIT/OFFSET counts and literals above MaxInt64 both come back
		// unsigned; only the latter stay uint64.
		if val <= math.MaxInt64 {
			return int64(val), models.LiteralInteger
		}
		return val, models.LiteralInteger
	case float64:
		return val, models.LiteralFloat
	case float32:
		return float64(val), models.LiteralFloat
	case *test_driver.MyDecimal:
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return val.String(), models.LiteralUnknown
		}
		return f, models.LiteralFloat
	case test_driver.BinaryLiteral:
		return []byte(val), models.LiteralHex
	default:
		return val, models.LiteralUnknown
	}
}

// addNegated folds `-literal` into one negative parameter. It reports false
// when the literal is not numeric, leaving the caller to write the operator.
func (v *TemplateVisitor) addNegated(node *test_driver.ValueExpr) bool {
	value, kind := extractLiteral(node)

	switch val := value.(type) {
	case int64:
		v.addParam(-val, kind)
	case uint64:
		if val > 1<<63 {
			return false
		}
		v.addParam(int64(-val), kind) //nolint:gosec // -(1<<63) is MinInt64
	case float64:
		v.addParam(-val, kind)
	default:
		return false
	}

	return true
}

// addTemporal handles DATE '...', TIME '...' and TIMESTAMP '...', which the
// parser represents as function calls over a string literal.
func (v *TemplateVisitor) addTemporal(node *ast.FuncCallExpr) bool {
	if len(node.Args) != 1 {
		return false
	}

	val, ok := node.Args[0].(*test_driver.ValueExpr)
	if !ok {
		return false
	}
	text, ok := val.GetValue().(string)
	if !ok {
		return false
	}

	switch node.FnName.L {
	case ast.DateLiteral:
		v.addParam(models.Date(text), models.LiteralDate)
	case ast.TimeLiteral:
		v.addParam(models.Time(text), models.LiteralTime)
	default:
		v.addParam(models.Timestamp(text), models.LiteralTimestamp)
	}

	return true
}
