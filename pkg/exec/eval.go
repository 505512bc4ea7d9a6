// Expression evaluation under spec.md §3's three-valued logic, and the
// row-context stack spec.md §9 prescribes for correlated subqueries: the
// outer row is pushed before a subquery is evaluated and popped after,
// threaded as an explicit parameter rather than held in a package global.
package exec

import (
	"fmt"
	"regexp"
	"strings"

	"rustql/pkg/sql/lexer"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

// frame is one entry of the row-context stack: a batch's column layout
// plus one of its rows, visible to a correlated subquery nested inside
// it.
type frame struct {
	Cols []colMeta
	Row  execRow
}

// triBool is a three-valued logic result (spec.md §3, §9).
type triBool int

const (
	triFalse triBool = iota
	triTrue
	triUnknown
)

func triFromBool(b bool) triBool {
	if b {
		return triTrue
	}
	return triFalse
}

func triNot(v triBool) triBool {
	switch v {
	case triTrue:
		return triFalse
	case triFalse:
		return triTrue
	default:
		return triUnknown
	}
}

func triAnd(a, b triBool) triBool {
	if a == triFalse || b == triFalse {
		return triFalse
	}
	if a == triUnknown || b == triUnknown {
		return triUnknown
	}
	return triTrue
}

func triOr(a, b triBool) triBool {
	if a == triTrue || b == triTrue {
		return triTrue
	}
	if a == triUnknown || b == triUnknown {
		return triUnknown
	}
	return triFalse
}

// passes collapses three-valued logic to a hard boolean at the
// WHERE/HAVING/ON boundary: only True passes (spec.md §3, §9).
func (v triBool) passes() bool { return v == triTrue }

func (e *Executor) resolveColumn(cols []colMeta, row execRow, outer []frame, ref *parser.ColumnRef) (types.Value, error) {
	if i := indexOf(cols, ref.Table, ref.Name); i != -1 {
		return row[i], nil
	}
	for i := len(outer) - 1; i >= 0; i-- {
		if j := indexOf(outer[i].Cols, ref.Table, ref.Name); j != -1 {
			return outer[i].Row[j], nil
		}
	}
	qualified := ref.Name
	if ref.Table != "" {
		qualified = ref.Table + "." + ref.Name
	}
	return types.Value{}, fmt.Errorf("exec: unknown column %q", qualified)
}

// evalScalar evaluates expr to a single Value against row (of layout
// cols), with outer as the row-context stack for correlated references.
func (e *Executor) evalScalar(cols []colMeta, row execRow, outer []frame, expr parser.Expression) (types.Value, error) {
	switch ex := expr.(type) {
	case *parser.Literal:
		return ex.Value, nil
	case *parser.ColumnRef:
		return e.resolveColumn(cols, row, outer, ex)
	case *parser.UnaryExpr:
		v, err := e.evalScalar(cols, row, outer, ex.Operand)
		if err != nil {
			return types.Value{}, err
		}
		if ex.Op == lexer.MINUS {
			if v.IsNull() {
				return types.Null(), nil
			}
			if v.Kind() == types.KindInteger {
				return types.NewInteger(-v.Integer()), nil
			}
			return types.NewFloat(-v.AsFloat()), nil
		}
		return types.Value{}, fmt.Errorf("exec: operator %s is not a scalar expression", ex.Op)
	case *parser.BinaryExpr:
		return e.evalArithmetic(cols, row, outer, ex)
	case *parser.SubqueryExpr:
		return e.evalScalarSubquery(outer, cols, row, ex.Select)
	case *parser.FunctionCall:
		// An aggregate call appearing above an AggregateNode (in its
		// SELECT list, HAVING, or ORDER BY) was already computed once per
		// group; resolve it by the same structural label instead of
		// re-evaluating it over raw rows.
		label := aggLabel(ex.Name, ex.Distinct, ex.Arg)
		if i := indexOf(cols, "", label); i != -1 {
			return row[i], nil
		}
		return types.Value{}, fmt.Errorf("exec: aggregate function %s used outside an aggregate query", ex.Name)
	default:
		return types.Value{}, fmt.Errorf("exec: expression cannot be evaluated to a scalar value")
	}
}

func (e *Executor) evalArithmetic(cols []colMeta, row execRow, outer []frame, ex *parser.BinaryExpr) (types.Value, error) {
	l, err := e.evalScalar(cols, row, outer, ex.Left)
	if err != nil {
		return types.Value{}, err
	}
	r, err := e.evalScalar(cols, row, outer, ex.Right)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.Null(), nil
	}
	lf, rf := l.AsFloat(), r.AsFloat()
	bothInt := l.Kind() == types.KindInteger && r.Kind() == types.KindInteger
	var result float64
	switch ex.Op {
	case lexer.PLUS:
		result = lf + rf
	case lexer.MINUS:
		result = lf - rf
	case lexer.STAR:
		result = lf * rf
	case lexer.SLASH:
		if rf == 0 {
			return types.Value{}, fmt.Errorf("exec: division by zero")
		}
		result = lf / rf
		bothInt = false
	default:
		return types.Value{}, fmt.Errorf("exec: unsupported arithmetic operator %s", ex.Op)
	}
	if bothInt {
		return types.NewInteger(int64(result)), nil
	}
	return types.NewFloat(result), nil
}

// evalPredicate evaluates expr under three-valued logic, used for
// WHERE/HAVING/ON and anywhere else a boolean result is required
// (spec.md §3, §9).
func (e *Executor) evalPredicate(cols []colMeta, row execRow, outer []frame, expr parser.Expression) (triBool, error) {
	switch ex := expr.(type) {
	case *parser.BinaryExpr:
		switch ex.Op {
		case lexer.AND:
			l, err := e.evalPredicate(cols, row, outer, ex.Left)
			if err != nil {
				return triFalse, err
			}
			r, err := e.evalPredicate(cols, row, outer, ex.Right)
			if err != nil {
				return triFalse, err
			}
			return triAnd(l, r), nil
		case lexer.OR:
			l, err := e.evalPredicate(cols, row, outer, ex.Left)
			if err != nil {
				return triFalse, err
			}
			r, err := e.evalPredicate(cols, row, outer, ex.Right)
			if err != nil {
				return triFalse, err
			}
			return triOr(l, r), nil
		case lexer.EQ, lexer.NEQ, lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
			return e.evalComparison(cols, row, outer, ex)
		}
	case *parser.UnaryExpr:
		if ex.Op == lexer.NOT {
			v, err := e.evalPredicate(cols, row, outer, ex.Operand)
			if err != nil {
				return triFalse, err
			}
			return triNot(v), nil
		}
	case *parser.IsNullExpr:
		v, err := e.evalScalar(cols, row, outer, ex.Expr)
		if err != nil {
			return triFalse, err
		}
		isNull := v.IsNull()
		if ex.Not {
			isNull = !isNull
		}
		return triFromBool(isNull), nil
	case *parser.InExpr:
		return e.evalIn(cols, row, outer, ex)
	case *parser.LikeExpr:
		return e.evalLike(cols, row, outer, ex)
	case *parser.BetweenExpr:
		return e.evalBetween(cols, row, outer, ex)
	case *parser.ExistsExpr:
		return e.evalExists(outer, cols, row, ex)
	}

	v, err := e.evalScalar(cols, row, outer, expr)
	if err != nil {
		return triFalse, err
	}
	if v.IsNull() {
		return triUnknown, nil
	}
	if v.Kind() != types.KindBoolean {
		return triFalse, fmt.Errorf("exec: expression does not evaluate to a boolean")
	}
	return triFromBool(v.Boolean()), nil
}

func (e *Executor) evalComparison(cols []colMeta, row execRow, outer []frame, ex *parser.BinaryExpr) (triBool, error) {
	l, err := e.evalScalar(cols, row, outer, ex.Left)
	if err != nil {
		return triFalse, err
	}
	r, err := e.evalScalar(cols, row, outer, ex.Right)
	if err != nil {
		return triFalse, err
	}
	if l.IsNull() || r.IsNull() {
		return triUnknown, nil
	}
	ord, err := types.Compare(l, r)
	if err != nil {
		return triFalse, err
	}
	switch ex.Op {
	case lexer.EQ:
		return triFromBool(ord == types.Equal), nil
	case lexer.NEQ:
		return triFromBool(ord != types.Equal), nil
	case lexer.LT:
		return triFromBool(ord == types.Less), nil
	case lexer.LTE:
		return triFromBool(ord != types.Greater), nil
	case lexer.GT:
		return triFromBool(ord == types.Greater), nil
	case lexer.GTE:
		return triFromBool(ord != types.Less), nil
	}
	return triFalse, fmt.Errorf("exec: unsupported comparison operator %s", ex.Op)
}

func (e *Executor) evalIn(cols []colMeta, row execRow, outer []frame, ex *parser.InExpr) (triBool, error) {
	v, err := e.evalScalar(cols, row, outer, ex.Expr)
	if err != nil {
		return triFalse, err
	}
	if v.IsNull() {
		return triUnknown, nil
	}

	var candidates []types.Value
	sawNull := false
	if ex.List != nil {
		for _, item := range ex.List {
			cv, err := e.evalScalar(cols, row, outer, item)
			if err != nil {
				return triFalse, err
			}
			if cv.IsNull() {
				sawNull = true
				continue
			}
			candidates = append(candidates, cv)
		}
	} else {
		rows, err := e.evalSubquery(outer, cols, row, ex.Subquery)
		if err != nil {
			return triFalse, err
		}
		for _, r := range rows {
			if len(r) == 0 {
				continue
			}
			if r[0].IsNull() {
				sawNull = true
				continue
			}
			candidates = append(candidates, r[0])
		}
	}

	found := false
	for _, c := range candidates {
		ord, err := types.Compare(v, c)
		if err != nil {
			return triFalse, err
		}
		if ord == types.Equal {
			found = true
			break
		}
	}

	var result triBool
	switch {
	case found:
		result = triTrue
	case sawNull:
		result = triUnknown
	default:
		result = triFalse
	}
	if ex.Not {
		return triNot(result), nil
	}
	return result, nil
}

func (e *Executor) evalLike(cols []colMeta, row execRow, outer []frame, ex *parser.LikeExpr) (triBool, error) {
	v, err := e.evalScalar(cols, row, outer, ex.Expr)
	if err != nil {
		return triFalse, err
	}
	p, err := e.evalScalar(cols, row, outer, ex.Pattern)
	if err != nil {
		return triFalse, err
	}
	if v.IsNull() || p.IsNull() {
		return triUnknown, nil
	}
	matched := likeMatch(v.Text(), p.Text())
	if ex.Not {
		matched = !matched
	}
	return triFromBool(matched), nil
}

// likeMatch implements spec.md §4.2's LIKE wildcards: `%` for zero or
// more characters, `_` for exactly one, everything else literal.
func likeMatch(s, pattern string) bool {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	re, err := regexp.Compile("(?s)" + sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func (e *Executor) evalBetween(cols []colMeta, row execRow, outer []frame, ex *parser.BetweenExpr) (triBool, error) {
	v, err := e.evalScalar(cols, row, outer, ex.Expr)
	if err != nil {
		return triFalse, err
	}
	lo, err := e.evalScalar(cols, row, outer, ex.Low)
	if err != nil {
		return triFalse, err
	}
	hi, err := e.evalScalar(cols, row, outer, ex.High)
	if err != nil {
		return triFalse, err
	}
	if v.IsNull() || lo.IsNull() || hi.IsNull() {
		return triUnknown, nil
	}
	loOrd, err := types.Compare(v, lo)
	if err != nil {
		return triFalse, err
	}
	hiOrd, err := types.Compare(v, hi)
	if err != nil {
		return triFalse, err
	}
	result := loOrd != types.Less && hiOrd != types.Greater
	if ex.Not {
		result = !result
	}
	return triFromBool(result), nil
}

func (e *Executor) evalExists(outer []frame, cols []colMeta, row execRow, ex *parser.ExistsExpr) (triBool, error) {
	rows, err := e.evalSubquery(outer, cols, row, ex.Subquery)
	if err != nil {
		return triFalse, err
	}
	result := len(rows) > 0
	if ex.Not {
		result = !result
	}
	return triFromBool(result), nil
}

// evalSubquery runs sel with (cols, row) pushed as the innermost frame of
// the row-context stack, returning every produced row's raw values.
func (e *Executor) evalSubquery(outer []frame, cols []colMeta, row execRow, sel *parser.SelectStmt) ([]execRow, error) {
	nextOuter := append(append([]frame{}, outer...), frame{Cols: cols, Row: row})
	b, err := e.runSelect(sel, nextOuter)
	if err != nil {
		return nil, err
	}
	return b.Rows, nil
}

// evalScalarSubquery runs sel correlated against (cols, row) and returns
// its single cell, Null if it produced zero rows, or
// SubqueryCardinalityError if it produced more than one (spec.md §4.5,
// §7; zero-row case per original_source/tests/scalar_subquery.rs, a
// supplemented edge case spec.md leaves implicit).
func (e *Executor) evalScalarSubquery(outer []frame, cols []colMeta, row execRow, sel *parser.SelectStmt) (types.Value, error) {
	rows, err := e.evalSubquery(outer, cols, row, sel)
	if err != nil {
		return types.Value{}, err
	}
	switch len(rows) {
	case 0:
		return types.Null(), nil
	case 1:
		if len(rows[0]) != 1 {
			return types.Value{}, &SubqueryCardinalityError{Message: "scalar subquery must return exactly one column"}
		}
		return rows[0][0], nil
	default:
		return types.Value{}, &SubqueryCardinalityError{Message: "scalar subquery returned more than one row"}
	}
}
