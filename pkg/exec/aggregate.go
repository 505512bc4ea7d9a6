package exec

import (
	"fmt"
	"strings"

	"rustql/pkg/plan"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

// aggLabel names an aggregate's output column the same way for both the
// AggregateNode that computes it and the FunctionCall expression a
// SELECT/HAVING clause uses to reference it, so evalScalar's FunctionCall
// case can find the pre-computed value by structural match rather than
// re-evaluating the function over raw rows (spec.md §4.5: aggregates are
// computed once per group, not per reference to them).
func aggLabel(funcName string, distinct bool, arg parser.Expression) string {
	var sb strings.Builder
	sb.WriteString(strings.ToUpper(funcName))
	sb.WriteByte('(')
	if distinct {
		sb.WriteString("DISTINCT ")
	}
	if arg == nil {
		sb.WriteByte('*')
	} else {
		sb.WriteString(exprLabel(arg))
	}
	sb.WriteByte(')')
	return sb.String()
}

func groupKeyLabel(e parser.Expression) (colMeta, bool) {
	if ref, ok := e.(*parser.ColumnRef); ok {
		return colMeta{Table: ref.Table, Name: ref.Name}, true
	}
	return colMeta{}, false
}

// runAggregate partitions the input into groups by n.GroupBy (the whole
// input is one group when it's empty), computes each AggregateExpr per
// group and filters through Having (spec.md §4.5).
func (e *Executor) runAggregate(n *plan.AggregateNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}

	outCols := make([]colMeta, 0, len(n.GroupBy)+len(n.Aggregates))
	for _, g := range n.GroupBy {
		if cm, ok := groupKeyLabel(g); ok {
			outCols = append(outCols, cm)
		} else {
			outCols = append(outCols, colMeta{Name: exprLabel(g)})
		}
	}
	for _, a := range n.Aggregates {
		outCols = append(outCols, colMeta{Name: aggLabel(a.FuncName, a.Distinct, a.Arg)})
	}

	type group struct {
		keyVals []types.Value
		rows    []execRow
	}
	var order []string
	groups := make(map[string]*group)

	if len(n.GroupBy) == 0 {
		g := &group{rows: in.Rows}
		groups[""] = g
		order = []string{""}
	} else {
		for _, row := range in.Rows {
			keyVals := make([]types.Value, len(n.GroupBy))
			for i, g := range n.GroupBy {
				v, err := e.evalScalar(in.Cols, row, outer, g)
				if err != nil {
					return batch{}, err
				}
				keyVals[i] = v
			}
			key := rowKey(execRow(keyVals))
			g, ok := groups[key]
			if !ok {
				g = &group{keyVals: keyVals}
				groups[key] = g
				order = append(order, key)
			}
			g.rows = append(g.rows, row)
		}
	}

	out := batch{Cols: outCols}
	for _, key := range order {
		g := groups[key]
		outRow := make(execRow, 0, len(outCols))
		if len(n.GroupBy) == 0 {
			// zero-row input still yields one group; keyVals is empty since
			// GroupBy is empty too, so nothing to append here.
		} else {
			outRow = append(outRow, g.keyVals...)
		}
		for _, a := range n.Aggregates {
			v, err := e.computeAggregate(in.Cols, g.rows, outer, a)
			if err != nil {
				return batch{}, err
			}
			outRow = append(outRow, v)
		}
		if n.Having != nil {
			tri, err := e.evalPredicate(outCols, outRow, outer, n.Having)
			if err != nil {
				return batch{}, err
			}
			if !tri.passes() {
				continue
			}
		}
		out.Rows = append(out.Rows, outRow)
	}
	return out, nil
}

func (e *Executor) computeAggregate(cols []colMeta, rows []execRow, outer []frame, a plan.AggregateExpr) (types.Value, error) {
	upper := strings.ToUpper(a.FuncName)
	if upper == "COUNT" && a.Arg == nil {
		return types.NewInteger(int64(len(rows))), nil
	}

	var values []types.Value
	seen := make(map[types.Value]bool)
	for _, row := range rows {
		v, err := e.evalScalar(cols, row, outer, a.Arg)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() {
			continue
		}
		if a.Distinct {
			if seen[v] {
				continue
			}
			seen[v] = true
		}
		values = append(values, v)
	}

	switch upper {
	case "COUNT":
		return types.NewInteger(int64(len(values))), nil
	case "SUM":
		if len(values) == 0 {
			return types.Null(), nil
		}
		return sumValues(values)
	case "AVG":
		if len(values) == 0 {
			return types.Null(), nil
		}
		sum, err := sumValues(values)
		if err != nil {
			return types.Value{}, err
		}
		return types.NewFloat(sum.AsFloat() / float64(len(values))), nil
	case "MIN":
		return extremeValue(values, types.Less)
	case "MAX":
		return extremeValue(values, types.Greater)
	default:
		return types.Value{}, fmt.Errorf("exec: unsupported aggregate function %s", a.FuncName)
	}
}

func sumValues(values []types.Value) (types.Value, error) {
	allInt := true
	var isum int64
	var fsum float64
	for _, v := range values {
		if v.Kind() != types.KindInteger {
			allInt = false
		}
		fsum += v.AsFloat()
		if v.Kind() == types.KindInteger {
			isum += v.Integer()
		}
	}
	if allInt {
		return types.NewInteger(isum), nil
	}
	return types.NewFloat(fsum), nil
}

func extremeValue(values []types.Value, want types.Ordering) (types.Value, error) {
	if len(values) == 0 {
		return types.Null(), nil
	}
	best := values[0]
	for _, v := range values[1:] {
		ord, err := types.Compare(v, best)
		if err != nil {
			return types.Value{}, err
		}
		if ord == want {
			best = v
		}
	}
	return best, nil
}
