package exec

import (
	"fmt"
	"sort"

	"rustql/pkg/catalog"
	"rustql/pkg/plan"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

// runSelect plans and executes a SELECT, with outer as the row-context
// stack visible to any correlated subquery nested inside it.
func (e *Executor) runSelect(stmt *parser.SelectStmt, outer []frame) (batch, error) {
	p, err := e.builder.Build(stmt)
	if err != nil {
		return batch{}, err
	}
	return e.runNode(p, outer)
}

// runNode executes one plan node to a fully materialized batch, pulling
// from its children first (spec.md §4.5: "a tree-walking executor over
// row batches").
func (e *Executor) runNode(node plan.PlanNode, outer []frame) (batch, error) {
	switch n := node.(type) {
	case *plan.SeqScanNode:
		return e.runSeqScan(n)
	case *plan.IndexScanNode:
		return e.runIndexScan(n, outer)
	case *plan.FilterNode:
		return e.runFilter(n, outer)
	case *plan.NestedLoopJoinNode:
		return e.runNestedLoopJoin(n, outer)
	case *plan.HashJoinNode:
		return e.runHashJoin(n, outer)
	case *plan.AggregateNode:
		return e.runAggregate(n, outer)
	case *plan.SortNode:
		return e.runSort(n, outer)
	case *plan.LimitNode:
		return e.runLimit(n, outer)
	case *plan.DistinctNode:
		return e.runDistinct(n, outer)
	case *plan.ProjectNode:
		return e.runProject(n, outer)
	default:
		return batch{}, fmt.Errorf("exec: unsupported plan node %T", node)
	}
}

func colsForTable(t *catalog.Table, alias string) []colMeta {
	if alias == "" {
		alias = t.Name
	}
	out := make([]colMeta, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = colMeta{Table: alias, Name: c.Name}
	}
	return out
}

func (e *Executor) runSeqScan(n *plan.SeqScanNode) (batch, error) {
	t := e.cat.GetTable(n.Table)
	if t == nil {
		return batch{}, fmt.Errorf("exec: unknown table %q", n.Table)
	}
	rows, err := e.cat.Scan(n.Table)
	if err != nil {
		return batch{}, err
	}
	out := batch{Cols: colsForTable(t, n.Alias), Rows: make([]execRow, len(rows))}
	for i, r := range rows {
		out.Rows[i] = execRow(r.Values).clone()
	}
	return out, nil
}

// runIndexScan reads the rows held under every key of the index, in table
// order, and keeps those that pass n.Predicate (spec.md §4.4, §4.5). The
// predicate is evaluated per row, not against the index keys, so every
// indexed row is visited; the index does not narrow the candidate set.
func (e *Executor) runIndexScan(n *plan.IndexScanNode, outer []frame) (batch, error) {
	t := e.cat.GetTable(n.Table)
	if t == nil {
		return batch{}, fmt.Errorf("exec: unknown table %q", n.Table)
	}
	ix := e.cat.GetIndex(n.Index)
	if ix == nil {
		return batch{}, fmt.Errorf("exec: unknown index %q", n.Index)
	}
	cols := colsForTable(t, n.Alias)

	ids := make(map[catalog.RowID]bool)
	for _, v := range ix.Values() {
		for _, id := range ix.Lookup(v) {
			ids[id] = true
		}
	}

	out := batch{Cols: cols}
	for _, row := range t.Rows {
		if !ids[row.ID] {
			continue
		}
		r := execRow(row.Values).clone()
		tri, err := e.evalPredicate(cols, r, outer, n.Predicate)
		if err != nil {
			return batch{}, err
		}
		if tri.passes() {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

func (e *Executor) runFilter(n *plan.FilterNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}
	out := batch{Cols: in.Cols}
	for _, row := range in.Rows {
		tri, err := e.evalPredicate(in.Cols, row, outer, n.Predicate)
		if err != nil {
			return batch{}, err
		}
		if tri.passes() {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func (e *Executor) runNestedLoopJoin(n *plan.NestedLoopJoinNode, outer []frame) (batch, error) {
	left, err := e.runNode(n.Left, outer)
	if err != nil {
		return batch{}, err
	}
	right, err := e.runNode(n.Right, outer)
	if err != nil {
		return batch{}, err
	}
	cols := concatCols(left.Cols, right.Cols)
	out := batch{Cols: cols}

	rightMatched := make([]bool, len(right.Rows))
	for _, lrow := range left.Rows {
		matched := false
		for ri, rrow := range right.Rows {
			combined := concatRow(lrow, rrow)
			tri, err := e.evalPredicate(cols, combined, outer, n.On)
			if err != nil {
				return batch{}, err
			}
			if tri.passes() {
				matched = true
				rightMatched[ri] = true
				out.Rows = append(out.Rows, combined)
			}
		}
		if !matched && (n.JoinKind == parser.JoinLeft || n.JoinKind == parser.JoinFull) {
			out.Rows = append(out.Rows, concatRow(lrow, nullRow(len(right.Cols))))
		}
	}
	if n.JoinKind == parser.JoinRight || n.JoinKind == parser.JoinFull {
		for ri, rrow := range right.Rows {
			if rightMatched[ri] {
				continue
			}
			out.Rows = append(out.Rows, concatRow(nullRow(len(left.Cols)), rrow))
		}
	}
	return out, nil
}

// runHashJoin builds a hash table keyed on the equality join key over
// whichever side n.BuildLeft marks as smaller, then probes it with the
// other side (spec.md §4.4: "build the smaller side"). Correctness is
// identical regardless of which side is built; only performance differs,
// so unmatched-row bookkeeping is expressed the same way NestedLoopJoin
// does it.
func (e *Executor) runHashJoin(n *plan.HashJoinNode, outer []frame) (batch, error) {
	left, err := e.runNode(n.Left, outer)
	if err != nil {
		return batch{}, err
	}
	right, err := e.runNode(n.Right, outer)
	if err != nil {
		return batch{}, err
	}
	cols := concatCols(left.Cols, right.Cols)
	out := batch{Cols: cols}

	type bucket struct{ idx []int }
	buildLeft := n.BuildLeft

	var buildRows, probeRows []execRow
	var buildCols, probeCols []colMeta
	var buildKey, probeKey parser.Expression
	if buildLeft {
		buildRows, probeRows = left.Rows, right.Rows
		buildCols, probeCols = left.Cols, right.Cols
		buildKey, probeKey = n.LeftKey, n.RightKey
	} else {
		buildRows, probeRows = right.Rows, left.Rows
		buildCols, probeCols = right.Cols, left.Cols
		buildKey, probeKey = n.RightKey, n.LeftKey
	}

	table := make(map[types.Value]*bucket)
	for i, row := range buildRows {
		v, err := e.evalScalar(buildCols, row, outer, buildKey)
		if err != nil {
			return batch{}, err
		}
		if v.IsNull() {
			continue
		}
		b, ok := table[v]
		if !ok {
			b = &bucket{}
			table[v] = b
		}
		b.idx = append(b.idx, i)
	}

	buildMatched := make([]bool, len(buildRows))
	probeMatched := make([]bool, len(probeRows))
	for pi, prow := range probeRows {
		v, err := e.evalScalar(probeCols, prow, outer, probeKey)
		if err != nil {
			return batch{}, err
		}
		if v.IsNull() {
			continue
		}
		b, ok := table[v]
		if !ok {
			continue
		}
		for _, bi := range b.idx {
			buildMatched[bi] = true
			probeMatched[pi] = true
			var combined execRow
			if buildLeft {
				combined = concatRow(buildRows[bi], prow)
			} else {
				combined = concatRow(prow, buildRows[bi])
			}
			out.Rows = append(out.Rows, combined)
		}
	}

	needsLeftOuter := n.JoinKind == parser.JoinLeft || n.JoinKind == parser.JoinFull
	needsRightOuter := n.JoinKind == parser.JoinRight || n.JoinKind == parser.JoinFull
	if buildLeft {
		if needsLeftOuter {
			for bi, row := range buildRows {
				if !buildMatched[bi] {
					out.Rows = append(out.Rows, concatRow(row, nullRow(len(probeCols))))
				}
			}
		}
		if needsRightOuter {
			for pi, row := range probeRows {
				if !probeMatched[pi] {
					out.Rows = append(out.Rows, concatRow(nullRow(len(buildCols)), row))
				}
			}
		}
	} else {
		if needsLeftOuter {
			for pi, row := range probeRows {
				if !probeMatched[pi] {
					out.Rows = append(out.Rows, concatRow(row, nullRow(len(buildCols))))
				}
			}
		}
		if needsRightOuter {
			for bi, row := range buildRows {
				if !buildMatched[bi] {
					out.Rows = append(out.Rows, concatRow(nullRow(len(probeCols)), row))
				}
			}
		}
	}
	return out, nil
}

func (e *Executor) runSort(n *plan.SortNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}
	rows := make([]execRow, len(in.Rows))
	copy(rows, in.Rows)

	var sortErr error
	sort.SliceStable(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		for _, key := range n.OrderBy {
			vi, err := e.evalScalar(in.Cols, rows[i], outer, key.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := e.evalScalar(in.Cols, rows[j], outer, key.Expr)
			if err != nil {
				sortErr = err
				return false
			}
			less, ok := orderLess(vi, vj, key.Desc)
			if !ok {
				continue
			}
			return less
		}
		return false
	})
	if sortErr != nil {
		return batch{}, sortErr
	}
	return batch{Cols: in.Cols, Rows: rows}, nil
}

// orderLess orders two values for ORDER BY: Null sorts last for ASC and
// first for DESC (spec.md §4.5), since DESC reverses the comparator as a
// whole rather than reversing only the non-null ordering. ok=false means
// the two values tie, so the caller falls through to the next key.
func orderLess(a, b types.Value, desc bool) (less bool, ok bool) {
	if a.IsNull() && b.IsNull() {
		return false, false
	}
	if a.IsNull() {
		return desc, true
	}
	if b.IsNull() {
		return !desc, true
	}
	ord, err := types.Compare(a, b)
	if err != nil || ord == types.Equal {
		return false, false
	}
	if desc {
		return ord == types.Greater, true
	}
	return ord == types.Less, true
}

func (e *Executor) runLimit(n *plan.LimitNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}
	start := 0
	if n.Offset != nil {
		start = int(*n.Offset)
	}
	if start > len(in.Rows) {
		start = len(in.Rows)
	}
	rows := in.Rows[start:]
	if n.Limit != nil && uint64(len(rows)) > *n.Limit {
		rows = rows[:*n.Limit]
	}
	return batch{Cols: in.Cols, Rows: rows}, nil
}

func (e *Executor) runDistinct(n *plan.DistinctNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}
	seen := make(map[string]bool, len(in.Rows))
	out := batch{Cols: in.Cols}
	for _, row := range in.Rows {
		key := rowKey(row)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func rowKey(row execRow) string {
	var sb []byte
	for _, v := range row {
		sb = append(sb, byte(v.Kind()))
		sb = append(sb, []byte(v.String())...)
		sb = append(sb, 0)
	}
	return string(sb)
}

// runProject evaluates the SELECT list against the input batch. A Star
// projection expands to every input column, preserving its qualification
// so a later reference (ORDER BY on a projected alias, say) still
// resolves (spec.md §4.5).
func (e *Executor) runProject(n *plan.ProjectNode, outer []frame) (batch, error) {
	in, err := e.runNode(n.Input, outer)
	if err != nil {
		return batch{}, err
	}

	var outCols []colMeta
	for _, p := range n.Projections {
		if p.Star {
			outCols = append(outCols, in.Cols...)
			continue
		}
		if ref, ok := p.Expr.(*parser.ColumnRef); ok && p.Alias == "" {
			outCols = append(outCols, colMeta{Table: ref.Table, Name: ref.Name})
			continue
		}
		name := p.Alias
		if name == "" {
			name = exprLabel(p.Expr)
		}
		outCols = append(outCols, colMeta{Name: name})
	}

	out := batch{Cols: outCols, Rows: make([]execRow, 0, len(in.Rows))}
	for _, row := range in.Rows {
		var outRow execRow
		for _, p := range n.Projections {
			if p.Star {
				outRow = append(outRow, row...)
				continue
			}
			v, err := e.evalScalar(in.Cols, row, outer, p.Expr)
			if err != nil {
				return batch{}, err
			}
			outRow = append(outRow, v)
		}
		out.Rows = append(out.Rows, outRow)
	}
	return out, nil
}

func exprLabel(e parser.Expression) string {
	switch ex := e.(type) {
	case *parser.FunctionCall:
		if ex.Star {
			return ex.Name + "(*)"
		}
		return ex.Name + "(" + exprLabel(ex.Arg) + ")"
	case *parser.ColumnRef:
		if ex.Table != "" {
			return ex.Table + "." + ex.Name
		}
		return ex.Name
	case *parser.Literal:
		return ex.Value.String()
	default:
		return "expr"
	}
}
