// Builder turns a parsed SELECT into a PlanNode tree (spec.md §4.4):
// access-path selection (SeqScan vs IndexScan) per table, join-algorithm
// selection (NestedLoopJoin vs HashJoin) and greedy left-deep join
// ordering for runs of INNER joins, then Aggregate/Sort/Limit/
// Distinct/Project on top.
//
// Grounded on mjm918-tur/pkg/sql/optimizer's AccessPathComparison/
// IndexCandidate shape (index_selection.go) for recognizing a pushdown-
// eligible WHERE conjunct, adapted from the teacher's page-cost model to
// spec.md §4.4's plain row-count formulas (see cost.go).
package plan

import (
	"fmt"
	"reflect"

	"rustql/pkg/catalog"
	"rustql/pkg/sql/lexer"
	"rustql/pkg/sql/parser"
)

// Builder builds logical plans against a live catalog, consulting table
// and index statistics for cost estimation.
type Builder struct {
	cat *catalog.Catalog
	est *CostEstimator
}

// NewBuilder returns a Builder bound to cat.
func NewBuilder(cat *catalog.Catalog) *Builder {
	return &Builder{cat: cat, est: NewCostEstimator()}
}

// Build turns stmt into an executable plan tree.
func (b *Builder) Build(stmt *parser.SelectStmt) (PlanNode, error) {
	conjuncts := splitConjuncts(stmt.Where)
	used := make(map[int]bool, len(conjuncts))

	root, rootTables, err := b.buildBaseRelation(stmt.From, conjuncts, used)
	if err != nil {
		return nil, err
	}

	joins := stmt.Joins
	for len(joins) > 0 {
		next, rest := b.pickNextJoin(joins, rootTables)
		root, err = b.buildJoin(root, rootTables, next, conjuncts, used)
		if err != nil {
			return nil, err
		}
		rootTables = append(rootTables, tableKey(next.Table))
		joins = rest
	}

	if residual := unusedConjuncts(conjuncts, used); len(residual) > 0 {
		pred := andAll(residual)
		rows := root.EstimatedRows()
		root = &FilterNode{
			Input:     root,
			Predicate: pred,
			Rows:      rows,
			Cost:      root.EstimatedCost() + float64(rows)*CPUTupleCost,
		}
	}

	if len(stmt.GroupBy) > 0 || hasAggregate(stmt.Projections) {
		root = b.buildAggregate(root, stmt)
	}

	// spec.md §4.4 "LIMIT without ORDER BY is moved above Project": apply
	// it directly against the filtered/aggregated stream so Project never
	// runs on rows the limit would discard.
	pushLimit := len(stmt.OrderBy) == 0 && (stmt.Limit != nil || stmt.Offset != nil)
	if pushLimit {
		root = b.buildLimit(root, stmt.Limit, stmt.Offset)
	}

	if len(stmt.OrderBy) > 0 {
		rows := root.EstimatedRows()
		root = &SortNode{
			Input:   root,
			OrderBy: stmt.OrderBy,
			Rows:    rows,
			Cost:    root.EstimatedCost() + float64(rows)*CPUTupleCost,
		}
	}

	root = &ProjectNode{
		Input:       root,
		Projections: stmt.Projections,
		Rows:        root.EstimatedRows(),
		Cost:        root.EstimatedCost() + float64(root.EstimatedRows())*CPUTupleCost,
	}

	if stmt.Distinct {
		rows := root.EstimatedRows()
		root = &DistinctNode{Input: root, Rows: rows, Cost: root.EstimatedCost() + float64(rows)*CPUTupleCost}
	}

	if !pushLimit && (stmt.Limit != nil || stmt.Offset != nil) {
		root = b.buildLimit(root, stmt.Limit, stmt.Offset)
	}

	return root, nil
}

func (b *Builder) buildLimit(input PlanNode, limit, offset *uint64) PlanNode {
	rows := input.EstimatedRows()
	if offset != nil {
		rows -= int64(*offset)
		if rows < 0 {
			rows = 0
		}
	}
	if limit != nil && int64(*limit) < rows {
		rows = int64(*limit)
	}
	return &LimitNode{Input: input, Limit: limit, Offset: offset, Rows: rows, Cost: input.EstimatedCost()}
}

// tableKey is the name a ColumnRef.Table qualifies a table by: its alias
// if it has one, else its own name.
func tableKey(ref parser.TableRef) string {
	if ref.Alias != "" {
		return ref.Alias
	}
	return ref.Name
}

func (b *Builder) buildBaseRelation(ref parser.TableRef, conjuncts []parser.Expression, used map[int]bool) (PlanNode, []string, error) {
	t := b.cat.GetTable(ref.Name)
	if t == nil {
		return nil, nil, fmt.Errorf("plan: unknown table %q", ref.Name)
	}
	rowCount := int64(len(t.Rows))
	key := tableKey(ref)

	if idx, conjunctIdx, selectivity := b.pickIndexCandidate(ref.Name, key, conjuncts, used); idx != nil {
		useIndex, seqCost, seqRows, idxCost, idxRows := b.est.ChooseAccessPath(rowCount, selectivity)
		if useIndex {
			used[conjunctIdx] = true
			return &IndexScanNode{
				Table:     ref.Name,
				Alias:     key,
				Index:     idx.Name,
				Column:    idx.Column,
				Predicate: conjuncts[conjunctIdx],
				Rows:      idxRows,
				Cost:      idxCost,
			}, []string{key}, nil
		}
		_ = seqCost
		_ = seqRows
	}

	cost, rows := b.est.SeqScanCost(rowCount)
	return &SeqScanNode{Table: ref.Name, Alias: key, Rows: rows, Cost: cost}, []string{key}, nil
}

// indexCandidate is a WHERE conjunct recognized as pushdown-eligible
// against a single indexed column, grounded on the teacher's
// IndexCandidate (index_selection.go).
type indexCandidate struct {
	Name   string
	Column string
}

// pickIndexCandidate scans conjuncts for one of the pushdown-eligible
// shapes spec.md §4.4 names (`col op value`, `col IN (...)`, `col BETWEEN
// a AND b`) against an indexed column of table, returning the matching
// index, the conjunct's position, and its estimated selectivity.
func (b *Builder) pickIndexCandidate(tableName, key string, conjuncts []parser.Expression, used map[int]bool) (*indexCandidate, int, float64) {
	for i, c := range conjuncts {
		if used[i] {
			continue
		}
		col, sel, ok := b.matchPushdown(tableName, key, c)
		if !ok {
			continue
		}
		ix := b.cat.IndexOnColumn(tableName, col)
		if ix == nil {
			continue
		}
		return &indexCandidate{Name: ix.Name, Column: ix.Column}, i, sel
	}
	return nil, -1, 0
}

func (b *Builder) matchPushdown(tableName, key string, e parser.Expression) (column string, selectivity float64, ok bool) {
	colDistinct := func(col string) int64 {
		if ix := b.cat.IndexOnColumn(tableName, col); ix != nil {
			return ix.DistinctCount()
		}
		return 0
	}
	switch expr := e.(type) {
	case *parser.BinaryExpr:
		if col, lit, ok := columnLiteral(expr.Left, expr.Right, key); ok {
			_ = lit
			switch expr.Op {
			case lexer.EQ:
				return col, b.est.EqualitySelectivity(colDistinct(col)), true
			case lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
				return col, b.est.RangeSelectivity(), true
			}
		}
	case *parser.InExpr:
		if ref, ok := e2ColumnRef(expr.Expr); ok && matchesTable(ref, key) && expr.List != nil && !expr.Not {
			return ref.Name, b.est.InSelectivity(len(expr.List), colDistinct(ref.Name)), true
		}
	case *parser.BetweenExpr:
		if ref, ok := e2ColumnRef(expr.Expr); ok && matchesTable(ref, key) && !expr.Not {
			return ref.Name, b.est.BetweenSelectivity(), true
		}
	}
	return "", 0, false
}

func e2ColumnRef(e parser.Expression) (*parser.ColumnRef, bool) {
	ref, ok := e.(*parser.ColumnRef)
	return ref, ok
}

func matchesTable(ref *parser.ColumnRef, key string) bool {
	return ref.Table == "" || ref.Table == key
}

// columnLiteral recognizes `col op literal` or `literal op col`, returning
// the column name when exactly one side is a bare column reference
// belonging to key and the other is a constant.
func columnLiteral(left, right parser.Expression, key string) (string, *parser.Literal, bool) {
	if ref, ok := e2ColumnRef(left); ok && matchesTable(ref, key) {
		if lit, ok := right.(*parser.Literal); ok {
			return ref.Name, lit, true
		}
	}
	if ref, ok := e2ColumnRef(right); ok && matchesTable(ref, key) {
		if lit, ok := left.(*parser.Literal); ok {
			return ref.Name, lit, true
		}
	}
	return "", nil, false
}

// splitConjuncts flattens a WHERE expression into its top-level AND
// operands; an OR, or any other expression shape, is kept whole as a
// single conjunct.
func splitConjuncts(e parser.Expression) []parser.Expression {
	if e == nil {
		return nil
	}
	if b, ok := e.(*parser.BinaryExpr); ok && b.Op == lexer.AND {
		return append(splitConjuncts(b.Left), splitConjuncts(b.Right)...)
	}
	return []parser.Expression{e}
}

func unusedConjuncts(conjuncts []parser.Expression, used map[int]bool) []parser.Expression {
	var out []parser.Expression
	for i, c := range conjuncts {
		if !used[i] {
			out = append(out, c)
		}
	}
	return out
}

func andAll(exprs []parser.Expression) parser.Expression {
	result := exprs[0]
	for _, e := range exprs[1:] {
		result = &parser.BinaryExpr{Left: result, Op: lexer.AND, Right: e}
	}
	return result
}

func hasAggregate(projections []parser.Projection) bool {
	for _, p := range projections {
		if p.Expr != nil {
			if containsAggregate(p.Expr) {
				return true
			}
		}
	}
	return false
}

func containsAggregate(e parser.Expression) bool {
	switch expr := e.(type) {
	case *parser.FunctionCall:
		return true
	case *parser.BinaryExpr:
		return containsAggregate(expr.Left) || containsAggregate(expr.Right)
	case *parser.UnaryExpr:
		return containsAggregate(expr.Operand)
	default:
		return false
	}
}

// pickNextJoin implements spec.md §4.4's "left-deep greedy heuristic" for
// ≥2 joins: among the joins not yet placed, if the NEXT join in program
// order is an INNER join, pick whichever remaining INNER join (before the
// next non-reorderable join) targets the smallest table, since outer
// joins fix their position and are never reordered past.
func (b *Builder) pickNextJoin(joins []parser.Join, rootTables []string) (parser.Join, []parser.Join) {
	if joins[0].Kind != parser.JoinInner {
		return joins[0], joins[1:]
	}
	bestIdx := 0
	bestRows := b.tableRows(joins[0].Table.Name)
	for i := 1; i < len(joins); i++ {
		if joins[i].Kind != parser.JoinInner {
			break
		}
		if r := b.tableRows(joins[i].Table.Name); r < bestRows {
			bestRows = r
			bestIdx = i
		}
	}
	chosen := joins[bestIdx]
	rest := make([]parser.Join, 0, len(joins)-1)
	rest = append(rest, joins[:bestIdx]...)
	rest = append(rest, joins[bestIdx+1:]...)
	return chosen, rest
}

func (b *Builder) tableRows(name string) int64 {
	t := b.cat.GetTable(name)
	if t == nil {
		return 0
	}
	return int64(len(t.Rows))
}

// buildJoin attaches one more table to root via Join, choosing HashJoin
// when the ON clause is a single-column equality between a column of an
// already-placed table and a column of the new table, NestedLoopJoin
// otherwise (spec.md §4.4).
func (b *Builder) buildJoin(root PlanNode, rootTables []string, j parser.Join, conjuncts []parser.Expression, used map[int]bool) (PlanNode, error) {
	rightPlan, _, err := b.buildBaseRelation(j.Table, conjuncts, used)
	if err != nil {
		return nil, err
	}

	leftRows, rightRows := root.EstimatedRows(), rightPlan.EstimatedRows()
	leftCost, rightCost := root.EstimatedCost(), rightPlan.EstimatedCost()

	if leftKey, rightKey, ok := equalityJoinKeys(j.On, rootTables, tableKey(j.Table)); ok {
		rows := joinRows(j.Kind, leftRows, rightRows)
		cost := b.est.HashJoinCost(min64(leftRows, rightRows), max64(leftRows, rightRows), leftCost, rightCost)
		return &HashJoinNode{
			Left: root, Right: rightPlan, JoinKind: j.Kind,
			LeftKey: leftKey, RightKey: rightKey, BuildLeft: leftRows <= rightRows,
			Rows: rows, Cost: cost,
		}, nil
	}

	rows := joinRows(j.Kind, leftRows, rightRows)
	cost := b.est.NestedLoopCost(leftRows, rightRows, leftCost, rightCost)
	return &NestedLoopJoinNode{Left: root, Right: rightPlan, JoinKind: j.Kind, On: j.On, Rows: rows, Cost: cost}, nil
}

func joinRows(kind parser.JoinKind, leftRows, rightRows int64) int64 {
	switch kind {
	case parser.JoinLeft:
		if leftRows > 0 {
			return leftRows
		}
		return JoinOutputRows(leftRows, rightRows)
	case parser.JoinRight:
		if rightRows > 0 {
			return rightRows
		}
		return JoinOutputRows(leftRows, rightRows)
	case parser.JoinFull:
		return leftRows + rightRows
	default:
		return JoinOutputRows(leftRows, rightRows)
	}
}

// equalityJoinKeys recognizes `t1.a = t2.b` (in either order) where one
// side references a table already placed in the plan (leftTables) and
// the other references the table being joined in (rightKey).
func equalityJoinKeys(on parser.Expression, leftTables []string, rightTable string) (parser.Expression, parser.Expression, bool) {
	b, ok := on.(*parser.BinaryExpr)
	if !ok || b.Op != lexer.EQ {
		return nil, nil, false
	}
	lref, lok := e2ColumnRef(b.Left)
	rref, rok := e2ColumnRef(b.Right)
	if !lok || !rok {
		return nil, nil, false
	}
	if containsTable(leftTables, lref.Table) && rref.Table == rightTable {
		return b.Left, b.Right, true
	}
	if containsTable(leftTables, rref.Table) && lref.Table == rightTable {
		return b.Right, b.Left, true
	}
	return nil, nil, false
}

func containsTable(tables []string, name string) bool {
	for _, t := range tables {
		if t == name {
			return true
		}
	}
	return false
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// buildAggregate wraps input in an AggregateNode (spec.md §4.5): grouping
// by GroupBy (the whole input is one group when it's empty), one
// AggregateExpr per distinct aggregate function call referenced anywhere
// in the projection list, HAVING, or ORDER BY, and the Having predicate
// carried along for the executor to apply per-group. Collecting from all
// three clauses, not just the projection list, is what lets a textbook
// `GROUP BY dept HAVING COUNT(*) > 1` or `... ORDER BY COUNT(*)` resolve
// its aggregate reference instead of erroring as used outside an
// aggregate query (original_source/src/plan_executor.rs recomputes the
// same aggregate wherever HAVING references it).
func (b *Builder) buildAggregate(input PlanNode, stmt *parser.SelectStmt) PlanNode {
	var aggs []AggregateExpr
	for _, p := range stmt.Projections {
		collectAggregates(p.Expr, p.Alias, &aggs)
	}
	if stmt.Having != nil {
		collectAggregates(stmt.Having, "", &aggs)
	}
	for _, ob := range stmt.OrderBy {
		collectAggregates(ob.Expr, "", &aggs)
	}
	rows := int64(len(stmt.GroupBy))
	if rows == 0 {
		rows = 1
	} else {
		rows = input.EstimatedRows()
		if rows == 0 {
			rows = 1
		}
	}
	return &AggregateNode{
		Input: input, GroupBy: stmt.GroupBy, Aggregates: aggs, Having: stmt.Having,
		Rows: rows, Cost: input.EstimatedCost() + float64(input.EstimatedRows())*CPUTupleCost,
	}
}

func collectAggregates(e parser.Expression, alias string, out *[]AggregateExpr) {
	switch expr := e.(type) {
	case *parser.FunctionCall:
		appendAggregate(out, AggregateExpr{FuncName: expr.Name, Distinct: expr.Distinct, Arg: expr.Arg, Alias: alias})
	case *parser.BinaryExpr:
		collectAggregates(expr.Left, "", out)
		collectAggregates(expr.Right, "", out)
	case *parser.UnaryExpr:
		collectAggregates(expr.Operand, "", out)
	}
}

// appendAggregate adds agg to *out unless a structurally identical
// aggregate (same function, DISTINCT flag, and argument) is already
// there — HAVING and ORDER BY routinely reference the same aggregate the
// projection list already computes, and the executor resolves every
// reference to an aggregate by its structural label, so a duplicate
// would only waste an output column, never change a result.
func appendAggregate(out *[]AggregateExpr, agg AggregateExpr) {
	for _, existing := range *out {
		if existing.FuncName == agg.FuncName && existing.Distinct == agg.Distinct && reflect.DeepEqual(existing.Arg, agg.Arg) {
			return
		}
	}
	*out = append(*out, agg)
}
