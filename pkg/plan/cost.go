package plan

import "rustql/pkg/sql/lexer"

// CPUTupleCost is the per-row cost of evaluating a residual predicate or
// projecting a row, used to scale Filter/Project estimates above their
// input's cost (spec.md §4.4's "cost ... arbitrary units, monotonic in
// work").
const CPUTupleCost = 0.01

// CostEstimator turns catalog statistics into the row/cost estimates
// spec.md §4.4 requires every plan node to carry.
//
// Grounded on mjm918-tur/pkg/sql/optimizer/cost.go's CostEstimator; its
// page-based I/O model (PAGE_READ_COST, ROWS_PER_PAGE, B-tree traversal
// height) is dropped since RustQL tables live entirely in memory — cost
// here is row count, exactly as spec.md §4.4 specifies.
type CostEstimator struct{}

func NewCostEstimator() *CostEstimator { return &CostEstimator{} }

// SeqScanCost returns (cost, rows) for scanning every row of a table.
func (e *CostEstimator) SeqScanCost(rowCount int64) (float64, int64) {
	return float64(rowCount), rowCount
}

// EqualitySelectivity is 1/distinct_count for an `=` predicate.
func (e *CostEstimator) EqualitySelectivity(distinctCount int64) float64 {
	if distinctCount <= 0 {
		return 0.01
	}
	return 1.0 / float64(distinctCount)
}

// InSelectivity is the IN-list selectivity spec.md §4.4 defines:
// |list| equality lookups, bounded to at most 1.
func (e *CostEstimator) InSelectivity(listSize int, distinctCount int64) float64 {
	sel := float64(listSize) * e.EqualitySelectivity(distinctCount)
	if sel > 1 {
		sel = 1
	}
	return sel
}

// RangeSelectivity is the fixed estimate spec.md §4.4 gives for <, <=, >, >=.
func (e *CostEstimator) RangeSelectivity() float64 { return 0.3 }

// BetweenSelectivity is the fixed estimate spec.md §4.4 gives for BETWEEN.
func (e *CostEstimator) BetweenSelectivity() float64 { return 0.25 }

// SelectivityForOp dispatches to the right formula for a pushdown operator.
func (e *CostEstimator) SelectivityForOp(op lexer.TokenType, distinctCount int64) float64 {
	switch op {
	case lexer.EQ:
		return e.EqualitySelectivity(distinctCount)
	case lexer.LT, lexer.LTE, lexer.GT, lexer.GTE:
		return e.RangeSelectivity()
	default:
		return 0.1
	}
}

// IndexScanCost returns (cost, rows) for an index access path: cost equals
// the expected row count, per spec.md §4.4.
func (e *CostEstimator) IndexScanCost(rowCount int64, selectivity float64) (float64, int64) {
	rows := int64(float64(rowCount) * selectivity)
	if rows < 1 && rowCount > 0 {
		rows = 1
	}
	return float64(rows), rows
}

// ChooseAccessPath picks the cheaper of a SeqScan and an IndexScan over the
// same table, returning whether the index wins along with both estimates.
func (e *CostEstimator) ChooseAccessPath(rowCount int64, selectivity float64) (useIndex bool, seqCost float64, seqRows int64, idxCost float64, idxRows int64) {
	seqCost, seqRows = e.SeqScanCost(rowCount)
	idxCost, idxRows = e.IndexScanCost(rowCount, selectivity)
	return idxCost < seqCost, seqCost, seqRows, idxCost, idxRows
}

// NestedLoopCost is build-nothing, probe-everything: left rows times
// right's per-probe cost (spec.md §4.4: "n·m").
func (e *CostEstimator) NestedLoopCost(leftRows, rightRows int64, leftCost, rightCost float64) float64 {
	return leftCost + rightCost + float64(leftRows)*float64(rightRows)*CPUTupleCost
}

// HashJoinCost builds a hash table over the smaller side, then probes with
// the larger (spec.md §4.4: "build + probe").
func (e *CostEstimator) HashJoinCost(buildRows, probeRows int64, buildCost, probeCost float64) float64 {
	return buildCost + probeCost + float64(buildRows)*CPUTupleCost + float64(probeRows)*CPUTupleCost
}

// JoinOutputRows estimates an inner-equality join's output as the smaller
// input side — a conservative default absent per-key distinct-value
// statistics for the join columns.
func JoinOutputRows(leftRows, rightRows int64) int64 {
	if leftRows < rightRows {
		return leftRows
	}
	return rightRows
}
