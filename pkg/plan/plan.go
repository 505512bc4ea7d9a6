// Package plan is RustQL's logical planner (spec.md §4.4): it turns a
// parsed SELECT into a tree of PlanNodes, each carrying an estimated row
// count and cost, choosing between SeqScan/IndexScan access paths and
// NestedLoopJoin/HashJoin algorithms along the way.
//
// Grounded on mjm918-tur/pkg/sql/optimizer's PlanNode/CostEstimator shape;
// the teacher's page-oriented cost model (PAGE_READ_COST, B-tree traversal
// height, HNSW search cost) is replaced with spec.md §4.4's plain
// row-count-based formulas since RustQL has no on-disk pages or vector
// indexes.
package plan

import (
	"fmt"

	"rustql/pkg/sql/parser"
)

// PlanNode is one node of a logical query plan (spec.md §4.4).
type PlanNode interface {
	Kind() string
	EstimatedRows() int64
	EstimatedCost() float64
	Describe() string
	Children() []PlanNode
}

// SeqScan iterates a table's rows in insertion order. Alias is the name
// column references qualify this relation by in the rest of the query
// (the table's own name when the query gave it none).
type SeqScanNode struct {
	Table string
	Alias string
	Rows  int64
	Cost  float64
}

func (n *SeqScanNode) Kind() string           { return "SeqScan" }
func (n *SeqScanNode) EstimatedRows() int64   { return n.Rows }
func (n *SeqScanNode) EstimatedCost() float64 { return n.Cost }
func (n *SeqScanNode) Describe() string       { return fmt.Sprintf("table=%s", n.Table) }
func (n *SeqScanNode) Children() []PlanNode   { return nil }

// IndexScan is the access path chosen for a pushdown predicate on an
// indexed column. The executor evaluates Predicate on every row the index
// holds; it does not look up only the keys the predicate matches.
type IndexScanNode struct {
	Table     string
	Alias     string
	Index     string
	Column    string
	Predicate parser.Expression
	Rows      int64
	Cost      float64
}

func (n *IndexScanNode) Kind() string           { return "IndexScan" }
func (n *IndexScanNode) EstimatedRows() int64   { return n.Rows }
func (n *IndexScanNode) EstimatedCost() float64 { return n.Cost }
func (n *IndexScanNode) Describe() string {
	return fmt.Sprintf("index=%s table=%s col=%s", n.Index, n.Table, n.Column)
}
func (n *IndexScanNode) Children() []PlanNode { return nil }

// Filter re-evaluates a residual predicate on each input row.
type FilterNode struct {
	Input     PlanNode
	Predicate parser.Expression
	Rows      int64
	Cost      float64
}

func (n *FilterNode) Kind() string           { return "Filter" }
func (n *FilterNode) EstimatedRows() int64   { return n.Rows }
func (n *FilterNode) EstimatedCost() float64 { return n.Cost }
func (n *FilterNode) Describe() string       { return "predicate" }
func (n *FilterNode) Children() []PlanNode   { return []PlanNode{n.Input} }

// NestedLoopJoin probes Right once per Left row.
type NestedLoopJoinNode struct {
	Left, Right PlanNode
	JoinKind    parser.JoinKind
	On          parser.Expression
	Rows        int64
	Cost        float64
}

func (n *NestedLoopJoinNode) Kind() string           { return "NestedLoopJoin" }
func (n *NestedLoopJoinNode) EstimatedRows() int64   { return n.Rows }
func (n *NestedLoopJoinNode) EstimatedCost() float64 { return n.Cost }
func (n *NestedLoopJoinNode) Describe() string       { return joinKindName(n.JoinKind) }
func (n *NestedLoopJoinNode) Children() []PlanNode   { return []PlanNode{n.Left, n.Right} }

// HashJoin builds a hash table over the smaller side's join key, then
// probes it with the larger side. BuildLeft records which side the
// builder estimated as smaller (spec.md §4.4: "build the smaller side")
// without disturbing Left/Right's outer-join semantics.
type HashJoinNode struct {
	Left, Right       PlanNode
	JoinKind          parser.JoinKind
	LeftKey, RightKey parser.Expression
	BuildLeft         bool
	Rows              int64
	Cost              float64
}

func (n *HashJoinNode) Kind() string           { return "HashJoin" }
func (n *HashJoinNode) EstimatedRows() int64   { return n.Rows }
func (n *HashJoinNode) EstimatedCost() float64 { return n.Cost }
func (n *HashJoinNode) Describe() string       { return joinKindName(n.JoinKind) }
func (n *HashJoinNode) Children() []PlanNode   { return []PlanNode{n.Left, n.Right} }

func joinKindName(k parser.JoinKind) string {
	switch k {
	case parser.JoinLeft:
		return "kind=LEFT"
	case parser.JoinRight:
		return "kind=RIGHT"
	case parser.JoinFull:
		return "kind=FULL"
	default:
		return "kind=INNER"
	}
}

// AggregateExpr is one computed aggregate in the SELECT list, e.g.
// AVG(salary) or COUNT(*).
type AggregateExpr struct {
	FuncName string
	Distinct bool
	Arg      parser.Expression // nil for COUNT(*)
	Alias    string
}

// Aggregate partitions input rows by GroupBy (the whole input is one group
// when GroupBy is empty), computes Aggregates per group, and filters
// groups through Having.
type AggregateNode struct {
	Input      PlanNode
	GroupBy    []parser.Expression
	Aggregates []AggregateExpr
	Having     parser.Expression
	Rows       int64
	Cost       float64
}

func (n *AggregateNode) Kind() string           { return "Aggregate" }
func (n *AggregateNode) EstimatedRows() int64   { return n.Rows }
func (n *AggregateNode) EstimatedCost() float64 { return n.Cost }
func (n *AggregateNode) Describe() string       { return fmt.Sprintf("groups=%d", len(n.GroupBy)) }
func (n *AggregateNode) Children() []PlanNode   { return []PlanNode{n.Input} }

// Sort stably reorders rows by OrderBy, left to right.
type SortNode struct {
	Input   PlanNode
	OrderBy []parser.OrderByExpr
	Rows    int64
	Cost    float64
}

func (n *SortNode) Kind() string           { return "Sort" }
func (n *SortNode) EstimatedRows() int64   { return n.Rows }
func (n *SortNode) EstimatedCost() float64 { return n.Cost }
func (n *SortNode) Describe() string       { return fmt.Sprintf("keys=%d", len(n.OrderBy)) }
func (n *SortNode) Children() []PlanNode   { return []PlanNode{n.Input} }

// Limit skips Offset rows then emits at most Limit rows.
type LimitNode struct {
	Input  PlanNode
	Limit  *uint64
	Offset *uint64
	Rows   int64
	Cost   float64
}

func (n *LimitNode) Kind() string           { return "Limit" }
func (n *LimitNode) EstimatedRows() int64   { return n.Rows }
func (n *LimitNode) EstimatedCost() float64 { return n.Cost }
func (n *LimitNode) Describe() string {
	limit, offset := "none", int64(0)
	if n.Limit != nil {
		limit = fmt.Sprintf("%d", *n.Limit)
	}
	if n.Offset != nil {
		offset = int64(*n.Offset)
	}
	return fmt.Sprintf("limit=%s offset=%d", limit, offset)
}
func (n *LimitNode) Children() []PlanNode { return []PlanNode{n.Input} }

// Distinct dedups the projected tuple, implemented as a hash-based unique.
type DistinctNode struct {
	Input PlanNode
	Rows  int64
	Cost  float64
}

func (n *DistinctNode) Kind() string           { return "Distinct" }
func (n *DistinctNode) EstimatedRows() int64   { return n.Rows }
func (n *DistinctNode) EstimatedCost() float64 { return n.Cost }
func (n *DistinctNode) Describe() string       { return "hash-unique" }
func (n *DistinctNode) Children() []PlanNode   { return []PlanNode{n.Input} }

// Project evaluates the SELECT projection expressions; a Star projection
// expands to every column of the current row layout.
type ProjectNode struct {
	Input       PlanNode
	Projections []parser.Projection
	Rows        int64
	Cost        float64
}

func (n *ProjectNode) Kind() string           { return "Project" }
func (n *ProjectNode) EstimatedRows() int64   { return n.Rows }
func (n *ProjectNode) EstimatedCost() float64 { return n.Cost }
func (n *ProjectNode) Describe() string       { return fmt.Sprintf("cols=%d", len(n.Projections)) }
func (n *ProjectNode) Children() []PlanNode   { return []PlanNode{n.Input} }
