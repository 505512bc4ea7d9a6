// Package exec is RustQL's tree-walking executor (spec.md §4.5): it runs a
// plan.PlanNode tree, executes DDL/DML directly against the catalog, and
// evaluates expressions under spec.md §3's three-valued logic. Each plan
// node computes its whole output as a materialized batch before its parent
// reads it; rows are not pulled lazily one at a time.
//
// Grounded on mjm918-tur/pkg/sql/executor's Executor/Result shape. The
// teacher's RowIterator pull model (Next/Value/Err/Close) and its
// B-tree/pager-backed TableScanIterator are not carried over: a scan walks
// a catalog.Table's row slice directly, since RustQL tables live entirely
// in memory (spec.md §1).
package exec

import "errors"

// ErrArityMismatch reports an INSERT row whose value count doesn't match
// the target table's column count (spec.md §7).
var ErrArityMismatch = errors.New("exec: row arity does not match column count")

// SubqueryCardinalityError reports a scalar subquery that produced more
// than one row, or a row with more than one column (spec.md §7). IN and
// EXISTS subqueries accept any number of rows and never report it.
type SubqueryCardinalityError struct {
	Message string
}

func (e *SubqueryCardinalityError) Error() string {
	return "subquery cardinality error: " + e.Message
}

// TransactionStateError reports BEGIN issued inside an active transaction,
// or COMMIT/ROLLBACK issued outside one (spec.md §7).
type TransactionStateError struct {
	Message string
}

func (e *TransactionStateError) Error() string {
	return "transaction state error: " + e.Message
}
