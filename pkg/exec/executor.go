package exec

import (
	"fmt"
	"strings"

	"rustql/pkg/catalog"
	"rustql/pkg/plan"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

// Result is the outcome of executing one statement (spec.md §6): a row
// set with column names for SELECT, an affected-row count for DML, an OK
// marker for DDL/TX, or - for EXPLAIN, which "returns no data rows" -
// PlanLines holding the rendered plan tree instead.
type Result struct {
	Columns      []string
	Rows         [][]types.Value
	RowsAffected int64
	OK           bool
	PlanLines    []string
}

// Executor runs parsed statements directly against a catalog: DDL and DML
// mutate it in place, SELECT builds a plan.PlanNode tree via its Builder
// and pulls a materialized batch from it (spec.md §4.5).
//
// Grounded on mjm918-tur/pkg/sql/executor's Executor/Result shape; the
// teacher's pager/B-tree backed row access is replaced with direct
// catalog.Catalog calls since RustQL tables live entirely in memory.
type Executor struct {
	cat     *catalog.Catalog
	builder *plan.Builder
}

// New returns an Executor bound to cat.
func New(cat *catalog.Catalog) *Executor {
	return &Executor{cat: cat, builder: plan.NewBuilder(cat)}
}

// Plan builds the logical plan for a SELECT without executing it, for
// EXPLAIN and for any caller that wants to inspect access-path/join
// choices ahead of time.
func (e *Executor) Plan(sel *parser.SelectStmt) (plan.PlanNode, error) {
	return e.builder.Build(sel)
}

// Execute dispatches stmt to the appropriate DDL/DML/query handler.
func (e *Executor) Execute(stmt parser.Statement) (*Result, error) {
	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		return e.execCreateTable(s)
	case *parser.DropTableStmt:
		return e.execDropTable(s)
	case *parser.AlterTableStmt:
		return e.execAlterTable(s)
	case *parser.CreateIndexStmt:
		return e.execCreateIndex(s)
	case *parser.DropIndexStmt:
		return e.execDropIndex(s)
	case *parser.InsertStmt:
		return e.execInsert(s)
	case *parser.UpdateStmt:
		return e.execUpdate(s)
	case *parser.DeleteStmt:
		return e.execDelete(s)
	case *parser.SelectStmt:
		return e.execSelect(s)
	case *parser.ExplainStmt:
		return e.execExplain(s)
	default:
		return nil, fmt.Errorf("exec: statement type %T is not executable directly (transaction statements are pkg/session's responsibility)", stmt)
	}
}

func columnDefToCatalog(cd parser.ColumnDef) catalog.Column {
	col := catalog.Column{Name: cd.Name, Type: cd.Type, Unique: cd.Unique}
	if cd.ForeignKey != nil {
		col.ForeignKey = &catalog.ForeignKey{
			RefTable:  cd.ForeignKey.RefTable,
			RefColumn: cd.ForeignKey.RefColumn,
			OnDelete:  catalog.ForeignKeyAction(cd.ForeignKey.OnDelete),
			OnUpdate:  catalog.ForeignKeyAction(cd.ForeignKey.OnUpdate),
		}
	}
	return col
}

func (e *Executor) execCreateTable(s *parser.CreateTableStmt) (*Result, error) {
	cols := make([]catalog.Column, len(s.Columns))
	for i, cd := range s.Columns {
		cols[i] = columnDefToCatalog(cd)
	}
	if err := e.cat.CreateTable(s.TableName, cols); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (e *Executor) execDropTable(s *parser.DropTableStmt) (*Result, error) {
	if err := e.cat.DropTable(s.TableName); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (e *Executor) execAlterTable(s *parser.AlterTableStmt) (*Result, error) {
	var err error
	switch s.Op {
	case parser.AlterAddColumn:
		err = e.cat.AddColumn(s.TableName, columnDefToCatalog(s.AddColumn))
	case parser.AlterDropColumn:
		err = e.cat.DropColumn(s.TableName, s.ColumnName)
	case parser.AlterRenameTable:
		err = e.cat.RenameTable(s.TableName, s.NewName)
	case parser.AlterRenameColumn:
		err = e.cat.RenameColumn(s.TableName, s.ColumnName, s.NewName)
	default:
		return nil, fmt.Errorf("exec: unsupported ALTER TABLE operation")
	}
	if err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (e *Executor) execCreateIndex(s *parser.CreateIndexStmt) (*Result, error) {
	if err := e.cat.CreateIndex(s.IndexName, s.TableName, s.Column, false); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

func (e *Executor) execDropIndex(s *parser.DropIndexStmt) (*Result, error) {
	if err := e.cat.DropIndex(s.IndexName); err != nil {
		return nil, err
	}
	return &Result{OK: true}, nil
}

// execInsert evaluates each VALUES row's expressions (which per spec.md
// §4.2's grammar are constants, not column references, so they need no
// row context) and widens a partial column list out to the table's full
// schema order, Null-filling whatever was omitted, before handing the
// row to the catalog for arity/type/FK/uniqueness enforcement.
func (e *Executor) execInsert(s *parser.InsertStmt) (*Result, error) {
	t := e.cat.GetTable(s.TableName)
	if t == nil {
		return nil, catalog.ErrTableNotFound
	}

	targetIdx := make([]int, len(t.Columns))
	for i := range targetIdx {
		targetIdx[i] = -1
	}
	if s.Columns == nil {
		for i := range t.Columns {
			if i < len(t.Columns) {
				targetIdx[i] = i
			}
		}
	} else {
		for listPos, name := range s.Columns {
			idx := t.ColumnIndex(name)
			if idx == -1 {
				return nil, fmt.Errorf("exec: unknown column %q in INSERT column list", name)
			}
			targetIdx[idx] = listPos
		}
	}

	var affected int64
	for _, rowExprs := range s.Rows {
		if s.Columns == nil && len(rowExprs) != len(t.Columns) {
			return nil, ErrArityMismatch
		}
		values := make([]types.Value, len(t.Columns))
		for colIdx, listPos := range targetIdx {
			if listPos == -1 {
				values[colIdx] = types.Null()
				continue
			}
			if listPos >= len(rowExprs) {
				return nil, ErrArityMismatch
			}
			v, err := e.evalScalar(nil, nil, nil, rowExprs[listPos])
			if err != nil {
				return nil, err
			}
			values[colIdx] = v
		}
		if _, err := e.cat.InsertRow(s.TableName, values); err != nil {
			return nil, err
		}
		affected++
	}
	return &Result{OK: true, RowsAffected: affected}, nil
}

// matchingRowIDs evaluates where against every current row of table and
// returns the identifiers of rows it passes, snapshotting the id list
// before any mutation so UPDATE/DELETE don't re-evaluate a predicate
// against rows a cascade has already touched.
func (e *Executor) matchingRowIDs(t *catalog.Table, where parser.Expression) ([]catalog.RowID, error) {
	cols := colsForTable(t, "")
	var ids []catalog.RowID
	for _, row := range t.Rows {
		if where == nil {
			ids = append(ids, row.ID)
			continue
		}
		tri, err := e.evalPredicate(cols, execRow(row.Values), nil, where)
		if err != nil {
			return nil, err
		}
		if tri.passes() {
			ids = append(ids, row.ID)
		}
	}
	return ids, nil
}

// execUpdate evaluates WHERE and the SET assignments against each
// matched row's current values (so `SET balance = balance + 100`
// resolves `balance` to the pre-update value), building every row's full
// change set before applying any of them - cascades triggered by an
// earlier UpdateRow must not affect which rows or values a later one
// sees (spec.md §4.3, §4.5).
func (e *Executor) execUpdate(s *parser.UpdateStmt) (*Result, error) {
	t := e.cat.GetTable(s.TableName)
	if t == nil {
		return nil, catalog.ErrTableNotFound
	}
	ids, err := e.matchingRowIDs(t, s.Where)
	if err != nil {
		return nil, err
	}
	cols := colsForTable(t, "")

	type pending struct {
		id      catalog.RowID
		changes map[string]types.Value
	}
	var planned []pending
	for _, id := range ids {
		pos := t.RowByID(id)
		if pos == -1 {
			continue
		}
		row := execRow(t.Rows[pos].Values)
		changes := make(map[string]types.Value, len(s.Assignments))
		for _, asg := range s.Assignments {
			v, err := e.evalScalar(cols, row, nil, asg.Value)
			if err != nil {
				return nil, err
			}
			changes[asg.Column] = v
		}
		planned = append(planned, pending{id: id, changes: changes})
	}

	var affected int64
	for _, p := range planned {
		if err := e.cat.UpdateRow(s.TableName, p.id, p.changes); err != nil {
			return nil, err
		}
		affected++
	}
	return &Result{OK: true, RowsAffected: affected}, nil
}

func (e *Executor) execDelete(s *parser.DeleteStmt) (*Result, error) {
	t := e.cat.GetTable(s.TableName)
	if t == nil {
		return nil, catalog.ErrTableNotFound
	}
	ids, err := e.matchingRowIDs(t, s.Where)
	if err != nil {
		return nil, err
	}
	if _, err := e.cat.DeleteRows(s.TableName, ids); err != nil {
		return nil, err
	}
	// RowsAffected counts the target table's rows; rows a cascade removes
	// from child tables are not included.
	return &Result{OK: true, RowsAffected: int64(len(ids))}, nil
}

func (e *Executor) execSelect(s *parser.SelectStmt) (*Result, error) {
	b, err := e.runSelect(s, nil)
	if err != nil {
		return nil, err
	}
	return &Result{Columns: headerNames(b.Cols), Rows: toValueRows(b.Rows)}, nil
}

func toValueRows(rows []execRow) [][]types.Value {
	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		out[i] = []types.Value(r)
	}
	return out
}

// execExplain renders the SELECT's plan tree as one line per node,
// indented by depth, in the form `Kind(details) rows=<n> cost=<c>`
// (spec.md §6). EXPLAIN returns no data rows - only PlanLines.
func (e *Executor) execExplain(s *parser.ExplainStmt) (*Result, error) {
	p, err := e.builder.Build(s.Select)
	if err != nil {
		return nil, err
	}
	var lines []string
	renderPlan(p, 0, &lines)
	return &Result{OK: true, PlanLines: lines}, nil
}

func renderPlan(node plan.PlanNode, depth int, lines *[]string) {
	indent := strings.Repeat("  ", depth)
	line := fmt.Sprintf("%s%s(%s) rows=%d cost=%.2f", indent, node.Kind(), node.Describe(), node.EstimatedRows(), node.EstimatedCost())
	*lines = append(*lines, line)
	for _, c := range node.Children() {
		renderPlan(c, depth+1, lines)
	}
}
