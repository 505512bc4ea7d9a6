package catalog

import (
	"fmt"
	"sync"

	"rustql/pkg/types"
)

// Catalog is the mapping table name -> Table, plus a global mapping index
// name -> Index (spec.md §3). It owns every mutation path: DDL, row
// insert/update/delete, index maintenance and foreign-key enforcement, and
// the snapshot/restore pair the session layer drives for transactions
// (spec.md §4.6).
type Catalog struct {
	mu             sync.RWMutex
	tables         map[string]*Table
	tableOrder     []string
	indexes        map[string]*Index
	indexOrder     []string
	indexesByTable map[string][]string
	stats          map[string]*TableStatistics
	txSnapshot     *snapshot
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		tables:         make(map[string]*Table),
		indexes:        make(map[string]*Index),
		indexesByTable: make(map[string][]string),
		stats:          make(map[string]*TableStatistics),
	}
}

// ---- DDL ----

// CreateTable registers a new table. Columns marked Unique get an implicit
// unique index, so INSERT/UPDATE enforce uniqueness through the same index
// machinery as an explicit CREATE INDEX.
func (c *Catalog) CreateTable(name string, columns []Column) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; ok {
		return ErrTableExists
	}
	for _, col := range columns {
		if col.ForeignKey == nil {
			continue
		}
		ref, ok := c.tables[col.ForeignKey.RefTable]
		if !ok {
			return fmt.Errorf("catalog: foreign key on %q.%q references unknown table %q", name, col.Name, col.ForeignKey.RefTable)
		}
		if ref.ColumnIndex(col.ForeignKey.RefColumn) == -1 {
			return fmt.Errorf("catalog: foreign key on %q.%q references unknown column %q.%q", name, col.Name, col.ForeignKey.RefTable, col.ForeignKey.RefColumn)
		}
	}

	t := newTable(name, columns)
	c.tables[name] = t
	c.tableOrder = append(c.tableOrder, name)

	for _, col := range columns {
		if col.Unique {
			idxName := uniqueIndexName(name, col.Name)
			if err := c.createIndexLocked(idxName, name, col.Name, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func uniqueIndexName(table, column string) string {
	return "__unique_" + table + "_" + column
}

// DropTable removes a table, its indexes and its statistics. It does not
// check for inbound foreign keys from other tables' column definitions;
// dropping a table that is still referenced leaves those FKs dangling,
// matching the teacher's DropTable which likewise performs no such check.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.tables[name]; !ok {
		return ErrTableNotFound
	}
	for _, idxName := range c.indexesByTable[name] {
		delete(c.indexes, idxName)
		c.indexOrder = removeString(c.indexOrder, idxName)
	}
	delete(c.indexesByTable, name)
	delete(c.tables, name)
	c.tableOrder = removeString(c.tableOrder, name)
	delete(c.stats, name)
	return nil
}

// RenameTable renames a table in place, updating every index and foreign
// key that names it.
func (c *Catalog) RenameTable(oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[oldName]
	if !ok {
		return ErrTableNotFound
	}
	if _, exists := c.tables[newName]; exists {
		return ErrTableExists
	}
	t.Name = newName
	delete(c.tables, oldName)
	c.tables[newName] = t
	for i, n := range c.tableOrder {
		if n == oldName {
			c.tableOrder[i] = newName
		}
	}
	for _, idxName := range c.indexesByTable[oldName] {
		c.indexes[idxName].TableName = newName
	}
	c.indexesByTable[newName] = c.indexesByTable[oldName]
	delete(c.indexesByTable, oldName)

	for _, other := range c.tables {
		for i := range other.Columns {
			if other.Columns[i].ForeignKey != nil && other.Columns[i].ForeignKey.RefTable == oldName {
				other.Columns[i].ForeignKey.RefTable = newName
			}
		}
	}
	if s, ok := c.stats[oldName]; ok {
		s.TableName = newName
		c.stats[newName] = s
		delete(c.stats, oldName)
	}
	return nil
}

// AddColumn appends a column to a table's schema; every existing row is
// widened with a Null in the new position (spec.md §3).
func (c *Catalog) AddColumn(table string, col Column) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	if t.ColumnIndex(col.Name) != -1 {
		return ErrColumnExists
	}
	t.Columns = append(t.Columns, col)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values, types.Null())
	}
	if col.Unique {
		idxName := uniqueIndexName(table, col.Name)
		if err := c.createIndexLocked(idxName, table, col.Name, true); err != nil {
			return err
		}
	}
	return nil
}

// DropColumn removes a column positionally from the schema and every row;
// a table must always retain at least one column.
func (c *Catalog) DropColumn(table, column string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	idx := t.ColumnIndex(column)
	if idx == -1 {
		return ErrColumnNotFound
	}
	if len(t.Columns) == 1 {
		return ErrLastColumn
	}
	for _, idxName := range c.indexesByTable[table] {
		if c.indexes[idxName].Column == column {
			delete(c.indexes, idxName)
			c.indexOrder = removeString(c.indexOrder, idxName)
			c.indexesByTable[table] = removeString(c.indexesByTable[table], idxName)
		}
	}
	t.Columns = append(t.Columns[:idx], t.Columns[idx+1:]...)
	for i := range t.Rows {
		t.Rows[i].Values = append(t.Rows[i].Values[:idx], t.Rows[i].Values[idx+1:]...)
	}
	return nil
}

// RenameColumn is schema-only; stored values are untouched.
func (c *Catalog) RenameColumn(table, oldName, newName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	idx := t.ColumnIndex(oldName)
	if idx == -1 {
		return ErrColumnNotFound
	}
	if t.ColumnIndex(newName) != -1 {
		return ErrColumnExists
	}
	t.Columns[idx].Name = newName
	for _, idxName := range c.indexesByTable[table] {
		if c.indexes[idxName].Column == oldName {
			c.indexes[idxName].Column = newName
		}
	}
	for _, other := range c.tables {
		for i := range other.Columns {
			fk := other.Columns[i].ForeignKey
			if fk != nil && fk.RefTable == table && fk.RefColumn == oldName {
				fk.RefColumn = newName
			}
		}
	}
	return nil
}

// ---- Read access ----

// GetTable returns the table, or nil if it doesn't exist.
func (c *Catalog) GetTable(name string) *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tables[name]
}

// ListTables returns table names in creation order.
func (c *Catalog) ListTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.tableOrder))
	copy(out, c.tableOrder)
	return out
}

// Scan returns a table's rows in insertion order (spec.md §4.5 SeqScan).
func (c *Catalog) Scan(table string) ([]Row, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tables[table]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t.Rows, nil
}

// ---- Indexes ----

// CreateIndex builds a new index over table.column, populating it from
// existing rows.
func (c *Catalog) CreateIndex(name, table, column string, unique bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createIndexLocked(name, table, column, unique)
}

func (c *Catalog) createIndexLocked(name, table, column string, unique bool) error {
	if _, ok := c.indexes[name]; ok {
		return ErrIndexExists
	}
	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	if t.ColumnIndex(column) == -1 {
		return ErrColumnNotFound
	}
	ix := newIndex(name, table, column, unique)
	colIdx := t.ColumnIndex(column)
	for _, row := range t.Rows {
		if err := ix.insert(row.Values[colIdx], row.ID); err != nil {
			return err
		}
	}
	c.indexes[name] = ix
	c.indexOrder = append(c.indexOrder, name)
	c.indexesByTable[table] = append(c.indexesByTable[table], name)
	return nil
}

// DropIndex removes a named index.
func (c *Catalog) DropIndex(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ix, ok := c.indexes[name]
	if !ok {
		return ErrIndexNotFound
	}
	delete(c.indexes, name)
	c.indexOrder = removeString(c.indexOrder, name)
	c.indexesByTable[ix.TableName] = removeString(c.indexesByTable[ix.TableName], name)
	return nil
}

// GetIndex returns an index by name, or nil.
func (c *Catalog) GetIndex(name string) *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes[name]
}

// IndexesForTable returns every index defined on a table, in creation
// order, for the planner's access-path selection (spec.md §4.4) and for
// executor index maintenance on INSERT/UPDATE/DELETE.
func (c *Catalog) IndexesForTable(table string) []*Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexesForTable(table)
}

func (c *Catalog) indexesForTable(table string) []*Index {
	names := c.indexesByTable[table]
	out := make([]*Index, 0, len(names))
	for _, n := range names {
		out = append(out, c.indexes[n])
	}
	return out
}

// IndexOnColumn returns the first index defined over table.column, or nil.
func (c *Catalog) IndexOnColumn(table, column string) *Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ix := range c.indexesForTable(table) {
		if ix.Column == column {
			return ix
		}
	}
	return nil
}

func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// ---- Row mutation ----

// InsertRow validates arity and column types (coercing Integer to Float
// for FLOAT columns), enforces child-side foreign keys and uniqueness, and
// appends the row, keeping every index on the table consistent before
// returning (spec.md §4.3, §4.5).
func (c *Catalog) InsertRow(table string, values []types.Value) (RowID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[table]
	if !ok {
		return 0, ErrTableNotFound
	}
	if len(values) != len(t.Columns) {
		return 0, ErrArityMismatch
	}
	coerced := make([]types.Value, len(values))
	for i, v := range values {
		cv, err := v.CoerceTo(t.Columns[i].Type)
		if err != nil {
			return 0, err
		}
		coerced[i] = cv
	}
	for i, col := range t.Columns {
		if col.ForeignKey != nil && !coerced[i].IsNull() {
			if !c.parentHasValue(col.ForeignKey.RefTable, col.ForeignKey.RefColumn, coerced[i]) {
				return 0, &FKViolation{Message: fmt.Sprintf("%s.%s=%s has no matching row in %s.%s",
					table, col.Name, coerced[i].String(), col.ForeignKey.RefTable, col.ForeignKey.RefColumn)}
			}
		}
	}

	indexes := c.indexesForTable(table)
	inserted := make([]int, 0, len(indexes))
	for i, ix := range indexes {
		colIdx := t.ColumnIndex(ix.Column)
		if err := ix.insert(coerced[colIdx], t.nextID+1); err != nil {
			for _, j := range inserted {
				t2 := indexes[j]
				t2.remove(coerced[t.ColumnIndex(t2.Column)], t.nextID+1)
			}
			return 0, err
		}
		inserted = append(inserted, i)
	}
	row := t.appendRow(coerced)
	return row.ID, nil
}

func (c *Catalog) parentHasValue(table, column string, v types.Value) bool {
	t, ok := c.tables[table]
	if !ok {
		return false
	}
	if ix := c.indexOnColumnLocked(table, column); ix != nil {
		return len(ix.Lookup(v)) > 0
	}
	colIdx := t.ColumnIndex(column)
	if colIdx == -1 {
		return false
	}
	for _, row := range t.Rows {
		if row.Values[colIdx] == v {
			return true
		}
	}
	return false
}

func (c *Catalog) indexOnColumnLocked(table, column string) *Index {
	for _, ix := range c.indexesForTable(table) {
		if ix.Column == column {
			return ix
		}
	}
	return nil
}

func (c *Catalog) removeRow(table string, id RowID) error {
	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	pos := t.RowByID(id)
	if pos == -1 {
		return nil
	}
	row := t.Rows[pos]
	for _, ix := range c.indexesForTable(table) {
		colIdx := t.ColumnIndex(ix.Column)
		ix.remove(row.Values[colIdx], id)
	}
	t.Rows = append(t.Rows[:pos], t.Rows[pos+1:]...)
	return nil
}

func (c *Catalog) setCellNull(table string, id RowID, colIdx int) error {
	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	pos := t.RowByID(id)
	if pos == -1 {
		return nil
	}
	old := t.Rows[pos].Values[colIdx]
	if old.IsNull() {
		return nil
	}
	for _, ix := range c.indexesForTable(table) {
		if t.ColumnIndex(ix.Column) == colIdx {
			ix.remove(old, id)
			_ = ix.insert(types.Null(), id)
		}
	}
	t.Rows[pos].Values[colIdx] = types.Null()
	return nil
}

type visitedKey struct {
	table string
	id    RowID
}

type cascadeAction struct {
	table      string
	id         RowID
	setNullCol int // -1 means "delete this row"
}

// planCascade walks the foreign-key graph breadth-first from (table, id),
// tracking visited (table, row) pairs so cycles resolve to a fixed point
// instead of looping (spec.md §4.3, §9).
func (c *Catalog) planCascade(table string, id RowID) ([]cascadeAction, error) {
	visited := map[visitedKey]bool{{table, id}: true}
	actions := []cascadeAction{{table: table, id: id, setNullCol: -1}}
	type queued struct {
		table string
		id    RowID
	}
	queue := []queued{{table, id}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		t := c.tables[cur.table]
		if t == nil {
			continue
		}
		pos := t.RowByID(cur.id)
		if pos == -1 {
			continue
		}
		row := t.Rows[pos]
		for i, col := range t.Columns {
			refs := c.referencesTo(cur.table, col.Name)
			if len(refs) == 0 {
				continue
			}
			val := row.Values[i]
			if val.IsNull() {
				continue
			}
			for _, ref := range refs {
				child := c.tables[ref.ChildTable]
				childColIdx := child.ColumnIndex(ref.ChildColumn)
				for _, cr := range child.Rows {
					if cr.Values[childColIdx] != val {
						continue
					}
					switch ref.FK.OnDelete {
					case FKRestrict, FKNoAction:
						return nil, &FKViolation{Message: fmt.Sprintf("row in %q is referenced by %q.%q",
							cur.table, ref.ChildTable, ref.ChildColumn)}
					case FKCascade:
						key := visitedKey{ref.ChildTable, cr.ID}
						if visited[key] {
							continue
						}
						visited[key] = true
						actions = append(actions, cascadeAction{table: ref.ChildTable, id: cr.ID, setNullCol: -1})
						queue = append(queue, queued{ref.ChildTable, cr.ID})
					case FKSetNull:
						actions = append(actions, cascadeAction{table: ref.ChildTable, id: cr.ID, setNullCol: childColIdx})
					}
				}
			}
		}
	}
	return actions, nil
}

func (c *Catalog) applyCascade(actions []cascadeAction) (int, error) {
	for _, a := range actions {
		if a.setNullCol >= 0 {
			if err := c.setCellNull(a.table, a.id, a.setNullCol); err != nil {
				return 0, err
			}
		}
	}
	deleted := 0
	for _, a := range actions {
		if a.setNullCol < 0 {
			if err := c.removeRow(a.table, a.id); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

// DeleteRows deletes the given row identifiers from table, applying
// whatever foreign-key actions child tables declare and returning the
// total number of rows removed, including cascaded deletes (spec.md
// §4.3, §4.5).
func (c *Catalog) DeleteRows(table string, ids []RowID) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tables[table]
	if !ok {
		return 0, ErrTableNotFound
	}
	total := 0
	for _, id := range ids {
		if t.RowByID(id) == -1 {
			continue
		}
		actions, err := c.planCascade(table, id)
		if err != nil {
			return total, err
		}
		n, err := c.applyCascade(actions)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// UpdateRow applies changes (column name -> new value) to one row,
// enforcing child-side foreign keys, propagating parent-side
// CASCADE/RESTRICT/SET NULL to children of a changed referenced column, and
// keeping indexes consistent (spec.md §4.3, §4.5).
func (c *Catalog) UpdateRow(table string, id RowID, changes map[string]types.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updateRow(table, id, changes, map[visitedKey]bool{{table, id}: true}, false)
}

// updateRow does the work of UpdateRow. cascaded is set when the change
// is an ON UPDATE CASCADE write of a parent's new key: the parent row only
// holds that key once the caller finishes, so the child-side FK check is
// skipped for it.
func (c *Catalog) updateRow(table string, id RowID, changes map[string]types.Value, visited map[visitedKey]bool, cascaded bool) error {
	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	pos := t.RowByID(id)
	if pos == -1 {
		return ErrRowNotFound
	}

	old := make([]types.Value, len(t.Rows[pos].Values))
	copy(old, t.Rows[pos].Values)
	next := make([]types.Value, len(old))
	copy(next, old)

	for colName, v := range changes {
		idx := t.ColumnIndex(colName)
		if idx == -1 {
			return ErrColumnNotFound
		}
		cv, err := v.CoerceTo(t.Columns[idx].Type)
		if err != nil {
			return err
		}
		next[idx] = cv
	}

	for colName := range changes {
		idx := t.ColumnIndex(colName)
		col := t.Columns[idx]
		if col.ForeignKey != nil && !next[idx].IsNull() && !cascaded {
			if !c.parentHasValue(col.ForeignKey.RefTable, col.ForeignKey.RefColumn, next[idx]) {
				return &FKViolation{Message: fmt.Sprintf("%s.%s=%s has no matching row in %s.%s",
					table, colName, next[idx].String(), col.ForeignKey.RefTable, col.ForeignKey.RefColumn)}
			}
		}
	}

	for colName := range changes {
		idx := t.ColumnIndex(colName)
		if old[idx] == next[idx] {
			continue
		}
		refs := c.referencesTo(table, colName)
		for _, ref := range refs {
			child := c.tables[ref.ChildTable]
			childColIdx := child.ColumnIndex(ref.ChildColumn)
			var matches []RowID
			for _, cr := range child.Rows {
				if cr.Values[childColIdx] == old[idx] {
					matches = append(matches, cr.ID)
				}
			}
			if len(matches) == 0 {
				continue
			}
			switch ref.FK.OnUpdate {
			case FKRestrict, FKNoAction:
				return &FKViolation{Message: fmt.Sprintf("row in %q is referenced by %q.%q",
					table, ref.ChildTable, ref.ChildColumn)}
			case FKCascade:
				for _, mid := range matches {
					key := visitedKey{ref.ChildTable, mid}
					if visited[key] {
						continue
					}
					visited[key] = true
					if err := c.updateRow(ref.ChildTable, mid, map[string]types.Value{ref.ChildColumn: next[idx]}, visited, true); err != nil {
						return err
					}
				}
			case FKSetNull:
				for _, mid := range matches {
					if err := c.setCellNull(ref.ChildTable, mid, childColIdx); err != nil {
						return err
					}
				}
			}
		}
	}

	for colName := range changes {
		idx := t.ColumnIndex(colName)
		if old[idx] == next[idx] {
			continue
		}
		for _, ix := range c.indexesForTable(table) {
			if t.ColumnIndex(ix.Column) == idx {
				ix.remove(old[idx], id)
				if err := ix.insert(next[idx], id); err != nil {
					// restore the removed entry before surfacing the violation
					_ = ix.insert(old[idx], id)
					return err
				}
			}
		}
	}
	t.Rows[pos].Values = next
	return nil
}

// ---- Transactions (spec.md §4.6) ----

type snapshot struct {
	tables         map[string]*Table
	tableOrder     []string
	indexes        map[string]*Index
	indexOrder     []string
	indexesByTable map[string][]string
	stats          map[string]*TableStatistics
}

func (c *Catalog) snapshotLocked() *snapshot {
	tables := make(map[string]*Table, len(c.tables))
	for k, v := range c.tables {
		tables[k] = v.clone()
	}
	indexes := make(map[string]*Index, len(c.indexes))
	for k, v := range c.indexes {
		indexes[k] = v.clone()
	}
	byTable := make(map[string][]string, len(c.indexesByTable))
	for k, v := range c.indexesByTable {
		cp := make([]string, len(v))
		copy(cp, v)
		byTable[k] = cp
	}
	stats := make(map[string]*TableStatistics, len(c.stats))
	for k, v := range c.stats {
		cp := *v
		stats[k] = &cp
	}
	return &snapshot{
		tables:         tables,
		tableOrder:     append([]string(nil), c.tableOrder...),
		indexes:        indexes,
		indexOrder:     append([]string(nil), c.indexOrder...),
		indexesByTable: byTable,
		stats:          stats,
	}
}

// InTransaction reports whether a BEGIN has been issued without a matching
// COMMIT/ROLLBACK.
func (c *Catalog) InTransaction() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.txSnapshot != nil
}

// Begin snapshots the entire catalog. Only one transaction may be active
// at a time.
func (c *Catalog) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txSnapshot != nil {
		return ErrTransactionOpen
	}
	c.txSnapshot = c.snapshotLocked()
	return nil
}

// Commit discards the BEGIN snapshot, making the current state permanent.
func (c *Catalog) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txSnapshot == nil {
		return ErrNoTransaction
	}
	c.txSnapshot = nil
	return nil
}

// Rollback restores the catalog to exactly the state captured at BEGIN.
func (c *Catalog) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txSnapshot == nil {
		return ErrNoTransaction
	}
	c.restoreLocked(c.txSnapshot)
	c.txSnapshot = nil
	return nil
}

func (c *Catalog) restoreLocked(s *snapshot) {
	c.tables = s.tables
	c.tableOrder = s.tableOrder
	c.indexes = s.indexes
	c.indexOrder = s.indexOrder
	c.indexesByTable = s.indexesByTable
	c.stats = s.stats
}
