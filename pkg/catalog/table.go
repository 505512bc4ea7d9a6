package catalog

import "rustql/pkg/types"

// RowID is a stable row identifier, monotonically assigned on insert within
// a table. Using an identifier rather than an array index means index
// entries and in-flight cursors survive deletes mid-statement (spec.md §9,
// "Row identity").
type RowID uint64

// Column describes one column of a Table (spec.md §3).
type Column struct {
	Name       string
	Type       types.Kind
	Unique     bool
	ForeignKey *ForeignKey
}

// Row is a fixed-arity ordered sequence of Values, plus the stable
// identifier that survives renumbering.
type Row struct {
	ID     RowID
	Values []types.Value
}

// Table holds one table's schema and data. Row order is insertion order
// unless a SELECT's ORDER BY reorders the *output*; the stored order never
// changes except by ALTER TABLE column projection.
type Table struct {
	Name    string
	Columns []Column
	Rows    []Row
	nextID  RowID
}

func newTable(name string, columns []Column) *Table {
	return &Table{Name: name, Columns: columns}
}

// ColumnIndex returns the position of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the column definition by name, or nil.
func (t *Table) Column(name string) *Column {
	i := t.ColumnIndex(name)
	if i == -1 {
		return nil
	}
	return &t.Columns[i]
}

// RowByID returns the row position in t.Rows with the given id, or -1.
func (t *Table) RowByID(id RowID) int {
	for i := range t.Rows {
		if t.Rows[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Table) appendRow(values []types.Value) Row {
	t.nextID++
	row := Row{ID: t.nextID, Values: values}
	t.Rows = append(t.Rows, row)
	return row
}

// clone deep-copies a Table for the transaction snapshot
// (Catalog.snapshotLocked).
func (t *Table) clone() *Table {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	for i := range cols {
		if t.Columns[i].ForeignKey != nil {
			fk := *t.Columns[i].ForeignKey
			cols[i].ForeignKey = &fk
		}
	}
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		vals := make([]types.Value, len(r.Values))
		copy(vals, r.Values)
		rows[i] = Row{ID: r.ID, Values: vals}
	}
	return &Table{Name: t.Name, Columns: cols, Rows: rows, nextID: t.nextID}
}
