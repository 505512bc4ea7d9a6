package exec

import "rustql/pkg/types"

// colMeta names one column of a batch: its owning table (or alias) and
// its column name. Join output concatenates the left and right side's
// colMeta slices (spec.md §4.5 Project: "for joins, both sides
// concatenated with qualification table.column").
type colMeta struct {
	Table string
	Name  string
}

// execRow is one row's values. The column layout it belongs to travels
// alongside it on the enclosing batch rather than per row, since every
// row produced by one plan node shares the same layout.
type execRow []types.Value

func (r execRow) clone() execRow {
	out := make(execRow, len(r))
	copy(out, r)
	return out
}

// batch is the unit plan-node evaluation works over (spec.md §1: "a
// tree-walking executor over row batches"): a column layout plus the
// rows that share it. Cols is kept even for a zero-row batch so joins and
// Project can still determine output shape from an empty side.
type batch struct {
	Cols []colMeta
	Rows []execRow
}

// indexOf returns the position of a (table, name) reference within cols,
// or -1. An unqualified reference (table == "") matches the first column
// with that name; a qualified one must match both table and name.
func indexOf(cols []colMeta, table, name string) int {
	for i, c := range cols {
		if c.Name != name {
			continue
		}
		if table == "" || c.Table == table {
			return i
		}
	}
	return -1
}

func concatCols(left, right []colMeta) []colMeta {
	out := make([]colMeta, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

func concatRow(left, right execRow) execRow {
	out := make(execRow, 0, len(left)+len(right))
	out = append(out, left...)
	out = append(out, right...)
	return out
}

// nullRow returns a row of n values, every one Null - how an unmatched
// outer-join side is padded (spec.md §4.5).
func nullRow(n int) execRow {
	out := make(execRow, n)
	for i := range out {
		out[i] = types.Null()
	}
	return out
}

// headerNames renders display column names for a layout: unqualified
// when a name is unambiguous across tables, "table.name" when two
// differently-tabled columns share a bare name (spec.md §4.5 Project).
func headerNames(cols []colMeta) []string {
	counts := make(map[string]int, len(cols))
	for _, c := range cols {
		counts[c.Name]++
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if counts[c.Name] > 1 && c.Table != "" {
			out[i] = c.Table + "." + c.Name
		} else {
			out[i] = c.Name
		}
	}
	return out
}
