package catalog

import "rustql/pkg/types"

// Index is an equality multimap over a single column's Values, mapping each
// distinct value to the set of row identifiers holding it (spec.md §3). It
// is the structure pkg/plan's IndexScan access path and pkg/exec's index
// maintenance rules operate on.
type Index struct {
	Name      string
	TableName string
	Column    string
	Unique    bool
	entries   map[types.Value][]RowID
}

func newIndex(name, table, column string, unique bool) *Index {
	return &Index{
		Name:      name,
		TableName: table,
		Column:    column,
		Unique:    unique,
		entries:   make(map[types.Value][]RowID),
	}
}

// Lookup returns the row identifiers associated with an exact value.
func (ix *Index) Lookup(v types.Value) []RowID {
	return ix.entries[v]
}

// DistinctCount is the number of distinct keys currently indexed, used by
// the planner's selectivity formulas (spec.md §4.4).
func (ix *Index) DistinctCount() int64 {
	return int64(len(ix.entries))
}

// Values returns every distinct key currently indexed, used to satisfy
// range/IN/BETWEEN pushdown predicates that must filter the whole map.
func (ix *Index) Values() []types.Value {
	vals := make([]types.Value, 0, len(ix.entries))
	for v := range ix.entries {
		vals = append(vals, v)
	}
	return vals
}

func (ix *Index) insert(v types.Value, id RowID) error {
	if ix.Unique {
		if existing := ix.entries[v]; len(existing) > 0 && !v.IsNull() {
			return ErrUniqueViolation
		}
	}
	ix.entries[v] = append(ix.entries[v], id)
	return nil
}

func (ix *Index) remove(v types.Value, id RowID) {
	ids := ix.entries[v]
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(ix.entries, v)
	} else {
		ix.entries[v] = ids
	}
}

func (ix *Index) clone() *Index {
	c := &Index{Name: ix.Name, TableName: ix.TableName, Column: ix.Column, Unique: ix.Unique,
		entries: make(map[types.Value][]RowID, len(ix.entries))}
	for k, v := range ix.entries {
		ids := make([]RowID, len(v))
		copy(ids, v)
		c.entries[k] = ids
	}
	return c
}
