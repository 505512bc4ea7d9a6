package catalog

import "time"

// TableStatistics and ColumnStatistics feed the planner's cost model
// (spec.md §4.4): row_count per table, distinct_count per indexed column.
//
// Grounded on mjm918-tur/pkg/schema/statistics.go; the teacher's
// Histogram/HistogramBucket/MinValue/MaxValue/AvgWidth fields are dropped
// since spec.md's selectivity formulas only ever consult DistinctCount and
// NullCount, never a bucketed distribution or value bounds.
type TableStatistics struct {
	TableName    string
	RowCount     int64
	LastAnalyzed time.Time
	ColumnStats  map[string]*ColumnStatistics
}

type ColumnStatistics struct {
	ColumnName    string
	DistinctCount int64
	NullCount     int64
}

// EqualitySelectivity estimates the fraction of rows an `= value` predicate
// passes: 1/distinct_count, or a conservative 0.01 when nothing is known
// yet (spec.md §4.4).
func (cs *ColumnStatistics) EqualitySelectivity() float64 {
	if cs.DistinctCount <= 0 {
		return 0.01
	}
	return 1.0 / float64(cs.DistinctCount)
}

// NullFraction estimates the share of rows holding Null in this column.
func (cs *ColumnStatistics) NullFraction(totalRows int64) float64 {
	if totalRows <= 0 {
		return 0
	}
	return float64(cs.NullCount) / float64(totalRows)
}

// GetTableStatistics returns the stored statistics for a table, or nil if
// none have been computed.
func (c *Catalog) GetTableStatistics(table string) *TableStatistics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats[table]
}

// UpdateTableStatistics replaces the statistics recorded for a table.
func (c *Catalog) UpdateTableStatistics(table string, stats *TableStatistics) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tables[table]; !ok {
		return ErrTableNotFound
	}
	c.stats[table] = stats
	return nil
}

// Analyze recomputes row_count and per-indexed-column distinct_count from
// the table's current contents. Planner code calls this (or relies on
// incrementally maintained counts) to keep estimates non-stale beyond the
// statement that last touched the table, per spec.md §4.4.
func (c *Catalog) Analyze(table string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[table]
	if !ok {
		return ErrTableNotFound
	}
	stats := &TableStatistics{
		TableName:    table,
		RowCount:     int64(len(t.Rows)),
		LastAnalyzed: time.Now(),
		ColumnStats:  make(map[string]*ColumnStatistics, len(t.Columns)),
	}
	for _, ix := range c.indexesForTable(table) {
		cs := &ColumnStatistics{ColumnName: ix.Column, DistinctCount: ix.DistinctCount()}
		colIdx := t.ColumnIndex(ix.Column)
		for _, row := range t.Rows {
			if row.Values[colIdx].IsNull() {
				cs.NullCount++
			}
		}
		stats.ColumnStats[ix.Column] = cs
	}
	c.stats[table] = stats
	return nil
}
