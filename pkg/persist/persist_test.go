package persist_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"rustql/pkg/catalog"
	"rustql/pkg/persist"
	"rustql/pkg/types"
)

func TestLoad_MissingFileYieldsEmptyCatalog(t *testing.T) {
	cat, err := persist.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	require.Empty(t, cat.ListTables())
}

func TestSaveLoad_RoundTripsRowsAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("people", []catalog.Column{
		{Name: "id", Type: types.KindInteger, Unique: true},
		{Name: "name", Type: types.KindText},
		{Name: "balance", Type: types.KindFloat},
		{Name: "active", Type: types.KindBoolean},
	}))
	_, err := cat.InsertRow("people", []types.Value{
		types.NewInteger(1), types.NewText("Ada"), types.NewFloat(12.5), types.NewBoolean(true),
	})
	require.NoError(t, err)
	_, err = cat.InsertRow("people", []types.Value{
		types.NewInteger(2), types.NewText("Grace"), types.Null(), types.NewBoolean(false),
	})
	require.NoError(t, err)
	require.NoError(t, cat.CreateIndex("idx_people_name", "people", "name", false))

	require.NoError(t, persist.Save(cat, path))

	loaded, err := persist.Load(path)
	require.NoError(t, err)

	rows, err := loaded.Scan("people")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Ada", rows[0].Values[1].Text())
	require.InDelta(t, 12.5, rows[0].Values[2].AsFloat(), 0.0001)
	require.True(t, rows[0].Values[3].Boolean())
	require.True(t, rows[1].Values[2].IsNull())

	idx := loaded.IndexOnColumn("people", "name")
	require.NotNil(t, idx)
}

func TestSaveLoad_RoundTripsDateTimeValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("events", []catalog.Column{
		{Name: "d", Type: types.KindDate},
		{Name: "t", Type: types.KindTime},
		{Name: "dt", Type: types.KindDateTime},
	}))
	d, err := types.ParseDate("2026-08-03")
	require.NoError(t, err)
	tm, err := types.ParseTime("14:30:00")
	require.NoError(t, err)
	dt, err := types.ParseDateTime("2026-08-03T14:30:00")
	require.NoError(t, err)
	_, err = cat.InsertRow("events", []types.Value{d, tm, dt})
	require.NoError(t, err)

	require.NoError(t, persist.Save(cat, path))

	loaded, err := persist.Load(path)
	require.NoError(t, err)
	rows, err := loaded.Scan("events")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].Values[0].Time().Equal(d.Time()))
	require.True(t, rows[0].Values[2].Time().Equal(dt.Time()))
}

func TestSaveLoad_RoundTripsForeignKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")

	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("parent", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	require.NoError(t, cat.CreateTable("child", []catalog.Column{
		{Name: "parent_id", Type: types.KindInteger, ForeignKey: &catalog.ForeignKey{
			RefTable: "parent", RefColumn: "id", OnDelete: catalog.FKCascade,
		}},
	}))
	_, err := cat.InsertRow("parent", []types.Value{types.NewInteger(1)})
	require.NoError(t, err)
	_, err = cat.InsertRow("child", []types.Value{types.NewInteger(1)})
	require.NoError(t, err)

	require.NoError(t, persist.Save(cat, path))

	loaded, err := persist.Load(path)
	require.NoError(t, err)
	table := loaded.GetTable("child")
	require.NotNil(t, table)
	fk := table.Column("parent_id").ForeignKey
	require.NotNil(t, fk)
	require.Equal(t, "parent", fk.RefTable)
	require.Equal(t, catalog.FKCascade, fk.OnDelete)

	_, err = loaded.DeleteRows("parent", []catalog.RowID{1})
	require.NoError(t, err)
	childRows, err := loaded.Scan("child")
	require.NoError(t, err)
	require.Empty(t, childRows)
}

func TestSave_AtomicReplace_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "db.json")

	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("t", []catalog.Column{{Name: "a", Type: types.KindInteger}}))
	require.NoError(t, persist.Save(cat, path))

	entries, err := filepath.Glob(filepath.Join(dir, ".rustql-*.tmp"))
	require.NoError(t, err)
	require.Empty(t, entries, "temp file should be renamed away, not left behind")
}
