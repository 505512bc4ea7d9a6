// Package persist serializes a catalog to and from the JSON document
// spec.md §6 defines: `{ "tables": { name: { columns, rows, indexes } } }`,
// ISO-8601 dates/times, booleans as JSON booleans, nulls as JSON null.
//
// Grounded on mjm918-tur/pkg/turdb/db.go's Open/Close file-handling shape
// (lock file, atomic replace); the teacher's page-oriented binary format
// is replaced with a single JSON document since RustQL's catalog is a
// plain in-memory structure with no page layout to preserve.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"rustql/pkg/catalog"
	"rustql/pkg/types"
)

// document is the on-disk shape (spec.md §6).
type document struct {
	Tables map[string]tableDoc `json:"tables"`
}

type tableDoc struct {
	Columns []columnDoc     `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Indexes []indexDoc      `json:"indexes,omitempty"`
}

type columnDoc struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Unique     bool           `json:"unique,omitempty"`
	ForeignKey *foreignKeyDoc `json:"foreign_key,omitempty"`
}

type foreignKeyDoc struct {
	RefTable  string `json:"ref_table"`
	RefColumn string `json:"ref_column"`
	OnDelete  string `json:"on_delete,omitempty"`
	OnUpdate  string `json:"on_update,omitempty"`
}

type indexDoc struct {
	Name   string `json:"name"`
	Table  string `json:"table"`
	Column string `json:"column"`
	Unique bool   `json:"unique,omitempty"`
}

// Load reads path and rebuilds a catalog from it. A missing file is not
// an error: it yields an empty catalog, the state of a freshly created
// database (spec.md §5: "the JSON file is read once on startup").
func Load(path string) (*catalog.Catalog, error) {
	cat := catalog.NewCatalog()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cat, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persist: reading %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("persist: parsing %s: %w", path, err)
	}

	names := make([]string, 0, len(doc.Tables))
	for name := range doc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		td := doc.Tables[name]
		cols := make([]catalog.Column, len(td.Columns))
		for i, cd := range td.Columns {
			kind, err := kindFromString(cd.Type)
			if err != nil {
				return nil, err
			}
			col := catalog.Column{Name: cd.Name, Type: kind, Unique: cd.Unique}
			if cd.ForeignKey != nil {
				col.ForeignKey = &catalog.ForeignKey{
					RefTable:  cd.ForeignKey.RefTable,
					RefColumn: cd.ForeignKey.RefColumn,
					OnDelete:  actionFromString(cd.ForeignKey.OnDelete),
					OnUpdate:  actionFromString(cd.ForeignKey.OnUpdate),
				}
			}
			cols[i] = col
		}
		if err := cat.CreateTable(name, cols); err != nil {
			return nil, fmt.Errorf("persist: recreating table %q: %w", name, err)
		}
		for _, rawRow := range td.Rows {
			values := make([]types.Value, len(cols))
			for i, raw := range rawRow {
				v, err := valueFromJSON(raw, cols[i].Type)
				if err != nil {
					return nil, fmt.Errorf("persist: table %q row value: %w", name, err)
				}
				values[i] = v
			}
			if _, err := cat.InsertRow(name, values); err != nil {
				return nil, fmt.Errorf("persist: restoring row in %q: %w", name, err)
			}
		}
		for _, id := range td.Indexes {
			// CreateTable has already rebuilt the implicit index of each
			// UNIQUE column, which Save writes out with the others.
			if cat.GetIndex(id.Name) != nil {
				continue
			}
			if err := cat.CreateIndex(id.Name, id.Table, id.Column, id.Unique); err != nil {
				return nil, fmt.Errorf("persist: recreating index %q: %w", id.Name, err)
			}
		}
	}
	return cat, nil
}

// Save renders cat to JSON and replaces path atomically: write to a
// temp file in the same directory, then os.Rename over the destination,
// so a crash mid-write never leaves a torn file (spec.md §5).
func Save(cat *catalog.Catalog, path string) error {
	doc := document{Tables: make(map[string]tableDoc)}
	for _, name := range cat.ListTables() {
		t := cat.GetTable(name)
		td := tableDoc{Columns: make([]columnDoc, len(t.Columns))}
		for i, c := range t.Columns {
			cd := columnDoc{Name: c.Name, Type: c.Type.String(), Unique: c.Unique}
			if c.ForeignKey != nil {
				cd.ForeignKey = &foreignKeyDoc{
					RefTable:  c.ForeignKey.RefTable,
					RefColumn: c.ForeignKey.RefColumn,
					OnDelete:  c.ForeignKey.OnDelete.String(),
					OnUpdate:  c.ForeignKey.OnUpdate.String(),
				}
			}
			td.Columns[i] = cd
		}
		rows, err := cat.Scan(name)
		if err != nil {
			return err
		}
		td.Rows = make([][]interface{}, len(rows))
		for i, r := range rows {
			rowOut := make([]interface{}, len(r.Values))
			for j, v := range r.Values {
				rowOut[j] = valueToJSON(v)
			}
			td.Rows[i] = rowOut
		}
		for _, ix := range cat.IndexesForTable(name) {
			td.Indexes = append(td.Indexes, indexDoc{Name: ix.Name, Table: ix.TableName, Column: ix.Column, Unique: ix.Unique})
		}
		doc.Tables[name] = td
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rustql-*.tmp")
	if err != nil {
		return fmt.Errorf("persist: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persist: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persist: replacing %s: %w", path, err)
	}
	return nil
}

func kindFromString(s string) (types.Kind, error) {
	switch s {
	case "NULL":
		return types.KindNull, nil
	case "INTEGER":
		return types.KindInteger, nil
	case "FLOAT":
		return types.KindFloat, nil
	case "TEXT":
		return types.KindText, nil
	case "BOOLEAN":
		return types.KindBoolean, nil
	case "DATE":
		return types.KindDate, nil
	case "TIME":
		return types.KindTime, nil
	case "DATETIME":
		return types.KindDateTime, nil
	default:
		return 0, fmt.Errorf("persist: unknown column type %q", s)
	}
}

// actionFromString tolerates an empty/unrecognized string as NO ACTION,
// per spec.md §6's "reading tolerates missing optional fields".
func actionFromString(s string) catalog.ForeignKeyAction {
	switch s {
	case "CASCADE":
		return catalog.FKCascade
	case "RESTRICT":
		return catalog.FKRestrict
	case "SET NULL":
		return catalog.FKSetNull
	default:
		return catalog.FKNoAction
	}
}

func valueToJSON(v types.Value) interface{} {
	switch v.Kind() {
	case types.KindNull:
		return nil
	case types.KindInteger:
		return v.Integer()
	case types.KindFloat:
		return v.Float()
	case types.KindText:
		return v.Text()
	case types.KindBoolean:
		return v.Boolean()
	case types.KindDate:
		return v.Time().Format(types.DateLayout)
	case types.KindTime:
		return v.Time().Format(types.TimeLayout)
	case types.KindDateTime:
		return v.Time().Format(types.DateTimeLayout)
	default:
		return nil
	}
}

func valueFromJSON(raw interface{}, kind types.Kind) (types.Value, error) {
	if raw == nil {
		return types.Null(), nil
	}
	switch kind {
	case types.KindInteger:
		n, ok := raw.(float64)
		if !ok {
			return types.Value{}, fmt.Errorf("expected number, got %T", raw)
		}
		return types.NewInteger(int64(n)), nil
	case types.KindFloat:
		n, ok := raw.(float64)
		if !ok {
			return types.Value{}, fmt.Errorf("expected number, got %T", raw)
		}
		return types.NewFloat(n), nil
	case types.KindText:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("expected string, got %T", raw)
		}
		return types.NewText(s), nil
	case types.KindBoolean:
		b, ok := raw.(bool)
		if !ok {
			return types.Value{}, fmt.Errorf("expected boolean, got %T", raw)
		}
		return types.NewBoolean(b), nil
	case types.KindDate:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("expected date string, got %T", raw)
		}
		return types.ParseDate(s)
	case types.KindTime:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("expected time string, got %T", raw)
		}
		return types.ParseTime(s)
	case types.KindDateTime:
		s, ok := raw.(string)
		if !ok {
			return types.Value{}, fmt.Errorf("expected datetime string, got %T", raw)
		}
		return types.ParseDateTime(s)
	default:
		return types.Value{}, fmt.Errorf("persist: unsupported column kind %v", kind)
	}
}
