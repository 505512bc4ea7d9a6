package catalog

// ForeignKeyAction is the referential action taken when a parent row this
// foreign key points at is deleted or has its referenced column updated
// (spec.md §3). RustQL has no column DEFAULT clause, so unlike
// mjm918-tur/pkg/schema/schema.go's ForeignKeyAction this has no SetDefault
// member — SET DEFAULT has nothing to default to here.
type ForeignKeyAction int

const (
	FKNoAction ForeignKeyAction = iota
	FKCascade
	FKRestrict
	FKSetNull
)

func (a ForeignKeyAction) String() string {
	switch a {
	case FKCascade:
		return "CASCADE"
	case FKRestrict:
		return "RESTRICT"
	case FKSetNull:
		return "SET NULL"
	default:
		return "NO ACTION"
	}
}

// ForeignKey binds a child column to a parent table's column, with the
// actions to take when the parent row is deleted or updated (spec.md §3).
type ForeignKey struct {
	RefTable  string
	RefColumn string
	OnDelete  ForeignKeyAction
	OnUpdate  ForeignKeyAction
}

// fkReference names one child (table, column) pair whose ForeignKey points
// at a given parent (table, column).
type fkReference struct {
	ChildTable  string
	ChildColumn string
	FK          *ForeignKey
}

// referencesTo returns every child column across the catalog whose foreign
// key references (table, column) — the set a parent-side DELETE/UPDATE must
// walk to enforce spec.md §4.3's cascade/restrict/set-null rules.
func (c *Catalog) referencesTo(table, column string) []fkReference {
	var refs []fkReference
	for _, name := range c.tableOrder {
		t := c.tables[name]
		for _, col := range t.Columns {
			if col.ForeignKey != nil && col.ForeignKey.RefTable == table && col.ForeignKey.RefColumn == column {
				refs = append(refs, fkReference{ChildTable: t.Name, ChildColumn: col.Name, FK: col.ForeignKey})
			}
		}
	}
	return refs
}
