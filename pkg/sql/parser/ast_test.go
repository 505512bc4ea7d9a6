package parser

import "testing"

func TestOrderByExpr(t *testing.T) {
	tests := []struct {
		name string
		desc bool
	}{
		{"Ascending", false},
		{"Descending", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := OrderByExpr{Expr: &ColumnRef{Name: "price"}, Desc: tt.desc}
			if ob.Desc != tt.desc {
				t.Errorf("Desc = %v, want %v", ob.Desc, tt.desc)
			}
		})
	}
}

func TestFunctionCallStar(t *testing.T) {
	fc := &FunctionCall{Name: "COUNT", Star: true}
	var _ Expression = fc
	if !fc.Star {
		t.Error("expected Star to be true")
	}
	if fc.Arg != nil {
		t.Error("expected Arg to be nil for COUNT(*)")
	}
}

func TestFunctionCallDistinct(t *testing.T) {
	fc := &FunctionCall{Name: "COUNT", Distinct: true, Arg: &ColumnRef{Name: "id"}}
	var _ Expression = fc
	if !fc.Distinct {
		t.Error("expected Distinct to be true")
	}
	if fc.Arg == nil {
		t.Error("expected Arg to be set")
	}
}

func TestForeignKeyRefActions(t *testing.T) {
	fk := &ForeignKeyRef{RefTable: "orders", RefColumn: "id", OnDelete: FKCascade, OnUpdate: FKRestrict}
	if fk.OnDelete.String() != "CASCADE" {
		t.Errorf("OnDelete.String() = %q, want CASCADE", fk.OnDelete.String())
	}
	if fk.OnUpdate.String() != "RESTRICT" {
		t.Errorf("OnUpdate.String() = %q, want RESTRICT", fk.OnUpdate.String())
	}
}

func TestAlterTableStmtKinds(t *testing.T) {
	tests := []struct {
		name string
		op   AlterOpKind
	}{
		{"AddColumn", AlterAddColumn},
		{"DropColumn", AlterDropColumn},
		{"RenameTable", AlterRenameTable},
		{"RenameColumn", AlterRenameColumn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := &AlterTableStmt{TableName: "t", Op: tt.op}
			var _ Statement = stmt
			if stmt.Op != tt.op {
				t.Errorf("Op = %v, want %v", stmt.Op, tt.op)
			}
		})
	}
}

func TestSelectStmtShape(t *testing.T) {
	limit := uint64(10)
	sel := &SelectStmt{
		Projections: []Projection{{Star: true}},
		From:        TableRef{Name: "users"},
		Where:       &BinaryExpr{Left: &ColumnRef{Name: "id"}, Op: 0, Right: &Literal{}},
		Limit:       &limit,
	}
	var _ Statement = sel
	if sel.From.Name != "users" {
		t.Errorf("From.Name = %q, want users", sel.From.Name)
	}
	if sel.Limit == nil || *sel.Limit != 10 {
		t.Error("expected Limit to be 10")
	}
}

func TestExistsExprAndInExpr(t *testing.T) {
	sub := &SelectStmt{Projections: []Projection{{Star: true}}, From: TableRef{Name: "orders"}}
	ex := &ExistsExpr{Not: true, Subquery: sub}
	var _ Expression = ex
	if !ex.Not {
		t.Error("expected Not to be true")
	}

	in := &InExpr{Expr: &ColumnRef{Name: "id"}, List: []Expression{&Literal{}}}
	var _ Expression = in
	if in.Subquery != nil {
		t.Error("expected Subquery to be nil when List is set")
	}
}
