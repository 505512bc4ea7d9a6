package parser

import (
	"testing"

	"rustql/pkg/sql/lexer"
)

func TestParser_Joins(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		verify func(t *testing.T, stmt *SelectStmt)
	}{
		{
			name:  "Explicit INNER JOIN",
			input: "SELECT * FROM t1 INNER JOIN t2 ON t1.id = t2.id",
			verify: func(t *testing.T, stmt *SelectStmt) {
				if stmt.From.Name != "t1" {
					t.Errorf("From.Name = %q, want t1", stmt.From.Name)
				}
				if len(stmt.Joins) != 1 {
					t.Fatalf("got %d joins, want 1", len(stmt.Joins))
				}
				join := stmt.Joins[0]
				if join.Kind != JoinInner {
					t.Errorf("Kind = %v, want JoinInner", join.Kind)
				}
				if join.Table.Name != "t2" {
					t.Errorf("Table.Name = %q, want t2", join.Table.Name)
				}
				cond, ok := join.On.(*BinaryExpr)
				if !ok || cond.Op != lexer.EQ {
					t.Error("On condition invalid")
				}
			},
		},
		{
			name:  "Basic JOIN (implicit Inner)",
			input: "SELECT * FROM t1 JOIN t2 ON t1.id = t2.id",
			verify: func(t *testing.T, stmt *SelectStmt) {
				if len(stmt.Joins) != 1 || stmt.Joins[0].Kind != JoinInner {
					t.Fatalf("expected one inner join, got %+v", stmt.Joins)
				}
			},
		},
		{
			name:  "LEFT JOIN",
			input: "SELECT * FROM t1 LEFT JOIN t2 ON t1.id = 2",
			verify: func(t *testing.T, stmt *SelectStmt) {
				if len(stmt.Joins) != 1 || stmt.Joins[0].Kind != JoinLeft {
					t.Fatalf("expected one left join, got %+v", stmt.Joins)
				}
			},
		},
		{
			name:  "LEFT OUTER JOIN",
			input: "SELECT * FROM t1 LEFT OUTER JOIN t2 ON t1.id = 2",
			verify: func(t *testing.T, stmt *SelectStmt) {
				if len(stmt.Joins) != 1 || stmt.Joins[0].Kind != JoinLeft {
					t.Fatalf("expected one left join, got %+v", stmt.Joins)
				}
			},
		},
		{
			name:  "Multi-way join",
			input: "SELECT * FROM A JOIN B ON A.id = B.id JOIN C ON B.id = C.id",
			verify: func(t *testing.T, stmt *SelectStmt) {
				if stmt.From.Name != "A" {
					t.Errorf("From.Name = %q, want A", stmt.From.Name)
				}
				if len(stmt.Joins) != 2 {
					t.Fatalf("got %d joins, want 2", len(stmt.Joins))
				}
				if stmt.Joins[0].Table.Name != "B" || stmt.Joins[1].Table.Name != "C" {
					t.Errorf("joins = %+v, want B then C", stmt.Joins)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.input)
			stmt, err := p.Parse()
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}

			sel, ok := stmt.(*SelectStmt)
			if !ok {
				t.Fatalf("Expected SelectStmt, got %T", stmt)
			}

			tt.verify(t, sel)
		})
	}
}
