package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rustql/pkg/catalog"
	"rustql/pkg/plan"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

func mustSelect(t *testing.T, sql string) *parser.SelectStmt {
	t.Helper()
	stmt, err := parser.New(sql).Parse()
	require.NoError(t, err)
	sel, ok := stmt.(*parser.SelectStmt)
	require.True(t, ok, "expected a SELECT, got %T", stmt)
	return sel
}

func TestBuilder_SeqScan_NoIndex(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("u", []catalog.Column{
		{Name: "id", Type: types.KindInteger}, {Name: "name", Type: types.KindText},
	}))
	for i := 1; i <= 5; i++ {
		_, err := cat.InsertRow("u", []types.Value{types.NewInteger(int64(i)), types.NewText("x")})
		require.NoError(t, err)
	}

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT * FROM u WHERE id = 3"))
	require.NoError(t, err)

	// No index on id: the access path beneath Project/Filter must be a
	// SeqScan, not an IndexScan (spec.md §4.4: index only wins when one
	// exists over the pushdown-eligible column).
	found := findNode(p, "SeqScan")
	require.NotNil(t, found, "expected a SeqScan node in the plan")
}

func TestBuilder_IndexScan_PreferredOverSeqScanOnEquality(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("u", []catalog.Column{
		{Name: "id", Type: types.KindInteger}, {Name: "name", Type: types.KindText},
	}))
	for i := 1; i <= 100; i++ {
		_, err := cat.InsertRow("u", []types.Value{types.NewInteger(int64(i)), types.NewText("x")})
		require.NoError(t, err)
	}
	require.NoError(t, cat.CreateIndex("idx_u_id", "u", "id", false))

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT * FROM u WHERE id = 42"))
	require.NoError(t, err)

	idx := findNode(p, "IndexScan")
	require.NotNil(t, idx, "expected the equality predicate to choose IndexScan once an index exists")
	seq := findNode(p, "SeqScan")
	require.Nil(t, seq, "SeqScan should not appear once IndexScan wins the access path")
}

func TestBuilder_HashJoin_OnEqualityPredicate(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("a", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	require.NoError(t, cat.CreateTable("b", []catalog.Column{{Name: "a_id", Type: types.KindInteger}, {Name: "v", Type: types.KindText}}))
	for i := 1; i <= 3; i++ {
		_, err := cat.InsertRow("a", []types.Value{types.NewInteger(int64(i))})
		require.NoError(t, err)
	}
	_, err := cat.InsertRow("b", []types.Value{types.NewInteger(1), types.NewText("x")})
	require.NoError(t, err)

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT a.id, b.v FROM a JOIN b ON a.id = b.a_id"))
	require.NoError(t, err)

	hj := findNode(p, "HashJoin")
	require.NotNil(t, hj, "a single-column equality join should choose HashJoin (spec.md §4.4)")
}

func TestBuilder_NestedLoopJoin_OnNonEqualityPredicate(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("a", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	require.NoError(t, cat.CreateTable("b", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	_, err := cat.InsertRow("a", []types.Value{types.NewInteger(1)})
	require.NoError(t, err)
	_, err = cat.InsertRow("b", []types.Value{types.NewInteger(2)})
	require.NoError(t, err)

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT * FROM a JOIN b ON a.id < b.id"))
	require.NoError(t, err)

	nl := findNode(p, "NestedLoopJoin")
	require.NotNil(t, nl, "a non-equality join predicate should fall back to NestedLoopJoin")
}

func TestBuilder_LimitWithoutOrderBy_PushedBelowProject(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("u", []catalog.Column{{Name: "id", Type: types.KindInteger}}))

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT id FROM u LIMIT 5"))
	require.NoError(t, err)

	// spec.md §4.4: "LIMIT without ORDER BY is moved above Project" means
	// Limit runs before Project in the pull direction - Project remains the
	// root (SELECT always projects last) but its Input is the Limit node,
	// not the raw scan, so Project never evaluates discarded rows.
	require.Equal(t, "Project", p.Kind())
	require.Len(t, p.Children(), 1)
	require.Equal(t, "Limit", p.Children()[0].Kind())
}

// TestBuilder_Aggregate_CollectsFromHavingAndOrderBy is the planner-level
// half of the fix for a HAVING/ORDER BY aggregate absent from the SELECT
// list: the AggregateNode must still carry an AggregateExpr for it, or
// pkg/exec has nothing to resolve the reference against.
func TestBuilder_Aggregate_CollectsFromHavingAndOrderBy(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("emp", []catalog.Column{
		{Name: "dept", Type: types.KindText}, {Name: "salary", Type: types.KindInteger},
	}))

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT dept FROM emp GROUP BY dept HAVING COUNT(*) > 1"))
	require.NoError(t, err)

	agg, ok := findNode(p, "Aggregate").(*plan.AggregateNode)
	require.True(t, ok, "expected an AggregateNode in the plan")
	require.Len(t, agg.Aggregates, 1, "COUNT(*) referenced only by HAVING must still be collected")
	assert.Equal(t, "COUNT", agg.Aggregates[0].FuncName)

	p2, err := b.Build(mustSelect(t, "SELECT dept FROM emp GROUP BY dept ORDER BY COUNT(*) DESC"))
	require.NoError(t, err)
	agg2, ok := findNode(p2, "Aggregate").(*plan.AggregateNode)
	require.True(t, ok, "expected an AggregateNode in the plan")
	require.Len(t, agg2.Aggregates, 1, "COUNT(*) referenced only by ORDER BY must still be collected")
}

// TestBuilder_Aggregate_DedupesSameAggregateAcrossClauses confirms an
// aggregate already in the SELECT list isn't counted twice just because
// HAVING references the same call.
func TestBuilder_Aggregate_DedupesSameAggregateAcrossClauses(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("emp", []catalog.Column{
		{Name: "dept", Type: types.KindText}, {Name: "salary", Type: types.KindInteger},
	}))

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT dept, AVG(salary) FROM emp GROUP BY dept HAVING AVG(salary) > 20"))
	require.NoError(t, err)

	agg, ok := findNode(p, "Aggregate").(*plan.AggregateNode)
	require.True(t, ok, "expected an AggregateNode in the plan")
	require.Len(t, agg.Aggregates, 1, "the same AVG(salary) call in SELECT and HAVING must collapse to one AggregateExpr")
}

func TestBuilder_CostAndRowsAreMonotonic(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.CreateTable("u", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	for i := 1; i <= 10; i++ {
		_, err := cat.InsertRow("u", []types.Value{types.NewInteger(int64(i))})
		require.NoError(t, err)
	}

	b := plan.NewBuilder(cat)
	p, err := b.Build(mustSelect(t, "SELECT id FROM u"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, p.EstimatedCost(), 0.0)
	require.EqualValues(t, 10, findNode(p, "SeqScan").EstimatedRows())
}

// findNode searches the plan tree (depth-first) for the first node whose
// Kind() matches want.
func findNode(n plan.PlanNode, want string) plan.PlanNode {
	if n == nil {
		return nil
	}
	if n.Kind() == want {
		return n
	}
	for _, c := range n.Children() {
		if found := findNode(c, want); found != nil {
			return found
		}
	}
	return nil
}
