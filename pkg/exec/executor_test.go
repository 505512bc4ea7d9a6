package exec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rustql/pkg/catalog"
	"rustql/pkg/exec"
	"rustql/pkg/sql/parser"
	"rustql/pkg/types"
)

// run parses and executes one statement against ex, failing the test on
// any parse or execution error.
func run(t *testing.T, ex *exec.Executor, sql string) *exec.Result {
	t.Helper()
	stmt, err := parser.New(sql).Parse()
	require.NoError(t, err, "parsing %q", sql)
	res, err := ex.Execute(stmt)
	require.NoError(t, err, "executing %q", sql)
	return res
}

func newExec() (*catalog.Catalog, *exec.Executor) {
	cat := catalog.NewCatalog()
	return cat, exec.New(cat)
}

// TestExecutor_BasicDMLAndSelect is spec.md §8 scenario 1.
func TestExecutor_BasicDMLAndSelect(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE u (id INT, name TEXT)")
	run(t, ex, "INSERT INTO u VALUES (1,'A'),(2,'B')")
	res := run(t, ex, "SELECT * FROM u WHERE id>=2")
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 2, res.Rows[0][0].Integer())
	assert.Equal(t, "B", res.Rows[0][1].Text())
}

// TestExecutor_OrderByLimitOffset is spec.md §8 scenario 2.
func TestExecutor_OrderByLimitOffset(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE u (id INT, name TEXT)")
	run(t, ex, "INSERT INTO u VALUES (1,'A'),(2,'B'),(3,'C'),(4,'D')")
	res := run(t, ex, "SELECT name FROM u ORDER BY id DESC LIMIT 2 OFFSET 1")
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "C", res.Rows[0][0].Text())
	assert.Equal(t, "B", res.Rows[1][0].Text())
}

// TestExecutor_GroupByHaving is spec.md §8 scenario 3.
func TestExecutor_GroupByHaving(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE emp (dept TEXT, salary INT)")
	run(t, ex, "INSERT INTO emp VALUES ('x',10),('x',20),('y',30),('y',40)")
	res := run(t, ex, "SELECT dept, AVG(salary) FROM emp GROUP BY dept HAVING AVG(salary)>20")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "y", res.Rows[0][0].Text())
	assert.InDelta(t, 35.0, res.Rows[0][1].AsFloat(), 0.0001)
}

// TestExecutor_HavingOnAggregateNotInSelectList covers an aggregate
// referenced only by HAVING, never projected — a plain
// `GROUP BY ... HAVING COUNT(*) > N` must not error as "used outside an
// aggregate query".
func TestExecutor_HavingOnAggregateNotInSelectList(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE emp (dept TEXT, salary INT)")
	run(t, ex, "INSERT INTO emp VALUES ('x',10),('x',20),('y',30)")
	res := run(t, ex, "SELECT dept FROM emp GROUP BY dept HAVING COUNT(*) > 1")
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "x", res.Rows[0][0].Text())
}

// TestExecutor_OrderByOnAggregateNotInSelectList covers the same gap for
// ORDER BY: an aggregate named only there must still resolve.
func TestExecutor_OrderByOnAggregateNotInSelectList(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE emp (dept TEXT, salary INT)")
	run(t, ex, "INSERT INTO emp VALUES ('x',10),('y',20),('y',30),('y',40)")
	res := run(t, ex, "SELECT dept FROM emp GROUP BY dept ORDER BY COUNT(*) DESC")
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "y", res.Rows[0][0].Text())
	assert.Equal(t, "x", res.Rows[1][0].Text())
}

// TestExecutor_LeftJoinNoMatch is spec.md §8 scenario 4.
func TestExecutor_LeftJoinNoMatch(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE a (id INT)")
	run(t, ex, "CREATE TABLE b (a_id INT, v TEXT)")
	run(t, ex, "INSERT INTO a VALUES (1),(2)")
	run(t, ex, "INSERT INTO b VALUES (1,'x')")
	res := run(t, ex, "SELECT a.id, b.v FROM a LEFT JOIN b ON a.id=b.a_id ORDER BY a.id")
	require.Len(t, res.Rows, 2)
	assert.EqualValues(t, 1, res.Rows[0][0].Integer())
	assert.Equal(t, "x", res.Rows[0][1].Text())
	assert.EqualValues(t, 2, res.Rows[1][0].Integer())
	assert.True(t, res.Rows[1][1].IsNull())
}

// TestExecutor_ForeignKeyCascadeDelete is spec.md §8 scenario 5.
func TestExecutor_ForeignKeyCascadeDelete(t *testing.T) {
	cat, ex := newExec()
	require.NoError(t, cat.CreateTable("parent", []catalog.Column{{Name: "id", Type: types.KindInteger}}))
	require.NoError(t, cat.CreateTable("child", []catalog.Column{
		{Name: "pid", Type: types.KindInteger, ForeignKey: &catalog.ForeignKey{RefTable: "parent", RefColumn: "id", OnDelete: catalog.FKCascade}},
	}))
	run(t, ex, "INSERT INTO parent VALUES (1),(2)")
	run(t, ex, "INSERT INTO child VALUES (1),(1),(2)")

	res := run(t, ex, "DELETE FROM parent WHERE id=1")
	assert.EqualValues(t, 1, res.RowsAffected)

	childRows, err := cat.Scan("child")
	require.NoError(t, err)
	require.Len(t, childRows, 1)
	assert.EqualValues(t, 2, childRows[0].Values[0].Integer())

	parentRows, err := cat.Scan("parent")
	require.NoError(t, err)
	require.Len(t, parentRows, 1)
	assert.EqualValues(t, 2, parentRows[0].Values[0].Integer())
}

func TestExecutor_DistinctDedupesProjectedTuple(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (a INT)")
	run(t, ex, "INSERT INTO t VALUES (1),(1),(2)")
	res := run(t, ex, "SELECT DISTINCT a FROM t ORDER BY a")
	require.Len(t, res.Rows, 2)
}

func TestExecutor_ScalarSubquery(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (a INT)")
	run(t, ex, "INSERT INTO t VALUES (1),(2),(3)")
	res := run(t, ex, "SELECT a FROM t WHERE a > (SELECT AVG(a) FROM t)")
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 3, res.Rows[0][0].Integer())
}

func TestExecutor_ScalarSubquery_MultiRowIsCardinalityError(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (a INT)")
	run(t, ex, "INSERT INTO t VALUES (1),(2)")
	stmt, err := parser.New("SELECT (SELECT a FROM t) FROM t").Parse()
	require.NoError(t, err)
	_, err = ex.Execute(stmt)
	require.Error(t, err)
	var cardErr *exec.SubqueryCardinalityError
	assert.ErrorAs(t, err, &cardErr)
}

func TestExecutor_Exists(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE a (id INT)")
	run(t, ex, "CREATE TABLE b (a_id INT)")
	run(t, ex, "INSERT INTO a VALUES (1),(2)")
	run(t, ex, "INSERT INTO b VALUES (1)")
	res := run(t, ex, "SELECT id FROM a WHERE EXISTS (SELECT 1 FROM b WHERE b.a_id = a.id) ORDER BY id")
	require.Len(t, res.Rows, 1)
	assert.EqualValues(t, 1, res.Rows[0][0].Integer())
}

func TestExecutor_InsertArityMismatch(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (a INT, b INT)")
	stmt, err := parser.New("INSERT INTO t VALUES (1)").Parse()
	require.NoError(t, err)
	_, err = ex.Execute(stmt)
	assert.ErrorIs(t, err, exec.ErrArityMismatch)
}

func TestExecutor_UpdateReferencesPreUpdateValue(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (balance INT)")
	run(t, ex, "INSERT INTO t VALUES (100)")
	res := run(t, ex, "UPDATE t SET balance = balance + 50")
	assert.EqualValues(t, 1, res.RowsAffected)
	sel := run(t, ex, "SELECT balance FROM t")
	assert.EqualValues(t, 150, sel.Rows[0][0].Integer())
}

func TestExecutor_Explain_ReturnsNoRows(t *testing.T) {
	_, ex := newExec()
	run(t, ex, "CREATE TABLE t (a INT)")
	res := run(t, ex, "EXPLAIN SELECT * FROM t")
	assert.Nil(t, res.Rows)
	assert.NotEmpty(t, res.PlanLines)
}
