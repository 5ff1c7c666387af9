package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/catalog"
	"github.com/tbui468/weaseldb/datum"
	"github.com/tbui468/weaseldb/kv"
	"github.com/tbui468/weaseldb/kv/memengine"
	"github.com/tbui468/weaseldb/lexer"
	"github.com/tbui468/weaseldb/parser"
)

func parseOne(t *testing.T, sql string) ast.Stmt {
	t.Helper()
	p := parser.New(lexer.New(sql))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "sql: %s", sql)
	require.Len(t, prog.Statements, 1)
	return prog.Statements[0]
}

func newTxn(t *testing.T) kv.Txn {
	t.Helper()
	e := memengine.New()
	require.NoError(t, catalog.EnsureColumnFamilies(e))
	txn, err := e.Begin()
	require.NoError(t, err)
	return txn
}

func mustPlan(t *testing.T, txn kv.Txn, sql string) Plan {
	t.Helper()
	az := New(txn, false)
	plan, err := az.Analyze(parseOne(t, sql))
	require.NoError(t, err, "sql: %s", sql)
	return plan
}

func TestAnalyzeCreateTablePrependsRowidAndBuildsPrimaryIndex(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL, price FLOAT4, UNIQUE (name))`)
	ct, ok := plan.(*CreateTablePlan)
	require.True(t, ok)

	require.Equal(t, "_rowid", ct.Schema.Attributes[0].Column)
	assert.True(t, ct.Schema.Attributes[0].NotNull)
	assert.Equal(t, []int{0}, ct.Schema.Primary().Columns, "no explicit PRIMARY KEY falls back to _rowid")
	require.Len(t, ct.Schema.Indexes, 2)
	assert.Equal(t, "name", ct.Schema.Attributes[ct.Schema.Indexes[1].Columns[0]].Column)
}

func TestAnalyzeCreateTableUniqueDefaultsToNullsDistinct(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT, UNIQUE (name))`)
	ct := plan.(*CreateTablePlan)
	assert.True(t, ct.Schema.Indexes[1].NullsDistinct)
}

func TestAnalyzeCreateTableUniqueNullsNotDistinct(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT, UNIQUE (name) NULLS NOT DISTINCT)`)
	ct := plan.(*CreateTablePlan)
	assert.False(t, ct.Schema.Indexes[1].NullsDistinct)
}

func TestAnalyzeCreateTableTablePrimaryKeyPromotesNotNull(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT, PRIMARY KEY (name))`)
	ct := plan.(*CreateTablePlan)
	pos, err := ct.Schema.Attributes.Resolve("name")
	require.NoError(t, err)
	assert.True(t, ct.Schema.Attributes[pos].NotNull)
}

func TestAnalyzeCreateTableRejectsDuplicateName(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT)`)
	ct := plan.(*CreateTablePlan)
	require.NoError(t, catalog.PutSchema(txn, ct.Schema))

	az := New(txn, false)
	_, err := az.Analyze(parseOne(t, `CREATE TABLE widgets (name TEXT)`))
	assert.Error(t, err)
}

func TestAnalyzeSelectAppendsOrderByGhostColumn(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL, price FLOAT4)`)
	require.NoError(t, catalog.PutSchema(txn, plan.(*CreateTablePlan).Schema))

	sel := mustPlan(t, txn, `SELECT name FROM widgets ORDER BY price DESC`)
	sp, ok := sel.(*SelectPlan)
	require.True(t, ok)
	// name + a ghost "price" column appended for ORDER BY, not in the
	// final output attrs.
	assert.Equal(t, 1, sp.Project.GhostCount)
	assert.Len(t, sp.Project.Projection, 2)
	require.Len(t, sp.Project.OrderBy, 1)
	assert.Equal(t, 1, sp.Project.OrderBy[0].Pos)
	assert.True(t, sp.Project.OrderBy[0].Desc)
}

func TestAnalyzeGroupByIsRejected(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL, price FLOAT4)`)
	require.NoError(t, catalog.PutSchema(txn, plan.(*CreateTablePlan).Schema))

	az := New(txn, false)
	_, err := az.Analyze(parseOne(t, `SELECT name, SUM(price) FROM widgets GROUP BY name`))
	assert.Error(t, err, "GROUP BY/HAVING are parsed but rejected at analysis time")
}

func TestAnalyzeInsertRejectsRowidAssignment(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL)`)
	require.NoError(t, catalog.PutSchema(txn, plan.(*CreateTablePlan).Schema))

	az := New(txn, false)
	_, err := az.Analyze(parseOne(t, `INSERT INTO widgets (_rowid) VALUES (1)`))
	assert.Error(t, err)
}

func TestAnalyzeInsertCastsCompatibleType(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL, price FLOAT4)`)
	require.NoError(t, catalog.PutSchema(txn, plan.(*CreateTablePlan).Schema))

	ins := mustPlan(t, txn, `INSERT INTO widgets (name, price) VALUES ('a', 5)`).(*InsertPlan)
	require.Len(t, ins.Rows, 1)
	// price is FLOAT4, 5 parses as Int8; the assign must carry a CastPlan.
	var sawCast bool
	for _, a := range ins.Rows[0] {
		if _, ok := a.Value.(*CastPlan); ok {
			sawCast = true
		}
	}
	assert.True(t, sawCast, "Int8 literal assigned to a FLOAT4 column should be wrapped in a CastPlan")
}

func TestAnalyzeAggregateCountIsAlwaysInt8(t *testing.T) {
	txn := newTxn(t)
	plan := mustPlan(t, txn, `CREATE TABLE widgets (name TEXT NOT NULL, price FLOAT4)`)
	require.NoError(t, catalog.PutSchema(txn, plan.(*CreateTablePlan).Schema))

	sel := mustPlan(t, txn, `SELECT COUNT(*) FROM widgets`).(*SelectPlan)
	require.Len(t, sel.Project.Projection, 1)
	assert.Equal(t, datum.Int8, sel.Project.Projection[0].Expr.Type())
}

func TestAnalyzeBeginCommitLegality(t *testing.T) {
	txn := newTxn(t)

	az := New(txn, false)
	_, err := az.Analyze(parseOne(t, `COMMIT`))
	assert.Error(t, err, "COMMIT outside a transaction must be rejected")

	azOpen := New(txn, true)
	_, err = azOpen.Analyze(parseOne(t, `BEGIN`))
	assert.Error(t, err, "BEGIN inside an already-open transaction must be rejected")

	_, err = azOpen.Analyze(parseOne(t, `COMMIT`))
	assert.NoError(t, err)
}
