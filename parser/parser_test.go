package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/lexer"
)

func parseOneStmt(t *testing.T, sql string) ast.Stmt {
	t.Helper()
	p := New(lexer.New(sql))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "sql: %s", sql)
	require.Len(t, prog.Statements, 1)
	return prog.Statements[0]
}

func TestParseCreateTableWithConstraints(t *testing.T) {
	stmt := parseOneStmt(t, `CREATE TABLE widgets (
		name TEXT NOT NULL,
		price FLOAT4,
		PRIMARY KEY (name),
		UNIQUE (price)
	)`)
	ct, ok := stmt.(*ast.CreateTableStmt)
	require.True(t, ok)
	assert.Equal(t, "widgets", ct.Name)
	require.Len(t, ct.Columns, 2)
	assert.True(t, ct.Columns[0].NotNull)
	assert.Equal(t, []string{"name"}, ct.PrimaryKey)
	require.Len(t, ct.UniqueSets, 1)
	assert.Equal(t, []string{"price"}, ct.UniqueSets[0].Columns)
}

func TestParseCreateModel(t *testing.T) {
	stmt := parseOneStmt(t, `CREATE MODEL spam_filter FROM 'models/spam.bin'`)
	cm, ok := stmt.(*ast.CreateModelStmt)
	require.True(t, ok)
	assert.Equal(t, "spam_filter", cm.Name)
	assert.Equal(t, "models/spam.bin", cm.Path)
}

func TestParseDropTableIfExists(t *testing.T) {
	stmt := parseOneStmt(t, `DROP TABLE IF EXISTS widgets`)
	dt, ok := stmt.(*ast.DropTableStmt)
	require.True(t, ok)
	assert.True(t, dt.IfExists)
	assert.Equal(t, "widgets", dt.Name)
}

func TestParseInsertRewritesValuesIntoColumnAssigns(t *testing.T) {
	stmt := parseOneStmt(t, `INSERT INTO widgets (name, price) VALUES ('a', 1.5), ('b', 2)`)
	ins, ok := stmt.(*ast.InsertStmt)
	require.True(t, ok)
	assert.Equal(t, "widgets", ins.Table)
	require.Len(t, ins.Rows, 2)
	require.Len(t, ins.Rows[0].Assigns, 2)
	assert.Equal(t, "name", ins.Rows[0].Assigns[0].Column)
	assert.Equal(t, "price", ins.Rows[0].Assigns[1].Column)
}

func TestParseSelectWildcardAndWhere(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT * FROM widgets WHERE price > 1 AND name LIKE 'a%'`)
	sel, ok := stmt.(*ast.SelectStmt)
	require.True(t, ok)
	require.Len(t, sel.Projection, 1)
	assert.True(t, sel.Projection[0].Wildcard)
	require.NotNil(t, sel.Where)
	be, ok := sel.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "AND", be.Operator)
}

func TestParseSelectJoinOnClause(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT a.name FROM a LEFT JOIN b ON a.id = b.a_id`)
	sel := stmt.(*ast.SelectStmt)
	join, ok := sel.From.(*ast.JoinScan)
	require.True(t, ok)
	assert.Equal(t, ast.JoinLeft, join.Kind)
	require.NotNil(t, join.On)
}

func TestParseSelectOrderByLimit(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT name FROM widgets ORDER BY price DESC LIMIT 10`)
	sel := stmt.(*ast.SelectStmt)
	require.Len(t, sel.OrderBy, 1)
	assert.True(t, sel.OrderBy[0].Desc)
	require.NotNil(t, sel.Limit)
	lit, ok := sel.Limit.(*ast.IntegerLiteral)
	require.True(t, ok)
	assert.Equal(t, int64(10), lit.Value)
}

func TestParseUpdateSetWhere(t *testing.T) {
	stmt := parseOneStmt(t, `UPDATE widgets SET price = price + 1 WHERE name = 'a'`)
	up, ok := stmt.(*ast.UpdateStmt)
	require.True(t, ok)
	assert.Equal(t, "widgets", up.Table)
	require.Len(t, up.Assigns, 1)
	assert.Equal(t, "price", up.Assigns[0].Column)
	require.NotNil(t, up.Where)
}

func TestParseDeleteWhere(t *testing.T) {
	stmt := parseOneStmt(t, `DELETE FROM widgets WHERE name = 'a'`)
	del, ok := stmt.(*ast.DeleteStmt)
	require.True(t, ok)
	assert.Equal(t, "widgets", del.Table)
	require.NotNil(t, del.Where)
}

func TestParseCastExpr(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT CAST(price AS TEXT) FROM widgets`)
	sel := stmt.(*ast.SelectStmt)
	cast, ok := sel.Projection[0].Expr.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, "TEXT", cast.Type.Name)
}

func TestParseAggregateCallCountStar(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT COUNT(*) FROM widgets`)
	sel := stmt.(*ast.SelectStmt)
	agg, ok := sel.Projection[0].Expr.(*ast.AggregateCall)
	require.True(t, ok)
	assert.Equal(t, "COUNT", agg.Name)
	_, isStar := agg.Arg.(*ast.StarExpr)
	assert.True(t, isStar)
}

func TestParseScalarSubquery(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT (SELECT MAX(price) FROM widgets) FROM widgets`)
	sel := stmt.(*ast.SelectStmt)
	_, ok := sel.Projection[0].Expr.(*ast.ScalarSubquery)
	assert.True(t, ok)
}

func TestParseBeginCommitRollback(t *testing.T) {
	assert.IsType(t, &ast.BeginStmt{}, parseOneStmt(t, `BEGIN`))
	assert.IsType(t, &ast.CommitStmt{}, parseOneStmt(t, `COMMIT`))
	assert.IsType(t, &ast.RollbackStmt{}, parseOneStmt(t, `ROLLBACK`))
}

func TestParseOperatorPrecedence(t *testing.T) {
	stmt := parseOneStmt(t, `SELECT 1 + 2 * 3 FROM widgets`)
	sel := stmt.(*ast.SelectStmt)
	be := sel.Projection[0].Expr.(*ast.BinaryExpr)
	assert.Equal(t, "+", be.Operator)
	rhs, ok := be.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Operator)
}

func TestParseReportsErrorOnBadSyntax(t *testing.T) {
	p := New(lexer.New(`SELECT FROM WHERE`))
	p.ParseProgram()
	assert.NotEmpty(t, p.Errors())
}
