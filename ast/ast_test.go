package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbui468/weaseldb/token"
)

func TestBinaryExprString(t *testing.T) {
	e := &BinaryExpr{
		Left:     &IntegerLiteral{Token: token.Token{Literal: "1"}, Value: 1},
		Operator: "+",
		Right:    &IntegerLiteral{Token: token.Token{Literal: "2"}, Value: 2},
	}
	assert.Equal(t, "(1 + 2)", e.String())
}

func TestLikeExprStringIncludesNotAndSimilar(t *testing.T) {
	e := &LikeExpr{
		Left:    &Identifier{Value: "name"},
		Pattern: &StringLiteral{Value: "a%"},
		Not:     true,
		Similar: true,
	}
	assert.Equal(t, "(name NOT SIMILAR TO 'a%')", e.String())
}

func TestJoinScanStringIncludesOnClause(t *testing.T) {
	j := &JoinScan{
		Kind:  JoinLeft,
		Left:  &TableRef{Name: "a"},
		Right: &TableRef{Name: "b"},
		On:    &Identifier{Value: "true"},
	}
	assert.Equal(t, "a LEFT JOIN b ON true", j.String())
}

func TestProgramStringJoinsStatements(t *testing.T) {
	prog := &Program{Statements: []Stmt{&BeginStmt{}, &CommitStmt{}}}
	assert.Equal(t, "BEGIN\nCOMMIT\n", prog.String())
}

func TestColumnRefStringQualifiedVsUnqualified(t *testing.T) {
	assert.Equal(t, "price", (&ColumnRef{Column: "price"}).String())
	assert.Equal(t, "widgets.price", (&ColumnRef{Relation: "widgets", Column: "price"}).String())
}
