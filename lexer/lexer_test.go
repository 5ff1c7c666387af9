package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbui468/weaseldb/token"
)

func TestNextTokenCoversOperatorsAndDelimiters(t *testing.T) {
	input := `SELECT * FROM widgets WHERE price <= 5 AND name <> 'x';`
	toks := Tokenize(input)

	want := []token.Type{
		token.SELECT, token.STAR, token.FROM, token.IDENT, token.WHERE,
		token.IDENT, token.LTE, token.INT, token.AND, token.IDENT,
		token.NEQ, token.STRING, token.SEMICOLON, token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, w := range want {
		assert.Equal(t, w, toks[i].Type, "token %d (%q)", i, toks[i].Literal)
	}
}

func TestKeywordLookupIsCaseInsensitive(t *testing.T) {
	toks := Tokenize("select SeLeCt SELECT")
	for _, tok := range toks[:3] {
		assert.Equal(t, token.SELECT, tok.Type)
	}
}

func TestStringLiteralHasNoEscapeHandling(t *testing.T) {
	toks := Tokenize(`'hello world'`)
	require.Equal(t, token.STRING, toks[0].Type)
	assert.Equal(t, "hello world", toks[0].Literal)
}

func TestUnterminatedStringIsIllegal(t *testing.T) {
	toks := Tokenize(`'abc`)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestFloatAndIntLiterals(t *testing.T) {
	toks := Tokenize("12345 123.45")
	require.Len(t, toks, 3)
	assert.Equal(t, token.INT, toks[0].Type)
	assert.Equal(t, "12345", toks[0].Literal)
	assert.Equal(t, token.FLOAT, toks[1].Type)
	assert.Equal(t, "123.45", toks[1].Literal)
}

func TestByteaLiteral(t *testing.T) {
	toks := Tokenize(`\xABCD`)
	require.Equal(t, token.BYTEA, toks[0].Type)
	assert.Equal(t, "ABCD", toks[0].Literal)
}

func TestByteaLiteralRejectsOddLength(t *testing.T) {
	toks := Tokenize(`\xABC`)
	assert.Equal(t, token.ILLEGAL, toks[0].Type)
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("a\nb")
	tok := l.NextToken()
	assert.Equal(t, 1, tok.Pos.Line)
	tok = l.NextToken()
	assert.Equal(t, 2, tok.Pos.Line)
}
