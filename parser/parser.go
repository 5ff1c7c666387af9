// Package parser implements a recursive-descent parser for WeaselDB's
// query language, producing an ast.Program from a token stream.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbui468/weaseldb/ast"
	"github.com/tbui468/weaseldb/lexer"
	"github.com/tbui468/weaseldb/token"
)

// Operator precedence, lowest to highest, per spec 4.3.
const (
	_ int = iota
	LOWEST
	OR_PREC
	AND_PREC
	EQUALITY // = <> IS [NOT] NULL LIKE [NOT LIKE] SIMILAR TO
	RELATIONAL
	ADDITIVE
	MULTIPLICATIVE
	PREFIX
	CALL
)

var precedences = map[token.Type]int{
	token.OR:      OR_PREC,
	token.AND:     AND_PREC,
	token.EQ:      EQUALITY,
	token.NEQ:     EQUALITY,
	token.IS:      EQUALITY,
	token.LIKE:    EQUALITY,
	token.SIMILAR: EQUALITY,
	token.NOT:     EQUALITY, // only meaningful as the start of NOT LIKE/SIMILAR TO
	token.LT:      RELATIONAL,
	token.LTE:     RELATIONAL,
	token.GT:      RELATIONAL,
	token.GTE:     RELATIONAL,
	token.PLUS:    ADDITIVE,
	token.MINUS:   ADDITIVE,
	token.STAR:    MULTIPLICATIVE,
	token.SLASH:   MULTIPLICATIVE,
}

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parser is a one-token-lookahead recursive-descent parser, with a
// second look-ahead (PeekTwo) to disambiguate `NOT LIKE`/`NOT SIMILAR TO`
// from a prefix NOT.
type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken      token.Token
	peekToken     token.Token
	peekTwoToken  token.Token

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

// New creates a Parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentOrColumnRef)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.BYTEA, p.parseByteaLiteral)
	p.registerPrefix(token.TRUE, p.parseBoolLiteral)
	p.registerPrefix(token.FALSE, p.parseBoolLiteral)
	p.registerPrefix(token.NULL, p.parseNullLiteral)
	p.registerPrefix(token.MINUS, p.parseUnaryExpr)
	p.registerPrefix(token.NOT, p.parseUnaryExpr)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrSubquery)
	p.registerPrefix(token.CAST, p.parseCastExpr)
	p.registerPrefix(token.AVG, p.parseAggregateCall)
	p.registerPrefix(token.COUNT, p.parseAggregateCall)
	p.registerPrefix(token.MAX, p.parseAggregateCall)
	p.registerPrefix(token.MIN, p.parseAggregateCall)
	p.registerPrefix(token.SUM, p.parseAggregateCall)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.AND, token.OR} {
		p.registerInfix(t, p.parseBinaryExpr)
	}
	p.registerInfix(token.IS, p.parseIsNullExpr)
	p.registerInfix(token.LIKE, p.parseLikeExpr)
	p.registerInfix(token.SIMILAR, p.parseLikeExpr)
	p.registerInfix(token.NOT, p.parseNotInfixExpr)

	p.nextToken()
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

// Errors returns the syntax errors accumulated while parsing. The parser
// fails fast: the first error stops statement parsing, so this slice
// never holds more than one entry, but it mirrors the multi-error shape
// examples elsewhere in the ecosystem use for recovering parsers.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.peekTwoToken
	p.peekTwoToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }
func (p *Parser) peekTwoTokenIs(t token.Type) bool { return p.peekTwoToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: expected next token to be %s, got %s instead",
		p.peekToken.Pos.Line, t, p.peekToken.Type))
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("line %d: %s", p.curToken.Pos.Line, fmt.Sprintf(format, args...)))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) failed() bool { return len(p.errors) > 0 }

// ParseProgram parses a batch of semicolon-separated statements.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}

	for !p.curTokenIs(token.EOF) && !p.failed() {
		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if p.failed() {
			return program
		}
		program.Statements = append(program.Statements, stmt)

		if p.curTokenIs(token.SEMICOLON) {
			p.nextToken()
		} else if !p.curTokenIs(token.EOF) {
			p.errorf("expected ';' or end of input, got %s", p.curToken.Type)
			return program
		}
	}

	return program
}

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Type {
	case token.CREATE:
		return p.parseCreate()
	case token.DROP:
		return p.parseDrop()
	case token.INSERT:
		return p.parseInsert()
	case token.SELECT:
		return p.parseSelect()
	case token.UPDATE:
		return p.parseUpdate()
	case token.DELETE:
		return p.parseDelete()
	case token.DESCRIBE:
		return p.parseDescribe()
	case token.BEGIN:
		tok := p.curToken
		p.nextToken()
		return &ast.BeginStmt{Token: tok}
	case token.COMMIT:
		tok := p.curToken
		p.nextToken()
		return &ast.CommitStmt{Token: tok}
	case token.ROLLBACK:
		tok := p.curToken
		p.nextToken()
		return &ast.RollbackStmt{Token: tok}
	default:
		p.errorf("unexpected token %s at start of statement", p.curToken.Type)
		return nil
	}
}

// -----------------------------------------------------------------------------
// DDL
// -----------------------------------------------------------------------------

func (p *Parser) parseCreate() ast.Stmt {
	tok := p.curToken
	switch p.peekToken.Type {
	case token.TABLE:
		p.nextToken()
		return p.parseCreateTable(tok)
	case token.MODEL:
		p.nextToken()
		return p.parseCreateModel(tok)
	default:
		p.errorf("expected TABLE or MODEL after CREATE, got %s", p.peekToken.Type)
		return nil
	}
}

func (p *Parser) parseCreateTable(tok token.Token) ast.Stmt {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.CreateTableStmt{Token: tok, Name: p.curToken.Literal}

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()

	for {
		if p.curTokenIs(token.PRIMARY) {
			p.nextToken()
			if !p.curTokenIs(token.KEY) {
				p.errorf("expected KEY after PRIMARY, got %s", p.curToken.Type)
				return nil
			}
			p.nextToken()
			cols, ok := p.parseColumnNameList()
			if !ok {
				return nil
			}
			stmt.PrimaryKey = cols
		} else if p.curTokenIs(token.UNIQUE) {
			p.nextToken()
			cols, ok := p.parseColumnNameList()
			if !ok {
				return nil
			}
			uc := &ast.UniqueConstraint{Columns: cols, NullsDistinct: true}
			if p.curTokenIs(token.NULLS) {
				p.nextToken()
				if p.curTokenIs(token.NOT) {
					uc.NullsDistinct = false
					p.nextToken()
				}
				if !p.curTokenIs(token.DISTINCT_KW) {
					p.errorf("expected DISTINCT after NULLS [NOT], got %s", p.curToken.Type)
					return nil
				}
				p.nextToken()
			}
			stmt.UniqueSets = append(stmt.UniqueSets, uc)
		} else {
			col, ok := p.parseColumnDef()
			if !ok {
				return nil
			}
			stmt.Columns = append(stmt.Columns, col)
		}

		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()

	return stmt
}

func (p *Parser) parseColumnNameList() ([]string, bool) {
	if !p.curTokenIs(token.LPAREN) {
		p.errorf("expected '(', got %s", p.curToken.Type)
		return nil, false
	}
	p.nextToken()
	var cols []string
	for {
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected column name, got %s", p.curToken.Type)
			return nil, false
		}
		cols = append(cols, p.curToken.Literal)
		p.nextToken()
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil, false
	}
	p.nextToken()
	return cols, true
}

func (p *Parser) parseColumnDef() (*ast.ColumnDef, bool) {
	if !p.curTokenIs(token.IDENT) {
		p.errorf("expected column name, got %s", p.curToken.Type)
		return nil, false
	}
	col := &ast.ColumnDef{Name: p.curToken.Literal}
	p.nextToken()

	if !p.curToken.Type.IsDataType() {
		p.errorf("expected data type, got %s", p.curToken.Type)
		return nil, false
	}
	col.Type = &ast.DataType{Token: p.curToken, Name: strings.ToUpper(p.curToken.Literal)}
	p.nextToken()

	for {
		switch p.curToken.Type {
		case token.NOT:
			p.nextToken()
			if !p.curTokenIs(token.NULL) {
				p.errorf("expected NULL after NOT, got %s", p.curToken.Type)
				return nil, false
			}
			col.NotNull = true
			p.nextToken()
		case token.PRIMARY:
			p.nextToken()
			if !p.curTokenIs(token.KEY) {
				p.errorf("expected KEY after PRIMARY, got %s", p.curToken.Type)
				return nil, false
			}
			col.IsPrimary = true
			col.NotNull = true
			p.nextToken()
		default:
			return col, true
		}
	}
}

func (p *Parser) parseCreateModel(tok token.Token) ast.Stmt {
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.CreateModelStmt{Token: tok, Name: p.curToken.Literal}
	if !p.expectPeek(token.FROM) {
		return nil
	}
	if !p.expectPeek(token.STRING) {
		return nil
	}
	stmt.Path = p.curToken.Literal
	p.nextToken()
	return stmt
}

func (p *Parser) parseDrop() ast.Stmt {
	tok := p.curToken
	switch p.peekToken.Type {
	case token.TABLE:
		p.nextToken()
		p.nextToken()
		ifExists := p.parseIfExists()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected table name, got %s", p.curToken.Type)
			return nil
		}
		stmt := &ast.DropTableStmt{Token: tok, Name: p.curToken.Literal, IfExists: ifExists}
		p.nextToken()
		return stmt
	case token.MODEL:
		p.nextToken()
		p.nextToken()
		ifExists := p.parseIfExists()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected model name, got %s", p.curToken.Type)
			return nil
		}
		stmt := &ast.DropModelStmt{Token: tok, Name: p.curToken.Literal, IfExists: ifExists}
		p.nextToken()
		return stmt
	default:
		p.errorf("expected TABLE or MODEL after DROP, got %s", p.peekToken.Type)
		return nil
	}
}

func (p *Parser) parseIfExists() bool {
	if p.curTokenIs(token.IF) {
		p.nextToken()
		if !p.curTokenIs(token.EXISTS) {
			p.errorf("expected EXISTS after IF, got %s", p.curToken.Type)
			return false
		}
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) parseDescribe() ast.Stmt {
	tok := p.curToken
	if !p.expectPeek(token.TABLE) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.DescribeStmt{Token: tok, Name: p.curToken.Literal}
	p.nextToken()
	return stmt
}

// -----------------------------------------------------------------------------
// INSERT
// -----------------------------------------------------------------------------

func (p *Parser) parseInsert() ast.Stmt {
	tok := p.curToken
	if !p.expectPeek(token.INTO) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.InsertStmt{Token: tok, Table: p.curToken.Literal}
	p.nextToken()

	cols, ok := p.parseColumnNameList()
	if !ok {
		return nil
	}

	if !p.curTokenIs(token.VALUES) {
		p.errorf("expected VALUES, got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()

	for {
		if !p.curTokenIs(token.LPAREN) {
			p.errorf("expected '(', got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()

		var values []ast.Expr
		for {
			v := p.parseExpression(LOWEST)
			if p.failed() {
				return nil
			}
			values = append(values, v)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
		if !p.curTokenIs(token.RPAREN) {
			p.errorf("expected ')', got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()

		if len(values) != len(cols) {
			p.errorf("VALUES tuple has %d values but %d columns were named", len(values), len(cols))
			return nil
		}
		row := &ast.InsertRow{}
		for i, c := range cols {
			row.Assigns = append(row.Assigns, &ast.ColAssign{Token: tok, Column: c, Value: values[i]})
		}
		stmt.Rows = append(stmt.Rows, row)

		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	return stmt
}

// -----------------------------------------------------------------------------
// SELECT
// -----------------------------------------------------------------------------

func (p *Parser) parseSelect() *ast.SelectStmt {
	tok := p.curToken
	stmt := &ast.SelectStmt{Token: tok}
	p.nextToken()

	if p.curTokenIs(token.DISTINCT_KW) {
		stmt.Distinct = true
		p.nextToken()
	}

	items, ok := p.parseSelectItems()
	if !ok {
		return nil
	}
	stmt.Projection = items

	if p.curTokenIs(token.FROM) {
		p.nextToken()
		scan, ok := p.parseScan()
		if !ok {
			return nil
		}
		stmt.From = scan
	}

	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	if p.curTokenIs(token.GROUP) {
		p.nextToken()
		if !p.curTokenIs(token.BY) {
			p.errorf("expected BY after GROUP, got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
		for {
			e := p.parseExpression(LOWEST)
			if p.failed() {
				return nil
			}
			stmt.GroupBy = append(stmt.GroupBy, e)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}

	if p.curTokenIs(token.HAVING) {
		p.nextToken()
		stmt.Having = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	if p.curTokenIs(token.ORDER) {
		p.nextToken()
		if !p.curTokenIs(token.BY) {
			p.errorf("expected BY after ORDER, got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
		for {
			e := p.parseExpression(LOWEST)
			if p.failed() {
				return nil
			}
			item := &ast.OrderItem{Expr: e}
			if p.curTokenIs(token.ASC) {
				p.nextToken()
			} else if p.curTokenIs(token.DESC) {
				item.Desc = true
				p.nextToken()
			}
			stmt.OrderBy = append(stmt.OrderBy, item)
			if p.curTokenIs(token.COMMA) {
				p.nextToken()
				continue
			}
			break
		}
	}

	if p.curTokenIs(token.LIMIT) {
		p.nextToken()
		stmt.Limit = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseSelectItems() ([]*ast.SelectItem, bool) {
	var items []*ast.SelectItem
	for {
		item, ok := p.parseSelectItem()
		if !ok {
			return nil, false
		}
		items = append(items, item)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	return items, true
}

func (p *Parser) parseSelectItem() (*ast.SelectItem, bool) {
	if p.curTokenIs(token.STAR) {
		tok := p.curToken
		p.nextToken()
		return &ast.SelectItem{Wildcard: true, Expr: &ast.StarExpr{Token: tok}}, true
	}
	if p.curTokenIs(token.IDENT) && p.peekTokenIs(token.DOT) && p.peekTwoTokenIs(token.STAR) {
		rel := p.curToken.Literal
		p.nextToken() // .
		p.nextToken() // *
		tok := p.curToken
		p.nextToken()
		return &ast.SelectItem{Wildcard: true, Relation: rel, Expr: &ast.StarExpr{Token: tok}}, true
	}

	e := p.parseExpression(LOWEST)
	if p.failed() {
		return nil, false
	}
	item := &ast.SelectItem{Expr: e}
	if p.curTokenIs(token.AS) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected alias after AS, got %s", p.curToken.Type)
			return nil, false
		}
		item.Alias = p.curToken.Literal
		p.nextToken()
	}
	return item, true
}

// parseScan parses a FROM-clause operator: a table reference possibly
// followed by a chain of joins, left-associative.
func (p *Parser) parseScan() (ast.Scan, bool) {
	ref, ok := p.parseTableRef()
	if !ok {
		return nil, false
	}
	var left ast.Scan = ref

	for {
		var kind ast.JoinKind
		tok := p.curToken
		switch p.curToken.Type {
		case token.CROSS:
			p.nextToken()
			if !p.curTokenIs(token.JOIN) {
				p.errorf("expected JOIN after CROSS, got %s", p.curToken.Type)
				return nil, false
			}
			kind = ast.JoinCross
			p.nextToken()
		case token.JOIN:
			kind = ast.JoinInner
			p.nextToken()
		case token.INNER:
			p.nextToken()
			if !p.curTokenIs(token.JOIN) {
				p.errorf("expected JOIN after INNER, got %s", p.curToken.Type)
				return nil, false
			}
			kind = ast.JoinInner
			p.nextToken()
		case token.LEFT, token.RIGHT, token.FULL:
			switch p.curToken.Type {
			case token.LEFT:
				kind = ast.JoinLeft
			case token.RIGHT:
				kind = ast.JoinRight
			case token.FULL:
				kind = ast.JoinFull
			}
			p.nextToken()
			if p.curTokenIs(token.OUTER) {
				p.nextToken()
			}
			if !p.curTokenIs(token.JOIN) {
				p.errorf("expected JOIN, got %s", p.curToken.Type)
				return nil, false
			}
			p.nextToken()
		default:
			return left, true
		}

		right, ok := p.parseTableRef()
		if !ok {
			return nil, false
		}

		join := &ast.JoinScan{Token: tok, Kind: kind, Left: left, Right: right}
		if kind != ast.JoinCross {
			if !p.curTokenIs(token.ON) {
				p.errorf("expected ON, got %s", p.curToken.Type)
				return nil, false
			}
			p.nextToken()
			join.On = p.parseExpression(LOWEST)
			if p.failed() {
				return nil, false
			}
		}
		left = join
	}
}

func (p *Parser) parseTableRef() (*ast.TableRef, bool) {
	if !p.curTokenIs(token.IDENT) {
		p.errorf("expected table name, got %s", p.curToken.Type)
		return nil, false
	}
	ref := &ast.TableRef{Token: p.curToken, Name: p.curToken.Literal}
	p.nextToken()
	if p.curTokenIs(token.AS) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected alias after AS, got %s", p.curToken.Type)
			return nil, false
		}
		ref.Alias = p.curToken.Literal
		p.nextToken()
	} else if p.curTokenIs(token.IDENT) {
		ref.Alias = p.curToken.Literal
		p.nextToken()
	}
	return ref, true
}

// -----------------------------------------------------------------------------
// UPDATE / DELETE
// -----------------------------------------------------------------------------

func (p *Parser) parseUpdate() ast.Stmt {
	tok := p.curToken
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.UpdateStmt{Token: tok, Table: p.curToken.Literal}
	p.nextToken()

	if p.curTokenIs(token.AS) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected alias after AS, got %s", p.curToken.Type)
			return nil
		}
		stmt.Alias = p.curToken.Literal
		p.nextToken()
	}

	if !p.curTokenIs(token.SET) {
		p.errorf("expected SET, got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()

	for {
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected column name, got %s", p.curToken.Type)
			return nil
		}
		assign := &ast.ColAssign{Token: p.curToken, Column: p.curToken.Literal}
		p.nextToken()
		if !p.curTokenIs(token.EQ) {
			p.errorf("expected '=', got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
		assign.Value = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
		stmt.Assigns = append(stmt.Assigns, assign)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}

	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	return stmt
}

func (p *Parser) parseDelete() ast.Stmt {
	tok := p.curToken
	if !p.expectPeek(token.FROM) {
		return nil
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt := &ast.DeleteStmt{Token: tok, Table: p.curToken.Literal}
	p.nextToken()

	if p.curTokenIs(token.AS) {
		p.nextToken()
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected alias after AS, got %s", p.curToken.Type)
			return nil
		}
		stmt.Alias = p.curToken.Literal
		p.nextToken()
	}

	if p.curTokenIs(token.WHERE) {
		p.nextToken()
		stmt.Where = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	return stmt
}

// -----------------------------------------------------------------------------
// Expressions (Pratt parser)
// -----------------------------------------------------------------------------

func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("no prefix parse function for %s", p.curToken.Type)
		return nil
	}
	left := prefix()
	if p.failed() {
		return nil
	}

	for precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
		if p.failed() {
			return nil
		}
	}

	return left
}

func (p *Parser) parseIdentOrColumnRef() ast.Expr {
	tok := p.curToken
	if p.peekTokenIs(token.DOT) {
		rel := p.curToken.Literal
		p.nextToken() // consume name, cur is DOT
		p.nextToken() // consume DOT, cur is column
		if !p.curTokenIs(token.IDENT) {
			p.errorf("expected column name after '.', got %s", p.curToken.Type)
			return nil
		}
		ref := &ast.ColumnRef{Token: tok, Relation: rel, Column: p.curToken.Literal}
		p.nextToken()
		return ref
	}
	if p.peekTokenIs(token.LPAREN) {
		return p.parseFunctionCall()
	}
	ref := &ast.ColumnRef{Token: tok, Column: tok.Literal}
	p.nextToken()
	return ref
}

func (p *Parser) parseFunctionCall() ast.Expr {
	tok := p.curToken
	name := tok.Literal
	p.nextToken() // consume name, cur is LPAREN
	p.nextToken() // consume LPAREN

	call := &ast.FunctionCall{Token: tok, Name: name}
	if p.curTokenIs(token.RPAREN) {
		p.nextToken()
		return call
	}
	for {
		arg := p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
		call.Arguments = append(call.Arguments, arg)
		if p.curTokenIs(token.COMMA) {
			p.nextToken()
			continue
		}
		break
	}
	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	return call
}

func (p *Parser) parseIntegerLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseInt(tok.Literal, 10, 64)
	if err != nil {
		p.errorf("invalid integer literal %q: %s", tok.Literal, err)
		return nil
	}
	p.nextToken()
	return &ast.IntegerLiteral{Token: tok, Value: v}
}

func (p *Parser) parseFloatLiteral() ast.Expr {
	tok := p.curToken
	v, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil {
		p.errorf("invalid float literal %q: %s", tok.Literal, err)
		return nil
	}
	p.nextToken()
	return &ast.FloatLiteral{Token: tok, Value: v}
}

func (p *Parser) parseStringLiteral() ast.Expr {
	tok := p.curToken
	p.nextToken()
	return &ast.StringLiteral{Token: tok, Value: tok.Literal}
}

func (p *Parser) parseByteaLiteral() ast.Expr {
	tok := p.curToken
	b := make([]byte, len(tok.Literal)/2)
	for i := 0; i < len(b); i++ {
		v, err := strconv.ParseUint(tok.Literal[i*2:i*2+2], 16, 8)
		if err != nil {
			p.errorf("invalid bytea literal %q: %s", tok.Literal, err)
			return nil
		}
		b[i] = byte(v)
	}
	p.nextToken()
	return &ast.ByteaLiteral{Token: tok, Value: b}
}

func (p *Parser) parseBoolLiteral() ast.Expr {
	tok := p.curToken
	p.nextToken()
	return &ast.BoolLiteral{Token: tok, Value: tok.Type == token.TRUE}
}

func (p *Parser) parseNullLiteral() ast.Expr {
	tok := p.curToken
	p.nextToken()
	return &ast.NullLiteral{Token: tok}
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	tok := p.curToken
	op := tok.Literal
	if tok.Type == token.NOT {
		op = "NOT"
	}
	p.nextToken()
	right := p.parseExpression(PREFIX)
	if p.failed() {
		return nil
	}
	return &ast.UnaryExpr{Token: tok, Operator: op, Right: right}
}

func (p *Parser) parseBinaryExpr(left ast.Expr) ast.Expr {
	tok := p.curToken
	op := tok.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if p.failed() {
		return nil
	}
	return &ast.BinaryExpr{Token: tok, Left: left, Operator: op, Right: right}
}

func (p *Parser) parseIsNullExpr(left ast.Expr) ast.Expr {
	tok := p.curToken
	p.nextToken()
	e := &ast.IsNullExpr{Token: tok, Left: left}
	if p.curTokenIs(token.NOT) {
		e.Not = true
		p.nextToken()
	}
	if !p.curTokenIs(token.NULL) {
		p.errorf("expected NULL, got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	return e
}

// parseLikeExpr handles both `LIKE pattern` and `SIMILAR TO pattern`
// when reached directly as an infix operator (no preceding NOT).
func (p *Parser) parseLikeExpr(left ast.Expr) ast.Expr {
	tok := p.curToken
	similar := tok.Type == token.SIMILAR
	p.nextToken()
	if similar {
		if !p.curTokenIs(token.TO) {
			p.errorf("expected TO after SIMILAR, got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
	}
	pattern := p.parseExpression(EQUALITY)
	if p.failed() {
		return nil
	}
	return &ast.LikeExpr{Token: tok, Left: left, Pattern: pattern, Similar: similar}
}

// parseNotInfixExpr resolves the `NOT LIKE` / `NOT SIMILAR TO` ambiguity
// described in spec 4.3 using the parser's second token of lookahead.
func (p *Parser) parseNotInfixExpr(left ast.Expr) ast.Expr {
	tok := p.curToken // NOT
	switch p.peekToken.Type {
	case token.LIKE:
		p.nextToken() // consume LIKE, cur == LIKE
		e := p.parseLikeExpr(left)
		if le, ok := e.(*ast.LikeExpr); ok {
			le.Not = true
			le.Token = tok
		}
		return e
	case token.SIMILAR:
		p.nextToken() // cur == SIMILAR
		e := p.parseLikeExpr(left)
		if le, ok := e.(*ast.LikeExpr); ok {
			le.Not = true
			le.Token = tok
		}
		return e
	default:
		p.errorf("expected LIKE or SIMILAR after NOT, got %s", p.peekToken.Type)
		return nil
	}
}

func (p *Parser) parseGroupedOrSubquery() ast.Expr {
	tok := p.curToken
	p.nextToken()
	if p.curTokenIs(token.SELECT) {
		sel := p.parseSelect()
		if p.failed() {
			return nil
		}
		if !p.curTokenIs(token.RPAREN) {
			p.errorf("expected ')', got %s", p.curToken.Type)
			return nil
		}
		p.nextToken()
		return &ast.ScalarSubquery{Token: tok, Select: sel}
	}

	e := p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}
	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	return e
}

func (p *Parser) parseCastExpr() ast.Expr {
	tok := p.curToken
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()
	target := p.parseExpression(LOWEST)
	if p.failed() {
		return nil
	}
	if !p.curTokenIs(token.AS) {
		p.errorf("expected AS, got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	if !p.curToken.Type.IsDataType() {
		p.errorf("expected data type, got %s", p.curToken.Type)
		return nil
	}
	dt := &ast.DataType{Token: p.curToken, Name: strings.ToUpper(p.curToken.Literal)}
	p.nextToken()
	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	return &ast.CastExpr{Token: tok, Target: target, Type: dt}
}

func (p *Parser) parseAggregateCall() ast.Expr {
	tok := p.curToken
	name := strings.ToUpper(tok.Literal)
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	p.nextToken()

	var arg ast.Expr
	if p.curTokenIs(token.STAR) {
		if name != "COUNT" {
			p.errorf("'*' is only valid as an argument to COUNT")
			return nil
		}
		arg = &ast.StarExpr{Token: p.curToken}
		p.nextToken()
	} else {
		arg = p.parseExpression(LOWEST)
		if p.failed() {
			return nil
		}
	}

	if !p.curTokenIs(token.RPAREN) {
		p.errorf("expected ')', got %s", p.curToken.Type)
		return nil
	}
	p.nextToken()
	return &ast.AggregateCall{Token: tok, Name: name, Arg: arg}
}

// Parse parses a query batch and returns the resulting program and any
// syntax errors encountered.
func Parse(input string) (*ast.Program, []string) {
	p := New(lexer.New(input))
	program := p.ParseProgram()
	return program, p.Errors()
}
