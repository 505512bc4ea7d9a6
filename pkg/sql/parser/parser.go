// pkg/sql/parser/parser.go
//
// Grounded on mjm918-tur/pkg/sql/parser/parser.go's recursive-descent
// shape: a two-token lookahead (cur/peek), expectPeek/peekIs helpers,
// and Pratt-style parseExpression(precedence) for the expression
// grammar. Trimmed to spec.md §4.2's statement set (no CTEs, set
// operations, views, triggers, or window functions - the teacher's
// SQLite-flavored extensions) and extended with a position-carrying
// *ParseError (spec.md §7) in place of the teacher's bare fmt.Errorf,
// and IN/LIKE/BETWEEN/EXISTS subquery support per spec.md §4.2's
// expression grammar.
package parser

import (
	"fmt"
	"strconv"

	"rustql/pkg/sql/lexer"
	"rustql/pkg/types"
)

// ParseError reports a syntax error at a token position, per spec.md §7.
type ParseError struct {
	Position int
	Expected string
	Got      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: expected %s, got %q", e.Position, e.Expected, e.Got)
}

// Parser is a recursive-descent SQL parser over a two-token lookahead.
type Parser struct {
	lexer *lexer.Lexer
	cur   lexer.Token
	peek  lexer.Token
	err   error // set by nextToken when the lexer reports a LexError
}

// New creates a new Parser for the given SQL input.
func New(input string) *Parser {
	p := &Parser{lexer: lexer.New(input)}
	p.advance()
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.cur = p.peek
	tok, err := p.lexer.NextToken()
	if err != nil && p.err == nil {
		p.err = err
	}
	p.peek = tok
}

// Parse parses a single statement. Statement text ends at ';' or EOF;
// the caller (pkg/session) is responsible for splitting multi-statement
// input.
func (p *Parser) Parse() (Statement, error) {
	if p.err != nil {
		return nil, p.err
	}

	var stmt Statement
	var err error

	switch p.cur.Type {
	case lexer.CREATE:
		stmt, err = p.parseCreate()
	case lexer.DROP:
		stmt, err = p.parseDrop()
	case lexer.ALTER:
		stmt, err = p.parseAlter()
	case lexer.INSERT:
		stmt, err = p.parseInsert()
	case lexer.UPDATE:
		stmt, err = p.parseUpdate()
	case lexer.DELETE:
		stmt, err = p.parseDelete()
	case lexer.SELECT:
		stmt, err = p.parseSelect()
	case lexer.EXPLAIN:
		stmt, err = p.parseExplain()
	case lexer.BEGIN:
		stmt, err = p.parseBegin()
	case lexer.COMMIT:
		stmt, err = p.parseCommit()
	case lexer.ROLLBACK:
		stmt, err = p.parseRollback()
	default:
		return nil, &ParseError{Position: p.cur.Pos, Expected: "a statement", Got: p.cur.Literal}
	}
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}

	if p.peekIs(lexer.SEMICOLON) {
		p.advance()
	}
	if !p.peekIs(lexer.EOF) {
		return nil, &ParseError{Position: p.peek.Pos, Expected: "end of statement", Got: p.peek.Literal}
	}
	return stmt, nil
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peek.Type == t }

// expectPeek advances past peek if it matches t, else returns a
// *ParseError describing the mismatch.
func (p *Parser) expectPeek(t lexer.TokenType) error {
	if !p.peekIs(t) {
		return &ParseError{Position: p.peek.Pos, Expected: t.String(), Got: p.peek.Literal}
	}
	p.advance()
	return nil
}

// --- CREATE / DROP / ALTER TABLE ---

func (p *Parser) parseCreate() (Statement, error) {
	p.advance() // consume CREATE
	switch p.cur.Type {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.INDEX:
		return p.parseCreateIndex()
	default:
		return nil, &ParseError{Position: p.cur.Pos, Expected: "TABLE or INDEX", Got: p.cur.Literal}
	}
}

func (p *Parser) parseCreateTable() (*CreateTableStmt, error) {
	stmt := &CreateTableStmt{}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.TableName = p.cur.Literal

	if err := p.expectPeek(lexer.LPAREN); err != nil {
		return nil, err
	}

	for {
		p.advance()
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Columns = append(stmt.Columns, col)

		if p.peekIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}

	if err := p.expectPeek(lexer.RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

// parseColumnDef parses: name TYPE [UNIQUE] [REFERENCES table(col) [ON DELETE action] [ON UPDATE action]]
func (p *Parser) parseColumnDef() (ColumnDef, error) {
	col := ColumnDef{}
	if p.cur.Type != lexer.IDENT {
		return col, &ParseError{Position: p.cur.Pos, Expected: "column name", Got: p.cur.Literal}
	}
	col.Name = p.cur.Literal

	p.advance()
	kind, err := p.parseColumnType()
	if err != nil {
		return col, err
	}
	col.Type = kind

	for {
		if p.peekIs(lexer.UNIQUE) {
			p.advance()
			col.Unique = true
		} else if p.peekIs(lexer.REFERENCES) {
			p.advance()
			fk, err := p.parseForeignKeyRef()
			if err != nil {
				return col, err
			}
			col.ForeignKey = fk
		} else {
			break
		}
	}
	return col, nil
}

func (p *Parser) parseColumnType() (types.Kind, error) {
	switch p.cur.Type {
	case lexer.INT_TYPE, lexer.INTEGER:
		return types.KindInteger, nil
	case lexer.FLOAT_TYPE:
		return types.KindFloat, nil
	case lexer.TEXT_TYPE:
		return types.KindText, nil
	case lexer.BOOLEAN_TYPE:
		return types.KindBoolean, nil
	case lexer.DATE_TYPE:
		return types.KindDate, nil
	case lexer.TIME_TYPE:
		return types.KindTime, nil
	case lexer.DATETIME_TYPE:
		return types.KindDateTime, nil
	default:
		return types.KindNull, &ParseError{Position: p.cur.Pos, Expected: "a column type", Got: p.cur.Literal}
	}
}

// parseForeignKeyRef parses: REFERENCES table(column) [ON DELETE action] [ON UPDATE action]
func (p *Parser) parseForeignKeyRef() (*ForeignKeyRef, error) {
	fk := &ForeignKeyRef{}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	fk.RefTable = p.cur.Literal

	if err := p.expectPeek(lexer.LPAREN); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	fk.RefColumn = p.cur.Literal
	if err := p.expectPeek(lexer.RPAREN); err != nil {
		return nil, err
	}

	var err error
	fk.OnDelete, fk.OnUpdate, err = p.parseFKActions()
	return fk, err
}

// parseFKActions parses zero or more `ON DELETE action` / `ON UPDATE action`
// clauses, per spec.md §3's FKAction set.
func (p *Parser) parseFKActions() (FKAction, FKAction, error) {
	onDelete, onUpdate := FKNoAction, FKNoAction
	for p.peekIs(lexer.ON) {
		p.advance() // ON
		if p.peekIs(lexer.DELETE) {
			p.advance()
			action, err := p.parseFKAction()
			if err != nil {
				return onDelete, onUpdate, err
			}
			onDelete = action
		} else if p.peekIs(lexer.UPDATE) {
			p.advance()
			action, err := p.parseFKAction()
			if err != nil {
				return onDelete, onUpdate, err
			}
			onUpdate = action
		} else {
			return onDelete, onUpdate, &ParseError{Position: p.peek.Pos, Expected: "DELETE or UPDATE", Got: p.peek.Literal}
		}
	}
	return onDelete, onUpdate, nil
}

func (p *Parser) parseFKAction() (FKAction, error) {
	p.advance()
	switch p.cur.Type {
	case lexer.CASCADE:
		return FKCascade, nil
	case lexer.RESTRICT:
		return FKRestrict, nil
	case lexer.SET:
		if err := p.expectPeek(lexer.NULL_KW); err != nil {
			return FKNoAction, err
		}
		return FKSetNull, nil
	case lexer.NO:
		if err := p.expectPeek(lexer.ACTION); err != nil {
			return FKNoAction, err
		}
		return FKNoAction, nil
	default:
		return FKNoAction, &ParseError{Position: p.cur.Pos, Expected: "a foreign key action", Got: p.cur.Literal}
	}
}

func (p *Parser) parseDrop() (Statement, error) {
	p.advance() // consume DROP
	switch p.cur.Type {
	case lexer.TABLE:
		if err := p.expectPeek(lexer.IDENT); err != nil {
			return nil, err
		}
		return &DropTableStmt{TableName: p.cur.Literal}, nil
	case lexer.INDEX:
		if err := p.expectPeek(lexer.IDENT); err != nil {
			return nil, err
		}
		return &DropIndexStmt{IndexName: p.cur.Literal}, nil
	default:
		return nil, &ParseError{Position: p.cur.Pos, Expected: "TABLE or INDEX", Got: p.cur.Literal}
	}
}

// parseAlter parses spec.md §4.2's four ALTER TABLE forms: ADD COLUMN,
// DROP COLUMN, RENAME TO, RENAME COLUMN ... TO.
func (p *Parser) parseAlter() (Statement, error) {
	if err := p.expectPeek(lexer.TABLE); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt := &AlterTableStmt{TableName: p.cur.Literal}

	switch {
	case p.peekIs(lexer.ADD):
		p.advance()
		if p.peekIs(lexer.COLUMN) {
			p.advance()
		}
		p.advance() // move to column name
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		stmt.Op = AlterAddColumn
		stmt.AddColumn = col
		return stmt, nil

	case p.peekIs(lexer.DROP):
		p.advance()
		if p.peekIs(lexer.COLUMN) {
			p.advance()
		}
		if err := p.expectPeek(lexer.IDENT); err != nil {
			return nil, err
		}
		stmt.Op = AlterDropColumn
		stmt.ColumnName = p.cur.Literal
		return stmt, nil

	case p.peekIs(lexer.RENAME):
		p.advance()
		if p.peekIs(lexer.COLUMN) {
			p.advance()
			if err := p.expectPeek(lexer.IDENT); err != nil {
				return nil, err
			}
			stmt.ColumnName = p.cur.Literal
			if err := p.expectPeek(lexer.TO); err != nil {
				return nil, err
			}
			if err := p.expectPeek(lexer.IDENT); err != nil {
				return nil, err
			}
			stmt.Op = AlterRenameColumn
			stmt.NewName = p.cur.Literal
			return stmt, nil
		}
		if p.peekIs(lexer.TO) {
			p.advance()
			if err := p.expectPeek(lexer.IDENT); err != nil {
				return nil, err
			}
			stmt.Op = AlterRenameTable
			stmt.NewName = p.cur.Literal
			return stmt, nil
		}
		return nil, &ParseError{Position: p.peek.Pos, Expected: "COLUMN or TO", Got: p.peek.Literal}

	default:
		return nil, &ParseError{Position: p.peek.Pos, Expected: "ADD, DROP, or RENAME", Got: p.peek.Literal}
	}
}

// parseCreateIndex parses: INDEX name ON table (column)
func (p *Parser) parseCreateIndex() (*CreateIndexStmt, error) {
	stmt := &CreateIndexStmt{}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.IndexName = p.cur.Literal

	if err := p.expectPeek(lexer.ON); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.TableName = p.cur.Literal

	if err := p.expectPeek(lexer.LPAREN); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.Column = p.cur.Literal
	if err := p.expectPeek(lexer.RPAREN); err != nil {
		return nil, err
	}
	return stmt, nil
}

// --- INSERT / UPDATE / DELETE ---

func (p *Parser) parseInsert() (*InsertStmt, error) {
	stmt := &InsertStmt{}
	if err := p.expectPeek(lexer.INTO); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.TableName = p.cur.Literal

	if p.peekIs(lexer.LPAREN) {
		p.advance()
		cols, err := p.parseIdentList()
		if err != nil {
			return nil, err
		}
		stmt.Columns = cols
		if err := p.expectPeek(lexer.RPAREN); err != nil {
			return nil, err
		}
	}

	if err := p.expectPeek(lexer.VALUES); err != nil {
		return nil, err
	}

	for {
		if err := p.expectPeek(lexer.LPAREN); err != nil {
			return nil, err
		}
		row, err := p.parseExpressionListAt()
		if err != nil {
			return nil, err
		}
		stmt.Rows = append(stmt.Rows, row)
		if err := p.expectPeek(lexer.RPAREN); err != nil {
			return nil, err
		}
		if p.peekIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return stmt, nil
}

func (p *Parser) parseUpdate() (*UpdateStmt, error) {
	stmt := &UpdateStmt{}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.TableName = p.cur.Literal

	if err := p.expectPeek(lexer.SET); err != nil {
		return nil, err
	}

	for {
		if err := p.expectPeek(lexer.IDENT); err != nil {
			return nil, err
		}
		column := p.cur.Literal
		if err := p.expectPeek(lexer.EQ); err != nil {
			return nil, err
		}
		p.advance()
		value, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Assignments = append(stmt.Assignments, Assignment{Column: column, Value: value})

		if p.peekIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}

	if p.peekIs(lexer.WHERE) {
		p.advance()
		p.advance()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

func (p *Parser) parseDelete() (*DeleteStmt, error) {
	stmt := &DeleteStmt{}
	if err := p.expectPeek(lexer.FROM); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.TableName = p.cur.Literal

	if p.peekIs(lexer.WHERE) {
		p.advance()
		p.advance()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}
	return stmt, nil
}

// --- SELECT ---

func (p *Parser) parseSelect() (*SelectStmt, error) {
	p.advance() // consume SELECT
	return p.parseSelectBody()
}

func (p *Parser) parseSelectBody() (*SelectStmt, error) {
	stmt := &SelectStmt{}

	if p.curIs(lexer.DISTINCT) {
		stmt.Distinct = true
		p.advance()
	}

	projections, err := p.parseProjections()
	if err != nil {
		return nil, err
	}
	stmt.Projections = projections

	if err := p.expectPeek(lexer.FROM); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	stmt.From = p.parseTableRefTail()

	for p.isJoinStart() {
		join, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, join)
	}

	if p.peekIs(lexer.WHERE) {
		p.advance()
		p.advance()
		where, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.peekIs(lexer.GROUP) {
		p.advance()
		if err := p.expectPeek(lexer.BY); err != nil {
			return nil, err
		}
		groupBy, err := p.parseExpressionListAt()
		if err != nil {
			return nil, err
		}
		stmt.GroupBy = groupBy
	}

	if p.peekIs(lexer.HAVING) {
		p.advance()
		p.advance()
		having, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		stmt.Having = having
	}

	if p.peekIs(lexer.ORDER) {
		p.advance()
		if err := p.expectPeek(lexer.BY); err != nil {
			return nil, err
		}
		orderBy, err := p.parseOrderByList()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = orderBy
	}

	if p.peekIs(lexer.LIMIT) {
		p.advance()
		if err := p.expectPeek(lexer.INT); err != nil {
			return nil, err
		}
		n, err := strconv.ParseUint(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, &ParseError{Position: p.cur.Pos, Expected: "a non-negative integer", Got: p.cur.Literal}
		}
		stmt.Limit = &n
	}

	if p.peekIs(lexer.OFFSET) {
		p.advance()
		if err := p.expectPeek(lexer.INT); err != nil {
			return nil, err
		}
		n, err := strconv.ParseUint(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, &ParseError{Position: p.cur.Pos, Expected: "a non-negative integer", Got: p.cur.Literal}
		}
		stmt.Offset = &n
	}

	return stmt, nil
}

// parseProjections parses: * | expr [AS alias], expr [AS alias], ...
func (p *Parser) parseProjections() ([]Projection, error) {
	if p.curIs(lexer.STAR) {
		return []Projection{{Star: true}}, nil
	}

	var projections []Projection
	for {
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		proj := Projection{Expr: expr}

		if p.peekIs(lexer.AS) {
			p.advance()
			if err := p.expectPeek(lexer.IDENT); err != nil {
				return nil, err
			}
			proj.Alias = p.cur.Literal
		}
		projections = append(projections, proj)

		if p.peekIs(lexer.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	return projections, nil
}

// parseTableRefTail parses the optional alias following a table name
// already consumed into p.cur.
func (p *Parser) parseTableRefTail() TableRef {
	ref := TableRef{Name: p.cur.Literal}
	if p.peekIs(lexer.AS) {
		p.advance()
		p.advance()
		ref.Alias = p.cur.Literal
	} else if p.peekIs(lexer.IDENT) {
		p.advance()
		ref.Alias = p.cur.Literal
	}
	return ref
}

func (p *Parser) isJoinStart() bool {
	t := p.peek.Type
	return t == lexer.JOIN || t == lexer.INNER || t == lexer.LEFT || t == lexer.RIGHT || t == lexer.FULL
}

// parseJoin parses: [INNER|LEFT|RIGHT|FULL] [OUTER] JOIN table [AS alias] ON expr
func (p *Parser) parseJoin() (Join, error) {
	p.advance() // move to join-kind keyword
	kind := JoinInner
	switch p.cur.Type {
	case lexer.JOIN:
		kind = JoinInner
	case lexer.INNER:
		if err := p.expectPeek(lexer.JOIN); err != nil {
			return Join{}, err
		}
		kind = JoinInner
	case lexer.LEFT:
		if p.peekIs(lexer.OUTER) {
			p.advance()
		}
		if err := p.expectPeek(lexer.JOIN); err != nil {
			return Join{}, err
		}
		kind = JoinLeft
	case lexer.RIGHT:
		if p.peekIs(lexer.OUTER) {
			p.advance()
		}
		if err := p.expectPeek(lexer.JOIN); err != nil {
			return Join{}, err
		}
		kind = JoinRight
	case lexer.FULL:
		if p.peekIs(lexer.OUTER) {
			p.advance()
		}
		if err := p.expectPeek(lexer.JOIN); err != nil {
			return Join{}, err
		}
		kind = JoinFull
	}

	if err := p.expectPeek(lexer.IDENT); err != nil {
		return Join{}, err
	}
	table := p.parseTableRefTail()

	if err := p.expectPeek(lexer.ON); err != nil {
		return Join{}, err
	}
	p.advance()
	on, err := p.parseExpression(LOWEST)
	if err != nil {
		return Join{}, err
	}

	return Join{Kind: kind, Table: table, On: on}, nil
}

func (p *Parser) parseOrderByList() ([]OrderByExpr, error) {
	var list []OrderByExpr
	for {
		p.advance()
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		desc := false
		if p.peekIs(lexer.ASC) {
			p.advance()
		} else if p.peekIs(lexer.DESC) {
			p.advance()
			desc = true
		}
		list = append(list, OrderByExpr{Expr: expr, Desc: desc})

		if p.peekIs(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	return list, nil
}

// --- Transaction control / EXPLAIN ---

func (p *Parser) parseBegin() (*BeginStmt, error) {
	if p.peekIs(lexer.TRANSACTION) {
		p.advance()
	}
	return &BeginStmt{}, nil
}

func (p *Parser) parseCommit() (*CommitStmt, error) { return &CommitStmt{}, nil }

func (p *Parser) parseRollback() (*RollbackStmt, error) { return &RollbackStmt{}, nil }

// parseExplain parses `EXPLAIN select-stmt`; EXPLAIN is restricted to
// SELECT per spec.md §9's resolution of that Open Question.
func (p *Parser) parseExplain() (*ExplainStmt, error) {
	if err := p.expectPeek(lexer.SELECT); err != nil {
		return nil, err
	}
	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	return &ExplainStmt{Select: sel}, nil
}

// --- Expressions ---

// Precedence levels, lowest to highest, matching spec.md §4.2's
// expression grammar (OR < AND < NOT < comparison/IN/LIKE/BETWEEN/IS <
// additive < multiplicative < unary).
const (
	_ int = iota
	LOWEST
	PREC_OR
	PREC_AND
	PREC_NOT
	PREC_COMPARISON
	PREC_ADDITIVE
	PREC_MULTIPLICATIVE
	PREC_UNARY
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:      PREC_OR,
	lexer.AND:     PREC_AND,
	lexer.EQ:      PREC_COMPARISON,
	lexer.NEQ:     PREC_COMPARISON,
	lexer.LT:      PREC_COMPARISON,
	lexer.GT:      PREC_COMPARISON,
	lexer.LTE:     PREC_COMPARISON,
	lexer.GTE:     PREC_COMPARISON,
	lexer.IS:      PREC_COMPARISON,
	lexer.IN:      PREC_COMPARISON,
	lexer.LIKE:    PREC_COMPARISON,
	lexer.BETWEEN: PREC_COMPARISON,
	lexer.NOT:     PREC_COMPARISON,
	lexer.PLUS:    PREC_ADDITIVE,
	lexer.MINUS:   PREC_ADDITIVE,
	lexer.STAR:    PREC_MULTIPLICATIVE,
	lexer.SLASH:   PREC_MULTIPLICATIVE,
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peek.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur.Type]; ok {
		return prec
	}
	return LOWEST
}

// parseExpression implements Pratt-style precedence climbing over
// prefix/infix handlers.
func (p *Parser) parseExpression(precedence int) (Expression, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for precedence < p.peekPrecedence() {
		switch p.peek.Type {
		case lexer.IS, lexer.IN, lexer.LIKE, lexer.BETWEEN, lexer.NOT:
			p.advance()
			left, err = p.parsePostfix(left)
		default:
			p.advance()
			left, err = p.parseInfix(left)
		}
		if err != nil {
			return nil, err
		}
	}
	return left, nil
}

func (p *Parser) parsePrefix() (Expression, error) {
	switch p.cur.Type {
	case lexer.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, &ParseError{Position: p.cur.Pos, Expected: "a valid integer", Got: p.cur.Literal}
		}
		return &Literal{Value: types.NewInteger(n)}, nil
	case lexer.FLOAT:
		f, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return nil, &ParseError{Position: p.cur.Pos, Expected: "a valid float", Got: p.cur.Literal}
		}
		return &Literal{Value: types.NewFloat(f)}, nil
	case lexer.STRING:
		return &Literal{Value: types.NewText(p.cur.Literal)}, nil
	case lexer.NULL_KW:
		return &Literal{Value: types.Null()}, nil
	case lexer.TRUE_KW:
		return &Literal{Value: types.NewBoolean(true)}, nil
	case lexer.FALSE_KW:
		return &Literal{Value: types.NewBoolean(false)}, nil
	case lexer.COUNT, lexer.SUM, lexer.AVG, lexer.MIN, lexer.MAX:
		return p.parseFunctionCall()
	case lexer.EXISTS:
		return p.parseExistsExpression(false)
	case lexer.NOT:
		if p.peekIs(lexer.EXISTS) {
			p.advance()
			return p.parseExistsExpression(true)
		}
		p.advance()
		operand, err := p.parseExpression(PREC_NOT)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: lexer.NOT, Operand: operand}, nil
	case lexer.MINUS:
		p.advance()
		operand, err := p.parseExpression(PREC_UNARY)
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: lexer.MINUS, Operand: operand}, nil
	case lexer.IDENT:
		return p.parseColumnRef()
	case lexer.LPAREN:
		p.advance()
		if p.curIs(lexer.SELECT) {
			p.advance()
			sub, err := p.parseSelectBody()
			if err != nil {
				return nil, err
			}
			if err := p.expectPeek(lexer.RPAREN); err != nil {
				return nil, err
			}
			return &SubqueryExpr{Select: sub}, nil
		}
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		if err := p.expectPeek(lexer.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, &ParseError{Position: p.cur.Pos, Expected: "an expression", Got: p.cur.Literal}
	}
}

// parseColumnRef parses a column reference, possibly table-qualified
// (`table.column`).
func (p *Parser) parseColumnRef() (Expression, error) {
	name := p.cur.Literal
	if !p.peekIs(lexer.DOT) {
		return &ColumnRef{Name: name}, nil
	}
	p.advance() // consume DOT
	if err := p.expectPeek(lexer.IDENT); err != nil {
		return nil, err
	}
	return &ColumnRef{Table: name, Name: p.cur.Literal}, nil
}

// parseFunctionCall parses an aggregate call: FN(expr), FN(DISTINCT expr),
// or COUNT(*), per spec.md §4.3.
func (p *Parser) parseFunctionCall() (Expression, error) {
	name := p.cur.Literal
	call := &FunctionCall{Name: name}

	if err := p.expectPeek(lexer.LPAREN); err != nil {
		return nil, err
	}

	if p.peekIs(lexer.STAR) {
		p.advance()
		call.Star = true
		if err := p.expectPeek(lexer.RPAREN); err != nil {
			return nil, err
		}
		return call, nil
	}

	if p.peekIs(lexer.DISTINCT) {
		p.advance()
		call.Distinct = true
	}

	p.advance()
	arg, err := p.parseExpression(LOWEST)
	if err != nil {
		return nil, err
	}
	call.Arg = arg

	if err := p.expectPeek(lexer.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

// parseExistsExpression parses `[NOT] EXISTS (SELECT ...)`; p.cur is
// EXISTS on entry.
func (p *Parser) parseExistsExpression(not bool) (Expression, error) {
	if err := p.expectPeek(lexer.LPAREN); err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.SELECT); err != nil {
		return nil, err
	}
	p.advance()
	sub, err := p.parseSelectBody()
	if err != nil {
		return nil, err
	}
	if err := p.expectPeek(lexer.RPAREN); err != nil {
		return nil, err
	}
	return &ExistsExpr{Not: not, Subquery: sub}, nil
}

// parseInfix parses a binary arithmetic/comparison/AND/OR operator;
// p.cur is the operator token on entry.
func (p *Parser) parseInfix(left Expression) (Expression, error) {
	op := p.cur.Type
	prec := p.curPrecedence()
	p.advance()
	right, err := p.parseExpression(prec)
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Left: left, Op: op, Right: right}, nil
}

// parsePostfix parses the postfix-operator forms that follow an
// expression: IS [NOT] NULL, [NOT] IN (...), [NOT] LIKE expr,
// [NOT] BETWEEN expr AND expr. p.cur is the leading keyword (IS, IN,
// LIKE, BETWEEN, or NOT) on entry.
func (p *Parser) parsePostfix(left Expression) (Expression, error) {
	not := false
	if p.curIs(lexer.NOT) {
		not = true
		p.advance()
	}

	switch p.cur.Type {
	case lexer.IS:
		negate := false
		if p.peekIs(lexer.NOT) {
			p.advance()
			negate = true
		}
		if err := p.expectPeek(lexer.NULL_KW); err != nil {
			return nil, err
		}
		return &IsNullExpr{Expr: left, Not: negate}, nil

	case lexer.IN:
		if err := p.expectPeek(lexer.LPAREN); err != nil {
			return nil, err
		}
		if p.peekIs(lexer.SELECT) {
			p.advance()
			p.advance()
			sub, err := p.parseSelectBody()
			if err != nil {
				return nil, err
			}
			if err := p.expectPeek(lexer.RPAREN); err != nil {
				return nil, err
			}
			return &InExpr{Expr: left, Not: not, Subquery: sub}, nil
		}
		p.advance()
		list, err := p.parseExpressionList()
		if err != nil {
			return nil, err
		}
		if err := p.expectPeek(lexer.RPAREN); err != nil {
			return nil, err
		}
		return &InExpr{Expr: left, Not: not, List: list}, nil

	case lexer.LIKE:
		p.advance()
		pattern, err := p.parseExpression(PREC_COMPARISON)
		if err != nil {
			return nil, err
		}
		return &LikeExpr{Expr: left, Not: not, Pattern: pattern}, nil

	case lexer.BETWEEN:
		p.advance()
		low, err := p.parseExpression(PREC_ADDITIVE)
		if err != nil {
			return nil, err
		}
		if err := p.expectPeek(lexer.AND); err != nil {
			return nil, err
		}
		p.advance()
		high, err := p.parseExpression(PREC_ADDITIVE)
		if err != nil {
			return nil, err
		}
		return &BetweenExpr{Expr: left, Not: not, Low: low, High: high}, nil

	default:
		return nil, &ParseError{Position: p.cur.Pos, Expected: "IS, IN, LIKE, or BETWEEN", Got: p.cur.Literal}
	}
}

// --- Shared list helpers ---

func (p *Parser) parseIdentList() ([]string, error) {
	var idents []string
	p.advance()
	for {
		if p.cur.Type != lexer.IDENT {
			return nil, &ParseError{Position: p.cur.Pos, Expected: "an identifier", Got: p.cur.Literal}
		}
		idents = append(idents, p.cur.Literal)
		if p.peekIs(lexer.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	return idents, nil
}

// parseExpressionList parses a comma-separated expression list with
// p.cur already positioned at the first expression's start.
func (p *Parser) parseExpressionList() ([]Expression, error) {
	var exprs []Expression
	for {
		expr, err := p.parseExpression(LOWEST)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		if p.peekIs(lexer.COMMA) {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	return exprs, nil
}

// parseExpressionListAt advances past the current token before parsing,
// for use where the caller has not yet moved onto the first expression
// (e.g. after GROUP BY).
func (p *Parser) parseExpressionListAt() ([]Expression, error) {
	p.advance()
	return p.parseExpressionList()
}
