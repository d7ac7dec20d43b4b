// Package parser implements the recursive-descent SQL parser of spec.md
// §4.2: one token of lookahead, producing an ast.Statement together with
// the symbol-table skeleton (table references registered as they are
// parsed) that symbol resolution later completes.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/catalog"
	"github.com/fuersten/csvsqldb-sub001/csverrors"
	"github.com/fuersten/csvsqldb-sub001/lexer"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// Parser walks a pre-tokenized statement. Tokenizing the whole statement
// up front (rather than pulling from the lexer lazily) keeps lookahead
// and backtracking (needed for a handful of compound keyword sequences
// like IS NOT NULL) simple array indexing, the same tradeoff
// ha1tch-tsqlparser's Pratt parser makes with its curToken/peekToken
// pair, just carried one step further.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse tokenizes sql and parses exactly one statement, optionally
// followed by a trailing semicolon, then requires EOF.
func Parse(sql string) (ast.Statement, error) {
	tokens, err := lexer.Tokenize(sql)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.Semicolon {
		p.advance()
	}
	if p.cur().Kind != lexer.EOF {
		return nil, p.errorf("trailing input after statement")
	}
	return stmt, nil
}

func (p *Parser) cur() lexer.Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() lexer.Token {
	tok := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) at(kind lexer.Kind) bool {
	return p.cur().Kind == kind
}

func (p *Parser) atAny(kinds ...lexer.Kind) bool {
	for _, k := range kinds {
		if p.cur().Kind == k {
			return true
		}
	}
	return false
}

func (p *Parser) accept(kind lexer.Kind) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind lexer.Kind) (lexer.Token, error) {
	if !p.at(kind) {
		return lexer.Token{}, p.errorf("expected %s", kind)
	}
	return p.advance(), nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	tok := p.cur()
	return csverrors.ErrParse.New(tok.Line, tok.Column, tok.Literal, fmt.Sprintf(format, args...))
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case lexer.CREATE:
		return p.parseCreate()
	case lexer.DROP:
		return p.parseDrop()
	case lexer.EXPLAIN:
		return p.parseExplain()
	default:
		st := ast.NewSymbolTable(nil)
		return p.parseQuery(st)
	}
}

func (p *Parser) parseCreate() (ast.Statement, error) {
	p.advance() // CREATE
	switch p.cur().Kind {
	case lexer.TABLE:
		return p.parseCreateTable()
	case lexer.MAPPING:
		return p.parseCreateMapping()
	default:
		return nil, p.errorf("expected TABLE or MAPPING after CREATE")
	}
}

func (p *Parser) parseDrop() (ast.Statement, error) {
	p.advance() // DROP
	switch p.cur().Kind {
	case lexer.TABLE:
		return p.parseDropTable()
	case lexer.MAPPING:
		return p.parseDropMapping()
	default:
		return nil, p.errorf("expected TABLE or MAPPING after DROP")
	}
}

func (p *Parser) parseExplain() (*ast.Explain, error) {
	p.advance() // EXPLAIN
	mode := ast.ExplainExec
	switch p.cur().Kind {
	case lexer.AST:
		mode = ast.ExplainAST
		p.advance()
	case lexer.EXEC:
		mode = ast.ExplainExec
		p.advance()
	}
	st := ast.NewSymbolTable(nil)
	query, err := p.parseQuery(st)
	if err != nil {
		return nil, err
	}
	return &ast.Explain{Base: ast.Base{Sym: st}, Mode: mode, Query: query}, nil
}

// parseQuery parses the top-level "SELECT ..." and any UNION tail.
func (p *Parser) parseQuery(st *ast.SymbolTable) (*ast.Query, error) {
	body, err := p.parseQueryExpr(st)
	if err != nil {
		return nil, err
	}
	return &ast.Query{Base: ast.Base{Sym: st}, Body: body}, nil
}

func (p *Parser) parseQueryExpr(st *ast.SymbolTable) (ast.QueryBody, error) {
	left, err := p.parseQuerySpecOrParen(st)
	if err != nil {
		return nil, err
	}
	for p.at(lexer.UNION) {
		p.advance()
		all := false
		if p.accept(lexer.ALL) {
			all = true
		} else {
			p.accept(lexer.DISTINCT)
		}
		if _, err := p.expect(lexer.LParen); err != nil {
			return nil, err
		}
		rightSt := ast.NewSymbolTable(st.Parent)
		right, err := p.parseQueryExpr(rightSt)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		left = &ast.Union{Base: ast.Base{Sym: st}, Left: left, Right: right, All: all}
	}
	return left, nil
}

func (p *Parser) parseQuerySpecOrParen(st *ast.SymbolTable) (ast.QueryBody, error) {
	if p.at(lexer.LParen) {
		p.advance()
		body, err := p.parseQueryExpr(st)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return body, nil
	}
	return p.parseQuerySpecification(st)
}

func (p *Parser) parseQuerySpecification(st *ast.SymbolTable) (*ast.QuerySpecification, error) {
	if _, err := p.expect(lexer.SELECT); err != nil {
		return nil, err
	}
	distinct := false
	if p.accept(lexer.DISTINCT) {
		distinct = true
	} else {
		p.accept(lexer.ALL)
	}
	items, err := p.parseSelectList(st)
	if err != nil {
		return nil, err
	}
	tableExpr, err := p.parseTableExpr(st)
	if err != nil {
		return nil, err
	}
	return &ast.QuerySpecification{
		Base:       ast.Base{Sym: st},
		Distinct:   distinct,
		SelectList: items,
		Table:      tableExpr,
	}, nil
}

func (p *Parser) parseSelectList(st *ast.SymbolTable) ([]ast.SelectItem, error) {
	var items []ast.SelectItem
	for {
		if p.at(lexer.Star) {
			p.advance()
			items = append(items, ast.SelectItem{Expr: &ast.QualifiedAsterisk{Base: ast.Base{Sym: st}}})
		} else {
			expr, err := p.parseExpr(st)
			if err != nil {
				return nil, err
			}
			name := ""
			if ident, ok := expr.(*ast.Identifier); ok {
				name = ident.Name
			}
			if p.accept(lexer.AS) {
				tok, err := p.expect(lexer.Ident)
				if err != nil {
					return nil, err
				}
				name = tok.Literal
			} else if p.at(lexer.Ident) && !p.nextStartsClauseOrComma() {
				name = p.advance().Literal
			}
			if name == "" {
				name = st.NewAlias()
			}
			sym := st.AddSymbol(&ast.Symbol{Kind: ast.Calc, Name: name, Expr: expr})
			items = append(items, ast.SelectItem{Expr: expr, Sym: sym})
		}
		if !p.accept(lexer.Comma) {
			break
		}
	}
	return items, nil
}

// nextStartsClauseOrComma guards the bare-alias shorthand ("expr alias")
// from swallowing the first keyword of the following clause.
func (p *Parser) nextStartsClauseOrComma() bool {
	switch p.cur().Kind {
	case lexer.FROM, lexer.WHERE, lexer.GROUP, lexer.HAVING, lexer.ORDER, lexer.LIMIT, lexer.Comma, lexer.UNION, lexer.RParen, lexer.Semicolon, lexer.EOF:
		return true
	default:
		return false
	}
}

func (p *Parser) parseTableExpr(st *ast.SymbolTable) (*ast.TableExpression, error) {
	from, err := p.parseFrom(st)
	if err != nil {
		return nil, err
	}
	te := &ast.TableExpression{Base: ast.Base{Sym: st}, From: from}
	if p.at(lexer.WHERE) {
		p.advance()
		cond, err := p.parseExpr(st)
		if err != nil {
			return nil, err
		}
		te.Where = &ast.Where{Base: ast.Base{Sym: st}, Condition: cond}
	}
	if p.at(lexer.GROUP) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		var keys []ast.Expression
		for {
			key, err := p.parseExpr(st)
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
			if !p.accept(lexer.Comma) {
				break
			}
		}
		te.GroupBy = &ast.GroupBy{Base: ast.Base{Sym: st}, Keys: keys}
	}
	if p.at(lexer.HAVING) {
		p.advance()
		cond, err := p.parseExpr(st)
		if err != nil {
			return nil, err
		}
		te.Having = &ast.Having{Base: ast.Base{Sym: st}, Condition: cond}
	}
	if p.at(lexer.ORDER) {
		p.advance()
		if _, err := p.expect(lexer.BY); err != nil {
			return nil, err
		}
		var items []ast.OrderItem
		for {
			expr, err := p.parseExpr(st)
			if err != nil {
				return nil, err
			}
			desc := false
			if p.accept(lexer.DESC) {
				desc = true
			} else {
				p.accept(lexer.ASC)
			}
			items = append(items, ast.OrderItem{Expr: expr, Desc: desc})
			if !p.accept(lexer.Comma) {
				break
			}
		}
		te.OrderBy = &ast.OrderBy{Base: ast.Base{Sym: st}, Items: items}
	}
	if p.at(lexer.LIMIT) {
		p.advance()
		limitTok, err := p.expect(lexer.IntLiteral)
		if err != nil {
			return nil, err
		}
		limitVal, _ := strconv.ParseInt(limitTok.Literal, 10, 64)
		var offsetVal int64
		if p.accept(lexer.OFFSET) {
			offsetTok, err := p.expect(lexer.IntLiteral)
			if err != nil {
				return nil, err
			}
			offsetVal, _ = strconv.ParseInt(offsetTok.Literal, 10, 64)
		}
		te.Limit = &ast.Limit{Base: ast.Base{Sym: st}, Limit: limitVal, Offset: offsetVal}
	}
	return te, nil
}

func (p *Parser) parseFrom(st *ast.SymbolTable) (*ast.From, error) {
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	ref, err := p.parseTableRef(st)
	if err != nil {
		return nil, err
	}
	return &ast.From{Base: ast.Base{Sym: st}, Table: ref}, nil
}

func (p *Parser) parseTableRef(st *ast.SymbolTable) (ast.TableRef, error) {
	left, err := p.parseTablePrimary(st)
	if err != nil {
		return nil, err
	}
	for {
		kind, ok := p.peekJoinKind()
		if !ok {
			break
		}
		p.consumeJoinKeyword(kind)
		if _, err := p.expect(lexer.JOIN); err != nil {
			return nil, err
		}
		right, err := p.parseTablePrimary(st)
		if err != nil {
			return nil, err
		}
		join := &ast.Join{Base: ast.Base{Sym: st}, Kind: kind, Left: left, Right: right}
		if kind == ast.JoinCross || kind == ast.JoinNatural {
			left = join
			continue
		}
		if _, err := p.expect(lexer.ON); err != nil {
			return nil, err
		}
		on, err := p.parseExpr(st)
		if err != nil {
			return nil, err
		}
		join.On = on
		left = join
	}
	return left, nil
}

func (p *Parser) peekJoinKind() (ast.JoinKind, bool) {
	switch p.cur().Kind {
	case lexer.JOIN:
		return ast.JoinInner, true
	case lexer.INNER:
		return ast.JoinInner, true
	case lexer.CROSS:
		return ast.JoinCross, true
	case lexer.LEFT:
		return ast.JoinLeft, true
	case lexer.RIGHT:
		return ast.JoinRight, true
	case lexer.FULL:
		return ast.JoinFull, true
	case lexer.NATURAL:
		return ast.JoinNatural, true
	default:
		return 0, false
	}
}

func (p *Parser) consumeJoinKeyword(kind ast.JoinKind) {
	switch p.cur().Kind {
	case lexer.JOIN:
		return
	case lexer.INNER, lexer.CROSS, lexer.NATURAL:
		p.advance()
	case lexer.LEFT, lexer.RIGHT, lexer.FULL:
		p.advance()
		p.accept(lexer.OUTER)
	}
}

func (p *Parser) parseTablePrimary(st *ast.SymbolTable) (ast.TableRef, error) {
	if p.accept(lexer.LParen) {
		innerSt := ast.NewSymbolTable(st)
		query, err := p.parseQuery(innerSt)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		alias := ""
		if p.accept(lexer.AS) {
			tok, err := p.expect(lexer.Ident)
			if err != nil {
				return nil, err
			}
			alias = tok.Literal
		} else if p.at(lexer.Ident) {
			alias = p.advance().Literal
		}
		st.AddSymbol(&ast.Symbol{Kind: ast.SubquerySym, Name: alias, Alias: alias, Subquery: innerSt})
		return &ast.TableSubquery{Base: ast.Base{Sym: st}, Query: query, Alias: alias}, nil
	}
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	alias := ""
	if p.accept(lexer.AS) {
		tok, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		alias = tok.Literal
	} else if p.at(lexer.Ident) {
		alias = p.advance().Literal
	}
	st.AddSymbol(&ast.Symbol{Kind: ast.TableSym, Name: nameTok.Literal, Alias: alias})
	return &ast.TableIdentifier{Base: ast.Base{Sym: st}, Name: nameTok.Literal, Alias: alias}, nil
}

func (p *Parser) parseCreateTable() (*ast.CreateTable, error) {
	p.advance() // TABLE
	ifNotExists := false
	if p.at(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.NOT); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifNotExists = true
	}
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	schema := &catalog.TableSchema{Name: nameTok.Literal}
	for {
		if p.atAny(lexer.CONSTRAINT, lexer.PRIMARY, lexer.UNIQUE, lexer.CHECK) {
			if err := p.parseTableConstraint(schema); err != nil {
				return nil, err
			}
		} else {
			col, err := p.parseColumnDef()
			if err != nil {
				return nil, err
			}
			schema.Columns = append(schema.Columns, col)
			if col.PrimaryKey {
				schema.PrimaryKeyCols = append(schema.PrimaryKeyCols, col.Name)
			}
			if col.Unique {
				schema.UniqueCols = append(schema.UniqueCols, col.Name)
			}
		}
		if !p.accept(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.CreateTable{Base: ast.Base{Sym: ast.NewSymbolTable(nil)}, Schema: schema, IfNotExists: ifNotExists}, nil
}

func (p *Parser) parseColumnDef() (catalog.Column, error) {
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return catalog.Column{}, err
	}
	typ, length, err := p.parseColumnType()
	if err != nil {
		return catalog.Column{}, err
	}
	col := catalog.Column{Name: nameTok.Literal, Type: typ, Length: length}
	for {
		switch p.cur().Kind {
		case lexer.PRIMARY:
			p.advance()
			if _, err := p.expect(lexer.KEY); err != nil {
				return catalog.Column{}, err
			}
			col.PrimaryKey = true
			col.NotNull = true
		case lexer.UNIQUE:
			p.advance()
			col.Unique = true
		case lexer.NOT:
			p.advance()
			if _, err := p.expect(lexer.NULL); err != nil {
				return catalog.Column{}, err
			}
			col.NotNull = true
		case lexer.DEFAULT:
			p.advance()
			lit, err := p.captureTokensUntilColumnBoundary()
			if err != nil {
				return catalog.Column{}, err
			}
			col.Default = lit
			col.HasDefault = true
		case lexer.CHECK:
			p.advance()
			check, err := p.captureParenthesized()
			if err != nil {
				return catalog.Column{}, err
			}
			col.Check = check
		default:
			return col, nil
		}
	}
}

func (p *Parser) parseTableConstraint(schema *catalog.TableSchema) error {
	if p.accept(lexer.CONSTRAINT) {
		if _, err := p.expect(lexer.Ident); err != nil {
			return err
		}
	}
	switch p.cur().Kind {
	case lexer.PRIMARY:
		p.advance()
		if _, err := p.expect(lexer.KEY); err != nil {
			return err
		}
		cols, err := p.parseParenIdentList()
		if err != nil {
			return err
		}
		schema.PrimaryKeyCols = append(schema.PrimaryKeyCols, cols...)
	case lexer.UNIQUE:
		p.advance()
		cols, err := p.parseParenIdentList()
		if err != nil {
			return err
		}
		schema.UniqueCols = append(schema.UniqueCols, cols...)
	case lexer.CHECK:
		p.advance()
		check, err := p.captureParenthesized()
		if err != nil {
			return err
		}
		schema.TableCheck = check
	default:
		return p.errorf("expected PRIMARY, UNIQUE, or CHECK after CONSTRAINT")
	}
	return nil
}

func (p *Parser) parseParenIdentList() ([]string, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	var cols []string
	for {
		tok, err := p.expect(lexer.Ident)
		if err != nil {
			return nil, err
		}
		cols = append(cols, tok.Literal)
		if !p.accept(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return cols, nil
}

// captureParenthesized returns the raw source text of a parenthesized
// group, used for CHECK clauses that are stored descriptively rather
// than compiled (catalog.Column.Check / catalog.TableSchema.TableCheck
// are opaque strings, consistent with the engine never validating check
// constraints at write time since writes are out of scope, spec.md §1).
func (p *Parser) captureParenthesized() (string, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return "", err
	}
	var parts []string
	depth := 1
	for depth > 0 {
		if p.at(lexer.EOF) {
			return "", p.errorf("unterminated parenthesized expression")
		}
		if p.at(lexer.LParen) {
			depth++
		}
		if p.at(lexer.RParen) {
			depth--
			if depth == 0 {
				p.advance()
				break
			}
		}
		parts = append(parts, p.advance().Literal)
	}
	return strings.Join(parts, " "), nil
}

func (p *Parser) captureTokensUntilColumnBoundary() (string, error) {
	var parts []string
	for !p.atAny(lexer.Comma, lexer.RParen, lexer.PRIMARY, lexer.UNIQUE, lexer.NOT, lexer.CHECK, lexer.EOF) {
		parts = append(parts, p.advance().Literal)
	}
	if len(parts) == 0 {
		return "", p.errorf("expected a default value")
	}
	return strings.Join(parts, " "), nil
}

func (p *Parser) parseColumnType() (value.Type, int, error) {
	switch p.cur().Kind {
	case lexer.INT:
		p.advance()
		return value.TypeInt, 0, nil
	case lexer.REAL:
		p.advance()
		return value.TypeReal, 0, nil
	case lexer.BOOLEAN:
		p.advance()
		return value.TypeBool, 0, nil
	case lexer.DATE:
		p.advance()
		return value.TypeDate, 0, nil
	case lexer.TIME:
		p.advance()
		return value.TypeTime, 0, nil
	case lexer.TIMESTAMP:
		p.advance()
		return value.TypeTimestamp, 0, nil
	case lexer.STRING:
		p.advance()
		return value.TypeString, 0, nil
	case lexer.CHAR:
		p.advance()
		p.accept(lexer.VARYING)
		length := 0
		if p.accept(lexer.LParen) {
			tok, err := p.expect(lexer.IntLiteral)
			if err != nil {
				return value.TypeString, 0, err
			}
			length, _ = strconv.Atoi(tok.Literal)
			if _, err := p.expect(lexer.RParen); err != nil {
				return value.TypeString, 0, err
			}
		}
		return value.TypeString, length, nil
	default:
		return value.TypeNull, 0, p.errorf("expected a column type")
	}
}

func (p *Parser) parseDropTable() (*ast.DropTable, error) {
	p.advance() // TABLE
	ifExists := false
	if p.at(lexer.IF) {
		p.advance()
		if _, err := p.expect(lexer.EXISTS); err != nil {
			return nil, err
		}
		ifExists = true
	}
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	return &ast.DropTable{Base: ast.Base{Sym: ast.NewSymbolTable(nil)}, Name: nameTok.Literal, IfExists: ifExists}, nil
}

func (p *Parser) parseCreateMapping() (*ast.CreateMapping, error) {
	p.advance() // MAPPING
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	patternTok, err := p.expect(lexer.StringLiteral)
	if err != nil {
		return nil, err
	}
	mapping := &catalog.FileMapping{Table: nameTok.Literal, Pattern: patternTok.Literal, SkipFirstLine: true}
	if p.accept(lexer.Comma) {
		delimTok, err := p.expect(lexer.StringLiteral)
		if err != nil {
			return nil, err
		}
		mapping.Delimiter = delimTok.Literal
	}
	if p.accept(lexer.Comma) {
		if p.accept(lexer.TRUE) {
			mapping.SkipFirstLine = true
		} else if p.accept(lexer.FALSE) {
			mapping.SkipFirstLine = false
		} else {
			return nil, p.errorf("expected TRUE or FALSE")
		}
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.CreateMapping{Base: ast.Base{Sym: ast.NewSymbolTable(nil)}, Mapping: mapping}, nil
}

func (p *Parser) parseDropMapping() (*ast.DropMapping, error) {
	p.advance() // MAPPING
	nameTok, err := p.expect(lexer.Ident)
	if err != nil {
		return nil, err
	}
	return &ast.DropMapping{Base: ast.Base{Sym: ast.NewSymbolTable(nil)}, Table: nameTok.Literal}, nil
}
