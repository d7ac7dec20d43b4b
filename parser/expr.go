package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/fuersten/csvsqldb-sub001/ast"
	"github.com/fuersten/csvsqldb-sub001/lexer"
	"github.com/fuersten/csvsqldb-sub001/value"
)

// parseExpr is the entry point for the expression grammar of spec.md
// §4.2, precedence lowest to highest: OR, AND, equality/LIKE/BETWEEN/
// IN/IS, relational, additive/concat, multiplicative, unary, factor.
func (p *Parser) parseExpr(st *ast.SymbolTable) (ast.Expression, error) {
	return p.parseOr(st)
}

func (p *Parser) parseOr(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseAnd(st)
	if err != nil {
		return nil, err
	}
	for p.accept(lexer.OR) {
		right, err := p.parseAnd(st)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: ast.OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseEqualityLevel(st)
	if err != nil {
		return nil, err
	}
	for p.accept(lexer.AND) {
		right, err := p.parseEqualityLevel(st)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: ast.OpAnd, Left: left, Right: right}
	}
	return left, nil
}

// parseEqualityLevel handles =, <>, and the postfix predicate forms
// LIKE/BETWEEN/IN/IS which spec.md §4.2 groups at the same precedence,
// each optionally preceded by NOT.
func (p *Parser) parseEqualityLevel(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseRelational(st)
	if err != nil {
		return nil, err
	}
	for {
		not := false
		startPos := p.pos
		if p.at(lexer.NOT) && p.peekIsPredicateKeyword() {
			p.advance()
			not = true
		}
		switch p.cur().Kind {
		case lexer.Eq, lexer.Neq:
			op := ast.OpEq
			if p.cur().Kind == lexer.Neq {
				op = ast.OpNeq
			}
			p.advance()
			right, err := p.parseRelational(st)
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: op, Left: left, Right: right}
			continue
		case lexer.LIKE:
			p.advance()
			patTok, err := p.expect(lexer.StringLiteral)
			if err != nil {
				return nil, err
			}
			left = &ast.Like{Base: ast.Base{Sym: st}, Operand: left, Regex: translateLikePattern(patTok.Literal), Not: not}
			continue
		case lexer.BETWEEN:
			p.advance()
			low, err := p.parseAdditive(st)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.AND); err != nil {
				return nil, err
			}
			high, err := p.parseAdditive(st)
			if err != nil {
				return nil, err
			}
			left = &ast.Between{Base: ast.Base{Sym: st}, Operand: left, Low: low, High: high, Not: not}
			continue
		case lexer.IN:
			p.advance()
			if _, err := p.expect(lexer.LParen); err != nil {
				return nil, err
			}
			var list []ast.Expression
			for {
				item, err := p.parseExpr(st)
				if err != nil {
					return nil, err
				}
				list = append(list, item)
				if !p.accept(lexer.Comma) {
					break
				}
			}
			if _, err := p.expect(lexer.RParen); err != nil {
				return nil, err
			}
			left = &ast.In{Base: ast.Base{Sym: st}, Operand: left, List: list, Not: not}
			continue
		case lexer.IS:
			p.advance()
			isNot := p.accept(lexer.NOT)
			op := ast.OpIs
			if isNot {
				op = ast.OpIsNot
			}
			var rhs ast.Expression
			switch p.cur().Kind {
			case lexer.TRUE:
				p.advance()
				rhs = &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewBool(true)}
			case lexer.FALSE:
				p.advance()
				rhs = &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewBool(false)}
			case lexer.NULL:
				p.advance()
				rhs = &ast.Literal{Base: ast.Base{Sym: st}, Value: value.Null(value.TypeBool)}
			default:
				return nil, p.errorf("expected TRUE, FALSE, or NULL after IS [NOT]")
			}
			left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: op, Left: left, Right: rhs}
			continue
		default:
			if not {
				p.pos = startPos
			}
			return left, nil
		}
	}
}

func (p *Parser) peekIsPredicateKeyword() bool {
	switch p.peek().Kind {
	case lexer.LIKE, lexer.BETWEEN, lexer.IN:
		return true
	default:
		return false
	}
}

func (p *Parser) parseRelational(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseAdditive(st)
	if err != nil {
		return nil, err
	}
	for p.atAny(lexer.Lt, lexer.Le, lexer.Gt, lexer.Ge) {
		op := map[lexer.Kind]ast.BinOp{lexer.Lt: ast.OpLt, lexer.Le: ast.OpLe, lexer.Gt: ast.OpGt, lexer.Ge: ast.OpGe}[p.cur().Kind]
		p.advance()
		right, err := p.parseAdditive(st)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseMultiplicative(st)
	if err != nil {
		return nil, err
	}
	for p.atAny(lexer.Plus, lexer.Minus, lexer.Concat) {
		op := map[lexer.Kind]ast.BinOp{lexer.Plus: ast.OpAdd, lexer.Minus: ast.OpSub, lexer.Concat: ast.OpConcat}[p.cur().Kind]
		p.advance()
		right, err := p.parseMultiplicative(st)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative(st *ast.SymbolTable) (ast.Expression, error) {
	left, err := p.parseUnary(st)
	if err != nil {
		return nil, err
	}
	for p.atAny(lexer.Star, lexer.Slash, lexer.Percent) {
		op := map[lexer.Kind]ast.BinOp{lexer.Star: ast.OpMul, lexer.Slash: ast.OpDiv, lexer.Percent: ast.OpMod}[p.cur().Kind]
		p.advance()
		right, err := p.parseUnary(st)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Base: ast.Base{Sym: st}, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary(st *ast.SymbolTable) (ast.Expression, error) {
	switch p.cur().Kind {
	case lexer.NOT:
		p.advance()
		operand, err := p.parseUnary(st)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Base: ast.Base{Sym: st}, Op: ast.OpNot, Operand: operand}, nil
	case lexer.Minus:
		p.advance()
		operand, err := p.parseUnary(st)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Base: ast.Base{Sym: st}, Op: ast.OpMinus, Operand: operand}, nil
	case lexer.Plus:
		p.advance()
		operand, err := p.parseUnary(st)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Base: ast.Base{Sym: st}, Op: ast.OpPlus, Operand: operand}, nil
	case lexer.CAST:
		return p.parseCast(st)
	default:
		return p.parseFactor(st)
	}
}

func (p *Parser) parseCast(st *ast.SymbolTable) (ast.Expression, error) {
	p.advance() // CAST
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr(st)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.AS); err != nil {
		return nil, err
	}
	typ, _, err := p.parseColumnType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.UnaryOp{Base: ast.Base{Sym: st}, Op: ast.OpCast, Operand: operand, CastType: typ}, nil
}

func (p *Parser) parseFactor(st *ast.SymbolTable) (ast.Expression, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.LParen:
		p.advance()
		expr, err := p.parseExpr(st)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return expr, nil
	case lexer.IntLiteral:
		p.advance()
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Literal)
		}
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewInt(i)}, nil
	case lexer.RealLiteral:
		p.advance()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, p.errorf("invalid real literal %q", tok.Literal)
		}
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewReal(f)}, nil
	case lexer.StringLiteral:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewString(tok.Literal)}, nil
	case lexer.TRUE:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewBool(true)}, nil
	case lexer.FALSE:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewBool(false)}, nil
	case lexer.NULL:
		p.advance()
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: value.Null(value.TypeString)}, nil
	case lexer.DateLiteral:
		p.advance()
		v, err := value.ParseDateLiteral(tok.Literal)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: v}, nil
	case lexer.TimeLiteral:
		p.advance()
		v, err := value.ParseTimeLiteral(tok.Literal)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: v}, nil
	case lexer.TimestampLiteral:
		p.advance()
		v, err := value.ParseTimestampLiteral(tok.Literal)
		if err != nil {
			return nil, err
		}
		return &ast.Literal{Base: ast.Base{Sym: st}, Value: v}, nil
	case lexer.CURRENT_DATE:
		p.advance()
		p.consumeEmptyArgList()
		return &ast.FunctionCall{Base: ast.Base{Sym: st}, Name: "CURRENT_DATE"}, nil
	case lexer.CURRENT_TIME:
		p.advance()
		p.consumeEmptyArgList()
		return &ast.FunctionCall{Base: ast.Base{Sym: st}, Name: "CURRENT_TIME"}, nil
	case lexer.CURRENT_TIMESTAMP:
		p.advance()
		p.consumeEmptyArgList()
		return &ast.FunctionCall{Base: ast.Base{Sym: st}, Name: "CURRENT_TIMESTAMP"}, nil
	case lexer.EXTRACT:
		return p.parseExtract(st)
	case lexer.SUM, lexer.COUNT, lexer.AVG, lexer.MIN, lexer.MAX, lexer.ARBITRARY:
		return p.parseAggregateCall(st)
	case lexer.Ident, lexer.QuotedIdent:
		return p.parseIdentifierOrCall(st)
	default:
		return nil, p.errorf("unexpected token in expression")
	}
}

func (p *Parser) consumeEmptyArgList() {
	if p.accept(lexer.LParen) {
		p.accept(lexer.RParen)
	}
}

func (p *Parser) parseExtract(st *ast.SymbolTable) (ast.Expression, error) {
	p.advance() // EXTRACT
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	fieldCode, err := p.parseExtractField()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.FROM); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr(st)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.FunctionCall{
		Base: ast.Base{Sym: st},
		Name: "EXTRACT",
		Args: []ast.Expression{
			&ast.Literal{Base: ast.Base{Sym: st}, Value: value.NewInt(int64(fieldCode))},
			operand,
		},
	}, nil
}

func (p *Parser) parseExtractField() (int, error) {
	switch p.cur().Kind {
	case lexer.SECOND:
		p.advance()
		return ast.ExtractSecond, nil
	case lexer.MINUTE:
		p.advance()
		return ast.ExtractMinute, nil
	case lexer.HOUR:
		p.advance()
		return ast.ExtractHour, nil
	case lexer.DAY:
		p.advance()
		return ast.ExtractDay, nil
	case lexer.MONTH:
		p.advance()
		return ast.ExtractMonth, nil
	case lexer.YEAR:
		p.advance()
		return ast.ExtractYear, nil
	default:
		return 0, p.errorf("expected a date/time field name")
	}
}

func (p *Parser) parseAggregateCall(st *ast.SymbolTable) (ast.Expression, error) {
	name := p.advance().Literal
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, err
	}
	if p.at(lexer.Star) {
		p.advance()
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ast.AggregateCall{Base: ast.Base{Sym: st}, Name: name, Star: true}, nil
	}
	arg, err := p.parseExpr(st)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.AggregateCall{Base: ast.Base{Sym: st}, Name: name, Arg: arg}, nil
}

func (p *Parser) parseIdentifierOrCall(st *ast.SymbolTable) (ast.Expression, error) {
	first := p.advance().Literal
	if p.at(lexer.Dot) {
		p.advance()
		if p.at(lexer.Star) {
			p.advance()
			return &ast.QualifiedAsterisk{Base: ast.Base{Sym: st}, Qualifier: first}, nil
		}
		second, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		return &ast.Identifier{Base: ast.Base{Sym: st}, Qualifier: first, Name: second}, nil
	}
	if p.at(lexer.LParen) {
		p.advance()
		var args []ast.Expression
		if !p.at(lexer.RParen) {
			for {
				arg, err := p.parseExpr(st)
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if !p.accept(lexer.Comma) {
					break
				}
			}
		}
		if _, err := p.expect(lexer.RParen); err != nil {
			return nil, err
		}
		return &ast.FunctionCall{Base: ast.Base{Sym: st}, Name: first, Args: args}, nil
	}
	return &ast.Identifier{Base: ast.Base{Sym: st}, Name: first}, nil
}

func (p *Parser) expectIdentLike() (string, error) {
	if p.at(lexer.Ident) || p.at(lexer.QuotedIdent) {
		return p.advance().Literal, nil
	}
	return "", p.errorf("expected an identifier")
}

var likeMetaEscaper = strings.NewReplacer(
	".", `\.`, "*", `\*`, "?", `\?`, "(", `\(`, ")", `\)`,
)

// translateLikePattern applies spec.md §4.2's substitution table: '%'
// becomes '.*', '_' becomes '.', and the regex metacharacters . * ? ( )
// are backslash-escaped first so a literal '%' or '_' in the pattern
// can't be reinterpreted after escaping.
func translateLikePattern(pattern string) string {
	escaped := likeMetaEscaper.Replace(pattern)
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range escaped {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('$')
	return sb.String()
}

// CompileLikeRegex compiles a translated LIKE pattern. The stack
// machine's compiler does not call it; it compiles each LIKE regex with
// regexp.Compile itself.
func CompileLikeRegex(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile(pattern)
}
