package parser

import (
	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/value"
)

// exprParser is a recursive-descent parser over one tag/output body's
// token stream (spec.md §4.B's grammar).
type exprParser struct {
	toks []exprToken
	pos  int
	at   ast.Position
}

func newExprParser(body string, at ast.Position) (*exprParser, error) {
	toks, err := tokenizeExpr(body)
	if err != nil {
		return nil, err
	}
	return &exprParser{toks: toks, at: at}, nil
}

func (p *exprParser) peek() exprToken { return p.toks[p.pos] }
func (p *exprParser) advance() exprToken {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}
func (p *exprParser) atEOF() bool { return p.peek().typ == eEOF }

func (p *exprParser) expect(t exprTokType, what string) (exprToken, error) {
	if p.peek().typ != t {
		return exprToken{}, &ParseError{Message: "expected " + what, Pos: p.at}
	}
	return p.advance(), nil
}

// parseLogical implements spec.md §4.B's `logical`: and/or, no precedence
// distinction between the two, associating right-to-left per Liquid (so
// `true or false and false` groups as `true or (false and false)`).
func (p *exprParser) parseLogical() (ast.Expression, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if p.peek().typ != eIdent || (p.peek().text != "and" && p.peek().text != "or") {
		return left, nil
	}
	opTok := p.advance()
	op := ast.OpAnd
	if opTok.text == "or" {
		op = ast.OpOr
	}
	right, err := p.parseLogical()
	if err != nil {
		return nil, err
	}
	return ast.NewBinaryExpr(p.at, op, left, right), nil
}

// parseComparison implements `comparison`: a chain of ==, !=, <, <=, >,
// >=, contains over filter-chain operands.
func (p *exprParser) parseComparison() (ast.Expression, error) {
	left, err := p.parseFilterChain()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinaryOp
		switch {
		case p.peek().typ == eEqEq:
			op = ast.OpEq
		case p.peek().typ == eNe:
			op = ast.OpNe
		case p.peek().typ == eLt:
			op = ast.OpLt
		case p.peek().typ == eLe:
			op = ast.OpLe
		case p.peek().typ == eGt:
			op = ast.OpGt
		case p.peek().typ == eGe:
			op = ast.OpGe
		case p.peek().typ == eIdent && p.peek().text == "contains":
			op = ast.OpContains
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseFilterChain()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinaryExpr(p.at, op, left, right)
	}
}

// parseFilterChain implements `expr := primary (filter)*`, where
// primary here is a full member-access chain (spec.md's `term`/`member`
// collapse naturally: a filter's target is whatever precedes the `|`).
func (p *exprParser) parseFilterChain() (ast.Expression, error) {
	target, err := p.parseMember()
	if err != nil {
		return nil, err
	}
	for p.peek().typ == ePipe {
		p.advance()
		nameTok, err := p.expect(eIdent, "filter name")
		if err != nil {
			return nil, err
		}
		var args []ast.FilterArg
		if p.peek().typ == eColon {
			p.advance()
			for {
				arg, err := p.parseFilterArg()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.peek().typ == eComma {
					p.advance()
					continue
				}
				break
			}
		}
		target = ast.NewFilterExpr(p.at, target, nameTok.text, args)
	}
	return target, nil
}

// parseFilterArg implements spec.md §4.B's `arg := (ident '=')? logical`,
// where named args accept either ':' (the common filter-colon form) or
// '=' (the keyword-argument form) after the name.
func (p *exprParser) parseFilterArg() (ast.FilterArg, error) {
	if p.peek().typ == eIdent && (p.toks[p.pos+1].typ == eColon || p.toks[p.pos+1].typ == eEq) {
		name := p.advance().text
		p.advance() // ':' or '='
		v, err := p.parseLogical()
		if err != nil {
			return ast.FilterArg{}, err
		}
		return ast.FilterArg{Name: name, Value: v}, nil
	}
	v, err := p.parseLogical()
	if err != nil {
		return ast.FilterArg{}, err
	}
	return ast.FilterArg{Value: v}, nil
}

// parseMember implements `member := primary ('.' ident | '[' expr ']')*`.
func (p *exprParser) parseMember() (ast.Expression, error) {
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().typ {
		case eDot:
			p.advance()
			nameTok, err := p.expect(eIdent, "member name")
			if err != nil {
				return nil, err
			}
			prim = ast.NewMemberAccess(p.at, prim, nameTok.text)
		case eLBracket:
			p.advance()
			idx, err := p.parseLogical()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(eRBracket, "']'"); err != nil {
				return nil, err
			}
			prim = ast.NewIndexAccess(p.at, prim, idx)
		default:
			return prim, nil
		}
	}
}

// parsePrimary implements `primary := literal | ident | '(' range_or_expr ')'`.
func (p *exprParser) parsePrimary() (ast.Expression, error) {
	tok := p.peek()
	switch tok.typ {
	case eLParen:
		p.advance()
		first, err := p.parseLogical()
		if err != nil {
			return nil, err
		}
		if p.peek().typ == eDotDot {
			p.advance()
			second, err := p.parseLogical()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(eRParen, "')'"); err != nil {
				return nil, err
			}
			return ast.NewRangeExpr(p.at, first, second), nil
		}
		if _, err := p.expect(eRParen, "')'"); err != nil {
			return nil, err
		}
		return first, nil
	case eString:
		p.advance()
		return ast.NewLiteral(p.at, value.String(tok.text)), nil
	case eNumber:
		p.advance()
		n, ok := value.NumberFromString(tok.text)
		if !ok {
			return nil, &ParseError{Message: "invalid number literal: " + tok.text, Pos: p.at}
		}
		return ast.NewLiteral(p.at, n), nil
	case eIdent:
		p.advance()
		switch tok.text {
		case "true":
			return ast.NewLiteral(p.at, value.Bool(true)), nil
		case "false":
			return ast.NewLiteral(p.at, value.Bool(false)), nil
		case "nil", "null":
			return ast.NewLiteral(p.at, value.Nil), nil
		case "empty":
			return ast.NewLiteral(p.at, value.Empty()), nil
		case "blank":
			return ast.NewLiteral(p.at, value.Blank()), nil
		default:
			return ast.NewVariable(p.at, tok.text), nil
		}
	default:
		return nil, &ParseError{Message: "unexpected token in expression", Pos: p.at}
	}
}

// parseCommaExprList parses a comma-separated list of logical
// expressions, used by `cycle` and `render`'s positional form.
func (p *exprParser) parseCommaExprList() ([]ast.Expression, error) {
	var out []ast.Expression
	for {
		e, err := p.parseLogical()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if p.peek().typ == eComma {
			p.advance()
			continue
		}
		break
	}
	return out, nil
}
