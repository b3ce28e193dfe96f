// Package parser implements the recursive-descent grammar described in
// spec.md §4.B/§4.C: an expression grammar layered over a tag/statement
// grammar, consuming the token stream produced by package lexer and
// producing an ast.Template.
package parser

import (
	"fmt"
	"strings"

	"github.com/codingersid/legit-liquid/ast"
	"github.com/codingersid/legit-liquid/lexer"
)

// ParseError is raised for any malformed template; it carries the
// source position and a human-readable message (spec.md §7). The AST
// built so far is discarded.
type ParseError struct {
	Pos      ast.Position
	Message  string
	Template string
}

func (e *ParseError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("%s at line %d, column %d: %s", e.Template, e.Pos.Line, e.Pos.Column, e.Message)
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

func toASTPos(p lexer.Position) ast.Position {
	return ast.Position{Line: p.Line, Column: p.Column, Offset: p.Offset}
}

// Parse tokenizes and parses source into an immutable Template. name is
// carried for error messages and child-template resolution. It uses the
// lexer's default options; ParseWithOptions lets a caller apply the
// engine's greedy_parser/trim_blocks/trim_tags configuration.
func Parse(name, source string) (*ast.Template, error) {
	return ParseWithOptions(name, source, lexer.DefaultOptions())
}

// ParseWithOptions is Parse with explicit lexer.Options (spec.md §6).
func ParseWithOptions(name, source string, opts lexer.Options) (*ast.Template, error) {
	toks, err := lexer.NewWithOptions(source, opts).Tokenize()
	if err != nil {
		if le, ok := err.(*lexer.LexerError); ok {
			return nil, &ParseError{Pos: toASTPos(le.Position), Message: le.Message, Template: name}
		}
		return nil, &ParseError{Message: err.Error(), Template: name}
	}
	p := &Parser{toks: toks, name: name}
	stmts, stop, err := p.parseStatements(nil)
	if err != nil {
		return nil, err
	}
	if stop != "" {
		return nil, p.errf("unexpected tag '%s' with no matching opening tag", stop)
	}
	return &ast.Template{Name: name, Nodes: stmts}, nil
}

// Parser consumes the outer token stream (text/output/tag) produced by
// package lexer. Tag bodies are re-tokenized on demand by the
// expression parser in expr.go/exprlex.go.
type Parser struct {
	toks []lexer.Token
	pos  int
	name string
}

func (p *Parser) errf(format string, args ...interface{}) *ParseError {
	pos := ast.Position{}
	if p.pos < len(p.toks) {
		pos = toASTPos(p.toks[p.pos].Position)
	}
	return &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...), Template: p.name}
}

// blockTerminators names the set of stop-tags a given block grammar is
// waiting for, consumed by parseStatements without being rendered.
type blockTerminators map[string]bool

// parseStatements consumes tokens until EOF or until it encounters a
// TAG token whose name is in stop (that token is left unconsumed so the
// caller can inspect its arguments, e.g. an `elsif`'s condition).
func (p *Parser) parseStatements(stop blockTerminators) (ast.Block, string, error) {
	var out ast.Block
	for {
		if p.pos >= len(p.toks) {
			return out, "", nil
		}
		tok := p.toks[p.pos]
		switch tok.Type {
		case lexer.TOKEN_EOF:
			return out, "", nil
		case lexer.TOKEN_TEXT:
			p.pos++
			if tok.Value == "" {
				continue
			}
			out = append(out, ast.NewRawText(toASTPos(tok.Position), tok.Value))
		case lexer.TOKEN_OUTPUT:
			p.pos++
			expr, err := p.parseExprBody(tok.Value, toASTPos(tok.Position))
			if err != nil {
				return nil, "", err
			}
			out = append(out, ast.NewOutput(toASTPos(tok.Position), expr))
		case lexer.TOKEN_TAG:
			name, rest := splitTagName(tok.Value)
			if stop != nil && stop[name] {
				return out, name, nil
			}
			p.pos++
			stmt, err := p.parseTag(name, rest, tok.Position)
			if err != nil {
				return nil, "", err
			}
			if stmt != nil {
				out = append(out, stmt)
			}
		default:
			return nil, "", p.errf("unknown token type")
		}
	}
}

func (p *Parser) parseExprBody(body string, at ast.Position) (ast.Expression, error) {
	ep, err := newExprParser(body, at)
	if err != nil {
		return nil, withTemplate(err, p.name)
	}
	e, err := ep.parseLogical()
	if err != nil {
		return nil, withTemplate(err, p.name)
	}
	if !ep.atEOF() {
		return nil, &ParseError{Pos: at, Message: "unexpected trailing tokens in expression: " + body, Template: p.name}
	}
	return e, nil
}

func withTemplate(err error, name string) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Template = name
		return pe
	}
	return err
}

func (p *Parser) parseTag(name, rest string, pos lexer.Position) (ast.Statement, error) {
	at := toASTPos(pos)
	switch name {
	case "if":
		return p.parseIf(rest, at)
	case "unless":
		return p.parseUnless(rest, at)
	case "case":
		return p.parseCase(rest, at)
	case "for":
		return p.parseFor(rest, at)
	case "break":
		return ast.NewBreakStmt(at), nil
	case "continue":
		return ast.NewContinueStmt(at), nil
	case "capture":
		return p.parseCapture(rest, at)
	case "assign":
		return p.parseAssign(rest, at)
	case "increment":
		return ast.NewIncrementStmt(at, strings.TrimSpace(rest)), nil
	case "decrement":
		return ast.NewDecrementStmt(at, strings.TrimSpace(rest)), nil
	case "cycle":
		return p.parseCycle(rest, at)
	case "include":
		return p.parseInclude(rest, at, false)
	case "render":
		return p.parseInclude(rest, at, true)
	case "comment":
		return p.parseComment(at)
	case "raw":
		return p.parseRaw(at)
	default:
		return nil, &ParseError{Pos: at, Message: "unknown tag '" + name + "'", Template: p.name}
	}
}

func (p *Parser) parseIf(rest string, at ast.Position) (ast.Statement, error) {
	guard, err := p.parseExprBody(rest, at)
	if err != nil {
		return nil, err
	}
	return p.parseIfChain(at, guard)
}

func (p *Parser) parseUnless(rest string, at ast.Position) (ast.Statement, error) {
	guard, err := p.parseExprBody(rest, at)
	if err != nil {
		return nil, err
	}
	return p.parseIfChain(at, ast.NewNotExpr(at, guard))
}

func (p *Parser) parseIfChain(at ast.Position, firstGuard ast.Expression) (ast.Statement, error) {
	var branches []ast.IfBranch
	terms := blockTerminators{"elsif": true, "else": true, "endif": true, "endunless": true}
	body, stop, err := p.parseStatements(terms)
	if err != nil {
		return nil, err
	}
	branches = append(branches, ast.IfBranch{Guard: firstGuard, Body: body})
	for {
		switch stop {
		case "elsif":
			tok := p.toks[p.pos]
			p.pos++
			_, rest := splitTagName(tok.Value)
			g, err := p.parseExprBody(rest, toASTPos(tok.Position))
			if err != nil {
				return nil, err
			}
			b, s, err := p.parseStatements(terms)
			if err != nil {
				return nil, err
			}
			branches = append(branches, ast.IfBranch{Guard: g, Body: b})
			stop = s
		case "else":
			p.pos++
			b, s, err := p.parseStatements(blockTerminators{"endif": true, "endunless": true})
			if err != nil {
				return nil, err
			}
			branches = append(branches, ast.IfBranch{Guard: nil, Body: b})
			stop = s
		case "endif", "endunless":
			p.pos++
			return ast.NewIfStmt(at, branches), nil
		default:
			return nil, &ParseError{Pos: at, Message: "unterminated if/unless block", Template: p.name}
		}
	}
}

func (p *Parser) parseCase(rest string, at ast.Position) (ast.Statement, error) {
	subject, err := p.parseExprBody(rest, at)
	if err != nil {
		return nil, err
	}
	terms := blockTerminators{"when": true, "else": true, "endcase": true}
	_, stop, err := p.parseStatements(terms)
	if err != nil {
		return nil, err
	}
	var whens []ast.CaseWhen
	var elseBody ast.Block
	for stop == "when" {
		tok := p.toks[p.pos]
		p.pos++
		_, rest := splitTagName(tok.Value)
		ep, err := newExprParser(rest, toASTPos(tok.Position))
		if err != nil {
			return nil, withTemplate(err, p.name)
		}
		values, err := ep.parseCommaExprList()
		if err != nil {
			return nil, withTemplate(err, p.name)
		}
		body, s, err := p.parseStatements(terms)
		if err != nil {
			return nil, err
		}
		whens = append(whens, ast.CaseWhen{Values: values, Body: body})
		stop = s
	}
	if stop == "else" {
		p.pos++
		body, s, err := p.parseStatements(blockTerminators{"endcase": true})
		if err != nil {
			return nil, err
		}
		elseBody = body
		stop = s
	}
	if stop != "endcase" {
		return nil, &ParseError{Pos: at, Message: "unterminated case block", Template: p.name}
	}
	p.pos++
	return ast.NewCaseStmt(at, subject, whens, elseBody), nil
}

func (p *Parser) parseFor(rest string, at ast.Position) (ast.Statement, error) {
	ep, err := newExprParser(rest, at)
	if err != nil {
		return nil, err
	}
	varTok, err := ep.expect(eIdent, "loop variable")
	if err != nil {
		return nil, err
	}
	inTok, err := ep.expect(eIdent, "'in'")
	if err != nil || inTok.text != "in" {
		return nil, &ParseError{Pos: at, Message: "expected 'in' in for loop", Template: p.name}
	}
	source, err := ep.parseFilterChain()
	if err != nil {
		return nil, err
	}
	var limit, offset ast.Expression
	reversed := false
	for ep.peek().typ == eIdent {
		switch ep.peek().text {
		case "limit":
			ep.advance()
			if ep.peek().typ == eColon {
				ep.advance()
			}
			limit, err = ep.parseFilterChain()
			if err != nil {
				return nil, err
			}
		case "offset":
			ep.advance()
			if ep.peek().typ == eColon {
				ep.advance()
			}
			offset, err = ep.parseFilterChain()
			if err != nil {
				return nil, err
			}
		case "reversed":
			ep.advance()
			reversed = true
		default:
			return nil, &ParseError{Pos: at, Message: "unexpected modifier '" + ep.peek().text + "' in for loop", Template: p.name}
		}
	}
	body, stop, err := p.parseStatements(blockTerminators{"else": true, "endfor": true})
	if err != nil {
		return nil, err
	}
	var elseBody ast.Block
	if stop == "else" {
		p.pos++
		elseBody, stop, err = p.parseStatements(blockTerminators{"endfor": true})
		if err != nil {
			return nil, err
		}
	}
	if stop != "endfor" {
		return nil, &ParseError{Pos: at, Message: "unterminated for block", Template: p.name}
	}
	p.pos++
	return ast.NewForStmt(at, varTok.text, source, limit, offset, reversed, body, elseBody), nil
}

func (p *Parser) parseCapture(rest string, at ast.Position) (ast.Statement, error) {
	name := strings.TrimSpace(rest)
	body, stop, err := p.parseStatements(blockTerminators{"endcapture": true})
	if err != nil {
		return nil, err
	}
	if stop != "endcapture" {
		return nil, &ParseError{Pos: at, Message: "unterminated capture block", Template: p.name}
	}
	p.pos++
	return ast.NewCaptureStmt(at, name, body), nil
}

func (p *Parser) parseAssign(rest string, at ast.Position) (ast.Statement, error) {
	i := strings.Index(rest, "=")
	if i < 0 {
		return nil, &ParseError{Pos: at, Message: "assign requires '='", Template: p.name}
	}
	name := strings.TrimSpace(rest[:i])
	expr, err := p.parseExprBody(rest[i+1:], at)
	if err != nil {
		return nil, err
	}
	return ast.NewAssignStmt(at, name, expr), nil
}

func (p *Parser) parseCycle(rest string, at ast.Position) (ast.Statement, error) {
	ep, err := newExprParser(rest, at)
	if err != nil {
		return nil, err
	}
	group := ""
	if ep.peek().typ == eIdent && ep.toks[ep.pos+1].typ == eColon {
		group = ep.advance().text
		ep.advance()
	} else if ep.peek().typ == eString && ep.toks[ep.pos+1].typ == eColon {
		group = ep.advance().text
		ep.advance()
	}
	values, err := ep.parseCommaExprList()
	if err != nil {
		return nil, err
	}
	if group == "" {
		group = rest
	}
	return ast.NewCycleStmt(at, group, values), nil
}

func (p *Parser) parseInclude(rest string, at ast.Position, isolate bool) (ast.Statement, error) {
	ep, err := newExprParser(rest, at)
	if err != nil {
		return nil, err
	}
	nameExpr, err := ep.parseFilterChain()
	if err != nil {
		return nil, err
	}
	var with ast.Expression
	params := map[string]ast.Expression{}
	for !ep.atEOF() {
		if ep.peek().typ == eComma {
			ep.advance()
			continue
		}
		if ep.peek().typ == eIdent && ep.peek().text == "with" {
			ep.advance()
			with, err = ep.parseFilterChain()
			if err != nil {
				return nil, err
			}
			continue
		}
		if ep.peek().typ == eIdent && ep.toks[ep.pos+1].typ == eColon {
			key := ep.advance().text
			ep.advance()
			v, err := ep.parseLogical()
			if err != nil {
				return nil, err
			}
			params[key] = v
			continue
		}
		return nil, &ParseError{Pos: at, Message: "unexpected token in include/render arguments", Template: p.name}
	}
	return ast.NewIncludeStmt(at, nameExpr, with, params, isolate), nil
}

func (p *Parser) parseComment(at ast.Position) (ast.Statement, error) {
	_, stop, err := p.parseStatements(blockTerminators{"endcomment": true})
	if err != nil {
		return nil, err
	}
	if stop != "endcomment" {
		return nil, &ParseError{Pos: at, Message: "unterminated comment block", Template: p.name}
	}
	p.pos++
	return ast.NewCommentStmt(at), nil
}

// parseRaw rebuilds the source between {% raw %} and {% endraw %} from
// the tokens the outer lexer produced, since that lexer has no notion of
// raw mode: text runs are copied as they are, and each output or tag
// body is re-wrapped as "{{ body }}" or "{% body %}" rather than
// interpreted. The original spacing inside delimiters and any dash
// markers are not preserved, and the body must still lex as a template.
func (p *Parser) parseRaw(at ast.Position) (ast.Statement, error) {
	var b strings.Builder
	for {
		if p.pos >= len(p.toks) {
			return nil, &ParseError{Pos: at, Message: "unterminated raw block", Template: p.name}
		}
		tok := p.toks[p.pos]
		switch tok.Type {
		case lexer.TOKEN_EOF:
			return nil, &ParseError{Pos: at, Message: "unterminated raw block", Template: p.name}
		case lexer.TOKEN_TEXT:
			b.WriteString(tok.Value)
			p.pos++
		case lexer.TOKEN_OUTPUT:
			b.WriteString("{{ ")
			b.WriteString(tok.Value)
			b.WriteString(" }}")
			p.pos++
		case lexer.TOKEN_TAG:
			name, _ := splitTagName(tok.Value)
			if name == "endraw" {
				p.pos++
				return ast.NewRawText(at, b.String()), nil
			}
			b.WriteString("{% ")
			b.WriteString(tok.Value)
			b.WriteString(" %}")
			p.pos++
		}
	}
}
