package parser

import (
	"strings"
)

// exprTokType tags one lexical unit inside a tag/output body. The outer
// lexer package only finds the `{{ }}`/`{% %}` delimiters (spec.md
// §4.A); splitting that body into expression tokens is the expression
// parser's own concern (spec.md §4.B).
type exprTokType int

const (
	eEOF exprTokType = iota
	eIdent
	eNumber
	eString
	eDot
	eLBracket
	eRBracket
	eLParen
	eRParen
	ePipe
	eColon
	eComma
	eEq
	eDotDot
	eEqEq
	eNe
	eLt
	eLe
	eGt
	eGe
)

type exprToken struct {
	typ  exprTokType
	text string
}

// tokenizeExpr scans a tag/output body into expression tokens. Liquid
// string literals carry no escape sequences (spec.md §4.B).
func tokenizeExpr(s string) ([]exprToken, error) {
	var out []exprToken
	i, n := 0, len(s)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < n && s[j] != quote {
				j++
			}
			if j >= n {
				return nil, &ParseError{Message: "unterminated string literal"}
			}
			out = append(out, exprToken{eString, s[i+1 : j]})
			i = j + 1
		case c >= '0' && c <= '9':
			j := i
			for j < n && (s[j] >= '0' && s[j] <= '9') {
				j++
			}
			if j < n && s[j] == '.' && j+1 < n && s[j+1] != '.' && s[j+1] >= '0' && s[j+1] <= '9' {
				j++
				for j < n && s[j] >= '0' && s[j] <= '9' {
					j++
				}
			}
			out = append(out, exprToken{eNumber, s[i:j]})
			i = j
		case isIdentStart(c):
			j := i
			for j < n && isIdentPart(s[j]) {
				j++
			}
			out = append(out, exprToken{eIdent, s[i:j]})
			i = j
		case c == '.':
			if i+1 < n && s[i+1] == '.' {
				out = append(out, exprToken{eDotDot, ".."})
				i += 2
			} else {
				out = append(out, exprToken{eDot, "."})
				i++
			}
		case c == '[':
			out = append(out, exprToken{eLBracket, "["})
			i++
		case c == ']':
			out = append(out, exprToken{eRBracket, "]"})
			i++
		case c == '(':
			out = append(out, exprToken{eLParen, "("})
			i++
		case c == ')':
			out = append(out, exprToken{eRParen, ")"})
			i++
		case c == '|':
			out = append(out, exprToken{ePipe, "|"})
			i++
		case c == ':':
			out = append(out, exprToken{eColon, ":"})
			i++
		case c == ',':
			out = append(out, exprToken{eComma, ","})
			i++
		case c == '=':
			if i+1 < n && s[i+1] == '=' {
				out = append(out, exprToken{eEqEq, "=="})
				i += 2
			} else {
				out = append(out, exprToken{eEq, "="})
				i++
			}
		case c == '!':
			if i+1 < n && s[i+1] == '=' {
				out = append(out, exprToken{eNe, "!="})
				i += 2
			} else {
				return nil, &ParseError{Message: "unexpected '!'"}
			}
		case c == '<':
			if i+1 < n && s[i+1] == '=' {
				out = append(out, exprToken{eLe, "<="})
				i += 2
			} else {
				out = append(out, exprToken{eLt, "<"})
				i++
			}
		case c == '>':
			if i+1 < n && s[i+1] == '=' {
				out = append(out, exprToken{eGe, ">="})
				i += 2
			} else {
				out = append(out, exprToken{eGt, ">"})
				i++
			}
		default:
			return nil, &ParseError{Message: "unexpected character '" + string(c) + "' in expression: " + s}
		}
	}
	out = append(out, exprToken{eEOF, ""})
	return out, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '-' || c == '?'
}

// splitTagName divides a tag body into its leading identifier and the
// remaining argument text, e.g. "for x in y" -> ("for", "x in y").
func splitTagName(body string) (string, string) {
	body = strings.TrimSpace(body)
	i := strings.IndexAny(body, " \t\r\n")
	if i < 0 {
		return body, ""
	}
	return body[:i], strings.TrimSpace(body[i+1:])
}
