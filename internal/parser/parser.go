// Package parser turns expression text into an evaluable AST. It is a
// hand-rolled recursive-descent parser over the tokens produced by
// Tokenize; precedence runs assignment > ternary/elvis > or > and >
// equality > comparison > additive > multiplicative > unary > postfix >
// primary.
package parser

import (
	"fmt"
	"strconv"

	"github.com/spellang/spel/internal/ast"
)

// ParseError reports a syntax problem with its character offset.
type ParseError struct {
	Position int
	Message  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (pos %d): %s", e.Position, e.Message)
}

// Parser consumes a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse parses a complete expression; trailing input is an error.
func Parse(input string) (ast.Node, error) {
	tokens, err := Tokenize(input)
	if err != nil {
		return nil, err
	}
	p := &Parser{tokens: tokens}
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.current().Type != TokenEOF {
		return nil, p.errorf("unexpected %q after expression", p.current().Value)
	}
	return node, nil
}

func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() {
	p.pos++
}

func (p *Parser) expect(t TokenType, what string) (Token, error) {
	tok := p.current()
	if tok.Type != t {
		return tok, p.errorf("expected %s, got %q", what, tok.Value)
	}
	p.advance()
	return tok, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Position: p.current().Pos, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) parseExpression() (ast.Node, error) {
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.current().Type == TokenAssign {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewAssign(pos, left, right), nil
	}
	return left, nil
}

func (p *Parser) parseTernary() (ast.Node, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	switch p.current().Type {
	case TokenQuestion:
		pos := p.current().Pos
		p.advance()
		ifTrue, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenColon, ": in ternary expression"); err != nil {
			return nil, err
		}
		ifFalse, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.NewTernary(pos, expr, ifTrue, ifFalse), nil
	case TokenElvis:
		pos := p.current().Pos
		p.advance()
		fallback, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		return ast.NewElvis(pos, expr, fallback), nil
	}
	return expr, nil
}

func (p *Parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperatorBinary(pos, ast.OpOr, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperatorBinary(pos, ast.OpAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseEquality() (ast.Node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenEq || p.current().Type == TokenNe {
		tok := p.current()
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperatorBinary(tok.Pos, ast.BinaryOpType(tok.Value), left, right)
	}
	return left, nil
}

func (p *Parser) parseComparison() (ast.Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokenLt, TokenGt, TokenLe, TokenGe:
			tok := p.current()
			p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = ast.NewOperatorBinary(tok.Pos, ast.BinaryOpType(tok.Value), left, right)
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		tok := p.current()
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = ast.NewOperatorBinary(tok.Pos, ast.BinaryOpType(tok.Value), left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokenMul, TokenDiv, TokenMod:
			tok := p.current()
			p.advance()
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = ast.NewOperatorBinary(tok.Pos, ast.BinaryOpType(tok.Value), left, right)
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (ast.Node, error) {
	switch p.current().Type {
	case TokenNot:
		pos := p.current().Pos
		p.advance()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewOperatorUnary(pos, ast.OpNot, expr), nil
	case TokenMinus:
		pos := p.current().Pos
		p.advance()
		expr, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewOperatorUnary(pos, ast.OpNeg, expr), nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	first, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	chain := []ast.Node{first}

	for {
		tok := p.current()
		switch tok.Type {
		case TokenDot, TokenSafeNav:
			nullSafe := tok.Type == TokenSafeNav
			p.advance()
			node, err := p.parseNavigation(nullSafe)
			if err != nil {
				return nil, err
			}
			chain = append(chain, node)

		case TokenLBracket:
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket, "]"); err != nil {
				return nil, err
			}
			chain = append(chain, ast.NewIndexer(tok.Pos, index))

		case TokenSelectAll, TokenSelectFirst, TokenSelectLast:
			p.advance()
			predicate, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket, "] closing selection"); err != nil {
				return nil, err
			}
			variant := ast.SelectAll
			switch tok.Type {
			case TokenSelectFirst:
				variant = ast.SelectFirst
			case TokenSelectLast:
				variant = ast.SelectLast
			}
			chain = append(chain, ast.NewSelection(tok.Pos, variant, predicate))

		case TokenProject:
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenRBracket, "] closing projection"); err != nil {
				return nil, err
			}
			chain = append(chain, ast.NewProjection(tok.Pos, expr))

		default:
			if len(chain) == 1 {
				return chain[0], nil
			}
			return ast.NewCompoundExpression(chain[0].Position(), chain), nil
		}
	}
}

// parseNavigation parses the property or method reference after a . or ?.
func (p *Parser) parseNavigation(nullSafe bool) (ast.Node, error) {
	tok, err := p.expect(TokenIdent, "identifier after navigation operator")
	if err != nil {
		return nil, err
	}
	if p.current().Type == TokenLParen {
		args, err := p.parseArguments()
		if err != nil {
			return nil, err
		}
		return ast.NewMethodReference(tok.Pos, tok.Value, nullSafe, args), nil
	}
	return ast.NewPropertyReference(tok.Pos, tok.Value, nullSafe), nil
}

func (p *Parser) parseArguments() ([]ast.Node, error) {
	if _, err := p.expect(TokenLParen, "("); err != nil {
		return nil, err
	}
	var args []ast.Node
	for p.current().Type != TokenRParen {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.current().Type == TokenComma {
			p.advance()
		} else if p.current().Type != TokenRParen {
			return nil, p.errorf("expected , or ) in argument list")
		}
	}
	p.advance()
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenInt:
		v, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer literal %q", tok.Value)
		}
		p.advance()
		return ast.NewIntLiteral(tok.Pos, v), nil

	case TokenReal:
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errorf("invalid real literal %q", tok.Value)
		}
		p.advance()
		return ast.NewRealLiteral(tok.Pos, v), nil

	case TokenString:
		p.advance()
		return ast.NewStringLiteral(tok.Pos, tok.Value), nil

	case TokenHash:
		p.advance()
		ident, err := p.expect(TokenIdent, "variable name after #")
		if err != nil {
			return nil, err
		}
		return ast.NewVariableReference(tok.Pos, ident.Value), nil

	case TokenIdent:
		switch tok.Value {
		case "true":
			p.advance()
			return ast.NewBoolLiteral(tok.Pos, true), nil
		case "false":
			p.advance()
			return ast.NewBoolLiteral(tok.Pos, false), nil
		case "null":
			p.advance()
			return ast.NewNullLiteral(tok.Pos), nil
		case "new":
			return p.parseConstructor()
		}
		p.advance()
		if p.current().Type == TokenLParen {
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			return ast.NewMethodReference(tok.Pos, tok.Value, false, args), nil
		}
		return ast.NewPropertyReference(tok.Pos, tok.Value, false), nil

	case TokenLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, ")"); err != nil {
			return nil, err
		}
		return expr, nil

	case TokenLCurly:
		p.advance()
		var elements []ast.Node
		for p.current().Type != TokenRCurly {
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elements = append(elements, el)
			if p.current().Type == TokenComma {
				p.advance()
			} else if p.current().Type != TokenRCurly {
				return nil, p.errorf("expected , or } in list literal")
			}
		}
		p.advance()
		return ast.NewListLiteral(tok.Pos, elements), nil
	}
	return nil, p.errorf("unexpected token %q", tok.Value)
}

func (p *Parser) parseConstructor() (ast.Node, error) {
	newTok := p.current()
	p.advance()
	name, err := p.expect(TokenIdent, "type name after new")
	if err != nil {
		return nil, err
	}
	args, err := p.parseArguments()
	if err != nil {
		return nil, err
	}
	return ast.NewConstructorReference(newTok.Pos, name.Value, args), nil
}
