package parser

import (
	"strconv"

	"github.com/orizon-lang/treeopt/internal/lexer"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/tree"
	"github.com/orizon-lang/treeopt/internal/value"
)

// parseExprList parses expr (',' expr)* [','], building a tuple when a
// comma is present
func (p *Parser) parseExprList() tree.NodeID {
	pos := p.posOf(p.current)
	first := p.parseExpr()
	if !p.currentTokenIs(lexer.TokenComma) {
		return first
	}

	items := []tree.NodeID{first}
	for p.currentTokenIs(lexer.TokenComma) {
		p.nextToken()
		if p.atExprListEnd() {
			break
		}
		items = append(items, p.parseExpr())
	}
	return p.tupleAt(pos, items)
}

func (p *Parser) atExprListEnd() bool {
	switch p.current.Type {
	case lexer.TokenNewline, lexer.TokenSemicolon, lexer.TokenAssign, lexer.TokenRParen, lexer.TokenEOF:
		return true
	}
	return false
}

// tupleAt builds a tuple display. A tuple of literals is itself a literal.
func (p *Parser) tupleAt(pos position.Position, items []tree.NodeID) tree.NodeID {
	values := make(value.Tuple, len(items))
	for i, item := range items {
		if !p.t.IsConstant(item) {
			return p.t.NewSequence(tree.KindMakeTuple, pos, items)
		}
		values[i] = p.t.Value(item)
	}
	return p.t.NewConstant(pos, values)
}

func (p *Parser) parseExpr() tree.NodeID {
	if p.currentTokenIs(lexer.TokenMinus) {
		tok := p.current
		p.nextToken()
		operand := p.parseExpr()
		if p.t.IsConstant(operand) {
			switch v := p.t.Value(operand).(type) {
			case value.Int:
				return p.t.NewConstant(p.posOf(tok), -v)
			case value.Float:
				return p.t.NewConstant(p.posOf(tok), -v)
			}
		}
		p.errorAt(tok, "unary minus is only supported on numeric literals")
	}
	return p.parsePrimary()
}

// parsePrimary parses an atom followed by calls and attribute lookups
func (p *Parser) parsePrimary() tree.NodeID {
	expr := p.parseAtom()
	for {
		switch p.current.Type {
		case lexer.TokenLParen:
			expr = p.parseCall(expr)
		case lexer.TokenDot:
			pos := p.posOf(p.current)
			p.nextToken()
			name := p.expect(lexer.TokenIdentifier).Literal
			expr = p.t.NewAttributeLookup(pos, expr, name)
		case lexer.TokenLBracket:
			p.errorAt(p.current, "subscripts are not supported")
		default:
			return expr
		}
	}
}

func (p *Parser) parseAtom() tree.NodeID {
	tok := p.current
	pos := p.posOf(tok)

	switch tok.Type {
	case lexer.TokenIdentifier:
		if unsupported[tok.Literal] && tok.Literal != "print" {
			p.errorAt(tok, "unsupported expression %q", tok.Literal)
		}
		p.nextToken()
		ref := p.t.NewVariableRef(pos, tok.Literal, nil)
		p.scope.refs = append(p.scope.refs, ref)
		return ref

	case lexer.TokenInteger:
		p.nextToken()
		n, err := strconv.ParseInt(tok.Literal, 0, 64)
		if err != nil {
			p.errorAt(tok, "invalid integer literal %s", tok.Literal)
		}
		return p.t.NewConstant(pos, value.Int(n))

	case lexer.TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(tok, "invalid float literal %s", tok.Literal)
		}
		return p.t.NewConstant(pos, value.Float(f))

	case lexer.TokenString:
		s := tok.Literal
		p.nextToken()
		// Adjacent literals concatenate.
		for p.currentTokenIs(lexer.TokenString) {
			s += p.current.Literal
			p.nextToken()
		}
		return p.t.NewConstant(pos, value.Str(s))

	case lexer.TokenNone:
		p.nextToken()
		return p.t.NewConstant(pos, value.None{})

	case lexer.TokenTrue, lexer.TokenFalse:
		p.nextToken()
		return p.t.NewConstant(pos, value.Bool(tok.Type == lexer.TokenTrue))

	case lexer.TokenLParen:
		p.nextToken()
		if p.currentTokenIs(lexer.TokenRParen) {
			p.nextToken()
			return p.t.NewConstant(pos, value.Tuple{})
		}
		first := p.parseExpr()
		if p.currentTokenIs(lexer.TokenRParen) {
			p.nextToken()
			return first
		}

		items := []tree.NodeID{first}
		for p.currentTokenIs(lexer.TokenComma) {
			p.nextToken()
			if p.currentTokenIs(lexer.TokenRParen) {
				break
			}
			items = append(items, p.parseExpr())
		}
		p.expect(lexer.TokenRParen)
		return p.tupleAt(pos, items)

	case lexer.TokenLBracket:
		p.nextToken()
		var items []tree.NodeID
		for !p.currentTokenIs(lexer.TokenRBracket) {
			items = append(items, p.parseExpr())
			if !p.currentTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
		}
		p.expect(lexer.TokenRBracket)
		return p.t.NewSequence(tree.KindMakeList, pos, items)
	}

	p.errorAt(tok, "unexpected %s", describe(tok))
	return tree.NoNode
}

func (p *Parser) parseCall(called tree.NodeID) tree.NodeID {
	pos := p.t.Pos(called)
	p.nextToken()

	var positional []tree.NodeID
	var keywords []tree.Keyword
	star, dstar := tree.NoNode, tree.NoNode
	seen := make(map[string]bool)

	for !p.currentTokenIs(lexer.TokenRParen) {
		tok := p.current
		switch {
		case tok.Type == lexer.TokenDoubleStar:
			if dstar != tree.NoNode {
				p.errorAt(tok, "duplicate ** argument")
			}
			p.nextToken()
			dstar = p.parseExpr()

		case tok.Type == lexer.TokenStar:
			if star != tree.NoNode || dstar != tree.NoNode {
				p.errorAt(tok, "* argument after ** or a second * argument")
			}
			p.nextToken()
			star = p.parseExpr()

		case tok.Type == lexer.TokenIdentifier && p.peekTokenIs(lexer.TokenAssign):
			if dstar != tree.NoNode {
				p.errorAt(tok, "keyword argument after ** argument")
			}
			if seen[tok.Literal] {
				p.errorAt(tok, "keyword argument %q repeated", tok.Literal)
			}
			seen[tok.Literal] = true
			p.nextToken()
			p.nextToken()
			keywords = append(keywords, tree.Keyword{Name: tok.Literal, Value: p.parseExpr()})

		default:
			if len(keywords) > 0 || star != tree.NoNode || dstar != tree.NoNode {
				p.errorAt(tok, "non-keyword arg after keyword arg")
			}
			positional = append(positional, p.parseExpr())
		}

		if !p.currentTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)

	return p.t.NewCall(pos, called, positional, keywords, star, dstar)
}
