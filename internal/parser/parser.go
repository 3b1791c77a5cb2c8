// Package parser builds module trees from source text of the supported
// language subset: expression statements, simple assignments, imports,
// global declarations, pass, return, exec and function definitions, over
// names, literals, tuples, lists, attribute access and calls.
//
// Parsing stops at the first syntax error, which is reported as a SYNTAX
// category StandardError carrying the position.
package parser

import (
	"fmt"
	"strings"

	"github.com/orizon-lang/treeopt/internal/builtins"
	"github.com/orizon-lang/treeopt/internal/errors"
	"github.com/orizon-lang/treeopt/internal/lexer"
	"github.com/orizon-lang/treeopt/internal/position"
	"github.com/orizon-lang/treeopt/internal/tree"
)

// unsupported lists statement keywords outside the subset; they lex as
// identifiers and are rejected by name
var unsupported = map[string]bool{
	"if": true, "elif": true, "else": true, "for": true, "while": true,
	"class": true, "try": true, "except": true, "finally": true, "with": true,
	"print": true, "del": true, "raise": true, "assert": true, "yield": true,
	"lambda": true, "break": true, "continue": true, "and": true, "or": true,
	"not": true, "is": true,
}

// bailout carries the first syntax error out of the recursive descent
type bailout struct {
	err error
}

// Parser represents the recursive descent parser
type Parser struct {
	lexer   *lexer.Lexer
	current lexer.Token
	peek    lexer.Token

	filename      string
	module        *tree.Module
	t             *tree.Tree
	finder        ModuleFinder
	importContext string
	scope         *scope
}

// NewParser creates a parser filling module m. finder resolves import
// statements and may be nil, leaving every import unresolved.
func NewParser(l *lexer.Lexer, m *tree.Module, finder ModuleFinder) *Parser {
	p := &Parser{
		lexer:         l,
		filename:      m.Filename,
		module:        m,
		t:             m.Tree,
		finder:        finder,
		importContext: m.Package,
	}

	// Read the first two tokens
	p.current = p.lexer.NextToken()
	p.peek = p.lexer.NextToken()

	return p
}

// SetImportContext sets the package implicit relative imports are resolved
// against. It defaults to the package of the module.
func (p *Parser) SetImportContext(pkg string) {
	p.importContext = pkg
}

// Parse reads the whole input into the module and binds every variable
// reference
func (p *Parser) Parse() (err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			err = b.err
		}
	}()

	// The lexer error, if the very first token is one, surfaces here.
	p.checkError()

	root := p.module.Root()
	p.scope = newScope(root, nil, false)
	for !p.currentTokenIs(lexer.TokenEOF) {
		p.parseStatement(root)
	}
	p.scope.resolve(p.module)
	return nil
}

// nextToken advances the parser to the next token
func (p *Parser) nextToken() {
	p.current = p.peek
	p.peek = p.lexer.NextToken()
	p.checkError()
}

func (p *Parser) checkError() {
	if p.current.Type == lexer.TokenError {
		p.errorAt(p.current, "%s", p.current.Literal)
	}
}

// currentTokenIs checks if the current token is of the given type
func (p *Parser) currentTokenIs(tokenType lexer.TokenType) bool {
	return p.current.Type == tokenType
}

// peekTokenIs checks if the peek token is of the given type
func (p *Parser) peekTokenIs(tokenType lexer.TokenType) bool {
	return p.peek.Type == tokenType
}

// expect consumes the current token if it has the given type
func (p *Parser) expect(tokenType lexer.TokenType) lexer.Token {
	tok := p.current
	if tok.Type != tokenType {
		p.errorAt(tok, "expected %s, got %s", tokenType, describe(tok))
	}
	p.nextToken()
	return tok
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokenIdentifier, lexer.TokenInteger, lexer.TokenFloat:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	}
	return tok.Type.String()
}

func (p *Parser) errorAt(tok lexer.Token, format string, args ...interface{}) {
	start := tok.Span.Start
	panic(bailout{err: errors.SyntaxError(p.filename, start.Line, start.Column, fmt.Sprintf(format, args...))})
}

func (p *Parser) posOf(tok lexer.Token) position.Position {
	return position.Position{Filename: p.filename, Line: tok.Span.Start.Line, Column: tok.Span.Start.Column}
}

// appendStatement adds stmt to block and links its subtree
func (p *Parser) appendStatement(block, stmt tree.NodeID) {
	p.t.AppendChild(block, stmt)
	p.t.Link(stmt)
}

func (p *Parser) parseStatement(block tree.NodeID) {
	switch p.current.Type {
	case lexer.TokenDef:
		p.parseFunction(block)
	case lexer.TokenIndent:
		p.errorAt(p.current, "unexpected indent")
	case lexer.TokenDedent, lexer.TokenNewline:
		p.errorAt(p.current, "unexpected %s", p.current.Type)
	default:
		p.parseSimpleStatements(block)
	}
}

// parseSimpleStatements parses small statements separated by semicolons up
// to the end of the logical line
func (p *Parser) parseSimpleStatements(block tree.NodeID) {
	for {
		p.appendStatement(block, p.parseSmallStatement())
		if !p.currentTokenIs(lexer.TokenSemicolon) {
			break
		}
		p.nextToken()
		if p.currentTokenIs(lexer.TokenNewline) {
			break
		}
	}

	if !p.currentTokenIs(lexer.TokenNewline) {
		p.errorAt(p.current, "unexpected %s at end of statement", describe(p.current))
	}
	p.nextToken()
}

func (p *Parser) parseSmallStatement() tree.NodeID {
	tok := p.current
	pos := p.posOf(tok)

	switch tok.Type {
	case lexer.TokenPass:
		p.nextToken()
		return p.t.NewPass(pos)

	case lexer.TokenReturn:
		if !p.scope.function {
			p.errorAt(tok, "'return' outside function")
		}
		p.nextToken()
		val := tree.NoNode
		if !p.atStatementEnd() {
			val = p.parseExprList()
		}
		return p.t.NewReturn(pos, val)

	case lexer.TokenGlobal:
		p.nextToken()
		var names []string
		for {
			name := p.expect(lexer.TokenIdentifier).Literal
			names = append(names, name)
			if p.scope.function {
				p.scope.globals[name] = true
			}
			if !p.currentTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
		}
		return p.t.NewGlobal(pos, names)

	case lexer.TokenImport:
		return p.parseImport()

	case lexer.TokenFrom:
		return p.parseImportFrom()

	case lexer.TokenExec:
		p.nextToken()
		source := p.parseExpr()
		globals, locals := tree.NoNode, tree.NoNode
		if p.currentTokenIs(lexer.TokenIn) {
			p.nextToken()
			globals = p.parseExpr()
			if p.currentTokenIs(lexer.TokenComma) {
				p.nextToken()
				locals = p.parseExpr()
			}
		}
		return p.t.NewExec(pos, source, globals, locals)

	case lexer.TokenIdentifier:
		if unsupported[tok.Literal] && !(tok.Literal == "print" && p.peekTokenIs(lexer.TokenLParen)) {
			p.errorAt(tok, "unsupported statement %q", tok.Literal)
		}
	}

	expr := p.parseExprList()
	if !p.currentTokenIs(lexer.TokenAssign) {
		return p.t.NewStatementExpression(pos, expr)
	}

	p.bindTarget(expr, tok)
	p.nextToken()
	val := p.parseExprList()
	if p.currentTokenIs(lexer.TokenAssign) {
		p.errorAt(p.current, "chained assignment is not supported")
	}
	return p.t.NewAssign(pos, expr, val)
}

// bindTarget records the binding an assignment target makes
func (p *Parser) bindTarget(target tree.NodeID, tok lexer.Token) {
	switch p.t.Kind(target) {
	case tree.KindVariableRef:
		p.scope.assigned[p.t.Name(target)] = true
	case tree.KindAttributeLookup:
	case tree.KindConstant:
		p.errorAt(tok, "can't assign to literal")
	default:
		p.errorAt(tok, "can't assign to %s", strings.ToLower(p.t.Kind(target).String()))
	}
}

func (p *Parser) atStatementEnd() bool {
	return p.currentTokenIs(lexer.TokenNewline) || p.currentTokenIs(lexer.TokenSemicolon) || p.currentTokenIs(lexer.TokenEOF)
}

// parseDottedName reads NAME ('.' NAME)*
func (p *Parser) parseDottedName() string {
	parts := []string{p.expect(lexer.TokenIdentifier).Literal}
	for p.currentTokenIs(lexer.TokenDot) {
		p.nextToken()
		parts = append(parts, p.expect(lexer.TokenIdentifier).Literal)
	}
	return strings.Join(parts, ".")
}

func (p *Parser) parseImport() tree.NodeID {
	pos := p.posOf(p.current)
	p.nextToken()

	var names []string
	var imports []tree.ImportedModule
	for {
		dotted := p.parseDottedName()
		item, bound := dotted, strings.SplitN(dotted, ".", 2)[0]
		if p.currentTokenIs(lexer.TokenAs) {
			p.nextToken()
			bound = p.expect(lexer.TokenIdentifier).Literal
			item += " as " + bound
		}
		p.scope.assigned[bound] = true

		names = append(names, item)
		imports = append(imports, p.resolveImport(dotted, p.importContext))

		if !p.currentTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	return p.t.NewImport(tree.KindImport, pos, names, imports)
}

func (p *Parser) parseImportFrom() tree.NodeID {
	fromTok := p.current
	pos := p.posOf(fromTok)
	p.nextToken()

	level := 0
	for p.currentTokenIs(lexer.TokenDot) {
		level++
		p.nextToken()
	}
	module := ""
	if p.currentTokenIs(lexer.TokenIdentifier) {
		module = p.parseDottedName()
	}
	if level == 0 && module == "" {
		p.errorAt(p.current, "expected module name, got %s", describe(p.current))
	}
	p.expect(lexer.TokenImport)

	var names, items []string
	star := false
	if p.currentTokenIs(lexer.TokenStar) {
		p.nextToken()
		star = true
		names = []string{"*"}
	} else {
		paren := p.currentTokenIs(lexer.TokenLParen)
		if paren {
			p.nextToken()
		}
		for {
			name := p.expect(lexer.TokenIdentifier).Literal
			item, bound := name, name
			if p.currentTokenIs(lexer.TokenAs) {
				p.nextToken()
				bound = p.expect(lexer.TokenIdentifier).Literal
				item += " as " + bound
			}
			p.scope.assigned[bound] = true
			names = append(names, item)
			items = append(items, name)

			if !p.currentTokenIs(lexer.TokenComma) {
				break
			}
			p.nextToken()
			if paren && p.currentTokenIs(lexer.TokenRParen) {
				break
			}
		}
		if paren {
			p.expect(lexer.TokenRParen)
		}
	}

	full, context := module, p.importContext
	if level > 0 {
		base, ok := relativeBase(p.importContext, level)
		if !ok {
			p.errorAt(fromTok, "relative import beyond top-level package")
		}
		full, context = joinName(base, module), ""
	}

	imports := []tree.ImportedModule{p.resolveImport(full, context)}
	for _, item := range items {
		// from pkg import mod names a submodule when one exists.
		if m, ok := p.find(full+"."+item, context); ok {
			imports = append(imports, m)
		}
	}

	if star {
		// A star import may bind any name, builtins included.
		for name := range builtins.Names {
			p.scope.assigned[name] = true
		}
	}

	return p.t.NewImport(tree.KindImportFrom, pos, names, imports)
}

// relativeBase returns the package a relative import of the given level
// starts from
func relativeBase(pkg string, level int) (string, bool) {
	if pkg == "" {
		return "", false
	}
	parts := strings.Split(pkg, ".")
	if level-1 >= len(parts) {
		return "", false
	}
	return strings.Join(parts[:len(parts)-(level-1)], "."), true
}

func joinName(pkg, name string) string {
	switch {
	case pkg == "":
		return name
	case name == "":
		return pkg
	}
	return pkg + "." + name
}

func (p *Parser) find(name, context string) (tree.ImportedModule, bool) {
	if p.finder == nil {
		return tree.ImportedModule{}, false
	}
	m, err := p.finder.FindModule(name, context)
	if err != nil {
		return tree.ImportedModule{}, false
	}
	return m, true
}

// resolveImport resolves a dotted module name. Unresolved imports keep
// their name and an empty filename; they fail at run time, not here.
func (p *Parser) resolveImport(name, context string) tree.ImportedModule {
	if m, ok := p.find(name, context); ok {
		return m
	}
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return tree.ImportedModule{Name: name}
	}
	return tree.ImportedModule{Name: name[idx+1:], Package: name[:idx]}
}

func (p *Parser) parseFunction(block tree.NodeID) {
	pos := p.posOf(p.current)
	p.nextToken()

	name := p.expect(lexer.TokenIdentifier).Literal
	p.expect(lexer.TokenLParen)

	var params []string
	seen := make(map[string]bool)
	for !p.currentTokenIs(lexer.TokenRParen) {
		tok := p.expect(lexer.TokenIdentifier)
		if seen[tok.Literal] {
			p.errorAt(tok, "duplicate argument %q in function definition", tok.Literal)
		}
		seen[tok.Literal] = true
		params = append(params, tok.Literal)
		if !p.currentTokenIs(lexer.TokenComma) {
			break
		}
		p.nextToken()
	}
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenColon)

	p.scope.assigned[name] = true
	fn := p.t.NewFunction(pos, name, params)

	outer := p.scope
	p.scope = newScope(fn, outer, true)
	for _, param := range params {
		p.scope.params[param] = true
	}
	p.parseSuite(fn)
	p.scope = outer

	p.appendStatement(block, fn)
}

func (p *Parser) parseSuite(fn tree.NodeID) {
	if !p.currentTokenIs(lexer.TokenNewline) {
		p.parseSimpleStatements(fn)
		return
	}
	p.nextToken()

	if !p.currentTokenIs(lexer.TokenIndent) {
		p.errorAt(p.current, "expected an indented block")
	}
	p.nextToken()

	for !p.currentTokenIs(lexer.TokenDedent) && !p.currentTokenIs(lexer.TokenEOF) {
		p.parseStatement(fn)
	}
	p.expect(lexer.TokenDedent)
}
