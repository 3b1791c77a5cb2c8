// Package lexer implements the lexical analyzer of the source-language
// subset the front end accepts.
//
// Layout is significant: the lexer turns leading whitespace into INDENT and
// DEDENT tokens and ends every logical line with NEWLINE. Line breaks inside
// brackets and after a backslash join lines. Blank and comment-only lines
// produce no tokens.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a token
type TokenType int

// String returns a string representation of the token type
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError
	TokenNewline
	TokenIndent
	TokenDedent

	// Literals
	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenString

	// Keywords
	TokenImport
	TokenFrom
	TokenAs
	TokenDef
	TokenReturn
	TokenGlobal
	TokenPass
	TokenExec
	TokenIn
	TokenNone
	TokenTrue
	TokenFalse

	// Punctuation
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenDot
	TokenAssign
	TokenColon
	TokenSemicolon
	TokenStar
	TokenDoubleStar
	TokenMinus
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenError:   "ERROR",
	TokenNewline: "NEWLINE",
	TokenIndent:  "INDENT",
	TokenDedent:  "DEDENT",

	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",

	TokenImport: "IMPORT",
	TokenFrom:   "FROM",
	TokenAs:     "AS",
	TokenDef:    "DEF",
	TokenReturn: "RETURN",
	TokenGlobal: "GLOBAL",
	TokenPass:   "PASS",
	TokenExec:   "EXEC",
	TokenIn:     "IN",
	TokenNone:   "NONE",
	TokenTrue:   "TRUE",
	TokenFalse:  "FALSE",

	TokenLParen:     "LPAREN",
	TokenRParen:     "RPAREN",
	TokenLBracket:   "LBRACKET",
	TokenRBracket:   "RBRACKET",
	TokenComma:      "COMMA",
	TokenDot:        "DOT",
	TokenAssign:     "ASSIGN",
	TokenColon:      "COLON",
	TokenSemicolon:  "SEMICOLON",
	TokenStar:       "STAR",
	TokenDoubleStar: "DOUBLE_STAR",
	TokenMinus:      "MINUS",
}

var keywords = map[string]TokenType{
	"import": TokenImport,
	"from":   TokenFrom,
	"as":     TokenAs,
	"def":    TokenDef,
	"return": TokenReturn,
	"global": TokenGlobal,
	"pass":   TokenPass,
	"exec":   TokenExec,
	"in":     TokenIn,
	"None":   TokenNone,
	"True":   TokenTrue,
	"False":  TokenFalse,
}

// lookupIdent checks if identifier is keyword
func lookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdentifier
}

// Position represents a position in the source code
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset in source
}

// Span represents a range in the source code
type Span struct {
	Start Position
	End   Position
}

// Token represents a lexical token with position information. The literal
// of a string token is its decoded value; the literal of an error token is
// the error message.
type Token struct {
	Type    TokenType
	Literal string
	Span    Span
}

// String returns a string representation of the token
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Span.Start.Line, t.Span.Start.Column)
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int
	column       int

	indents     []int   // open indentation widths, outermost first
	pending     []Token // tokens queued by indentation changes and EOF
	atLineStart bool
	depth       int // bracket nesting
	lastType    TokenType
	emitted     bool
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{
		input:       input,
		line:        1,
		indents:     []int{0},
		atLineStart: true,
	}
	l.readChar()
	return l
}

// Tokenize returns every token of input up to and including EOF, or up
// to the first error token
func Tokenize(input string) []Token {
	l := New(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			return tokens
		}
	}
}

// readChar reads the next character and advances position
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0 // ASCII NUL character represents "EOF"
		l.position = len(l.input)
		l.column++
		return
	}
	l.ch = l.input[l.readPosition]
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// peekChar returns the next character without advancing position
func (l *Lexer) peekChar() byte {
	return l.peekAt(1)
}

func (l *Lexer) peekAt(n int) byte {
	if l.position+n >= len(l.input) {
		return 0
	}
	return l.input[l.position+n]
}

func (l *Lexer) pos() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.position}
}

// skipWhitespace skips blanks and backslash line continuations
func (l *Lexer) skipWhitespace() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.readChar()
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\r' && l.peekAt(2) == '\n':
			l.readChar()
			l.readChar()
			l.readChar()
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

func (l *Lexer) emit(tok Token) Token {
	l.lastType = tok.Type
	l.emitted = true
	return tok
}

func (l *Lexer) errorToken(start Position, format string, args ...interface{}) Token {
	return Token{Type: TokenError, Literal: fmt.Sprintf(format, args...), Span: Span{Start: start, End: l.pos()}}
}

// NextToken scans the input and returns the next token
func (l *Lexer) NextToken() Token {
	if len(l.pending) > 0 {
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return l.emit(tok)
	}

	if l.atLineStart && l.depth == 0 {
		l.atLineStart = false
		if tok, ok := l.indentation(); ok {
			return l.emit(tok)
		}
	}

	l.skipWhitespace()
	start := l.pos()

	switch {
	case l.ch == 0:
		l.queueEOF(start)
		return l.NextToken()

	case l.ch == '#':
		l.skipComment()
		return l.NextToken()

	case l.ch == '\n':
		l.readChar()
		if l.depth > 0 || !l.emitted || l.lastType == TokenNewline {
			return l.NextToken()
		}
		l.atLineStart = true
		return l.emit(Token{Type: TokenNewline, Literal: "\n", Span: Span{Start: start, End: start}})

	case isLetter(l.ch) || l.ch == '_':
		ident := l.readIdentifier()
		if (l.ch == '\'' || l.ch == '"') && isStringPrefix(ident) {
			return l.emit(l.readString(start, ident))
		}
		return l.emit(Token{Type: lookupIdent(ident), Literal: ident, Span: Span{Start: start, End: l.pos()}})

	case isDigit(l.ch) || l.ch == '.' && isDigit(l.peekChar()):
		return l.emit(l.readNumber(start))

	case l.ch == '\'' || l.ch == '"':
		return l.emit(l.readString(start, ""))
	}

	var tt TokenType
	switch l.ch {
	case '(':
		tt = TokenLParen
		l.depth++
	case ')':
		tt = TokenRParen
		l.closeBracket()
	case '[':
		tt = TokenLBracket
		l.depth++
	case ']':
		tt = TokenRBracket
		l.closeBracket()
	case ',':
		tt = TokenComma
	case '.':
		tt = TokenDot
	case '=':
		if l.peekChar() == '=' {
			return l.emit(l.errorToken(start, "unsupported operator %q", "=="))
		}
		tt = TokenAssign
	case ':':
		tt = TokenColon
	case ';':
		tt = TokenSemicolon
	case '-':
		tt = TokenMinus
	case '*':
		if l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			return l.emit(Token{Type: TokenDoubleStar, Literal: "**", Span: Span{Start: start, End: l.pos()}})
		}
		tt = TokenStar
	default:
		r, _ := utf8.DecodeRuneInString(l.input[l.position:])
		return l.emit(l.errorToken(start, "unexpected character %q", r))
	}

	literal := string(l.ch)
	l.readChar()
	return l.emit(Token{Type: tt, Literal: literal, Span: Span{Start: start, End: l.pos()}})
}

func (l *Lexer) closeBracket() {
	if l.depth > 0 {
		l.depth--
	}
}

// indentation measures the indentation of the next non-blank line and
// returns the INDENT or first DEDENT token it causes
func (l *Lexer) indentation() (Token, bool) {
	for {
		width := 0
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\f' {
			switch l.ch {
			case ' ':
				width++
			case '\t':
				width = (width/8 + 1) * 8
			case '\f':
				width = 0
			}
			l.readChar()
		}

		if l.ch == '#' {
			l.skipComment()
		}
		if l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '\n' {
			l.readChar()
			continue
		}
		if l.ch == 0 {
			return Token{}, false
		}
		return l.indentTo(width)
	}
}

func (l *Lexer) indentTo(width int) (Token, bool) {
	start := l.pos()
	top := l.indents[len(l.indents)-1]

	switch {
	case width > top:
		l.indents = append(l.indents, width)
		return Token{Type: TokenIndent, Span: Span{Start: start, End: start}}, true

	case width < top:
		for width < l.indents[len(l.indents)-1] {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, Token{Type: TokenDedent, Span: Span{Start: start, End: start}})
		}
		if width != l.indents[len(l.indents)-1] {
			l.pending = append(l.pending, l.errorToken(start, "unindent does not match any outer indentation level"))
		}
		tok := l.pending[0]
		l.pending = l.pending[1:]
		return tok, true
	}
	return Token{}, false
}

// queueEOF closes the last logical line and every open block
func (l *Lexer) queueEOF(at Position) {
	span := Span{Start: at, End: at}
	if l.emitted && l.lastType != TokenNewline && l.lastType != TokenDedent && l.lastType != TokenEOF {
		l.pending = append(l.pending, Token{Type: TokenNewline, Span: span})
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.pending = append(l.pending, Token{Type: TokenDedent, Span: span})
	}
	l.pending = append(l.pending, Token{Type: TokenEOF, Span: span})
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber(start Position) Token {
	position := l.position
	tt := TokenInteger

	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X' || l.peekChar() == 'o' || l.peekChar() == 'O') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) {
			l.readChar()
		}
		if l.ch == '.' {
			tt = TokenFloat
			l.readChar()
			for isDigit(l.ch) {
				l.readChar()
			}
		}
		if l.ch == 'e' || l.ch == 'E' {
			tt = TokenFloat
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			if !isDigit(l.ch) {
				return l.errorToken(start, "malformed number %q", l.input[position:l.position])
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	literal := l.input[position:l.position]

	// Long integer suffix of the 2.x line.
	if tt == TokenInteger && (l.ch == 'L' || l.ch == 'l') {
		l.readChar()
	}
	if isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		return l.errorToken(start, "malformed number %q", l.input[position:l.position])
	}

	return Token{Type: tt, Literal: literal, Span: Span{Start: start, End: l.pos()}}
}

func isStringPrefix(ident string) bool {
	switch strings.ToLower(ident) {
	case "r", "u", "b", "ur", "br", "rb":
		return true
	}
	return false
}

// readString reads a quoted literal, single or triple quoted, and decodes
// its escapes. Raw strings keep backslashes.
func (l *Lexer) readString(start Position, prefix string) Token {
	prefix = strings.ToLower(prefix)
	raw := strings.Contains(prefix, "r")
	unicodeEscapes := strings.Contains(prefix, "u")

	quote := l.ch
	triple := l.peekChar() == quote && l.peekAt(2) == quote
	if triple {
		l.readChar()
		l.readChar()
	}
	l.readChar()

	var b strings.Builder
	for {
		switch {
		case l.ch == 0:
			return l.errorToken(start, "unterminated string literal")

		case l.ch == quote:
			if !triple {
				l.readChar()
				return Token{Type: TokenString, Literal: b.String(), Span: Span{Start: start, End: l.pos()}}
			}
			if l.peekChar() == quote && l.peekAt(2) == quote {
				l.readChar()
				l.readChar()
				l.readChar()
				return Token{Type: TokenString, Literal: b.String(), Span: Span{Start: start, End: l.pos()}}
			}
			b.WriteByte(quote)
			l.readChar()

		case l.ch == '\n' && !triple:
			return l.errorToken(start, "EOL while scanning string literal")

		case l.ch == '\\':
			l.readChar()
			if l.ch == 0 {
				return l.errorToken(start, "unterminated string literal")
			}
			if raw {
				b.WriteByte('\\')
				b.WriteByte(l.ch)
				l.readChar()
				continue
			}
			if msg := l.escape(&b, unicodeEscapes); msg != "" {
				return l.errorToken(start, "%s", msg)
			}

		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

var simpleEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
	'\\': '\\', '\'': '\'', '"': '"',
}

// escape decodes the escape sequence whose backslash was just consumed.
// It returns an error message for malformed sequences.
func (l *Lexer) escape(b *strings.Builder, unicodeEscapes bool) string {
	c := l.ch
	if r, ok := simpleEscapes[c]; ok {
		b.WriteByte(r)
		l.readChar()
		return ""
	}

	switch {
	case c == '\n':
		l.readChar()
	case c == 'x':
		l.readChar()
		v, ok := l.readDigits(2, 16)
		if !ok {
			return "invalid \\x escape"
		}
		b.WriteByte(byte(v))
	case c >= '0' && c <= '7':
		v, _ := l.readDigits(3, 8)
		b.WriteByte(byte(v))
	case unicodeEscapes && (c == 'u' || c == 'U'):
		n := 4
		if c == 'U' {
			n = 8
		}
		l.readChar()
		v, ok := l.readDigits(n, 16)
		if !ok || v > utf8.MaxRune {
			return "invalid unicode escape"
		}
		b.WriteRune(rune(v))
	default:
		// Unknown escapes stay as written.
		b.WriteByte('\\')
		b.WriteByte(c)
		l.readChar()
	}
	return ""
}

// readDigits reads up to max digits of base. Hex escapes require exactly
// max digits; octal escapes accept fewer.
func (l *Lexer) readDigits(max, base int) (int, bool) {
	v, n := 0, 0
	for n < max {
		d := digitValue(l.ch)
		if d < 0 || d >= base {
			break
		}
		v = v*base + d
		n++
		l.readChar()
	}
	if base == 16 {
		return v, n == max
	}
	return v, n > 0
}

func digitValue(ch byte) int {
	switch {
	case '0' <= ch && ch <= '9':
		return int(ch - '0')
	case 'a' <= ch && ch <= 'f':
		return int(ch-'a') + 10
	case 'A' <= ch && ch <= 'F':
		return int(ch-'A') + 10
	}
	return -1
}

// isLetter checks if character is ASCII letter
func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

// isDigit checks if character is ASCII digit
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return digitValue(ch) >= 0
}
