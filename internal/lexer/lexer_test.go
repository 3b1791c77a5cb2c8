package lexer

import (
	"strings"
	"testing"
)

func types(tokens []Token) string {
	names := make([]string, len(tokens))
	for i, tok := range tokens {
		names[i] = tok.Type.String()
	}
	return strings.Join(names, " ")
}

func TestBasicTokens(t *testing.T) {
	input := `x = range(10, -2, *a, **kw)`

	tests := []struct {
		expectedType  TokenType
		expectedValue string
	}{
		{TokenIdentifier, "x"},
		{TokenAssign, "="},
		{TokenIdentifier, "range"},
		{TokenLParen, "("},
		{TokenInteger, "10"},
		{TokenComma, ","},
		{TokenMinus, "-"},
		{TokenInteger, "2"},
		{TokenComma, ","},
		{TokenStar, "*"},
		{TokenIdentifier, "a"},
		{TokenComma, ","},
		{TokenDoubleStar, "**"},
		{TokenIdentifier, "kw"},
		{TokenRParen, ")"},
		{TokenNewline, ""},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedValue {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedValue, tok.Literal)
		}
	}

	if tok := l.NextToken(); tok.Type != TokenEOF {
		t.Errorf("token after EOF = %s", tok)
	}
}

func TestKeywords(t *testing.T) {
	input := `import from as def return global pass exec in None True False len`
	want := "IMPORT FROM AS DEF RETURN GLOBAL PASS EXEC IN NONE TRUE FALSE IDENTIFIER NEWLINE EOF"

	if got := types(Tokenize(input)); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestIndentation(t *testing.T) {
	input := `# leading comment

def f(a):
    x = 1

    # indented comment
    def g():
        pass
    return x
y = f(2)
`
	want := strings.Join([]string{
		"DEF IDENTIFIER LPAREN IDENTIFIER RPAREN COLON NEWLINE",
		"INDENT IDENTIFIER ASSIGN INTEGER NEWLINE",
		"DEF IDENTIFIER LPAREN RPAREN COLON NEWLINE",
		"INDENT PASS NEWLINE",
		"DEDENT RETURN IDENTIFIER NEWLINE",
		"DEDENT IDENTIFIER ASSIGN IDENTIFIER LPAREN INTEGER RPAREN NEWLINE",
		"EOF",
	}, " ")

	if got := types(Tokenize(input)); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestDedentAtEOF(t *testing.T) {
	input := "def f():\n  def g():\n    return 1"
	want := "DEF IDENTIFIER LPAREN RPAREN COLON NEWLINE INDENT DEF IDENTIFIER LPAREN RPAREN COLON NEWLINE INDENT RETURN INTEGER NEWLINE DEDENT DEDENT EOF"

	if got := types(Tokenize(input)); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestInconsistentDedent(t *testing.T) {
	input := "def f():\n    pass\n  pass\n"
	tokens := Tokenize(input)
	last := tokens[len(tokens)-1]
	if last.Type != TokenError || !strings.Contains(last.Literal, "unindent") {
		t.Errorf("last token = %s, want an unindent error", last)
	}
}

func TestImplicitLineJoining(t *testing.T) {
	input := "f(1,\n  2,\n\n  3)\nx = [4,\n5] \\\n  \n"
	want := "IDENTIFIER LPAREN INTEGER COMMA INTEGER COMMA INTEGER RPAREN NEWLINE " +
		"IDENTIFIER ASSIGN LBRACKET INTEGER COMMA INTEGER RBRACKET NEWLINE EOF"

	if got := types(Tokenize(input)); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input   string
		tt      TokenType
		literal string
	}{
		{"42", TokenInteger, "42"},
		{"0x1F", TokenInteger, "0x1F"},
		{"017", TokenInteger, "017"},
		{"10L", TokenInteger, "10"},
		{"3.25", TokenFloat, "3.25"},
		{".5", TokenFloat, ".5"},
		{"1e3", TokenFloat, "1e3"},
		{"2.5E-2", TokenFloat, "2.5E-2"},
		{"12abc", TokenError, `malformed number "12abc"`},
		{"1e", TokenError, `malformed number "1e"`},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != tt.tt || tok.Literal != tt.literal {
			t.Errorf("%s: got %s %q, want %s %q", tt.input, tok.Type, tok.Literal, tt.tt, tt.literal)
		}
	}
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`'abc'`, "abc"},
		{`"it's"`, "it's"},
		{`'a\nb\tc'`, "a\nb\tc"},
		{`'\x41\101\0'`, "AA\x00"},
		{`'\q'`, `\q`},
		{`r'\n'`, `\n`},
		{`u'€'`, "€"},
		{`'€'`, `€`},
		{`'''a 'quoted'
line'''`, "a 'quoted'\nline"},
		{`""""""`, ""},
		{`''`, ""},
		{"'a\\\nb'", "ab"},
	}

	for _, tt := range tests {
		tok := New(tt.input).NextToken()
		if tok.Type != TokenString || tok.Literal != tt.want {
			t.Errorf("%s: got %s %q, want %q", tt.input, tok.Type, tok.Literal, tt.want)
		}
	}
}

func TestStringErrors(t *testing.T) {
	for _, input := range []string{`'abc`, "'ab\ncd'", `'\x4'`, `"""never closed`} {
		tok := New(input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("%s: got %s, want ERROR", input, tok)
		}
	}
}

func TestUnexpectedCharacter(t *testing.T) {
	tokens := Tokenize("x = a + b")
	last := tokens[len(tokens)-1]
	if last.Type != TokenError || last.Literal != `unexpected character '+'` {
		t.Errorf("last token = %s", last)
	}
}

func TestPositions(t *testing.T) {
	l := New("x = 1\n  \nfoo('s')\n")
	var got []Position
	for tok := l.NextToken(); tok.Type != TokenEOF; tok = l.NextToken() {
		if tok.Type == TokenIdentifier || tok.Type == TokenString {
			got = append(got, tok.Span.Start)
		}
	}

	want := []Position{
		{Line: 1, Column: 1, Offset: 0},
		{Line: 3, Column: 1, Offset: 9},
		{Line: 3, Column: 5, Offset: 13},
	}
	if len(got) != len(want) {
		t.Fatalf("positions = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
