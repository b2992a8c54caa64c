package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// lexed is a significant token reduced to its type and text.
type lexed struct {
	Type TokenType
	Text string
}

func significant(tokens []Token, src string) []lexed {
	var out []lexed
	for _, tok := range tokens {
		if !tok.IsTrivia() {
			out = append(out, lexed{tok.Type, tok.Text(src)})
		}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexed
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []lexed{{CLOSE_BRACE, ""}},
		},
		{
			name:  "Operators",
			input: "+ - * / < > = <= >= == != <- ->",
			expected: []lexed{
				{PLUS, "+"}, {MINUS, "-"}, {STAR, "*"}, {SLASH, "/"},
				{LESS_THAN, "<"}, {GREATER_THAN, ">"}, {EQUALS, "="},
				{LESS_THAN_EQUAL, "<="}, {GREATER_THAN_EQUAL, ">="},
				{EQUAL_EQUAL, "=="}, {NOT_EQUAL, "!="},
				{BACK_ARROW, "<-"}, {FORWARD_ARROW, "->"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Punctuation",
			input: "{}();,.:",
			expected: []lexed{
				{OPEN_BRACE, "{"}, {CLOSE_BRACE, "}"},
				{OPEN_PARENTHESIS, "("}, {CLOSE_PARENTHESIS, ")"},
				{SEMI_COLON, ";"}, {COMMA, ","}, {DOT, "."}, {COLON, ":"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Longest Match",
			input: "a>=b",
			expected: []lexed{
				{IDENTIFIER, "a"}, {GREATER_THAN_EQUAL, ">="}, {IDENTIFIER, "b"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Keywords and Identifiers",
			input: "while if true false whilex _tmp iffy",
			expected: []lexed{
				{WHILE, "while"}, {IF, "if"}, {TRUE, "true"}, {FALSE, "false"},
				{IDENTIFIER, "whilex"}, {IDENTIFIER, "_tmp"}, {IDENTIFIER, "iffy"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Integers",
			input: "123 0 12ab",
			expected: []lexed{
				{INTEGER_LITERAL, "123"}, {INTEGER_LITERAL, "0"}, {IDENTIFIER, "12ab"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Float Pieces",
			input: "3.25",
			expected: []lexed{
				{INTEGER_LITERAL, "3"}, {DOT, "."}, {INTEGER_LITERAL, "25"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "String",
			input: `s = "a b; // c";`,
			expected: []lexed{
				{IDENTIFIER, "s"}, {EQUALS, "="}, {STRING_LITERAL, `"a b; // c"`}, {SEMI_COLON, ";"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Comment",
			input: "x = 1; // x = 2;\ny = 3;",
			expected: []lexed{
				{IDENTIFIER, "x"}, {EQUALS, "="}, {INTEGER_LITERAL, "1"}, {SEMI_COLON, ";"},
				{IDENTIFIER, "y"}, {EQUALS, "="}, {INTEGER_LITERAL, "3"}, {SEMI_COLON, ";"},
				{CLOSE_BRACE, ""},
			},
		},
		{
			name:  "Procedure Declaration",
			input: "add :: (a: int) -> int { <- a; }",
			expected: []lexed{
				{IDENTIFIER, "add"}, {COLON, ":"}, {COLON, ":"},
				{OPEN_PARENTHESIS, "("}, {IDENTIFIER, "a"}, {COLON, ":"}, {IDENTIFIER, "int"}, {CLOSE_PARENTHESIS, ")"},
				{FORWARD_ARROW, "->"}, {IDENTIFIER, "int"},
				{OPEN_BRACE, "{"}, {BACK_ARROW, "<-"}, {IDENTIFIER, "a"}, {SEMI_COLON, ";"}, {CLOSE_BRACE, "}"},
				{CLOSE_BRACE, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			got := significant(tokens, tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestLexCoversSource(t *testing.T) {
	src := "main :: () {\r\n\tx: int; // note\n\tx = 1 + 2;\n\t<- x;\n}\n"
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}

	// Concatenating every token's text, trivia included, rebuilds the source.
	var sb strings.Builder
	prev := 0
	for _, tok := range tokens {
		if tok.Start != prev {
			t.Fatalf("gap or overlap before %v (previous end %d)", tok, prev)
		}
		sb.WriteString(tok.Text(src))
		prev = tok.End
	}
	if sb.String() != src {
		t.Errorf("token texts = %q, want %q", sb.String(), src)
	}

	last := tokens[len(tokens)-1]
	if last.Type != CLOSE_BRACE || last.Start != len(src) || last.End != len(src) {
		t.Errorf("last token = %v, want zero-width CLOSE_BRACE at %d", last, len(src))
	}
}

func TestLexTrivia(t *testing.T) {
	src := " \t\r\n// c"
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	want := []TokenType{SPACE, TAB, CARRIAGE_RETURN, NEWLINE, COMMENT, CLOSE_BRACE}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Errorf("token %d = %s, want %s", i, tok.Type, want[i])
		}
		if tok.IsTrivia() != (i < len(want)-1) {
			t.Errorf("token %d IsTrivia() = %v", i, tok.IsTrivia())
		}
	}
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := Lex(`x = "abc;`)
	if err == nil {
		t.Fatal("expected an error for an unterminated string")
	}
	var lexErr *LexError
	if !errors.As(err, &lexErr) {
		t.Fatalf("error %v is not a *LexError", err)
	}
	if lexErr.Offset != 4 {
		t.Errorf("Offset = %d, want 4", lexErr.Offset)
	}
}

func TestTokenTypeString(t *testing.T) {
	if got := GREATER_THAN_EQUAL.String(); got != "GREATER_THAN_EQUAL" {
		t.Errorf("String() = %q", got)
	}
	if got := TokenType(-1).String(); got != "TokenType(-1)" {
		t.Errorf("String() = %q", got)
	}
}
