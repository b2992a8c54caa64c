package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	IDENTIFIER      TokenType = iota // run of unclassified characters
	INTEGER_LITERAL                  // run of decimal digits
	STRING_LITERAL                   // "..." including the quotes
	COMMENT                          // // through end of line

	// Trivia
	SPACE
	TAB
	NEWLINE
	CARRIAGE_RETURN

	// Keywords
	WHILE // "while"
	IF    // "if"
	TRUE  // "true"
	FALSE // "false"

	// Paired delimiters
	OPEN_BRACE        // {
	CLOSE_BRACE       // }
	OPEN_PARENTHESIS  // (
	CLOSE_PARENTHESIS // )

	// Punctuation
	SEMI_COLON // ;
	COMMA      // ,
	DOT        // .
	COLON      // :

	// Arrows
	FORWARD_ARROW // ->
	BACK_ARROW    // <-

	// Operators
	EQUALS             // =
	PLUS               // +
	MINUS              // -
	STAR               // *
	SLASH              // /
	LESS_THAN          // <
	GREATER_THAN       // >
	LESS_THAN_EQUAL    // <=
	GREATER_THAN_EQUAL // >=
	EQUAL_EQUAL        // ==
	NOT_EQUAL          // !=
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	IDENTIFIER:         "IDENTIFIER",
	INTEGER_LITERAL:    "INTEGER_LITERAL",
	STRING_LITERAL:     "STRING_LITERAL",
	COMMENT:            "COMMENT",
	SPACE:              "SPACE",
	TAB:                "TAB",
	NEWLINE:            "NEWLINE",
	CARRIAGE_RETURN:    "CARRIAGE_RETURN",
	WHILE:              "WHILE",
	IF:                 "IF",
	TRUE:               "TRUE",
	FALSE:              "FALSE",
	OPEN_BRACE:         "OPEN_BRACE",
	CLOSE_BRACE:        "CLOSE_BRACE",
	OPEN_PARENTHESIS:   "OPEN_PARENTHESIS",
	CLOSE_PARENTHESIS:  "CLOSE_PARENTHESIS",
	SEMI_COLON:         "SEMI_COLON",
	COMMA:              "COMMA",
	DOT:                "DOT",
	COLON:              "COLON",
	FORWARD_ARROW:      "FORWARD_ARROW",
	BACK_ARROW:         "BACK_ARROW",
	EQUALS:             "EQUALS",
	PLUS:               "PLUS",
	MINUS:              "MINUS",
	STAR:               "STAR",
	SLASH:              "SLASH",
	LESS_THAN:          "LESS_THAN",
	GREATER_THAN:       "GREATER_THAN",
	LESS_THAN_EQUAL:    "LESS_THAN_EQUAL",
	GREATER_THAN_EQUAL: "GREATER_THAN_EQUAL",
	EQUAL_EQUAL:        "EQUAL_EQUAL",
	NOT_EQUAL:          "NOT_EQUAL",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// fixedToken is one entry of the lexer's match table.
type fixedToken struct {
	text string
	tt   TokenType
}

// tokenTable is tried top to bottom at every offset. Multi-character
// operators must precede their single-character prefixes.
var tokenTable = []fixedToken{
	{"<-", BACK_ARROW},
	{"->", FORWARD_ARROW},
	{"<=", LESS_THAN_EQUAL},
	{">=", GREATER_THAN_EQUAL},
	{"==", EQUAL_EQUAL},
	{"!=", NOT_EQUAL},
	{"<", LESS_THAN},
	{">", GREATER_THAN},
	{"=", EQUALS},
	{"+", PLUS},
	{"-", MINUS},
	{"*", STAR},
	{"/", SLASH},
	{".", DOT},
	{",", COMMA},
	{";", SEMI_COLON},
	{":", COLON},
	{"{", OPEN_BRACE},
	{"}", CLOSE_BRACE},
	{"(", OPEN_PARENTHESIS},
	{")", CLOSE_PARENTHESIS},
	{" ", SPACE},
	{"\t", TAB},
	{"\n", NEWLINE},
	{"\r", CARRIAGE_RETURN},
}

// keywords reclassifies a completed identifier run.
var keywords = map[string]TokenType{
	"while": WHILE,
	"if":    IF,
	"true":  TRUE,
	"false": FALSE,
}

// Token is a single lexical unit. It owns no text: Start and End are a
// half-open byte range into the source it was lexed from.
type Token struct {
	Type  TokenType
	Start int
	End   int
}

// Text returns the slice of src the token covers.
func (t Token) Text(src string) string {
	return src[t.Start:t.End]
}

// IsTrivia reports whether the parser's cursor skips this token.
func (t Token) IsTrivia() bool {
	switch t.Type {
	case SPACE, TAB, NEWLINE, CARRIAGE_RETURN, COMMENT:
		return true
	}
	return false
}

func (t Token) String() string {
	return fmt.Sprintf("%-18s [%d, %d)", t.Type, t.Start, t.End)
}
