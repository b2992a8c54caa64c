package compiler

import (
	"fmt"
	"strings"
)

// LexError reports a scan that could not be completed.
type LexError struct {
	Offset  int
	Message string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src    string
	pos    int // offset of the next byte to examine
	run    int // start of the pending unclassified run, or -1
	tokens []Token
}

func newLexer(src string) *Lexer {
	return &Lexer{src: src, run: -1}
}

// emit appends a token covering [start, end).
func (l *Lexer) emit(tt TokenType, start, end int) {
	l.tokens = append(l.tokens, Token{Type: tt, Start: start, End: end})
}

// flushRun closes the pending unclassified run at the current position.
func (l *Lexer) flushRun() {
	if l.run < 0 {
		return
	}
	text := l.src[l.run:l.pos]
	tt := IDENTIFIER
	if isDigits(text) {
		tt = INTEGER_LITERAL
	} else if kw, ok := keywords[text]; ok {
		tt = kw
	}
	l.emit(tt, l.run, l.pos)
	l.run = -1
}

// scanString consumes a "..." literal. No escape processing is done.
func (l *Lexer) scanString() error {
	start := l.pos
	end := strings.IndexByte(l.src[start+1:], '"')
	if end < 0 {
		return &LexError{Offset: start, Message: "unterminated string literal"}
	}
	l.pos = start + 1 + end + 1
	l.emit(STRING_LITERAL, start, l.pos)
	return nil
}

// scanLineComment consumes "//" up to, but not including, the newline.
func (l *Lexer) scanLineComment() {
	start := l.pos
	end := strings.IndexByte(l.src[start:], '\n')
	if end < 0 {
		l.pos = len(l.src)
	} else {
		l.pos = start + end
	}
	l.emit(COMMENT, start, l.pos)
}

// matchFixed returns the first table entry that matches at the current position.
func (l *Lexer) matchFixed() (fixedToken, bool) {
	rest := l.src[l.pos:]
	for _, entry := range tokenTable {
		if strings.HasPrefix(rest, entry.text) {
			return entry, true
		}
	}
	return fixedToken{}, false
}

func (l *Lexer) scan() error {
	for l.pos < len(l.src) {
		if l.src[l.pos] == '"' {
			l.flushRun()
			if err := l.scanString(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(l.src[l.pos:], "//") {
			l.flushRun()
			l.scanLineComment()
			continue
		}
		if entry, ok := l.matchFixed(); ok {
			l.flushRun()
			l.emit(entry.tt, l.pos, l.pos+len(entry.text))
			l.pos += len(entry.text)
			continue
		}
		if l.run < 0 {
			l.run = l.pos
		}
		l.pos++
	}
	l.flushRun()
	return nil
}

// Lex tokenises src. Trivia tokens are kept; the slice always ends with a
// zero-width CLOSE_BRACE sentinel at len(src) that closes the top-level block.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	if err := l.scan(); err != nil {
		return l.tokens, err
	}
	l.emit(CLOSE_BRACE, len(src), len(src))
	return l.tokens, nil
}

func isDigits(text string) bool {
	if text == "" {
		return false
	}
	for i := 0; i < len(text); i++ {
		if text[i] < '0' || text[i] > '9' {
			return false
		}
	}
	return true
}
