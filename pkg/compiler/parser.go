package compiler

import (
	"fmt"
	"strconv"
)

// endOfInput is returned by the cursor once every token has been consumed.
const endOfInput TokenType = -1

// Parser consumes the token slice produced by Lex and builds an AST.
//
// Grammar:
//
//	program     = { statement } "}"            (the lexer supplies the final "}")
//	block       = { statement } "}"
//	statement   = "{" block
//	            | "<-" expression term
//	            | ("while" | "if") "(" arguments "{" block
//	            | IDENT ":" IDENT term
//	            | IDENT "::" procedure
//	            | IDENT "=" expression term
//	            | IDENT "(" arguments term
//	procedure   = "(" [ IDENT ":" IDENT { "," IDENT ":" IDENT } ] ")" [ "->" IDENT ] "{" block
//	arguments   = [ expression { "," expression } ] ")"
//	expression  = subexpr [ binop expression ]   (right associative, no precedence)
//	subexpr     = IDENT [ "(" arguments ] | INT [ "." INT ] | "true" | "false" | "-" INT | STRING
//	term        = ";" | before "}"
//
// Errors never abort the parse: a *ParseError node takes the place of the
// statement or expression that failed and the cursor resynchronises.
type Parser struct {
	tokens []Token
	src    string
	pos    int
}

func NewParser(tokens []Token, src string) *Parser {
	return &Parser{tokens: tokens, src: src}
}

// skipTrivia moves the cursor past whitespace and comments.
func (p *Parser) skipTrivia() {
	for p.pos < len(p.tokens) && p.tokens[p.pos].IsTrivia() {
		p.pos++
	}
}

// peek returns the next significant token without consuming it.
func (p *Parser) peek() Token {
	p.skipTrivia()
	if p.pos >= len(p.tokens) {
		return Token{Type: endOfInput, Start: len(p.src), End: len(p.src)}
	}
	return p.tokens[p.pos]
}

// next consumes and returns the next significant token.
func (p *Parser) next() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// adjacent reports whether the raw token at the cursor has type tt, without
// skipping trivia.
func (p *Parser) adjacent(tt TokenType) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].Type == tt
}

func (p *Parser) text(tok Token) string {
	return tok.Text(p.src)
}

func (p *Parser) errorAt(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Offset: tok.Start}
}

// describe renders a token for error messages.
func (p *Parser) describe(tok Token) string {
	if tok.Type == endOfInput || tok.Start == tok.End {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", tok.Type, p.text(tok))
}

// synchronize skips to just past the next ";" or up to the "}" closing the
// current block, whichever comes first.
func (p *Parser) synchronize() {
	depth := 0
	for {
		switch p.peek().Type {
		case endOfInput:
			return
		case OPEN_BRACE:
			depth++
		case CLOSE_BRACE:
			if depth == 0 {
				return
			}
			depth--
		case SEMI_COLON:
			if depth == 0 {
				p.next()
				return
			}
		}
		p.next()
	}
}

// atDeclaration reports whether the cursor is at IDENT "::".
func (p *Parser) atDeclaration() bool {
	save := p.pos
	defer func() { p.pos = save }()
	if p.next().Type != IDENTIFIER || p.next().Type != COLON {
		return false
	}
	return p.adjacent(COLON)
}

// rewind moves the cursor back to the token starting at offset.
func (p *Parser) rewind(offset int) {
	if p.pos > len(p.tokens) {
		p.pos = len(p.tokens)
	}
	for p.pos > 0 && (p.pos == len(p.tokens) || p.tokens[p.pos].Start > offset) {
		p.pos--
	}
}

// skipProcedure recovers from a malformed procedure header, starting at the
// offending token. It drops the rest of the header and the body that
// follows it, stopping early at the next declaration or at the "}" closing
// the enclosing block.
func (p *Parser) skipProcedure(err *ParseError) {
	p.rewind(err.Offset)
	for {
		switch p.peek().Type {
		case endOfInput, CLOSE_BRACE:
			return
		case SEMI_COLON:
			p.next()
			return
		case OPEN_BRACE:
			p.next()
			p.skipBody()
			return
		case IDENTIFIER:
			if p.atDeclaration() {
				return
			}
		}
		p.next()
	}
}

// skipBody consumes tokens up to and including the "}" matching an
// already consumed "{".
func (p *Parser) skipBody() {
	depth := 0
	for {
		switch p.next().Type {
		case endOfInput:
			return
		case OPEN_BRACE:
			depth++
		case CLOSE_BRACE:
			if depth == 0 {
				return
			}
			depth--
		}
	}
}

// fail resynchronises and returns err so it can stand in for a statement.
func (p *Parser) fail(err *ParseError) Stmt {
	p.synchronize()
	return err
}

// terminate checks the statement terminator. A ParseError among parts
// replaces the statement.
func (p *Parser) terminate(stmt Stmt, parts ...Expr) Stmt {
	for _, part := range parts {
		if err, ok := part.(*ParseError); ok {
			return p.fail(err)
		}
	}
	tok := p.peek()
	switch tok.Type {
	case SEMI_COLON:
		p.next()
		return stmt
	case CLOSE_BRACE:
		return stmt
	}
	return p.fail(p.errorAt(tok, "expected ';' after statement, found %s", p.describe(tok)))
}

// parseBlock consumes statements up to and including the closing brace,
// which is returned alongside the block.
func (p *Parser) parseBlock() (*Block, Token) {
	block := &Block{}
	for {
		tok := p.peek()
		switch tok.Type {
		case CLOSE_BRACE:
			p.next()
			return block, tok
		case endOfInput:
			block.Stmts = append(block.Stmts, p.errorAt(tok, "unexpected end of input, missing '}'"))
			return block, tok
		case SEMI_COLON:
			p.next() // empty statement
			continue
		}
		block.Stmts = append(block.Stmts, p.parseStatement())
	}
}

func (p *Parser) parseStatement() Stmt {
	start := p.next()
	switch start.Type {
	case OPEN_BRACE:
		block, _ := p.parseBlock()
		return block
	case BACK_ARROW:
		value := p.parseExpression()
		return p.terminate(&ReturnStmt{Value: value}, value)
	case WHILE, IF:
		return p.parseConditional(start)
	case IDENTIFIER:
		return p.parseIdentifierStatement(start)
	}
	return p.fail(p.errorAt(start, "statement cannot start with %s", p.describe(start)))
}

// parseConditional handles while and if. The condition is the first element
// of a parenthesised argument list.
func (p *Parser) parseConditional(keyword Token) Stmt {
	open := p.next()
	if open.Type != OPEN_PARENTHESIS {
		return p.fail(p.errorAt(open, "expected '(' after %s, found %s", p.text(keyword), p.describe(open)))
	}
	args, err := p.parseArguments()
	if err != nil {
		return p.fail(err)
	}
	if len(args) == 0 {
		return p.fail(p.errorAt(keyword, "%s has no condition", p.text(keyword)))
	}
	brace := p.next()
	if brace.Type != OPEN_BRACE {
		return p.fail(p.errorAt(brace, "expected '{' after %s condition, found %s", p.text(keyword), p.describe(brace)))
	}
	body, _ := p.parseBlock()
	if keyword.Type == WHILE {
		return &WhileStmt{Cond: args[0], Body: body}
	}
	return &IfStmt{Cond: args[0], Body: body}
}

func (p *Parser) parseIdentifierStatement(ident Token) Stmt {
	name := p.text(ident)
	tok := p.next()
	switch tok.Type {
	case COLON:
		if p.adjacent(COLON) {
			p.next()
			return p.parseProcedureDecl(name)
		}
		typeTok := p.next()
		if typeTok.Type != IDENTIFIER {
			return p.fail(p.errorAt(typeTok, "expected type name for %q, found %s", name, p.describe(typeTok)))
		}
		return p.terminate(&VarDecl{Name: name, TypeName: p.text(typeTok)})
	case EQUALS:
		value := p.parseExpression()
		return p.terminate(&Assignment{Name: name, Value: value}, value)
	case OPEN_PARENTHESIS:
		args, err := p.parseArguments()
		if err != nil {
			return p.fail(err)
		}
		return p.terminate(&ProcCall{Name: name, Args: args})
	}
	return p.fail(p.errorAt(tok, "expected ':', '::', '=' or '(' after %q, found %s", name, p.describe(tok)))
}

func (p *Parser) parseProcedureDecl(name string) Stmt {
	proc, err := p.parseProcedure()
	if err != nil {
		p.skipProcedure(err)
		return err
	}
	return &ProcDecl{Name: name, Proc: proc}
}

// parseProcedure parses a parameter list, an optional return type and a body.
func (p *Parser) parseProcedure() (*Procedure, *ParseError) {
	open := p.next()
	if open.Type != OPEN_PARENTHESIS {
		return nil, p.errorAt(open, "expected '(' to open parameter list, found %s", p.describe(open))
	}
	proc := &Procedure{}
	if p.peek().Type == CLOSE_PARENTHESIS {
		p.next()
	} else {
		for {
			nameTok := p.next()
			if nameTok.Type != IDENTIFIER {
				return nil, p.errorAt(nameTok, "expected parameter name, found %s", p.describe(nameTok))
			}
			if colon := p.next(); colon.Type != COLON {
				return nil, p.errorAt(colon, "expected ':' after parameter %q, found %s", p.text(nameTok), p.describe(colon))
			}
			typeTok := p.next()
			if typeTok.Type != IDENTIFIER {
				return nil, p.errorAt(typeTok, "expected type for parameter %q, found %s", p.text(nameTok), p.describe(typeTok))
			}
			proc.Params = append(proc.Params, &VarDecl{Name: p.text(nameTok), TypeName: p.text(typeTok)})

			sep := p.next()
			if sep.Type == CLOSE_PARENTHESIS {
				break
			}
			if sep.Type != COMMA {
				return nil, p.errorAt(sep, "expected ',' or ')' in parameter list, found %s", p.describe(sep))
			}
		}
	}

	if p.peek().Type == FORWARD_ARROW {
		p.next()
		ret := p.next()
		if ret.Type != IDENTIFIER {
			return nil, p.errorAt(ret, "expected return type after '->', found %s", p.describe(ret))
		}
		proc.ReturnType = p.text(ret)
	}

	brace := p.next()
	if brace.Type != OPEN_BRACE {
		return nil, p.errorAt(brace, "expected '{' to open procedure body, found %s", p.describe(brace))
	}
	proc.Body, _ = p.parseBlock()
	return proc, nil
}

// parseArguments parses a comma separated expression list. The opening
// parenthesis must already have been consumed; the closing one is consumed.
func (p *Parser) parseArguments() ([]Expr, *ParseError) {
	var args []Expr
	if p.peek().Type == CLOSE_PARENTHESIS {
		p.next()
		return args, nil
	}
	for {
		arg := p.parseExpression()
		if err, ok := arg.(*ParseError); ok {
			return nil, err
		}
		args = append(args, arg)

		tok := p.next()
		switch tok.Type {
		case COMMA:
			continue
		case CLOSE_PARENTHESIS:
			return args, nil
		}
		return nil, p.errorAt(tok, "expected ',' or ')' in argument list, found %s", p.describe(tok))
	}
}

// parseExpression parses one subexpression and, unless the expression ends
// here, an operator followed by the rest of the expression as the right
// operand. There is no precedence: a + b * c is a + (b * c), and
// a * b + c is a * (b + c).
func (p *Parser) parseExpression() Expr {
	left := p.parseSubexpression()
	if _, ok := left.(*ParseError); ok {
		return left
	}

	tok := p.peek()
	switch tok.Type {
	case SEMI_COLON, COMMA, CLOSE_PARENTHESIS, CLOSE_BRACE, endOfInput:
		return left
	}
	op, ok := binaryOps[tok.Type]
	if !ok {
		return p.errorAt(tok, "expected ';' or a binary operator, found %s", p.describe(tok))
	}
	p.next()

	right := p.parseExpression()
	if _, ok := right.(*ParseError); ok {
		return right
	}
	return &BinaryOp{Op: op, Left: left, Right: right}
}

func (p *Parser) parseSubexpression() Expr {
	tok := p.next()
	switch tok.Type {
	case IDENTIFIER:
		name := p.text(tok)
		if p.peek().Type == OPEN_PARENTHESIS {
			p.next()
			args, err := p.parseArguments()
			if err != nil {
				return err
			}
			return &ProcCall{Name: name, Args: args}
		}
		return &VarRef{Name: name}

	case INTEGER_LITERAL:
		whole := p.text(tok)
		if p.peek().Type == DOT {
			p.next()
			frac := p.next()
			if frac.Type != INTEGER_LITERAL {
				return p.errorAt(frac, "expected digits after '.', found %s", p.describe(frac))
			}
			v, err := strconv.ParseFloat(whole+"."+p.text(frac), 64)
			if err != nil {
				return p.errorAt(tok, "invalid float literal %s.%s", whole, p.text(frac))
			}
			return &FloatLiteral{Value: v}
		}
		v, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return p.errorAt(tok, "integer literal %s out of range", whole)
		}
		return &IntLiteral{Value: v}

	case TRUE:
		return &BoolLiteral{Value: true}
	case FALSE:
		return &BoolLiteral{Value: false}

	case MINUS:
		if lit := p.peek(); lit.Type == INTEGER_LITERAL {
			save := p.pos
			p.next()
			if p.peek().Type != DOT {
				digits := "-" + p.text(lit)
				v, err := strconv.ParseInt(digits, 10, 64)
				if err != nil {
					return p.errorAt(tok, "integer literal %s out of range", digits)
				}
				return &IntLiteral{Value: v}
			}
			p.pos = save
		}
		operand := p.parseSubexpression()
		switch o := operand.(type) {
		case *ParseError:
			return o
		case *IntLiteral:
			o.Value = -o.Value
			return o
		}
		return p.errorAt(tok, "unary minus is only supported on integer literals, not %s", operand.Kind())

	case STRING_LITERAL:
		text := p.text(tok)
		return &StringLiteral{Value: text[1 : len(text)-1]}

	case SEMI_COLON, CLOSE_BRACE:
		// leave the terminator for synchronize
		p.pos--
	}
	return p.errorAt(tok, "expected expression, found %s", p.describe(tok))
}

// Parse builds the AST for a whole token slice. The result is never nil;
// problems are recorded as *ParseError nodes in the tree (see ParseErrors).
func Parse(tokens []Token, src string) *Block {
	p := NewParser(tokens, src)
	root := &Block{}
	for {
		block, closing := p.parseBlock()
		root.Stmts = append(root.Stmts, block.Stmts...)
		if closing.Type != CLOSE_BRACE || p.peek().Type == endOfInput {
			return root
		}
		root.Stmts = append(root.Stmts, p.errorAt(closing, "unmatched '}'"))
	}
}
