package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// NodeKind is the type tag carried by every AST node.
type NodeKind int

const (
	KindIntLiteral NodeKind = iota
	KindFloatLiteral
	KindStringLiteral
	KindBoolLiteral
	KindVarRef
	KindVarDecl
	KindAssignment
	KindBinaryOp
	KindProcCall
	KindProcedure
	KindProcDecl
	KindBlock
	KindWhile
	KindIf
	KindReturn
	KindParseError
)

var nodeKindNames = [...]string{
	KindIntLiteral:    "IntLiteral",
	KindFloatLiteral:  "FloatLiteral",
	KindStringLiteral: "StringLiteral",
	KindBoolLiteral:   "BoolLiteral",
	KindVarRef:        "VariableReference",
	KindVarDecl:       "VariableDeclaration",
	KindAssignment:    "VariableAssignment",
	KindBinaryOp:      "BinaryOperator",
	KindProcCall:      "ProcedureCall",
	KindProcedure:     "Procedure",
	KindProcDecl:      "ProcedureDeclaration",
	KindBlock:         "Block",
	KindWhile:         "WhileStatement",
	KindIf:            "IfStatement",
	KindReturn:        "ReturnStatement",
	KindParseError:    "ParseError",
}

func (k NodeKind) String() string {
	if int(k) >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is implemented by every AST node.
type Node interface {
	Kind() NodeKind
	String() string
}

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in the accumulator.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by every node that may appear in a Block.
type Stmt interface {
	Node
	stmtNode()
}

//  Expression nodes

// IntLiteral is an integer constant.
//
//	x = 10;
//	    ^^  IntLiteral{Value: 10}
type IntLiteral struct {
	Value int64
}

func (*IntLiteral) exprNode()        {}
func (*IntLiteral) Kind() NodeKind   { return KindIntLiteral }
func (l *IntLiteral) String() string { return strconv.FormatInt(l.Value, 10) }

// FloatLiteral is built from INTEGER "." INTEGER.
type FloatLiteral struct {
	Value float64
}

func (*FloatLiteral) exprNode()        {}
func (*FloatLiteral) Kind() NodeKind   { return KindFloatLiteral }
func (l *FloatLiteral) String() string { return strconv.FormatFloat(l.Value, 'g', -1, 64) }

// StringLiteral holds the text between the quotes.
type StringLiteral struct {
	Value string
}

func (*StringLiteral) exprNode()        {}
func (*StringLiteral) Kind() NodeKind   { return KindStringLiteral }
func (s *StringLiteral) String() string { return strconv.Quote(s.Value) }

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value bool
}

func (*BoolLiteral) exprNode()        {}
func (*BoolLiteral) Kind() NodeKind   { return KindBoolLiteral }
func (b *BoolLiteral) String() string { return strconv.FormatBool(b.Value) }

// VarRef is a read of a named variable.
type VarRef struct {
	Name string
}

func (*VarRef) exprNode()        {}
func (*VarRef) Kind() NodeKind   { return KindVarRef }
func (v *VarRef) String() string { return v.Name }

// BinaryOpKind selects the operation of a BinaryOp.
type BinaryOpKind int

const (
	OpAdd BinaryOpKind = iota
	OpSubtract
	OpMultiply
	OpDivide
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpEqual
	OpNotEqual
)

var binaryOpText = [...]string{
	OpAdd:          "+",
	OpSubtract:     "-",
	OpMultiply:     "*",
	OpDivide:       "/",
	OpLess:         "<",
	OpGreater:      ">",
	OpLessEqual:    "<=",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
}

func (op BinaryOpKind) String() string {
	if int(op) >= 0 && int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return fmt.Sprintf("BinaryOpKind(%d)", int(op))
}

// IsComparison reports whether the operator yields a 0/1 truth value.
func (op BinaryOpKind) IsComparison() bool {
	return op >= OpLess && op <= OpNotEqual
}

// binaryOps maps operator tokens to their BinaryOpKind.
var binaryOps = map[TokenType]BinaryOpKind{
	PLUS:               OpAdd,
	MINUS:              OpSubtract,
	STAR:               OpMultiply,
	SLASH:              OpDivide,
	LESS_THAN:          OpLess,
	GREATER_THAN:       OpGreater,
	LESS_THAN_EQUAL:    OpLessEqual,
	GREATER_THAN_EQUAL: OpGreaterEqual,
	EQUAL_EQUAL:        OpEqual,
	NOT_EQUAL:          OpNotEqual,
}

// BinaryOp represents Left Op Right. Chains associate to the right:
//
//	a + b * c   =>   BinaryOp{+, a, BinaryOp{*, b, c}}
type BinaryOp struct {
	Op    BinaryOpKind
	Left  Expr
	Right Expr
}

func (*BinaryOp) exprNode()      {}
func (*BinaryOp) Kind() NodeKind { return KindBinaryOp }
func (b *BinaryOp) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// ProcCall represents name(args). It is both an expression and a statement.
type ProcCall struct {
	Name string
	Args []Expr
}

func (*ProcCall) exprNode()      {}
func (*ProcCall) stmtNode()      {}
func (*ProcCall) Kind() NodeKind { return KindProcCall }
func (c *ProcCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

// ParseError stands in for a statement or expression that could not be
// parsed. Offset is the byte position of the offending token.
type ParseError struct {
	Message string
	Offset  int
}

func (*ParseError) exprNode()      {}
func (*ParseError) stmtNode()      {}
func (*ParseError) Kind() NodeKind { return KindParseError }
func (e *ParseError) String() string {
	return fmt.Sprintf("ParseError(%q @%d)", e.Message, e.Offset)
}

//  Statement nodes

// VarDecl declares a local variable.
//
//	x: int;
type VarDecl struct {
	Name     string
	TypeName string
}

func (*VarDecl) stmtNode()      {}
func (*VarDecl) Kind() NodeKind { return KindVarDecl }
func (d *VarDecl) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.TypeName)
}

// Assignment stores Value into Name.
type Assignment struct {
	Name  string
	Value Expr
}

func (*Assignment) stmtNode()      {}
func (*Assignment) Kind() NodeKind { return KindAssignment }
func (a *Assignment) String() string {
	return fmt.Sprintf("%s = %s", a.Name, a.Value)
}

// Block is an ordered statement list.
type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode()      {}
func (*Block) Kind() NodeKind { return KindBlock }
func (b *Block) String() string {
	parts := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		parts[i] = s.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// WhileStmt repeats Body while Cond is non-zero.
type WhileStmt struct {
	Cond Expr
	Body *Block
}

func (*WhileStmt) stmtNode()      {}
func (*WhileStmt) Kind() NodeKind { return KindWhile }
func (w *WhileStmt) String() string {
	return fmt.Sprintf("while (%s) %s", w.Cond, w.Body)
}

// IfStmt runs Body once when Cond is non-zero. There is no else branch.
type IfStmt struct {
	Cond Expr
	Body *Block
}

func (*IfStmt) stmtNode()      {}
func (*IfStmt) Kind() NodeKind { return KindIf }
func (i *IfStmt) String() string {
	return fmt.Sprintf("if (%s) %s", i.Cond, i.Body)
}

// ReturnStmt is "<- expr".
type ReturnStmt struct {
	Value Expr
}

func (*ReturnStmt) stmtNode()      {}
func (*ReturnStmt) Kind() NodeKind { return KindReturn }
func (r *ReturnStmt) String() string {
	return fmt.Sprintf("<- %s", r.Value)
}

// Procedure is the value side of a procedure declaration.
//
//	(a: int, b: int) -> int { ... }
type Procedure struct {
	Params     []*VarDecl
	ReturnType string // optional "-> type" annotation; informational only
	Body       *Block
}

func (*Procedure) Kind() NodeKind { return KindProcedure }
func (p *Procedure) String() string {
	params := make([]string, len(p.Params))
	for i, d := range p.Params {
		params[i] = d.String()
	}
	ret := ""
	if p.ReturnType != "" {
		ret = " -> " + p.ReturnType
	}
	return fmt.Sprintf("(%s)%s %s", strings.Join(params, ", "), ret, p.Body)
}

// ProcDecl binds a procedure to a name: "name :: (...) { ... }".
type ProcDecl struct {
	Name string
	Proc *Procedure
}

func (*ProcDecl) stmtNode()      {}
func (*ProcDecl) Kind() NodeKind { return KindProcDecl }
func (d *ProcDecl) String() string {
	return fmt.Sprintf("%s :: %s", d.Name, d.Proc)
}

// Walk visits n and its descendants depth first, in source order. Children
// are skipped when fn returns false.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch n := n.(type) {
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *ProcCall:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *Assignment:
		Walk(n.Value, fn)
	case *ReturnStmt:
		Walk(n.Value, fn)
	case *Block:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case *WhileStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *IfStmt:
		Walk(n.Cond, fn)
		Walk(n.Body, fn)
	case *Procedure:
		for _, p := range n.Params {
			Walk(p, fn)
		}
		Walk(n.Body, fn)
	case *ProcDecl:
		Walk(n.Proc, fn)
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *VarRef, *VarDecl, *ParseError:
	}
}

// isAtom reports whether e can be used directly as an operand: a literal or
// a variable reference.
func isAtom(e Expr) bool {
	switch e.(type) {
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *VarRef:
		return true
	}
	return false
}

// cloneExpr returns a deep copy of e so the copy can be given a parent of
// its own.
func cloneExpr(e Expr) Expr {
	switch n := e.(type) {
	case *IntLiteral:
		c := *n
		return &c
	case *FloatLiteral:
		c := *n
		return &c
	case *StringLiteral:
		c := *n
		return &c
	case *BoolLiteral:
		c := *n
		return &c
	case *VarRef:
		c := *n
		return &c
	case *ParseError:
		c := *n
		return &c
	case *BinaryOp:
		return &BinaryOp{Op: n.Op, Left: cloneExpr(n.Left), Right: cloneExpr(n.Right)}
	case *ProcCall:
		args := make([]Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = cloneExpr(a)
		}
		return &ProcCall{Name: n.Name, Args: args}
	}
	return e
}
