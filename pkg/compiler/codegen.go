package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	// accumulator receives the value of every expression.
	accumulator = "rax"
	// scratch holds the left operand of a binary operator.
	scratch = "r11"
	// divisor holds the right operand of a division.
	divisor = "r10"
	// entrySymbol is the global the C runtime calls.
	entrySymbol = "main"
	// formatLabel names the integer output template in the data segment.
	formatLabel = "msg"
	// epilogueLabel is the local label every return jumps to.
	epilogueLabel = ".epilogue"
)

// setcc maps comparison operators to the instruction that stores the flag
// into the low byte of the accumulator.
var setcc = map[BinaryOpKind]string{
	OpLess:         "setl",
	OpGreater:      "setg",
	OpLessEqual:    "setle",
	OpGreaterEqual: "setge",
	OpEqual:        "sete",
	OpNotEqual:     "setne",
}

// CodeGen walks a flattened AST and emits NASM x86-64 assembly text.
type CodeGen struct {
	unit    *Unit
	target  *Target
	out     strings.Builder
	strs    map[string]string // content -> label
	strList []string          // contents in label order

	// per procedure
	frame *Frame
	scope map[string]string
}

func newCodeGen(u *Unit) *CodeGen {
	return &CodeGen{
		unit:   u,
		target: u.Target,
		strs:   make(map[string]string),
	}
}

func (cg *CodeGen) line(format string, args ...any) {
	fmt.Fprintf(&cg.out, "    "+format+"\n", args...)
}

func (cg *CodeGen) label(name string) {
	fmt.Fprintf(&cg.out, "%s:\n", name)
}

func (cg *CodeGen) comment(format string, args ...any) {
	cg.line("; "+format, args...)
}

// procLabel is the assembler label of a source procedure.
func procLabel(name string) string {
	return "proc_" + name
}

// stringLabel returns the data label for a string literal, pooling equal
// contents.
func (cg *CodeGen) stringLabel(s string) string {
	if l, ok := cg.strs[s]; ok {
		return l
	}
	l := fmt.Sprintf("str%d", len(cg.strList))
	cg.strs[s] = l
	cg.strList = append(cg.strList, s)
	return l
}

// genOperand loads an atom into reg.
func (cg *CodeGen) genOperand(reg string, e Expr) error {
	switch n := e.(type) {
	case *IntLiteral:
		cg.line("mov %s, %d", reg, n.Value)
	case *BoolLiteral:
		v := 0
		if n.Value {
			v = 1
		}
		cg.line("mov %s, %d", reg, v)
	case *FloatLiteral:
		cg.line("mov %s, __float64__(%s)", reg, nasmFloat(n.Value))
	case *StringLiteral:
		cg.line("lea %s, [%s]", reg, cg.stringLabel(n.Value))
	case *VarRef:
		slot, ok := cg.scope[n.Name]
		if !ok {
			return errors.Wrapf(ErrUndefinedVariable, "%q", n.Name)
		}
		cg.line("mov %s, %s", reg, slot)
	case *ParseError:
		return parseErrorf(n)
	default:
		return errors.Wrapf(ErrNotFlat, "operand %s", e)
	}
	return nil
}

// genExpr evaluates e into the accumulator.
func (cg *CodeGen) genExpr(e Expr) error {
	switch n := e.(type) {
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *VarRef:
		return cg.genOperand(accumulator, e)
	case *ProcCall:
		// The call's result register is the accumulator.
		return cg.genCall(n)
	case *BinaryOp:
		return cg.genBinary(n)
	case *ParseError:
		return parseErrorf(n)
	default:
		return errors.Errorf("codegen: unknown expression node %T", e)
	}
}

// genBinary evaluates the right operand into the accumulator, then combines
// it with the left operand, which must be an atom.
func (cg *CodeGen) genBinary(b *BinaryOp) error {
	if pe, ok := b.Left.(*ParseError); ok {
		return parseErrorf(pe)
	}
	if !isAtom(b.Left) {
		return errors.Wrapf(ErrNotFlat, "left operand of %s", b)
	}
	if err := cg.genExpr(b.Right); err != nil {
		return err
	}
	if err := cg.genOperand(scratch, b.Left); err != nil {
		return err
	}

	if b.Op.IsComparison() {
		cg.line("cmp %s, %s", scratch, accumulator)
		cg.line("%s al", setcc[b.Op])
		cg.line("movzx eax, al")
		return nil
	}
	switch b.Op {
	case OpAdd:
		cg.line("add %s, %s", accumulator, scratch)
	case OpSubtract:
		cg.line("sub %s, %s", scratch, accumulator)
		cg.line("mov %s, %s", accumulator, scratch)
	case OpMultiply:
		cg.line("imul %s, %s", accumulator, scratch)
	case OpDivide:
		cg.line("mov %s, %s", divisor, accumulator)
		cg.line("mov %s, %s", accumulator, scratch)
		cg.line("cqo")
		cg.line("idiv %s", divisor)
	default:
		return errors.Errorf("codegen: unknown binary operator %v", b.Op)
	}
	return nil
}

// genCall moves flattened arguments into the argument registers and calls
// the procedure.
func (cg *CodeGen) genCall(call *ProcCall) error {
	if len(call.Args) > len(cg.target.ArgRegs) {
		return errors.Wrapf(ErrTooManyArguments, "call to %s passes %d arguments, %s has %d",
			call.Name, len(call.Args), cg.target.Name, len(cg.target.ArgRegs))
	}
	if _, ok := cg.unit.Procedure(call.Name); !ok {
		return errors.Wrapf(ErrUndefinedProcedure, "%q", call.Name)
	}

	cg.comment("procedure %s start", call.Name)
	for i, arg := range call.Args {
		if pe, ok := arg.(*ParseError); ok {
			return parseErrorf(pe)
		}
		if !isAtom(arg) {
			return errors.Wrapf(ErrNotFlat, "argument %d of %s", i+1, call)
		}
		if err := cg.genOperand(cg.target.ArgRegs[i], arg); err != nil {
			return err
		}
	}
	cg.line("call %s", procLabel(call.Name))
	return nil
}

func (cg *CodeGen) genBlock(b *Block) error {
	for _, s := range b.Stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genStmt emits the instructions that carry out stmt.
func (cg *CodeGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *VarDecl:
		slot, err := cg.frame.Alloc()
		if err != nil {
			return err
		}
		// Redeclaring a name rebinds it for the rest of the procedure.
		cg.scope[n.Name] = slot
		cg.comment("%s: %s at %s", n.Name, n.TypeName, slot)

	case *Assignment:
		slot, ok := cg.scope[n.Name]
		if !ok {
			return errors.Wrapf(ErrUndefinedVariable, "assignment to %q", n.Name)
		}
		cg.comment("%s", n)
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		cg.line("mov %s, %s", slot, accumulator)

	case *ProcCall:
		return cg.genCall(n)

	case *ReturnStmt:
		cg.comment("%s", n)
		if err := cg.genExpr(n.Value); err != nil {
			return err
		}
		cg.line("jmp %s", epilogueLabel)

	case *WhileStmt:
		id := cg.unit.newLabel()
		head := fmt.Sprintf(".while_head%d", id)
		end := fmt.Sprintf(".while_end%d", id)
		cg.label(head)
		cg.comment("while %s", n.Cond)
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.line("cmp %s, 0", accumulator)
		cg.line("je %s", end)
		if err := cg.genBlock(n.Body); err != nil {
			return err
		}
		cg.line("jmp %s", head)
		cg.label(end)

	case *IfStmt:
		end := fmt.Sprintf(".if_end%d", cg.unit.newLabel())
		cg.comment("if %s", n.Cond)
		if err := cg.genExpr(n.Cond); err != nil {
			return err
		}
		cg.line("cmp %s, 0", accumulator)
		cg.line("je %s", end)
		if err := cg.genBlock(n.Body); err != nil {
			return err
		}
		cg.label(end)

	case *Block:
		return cg.genBlock(n)

	case *ProcDecl:
		return errors.Errorf("procedure %q is declared inside another procedure", n.Name)

	case *ParseError:
		return parseErrorf(n)

	default:
		return errors.Errorf("codegen: unknown statement node %T", s)
	}
	return nil
}

// genProcedure emits one procedure: label, prologue, parameter spills, body
// and epilogue.
func (cg *CodeGen) genProcedure(decl *ProcDecl, enclosing map[string]string) error {
	proc := decl.Proc
	if len(proc.Params) > len(cg.target.ArgRegs) {
		return errors.Wrapf(ErrTooManyArguments, "%s takes %d parameters, %s has %d argument registers",
			decl.Name, len(proc.Params), cg.target.Name, len(cg.target.ArgRegs))
	}

	cg.frame = newFrame(proc, cg.target)
	cg.scope = make(map[string]string, len(enclosing)+len(proc.Params))
	for name, slot := range enclosing {
		cg.scope[name] = slot
	}
	log.WithFields(log.Fields{"procedure": decl.Name, "frame": cg.frame.Size}).Debug("stack frame sized")

	cg.out.WriteByte('\n')
	cg.label(procLabel(decl.Name))
	cg.line("push rbp")
	cg.line("mov rbp, rsp")
	cg.line("sub rsp, %d", cg.frame.Size)

	if len(proc.Params) > 0 {
		cg.comment("move the inputs to stack addresses")
	}
	for i, param := range proc.Params {
		slot, err := cg.frame.Alloc()
		if err != nil {
			return err
		}
		cg.scope[param.Name] = slot
		cg.line("mov %s, %s", slot, cg.target.ArgRegs[i])
	}
	cg.line("xor eax, eax")

	if err := cg.genBlock(proc.Body); err != nil {
		return err
	}

	cg.label(epilogueLabel)
	cg.line("leave")
	cg.line("ret")
	return nil
}

// genEntry emits the runtime entry point: it calls the entry procedure and
// prints its result through the formatted-print routine.
func (cg *CodeGen) genEntry(entry string) error {
	decl, ok := cg.unit.Procedure(entry)
	if !ok {
		return errors.Errorf("entry procedure %q is not defined", entry)
	}
	if len(decl.Proc.Params) > 0 {
		log.WithField("procedure", entry).Warn("entry procedure takes parameters, they are left undefined")
	}
	regs := cg.target.ArgRegs

	cg.out.WriteByte('\n')
	cg.label(entrySymbol)
	cg.line("push rbp")
	cg.line("mov rbp, rsp")
	if shadow := alignUp(cg.target.ShadowSpace, cg.target.StackAlign); shadow > 0 {
		cg.line("sub rsp, %d", shadow)
	}
	cg.line("call %s", procLabel(entry))
	cg.comment("print the result of %s", entry)
	cg.line("lea %s, [%s]", regs[0], formatLabel)
	cg.line("mov %s, %s", regs[1], accumulator)
	cg.line("xor eax, eax")
	cg.line("call %s", cg.target.PrintSymbol)
	cg.line("xor eax, eax")
	cg.line("leave")
	cg.line("ret")
	return nil
}

func (cg *CodeGen) programHeader() {
	cg.out.WriteString("bits 64\n")
	cg.out.WriteString("default rel\n")
	cg.out.WriteString("segment .text\n")
	fmt.Fprintf(&cg.out, "global %s\n", entrySymbol)
	fmt.Fprintf(&cg.out, "extern %s\n", cg.target.ExitSymbol)
	fmt.Fprintf(&cg.out, "extern %s\n", cg.target.PrintSymbol)
}

func (cg *CodeGen) dataSegment() {
	cg.out.WriteString("\nsegment .data\n")
	cg.line("%s db \"%%lld\", %s, 0", formatLabel, cg.target.Newline)
	for i, s := range cg.strList {
		cg.line("str%d db %s", i, nasmString(s))
	}
	if cg.target.Trailer != "" {
		cg.out.WriteString("\n" + cg.target.Trailer)
	}
}

// Generate emits a complete assembly program for a flattened tree. Any
// ParseError in the tree makes it fail without producing output.
func Generate(root *Block, u *Unit) (string, error) {
	if err := rejectParseErrors(root); err != nil {
		return "", err
	}
	if err := u.declareProcedures(root); err != nil {
		return "", err
	}
	if err := u.resolveCalls(); err != nil {
		return "", err
	}
	used := u.reachable(u.Entry)
	for _, name := range u.order {
		if !used[name] {
			log.WithField("procedure", name).Debugf("never called from %s", u.Entry)
		}
	}

	cg := newCodeGen(u)
	cg.programHeader()

	for _, s := range root.Stmts {
		decl := s.(*ProcDecl)
		if u.procs[decl.Name] != decl {
			continue // superseded by a later definition
		}
		if err := cg.genProcedure(decl, map[string]string{}); err != nil {
			return "", errors.Wrapf(err, "procedure %s", decl.Name)
		}
	}

	if err := cg.genEntry(u.Entry); err != nil {
		return "", err
	}
	cg.dataSegment()
	return cg.out.String(), nil
}

// rejectParseErrors returns the first ParseError under root.
func rejectParseErrors(root *Block) error {
	var first *ParseError
	Walk(root, func(n Node) bool {
		if e, ok := n.(*ParseError); ok && first == nil {
			first = e
		}
		return first == nil
	})
	if first != nil {
		return parseErrorf(first)
	}
	return nil
}

func parseErrorf(e *ParseError) error {
	return errors.Wrapf(ErrParse, "%s (offset %d)", e.Message, e.Offset)
}

// nasmFloat renders v as a NASM floating-point constant, which needs a
// decimal point.
func nasmFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// nasmString renders s as a NUL-terminated db operand list. Printable ASCII
// is quoted, every other byte is written as a number.
func nasmString(s string) string {
	var parts []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			parts = append(parts, `"`+run.String()+`"`)
			run.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7f && c != '"' {
			run.WriteByte(c)
			continue
		}
		flush()
		parts = append(parts, strconv.Itoa(int(c)))
	}
	flush()
	parts = append(parts, "0")
	return strings.Join(parts, ", ")
}
