package compiler

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// declareProcedures fills the procedure table from the top-level
// declarations of root. A redefinition replaces the earlier one.
func (u *Unit) declareProcedures(root *Block) error {
	for _, stmt := range root.Stmts {
		decl, ok := stmt.(*ProcDecl)
		if !ok {
			return errors.Errorf("only procedure declarations are allowed at top level, found %s %s", stmt.Kind(), stmt)
		}
		if !isLabel(decl.Name) {
			return errors.Errorf("procedure name %q cannot be used as an assembler label", decl.Name)
		}
		if _, dup := u.procs[decl.Name]; dup {
			log.WithField("procedure", decl.Name).Warn("procedure redefined, the last definition wins")
		} else {
			u.order = append(u.order, decl.Name)
		}
		u.procs[decl.Name] = decl
	}
	return nil
}

// resolveCalls checks every call site against the procedure table. A call
// to an unknown name is fatal. An argument count that differs from the
// callee's parameter count is only logged: the callee reads whatever its
// parameter registers hold.
func (u *Unit) resolveCalls() error {
	for _, name := range u.order {
		var calls []*ProcCall
		findCallsStmt(u.procs[name].Proc.Body, &calls)
		for _, call := range calls {
			callee, ok := u.procs[call.Name]
			if !ok {
				return errors.Wrapf(ErrUndefinedProcedure, "%s calls %q", name, call.Name)
			}
			if len(call.Args) != len(callee.Proc.Params) {
				log.WithFields(log.Fields{
					"procedure": name,
					"callee":    call.Name,
					"arguments": len(call.Args),
					"params":    len(callee.Proc.Params),
				}).Warn("argument count does not match the callee's parameters")
			}
		}
	}
	return nil
}

// reachable returns the procedures transitively called from entry.
func (u *Unit) reachable(entry string) map[string]bool {
	seen := make(map[string]bool)
	var worklist []string

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			worklist = append(worklist, name)
		}
	}
	add(entry)

	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]

		decl, ok := u.procs[curr]
		if !ok {
			continue
		}
		var calls []*ProcCall
		findCallsStmt(decl.Proc.Body, &calls)
		for _, call := range calls {
			add(call.Name)
		}
	}
	return seen
}

// findCallsExpr appends the call sites in an expression, outermost first.
func findCallsExpr(e Expr, calls *[]*ProcCall) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ProcCall:
		*calls = append(*calls, n)
		for _, arg := range n.Args {
			findCallsExpr(arg, calls)
		}
	case *BinaryOp:
		findCallsExpr(n.Left, calls)
		findCallsExpr(n.Right, calls)
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral, *VarRef, *ParseError:
	}
}

// findCallsStmt appends the call sites in a statement.
func findCallsStmt(s Stmt, calls *[]*ProcCall) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ProcCall:
		findCallsExpr(n, calls)
	case *Assignment:
		findCallsExpr(n.Value, calls)
	case *ReturnStmt:
		findCallsExpr(n.Value, calls)
	case *Block:
		for _, child := range n.Stmts {
			findCallsStmt(child, calls)
		}
	case *WhileStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Body, calls)
	case *IfStmt:
		findCallsExpr(n.Cond, calls)
		findCallsStmt(n.Body, calls)
	case *VarDecl, *ProcDecl, *ParseError:
		// nested declarations are rejected by the code generator
	}
}

// isLabel reports whether name is usable as a NASM label suffix.
func isLabel(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
