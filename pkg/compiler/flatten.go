package compiler

// tempType is the declared type of every generated temporary.
const tempType = "int"

// Flatten rewrites every block under root so that each expression is flat:
// an atom, or a single binary operator or call whose operands are atoms.
// Nested operators and calls are bound to generated temporaries declared
// immediately before the statement that consumes them. Statement lists are
// replaced in place. Running Flatten on a flat tree changes nothing.
func (u *Unit) Flatten(root *Block) {
	u.flattenBlock(root)
}

func (u *Unit) flattenBlock(b *Block) {
	out := make([]Stmt, 0, len(b.Stmts))
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *Assignment:
			pre, value := u.flattenTop(s.Value)
			s.Value = value
			out = append(out, pre...)
			out = append(out, s)

		case *ReturnStmt:
			pre, value := u.flattenTop(s.Value)
			s.Value = value
			out = append(out, pre...)
			out = append(out, s)

		case *ProcCall:
			pre := u.flattenArgs(s)
			out = append(out, pre...)
			out = append(out, s)

		case *WhileStmt:
			u.flattenBlock(s.Body)
			pre, cond := u.flattenTop(s.Cond)
			s.Cond = cond
			out = append(out, pre...)
			// The condition is re-evaluated at the end of every iteration.
			for _, p := range pre {
				if a, ok := p.(*Assignment); ok {
					s.Body.Stmts = append(s.Body.Stmts, &Assignment{Name: a.Name, Value: cloneExpr(a.Value)})
				}
			}
			out = append(out, s)

		case *IfStmt:
			u.flattenBlock(s.Body)
			pre, cond := u.flattenTop(s.Cond)
			s.Cond = cond
			out = append(out, pre...)
			out = append(out, s)

		case *Block:
			u.flattenBlock(s)
			out = append(out, s)

		case *ProcDecl:
			u.flattenBlock(s.Proc.Body)
			out = append(out, s)

		case *VarDecl, *ParseError:
			out = append(out, s)
		}
	}
	b.Stmts = out
}

// flattenTop flattens an expression in statement position, where one
// operator or call may remain.
func (u *Unit) flattenTop(e Expr) ([]Stmt, Expr) {
	switch n := e.(type) {
	case *BinaryOp:
		pre, left := u.atomize(n.Left)
		more, right := u.atomize(n.Right)
		n.Left, n.Right = left, right
		return append(pre, more...), n
	case *ProcCall:
		return u.flattenArgs(n), n
	}
	return nil, e
}

// flattenArgs replaces every non-atom argument of call with a temporary.
func (u *Unit) flattenArgs(call *ProcCall) []Stmt {
	var pre []Stmt
	for i, arg := range call.Args {
		more, atom := u.atomize(arg)
		pre = append(pre, more...)
		call.Args[i] = atom
	}
	return pre
}

// atomize returns e unchanged when it is an atom, otherwise the statements
// that compute it into a new temporary and a reference to that temporary.
func (u *Unit) atomize(e Expr) ([]Stmt, Expr) {
	if isAtom(e) {
		return nil, e
	}
	if _, ok := e.(*ParseError); ok {
		return nil, e
	}
	pre, flat := u.flattenTop(e)
	name := u.newTemp()
	pre = append(pre,
		&VarDecl{Name: name, TypeName: tempType},
		&Assignment{Name: name, Value: flat},
	)
	return pre, &VarRef{Name: name}
}
