package compiler

import (
	"testing"

	"github.com/sanity-io/litter"
)

func flattenSource(t *testing.T, src string) (*Block, *Unit) {
	t.Helper()
	root := parseSource(t, src)
	if errs := ParseErrors(root, src); errs != nil {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	u := NewUnit(Options{})
	u.Flatten(root)
	return root, u
}

// isFlatExpr reports whether e is an atom, or one operator or call over atoms.
func isFlatExpr(e Expr) bool {
	switch n := e.(type) {
	case *BinaryOp:
		return isAtom(n.Left) && isAtom(n.Right)
	case *ProcCall:
		for _, a := range n.Args {
			if !isAtom(a) {
				return false
			}
		}
		return true
	}
	return isAtom(e)
}

func assertFlat(t *testing.T, root *Block) {
	t.Helper()
	Walk(root, func(n Node) bool {
		var e Expr
		switch s := n.(type) {
		case *Assignment:
			e = s.Value
		case *ReturnStmt:
			e = s.Value
		case *WhileStmt:
			e = s.Cond
		case *IfStmt:
			e = s.Cond
		case *Block:
			for _, stmt := range s.Stmts {
				if call, ok := stmt.(*ProcCall); ok && !isFlatExpr(call) {
					t.Errorf("call statement %s is not flat", call)
				}
			}
		}
		if e != nil && !isFlatExpr(e) {
			t.Errorf("%s: %s is not flat", n.Kind(), e)
		}
		return true
	})
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "Already Flat",
			input: "x = a + b; f(1, y);",
			want:  []string{"x = (a + b)", "f(1, y)"},
		},
		{
			name:  "Nested Operator",
			input: "x = a + b * c;",
			want:  []string{"tmp.0: int", "tmp.0 = (b * c)", "x = (a + tmp.0)"},
		},
		{
			name:  "Deep Chain",
			input: "x = a + b + c + d;",
			want: []string{
				"tmp.0: int", "tmp.0 = (c + d)",
				"tmp.1: int", "tmp.1 = (b + tmp.0)",
				"x = (a + tmp.1)",
			},
		},
		{
			name:  "Call Arguments Left To Right",
			input: "f(1 + 2, g(3));",
			want: []string{
				"tmp.0: int", "tmp.0 = (1 + 2)",
				"tmp.1: int", "tmp.1 = g(3)",
				"f(tmp.0, tmp.1)",
			},
		},
		{
			name:  "Nested Calls",
			input: "x = f(g(h(1)));",
			want: []string{
				"tmp.0: int", "tmp.0 = h(1)",
				"tmp.1: int", "tmp.1 = g(tmp.0)",
				"x = f(tmp.1)",
			},
		},
		{
			name:  "Call As Operand",
			input: "<- a * f(b);",
			want:  []string{"tmp.0: int", "tmp.0 = f(b)", "<- (a * tmp.0)"},
		},
		{
			name:  "While Condition",
			input: "while (i < n + 1) { i = i + 1; }",
			want: []string{
				"tmp.0: int", "tmp.0 = (n + 1)",
				"while ((i < tmp.0)) { i = (i + 1); tmp.0 = (n + 1) }",
			},
		},
		{
			name:  "If Condition",
			input: "if (f(g(1))) { x = 1; }",
			want:  []string{"tmp.0: int", "tmp.0 = g(1)", "if (f(tmp.0)) { x = 1 }"},
		},
		{
			name:  "Procedure Body",
			input: "main :: () { <- 1 + 2 * 3; }",
			want:  []string{"main :: () { tmp.0: int; tmp.0 = (2 * 3); <- (1 + tmp.0) }"},
		},
		{
			name:  "Nested Block",
			input: "{ x = 1 - 2 - 3; }",
			want:  []string{"{ tmp.0: int; tmp.0 = (2 - 3); x = (1 - tmp.0) }"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := flattenSource(t, tt.input)
			if len(root.Stmts) != len(tt.want) {
				t.Fatalf("got %d statements, want %d:\n%s", len(root.Stmts), len(tt.want), litter.Sdump(root))
			}
			for i, s := range root.Stmts {
				if s.String() != tt.want[i] {
					t.Errorf("statement %d = %q, want %q", i, s.String(), tt.want[i])
				}
			}
			assertFlat(t, root)
		})
	}
}

func TestFlattenIdempotent(t *testing.T) {
	src := `main :: () {
	x: int;
	x = f(1 + 2, g(3 * 4)) - 5;
	while (x < g(x + 1)) {
		x = x + h(x, 2 * x);
	}
	<- x;
}`
	root, u := flattenSource(t, src)
	assertFlat(t, root)
	once := root.String()
	temps := u.temps

	u.Flatten(root)
	if root.String() != once {
		t.Errorf("second Flatten changed the tree:\n%s\nwant\n%s", root, once)
	}
	if u.temps != temps {
		t.Errorf("second Flatten allocated %d temporaries", u.temps-temps)
	}
}

func TestFlattenWhileBodyIsNotShared(t *testing.T) {
	root, _ := flattenSource(t, "while (i < n + 1) { }")
	before := root.Stmts[1].(*Assignment)
	loop := root.Stmts[2].(*WhileStmt)
	after := loop.Body.Stmts[len(loop.Body.Stmts)-1].(*Assignment)
	if before.Value == after.Value {
		t.Error("loop-end recomputation shares its value node with the initial computation")
	}
	if before.String() != after.String() {
		t.Errorf("recomputation %q differs from %q", after, before)
	}
}

func TestFlattenTemporariesAreUnique(t *testing.T) {
	root, _ := flattenSource(t, "a :: () { <- 1 + 2 * 3; } b :: () { <- 1 + 2 * 3; }")
	seen := make(map[string]bool)
	Walk(root, func(n Node) bool {
		if d, ok := n.(*VarDecl); ok {
			if seen[d.Name] {
				t.Errorf("temporary %s declared twice", d.Name)
			}
			seen[d.Name] = true
		}
		return true
	})
	if len(seen) != 2 {
		t.Errorf("got %d temporaries, want 2", len(seen))
	}
}
