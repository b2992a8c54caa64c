package compiler

import "testing"

func procedureOf(t *testing.T, src string) *Procedure {
	t.Helper()
	root := parseSource(t, src)
	if errs := ParseErrors(root, src); errs != nil {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	decl, ok := root.Stmts[0].(*ProcDecl)
	if !ok {
		t.Fatalf("first statement is %T, want *ProcDecl", root.Stmts[0])
	}
	return decl.Proc
}

func TestFrameSize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		win64 int
		sysv  int
	}{
		{
			name:  "Empty",
			input: "p :: () { }",
			win64: 32,
			sysv:  0,
		},
		{
			name:  "Params And Locals",
			input: "p :: (a: int, b: int) { x: int; y: int; z: int; }",
			win64: 80, // 32 + 16 + 24 = 72
			sysv:  48, // 40
		},
		{
			name:  "Already Aligned",
			input: "p :: (a: int, b: int) { x: int; y: int; }",
			win64: 64,
			sysv:  32,
		},
		{
			name:  "Nested Declarations",
			input: "p :: () { x: int; while (1) { y: int; if (1) { z: int; } } { w: int; } }",
			win64: 64,
			sysv:  32,
		},
		{
			name:  "Type Names Are Ignored",
			input: "p :: (s: string) { f: float; }",
			win64: 48,
			sysv:  16,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := procedureOf(t, tt.input)
			if got := FrameSize(proc, Win64); got != tt.win64 {
				t.Errorf("FrameSize(win64) = %d, want %d", got, tt.win64)
			}
			if got := FrameSize(proc, SysV); got != tt.sysv {
				t.Errorf("FrameSize(sysv) = %d, want %d", got, tt.sysv)
			}
		})
	}
}

func TestFrameAlloc(t *testing.T) {
	proc := procedureOf(t, "p :: (a: int) { x: int; }")
	f := newFrame(proc, SysV)
	if f.Size != 16 {
		t.Fatalf("Size = %d, want 16", f.Size)
	}

	want := []string{"QWORD [rbp - 8]", "QWORD [rbp - 16]"}
	for i, w := range want {
		slot, err := f.Alloc()
		if err != nil {
			t.Fatalf("Alloc() %d error = %v", i, err)
		}
		if slot != w {
			t.Errorf("Alloc() %d = %q, want %q", i, slot, w)
		}
	}
	if _, err := f.Alloc(); err == nil {
		t.Error("expected an error once every slot is taken")
	}
}

func TestFrameAllocStaysAboveShadowSpace(t *testing.T) {
	proc := procedureOf(t, "p :: (a: int, b: int) { x: int; y: int; z: int; }")
	f := newFrame(proc, Win64)
	var last string
	for i := 0; i < 5; i++ {
		slot, err := f.Alloc()
		if err != nil {
			t.Fatalf("Alloc() %d error = %v", i, err)
		}
		last = slot
	}
	// 40 bytes of slots, then at least 32 bytes of shadow space above rsp.
	if last != "QWORD [rbp - 40]" {
		t.Errorf("last slot = %q", last)
	}
	if f.Size-40 < Win64.ShadowSpace {
		t.Errorf("frame of %d leaves less than %d bytes of shadow space", f.Size, Win64.ShadowSpace)
	}
}

func TestTargetByName(t *testing.T) {
	tests := []struct {
		name string
		want *Target
	}{
		{"win64", Win64},
		{"Windows", Win64},
		{"sysv", SysV},
		{"elf64", SysV},
		{"linux", SysV},
	}
	for _, tt := range tests {
		got, err := TargetByName(tt.name)
		if err != nil {
			t.Errorf("TargetByName(%q) error = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("TargetByName(%q) = %s, want %s", tt.name, got.Name, tt.want.Name)
		}
	}
	if _, err := TargetByName("arm64"); err == nil {
		t.Error("expected an error for an unknown target")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct{ n, align, want int }{
		{0, 16, 0},
		{1, 16, 16},
		{16, 16, 16},
		{72, 16, 80},
		{5, 1, 5},
		{5, 0, 5},
	}
	for _, tt := range tests {
		if got := alignUp(tt.n, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.align, got, tt.want)
		}
	}
}
