package compiler

import "fmt"

// slotSize is the size of every parameter and local. Declared type names do
// not change it.
const slotSize = 8

// FrameSize returns the bytes a procedure reserves below its frame base:
// the target's shadow space plus one slot per parameter and per declaration
// anywhere in its body, rounded up to the target's stack alignment.
// Declarations in bodies that never run are still counted.
func FrameSize(proc *Procedure, target *Target) int {
	size := target.ShadowSpace
	size += slotSize * len(proc.Params)
	size += slotSize * countDeclarations(proc.Body)
	return alignUp(size, target.StackAlign)
}

// countDeclarations recursively counts VarDecl statements in b, including
// the bodies of while and if statements and nested blocks.
func countDeclarations(b *Block) int {
	count := 0
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *VarDecl:
			count++
		case *WhileStmt:
			count += countDeclarations(s.Body)
		case *IfStmt:
			count += countDeclarations(s.Body)
		case *Block:
			count += countDeclarations(s)
		}
	}
	return count
}

// Frame hands out stack slots for one procedure. Slots are addressed from
// the frame base downwards: [rbp - 8], [rbp - 16], ... The shadow space
// sits below the last slot at the bottom of the frame.
type Frame struct {
	Size  int
	slots int
	limit int
}

func newFrame(proc *Procedure, target *Target) *Frame {
	size := FrameSize(proc, target)
	return &Frame{Size: size, limit: (size - target.ShadowSpace) / slotSize}
}

// Alloc returns the memory operand of the next free slot.
func (f *Frame) Alloc() (string, error) {
	if f.slots >= f.limit {
		return "", fmt.Errorf("frame of %d bytes has no room for slot %d", f.Size, f.slots+1)
	}
	f.slots++
	return fmt.Sprintf("QWORD [rbp - %d]", f.slots*slotSize), nil
}
