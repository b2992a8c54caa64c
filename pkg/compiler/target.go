package compiler

import (
	"fmt"
	"sort"
	"strings"
)

// Target describes the calling convention and object format the generated
// assembly must agree with.
type Target struct {
	Name         string
	ObjectFormat string   // nasm -f argument
	ShadowSpace  int      // bytes reserved below the frame for every call
	StackAlign   int      // required rsp alignment at a call
	ArgRegs      []string // integer argument registers, in order
	ExitSymbol   string   // runtime process-exit routine
	PrintSymbol  string   // runtime formatted-print routine
	Newline      string   // bytes appended to the output template
	// Trailer is appended verbatim after the data segment.
	Trailer string
}

// Win64 is the Microsoft x64 convention linked against the MSVC runtime.
var Win64 = &Target{
	Name:         "win64",
	ObjectFormat: "win64",
	ShadowSpace:  32,
	StackAlign:   16,
	ArgRegs:      []string{"rcx", "rdx", "r8", "r9"},
	ExitSymbol:   "ExitProcess",
	PrintSymbol:  "printf",
	Newline:      "0xd, 0xa",
}

// SysV is the System V AMD64 convention linked against the C runtime.
var SysV = &Target{
	Name:         "sysv",
	ObjectFormat: "elf64",
	ShadowSpace:  0,
	StackAlign:   16,
	ArgRegs:      []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"},
	ExitSymbol:   "exit",
	PrintSymbol:  "printf",
	Newline:      "0xa",
	Trailer:      "section .note.GNU-stack noalloc noexec nowrite progbits\n",
}

var targets = map[string]*Target{
	Win64.Name: Win64,
	SysV.Name:  SysV,
	"elf64":    SysV,
	"linux":    SysV,
	"windows":  Win64,
}

// TargetByName resolves a target name as accepted on the command line.
func TargetByName(name string) (*Target, error) {
	if t, ok := targets[strings.ToLower(name)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("unknown target %q (known: %s)", name, strings.Join(TargetNames(), ", "))
}

// TargetNames lists every accepted target name.
func TargetNames() []string {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// alignUp rounds n up to a multiple of align.
func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		n += align - r
	}
	return n
}
