package compiler

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrParse is matched by every ParseErrorList.
	ErrParse = errors.New("parse error")
	// ErrTooManyArguments is returned when a call needs more argument
	// registers than the target provides.
	ErrTooManyArguments = errors.New("too many arguments for the target's argument registers")
	// ErrUndefinedProcedure is returned for a call to a name with no
	// top-level declaration.
	ErrUndefinedProcedure = errors.New("undefined procedure")
	// ErrUndefinedVariable is returned for a read or write of a name with no
	// declaration in the enclosing procedure.
	ErrUndefinedVariable = errors.New("undefined variable")
	// ErrNotFlat is returned when the code generator meets an operand the
	// flattening pass should have bound to a temporary.
	ErrNotFlat = errors.New("expression is not flat")
)

// Position converts a byte offset into a 1-based line and column.
func Position(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line = 1 + strings.Count(src[:offset], "\n")
	col = offset - strings.LastIndexByte(src[:offset], '\n')
	return line, col
}

// ParseErrorList is every *ParseError found in a tree, in source order.
type ParseErrorList struct {
	Src    string
	Errors []*ParseError
}

// ParseErrors collects the error nodes under root. It returns nil when the
// tree is clean.
func ParseErrors(root Node, src string) *ParseErrorList {
	var found []*ParseError
	Walk(root, func(n Node) bool {
		if e, ok := n.(*ParseError); ok {
			found = append(found, e)
		}
		return true
	})
	if len(found) == 0 {
		return nil
	}
	return &ParseErrorList{Src: src, Errors: found}
}

func (l *ParseErrorList) Error() string {
	var sb strings.Builder
	for i, e := range l.Errors {
		if i > 0 {
			sb.WriteString("\n")
		}
		line, col := Position(l.Src, e.Offset)
		fmt.Fprintf(&sb, "%d:%d: %s", line, col, e.Message)
	}
	return sb.String()
}

// Is lets errors.Is(err, ErrParse) match a list.
func (l *ParseErrorList) Is(target error) bool {
	return target == ErrParse
}
