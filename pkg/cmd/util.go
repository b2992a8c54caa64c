package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gracc/pkg/compiler"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	colourRed   = "\x1b[31m"
	colourReset = "\x1b[0m"
)

// Get an expected flag, or panic if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		panic(err)
	}

	return r
}

// Get an expected string flag, or panic if an error arises.
func getString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		panic(err)
	}

	return r
}

// reportError prints err, highlighting the source position of lex and parse
// errors.
func reportError(w io.Writer, filename, src string, err error) {
	colour := isTerminal(w)

	var lexErr *compiler.LexError
	var parseErrs *compiler.ParseErrorList

	switch {
	case errors.As(err, &lexErr):
		printSyntaxError(w, filename, lexErr.Message, lexErr.Offset, lexErr.Offset+1, src, colour)
	case errors.As(err, &parseErrs):
		for _, e := range parseErrs.Errors {
			printSyntaxError(w, filename, e.Message, e.Offset, e.Offset+1, src, colour)
		}
	default:
		fmt.Fprintf(w, "%s: %v\n", filename, err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(w io.Writer, filename string, msg string, start int, end int, text string, colour bool) {
	line, offset, num := findEnclosingLine(start, text)
	// Print error + line number
	fmt.Fprintf(w, "%s:%d: %s\n", filename, num, msg)
	// Print line
	fmt.Fprintln(w, line)
	// Print indent, keeping tabs so the caret lines up
	var indent strings.Builder
	for i := offset; i < start && i < offset+len(line); i++ {
		if text[i] == '\t' {
			indent.WriteByte('\t')
		} else {
			indent.WriteByte(' ')
		}
	}
	fmt.Fprint(w, indent.String())
	// Print highlight
	highlight := strings.Repeat("^", max(end-start, 1))
	if colour {
		highlight = colourRed + highlight + colourReset
	}
	fmt.Fprintln(w, highlight)
}

// Determine the enclosing line for the given index in a string, returning the
// line, the offset where it starts and its 1-based number. An index at the
// end of the text belongs to the last line.
func findEnclosingLine(index int, text string) (string, int, int) {
	if index > len(text) {
		index = len(text)
	}
	start := strings.LastIndexByte(text[:index], '\n') + 1
	end := strings.IndexByte(text[index:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += index
	}
	num := 1 + strings.Count(text[:start], "\n")

	return text[start:end], start, num
}
