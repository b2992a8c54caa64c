// Package cmd is the gracc command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"gracc/pkg/compiler"
	"gracc/pkg/toolchain"
	"gracc/pkg/utils"

	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// errReported is returned once diagnostics have already been printed.
var errReported = errors.New("compilation failed")

// newRootCmd builds the gracc command. External tools run through runner; a
// nil runner executes them for real.
func newRootCmd(runner toolchain.Runner) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gracc [flags] source_file",
		Short: "A compiler for the gra language.",
		Long: `Compile a gra source file to x86-64 NASM assembly, then assemble and link
it into an executable that prints the result of the entry procedure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, args[0], runner)
		},
	}
	rootCmd.Flags().String("target", compiler.Win64.Name, fmt.Sprintf("target ABI %v", compiler.TargetNames()))
	rootCmd.Flags().String("entry", compiler.DefaultEntry, "procedure whose result the program prints")
	rootCmd.Flags().StringP("output", "o", "", "output path without extension (default: source path without extension)")
	rootCmd.Flags().Bool("run", false, "run the executable after building it")
	rootCmd.Flags().BoolP("emit-asm", "S", false, "write the assembly only, skip assembling and linking")
	rootCmd.Flags().String("assembler", "", "assembler to invoke (default \"nasm\")")
	rootCmd.Flags().String("linker", "", "linker to invoke (default \"link\" for win64, \"cc\" otherwise)")
	rootCmd.Flags().Bool("dump-tokens", false, "print the token stream")
	rootCmd.Flags().Bool("dump-ast", false, "print the syntax tree")
	rootCmd.Flags().BoolP("verbose", "v", false, "increase logging verbosity")

	return rootCmd
}

// Execute runs the command line and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	rootCmd := newRootCmd(nil)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func runCompile(cmd *cobra.Command, filename string, runner toolchain.Runner) error {
	if getFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}

	target, err := compiler.TargetByName(getString(cmd, "target"))
	if err != nil {
		return err
	}

	path, _, err := utils.GetPathInfo(filename)
	if err != nil {
		return errors.Wrapf(err, "resolving %s", filename)
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	src := string(bytes)

	opts := compiler.Options{Target: target, Entry: getString(cmd, "entry")}
	res, err := compiler.Compile(src, opts)

	stdout := cmd.OutOrStdout()
	if getFlag(cmd, "dump-tokens") {
		dumpTokens(stdout, res.Tokens, src)
	}
	if getFlag(cmd, "dump-ast") && res.AST != nil {
		fmt.Fprintln(stdout, litter.Options{StripPackageNames: true}.Sdump(res.AST))
	}
	if err != nil {
		reportError(cmd.ErrOrStderr(), filename, src, err)
		return errReported
	}

	output := getString(cmd, "output")
	if output == "" {
		output = utils.OutputBase(path)
	}

	tc := toolchain.New(toolchain.Config{
		Target:    target,
		Assembler: getString(cmd, "assembler"),
		Linker:    getString(cmd, "linker"),
	}, runner)

	if getFlag(cmd, "emit-asm") {
		paths, err := tc.WriteAssembly(res.Assembly, output)
		if err != nil {
			return err
		}
		log.Infof("wrote %s", paths.Asm)
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	exe, err := tc.Build(ctx, res.Assembly, output)
	if err != nil {
		return err
	}
	log.Debugf("built %s", exe)

	if getFlag(cmd, "run") {
		return tc.Run(ctx, exe, stdout)
	}
	return nil
}

func dumpTokens(w io.Writer, tokens []compiler.Token, src string) {
	for _, tok := range tokens {
		if tok.IsTrivia() {
			continue
		}
		fmt.Fprintf(w, "%s %q\n", tok, tok.Text(src))
	}
}
