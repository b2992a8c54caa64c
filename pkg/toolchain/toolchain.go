// Package toolchain turns emitted assembly into an executable by invoking an
// external assembler and linker, and runs the result.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"gracc/pkg/compiler"
	"gracc/pkg/utils"

	pkgErrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Runner executes one external command. Output written by the command to
// stdout goes to stdout when it is non-nil.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout io.Writer) error
}

// CommandError is a command that could not be started or exited non-zero.
type CommandError struct {
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Command, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var output bytes.Buffer
	if stdout != nil {
		cmd.Stdout = stdout
	} else {
		cmd.Stdout = &output
	}
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		return &CommandError{Command: strings.Join(append([]string{name}, args...), " "), Output: output.String(), Err: err}
	}
	return nil
}

// Config selects the external tools for a target.
type Config struct {
	Target    *compiler.Target
	Assembler string // default "nasm"
	Linker    string // default "link" for win64, "cc" otherwise
}

// Toolchain builds and runs programs for one target.
type Toolchain struct {
	cfg    Config
	runner Runner
}

// New fills in defaults for the zero fields of cfg. A nil runner uses
// ExecRunner.
func New(cfg Config, runner Runner) *Toolchain {
	if cfg.Target == nil {
		cfg.Target = compiler.Win64
	}
	if cfg.Assembler == "" {
		cfg.Assembler = "nasm"
	}
	if cfg.Linker == "" {
		if isWindows(cfg.Target) {
			cfg.Linker = "link"
		} else {
			cfg.Linker = "cc"
		}
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Toolchain{cfg: cfg, runner: runner}
}

func isWindows(t *compiler.Target) bool {
	return t.ObjectFormat == compiler.Win64.ObjectFormat
}

// Paths returns the artifacts a build to output produces.
func (tc *Toolchain) Paths(output string) (utils.Artifacts, error) {
	if isWindows(tc.cfg.Target) {
		return utils.ArtifactPaths(output, ".obj", ".exe")
	}
	return utils.ArtifactPaths(output, ".o", "")
}

// WriteAssembly writes the assembly text next to output and returns the
// artifact paths.
func (tc *Toolchain) WriteAssembly(asm, output string) (utils.Artifacts, error) {
	paths, err := tc.Paths(output)
	if err != nil {
		return paths, pkgErrors.Wrapf(err, "resolving output %q", output)
	}
	if err := os.WriteFile(paths.Asm, []byte(asm), 0o644); err != nil {
		return paths, pkgErrors.Wrapf(err, "writing %s", paths.Asm)
	}
	return paths, nil
}

// Build writes asm, assembles it and links the object into an executable.
// It returns the executable's path. A failing step is a build failure; no
// guarantee is made about artifacts left behind.
func (tc *Toolchain) Build(ctx context.Context, asm, output string) (string, error) {
	paths, err := tc.WriteAssembly(asm, output)
	if err != nil {
		return "", err
	}

	assemble := []string{"-f", tc.cfg.Target.ObjectFormat, "-o", paths.Object, paths.Asm}
	log.Debugf("assembling: %s %s", tc.cfg.Assembler, strings.Join(assemble, " "))
	if err := tc.runner.Run(ctx, tc.cfg.Assembler, assemble, nil); err != nil {
		return "", pkgErrors.Wrap(err, "assemble")
	}

	link := tc.linkArgs(paths)
	log.Debugf("linking: %s %s", tc.cfg.Linker, strings.Join(link, " "))
	if err := tc.runner.Run(ctx, tc.cfg.Linker, link, nil); err != nil {
		return "", pkgErrors.Wrap(err, "link")
	}
	return paths.Exe, nil
}

func (tc *Toolchain) linkArgs(paths utils.Artifacts) []string {
	if isWindows(tc.cfg.Target) {
		return []string{
			paths.Object,
			"/subsystem:console",
			"/out:" + paths.Exe,
			"kernel32.lib",
			"legacy_stdio_definitions.lib",
			"msvcrt.lib",
		}
	}
	return []string{"-no-pie", "-o", paths.Exe, paths.Object}
}

// Run executes a built program, copying its output to stdout, and logs how
// long it ran.
func (tc *Toolchain) Run(ctx context.Context, exe string, stdout io.Writer) error {
	start := time.Now()
	err := tc.runner.Run(ctx, exe, nil, stdout)
	log.WithField("duration", time.Since(start)).Infof("%s finished", exe)
	if err != nil {
		return pkgErrors.Wrap(err, "run")
	}
	return nil
}
