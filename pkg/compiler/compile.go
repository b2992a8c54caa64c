package compiler

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// DefaultEntry is the procedure whose result the program prints.
const DefaultEntry = "main"

// Options configures one compilation.
type Options struct {
	Target *Target
	Entry  string
}

// DefaultOptions targets Win64 with "main" as the entry procedure.
func DefaultOptions() Options {
	return Options{Target: Win64, Entry: DefaultEntry}
}

// Unit is the state of one compilation: the procedure table and the
// counters for generated temporaries and labels. Nothing in it is shared
// between compilations.
type Unit struct {
	Options
	procs  map[string]*ProcDecl
	order  []string // procedure names in first-declaration order
	temps  int
	labels int
}

// NewUnit starts a compilation. Zero fields of opts take their defaults.
func NewUnit(opts Options) *Unit {
	def := DefaultOptions()
	if opts.Target == nil {
		opts.Target = def.Target
	}
	if opts.Entry == "" {
		opts.Entry = def.Entry
	}
	return &Unit{Options: opts, procs: make(map[string]*ProcDecl)}
}

// Procedure looks a declaration up in the procedure table.
func (u *Unit) Procedure(name string) (*ProcDecl, bool) {
	decl, ok := u.procs[name]
	return decl, ok
}

func (u *Unit) newTemp() string {
	name := fmt.Sprintf("tmp.%d", u.temps)
	u.temps++
	return name
}

func (u *Unit) newLabel() int {
	id := u.labels
	u.labels++
	return id
}

// Result carries every stage's output of a compilation.
type Result struct {
	Tokens   []Token
	AST      *Block
	Assembly string
}

// stage logs how long a pipeline stage took.
func stage(name string, start time.Time) {
	log.Debugf("%s took %s", name, time.Since(start))
}

// Compile runs the whole pipeline over src. Parse errors are reported
// together once the file has been parsed; the returned Result then still
// holds the tokens and the tree.
func Compile(src string, opts Options) (*Result, error) {
	u := NewUnit(opts)
	res := &Result{}

	start := time.Now()
	tokens, err := Lex(src)
	res.Tokens = tokens
	if err != nil {
		return res, errors.Wrap(err, "lex")
	}
	stage("lex", start)

	start = time.Now()
	res.AST = Parse(tokens, src)
	stage("parse", start)
	if errs := ParseErrors(res.AST, src); errs != nil {
		return res, errs
	}

	start = time.Now()
	u.Flatten(res.AST)
	stage("flatten", start)

	start = time.Now()
	res.Assembly, err = Generate(res.AST, u)
	if err != nil {
		return res, errors.Wrap(err, "codegen")
	}
	stage("codegen", start)
	return res, nil
}
