// Package compiler provides the lexer, parser, flattening pass and code
// generator for the gra language, targeting NASM x86-64 assembly.
//
// Pipeline: source → Lex → Parse → Flatten → Generate → assembly text
package compiler
