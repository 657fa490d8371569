// Package compiler is a single-pass C-minus compiler: a table-driven LL(1)
// parser whose grammar carries semantic action markers, fused with a code
// generator that emits four-field instructions for the vm package.
//
// Pipeline: C-minus source → Lexer → Parser (table lookups + actions) →
// CodeGen (symbol table, evaluation stack, backpatching) → instruction table
package compiler
