// Package compiler turns a schema written in CUE (or JSON/YAML loaded
// through CUE) into a validated dsl.Tree.
//
// Compilation runs in two passes. The first declares every collection
// key, output name, tag and pick alias so that references may point
// forward in the file. The second builds the node tree for each item
// template, parsing reference expressions against those declarations.
// A final pass checks self references and condition fields against the
// templates they read.
//
// Errors are collected rather than returned on the first failure; the
// result is an ErrorList of *CompileError values carrying the CUE source
// position where one is known.
package compiler
