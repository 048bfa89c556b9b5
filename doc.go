// Package vgtpl implements the scanner, parser, node model and filter
// pipeline of the Very Good template compiler: a filesystem-driven
// template language interleaving literal content with variable
// substitutions, block/extends inheritance, file inclusion,
// conditionals, and directory-driven iteration.
//
// vgtpl only covers the lexical and syntactic layers (Scanner, Parser,
// Node, Filter). Path resolution and caching live in vgtpl/loader,
// scope binding lives in vgtpl/env, and the semantic evaluation pass
// lives in vgtpl/eval.
package vgtpl
