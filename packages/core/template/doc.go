// Package template implements the Jinja-style text templates that
// tplspec test files are written in.
//
// Source is split by the Lexer into text and tag tokens, compiled by the
// Parser into Nodes and Exprs, and rendered against a Context scope chain.
// Statements beyond the built-in if, for, set, include and raw are added
// with Environment.RegisterTag; `is` tests resolve through the
// environment's predicate registry.
package template
