// Package rules loads ordered ownership rules from a gitignore-like rule
// file and evaluates filesystem entries against them with first-match-wins
// semantics. Every pattern is syntax-checked and every role reference is
// resolved before the table is usable; a file with any invalid line
// produces no table at all.
package rules
