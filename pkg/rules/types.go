package rules

import (
	"github.com/permtree/permtree/pkg/pattern"
	"github.com/permtree/permtree/pkg/roles"
)

// Kind classifies a filesystem entry during traversal.
type Kind int

const (
	EntryFile Kind = iota
	EntryDir
	EntrySymlink
	EntryOther
)

// Entry is one filesystem object presented to the rule table: its path
// relative to the tree root (directories carry a trailing "/", the root
// itself is "/") and its classification.
type Entry struct {
	RelPath string
	Kind    Kind
}

// Rule is one line of the rule file: a compiled pattern, whether it applies
// to directories or files, and the role to apply. A nil Role is an explicit
// no-op rule: matching it stops evaluation without changing the entry.
type Rule struct {
	Pattern string
	Matcher pattern.Matcher
	DirOnly bool
	Role    *roles.Role
	Line    int
}

// DecisionKind is the outcome of matching one entry against the table.
type DecisionKind int

const (
	DecisionUnmatched DecisionKind = iota
	DecisionApply
	DecisionNoOp
)

// Decision reports which rule, if any, covers an entry.
type Decision struct {
	Kind DecisionKind
	Role *roles.Role
	Rule *Rule
}

// Table is an ordered sequence of validated rules. Order is the only
// priority signal: rules are never merged or reordered by specificity.
type Table struct {
	rules []Rule
}

// Len returns the number of rules in the table.
func (t *Table) Len() int {
	return len(t.rules)
}

// Rules returns the rules in file order.
func (t *Table) Rules() []Rule {
	return t.rules
}

// Match scans the table in order and returns the first rule whose type
// discrimination and pattern both accept the entry. Rules after the first
// match are never consulted, regardless of how specific they are.
func (t *Table) Match(e Entry) Decision {
	isDir := e.Kind == EntryDir
	for i := range t.rules {
		r := &t.rules[i]
		if r.DirOnly != isDir {
			continue
		}
		if !r.Matcher.Matches(e.RelPath) {
			continue
		}
		if r.Role != nil {
			return Decision{Kind: DecisionApply, Role: r.Role, Rule: r}
		}
		return Decision{Kind: DecisionNoOp, Rule: r}
	}
	return Decision{Kind: DecisionUnmatched}
}
