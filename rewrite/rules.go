package rewrite

import (
	"fmt"
	"iter"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/term"
	"github.com/cottand/hrewrite/util"
)

// Guard decides whether a matched rule applies. It may extend sub with bindings for
// variables that only occur in the rule's image; extensions made by a guard that
// returns false are discarded.
type Guard func(rw *Rewriter, sub *term.Substitution) bool

// Rule is immutable once added to a RuleSet
type Rule struct {
	pattern term.Term
	image   term.Term
	guard   Guard
	head    algebra.ConstructorKey
}

func (r *Rule) Pattern() term.Term { return r.pattern }
func (r *Rule) Image() term.Term   { return r.image }
func (r *Rule) Guard() Guard       { return r.guard }

func (r *Rule) String() string {
	if r.guard != nil {
		return fmt.Sprintf("%s -> %s if <guard>", r.pattern, r.image)
	}
	return fmt.Sprintf("%s -> %s", r.pattern, r.image)
}

// RuleSet indexes rules by the constructor at the head of their pattern. Rules sharing a
// head are kept in the order they were added.
type RuleSet struct {
	byHead map[algebra.ConstructorKey][]*Rule
	rules  []*Rule
	// version changes on every mutation, so that normal forms computed under an older
	// rule set are not reused
	version uint64
}

func NewRuleSet() *RuleSet {
	return &RuleSet{byHead: make(map[algebra.ConstructorKey][]*Rule)}
}

// Add checks that pattern is not a variable and, when guard is nil, that every variable
// of image occurs in pattern
func (rs *RuleSet) Add(pattern, image term.Term, guard Guard) (*Rule, error) {
	cs := term.ConstructorOf(pattern)
	if cs == nil {
		return nil, hrwerr.New(hrwerr.IllFormedRuleError{
			Pattern: pattern.String(),
			Image:   image.String(),
			Reason:  "the pattern must not be a variable",
		})
	}
	if guard == nil {
		bound := util.SetFromSeq(term.Variables(pattern), 0)
		for v := range term.Variables(image) {
			if !bound.Contains(v) {
				return nil, hrwerr.New(hrwerr.IllFormedRuleError{
					Pattern: pattern.String(),
					Image:   image.String(),
					Reason:  fmt.Sprintf("variable %s of the image does not occur in the pattern", v),
				})
			}
		}
	}
	rule := &Rule{pattern: pattern, image: image, guard: guard, head: cs.Key()}
	rs.insert(rule)
	return rule, nil
}

func (rs *RuleSet) insert(rule *Rule) {
	rs.byHead[rule.head] = append(rs.byHead[rule.head], rule)
	rs.rules = append(rs.rules, rule)
	rs.version++
}

// Merge appends every rule of other, after the rules already in rs
func (rs *RuleSet) Merge(other *RuleSet) {
	for _, rule := range other.rules {
		rs.insert(rule)
	}
}

// Rules yields every rule in insertion order
func (rs *RuleSet) Rules() iter.Seq[*Rule] {
	return func(yield func(*Rule) bool) {
		for _, rule := range rs.rules {
			if !yield(rule) {
				return
			}
		}
	}
}

// Candidates returns the rules whose pattern has the same head constructor as t.
// The result must not be modified.
func (rs *RuleSet) Candidates(t term.Term) []*Rule {
	cs := term.ConstructorOf(t)
	if cs == nil {
		return nil
	}
	return rs.byHead[cs.Key()]
}

func (rs *RuleSet) Len() int { return len(rs.rules) }

func (rs *RuleSet) Clear() {
	rs.byHead = make(map[algebra.ConstructorKey][]*Rule)
	rs.rules = nil
	rs.version++
}
