// Package match enumerates the substitutions under which a pattern equals a subject.
//
// Patterns are terms that may contain variables. Plain variables match one subterm whose
// sort is a subsort of the variable's sort; sequence variables match a contiguous run of
// arguments, each element being subsort checked. Candidates are produced lazily and in a
// fixed order: sequence variables take their shortest run first, the leftmost one is
// extended last, and every nested pattern is fully explored before an enclosing run grows.
package match

import (
	"iter"
	"log/slog"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/term"
)

type Matcher struct {
	lattice *algebra.Lattice
	logger  *slog.Logger
}

func NewMatcher(lattice *algebra.Lattice) *Matcher {
	return &Matcher{
		lattice: lattice,
		logger:  term.Logger("match"),
	}
}

// cont is called once per complete match and reports whether enumeration goes on
type cont func() bool

// Match yields every substitution sub such that instantiating pattern with sub gives
// subject. The yielded substitution is reused between iterations: Clone it to keep it.
func (m *Matcher) Match(pattern, subject term.Term) iter.Seq[*term.Substitution] {
	return m.MatchFrom(pattern, subject, term.NewSubstitution())
}

// MatchFrom is Match starting from the bindings of sub, which is restored to its
// initial state once enumeration ends
func (m *Matcher) MatchFrom(pattern, subject term.Term, sub *term.Substitution) iter.Seq[*term.Substitution] {
	return func(yield func(*term.Substitution) bool) {
		snap := sub.Save()
		defer sub.Restore(snap)
		m.matchTerm(pattern, subject, sub, func() bool {
			m.logger.Debug("candidate", "pattern", pattern, "subject", subject, "sub", sub)
			return yield(sub)
		})
	}
}

// First returns the first candidate of Match, if any
func (m *Matcher) First(pattern, subject term.Term) (*term.Substitution, bool) {
	for sub := range m.Match(pattern, subject) {
		return sub.Clone(), true
	}
	return nil, false
}

// Matches reports whether pattern matches subject at all
func (m *Matcher) Matches(pattern, subject term.Term) bool {
	_, ok := m.First(pattern, subject)
	return ok
}

func (m *Matcher) matchTerm(pattern, subject term.Term, sub *term.Substitution, k cont) bool {
	switch p := pattern.(type) {
	case *term.Variable:
		if !m.lattice.IsSubsort(subject.Sort(), p.Sort()) {
			return true
		}
		// a sequence variable may stand for several terms, a plain one for exactly one
		if sv, ok := subject.(*term.Variable); ok && sv.IsSequence() && !p.IsSequence() {
			return true
		}
		snap := sub.Save()
		if !sub.Bind(p, subject) {
			return true
		}
		more := k()
		sub.Restore(snap)
		return more
	case *term.Literal:
		// payloads are opaque, only constructors are compared
		if term.ConstructorOf(subject) != p.Constructor() {
			return true
		}
		return k()
	case *term.Leaf:
		if term.ConstructorOf(subject) != p.Constructor() {
			return true
		}
		return k()
	case *term.Free:
		s, ok := subject.(*term.Free)
		if !ok || s.Constructor() != p.Constructor() {
			return true
		}
		return m.matchArgs(p.Args(), s.Args(), sub, k)
	default:
		panic("unexpected term type")
	}
}

// minLen is the least number of subject arguments patterns can consume
func minLen(patterns []term.Term) int {
	n := 0
	for _, p := range patterns {
		if v, ok := p.(*term.Variable); ok && v.IsSequence() {
			n += v.Spec().MinLen()
			continue
		}
		n++
	}
	return n
}

func (m *Matcher) matchArgs(patterns, subjects []term.Term, sub *term.Substitution, k cont) bool {
	if len(patterns) == 0 {
		if len(subjects) == 0 {
			return k()
		}
		return true
	}
	head, rest := patterns[0], patterns[1:]
	v, ok := head.(*term.Variable)
	if !ok || !v.IsSequence() {
		if len(subjects) == 0 {
			return true
		}
		return m.matchTerm(head, subjects[0], sub, func() bool {
			return m.matchArgs(rest, subjects[1:], sub, k)
		})
	}

	// a sequence variable seen earlier in the pattern must repeat its run
	if bound, ok := sub.LookupSequence(v); ok {
		if len(bound) > len(subjects) || !term.EqualSeq(bound, subjects[:len(bound)]) {
			return true
		}
		return m.matchArgs(rest, subjects[len(bound):], sub, k)
	}

	longest := len(subjects) - minLen(rest)
	for n := 0; n <= longest; n++ {
		if n > 0 && !m.lattice.IsSubsort(subjects[n-1].Sort(), v.Sort()) {
			break
		}
		if n < v.Spec().MinLen() {
			continue
		}
		snap := sub.Save()
		sub.BindSequence(v, subjects[:n])
		more := m.matchArgs(rest, subjects[n:], sub, k)
		sub.Restore(snap)
		if !more {
			return false
		}
	}
	return true
}
