package term

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"
)

type binding struct {
	v     *Variable
	terms []Term
}

// Substitution maps variables to terms. Plain variables are bound to one term and
// sequence variables to an ordered list of terms.
//
// The underlying map is persistent, so Save and Restore are constant time and a
// Clone never shares mutations with its origin.
type Substitution struct {
	m *immutable.Map[uint64, binding]
}

// Snapshot is a saved state of a Substitution, see Substitution.Save
type Snapshot struct {
	m *immutable.Map[uint64, binding]
}

func NewSubstitution() *Substitution {
	return &Substitution{m: immutable.NewMap[uint64, binding](nil)}
}

// Bind binds a plain variable to t. It returns false, leaving s unchanged, when v is
// already bound to a term not Equal to t.
func (s *Substitution) Bind(v *Variable, t Term) bool {
	return s.bind(v, []Term{t})
}

// BindSequence binds a sequence variable to ts, which is copied
func (s *Substitution) BindSequence(v *Variable, ts []Term) bool {
	return s.bind(v, slices.Clone(ts))
}

func (s *Substitution) bind(v *Variable, ts []Term) bool {
	if existing, ok := s.m.Get(v.id); ok {
		return EqualSeq(existing.terms, ts)
	}
	s.m = s.m.Set(v.id, binding{v: v, terms: ts})
	return true
}

// Lookup returns the term bound to a plain variable
func (s *Substitution) Lookup(v *Variable) (Term, bool) {
	b, ok := s.m.Get(v.id)
	if !ok || len(b.terms) != 1 {
		return nil, false
	}
	return b.terms[0], true
}

// LookupSequence returns the terms bound to v, which is a one-element list for a plain
// variable. The result must not be modified.
func (s *Substitution) LookupSequence(v *Variable) ([]Term, bool) {
	b, ok := s.m.Get(v.id)
	return b.terms, ok
}

func (s *Substitution) Len() int { return s.m.Len() }

func (s *Substitution) Clone() *Substitution {
	return &Substitution{m: s.m}
}

func (s *Substitution) Save() Snapshot { return Snapshot{m: s.m} }

// Restore drops every binding made since snap was saved
func (s *Substitution) Restore(snap Snapshot) { s.m = snap.m }

// Bindings yields every bound variable with its terms, in variable creation order
func (s *Substitution) Bindings() iter.Seq2[*Variable, []Term] {
	all := make([]binding, 0, s.m.Len())
	itr := s.m.Iterator()
	for !itr.Done() {
		_, b, _ := itr.Next()
		all = append(all, b)
	}
	slices.SortFunc(all, func(a, b binding) int { return cmp.Compare(a.v.id, b.v.id) })
	return func(yield func(*Variable, []Term) bool) {
		for _, b := range all {
			if !yield(b.v, b.terms) {
				return
			}
		}
	}
}

func (s *Substitution) String() string {
	sb := &strings.Builder{}
	sb.WriteString("{")
	first := true
	for v, ts := range s.Bindings() {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(v.String())
		sb.WriteString(" ↦ ")
		if !v.IsSequence() {
			sb.WriteString(ts[0].String())
			continue
		}
		sb.WriteString("[")
		for i, t := range ts {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(t.String())
		}
		sb.WriteString("]")
	}
	sb.WriteString("}")
	return sb.String()
}
