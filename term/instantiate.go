package term

import (
	"github.com/cottand/hrewrite/hrwerr"
)

// Instantiate replaces every variable of t bound in sub. Sequence bindings are spliced
// into the argument list holding the variable, and every rebuilt free term is checked
// against its constructor's domain. Unbound variables are left in place.
func (s *Store) Instantiate(t Term, sub *Substitution) (Term, error) {
	return s.instantiate(t, sub, false)
}

// InstantiateGround is Instantiate, but fails with an UnboundVariableError when t
// contains a variable that sub does not bind
func (s *Store) InstantiateGround(t Term, sub *Substitution) (Term, error) {
	return s.instantiate(t, sub, true)
}

// InstantiateSequence instantiates every term of ts, splicing sequence bindings
func (s *Store) InstantiateSequence(ts []Term, sub *Substitution) ([]Term, error) {
	out, _, err := s.instantiateArgs(ts, sub, false)
	return out, err
}

func (s *Store) instantiate(t Term, sub *Substitution, strict bool) (Term, error) {
	switch t := t.(type) {
	case *Variable:
		bound, ok := sub.LookupSequence(t)
		if !ok {
			if strict {
				return nil, hrwerr.New(hrwerr.UnboundVariableError{Variable: t.String()})
			}
			return t, nil
		}
		if len(bound) != 1 {
			// a sequence only fits inside an argument list
			return nil, hrwerr.New(hrwerr.ArityError{
				Constructor: t.String(),
				Domain:      s.Lattice().Name(t.Sort()),
				Got:         len(bound),
			})
		}
		return bound[0], nil
	case *Free:
		if t.ground {
			return t, nil
		}
		args, changed, err := s.instantiateArgs(t.args, sub, strict)
		if err != nil {
			return nil, err
		}
		if !changed {
			return t, nil
		}
		free, err := s.MakeFree(t.cs, args...)
		if err != nil {
			return nil, err
		}
		return free, nil
	default:
		return t, nil
	}
}

func (s *Store) instantiateArgs(ts []Term, sub *Substitution, strict bool) ([]Term, bool, error) {
	out := make([]Term, 0, len(ts))
	changed := false
	for _, arg := range ts {
		if v, ok := arg.(*Variable); ok && v.IsSequence() {
			bound, ok := sub.LookupSequence(v)
			if !ok {
				if strict {
					return nil, false, hrwerr.New(hrwerr.UnboundVariableError{Variable: v.String()})
				}
				out = append(out, v)
				continue
			}
			out = append(out, bound...)
			changed = true
			continue
		}
		replaced, err := s.instantiate(arg, sub, strict)
		if err != nil {
			return nil, false, err
		}
		changed = changed || replaced != arg
		out = append(out, replaced)
	}
	return out, changed, nil
}
