package term

import (
	"log/slog"
	"strconv"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrwerr"
)

// Store builds terms over a Signature, validating every construction against
// constructor domains. Leaf terms are interned, one per constructor.
//
// A Store is not safe for concurrent construction, but the terms it returns are
// immutable and may be read from anywhere.
type Store struct {
	sig     *algebra.Signature
	leaves  map[algebra.ConstructorKey]*Leaf
	nextVar uint64
	logger  *slog.Logger
}

func NewStore(sig *algebra.Signature) *Store {
	return &Store{
		sig:    sig,
		leaves: make(map[algebra.ConstructorKey]*Leaf),
		logger: Logger("signature"),
	}
}

func (s *Store) Signature() *algebra.Signature { return s.sig }
func (s *Store) Lattice() *algebra.Lattice     { return s.sig.Lattice() }

// Clear forgets interned leaves and restarts variable numbering
func (s *Store) Clear() {
	s.leaves = make(map[algebra.ConstructorKey]*Leaf)
	s.nextVar = 0
}

func kindError(cs *algebra.Constructor, wanted algebra.Kind) error {
	return hrwerr.New(hrwerr.KindMismatchError{
		Constructor: cs.Name(),
		Kind:        cs.Kind().String(),
		Wanted:      wanted.String(),
	})
}

// MakeLiteral wraps value, which is never inspected by the engine
func (s *Store) MakeLiteral(cs *algebra.Constructor, value any) (*Literal, error) {
	if cs.Kind() != algebra.Literal {
		return nil, kindError(cs, algebra.Literal)
	}
	return &Literal{cs: cs, value: value}, nil
}

func (s *Store) MakeLeaf(cs *algebra.Constructor) (*Leaf, error) {
	if cs.Kind() != algebra.Leaf {
		return nil, kindError(cs, algebra.Leaf)
	}
	if leaf, ok := s.leaves[cs.Key()]; ok {
		return leaf, nil
	}
	leaf := &Leaf{cs: cs}
	s.leaves[cs.Key()] = leaf
	return leaf, nil
}

// MakeFree checks args against the domain of cs. Arguments may have any subsort of
// their slot's sort; sequence slots take any number of elements (at least one for S+),
// and sequence variables passed as arguments are absorbed by compatible sequence slots.
func (s *Store) MakeFree(cs *algebra.Constructor, args ...Term) (*Free, error) {
	if cs.Kind() != algebra.Free {
		return nil, kindError(cs, algebra.Free)
	}
	if err := s.checkDomain(cs, args); err != nil {
		s.logger.Debug("rejected construction", "constructor", cs.Name(), "args", args)
		return nil, err
	}
	return newFree(cs, append([]Term(nil), args...)), nil
}

// Rebuild returns t with its arguments replaced by args, without checking the domain.
// It returns t itself when every argument is unchanged.
func (s *Store) Rebuild(t *Free, args []Term) *Free {
	changed := len(args) != len(t.args)
	for i := 0; !changed && i < len(args); i++ {
		changed = args[i] != t.args[i]
	}
	if !changed {
		return t
	}
	return newFree(t.cs, args)
}

func (s *Store) MakeVariable(spec string) (*Variable, error) {
	return s.MakeNamedVariable("", spec)
}

// MakeNamedVariable creates a fresh variable. The name is only used for printing and
// defaults to one derived from the variable's identity.
func (s *Store) MakeNamedVariable(name, spec string) (*Variable, error) {
	parsed, err := algebra.ParseSpec(s.Lattice(), spec)
	if err != nil {
		return nil, err
	}
	return s.MakeVariableOf(name, parsed), nil
}

func (s *Store) MakeVariableOf(name string, spec algebra.Spec) *Variable {
	s.nextVar++
	if name == "" {
		name = "_" + formatID(s.nextVar)
	}
	return &Variable{
		id:       s.nextVar,
		name:     name,
		spec:     spec,
		specText: spec.Format(s.Lattice()),
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Subterms is empty for everything but free terms
func (s *Store) Subterms(t Term) []Term {
	if free, ok := t.(*Free); ok {
		return free.args
	}
	return nil
}

func (s *Store) Value(t Term) (any, error) {
	lit, ok := t.(*Literal)
	if !ok {
		return nil, hrwerr.New(hrwerr.NotALiteralError{Term: t.String()})
	}
	return lit.value, nil
}

func (s *Store) IsGround(t Term) bool { return t.IsGround() }

func (s *Store) SortOf(t Term) algebra.Sort { return t.Sort() }

// SortName is the name of SortOf(t)
func (s *Store) SortName(t Term) string { return s.Lattice().Name(t.Sort()) }

// SpecOf is the declared spec of a variable, or the plain sort of any other term
func (s *Store) SpecOf(t Term) string {
	if v, ok := t.(*Variable); ok {
		return v.specText
	}
	return s.SortName(t)
}

// IsInstanceOf reports whether every term t stands for is described by spec. A
// sequence variable is only an instance of a sequence spec.
func (s *Store) IsInstanceOf(t Term, spec algebra.Spec) bool {
	return fitsDomain(s.Lattice(), []algebra.Spec{spec}, []algebra.Spec{specOfArg(t)})
}

func specOfArg(t Term) algebra.Spec {
	if v, ok := t.(*Variable); ok {
		return v.spec
	}
	return algebra.Spec{Sort: t.Sort(), Mult: algebra.One}
}

func (s *Store) checkDomain(cs *algebra.Constructor, args []Term) error {
	lattice := s.Lattice()
	specs := make([]algebra.Spec, len(args))
	hasSequenceArg := false
	for i, arg := range args {
		specs[i] = specOfArg(arg)
		hasSequenceArg = hasSequenceArg || specs[i].IsSequence()
	}
	domain := cs.Domain()
	if fitsDomain(lattice, domain, specs) {
		return nil
	}

	minLen := 0
	for _, slot := range domain {
		minLen += slot.MinLen()
	}
	arityErr := !hasSequenceArg && len(args) < minLen
	arityErr = arityErr || !cs.HasSequence() && !hasSequenceArg && len(args) != len(domain)
	if arityErr {
		return hrwerr.New(hrwerr.ArityError{
			Constructor: cs.Name(),
			Domain:      algebra.FormatSpecs(lattice, domain),
			Got:         len(args),
		})
	}
	return hrwerr.New(hrwerr.SortMismatchError{
		Constructor: cs.Name(),
		Domain:      algebra.FormatSpecs(lattice, domain),
		Got:         algebra.FormatSpecs(lattice, specs),
	})
}

// fitsDomain reports whether every sequence of terms described by args is also
// described by domain
func fitsDomain(l *algebra.Lattice, domain, args []algebra.Spec) bool {
	if len(domain) == 0 {
		return len(args) == 0
	}
	slot, rest := domain[0], domain[1:]
	if !slot.IsSequence() {
		if len(args) == 0 || args[0].IsSequence() || !l.IsSubsort(args[0].Sort, slot.Sort) {
			return false
		}
		return fitsDomain(l, rest, args[1:])
	}

	if slot.Mult == algebra.ZeroOrMore && fitsDomain(l, rest, args) {
		return true
	}
	// an S+ slot needs at least one argument that cannot be empty
	nonEmpty := false
	for n := 1; n <= len(args); n++ {
		arg := args[n-1]
		if !l.IsSubsort(arg.Sort, slot.Sort) {
			return false
		}
		nonEmpty = nonEmpty || arg.Mult != algebra.ZeroOrMore
		if (slot.Mult == algebra.ZeroOrMore || nonEmpty) && fitsDomain(l, rest, args[n:]) {
			return true
		}
	}
	return false
}
