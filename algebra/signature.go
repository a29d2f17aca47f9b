package algebra

import (
	"iter"
	"log/slog"

	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/internal/log"
)

// Kind classifies constructors and the terms they build
type Kind uint8

const (
	// Literal constructors wrap an opaque host value
	Literal Kind = iota
	// Leaf constructors take no argument and have exactly one term
	Leaf
	// Free constructors take an argument list described by their domain
	Free
)

func (k Kind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Leaf:
		return "leaf"
	case Free:
		return "free"
	default:
		panic("unknown constructor kind")
	}
}

// ConstructorKey is the identity of a constructor. Names are only for display.
type ConstructorKey uint32

// Constructor is immutable once declared
type Constructor struct {
	key      ConstructorKey
	name     string
	kind     Kind
	codomain Sort
	domain   []Spec
	// domainText is the domain as the user wrote it
	domainText  string
	hasSequence bool
}

func (c *Constructor) Key() ConstructorKey { return c.key }
func (c *Constructor) Name() string        { return c.name }
func (c *Constructor) Kind() Kind          { return c.kind }
func (c *Constructor) Sort() Sort          { return c.codomain }

// Domain returns the slots of a free constructor, nil for literal and leaf ones.
// The returned slice must not be modified.
func (c *Constructor) Domain() []Spec { return c.domain }

// HasSequence reports whether one of the domain slots is S* or S+
func (c *Constructor) HasSequence() bool { return c.hasSequence }

// Spec returns the declared domain. Literal constructors have none; leaf constructors
// have the empty domain.
func (c *Constructor) Spec() (string, bool) {
	if c.kind == Literal {
		return "", false
	}
	return c.domainText, true
}

func (c *Constructor) String() string { return c.name }

// Signature holds every constructor declared over a Lattice
type Signature struct {
	lattice      *Lattice
	constructors []*Constructor
	logger       *slog.Logger
}

func NewSignature(lattice *Lattice) *Signature {
	return &Signature{
		lattice: lattice,
		logger:  log.Section("signature"),
	}
}

func (s *Signature) Lattice() *Lattice { return s.lattice }

func (s *Signature) DeclareLiteral(sort, name string) (*Constructor, error) {
	return s.declare(sort, name, Literal, "", nil)
}

func (s *Signature) DeclareLeaf(sort, name string) (*Constructor, error) {
	return s.declare(sort, name, Leaf, "", nil)
}

func (s *Signature) DeclareFree(sort, name, domain string) (*Constructor, error) {
	specs, err := ParseDomain(s.lattice, domain)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, hrwerr.New(hrwerr.InvalidDomainError{Domain: domain, Reason: "free constructors need at least one slot"})
	}
	return s.declare(sort, name, Free, domain, specs)
}

func (s *Signature) declare(sort, name string, kind Kind, domainText string, domain []Spec) (*Constructor, error) {
	codomain, err := s.lattice.Lookup(sort)
	if err != nil {
		return nil, err
	}
	cs := &Constructor{
		key:        ConstructorKey(len(s.constructors)),
		name:       name,
		kind:       kind,
		codomain:   codomain,
		domain:     domain,
		domainText: domainText,
	}
	for _, spec := range domain {
		cs.hasSequence = cs.hasSequence || spec.IsSequence()
	}
	s.constructors = append(s.constructors, cs)
	s.logger.Debug("declared constructor", "name", name, "kind", kind.String(), "sort", sort, "domain", domainText, "key", cs.key)
	return cs, nil
}

func (s *Signature) Lookup(key ConstructorKey) (*Constructor, bool) {
	if int(key) >= len(s.constructors) {
		return nil, false
	}
	return s.constructors[key], true
}

// ByName returns every constructor with the given display name, in declaration order
func (s *Signature) ByName(name string) []*Constructor {
	var found []*Constructor
	for _, cs := range s.constructors {
		if cs.name == name {
			found = append(found, cs)
		}
	}
	return found
}

func (s *Signature) Constructors() iter.Seq[*Constructor] {
	return func(yield func(*Constructor) bool) {
		for _, cs := range s.constructors {
			if !yield(cs) {
				return
			}
		}
	}
}

func (s *Signature) Len() int { return len(s.constructors) }

// Clear forgets every constructor. Terms built from them must not be used afterward.
func (s *Signature) Clear() {
	s.constructors = nil
}
