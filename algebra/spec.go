package algebra

import (
	"strings"
	"unicode"

	"github.com/cottand/hrewrite/hrwerr"
)

// Multiplicity says how many elements a Spec stands for
type Multiplicity uint8

const (
	One Multiplicity = iota
	// ZeroOrMore is written S*
	ZeroOrMore
	// OneOrMore is written S+
	OneOrMore
)

func (m Multiplicity) suffix() string {
	switch m {
	case ZeroOrMore:
		return "*"
	case OneOrMore:
		return "+"
	default:
		return ""
	}
}

// Spec is a sort specification: a plain sort, or a sequence of elements of a sort.
// Sequence specs only appear as the declared spec of a variable, or as one slot of a
// free constructor domain.
type Spec struct {
	Sort Sort
	Mult Multiplicity
}

func (s Spec) IsSequence() bool { return s.Mult != One }

// MinLen is the least number of elements s stands for
func (s Spec) MinLen() int {
	if s.Mult == ZeroOrMore {
		return 0
	}
	return 1
}

func (s Spec) Format(l *Lattice) string {
	return l.Name(s.Sort) + s.Mult.suffix()
}

// FormatSpecs renders specs the way domains are written, e.g. "num val*"
func FormatSpecs(l *Lattice, specs []Spec) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		parts[i] = s.Format(l)
	}
	return strings.Join(parts, " ")
}

// ParseSpec parses a single specification such as "num", "num*" or "num+"
func ParseSpec(l *Lattice, text string) (Spec, error) {
	specs, err := ParseDomain(l, text)
	if err != nil {
		return Spec{}, err
	}
	if len(specs) != 1 {
		return Spec{}, hrwerr.New(hrwerr.InvalidDomainError{Domain: text, Reason: "expected exactly one sort"})
	}
	return specs[0], nil
}

// ParseDomain parses a whitespace separated list of specifications. Every referenced
// sort must be declared in l.
func ParseDomain(l *Lattice, text string) ([]Spec, error) {
	fields := strings.Fields(text)
	specs := make([]Spec, 0, len(fields))
	for _, field := range fields {
		name, mult := field, One
		switch {
		case strings.HasSuffix(field, "*"):
			name, mult = field[:len(field)-1], ZeroOrMore
		case strings.HasSuffix(field, "+"):
			name, mult = field[:len(field)-1], OneOrMore
		}
		if !isSortName(name) {
			return nil, hrwerr.New(hrwerr.InvalidDomainError{Domain: text, Reason: "malformed token '" + field + "'"})
		}
		sort, err := l.Lookup(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, Spec{Sort: sort, Mult: mult})
	}
	return specs, nil
}

func isSortName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
