package term

import (
	"fmt"
	"hash/fnv"
	"iter"
	"reflect"
	"strconv"
	"strings"

	"github.com/cottand/hrewrite/algebra"
)

// Term is one of *Variable, *Literal, *Leaf or *Free. Terms are immutable and may be
// shared by any number of parents.
type Term interface {
	fmt.Stringer
	// Sort is the codomain of the term's constructor, or the base sort of a variable
	Sort() algebra.Sort
	IsGround() bool
	// Hash is consistent with Equal
	Hash() uint64
	termNode()
}

var (
	_ Term = (*Variable)(nil)
	_ Term = (*Literal)(nil)
	_ Term = (*Leaf)(nil)
	_ Term = (*Free)(nil)
)

// Variable is matched by identity: two variables with the same name and spec are
// still different variables
type Variable struct {
	id       uint64
	name     string
	spec     algebra.Spec
	specText string
}

func (*Variable) termNode()            {}
func (v *Variable) Sort() algebra.Sort { return v.spec.Sort }
func (v *Variable) Spec() algebra.Spec { return v.spec }
func (v *Variable) IsSequence() bool   { return v.spec.IsSequence() }
func (v *Variable) IsGround() bool     { return false }
func (v *Variable) ID() uint64         { return v.id }
func (v *Variable) Name() string       { return v.name }
func (v *Variable) Hash() uint64       { return hashWords(0x76, v.id) }
func (v *Variable) String() string     { return v.name + ":" + v.specText }
func (v *Variable) SpecString() string { return v.specText }

type Literal struct {
	cs    *algebra.Constructor
	value any
}

func (*Literal) termNode()                           {}
func (t *Literal) Sort() algebra.Sort                { return t.cs.Sort() }
func (t *Literal) Constructor() *algebra.Constructor { return t.cs }
func (t *Literal) Value() any                        { return t.value }
func (t *Literal) IsGround() bool                    { return true }
func (t *Literal) String() string                    { return fmt.Sprintf("%s[%v]", t.cs.Name(), t.value) }

// Hash only looks at values of basic kinds: other payloads may be equal under
// reflect.DeepEqual while formatting differently
func (t *Literal) Hash() uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatUint(uint64(t.cs.Key()), 16)))
	if t.value != nil {
		_, _ = h.Write([]byte(reflect.TypeOf(t.value).String()))
		switch reflect.ValueOf(t.value).Kind() {
		case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64, reflect.String:
			_, _ = fmt.Fprint(h, t.value)
		default:
		}
	}
	return h.Sum64()
}

type Leaf struct {
	cs *algebra.Constructor
}

func (*Leaf) termNode()                           {}
func (t *Leaf) Sort() algebra.Sort                { return t.cs.Sort() }
func (t *Leaf) Constructor() *algebra.Constructor { return t.cs }
func (t *Leaf) IsGround() bool                    { return true }
func (t *Leaf) Hash() uint64                      { return hashWords(0x6c, uint64(t.cs.Key())) }
func (t *Leaf) String() string                    { return t.cs.Name() }

type Free struct {
	cs     *algebra.Constructor
	args   []Term
	ground bool
	hash   uint64
}

func newFree(cs *algebra.Constructor, args []Term) *Free {
	words := make([]uint64, 0, len(args)+1)
	words = append(words, uint64(cs.Key()))
	ground := true
	for _, arg := range args {
		ground = ground && arg.IsGround()
		words = append(words, arg.Hash())
	}
	return &Free{
		cs:     cs,
		args:   args,
		ground: ground,
		hash:   hashWords(0x66, words...),
	}
}

func (*Free) termNode()                           {}
func (t *Free) Sort() algebra.Sort                { return t.cs.Sort() }
func (t *Free) Constructor() *algebra.Constructor { return t.cs }
func (t *Free) IsGround() bool                    { return t.ground }
func (t *Free) Hash() uint64                      { return t.hash }
func (t *Free) Len() int                          { return len(t.args) }
func (t *Free) Arg(i int) Term                    { return t.args[i] }

// Args returns the argument list. It must not be modified.
func (t *Free) Args() []Term { return t.args }

func (t *Free) String() string {
	if len(t.args) == 0 {
		return t.cs.Name()
	}
	sb := &strings.Builder{}
	sb.WriteString(t.cs.Name())
	sb.WriteString("(")
	for i, arg := range t.args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteString(")")
	return sb.String()
}

func hashWords(tag uint64, words ...uint64) uint64 {
	h := uint64(14695981039346656037) ^ tag
	for _, w := range words {
		h ^= w
		h *= 1099511628211
		h ^= h >> 29
	}
	return h
}

// ConstructorOf returns the constructor of a structured term, or nil for a variable
func ConstructorOf(t Term) *algebra.Constructor {
	switch t := t.(type) {
	case *Literal:
		return t.cs
	case *Leaf:
		return t.cs
	case *Free:
		return t.cs
	case *Variable:
		return nil
	default:
		panic(fmt.Sprintf("unexpected term type %T", t))
	}
}

// Equal is structural equality. Variables are equal only to themselves, literal payloads
// are compared with == when possible and with reflect.DeepEqual otherwise.
func Equal(a, b Term) bool {
	if a == b {
		return true
	}
	if a.Hash() != b.Hash() {
		return false
	}
	switch a := a.(type) {
	case *Variable:
		return false
	case *Literal:
		other, ok := b.(*Literal)
		return ok && a.cs == other.cs && valuesEqual(a.value, other.value)
	case *Leaf:
		other, ok := b.(*Leaf)
		return ok && a.cs == other.cs
	case *Free:
		other, ok := b.(*Free)
		if !ok || a.cs != other.cs || len(a.args) != len(other.args) {
			return false
		}
		for i := range a.args {
			if !Equal(a.args[i], other.args[i]) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Sprintf("unexpected term type %T", a))
	}
}

// EqualSeq is element-wise Equal
func EqualSeq(a, b []Term) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) (eq bool) {
	defer func() {
		// == panics on non comparable dynamic types
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// Variables yields every variable occurrence of t, left to right, including repeats
func Variables(t Term) iter.Seq[*Variable] {
	return func(yield func(*Variable) bool) {
		walkVariables(t, yield)
	}
}

func walkVariables(t Term, yield func(*Variable) bool) bool {
	switch t := t.(type) {
	case *Variable:
		return yield(t)
	case *Free:
		if t.ground {
			return true
		}
		for _, arg := range t.args {
			if !walkVariables(arg, yield) {
				return false
			}
		}
	}
	return true
}
