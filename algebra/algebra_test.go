package algebra

import (
	"strings"
	"testing"

	"github.com/cottand/hrewrite/hrwerr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func latticeWith(t *testing.T, sorts ...string) *Lattice {
	l := NewLattice()
	for _, name := range sorts {
		_, err := l.DeclareSort(name)
		require.NoError(t, err)
	}
	return l
}

func TestDeclareSortTwice(t *testing.T) {
	l := latticeWith(t, "num")
	_, err := l.DeclareSort("num")
	var dup hrwerr.DuplicateSortError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "num", dup.Name)
}

func TestDeclareSubsortUnknown(t *testing.T) {
	l := latticeWith(t, "num")
	err := l.DeclareSubsort("num", "val")
	assert.Equal(t, hrwerr.UnknownSort, hrwerr.CodeOf(err))
	err = l.DeclareSubsort("val", "num")
	assert.Equal(t, hrwerr.UnknownSort, hrwerr.CodeOf(err))
}

func TestSubsortReflexiveTransitive(t *testing.T) {
	l := latticeWith(t, "a", "b", "c", "d", "e")
	lookup := func(name string) Sort {
		s, err := l.Lookup(name)
		require.NoError(t, err)
		return s
	}
	// declared out of order on purpose: closure must be kept incrementally
	require.NoError(t, l.DeclareSubsort("d", "c"))
	require.NoError(t, l.DeclareSubsort("b", "a"))
	require.NoError(t, l.DeclareSubsort("c", "b"))

	for s := range l.Sorts() {
		assert.True(t, l.IsSubsort(s, s), "%s ≤ %s", l.Name(s), l.Name(s))
	}

	testCases := []struct {
		sub, sup string
		expected bool
	}{
		{"a", "b", true},
		{"a", "c", true},
		{"a", "d", true},
		{"b", "d", true},
		{"d", "a", false},
		{"c", "a", false},
		{"e", "d", false},
		{"a", "e", false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.sub+"≤"+testCase.sup, func(t *testing.T) {
			assert.Equal(t, testCase.expected, l.IsSubsort(lookup(testCase.sub), lookup(testCase.sup)))
		})
	}
	assert.Equal(t, []Sort{lookup("a"), lookup("b"), lookup("c"), lookup("d")}, l.Subsorts(lookup("d")))
	assert.Equal(t, []Sort{lookup("a"), lookup("b"), lookup("c"), lookup("d")}, l.Supersorts(lookup("a")))
}

func TestSubsortCycleIsEquivalence(t *testing.T) {
	l := latticeWith(t, "x", "y")
	x, _ := l.Lookup("x")
	y, _ := l.Lookup("y")
	require.NoError(t, l.DeclareSubsort("x", "y"))
	require.NoError(t, l.DeclareSubsort("y", "x"))
	assert.True(t, l.IsSubsort(x, y))
	assert.True(t, l.IsSubsort(y, x))
}

func TestParseDomain(t *testing.T) {
	l := latticeWith(t, "num", "val")
	num, _ := l.Lookup("num")
	val, _ := l.Lookup("val")

	testCases := []struct {
		text     string
		expected []Spec
		code     hrwerr.ErrCode
	}{
		{text: "num num", expected: []Spec{{num, One}, {num, One}}},
		{text: "num+", expected: []Spec{{num, OneOrMore}}},
		{text: " val*  num ", expected: []Spec{{val, ZeroOrMore}, {num, One}}},
		{text: "", expected: []Spec{}},
		{text: "num++", code: hrwerr.InvalidDomain},
		{text: "(num)", code: hrwerr.InvalidDomain},
		{text: "*", code: hrwerr.InvalidDomain},
		{text: "bool", code: hrwerr.UnknownSort},
	}
	for _, testCase := range testCases {
		t.Run(testCase.text, func(t *testing.T) {
			specs, err := ParseDomain(l, testCase.text)
			if testCase.code != hrwerr.None {
				assert.Equal(t, testCase.code, hrwerr.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, specs)
			assert.Equal(t, strings.Join(strings.Fields(testCase.text), " "), FormatSpecs(l, specs))
		})
	}
}

func TestParseSpec(t *testing.T) {
	l := latticeWith(t, "num")
	spec, err := ParseSpec(l, "num*")
	require.NoError(t, err)
	assert.True(t, spec.IsSequence())
	assert.Equal(t, 0, spec.MinLen())
	assert.Equal(t, "num*", spec.Format(l))

	_, err = ParseSpec(l, "num num")
	assert.Equal(t, hrwerr.InvalidDomain, hrwerr.CodeOf(err))
}

func TestSignature(t *testing.T) {
	l := latticeWith(t, "val", "num")
	require.NoError(t, l.DeclareSubsort("num", "val"))
	sig := NewSignature(l)

	val, err := sig.DeclareLiteral("val", "val")
	require.NoError(t, err)
	sum, err := sig.DeclareFree("num", "sum", "num+")
	require.NoError(t, err)
	zero, err := sig.DeclareLeaf("num", "zero")
	require.NoError(t, err)
	p, err := sig.DeclareFree("num", "p", "num")
	require.NoError(t, err)
	inv, err := sig.DeclareFree("num", "p", "num")
	require.NoError(t, err)

	t.Run("spec introspection", func(t *testing.T) {
		spec, ok := sum.Spec()
		assert.True(t, ok)
		assert.Equal(t, "num+", spec)
		_, ok = val.Spec()
		assert.False(t, ok)
		spec, ok = zero.Spec()
		assert.True(t, ok)
		assert.Equal(t, "", spec)
		assert.True(t, sum.HasSequence())
		assert.False(t, p.HasSequence())
	})

	t.Run("names are not identities", func(t *testing.T) {
		assert.NotEqual(t, p.Key(), inv.Key())
		assert.Equal(t, []*Constructor{p, inv}, sig.ByName("p"))
		found, ok := sig.Lookup(inv.Key())
		assert.True(t, ok)
		assert.Same(t, inv, found)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := sig.DeclareFree("num", "bad", "num (")
		assert.Equal(t, hrwerr.InvalidDomain, hrwerr.CodeOf(err))
		_, err = sig.DeclareFree("num", "bad", "")
		assert.Equal(t, hrwerr.InvalidDomain, hrwerr.CodeOf(err))
		_, err = sig.DeclareFree("num", "bad", "bool")
		assert.Equal(t, hrwerr.UnknownSort, hrwerr.CodeOf(err))
		_, err = sig.DeclareLeaf("bool", "bad")
		assert.Equal(t, hrwerr.UnknownSort, hrwerr.CodeOf(err))
		assert.Equal(t, 5, sig.Len())
	})
}
