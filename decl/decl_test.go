package decl

import (
	"strings"
	"testing"

	"github.com/cottand/hrewrite/hrw"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(src string) (*Program, error) {
	doc, err := Load(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	return doc.Build(hrw.NewContext())
}

func TestArithFile(t *testing.T) {
	doc, err := LoadFile("testdata/arith.yaml")
	require.NoError(t, err)
	prog, err := doc.Build(hrw.NewContext())
	require.NoError(t, err)
	assert.Equal(t, 13, prog.Rewriter().Rules().Len())

	terms, err := prog.Terms()
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "sum(s(p(val[1])), plus(p(val[3]), val[3]))", terms[0].String())

	expected := []string{"val[6]", "val[7]"}
	for i, input := range terms {
		nf, err := prog.Rewriter().Rewrite(input)
		require.NoError(t, err)
		assert.Equal(t, expected[i], nf.String())
	}

	inv, ok := prog.Constructor("inv")
	require.True(t, ok)
	p, ok := prog.Constructor("p")
	require.True(t, ok)
	assert.Equal(t, p.Name(), inv.Name())
	assert.NotEqual(t, p.Key(), inv.Key())

	gamma, ok := prog.Variable("gamma")
	require.True(t, ok)
	assert.Equal(t, "gamma:num*", gamma.String())
}

func TestArithFileStrictSorting(t *testing.T) {
	doc, err := LoadFile("testdata/arith.yaml")
	require.NoError(t, err)
	doc.StrictSorting = true
	prog, err := doc.Build(hrw.NewContext())
	require.NoError(t, err)
	terms, err := prog.Terms()
	require.NoError(t, err)
	nf, err := prog.Rewriter().Rewrite(terms[0])
	require.NoError(t, err)
	assert.Equal(t, "val[6]", nf.String())
}

const predicates = `
sorts: [v]
constructors:
  n: {sort: v, kind: literal}
  big: {sort: v, kind: leaf}
  small: {sort: v, kind: leaf}
  classify: {sort: v, kind: free, domain: v}
variables: {x: v}
rules:
  - pattern: classify(x)
    image: big
    guard: {args: [x], func: "func(n float64) bool { return n > 10 }"}
  - pattern: classify(x)
    image: small
`

func TestPredicateGuards(t *testing.T) {
	prog, err := build(predicates)
	require.NoError(t, err)

	testCases := []struct {
		input    string
		expected string
		code     hrwerr.ErrCode
	}{
		{input: "classify(n[3])", expected: "small"},
		{input: "classify(n[30])", expected: "big"},
		{input: "classify(n[12.5])", expected: "big"},
		{input: "classify(big)", code: hrwerr.NotALiteral},
		{input: `classify(n["text"])`, code: hrwerr.Guard},
	}
	for _, testCase := range testCases {
		t.Run(testCase.input, func(t *testing.T) {
			input, err := prog.ParseTerm(testCase.input)
			require.NoError(t, err)
			nf, err := prog.Rewriter().Rewrite(input)
			if testCase.code != hrwerr.None {
				assert.Equal(t, hrwerr.Guard, hrwerr.CodeOf(err), "error: %v", err)
				if testCase.code != hrwerr.Guard {
					var guardErr hrwerr.GuardError
					require.ErrorAs(t, err, &guardErr)
					assert.Equal(t, testCase.code, hrwerr.CodeOf(guardErr.From))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, nf.String())
		})
	}
}

func TestParseTerm(t *testing.T) {
	prog, err := build(`
sorts: [v]
constructors:
  lit: {sort: v, kind: literal}
  e: {sort: v, kind: leaf}
  c: {sort: v, kind: free, domain: v*}
  pair: {sort: v, kind: free, domain: v v}
variables: {x: v, xs: v*}
`)
	require.NoError(t, err)

	testCases := []struct {
		text     string
		expected string
		value    any
		code     hrwerr.ErrCode
	}{
		{text: "e", expected: "e"},
		{text: "c", expected: "c"},
		{text: "c()", expected: "c"},
		{text: " c( e ,c(e),x ) ", expected: "c(e, c(e), x:v)"},
		{text: "c(xs, e)", expected: "c(xs:v*, e)"},
		{text: "lit[-2]", expected: "lit[-2]", value: -2},
		{text: "lit[2.5]", expected: "lit[2.5]", value: 2.5},
		{text: `lit["a b"]`, expected: "lit[a b]", value: "a b"},
		{text: "lit[true]", expected: "lit[true]", value: true},
		{text: "pair(e)", code: hrwerr.Arity},
		{text: "e[1]", code: hrwerr.KindMismatch},
		{text: "lit", code: hrwerr.KindMismatch},
		{text: "c(e", code: hrwerr.Declaration},
		{text: "c(e) e", code: hrwerr.Declaration},
		{text: "unknown", code: hrwerr.Declaration},
		{text: "lit[maybe]", code: hrwerr.Declaration},
		{text: `lit[-"a"]`, code: hrwerr.Declaration},
		{text: "x(e)", code: hrwerr.Declaration},
		{text: "", code: hrwerr.Declaration},
	}
	for _, testCase := range testCases {
		t.Run(testCase.text, func(t *testing.T) {
			got, err := prog.ParseTerm(testCase.text)
			if testCase.code != hrwerr.None {
				assert.Equal(t, testCase.code, hrwerr.CodeOf(err), "error: %v", err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, got.String())
			if testCase.value != nil {
				value, err := prog.Context().Store().Value(got)
				require.NoError(t, err)
				assert.Equal(t, testCase.value, value)
			}
		})
	}
}

func TestDeclarationErrors(t *testing.T) {
	const header = "sorts: [v]\nconstructors:\n  e: {sort: v, kind: leaf}\n  s: {sort: v, kind: free, domain: v}\n  n: {sort: v, kind: literal}\n"
	testCases := []struct {
		name string
		src  string
		code hrwerr.ErrCode
	}{
		{name: "not yaml", src: "sorts: [v", code: hrwerr.Declaration},
		{name: "unknown field", src: header + "sort: v\n", code: hrwerr.Declaration},
		{name: "no sorts", src: "constructors:\n  e: {sort: v, kind: leaf}\n", code: hrwerr.Declaration},
		{name: "duplicate sort names", src: "sorts: [v, v]\nconstructors:\n  e: {sort: v, kind: leaf}\n", code: hrwerr.Declaration},
		{name: "bad kind", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: other}\n", code: hrwerr.Declaration},
		{name: "free without domain", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: free}\n", code: hrwerr.Declaration},
		{name: "leaf with domain", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: leaf, domain: v}\n", code: hrwerr.Declaration},
		{name: "unknown sort", src: "sorts: [v]\nconstructors:\n  e: {sort: w, kind: leaf}\n", code: hrwerr.UnknownSort},
		{name: "unknown subsort", src: "sorts: [v]\nsubsorts: [{parent: v, child: w}]\nconstructors:\n  e: {sort: v, kind: leaf}\n", code: hrwerr.UnknownSort},
		{name: "bad domain", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: free, domain: \"v**\"}\n", code: hrwerr.InvalidDomain},
		{name: "misspelled constructor field", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: leaf, nmae: other}\n", code: hrwerr.Declaration},
		{name: "domain typo on a leaf", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: leaf, domian: v}\n", code: hrwerr.Declaration},
		{name: "strict sorting", src: "strict_sorting: true\nsorts: [v, w]\nconstructors:\n  s: {sort: v, kind: free, domain: v}\n  b: {sort: w, kind: leaf}\nvariables: {x: v}\nrules: [{pattern: s(x), image: b}]\n", code: hrwerr.IllFormedRule},
		{name: "duplicate constructor", src: "sorts: [v]\nconstructors:\n  e: {sort: v, kind: leaf}\n  e: {sort: v, kind: leaf}\n", code: hrwerr.Declaration},
		{name: "variable shadows constructor", src: header + "variables: {e: v}\n", code: hrwerr.Declaration},
		{name: "bad variable spec", src: header + "variables: {x: \"v v\"}\n", code: hrwerr.InvalidDomain},
		{name: "bad rule term", src: header + "rules: [{pattern: \"s(\", image: e}]\n", code: hrwerr.Declaration},
		{name: "variable pattern", src: header + "variables: {x: v}\nrules: [{pattern: x, image: e}]\n", code: hrwerr.IllFormedRule},
		{name: "unbound image", src: header + "variables: {x: v, y: v}\nrules: [{pattern: s(x), image: y}]\n", code: hrwerr.IllFormedRule},
		{
			name: "guard does not compile",
			src:  header + "variables: {x: v}\nrules: [{pattern: s(x), image: x, guard: {args: [x], func: \"func(a int) bool { return a +\"}}]\n",
			code: hrwerr.Guard,
		},
		{
			name: "guard arity",
			src:  header + "variables: {x: v}\nrules: [{pattern: s(x), image: x, guard: {args: [x], func: \"func() bool { return true }\"}}]\n",
			code: hrwerr.Guard,
		},
		{
			name: "binding guard returns bool",
			src:  header + "variables: {x: v, y: v}\nrules: [{pattern: s(x), image: y, guard: {args: [x], func: \"func(a int) bool { return true }\", bind: y, literal: n}}]\n",
			code: hrwerr.Guard,
		},
		{
			name: "value guard without binding",
			src:  header + "variables: {x: v}\nrules: [{pattern: s(x), image: x, guard: {args: [x], func: \"func(a int) int { return a }\"}}]\n",
			code: hrwerr.Guard,
		},
		{
			name: "binding needs literal",
			src:  header + "variables: {x: v, y: v}\nrules: [{pattern: s(x), image: y, guard: {args: [x], func: \"func(a int) int { return a }\", bind: y}}]\n",
			code: hrwerr.Declaration,
		},
		{
			name: "binding to a non literal constructor",
			src:  header + "variables: {x: v, y: v}\nrules: [{pattern: s(x), image: y, guard: {args: [x], func: \"func(a int) int { return a }\", bind: y, literal: e}}]\n",
			code: hrwerr.Declaration,
		},
		{
			name: "unknown guard argument",
			src:  header + "variables: {x: v}\nrules: [{pattern: s(x), image: x, guard: {args: [z], func: \"func(a int) bool { return true }\"}}]\n",
			code: hrwerr.Declaration,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := build(testCase.src)
			require.Error(t, err)
			assert.Equal(t, testCase.code, hrwerr.CodeOf(err), "error: %v", err)
		})
	}
}
