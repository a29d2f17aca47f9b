package decl

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/term"
)

// parser reads one term. Identifiers resolve to variables first, then constructors.
type parser struct {
	prog *Program
	src  string
	s    scanner.Scanner
	tok  rune
	errs []string
}

// ParseTerm parses text with the program's constructors and variables
func (p *Program) ParseTerm(text string) (term.Term, error) {
	ps := &parser{prog: p, src: text}
	ps.s.Init(strings.NewReader(text))
	ps.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats | scanner.ScanStrings
	ps.s.Error = func(s *scanner.Scanner, msg string) {
		ps.errs = append(ps.errs, fmt.Sprintf("%s: %s", s.Pos(), msg))
	}
	ps.next()
	t, err := ps.parseTerm()
	if err != nil {
		return nil, err
	}
	if ps.tok != scanner.EOF {
		return nil, ps.fail("unexpected %s after term", scanner.TokenString(ps.tok))
	}
	if len(ps.errs) > 0 {
		return nil, ps.fail("%s", strings.Join(ps.errs, "; "))
	}
	return t, nil
}

func (ps *parser) next() { ps.tok = ps.s.Scan() }

func (ps *parser) fail(format string, args ...any) error {
	return hrwerr.New(hrwerr.DeclarationError{
		Where:  fmt.Sprintf("term \"%s\"", ps.src),
		Reason: fmt.Sprintf("column %d: ", ps.s.Position.Column) + fmt.Sprintf(format, args...),
	})
}

func (ps *parser) expect(tok rune) error {
	if ps.tok != tok {
		return ps.fail("expected %s, found %s", scanner.TokenString(tok), scanner.TokenString(ps.tok))
	}
	ps.next()
	return nil
}

func (ps *parser) parseTerm() (term.Term, error) {
	if ps.tok != scanner.Ident {
		return nil, ps.fail("expected an identifier, found %s", scanner.TokenString(ps.tok))
	}
	id := ps.s.TokenText()
	ps.next()

	store := ps.prog.ctx.Store()
	if v, ok := ps.prog.vars[id]; ok {
		return v, nil
	}
	cs, ok := ps.prog.constructors[id]
	if !ok {
		return nil, ps.fail("unknown identifier '%s'", id)
	}

	switch ps.tok {
	case '[':
		ps.next()
		value, err := ps.parseLiteral()
		if err != nil {
			return nil, err
		}
		if err := ps.expect(']'); err != nil {
			return nil, err
		}
		return asTerm(store.MakeLiteral(cs, value))
	case '(':
		ps.next()
		var args []term.Term
		for ps.tok != ')' {
			if len(args) > 0 {
				if err := ps.expect(','); err != nil {
					return nil, err
				}
			}
			arg, err := ps.parseTerm()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		ps.next()
		return asTerm(store.MakeFree(cs, args...))
	default:
		if cs.Kind() == algebra.Free {
			return asTerm(store.MakeFree(cs))
		}
		return asTerm(store.MakeLeaf(cs))
	}
}

// asTerm keeps a failed construction from turning into a non-nil Term
func asTerm[T term.Term](t T, err error) (term.Term, error) {
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (ps *parser) parseLiteral() (any, error) {
	negative := false
	if ps.tok == '-' {
		negative = true
		ps.next()
	}
	text := ps.s.TokenText()
	if negative {
		text = "-" + text
	}
	switch ps.tok {
	case scanner.Int:
		ps.next()
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, ps.fail("%v", err)
		}
		return n, nil
	case scanner.Float:
		ps.next()
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, ps.fail("%v", err)
		}
		return f, nil
	case scanner.String:
		if negative {
			return nil, ps.fail("cannot negate a string")
		}
		ps.next()
		return strconv.Unquote(text)
	case scanner.Ident:
		if !negative && (text == "true" || text == "false") {
			ps.next()
			return text == "true", nil
		}
	}
	return nil, ps.fail("expected a literal value, found %s", scanner.TokenString(ps.tok))
}
