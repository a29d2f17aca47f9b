package decl

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrw"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/internal/log"
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/cottand/hrewrite/util"
	"github.com/hashicorp/go-set/v3"
)

// Program is a Document declared into an hrw.Context
type Program struct {
	doc          *Document
	ctx          *hrw.Context
	rewriter     *rewrite.Rewriter
	constructors map[string]*algebra.Constructor
	vars         map[string]*term.Variable
	logger       *slog.Logger
}

func (p *Program) Context() *hrw.Context       { return p.ctx }
func (p *Program) Rewriter() *rewrite.Rewriter { return p.rewriter }
func (p *Program) Document() *Document         { return p.doc }

// Constructor returns the constructor declared under id
func (p *Program) Constructor(id string) (*algebra.Constructor, bool) {
	cs, ok := p.constructors[id]
	return cs, ok
}

func (p *Program) Variable(name string) (*term.Variable, bool) {
	v, ok := p.vars[name]
	return v, ok
}

// Terms parses the document's terms
func (p *Program) Terms() ([]term.Term, error) {
	terms := make([]term.Term, 0, len(p.doc.Terms))
	for _, text := range p.doc.Terms {
		t, err := p.ParseTerm(text)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}

// Build declares everything d holds into ctx, and returns a program whose rewriter,
// configured with opts, holds d's rules
func (d *Document) Build(ctx *hrw.Context, opts ...rewrite.Option) (*Program, error) {
	p := &Program{
		doc:          d,
		ctx:          ctx,
		constructors: make(map[string]*algebra.Constructor, len(d.Constructors)),
		vars:         make(map[string]*term.Variable, len(d.Variables)),
		logger:       log.Section("decl").With("context", ctx.ID().String()),
	}
	steps := []func() error{p.declareSorts, p.declareConstructors, p.declareVariables}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	if d.StrictSorting {
		opts = append([]rewrite.Option{rewrite.WithStrictSorting()}, opts...)
	}
	p.rewriter = ctx.NewRewriter(opts...)
	if err := p.declareRules(); err != nil {
		return nil, err
	}
	p.logger.Info("built declarations",
		"sorts", len(d.Sorts),
		"constructors", len(d.Constructors),
		"rules", p.rewriter.Rules().Len())
	return p, nil
}

func (p *Program) declareSorts() error {
	if err := p.ctx.Sorts(p.doc.Sorts...); err != nil {
		return err
	}
	for _, edge := range p.doc.Subsorts {
		if err := p.ctx.Subsort(edge.Parent, edge.Child); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) declareConstructors() error {
	sig := p.ctx.Signature()
	seen := set.New[string](len(p.doc.Constructors))
	for _, c := range p.doc.Constructors {
		if !seen.Insert(c.ID) {
			return hrwerr.New(hrwerr.DeclarationError{Where: "constructor " + c.ID, Reason: "declared twice"})
		}
		var (
			cs  *algebra.Constructor
			err error
		)
		switch c.Kind {
		case "literal":
			cs, err = sig.DeclareLiteral(c.Sort, c.DisplayName())
		case "leaf":
			cs, err = sig.DeclareLeaf(c.Sort, c.DisplayName())
		case "free":
			cs, err = sig.DeclareFree(c.Sort, c.DisplayName(), c.Domain)
		default:
			err = hrwerr.New(hrwerr.DeclarationError{Where: "constructor " + c.ID, Reason: "unknown kind " + c.Kind})
		}
		if err != nil {
			return err
		}
		p.constructors[c.ID] = cs
	}
	return nil
}

func (p *Program) declareVariables() error {
	ids := util.MapIter(slices.Values(p.doc.Constructors), func(c Constructor) string { return c.ID })
	taken := util.SetFromSeq(ids, len(p.doc.Constructors)+len(p.doc.Variables))
	for _, v := range p.doc.Variables {
		if !taken.Insert(v.Name) {
			return hrwerr.New(hrwerr.DeclarationError{
				Where:  "variable " + v.Name,
				Reason: "the name is already used by a constructor or a variable",
			})
		}
		variable, err := p.ctx.Store().MakeNamedVariable(v.Name, v.Spec)
		if err != nil {
			return err
		}
		p.vars[v.Name] = variable
	}
	return nil
}

func (p *Program) declareRules() error {
	var compiler *guardCompiler
	for i, r := range p.doc.Rules {
		where := fmt.Sprintf("rule %d (%s -> %s)", i, r.Pattern, r.Image)
		pattern, err := p.ParseTerm(r.Pattern)
		if err != nil {
			return err
		}
		image, err := p.ParseTerm(r.Image)
		if err != nil {
			return err
		}
		var g rewrite.Guard
		if r.Guard != nil {
			if compiler == nil {
				if compiler, err = newGuardCompiler(); err != nil {
					return err
				}
			}
			if g, err = p.buildGuard(compiler, where, r.Guard); err != nil {
				return err
			}
		}
		if _, err := p.rewriter.Add(pattern, image, g); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) buildGuard(compiler *guardCompiler, where string, decl *Guard) (rewrite.Guard, error) {
	args := make([]*term.Variable, len(decl.Args))
	for i, name := range decl.Args {
		v, ok := p.vars[name]
		if !ok || v.IsSequence() {
			return nil, hrwerr.New(hrwerr.DeclarationError{Where: where, Reason: fmt.Sprintf("guard argument '%s' is not a plain variable", name)})
		}
		args[i] = v
	}
	var (
		bind    *term.Variable
		literal *algebra.Constructor
	)
	if decl.Bind != "" {
		var ok bool
		if bind, ok = p.vars[decl.Bind]; !ok || bind.IsSequence() {
			return nil, hrwerr.New(hrwerr.DeclarationError{Where: where, Reason: fmt.Sprintf("guard binding '%s' is not a plain variable", decl.Bind)})
		}
		if literal, ok = p.constructors[decl.Literal]; !ok || literal.Kind() != algebra.Literal {
			return nil, hrwerr.New(hrwerr.DeclarationError{Where: where, Reason: fmt.Sprintf("'%s' is not a literal constructor", decl.Literal)})
		}
	}
	fn, err := compiler.compile(decl.Func, len(args), bind != nil)
	if err != nil {
		return nil, hrwerr.New(hrwerr.GuardError{Rule: where, From: err})
	}
	return guard(where, fn, args, bind, literal), nil
}
