// Package hrw ties the sort lattice, the signature and the term store of one rewriting
// setup together, and hands out rewriters that share them.
package hrw

import (
	"log/slog"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/internal/log"
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/google/uuid"
)

// Context owns every declaration. It is not safe for concurrent use.
type Context struct {
	id        uuid.UUID
	lattice   *algebra.Lattice
	signature *algebra.Signature
	store     *term.Store
	rewriters []*rewrite.Rewriter
	logger    *slog.Logger
}

func NewContext() *Context {
	id := uuid.New()
	lattice := algebra.NewLattice()
	signature := algebra.NewSignature(lattice)
	return &Context{
		id:        id,
		lattice:   lattice,
		signature: signature,
		store:     term.NewStore(signature),
		logger:    log.Section("rewrite").With("context", id.String()),
	}
}

func (c *Context) ID() uuid.UUID                 { return c.id }
func (c *Context) Lattice() *algebra.Lattice     { return c.lattice }
func (c *Context) Signature() *algebra.Signature { return c.signature }
func (c *Context) Store() *term.Store            { return c.store }

// Sorts declares every name as a sort
func (c *Context) Sorts(names ...string) error {
	for _, name := range names {
		if _, err := c.lattice.DeclareSort(name); err != nil {
			return err
		}
	}
	return nil
}

// Subsort records child ≤ parent, with the argument order of Lattice.DeclareSubsort
func (c *Context) Subsort(parent, child string) error {
	return c.lattice.DeclareSubsort(parent, child)
}

// Vars creates one fresh variable per spec
func (c *Context) Vars(specs ...string) ([]*term.Variable, error) {
	vars := make([]*term.Variable, len(specs))
	for i, spec := range specs {
		v, err := c.store.MakeVariable(spec)
		if err != nil {
			return nil, err
		}
		vars[i] = v
	}
	return vars, nil
}

// NewRewriter returns an empty rewriter over the context's store. Its logs carry the
// context ID unless opts replace the logger.
func (c *Context) NewRewriter(opts ...rewrite.Option) *rewrite.Rewriter {
	opts = append([]rewrite.Option{rewrite.WithLogger(c.logger)}, opts...)
	rw := rewrite.NewRewriter(c.store, opts...)
	c.rewriters = append(c.rewriters, rw)
	return rw
}

// Reset forgets every sort, constructor and rule. Terms, variables and rewriters created
// before remain allocated but must not be used with the new declarations.
func (c *Context) Reset() {
	for _, rw := range c.rewriters {
		rw.Clear()
	}
	c.rewriters = nil
	c.store.Clear()
	c.signature.Clear()
	c.lattice.Clear()
	c.logger.Info("context reset")
}
