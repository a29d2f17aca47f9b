// Package rewrite normalizes terms with an innermost strategy: arguments are normalized
// before their parent, then the rules whose pattern has the same head constructor are
// tried in the order they were added. The first match accepted by the rule's guard is
// replaced by the instantiated image, and normalization resumes on the replacement.
package rewrite

import (
	"fmt"
	"log/slog"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/match"
	"github.com/cottand/hrewrite/term"
	"github.com/pkg/errors"
)

// Observer is notified of the rewriter's progress
type Observer interface {
	RuleApplied(rule *Rule)
	GuardRejected(rule *Rule)
	MemoHit()
}

type noopObserver struct{}

func (noopObserver) RuleApplied(*Rule)   {}
func (noopObserver) GuardRejected(*Rule) {}
func (noopObserver) MemoHit()            {}

type Option func(*Rewriter)

// WithMemo toggles normal form memoization, which is on by default
func WithMemo(enabled bool) Option {
	return func(rw *Rewriter) { rw.useMemo = enabled }
}

func WithObserver(o Observer) Option {
	return func(rw *Rewriter) { rw.observer = o }
}

// WithStrictSorting makes Add refuse rules whose image is not an instance of the
// pattern's sort, so that rewriting never changes the sort of a subterm
func WithStrictSorting() Option {
	return func(rw *Rewriter) { rw.strict = true }
}

func WithLogger(l *slog.Logger) Option {
	return func(rw *Rewriter) { rw.logger = slog.New(term.SlogHandler(l.Handler())) }
}

type nfEntry struct {
	from, to term.Term
}

type Rewriter struct {
	store    *term.Store
	rules    *RuleSet
	matcher  *match.Matcher
	observer Observer
	logger   *slog.Logger

	strict bool

	useMemo     bool
	memo        map[uint64][]nfEntry
	memoVersion uint64

	count int
	// limit is the number of rule applications allowed in the current call, negative
	// when unbounded
	limit   int
	failure error
}

func NewRewriter(store *term.Store, opts ...Option) *Rewriter {
	rw := &Rewriter{
		store:    store,
		rules:    NewRuleSet(),
		matcher:  match.NewMatcher(store.Lattice()),
		observer: noopObserver{},
		logger:   term.Logger("rewrite"),
		useMemo:  true,
		memo:     make(map[uint64][]nfEntry),
		limit:    -1,
	}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

func (rw *Rewriter) Store() *term.Store      { return rw.store }
func (rw *Rewriter) Rules() *RuleSet         { return rw.rules }
func (rw *Rewriter) Matcher() *match.Matcher { return rw.matcher }

func (rw *Rewriter) Add(pattern, image term.Term, guard Guard) (*Rule, error) {
	if rw.strict && !rw.store.IsInstanceOf(image, algebra.Spec{Sort: pattern.Sort(), Mult: algebra.One}) {
		return nil, hrwerr.New(hrwerr.IllFormedRuleError{
			Pattern: pattern.String(),
			Image:   image.String(),
			Reason: fmt.Sprintf("the image has spec %s, which is not an instance of the pattern's sort %s",
				rw.store.SpecOf(image), rw.store.SortName(pattern)),
		})
	}
	return rw.rules.Add(pattern, image, guard)
}

// Count is the number of rules applied during the last Rewrite or RewriteN
func (rw *Rewriter) Count() int { return rw.count }

// ClearNF forgets memoized normal forms
func (rw *Rewriter) ClearNF() {
	rw.memo = make(map[uint64][]nfEntry)
}

// Clear drops every rule and memoized normal form
func (rw *Rewriter) Clear() {
	rw.rules.Clear()
	rw.ClearNF()
}

// Fail aborts the current rewrite with err. It is meant for guards that cannot decide,
// and takes effect as soon as the guard returns.
func (rw *Rewriter) Fail(err error) {
	if rw.failure == nil {
		rw.failure = err
	}
}

// Rewrite returns the normal form of t
func (rw *Rewriter) Rewrite(t term.Term) (term.Term, error) {
	return rw.run(t, -1)
}

// RewriteN is Rewrite applying at most maxSteps rules. When more would apply it returns
// the term reached so far together with hrwerr.ErrStepLimit.
func (rw *Rewriter) RewriteN(t term.Term, maxSteps int) (term.Term, error) {
	if maxSteps < 0 {
		maxSteps = 0
	}
	return rw.run(t, maxSteps)
}

func (rw *Rewriter) run(t term.Term, limit int) (term.Term, error) {
	rw.count = 0
	rw.limit = limit
	rw.failure = nil
	if rw.memoVersion != rw.rules.version {
		rw.ClearNF()
		rw.memoVersion = rw.rules.version
	}
	result, err := rw.normalize(t)
	if err != nil && !errors.Is(err, hrwerr.ErrStepLimit) {
		return nil, err
	}
	rw.logger.Debug("rewrote", "from", t, "to", result, "steps", rw.count)
	return result, err
}

func (rw *Rewriter) lookupNF(t term.Term) (term.Term, bool) {
	nf, ok := rw.findNF(t)
	if ok {
		rw.observer.MemoHit()
	}
	return nf, ok
}

func (rw *Rewriter) findNF(t term.Term) (term.Term, bool) {
	if !rw.useMemo {
		return nil, false
	}
	for _, entry := range rw.memo[t.Hash()] {
		if term.Equal(entry.from, t) {
			return entry.to, true
		}
	}
	return nil, false
}

func (rw *Rewriter) recordNF(visited []term.Term, nf term.Term) {
	if !rw.useMemo {
		return
	}
	for _, t := range visited {
		if _, ok := rw.findNF(t); ok {
			continue
		}
		rw.memo[t.Hash()] = append(rw.memo[t.Hash()], nfEntry{from: t, to: nf})
	}
}

// normalize returns the normal form of t. On hrwerr.ErrStepLimit the returned term is
// t rewritten as far as the budget allowed.
func (rw *Rewriter) normalize(t term.Term) (term.Term, error) {
	if nf, ok := rw.lookupNF(t); ok {
		return nf, nil
	}
	visited := []term.Term{t}
	current := t
	for {
		if free, ok := current.(*term.Free); ok && free.Len() > 0 {
			args := make([]term.Term, free.Len())
			for i, arg := range free.Args() {
				nf, err := rw.normalize(arg)
				if err != nil {
					if !errors.Is(err, hrwerr.ErrStepLimit) {
						return nil, err
					}
					args[i] = nf
					copy(args[i+1:], free.Args()[i+1:])
					return rw.store.Rebuild(free, args), err
				}
				args[i] = nf
			}
			current = rw.store.Rebuild(free, args)
			if current != free {
				if nf, ok := rw.lookupNF(current); ok {
					rw.recordNF(visited, nf)
					return nf, nil
				}
				visited = append(visited, current)
			}
		}

		next, err := rw.step(current)
		if err != nil {
			return current, err
		}
		if next == nil {
			rw.recordNF(visited, current)
			return current, nil
		}
		current = next
		if nf, ok := rw.lookupNF(current); ok {
			rw.recordNF(visited, nf)
			return nf, nil
		}
		visited = append(visited, current)
	}
}

// step applies the first applicable rule at the head of t, returning nil when there is none
func (rw *Rewriter) step(t term.Term) (term.Term, error) {
	for _, rule := range rw.rules.Candidates(t) {
		sub, err := rw.accept(rule, t)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		if rw.limit >= 0 && rw.count >= rw.limit {
			return nil, hrwerr.ErrStepLimit
		}
		next, err := rw.store.InstantiateGround(rule.image, sub)
		if err != nil {
			return nil, err
		}
		rw.count++
		rw.observer.RuleApplied(rule)
		rw.logger.Debug("applied rule", "rule", rule.String(), "from", t, "to", next)
		return next, nil
	}
	return nil, nil
}

// accept enumerates the matches of rule against t and returns a detached copy of the
// first one its guard accepts
func (rw *Rewriter) accept(rule *Rule, t term.Term) (*term.Substitution, error) {
	for sub := range rw.matcher.Match(rule.pattern, t) {
		if rule.guard == nil {
			return sub.Clone(), nil
		}
		snap := sub.Save()
		ok := rule.guard(rw, sub)
		if rw.failure != nil {
			return nil, rw.failure
		}
		if ok {
			return sub.Clone(), nil
		}
		sub.Restore(snap)
		rw.observer.GuardRejected(rule)
	}
	return nil, nil
}
