package algebra

import (
	"iter"
	"log/slog"
	"slices"
	"sort"

	"github.com/cottand/hrewrite/hrwerr"
	"github.com/cottand/hrewrite/internal/log"
	"github.com/xtgo/set"
)

// Sort identifies a declared sort of a Lattice. Sorts are dense and only meaningful
// for the Lattice that declared them.
type Sort uint32

// sortIDs is a sorted, duplicate-free list of sorts, so that xtgo/set can operate on it
type sortIDs []Sort

func (s sortIDs) Len() int           { return len(s) }
func (s sortIDs) Less(i, j int) bool { return s[i] < s[j] }
func (s sortIDs) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

func (s sortIDs) contains(elem Sort) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= elem })
	return i < len(s) && s[i] == elem
}

// union returns a ∪ b without modifying either
func union(a, b sortIDs) sortIDs {
	data := make(sortIDs, 0, len(a)+len(b))
	data = append(data, a...)
	data = append(data, b...)
	return data[:set.Union(data, len(a))]
}

type sortData struct {
	name string
	// below holds every strict subsort, above every strict supersort
	below, above sortIDs
}

// Lattice holds the declared sorts and the reflexive-transitive closure of the
// declared subsort edges. The closure is updated on every DeclareSubsort, so IsSubsort
// is a binary search.
type Lattice struct {
	sorts  []sortData
	byName map[string]Sort
	logger *slog.Logger
}

func NewLattice() *Lattice {
	return &Lattice{
		byName: make(map[string]Sort),
		logger: log.Section("sorts"),
	}
}

func (l *Lattice) DeclareSort(name string) (Sort, error) {
	if _, ok := l.byName[name]; ok {
		return 0, hrwerr.New(hrwerr.DuplicateSortError{Name: name})
	}
	s := Sort(len(l.sorts))
	l.sorts = append(l.sorts, sortData{name: name})
	l.byName[name] = s
	l.logger.Debug("declared sort", "sort", name)
	return s, nil
}

func (l *Lattice) Lookup(name string) (Sort, error) {
	s, ok := l.byName[name]
	if !ok {
		return 0, hrwerr.New(hrwerr.UnknownSortError{Name: name})
	}
	return s, nil
}

func (l *Lattice) Name(s Sort) string {
	if int(s) >= len(l.sorts) {
		return "<unknown sort>"
	}
	return l.sorts[s].name
}

func (l *Lattice) Len() int { return len(l.sorts) }

func (l *Lattice) Sorts() iter.Seq[Sort] {
	return func(yield func(Sort) bool) {
		for i := range l.sorts {
			if !yield(Sort(i)) {
				return
			}
		}
	}
}

// DeclareSubsort records child ≤ parent
func (l *Lattice) DeclareSubsort(parent, child string) error {
	p, err := l.Lookup(parent)
	if err != nil {
		return err
	}
	c, err := l.Lookup(child)
	if err != nil {
		return err
	}
	l.addSubsort(p, c)
	return nil
}

func (l *Lattice) addSubsort(parent, child Sort) {
	if parent == child || l.IsSubsort(child, parent) {
		return
	}
	if l.IsSubsort(parent, child) {
		l.logger.Warn("subsort cycle, sorts become equivalent", "child", l.Name(child), "parent", l.Name(parent))
	}
	// every sort below child (child included) is now below every sort above parent
	lows := union(l.sorts[child].below, sortIDs{child})
	highs := union(l.sorts[parent].above, sortIDs{parent})
	for _, high := range highs {
		l.sorts[high].below = union(l.sorts[high].below, lows)
	}
	for _, low := range lows {
		l.sorts[low].above = union(l.sorts[low].above, highs)
	}
	l.logger.Debug("declared subsort", "child", l.Name(child), "parent", l.Name(parent))
}

// IsSubsort reports whether a ≤ b
func (l *Lattice) IsSubsort(a, b Sort) bool {
	if a == b {
		return true
	}
	if int(b) >= len(l.sorts) {
		return false
	}
	return l.sorts[b].below.contains(a)
}

// Subsorts returns every sort s with s ≤ of, of included
func (l *Lattice) Subsorts(of Sort) []Sort {
	return slices.Clone(union(l.sorts[of].below, sortIDs{of}))
}

// Supersorts returns every sort s with of ≤ s, of included
func (l *Lattice) Supersorts(of Sort) []Sort {
	return slices.Clone(union(l.sorts[of].above, sortIDs{of}))
}

func (l *Lattice) Clear() {
	l.sorts = nil
	l.byName = make(map[string]Sort)
}
