package metrics

import (
	"testing"

	"github.com/cottand/hrewrite/algebra"
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	l := algebra.NewLattice()
	_, err := l.DeclareSort("v")
	require.NoError(t, err)
	sig := algebra.NewSignature(l)
	store := term.NewStore(sig)
	s, err := sig.DeclareFree("v", "s", "v")
	require.NoError(t, err)
	zeroCs, err := sig.DeclareLeaf("v", "zero")
	require.NoError(t, err)
	zero, err := store.MakeLeaf(zeroCs)
	require.NoError(t, err)
	x, err := store.MakeVariable("v")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	collector := New(reg)
	rw := rewrite.NewRewriter(store, rewrite.WithObserver(collector))

	pattern, err := store.MakeFree(s, x)
	require.NoError(t, err)
	// s(x) -> x, unless x is zero
	_, err = rw.Add(pattern, x, func(rw *rewrite.Rewriter, sub *term.Substitution) bool {
		bound, _ := sub.Lookup(x)
		return !term.Equal(bound, zero)
	})
	require.NoError(t, err)

	one, err := store.MakeFree(s, zero)
	require.NoError(t, err)
	two, err := store.MakeFree(s, one)
	require.NoError(t, err)

	nf, err := rw.Rewrite(two)
	require.NoError(t, err)
	assert.Same(t, one, nf)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.rejected.WithLabelValues("s")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.applied.WithLabelValues("s")))
	// the reduct s(zero) was already known to be normal
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.memoHits))

	_, err = rw.Rewrite(two)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.memoHits))

	summary, err := Summary(reg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, summary["hrw_rules_applied_total"])
	assert.Equal(t, 1.0, summary["hrw_guard_rejections_total"])
	assert.Equal(t, 2.0, summary["hrw_memo_hits_total"])
}
