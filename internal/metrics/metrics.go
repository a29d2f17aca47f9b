// Package metrics exposes rewriting progress as prometheus counters
package metrics

import (
	"github.com/cottand/hrewrite/rewrite"
	"github.com/cottand/hrewrite/term"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is a rewrite.Observer. Rule counters are labelled with the display name
// of the rule's head constructor.
type Collector struct {
	applied  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	memoHits prometheus.Counter
}

var _ rewrite.Observer = (*Collector)(nil)

func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		applied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hrw_rules_applied_total",
			Help: "Rewrite rules applied, by head constructor",
		}, []string{"head"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hrw_guard_rejections_total",
			Help: "Matches refused by a rule guard, by head constructor",
		}, []string{"head"}),
		memoHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "hrw_memo_hits_total",
			Help: "Terms whose normal form was already known",
		}),
	}
}

func head(rule *rewrite.Rule) string {
	return term.ConstructorOf(rule.Pattern()).Name()
}

func (c *Collector) RuleApplied(rule *rewrite.Rule) {
	c.applied.WithLabelValues(head(rule)).Inc()
}

func (c *Collector) GuardRejected(rule *rewrite.Rule) {
	c.rejected.WithLabelValues(head(rule)).Inc()
}

func (c *Collector) MemoHit() {
	c.memoHits.Inc()
}

// Summary gathers reg and returns the value of every counter family, summed over labels
func Summary(reg prometheus.Gatherer) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(families))
	for _, family := range families {
		for _, m := range family.GetMetric() {
			out[family.GetName()] += m.GetCounter().GetValue()
		}
	}
	return out, nil
}
