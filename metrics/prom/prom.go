// Package prom exports tracker events as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/hotkeys/policy"
	"github.com/IvanBrykalov/hotkeys/topkeys"
)

// Adapter implements topkeys.Metrics. Safe for concurrent use.
type Adapter struct {
	hits    prometheus.Counter
	misses  prometheus.Counter
	rejects prometheus.Counter
	evicts  *prometheus.CounterVec
	tracked prometheus.Gauge

	// children resolved once; Evict runs under a tracker lock
	byReason [3]prometheus.Counter
}

// New constructs the adapter and registers its collectors.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	a := &Adapter{
		hits:    counter("hits_total", "Accesses to already tracked keys"),
		misses:  counter("misses_total", "Accesses to untracked keys"),
		rejects: counter("rejections_total", "Missed keys the policy declined to track"),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Tracked keys dropped, by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "tracked_keys",
			Help:        "Number of tracked keys",
			ConstLabels: constLabels,
		}),
	}
	for _, r := range []policy.EvictReason{policy.EvictCapacity, policy.EvictThreshold, policy.EvictReplace} {
		a.byReason[r] = a.evicts.WithLabelValues(r.String())
	}
	reg.MustRegister(a.hits, a.misses, a.rejects, a.evicts, a.tracked)
	return a
}

func (a *Adapter) Hit()    { a.hits.Inc() }
func (a *Adapter) Miss()   { a.misses.Inc() }
func (a *Adapter) Reject() { a.rejects.Inc() }

// Admit counts a newly tracked key.
func (a *Adapter) Admit() { a.tracked.Inc() }

// Evict counts a dropped key under its reason label.
func (a *Adapter) Evict(r policy.EvictReason) {
	a.tracked.Dec()
	if int(r) >= 0 && int(r) < len(a.byReason) {
		a.byReason[r].Inc()
		return
	}
	a.evicts.WithLabelValues(r.String()).Inc()
}

var _ topkeys.Metrics = (*Adapter)(nil)
