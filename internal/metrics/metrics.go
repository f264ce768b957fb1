// Package metrics exports parser activity as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sspkit/ssp-go/pkg/ssp"
)

const namespace = "ssp"

// Observer is an ssp.Observer that counts bytes, step results, matches and
// node transitions.
type Observer struct {
	bytes       prometheus.Counter
	results     *prometheus.CounterVec
	matches     *prometheus.CounterVec
	matchLength prometheus.Histogram
	transitions *prometheus.CounterVec
}

var _ ssp.Observer = (*Observer)(nil)

// NewObserver creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Bytes fed to the parser.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_results_total",
			Help:      "Step results by kind.",
		}, []string{"result"}),
		matches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_total",
			Help:      "Branch matches by node and pattern.",
		}, []string{"node", "pattern"}),
		matchLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_length_bytes",
			Help:      "Length of matched patterns.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_transitions_total",
			Help:      "Node changes caused by matches.",
		}, []string{"from", "to"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{o.bytes, o.results, o.matches, o.matchLength, o.transitions} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

func (o *Observer) ByteReceived(_ *ssp.Node, _ byte, _ ssp.State) {
	o.bytes.Inc()
}

func (o *Observer) BranchMatched(n *ssp.Node, b *ssp.Branch, length int) {
	o.matches.WithLabelValues(n.Name(), string(b.Pattern())).Inc()
	o.matchLength.Observe(float64(length))
}

func (o *Observer) NodeChanged(from, to *ssp.Node) {
	o.transitions.WithLabelValues(from.Name(), to.Name()).Inc()
}

func (o *Observer) Stepped(_ byte, r ssp.Result) {
	o.results.WithLabelValues(r.String()).Inc()
}
