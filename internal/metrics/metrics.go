// Package metrics holds the prometheus collectors of the broker.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dexonic"

type Metrics struct {
	OrdersPlaced     *prometheus.CounterVec
	OrdersReconciled *prometheus.CounterVec
	EstimateFailures *prometheus.CounterVec
	Registrations    prometheus.Counter

	BridgeCalls   *prometheus.CounterVec
	BridgeLatency prometheus.Histogram

	BalanceValue *prometheus.GaugeVec
}

// New registers the collectors on reg. A nil reg gives unregistered
// collectors, which is what tests and one-shot binaries want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OrdersPlaced: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "orders_placed_total",
				Help:      "Swap orders submitted, by side and result",
			},
			[]string{"side", "result"},
		),
		OrdersReconciled: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "orders_reconciled_total",
				Help:      "Orders moved to a terminal status",
			},
			[]string{"status"},
		),
		EstimateFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "estimate_failures_total",
				Help:      "Swap estimates that failed, by reason",
			},
			[]string{"reason"},
		),
		Registrations: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "coin_registrations_total",
				Help:      "CoinStore registrations submitted before a swap",
			},
		),
		BridgeCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "calls_total",
				Help:      "Bridge calls by outcome",
			},
			[]string{"outcome"},
		),
		BridgeLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "bridge",
				Name:      "call_duration_seconds",
				Help:      "Wall time of bridge calls, queueing included",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		BalanceValue: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "broker",
				Name:      "balance_value",
				Help:      "Last valued holding per symbol, in the settlement currency",
			},
			[]string{"symbol"},
		),
	}
}

// ObserveBridge matches bridge.Config.Observe.
func (m *Metrics) ObserveBridge(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BridgeCalls.WithLabelValues(outcome).Inc()
	m.BridgeLatency.Observe(elapsed.Seconds())
}
