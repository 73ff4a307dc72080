// Package metrics holds the peripheral's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsTotal counts payment attempts by final result.
	PaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payterm_payments_total",
		Help: "Payment attempts by result",
	}, []string{"result"})

	// ReversalsTotal counts signature-entry reversals issued.
	ReversalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payterm_reversals_total",
		Help: "Reversals issued for signature-entry authorizations",
	})

	// TerminalCallDuration observes blocking terminal round-trips by op.
	TerminalCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payterm_terminal_call_duration_seconds",
		Help:    "Terminal call latency",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"op"})

	// DriverLaunchesTotal counts terminal-driver process launches.
	DriverLaunchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payterm_driver_launches_total",
		Help: "Terminal driver process launches",
	})

	// DriverKillsTotal counts stale driver instances terminated.
	DriverKillsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payterm_driver_kills_total",
		Help: "Stale terminal driver processes terminated",
	})
)
