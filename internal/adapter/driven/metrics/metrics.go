// Package metrics exposes credential lifecycle counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/credkeeper/internal/domain/port/driven"
)

const namespace = "credkeeper"

// Compile-time interface satisfaction check.
var _ driven.Metrics = (*Collector)(nil)

// Collector implements driven.Metrics with Prometheus counters.
type Collector struct {
	digestComputed  *prometheus.CounterVec
	digestFailed    *prometheus.CounterVec
	initSettled     *prometheus.CounterVec
	passwordRotated *prometheus.CounterVec
	loginAttempts   *prometheus.CounterVec
}

// NewCollector creates the counters and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		digestComputed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "digest",
				Name:      "computed_total",
				Help:      "Digests computed, by backend.",
			},
			[]string{"backend"},
		),
		digestFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "digest",
				Name:      "failures_total",
				Help:      "Digest backend failures, by backend.",
			},
			[]string{"backend"},
		),
		initSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "init",
				Name:      "settled_total",
				Help:      "Initialization cycles settled, by outcome.",
			},
			[]string{"outcome"},
		),
		passwordRotated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "password",
				Name:      "rotations_total",
				Help:      "Password rotations, by result.",
			},
			[]string{"result"},
		),
		loginAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "login",
				Name:      "attempts_total",
				Help:      "Login verification attempts, by outcome.",
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		c.digestComputed,
		c.digestFailed,
		c.initSettled,
		c.passwordRotated,
		c.loginAttempts,
	)
	return c
}

func (c *Collector) DigestComputed(backend string) {
	c.digestComputed.WithLabelValues(backend).Inc()
}

func (c *Collector) DigestFailed(backend string) {
	c.digestFailed.WithLabelValues(backend).Inc()
}

func (c *Collector) InitSettled(outcome string) {
	c.initSettled.WithLabelValues(outcome).Inc()
}

func (c *Collector) PasswordRotated(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.passwordRotated.WithLabelValues(result).Inc()
}

func (c *Collector) LoginAttempt(outcome string) {
	c.loginAttempts.WithLabelValues(outcome).Inc()
}
