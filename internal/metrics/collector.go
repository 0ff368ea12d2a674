// Package metrics exposes launcher and client counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "overlay"

// Collector records launcher and client events on a private registry.
type Collector struct {
	statusTransitions *prometheus.CounterVec
	launchOutcomes    *prometheus.CounterVec
	pendingReplaced   prometheus.Counter
	commands          *prometheus.CounterVec
	versionMismatches *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a Collector with every metric registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
	}

	c.statusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launcher",
			Name:      "status_transitions_total",
			Help:      "Total number of launcher status transitions",
		},
		[]string{"from", "to"},
	)

	c.launchOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launcher",
			Name:      "launch_outcomes_total",
			Help:      "Total number of finished launch attempts by outcome",
		},
		[]string{"outcome"},
	)

	c.pendingReplaced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "launcher",
			Name:      "pending_replaced_total",
			Help:      "Total number of buffered commands overwritten before delivery",
		},
	)

	c.commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Total number of client commands by kind and disposition",
		},
		[]string{"kind", "disposition"},
	)

	c.versionMismatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "version_mismatches_total",
			Help:      "Total number of renderer version mismatches seen by the client",
		},
		[]string{"kind"},
	)

	c.registry.MustRegister(
		c.statusTransitions,
		c.launchOutcomes,
		c.pendingReplaced,
		c.commands,
		c.versionMismatches,
	)
	return c
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// StatusTransition implements launcher.Metrics.
func (c *Collector) StatusTransition(from, to string) {
	c.statusTransitions.WithLabelValues(from, to).Inc()
}

// LaunchOutcome implements launcher.Metrics.
func (c *Collector) LaunchOutcome(outcome string) {
	c.launchOutcomes.WithLabelValues(outcome).Inc()
}

// PendingReplaced implements launcher.Metrics.
func (c *Collector) PendingReplaced() {
	c.pendingReplaced.Inc()
}

// CommandHandled implements client.Metrics.
func (c *Collector) CommandHandled(kind, disposition string) {
	c.commands.WithLabelValues(kind, disposition).Inc()
}

// VersionMismatch implements client.Metrics.
func (c *Collector) VersionMismatch(kind string) {
	c.versionMismatches.WithLabelValues(kind).Inc()
}
