// Package metrics exports engine activity as Prometheus collectors, wired in
// through the engine's lifecycle hooks.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/itzneel05/voxagent"
)

// Collector holds the per-engine metric vectors.
type Collector struct {
	turns         *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	gatewayErrors *prometheus.CounterVec
	modeSwitches  *prometheus.CounterVec
	finalized     *prometheus.CounterVec
}

// NewCollector creates the metric vectors and registers them with reg. Pass
// prometheus.DefaultRegisterer for the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxagent_turns_total",
			Help: "Total processed user turns",
		}, []string{"agent_type", "action"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "voxagent_turn_duration_seconds",
			Help: "Turn processing duration including the gateway call",
		}, []string{"agent_type"}),
		gatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxagent_gateway_errors_total",
			Help: "Gateway failures that degraded a turn to scripted prompts",
		}, []string{"agent_type"}),
		modeSwitches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxagent_mode_switches_total",
			Help: "Mode transitions, split by user-requested vs schema-driven",
		}, []string{"agent_type", "to", "explicit"}),
		finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voxagent_sessions_finalized_total",
			Help: "Sessions frozen into final records",
		}, []string{"agent_type"}),
	}
	if reg != nil {
		reg.MustRegister(c.turns, c.turnDuration, c.gatewayErrors, c.modeSwitches, c.finalized)
	}
	return c
}

// Hooks returns engine hooks that record into the collector.
func (c *Collector) Hooks() voxagent.Hooks {
	return voxagent.Hooks{
		OnTurn: func(ctx context.Context, e *voxagent.TurnEvent) {
			c.turns.WithLabelValues(e.AgentType, string(e.Action)).Inc()
			c.turnDuration.WithLabelValues(e.AgentType).Observe(e.Duration.Seconds())
		},
		OnGatewayError: func(ctx context.Context, e *voxagent.GatewayErrorEvent) {
			c.gatewayErrors.WithLabelValues(e.AgentType).Inc()
		},
		OnModeSwitch: func(ctx context.Context, e *voxagent.ModeSwitchEvent) {
			explicit := "false"
			if e.Explicit {
				explicit = "true"
			}
			c.modeSwitches.WithLabelValues(e.AgentType, e.To, explicit).Inc()
		},
		OnFinalize: func(ctx context.Context, e *voxagent.FinalizeEvent) {
			c.finalized.WithLabelValues(e.AgentType).Inc()
		},
	}
}
