package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var Metrics = struct {
	EventsPublished  *prometheus.CounterVec
	HandlerPanics    *prometheus.CounterVec
	PromptsOpened    prometheus.Counter
	PromptsSettled   *prometheus.CounterVec
	PhaseTransitions *prometheus.CounterVec
	AbortsTotal      *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	ActivePlayers    prometheus.Gauge
	AdapterErrors    *prometheus.CounterVec
}{
	EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "events_published_total",
		Help:      "Events delivered through the bus by kind.",
	}, []string{"kind"}),

	HandlerPanics: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "handler_panics_total",
		Help:      "Bus handlers recovered from a panic, by event kind.",
	}, []string{"kind"}),

	PromptsOpened: promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "prompts_opened_total",
		Help:      "Interactive prompts presented to players.",
	}),

	PromptsSettled: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "prompts_settled_total",
		Help:      "Prompt resolutions by outcome (selected, cancelled, deleted).",
	}, []string{"outcome"}),

	PhaseTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "phase_transitions_total",
		Help:      "Phase entries by phase name.",
	}, []string{"phase"}),

	AbortsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "aborts_total",
		Help:      "Session aborts by trigger (command, disconnect, invariant).",
	}, []string{"trigger"}),

	ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamemaster",
		Name:      "active_sessions",
		Help:      "Number of guilds with a running game session.",
	}),

	ActivePlayers: promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gamemaster",
		Name:      "active_players",
		Help:      "Players currently committed to a game across all sessions.",
	}),

	AdapterErrors: promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gamemaster",
		Name:      "adapter_errors_total",
		Help:      "Platform adapter call failures by operation.",
	}, []string{"op"}),
}
