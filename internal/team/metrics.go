package team

import "github.com/prometheus/client_golang/prometheus"

// Metrics are TeamEngine's prometheus instruments.
type Metrics struct {
	TurnsRun        *prometheus.CounterVec
	ToolCallsRouted *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	SchedulerRounds prometheus.Counter
}

// MustNewMetrics registers TeamEngine's instruments on reg.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TurnsRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamkit_agent_turns_total",
			Help: "Agent turns run, by agent name.",
		}, []string{"agent"}),
		ToolCallsRouted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamkit_tool_calls_total",
			Help: "Tool side effects routed through the executor hooks: one per message delivered (tool=SendMessage) and one per task created or updated (tool=TaskUpdate). TaskList and TaskGet are not counted.",
		}, []string{"tool"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teamkit_active_sessions",
			Help: "Sessions with a running scheduler.",
		}),
		SchedulerRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "teamkit_scheduler_rounds_total",
			Help: "Scheduler rounds executed across all sessions.",
		}),
	}
	reg.MustRegister(m.TurnsRun, m.ToolCallsRouted, m.ActiveSessions, m.SchedulerRounds)
	return m
}
