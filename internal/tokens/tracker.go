// Package tokens implements cross-session token usage accounting.
// AgentRunner calls Record at the same point it updates its own
// in-memory cumulative counters, so this is the same numbers viewed
// across agents and sessions rather than a second source of truth.
package tokens

import (
	"sort"
	"sync"

	"github.com/teamkit/teamkit/internal/ports"
)

// SessionTotals is one session's summed usage, returned by AllSessions.
type SessionTotals struct {
	SessionID string
	Usage     ports.TokenUsage
}

// Tracker accumulates token usage per (session, agent).
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]map[string]ports.TokenUsage
}

// NewTracker builds an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]map[string]ports.TokenUsage)}
}

// Record accumulates prompt/completion tokens for (session, agent).
func (t *Tracker) Record(session, agent string, prompt, completion int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	agents, ok := t.sessions[session]
	if !ok {
		agents = make(map[string]ports.TokenUsage)
		t.sessions[session] = agents
	}
	u := agents[agent]
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	agents[agent] = u
}

// SessionUsage returns a snapshot of every agent's usage within session.
func (t *Tracker) SessionUsage(session string) map[string]ports.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	agents := t.sessions[session]
	out := make(map[string]ports.TokenUsage, len(agents))
	for k, v := range agents {
		out[k] = v
	}
	return out
}

// Totals sums usage across every agent in session.
func (t *Tracker) Totals(session string) ports.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total ports.TokenUsage
	for _, u := range t.sessions[session] {
		total.PromptTokens += u.PromptTokens
		total.CompletionTokens += u.CompletionTokens
	}
	return total
}

// AllSessions returns summed totals for every tracked session, sorted
// by session id for stable output.
func (t *Tracker) AllSessions() []SessionTotals {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SessionTotals, 0, len(t.sessions))
	for sid, agents := range t.sessions {
		var total ports.TokenUsage
		for _, u := range agents {
			total.PromptTokens += u.PromptTokens
			total.CompletionTokens += u.CompletionTokens
		}
		out = append(out, SessionTotals{SessionID: sid, Usage: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// ClearSession discards every agent's usage for session.
func (t *Tracker) ClearSession(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, session)
}
