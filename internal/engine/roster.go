// Package engine implements the agent-facing half of the orchestration
// kernel: the tool executor, the per-turn context builder, and the
// agent runner's turn loop. The session-level TeamEngine that ties them
// together lives in package team.
package engine

import "github.com/teamkit/teamkit/internal/domain"

// Roster is the read-only view of a session's agent hierarchy that the
// tool executor and context builder need: who exists, who reports to
// whom, and the color each agent was assigned at construction.
type Roster interface {
	Agents() []domain.AgentConfig
	AgentNames() []string
	ParentOf(agent string) (string, bool)
	ColorOf(agent string) string
	Lookup(agent string) (domain.AgentConfig, bool)
}
