// Package team implements TeamEngine, the session-scoped scheduler:
// it resolves the agent hierarchy, runs AgentRunner turns in parallel
// rounds, enforces idle-nudge and idle-timeout, and orchestrates
// graceful shutdown.
package team

import "github.com/teamkit/teamkit/internal/domain"

// colorPalette is the fixed four-color rotation agents are assigned
// from by roster index.
var colorPalette = []string{"blue", "green", "orange", "purple"}

// resolveHierarchy picks the top leader and a parent for every other
// agent:
//  1. top leader = first agent with role leader, else the first agent.
//  2. every other agent's parent = the first agent in its connections
//     list with role leader that isn't itself; falls back to the top
//     leader.
func resolveHierarchy(agents []domain.AgentConfig) (topLeader string, parents map[string]string, colors map[string]string) {
	byName := make(map[string]domain.AgentConfig, len(agents))
	for _, a := range agents {
		byName[a.Name] = a
	}

	topLeader = agents[0].Name
	for _, a := range agents {
		if a.Role == domain.RoleLeader {
			topLeader = a.Name
			break
		}
	}

	parents = make(map[string]string, len(agents))
	colors = make(map[string]string, len(agents))
	for i, a := range agents {
		colors[a.Name] = colorPalette[i%len(colorPalette)]
		if a.Name == topLeader {
			continue
		}
		parents[a.Name] = findParent(a, byName, topLeader)
	}
	return topLeader, parents, colors
}

func findParent(agent domain.AgentConfig, byName map[string]domain.AgentConfig, topLeader string) string {
	for _, connName := range agent.Connections {
		if connName == agent.Name {
			continue
		}
		if conn, ok := byName[connName]; ok && conn.Role == domain.RoleLeader {
			return connName
		}
	}
	return topLeader
}
