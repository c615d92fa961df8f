package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teamkit/teamkit/internal/domain"
)

// rosterFile is the on-disk shape of a --roster YAML document: a flat
// list of agents, each optionally declaring its connections.
type rosterFile struct {
	Agents []domain.AgentConfig `yaml:"agents"`
}

func loadRoster(path string) ([]domain.AgentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("roster: read %s: %w", path, err)
	}
	var rf rosterFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("roster: parse %s: %w", path, err)
	}
	if len(rf.Agents) == 0 {
		return nil, fmt.Errorf("roster: %s declares no agents", path)
	}
	return rf.Agents, nil
}

// defaultRoster is used when --roster is omitted: a single top leader
// and one teammate, enough to exercise a session end to end.
func defaultRoster() []domain.AgentConfig {
	return []domain.AgentConfig{
		{Name: "lead", Role: domain.RoleLeader, Connections: []string{"worker"}},
		{Name: "worker", Role: domain.RoleTeammate, Connections: []string{"lead"}},
	}
}
