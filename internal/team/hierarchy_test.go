package team

import (
	"testing"

	"github.com/teamkit/teamkit/internal/domain"
)

func TestResolveHierarchyAssignsColorsAndParents(t *testing.T) {
	agents := []domain.AgentConfig{
		{Name: "lead", Role: domain.RoleLeader},
		{Name: "worker-a", Role: domain.RoleTeammate, Connections: []string{"lead"}},
		{Name: "worker-b", Role: domain.RoleTeammate, Connections: []string{"lead"}},
	}

	topLeader, parents, colors := resolveHierarchy(agents)
	if topLeader != "lead" {
		t.Fatalf("expected top leader 'lead', got %q", topLeader)
	}
	if parents["worker-a"] != "lead" || parents["worker-b"] != "lead" {
		t.Fatalf("expected both workers' parent to be lead, got %+v", parents)
	}
	if _, hasParent := parents["lead"]; hasParent {
		t.Fatal("top leader must not have a parent entry")
	}

	want := map[string]string{"lead": "blue", "worker-a": "green", "worker-b": "orange"}
	for name, color := range want {
		if colors[name] != color {
			t.Fatalf("color[%s] = %s, want %s", name, colors[name], color)
		}
	}
}

func TestResolveHierarchyFallsBackToFirstAgentWhenNoLeaderRole(t *testing.T) {
	agents := []domain.AgentConfig{
		{Name: "alpha", Role: domain.RoleTeammate},
		{Name: "beta", Role: domain.RoleTeammate, Connections: []string{"alpha"}},
	}
	topLeader, parents, _ := resolveHierarchy(agents)
	if topLeader != "alpha" {
		t.Fatalf("expected fallback to first agent 'alpha', got %q", topLeader)
	}
	if parents["beta"] != "alpha" {
		t.Fatalf("expected beta's parent to fall back to top leader, got %q", parents["beta"])
	}
}

func TestResolveHierarchyPicksFirstLeaderConnection(t *testing.T) {
	agents := []domain.AgentConfig{
		{Name: "top", Role: domain.RoleLeader},
		{Name: "sub-lead", Role: domain.RoleLeader, Connections: []string{"top"}},
		{Name: "worker", Role: domain.RoleTeammate, Connections: []string{"sub-lead", "top"}},
	}
	_, parents, _ := resolveHierarchy(agents)
	if parents["worker"] != "sub-lead" {
		t.Fatalf("expected worker's parent to be the first leader connection 'sub-lead', got %q", parents["worker"])
	}
}
