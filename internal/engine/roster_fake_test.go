package engine

import "github.com/teamkit/teamkit/internal/domain"

// fakeRoster is a minimal Roster for unit tests, independent of
// TeamEngine's real hierarchy-resolution logic.
type fakeRoster struct {
	agents  []domain.AgentConfig
	parents map[string]string
	colors  map[string]string
}

func newFakeRoster(agents []domain.AgentConfig, parents map[string]string) *fakeRoster {
	colors := make(map[string]string, len(agents))
	palette := []string{"blue", "green", "orange", "purple"}
	for i, a := range agents {
		colors[a.Name] = palette[i%len(palette)]
	}
	return &fakeRoster{agents: agents, parents: parents, colors: colors}
}

func (f *fakeRoster) Agents() []domain.AgentConfig { return f.agents }

func (f *fakeRoster) AgentNames() []string {
	names := make([]string, len(f.agents))
	for i, a := range f.agents {
		names[i] = a.Name
	}
	return names
}

func (f *fakeRoster) ParentOf(agent string) (string, bool) {
	p, ok := f.parents[agent]
	return p, ok
}

func (f *fakeRoster) ColorOf(agent string) string { return f.colors[agent] }

func (f *fakeRoster) Lookup(agent string) (domain.AgentConfig, bool) {
	for _, a := range f.agents {
		if a.Name == agent {
			return a, true
		}
	}
	return domain.AgentConfig{}, false
}
