package team

import (
	"fmt"
	"sync"
	"time"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/engine"
	"github.com/teamkit/teamkit/internal/llm"
	"github.com/teamkit/teamkit/internal/logging"
	"github.com/teamkit/teamkit/internal/ports"
	"github.com/teamkit/teamkit/internal/store"
	"github.com/teamkit/teamkit/internal/tokens"
)

// Config bundles everything TeamEngine needs to construct one session.
type Config struct {
	SessionID   string
	BaseDir     string
	Agents      []domain.AgentConfig
	APIKeys     map[string]string // provider -> key
	Factory     *llm.Factory
	Events      *broadcast.Broadcaster
	Tracker     *tokens.Tracker
	HistorySink ports.HistorySink // optional; nil is a valid no-op sink
	Metrics     *Metrics          // optional
	Timing      Timing            // optional; zero fields fall back to DefaultTiming()
}

// TeamEngine owns one session: its runners, its hierarchy, its
// scheduler, and the stores and broadcaster it drives. It satisfies
// engine.Roster so it can be handed directly to ContextBuilder,
// Executor, and AgentRunner.
type TeamEngine struct {
	sessionID string
	baseDir   string
	agents    []domain.AgentConfig
	byName    map[string]domain.AgentConfig
	topLeader string
	parents   map[string]string
	colors    map[string]string

	inbox    *store.InboxStore
	tasks    *store.TaskStore
	events   *broadcast.Broadcaster
	tracker  *tokens.Tracker
	sink     ports.HistorySink
	metrics  *Metrics
	log      *logging.ComponentLogger
	executor *engine.Executor
	ctxBuild *engine.ContextBuilder

	runners map[string]*engine.AgentRunner
	timing  Timing

	mu         sync.Mutex
	lastActive map[string]time.Time
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// New constructs a TeamEngine, resolving the hierarchy and building one
// AgentRunner per configured agent.
func New(cfg Config) (*TeamEngine, error) {
	if len(cfg.Agents) == 0 {
		return nil, fmt.Errorf("team: session %s: at least one agent is required", cfg.SessionID)
	}

	topLeader, parents, colors := resolveHierarchy(cfg.Agents)
	byName := make(map[string]domain.AgentConfig, len(cfg.Agents))
	for _, a := range cfg.Agents {
		byName[a.Name] = a
	}

	te := &TeamEngine{
		sessionID:  cfg.SessionID,
		baseDir:    cfg.BaseDir,
		agents:     cfg.Agents,
		byName:     byName,
		topLeader:  topLeader,
		parents:    parents,
		colors:     colors,
		inbox:      store.NewInboxStore(cfg.BaseDir, cfg.SessionID),
		tasks:      store.NewTaskStore(cfg.BaseDir, cfg.SessionID),
		events:     cfg.Events,
		tracker:    cfg.Tracker,
		sink:       cfg.HistorySink,
		metrics:    cfg.Metrics,
		log:        logging.NewComponentLogger("TeamEngine"),
		lastActive: make(map[string]time.Time, len(cfg.Agents)),
		runners:    make(map[string]*engine.AgentRunner, len(cfg.Agents)),
		timing:     cfg.Timing.withDefaults(),
	}

	te.executor = engine.NewExecutor(te.inbox, te.tasks, te, te.hooks())
	te.ctxBuild = engine.NewContextBuilder(te.inbox, te.tasks, te)

	for _, a := range cfg.Agents {
		apiKey := cfg.APIKeys[a.Provider]
		var provider ports.LLMProvider
		if cfg.Factory != nil {
			p, err := cfg.Factory.GetClient(llm.ClientKey{Provider: a.Provider, APIKey: apiKey})
			if err != nil {
				return nil, fmt.Errorf("team: session %s: agent %s: %w", cfg.SessionID, a.Name, err)
			}
			provider = p
		}
		te.runners[a.Name] = engine.NewAgentRunner(
			cfg.SessionID, a, apiKey,
			te.inbox, te.tasks, te.ctxBuild, te.executor, te,
			provider, te.tracker, te.events,
		)
	}

	return te, nil
}

// --- engine.Roster -----------------------------------------------------

func (t *TeamEngine) Agents() []domain.AgentConfig { return t.agents }

func (t *TeamEngine) AgentNames() []string {
	names := make([]string, len(t.agents))
	for i, a := range t.agents {
		names[i] = a.Name
	}
	return names
}

func (t *TeamEngine) ParentOf(agent string) (string, bool) {
	p, ok := t.parents[agent]
	return p, ok
}

func (t *TeamEngine) ColorOf(agent string) string { return t.colors[agent] }

func (t *TeamEngine) Lookup(agent string) (domain.AgentConfig, bool) {
	a, ok := t.byName[agent]
	return a, ok
}

// TopLeader returns the name of the session's unique top leader.
func (t *TeamEngine) TopLeader() string { return t.topLeader }

// SessionID returns the session's id.
func (t *TeamEngine) SessionID() string { return t.sessionID }

// Tasks returns a snapshot of every task in the session's shared store,
// for external inspection by a dashboard or API handler.
func (t *TeamEngine) Tasks() ([]domain.Task, error) { return t.tasks.ListTasks() }
