// Package session wires the orchestration kernel's pieces
// (llm.Factory, broadcast.Broadcaster, tokens.Tracker, history.FileSink)
// into runnable team.TeamEngine instances, and tracks the set of
// sessions currently live in a process.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/config"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/history"
	"github.com/teamkit/teamkit/internal/llm"
	"github.com/teamkit/teamkit/internal/logging"
	"github.com/teamkit/teamkit/internal/team"
	"github.com/teamkit/teamkit/internal/tokens"
)

// Manager owns every session created in this process: it allocates
// session ids, constructs a team.TeamEngine per session, and keeps the
// shared factory/broadcaster/tracker/metrics singletons that every
// session's engine is built from.
type Manager struct {
	cfg     config.Config
	factory *llm.Factory
	events  *broadcast.Broadcaster
	tracker *tokens.Tracker
	sink    *history.FileSink
	metrics *team.Metrics
	log     *logging.ComponentLogger

	mu       sync.Mutex
	sessions map[string]*team.TeamEngine
}

// NewManager builds a Manager from cfg. No provider builders are
// registered here; callers add them with RegisterProvider.
func NewManager(cfg config.Config, events *broadcast.Broadcaster, metrics *team.Metrics) (*Manager, error) {
	factory, err := llm.NewFactory(cfg.LLMCacheSize)
	if err != nil {
		return nil, fmt.Errorf("session: new llm factory: %w", err)
	}
	return &Manager{
		cfg:      cfg,
		factory:  factory,
		events:   events,
		tracker:  tokens.NewTracker(),
		sink:     history.NewFileSink(cfg.BaseDir),
		metrics:  metrics,
		log:      logging.NewComponentLogger("SessionManager"),
		sessions: make(map[string]*team.TeamEngine),
	}, nil
}

// RegisterProvider wires a provider name to a client builder. Callers
// typically register one builder per LLM backend (e.g. "openai",
// "anthropic") at process startup before any session is created.
func (m *Manager) RegisterProvider(name string, builder llm.Builder) {
	m.factory.Register(name, builder)
}

// Create allocates a new session id and TeamEngine for agents, and
// starts it running in the background. The caller is responsible for
// eventually calling Stop and Cleanup.
func (m *Manager) Create(ctx context.Context, agents []domain.AgentConfig, apiKeys map[string]string) (string, *team.TeamEngine, error) {
	sessionID := uuid.NewString()

	te, err := team.New(team.Config{
		SessionID:   sessionID,
		BaseDir:     m.cfg.BaseDir,
		Agents:      agents,
		APIKeys:     apiKeys,
		Factory:     m.factory,
		Events:      m.events,
		Tracker:     m.tracker,
		HistorySink: m.sink,
		Metrics:     m.metrics,
		Timing: team.Timing{
			IdleSleep:           m.cfg.Scheduler.IdleSleep,
			RoundSleep:          m.cfg.Scheduler.RoundSleep,
			LeaderNudgeInterval: m.cfg.Scheduler.LeaderNudgeInterval,
			IdleTimeout:         m.cfg.Scheduler.IdleTimeout,
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("session: new team engine: %w", err)
	}

	m.mu.Lock()
	m.sessions[sessionID] = te
	m.mu.Unlock()

	go func() {
		if err := te.Run(ctx); err != nil {
			m.log.Error("session %s: run: %v", sessionID, err)
		}
	}()

	return sessionID, te, nil
}

// Get returns the running engine for sessionID, if any.
func (m *Manager) Get(sessionID string) (*team.TeamEngine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	te, ok := m.sessions[sessionID]
	return te, ok
}

// End stops sessionID's engine, purges its on-disk state, and forgets it.
func (m *Manager) End(sessionID string) error {
	m.mu.Lock()
	te, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session: unknown session %s", sessionID)
	}
	te.Stop()
	return te.Cleanup()
}

// List returns every live session id.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}
