package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
)

const (
	// IdleSleep is how long the scheduler waits between readiness scans
	// when no agent has unread work.
	IdleSleep = 1 * time.Second
	// RoundSleep is the inter-round pause after a round of agent turns.
	RoundSleep = 500 * time.Millisecond
	// LeaderNudgeInterval is how often (in idle seconds) leaders get a
	// status nudge while tasks remain outstanding.
	LeaderNudgeInterval = 60 * time.Second
	// IdleTimeout ends the scheduler after this much continuous idle time.
	IdleTimeout = 300 * time.Second
)

// Timing bundles the scheduler's four timing constants so a deployment
// can override them (via config.SchedulerConfig) without touching the
// package defaults every other caller relies on.
type Timing struct {
	IdleSleep           time.Duration
	RoundSleep          time.Duration
	LeaderNudgeInterval time.Duration
	IdleTimeout         time.Duration
}

// DefaultTiming returns the package's default scheduler constants.
func DefaultTiming() Timing {
	return Timing{
		IdleSleep:           IdleSleep,
		RoundSleep:          RoundSleep,
		LeaderNudgeInterval: LeaderNudgeInterval,
		IdleTimeout:         IdleTimeout,
	}
}

// withDefaults fills any zero-valued field of t with the package default,
// so a caller only needs to set the overrides it cares about.
func (t Timing) withDefaults() Timing {
	d := DefaultTiming()
	if t.IdleSleep <= 0 {
		t.IdleSleep = d.IdleSleep
	}
	if t.RoundSleep <= 0 {
		t.RoundSleep = d.RoundSleep
	}
	if t.LeaderNudgeInterval <= 0 {
		t.LeaderNudgeInterval = d.LeaderNudgeInterval
	}
	if t.IdleTimeout <= 0 {
		t.IdleTimeout = d.IdleTimeout
	}
	return t
}

// Run drives the session scheduler loop until ctx is cancelled, Stop()
// is called, or the session idles out. It blocks until the loop exits
// and emits session_end before returning.
func (t *TeamEngine) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return fmt.Errorf("team: session %s is already running", t.sessionID)
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	t.mu.Unlock()
	if t.metrics != nil {
		t.metrics.ActiveSessions.Inc()
	}
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		if t.metrics != nil {
			t.metrics.ActiveSessions.Dec()
		}
		close(t.doneCh)
	}()

	t.emit(broadcast.TypeSessionStart, "", nil)

	var idle time.Duration
	var lastNudge time.Duration

	for {
		select {
		case <-ctx.Done():
			t.emit(broadcast.TypeSessionEnd, "", nil)
			return nil
		case <-t.stopCh:
			t.emit(broadcast.TypeSessionEnd, "", nil)
			return nil
		default:
		}

		ready, err := t.readyAgents()
		if err != nil {
			t.log.Error("scan ready agents: %v", err)
		}

		if len(ready) == 0 {
			if !t.sleep(ctx, t.timing.IdleSleep) {
				t.emit(broadcast.TypeSessionEnd, "", nil)
				return nil
			}
			idle += t.timing.IdleSleep
			if idle >= t.timing.LeaderNudgeInterval && idle-lastNudge >= t.timing.LeaderNudgeInterval {
				if hasOutstandingWork, werr := t.hasOutstandingTasks(); werr == nil && hasOutstandingWork {
					t.nudgeLeaders()
				}
				lastNudge = idle
			}
			if idle >= t.timing.IdleTimeout {
				t.emit(broadcast.TypeSessionEnd, "", nil)
				return nil
			}
			continue
		}

		idle = 0
		t.runRound(ctx, ready)
		if t.metrics != nil {
			t.metrics.SchedulerRounds.Inc()
		}

		if !t.sleep(ctx, t.timing.RoundSleep) {
			t.emit(broadcast.TypeSessionEnd, "", nil)
			return nil
		}
	}
}

// sleep waits for d or ctx/stop cancellation, returning false if the
// wait was interrupted by cancellation rather than completing normally.
func (t *TeamEngine) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	case <-t.stopCh:
		return false
	}
}

func (t *TeamEngine) readyAgents() ([]string, error) {
	var ready []string
	for _, name := range t.AgentNames() {
		hasUnread, err := t.inbox.HasUnread(name)
		if err != nil {
			return nil, err
		}
		if hasUnread {
			ready = append(ready, name)
		}
	}
	return ready, nil
}

// runRound executes every ready agent's turn concurrently, waiting at
// a barrier before returning: a runner may both produce and consume
// messages, and the next round's readiness snapshot should reflect a
// stable state.
func (t *TeamEngine) runRound(ctx context.Context, ready []string) {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range ready {
		name := name
		g.Go(func() error {
			runner := t.runners[name]
			if runner == nil {
				return nil
			}
			result, err := runner.RunTurn(gctx)
			if err != nil {
				t.log.Error("agent %s turn: %v", name, err)
				t.emit(broadcast.TypeError, name, map[string]any{"error": err.Error()})
				return nil
			}
			t.recordActive(name)
			if t.metrics != nil {
				t.metrics.TurnsRun.WithLabelValues(name).Inc()
			}
			t.mirrorTurn(name, result)
			return nil
		})
	}
	// errgroup.Wait's error is always nil here: per-agent errors are
	// caught and turned into error events above rather than aborting
	// the round.
	_ = g.Wait()
}

func (t *TeamEngine) recordActive(agent string) {
	t.mu.Lock()
	t.lastActive[agent] = time.Now()
	t.mu.Unlock()
}

func (t *TeamEngine) lastActiveFor(agent string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	at, ok := t.lastActive[agent]
	return at, ok
}

func (t *TeamEngine) hasOutstandingTasks() (bool, error) {
	tasks, err := t.tasks.ListTasks()
	if err != nil {
		return false, err
	}
	for _, tsk := range tasks {
		if !tsk.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// nudgeLeaders composes a status block for each leader's direct
// reports' outstanding tasks and delivers it as a single plain message
// from sender "system". "Direct reports" come from the resolved parent
// map, not the raw connection lists, so a teammate that merely lists a
// leader among its connections but reports elsewhere is not counted
// against that leader.
func (t *TeamEngine) nudgeLeaders() {
	tasks, err := t.tasks.ListTasks()
	if err != nil {
		t.log.Error("nudge leaders: list tasks: %v", err)
		return
	}

	reportsByLeader := make(map[string]map[string]bool)
	for agent, lead := range t.parents {
		set, ok := reportsByLeader[lead]
		if !ok {
			set = make(map[string]bool)
			reportsByLeader[lead] = set
		}
		set[agent] = true
	}

	for leader, reports := range reportsByLeader {
		lines := t.statusLinesFor(tasks, reports, leader == t.topLeader)
		if len(lines) == 0 {
			continue
		}
		text := fmt.Sprintf(
			"[Status check] Your team has been idle. Tasks needing attention:\n%s\n\n"+
				"If a task is 'in_progress', the teammate may still be working — be patient. "+
				"If a task is 'pending' and the owner has been idle, follow up or reassign the task.",
			strings.Join(lines, "\n"),
		)
		msg := domain.NewMessage("system", text, "Status check: tasks needing attention", "", time.Now())
		if err := t.inbox.Append(leader, msg); err != nil {
			t.log.Error("nudge leader %s: %v", leader, err)
		}
	}
}

func (t *TeamEngine) statusLinesFor(tasks []domain.Task, reports map[string]bool, includeUnassigned bool) []string {
	var lines []string
	for _, tsk := range tasks {
		if tsk.Status.IsTerminal() {
			continue
		}
		owned := reports[tsk.Owner]
		unassigned := tsk.Owner == "" && includeUnassigned
		if !owned && !unassigned {
			continue
		}
		owner := tsk.Owner
		if owner == "" {
			owner = "unassigned"
		}
		lines = append(lines, fmt.Sprintf("  #%s %s [%s] owner: %s%s", tsk.ID, tsk.Subject, tsk.Status, owner, t.idleAgeAnnotation(tsk)))
	}
	return lines
}

func (t *TeamEngine) idleAgeAnnotation(tsk domain.Task) string {
	if tsk.Owner == "" {
		return ""
	}
	at, ok := t.lastActiveFor(tsk.Owner)
	if !ok {
		return " — never ran a turn"
	}
	idleSecs := int(time.Since(at).Seconds())
	switch tsk.Status {
	case domain.StatusInProgress:
		return fmt.Sprintf(" — working (last active %ds ago)", idleSecs)
	case domain.StatusPending:
		return fmt.Sprintf(" — NOT STARTED, idle %ds", idleSecs)
	default:
		return ""
	}
}
