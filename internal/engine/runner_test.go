package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/ports"
	"github.com/teamkit/teamkit/internal/protocol"
	"github.com/teamkit/teamkit/internal/store"
	"github.com/teamkit/teamkit/internal/tokens"
)

// scriptedProvider returns one canned response per call, in order, and
// records every request it was given.
type scriptedProvider struct {
	responses []ports.ChatResponse
	calls     int
}

func (p *scriptedProvider) Chat(_ context.Context, _ ports.ChatRequest) (ports.ChatResponse, error) {
	if p.calls >= len(p.responses) {
		return ports.ChatResponse{}, nil
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

func newTestRunner(t *testing.T, name string, agents []domain.AgentConfig, parents map[string]string, provider ports.LLMProvider) (*AgentRunner, *store.InboxStore, *store.TaskStore) {
	t.Helper()
	base := t.TempDir()
	inbox := store.NewInboxStore(base, "sess-1")
	tasks := store.NewTaskStore(base, "sess-1")
	roster := newFakeRoster(agents, parents)
	ctxBuild := NewContextBuilder(inbox, tasks, roster)
	executor := NewExecutor(inbox, tasks, roster, Hooks{})
	cfg, _ := roster.Lookup(name)
	runner := NewAgentRunner("sess-1", cfg, "test-key", inbox, tasks, ctxBuild, executor, roster, provider, tokens.NewTracker(), broadcast.NewBroadcaster(nil))
	return runner, inbox, tasks
}

func TestRunTurnTextOnlySendsIdleNotificationToParent(t *testing.T) {
	agents := basicAgents()
	parents := map[string]string{"worker-a": "lead", "worker-b": "lead"}
	provider := &scriptedProvider{responses: []ports.ChatResponse{{Content: "done thinking"}}}
	runner, inbox, _ := newTestRunner(t, "worker-a", agents, parents, provider)

	if err := inbox.Append("worker-a", domain.NewMessage("lead", "start", "", "", fixedTestTime())); err != nil {
		t.Fatal(err)
	}

	result, err := runner.RunTurn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Shutdown {
		t.Fatal("expected a normal turn, not a shutdown short-circuit")
	}

	leadMsgs, err := inbox.ReadAll("lead")
	if err != nil {
		t.Fatal(err)
	}
	var idleCount int
	for _, m := range leadMsgs {
		if env, ok := protocol.Parse(m.Text); ok && env.Type == protocol.TypeIdleNotification && m.From == "worker-a" {
			idleCount++
		}
	}
	if idleCount != 1 {
		t.Fatalf("expected exactly one idle_notification to lead, got %d (messages: %+v)", idleCount, leadMsgs)
	}
}

func TestRunTurnShortCircuitsOnShutdownRequest(t *testing.T) {
	agents := basicAgents()
	parents := map[string]string{"worker-a": "lead", "worker-b": "lead"}
	provider := &scriptedProvider{responses: []ports.ChatResponse{{Content: "should not be reached"}}}
	runner, inbox, _ := newTestRunner(t, "worker-a", agents, parents, provider)

	env := protocol.ShutdownRequest("system", "worker-a", "session ending")
	env.RequestID = "req-42"
	text, summary, err := protocol.Encode(env)
	if err != nil {
		t.Fatal(err)
	}
	if err := inbox.Append("worker-a", domain.NewMessage("system", text, summary, "", fixedTestTime())); err != nil {
		t.Fatal(err)
	}

	result, err := runner.RunTurn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !result.Shutdown {
		t.Fatal("expected shutdown short-circuit")
	}
	if provider.calls != 0 {
		t.Fatalf("provider should not have been called, got %d calls", provider.calls)
	}

	leadMsgs, err := inbox.ReadAll("lead")
	if err != nil {
		t.Fatal(err)
	}
	if len(leadMsgs) != 1 {
		t.Fatalf("expected exactly one shutdown_approved to parent, got %d", len(leadMsgs))
	}
	env2, ok := protocol.Parse(leadMsgs[0].Text)
	if !ok || env2.Type != protocol.TypeShutdownApproved {
		t.Fatalf("expected shutdown_approved envelope, got %+v ok=%v", env2, ok)
	}
	if env2.RequestID != "req-42" {
		t.Fatalf("approval should echo the request's requestId, got %q", env2.RequestID)
	}

	all, err := inbox.ReadAll("worker-a")
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range all {
		if !m.Read {
			t.Fatal("expected every message to be marked read after shutdown short-circuit")
		}
	}
}

func TestRunTurnHandlesToolCallThenTextResponse(t *testing.T) {
	agents := basicAgents()
	parents := map[string]string{"worker-a": "lead", "worker-b": "lead"}
	provider := &scriptedProvider{responses: []ports.ChatResponse{
		{ToolCalls: []ports.ToolCall{{ID: "1", Name: ToolTaskList, Arguments: map[string]any{}}}},
		{Content: "all done"},
	}}
	runner, inbox, _ := newTestRunner(t, "worker-a", agents, parents, provider)
	if err := inbox.Append("worker-a", domain.NewMessage("lead", "go", "", "", fixedTestTime())); err != nil {
		t.Fatal(err)
	}

	result, err := runner.RunTurn(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if result.Loops != 2 {
		t.Fatalf("expected 2 loop iterations (tool call then text), got %d", result.Loops)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 provider calls, got %d", provider.calls)
	}
}

func TestHistoryCompactsAboveThreshold(t *testing.T) {
	agents := basicAgents()
	parents := map[string]string{"worker-a": "lead", "worker-b": "lead"}
	provider := &scriptedProvider{responses: []ports.ChatResponse{{Content: "ok"}}}
	runner, inbox, _ := newTestRunner(t, "worker-a", agents, parents, provider)

	for i := 0; i < 50; i++ {
		runner.history = append(runner.history, ports.ChatMessage{Role: ports.RoleUser, Content: fmt.Sprintf("filler %d", i)})
	}
	if err := inbox.Append("worker-a", domain.NewMessage("lead", "go", "", "", fixedTestTime())); err != nil {
		t.Fatal(err)
	}

	runner.compactHistoryIfNeeded()
	if len(runner.history) != HistoryCompactionTail+1 {
		t.Fatalf("expected compacted history length %d, got %d", HistoryCompactionTail+1, len(runner.history))
	}
	marker := runner.history[0]
	if marker.Role != ports.RoleUser {
		t.Fatalf("expected compaction marker to be user-role, got %s", marker.Role)
	}
	if !strings.Contains(marker.Content, "compacted") {
		t.Fatalf("expected marker to mention compaction, got %q", marker.Content)
	}
	// the surviving tail is the most recent 20 messages, in order.
	for i := 0; i < HistoryCompactionTail; i++ {
		want := fmt.Sprintf("filler %d", 50-HistoryCompactionTail+i)
		if got := runner.history[i+1].Content; got != want {
			t.Fatalf("tail[%d] = %q, want %q", i, got, want)
		}
	}
}
