package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/logging"
	"github.com/teamkit/teamkit/internal/ports"
	"github.com/teamkit/teamkit/internal/protocol"
	"github.com/teamkit/teamkit/internal/store"
	"github.com/teamkit/teamkit/internal/tokens"
)

const (
	// MaxToolLoops bounds one turn's model-call/tool-dispatch recursion.
	MaxToolLoops = 10
	// MaxHistoryMessages triggers compaction once exceeded.
	MaxHistoryMessages = 40
	// HistoryCompactionTail is how many of the most recent messages
	// survive compaction, alongside the summary marker.
	HistoryCompactionTail = 20
)

// TurnResult summarizes one completed run_turn call.
type TurnResult struct {
	Shutdown bool
	Loops    int
	Usage    ports.TokenUsage
}

// AgentRunner owns one agent's persistent conversation history and
// executes its turns.
type AgentRunner struct {
	sessionID string
	cfg       domain.AgentConfig
	apiKey    string

	inbox     *store.InboxStore
	tasks     *store.TaskStore
	ctxBuild  *ContextBuilder
	executor  *Executor
	roster    Roster
	provider  ports.LLMProvider
	tracker   *tokens.Tracker
	estimator *tokens.Estimator
	events    *broadcast.Broadcaster
	log       *logging.ComponentLogger

	history []ports.ChatMessage
	usage   ports.TokenUsage
}

// NewAgentRunner builds a runner for one agent.
func NewAgentRunner(
	sessionID string,
	cfg domain.AgentConfig,
	apiKey string,
	inbox *store.InboxStore,
	tasksStore *store.TaskStore,
	ctxBuild *ContextBuilder,
	executor *Executor,
	roster Roster,
	provider ports.LLMProvider,
	tracker *tokens.Tracker,
	events *broadcast.Broadcaster,
) *AgentRunner {
	return &AgentRunner{
		sessionID: sessionID,
		cfg:       cfg,
		apiKey:    apiKey,
		inbox:     inbox,
		tasks:     tasksStore,
		estimator: tokens.NewEstimator(),
		ctxBuild:  ctxBuild,
		executor:  executor,
		roster:    roster,
		provider:  provider,
		tracker:   tracker,
		events:    events,
		log:       logging.NewComponentLogger(fmt.Sprintf("AgentRunner[%s]", cfg.Name)),
	}
}

// InjectUserMessage appends a plain message from sender "user" to this
// agent's inbox, used by TeamEngine to deliver the human request.
func (r *AgentRunner) InjectUserMessage(text string) error {
	return r.inbox.Append(r.cfg.Name, domain.NewMessage("user", text, "", "", time.Now()))
}

func (r *AgentRunner) emit(typ broadcast.Type, data map[string]any) {
	if r.events == nil {
		return
	}
	r.events.Broadcast(r.sessionID, broadcast.New(typ, r.sessionID, r.cfg.Name, data))
}

// RunTurn executes one bounded turn for this agent: shutdown check,
// history compaction, context assembly, the tool loop, and the closing
// idle notification to the agent's parent.
func (r *AgentRunner) RunTurn(ctx context.Context) (TurnResult, error) {
	if shortCircuit, err := r.handleShutdownRequest(); err != nil {
		return TurnResult{}, err
	} else if shortCircuit {
		r.emit(broadcast.TypeTurnEnd, map[string]any{"shutdown": true})
		return TurnResult{Shutdown: true}, nil
	}

	r.emit(broadcast.TypeTurnStart, nil)
	r.compactHistoryIfNeeded()

	messages, _, err := r.ctxBuild.BuildMessages(r.cfg.Name, r.history)
	if err != nil {
		return TurnResult{}, err
	}

	result := r.toolLoop(ctx, messages)
	r.usage.PromptTokens += result.Usage.PromptTokens
	r.usage.CompletionTokens += result.Usage.CompletionTokens

	if err := r.notifyParentIdle(); err != nil {
		return result, err
	}

	r.emit(broadcast.TypeTurnEnd, map[string]any{
		"loops":             result.Loops,
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
	})
	return result, nil
}

// handleShutdownRequest reads the full inbox without consuming it and
// looks for an unread shutdown_request envelope. If one is present the model is never
// invoked: the agent immediately approves shutdown to its parent and
// marks every unread message read.
func (r *AgentRunner) handleShutdownRequest() (bool, error) {
	all, err := r.inbox.ReadAll(r.cfg.Name)
	if err != nil {
		return false, err
	}
	found := false
	requestID := ""
	for _, m := range all {
		if m.Read {
			continue
		}
		env, ok := protocol.Parse(m.Text)
		if ok && env.Type == protocol.TypeShutdownRequest {
			found = true
			requestID = env.RequestID
			break
		}
	}
	if !found {
		return false, nil
	}

	if parent, ok := r.roster.ParentOf(r.cfg.Name); ok {
		env := protocol.ShutdownApproved(r.cfg.Name, parent, requestID)
		text, summary, err := protocol.Encode(env)
		if err != nil {
			return false, err
		}
		msg := domain.NewMessage(r.cfg.Name, text, summary, r.roster.ColorOf(r.cfg.Name), time.Now())
		if err := r.inbox.Append(parent, msg); err != nil {
			return false, err
		}
		r.emit(broadcast.TypeProtocolMessage, map[string]any{"type": string(protocol.TypeShutdownApproved), "to": parent})
	}

	if err := r.inbox.MarkRead(r.cfg.Name); err != nil {
		return false, err
	}
	return true, nil
}

func (r *AgentRunner) compactHistoryIfNeeded() {
	if len(r.history) <= MaxHistoryMessages {
		return
	}
	compactedCount := len(r.history) - HistoryCompactionTail
	marker := ports.ChatMessage{
		Role: ports.RoleUser,
		Content: fmt.Sprintf(
			"[System: %d earlier messages were compacted to save context. Team context and task list are rebuilt in the system prompt above.]",
			compactedCount,
		),
	}
	tail := make([]ports.ChatMessage, HistoryCompactionTail)
	copy(tail, r.history[len(r.history)-HistoryCompactionTail:])
	r.history = append([]ports.ChatMessage{marker}, tail...)
}

// toolLoop runs the bounded model-call/tool-dispatch recursion. A
// provider error ends the loop (after emitting an error event) rather
// than aborting the turn: idle notification and turn_end still run.
func (r *AgentRunner) toolLoop(ctx context.Context, messages []ports.ChatMessage) TurnResult {
	result := TurnResult{}
	stop := false

	for loop := 1; loop <= MaxToolLoops && !stop; loop++ {
		result.Loops = loop
		r.emit(broadcast.TypeThinking, map[string]any{"loop": loop})

		resp, err := r.provider.Chat(ctx, ports.ChatRequest{
			Messages: messages,
			Tools:    ToolDefinitions(),
			APIKey:   r.apiKey,
			Model:    r.cfg.Model,
		})
		if err != nil {
			r.emit(broadcast.TypeError, map[string]any{"error": fmt.Sprintf("agent %s: chat: %v", r.cfg.Name, err)})
			break
		}

		usage := resp.Usage
		if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
			usage = r.estimateUsage(messages, resp.Content)
		}
		result.Usage.PromptTokens += usage.PromptTokens
		result.Usage.CompletionTokens += usage.CompletionTokens
		if r.tracker != nil {
			r.tracker.Record(r.sessionID, r.cfg.Name, usage.PromptTokens, usage.CompletionTokens)
		}

		if resp.Content != "" {
			r.emit(broadcast.TypeAgentResponse, map[string]any{"content": resp.Content})
			assistantMsg := ports.ChatMessage{Role: ports.RoleAssistant, Content: resp.Content}
			messages = append(messages, assistantMsg)
			r.history = append(r.history, assistantMsg)
		}

		if len(resp.ToolCalls) == 0 {
			break
		}

		toolResultText := r.dispatchToolCalls(resp.ToolCalls, &stop)
		toolMsg := ports.ChatMessage{Role: ports.RoleUser, Content: toolResultText}
		messages = append(messages, toolMsg)
		r.history = append(r.history, toolMsg)
	}

	return result
}

// dispatchToolCalls executes calls sequentially in the order the model
// emitted them, concatenating their results into one
// blank-line-separated block.
func (r *AgentRunner) dispatchToolCalls(calls []ports.ToolCall, stop *bool) string {
	blocks := make([]string, 0, len(calls))
	for _, call := range calls {
		r.emit(broadcast.TypeToolCall, map[string]any{"name": call.Name, "arguments": call.Arguments})
		result := r.executor.Dispatch(r.cfg.Name, call.Name, call.Arguments)
		r.emit(broadcast.TypeToolResult, map[string]any{"name": call.Name, "result": result})

		blocks = append(blocks, fmt.Sprintf("[Tool %s result]: %s", call.Name, result))

		if call.Name == ToolSendMessage {
			if kind, _ := call.Arguments["type"].(string); kind == SendTypeShutdownRequest {
				*stop = true
			}
		}
	}
	return strings.Join(blocks, "\n\n")
}

// notifyParentIdle appends an idle_notification envelope to the
// agent's parent's inbox at the end of a (non-short-circuited) turn.
func (r *AgentRunner) notifyParentIdle() error {
	parent, ok := r.roster.ParentOf(r.cfg.Name)
	if !ok || parent == r.cfg.Name {
		return nil
	}
	env := protocol.IdleNotification(r.cfg.Name)
	text, summary, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	msg := domain.NewMessage(r.cfg.Name, text, summary, r.roster.ColorOf(r.cfg.Name), time.Now())
	if err := r.inbox.Append(parent, msg); err != nil {
		return err
	}
	r.emit(broadcast.TypeProtocolMessage, map[string]any{"type": string(protocol.TypeIdleNotification), "to": parent})
	return nil
}

// estimateUsage fills in a token-usage figure with tiktoken-go when a
// provider's response did not report one.
func (r *AgentRunner) estimateUsage(messages []ports.ChatMessage, completion string) ports.TokenUsage {
	prompt := 0
	for _, m := range messages {
		prompt += r.estimator.Count(m.Content)
	}
	return ports.TokenUsage{PromptTokens: prompt, CompletionTokens: r.estimator.Count(completion)}
}

// Name returns the agent's configured name.
func (r *AgentRunner) Name() string { return r.cfg.Name }

// Config returns the agent's configuration.
func (r *AgentRunner) Config() domain.AgentConfig { return r.cfg }

// CumulativeUsage returns this runner's total token usage across turns.
func (r *AgentRunner) CumulativeUsage() ports.TokenUsage { return r.usage }
