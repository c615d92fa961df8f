package team

import (
	"context"

	"github.com/teamkit/teamkit/internal/async"
	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/engine"
)

// hooks wires ToolExecutor's lifecycle callbacks to this session's
// event broadcaster, envelope delivery, and history sink.
func (t *TeamEngine) hooks() engine.Hooks {
	return engine.Hooks{
		OnMessageSent: func(from, to string, msg domain.Message) {
			if t.metrics != nil {
				t.metrics.ToolCallsRouted.WithLabelValues("SendMessage").Inc()
			}
			t.emit(broadcast.TypeAgentMessage, from, map[string]any{"to": to, "summary": msg.Summary})
			t.mirrorMessage(to, from, msg)
		},
		OnTaskChanged: func(task domain.Task) {
			if t.metrics != nil {
				t.metrics.ToolCallsRouted.WithLabelValues("TaskUpdate").Inc()
			}
			t.emit(broadcast.TypeTaskUpdate, "", map[string]any{"task": task})
			t.mirrorTask(task)
		},
		OnTaskAssigned: func(caller, owner string, task domain.Task) {
			t.deliverAssignment(caller, owner, task)
		},
		OnTaskCompleted: func(caller string, task domain.Task) {
			t.deliverCompletion(caller, task)
		},
	}
}

func (t *TeamEngine) emit(typ broadcast.Type, agent string, data map[string]any) {
	if t.events == nil {
		return
	}
	t.events.Broadcast(t.sessionID, broadcast.New(typ, t.sessionID, agent, data))
}

func (t *TeamEngine) mirrorMessage(to, from string, msg domain.Message) {
	if t.sink == nil {
		return
	}
	async.Go(t.log, "history-sync-message", func() {
		_ = t.sink.SyncMessage(context.Background(), t.sessionID, to, from, msg.Text)
	})
}

func (t *TeamEngine) mirrorTask(task domain.Task) {
	if t.sink == nil {
		return
	}
	async.Go(t.log, "history-sync-task", func() {
		snapshot := map[string]any{
			"id": task.ID, "subject": task.Subject, "status": string(task.Status), "owner": task.Owner,
		}
		_ = t.sink.SyncTask(context.Background(), t.sessionID, task.ID, snapshot)
	})
}

// mirrorTurn asynchronously records a completed turn's summary.
func (t *TeamEngine) mirrorTurn(agent string, result engine.TurnResult) {
	if t.sink == nil {
		return
	}
	async.Go(t.log, "history-sync-turn", func() {
		summary := map[string]any{
			"shutdown":          result.Shutdown,
			"loops":             result.Loops,
			"prompt_tokens":     result.Usage.PromptTokens,
			"completion_tokens": result.Usage.CompletionTokens,
		}
		_ = t.sink.SyncAgentTurn(context.Background(), t.sessionID, agent, summary)
	})
}
