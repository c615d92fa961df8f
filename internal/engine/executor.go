package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/logging"
	"github.com/teamkit/teamkit/internal/protocol"
	"github.com/teamkit/teamkit/internal/store"
)

// Executor routes the five named tool calls to the inbox/task stores
// and fires Hooks as a side effect. It is shared across every agent in
// a session; the acting agent's name is passed into Dispatch rather
// than held as executor state.
type Executor struct {
	inbox  *store.InboxStore
	tasks  *store.TaskStore
	roster Roster
	hooks  Hooks
	log    *logging.ComponentLogger
}

// NewExecutor builds an Executor over the given stores and roster.
func NewExecutor(inbox *store.InboxStore, tasks *store.TaskStore, roster Roster, hooks Hooks) *Executor {
	return &Executor{
		inbox:  inbox,
		tasks:  tasks,
		roster: roster,
		hooks:  hooks,
		log:    logging.NewComponentLogger("ToolExecutor"),
	}
}

// Dispatch routes one tool call made by caller and returns its string
// result. Errors are never returned to the scheduler: a failure is
// encoded as {"error": "..."} in the result string.
func (e *Executor) Dispatch(caller, toolName string, args map[string]any) string {
	switch toolName {
	case ToolSendMessage:
		return e.sendMessage(caller, args)
	case ToolTaskCreate:
		return e.taskCreate(caller, args)
	case ToolTaskUpdate:
		return e.taskUpdate(caller, args)
	case ToolTaskList:
		return e.taskList(caller, args)
	case ToolTaskGet:
		return e.taskGet(caller, args)
	default:
		return errorResult(fmt.Sprintf("Unknown tool: %s", toolName))
	}
}

func errorResult(msg string) string {
	return encodeResult(map[string]any{"error": msg})
}

func encodeResult(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		fallback, _ := json.Marshal(map[string]any{"error": err.Error()})
		return string(fallback)
	}
	return string(data)
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func stringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok || v == nil {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapArg(args map[string]any, key string) map[string]any {
	v, ok := args[key]
	if !ok {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

// --- SendMessage -----------------------------------------------------

func (e *Executor) sendMessage(caller string, args map[string]any) string {
	kind, _ := stringArg(args, "type")
	if kind == "" {
		kind = SendTypeMessage
	}

	switch kind {
	case SendTypeMessage:
		return e.sendPlainMessage(caller, args)
	case SendTypeBroadcast:
		return e.sendBroadcast(caller, args)
	case SendTypeShutdownRequest:
		return e.sendProtocol(caller, args, func(from, target string) protocol.Envelope {
			reason, _ := stringArg(args, "reason")
			return protocol.ShutdownRequest(from, target, reason)
		})
	case SendTypeShutdownResponse:
		return e.sendProtocol(caller, args, func(from, target string) protocol.Envelope {
			requestID, _ := stringArg(args, "requestId")
			return protocol.ShutdownApproved(from, target, requestID)
		})
	case SendTypePlanApprovalRequest:
		return e.sendProtocol(caller, args, func(from, target string) protocol.Envelope {
			requestID, _ := stringArg(args, "requestId")
			plan, _ := stringArg(args, "plan")
			return protocol.PlanApprovalRequest(from, target, requestID, plan)
		})
	case SendTypePlanApprovalResp:
		return e.sendProtocol(caller, args, func(from, target string) protocol.Envelope {
			requestID, _ := stringArg(args, "requestId")
			plan, _ := stringArg(args, "plan")
			approveStr, _ := stringArg(args, "approve")
			return protocol.PlanApprovalResponse(from, target, requestID, approveStr == "true", plan)
		})
	default:
		return errorResult(fmt.Sprintf("Unknown SendMessage type: %s", kind))
	}
}

func (e *Executor) sendPlainMessage(caller string, args map[string]any) string {
	recipient, ok := stringArg(args, "recipient")
	if !ok || recipient == "" {
		return errorResult("recipient is required for type=message")
	}
	text, _ := stringArg(args, "message")
	color := e.roster.ColorOf(caller)
	msg := domain.NewMessage(caller, text, "", color, time.Now())
	if err := e.inbox.Append(recipient, msg); err != nil {
		return errorResult(err.Error())
	}
	e.hooks.fireMessageSent(caller, recipient, msg)
	return encodeResult(map[string]any{"status": "sent", "recipient": recipient})
}

func (e *Executor) sendBroadcast(caller string, args map[string]any) string {
	text, _ := stringArg(args, "message")
	color := e.roster.ColorOf(caller)
	recipients := make([]string, 0, len(e.roster.AgentNames()))
	for _, name := range e.roster.AgentNames() {
		if name == caller {
			continue
		}
		msg := domain.NewMessage(caller, text, "", color, time.Now())
		if err := e.inbox.Append(name, msg); err != nil {
			return errorResult(err.Error())
		}
		e.hooks.fireMessageSent(caller, name, msg)
		recipients = append(recipients, name)
	}
	return encodeResult(map[string]any{"status": "broadcast", "recipients": recipients})
}

func (e *Executor) sendProtocol(caller string, args map[string]any, build func(from, target string) protocol.Envelope) string {
	recipient, ok := stringArg(args, "recipient")
	if !ok || recipient == "" {
		return errorResult("recipient is required for a protocol message")
	}
	env := build(caller, recipient)
	text, summary, err := protocol.Encode(env)
	if err != nil {
		return errorResult(err.Error())
	}
	color := e.roster.ColorOf(caller)
	msg := domain.NewMessage(caller, text, summary, color, time.Now())
	if err := e.inbox.Append(recipient, msg); err != nil {
		return errorResult(err.Error())
	}
	e.hooks.fireMessageSent(caller, recipient, msg)
	return encodeResult(map[string]any{"status": "sent", "type": string(env.Type), "recipient": recipient})
}

// --- Task tools --------------------------------------------------------

func (e *Executor) taskCreate(caller string, args map[string]any) string {
	subject, _ := stringArg(args, "subject")
	description, _ := stringArg(args, "description")
	owner, _ := stringArg(args, "owner")
	activeForm, _ := stringArg(args, "activeForm")
	metadata := mapArg(args, "metadata")

	t, err := e.tasks.CreateTask(subject, description, owner, activeForm, metadata)
	if err != nil {
		return errorResult(err.Error())
	}
	e.hooks.fireTaskChanged(t)
	return encodeResult(t)
}

func (e *Executor) taskUpdate(caller string, args map[string]any) string {
	id, ok := stringArg(args, "taskId")
	if !ok || id == "" {
		return errorResult("taskId is required")
	}

	upd := domain.TaskUpdate{
		AddBlockedBy: stringSliceArg(args, "addBlockedBy"),
		AddBlocks:    stringSliceArg(args, "addBlocks"),
		Metadata:     mapArg(args, "metadata"),
	}
	if v, ok := stringArg(args, "subject"); ok {
		upd.Subject = &v
	}
	if v, ok := stringArg(args, "description"); ok {
		upd.Description = &v
	}
	if v, ok := stringArg(args, "activeForm"); ok {
		upd.ActiveForm = &v
	}
	ownerSet := false
	var ownerVal string
	if raw, present := args["owner"]; present {
		ownerSet = true
		if s, ok := raw.(string); ok {
			ownerVal = s
			upd.Owner = &s
		}
	}
	if v, ok := stringArg(args, "status"); ok {
		status := domain.Status(v)
		upd.Status = &status
	}

	t, found, err := e.tasks.UpdateTask(id, upd)
	if err != nil {
		return errorResult(err.Error())
	}
	if !found {
		return errorResult(fmt.Sprintf("Unknown task id: %s", id))
	}

	if !t.Deleted {
		e.hooks.fireTaskChanged(t)
		if ownerSet && ownerVal != "" {
			e.hooks.fireTaskAssigned(caller, ownerVal, t)
		}
		if upd.Status != nil && *upd.Status == domain.StatusCompleted {
			e.hooks.fireTaskCompleted(caller, t)
		}
	}
	return encodeResult(t)
}

func (e *Executor) taskList(caller string, args map[string]any) string {
	tasks, err := e.tasks.ListTasks()
	if err != nil {
		return errorResult(err.Error())
	}
	return encodeResult(tasks)
}

func (e *Executor) taskGet(caller string, args map[string]any) string {
	id, ok := stringArg(args, "taskId")
	if !ok || id == "" {
		return errorResult("taskId is required")
	}
	t, found, err := e.tasks.GetTask(id)
	if err != nil {
		return errorResult(err.Error())
	}
	if !found {
		return errorResult(fmt.Sprintf("Unknown task id: %s", id))
	}
	return encodeResult(t)
}
