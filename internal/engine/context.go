package engine

import (
	"fmt"
	"strings"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/ports"
	"github.com/teamkit/teamkit/internal/protocol"
	"github.com/teamkit/teamkit/internal/store"
)

const connectionPromptPreviewLen = 200

// ContextBuilder rebuilds one agent's system prompt every turn and
// assembles the message list sent to the model.
type ContextBuilder struct {
	inbox  *store.InboxStore
	tasks  *store.TaskStore
	roster Roster
}

// NewContextBuilder builds a ContextBuilder over the session's stores
// and roster.
func NewContextBuilder(inbox *store.InboxStore, tasks *store.TaskStore, roster Roster) *ContextBuilder {
	return &ContextBuilder{inbox: inbox, tasks: tasks, roster: roster}
}

// BuildMessages assembles the full message list for one turn: the
// rebuilt system prompt, the persistent conversation history, and one
// combined user-role message rendering the agent's unread inbox (which
// this call consumes). Returns the rendered unread count for callers
// that want to skip an empty-inbox turn.
func (c *ContextBuilder) BuildMessages(agent string, history []ports.ChatMessage) ([]ports.ChatMessage, int, error) {
	cfg, ok := c.roster.Lookup(agent)
	if !ok {
		return nil, 0, fmt.Errorf("context: unknown agent %q", agent)
	}

	systemPrompt, err := c.buildSystemPrompt(cfg)
	if err != nil {
		return nil, 0, err
	}

	messages := make([]ports.ChatMessage, 0, len(history)+2)
	messages = append(messages, ports.ChatMessage{Role: ports.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)

	unread, err := c.inbox.ReadUnread(agent)
	if err != nil {
		return nil, 0, err
	}
	if len(unread) > 0 {
		messages = append(messages, ports.ChatMessage{Role: ports.RoleUser, Content: renderInbox(unread)})
	}
	return messages, len(unread), nil
}

func renderInbox(msgs []domain.Message) string {
	rendered := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if env, ok := protocol.Parse(m.Text); ok {
			rendered = append(rendered, fmt.Sprintf("[Protocol: %s from %s]", env.Type, m.From))
			continue
		}
		rendered = append(rendered, fmt.Sprintf("[Message from %s]: %s", m.From, m.Text))
	}
	return strings.Join(rendered, "\n\n")
}

func (c *ContextBuilder) buildSystemPrompt(cfg domain.AgentConfig) (string, error) {
	var b strings.Builder

	b.WriteString(cfg.SystemPrompt)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "You are %q.\n", cfg.Name)
	if parent, ok := c.roster.ParentOf(cfg.Name); ok {
		fmt.Fprintf(&b, "Your parent (the agent you report to) is %q.\n", parent)
	} else {
		b.WriteString("You are the top leader: you report directly to the user.\n")
	}

	if len(cfg.Connections) > 0 {
		b.WriteString("\nYour direct connections:\n")
		for _, name := range cfg.Connections {
			peer, ok := c.roster.Lookup(name)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s (%s): %s\n", peer.Name, peer.Role, truncatePrompt(peer.SystemPrompt, connectionPromptPreviewLen))
		}
	}

	b.WriteString("\nAvailable tools:\n")
	for _, tool := range ToolDefinitions() {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
	}

	scoped, err := c.scopedTasks(cfg.Name)
	if err != nil {
		return "", err
	}
	b.WriteString("\nTask list (your scope — owned by you, a direct connection, or unassigned):\n")
	if len(scoped) == 0 {
		b.WriteString("(no tasks yet)\n")
	}
	for _, t := range scoped {
		owner := t.Owner
		if owner == "" {
			owner = "(unassigned)"
		}
		fmt.Fprintf(&b, "- #%s %s [%s] owner: %s\n", t.ID, t.Subject, t.Status, owner)
	}

	b.WriteString("\n")
	b.WriteString(roleInstructions(cfg))

	return b.String(), nil
}

func truncatePrompt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// scopedTasks returns the tasks owned by agent, one of its direct
// connections, or unassigned.
func (c *ContextBuilder) scopedTasks(agent string) ([]domain.Task, error) {
	all, err := c.tasks.ListTasks()
	if err != nil {
		return nil, err
	}
	cfg, _ := c.roster.Lookup(agent)
	inScope := make(map[string]bool, len(cfg.Connections)+1)
	inScope[agent] = true
	for _, name := range cfg.Connections {
		inScope[name] = true
	}

	var scoped []domain.Task
	for _, t := range all {
		if t.Owner == "" || inScope[t.Owner] {
			scoped = append(scoped, t)
		}
	}
	return scoped, nil
}

func roleInstructions(cfg domain.AgentConfig) string {
	if cfg.Role == domain.RoleLeader {
		return strings.TrimSpace(`
As a leader: never do the work yourself. Decompose the request into sub-tasks
and assign them via TaskUpdate to your direct connections. Wait for them to
report completion. For an unresponsive teammate: follow up on a "pending"
task, be patient while a task is "in_progress", reassign after a follow-up
goes unanswered, and only do the work yourself as a last resort. Once every
sub-task is complete, send a consolidated report to your own parent and
request shutdown — unless you are the top leader, in which case produce the
final text response for the user instead.
`)
	}
	return strings.TrimSpace(`
As a teammate: do the work you are assigned. When it is complete, send the
full deliverable back to your parent via SendMessage, mark your task
"completed" via TaskUpdate, then send a shutdown_request to your parent.
`)
}
