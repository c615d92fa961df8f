// Package broadcast implements session-scoped event fan-out: each
// session owns a set of subscriber queues; broadcasting is non-blocking
// and drops on a full queue rather than stalling the producer.
package broadcast

import "time"

// Type enumerates the kinds of lifecycle event a session emits.
type Type string

const (
	TypeSessionStart    Type = "session_start"
	TypeSessionEnd      Type = "session_end"
	TypeTurnStart       Type = "turn_start"
	TypeTurnEnd         Type = "turn_end"
	TypeThinking        Type = "thinking"
	TypeAgentResponse   Type = "agent_response"
	TypeAgentMessage    Type = "agent_message"
	TypeToolCall        Type = "tool_call"
	TypeToolResult      Type = "tool_result"
	TypeProtocolMessage Type = "protocol_message"
	TypeTaskUpdate      Type = "task_update"
	TypeError           Type = "error"
)

// Event is one session lifecycle notification delivered to subscribers.
type Event struct {
	Type      Type           `json:"type"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Agent     string         `json:"agent,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// New builds an Event stamped with the current time.
func New(typ Type, sessionID, agent string, data map[string]any) Event {
	return Event{
		Type:      typ,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Agent:     agent,
		Data:      data,
	}
}
