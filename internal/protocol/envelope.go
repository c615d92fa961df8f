// Package protocol implements the JSON-in-JSON envelope codec carried
// inside a Message's Text field.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// Type enumerates the protocol envelope kinds.
type Type string

const (
	TypeIdleNotification     Type = "idle_notification"
	TypeShutdownRequest      Type = "shutdown_request"
	TypeShutdownApproved     Type = "shutdown_approved"
	TypeTaskAssignment       Type = "task_assignment"
	TypeTaskCompleted        Type = "task_completed"
	TypePlanApprovalRequest  Type = "plan_approval_request"
	TypePlanApprovalResponse Type = "plan_approval_response"
)

// Envelope is the decoded JSON-in-JSON payload of a protocol message.
type Envelope struct {
	Type       Type      `json:"type"`
	From       string    `json:"from"`
	Timestamp  time.Time `json:"timestamp"`
	Target     string    `json:"target,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	IdleReason string    `json:"idleReason,omitempty"`
	TaskID     string    `json:"taskId,omitempty"`
	TaskSubj   string    `json:"taskSubject,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	Approve    *bool     `json:"approve,omitempty"`
	Plan       string    `json:"plan,omitempty"`
}

// Encode serializes an envelope to its wire form (the Message.Text
// value) and a short human summary for the Message.Summary field.
func Encode(env Envelope) (text string, summary string, err error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", "", fmt.Errorf("protocol: encode %s: %w", env.Type, err)
	}
	return string(data), fmt.Sprintf("%s from %s", env.Type, env.From), nil
}

// Parse attempts to decode text as a protocol envelope. It returns
// ok=false when text is not a JSON object carrying a "type" field, so
// the caller treats it as a plain-text message.
// Malformed-but-recoverable JSON (trailing commas, stray quotes) is
// repaired with jsonrepair before the strict decode is attempted.
func Parse(text string) (env Envelope, ok bool) {
	raw := json.RawMessage(text)
	if !json.Valid(raw) {
		repaired, err := jsonrepair.JSONRepair(text)
		if err != nil {
			return Envelope{}, false
		}
		raw = json.RawMessage(repaired)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Envelope{}, false
	}
	if _, hasType := probe["type"]; !hasType {
		return Envelope{}, false
	}

	var decoded Envelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return Envelope{}, false
	}
	return decoded, true
}

func now() time.Time { return time.Now().UTC() }

// IdleNotification builds an idle_notification envelope.
func IdleNotification(from string) Envelope {
	return Envelope{Type: TypeIdleNotification, From: from, Timestamp: now(), IdleReason: "available"}
}

// ShutdownRequest builds a shutdown_request envelope addressed to target.
func ShutdownRequest(from, target, reason string) Envelope {
	return Envelope{Type: TypeShutdownRequest, From: from, Timestamp: now(), Target: target, Reason: reason}
}

// ShutdownApproved builds a shutdown_approved envelope, echoing requestID
// when the originating request carried one.
func ShutdownApproved(from, target, requestID string) Envelope {
	return Envelope{Type: TypeShutdownApproved, From: from, Timestamp: now(), Target: target, RequestID: requestID}
}

// TaskAssignment builds a task_assignment envelope.
func TaskAssignment(from, target, taskID, taskSubject string) Envelope {
	return Envelope{Type: TypeTaskAssignment, From: from, Timestamp: now(), Target: target, TaskID: taskID, TaskSubj: taskSubject}
}

// TaskCompleted builds a task_completed envelope.
func TaskCompleted(from, target, taskID, taskSubject string) Envelope {
	return Envelope{Type: TypeTaskCompleted, From: from, Timestamp: now(), Target: target, TaskID: taskID, TaskSubj: taskSubject}
}

// PlanApprovalRequest builds a plan_approval_request envelope.
func PlanApprovalRequest(from, target, requestID, plan string) Envelope {
	return Envelope{Type: TypePlanApprovalRequest, From: from, Timestamp: now(), Target: target, RequestID: requestID, Plan: plan}
}

// PlanApprovalResponse builds a plan_approval_response envelope.
func PlanApprovalResponse(from, target, requestID string, approve bool, plan string) Envelope {
	return Envelope{Type: TypePlanApprovalResponse, From: from, Timestamp: now(), Target: target, RequestID: requestID, Approve: &approve, Plan: plan}
}
