package team

import (
	"time"

	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/protocol"
)

// deliverAssignment sends a task_assignment envelope to owner, fired
// whenever a TaskUpdate call carries a non-empty owner field. The
// envelope's sender is the assigning agent, so the assignee sees who
// handed it the work.
func (t *TeamEngine) deliverAssignment(caller, owner string, task domain.Task) {
	if owner == "" {
		return
	}
	env := protocol.TaskAssignment(caller, owner, task.ID, task.Subject)
	t.deliverEnvelope(owner, env)
}

// deliverCompletion sends a task_completed envelope to the acting
// agent's parent, fired when a TaskUpdate call sets status=completed.
// Routing follows the caller, not the task's owner: whoever marks the
// task done reports the completion up its own chain.
func (t *TeamEngine) deliverCompletion(caller string, task domain.Task) {
	parent, ok := t.ParentOf(caller)
	if !ok {
		return
	}
	env := protocol.TaskCompleted(caller, parent, task.ID, task.Subject)
	t.deliverEnvelope(parent, env)
}

func (t *TeamEngine) deliverEnvelope(to string, env protocol.Envelope) {
	text, summary, err := protocol.Encode(env)
	if err != nil {
		t.log.Error("encode envelope for %s: %v", to, err)
		return
	}
	msg := domain.NewMessage(env.From, text, summary, t.ColorOf(env.From), time.Now())
	if err := t.inbox.Append(to, msg); err != nil {
		t.log.Error("deliver %s envelope to %s: %v", env.Type, to, err)
	}
}
