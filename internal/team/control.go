package team

import (
	"time"

	"github.com/teamkit/teamkit/internal/broadcast"
	"github.com/teamkit/teamkit/internal/domain"
	"github.com/teamkit/teamkit/internal/protocol"
)

// SendUserMessage appends text as sender "user" to target's inbox,
// defaulting to the top leader when target is empty.
func (t *TeamEngine) SendUserMessage(text, target string) error {
	if target == "" {
		target = t.topLeader
	}
	return t.inbox.Append(target, domain.NewMessage("user", text, "", "", time.Now()))
}

// Stop ends the scheduler: every agent's inbox receives a
// shutdown_request envelope from sender "system", one protocol_message
// event is emitted, and then the running scheduler goroutine is
// signalled to exit. Stop blocks until Run has returned.
func (t *TeamEngine) Stop() {
	t.mu.Lock()
	alreadyStopped := !t.running
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.mu.Unlock()
	if alreadyStopped {
		return
	}

	for _, name := range t.AgentNames() {
		env := protocol.ShutdownRequest("system", name, "session ending")
		text, summary, err := protocol.Encode(env)
		if err != nil {
			t.log.Error("encode shutdown_request for %s: %v", name, err)
			continue
		}
		msg := domain.NewMessage("system", text, summary, "", time.Now())
		if err := t.inbox.Append(name, msg); err != nil {
			t.log.Error("deliver shutdown_request to %s: %v", name, err)
		}
	}
	t.emit(broadcast.TypeProtocolMessage, "", map[string]any{"type": string(protocol.TypeShutdownRequest)})

	select {
	case <-stopCh:
	default:
		close(stopCh)
	}
	<-doneCh
}

// Cleanup purges both the inbox and task directories for this session,
// drops the session's event subscribers, and discards its token usage.
func (t *TeamEngine) Cleanup() error {
	if err := t.inbox.Cleanup(); err != nil {
		return err
	}
	if err := t.tasks.CleanupDir(); err != nil {
		return err
	}
	if t.events != nil {
		t.events.Cleanup(t.sessionID)
	}
	if t.tracker != nil {
		t.tracker.ClearSession(t.sessionID)
	}
	return nil
}
