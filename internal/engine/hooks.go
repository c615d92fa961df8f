package engine

import "github.com/teamkit/teamkit/internal/domain"

// Hooks are the lifecycle callbacks ToolExecutor fires as it dispatches
// tool calls: the executor stays stateless beyond its store handles and
// AgentRunner/TeamEngine supply the behavior.
type Hooks struct {
	OnMessageSent   func(from, to string, msg domain.Message)
	OnTaskChanged   func(task domain.Task)
	OnTaskAssigned  func(caller, owner string, task domain.Task)
	OnTaskCompleted func(caller string, task domain.Task)
}

func (h Hooks) fireMessageSent(from, to string, msg domain.Message) {
	if h.OnMessageSent != nil {
		h.OnMessageSent(from, to, msg)
	}
}

func (h Hooks) fireTaskChanged(task domain.Task) {
	if h.OnTaskChanged != nil {
		h.OnTaskChanged(task)
	}
}

func (h Hooks) fireTaskAssigned(caller, owner string, task domain.Task) {
	if h.OnTaskAssigned != nil {
		h.OnTaskAssigned(caller, owner, task)
	}
}

func (h Hooks) fireTaskCompleted(caller string, task domain.Task) {
	if h.OnTaskCompleted != nil {
		h.OnTaskCompleted(caller, task)
	}
}
