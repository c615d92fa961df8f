package domain

// Role distinguishes leaders (who delegate) from teammates (who do the
// work they are assigned).
type Role string

const (
	RoleLeader   Role = "leader"
	RoleTeammate Role = "teammate"
)

// AgentConfig describes one agent in a session's roster.
type AgentConfig struct {
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Role         Role     `json:"role"`
	Connections  []string `json:"connections"`
}

// DefaultSystemPrompt is a generic system prompt for an agent configured
// without one. Nothing in this module applies it automatically: an
// empty SystemPrompt stays empty.
const DefaultSystemPrompt = "You are a helpful AI assistant."
