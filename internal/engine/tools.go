package engine

import "github.com/teamkit/teamkit/internal/ports"

// Tool name constants for the five tools exposed to the model.
const (
	ToolSendMessage = "SendMessage"
	ToolTaskCreate  = "TaskCreate"
	ToolTaskUpdate  = "TaskUpdate"
	ToolTaskList    = "TaskList"
	ToolTaskGet     = "TaskGet"
)

// SendMessage type values.
const (
	SendTypeMessage             = "message"
	SendTypeBroadcast           = "broadcast"
	SendTypeShutdownRequest     = "shutdown_request"
	SendTypeShutdownResponse    = "shutdown_response"
	SendTypePlanApprovalRequest = "plan_approval_request"
	SendTypePlanApprovalResp    = "plan_approval_response"
)

// ToolDefinitions returns the JSON-schema tool descriptions sent to the
// model out of band from the descriptive list in the system prompt.
func ToolDefinitions() []ports.ToolDefinition {
	return []ports.ToolDefinition{
		{
			Name:        ToolSendMessage,
			Description: "Send a message to a teammate, broadcast to the whole team, or exchange a protocol handshake (shutdown, plan approval).",
			Parameters: ports.ParameterSchema{
				Type: "object",
				Properties: map[string]ports.Property{
					"type": {
						Type:        "string",
						Description: "message | broadcast | shutdown_request | shutdown_response | plan_approval_request | plan_approval_response",
						Enum: []string{
							SendTypeMessage, SendTypeBroadcast,
							SendTypeShutdownRequest, SendTypeShutdownResponse,
							SendTypePlanApprovalRequest, SendTypePlanApprovalResp,
						},
					},
					"recipient":   {Type: "string", Description: "Target agent name (required for type=message)."},
					"message":     {Type: "string", Description: "The message body."},
					"reason":      {Type: "string", Description: "Reason accompanying a shutdown_request."},
					"requestId":   {Type: "string", Description: "Correlates a response with its originating request."},
					"approve":     {Type: "string", Description: "\"true\" or \"false\", for plan_approval_response."},
					"plan":        {Type: "string", Description: "The plan text, for plan approval envelopes."},
				},
				Required: []string{"type"},
			},
		},
		{
			Name:        ToolTaskCreate,
			Description: "Create a new task on the shared task list.",
			Parameters: ports.ParameterSchema{
				Type: "object",
				Properties: map[string]ports.Property{
					"subject":     {Type: "string", Description: "Short imperative title."},
					"description": {Type: "string", Description: "What needs to be done."},
					"owner":       {Type: "string", Description: "Agent to assign the task to, if known up front."},
					"activeForm":  {Type: "string", Description: "Present-continuous label shown while the task is in progress."},
				},
				Required: []string{"subject", "description"},
			},
		},
		{
			Name:        ToolTaskUpdate,
			Description: "Update a task's fields, status, owner, or metadata.",
			Parameters: ports.ParameterSchema{
				Type: "object",
				Properties: map[string]ports.Property{
					"taskId":       {Type: "string", Description: "The task to update."},
					"subject":      {Type: "string"},
					"description":  {Type: "string"},
					"status":       {Type: "string", Enum: []string{"pending", "in_progress", "completed", "deleted"}},
					"owner":        {Type: "string"},
					"activeForm":   {Type: "string"},
					"addBlockedBy": {Type: "array", Items: &ports.Property{Type: "string"}},
					"addBlocks":    {Type: "array", Items: &ports.Property{Type: "string"}},
				},
				Required: []string{"taskId"},
			},
		},
		{
			Name:        ToolTaskList,
			Description: "List every task on the shared task list.",
			Parameters: ports.ParameterSchema{
				Type:       "object",
				Properties: map[string]ports.Property{},
			},
		},
		{
			Name:        ToolTaskGet,
			Description: "Fetch a single task by id.",
			Parameters: ports.ParameterSchema{
				Type: "object",
				Properties: map[string]ports.Property{
					"taskId": {Type: "string"},
				},
				Required: []string{"taskId"},
			},
		},
	}
}
