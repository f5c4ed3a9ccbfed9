package n8n

// Workflow is a named automation definition on the n8n server.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Active      bool           `json:"active"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	Nodes       []Node         `json:"nodes"`
	Connections map[string]any `json:"connections"`
}

type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// Execution is one run instance of a workflow.
type Execution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
	Mode       string `json:"mode"`
}

// Execution statuses reported by the n8n API.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusRunning   = "running"
	StatusWaiting   = "waiting"
	StatusCancelled = "cancelled"
)

// Health is the aggregate connectivity snapshot served by the dashboard.
type Health struct {
	Status           string `json:"status"`
	Connected        bool   `json:"n8nConnected"`
	WorkflowCount    int    `json:"workflowCount"`
	RecentExecutions int    `json:"recentExecutions"`
	Error            string `json:"error,omitempty"`
	LastCheck        string `json:"lastCheck"`
}
