// Package catalog holds the in-memory template and integration collections
// the dashboard renders, plus the demo workflow fixtures served when no
// automation server is configured. All lookups return copies.
package catalog

import (
	"sort"
	"strings"

	"flowdeck/internal/n8n"
)

// TemplateSummary is a reusable workflow blueprint catalogued for deployment.
type TemplateSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Complexity   string   `json:"complexity"`
	Nodes        int      `json:"nodes"`
	Integrations []string `json:"integrations"`
	Active       bool     `json:"active"`
	Executions   int      `json:"executions"`
	LastExecuted string   `json:"lastExecuted,omitempty"`
	TriggerType  string   `json:"trigger_type"`
}

type IntegrationSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// TemplateStats is the aggregate card on the templates page.
type TemplateStats struct {
	TotalTemplates  int      `json:"totalTemplates"`
	Categories      []string `json:"categories"`
	TotalExecutions int      `json:"totalExecutions"`
	LastUpdated     string   `json:"lastUpdated"`
}

var templates = []TemplateSummary{
	{
		ID:           "tpl_001",
		Name:         "OpenAI Content Generator",
		Description:  "Generate AI content using OpenAI GPT-4",
		Category:     "AI/ML",
		Complexity:   "medium",
		Nodes:        3,
		Integrations: []string{"OpenAI", "Webhook"},
		Active:       true,
		Executions:   156,
		LastExecuted: "2024-01-16T14:30:00Z",
		TriggerType:  "manual",
	},
	{
		ID:           "tpl_002",
		Name:         "Slack Notification Bot",
		Description:  "Automated Slack notifications for team updates",
		Category:     "Communication",
		Complexity:   "low",
		Nodes:        2,
		Integrations: []string{"Slack", "Schedule"},
		Active:       true,
		Executions:   342,
		LastExecuted: "2024-01-16T14:25:00Z",
		TriggerType:  "schedule",
	},
	{
		ID:           "tpl_003",
		Name:         "Email Automation",
		Description:  "Automated email responses and notifications",
		Category:     "Communication",
		Complexity:   "low",
		Nodes:        3,
		Integrations: []string{"Gmail", "Webhook"},
		Active:       true,
		Executions:   89,
		TriggerType:  "cron",
	},
	{
		ID:           "tpl_004",
		Name:         "Data Sync Pipeline",
		Description:  "Sync data between multiple databases",
		Category:     "Database",
		Complexity:   "high",
		Nodes:        6,
		Integrations: []string{"PostgreSQL", "MongoDB"},
		Active:       false,
		Executions:   23,
		TriggerType:  "schedule",
	},
}

var integrations = []IntegrationSummary{
	{ID: "int_001", Name: "OpenAI", Category: "AI/ML", Description: "OpenAI GPT models"},
	{ID: "int_002", Name: "Slack", Category: "Communication", Description: "Slack messaging"},
	{ID: "int_003", Name: "Google Sheets", Category: "Database", Description: "Google Sheets integration"},
	{ID: "int_004", Name: "Discord", Category: "Communication", Description: "Discord bot integration"},
	{ID: "int_005", Name: "Webhook", Category: "Communication", Description: "HTTP webhook integration"},
	{ID: "int_006", Name: "Schedule", Category: "Automation", Description: "Schedule trigger"},
}

// Filter narrows a template list by free-text query and facet filters.
// Empty arguments match everything.
type Filter struct {
	Query       string
	Category    string
	Complexity  string
	TriggerType string
}

func (f Filter) matches(t TemplateSummary) bool {
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Complexity != "" && t.Complexity != f.Complexity {
		return false
	}
	if f.TriggerType != "" && t.TriggerType != f.TriggerType {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	return true
}

// SearchTemplates applies the filter, sorts, and paginates.
func SearchTemplates(f Filter, sortBy string, desc bool, limit, offset int) []TemplateSummary {
	out := make([]TemplateSummary, 0, len(templates))
	for _, t := range templates {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	sortTemplates(out, sortBy, desc)
	return paginate(out, limit, offset)
}

func sortTemplates(ts []TemplateSummary, sortBy string, desc bool) {
	less := func(i, j int) bool { return ts[i].Name < ts[j].Name }
	switch sortBy {
	case "executions":
		less = func(i, j int) bool { return ts[i].Executions < ts[j].Executions }
	case "nodes":
		less = func(i, j int) bool { return ts[i].Nodes < ts[j].Nodes }
	}
	if desc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(ts, less)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return append([]T(nil), items...)
}

// GetTemplate returns the template with the given id, or nil.
func GetTemplate(id string) *TemplateSummary {
	for _, t := range templates {
		if t.ID == id {
			cp := t
			return &cp
		}
	}
	return nil
}

func ListIntegrations() []IntegrationSummary {
	return append([]IntegrationSummary(nil), integrations...)
}

// Stats aggregates the catalogue for the templates dashboard card.
func Stats(now string) TemplateStats {
	seen := map[string]bool{}
	var categories []string
	total := 0
	for _, t := range templates {
		total += t.Executions
		if !seen[t.Category] {
			seen[t.Category] = true
			categories = append(categories, t.Category)
		}
	}
	return TemplateStats{
		TotalTemplates:  len(templates),
		Categories:      categories,
		TotalExecutions: total,
		LastUpdated:     now,
	}
}

// Demo fixtures, served by the tool layer when the n8n client is not
// configured.

var demoWorkflows = []n8n.Workflow{
	{
		ID:        "wf_001",
		Name:      "AI Content Generator",
		Active:    true,
		CreatedAt: "2024-01-15T10:30:00Z",
		UpdatedAt: "2024-01-16T14:22:00Z",
		Nodes: []n8n.Node{
			{ID: "node_1", Type: "trigger", Name: "Manual Trigger"},
			{ID: "node_2", Type: "openai", Name: "OpenAI GPT-4"},
			{ID: "node_3", Type: "webhook", Name: "Webhook Response"},
		},
		Connections: map[string]any{},
	},
	{
		ID:        "wf_002",
		Name:      "Slack Message Automation",
		Active:    true,
		CreatedAt: "2024-01-10T09:15:00Z",
		UpdatedAt: "2024-01-12T16:45:00Z",
		Nodes: []n8n.Node{
			{ID: "node_1", Type: "schedule", Name: "Schedule Trigger"},
			{ID: "node_2", Type: "slack", Name: "Send Slack Message"},
		},
		Connections: map[string]any{},
	},
}

var demoExecutions = []n8n.Execution{
	{
		ID:         "exec_001",
		WorkflowID: "wf_001",
		Status:     n8n.StatusSuccess,
		StartedAt:  "2024-01-16T14:30:00Z",
		FinishedAt: "2024-01-16T14:30:15Z",
		Mode:       "manual",
	},
	{
		ID:         "exec_002",
		WorkflowID: "wf_002",
		Status:     n8n.StatusSuccess,
		StartedAt:  "2024-01-16T14:25:00Z",
		FinishedAt: "2024-01-16T14:25:08Z",
		Mode:       "trigger",
	},
}

// DemoWorkflows returns the fixture list, optionally filtered by active state.
func DemoWorkflows(active *bool) []n8n.Workflow {
	out := make([]n8n.Workflow, 0, len(demoWorkflows))
	for _, w := range demoWorkflows {
		if active != nil && w.Active != *active {
			continue
		}
		out = append(out, w)
	}
	return out
}

func DemoWorkflow(id string) *n8n.Workflow {
	for _, w := range demoWorkflows {
		if w.ID == id {
			cp := w
			return &cp
		}
	}
	return nil
}

func DemoExecutions(workflowID string, limit int) []n8n.Execution {
	out := make([]n8n.Execution, 0, len(demoExecutions))
	for _, e := range demoExecutions {
		if workflowID != "" && e.WorkflowID != workflowID {
			continue
		}
		out = append(out, e)
	}
	return paginate(out, limit, 0)
}
