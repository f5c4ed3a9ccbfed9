// Package tools dispatches the dashboard's uniform tool-call envelope
// ({name, arguments} in, {content, isError} out) to the automation server,
// falling back to catalog fixtures when no server is configured.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"flowdeck/internal/catalog"
	"flowdeck/internal/n8n"
)

type Request struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Response struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
	Source  string    `json:"source,omitempty"`
}

func textResponse(text string, degraded bool) Response {
	r := Response{Content: []Content{{Type: "text", Text: text}}}
	if degraded {
		r.Source = "fallback"
	}
	return r
}

func errorResponse(text string) Response {
	return Response{
		Content: []Content{{Type: "text", Text: text}},
		IsError: true,
	}
}

// handler returns the JSON text payload and whether it came from fixtures.
type handler func(ctx context.Context, args map[string]any) (string, bool, error)

type Registry struct {
	n8n      *n8n.Client
	handlers map[string]handler
	logger   *slog.Logger
}

func NewRegistry(client *n8n.Client, logger *slog.Logger) *Registry {
	r := &Registry{
		n8n:      client,
		handlers: map[string]handler{},
		logger:   logger,
	}

	r.handlers["list_workflows"] = r.listWorkflows
	r.handlers["get_workflow"] = r.getWorkflow
	r.handlers["execute_workflow"] = r.executeWorkflow
	r.handlers["activate_workflow"] = r.activateWorkflow
	r.handlers["deactivate_workflow"] = r.deactivateWorkflow
	r.handlers["get_executions"] = r.getExecutions
	r.handlers["stop_execution"] = r.stopExecution
	r.handlers["test_connection"] = r.testConnection
	r.handlers["search_templates"] = r.searchTemplates
	r.handlers["list_templates"] = r.listTemplates
	r.handlers["get_template"] = r.getTemplate
	r.handlers["deploy_template"] = r.deployTemplate
	r.handlers["get_template_stats"] = r.templateStats
	r.handlers["list_integrations"] = r.listIntegrations

	return r
}

// Call runs one tool and always produces an envelope, never an error.
func (r *Registry) Call(ctx context.Context, req Request) Response {
	h, ok := r.handlers[req.Name]
	if !ok {
		return errorResponse("Unknown tool: " + req.Name)
	}

	text, degraded, err := h(ctx, req.Arguments)
	if err != nil {
		r.logger.Warn("tool call failed", "tool", req.Name, "error", err)
		return errorResponse("Error: " + err.Error())
	}
	return textResponse(text, degraded)
}

func marshal(v any) (string, error) {
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(out), nil
}

func (r *Registry) live() bool {
	return r.n8n != nil && r.n8n.Configured()
}

func (r *Registry) listWorkflows(ctx context.Context, args map[string]any) (string, bool, error) {
	active := argBool(args, "active")
	if !r.live() {
		text, err := marshal(catalog.DemoWorkflows(active))
		return text, true, err
	}
	workflows, err := r.n8n.ListWorkflows(ctx, active)
	if err != nil {
		return "", false, err
	}
	text, err := marshal(workflows)
	return text, false, err
}

func (r *Registry) getWorkflow(ctx context.Context, args map[string]any) (string, bool, error) {
	id := argString(args, "id")
	if !r.live() {
		wf := catalog.DemoWorkflow(id)
		if wf == nil {
			return "", true, fmt.Errorf("workflow not found: %s", id)
		}
		text, err := marshal(wf)
		return text, true, err
	}
	wf, err := r.n8n.GetWorkflow(ctx, id)
	if err != nil {
		return "", false, err
	}
	text, err := marshal(wf)
	return text, false, err
}

func (r *Registry) executeWorkflow(ctx context.Context, args map[string]any) (string, bool, error) {
	id := argString(args, "id")
	if id == "" {
		id = argString(args, "workflowId")
	}
	if !r.live() {
		now := time.Now().UTC()
		text, err := marshal(n8n.Execution{
			ID:         "exec_" + uuid.NewString()[:8],
			WorkflowID: id,
			Status:     n8n.StatusSuccess,
			StartedAt:  now.Format(time.RFC3339),
			FinishedAt: now.Add(5 * time.Second).Format(time.RFC3339),
			Mode:       "manual",
		})
		return text, true, err
	}
	var data map[string]any
	if d, ok := args["data"].(map[string]any); ok {
		data = d
	}
	raw, err := r.n8n.ExecuteWorkflow(ctx, id, data)
	if err != nil {
		return "", false, err
	}
	return string(raw), false, nil
}

func (r *Registry) activateWorkflow(ctx context.Context, args map[string]any) (string, bool, error) {
	return r.setActive(ctx, args, true)
}

func (r *Registry) deactivateWorkflow(ctx context.Context, args map[string]any) (string, bool, error) {
	return r.setActive(ctx, args, false)
}

func (r *Registry) setActive(ctx context.Context, args map[string]any, active bool) (string, bool, error) {
	id := argString(args, "id")
	if !r.live() {
		verb := "deactivated"
		if active {
			verb = "activated"
		}
		text, err := marshal(map[string]any{
			"id":      id,
			"active":  active,
			"message": "Workflow " + verb + " successfully",
		})
		return text, true, err
	}
	var (
		raw json.RawMessage
		err error
	)
	if active {
		raw, err = r.n8n.ActivateWorkflow(ctx, id)
	} else {
		raw, err = r.n8n.DeactivateWorkflow(ctx, id)
	}
	if err != nil {
		return "", false, err
	}
	return string(raw), false, nil
}

func (r *Registry) getExecutions(ctx context.Context, args map[string]any) (string, bool, error) {
	workflowID := argString(args, "workflowId")
	limit := argInt(args, "limit", 10)
	if !r.live() {
		text, err := marshal(catalog.DemoExecutions(workflowID, limit))
		return text, true, err
	}
	executions, err := r.n8n.ListExecutions(ctx, workflowID, limit)
	if err != nil {
		return "", false, err
	}
	text, err := marshal(executions)
	return text, false, err
}

func (r *Registry) stopExecution(ctx context.Context, args map[string]any) (string, bool, error) {
	id := argString(args, "executionId")
	if !r.live() {
		text, err := marshal(map[string]any{
			"id":      id,
			"status":  n8n.StatusCancelled,
			"message": "Execution stopped",
		})
		return text, true, err
	}
	raw, err := r.n8n.StopExecution(ctx, id)
	if err != nil {
		return "", false, err
	}
	return string(raw), false, nil
}

func (r *Registry) testConnection(ctx context.Context, _ map[string]any) (string, bool, error) {
	if !r.live() {
		return "false", true, nil
	}
	if r.n8n.TestConnection(ctx) {
		return "true", false, nil
	}
	return "false", false, nil
}

func (r *Registry) searchTemplates(_ context.Context, args map[string]any) (string, bool, error) {
	results := catalog.SearchTemplates(catalog.Filter{
		Query:       argString(args, "query"),
		Category:    argString(args, "category"),
		Complexity:  argString(args, "complexity"),
		TriggerType: argString(args, "trigger_type"),
	}, "", false, argInt(args, "limit", 50), 0)
	text, err := marshal(results)
	return text, false, err
}

func (r *Registry) listTemplates(_ context.Context, args map[string]any) (string, bool, error) {
	results := catalog.SearchTemplates(catalog.Filter{
		Category:    argString(args, "category"),
		Complexity:  argString(args, "complexity"),
		TriggerType: argString(args, "trigger_type"),
	}, "", false, argInt(args, "limit", 50), argInt(args, "offset", 0))
	text, err := marshal(results)
	return text, false, err
}

func (r *Registry) getTemplate(_ context.Context, args map[string]any) (string, bool, error) {
	id := argString(args, "id")
	tpl := catalog.GetTemplate(id)
	if tpl == nil {
		return "", false, fmt.Errorf("template not found: %s", id)
	}
	text, err := marshal(tpl)
	return text, false, err
}

func (r *Registry) deployTemplate(_ context.Context, args map[string]any) (string, bool, error) {
	templateID := argString(args, "templateId")
	if catalog.GetTemplate(templateID) == nil {
		return "", false, fmt.Errorf("template not found: %s", templateID)
	}
	name := argString(args, "customName")
	if name == "" {
		name = argString(args, "name")
	}
	if name == "" {
		name = "Deployed Workflow"
	}
	active := false
	if v := argBool(args, "activate"); v != nil {
		active = *v
	}
	text, err := marshal(map[string]any{
		"workflowId": "wf_" + uuid.NewString()[:8],
		"templateId": templateID,
		"name":       name,
		"active":     active,
		"message":    "Template deployed successfully",
	})
	return text, false, err
}

func (r *Registry) templateStats(_ context.Context, _ map[string]any) (string, bool, error) {
	text, err := marshal(catalog.Stats(time.Now().UTC().Format(time.RFC3339)))
	return text, false, err
}

func (r *Registry) listIntegrations(_ context.Context, _ map[string]any) (string, bool, error) {
	text, err := marshal(catalog.ListIntegrations())
	return text, false, err
}

func argString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]any, key string, fallback int) int {
	if args == nil {
		return fallback
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

// argBool distinguishes "absent" from "false", which the active filter needs.
func argBool(args map[string]any, key string) *bool {
	if args == nil {
		return nil
	}
	if v, ok := args[key].(bool); ok {
		return &v
	}
	return nil
}
