// Package parser turns free-form user text into workflow commands, runs
// them through the tool registry, and phrases the outcome as an assistant
// reply.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flowdeck/internal/deepseek"
	"flowdeck/internal/tools"
)

// ParsedCommand is the structured form of one user utterance.
type ParsedCommand struct {
	Intent     string         `json:"intent"`
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
	Confidence float64        `json:"confidence"`
}

// ExecutionResult is the outcome of running a parsed command.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ExecutionStep is one record in the step trail shown next to a reply.
type ExecutionStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Result      any    `json:"result,omitempty"`
	Error       string `json:"error,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// Reply bundles everything Process produces for one utterance.
type Reply struct {
	Response       string          `json:"response"`
	Data           any             `json:"data,omitempty"`
	ExecutionSteps []ExecutionStep `json:"executionSteps,omitempty"`
}

type Parser struct {
	llm    *deepseek.Client
	tools  *tools.Registry
	logger *slog.Logger
}

func New(llm *deepseek.Client, registry *tools.Registry, logger *slog.Logger) *Parser {
	return &Parser{llm: llm, tools: registry, logger: logger}
}

// translated is the JSON shape the model is instructed to emit.
type translated struct {
	Command    string         `json:"command"`
	Parameters map[string]any `json:"parameters"`
}

// Parse never fails: any translation or decode problem degrades to the
// help action with zero confidence. Intent always comes from local
// keyword matching, independent of the model.
func (p *Parser) Parse(ctx context.Context, input string) ParsedCommand {
	intent := extractIntent(input)

	translation, err := p.llm.TranslateCommand(ctx, input)
	if err != nil {
		p.logger.Warn("command translation failed", "error", err)
		return ParsedCommand{Intent: intent, Action: "help", Parameters: map[string]any{}, Confidence: 0}
	}

	var cmd translated
	if err := json.Unmarshal([]byte(cleanJSON(translation.Value)), &cmd); err != nil || cmd.Command == "" {
		p.logger.Warn("model output is not a command", "error", err, "output_len", len(translation.Value))
		return ParsedCommand{Intent: intent, Action: "help", Parameters: map[string]any{}, Confidence: 0}
	}
	if cmd.Parameters == nil {
		cmd.Parameters = map[string]any{}
	}

	return ParsedCommand{
		Intent:     intent,
		Action:     cmd.Command,
		Parameters: cmd.Parameters,
		Confidence: confidence(cmd),
	}
}

// cleanJSON strips the markdown fence some models wrap JSON answers in.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func extractIntent(input string) string {
	in := strings.ToLower(input)
	switch {
	case containsAny(in, "create", "build", "make"):
		return "create"
	case containsAny(in, "run", "execute", "start"):
		return "execute"
	case containsAny(in, "search", "find", "look"):
		return "search"
	case containsAny(in, "list", "show", "display"):
		return "list"
	default:
		return "help"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func confidence(cmd translated) float64 {
	c := 0.5
	if cmd.Command != "" && cmd.Command != "help" {
		c += 0.3
	}
	if len(cmd.Parameters) > 0 {
		c += 0.2
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// Execute runs one command. It never returns an error: remote failures
// become a failed result, and unrecognized actions fail without any
// remote call.
func (p *Parser) Execute(ctx context.Context, cmd ParsedCommand) ExecutionResult {
	switch cmd.Action {
	case "list_workflows":
		return p.callTool(ctx, "list_workflows", cmd.Parameters, "Workflows retrieved")

	case "create_workflow":
		// Creation goes through templates: surface candidates to deploy.
		return p.callTool(ctx, "search_templates", map[string]any{
			"query": firstString(cmd.Parameters, "description", "name", "query"),
		}, "Found templates you can deploy for this workflow")

	case "execute_workflow":
		return p.callTool(ctx, "execute_workflow", map[string]any{
			"id": firstString(cmd.Parameters, "workflowId", "id"),
		}, "Workflow execution started")

	case "search_templates":
		return p.callTool(ctx, "search_templates", map[string]any{
			"query":    firstString(cmd.Parameters, "query"),
			"category": firstString(cmd.Parameters, "category"),
		}, "Templates retrieved")

	case "deploy_template":
		return p.callTool(ctx, "deploy_template", map[string]any{
			"templateId": firstString(cmd.Parameters, "templateId", "id"),
			"customName": firstString(cmd.Parameters, "name", "customName"),
		}, "Template deployed")

	case "get_workflow_status":
		return p.callTool(ctx, "get_executions", map[string]any{
			"workflowId": firstString(cmd.Parameters, "workflowId", "id"),
		}, "Execution status retrieved")

	default:
		return ExecutionResult{
			Success: false,
			Message: fmt.Sprintf("Unknown command: %s", cmd.Action),
		}
	}
}

func (p *Parser) callTool(ctx context.Context, name string, args map[string]any, okMessage string) ExecutionResult {
	resp := p.tools.Call(ctx, tools.Request{Name: name, Arguments: args})
	text := ""
	if len(resp.Content) > 0 {
		text = resp.Content[0].Text
	}
	if resp.IsError {
		return ExecutionResult{Success: false, Message: text}
	}

	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		data = text
	}
	return ExecutionResult{Success: true, Message: okMessage, Data: data}
}

func firstString(params map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := params[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Respond phrases the execution outcome. Failures use a fixed template
// and never reach the model.
func (p *Parser) Respond(ctx context.Context, input string, cmd ParsedCommand, result ExecutionResult) string {
	if !result.Success {
		return fmt.Sprintf("I encountered an issue: %s. Let me know how I can help resolve this.", result.Message)
	}

	data, err := json.Marshal(result.Data)
	if err != nil {
		data = []byte("null")
	}
	context_ := fmt.Sprintf(
		"User asked: %q\nParsed command: %s\nCommand parameters: %v\nExecution result: Success\nResult data: %s",
		input, cmd.Action, cmd.Parameters, data,
	)

	reply, err := p.llm.PersonaReply(ctx, context_, input)
	if err != nil {
		p.logger.Warn("persona reply failed", "error", err)
		return result.Message
	}
	return reply.Value
}

// Process runs the full parse, execute, respond sequence for one
// utterance and records the step trail alongside the reply.
func (p *Parser) Process(ctx context.Context, input string) Reply {
	cmd := p.Parse(ctx, input)
	result := p.Execute(ctx, cmd)
	response := p.Respond(ctx, input, cmd, result)

	return Reply{
		Response:       response,
		Data:           result.Data,
		ExecutionSteps: executionSteps(cmd, result),
	}
}

func executionSteps(cmd ParsedCommand, result ExecutionResult) []ExecutionStep {
	now := time.Now().UTC().Format(time.RFC3339)

	second := ExecutionStep{
		Step:        2,
		Description: fmt.Sprintf("Executing %s", cmd.Action),
		Status:      "completed",
		Result:      result.Data,
		Timestamp:   now,
	}
	if !result.Success {
		second.Status = "failed"
		second.Error = result.Message
	}

	return []ExecutionStep{
		{
			Step:        1,
			Description: fmt.Sprintf("Parsed command: %s", cmd.Action),
			Status:      "completed",
			Result:      cmd,
			Timestamp:   now,
		},
		second,
	}
}
