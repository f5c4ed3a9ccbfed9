package parser

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flowdeck/internal/deepseek"
	"flowdeck/internal/n8n"
	"flowdeck/internal/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func demoRegistry() *tools.Registry {
	client := n8n.NewClient("http://localhost:5678", "", 5*time.Second, discardLogger())
	return tools.NewRegistry(client, discardLogger())
}

// completionServer serves a fixed assistant message in the OpenAI
// chat completion shape.
func completionServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "cmpl-test",
			"object": "chat.completion",
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

func TestProcessListWorkflows(t *testing.T) {
	llm := deepseek.NewClient(deepseek.Options{}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	reply := p.Process(context.Background(), "show me all my workflows")

	if reply.Response == "" {
		t.Fatal("expected a non-empty reply")
	}
	if reply.Data == nil {
		t.Fatal("expected workflow data")
	}
	if len(reply.ExecutionSteps) != 2 {
		t.Fatalf("expected 2 execution steps, got %d", len(reply.ExecutionSteps))
	}
	if reply.ExecutionSteps[1].Status != "completed" {
		t.Fatalf("execution step should be completed, got %s", reply.ExecutionSteps[1].Status)
	}
}

func TestParseUsesLocalIntent(t *testing.T) {
	llm := deepseek.NewClient(deepseek.Options{}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	cmd := p.Parse(context.Background(), "show me all my workflows")
	if cmd.Intent != "list" {
		t.Fatalf("expected list intent, got %q", cmd.Intent)
	}
	if cmd.Action != "list_workflows" {
		t.Fatalf("expected list_workflows action, got %q", cmd.Action)
	}
	if cmd.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", cmd.Confidence)
	}
}

func TestParseMalformedModelOutput(t *testing.T) {
	server := completionServer(t, "I cannot help with that request.")
	defer server.Close()

	llm := deepseek.NewClient(deepseek.Options{APIKey: "sk-test", BaseURL: server.URL}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	cmd := p.Parse(context.Background(), "please do the thing")
	if cmd.Action != "help" {
		t.Fatalf("expected help action, got %q", cmd.Action)
	}
	if cmd.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", cmd.Confidence)
	}
	if cmd.Intent != "help" {
		t.Fatalf("expected help intent, got %q", cmd.Intent)
	}
	if len(cmd.Parameters) != 0 {
		t.Fatalf("expected empty parameters, got %v", cmd.Parameters)
	}

	// The degraded parse flows through to a deterministic failure reply
	// without touching the persona model.
	reply := p.Process(context.Background(), "please do the thing")
	if !strings.Contains(reply.Response, "Unknown command: help") {
		t.Fatalf("expected unknown-command reply, got %q", reply.Response)
	}
	if reply.ExecutionSteps[1].Status != "failed" {
		t.Fatalf("expected failed step, got %s", reply.ExecutionSteps[1].Status)
	}
}

func TestParseStripsMarkdownFence(t *testing.T) {
	server := completionServer(t, "```json\n{\"command\":\"execute_workflow\",\"parameters\":{\"workflowId\":\"wf_001\"}}\n```")
	defer server.Close()

	llm := deepseek.NewClient(deepseek.Options{APIKey: "sk-test", BaseURL: server.URL}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	cmd := p.Parse(context.Background(), "run workflow wf_001")
	if cmd.Action != "execute_workflow" {
		t.Fatalf("expected execute_workflow, got %q", cmd.Action)
	}
	if cmd.Parameters["workflowId"] != "wf_001" {
		t.Fatalf("expected workflowId parameter, got %v", cmd.Parameters)
	}
	if cmd.Confidence != 1.0 {
		t.Fatalf("expected full confidence, got %v", cmd.Confidence)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	llm := deepseek.NewClient(deepseek.Options{}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	result := p.Execute(context.Background(), ParsedCommand{Action: "reticulate_splines"})
	if result.Success {
		t.Fatal("unknown action must fail")
	}
	if result.Message != "Unknown command: reticulate_splines" {
		t.Fatalf("unexpected message %q", result.Message)
	}
}

func TestExecuteSearchTemplatesReturnsData(t *testing.T) {
	llm := deepseek.NewClient(deepseek.Options{}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	result := p.Execute(context.Background(), ParsedCommand{
		Action:     "search_templates",
		Parameters: map[string]any{"query": "slack"},
	})
	if !result.Success {
		t.Fatalf("search failed: %s", result.Message)
	}
	items, ok := result.Data.([]any)
	if !ok {
		t.Fatalf("expected list data, got %T", result.Data)
	}
	if len(items) != 1 {
		t.Fatalf("expected one slack template, got %d", len(items))
	}
}

func TestRespondFailureBypassesModel(t *testing.T) {
	// No completion server at all: a failed result must never reach it.
	llm := deepseek.NewClient(deepseek.Options{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"}, discardLogger())
	p := New(llm, demoRegistry(), discardLogger())

	got := p.Respond(context.Background(), "do it",
		ParsedCommand{Action: "help"},
		ExecutionResult{Success: false, Message: "Unknown command: help"})

	want := "I encountered an issue: Unknown command: help. Let me know how I can help resolve this."
	if got != want {
		t.Fatalf("unexpected failure reply %q", got)
	}
}
