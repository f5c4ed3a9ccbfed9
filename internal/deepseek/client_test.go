package deepseek

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"flowdeck/pkg/result"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completionServer(t *testing.T, reply string, seen *[]map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if seen != nil {
			*seen = append(*seen, body)
		}
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

func TestTranslateCommand_Live(t *testing.T) {
	var seen []map[string]any
	server := completionServer(t, `{"command":"list_workflows","parameters":{}}`, &seen)
	defer server.Close()

	c := NewClient(Options{APIKey: "sk-test", BaseURL: server.URL}, discardLogger())
	if !c.Live() {
		t.Fatal("expected live client with api key")
	}

	res, err := c.TranslateCommand(context.Background(), "show me all workflows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Source != result.SourceLive {
		t.Error("expected live source")
	}
	if !strings.Contains(res.Value, "list_workflows") {
		t.Errorf("unexpected translation: %q", res.Value)
	}

	if len(seen) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(seen))
	}
	if seen[0]["model"] != "deepseek-chat" {
		t.Errorf("expected deepseek-chat model, got %v", seen[0]["model"])
	}
}

func TestTranslateCommand_FallbackMode(t *testing.T) {
	c := NewClient(Options{}, discardLogger())
	if c.Live() {
		t.Fatal("expected rule-based client without api key")
	}

	res, err := c.TranslateCommand(context.Background(), "show me all my workflows")
	if err != nil {
		t.Fatalf("fallback mode must not error: %v", err)
	}
	if !res.Degraded() {
		t.Error("expected degraded source in fallback mode")
	}

	var cmd struct {
		Command    string         `json:"command"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := json.Unmarshal([]byte(res.Value), &cmd); err != nil {
		t.Fatalf("fallback translation must be valid JSON: %v", err)
	}
	if cmd.Command != "list_workflows" {
		t.Errorf("expected list_workflows, got %q", cmd.Command)
	}
}

func TestTranslateCommand_FallbackIsDeterministic(t *testing.T) {
	c := NewClient(Options{}, discardLogger())

	a, _ := c.TranslateCommand(context.Background(), "find a template for email")
	b, _ := c.TranslateCommand(context.Background(), "find a template for email")
	if a.Value != b.Value {
		t.Errorf("fallback answers differ: %q vs %q", a.Value, b.Value)
	}
}

func TestPersonaReply_FailureBypassesModel(t *testing.T) {
	// Fallback persona answers must not require any HTTP round trip.
	c := NewClient(Options{}, discardLogger())

	res, err := c.PersonaReply(context.Background(), "Execution result: Success", "list my workflows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Value == "" {
		t.Error("expected a non-empty canned reply")
	}
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	c := NewClient(Options{APIKey: "sk-test", BaseURL: server.URL}, discardLogger())
	if _, err := c.ChatCompletion(context.Background(), []Message{{Role: "user", Content: "hi"}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}
