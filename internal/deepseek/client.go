// Package deepseek wraps an OpenAI-compatible chat-completion endpoint.
// Without an API key the client answers from deterministic rules so the
// rest of the system keeps working in demo mode.
package deepseek

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"flowdeck/pkg/result"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	api      openai.Client
	model    string
	live     bool
	fallback *ruleEngine
	logger   *slog.Logger
}

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

func NewClient(opts Options, logger *slog.Logger) *Client {
	c := &Client{
		model:    opts.Model,
		fallback: newRuleEngine(),
		logger:   logger,
	}
	if c.model == "" {
		c.model = "deepseek-chat"
	}
	if opts.APIKey == "" {
		logger.Warn("deepseek api key not set, answering from rules")
		return c
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	c.api = openai.NewClient(reqOpts...)
	c.live = true
	return c
}

// Live reports whether the client talks to the real endpoint.
func (c *Client) Live() bool {
	return c.live
}

// ChatCompletion is the single chat primitive every convenience method
// builds on.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	if !c.live {
		return c.fallback.chat(messages), nil
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty message content")
	}
	return content, nil
}

const translatePrompt = `You are a workflow automation expert that translates natural language requests into workflow commands.

Available workflow operations:
- list_workflows: List all available workflows
- create_workflow: Create a new workflow from description
- execute_workflow: Execute an existing workflow
- search_templates: Search workflow templates
- deploy_template: Deploy a template to the automation server
- get_workflow_status: Get execution status

Parse the user's request and return the appropriate command with parameters.
Output ONLY JSON, no markdown.
Format: {"command": "operation_name", "parameters": {...}}`

const personaPrompt = `You are an intelligent workflow assistant, similar to Jarvis. You help users create, manage, and execute workflows through natural conversation.

Your personality:
- Professional but friendly
- Knowledgeable about automation
- Proactive in suggesting improvements
- Clear in explanations
- Helpful in troubleshooting

Always respond in character as a workflow automation expert.

Context: %s`

// TranslateCommand asks the model to turn free text into strict
// {"command": ..., "parameters": {...}} JSON.
func (c *Client) TranslateCommand(ctx context.Context, userInput string) (result.Result[string], error) {
	if !c.live {
		return result.Fallback(c.fallback.translate(userInput)), nil
	}
	out, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: translatePrompt},
		{Role: "user", Content: userInput},
	})
	if err != nil {
		return result.Result[string]{}, err
	}
	return result.Live(out), nil
}

// PersonaReply produces the assistant-voiced reply shown in the chat
// transcript after a command ran.
func (c *Client) PersonaReply(ctx context.Context, context_, userMessage string) (result.Result[string], error) {
	if !c.live {
		return result.Fallback(c.fallback.persona(context_)), nil
	}
	out, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: fmt.Sprintf(personaPrompt, context_)},
		{Role: "user", Content: userMessage},
	})
	if err != nil {
		return result.Result[string]{}, err
	}
	return result.Live(out), nil
}
