package deepseek

import (
	"encoding/json"
	"strings"
)

// ruleEngine is the no-credential mode: the same keyword surface the real
// model is prompted with, answered locally and deterministically.
type ruleEngine struct{}

func newRuleEngine() *ruleEngine {
	return &ruleEngine{}
}

func (r *ruleEngine) translate(userInput string) string {
	input := strings.ToLower(userInput)

	command := "help"
	params := map[string]any{}

	switch {
	case containsAny(input, "list", "show", "display") && strings.Contains(input, "workflow"):
		command = "list_workflows"
	case containsAny(input, "run", "execute", "start") && strings.Contains(input, "workflow"):
		command = "execute_workflow"
	case containsAny(input, "search", "find", "look") && strings.Contains(input, "template"):
		command = "search_templates"
		params["query"] = strings.TrimSpace(input)
	case strings.Contains(input, "deploy") && strings.Contains(input, "template"):
		command = "deploy_template"
	case containsAny(input, "status", "health"):
		command = "get_workflow_status"
	case containsAny(input, "create", "build", "make") && strings.Contains(input, "workflow"):
		command = "create_workflow"
		params["description"] = strings.TrimSpace(userInput)
	}

	out, _ := json.Marshal(map[string]any{
		"command":    command,
		"parameters": params,
	})
	return string(out)
}

func (r *ruleEngine) persona(context string) string {
	if strings.Contains(context, "Success") {
		return "Done. The command completed successfully; let me know if you want me to dig into the results or run something else."
	}
	return "I'm running in demo mode without a language-model credential, but the command has been processed. Configure DEEPSEEK_API_KEY for conversational replies."
}

func (r *ruleEngine) chat(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "Demo mode: received \"" + messages[i].Content + "\". Configure DEEPSEEK_API_KEY for live completions."
		}
	}
	return "Demo mode: no user message provided."
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
