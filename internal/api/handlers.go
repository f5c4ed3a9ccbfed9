package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"flowdeck/internal/catalog"
	"flowdeck/internal/deepseek"
	"flowdeck/internal/n8n"
	"flowdeck/internal/session"
	"flowdeck/internal/tools"
	"flowdeck/pkg/audioconv"
)

func (s *Server) toolsCall(w http.ResponseWriter, r *http.Request) {
	var req tools.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "invalid tool call request")
		return
	}
	s.writeJSON(w, http.StatusOK, s.registry.Call(r.Context(), req))
}

type aiRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (s *Server) ai(w http.ResponseWriter, r *http.Request) {
	var req aiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Action {
	case "translateToWorkflowCommand":
		var data struct {
			UserInput string `json:"userInput"`
		}
		if err := json.Unmarshal(req.Data, &data); err != nil || data.UserInput == "" {
			s.writeError(w, http.StatusBadRequest, "userInput is required")
			return
		}
		res, err := s.llm.TranslateCommand(r.Context(), data.UserInput)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "language model unavailable")
			return
		}
		s.writeAIResult(w, res.Value, res.Degraded())

	case "generateJarvisResponse":
		var data struct {
			Context     string `json:"context"`
			UserMessage string `json:"userMessage"`
		}
		if err := json.Unmarshal(req.Data, &data); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid action data")
			return
		}
		res, err := s.llm.PersonaReply(r.Context(), data.Context, data.UserMessage)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "language model unavailable")
			return
		}
		s.writeAIResult(w, res.Value, res.Degraded())

	case "chatCompletion":
		var data struct {
			Messages []deepseek.Message `json:"messages"`
		}
		if err := json.Unmarshal(req.Data, &data); err != nil || len(data.Messages) == 0 {
			s.writeError(w, http.StatusBadRequest, "messages are required")
			return
		}
		reply, err := s.llm.ChatCompletion(r.Context(), data.Messages)
		if err != nil {
			s.writeError(w, http.StatusBadGateway, "language model unavailable")
			return
		}
		s.writeAIResult(w, reply, !s.llm.Live())

	default:
		s.writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

func (s *Server) writeAIResult(w http.ResponseWriter, value string, degraded bool) {
	resp := map[string]any{"result": value}
	if degraded {
		resp["source"] = "fallback"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) assistantMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	s.session.Append(session.Message{Type: session.TypeUser, Content: req.Message})

	reply := s.parser.Process(r.Context(), req.Message)
	stored := s.session.Append(session.Message{
		Type:           session.TypeAssistant,
		Content:        reply.Response,
		ExecutionSteps: reply.ExecutionSteps,
	})

	s.writeJSON(w, http.StatusOK, map[string]any{
		"messageId":      stored.ID,
		"response":       reply.Response,
		"data":           reply.Data,
		"executionSteps": reply.ExecutionSteps,
	})
}

func (s *Server) voiceAnalyze(w http.ResponseWriter, r *http.Request) {
	blob, interpret, ok := s.readAudioBody(w, r)
	if !ok {
		return
	}

	pcm, err := audioconv.ConvertToPCM16k(blob, audioconv.Options{})
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "unsupported or corrupt audio")
		return
	}
	wavBlob, err := audioconv.EncodeWAV(pcm)
	if err != nil {
		s.logger.Error("wav encode failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "audio processing failed")
		return
	}

	analysis := s.emotion.AnalyzeAudio(r.Context(), wavBlob)
	resp := map[string]any{
		"transcript": analysis.Value.Transcript,
		"emotions":   analysis.Value.Emotions,
		"confidence": analysis.Value.Confidence,
	}
	if analysis.Degraded() {
		resp["source"] = "fallback"
	}

	if interpret && analysis.Value.Transcript != "" {
		s.session.Append(session.Message{
			Type:     session.TypeUser,
			Content:  analysis.Value.Transcript,
			Emotions: analysis.Value.Emotions,
		})
		reply := s.parser.Process(r.Context(), analysis.Value.Transcript)
		s.session.Append(session.Message{
			Type:           session.TypeAssistant,
			Content:        reply.Response,
			ExecutionSteps: reply.ExecutionSteps,
		})
		resp["assistant"] = map[string]any{
			"response":       reply.Response,
			"data":           reply.Data,
			"executionSteps": reply.ExecutionSteps,
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// readAudioBody accepts either {"audio": base64, "interpret": bool}
// JSON or a raw audio body with ?interpret=true.
func (s *Server) readAudioBody(w http.ResponseWriter, r *http.Request) ([]byte, bool, bool) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req struct {
			Audio     string `json:"audio"`
			Interpret bool   `json:"interpret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Audio == "" {
			s.writeError(w, http.StatusBadRequest, "audio is required")
			return nil, false, false
		}
		blob, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "audio must be base64 encoded")
			return nil, false, false
		}
		return blob, req.Interpret, true
	}

	blob, err := io.ReadAll(r.Body)
	if err != nil || len(blob) == 0 {
		s.writeError(w, http.StatusBadRequest, "audio body is required")
		return nil, false, false
	}
	return blob, r.URL.Query().Get("interpret") == "true", true
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	var active *bool
	if v := r.URL.Query().Get("active"); v != "" {
		b := v == "true"
		active = &b
	}

	if s.demoMode() {
		s.writeJSON(w, http.StatusOK, catalog.DemoWorkflows(active))
		return
	}
	workflows, err := s.n8n.ListWorkflows(r.Context(), active)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, workflows)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.demoMode() {
		wf := catalog.DemoWorkflow(id)
		if wf == nil {
			s.writeError(w, http.StatusNotFound, "workflow not found")
			return
		}
		s.writeJSON(w, http.StatusOK, wf)
		return
	}
	wf, err := s.n8n.GetWorkflow(r.Context(), id)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

func (s *Server) executeWorkflow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.demoMode() {
		now := time.Now().UTC()
		s.writeJSON(w, http.StatusOK, n8n.Execution{
			ID:         "exec_" + uuid.NewString()[:8],
			WorkflowID: id,
			Status:     n8n.StatusSuccess,
			StartedAt:  now.Format(time.RFC3339),
			FinishedAt: now.Add(5 * time.Second).Format(time.RFC3339),
			Mode:       "manual",
		})
		return
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	raw, err := s.n8n.ExecuteWorkflow(r.Context(), id, body.Data)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeRaw(w, raw)
}

func (s *Server) activateWorkflow(w http.ResponseWriter, r *http.Request) {
	s.setWorkflowActive(w, r, true)
}

func (s *Server) deactivateWorkflow(w http.ResponseWriter, r *http.Request) {
	s.setWorkflowActive(w, r, false)
}

func (s *Server) setWorkflowActive(w http.ResponseWriter, r *http.Request, active bool) {
	id := chi.URLParam(r, "id")

	if s.demoMode() {
		s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": active})
		return
	}

	var (
		raw json.RawMessage
		err error
	)
	if active {
		raw, err = s.n8n.ActivateWorkflow(r.Context(), id)
	} else {
		raw, err = s.n8n.DeactivateWorkflow(r.Context(), id)
	}
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeRaw(w, raw)
}

func (s *Server) listExecutions(w http.ResponseWriter, r *http.Request) {
	workflowID := r.URL.Query().Get("workflowId")
	limit := queryInt(r, "limit", 10)

	if s.demoMode() {
		s.writeJSON(w, http.StatusOK, catalog.DemoExecutions(workflowID, limit))
		return
	}
	executions, err := s.n8n.ListExecutions(r.Context(), workflowID, limit)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, executions)
}

func (s *Server) stopExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if s.demoMode() {
		s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": n8n.StatusCancelled})
		return
	}
	raw, err := s.n8n.StopExecution(r.Context(), id)
	if err != nil {
		s.upstreamError(w, err)
		return
	}
	s.writeRaw(w, raw)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results := catalog.SearchTemplates(catalog.Filter{
		Query:       q.Get("query"),
		Category:    q.Get("category"),
		Complexity:  q.Get("complexity"),
		TriggerType: q.Get("trigger_type"),
	}, q.Get("sort"), q.Get("order") == "desc", queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) getTemplate(w http.ResponseWriter, r *http.Request) {
	tpl := catalog.GetTemplate(chi.URLParam(r, "id"))
	if tpl == nil {
		s.writeError(w, http.StatusNotFound, "template not found")
		return
	}
	s.writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) deployTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if catalog.GetTemplate(id) == nil {
		s.writeError(w, http.StatusNotFound, "template not found")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Activate bool   `json:"activate"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if req.Name == "" {
		req.Name = "Deployed Workflow"
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{
		"workflowId": "wf_" + uuid.NewString()[:8],
		"templateId": id,
		"name":       req.Name,
		"active":     req.Activate,
		"message":    "Template deployed successfully",
	})
}

func (s *Server) listIntegrations(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, catalog.ListIntegrations())
}

func (s *Server) systemHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	stats := catalog.Stats(now)

	var health n8n.Health
	if s.demoMode() {
		health = n8n.Health{
			Status:           "healthy",
			Connected:        false,
			WorkflowCount:    len(catalog.DemoWorkflows(nil)),
			RecentExecutions: len(catalog.DemoExecutions("", 1)),
			LastCheck:        now,
		}
	} else {
		health = s.n8n.SystemHealth(r.Context())
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": health.Status,
		"n8n": map[string]any{
			"configured":       !s.demoMode(),
			"connected":        health.Connected,
			"workflows":        health.WorkflowCount,
			"recentExecutions": health.RecentExecutions,
		},
		"llm_live":     s.llm.Live(),
		"templates":    stats.TotalTemplates,
		"integrations": len(catalog.ListIntegrations()),
		"timestamp":    health.LastCheck,
	})
}

func (s *Server) sessionMessages(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.List())
}

func (s *Server) sessionClear(w http.ResponseWriter, _ *http.Request) {
	s.session.Clear()
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// upstreamError maps automation-server failures to client responses
// without leaking upstream bodies.
func (s *Server) upstreamError(w http.ResponseWriter, err error) {
	var apiErr *n8n.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound:
			s.writeError(w, http.StatusNotFound, "not found")
			return
		case http.StatusUnauthorized, http.StatusForbidden:
			s.writeError(w, http.StatusBadGateway, "workflow service rejected credentials")
			return
		}
	}
	s.logger.Warn("upstream call failed", "error", err)
	s.writeError(w, http.StatusBadGateway, "workflow service unavailable")
}

func (s *Server) writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
