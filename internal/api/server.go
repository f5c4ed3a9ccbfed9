// Package api is the dashboard's HTTP surface: workflow proxy routes,
// the assistant endpoint, tool-call dispatch and voice analysis.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flowdeck/internal/deepseek"
	"flowdeck/internal/hume"
	"flowdeck/internal/n8n"
	"flowdeck/internal/parser"
	"flowdeck/internal/session"
	"flowdeck/internal/tools"
)

type Server struct {
	router   *chi.Mux
	port     int
	n8n      *n8n.Client
	llm      *deepseek.Client
	emotion  *hume.Client
	registry *tools.Registry
	parser   *parser.Parser
	session  *session.Store
	logger   *slog.Logger
}

type Deps struct {
	Port     int
	N8n      *n8n.Client
	LLM      *deepseek.Client
	Emotion  *hume.Client
	Registry *tools.Registry
	Parser   *parser.Parser
	Session  *session.Store
	Logger   *slog.Logger
}

func NewServer(d Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     d.Port,
		n8n:      d.N8n,
		llm:      d.LLM,
		emotion:  d.Emotion,
		registry: d.Registry,
		parser:   d.Parser,
		session:  d.Session,
		logger:   d.Logger,
	}

	router.Get("/health", s.health)
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Post("/tools/call", s.toolsCall)
		r.Post("/ai", s.ai)
		r.Post("/assistant/message", s.assistantMessage)
		r.Post("/voice/analyze", s.voiceAnalyze)

		r.Get("/workflows", s.listWorkflows)
		r.Get("/workflows/{id}", s.getWorkflow)
		r.Post("/workflows/{id}/execute", s.executeWorkflow)
		r.Post("/workflows/{id}/activate", s.activateWorkflow)
		r.Post("/workflows/{id}/deactivate", s.deactivateWorkflow)

		r.Get("/executions", s.listExecutions)
		r.Post("/executions/{id}/stop", s.stopExecution)

		r.Get("/templates", s.listTemplates)
		r.Get("/templates/{id}", s.getTemplate)
		r.Post("/templates/{id}/deploy", s.deployTemplate)

		r.Get("/integrations", s.listIntegrations)
		r.Get("/system/health", s.systemHealth)

		r.Get("/session/messages", s.sessionMessages)
		r.Delete("/session/messages", s.sessionClear)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("api server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

// writeError keeps upstream details out of client responses.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) demoMode() bool {
	return s.n8n == nil || !s.n8n.Configured()
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	mode := "live"
	if s.demoMode() {
		mode = "demo"
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"service":   "flowdeck",
		"mode":      mode,
		"llm_live":  s.llm.Live(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
