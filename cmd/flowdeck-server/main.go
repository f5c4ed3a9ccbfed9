package main

import (
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	cli "github.com/spf13/pflag"

	log "log/slog"

	"flowdeck/internal/api"
	"flowdeck/internal/config"
	"flowdeck/internal/deepseek"
	"flowdeck/internal/hume"
	"flowdeck/internal/n8n"
	"flowdeck/internal/parser"
	"flowdeck/internal/proxy"
	"flowdeck/internal/session"
	"flowdeck/internal/tools"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides LOG_LEVEL)")
	port := cli.IntP("port", "p", 0, "Listen port (overrides FLOWDECK_PORT)")
	cli.Parse()

	godotenv.Load(*envFile)
	cfg := config.Load()
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *port != 0 {
		cfg.Port = *port
	}

	logger := log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[cfg.LogLevel],
	}))
	log.SetDefault(logger)

	logger.Info("booting up", "port", cfg.Port, "demo_mode", cfg.DemoMode())

	var llmHTTP *http.Client
	if cfg.ProxyAddr != "" {
		client, err := proxy.NewSocksClient(cfg.ProxyAddr)
		if err != nil {
			logger.Error("failed to dial socks proxy", "proxy", cfg.ProxyAddr, "error", err)
			os.Exit(1)
		}
		llmHTTP = client
		logger.Debug("llm egress through socks proxy", "proxy", cfg.ProxyAddr)
	}

	n8nClient := n8n.NewClient(cfg.N8nBaseURL, cfg.N8nAPIKey, cfg.N8nTimeout, logger)
	llm := deepseek.NewClient(deepseek.Options{
		APIKey:     cfg.DeepSeekAPIKey,
		BaseURL:    cfg.DeepSeekBaseURL,
		Model:      cfg.DeepSeekModel,
		HTTPClient: llmHTTP,
	}, logger)
	emotion := hume.NewClient(hume.Config{
		APIKey:    cfg.HumeAPIKey,
		SecretKey: cfg.HumeSecretKey,
		ConfigID:  cfg.HumeConfigID,
	}, logger)
	registry := tools.NewRegistry(n8nClient, logger)

	server := api.NewServer(api.Deps{
		Port:     cfg.Port,
		N8n:      n8nClient,
		LLM:      llm,
		Emotion:  emotion,
		Registry: registry,
		Parser:   parser.New(llm, registry, logger),
		Session:  session.NewStore(),
		Logger:   logger,
	})

	if err := server.Start(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
