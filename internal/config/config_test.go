package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"FLOWDECK_PORT", "LOG_LEVEL", "N8N_BASE_URL", "N8N_API_KEY",
		"N8N_TIMEOUT", "DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL",
		"DEEPSEEK_MODEL", "HUME_API_KEY", "HUME_SECRET_KEY",
		"HUME_CONFIG_ID", "VOICE_AUTO_STOP", "FLOWDECK_SOCKET",
		"FLOWDECK_PROXY",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != 8760 {
		t.Errorf("expected default port 8760, got %d", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.N8nBaseURL != "http://localhost:5678" {
		t.Errorf("expected default n8n url, got %s", cfg.N8nBaseURL)
	}
	if cfg.N8nTimeout != 30*time.Second {
		t.Errorf("expected default n8n timeout 30s, got %s", cfg.N8nTimeout)
	}
	if cfg.DeepSeekBaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("expected default deepseek url, got %s", cfg.DeepSeekBaseURL)
	}
	if cfg.DeepSeekModel != "deepseek-chat" {
		t.Errorf("expected default model, got %s", cfg.DeepSeekModel)
	}
	if cfg.AutoStop != 0 {
		t.Errorf("expected auto-stop disabled by default, got %s", cfg.AutoStop)
	}
	if cfg.SocketPath != "/tmp/flowdeck-voice.sock" {
		t.Errorf("expected default socket path, got %s", cfg.SocketPath)
	}
	if !cfg.DemoMode() {
		t.Error("expected demo mode without an n8n api key")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("FLOWDECK_PORT", "9999")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("N8N_BASE_URL", "https://n8n.example.com")
	t.Setenv("N8N_API_KEY", "n8n-key")
	t.Setenv("N8N_TIMEOUT", "5s")
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")
	t.Setenv("VOICE_AUTO_STOP", "10s")

	cfg := Load()

	if cfg.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.N8nBaseURL != "https://n8n.example.com" {
		t.Errorf("expected custom n8n url, got %s", cfg.N8nBaseURL)
	}
	if cfg.N8nTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.N8nTimeout)
	}
	if cfg.AutoStop != 10*time.Second {
		t.Errorf("expected 10s auto-stop, got %s", cfg.AutoStop)
	}
	if cfg.DemoMode() {
		t.Error("expected demo mode off with an n8n api key")
	}
}

func TestLoad_TimeoutInSeconds(t *testing.T) {
	// The original deployment configured N8N_TIMEOUT as bare milliseconds-free
	// seconds; a plain number must still parse.
	t.Setenv("N8N_TIMEOUT", "45")

	cfg := Load()

	if cfg.N8nTimeout != 45*time.Second {
		t.Errorf("expected 45s timeout from bare number, got %s", cfg.N8nTimeout)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("FLOWDECK_PORT", "notanumber")

	cfg := Load()

	if cfg.Port != 8760 {
		t.Errorf("expected default port on invalid value, got %d", cfg.Port)
	}
}
