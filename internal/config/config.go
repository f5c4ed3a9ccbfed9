package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     int
	LogLevel string

	N8nBaseURL string
	N8nAPIKey  string
	N8nTimeout time.Duration

	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string

	HumeAPIKey    string
	HumeSecretKey string
	HumeConfigID  string

	AutoStop   time.Duration
	SocketPath string
	ProxyAddr  string
}

func Load() Config {
	return Config{
		Port:     envInt("FLOWDECK_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),

		N8nBaseURL: envStr("N8N_BASE_URL", "http://localhost:5678"),
		N8nAPIKey:  envStr("N8N_API_KEY", ""),
		N8nTimeout: envDur("N8N_TIMEOUT", 30*time.Second),

		DeepSeekAPIKey:  envStr("DEEPSEEK_API_KEY", ""),
		DeepSeekBaseURL: envStr("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:   envStr("DEEPSEEK_MODEL", "deepseek-chat"),

		HumeAPIKey:    envStr("HUME_API_KEY", ""),
		HumeSecretKey: envStr("HUME_SECRET_KEY", ""),
		HumeConfigID:  envStr("HUME_CONFIG_ID", ""),

		AutoStop:   envDur("VOICE_AUTO_STOP", 0),
		SocketPath: envStr("FLOWDECK_SOCKET", "/tmp/flowdeck-voice.sock"),
		ProxyAddr:  envStr("FLOWDECK_PROXY", ""),
	}
}

// DemoMode reports whether the automation server credential is missing and
// the tool layer should serve catalog fixtures instead.
func (c Config) DemoMode() bool {
	return c.N8nAPIKey == ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDur accepts either a Go duration string ("30s") or a bare number of
// seconds, which is how the original deployment configured timeouts.
func envDur(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
