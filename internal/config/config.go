package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds configuration for the voicecursor CLI and pipeline.
type Config struct {
	LLMProvider string
	LLMModel    string
	LLMURL      string
	LLMAPIKey   string
	// LLMTemperature is parsed from a decimal string; negative means the
	// client default.
	LLMTemperature float64
	LLMMaxTokens   int
	// PlanWithLLM attaches the model to the reasoning stage; without it the
	// keyword planner is used.
	PlanWithLLM bool

	STTProvider string
	STTModel    string
	STTURL      string
	STTAPIKey   string
	STTLanguage string

	HTTPTimeout     time.Duration
	EnableSanitizer bool
	AutoFormat      bool
	FormatterCmds   map[string]string
	CheckSyntax     bool
	RequireApproval bool
	Language        string
	WorkspaceDir    string

	LogDir      string
	ObsDir      string
	PricingFile string
	AuditDBPath string
	LogLevel    string
	LogFormat   string

	OTelEndpoint string
	MetricsAddr  string

	DummyLLMScript string
	DummySTTScript string
}

var (
	llmProviders = map[string]bool{"openai": true, "groq": true, "dummy": true}
	sttProviders = map[string]bool{"openai": true, "groq": true, "passthrough": true, "dummy": true}
)

// Load reads configuration from environment variables and resolves the
// API keys of the selected providers.
func Load() (Config, error) {
	cfg, err := LoadLocal()
	if err != nil {
		return Config{}, err
	}
	if cfg.LLMAPIKey, err = providerKey(cfg.LLMProvider, "VOICECURSOR_LLM_PROVIDER"); err != nil {
		return Config{}, err
	}
	if cfg.STTAPIKey, err = providerKey(cfg.STTProvider, "VOICECURSOR_STT_PROVIDER"); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadLocal reads everything Load does except provider credentials. It
// serves commands that only inspect local logs and records.
func LoadLocal() (Config, error) {
	cfg := Config{
		LLMProvider:     strings.ToLower(envOrDefault("VOICECURSOR_LLM_PROVIDER", "openai")),
		LLMModel:        os.Getenv("VOICECURSOR_LLM_MODEL"),
		LLMURL:          os.Getenv("VOICECURSOR_LLM_URL"),
		LLMMaxTokens:    envIntOrDefault("VOICECURSOR_LLM_MAX_TOKENS", 0),
		PlanWithLLM:     envBoolOrDefault("VOICECURSOR_PLAN_WITH_LLM", true),
		STTProvider:     strings.ToLower(envOrDefault("VOICECURSOR_STT_PROVIDER", "passthrough")),
		STTModel:        os.Getenv("VOICECURSOR_STT_MODEL"),
		STTURL:          os.Getenv("VOICECURSOR_STT_URL"),
		STTLanguage:     os.Getenv("VOICECURSOR_STT_LANGUAGE"),
		HTTPTimeout:     time.Duration(envIntOrDefault("VOICECURSOR_HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
		EnableSanitizer: envBoolOrDefault("VOICECURSOR_ENABLE_SANITIZER", true),
		AutoFormat:      envBoolOrDefault("VOICECURSOR_AUTO_FORMAT", true),
		CheckSyntax:     envBoolOrDefault("VOICECURSOR_CHECK_SYNTAX", true),
		RequireApproval: envBoolOrDefault("VOICECURSOR_REQUIRE_APPROVAL", true),
		Language:        strings.ToLower(envOrDefault("VOICECURSOR_LANGUAGE", "python")),
		WorkspaceDir:    os.Getenv("VOICECURSOR_WORKSPACE"),
		LogDir:          envOrDefault("VOICECURSOR_LOG_DIR", "logs"),
		ObsDir:          envOrDefault("VOICECURSOR_OBS_DIR", filepath.Join("logs", "observability")),
		PricingFile:     os.Getenv("VOICECURSOR_PRICING_FILE"),
		AuditDBPath:     os.Getenv("VOICECURSOR_AUDIT_DB"),
		LogLevel:        envOrDefault("VOICECURSOR_LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("VOICECURSOR_LOG_FORMAT", "text"),
		OTelEndpoint:    os.Getenv("VOICECURSOR_OTEL_ENDPOINT"),
		MetricsAddr:     envOrDefault("VOICECURSOR_METRICS_ADDR", ":9464"),
		DummyLLMScript:  envOrDefault("VOICECURSOR_DUMMY_LLM_SCRIPT", "ok"),
		DummySTTScript:  envOrDefault("VOICECURSOR_DUMMY_STT_SCRIPT", "ok"),
	}

	if !llmProviders[cfg.LLMProvider] {
		return Config{}, fmt.Errorf("VOICECURSOR_LLM_PROVIDER must be one of openai, groq, dummy: %q", cfg.LLMProvider)
	}
	if !sttProviders[cfg.STTProvider] {
		return Config{}, fmt.Errorf("VOICECURSOR_STT_PROVIDER must be one of openai, groq, passthrough, dummy: %q", cfg.STTProvider)
	}

	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultLLMModel(cfg.LLMProvider)
	}
	if cfg.STTModel == "" {
		cfg.STTModel = defaultSTTModel(cfg.STTProvider)
	}

	cfg.LLMTemperature = -1
	if raw := strings.TrimSpace(os.Getenv("VOICECURSOR_LLM_TEMPERATURE")); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t < 0 || t > 2 {
			return Config{}, fmt.Errorf("VOICECURSOR_LLM_TEMPERATURE must be a number in [0, 2]: %q", raw)
		}
		cfg.LLMTemperature = t
	}
	if cfg.LLMMaxTokens < 0 {
		return Config{}, fmt.Errorf("VOICECURSOR_LLM_MAX_TOKENS must be >= 0")
	}

	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICECURSOR_HTTP_TIMEOUT_SECONDS must be > 0")
	}
	if strings.ContainsAny(cfg.Language, " \t/") || cfg.Language == "" {
		return Config{}, fmt.Errorf("VOICECURSOR_LANGUAGE is invalid: %q", cfg.Language)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("VOICECURSOR_LOG_FORMAT must be text or json: %q", cfg.LogFormat)
	}
	if cfg.WorkspaceDir != "" {
		if !filepath.IsAbs(cfg.WorkspaceDir) {
			return Config{}, fmt.Errorf("VOICECURSOR_WORKSPACE must be an absolute path: %s", cfg.WorkspaceDir)
		}
		cfg.WorkspaceDir = filepath.Clean(cfg.WorkspaceDir)
	}

	var err error
	cfg.FormatterCmds, err = parseFormatterCmds(os.Getenv("VOICECURSOR_FORMATTER_CMD"))
	if err != nil {
		return Config{}, fmt.Errorf("VOICECURSOR_FORMATTER_CMD: %w", err)
	}
	return cfg, nil
}

func providerKey(provider, envKey string) (string, error) {
	switch provider {
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return "", fmt.Errorf("OPENAI_API_KEY is required in environment when %s=openai", envKey)
		}
		return key, nil
	case "groq":
		key := os.Getenv("GROQ_API_KEY")
		if key == "" {
			return "", fmt.Errorf("GROQ_API_KEY is required in environment when %s=groq", envKey)
		}
		return key, nil
	}
	return "", nil
}

func defaultLLMModel(provider string) string {
	switch provider {
	case "groq":
		return "llama-3.3-70b-versatile"
	case "dummy":
		return "dummy"
	}
	return "gpt-4o-mini"
}

func defaultSTTModel(provider string) string {
	switch provider {
	case "groq":
		return "whisper-large-v3"
	case "openai":
		return "whisper-1"
	case "dummy":
		return "dummy-stt"
	}
	return ""
}

// parseFormatterCmds reads "lang=cmd;lang=cmd", e.g.
// "python=black -q -;javascript=prettier --parser babel".
func parseFormatterCmds(raw string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lang, cmd, ok := strings.Cut(part, "=")
		lang = strings.ToLower(strings.TrimSpace(lang))
		cmd = strings.TrimSpace(cmd)
		if !ok || lang == "" || cmd == "" {
			return nil, fmt.Errorf("expected lang=command, got %q", part)
		}
		out[lang] = cmd
	}
	return out, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolOrDefault(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "1" || strings.EqualFold(v, "true")
}
