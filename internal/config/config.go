package config

import (
	"time"

	sharedcfg "github.com/solenne/wayfarer/shared/config"
)

type Config struct {
	Server        ServerConfig
	LLM           LLMConfig
	External      ExternalConfig
	Conversations ConversationConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LLMConfig struct {
	Provider    string
	BaseURL     string
	Model       string
	Temperature float64
	TopP        float64
	MaxTokens   int
	Timeout     time.Duration
}

type ExternalConfig struct {
	WeatherAPIKey string
	LookupTimeout time.Duration
}

type ConversationConfig struct {
	MaxHistory int
	TTL        time.Duration
	SweepSpec  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: sharedcfg.GetEnv("WAYFARER_SERVER_HOST", "0.0.0.0"),
			Port: sharedcfg.GetEnvInt("WAYFARER_PORT", 3000),
		},
		LLM: LLMConfig{
			Provider:    sharedcfg.GetEnv("WAYFARER_LLM_PROVIDER", "ollama"),
			BaseURL:     sharedcfg.GetEnv("WAYFARER_OLLAMA_URL", "http://localhost:11434"),
			Model:       sharedcfg.GetEnv("WAYFARER_OLLAMA_MODEL", "llama3.2"),
			Temperature: sharedcfg.GetEnvFloat("WAYFARER_LLM_TEMPERATURE", 0.7),
			TopP:        sharedcfg.GetEnvFloat("WAYFARER_LLM_TOP_P", 0.9),
			MaxTokens:   sharedcfg.GetEnvInt("WAYFARER_LLM_MAX_TOKENS", 1000),
			Timeout:     sharedcfg.GetEnvDuration("WAYFARER_LLM_TIMEOUT", 60*time.Second),
		},
		External: ExternalConfig{
			WeatherAPIKey: sharedcfg.GetEnv("WAYFARER_OPENWEATHER_API_KEY", ""),
			LookupTimeout: sharedcfg.GetEnvDuration("WAYFARER_LOOKUP_TIMEOUT", 5*time.Second),
		},
		Conversations: ConversationConfig{
			MaxHistory: sharedcfg.GetEnvInt("WAYFARER_MAX_HISTORY", 20),
			TTL:        sharedcfg.GetEnvDuration("WAYFARER_CONVERSATION_TTL", 24*time.Hour),
			SweepSpec:  sharedcfg.GetEnv("WAYFARER_SWEEP_SPEC", "@hourly"),
		},
	}
}
