package main

import (
	"github.com/voicebridge/gateway/internal/env"
)

type config struct {
	port string

	speechURL     string
	speechAPIKey  string
	speechModel   string
	analysisURL   string
	analysisKey   string
	analysisModel string
	imageAPIKey   string
	imageBaseURL  string
	imageModel    string

	authURL    string
	profileURL string

	sessionStore string // "memory" or "redis"
	redisAddr    string
	progressDSN  string

	aiPoolSize     int
	maxConnections int
	maxTokens      int
}

func loadConfig() config {
	return config{
		port: env.Str("GATEWAY_PORT", "8080"),

		speechURL:     env.Str("SPEECH_API_URL", "https://api.openai.com"),
		speechAPIKey:  env.Str("SPEECH_API_KEY", env.Str("OPENAI_API_KEY", "")),
		speechModel:   env.Str("SPEECH_MODEL", "whisper-1"),
		analysisURL:   env.Str("ANALYSIS_API_URL", "https://api.openai.com"),
		analysisKey:   env.Str("ANALYSIS_API_KEY", env.Str("OPENAI_API_KEY", "")),
		analysisModel: env.Str("ANALYSIS_MODEL", "gpt-4o"),
		imageAPIKey:   env.Str("IMAGE_API_KEY", env.Str("OPENAI_API_KEY", "")),
		imageBaseURL:  env.Str("IMAGE_API_URL", ""),
		imageModel:    env.Str("IMAGE_MODEL", "dall-e-3"),

		authURL:    env.Str("AUTH_URL", "http://localhost:9000"),
		profileURL: env.Str("PROFILE_URL", "http://localhost:9001"),

		sessionStore: env.Str("SESSION_STORE", "memory"),
		redisAddr:    env.Str("REDIS_ADDR", "localhost:6379"),
		progressDSN:  env.Str("PROGRESS_DSN", ""),

		aiPoolSize:     env.Int("AI_POOL_SIZE", 50),
		maxConnections: env.Int("MAX_CONNECTIONS", 100),
		maxTokens:      env.Int("ANALYSIS_MAX_TOKENS", 600),
	}
}
