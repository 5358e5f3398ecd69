package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	WebSearch WebSearchConfig `json:"websearch" yaml:"websearch"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// LLMConfig holds configuration for the generation backend
type LLMConfig struct {
	Provider           string             `json:"provider" yaml:"provider"` // "gateway" or "ollama"
	DefaultModel       string             `json:"default_model" yaml:"default_model"`
	DefaultTemperature float64            `json:"default_temperature" yaml:"default_temperature"`
	DefaultMaxTokens   int                `json:"default_max_tokens" yaml:"default_max_tokens"`
	Gateway            GatewayConfig      `json:"gateway" yaml:"gateway"`
	Ollama             OllamaConfig       `json:"ollama" yaml:"ollama"`
	Models             []domain.ModelInfo `json:"models" yaml:"models"`
}

// GatewayConfig holds settings for the OpenAI-compatible gateway
type GatewayConfig struct {
	BaseURL        string `json:"base_url" yaml:"base_url"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// OllamaConfig holds specific configuration for Ollama integration
type OllamaConfig struct {
	Endpoint       string `json:"endpoint" yaml:"endpoint"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// WebSearchConfig holds configuration for web search functionality
type WebSearchConfig struct {
	Enabled             bool          `json:"enabled" yaml:"enabled"`
	UserAgent           string        `json:"user_agent" yaml:"user_agent"`
	TimeoutSeconds      int           `json:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerSecond   float64       `json:"requests_per_second" yaml:"requests_per_second"`
	Burst               int           `json:"burst" yaml:"burst"`
	CacheTTLSeconds     int           `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds"`
	RecursiveThreshold  int           `json:"recursive_threshold" yaml:"recursive_threshold"`
	MaxAlternateQueries int           `json:"max_alternate_queries" yaml:"max_alternate_queries"`
	AlternateQueryLimit int           `json:"alternate_query_limit" yaml:"alternate_query_limit"`
	QuickKeywords       []string      `json:"quick_keywords" yaml:"quick_keywords"`
	DeepKeywords        []string      `json:"deep_keywords" yaml:"deep_keywords"`
	Ranking             RankingConfig `json:"ranking" yaml:"ranking"`
	Sources             SourcesConfig `json:"sources" yaml:"sources"`
}

// RankingConfig holds the ranking weights
type RankingConfig struct {
	TitleMatch       float64            `json:"title_match" yaml:"title_match"`
	SnippetMatch     float64            `json:"snippet_match" yaml:"snippet_match"`
	SourceBoost      map[string]float64 `json:"source_boost" yaml:"source_boost"`
	RelevanceDivisor float64            `json:"relevance_divisor" yaml:"relevance_divisor"`
	RelevanceCap     float64            `json:"relevance_cap" yaml:"relevance_cap"`
}

// SourceConfig holds per-source settings
type SourceConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key"`
}

// SourcesConfig lists every search source the aggregator can use
type SourcesConfig struct {
	DuckDuckGo    SourceConfig `json:"duckduckgo" yaml:"duckduckgo"`
	Bing          SourceConfig `json:"bing" yaml:"bing"`
	StackOverflow SourceConfig `json:"stackoverflow" yaml:"stackoverflow"`
	GitHub        SourceConfig `json:"github" yaml:"github"`
	Reddit        SourceConfig `json:"reddit" yaml:"reddit"`
	SerpAPI       SourceConfig `json:"serpapi" yaml:"serpapi"`
	Brave         SourceConfig `json:"brave" yaml:"brave"`
}

// DatabaseConfig holds the search log database settings
type DatabaseConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Timeout returns the per-request source timeout
func (c WebSearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long an aggregated response stays fresh
func (c WebSearchConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// LoadConfig loads configuration from a JSON or YAML file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return config, nil
}

// ApplyEnv overrides secrets and the port from the environment
func (c *Config) ApplyEnv() {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil && port > 0 {
		c.Server.Port = port
	}
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		c.LLM.Gateway.BaseURL = v
	}
	if v := os.Getenv("GATEWAY_API_KEY"); v != "" {
		c.LLM.Gateway.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.WebSearch.Sources.GitHub.APIKey = v
	}
	if v := os.Getenv("SERPAPI_KEY"); v != "" {
		c.WebSearch.Sources.SerpAPI.APIKey = v
		c.WebSearch.Sources.SerpAPI.Enabled = true
	}
	if v := os.Getenv("BRAVE_API_KEY"); v != "" {
		c.WebSearch.Sources.Brave.APIKey = v
		c.WebSearch.Sources.Brave.Enabled = true
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           3001,
			AllowedOrigins: []string{"*"},
		},
		LLM: LLMConfig{
			Provider:           "gateway",
			DefaultModel:       "anthropic/claude-sonnet-4.5",
			DefaultTemperature: 0.7,
			DefaultMaxTokens:   50000,
			Gateway: GatewayConfig{
				BaseURL:        "https://go.trybons.ai",
				TimeoutSeconds: 1600,
			},
			Ollama: OllamaConfig{
				Endpoint:       "http://localhost:11434",
				TimeoutSeconds: 100,
			},
			Models: []domain.ModelInfo{
				{ID: "anthropic/claude-sonnet-4.5", Name: "Claude Sonnet 4.5", Provider: "Anthropic", Speed: "Fast", Description: "Balanced performance and speed"},
				{ID: "openai/gpt-5.1-codex-max", Name: "GPT-5.1 Codex Max", Provider: "OpenAI", Speed: "Very Fast", Description: "Advanced code generation"},
				{ID: "anthropic/claude-opus-4.5", Name: "Claude Opus 4.5", Provider: "Anthropic", Speed: "Ultra Fast", Description: "Maximum capability and reasoning"},
			},
		},
		WebSearch: WebSearchConfig{
			Enabled:             true,
			UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
			TimeoutSeconds:      15,
			RequestsPerSecond:   2,
			Burst:               5,
			CacheTTLSeconds:     3600,
			RecursiveThreshold:  10,
			MaxAlternateQueries: 3,
			AlternateQueryLimit: 20,
			QuickKeywords: []string{
				"latest", "recent", "current", "news", "today",
				"what is", "who is", "when did", "where is",
				"search for", "find", "look up",
				"price of", "weather", "stock",
				"2024", "2025", "2026", "now",
			},
			DeepKeywords: []string{
				"hidden", "obscure", "rare", "find", "search for",
				"deep", "advanced", "technical", "specific",
				"how to find", "where can i", "looking for",
			},
			Ranking: RankingConfig{
				TitleMatch:   10,
				SnippetMatch: 5,
				SourceBoost: map[string]float64{
					domain.SourceStackOverflow: 3,
					domain.SourceGitHub:        2,
				},
				RelevanceDivisor: 100,
				RelevanceCap:     5,
			},
			Sources: SourcesConfig{
				DuckDuckGo:    SourceConfig{Enabled: true, BaseURL: "https://html.duckduckgo.com/html/"},
				Bing:          SourceConfig{Enabled: true, BaseURL: "https://www.bing.com/search"},
				StackOverflow: SourceConfig{Enabled: true, BaseURL: "https://api.stackexchange.com/2.3/search/advanced"},
				GitHub:        SourceConfig{Enabled: true, BaseURL: "https://api.github.com/"},
				Reddit:        SourceConfig{Enabled: true, BaseURL: "https://www.reddit.com/search.json"},
				SerpAPI:       SourceConfig{Enabled: false},
				Brave:         SourceConfig{Enabled: false, BaseURL: "https://api.search.brave.com/res/v1/web/search"},
			},
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "./data/searches.db",
		},
	}
}
