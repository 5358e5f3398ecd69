package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigJSONKeepsDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"server":{"port":8080},"websearch":{"enabled":false}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.WebSearch.Enabled)
	assert.Equal(t, "anthropic/claude-sonnet-4.5", cfg.LLM.DefaultModel)
	assert.Equal(t, 15, cfg.WebSearch.TimeoutSeconds)
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
llm:
  provider: ollama
  default_model: llama3
websearch:
  cache_ttl_seconds: 60
  sources:
    brave:
      enabled: true
      api_key: brave-key
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.DefaultModel)
	assert.Equal(t, 60, int(cfg.WebSearch.CacheTTL().Seconds()))
	assert.True(t, cfg.WebSearch.Sources.Brave.Enabled)
	assert.Equal(t, "brave-key", cfg.WebSearch.Sources.Brave.APIKey)
	assert.Equal(t, "https://api.search.brave.com/res/v1/web/search", cfg.WebSearch.Sources.Brave.BaseURL)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadConfig(writeFile(t, "broken.json", `{"server":`))
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GATEWAY_API_KEY", "secret")
	t.Setenv("GATEWAY_BASE_URL", "https://gateway.example")
	t.Setenv("SERPAPI_KEY", "serp")
	t.Setenv("GITHUB_TOKEN", "gh")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.LLM.Gateway.APIKey)
	assert.Equal(t, "https://gateway.example", cfg.LLM.Gateway.BaseURL)
	assert.True(t, cfg.WebSearch.Sources.SerpAPI.Enabled)
	assert.Equal(t, "gh", cfg.WebSearch.Sources.GitHub.APIKey)
	assert.False(t, cfg.WebSearch.Sources.Brave.Enabled)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	for _, name := range []string{"nested/config.json", "nested/config.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Server.Port = 4000

			require.NoError(t, SaveConfig(cfg, path))
			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config/config.json", GetConfigPath())

	t.Setenv("CONFIG_PATH", "/etc/chat.yaml")
	assert.Equal(t, "/etc/chat.yaml", GetConfigPath())
}
