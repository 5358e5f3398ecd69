package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/vibin/deepsearch-chat/config"
	"github.com/vibin/deepsearch-chat/internal/core/domain"
	"github.com/vibin/deepsearch-chat/internal/core/ports"
	"github.com/vibin/deepsearch-chat/internal/logger"
)

// Supported generation providers
const (
	ProviderGateway = "gateway"
	ProviderOllama  = "ollama"
)

var emptyThinkTags = regexp.MustCompile(`<think>\s*</think>`)

// LangChainAdapter implements ports.LLMPort on top of a langchaingo model
type LangChainAdapter struct {
	model      llms.Model
	provider   string
	healthURL  string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	models     []domain.ModelInfo
	logger     logger.Logger
}

var _ ports.LLMPort = (*LangChainAdapter)(nil)

// NewAdapter creates the adapter for the configured provider
func NewAdapter(cfg *config.LLMConfig, log logger.Logger) (*LangChainAdapter, error) {
	switch cfg.Provider {
	case ProviderGateway, "":
		return NewGatewayAdapter(cfg, log)
	case ProviderOllama:
		return NewOllamaAdapter(cfg, log)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewGatewayAdapter creates an adapter for the OpenAI compatible gateway
func NewGatewayAdapter(cfg *config.LLMConfig, log logger.Logger) (*LangChainAdapter, error) {
	if cfg.Gateway.APIKey == "" {
		return nil, errors.New("gateway api key is not configured")
	}
	base := strings.TrimSuffix(cfg.Gateway.BaseURL, "/")
	log.Info("Initializing gateway adapter", "base_url", base, "model", cfg.DefaultModel)

	httpClient := &http.Client{}
	client, err := openai.New(
		openai.WithToken(cfg.Gateway.APIKey),
		openai.WithBaseURL(base+"/v1"),
		openai.WithModel(cfg.DefaultModel),
		openai.WithHTTPClient(httpClient),
	)
	if err != nil {
		log.Error("Failed to initialize gateway client", "error", err)
		return nil, err
	}

	adapter := NewWithModel(client, cfg, log)
	adapter.provider = ProviderGateway
	adapter.healthURL = base + "/v1/models"
	adapter.apiKey = cfg.Gateway.APIKey
	adapter.httpClient = httpClient
	adapter.timeout = seconds(cfg.Gateway.TimeoutSeconds)
	return adapter, nil
}

// NewOllamaAdapter creates an adapter for a local Ollama server
func NewOllamaAdapter(cfg *config.LLMConfig, log logger.Logger) (*LangChainAdapter, error) {
	endpoint := strings.TrimSuffix(cfg.Ollama.Endpoint, "/")
	log.Info("Initializing Ollama adapter", "endpoint", endpoint, "model", cfg.DefaultModel)

	client, err := ollama.New(
		ollama.WithServerURL(endpoint),
		ollama.WithModel(cfg.DefaultModel),
	)
	if err != nil {
		log.Error("Failed to initialize Ollama client", "error", err)
		return nil, err
	}

	adapter := NewWithModel(client, cfg, log)
	adapter.provider = ProviderOllama
	adapter.healthURL = endpoint + "/api/tags"
	adapter.timeout = seconds(cfg.Ollama.TimeoutSeconds)
	return adapter, nil
}

// NewWithModel wraps an already constructed langchaingo model
func NewWithModel(model llms.Model, cfg *config.LLMConfig, log logger.Logger) *LangChainAdapter {
	return &LangChainAdapter{
		model:      model,
		provider:   cfg.Provider,
		httpClient: &http.Client{},
		timeout:    seconds(cfg.Gateway.TimeoutSeconds),
		models:     cfg.Models,
		logger:     log,
	}
}

// StreamCompletion implements ports.LLMPort
func (a *LangChainAdapter) StreamCompletion(ctx context.Context, model string, messages []domain.Message, opts domain.CompletionOptions, onFragment ports.FragmentHandler) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	fragments := 0
	callOpts := append(a.callOptions(model, opts), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		fragments++
		return onFragment(string(chunk))
	}))

	if _, err := a.model.GenerateContent(ctx, toMessageContent(messages), callOpts...); err != nil {
		a.logger.Error("Streaming generation failed", "provider", a.provider, "model", model, "error", err)
		return err
	}
	a.logger.Debug("Stream finished", "model", model, "fragments", fragments)
	return nil
}

// GenerateResponse implements ports.LLMPort
func (a *LangChainAdapter) GenerateResponse(ctx context.Context, model string, messages []domain.Message, opts domain.CompletionOptions) (string, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	resp, err := a.model.GenerateContent(ctx, toMessageContent(messages), a.callOptions(model, opts)...)
	if err != nil {
		a.logger.Error("Generation failed", "provider", a.provider, "model", model, "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from generation provider")
	}
	return cleanThinkingTags(resp.Choices[0].Content), nil
}

// Models implements ports.LLMPort
func (a *LangChainAdapter) Models() []domain.ModelInfo {
	return a.models
}

// Validate implements ports.LLMPort by listing the provider's models
func (a *LangChainAdapter) Validate(ctx context.Context) error {
	if a.healthURL == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.healthURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reach %s: %w", a.provider, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s returned status %d", a.provider, resp.StatusCode)
	}
	return nil
}

func (a *LangChainAdapter) callOptions(model string, opts domain.CompletionOptions) []llms.CallOption {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if model != "" {
		callOpts = append(callOpts, llms.WithModel(model))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	return callOpts
}

func (a *LangChainAdapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

// toMessageContent converts chat history to langchaingo messages
func toMessageContent(messages []domain.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role := llms.ChatMessageTypeHuman
		switch msg.Role {
		case domain.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case domain.RoleAssistant:
			role = llms.ChatMessageTypeAI
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	return content
}

// cleanThinkingTags removes empty thinking tags some local models emit
func cleanThinkingTags(input string) string {
	return strings.TrimSpace(emptyThinkTags.ReplaceAllString(input, ""))
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
