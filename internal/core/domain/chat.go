package domain

import (
	"fmt"
	"strings"
)

// Message roles accepted from clients
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a new message
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// CompletionOptions holds per-request generation settings
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ChatTurnRequest is the payload of a chat:message event.
// Temperature and MaxTokens are pointers so an explicit zero can be told apart from "not set".
type ChatTurnRequest struct {
	Messages        []Message `json:"messages"`
	Model           string    `json:"model,omitempty"`
	Temperature     *float64  `json:"temperature,omitempty"`
	MaxTokens       *int      `json:"max_tokens,omitempty"`
	EnableWebSearch bool      `json:"enableWebSearch"`
}

// Validate checks the required turn fields. It wraps ErrInvalidRequest.
func (r ChatTurnRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages array is required", ErrInvalidRequest)
	}
	for i, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: message %d has unsupported role %q", ErrInvalidRequest, i, msg.Role)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2", ErrInvalidRequest)
	}
	if r.MaxTokens != nil && *r.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must not be negative", ErrInvalidRequest)
	}
	return nil
}

// LastContent returns the content of the latest message, which drives the search trigger.
func (r ChatTurnRequest) LastContent() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Messages[len(r.Messages)-1].Content)
}

// Options resolves the generation options against the given defaults
func (r ChatTurnRequest) Options(defaults CompletionOptions) CompletionOptions {
	opts := defaults
	if r.Temperature != nil {
		opts.Temperature = *r.Temperature
	}
	if r.MaxTokens != nil && *r.MaxTokens > 0 {
		opts.MaxTokens = *r.MaxTokens
	}
	return opts
}

// ModelInfo describes a model offered by the generation gateway
type ModelInfo struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Provider    string `json:"provider" yaml:"provider"`
	Speed       string `json:"speed,omitempty" yaml:"speed"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// ChatReply is the result of a non-streamed chat request
type ChatReply struct {
	Message string         `json:"message"`
	Model   string         `json:"model"`
	Sources []SearchResult `json:"sources,omitempty"`
}
