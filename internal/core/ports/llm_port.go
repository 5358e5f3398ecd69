package ports

import (
	"context"

	"github.com/vibin/deepsearch-chat/internal/core/domain"
)

// FragmentHandler receives generated text in the order it is produced.
// Returning an error aborts the stream.
type FragmentHandler func(fragment string) error

// LLMPort defines the interface for interacting with the generation gateway
type LLMPort interface {
	// StreamCompletion streams a completion, calling onFragment for every chunk as it arrives
	StreamCompletion(ctx context.Context, model string, messages []domain.Message, opts domain.CompletionOptions, onFragment FragmentHandler) error

	// GenerateResponse returns a complete, non-streamed response
	GenerateResponse(ctx context.Context, model string, messages []domain.Message, opts domain.CompletionOptions) (string, error)

	// Models returns the models the gateway offers
	Models() []domain.ModelInfo

	// Validate checks that the gateway is reachable with the configured credentials
	Validate(ctx context.Context) error
}
