package repositories

import (
	"context"

	"github.com/satriahrh/aiden-server/domain"
)

// LargeLanguageModel abstracts any completion/LLM provider
type LargeLanguageModel interface {
	// Generate takes a prompt and returns the model's reply
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}
