package llm

import (
	"context"
	"fmt"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
)

// MockLLM is a placeholder implementation for local development
type MockLLM struct{}

// NewMockLLM creates a new mock language model
func NewMockLLM() repositories.LargeLanguageModel {
	return &MockLLM{}
}

// Generate implements repositories.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	if len(prompt.User) == 0 {
		return "Hello! I'm AIDEN. How can I help you today?", nil
	}
	return fmt.Sprintf("Thanks for asking! You said: %q. Let me know if there is anything else I can help with.", prompt.User), nil
}
