package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/aiden-server/domain"
)

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{name: "valid", config: GeminiConfig{APIKey: "k"}},
		{name: "missing key", config: GeminiConfig{}, wantErr: true},
		{name: "temperature too high", config: GeminiConfig{APIKey: "k", Temperature: 3}, wantErr: true},
		{name: "negative tokens", config: GeminiConfig{APIKey: "k", MaxOutputTokens: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGeminiConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeminiConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGeminiLLM_Generate(t *testing.T) {
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there."}]}}]}`)
	}))
	defer server.Close()

	llm, err := NewGeminiLLM(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create GeminiLLM: %v", err)
	}
	if llm.model != defaultGeminiModel {
		t.Errorf("Expected default model %s, got %s", defaultGeminiModel, llm.model)
	}

	reply, err := llm.Generate(context.Background(), domain.NewAssistantPrompt("Say hello"))
	if err != nil {
		t.Fatalf("Generate() returned error: %v", err)
	}
	if reply != "Hello there." {
		t.Errorf("Unexpected reply %q", reply)
	}

	encoded, _ := json.Marshal(gotBody)
	if !strings.Contains(string(encoded), "Initiate AIDEN") {
		t.Error("Expected persona in system instruction")
	}
	if !strings.Contains(string(encoded), "Say hello") {
		t.Error("Expected transcript in contents")
	}
}
