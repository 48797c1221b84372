package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"go.uber.org/zap/zaptest"
)

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	if _, err := NewElevenLabsTTS(ElevenLabsConfig{}, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.voiceID != defaultVoiceID {
		t.Errorf("Expected default voice ID '%s', got '%s'", defaultVoiceID, tts.voiceID)
	}
	if tts.outputFormat != defaultOutputFormat {
		t.Errorf("Expected default output format '%s', got '%s'", defaultOutputFormat, tts.outputFormat)
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{name: "valid", config: ElevenLabsConfig{APIKey: "k"}},
		{name: "valid mp3 format", config: ElevenLabsConfig{APIKey: "k", OutputFormat: "mp3_22050_32"}},
		{name: "missing key", config: ElevenLabsConfig{}, wantErr: true},
		{name: "stability out of range", config: ElevenLabsConfig{APIKey: "k", Stability: 1.5}, wantErr: true},
		{name: "clarity negative", config: ElevenLabsConfig{APIKey: "k", Clarity: -0.1}, wantErr: true},
		{name: "pcm format", config: ElevenLabsConfig{APIKey: "k", OutputFormat: "pcm_24000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTTS_SynthesizeSpeech(t *testing.T) {
	var gotPath, gotKey string
	var gotRequest ElevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		json.NewDecoder(r.Body).Decode(&gotRequest)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-eleven"))
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	stream, err := tts.SynthesizeSpeech(context.Background(), "Hello from AIDEN")
	if err != nil {
		t.Fatalf("SynthesizeSpeech() error = %v", err)
	}
	defer stream.Close()

	audio, _ := io.ReadAll(stream)
	if string(audio) != "ID3-eleven" {
		t.Errorf("Unexpected audio %q", audio)
	}
	if gotPath != "/text-to-speech/"+defaultVoiceID {
		t.Errorf("Unexpected path %s", gotPath)
	}
	if gotKey != "test-api-key" {
		t.Errorf("Expected API key header, got %q", gotKey)
	}
	if gotRequest.Text != "Hello from AIDEN" {
		t.Errorf("Expected text to be sent, got %q", gotRequest.Text)
	}
}

func TestElevenLabsTTS_SynthesizeSpeechErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "k", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if _, err := tts.SynthesizeSpeech(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty text")
	}

	_, err = tts.SynthesizeSpeech(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}
