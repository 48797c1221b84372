package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

func writeAudioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write audio file: %v", err)
	}
	return path
}

func TestNewDeepInfraWhisper(t *testing.T) {
	logger := zaptest.NewLogger(t)

	if _, err := NewDeepInfraWhisper(DeepInfraConfig{}, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	client, err := NewDeepInfraWhisper(DeepInfraConfig{APIKey: "test-key"}, logger)
	if err != nil {
		t.Fatalf("Failed to create DeepInfraWhisper: %v", err)
	}
	want := "https://api.deepinfra.com/v1/inference/openai/whisper-medium.en"
	if client.endpoint != want {
		t.Errorf("Expected endpoint %s, got %s", want, client.endpoint)
	}
}

func TestDeepInfraWhisper_TranscribeFile(t *testing.T) {
	var gotAuth, gotFilename, gotAudio, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("Expected multipart field audio: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotAudio = string(data)
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":" What time is it?","segments":[]}`)
	}))
	defer server.Close()

	client, err := NewDeepInfraWhisper(DeepInfraConfig{
		APIKey:  "test-key",
		BaseURL: server.URL + "/",
	}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create DeepInfraWhisper: %v", err)
	}

	text, err := client.TranscribeFile(context.Background(), writeAudioFile(t, "fake m4a"))
	if err != nil {
		t.Fatalf("TranscribeFile() returned error: %v", err)
	}

	if text != " What time is it?" {
		t.Errorf("Expected transcript to be returned verbatim, got %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer token, got %q", gotAuth)
	}
	if gotPath != "/v1/inference/openai/whisper-medium.en" {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if gotAudio != "fake m4a" {
		t.Errorf("Expected uploaded audio content, got %q", gotAudio)
	}
	if gotFilename != "audio.m4a" {
		t.Errorf("Expected filename audio.m4a, got %q", gotFilename)
	}
}

func TestDeepInfraWhisper_TranscribeFile_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantMalformed bool
	}{
		{name: "upstream error status", status: http.StatusUnauthorized, body: `{"detail":"bad token"}`},
		{name: "not json", status: http.StatusOK, body: `<html>oops</html>`, wantMalformed: true},
		{name: "missing text field", status: http.StatusOK, body: `{"segments":[]}`, wantMalformed: true},
		{name: "blank text", status: http.StatusOK, body: `{"text":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client, err := NewDeepInfraWhisper(DeepInfraConfig{APIKey: "k", BaseURL: server.URL}, zaptest.NewLogger(t))
			if err != nil {
				t.Fatalf("Failed to create DeepInfraWhisper: %v", err)
			}

			_, err = client.TranscribeFile(context.Background(), writeAudioFile(t, "x"))
			if err == nil {
				t.Fatal("Expected error")
			}
			if tt.wantMalformed != errors.Is(err, repositories.ErrMalformedResponse) {
				t.Errorf("errors.Is(err, ErrMalformedResponse) = %v, want %v (err: %v)",
					!tt.wantMalformed, tt.wantMalformed, err)
			}
		})
	}
}

func TestDeepInfraWhisper_TranscribeFile_MissingFile(t *testing.T) {
	client, err := NewDeepInfraWhisper(DeepInfraConfig{APIKey: "k"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create DeepInfraWhisper: %v", err)
	}
	if _, err := client.TranscribeFile(context.Background(), filepath.Join(t.TempDir(), "nope.m4a")); err == nil {
		t.Error("Expected error for missing file")
	}
}
