package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
	"github.com/satriahrh/aiden-server/internal/config"
	"github.com/satriahrh/aiden-server/internal/providers"
	"github.com/satriahrh/aiden-server/internal/saga"
	"github.com/satriahrh/aiden-server/internal/saga/conversation"
	"github.com/satriahrh/aiden-server/internal/workspace"
)

// echoSTT transcribes a recording as its own contents
type echoSTT struct{}

func (echoSTT) TranscribeFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type recordingLLM struct {
	mu      sync.Mutex
	prompts []domain.Prompt
	err     error
	block   bool
}

func (r *recordingLLM) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	r.mu.Lock()
	r.prompts = append(r.prompts, prompt)
	r.mu.Unlock()
	if r.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if r.err != nil {
		return "", r.err
	}
	return "reply to " + prompt.User, nil
}

type prefixTTS struct {
	noStream bool
}

func (p prefixTTS) SynthesizeSpeech(ctx context.Context, text string) (io.ReadCloser, error) {
	if p.noStream {
		return nil, repositories.ErrNoAudioStream
	}
	return io.NopCloser(strings.NewReader("ID3:" + text)), nil
}

type fakeBuilder struct {
	mu    sync.Mutex
	calls int
	set   providers.Set
	err   error
}

func (f *fakeBuilder) Build(ctx context.Context, creds config.Credentials) (*providers.Set, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	set := f.set
	return &set, nil
}

var fullCredentials = config.Credentials{
	DeepInfraKey: "di-key",
	AWSAccessKey: "aws-access",
	AWSSecretKey: "aws-secret",
}

type testServer struct {
	echo    *echo.Echo
	root    string
	builder *fakeBuilder
	llm     *recordingLLM
}

func newTestServer(t *testing.T, creds config.Credentials, tts prefixTTS) *testServer {
	return newTestServerWithTimeout(t, creds, tts, 5*time.Second)
}

func newTestServerWithTimeout(t *testing.T, creds config.Credentials, tts prefixTTS, timeout time.Duration) *testServer {
	logger := zaptest.NewLogger(t)
	root := t.TempDir()

	workspaces, err := workspace.NewManager(root, logger)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	llm := &recordingLLM{}
	builder := &fakeBuilder{set: providers.Set{
		SpeechToText: echoSTT{},
		LLM:          llm,
		TextToSpeech: tts,
	}}
	service := conversation.NewService(saga.NewManager[conversation.Turn](logger, 10), timeout, logger)

	handler := NewHandler(
		config.Providers{STT: config.ProviderDeepInfra, LLM: config.ProviderDeepInfra, TTS: config.ProviderPolly},
		func() config.Credentials { return creds },
		workspaces,
		builder,
		service,
		logger,
	)

	e := echo.New()
	InitRoutes(e, handler)
	return &testServer{echo: e, root: root, builder: builder, llm: llm}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, field string, payload []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	if field != "" {
		part, err := mw.CreateFormFile(field, "recording.m4a")
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		part.Write(payload)
	} else {
		mw.WriteField("note", "no audio here")
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func assertWorkspaceEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected workspace root to be empty, found %d entries", len(entries))
	}
}

func TestLiveness(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Your server is running!" {
		t.Errorf("Unexpected liveness body %q", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health: %v", err)
	}
	if resp.Status != "ok" || resp.Service != "aiden-server" {
		t.Errorf("Unexpected health response %+v", resp)
	}
}

func TestProcessAudioWithoutUpload(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	rec := s.do(uploadRequest(t, "", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	if rec.Body.String() != "Internal server error" {
		t.Errorf("Unexpected body %q", rec.Body.String())
	}
	if s.builder.calls != 0 {
		t.Error("Expected no providers to be built")
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestProcessAudioMissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds config.Credentials
	}{
		{name: "deepinfra key", creds: config.Credentials{AWSAccessKey: "a", AWSSecretKey: "s"}},
		{name: "aws access key", creds: config.Credentials{DeepInfraKey: "d", AWSSecretKey: "s"}},
		{name: "aws secret key", creds: config.Credentials{DeepInfraKey: "d", AWSAccessKey: "a"}},
		{name: "none", creds: config.Credentials{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.creds, prefixTTS{})

			rec := s.do(uploadRequest(t, "audio", []byte("hello")))
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", rec.Code)
			}
			if rec.Body.String() != "Internal server error" {
				t.Errorf("Unexpected body %q", rec.Body.String())
			}
			if s.builder.calls != 0 {
				t.Error("Expected no upstream calls without credentials")
			}
			assertWorkspaceEmpty(t, s.root)
		})
	}
}

func TestProcessAudioSuccess(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	rec := s.do(uploadRequest(t, "audio", []byte("what time is it")))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "audio/mpeg" {
		t.Errorf("Expected audio/mpeg, got %s", ct)
	}
	if want := "ID3:reply to what time is it"; rec.Body.String() != want {
		t.Errorf("Expected body %q, got %q", want, rec.Body.String())
	}

	if len(s.llm.prompts) != 1 {
		t.Fatalf("Expected 1 prompt, got %d", len(s.llm.prompts))
	}
	prompt := s.llm.prompts[0]
	if prompt.System != domain.AssistantPersona {
		t.Error("Expected persona in prompt")
	}
	if !strings.Contains(prompt.Instruct(), "what time is it") {
		t.Error("Expected transcript in rendered prompt")
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestProcessAudioConcurrentRequestsAreIsolated(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	const n = 8
	requests := make([]*http.Request, n)
	for i := range requests {
		requests[i] = uploadRequest(t, "audio", []byte(fmt.Sprintf("request %d", i)))
	}

	var wg sync.WaitGroup
	bodies := make([]string, n)
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := s.do(requests[i])
			codes[i] = rec.Code
			bodies[i] = rec.Body.String()
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if codes[i] != http.StatusOK {
			t.Errorf("Request %d: expected status 200, got %d", i, codes[i])
			continue
		}
		if want := fmt.Sprintf("ID3:reply to request %d", i); bodies[i] != want {
			t.Errorf("Request %d: expected %q, got %q", i, want, bodies[i])
		}
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestProcessAudioNoAudioStream(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{noStream: true})

	rec := s.do(uploadRequest(t, "audio", []byte("hello")))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error != string(conversation.KindSynthesisFailed) {
		t.Errorf("Expected synthesis_failed, got %s", resp.Error)
	}
	if resp.RunID == "" {
		t.Error("Expected run ID in error response")
	}
	assertWorkspaceEmpty(t, s.root)

	runRec := s.do(httptest.NewRequest(http.MethodGet, "/runs/"+resp.RunID, nil))
	if runRec.Code != http.StatusOK {
		t.Fatalf("Expected run status 200, got %d", runRec.Code)
	}
	var status conversation.RunStatusResponse
	if err := json.Unmarshal(runRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode run status: %v", err)
	}
	if status.State != string(saga.SagaStateCompensated) {
		t.Errorf("Expected compensated run, got %s", status.State)
	}
}

func TestProcessAudioInferenceFailure(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})
	s.llm.err = errors.New("model overloaded")

	rec := s.do(uploadRequest(t, "audio", []byte("hello")))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected status 502, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error != string(conversation.KindInferenceFailed) {
		t.Errorf("Expected inference_failed, got %s", resp.Error)
	}
	if resp.Message != "Could not generate a reply" {
		t.Errorf("Unexpected message %q", resp.Message)
	}
	if strings.Contains(rec.Body.String(), "model overloaded") {
		t.Error("Expected upstream error detail to stay out of the response")
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestProcessAudioTimeout(t *testing.T) {
	s := newTestServerWithTimeout(t, fullCredentials, prefixTTS{}, 20*time.Millisecond)
	s.llm.block = true

	rec := s.do(uploadRequest(t, "audio", []byte("hello")))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("Expected status 504, got %d", rec.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error != string(conversation.KindTimeout) {
		t.Errorf("Expected timeout, got %s", resp.Error)
	}
	if resp.RunID == "" {
		t.Error("Expected run ID in error response")
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestProcessAudioProviderBuildFailure(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})
	s.builder.err = errors.New("unknown provider")

	rec := s.do(uploadRequest(t, "audio", []byte("hello")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	assertWorkspaceEmpty(t, s.root)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t, fullCredentials, prefixTTS{})

	rec := s.do(httptest.NewRequest(http.MethodGet, "/runs/voice_turn_unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
