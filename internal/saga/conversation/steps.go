package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain"
	"github.com/satriahrh/aiden-server/domain/repositories"
	"github.com/satriahrh/aiden-server/internal/providers"
	"github.com/satriahrh/aiden-server/internal/saga"
)

// DefinitionID names the voice turn saga
const DefinitionID = "voice_turn"

// Turn is the state shared by the steps of one run
type Turn struct {
	Providers  providers.Set
	InputPath  string
	OutputPath string

	Transcript string
	Prompt     domain.Prompt
	Reply      string
	AudioSize  int64

	audio io.ReadCloser
}

// VoiceTurnDefinition defines the transcribe, prompt, reply, speak pipeline
type VoiceTurnDefinition struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewVoiceTurnDefinition creates a new voice turn saga definition
func NewVoiceTurnDefinition(timeout time.Duration, logger *zap.Logger) *VoiceTurnDefinition {
	return &VoiceTurnDefinition{
		timeout: timeout,
		logger:  logger,
	}
}

func (d *VoiceTurnDefinition) ID() string {
	return DefinitionID
}

func (d *VoiceTurnDefinition) Timeout() time.Duration {
	return d.timeout
}

func (d *VoiceTurnDefinition) Steps() []saga.Step[Turn] {
	return []saga.Step[Turn]{
		&TranscribeStep{logger: d.logger},
		&ComposePromptStep{},
		&GenerateReplyStep{logger: d.logger},
		&SynthesizeSpeechStep{logger: d.logger},
		&PersistAudioStep{logger: d.logger},
	}
}

// TranscribeStep converts the uploaded recording to text
type TranscribeStep struct {
	logger *zap.Logger
}

func (s *TranscribeStep) ID() saga.StepID {
	return "transcribe"
}

func (s *TranscribeStep) Execute(ctx context.Context, turn *Turn) error {
	if turn.Providers.SpeechToText == nil {
		return newStepError(KindTranscriptionFailed, errors.New("no speech-to-text provider"))
	}
	if turn.InputPath == "" {
		return newStepError(KindTranscriptionFailed, errors.New("no input audio"))
	}

	transcript, err := turn.Providers.SpeechToText.TranscribeFile(ctx, turn.InputPath)
	if err != nil {
		return newStepError(KindTranscriptionFailed, err)
	}
	turn.Transcript = transcript

	s.logger.Debug("Transcribed audio", zap.String("transcript", transcript))
	return nil
}

func (s *TranscribeStep) Compensate(ctx context.Context, turn *Turn) error {
	return nil
}

// ComposePromptStep wraps the transcript in the assistant persona
type ComposePromptStep struct{}

func (s *ComposePromptStep) ID() saga.StepID {
	return "compose_prompt"
}

func (s *ComposePromptStep) Execute(ctx context.Context, turn *Turn) error {
	turn.Prompt = domain.NewAssistantPrompt(turn.Transcript)
	return nil
}

func (s *ComposePromptStep) Compensate(ctx context.Context, turn *Turn) error {
	return nil
}

// GenerateReplyStep asks the language model for the assistant's answer
type GenerateReplyStep struct {
	logger *zap.Logger
}

func (s *GenerateReplyStep) ID() saga.StepID {
	return "generate_reply"
}

func (s *GenerateReplyStep) Execute(ctx context.Context, turn *Turn) error {
	if turn.Providers.LLM == nil {
		return newStepError(KindInferenceFailed, errors.New("no language model provider"))
	}

	reply, err := turn.Providers.LLM.Generate(ctx, turn.Prompt)
	if err != nil {
		return newStepError(KindInferenceFailed, err)
	}
	turn.Reply = reply

	s.logger.Debug("Generated reply", zap.String("reply", reply))
	return nil
}

func (s *GenerateReplyStep) Compensate(ctx context.Context, turn *Turn) error {
	return nil
}

// SynthesizeSpeechStep opens the synthesized audio stream for the reply
type SynthesizeSpeechStep struct {
	logger *zap.Logger
}

func (s *SynthesizeSpeechStep) ID() saga.StepID {
	return "synthesize_speech"
}

func (s *SynthesizeSpeechStep) Execute(ctx context.Context, turn *Turn) error {
	if turn.Providers.TextToSpeech == nil {
		return newStepError(KindSynthesisFailed, errors.New("no text-to-speech provider"))
	}

	stream, err := turn.Providers.TextToSpeech.SynthesizeSpeech(ctx, turn.Reply)
	if err != nil {
		return newStepError(KindSynthesisFailed, err)
	}
	if stream == nil {
		return newStepError(KindSynthesisFailed, repositories.ErrNoAudioStream)
	}
	turn.audio = stream
	return nil
}

// Compensate closes the stream if persisting never consumed it
func (s *SynthesizeSpeechStep) Compensate(ctx context.Context, turn *Turn) error {
	if turn.audio == nil {
		return nil
	}
	err := turn.audio.Close()
	turn.audio = nil
	return err
}

// PersistAudioStep reads the whole stream and writes it to the output path
type PersistAudioStep struct {
	logger *zap.Logger
}

func (s *PersistAudioStep) ID() saga.StepID {
	return "persist_audio"
}

func (s *PersistAudioStep) Execute(ctx context.Context, turn *Turn) error {
	if turn.audio == nil {
		return newStepError(KindSynthesisFailed, repositories.ErrNoAudioStream)
	}
	if turn.OutputPath == "" {
		return newStepError(KindSynthesisFailed, errors.New("no output path"))
	}

	stream := turn.audio
	turn.audio = nil
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	if err != nil {
		return newStepError(KindSynthesisFailed, fmt.Errorf("failed to read audio stream: %w", err))
	}
	if err := os.WriteFile(turn.OutputPath, audio, 0o600); err != nil {
		os.Remove(turn.OutputPath)
		return newStepError(KindSynthesisFailed, fmt.Errorf("failed to write audio file: %w", err))
	}
	turn.AudioSize = int64(len(audio))

	s.logger.Info("Audio saved",
		zap.String("path", turn.OutputPath),
		zap.String("size", humanize.Bytes(uint64(len(audio)))))
	return nil
}

func (s *PersistAudioStep) Compensate(ctx context.Context, turn *Turn) error {
	if turn.OutputPath == "" {
		return nil
	}
	if err := os.Remove(turn.OutputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
