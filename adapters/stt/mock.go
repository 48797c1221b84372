package stt

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/satriahrh/aiden-server/domain/repositories"
)

// MockSpeechToText is a placeholder implementation for speech recognition
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) repositories.SpeechToText {
	return &MockSpeechToText{
		logger: logger,
	}
}

// TranscribeFile implements repositories.SpeechToText
func (s *MockSpeechToText) TranscribeFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat audio file: %w", err)
	}

	s.logger.Info("Processing mock speech-to-text",
		zap.String("size", humanize.Bytes(uint64(info.Size()))))

	// Mock transcription based on audio size
	switch {
	case info.Size() > 10000:
		return "Hi AIDEN, can you help me plan my day? I have three meetings and a dentist appointment.", nil
	case info.Size() > 1000:
		return "Hi AIDEN, how are you today?", nil
	default:
		return "Hello", nil
	}
}
