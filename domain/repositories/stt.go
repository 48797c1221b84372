package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeFile converts the audio file at path to text
	TranscribeFile(ctx context.Context, path string) (string, error)
}
