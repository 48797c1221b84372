package repositories

import (
	"context"
	"io"
)

type TextToSpeech interface {
	// SynthesizeSpeech converts text to an audio stream. The caller closes it.
	SynthesizeSpeech(ctx context.Context, text string) (io.ReadCloser, error)
}
