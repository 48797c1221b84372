package repositories

import "errors"

var (
	// ErrMalformedResponse is returned when an upstream reply violates its schema
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNoAudioStream is returned when a synthesis response carries no audio
	ErrNoAudioStream = errors.New("no audio stream returned from speech synthesis")
)
