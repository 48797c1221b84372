package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variables carrying upstream credentials
const (
	EnvDeepInfraKey  = "DEEPINFRA_KEY"
	EnvAWSAccessKey  = "AWS_ACCESS_KEY"
	EnvAWSSecretKey  = "AWS_SECRET_KEY"
	EnvGeminiAPIKey  = "GEMINI_API_KEY"
	EnvElevenLabsKey = "ELEVEN_LABS_API_KEY"
)

// ErrMissingCredentials is wrapped by Credentials.Validate
var ErrMissingCredentials = errors.New("missing credentials")

// Credentials are the secrets needed to reach the upstream services.
// They are read at request time so rotating them does not need a restart.
type Credentials struct {
	DeepInfraKey  string
	AWSAccessKey  string
	AWSSecretKey  string
	GeminiAPIKey  string
	ElevenLabsKey string
}

// LoadCredentials reads the credentials from the process environment
func LoadCredentials() Credentials {
	return Credentials{
		DeepInfraKey:  os.Getenv(EnvDeepInfraKey),
		AWSAccessKey:  os.Getenv(EnvAWSAccessKey),
		AWSSecretKey:  os.Getenv(EnvAWSSecretKey),
		GeminiAPIKey:  os.Getenv(EnvGeminiAPIKey),
		ElevenLabsKey: os.Getenv(EnvElevenLabsKey),
	}
}

// Missing lists the variables required for the given providers that are unset.
// The DeepInfra key and the AWS key pair are always required; Gemini and
// Eleven Labs keys only when those backends are selected.
func (c Credentials) Missing(p Providers) []string {
	var missing []string
	if c.DeepInfraKey == "" {
		missing = append(missing, EnvDeepInfraKey)
	}
	if c.AWSAccessKey == "" {
		missing = append(missing, EnvAWSAccessKey)
	}
	if c.AWSSecretKey == "" {
		missing = append(missing, EnvAWSSecretKey)
	}
	if p.LLM == ProviderGemini && c.GeminiAPIKey == "" {
		missing = append(missing, EnvGeminiAPIKey)
	}
	if p.TTS == ProviderEleven && c.ElevenLabsKey == "" {
		missing = append(missing, EnvElevenLabsKey)
	}
	return missing
}

// Validate returns an error wrapping ErrMissingCredentials naming every unset variable
func (c Credentials) Validate(p Providers) error {
	if missing := c.Missing(p); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
