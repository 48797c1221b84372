package domain

import "strings"

// AssistantPersona is the system preamble every prompt carries
const AssistantPersona = "Initiate AIDEN, the AI assistant created by Sudhanshu Makwana & Megha Kawad. " +
	"AIDEN combines a professional attitude with a friendly touch, making interactions both efficient and enjoyable. " +
	"It speaks clearly and concisely, avoiding technical jargon unless necessary. " +
	"At its core, AIDEN values user privacy and operates with ethical integrity, " +
	"ensuring unbiased and respectful communication in every interaction."

// Prompt is the input handed to a language model
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// NewAssistantPrompt wraps a transcript in the assistant persona.
// The transcript is kept verbatim.
func NewAssistantPrompt(transcript string) Prompt {
	return Prompt{
		System: AssistantPersona,
		User:   transcript,
	}
}

// Instruct renders the prompt in the [INST] <<SYS>> format used by
// instruct-tuned models served through raw text inference.
func (p Prompt) Instruct() string {
	var b strings.Builder
	b.Grow(len(p.System) + len(p.User) + 32)
	b.WriteString("[INST] <<SYS>> ")
	b.WriteString(p.System)
	b.WriteString(" <<SYS>> ")
	b.WriteString(p.User)
	b.WriteString(" [/INST]")
	return b.String()
}
