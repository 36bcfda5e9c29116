package llm

import (
	"context"
	"encoding/json"
)

// Provider is the single abstraction the marking client and question-set
// generator depend on. Implementations validate structured responses
// against the request schema before returning them.
type Provider interface {
	// Generate performs one model call. When req.Schema is set the
	// returned Content is JSON already validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID reports the configured model identifier.
	ModelID() string
}

// Request is one model call. Everything here is single-turn: marking and
// generation each send a system prompt plus one user message.
type Request struct {
	// System sets the examiner or question-writer persona.
	System string

	// Messages is the conversation. In practice one user message.
	Messages []Message

	// Schema, when set, selects the provider's structured output
	// mechanism and gates the response through validation. When nil the
	// Content comes back as raw text.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature in [0.0, 1.0]; zero means deterministic. Marking runs
	// at zero, generation runs warmer.
	Temperature float64
}

// Message is one turn in the conversation.
type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema names and defines the JSON shape a response must take,
// e.g. "grade" or "mcq-set".
type Schema struct {
	// Name is kebab-case and doubles as the provider-side schema name.
	Name string

	// Description is sent to the model to guide generation.
	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response is the model's output plus accounting.
type Response struct {
	// Content is validated JSON when the request carried a Schema,
	// otherwise raw text.
	Content json.RawMessage

	// Usage is the token consumption reported by the provider.
	Usage Usage

	// Model is the model that actually served the call, which for
	// routed providers can differ from the configured id.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage tracks token consumption for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
