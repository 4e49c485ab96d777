package llm

import (
	"context"
	"strings"
)

// Request is one structured-output call.  Prompt carries the user's words,
// SystemInstruction the fixed rules.  Search asks the provider to ground the
// reply with web search when it supports that.
type Request struct {
	SystemInstruction string
	Prompt            string
	Search            bool
}

// Citation is a raw grounding reference as reported by the provider.  Title
// may be empty; the caller decides how to label it.
type Citation struct {
	Title string
	URI   string
}

// Completion is the provider's reply: the JSON text and any citations, in
// the order they were received.
type Completion struct {
	Text      string
	Citations []Citation
}

// Client defines the call the triage service needs from a model provider.
// Implementations return an error wrapping ErrCredential when the provider
// rejected or could not find the API credential.
type Client interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (*Completion, error)
}

// KeySource yields the API credential at call time, so a re-selected key is
// picked up without rebuilding the client.
type KeySource interface {
	APIKey() string
}

// StaticKey is a KeySource with a fixed value.
type StaticKey string

func (k StaticKey) APIKey() string { return strings.TrimSpace(string(k)) }
