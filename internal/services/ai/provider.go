package ai

import (
	"context"
)

// ChatProvider is the interface for AI chat backends
type ChatProvider interface {
	// SendMessage sends one chat turn and returns the assistant's answer.
	// An empty ConversationID starts a new conversation; the returned
	// ConversationID must be passed back to continue it.
	SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error)
}

// ChatRequest is one user turn sent to a provider
type ChatRequest struct {
	Query          string            `json:"query"`
	Inputs         map[string]string `json:"inputs"`
	ConversationID string            `json:"conversation_id,omitempty"`
	User           string            `json:"user"`
}

// ChatResult is the provider's answer to a chat turn
type ChatResult struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// ProviderFactory creates a chat provider from a string config map
type ProviderFactory func(config map[string]string) (ChatProvider, error)

// ProviderRegistry stores available chat providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (ChatProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
