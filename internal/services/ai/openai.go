package ai

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// maxConversationTurns caps how much history gets replayed per request
	maxConversationTurns = 20

	systemPrompt = "You are a study assistant. When the user supplies note " +
		"content as context, ground your answer in that content and say so " +
		"when the context does not cover the question."
)

// OpenAIProvider implements ChatProvider using OpenAI's chat completions.
// OpenAI has no server-side conversations, so the provider keeps the replayed
// history per conversation id itself.
type OpenAIProvider struct {
	client openai.Client
	model  string
	logger *zap.Logger

	mu            sync.Mutex
	conversations map[string][]openai.ChatCompletionMessageParamUnion
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, model string) *OpenAIProvider {
	return NewOpenAIProviderWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil)
}

// NewOpenAIProviderWithLogger creates a new OpenAI provider with logger support
func NewOpenAIProviderWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger) *OpenAIProvider {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIProvider{
		client:        client,
		model:         model,
		logger:        logger,
		conversations: make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

// SendMessage sends one chat turn, replaying the conversation's prior turns
func (p *OpenAIProvider) SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	// Callers embed any note context into Query; Inputs is a Dify concept
	query := req.Query

	p.mu.Lock()
	history := p.conversations[conversationID]
	p.mu.Unlock()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, openai.UserMessage(query))

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	answer := resp.Choices[0].Message.Content

	p.mu.Lock()
	history = append(history, openai.UserMessage(query), openai.AssistantMessage(answer))
	if len(history) > maxConversationTurns*2 {
		history = history[len(history)-maxConversationTurns*2:]
	}
	p.conversations[conversationID] = history
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("openai_chat_completed",
			zap.String("model", p.model),
			zap.Int("answer_length", len(answer)),
		)
	}

	return &ChatResult{
		Answer:         answer,
		ConversationID: conversationID,
	}, nil
}

// DropConversation forgets the replayed history for a conversation id
func (p *OpenAIProvider) DropConversation(conversationID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conversations, conversationID)
}
