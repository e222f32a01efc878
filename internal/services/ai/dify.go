package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultDifyBaseURL is the default Dify API base URL
	DefaultDifyBaseURL = "https://api.dify.ai/v1"
	// difyResponseModeBlocking requests a single complete answer per turn
	difyResponseModeBlocking = "blocking"
	// maxErrorBodyBytes caps how much of an error body gets kept for logs
	maxErrorBodyBytes = 2048
)

// DifyProvider implements ChatProvider against the Dify chat-messages API
type DifyProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	debugMode  bool
}

// NewDifyProvider creates a new Dify provider
func NewDifyProvider(apiKey string, baseURL string) *DifyProvider {
	return NewDifyProviderWithLogger(apiKey, baseURL, nil, false)
}

// NewDifyProviderWithLogger creates a new Dify provider with logger support
func NewDifyProviderWithLogger(apiKey string, baseURL string, logger *zap.Logger, debugMode bool) *DifyProvider {
	if baseURL == "" {
		baseURL = DefaultDifyBaseURL
	}

	return &DifyProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:    logger,
		debugMode: debugMode,
	}
}

type difyChatRequest struct {
	Inputs         map[string]string `json:"inputs"`
	Query          string            `json:"query"`
	ResponseMode   string            `json:"response_mode"`
	ConversationID string            `json:"conversation_id,omitempty"`
	User           string            `json:"user"`
}

type difyChatResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// SendMessage sends one blocking chat turn to Dify
func (p *DifyProvider) SendMessage(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	inputs := req.Inputs
	if inputs == nil {
		inputs = map[string]string{}
	}

	body, err := json.Marshal(difyChatRequest{
		Inputs:         inputs,
		Query:          req.Query,
		ResponseMode:   difyResponseModeBlocking,
		ConversationID: req.ConversationID,
		User:           req.User,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat-messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	if p.logger != nil && p.debugMode {
		p.logger.Debug("dify_api_request",
			zap.Int("query_length", len(req.Query)),
			zap.Bool("continues_conversation", req.ConversationID != ""),
		)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call Dify API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if p.logger != nil {
			p.logger.Warn("dify_api_error",
				zap.Int("status_code", resp.StatusCode),
				zap.Duration("duration", time.Since(start)),
			)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(detail)),
		}
	}

	var chatResp difyChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode Dify response: %w", err)
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("dify_api_response",
			zap.Int("answer_length", len(chatResp.Answer)),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return &ChatResult{
		Answer:         chatResp.Answer,
		ConversationID: chatResp.ConversationID,
	}, nil
}

// Ping sends a minimal turn to verify credentials and connectivity
func (p *DifyProvider) Ping(ctx context.Context) error {
	_, err := p.SendMessage(ctx, ChatRequest{
		Query: "ping",
		User:  "connectivity-check",
	})
	return err
}
