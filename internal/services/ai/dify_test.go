package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDifyProviderSendMessage(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotContentType string
	var gotBody difyChatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(difyChatResponse{
			Answer:         "hello back",
			ConversationID: "conv-123",
		})
	}))
	defer server.Close()

	provider := NewDifyProvider("test-key", server.URL)
	result, err := provider.SendMessage(context.Background(), ChatRequest{
		Query:          "hello",
		Inputs:         map[string]string{"context": "note body"},
		ConversationID: "conv-122",
		User:           "user-1",
	})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if gotPath != "/chat-messages" {
		t.Errorf("expected POST /chat-messages, got %s", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected Content-Type %q", gotContentType)
	}
	if gotBody.ResponseMode != "blocking" {
		t.Errorf("expected blocking response mode, got %q", gotBody.ResponseMode)
	}
	if gotBody.Query != "hello" || gotBody.ConversationID != "conv-122" || gotBody.User != "user-1" {
		t.Errorf("unexpected request body %+v", gotBody)
	}
	if gotBody.Inputs["context"] != "note body" {
		t.Errorf("expected context input to be forwarded, got %v", gotBody.Inputs)
	}

	if result.Answer != "hello back" {
		t.Errorf("unexpected answer %q", result.Answer)
	}
	if result.ConversationID != "conv-123" {
		t.Errorf("unexpected conversation id %q", result.ConversationID)
	}
}

func TestDifyProviderSendsEmptyInputsObject(t *testing.T) {
	t.Parallel()

	var rawBody map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&rawBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(difyChatResponse{Answer: "ok", ConversationID: "c"})
	}))
	defer server.Close()

	provider := NewDifyProvider("test-key", server.URL)
	if _, err := provider.SendMessage(context.Background(), ChatRequest{Query: "hi", User: "u"}); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	// The API rejects a null inputs field, so nil must serialize as {}
	if string(rawBody["inputs"]) != "{}" {
		t.Errorf("expected inputs to serialize as {}, got %s", rawBody["inputs"])
	}
}

func TestDifyProviderErrorStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
	}{
		{"unauthorized", http.StatusUnauthorized},
		{"rate limited", http.StatusTooManyRequests},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"message":"upstream failure"}`))
			}))
			defer server.Close()

			provider := NewDifyProvider("test-key", server.URL)
			_, err := provider.SendMessage(context.Background(), ChatRequest{Query: "hi", User: "u"})
			if err == nil {
				t.Fatal("expected error for non-2xx status")
			}

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
		})
	}
}

func TestDifyProviderPing(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(difyChatResponse{Answer: "pong", ConversationID: "c"})
	}))
	defer server.Close()

	provider := NewDifyProvider("test-key", server.URL)
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
