package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/services/ai"
	"go.uber.org/zap"
)

// stubProvider is a canned ChatProvider for handler tests
type stubProvider struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	answer   string
	convID   string
	err      error
}

var _ ai.ChatProvider = (*stubProvider)(nil)

func (p *stubProvider) SendMessage(ctx context.Context, req ai.ChatRequest) (*ai.ChatResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &ai.ChatResult{Answer: p.answer, ConversationID: p.convID}, nil
}

type chatFixture struct {
	router   *mux.Router
	provider *stubProvider
	activity *recordingActivity
	user     *models.User
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		provider: &stubProvider{answer: "the mitochondria", convID: "conv-1"},
		activity: &recordingActivity{},
		user:     testUser(),
	}
	service := ai.NewChatService(f.provider, zap.NewNop())
	f.router = mux.NewRouter()
	NewChatHandler(service, f.activity).RegisterRoutes(f.router.PathPrefix("/api/v1/ai").Subrouter())
	return f
}

func TestSendChatMessage(t *testing.T) {
	t.Parallel()

	f := newChatFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "what powers the cell?",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got ChatMessageResponse
	decodeData(t, rec, &got)
	if got.Answer != "the mitochondria" {
		t.Errorf("unexpected answer %q", got.Answer)
	}
	if got.ConversationID != "conv-1" {
		t.Errorf("expected conversation id threaded back, got %q", got.ConversationID)
	}
}

func TestSendChatMessage_GroundsInNoteContext(t *testing.T) {
	t.Parallel()

	f := newChatFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "summarize this",
		"context": "ATP synthesis in the inner membrane",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.provider.requests) != 1 {
		t.Fatalf("expected one provider call, got %d", len(f.provider.requests))
	}
	req := f.provider.requests[0]
	if req.Inputs["context"] != "ATP synthesis in the inner membrane" {
		t.Errorf("expected context forwarded as input, got %q", req.Inputs["context"])
	}
	if !strings.Contains(req.Query, "[Context]") || !strings.Contains(req.Query, "[Question]") {
		t.Errorf("expected labeled context blocks in query, got %q", req.Query)
	}
}

func TestSendChatMessage_MissingMessage(t *testing.T) {
	t.Parallel()

	f := newChatFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"context": "only context",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(f.provider.requests) != 0 {
		t.Error("expected no provider call for invalid request")
	}
}

func TestSendChatMessage_ProviderDown(t *testing.T) {
	t.Parallel()

	f := newChatFixture()
	f.provider.err = errors.New("dify exploded: secret-internal-detail")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "hello?",
	}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if strings.Contains(env.Message, "secret-internal-detail") {
		t.Errorf("provider detail leaked into response: %q", env.Message)
	}
}

func TestSendChatMessage_BadCredentials(t *testing.T) {
	t.Parallel()

	f := newChatFixture()
	f.provider.err = &ai.APIError{StatusCode: 401, Message: "invalid api key sk-secret"}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "hello?",
	}))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !strings.Contains(env.Message, "not configured") {
		t.Errorf("expected a configuration-problem message, got %q", env.Message)
	}
	if strings.Contains(env.Message, "sk-secret") {
		t.Errorf("provider detail leaked into response: %q", env.Message)
	}
}

func TestSendChatMessage_ProviderThrottled(t *testing.T) {
	t.Parallel()

	f := newChatFixture()
	f.provider.err = &ai.APIError{StatusCode: 429, Message: "too many requests"}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "hello?",
	}))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSendChatMessage_RecordsChatTick(t *testing.T) {
	t.Parallel()

	f := newChatFixture()
	blockID := uuid.New()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message":  "explain",
		"block_id": blockID,
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	ticks := f.activity.recorded()
	if len(ticks) != 1 || ticks[0].ActivityType != models.ActivityChatInteraction || ticks[0].BlockID != blockID {
		t.Errorf("expected chat_interaction tick for %s, got %+v", blockID, ticks)
	}
}

func TestChatHistoryRoundTrip(t *testing.T) {
	t.Parallel()

	f := newChatFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/ai/chat", map[string]any{
		"message": "first question",
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	histRec := httptest.NewRecorder()
	f.router.ServeHTTP(histRec, authedRequest(t, f.user, "GET", "/api/v1/ai/chat/history", nil))
	if histRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", histRec.Code)
	}
	var hist struct {
		Messages       []ai.ChatMessage `json:"messages"`
		ConversationID string           `json:"conversation_id"`
	}
	decodeData(t, histRec, &hist)
	if len(hist.Messages) != 2 {
		t.Fatalf("expected user+assistant turns, got %d", len(hist.Messages))
	}
	if hist.Messages[0].Role != "user" || hist.Messages[0].Content != "first question" {
		t.Errorf("unexpected first turn %+v", hist.Messages[0])
	}

	clearRec := httptest.NewRecorder()
	f.router.ServeHTTP(clearRec, authedRequest(t, f.user, "DELETE", "/api/v1/ai/chat/history", nil))
	if clearRec.Code != http.StatusOK {
		t.Fatalf("expected 200 clearing history, got %d", clearRec.Code)
	}

	histRec = httptest.NewRecorder()
	f.router.ServeHTTP(histRec, authedRequest(t, f.user, "GET", "/api/v1/ai/chat/history", nil))
	decodeData(t, histRec, &hist)
	if len(hist.Messages) != 0 {
		t.Errorf("expected empty history after clear, got %d messages", len(hist.Messages))
	}
}

func TestChatTestConnection(t *testing.T) {
	t.Parallel()

	f := newChatFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "GET", "/api/v1/ai/chat/test", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	f.provider.err = errors.New("unreachable")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "GET", "/api/v1/ai/chat/test", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 when provider is down, got %d", rec.Code)
	}
}
