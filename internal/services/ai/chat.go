package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxContextChars caps how much note content gets forwarded per turn
const maxContextChars = 6000

// ChatService manages per-user chat sessions on top of a provider
type ChatService struct {
	provider ChatProvider
	logger   *zap.Logger
	sessions map[uuid.UUID]*ChatSession
	mu       sync.RWMutex // Protects concurrent access to sessions map
}

// ChatSession represents one user's active conversation. The mutex guards
// the mutable fields; the session map lock does not.
type ChatSession struct {
	mu             sync.Mutex
	UserID         uuid.UUID
	ConversationID string
	Messages       []ChatMessage
	CreatedAt      time.Time
	LastActivity   time.Time
}

// ChatMessage is one turn of a session's transcript
type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewChatService creates a new chat service
func NewChatService(provider ChatProvider, logger *zap.Logger) *ChatService {
	return &ChatService{
		provider: provider,
		logger:   logger,
		sessions: make(map[uuid.UUID]*ChatSession),
	}
}

// GetOrCreateSession gets or creates the chat session for a user
func (s *ChatService) GetOrCreateSession(userID uuid.UUID) *ChatSession {
	// Try read lock first for fast path
	s.mu.RLock()
	if session, exists := s.sessions[userID]; exists {
		s.mu.RUnlock()
		session.touch()
		return session
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := s.sessions[userID]; exists {
		session.touch()
		return session
	}

	session := &ChatSession{
		UserID:       userID,
		Messages:     make([]ChatMessage, 0),
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}

	s.sessions[userID] = session
	return session
}

// Send sends a plain chat turn for the user's session
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, message string) (string, error) {
	return s.send(ctx, userID, message, "")
}

// SendWithContext sends a chat turn grounded in note content. The context is
// forwarded both as a provider input and as a labeled block wrapping the
// question, so providers without input support still see it.
func (s *ChatService) SendWithContext(ctx context.Context, userID uuid.UUID, message string, noteContext string) (string, error) {
	if len(noteContext) > maxContextChars {
		noteContext = noteContext[:maxContextChars]
	}
	return s.send(ctx, userID, message, noteContext)
}

func (s *ChatService) send(ctx context.Context, userID uuid.UUID, message string, noteContext string) (string, error) {
	session := s.GetOrCreateSession(userID)

	session.mu.Lock()
	conversationID := session.ConversationID
	session.mu.Unlock()

	req := ChatRequest{
		Query:          message,
		ConversationID: conversationID,
		User:           userID.String(),
		Inputs:         map[string]string{},
	}
	if noteContext != "" {
		req.Inputs["context"] = noteContext
		req.Query = fmt.Sprintf("[Context]\n%s\n\n[Question]\n%s", noteContext, message)
	}

	result, err := s.provider.SendMessage(ctx, req)
	if err != nil {
		s.logger.Error("ai_chat_failed",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		// Sentinels keep provider details out of responses while still
		// letting callers distinguish bad credentials and throttling
		switch {
		case IsAuthError(err):
			return "", ErrMisconfigured
		case IsRateLimitError(err):
			return "", ErrThrottled
		}
		return "", ErrUnavailable
	}

	session.mu.Lock()
	session.ConversationID = result.ConversationID
	session.append("user", message)
	session.append("assistant", result.Answer)
	session.mu.Unlock()

	return result.Answer, nil
}

// ConversationID returns the provider conversation id for the user's
// session, empty when no turn has completed yet.
func (s *ChatService) ConversationID(userID uuid.UUID) string {
	s.mu.RLock()
	session, exists := s.sessions[userID]
	s.mu.RUnlock()
	if !exists {
		return ""
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.ConversationID
}

// ResumeConversation seeds the user's session with a provider conversation id
// so a client can continue a thread it already holds.
func (s *ChatService) ResumeConversation(userID uuid.UUID, conversationID string) {
	session := s.GetOrCreateSession(userID)
	session.mu.Lock()
	session.ConversationID = conversationID
	session.mu.Unlock()
}

// History returns a copy of the user's transcript, empty when no session
// exists.
func (s *ChatService) History(userID uuid.UUID) []ChatMessage {
	s.mu.RLock()
	session, exists := s.sessions[userID]
	s.mu.RUnlock()
	if !exists {
		return []ChatMessage{}
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	history := make([]ChatMessage, len(session.Messages))
	copy(history, session.Messages)
	return history
}

// ClearHistory drops the user's session, and any replayed history the
// provider keeps for its conversation. The next turn starts a fresh
// conversation.
func (s *ChatService) ClearHistory(userID uuid.UUID) {
	s.mu.Lock()
	session, exists := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()
	if !exists {
		return
	}

	session.mu.Lock()
	conversationID := session.ConversationID
	session.mu.Unlock()
	if conversationID == "" {
		return
	}

	type conversationDropper interface {
		DropConversation(conversationID string)
	}
	if d, ok := s.provider.(conversationDropper); ok {
		d.DropConversation(conversationID)
	}
}

// Ping verifies the provider is reachable when it supports probing
func (s *ChatService) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := s.provider.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err := s.provider.SendMessage(ctx, ChatRequest{
		Query: "ping",
		User:  "connectivity-check",
	})
	return err
}

func (sess *ChatSession) touch() {
	sess.mu.Lock()
	sess.LastActivity = time.Now()
	sess.mu.Unlock()
}

// append adds a transcript turn; the caller holds sess.mu
func (sess *ChatSession) append(role string, content string) {
	sess.Messages = append(sess.Messages, ChatMessage{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	sess.LastActivity = time.Now()
}
