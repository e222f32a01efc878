package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/request"
	"github.com/wisdomhub/wisdom-hub/internal/services/ai"
)

// ChatHandler handles AI assistant requests
type ChatHandler struct {
	chatService *ai.ChatService
	activity    ActivityRecorder
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *ai.ChatService, activity ActivityRecorder) *ChatHandler {
	return &ChatHandler{chatService: chatService, activity: activity}
}

// RegisterRoutes registers chat routes on the given router.
// The router should already have the /ai prefix.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/chat", h.SendMessage).Methods("POST")
	r.HandleFunc("/chat/history", h.History).Methods("GET")
	r.HandleFunc("/chat/history", h.ClearHistory).Methods("DELETE")
	r.HandleFunc("/chat/test", h.TestConnection).Methods("GET")
}

// ChatMessageRequest represents a chat turn. Context carries the open note's
// content so the assistant can ground its answer in it.
type ChatMessageRequest struct {
	Message        string     `json:"message"`
	Context        string     `json:"context,omitempty"`
	ConversationID string     `json:"conversation_id,omitempty"`
	BlockID        *uuid.UUID `json:"block_id,omitempty"`
}

// ChatMessageResponse carries the assistant's answer
type ChatMessageResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// SendMessage sends one chat turn to the assistant
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req ChatMessageRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Message == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Message is required")
		return
	}

	if req.ConversationID != "" {
		h.chatService.ResumeConversation(user.ID, req.ConversationID)
	}

	ctx := r.Context()
	var answer string
	var err error
	if req.Context != "" {
		answer, err = h.chatService.SendWithContext(ctx, user.ID, req.Message, req.Context)
	} else {
		answer, err = h.chatService.Send(ctx, user.ID, req.Message)
	}
	if err != nil {
		switch {
		case errors.Is(err, ai.ErrMisconfigured):
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", "AI assistant is not configured correctly")
		case errors.Is(err, ai.ErrThrottled):
			respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", ai.ErrThrottled.Error())
		case errors.Is(err, ai.ErrUnavailable):
			respondJSONError(w, http.StatusBadGateway, "Bad Gateway", ai.ErrUnavailable.Error())
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to get AI response")
		}
		return
	}

	if req.BlockID != nil && h.activity != nil {
		h.activity.LogActivity(ctx, user.ID, *req.BlockID, models.ActivityChatInteraction, 1)
	}

	respondJSON(w, http.StatusOK, ChatMessageResponse{
		Answer:         answer,
		ConversationID: h.chatService.ConversationID(user.ID),
	})
}

// History returns the user's chat transcript
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"messages":        h.chatService.History(user.ID),
		"conversation_id": h.chatService.ConversationID(user.ID),
	})
}

// ClearHistory drops the user's chat session. The next message starts a fresh
// conversation.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	h.chatService.ClearHistory(user.ID)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Chat history cleared"})
}

// TestConnection probes the AI provider
func (h *ChatHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	if err := h.chatService.Ping(r.Context()); err != nil {
		respondJSONError(w, http.StatusBadGateway, "Bad Gateway", ai.ErrUnavailable.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "AI service reachable"})
}
