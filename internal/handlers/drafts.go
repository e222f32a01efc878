package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/autosave"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/request"
	"github.com/wisdomhub/wisdom-hub/internal/validation"
)

// DraftHandler exposes the debounced editing sessions over HTTP
type DraftHandler struct {
	autosave  *autosave.Manager
	blockRepo database.BlockRepositoryInterface
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(manager *autosave.Manager, blockRepo database.BlockRepositoryInterface) *DraftHandler {
	return &DraftHandler{autosave: manager, blockRepo: blockRepo}
}

// RegisterRoutes registers draft routes on the given router.
// The router should already have the /blocks prefix.
func (h *DraftHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{id}/draft", h.SubmitDraft).Methods("PUT")
	r.HandleFunc("/{id}/draft", h.DraftStatus).Methods("GET")
	r.HandleFunc("/{id}/draft", h.EndSession).Methods("DELETE")
	r.HandleFunc("/{id}/draft/save", h.SaveNow).Methods("POST")
}

// SubmitDraftRequest carries one editor snapshot
type SubmitDraftRequest struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
}

// DraftStatusResponse reports the state of an editing session
type DraftStatusResponse struct {
	Saving      bool       `json:"saving"`
	Pending     bool       `json:"pending"`
	Dirty       bool       `json:"dirty"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
}

// SubmitDraft feeds a snapshot into the block's debounced session. Unchanged
// snapshots are absorbed without scheduling a save.
func (h *DraftHandler) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req SubmitDraftRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
		return
	}
	if len(req.Content) > MaxContentLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content exceeds maximum length")
		return
	}

	block, err := loadOwnedBlock(w, r, h.blockRepo, user.ID, id)
	if err != nil {
		return
	}

	draft := autosave.BlockDraft{
		Title:         req.Title,
		Content:       req.Content,
		CoverImageURL: req.CoverImageURL,
	}
	if err := h.autosave.Update(r.Context(), block, draft); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to accept draft")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Draft accepted"})
}

// SaveNow flushes the session immediately. This is the one save path whose
// persistence error reaches the caller.
func (h *DraftHandler) SaveNow(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.autosave.SaveNow(r.Context(), user.ID, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to save draft")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Draft saved"})
}

// DraftStatus reports whether the session is saving, pending or dirty
func (h *DraftHandler) DraftStatus(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	status, exists := h.autosave.Status(user.ID, id)
	if !exists {
		respondJSONError(w, http.StatusNotFound, "Not Found", "No editing session for this block")
		return
	}

	respondJSON(w, http.StatusOK, DraftStatusResponse{
		Saving:      status.Saving,
		Pending:     status.Pending,
		Dirty:       status.Dirty,
		LastSavedAt: status.LastSavedAt,
	})
}

// EndSession performs a final save and tears the session down
func (h *DraftHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.autosave.End(r.Context(), user.ID, id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to close editing session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Editing session closed"})
}
