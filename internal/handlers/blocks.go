package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/request"
	"github.com/wisdomhub/wisdom-hub/internal/validation"
)

// MaxContentLength caps a block's serialized rich-text document
const MaxContentLength = 1 << 20

// ActivityRecorder records fixed-duration activity ticks. Recording is
// fire-and-forget; failures never surface to the request.
type ActivityRecorder interface {
	LogActivity(ctx context.Context, userID, blockID uuid.UUID, activityType models.ActivityType, minutes int)
}

// BlockHandler handles block-related requests
type BlockHandler struct {
	blockRepo database.BlockRepositoryInterface
	boxRepo   database.BoxRepositoryInterface
	activity  ActivityRecorder
}

// NewBlockHandler creates a new block handler
func NewBlockHandler(blockRepo database.BlockRepositoryInterface, boxRepo database.BoxRepositoryInterface, activity ActivityRecorder) *BlockHandler {
	return &BlockHandler{blockRepo: blockRepo, boxRepo: boxRepo, activity: activity}
}

// RegisterRoutes registers block routes on the given router.
// The router should already have the /blocks prefix.
func (h *BlockHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBlocks).Methods("GET")
	r.HandleFunc("", h.CreateBlock).Methods("POST")
	r.HandleFunc("/{id}", h.GetBlock).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateBlock).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteBlock).Methods("DELETE")
}

// CreateBlockRequest represents a create block request
type CreateBlockRequest struct {
	BoxID   uuid.UUID `json:"box_id" validate:"required"`
	Title   string    `json:"title" validate:"required,min=1,max=255"`
	Content string    `json:"content"`
}

// UpdateBlockRequest represents an update block request
type UpdateBlockRequest struct {
	Title         *string `json:"title,omitempty"`
	Content       *string `json:"content,omitempty"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
}

// ListBlocks lists the blocks of a box the user owns
func (h *BlockHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	boxID, err := uuid.Parse(r.URL.Query().Get("box_id"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "box_id query parameter is required")
		return
	}

	if !h.ownsBox(w, r, user.ID, boxID) {
		return
	}

	blocks, err := h.blockRepo.GetByBoxID(r.Context(), boxID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve blocks")
		return
	}

	respondJSON(w, http.StatusOK, blocks)
}

// CreateBlock creates a new block inside a box and records a block_create tick
func (h *BlockHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateBlockRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if err := validation.Validate.Struct(req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Validation failed: %s", fieldError.Error()))
				return
			}
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed")
		return
	}

	if !h.ownsBox(w, r, user.ID, req.BoxID) {
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}
	if len(req.Content) > MaxContentLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Content exceeds maximum length of %d bytes", MaxContentLength))
		return
	}

	block := &models.Block{
		ID:      uuid.New(),
		BoxID:   req.BoxID,
		UserID:  user.ID,
		Title:   req.Title,
		Content: req.Content,
	}

	if err := h.blockRepo.Create(r.Context(), block); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create block")
		return
	}

	if h.activity != nil {
		h.activity.LogActivity(r.Context(), user.ID, block.ID, models.ActivityBlockCreate, 1)
	}

	respondJSON(w, http.StatusCreated, block)
}

// GetBlock retrieves a block by ID
func (h *BlockHandler) GetBlock(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	block, err := h.loadOwned(w, r, user.ID, id)
	if err != nil {
		return
	}

	respondJSON(w, http.StatusOK, block)
}

// UpdateBlock updates a block directly, outside any editing session
func (h *BlockHandler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateBlockRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	block, err := h.loadOwned(w, r, user.ID, id)
	if err != nil {
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		if len(title) > MaxNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxNameLength))
			return
		}
		block.Title = title
	}
	if req.Content != nil {
		if len(*req.Content) > MaxContentLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Content exceeds maximum length of %d bytes", MaxContentLength))
			return
		}
		block.Content = *req.Content
	}
	if req.CoverImageURL != nil {
		if *req.CoverImageURL == "" {
			block.CoverImageURL = nil
		} else {
			block.CoverImageURL = req.CoverImageURL
		}
	}

	if err := h.blockRepo.Update(r.Context(), block); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update block")
		return
	}

	respondJSON(w, http.StatusOK, block)
}

// DeleteBlock deletes a block and records a block_delete tick
func (h *BlockHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.loadOwned(w, r, user.ID, id); err != nil {
		return
	}

	if err := h.blockRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete block")
		return
	}

	if h.activity != nil {
		h.activity.LogActivity(r.Context(), user.ID, id, models.ActivityBlockDelete, 1)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Block deleted"})
}

func (h *BlockHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) (*models.Block, error) {
	return loadOwnedBlock(w, r, h.blockRepo, userID, id)
}

// loadOwnedBlock fetches a block and enforces ownership, writing the error
// response itself. A non-nil error means the response is already sent.
func loadOwnedBlock(w http.ResponseWriter, r *http.Request, repo database.BlockRepositoryInterface, userID, id uuid.UUID) (*models.Block, error) {
	block, err := repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Block not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve block")
		}
		return nil, err
	}
	if block.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "You do not have access to this block")
		return nil, errors.New("forbidden")
	}
	return block, nil
}

// ownsBox verifies the parent box exists and belongs to the user
func (h *BlockHandler) ownsBox(w http.ResponseWriter, r *http.Request, userID, boxID uuid.UUID) bool {
	box, err := h.boxRepo.GetByID(r.Context(), boxID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Box not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve box")
		}
		return false
	}
	if box.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "You do not have access to this box")
		return false
	}
	return true
}
