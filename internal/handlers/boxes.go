package handlers

import (
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

// BoxHandler handles box-related requests
type BoxHandler struct {
	boxRepo       database.BoxRepositoryInterface
	workspaceRepo database.WorkspaceRepositoryInterface
}

// NewBoxHandler creates a new box handler
func NewBoxHandler(boxRepo database.BoxRepositoryInterface, workspaceRepo database.WorkspaceRepositoryInterface) *BoxHandler {
	return &BoxHandler{boxRepo: boxRepo, workspaceRepo: workspaceRepo}
}

// RegisterRoutes registers box routes on the given router.
// The router should already have the /boxes prefix.
func (h *BoxHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBoxes).Methods("GET")
	r.HandleFunc("", h.CreateBox).Methods("POST")
	r.HandleFunc("/{id}", h.GetBox).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateBox).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteBox).Methods("DELETE")
}

// CreateBoxRequest represents a create box request
type CreateBoxRequest struct {
	WorkspaceID uuid.UUID `json:"workspace_id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1,max=255"`
	Description string    `json:"description" validate:"max=2000"`
}

// UpdateBoxRequest represents an update box request
type UpdateBoxRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ListBoxes lists the boxes of a workspace the user owns
func (h *BoxHandler) ListBoxes(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	workspaceID, err := uuid.Parse(r.URL.Query().Get("workspace_id"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "workspace_id query parameter is required")
		return
	}

	if !h.ownsWorkspace(w, r, user.ID, workspaceID) {
		return
	}

	boxes, err := h.boxRepo.GetByWorkspaceID(r.Context(), workspaceID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve boxes")
		return
	}

	respondJSON(w, http.StatusOK, boxes)
}

// CreateBox creates a new box inside a workspace
func (h *BoxHandler) CreateBox(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateBoxRequest
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

	if !h.ownsWorkspace(w, r, user.ID, req.WorkspaceID) {
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	box := &models.Box{
		ID:          uuid.New(),
		WorkspaceID: req.WorkspaceID,
		UserID:      user.ID,
		Name:        req.Name,
		Description: validation.SanitizeText(req.Description),
	}

	if err := h.boxRepo.Create(r.Context(), box); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create box")
		return
	}

	respondJSON(w, http.StatusCreated, box)
}

// GetBox retrieves a box by ID
func (h *BoxHandler) GetBox(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	box, err := h.loadOwned(w, r, user.ID, id)
	if err != nil {
		return
	}

	respondJSON(w, http.StatusOK, box)
}

// UpdateBox updates a box
func (h *BoxHandler) UpdateBox(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateBoxRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	box, err := h.loadOwned(w, r, user.ID, id)
	if err != nil {
		return
	}

	if req.Name != nil {
		name := validation.SanitizeText(*req.Name)
		if name == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
			return
		}
		if len(name) > MaxNameLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Name exceeds maximum length of %d characters", MaxNameLength))
			return
		}
		box.Name = name
	}
	if req.Description != nil {
		box.Description = validation.SanitizeText(*req.Description)
	}

	if err := h.boxRepo.Update(r.Context(), box); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update box")
		return
	}

	respondJSON(w, http.StatusOK, box)
}

// DeleteBox deletes a box
func (h *BoxHandler) DeleteBox(w http.ResponseWriter, r *http.Request) {
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

	if err := h.boxRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete box")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Box deleted"})
}

func (h *BoxHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) (*models.Box, error) {
	box, err := h.boxRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Box not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve box")
		}
		return nil, err
	}
	if box.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "You do not have access to this box")
		return nil, errors.New("forbidden")
	}
	return box, nil
}

// ownsWorkspace verifies the parent workspace exists and belongs to the user
func (h *BoxHandler) ownsWorkspace(w http.ResponseWriter, r *http.Request, userID, workspaceID uuid.UUID) bool {
	workspace, err := h.workspaceRepo.GetByID(r.Context(), workspaceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Workspace not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve workspace")
		}
		return false
	}
	if workspace.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "You do not have access to this workspace")
		return false
	}
	return true
}
