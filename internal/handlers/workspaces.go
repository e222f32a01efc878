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

// MaxNameLength is the maximum length for workspace, box and block names
const MaxNameLength = 255

// WorkspaceHandler handles workspace-related requests
type WorkspaceHandler struct {
	workspaceRepo database.WorkspaceRepositoryInterface
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(workspaceRepo database.WorkspaceRepositoryInterface) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceRepo: workspaceRepo}
}

// RegisterRoutes registers workspace routes on the given router.
// The router should already have the /workspaces prefix.
func (h *WorkspaceHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListWorkspaces).Methods("GET")
	r.HandleFunc("", h.CreateWorkspace).Methods("POST")
	r.HandleFunc("/{id}", h.GetWorkspace).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateWorkspace).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteWorkspace).Methods("DELETE")
}

// CreateWorkspaceRequest represents a create workspace request
type CreateWorkspaceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateWorkspaceRequest represents an update workspace request
type UpdateWorkspaceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ListWorkspaces lists the authenticated user's workspaces
func (h *WorkspaceHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	workspaces, err := h.workspaceRepo.GetByUserID(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve workspaces")
		return
	}

	respondJSON(w, http.StatusOK, workspaces)
}

// CreateWorkspace creates a new workspace
func (h *WorkspaceHandler) CreateWorkspace(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateWorkspaceRequest
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

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	workspace := &models.Workspace{
		ID:          uuid.New(),
		UserID:      user.ID,
		Name:        req.Name,
		Description: validation.SanitizeText(req.Description),
	}

	if err := h.workspaceRepo.Create(r.Context(), workspace); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create workspace")
		return
	}

	respondJSON(w, http.StatusCreated, workspace)
}

// GetWorkspace retrieves a workspace by ID
func (h *WorkspaceHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	workspace, err := h.loadOwned(w, r, user.ID, id)
	if err != nil {
		return
	}

	respondJSON(w, http.StatusOK, workspace)
}

// UpdateWorkspace updates a workspace
func (h *WorkspaceHandler) UpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateWorkspaceRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	workspace, err := h.loadOwned(w, r, user.ID, id)
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
		workspace.Name = name
	}
	if req.Description != nil {
		workspace.Description = validation.SanitizeText(*req.Description)
	}

	if err := h.workspaceRepo.Update(r.Context(), workspace); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update workspace")
		return
	}

	respondJSON(w, http.StatusOK, workspace)
}

// DeleteWorkspace deletes a workspace
func (h *WorkspaceHandler) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
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

	if err := h.workspaceRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete workspace")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Workspace deleted"})
}

// loadOwned fetches a workspace and enforces ownership, writing the error
// response itself. A non-nil error means the response is already sent.
func (h *WorkspaceHandler) loadOwned(w http.ResponseWriter, r *http.Request, userID, id uuid.UUID) (*models.Workspace, error) {
	workspace, err := h.workspaceRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "Workspace not found")
		} else {
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve workspace")
		}
		return nil, err
	}
	if workspace.UserID != userID {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "You do not have access to this workspace")
		return nil, errors.New("forbidden")
	}
	return workspace, nil
}
