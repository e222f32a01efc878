package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/media"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/queue"
	"github.com/wisdomhub/wisdom-hub/internal/request"
)

// UploadHandler handles cover-image uploads and deletions
type UploadHandler struct {
	storage  *media.LocalStorage
	jobQueue queue.JobQueue
	activity ActivityRecorder
}

// NewUploadHandler creates a new upload handler. The job queue may be nil when
// the server runs without a queue connection; thumbnails are then skipped.
func NewUploadHandler(storage *media.LocalStorage, jobQueue queue.JobQueue, activity ActivityRecorder) *UploadHandler {
	return &UploadHandler{storage: storage, jobQueue: jobQueue, activity: activity}
}

// RegisterRoutes registers upload routes on the given router.
// The router should already have the /uploads prefix.
func (h *UploadHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/cover-image", h.UploadCoverImage).Methods("POST")
	r.HandleFunc("/cover-image", h.DeleteCoverImage).Methods("DELETE")
}

// UploadCoverImageResponse carries the stored image's public URL
type UploadCoverImageResponse struct {
	URL string `json:"url"`
}

// DeleteCoverImageRequest names the stored image to remove
type DeleteCoverImageRequest struct {
	URL string `json:"url"`
}

// UploadCoverImage accepts a multipart image, stores the original and
// enqueues thumbnail generation
func (h *UploadHandler) UploadCoverImage(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Upload exceeds the request size limit")
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Multipart field 'file' is required")
		return
	}
	defer file.Close()

	// One extra byte so oversize payloads are detectable
	data, err := io.ReadAll(io.LimitReader(file, media.MaxUploadBytes+1))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Failed to read upload")
		return
	}

	blockID := uuid.New()
	var tickBlockID *uuid.UUID
	if raw := r.FormValue("block_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid block_id")
			return
		}
		blockID = parsed
		tickBlockID = &parsed
	}

	stored, err := h.storage.SaveCover(data, blockID)
	if err != nil {
		var unsupported *media.ErrUnsupportedType
		var tooLarge *media.ErrTooLarge
		switch {
		case errors.As(err, &unsupported):
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Unsupported image type; jpeg, png, webp and gif are accepted")
		case errors.As(err, &tooLarge):
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", "Image exceeds the 5 MB limit")
		default:
			respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store image")
		}
		return
	}

	ctx := r.Context()
	if tickBlockID != nil && h.activity != nil {
		h.activity.LogActivity(ctx, user.ID, *tickBlockID, models.ActivityImageUpload, 1)
	}

	if h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeThumbnail, user.ID, tickBlockID)
		job.Metadata[queue.MetadataImagePath] = stored.Path
		if err := h.jobQueue.Enqueue(ctx, job); err != nil {
			// The original is stored; thumbnails can be regenerated later
			respondJSON(w, http.StatusCreated, UploadCoverImageResponse{URL: stored.URL})
			return
		}
	}

	respondJSON(w, http.StatusCreated, UploadCoverImageResponse{URL: stored.URL})
}

// DeleteCoverImage removes a stored image and enqueues thumbnail cleanup
func (h *UploadHandler) DeleteCoverImage(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req DeleteCoverImageRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.URL == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "url is required")
		return
	}

	path, ok := h.storage.PathForURL(req.URL)
	if !ok {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "URL does not reference a stored image")
		return
	}

	if err := h.storage.DeleteByURL(req.URL); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete image")
		return
	}

	if h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeThumbnailCleanup, user.ID, nil)
		job.Metadata[queue.MetadataImagePath] = path
		_ = h.jobQueue.Enqueue(r.Context(), job)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Image deleted"})
}
