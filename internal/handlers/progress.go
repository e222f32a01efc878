package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/progress"
	"github.com/wisdomhub/wisdom-hub/internal/request"
	"github.com/wisdomhub/wisdom-hub/internal/validation"
)

const (
	// DefaultStatsWindowDays is the default reporting window
	DefaultStatsWindowDays = 30
	// MaxStatsWindowDays caps the reporting window
	MaxStatsWindowDays = 365
	// MaxManualLogMinutes caps a manually reported duration
	MaxManualLogMinutes = 24 * 60
)

// ProgressHandler exposes activity tracking and study-time statistics
type ProgressHandler struct {
	progress *progress.Manager
	logRepo  database.ActivityLogRepositoryInterface
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(manager *progress.Manager, logRepo database.ActivityLogRepositoryInterface) *ProgressHandler {
	return &ProgressHandler{progress: manager, logRepo: logRepo}
}

// RegisterRoutes registers progress routes on the given router.
// The router should already have the /progress prefix.
func (h *ProgressHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/activities/start", h.StartActivity).Methods("POST")
	r.HandleFunc("/activities/end", h.EndActivity).Methods("POST")
	r.HandleFunc("/logs", h.LogActivity).Methods("POST")
	r.HandleFunc("/daily", h.DailyStats).Methods("GET")
	r.HandleFunc("/summary", h.Summary).Methods("GET")
}

// StartActivityRequest opens a timed activity on a block
type StartActivityRequest struct {
	BlockID      uuid.UUID `json:"block_id" validate:"required"`
	ActivityType string    `json:"activity_type" validate:"required,activity_type"`
}

// EndActivityRequest closes the open activity on a block
type EndActivityRequest struct {
	BlockID uuid.UUID `json:"block_id" validate:"required"`
}

// LogActivityRequest records a fixed-duration activity
type LogActivityRequest struct {
	BlockID         uuid.UUID `json:"block_id" validate:"required"`
	ActivityType    string    `json:"activity_type" validate:"required,activity_type"`
	DurationMinutes int       `json:"duration_minutes"`
}

// StartActivity starts (or restarts) timing an activity on a block
func (h *ProgressHandler) StartActivity(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req StartActivityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.BlockID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "block_id is required")
		return
	}
	if err := validation.ValidateActivityType(req.ActivityType); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	h.progress.StartActivity(user.ID, req.BlockID, models.ActivityType(req.ActivityType))

	respondJSON(w, http.StatusOK, map[string]string{"message": "Activity started"})
}

// EndActivity ends the open activity on a block and records its duration.
// Ending with no open activity is a no-op.
func (h *ProgressHandler) EndActivity(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req EndActivityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.BlockID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "block_id is required")
		return
	}

	h.progress.EndActivity(r.Context(), user.ID, req.BlockID)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Activity ended"})
}

// LogActivity records a fixed-duration activity tick
func (h *ProgressHandler) LogActivity(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req LogActivityRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.BlockID == uuid.Nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "block_id is required")
		return
	}
	if err := validation.ValidateActivityType(req.ActivityType); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if req.DurationMinutes < 0 || req.DurationMinutes > MaxManualLogMinutes {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "duration_minutes out of range")
		return
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = 1
	}

	h.progress.LogActivity(r.Context(), user.ID, req.BlockID, models.ActivityType(req.ActivityType), req.DurationMinutes)

	respondJSON(w, http.StatusOK, map[string]string{"message": "Activity recorded"})
}

// DailyStats returns per-day study statistics, newest day first
func (h *ProgressHandler) DailyStats(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	windowDays := parseWindowDays(r)
	now := time.Now()
	since := now.AddDate(0, 0, -windowDays)

	logs, err := h.logRepo.GetSince(r.Context(), user.ID, since)
	if err != nil {
		if database.IsUndefinedTable(err) {
			respondJSON(w, http.StatusOK, []progress.DailyStat{})
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve activity logs")
		return
	}

	daily := progress.DailyStats(logs, windowDays, now, time.Local)

	// Aggregation yields oldest-first; clients want the newest day on top
	for i, j := 0, len(daily)-1; i < j; i, j = i+1, j-1 {
		daily[i], daily[j] = daily[j], daily[i]
	}

	respondJSON(w, http.StatusOK, daily)
}

// Summary returns the rollup over the reporting window
func (h *ProgressHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	windowDays := parseWindowDays(r)
	now := time.Now()
	since := now.AddDate(0, 0, -windowDays)

	logs, err := h.logRepo.GetSince(r.Context(), user.ID, since)
	if err != nil {
		if database.IsUndefinedTable(err) {
			respondJSON(w, http.StatusOK, progress.SummaryStats(nil, windowDays, now, time.Local))
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve activity logs")
		return
	}

	respondJSON(w, http.StatusOK, progress.SummaryStats(logs, windowDays, now, time.Local))
}

func parseWindowDays(r *http.Request) int {
	windowDays := DefaultStatsWindowDays
	if d := r.URL.Query().Get("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 {
			if parsed > MaxStatsWindowDays {
				windowDays = MaxStatsWindowDays
			} else {
				windowDays = parsed
			}
		}
	}
	return windowDays
}
