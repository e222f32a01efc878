package progress

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"go.uber.org/zap"
)

// LogStore is the slice of the activity log repository the tracker needs
type LogStore interface {
	Record(ctx context.Context, log *models.ActivityLog) error
}

// Tracker measures how long a user actively engages with one block. Starting
// a new activity while another is open discards the open one; ending without
// an open activity is a no-op.
type Tracker struct {
	store  LogStore
	logger *zap.Logger
	userID uuid.UUID
	blockID uuid.UUID
	now    func() time.Time

	mu           sync.Mutex
	activityType models.ActivityType
	startedAt    time.Time
	active       bool
}

// NewTracker creates a tracker for one (user, block) pair
func NewTracker(store LogStore, logger *zap.Logger, userID, blockID uuid.UUID) *Tracker {
	return &Tracker{
		store:   store,
		logger:  logger,
		userID:  userID,
		blockID: blockID,
		now:     time.Now,
	}
}

// StartActivity opens a timed activity of the given type, replacing any
// activity already open.
func (t *Tracker) StartActivity(activityType models.ActivityType) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activityType = activityType
	t.startedAt = t.now()
	t.active = true
}

// EndActivity closes the open activity and records its duration, rounded to
// whole minutes with a one-minute floor. Storage failures are logged and
// swallowed so a broken progress table never breaks the editing flow.
func (t *Tracker) EndActivity(ctx context.Context) {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	activityType := t.activityType
	elapsed := t.now().Sub(t.startedAt)
	t.active = false
	t.mu.Unlock()

	minutes := int(elapsed.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	t.record(ctx, activityType, minutes)
}

// LogActivity records an activity with an explicit duration, bypassing the
// start/end timer. Non-positive durations are recorded as zero minutes.
func (t *Tracker) LogActivity(ctx context.Context, activityType models.ActivityType, minutes int) {
	if minutes < 0 {
		minutes = 0
	}
	t.record(ctx, activityType, minutes)
}

// Active reports whether a timed activity is currently open
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Tracker) record(ctx context.Context, activityType models.ActivityType, minutes int) {
	log := &models.ActivityLog{
		UserID:          t.userID,
		BlockID:         t.blockID,
		ActivityType:    activityType,
		DurationMinutes: minutes,
		CreatedAt:       t.now(),
	}

	if err := t.store.Record(ctx, log); err != nil {
		if database.IsUndefinedTable(err) {
			t.logger.Warn("activity_log_table_missing",
				zap.String("activity_type", string(activityType)),
			)
			return
		}
		t.logger.Error("activity_log_record_failed",
			zap.String("activity_type", string(activityType)),
			zap.String("block_id", t.blockID.String()),
			zap.Error(err),
		)
	}
}
