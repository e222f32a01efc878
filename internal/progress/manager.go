package progress

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"go.uber.org/zap"
)

type trackerKey struct {
	userID  uuid.UUID
	blockID uuid.UUID
}

// Manager hands out per-(user, block) trackers and fans one-shot activity
// records out to the store. It doubles as the activity sink the auto-save
// layer reports edit ticks to.
type Manager struct {
	store  LogStore
	logger *zap.Logger

	mu       sync.Mutex
	trackers map[trackerKey]*Tracker
}

// NewManager creates a tracker manager backed by the given store
func NewManager(store LogStore, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		logger:   logger,
		trackers: make(map[trackerKey]*Tracker),
	}
}

// Tracker returns the tracker for the pair, creating it on first use
func (m *Manager) Tracker(userID, blockID uuid.UUID) *Tracker {
	key := trackerKey{userID: userID, blockID: blockID}

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trackers[key]
	if !ok {
		t = NewTracker(m.store, m.logger, userID, blockID)
		m.trackers[key] = t
	}
	return t
}

// StartActivity opens a timed activity on the pair's tracker
func (m *Manager) StartActivity(userID, blockID uuid.UUID, activityType models.ActivityType) {
	m.Tracker(userID, blockID).StartActivity(activityType)
}

// EndActivity closes the pair's open activity, if any, and evicts idle
// trackers.
func (m *Manager) EndActivity(ctx context.Context, userID, blockID uuid.UUID) {
	key := trackerKey{userID: userID, blockID: blockID}

	m.mu.Lock()
	t, ok := m.trackers[key]
	m.mu.Unlock()
	if !ok {
		return
	}

	t.EndActivity(ctx)

	m.mu.Lock()
	if !t.Active() {
		delete(m.trackers, key)
	}
	m.mu.Unlock()
}

// LogActivity records a one-shot activity with an explicit duration
func (m *Manager) LogActivity(ctx context.Context, userID, blockID uuid.UUID, activityType models.ActivityType, minutes int) {
	m.Tracker(userID, blockID).LogActivity(ctx, activityType, minutes)
}
