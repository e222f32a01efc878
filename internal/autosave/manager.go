package autosave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"go.uber.org/zap"
)

// DefaultIdleTTL is how long an editing session may sit untouched before the
// janitor tears it down.
const DefaultIdleTTL = 30 * time.Minute

// BlockDraft is the snapshot the editor submits while a block is being edited
type BlockDraft struct {
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	CoverImageURL *string `json:"cover_image_url,omitempty"`
}

// ActivitySink receives activity ticks emitted by successful auto-saves
type ActivitySink interface {
	LogActivity(ctx context.Context, userID, blockID uuid.UUID, activityType models.ActivityType, minutes int)
}

// SessionStatus is the externally visible state of an editing session
type SessionStatus struct {
	Saving      bool       `json:"saving"`
	Pending     bool       `json:"pending"`
	Dirty       bool       `json:"dirty"`
	LastSavedAt *time.Time `json:"last_saved_at,omitempty"`
}

type sessionKey struct {
	userID  uuid.UUID
	blockID uuid.UUID
}

type session struct {
	controller   *Controller[BlockDraft]
	block        *models.Block
	lastActivity time.Time
}

// Manager owns the per-(user, block) auto-save sessions behind the draft
// endpoints. Sessions are created on the first draft submission, seeded with
// the block's persisted state as the baseline, and torn down explicitly or by
// idle eviction.
type Manager struct {
	blocks  database.BlockRepositoryInterface
	sink    ActivitySink
	logger  *zap.Logger
	delay   time.Duration
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

// NewManager creates a session manager. sink may be nil when activity
// logging is not provisioned.
func NewManager(blocks database.BlockRepositoryInterface, sink ActivitySink, logger *zap.Logger) *Manager {
	return &Manager{
		blocks:   blocks,
		sink:     sink,
		logger:   logger,
		delay:    DefaultDelay,
		idleTTL:  DefaultIdleTTL,
		sessions: make(map[sessionKey]*session),
	}
}

// SetDelay overrides the debounce delay for newly created sessions
func (m *Manager) SetDelay(d time.Duration) {
	if d > 0 {
		m.delay = d
	}
}

// SetIdleTTL overrides the idle eviction threshold
func (m *Manager) SetIdleTTL(d time.Duration) {
	if d > 0 {
		m.idleTTL = d
	}
}

// Update submits a draft snapshot for the given block, creating the session
// on first use. The block must already be loaded and ownership-checked by the
// caller.
func (m *Manager) Update(ctx context.Context, block *models.Block, draft BlockDraft) error {
	sess, err := m.getOrCreate(ctx, block)
	if err != nil {
		return err
	}
	sess.controller.Update(draft)
	return nil
}

// SaveNow forces an immediate persist of the session's current draft. The
// persist error is returned so the caller can surface it.
func (m *Manager) SaveNow(ctx context.Context, userID, blockID uuid.UUID) error {
	sess, ok := m.get(userID, blockID)
	if !ok {
		return fmt.Errorf("no editing session for block %s", blockID)
	}
	return sess.controller.SaveNow(ctx)
}

// Status reports the session state, or false when no session exists
func (m *Manager) Status(userID, blockID uuid.UUID) (SessionStatus, bool) {
	sess, ok := m.get(userID, blockID)
	if !ok {
		return SessionStatus{}, false
	}
	status := SessionStatus{
		Saving:  sess.controller.Saving(),
		Pending: sess.controller.Pending(),
		Dirty:   sess.controller.Dirty(),
	}
	if t, ok := sess.controller.LastSaved(); ok {
		status.LastSavedAt = &t
	}
	return status, true
}

// End performs a final save and tears the session down. The save error is
// returned, but the session is removed either way.
func (m *Manager) End(ctx context.Context, userID, blockID uuid.UUID) error {
	key := sessionKey{userID: userID, blockID: blockID}

	m.mu.Lock()
	sess, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	if !ok {
		return nil
	}

	err := sess.controller.SaveNow(ctx)
	sess.controller.Close()
	return err
}

// Start runs the idle-eviction loop until ctx is cancelled
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) get(userID, blockID uuid.UUID) (*session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionKey{userID: userID, blockID: blockID}]
	if ok {
		sess.lastActivity = time.Now()
	}
	return sess, ok
}

func (m *Manager) getOrCreate(ctx context.Context, block *models.Block) (*session, error) {
	key := sessionKey{userID: block.UserID, blockID: block.ID}

	m.mu.Lock()
	if sess, ok := m.sessions[key]; ok {
		sess.lastActivity = time.Now()
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	// Seed the baseline from the persisted state so the first submitted
	// snapshot never triggers a save unless it actually changed something.
	current, err := m.blocks.GetByID(ctx, block.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load block for editing session: %w", err)
	}

	initial := BlockDraft{
		Title:         current.Title,
		Content:       current.Content,
		CoverImageURL: current.CoverImageURL,
	}

	sess := &session{block: current, lastActivity: time.Now()}
	sess.controller = NewController(initial, m.persistFunc(sess),
		WithDelay[BlockDraft](m.delay),
		WithLogger[BlockDraft](m.logger),
		WithOnSaved[BlockDraft](func(BlockDraft) { m.recordEditTick(current.UserID, current.ID) }),
	)

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another request may have created the session while we loaded the block
	if existing, ok := m.sessions[key]; ok {
		sess.controller.Close()
		existing.lastActivity = time.Now()
		return existing, nil
	}
	m.sessions[key] = sess
	return sess, nil
}

func (m *Manager) persistFunc(sess *session) PersistFunc[BlockDraft] {
	return func(ctx context.Context, draft BlockDraft) error {
		sess.block.Title = draft.Title
		sess.block.Content = draft.Content
		sess.block.CoverImageURL = draft.CoverImageURL
		return m.blocks.Update(ctx, sess.block)
	}
}

// recordEditTick logs a one-minute block_edit activity for a successful
// auto-save, best effort.
func (m *Manager) recordEditTick(userID, blockID uuid.UUID) {
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.sink.LogActivity(ctx, userID, blockID, models.ActivityBlockEdit, 1)
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleTTL)

	m.mu.Lock()
	var evicted []*session
	for key, sess := range m.sessions {
		if sess.lastActivity.Before(cutoff) {
			evicted = append(evicted, sess)
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()

	for _, sess := range evicted {
		sess.controller.Close()
		m.logger.Info("autosave_session_evicted",
			zap.String("block_id", sess.block.ID.String()),
		)
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for key, sess := range m.sessions {
		sessions = append(sessions, sess)
		delete(m.sessions, key)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		sess.controller.Close()
	}
}
