package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/wisdomhub/wisdom-hub/internal/database"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"github.com/wisdomhub/wisdom-hub/internal/request"
)

// mockWorkspaceRepo is an in-memory WorkspaceRepositoryInterface
type mockWorkspaceRepo struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*models.Workspace
	err        error
}

var _ database.WorkspaceRepositoryInterface = (*mockWorkspaceRepo)(nil)

func newMockWorkspaceRepo() *mockWorkspaceRepo {
	return &mockWorkspaceRepo{workspaces: make(map[uuid.UUID]*models.Workspace)}
}

func (m *mockWorkspaceRepo) Create(ctx context.Context, ws *models.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	ws.CreatedAt = time.Now()
	ws.UpdatedAt = ws.CreatedAt
	m.workspaces[ws.ID] = ws
	return nil
}

func (m *mockWorkspaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ws, ok := m.workspaces[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return ws, nil
}

func (m *mockWorkspaceRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Workspace{}
	for _, ws := range m.workspaces {
		if ws.UserID == userID {
			out = append(out, ws)
		}
	}
	return out, nil
}

func (m *mockWorkspaceRepo) Update(ctx context.Context, ws *models.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	ws.UpdatedAt = time.Now()
	m.workspaces[ws.ID] = ws
	return nil
}

func (m *mockWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.workspaces, id)
	return nil
}

// mockBoxRepo is an in-memory BoxRepositoryInterface
type mockBoxRepo struct {
	mu    sync.Mutex
	boxes map[uuid.UUID]*models.Box
	err   error
}

var _ database.BoxRepositoryInterface = (*mockBoxRepo)(nil)

func newMockBoxRepo() *mockBoxRepo {
	return &mockBoxRepo{boxes: make(map[uuid.UUID]*models.Box)}
}

func (m *mockBoxRepo) Create(ctx context.Context, box *models.Box) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.boxes[box.ID] = box
	return nil
}

func (m *mockBoxRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	box, ok := m.boxes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return box, nil
}

func (m *mockBoxRepo) GetByWorkspaceID(ctx context.Context, workspaceID uuid.UUID) ([]*models.Box, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Box{}
	for _, box := range m.boxes {
		if box.WorkspaceID == workspaceID {
			out = append(out, box)
		}
	}
	return out, nil
}

func (m *mockBoxRepo) Update(ctx context.Context, box *models.Box) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.boxes[box.ID] = box
	return nil
}

func (m *mockBoxRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.boxes, id)
	return nil
}

// mockBlockRepo is an in-memory BlockRepositoryInterface
type mockBlockRepo struct {
	mu     sync.Mutex
	blocks map[uuid.UUID]*models.Block
	err    error
}

var _ database.BlockRepositoryInterface = (*mockBlockRepo)(nil)

func newMockBlockRepo() *mockBlockRepo {
	return &mockBlockRepo{blocks: make(map[uuid.UUID]*models.Block)}
}

func (m *mockBlockRepo) Create(ctx context.Context, block *models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.blocks[block.ID] = block
	return nil
}

func (m *mockBlockRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	block, ok := m.blocks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *block
	return &copied, nil
}

func (m *mockBlockRepo) GetByBoxID(ctx context.Context, boxID uuid.UUID) ([]*models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.Block{}
	for _, block := range m.blocks {
		if block.BoxID == boxID {
			out = append(out, block)
		}
	}
	return out, nil
}

func (m *mockBlockRepo) Update(ctx context.Context, block *models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	copied := *block
	m.blocks[block.ID] = &copied
	return nil
}

func (m *mockBlockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.blocks, id)
	return nil
}

// mockLogRepo is an in-memory ActivityLogRepositoryInterface
type mockLogRepo struct {
	mu   sync.Mutex
	logs []*models.ActivityLog
	err  error
}

var _ database.ActivityLogRepositoryInterface = (*mockLogRepo)(nil)

func (m *mockLogRepo) Record(ctx context.Context, log *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockLogRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.ActivityLog{}
	for _, l := range m.logs {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockLogRepo) GetSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []*models.ActivityLog{}
	for _, l := range m.logs {
		if l.UserID == userID && !l.CreatedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

// activityTick captures one recorded tick
type activityTick struct {
	UserID       uuid.UUID
	BlockID      uuid.UUID
	ActivityType models.ActivityType
	Minutes      int
}

// recordingActivity captures LogActivity calls for assertions
type recordingActivity struct {
	mu    sync.Mutex
	ticks []activityTick
}

func (r *recordingActivity) LogActivity(ctx context.Context, userID, blockID uuid.UUID, activityType models.ActivityType, minutes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, activityTick{UserID: userID, BlockID: blockID, ActivityType: activityType, Minutes: minutes})
}

func (r *recordingActivity) recorded() []activityTick {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]activityTick, len(r.ticks))
	copy(out, r.ticks)
	return out
}

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "reader@example.com"}
}

// authedRequest builds a request carrying the user in context
func authedRequest(t *testing.T, user *models.User, method, target string, body any) *http.Request {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	return req
}

// envelope is the generic response envelope shape
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

// decodeEnvelope parses the recorded response envelope
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response envelope: %v (body: %s)", err, rec.Body.String())
	}
	return env
}

// decodeData parses the envelope's data field into dst
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got error %q: %s", env.Error, env.Message)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data: %v (data: %s)", err, string(env.Data))
	}
}
