package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/autosave"
	"github.com/wisdomhub/wisdom-hub/internal/models"
	"go.uber.org/zap"
)

type draftFixture struct {
	router    *mux.Router
	blockRepo *mockBlockRepo
	manager   *autosave.Manager
	user      *models.User
	block     *models.Block
}

func newDraftFixture(delay time.Duration) *draftFixture {
	f := &draftFixture{
		blockRepo: newMockBlockRepo(),
		user:      testUser(),
	}
	f.block = &models.Block{ID: uuid.New(), BoxID: uuid.New(), UserID: f.user.ID, Title: "draft me", Content: "v1"}
	f.blockRepo.blocks[f.block.ID] = f.block

	f.manager = autosave.NewManager(f.blockRepo, nil, zap.NewNop())
	f.manager.SetDelay(delay)

	f.router = mux.NewRouter()
	NewDraftHandler(f.manager, f.blockRepo).RegisterRoutes(f.router.PathPrefix("/api/v1/blocks").Subrouter())
	return f
}

func (f *draftFixture) submit(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "PUT", "/api/v1/blocks/"+f.block.ID.String()+"/draft", body))
	return rec
}

func waitForContent(t *testing.T, repo *mockBlockRepo, id uuid.UUID, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		block, err := repo.GetByID(context.Background(), id)
		if err == nil && block.Content == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("block content never became %q", want)
}

func TestSubmitDraft_DebouncedPersist(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(20 * time.Millisecond)

	rec := f.submit(t, map[string]any{"title": "draft me", "content": "v2"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	waitForContent(t, f.blockRepo, f.block.ID, "v2")
}

func TestSubmitDraft_UnchangedSnapshotNeverSaves(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(20 * time.Millisecond)

	// Identical to the persisted state: the session absorbs it silently
	rec := f.submit(t, map[string]any{"title": "draft me", "content": "v1"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	time.Sleep(100 * time.Millisecond)

	statusRec := httptest.NewRecorder()
	f.router.ServeHTTP(statusRec, authedRequest(t, f.user, "GET", "/api/v1/blocks/"+f.block.ID.String()+"/draft", nil))
	if statusRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", statusRec.Code)
	}
	var status DraftStatusResponse
	decodeData(t, statusRec, &status)
	if status.LastSavedAt != nil {
		t.Errorf("expected no save for unchanged snapshot, got last_saved_at=%v", status.LastSavedAt)
	}
}

func TestSubmitDraft_Validation(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(time.Minute)

	rec := f.submit(t, map[string]any{"title": "   ", "content": "v2"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty title, got %d", rec.Code)
	}
}

func TestSubmitDraft_ForeignBlock(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(time.Minute)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, testUser(), "PUT", "/api/v1/blocks/"+f.block.ID.String()+"/draft", map[string]any{
		"title": "stolen", "content": "x",
	}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSaveNow_FlushesImmediately(t *testing.T) {
	t.Parallel()

	// Long delay: only SaveNow can persist within the test window
	f := newDraftFixture(time.Hour)

	rec := f.submit(t, map[string]any{"title": "draft me", "content": "v2"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	saveRec := httptest.NewRecorder()
	f.router.ServeHTTP(saveRec, authedRequest(t, f.user, "POST", "/api/v1/blocks/"+f.block.ID.String()+"/draft/save", nil))
	if saveRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", saveRec.Code, saveRec.Body.String())
	}

	block, err := f.blockRepo.GetByID(context.Background(), f.block.ID)
	if err != nil {
		t.Fatalf("failed to load block: %v", err)
	}
	if block.Content != "v2" {
		t.Errorf("expected content persisted by save-now, got %q", block.Content)
	}
}

func TestSaveNow_WithoutSession(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(time.Minute)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/blocks/"+f.block.ID.String()+"/draft/save", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a session, got %d", rec.Code)
	}
}

func TestDraftStatus_WithoutSession(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(time.Minute)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "GET", "/api/v1/blocks/"+f.block.ID.String()+"/draft", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a session, got %d", rec.Code)
	}
}

func TestEndSession_FinalSaveAndTeardown(t *testing.T) {
	t.Parallel()

	f := newDraftFixture(time.Hour)

	rec := f.submit(t, map[string]any{"title": "draft me", "content": "final"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	endRec := httptest.NewRecorder()
	f.router.ServeHTTP(endRec, authedRequest(t, f.user, "DELETE", "/api/v1/blocks/"+f.block.ID.String()+"/draft", nil))
	if endRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", endRec.Code, endRec.Body.String())
	}

	block, err := f.blockRepo.GetByID(context.Background(), f.block.ID)
	if err != nil {
		t.Fatalf("failed to load block: %v", err)
	}
	if block.Content != "final" {
		t.Errorf("expected final save, got content %q", block.Content)
	}

	statusRec := httptest.NewRecorder()
	f.router.ServeHTTP(statusRec, authedRequest(t, f.user, "GET", "/api/v1/blocks/"+f.block.ID.String()+"/draft", nil))
	if statusRec.Code != http.StatusNotFound {
		t.Errorf("expected session gone after end, got %d", statusRec.Code)
	}
}
