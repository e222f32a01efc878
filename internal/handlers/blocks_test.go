package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

type blockFixture struct {
	router    *mux.Router
	blockRepo *mockBlockRepo
	boxRepo   *mockBoxRepo
	activity  *recordingActivity
	user      *models.User
	box       *models.Box
}

func newBlockFixture() *blockFixture {
	f := &blockFixture{
		blockRepo: newMockBlockRepo(),
		boxRepo:   newMockBoxRepo(),
		activity:  &recordingActivity{},
		user:      testUser(),
	}
	f.box = &models.Box{ID: uuid.New(), WorkspaceID: uuid.New(), UserID: f.user.ID, Name: "inbox"}
	f.boxRepo.boxes[f.box.ID] = f.box

	f.router = mux.NewRouter()
	NewBlockHandler(f.blockRepo, f.boxRepo, f.activity).RegisterRoutes(f.router.PathPrefix("/api/v1/blocks").Subrouter())
	return f
}

func (f *blockFixture) seedBlock(title string) *models.Block {
	block := &models.Block{ID: uuid.New(), BoxID: f.box.ID, UserID: f.user.ID, Title: title, Content: "{}"}
	f.blockRepo.blocks[block.ID] = block
	return block
}

func TestCreateBlock_RecordsActivityTick(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "POST", "/api/v1/blocks", map[string]any{
		"box_id":  f.box.ID,
		"title":   "Thermodynamics",
		"content": `{"type":"doc"}`,
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Block
	decodeData(t, rec, &got)
	if got.Title != "Thermodynamics" {
		t.Errorf("expected title preserved, got %q", got.Title)
	}

	ticks := f.activity.recorded()
	if len(ticks) != 1 {
		t.Fatalf("expected one activity tick, got %d", len(ticks))
	}
	if ticks[0].ActivityType != models.ActivityBlockCreate || ticks[0].BlockID != got.ID {
		t.Errorf("expected block_create tick for %s, got %+v", got.ID, ticks[0])
	}
}

func TestCreateBlock_RejectsForeignBox(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	stranger := testUser()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, stranger, "POST", "/api/v1/blocks", map[string]any{
		"box_id": f.box.ID,
		"title":  "intruder",
	}))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.activity.recorded()) != 0 {
		t.Error("expected no activity tick on rejection")
	}
}

func TestListBlocks_RequiresBoxID(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "GET", "/api/v1/blocks", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListBlocks(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	f.seedBlock("one")
	f.seedBlock("two")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "GET", "/api/v1/blocks?box_id="+f.box.ID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got []*models.Block
	decodeData(t, rec, &got)
	if len(got) != 2 {
		t.Errorf("expected 2 blocks, got %d", len(got))
	}
}

func TestUpdateBlock(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	block := f.seedBlock("before")
	cover := "/media/covers/x.png"

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "PATCH", "/api/v1/blocks/"+block.ID.String(), map[string]any{
		"title":           "after",
		"cover_image_url": cover,
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Block
	decodeData(t, rec, &got)
	if got.Title != "after" {
		t.Errorf("expected updated title, got %q", got.Title)
	}
	if got.CoverImageURL == nil || *got.CoverImageURL != cover {
		t.Errorf("expected cover set, got %v", got.CoverImageURL)
	}
	if got.Content != "{}" {
		t.Errorf("expected untouched content, got %q", got.Content)
	}
}

func TestUpdateBlock_ClearsCoverWithEmptyString(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	block := f.seedBlock("covered")
	cover := "/media/covers/x.png"
	block.CoverImageURL = &cover

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "PATCH", "/api/v1/blocks/"+block.ID.String(), map[string]any{
		"cover_image_url": "",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Block
	decodeData(t, rec, &got)
	if got.CoverImageURL != nil {
		t.Errorf("expected cover cleared, got %v", *got.CoverImageURL)
	}
}

func TestDeleteBlock_RecordsActivityTick(t *testing.T) {
	t.Parallel()

	f := newBlockFixture()
	block := f.seedBlock("doomed")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authedRequest(t, f.user, "DELETE", "/api/v1/blocks/"+block.ID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, exists := f.blockRepo.blocks[block.ID]; exists {
		t.Error("expected block removed")
	}

	ticks := f.activity.recorded()
	if len(ticks) != 1 || ticks[0].ActivityType != models.ActivityBlockDelete {
		t.Errorf("expected block_delete tick, got %+v", ticks)
	}
}

func TestBoxHandler_CRUD(t *testing.T) {
	t.Parallel()

	boxRepo := newMockBoxRepo()
	wsRepo := newMockWorkspaceRepo()
	user := testUser()

	ws := &models.Workspace{ID: uuid.New(), UserID: user.ID, Name: "w"}
	wsRepo.workspaces[ws.ID] = ws

	router := mux.NewRouter()
	NewBoxHandler(boxRepo, wsRepo).RegisterRoutes(router.PathPrefix("/api/v1/boxes").Subrouter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "POST", "/api/v1/boxes", map[string]any{
		"workspace_id": ws.ID,
		"name":         "Physics",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var box models.Box
	decodeData(t, rec, &box)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "GET", "/api/v1/boxes?workspace_id="+ws.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 listing boxes, got %d", rec.Code)
	}
	var boxes []*models.Box
	decodeData(t, rec, &boxes)
	if len(boxes) != 1 || boxes[0].ID != box.ID {
		t.Errorf("expected the created box listed, got %+v", boxes)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "PATCH", "/api/v1/boxes/"+box.ID.String(), map[string]any{"name": "Chemistry"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 updating box, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "DELETE", "/api/v1/boxes/"+box.ID.String(), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting box, got %d", rec.Code)
	}
	if _, exists := boxRepo.boxes[box.ID]; exists {
		t.Error("expected box removed")
	}
}

func TestBoxHandler_ForeignWorkspace(t *testing.T) {
	t.Parallel()

	boxRepo := newMockBoxRepo()
	wsRepo := newMockWorkspaceRepo()
	owner := testUser()

	ws := &models.Workspace{ID: uuid.New(), UserID: owner.ID, Name: "w"}
	wsRepo.workspaces[ws.ID] = ws

	router := mux.NewRouter()
	NewBoxHandler(boxRepo, wsRepo).RegisterRoutes(router.PathPrefix("/api/v1/boxes").Subrouter())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, testUser(), "POST", "/api/v1/boxes", map[string]any{
		"workspace_id": ws.ID,
		"name":         "intruder",
	}))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}
