package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/wisdomhub/wisdom-hub/internal/models"
)

func newWorkspaceRouter(repo *mockWorkspaceRepo) *mux.Router {
	r := mux.NewRouter()
	NewWorkspaceHandler(repo).RegisterRoutes(r.PathPrefix("/api/v1/workspaces").Subrouter())
	return r
}

func TestCreateWorkspace(t *testing.T) {
	t.Parallel()

	repo := newMockWorkspaceRepo()
	router := newWorkspaceRouter(repo)
	user := testUser()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "POST", "/api/v1/workspaces", map[string]string{
		"name":        "  Study Notes  ",
		"description": "semester two",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.Workspace
	decodeData(t, rec, &got)
	if got.Name != "Study Notes" {
		t.Errorf("expected sanitized name %q, got %q", "Study Notes", got.Name)
	}
	if got.UserID != user.ID {
		t.Errorf("expected workspace owned by %s, got %s", user.ID, got.UserID)
	}
	if _, err := repo.GetByID(context.Background(), got.ID); err != nil {
		t.Errorf("expected workspace persisted, got %v", err)
	}
}

func TestCreateWorkspace_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing name", body: map[string]string{"description": "x"}},
		{name: "whitespace name", body: map[string]string{"name": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newWorkspaceRouter(newMockWorkspaceRepo())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(t, testUser(), "POST", "/api/v1/workspaces", tt.body))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if env := decodeEnvelope(t, rec); env.Success {
				t.Error("expected error envelope")
			}
		})
	}
}

func TestListWorkspaces_ScopedToUser(t *testing.T) {
	t.Parallel()

	repo := newMockWorkspaceRepo()
	router := newWorkspaceRouter(repo)
	user := testUser()
	other := testUser()

	for _, owner := range []uuid.UUID{user.ID, other.ID} {
		ws := &models.Workspace{ID: uuid.New(), UserID: owner, Name: "w"}
		repo.workspaces[ws.ID] = ws
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "GET", "/api/v1/workspaces", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []*models.Workspace
	decodeData(t, rec, &got)
	if len(got) != 1 || got[0].UserID != user.ID {
		t.Errorf("expected only the caller's workspace, got %+v", got)
	}
}

func TestGetWorkspace_Ownership(t *testing.T) {
	t.Parallel()

	repo := newMockWorkspaceRepo()
	router := newWorkspaceRouter(repo)
	owner := testUser()

	ws := &models.Workspace{ID: uuid.New(), UserID: owner.ID, Name: "mine"}
	repo.workspaces[ws.ID] = ws

	tests := []struct {
		name       string
		user       *models.User
		id         string
		wantStatus int
	}{
		{name: "owner sees workspace", user: owner, id: ws.ID.String(), wantStatus: http.StatusOK},
		{name: "stranger gets 403", user: testUser(), id: ws.ID.String(), wantStatus: http.StatusForbidden},
		{name: "unknown id gets 404", user: owner, id: uuid.New().String(), wantStatus: http.StatusNotFound},
		{name: "malformed id gets 400", user: owner, id: "not-a-uuid", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(t, tt.user, "GET", "/api/v1/workspaces/"+tt.id, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateWorkspace(t *testing.T) {
	t.Parallel()

	repo := newMockWorkspaceRepo()
	router := newWorkspaceRouter(repo)
	user := testUser()

	ws := &models.Workspace{ID: uuid.New(), UserID: user.ID, Name: "before", Description: "old"}
	repo.workspaces[ws.ID] = ws

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "PATCH", "/api/v1/workspaces/"+ws.ID.String(), map[string]string{
		"name": "after",
	}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Workspace
	decodeData(t, rec, &got)
	if got.Name != "after" {
		t.Errorf("expected updated name, got %q", got.Name)
	}
	if got.Description != "old" {
		t.Errorf("expected untouched description, got %q", got.Description)
	}
}

func TestDeleteWorkspace(t *testing.T) {
	t.Parallel()

	repo := newMockWorkspaceRepo()
	router := newWorkspaceRouter(repo)
	user := testUser()

	ws := &models.Workspace{ID: uuid.New(), UserID: user.ID, Name: "w"}
	repo.workspaces[ws.ID] = ws

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, user, "DELETE", "/api/v1/workspaces/"+ws.ID.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, exists := repo.workspaces[ws.ID]; exists {
		t.Error("expected workspace removed")
	}
}

func TestWorkspaces_Unauthenticated(t *testing.T) {
	t.Parallel()

	router := newWorkspaceRouter(newMockWorkspaceRepo())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, nil, "GET", "/api/v1/workspaces", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
