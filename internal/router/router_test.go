package router

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/handlers"
	"dialogue-backend/internal/middleware"
	"dialogue-backend/internal/models"
	"dialogue-backend/internal/websocket"
)

type fakeDialogues struct {
	updated bool
	gotID   int64
}

func (f *fakeDialogues) Create(_ context.Context, _ uuid.UUID, _ models.CreateDialogueRequest) (*models.Job, error) {
	return &models.Job{ID: uuid.New()}, nil
}

func (f *fakeDialogues) List(context.Context, uuid.UUID) ([]*models.Dialogue, error) {
	return []*models.Dialogue{}, nil
}

func (f *fakeDialogues) Get(_ context.Context, _ uuid.UUID, id int64) (*models.Dialogue, error) {
	f.gotID = id
	return &models.Dialogue{ID: id}, nil
}

func (f *fakeDialogues) UpdateLatest(context.Context, uuid.UUID) (*models.Dialogue, error) {
	f.updated = true
	return &models.Dialogue{ID: 1}, nil
}

type fakeCatalog struct{}

func (fakeCatalog) ListAIModels(context.Context) ([]*models.AIModel, error) {
	return []*models.AIModel{}, nil
}

func (fakeCatalog) ListModelVersions(context.Context, int64) ([]*models.ModelVersion, error) {
	return []*models.ModelVersion{}, nil
}

type fakeJobs struct{}

func (fakeJobs) GetJob(context.Context, uuid.UUID, uuid.UUID) (*models.Job, error) {
	return nil, &apperrors.NotFoundError{Message: "Job not found"}
}

func newTestRouter(t *testing.T, createPerMinute int) (http.Handler, *middleware.JWTAuth, *fakeDialogues) {
	t.Helper()
	auth := middleware.NewJWTAuth("router-secret")
	dialogues := &fakeDialogues{}
	hub := websocket.NewHub(nil, auth, slog.New(slog.NewTextHandler(io.Discard, nil)))

	h, stop := New(auth,
		handlers.NewDialogueHandler(dialogues),
		handlers.NewCatalogHandler(fakeCatalog{}),
		handlers.NewJobHandler(fakeJobs{}),
		hub,
		Config{FrontendURL: "http://localhost:3000", CreatePerMinute: createPerMinute},
	)
	t.Cleanup(stop)
	return h, auth, dialogues
}

func bearer(t *testing.T, auth *middleware.JWTAuth, perms ...string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(uuid.New(), "alice", perms, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, path, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	h, _, _ := newTestRouter(t, 10)
	rr := serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_DialoguePermissions(t *testing.T) {
	h, auth, _ := newTestRouter(t, 10)

	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/dialogue/", "").Code)
	assert.Equal(t, http.StatusForbidden,
		serve(h, http.MethodGet, "/api/dialogue/", bearer(t, auth, middleware.PermViewDialogue)).Code)
	assert.Equal(t, http.StatusOK,
		serve(h, http.MethodGet, "/api/dialogue/", bearer(t, auth, middleware.PermViewDialogue, middleware.PermAddDialogue)).Code)

	// Catalog listing only needs an authenticated caller.
	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/aimodel/", bearer(t, auth)).Code)
}

func TestRouter_UpdateDialogueIsNotAnID(t *testing.T) {
	h, auth, dialogues := newTestRouter(t, 10)
	authz := bearer(t, auth, middleware.PermViewDialogue, middleware.PermAddDialogue)

	rr := serve(h, http.MethodPut, "/api/dialogue/update-dialogue/", authz)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, dialogues.updated)

	rr = serve(h, http.MethodGet, "/api/dialogue/42/", authz)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(42), dialogues.gotID)
}

func TestRouter_CreateRateLimit(t *testing.T) {
	h, auth, _ := newTestRouter(t, 1)
	authz := bearer(t, auth, middleware.PermViewDialogue, middleware.PermAddDialogue)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/dialogue/",
			strings.NewReader(`{"content":"hi","model_id":1,"model_version_id":1}`))
		req.Header.Set("Authorization", authz)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
