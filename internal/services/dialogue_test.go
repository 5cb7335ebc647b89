package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/cache"
	"dialogue-backend/internal/models"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, job *models.Job) error {
	args := m.Called(ctx, job)
	if args.Error(0) == nil {
		job.ID = uuid.New()
	}
	return args.Error(0)
}

type stubCatalog struct {
	models   map[int64]*models.AIModel
	versions map[int64]*models.ModelVersion
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		models: map[int64]*models.AIModel{
			1: {ID: 1, Name: "chatgpt"},
			2: {ID: 2, Name: "gemini"},
		},
		versions: map[int64]*models.ModelVersion{
			1: {ID: 1, AIModelID: 1, Name: "gpt-4o"},
			2: {ID: 2, AIModelID: 2, Name: "gemini-2.0-flash"},
		},
	}
}

func (s *stubCatalog) GetAIModel(_ context.Context, id int64) (*models.AIModel, error) {
	if m, ok := s.models[id]; ok {
		return m, nil
	}
	return nil, &apperrors.NotFoundError{Message: "AI model not found"}
}

func (s *stubCatalog) GetModelVersionForModel(_ context.Context, modelID, versionID int64) (*models.ModelVersion, error) {
	if v, ok := s.versions[versionID]; ok && v.AIModelID == modelID {
		return v, nil
	}
	return nil, &apperrors.NotFoundError{Message: "Model version not found"}
}

func (s *stubCatalog) GetModelVersionByName(_ context.Context, name string) (*models.ModelVersion, error) {
	for _, v := range s.versions {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, &apperrors.NotFoundError{Message: "Model version not found"}
}

type stubDialogues struct {
	rows      []*models.Dialogue
	listCalls int
}

func (s *stubDialogues) GetByID(_ context.Context, id int64) (*models.Dialogue, error) {
	for _, d := range s.rows {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, &apperrors.NotFoundError{Message: "Dialogue not found"}
}

func (s *stubDialogues) ListCompleted(ctx context.Context, userID uuid.UUID) ([]*models.Dialogue, error) {
	return s.ListCompletedAfter(ctx, userID, 0)
}

func (s *stubDialogues) ListCompletedAfter(_ context.Context, userID uuid.UUID, afterID int64) ([]*models.Dialogue, error) {
	s.listCalls++
	out := []*models.Dialogue{}
	for _, d := range s.rows {
		if d.UserID == userID && d.Status == models.StatusCompleted && d.ID > afterID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *stubDialogues) LatestForUser(_ context.Context, userID uuid.UUID) (*models.Dialogue, error) {
	var latest *models.Dialogue
	for _, d := range s.rows {
		if d.UserID == userID && (latest == nil || d.CreatedTimestamp.After(latest.CreatedTimestamp)) {
			latest = d
		}
	}
	if latest == nil {
		return nil, &apperrors.NotFoundError{Message: "No dialogues found for this user."}
	}
	return latest, nil
}

type stubJobs map[uuid.UUID]*models.Job

func (s stubJobs) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	if j, ok := s[id]; ok {
		return j, nil
	}
	return nil, &apperrors.NotFoundError{Message: "Job not found"}
}

func int64Ptr(v int64) *int64 { return &v }

func newDialogueService(t *testing.T, dialogues *stubDialogues, queue JobQueue) (*DialogueService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewDialogueService(dialogues, newStubCatalog(), stubJobs{}, queue, cache.NewRedisStore(rdb),
		DialogueServiceConfig{ListCacheTTL: 3 * time.Minute, LatestDialogueTTL: 24 * time.Hour, JobMaxRetries: 3},
		testLogger)
	return svc, mr
}

func TestDialogueService_Create_EnqueuesPayload(t *testing.T) {
	queue := new(MockQueue)
	queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(j *models.Job) bool {
		p, err := j.Payload()
		return err == nil && j.Type == models.JobTypeDialogueCreate &&
			p.Content == "Hi" && p.ModelID == 1 && p.ModelVersionID == 1 && j.MaxRetries == 3
	})).Return(nil)

	svc, _ := newDialogueService(t, &stubDialogues{}, queue)
	job, err := svc.Create(context.Background(), uuid.New(), models.CreateDialogueRequest{
		Content: " Hi ", ModelID: int64Ptr(1), ModelVersionID: int64Ptr(1),
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, job.ID)
	queue.AssertExpectations(t)
}

func TestDialogueService_Create_SimplifiedModel(t *testing.T) {
	queue := new(MockQueue)
	queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(j *models.Job) bool {
		p, _ := j.Payload()
		return p.ModelID == 2 && p.ModelVersionID == 2
	})).Return(nil)

	svc, _ := newDialogueService(t, &stubDialogues{}, queue)
	_, err := svc.Create(context.Background(), uuid.New(), models.CreateDialogueRequest{Content: "Hi", Model: "gemini-2.0-flash"})

	require.NoError(t, err)
	queue.AssertExpectations(t)
}

func TestDialogueService_Create_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateDialogueRequest
		field   string
		message string
	}{
		{"empty content", models.CreateDialogueRequest{Content: "  ", ModelID: int64Ptr(1), ModelVersionID: int64Ptr(1)}, "content", fieldRequired},
		{"missing ids", models.CreateDialogueRequest{Content: "Hi"}, "model_id", fieldRequired},
		{"unknown model", models.CreateDialogueRequest{Content: "Hi", ModelID: int64Ptr(9), ModelVersionID: int64Ptr(1)}, "model_id", "Invalid AI model ID."},
		{"version of another model", models.CreateDialogueRequest{Content: "Hi", ModelID: int64Ptr(1), ModelVersionID: int64Ptr(2)}, "model_version_id", "Invalid model version ID."},
		{"unknown version", models.CreateDialogueRequest{Content: "Hi", ModelID: int64Ptr(1), ModelVersionID: int64Ptr(99)}, "model_version_id", "Invalid model version ID."},
		{"unknown simplified model", models.CreateDialogueRequest{Content: "Hi", Model: "gpt-9"}, "model", "Invalid model."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			queue := new(MockQueue)
			svc, _ := newDialogueService(t, &stubDialogues{}, queue)

			_, err := svc.Create(context.Background(), uuid.New(), tc.req)

			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.message, ve.Fields[tc.field])
			queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
		})
	}
}

func TestDialogueService_Create_QueueFailure(t *testing.T) {
	queue := new(MockQueue)
	queue.On("Enqueue", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	svc, _ := newDialogueService(t, &stubDialogues{}, queue)
	_, err := svc.Create(context.Background(), uuid.New(), models.CreateDialogueRequest{
		Content: "Hi", ModelID: int64Ptr(1), ModelVersionID: int64Ptr(1),
	})

	assert.EqualError(t, err, "redis down")
}

func TestDialogueService_List_CachesSnapshot(t *testing.T) {
	userID := uuid.New()
	store := &stubDialogues{rows: []*models.Dialogue{
		{ID: 1, UserID: userID, Status: models.StatusCompleted, Content: "a"},
		{ID: 2, UserID: userID, Status: models.StatusActive, Content: "b"},
		{ID: 3, UserID: uuid.New(), Status: models.StatusCompleted, Content: "c"},
	}}
	svc, mr := newDialogueService(t, store, new(MockQueue))
	ctx := context.Background()

	first, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), first[0].ID)
	assert.True(t, mr.Exists(cache.DialogueListKey(userID)))

	second, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, 1, store.listCalls, "second call should be served from cache")

	require.NoError(t, svc.InvalidateList(ctx, userID))
	_, err = svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.listCalls)
}

func TestDialogueService_UpdateLatest_SwitchesToIncremental(t *testing.T) {
	userID := uuid.New()
	now := time.Now()
	store := &stubDialogues{rows: []*models.Dialogue{
		{ID: 1, UserID: userID, Status: models.StatusCompleted, CreatedTimestamp: now.Add(-time.Minute)},
		{ID: 2, UserID: userID, Status: models.StatusCompleted, CreatedTimestamp: now},
	}}
	svc, mr := newDialogueService(t, store, new(MockQueue))
	ctx := context.Background()

	latest, err := svc.UpdateLatest(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.ID)

	val, err := mr.Get(cache.LatestDialogueKey(userID))
	require.NoError(t, err)
	assert.Equal(t, "2", val)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)

	store.rows = append(store.rows, &models.Dialogue{ID: 3, UserID: userID, Status: models.StatusCompleted, CreatedTimestamp: now.Add(time.Second)})
	list, err = svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].ID)
}

func TestDialogueService_UpdateLatest_NoDialogues(t *testing.T) {
	svc, _ := newDialogueService(t, &stubDialogues{}, new(MockQueue))

	_, err := svc.UpdateLatest(context.Background(), uuid.New())

	var nf *apperrors.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "No dialogues found for this user.", nf.Message)
}

func TestDialogueService_Get_HidesOtherUsers(t *testing.T) {
	owner := uuid.New()
	store := &stubDialogues{rows: []*models.Dialogue{{ID: 7, UserID: owner, Status: models.StatusActive}}}
	svc, _ := newDialogueService(t, store, new(MockQueue))

	d, err := svc.Get(context.Background(), owner, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.ID)

	_, err = svc.Get(context.Background(), uuid.New(), 7)
	var nf *apperrors.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
