package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialogue-backend/internal/models"
)

type stubCatalogService struct {
	aiModels     []*models.AIModel
	versions     []*models.ModelVersion
	lastFilterID int64
}

func (s *stubCatalogService) ListAIModels(context.Context) ([]*models.AIModel, error) {
	return s.aiModels, nil
}

func (s *stubCatalogService) ListModelVersions(_ context.Context, modelID int64) ([]*models.ModelVersion, error) {
	s.lastFilterID = modelID
	out := []*models.ModelVersion{}
	for _, v := range s.versions {
		if modelID == 0 || v.AIModelID == modelID {
			out = append(out, v)
		}
	}
	return out, nil
}

func newStubCatalogService() *stubCatalogService {
	return &stubCatalogService{
		aiModels: []*models.AIModel{{ID: 1, Name: "chatgpt"}, {ID: 2, Name: "gemini"}},
		versions: []*models.ModelVersion{
			{ID: 1, AIModelID: 1, Name: "gpt-4o"},
			{ID: 2, AIModelID: 2, Name: "gemini-2.0-flash"},
		},
	}
}

func TestCatalogHandler_ListAIModels(t *testing.T) {
	rr := httptest.NewRecorder()
	NewCatalogHandler(newStubCatalogService()).ListAIModels(rr, httptest.NewRequest(http.MethodGet, "/api/aimodel/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":1,"name":"chatgpt"},{"id":2,"name":"gemini"}]`, rr.Body.String())
}

func TestCatalogHandler_ListModelVersions_Filter(t *testing.T) {
	svc := newStubCatalogService()
	rr := httptest.NewRecorder()
	NewCatalogHandler(svc).ListModelVersions(rr, httptest.NewRequest(http.MethodGet, "/api/modelversion/?ai_model=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), svc.lastFilterID)

	var list []models.ModelVersion
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "gemini-2.0-flash", list[0].Name)
}

func TestCatalogHandler_ListModelVersions_BadFilter(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/modelversion/?ai_model=x", nil)
	NewCatalogHandler(newStubCatalogService()).ListModelVersions(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Fields, "ai_model")
}
