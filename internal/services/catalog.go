package services

import (
	"context"
	"errors"
	"log/slog"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/models"
)

type catalogStore interface {
	CreateAIModel(ctx context.Context, m *models.AIModel) error
	ListAIModels(ctx context.Context) ([]*models.AIModel, error)
	GetAIModelByName(ctx context.Context, name string) (*models.AIModel, error)
	CreateModelVersion(ctx context.Context, v *models.ModelVersion) error
	ListModelVersions(ctx context.Context, modelID int64) ([]*models.ModelVersion, error)
}

type CatalogService struct {
	store  catalogStore
	logger *slog.Logger
}

func NewCatalogService(store catalogStore, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, logger: logger}
}

func (s *CatalogService) ListAIModels(ctx context.Context) ([]*models.AIModel, error) {
	out, err := s.store.ListAIModels(ctx)
	if out == nil && err == nil {
		out = []*models.AIModel{}
	}
	return out, err
}

// ListModelVersions lists every version, or one model's when modelID is non-zero.
func (s *CatalogService) ListModelVersions(ctx context.Context, modelID int64) ([]*models.ModelVersion, error) {
	out, err := s.store.ListModelVersions(ctx, modelID)
	if out == nil && err == nil {
		out = []*models.ModelVersion{}
	}
	return out, err
}

func (s *CatalogService) CreateAIModel(ctx context.Context, family string) (*models.AIModel, error) {
	m := &models.AIModel{Name: family}
	if err := s.store.CreateAIModel(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info("ai model created", "id", m.ID, "name", m.Name)
	return m, nil
}

// CreateModelVersion adds version under the model named family.
func (s *CatalogService) CreateModelVersion(ctx context.Context, family, version string) (*models.ModelVersion, error) {
	model, err := s.store.GetAIModelByName(ctx, family)
	if err != nil {
		var nf *apperrors.NotFoundError
		if errors.As(err, &nf) {
			return nil, apperrors.NewValidationError("ai_model", "Invalid AI model: "+family)
		}
		return nil, err
	}

	v := &models.ModelVersion{AIModelID: model.ID, Name: version}
	if err := s.store.CreateModelVersion(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info("model version created", "id", v.ID, "model", family, "name", version)
	return v, nil
}

// SeedResult counts what Seed inserted.
type SeedResult struct {
	ModelsCreated   int
	VersionsCreated int
}

// Seed makes sure every model and version in seed exists. Existing rows are
// left alone, so seeding twice is a no-op. The first invalid entry aborts.
func (s *CatalogService) Seed(ctx context.Context, seed models.CatalogSeed) (SeedResult, error) {
	var res SeedResult

	for _, entry := range seed.Models {
		model, err := s.store.GetAIModelByName(ctx, entry.Name)
		var nf *apperrors.NotFoundError
		switch {
		case errors.As(err, &nf):
			model = &models.AIModel{Name: entry.Name}
			if err := s.store.CreateAIModel(ctx, model); err != nil {
				return res, err
			}
			res.ModelsCreated++
		case err != nil:
			return res, err
		}

		existing, err := s.store.ListModelVersions(ctx, model.ID)
		if err != nil {
			return res, err
		}
		have := make(map[string]bool, len(existing))
		for _, v := range existing {
			have[v.Name] = true
		}

		for _, name := range entry.Versions {
			if have[name] {
				continue
			}
			v := &models.ModelVersion{AIModelID: model.ID, Name: name}
			if err := s.store.CreateModelVersion(ctx, v); err != nil {
				return res, err
			}
			have[name] = true
			res.VersionsCreated++
		}
	}

	s.logger.Info("catalog seeded", "models_created", res.ModelsCreated, "versions_created", res.VersionsCreated)
	return res, nil
}
