package repository

import (
	"context"
	"errors"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/catalog"
	"dialogue-backend/internal/models"
)

type CatalogRepo struct {
	db DBTX
}

func NewCatalogRepo(db DBTX) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) CreateAIModel(ctx context.Context, m *models.AIModel) error {
	if err := catalog.ValidateFamily(m.Name); err != nil {
		return fieldValidation(err)
	}

	err := r.db.QueryRow(ctx,
		"INSERT INTO ai_models (name) VALUES ($1) RETURNING id", m.Name,
	).Scan(&m.ID)
	if isUniqueViolation(err) {
		return apperrors.NewValidationError("name", "ai model with this name already exists.")
	}
	return err
}

func (r *CatalogRepo) ListAIModels(ctx context.Context) ([]*models.AIModel, error) {
	rows, err := r.db.Query(ctx, "SELECT id, name FROM ai_models ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AIModel
	for rows.Next() {
		m := &models.AIModel{}
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetAIModel(ctx context.Context, id int64) (*models.AIModel, error) {
	m := &models.AIModel{}
	err := r.db.QueryRow(ctx, "SELECT id, name FROM ai_models WHERE id = $1", id).Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, mapError(err, "AI model not found")
	}
	return m, nil
}

func (r *CatalogRepo) GetAIModelByName(ctx context.Context, name string) (*models.AIModel, error) {
	m := &models.AIModel{}
	err := r.db.QueryRow(ctx, "SELECT id, name FROM ai_models WHERE name = $1", name).Scan(&m.ID, &m.Name)
	if err != nil {
		return nil, mapError(err, "AI model not found")
	}
	return m, nil
}

// CreateModelVersion refuses any version outside its family's allow-list
// before touching the database.
func (r *CatalogRepo) CreateModelVersion(ctx context.Context, v *models.ModelVersion) error {
	parent, err := r.GetAIModel(ctx, v.AIModelID)
	if err != nil {
		var nf *apperrors.NotFoundError
		if errors.As(err, &nf) {
			return apperrors.NewValidationError("ai_model", "Invalid AI model ID.")
		}
		return err
	}
	if err := catalog.ValidateVersion(parent.Name, v.Name); err != nil {
		return fieldValidation(err)
	}

	err = r.db.QueryRow(ctx,
		"INSERT INTO model_versions (ai_model_id, name) VALUES ($1, $2) RETURNING id",
		v.AIModelID, v.Name,
	).Scan(&v.ID)
	if isUniqueViolation(err) {
		return apperrors.NewValidationError("name", "model version with this name already exists.")
	}
	return err
}

// ListModelVersions returns all versions, or only those of modelID when it is non-zero.
func (r *CatalogRepo) ListModelVersions(ctx context.Context, modelID int64) ([]*models.ModelVersion, error) {
	query := "SELECT id, ai_model_id, name FROM model_versions ORDER BY id"
	args := []any{}
	if modelID != 0 {
		query = "SELECT id, ai_model_id, name FROM model_versions WHERE ai_model_id = $1 ORDER BY id"
		args = append(args, modelID)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ModelVersion
	for rows.Next() {
		v := &models.ModelVersion{}
		if err := rows.Scan(&v.ID, &v.AIModelID, &v.Name); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetModelVersion(ctx context.Context, id int64) (*models.ModelVersion, error) {
	v := &models.ModelVersion{}
	err := r.db.QueryRow(ctx,
		"SELECT id, ai_model_id, name FROM model_versions WHERE id = $1", id,
	).Scan(&v.ID, &v.AIModelID, &v.Name)
	if err != nil {
		return nil, mapError(err, "Model version not found")
	}
	return v, nil
}

// GetModelVersionForModel finds versionID only if it belongs to modelID.
func (r *CatalogRepo) GetModelVersionForModel(ctx context.Context, modelID, versionID int64) (*models.ModelVersion, error) {
	v := &models.ModelVersion{}
	err := r.db.QueryRow(ctx,
		"SELECT id, ai_model_id, name FROM model_versions WHERE id = $1 AND ai_model_id = $2",
		versionID, modelID,
	).Scan(&v.ID, &v.AIModelID, &v.Name)
	if err != nil {
		return nil, mapError(err, "Model version not found")
	}
	return v, nil
}

func (r *CatalogRepo) GetModelVersionByName(ctx context.Context, name string) (*models.ModelVersion, error) {
	v := &models.ModelVersion{}
	err := r.db.QueryRow(ctx,
		"SELECT id, ai_model_id, name FROM model_versions WHERE name = $1 ORDER BY id LIMIT 1", name,
	).Scan(&v.ID, &v.AIModelID, &v.Name)
	if err != nil {
		return nil, mapError(err, "Model version not found")
	}
	return v, nil
}

func fieldValidation(err error) error {
	var fe *catalog.FieldError
	if errors.As(err, &fe) {
		return apperrors.NewValidationError(fe.Field, fe.Message)
	}
	return err
}
