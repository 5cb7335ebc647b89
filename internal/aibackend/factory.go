package aibackend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/catalog"
	"dialogue-backend/internal/models"
)

// CatalogReader is the lookup the Factory needs from the catalog store.
type CatalogReader interface {
	GetAIModel(ctx context.Context, id int64) (*models.AIModel, error)
	GetModelVersion(ctx context.Context, id int64) (*models.ModelVersion, error)
}

// Constructor builds a backend bound to one model version.
type Constructor func(version *models.ModelVersion) Backend

type Factory struct {
	catalog      CatalogReader
	constructors map[string]Constructor
}

func NewFactory(catalog CatalogReader, constructors map[string]Constructor) *Factory {
	return &Factory{catalog: catalog, constructors: constructors}
}

// Resolve returns the backend for (modelID, versionID). Unknown ids, a
// version of another model and families without a constructor all fail;
// there is no default backend.
func (f *Factory) Resolve(ctx context.Context, modelID, versionID int64) (Backend, error) {
	model, err := f.catalog.GetAIModel(ctx, modelID)
	if err != nil {
		return nil, err
	}
	version, err := f.catalog.GetModelVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.AIModelID != model.ID {
		return nil, &apperrors.NotFoundError{
			Message: fmt.Sprintf("Model version %d does not belong to model %d", versionID, modelID),
		}
	}

	ctor, ok := f.constructors[model.Name]
	if !ok {
		return nil, &apperrors.UnsupportedModelError{Family: model.Name}
	}
	return ctor(version), nil
}

// Families lists the families this factory can build.
func (f *Factory) Families() []string {
	var out []string
	for _, family := range catalog.Families() {
		if _, ok := f.constructors[family]; ok {
			out = append(out, family)
		}
	}
	return out
}

// Clients are the shared vendor clients. A nil client leaves its family unsupported.
type Clients struct {
	OpenAI  llms.Model
	Gemini  ChatStreamer
	History *History
	Timeout time.Duration
	Logger  *slog.Logger
}

// Constructors builds the family lookup table for the configured clients.
func Constructors(c Clients) map[string]Constructor {
	table := map[string]Constructor{}
	if c.OpenAI != nil {
		table[catalog.FamilyChatGPT] = func(v *models.ModelVersion) Backend {
			return NewChatGPT(c.OpenAI, v.Name, c.History, c.Timeout, c.Logger)
		}
	}
	if c.Gemini != nil {
		table[catalog.FamilyGemini] = func(v *models.ModelVersion) Backend {
			return NewGemini(c.Gemini, v.Name, c.History, c.Timeout, c.Logger)
		}
	}
	return table
}
