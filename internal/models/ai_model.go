package models

// AIModel is a model family such as "chatgpt" or "gemini".
type AIModel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ModelVersion belongs to exactly one AIModel.
type ModelVersion struct {
	ID        int64  `json:"id"`
	AIModelID int64  `json:"-"`
	Name      string `json:"name"`
}

// CatalogSeed is the admin seed file layout.
type CatalogSeed struct {
	Models []CatalogSeedModel `yaml:"models" json:"models"`
}

type CatalogSeedModel struct {
	Name     string   `yaml:"name" json:"name"`
	Versions []string `yaml:"versions" json:"versions"`
}
