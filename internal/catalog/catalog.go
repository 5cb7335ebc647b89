// Package catalog describes the model families and versions this
// deployment supports. The catalog is static; nothing registers at runtime.
package catalog

import (
	"fmt"
	"slices"
)

const (
	FamilyChatGPT = "chatgpt"
	FamilyGemini  = "gemini"
)

var knownVersions = map[string][]string{
	FamilyChatGPT: {
		"gpt-4",
		"gpt-4o",
		"gpt-4o-mini",
		"o1",
		"o1-pro-mode",
		"o3-mini",
		"o3-mini-high",
		"gpt-4.5",
	},
	FamilyGemini: {
		"gemini-2.0-flash",
		"gemini-2.0-pro-exp-02-05",
		"gemini-2.0-flash-lite",
		"gemini-2.0-flash-thinking-exp-01-21",
		"gemini-1.5-flash",
	},
}

// FieldError names the offending field of a rejected catalog write.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// Families returns the supported family names in a stable order.
func Families() []string {
	return []string{FamilyChatGPT, FamilyGemini}
}

// KnownVersions returns a copy of the allow-list for family.
func KnownVersions(family string) []string {
	return slices.Clone(knownVersions[family])
}

func IsKnownFamily(family string) bool {
	_, ok := knownVersions[family]
	return ok
}

func ValidateFamily(family string) error {
	if !IsKnownFamily(family) {
		return &FieldError{Field: "name", Message: fmt.Sprintf("Invalid model: %s", family)}
	}
	return nil
}

// ValidateVersion accepts version only if it is in family's allow-list.
func ValidateVersion(family, version string) error {
	if err := ValidateFamily(family); err != nil {
		return &FieldError{Field: "ai_model", Message: err.Error()}
	}
	if !slices.Contains(knownVersions[family], version) {
		return &FieldError{Field: "name", Message: fmt.Sprintf("Invalid model version: %s", version)}
	}
	return nil
}

// FamilyOf returns the family whose allow-list contains version.
func FamilyOf(version string) (string, bool) {
	for _, family := range Families() {
		if slices.Contains(knownVersions[family], version) {
			return family, true
		}
	}
	return "", false
}
