package catalog

import (
	"errors"
	"testing"
)

func TestValidateVersion(t *testing.T) {
	tests := []struct {
		name      string
		family    string
		version   string
		wantField string
	}{
		{"chatgpt accepts gpt-4o", FamilyChatGPT, "gpt-4o", ""},
		{"chatgpt accepts o3-mini-high", FamilyChatGPT, "o3-mini-high", ""},
		{"gemini accepts flash", FamilyGemini, "gemini-2.0-flash", ""},
		{"chatgpt rejects gemini version", FamilyChatGPT, "gemini-2.0-flash", "name"},
		{"gemini rejects gpt version", FamilyGemini, "gpt-4o", "name"},
		{"rejects empty version", FamilyChatGPT, "", "name"},
		{"rejects unknown family", "llama", "llama-3", "ai_model"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateVersion(tc.family, tc.version)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected %s/%s to be accepted, got %v", tc.family, tc.version, err)
				}
				return
			}

			var fieldErr *FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fieldErr.Field != tc.wantField {
				t.Errorf("Expected field %q, got %q", tc.wantField, fieldErr.Field)
			}
		})
	}
}

func TestValidateVersion_EveryCombination(t *testing.T) {
	for _, family := range Families() {
		for _, other := range Families() {
			for _, version := range KnownVersions(other) {
				err := ValidateVersion(family, version)
				if family == other && err != nil {
					t.Errorf("%s/%s should be accepted: %v", family, version, err)
				}
				if family != other && err == nil {
					t.Errorf("%s/%s should be rejected", family, version)
				}
			}
		}
	}
}

func TestValidateVersion_MessageNamesVersion(t *testing.T) {
	err := ValidateVersion(FamilyChatGPT, "gpt-9")
	if err == nil || err.Error() != "Invalid model version: gpt-9" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestKnownVersions_ReturnsCopy(t *testing.T) {
	versions := KnownVersions(FamilyGemini)
	versions[0] = "mutated"

	if KnownVersions(FamilyGemini)[0] == "mutated" {
		t.Fatalf("KnownVersions must not expose the allow-list")
	}
}

func TestFamilyOf(t *testing.T) {
	family, ok := FamilyOf("gpt-4o-mini")
	if !ok || family != FamilyChatGPT {
		t.Errorf("Expected chatgpt, got %q (%v)", family, ok)
	}

	if _, ok := FamilyOf("claude-3"); ok {
		t.Errorf("unknown version should not resolve to a family")
	}
}
