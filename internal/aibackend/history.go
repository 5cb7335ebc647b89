package aibackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dialogue-backend/internal/cache"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleModel     = "model"

	// DefaultMaxTurns bounds the history sent to the vendor and kept in cache.
	DefaultMaxTurns = 20
)

type Turn struct {
	Role string
	Text string
}

type historyPart struct {
	Text string `json:"text"`
}

type historyEntry struct {
	Role  string        `json:"role"`
	Parts []historyPart `json:"parts"`
}

// EncodeHistory serializes turns as [{"role":..,"parts":[{"text":..}]}].
func EncodeHistory(turns []Turn) ([]byte, error) {
	entries := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, historyEntry{Role: t.Role, Parts: []historyPart{{Text: t.Text}}})
	}
	return json.Marshal(entries)
}

// DecodeHistory is the inverse of EncodeHistory. Multi-part entries are
// joined into a single turn; entries without a role are dropped.
func DecodeHistory(raw []byte) ([]Turn, error) {
	var entries []historyEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	turns := make([]Turn, 0, len(entries))
	for _, e := range entries {
		if e.Role == "" {
			continue
		}
		var text string
		for i, p := range e.Parts {
			if i > 0 {
				text += " "
			}
			text += p.Text
		}
		turns = append(turns, Turn{Role: e.Role, Text: text})
	}
	return turns, nil
}

// History stores conversation turns in the cache with a sliding TTL.
type History struct {
	store    cache.Store
	ttl      time.Duration
	maxTurns int
}

func NewHistory(store cache.Store, ttl time.Duration, maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &History{store: store, ttl: ttl, maxTurns: maxTurns}
}

// Load returns nil on a cache miss.
func (h *History) Load(ctx context.Context, key string) ([]Turn, error) {
	raw, err := h.store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return DecodeHistory(raw)
}

// Save keeps only the most recent maxTurns turns.
func (h *History) Save(ctx context.Context, key string, turns []Turn) error {
	if len(turns) > h.maxTurns {
		turns = turns[len(turns)-h.maxTurns:]
		// Conversations must open with a user turn.
		if turns[0].Role != RoleUser {
			turns = turns[1:]
		}
	}
	raw, err := EncodeHistory(turns)
	if err != nil {
		return err
	}
	return h.store.Set(ctx, key, raw, h.ttl)
}
