package aibackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/cache"
	"dialogue-backend/internal/catalog"
)

const (
	geminiTemperature     = 0.7
	geminiTopP            = 0.95
	geminiMaxOutputTokens = 100
)

// ChatStreamer sends text after history to a Gemini model and returns the
// streamed chunks in order.
type ChatStreamer interface {
	StreamChat(ctx context.Context, version string, history []Turn, text string) ([]string, error)
}

// GenAIStreamer is the ChatStreamer backed by generative-ai-go. At most
// concurrentReqs calls are in flight at once.
type GenAIStreamer struct {
	client   *genai.Client
	rateChan chan struct{} // Token bucket
}

func NewGenAIStreamer(ctx context.Context, apiKey string, concurrentReqs int) (*GenAIStreamer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GenAIStreamer{client: client, rateChan: newRateBucket(concurrentReqs)}, nil
}

func newRateBucket(size int) chan struct{} {
	if size <= 0 {
		size = 1
	}
	bucket := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		bucket <- struct{}{}
	}
	return bucket
}

// acquireRate blocks until a rate slot is available or ctx ends.
func acquireRate(ctx context.Context, bucket chan struct{}) error {
	select {
	case <-bucket:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GenAIStreamer) Close() {
	s.client.Close()
}

func (s *GenAIStreamer) StreamChat(ctx context.Context, version string, history []Turn, text string) ([]string, error) {
	if err := acquireRate(ctx, s.rateChan); err != nil {
		return nil, err
	}
	defer func() { s.rateChan <- struct{}{} }()

	model := s.client.GenerativeModel(version)
	model.SetTemperature(geminiTemperature)
	model.SetTopP(geminiTopP)
	model.SetMaxOutputTokens(geminiMaxOutputTokens)
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	cs := model.StartChat()
	for _, t := range history {
		cs.History = append(cs.History, &genai.Content{
			Role:  t.Role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}

	var chunks []string
	iter := cs.SendMessageStream(ctx, genai.Text(text))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, extractText(resp))
	}
	return chunks, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

type Gemini struct {
	streamer ChatStreamer
	version  string
	history  *History
	timeout  time.Duration
	logger   *slog.Logger
}

func NewGemini(streamer ChatStreamer, version string, history *History, timeout time.Duration, logger *slog.Logger) *Gemini {
	return &Gemini{streamer: streamer, version: version, history: history, timeout: timeout, logger: logger}
}

func (g *Gemini) Family() string { return catalog.FamilyGemini }

func (g *Gemini) ChatWithAI(ctx context.Context, userID uuid.UUID, text string) (string, error) {
	key := cache.HistoryKey(catalog.FamilyGemini, userID)
	turns, err := g.history.Load(ctx, key)
	if err != nil {
		g.logger.Warn("discarding unreadable chat history", "key", key, "error", err)
		turns = nil
	}
	for i := range turns {
		if turns[i].Role != RoleUser {
			turns[i].Role = RoleModel
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	chunks, err := g.streamer.StreamChat(callCtx, g.version, turns, text)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewAIModelError("AI service timed out", err)
		}
		return "", apperrors.NewAIModelError("AI service request failed", err)
	}

	reply := strings.TrimSpace(strings.Join(chunks, " "))
	if reply == "" {
		return "", apperrors.NewAIModelError("AI service returned an empty reply", nil)
	}

	turns = append(turns, Turn{Role: RoleUser, Text: text}, Turn{Role: RoleModel, Text: reply})
	if err := g.history.Save(ctx, key, turns); err != nil {
		g.logger.Warn("failed to save chat history", "key", key, "error", err)
	}

	return reply, nil
}
