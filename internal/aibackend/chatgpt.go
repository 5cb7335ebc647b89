package aibackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/cache"
	"dialogue-backend/internal/catalog"
)

const (
	chatGPTSystemPrompt = "You are a helpful assistant."
	chatGPTTemperature  = 0.3
	chatGPTMaxTokens    = 100
	chatGPTHistoryName  = "openai"
)

// NewOpenAIModel builds the langchaingo client shared by every ChatGPT
// backend. The model name is chosen per call.
func NewOpenAIModel(apiKey, baseURL string) (llms.Model, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return model, nil
}

type ChatGPT struct {
	llm     llms.Model
	version string
	history *History
	timeout time.Duration
	logger  *slog.Logger
}

func NewChatGPT(llm llms.Model, version string, history *History, timeout time.Duration, logger *slog.Logger) *ChatGPT {
	return &ChatGPT{llm: llm, version: version, history: history, timeout: timeout, logger: logger}
}

func (c *ChatGPT) Family() string { return catalog.FamilyChatGPT }

func (c *ChatGPT) ChatWithAI(ctx context.Context, userID uuid.UUID, text string) (string, error) {
	key := cache.HistoryKey(chatGPTHistoryName, userID)
	turns, err := c.history.Load(ctx, key)
	if err != nil {
		c.logger.Warn("discarding unreadable chat history", "key", key, "error", err)
		turns = nil
	}

	messages := make([]llms.MessageContent, 0, len(turns)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, chatGPTSystemPrompt))
	for _, t := range turns {
		role := llms.ChatMessageTypeHuman
		if t.Role != RoleUser {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, t.Text))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, text))

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.llm.GenerateContent(callCtx, messages,
		llms.WithModel(c.version),
		llms.WithTemperature(chatGPTTemperature),
		llms.WithMaxTokens(chatGPTMaxTokens),
		llms.WithN(1),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.NewAIModelError("AI service timed out", err)
		}
		return "", apperrors.NewAIModelError("AI service request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewAIModelError("AI service returned no choices", nil)
	}

	reply := collapseNewlines(resp.Choices[0].Content)
	if strings.TrimSpace(reply) == "" {
		return "", apperrors.NewAIModelError("AI service returned an empty reply", nil)
	}

	turns = append(turns, Turn{Role: RoleUser, Text: text}, Turn{Role: RoleAssistant, Text: reply})
	if err := c.history.Save(ctx, key, turns); err != nil {
		c.logger.Warn("failed to save chat history", "key", key, "error", err)
	}

	return reply, nil
}
