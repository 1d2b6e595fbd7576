package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const maxRetries = 2

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Previewer sends a single user turn to Gemini with a persona prompt as
// the system instruction.
type Previewer struct {
	generate generateFunc
	model    string
	logger   *zap.Logger

	// retryWait returns how long to wait before the given retry attempt.
	retryWait func(attempt int) time.Duration
}

func NewPreviewer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Previewer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Previewer{
		generate: client.Models.GenerateContent,
		model:    model,
		logger:   logger,
		retryWait: func(attempt int) time.Duration {
			return time.Duration(30*attempt) * time.Second
		},
	}, nil
}

// Reply returns the model's answer to message when playing systemPrompt.
func (p *Previewer) Reply(ctx context.Context, systemPrompt, message string) (string, error) {
	history := []*genai.Content{genai.NewContentFromText(message, "user")}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemPrompt)},
		},
	}

	// レート制限対応: 429 エラー時はリトライ（最大2回）
	var resp *genai.GenerateContentResponse
	var err error
	for retry := 0; retry <= maxRetries; retry++ {
		resp, err = p.generate(ctx, p.model, history, config)
		if err == nil {
			break
		}
		if !isRateLimited(err) || retry == maxRetries {
			return "", fmt.Errorf("agent: generate content: %w", err)
		}
		wait := p.retryWait(retry + 1)
		p.logger.Warn("Rate limited, retrying", zap.Duration("wait", wait), zap.Int("attempt", retry+1))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return resp.Text(), nil
}

func isRateLimited(err error) bool {
	return strings.Contains(err.Error(), "429")
}
