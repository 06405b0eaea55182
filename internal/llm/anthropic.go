package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
)

type anthropicClient struct {
	client    anthropic.Client
	models    map[Tier]string
	maxTokens int64
}

// NewAnthropic adapts an anthropic.Client to Client.
func NewAnthropic(c anthropic.Client, cfg config.AnthropicConfig) Client {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &anthropicClient{
		client: c,
		models: map[Tier]string{
			TierVision: cfg.VisionModel,
			TierFast:   cfg.FastModel,
			TierStrong: cfg.StrongModel,
		},
		maxTokens: maxTokens,
	}
}

func (a *anthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	model := a.models[req.Tier]
	if model == "" {
		return "", eris.Errorf("llm: no anthropic model configured for tier %q", req.Tier)
	}

	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = int64(req.MaxTokens)
	}

	images := make([]anthropic.Image, len(req.Images))
	for i, img := range req.Images {
		images[i] = anthropic.Image{MediaType: img.MediaType, Data: img.Data}
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: req.Temperature,
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: req.Prompt,
			Images:  images,
		}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
