package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

type geminiClient struct {
	client gemini.Client
	models map[Tier]string
}

// NewGemini adapts a gemini.Client to Client.
func NewGemini(c gemini.Client, cfg config.GeminiConfig) Client {
	return &geminiClient{
		client: c,
		models: map[Tier]string{
			TierVision: cfg.VisionModel,
			TierFast:   cfg.FastModel,
			TierStrong: cfg.StrongModel,
		},
	}
}

func (g *geminiClient) Complete(ctx context.Context, req Request) (string, error) {
	model := g.models[req.Tier]
	if model == "" {
		return "", eris.Errorf("llm: no gemini model configured for tier %q", req.Tier)
	}

	// The system text goes first in the user turn.
	parts := make([]gemini.Part, 0, len(req.Images)+2)
	if req.System != "" {
		parts = append(parts, gemini.Part{Text: req.System})
	}
	parts = append(parts, gemini.Part{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, gemini.Part{InlineData: &gemini.InlineData{MimeType: img.MediaType, Data: img.Data}})
	}

	greq := gemini.GenerateRequest{
		Contents: []gemini.Content{{Role: "user", Parts: parts}},
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		greq.GenerationConfig = &gemini.GenerationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		}
	}

	resp, err := g.client.GenerateContent(ctx, model, greq)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
