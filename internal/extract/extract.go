// Package extract turns screenshots into unsent leads.
package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

const visionPrompt = `Extract all phone numbers and associated names (if visible) from this image. ` +
	`Return ONLY a JSON array of objects with "phone" and "name" fields. ` +
	`Phone numbers should be in international format with country code if possible. ` +
	`If no name is visible, use null for the name field. ` +
	`Example format: [{"phone": "+1234567890", "name": "John Doe"}, {"phone": "+9876543210", "name": null}]`

// Request is one extraction batch.
type Request struct {
	Images []string `json:"images"` // data URIs
	APIKey string   `json:"apiKey"`
}

// ImageResult reports what happened to one image of the batch.
type ImageResult struct {
	Index    int    `json:"index"`
	Contacts int    `json:"contacts"`
	Inserted int    `json:"inserted"`
	Fallback bool   `json:"fallback,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Result summarizes an extraction batch.
type Result struct {
	ExtractedCount int           `json:"extractedCount"`
	ImageCount     int           `json:"imageCount"`
	Images         []ImageResult `json:"images"`
}

// Message is the human-readable summary returned to callers.
func (r *Result) Message() string {
	return fmt.Sprintf("Extracted %d phone number(s) from %d image(s)", r.ExtractedCount, r.ImageCount)
}

// Pipeline runs extraction batches against a lead store.
type Pipeline struct {
	store     store.Store
	newClient llm.Factory
}

// New creates a Pipeline.
func New(st store.Store, f llm.Factory) *Pipeline {
	return &Pipeline{store: st, newClient: f}
}

// Run processes every image in order. A failing image is logged and skipped;
// only request validation, client construction and cancellation fail the
// run. On cancellation the partial result is returned with the error.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, model.NewValidationError("API key is required")
	}
	if len(req.Images) == 0 {
		return nil, model.NewValidationError("No images provided")
	}

	client, err := p.newClient(req.APIKey)
	if err != nil {
		return nil, eris.Wrap(err, "extract: create client")
	}

	log := zap.L().With(zap.String("pipeline", "extract"))
	log.Info("extract: processing images", zap.Int("images", len(req.Images)))

	res := &Result{ImageCount: len(req.Images), Images: make([]ImageResult, 0, len(req.Images))}
	for i, uri := range req.Images {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "extract: canceled")
		}
		ir := p.processImage(ctx, client, i, uri)
		res.ExtractedCount += ir.Inserted
		res.Images = append(res.Images, ir)
	}

	log.Info("extract: batch complete",
		zap.Int("images", res.ImageCount),
		zap.Int("extracted", res.ExtractedCount),
	)
	return res, nil
}

func (p *Pipeline) processImage(ctx context.Context, client llm.Client, idx int, uri string) ImageResult {
	ir := ImageResult{Index: idx}
	log := zap.L().With(zap.String("pipeline", "extract"), zap.Int("image", idx))

	img, err := llm.ParseDataURI(uri)
	if err != nil {
		log.Warn("extract: skipping undecodable image", zap.Error(err))
		metrics.RecordImage(metrics.ImageFailed)
		ir.Err = err.Error()
		return ir
	}

	text, err := client.Complete(ctx, llm.Request{
		Tier:   llm.TierVision,
		Prompt: visionPrompt,
		Images: []llm.Image{img},
	})
	if err != nil {
		log.Warn("extract: vision call failed, skipping image", zap.Error(err))
		metrics.RecordImage(metrics.ImageFailed)
		ir.Err = err.Error()
		return ir
	}

	contacts, fallback := ParseContacts(text)
	ir.Contacts = len(contacts)
	ir.Fallback = fallback
	if fallback {
		log.Warn("extract: no JSON array in response, used phone pattern scan",
			zap.Int("matches", len(contacts)))
		metrics.RecordImage(metrics.ImageFallback)
	} else {
		metrics.RecordImage(metrics.ImageParsed)
	}

	for _, c := range contacts {
		if _, err := p.store.InsertLead(ctx, c.Phone, c.Name, model.LeadStatusUnsent); err != nil {
			log.Warn("extract: insert lead failed", zap.String("phone", c.Phone), zap.Error(err))
			metrics.RecordLeadInsertError()
			continue
		}
		metrics.RecordLeadInserted()
		ir.Inserted++
	}
	return ir
}
