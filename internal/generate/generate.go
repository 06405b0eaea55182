// Package generate writes personalized message variations and WhatsApp
// deep links for pending leads.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/llm"
	"github.com/sells-group/outreach-cli/internal/metrics"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Request is one generation run.
type Request struct {
	APIKey       string `json:"apiKey"`
	TemplateID   string `json:"templateId"`
	TemplateText string `json:"templateText"`
	// IsCustom marks a user-authored template: it selects the stronger
	// model and the stricter prompt.
	IsCustom bool `json:"isCustom"`
}

// Result summarizes a generation run.
type Result struct {
	UpdatedCount int `json:"updatedCount"`
	Pending      int `json:"pending"`
	Skipped      int `json:"skipped"`
}

// Message is the human-readable summary returned to callers.
func (r *Result) Message() string {
	if r.Pending == 0 {
		return "No leads to process"
	}
	return fmt.Sprintf("Generated messages for %d lead(s)", r.UpdatedCount)
}

// Options tune a Pipeline.
type Options struct {
	// ClaimUpdates writes a message only if the lead still has none, so two
	// concurrent runs never both update the same lead.
	ClaimUpdates    bool
	PlaceholderName string
}

// Pipeline runs generation against a lead store.
type Pipeline struct {
	store     store.Store
	newClient llm.Factory
	opts      Options
}

// New creates a Pipeline.
func New(st store.Store, f llm.Factory, opts Options) *Pipeline {
	if opts.PlaceholderName == "" {
		opts.PlaceholderName = model.DefaultPlaceholderName
	}
	return &Pipeline{store: st, newClient: f, opts: opts}
}

// ResolveTemplate picks the template text for req: explicit text wins,
// then the built-in with TemplateID.
func ResolveTemplate(req Request) (string, error) {
	if text := strings.TrimSpace(req.TemplateText); text != "" {
		return req.TemplateText, nil
	}
	if req.TemplateID != "" {
		t, ok := LookupBuiltin(req.TemplateID)
		if !ok {
			return "", model.NewValidationError(fmt.Sprintf("Unknown template id %q", req.TemplateID))
		}
		return t.Text, nil
	}
	return "", model.NewValidationError("Template is required")
}

// Run generates a message for every lead that has none and is unsent, one
// lead at a time. A lead whose variation call or update fails is left
// untouched and stays eligible for a later run.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, model.NewValidationError("API key is required")
	}
	tmpl, err := ResolveTemplate(req)
	if err != nil {
		return nil, err
	}

	client, err := p.newClient(req.APIKey)
	if err != nil {
		return nil, eris.Wrap(err, "generate: create client")
	}

	leads, err := p.store.PendingLeads(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "generate: fetch pending leads")
	}

	log := zap.L().With(zap.String("pipeline", "generate"))
	res := &Result{Pending: len(leads)}
	if len(leads) == 0 {
		log.Info("generate: no leads to process")
		return res, nil
	}
	log.Info("generate: processing leads",
		zap.Int("leads", len(leads)),
		zap.Bool("custom_template", req.IsCustom),
	)

	tier := llm.TierFast
	if req.IsCustom {
		tier = llm.TierStrong
	}

	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "generate: canceled")
		}
		if p.processLead(ctx, client, tier, tmpl, req.IsCustom, lead) {
			res.UpdatedCount++
		} else {
			res.Skipped++
		}
	}

	log.Info("generate: run complete",
		zap.Int("updated", res.UpdatedCount),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (p *Pipeline) processLead(ctx context.Context, client llm.Client, tier llm.Tier, tmpl string, custom bool, lead model.Lead) bool {
	log := zap.L().With(zap.String("pipeline", "generate"), zap.String("lead_id", lead.ID))

	base := Render(tmpl, lead.DisplayName(p.opts.PlaceholderName))

	out, err := client.Complete(ctx, llm.Request{
		Tier:   tier,
		Prompt: variationRequestPrompt(base, custom),
	})
	if err != nil {
		log.Warn("generate: variation call failed, skipping lead", zap.Error(err))
		metrics.RecordGenerationSkipped(metrics.SkipUpstream)
		return false
	}

	msg := strings.TrimSpace(out)
	if msg == "" {
		log.Debug("generate: empty variation, using base message")
		msg = base
	}
	link := WALink(lead.Phone, msg)

	err = p.store.UpdateLead(ctx, lead.ID, store.LeadUpdate{
		Message:         &msg,
		WALink:          &link,
		OnlyIfNoMessage: p.opts.ClaimUpdates,
	})
	switch {
	case err == nil:
		metrics.RecordMessageGenerated()
		return true
	case errors.Is(err, store.ErrNotUpdated) && p.opts.ClaimUpdates:
		log.Info("generate: lead already has a message, skipping")
		metrics.RecordGenerationSkipped(metrics.SkipClaimed)
		return false
	default:
		log.Warn("generate: update lead failed", zap.Error(err))
		metrics.RecordGenerationSkipped(metrics.SkipUpdate)
		return false
	}
}
