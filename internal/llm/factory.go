package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	"github.com/sells-group/outreach-cli/pkg/gemini"
)

// NewFactory returns a Factory for the provider named in cfg.LLM.Provider.
// Every Client it builds retries transient failures per cfg.Retry.
func NewFactory(cfg *config.Config) (Factory, error) {
	policy := resilience.PolicyFromConfig(cfg.Retry)

	switch cfg.LLM.Provider {
	case "gemini", "":
		gcfg := cfg.Gemini
		timeout := time.Duration(gcfg.TimeoutSecs) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc := &http.Client{Timeout: timeout}
		return func(apiKey string) (Client, error) {
			if apiKey == "" {
				return nil, eris.New("llm: API key is required")
			}
			gc := gemini.NewClient(apiKey, gemini.WithBaseURL(gcfg.BaseURL), gemini.WithHTTPClient(hc))
			return &retrying{next: NewGemini(gc, gcfg), policy: policy}, nil
		}, nil

	case "anthropic":
		acfg := cfg.Anthropic
		return func(apiKey string) (Client, error) {
			if apiKey == "" {
				return nil, eris.New("llm: API key is required")
			}
			ac := anthropic.NewClient(apiKey, option.WithRequestTimeout(60*time.Second))
			return &retrying{next: NewAnthropic(ac, acfg), policy: policy}, nil
		}, nil

	default:
		return nil, eris.Errorf("llm: unsupported provider %q", cfg.LLM.Provider)
	}
}

// retrying wraps a Client with a retry policy.
type retrying struct {
	next   Client
	policy resilience.Policy
}

func (r *retrying) Complete(ctx context.Context, req Request) (string, error) {
	return resilience.Call(ctx, r.policy, "llm."+string(req.Tier), func(ctx context.Context) (string, error) {
		return r.next.Complete(ctx, req)
	})
}
