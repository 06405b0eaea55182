package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/outreach-cli/pkg/anthropic/mocks"
	"github.com/sells-group/outreach-cli/pkg/gemini"
	geminimocks "github.com/sells-group/outreach-cli/pkg/gemini/mocks"
)

func TestParseDataURI(t *testing.T) {
	tests := []struct {
		name      string
		uri       string
		wantType  string
		wantData  string
		wantError string
	}{
		{"png", "data:image/png;base64,aGVsbG8=", "image/png", "aGVsbG8=", ""},
		{"default type", "data:;base64,aGVsbG8=", "image/jpeg", "aGVsbG8=", ""},
		{"no comma", "data:image/png;base64", "", "", "no payload"},
		{"not data", "http://x/y.png,abc", "", "", "not a data URI"},
		{"not base64", "data:image/png,hello", "", "", "unsupported data URI encoding"},
		{"empty payload", "data:image/png;base64,", "", "", "empty image payload"},
		{"bad base64", "data:image/png;base64,!!!", "", "", "decode image payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseDataURI(tt.uri)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, img.MediaType)
			assert.Equal(t, tt.wantData, img.Data)
		})
	}
}

func geminiConfig() config.GeminiConfig {
	return config.GeminiConfig{VisionModel: "g-vision", FastModel: "g-fast", StrongModel: "g-strong"}
}

func TestGemini_CompleteWithImage(t *testing.T) {
	gc := geminimocks.NewMockClient(t)
	gc.On("GenerateContent", mock.Anything, "g-vision", mock.MatchedBy(func(r gemini.GenerateRequest) bool {
		parts := r.Contents[0].Parts
		return len(parts) == 2 &&
			parts[0].Text == "read this" &&
			parts[1].InlineData != nil &&
			parts[1].InlineData.MimeType == "image/png" &&
			r.GenerationConfig == nil
	})).Return(&gemini.GenerateResponse{
		Candidates: []gemini.Candidate{{Content: gemini.Content{Parts: []gemini.Part{{Text: "[]"}}}}},
	}, nil)

	c := NewGemini(gc, geminiConfig())
	out, err := c.Complete(context.Background(), Request{
		Tier:   TierVision,
		Prompt: "read this",
		Images: []Image{{MediaType: "image/png", Data: "aGVsbG8="}},
	})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestGemini_SystemAndConfig(t *testing.T) {
	temp := 0.7
	gc := geminimocks.NewMockClient(t)
	gc.On("GenerateContent", mock.Anything, "g-strong", mock.MatchedBy(func(r gemini.GenerateRequest) bool {
		parts := r.Contents[0].Parts
		return len(parts) == 2 &&
			parts[0].Text == "sys" &&
			parts[1].Text == "prompt" &&
			r.GenerationConfig != nil &&
			*r.GenerationConfig.Temperature == 0.7 &&
			r.GenerationConfig.MaxOutputTokens == 300
	})).Return(&gemini.GenerateResponse{}, nil)

	c := NewGemini(gc, geminiConfig())
	out, err := c.Complete(context.Background(), Request{
		Tier: TierStrong, System: "sys", Prompt: "prompt", MaxTokens: 300, Temperature: &temp,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGemini_UnknownTier(t *testing.T) {
	c := NewGemini(geminimocks.NewMockClient(t), config.GeminiConfig{})
	_, err := c.Complete(context.Background(), Request{Tier: TierFast})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no gemini model")
}

func TestAnthropic_Complete(t *testing.T) {
	ac := anthropicmocks.NewMockClient(t)
	ac.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		m := r.Messages[0]
		return r.Model == "a-fast" &&
			r.MaxTokens == 512 &&
			r.System == "sys" &&
			m.Content == "rewrite" &&
			len(m.Images) == 0
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Hello Ann"}},
	}, nil)

	c := NewAnthropic(ac, config.AnthropicConfig{FastModel: "a-fast", MaxTokens: 512})
	out, err := c.Complete(context.Background(), Request{Tier: TierFast, System: "sys", Prompt: "rewrite"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann", out)
}

func TestAnthropic_ImagesAndError(t *testing.T) {
	ac := anthropicmocks.NewMockClient(t)
	ac.On("CreateMessage", mock.Anything, mock.MatchedBy(func(r anthropic.MessageRequest) bool {
		return r.Model == "a-vision" && r.MaxTokens == 1024 && len(r.Messages[0].Images) == 1
	})).Return(nil, errors.New("boom"))

	c := NewAnthropic(ac, config.AnthropicConfig{VisionModel: "a-vision"})
	_, err := c.Complete(context.Background(), Request{
		Tier:   TierVision,
		Images: []Image{{MediaType: "image/jpeg", Data: "aGVsbG8="}},
	})
	require.Error(t, err)
}

func testConfig(provider string) *config.Config {
	return &config.Config{
		LLM:       config.LLMConfig{Provider: provider},
		Gemini:    geminiConfig(),
		Anthropic: config.AnthropicConfig{VisionModel: "a-vision", FastModel: "a-fast", StrongModel: "a-strong"},
		Retry:     config.RetryConfig{MaxAttempts: 3, InitialBackoffMs: 1, MaxBackoffMs: 2},
	}
}

func TestNewFactory_UnknownProvider(t *testing.T) {
	_, err := NewFactory(testConfig("openai"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestNewFactory_RequiresKey(t *testing.T) {
	for _, p := range []string{"gemini", "anthropic"} {
		f, err := NewFactory(testConfig(p))
		require.NoError(t, err)
		_, err = f("")
		assert.Error(t, err, p)
	}
}

func TestNewFactory_GeminiRetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/g-fast:generateContent", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hi Ann"}]}}]}`))
	}))
	defer srv.Close()

	cfg := testConfig("gemini")
	cfg.Gemini.BaseURL = srv.URL
	f, err := NewFactory(cfg)
	require.NoError(t, err)

	c, err := f("key")
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), Request{Tier: TierFast, Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewFactory_GeminiPermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":400,"message":"bad","status":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	cfg := testConfig("gemini")
	cfg.Gemini.BaseURL = srv.URL
	f, err := NewFactory(cfg)
	require.NoError(t, err)

	c, err := f("key")
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), Request{Tier: TierVision, Prompt: "p"})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetrying_StopsOnSuccess(t *testing.T) {
	next := &countingClient{out: "ok"}
	r := &retrying{next: next, policy: resilience.Policy{Attempts: 3}}

	out, err := r.Complete(context.Background(), Request{Tier: TierFast})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(1), next.calls.Load())
}

type countingClient struct {
	out   string
	calls atomic.Int32
}

func (c *countingClient) Complete(context.Context, Request) (string, error) {
	c.calls.Add(1)
	return c.out, nil
}
