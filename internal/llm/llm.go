// Package llm hides the vision/text provider behind a single Complete call.
package llm

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/rotisserie/eris"
)

// Tier selects the model class for a request.
type Tier string

const (
	// TierVision reads images.
	TierVision Tier = "vision"
	// TierFast rewrites built-in templates.
	TierFast Tier = "fast"
	// TierStrong rewrites custom templates under a stricter prompt.
	TierStrong Tier = "strong"
)

// Image is a base64-encoded image.
type Image struct {
	MediaType string
	Data      string
}

// Request is a single-turn completion request.
type Request struct {
	Tier        Tier
	System      string
	Prompt      string
	Images      []Image
	MaxTokens   int
	Temperature *float64
}

// Client completes prompts against one provider with one API key.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Factory builds a Client for the API key supplied with a pipeline request.
type Factory func(apiKey string) (Client, error)

const defaultImageType = "image/jpeg"

// ParseDataURI decodes a "data:<mime>;base64,<payload>" string into an Image.
// A missing media type defaults to image/jpeg. The payload must be valid
// standard base64.
func ParseDataURI(uri string) (Image, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return Image{}, eris.New("llm: data URI has no payload")
	}
	if !strings.HasPrefix(header, "data:") {
		return Image{}, eris.New("llm: not a data URI")
	}
	meta := strings.TrimPrefix(header, "data:")
	mediaType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, eris.Errorf("llm: unsupported data URI encoding %q", encoding)
	}
	if mediaType == "" {
		mediaType = defaultImageType
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Image{}, eris.New("llm: empty image payload")
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return Image{}, eris.Wrap(err, "llm: decode image payload")
	}
	return Image{MediaType: mediaType, Data: payload}, nil
}
