package providers

import (
	"context"
	"errors"
	"time"
)

// ErrExternalCall indicates a provider call failed, timed out, or was
// cancelled. Callers with a deterministic fallback recover locally;
// otherwise the error is retryable by the caller.
var ErrExternalCall = errors.New("external model call failed")

// ErrMalformedResponse indicates the model returned output that failed
// schema validation. Model output is never trusted as-is.
var ErrMalformedResponse = errors.New("malformed model response")

// ImageInput is one image attached to a model request.
type ImageInput struct {
	Data     []byte
	MimeType string
}

// Config represents the configuration for one model call.
type Config struct {
	Model       string
	Temperature float64
	System      string
	Prompt      string
	Images      []ImageInput
	Timeout     time.Duration
}

// Text defines the interface for a text generation provider.
type Text interface {
	GenerateText(ctx context.Context, config Config) (string, error)
}

// Vision defines the interface for a provider that can see images.
type Vision interface {
	AnalyzeImage(ctx context.Context, config Config) (string, error)
}
