package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/slaide-studio/slaide/internal/providers"
)

// OpenAI is a provider for OpenAI-compatible chat completion APIs.
type OpenAI struct {
	client *http.Client
}

// New returns a new OpenAI provider
func New() *OpenAI {
	return &OpenAI{
		client: &http.Client{Timeout: 180 * time.Second},
	}
}

func baseURL() string {
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		return url
	}
	return "https://api.openai.com/v1"
}

// GenerateText generates text from the given prompt using OpenAI
func (o *OpenAI) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	return o.complete(ctx, config)
}

// AnalyzeImage sends the prompt plus attached images to OpenAI
func (o *OpenAI) AnalyzeImage(ctx context.Context, config providers.Config) (string, error) {
	return o.complete(ctx, config)
}

func (o *OpenAI) complete(ctx context.Context, config providers.Config) (string, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	var messages []map[string]any
	if config.System != "" {
		messages = append(messages, map[string]any{
			"role":    "system",
			"content": config.System,
		})
	}

	if len(config.Images) > 0 {
		content := []map[string]any{
			{"type": "text", "text": config.Prompt},
		}
		for _, img := range config.Images {
			mime := img.MimeType
			if mime == "" {
				mime = "image/jpeg"
			}
			content = append(content, map[string]any{
				"type": "image_url",
				"image_url": map[string]string{
					"url": "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		messages = append(messages, map[string]any{"role": "user", "content": content})
	} else {
		messages = append(messages, map[string]any{"role": "user", "content": config.Prompt})
	}

	requestBody := map[string]any{
		"model":           config.Model,
		"messages":        messages,
		"temperature":     config.Temperature,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL()+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: openai: %v", providers.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: openAI API returned status %d: %s", providers.ErrExternalCall, resp.StatusCode, string(body))
	}

	var openaiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode OpenAI response: %v", providers.ErrExternalCall, err)
	}

	if len(openaiResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no response from OpenAI", providers.ErrExternalCall)
	}

	return openaiResp.Choices[0].Message.Content, nil
}
