package ollama

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

// Ollama is a provider for a local Ollama instance.
type Ollama struct {
	client *http.Client
}

// New returns a new Ollama provider
func New() *Ollama {
	return &Ollama{
		client: &http.Client{Timeout: 180 * time.Second},
	}
}

func host() string {
	if h := os.Getenv("OLLAMA_URL"); h != "" {
		return h
	}
	if h := os.Getenv("OLLAMA_HOST"); h != "" {
		return h
	}
	return "http://localhost:11434"
}

// GenerateText generates text from the given prompt using Ollama
func (o *Ollama) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	return o.generate(ctx, config)
}

// AnalyzeImage sends the prompt plus attached images to Ollama
func (o *Ollama) AnalyzeImage(ctx context.Context, config providers.Config) (string, error) {
	return o.generate(ctx, config)
}

func (o *Ollama) generate(ctx context.Context, config providers.Config) (string, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	prompt := config.Prompt
	if config.System != "" {
		prompt = config.System + "\n\n" + prompt
	}

	requestBody := map[string]any{
		"model":  config.Model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": config.Temperature,
		},
	}

	if len(config.Images) > 0 {
		images := make([]string, 0, len(config.Images))
		for _, img := range config.Images {
			images = append(images, base64.StdEncoding.EncodeToString(img.Data))
		}
		requestBody["images"] = images
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", host()+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: ollama: %v", providers.ErrExternalCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: ollama API returned status %d: %s", providers.ErrExternalCall, resp.StatusCode, string(body))
	}

	var ollamaResp struct {
		Response string `json:"response"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode Ollama response: %v", providers.ErrExternalCall, err)
	}

	return ollamaResp.Response, nil
}
