// Package extract calls the external template-extraction service, which
// opens an uploaded .pptx and returns its layout geometry as JSON.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/slaide-studio/slaide/internal/geometry"
)

// ErrMalformedTemplate indicates the service could open the request but not
// the file: a corrupt or non-pptx upload. Callers map this to a client
// error rather than retrying.
var ErrMalformedTemplate = errors.New("malformed template file")

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient reads the service address from EXTRACTOR_URL, defaulting to a
// local sidecar.
func NewClient() *Client {
	baseURL := os.Getenv("EXTRACTOR_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8200"
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Extract posts the pptx bytes and parses the returned geometry. The result
// is validated before it is returned; an extraction that yields invalid
// geometry surfaces as geometry.ErrInvalidGeometry.
func (c *Client) Extract(ctx context.Context, filename string, pptx []byte) (*geometry.Template, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(pptx); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrMalformedTemplate, string(respBody))
	default:
		return nil, fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	t, err := geometry.Parse(respBody)
	if err != nil {
		return nil, fmt.Errorf("extraction returned unusable geometry: %w", err)
	}
	return t, nil
}
