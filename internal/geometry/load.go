package geometry

import (
	"encoding/json"
	"fmt"
	"os"
)

// Parse decodes a template geometry JSON document (the extraction service
// wire format) and validates it.
func Parse(data []byte) (*Template, error) {
	var t Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to decode template geometry: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Load reads and parses a template geometry file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template geometry file: %w", err)
	}
	return Parse(data)
}
