package assets

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// VisionMetadata is AI-derived image metadata. Advisory only: allocation
// must treat a missing analysis as "no additional signal", never an error.
type VisionMetadata struct {
	Description string   `json:"description,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	StyleHint   string   `json:"recommended_layout_style,omitempty"`
}

// Asset is one uploaded image in the request's image pool.
type Asset struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Bytes       []byte  `json:"-"`
	MimeType    string  `json:"mime_type"`
	AspectRatio float64 `json:"aspect_ratio"`

	Vision *VisionMetadata `json:"vision,omitempty"`
}

// Pool holds the request's image assets in upload order.
type Pool struct {
	Assets []Asset
}

// ByID returns the asset with the given id.
func (p *Pool) ByID(id string) (*Asset, bool) {
	for i := range p.Assets {
		if p.Assets[i].ID == id {
			return &p.Assets[i], true
		}
	}
	return nil, false
}

// IDs returns the pool's asset ids in order.
func (p *Pool) IDs() []string {
	ids := make([]string, len(p.Assets))
	for i, a := range p.Assets {
		ids[i] = a.ID
	}
	return ids
}

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

// NewAsset builds an asset from raw image bytes, deriving the aspect ratio
// from the image header. Unsupported file types are rejected.
func NewAsset(filename string, data []byte) (Asset, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	mime, ok := mimeByExt[ext]
	if !ok {
		return Asset{}, fmt.Errorf("unsupported image type %q for %s", ext, filename)
	}

	asset := Asset{
		ID:       uuid.NewString(),
		Filename: filename,
		Bytes:    data,
		MimeType: mime,
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil && cfg.Height > 0 {
		asset.AspectRatio = float64(cfg.Width) / float64(cfg.Height)
	}

	return asset, nil
}

// LoadPool reads image files from disk into a pool, in argument order.
func LoadPool(paths []string) (*Pool, error) {
	pool := &Pool{}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %s: %w", path, err)
		}
		asset, err := NewAsset(filepath.Base(path), data)
		if err != nil {
			return nil, err
		}
		pool.Assets = append(pool.Assets, asset)
	}
	return pool, nil
}
