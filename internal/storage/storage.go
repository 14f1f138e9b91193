// Package storage keeps extracted template geometry in memory, keyed by
// template ID, for reuse across generation requests.
package storage

import (
	"errors"
	"sync"

	"github.com/slaide-studio/slaide/internal/geometry"
)

var ErrNotFound = errors.New("template not found")

type TemplateStore struct {
	templates map[string]*geometry.Template
	mu        sync.RWMutex
}

func New() *TemplateStore {
	return &TemplateStore{
		templates: make(map[string]*geometry.Template),
	}
}

func (s *TemplateStore) Get(id string) (*geometry.Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, exists := s.templates[id]
	return t, exists
}

func (s *TemplateStore) Set(id string, t *geometry.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[id] = t
}

func (s *TemplateStore) GetAll() map[string]*geometry.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*geometry.Template, len(s.templates))
	for k, v := range s.templates {
		result[k] = v
	}
	return result
}

func (s *TemplateStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
}

// Reclassify updates one layout's category under the store lock and bumps
// the template revision, so concurrent readers never observe a half-applied
// reclassification.
func (s *TemplateStore) Reclassify(id, layoutName string, category geometry.Category) (*geometry.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, exists := s.templates[id]
	if !exists {
		return nil, ErrNotFound
	}
	if err := t.Reclassify(layoutName, category); err != nil {
		return nil, err
	}
	return t, nil
}
