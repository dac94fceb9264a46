package store

import (
	"sort"
	"sync"

	"tmplq/internal/apperr"
)

// TemplateStore holds templates by id.
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateStore returns an empty store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{templates: make(map[string]Template)}
}

// Create inserts t. It fails with a conflict if the id is taken.
func (s *TemplateStore) Create(t Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.templates[t.ID]; exists {
		return apperr.New(apperr.Conflict, "template %q already exists", t.ID)
	}
	s.templates[t.ID] = t
	return nil
}

// Get returns the template with the given id.
func (s *TemplateStore) Get(id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return Template{}, apperr.New(apperr.NotFound, "template %q not found", id)
	}
	return t, nil
}

// List returns all templates ordered by id.
func (s *TemplateStore) List() []Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Upsert replaces the template with id by the result of fn, or inserts it when
// absent. fn receives the current template (zero value if absent) and runs under
// the store lock, so read-modify-write is atomic. It reports whether the
// template was created.
func (s *TemplateStore) Upsert(id string, fn func(current Template, exists bool) (Template, error)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.templates[id]
	next, err := fn(current, exists)
	if err != nil {
		return false, err
	}
	next.ID = id
	s.templates[id] = next
	return !exists, nil
}

// Delete removes the template with the given id.
func (s *TemplateStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return apperr.New(apperr.NotFound, "template %q not found", id)
	}
	delete(s.templates, id)
	return nil
}

// Len returns the number of templates.
func (s *TemplateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}
