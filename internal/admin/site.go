// Package admin is the small admin-site framework the shop configurators are
// declared against: a registry of model admins, capability strategies, form
// binding and changelist paging.
package admin

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrAlreadyRegistered = errors.New("model already registered")
	ErrNotRegistered     = errors.New("model not registered")
)

// Entry is one registered model as listed on the admin index.
type Entry struct {
	Name        string `json:"name"`
	VerboseName string `json:"verbose_name"`
	Polymorphic bool   `json:"polymorphic"`
}

// Site is an explicit registry, built once in the composition root and
// handed to the HTTP layer. There is no package-level default site.
type Site struct {
	Title   string
	models  map[string]*ModelAdmin
	parents map[string]*ParentAdmin
}

func NewSite(title string) *Site {
	return &Site{
		Title:   title,
		models:  map[string]*ModelAdmin{},
		parents: map[string]*ParentAdmin{},
	}
}

func (s *Site) taken(name string) bool {
	_, m := s.models[name]
	_, p := s.parents[name]
	return m || p
}

func (s *Site) Register(name string, m *ModelAdmin) error {
	if s.taken(name) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	if m.Name == "" {
		m.Name = name
	}
	s.models[name] = m
	return nil
}

func (s *Site) RegisterParent(name string, p *ParentAdmin) error {
	if s.taken(name) {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}
	if p.Name == "" {
		p.Name = name
	}
	s.parents[name] = p
	return nil
}

func (s *Site) Lookup(name string) (*ModelAdmin, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return m, nil
}

func (s *Site) LookupParent(name string) (*ParentAdmin, error) {
	p, ok := s.parents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return p, nil
}

// Models returns the admin index sorted by name.
func (s *Site) Models() []Entry {
	out := make([]Entry, 0, len(s.models)+len(s.parents))
	for name, m := range s.models {
		out = append(out, Entry{Name: name, VerboseName: m.VerboseName})
	}
	for name, p := range s.parents {
		out = append(out, Entry{Name: name, VerboseName: p.VerboseName, Polymorphic: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
