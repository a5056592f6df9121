package vfs

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/joe/twinpane/pkg/errors"
)

// Registry maps backend ids to backends.
// It is populated once at startup and frozen; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	frozen   bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend. Duplicate ids and registration after Freeze are rejected.
func (r *Registry) Register(backend Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := backend.Metadata().ID

	if r.frozen {
		return errors.Newf(errors.KindValidation, "register", id, "registry is frozen")
	}

	if id == "" {
		return errors.Newf(errors.KindValidation, "register", "", "backend id is empty")
	}

	if _, exists := r.backends[id]; exists {
		return errors.Newf(errors.KindConflict, "register", id, "backend %q already registered", id)
	}

	r.backends[id] = backend

	return nil
}

// MustRegister registers every backend and panics on the first error.
func (r *Registry) MustRegister(backends ...Backend) {
	for _, backend := range backends {
		if err := r.Register(backend); err != nil {
			panic(err)
		}
	}
}

// Freeze closes the registry to further registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.frozen = true
}

// Get returns the backend registered under id.
func (r *Registry) Get(id string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.backends[id]

	return backend, ok
}

// All returns the metadata of every registered backend, sorted by id.
func (r *Registry) All() []Metadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Metadata, 0, len(r.backends))
	for _, backend := range r.backends {
		all = append(all, backend.Metadata())
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	return all
}

// Resolver resolves a profile id to the profile and the backend serving it.
type Resolver interface {
	Resolve(profileID string) (Profile, Backend, error)
}

// Profiles is the source profile registry.
type Profiles struct {
	registry *Registry
	order    []string
	byID     map[string]Profile
}

// NewProfiles validates and registers profiles against the backend registry.
// Every profile needs a unique id, a registered backend and every config key the
// backend declares. Empty values are allowed.
func NewProfiles(registry *Registry, profiles ...Profile) (*Profiles, error) {
	p := &Profiles{
		registry: registry,
		byID:     make(map[string]Profile, len(profiles)),
	}

	for _, profile := range profiles {
		if err := p.add(profile); err != nil {
			return nil, err
		}
	}

	return p, nil
}

func (p *Profiles) add(profile Profile) error {
	if profile.ID == "" {
		return errors.Newf(errors.KindValidation, "profile", "", "profile id is empty")
	}

	if _, exists := p.byID[profile.ID]; exists {
		return errors.Newf(errors.KindConflict, "profile", profile.ID, "duplicate profile id %q", profile.ID)
	}

	backend, ok := p.registry.Get(profile.BackendID)
	if !ok {
		return errors.Newf(errors.KindValidation, "profile", profile.ID,
			"unknown backend %q", profile.BackendID)
	}

	for _, field := range backend.Metadata().ConfigFields {
		if _, present := profile.Config[field]; !present {
			return errors.Newf(errors.KindValidation, "profile", profile.ID,
				"missing config field %q required by backend %q", field, profile.BackendID)
		}
	}

	p.byID[profile.ID] = profile.clone()
	p.order = append(p.order, profile.ID)

	return nil
}

// Get returns the profile registered under id.
func (p *Profiles) Get(id string) (Profile, bool) {
	profile, ok := p.byID[id]
	if !ok {
		return Profile{}, false
	}

	return profile.clone(), true
}

// All returns every profile in declaration order.
func (p *Profiles) All() []Profile {
	all := make([]Profile, 0, len(p.order))
	for _, id := range p.order {
		all = append(all, p.byID[id].clone())
	}

	return all
}

// IDs returns every profile id in declaration order.
func (p *Profiles) IDs() []string {
	return append([]string(nil), p.order...)
}

// Resolve implements Resolver.
func (p *Profiles) Resolve(profileID string) (Profile, Backend, error) {
	profile, ok := p.byID[profileID]
	if !ok {
		return Profile{}, nil, errors.New(errors.KindValidation, "resolve", profileID,
			fmt.Errorf("unknown profile %q", profileID)) //nolint:err113 // dynamic id
	}

	backend, ok := p.registry.Get(profile.BackendID)
	if !ok {
		return Profile{}, nil, errors.Newf(errors.KindValidation, "resolve", profileID,
			"backend %q is not registered", profile.BackendID)
	}

	return profile.clone(), backend, nil
}

// clone copies the config map so callers never share the registry's copy.
func (p Profile) clone() Profile {
	p.Config = maps.Clone(p.Config)
	if p.Config == nil {
		p.Config = map[string]string{}
	}

	return p
}
