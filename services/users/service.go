// Package users keeps the local viewer profiles whose IDs key watch
// progress. Profiles are a flat JSON file; there is no authentication here,
// only identity.
package users

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const storeName = "profiles.json"

var (
	ErrNameRequired    = errors.New("profile name is required")
	ErrProfileNotFound = errors.New("profile not found")
)

// Profile is one local viewer identity.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

// Service manages profiles behind a mutex, rewriting the backing file on
// every mutation.
type Service struct {
	mu       sync.RWMutex
	fs       afero.Fs
	path     string
	profiles map[string]Profile
}

func NewService(fsys afero.Fs, dir string) (*Service, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}

	s := &Service{
		fs:       fsys,
		path:     filepath.Join(dir, storeName),
		profiles: make(map[string]Profile),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) load() error {
	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("stat profiles store: %w", err)
	}
	if !exists {
		return nil
	}

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("read profiles store: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var decoded map[string]Profile
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode profiles store: %w", err)
	}
	s.profiles = decoded
	return nil
}

func (s *Service) saveLocked() error {
	data, err := json.MarshalIndent(s.profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles store: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o644); err != nil {
		return fmt.Errorf("write profiles store: %w", err)
	}
	return nil
}

// Create registers a new profile and returns it with a fresh ID.
func (s *Service) Create(name string) (Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Profile{}, ErrNameRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := Profile{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	s.profiles[p.ID] = p
	if err := s.saveLocked(); err != nil {
		delete(s.profiles, p.ID)
		return Profile{}, err
	}

	log.Printf("[users] created profile %s (%s)", p.Name, p.ID)
	return p, nil
}

// List returns all profiles, oldest first.
func (s *Service) List() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt == out[j].CreatedAt {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt < out[j].CreatedAt
	})
	return out
}

// Get returns the profile for id.
func (s *Service) Get(id string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrProfileNotFound
	}
	return p, nil
}

// Exists reports whether a profile with id is registered.
func (s *Service) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.profiles[id]
	return ok
}

// Delete removes a profile. Deleting an unknown ID is an error so callers
// can surface the 404.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return ErrProfileNotFound
	}
	delete(s.profiles, id)
	return s.saveLocked()
}
