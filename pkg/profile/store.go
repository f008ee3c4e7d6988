package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/anjeleno/rdx-rivendell/pkg/logging"
)

var (
	// ErrUnknownProfile means the named profile is not in the store.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrProtectedProfile means the default profile cannot be deleted.
	ErrProtectedProfile = errors.New("the default profile cannot be deleted")
)

// Store is the keyed mapping of profile names to profiles, loaded from and
// persisted to jack-profiles.xml. Mutations rewrite the file atomically.
type Store struct {
	path string
	log  logging.Logger

	mu       sync.RWMutex
	profiles map[string]*Profile
}

// DefaultPath returns $XDG_CONFIG_HOME/rdx-jack/jack-profiles.xml,
// falling back to ~/.config.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rdx-jack", "jack-profiles.xml")
}

// Open loads the store from path, synthesizing the default and
// live-broadcast profiles (and writing the file) on first run.
func Open(path string, log logging.Logger) (*Store, error) {
	s := &Store{
		path:     path,
		log:      log.With(logging.Component("profiles")),
		profiles: make(map[string]*Profile),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		for _, p := range seedDefaults() {
			s.profiles[p.Name] = p
		}
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("seed profile store: %w", err)
		}
		s.log.Info("profile store seeded", logging.Path(path))
	case err != nil:
		return nil, fmt.Errorf("read profile store: %w", err)
	default:
		loaded, err := decodeProfiles(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, p := range loaded {
			s.profiles[p.Name] = p
		}
		// The default profile must always exist, even after hand edits.
		if _, ok := s.profiles[DefaultProfileName]; !ok {
			s.profiles[DefaultProfileName] = seedDefaults()[0]
		}
	}
	return s, nil
}

// Get returns a copy of the named profile.
func (s *Store) Get(name string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	return p.Clone(), nil
}

// List returns copies of every profile, sorted by name.
func (s *Store) List() []*Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]*Profile, 0, len(names))
	for _, n := range names {
		out = append(out, s.profiles[n].Clone())
	}
	return out
}

// Names returns the profile names, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Save validates and stores a profile, creating or overwriting, and
// rewrites the file.
func (s *Store) Save(p *Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid profile %q: %w", p.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Name] = p.Clone()
	return s.persistLocked()
}

// Delete removes a profile. The default profile is protected.
func (s *Store) Delete(name string) error {
	if name == DefaultProfileName {
		return ErrProtectedProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	delete(s.profiles, name)
	return s.persistLocked()
}

// persistLocked writes the document to a temp file in the same directory
// and renames it over the store, so a crash never leaves a torn file.
func (s *Store) persistLocked() error {
	profiles := make([]*Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	data, err := encodeProfiles(profiles)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".jack-profiles-*.xml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
