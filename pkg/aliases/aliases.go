package aliases

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Resolver resolves a public model alias to an upstream model
// identifier.
type Resolver interface {
	Resolve(alias string) string
}

// ModelEntry is one row of the models file.
type ModelEntry struct {
	// Alias is the public name clients put in request bodies.
	Alias string `yaml:"alias"`

	// Provider owns the upstream model. Optional when Model already
	// carries a provider prefix.
	Provider string `yaml:"provider"`

	// Model is the upstream model identifier, with or without a
	// provider prefix.
	Model string `yaml:"model"`
}

// ModelsFile is the on-disk shape of the models configuration.
type ModelsFile struct {
	Models []ModelEntry `yaml:"models"`
}

// Lookup maps public aliases to upstream model identifiers. Upstream
// identifiers always carry a provider prefix ("openai/gpt-4o"). A
// Lookup is built once and read-only afterwards.
type Lookup map[string]string

// Resolve returns the upstream model for an alias. Unknown aliases
// resolve to themselves.
func (l Lookup) Resolve(alias string) string {
	if upstream, ok := l[alias]; ok {
		return upstream
	}
	return alias
}

// BuildLookup validates entries and builds the alias map. Aliases must
// be unique and non-empty; every upstream identifier must end up with
// a provider prefix, either from the entry's provider field or already
// present in the model field.
func BuildLookup(entries []ModelEntry) (Lookup, error) {
	lookup := make(Lookup, len(entries))

	for i, entry := range entries {
		if entry.Alias == "" {
			return nil, fmt.Errorf("model entry %d: alias cannot be empty", i)
		}
		if entry.Model == "" {
			return nil, fmt.Errorf("model entry %q: model cannot be empty", entry.Alias)
		}
		if _, exists := lookup[entry.Alias]; exists {
			return nil, fmt.Errorf("duplicate alias %q", entry.Alias)
		}

		upstream := entry.Model
		if !strings.Contains(upstream, "/") {
			if entry.Provider == "" {
				return nil, fmt.Errorf("model entry %q: provider required when model %q has no provider prefix", entry.Alias, entry.Model)
			}
			upstream = strings.ToLower(entry.Provider) + "/" + upstream
		}

		lookup[entry.Alias] = upstream
	}

	return lookup, nil
}

// LoadFile reads and parses a models file into a Lookup.
func LoadFile(path string) (Lookup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	var file ModelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse models file: %w", err)
	}

	lookup, err := BuildLookup(file.Models)
	if err != nil {
		return nil, fmt.Errorf("invalid models file: %w", err)
	}

	return lookup, nil
}

// Store holds the current Lookup and allows swapping it at runtime.
// It implements Resolver and is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	lookup Lookup
}

// NewStore creates a store around an initial lookup. A nil lookup is
// treated as empty.
func NewStore(lookup Lookup) *Store {
	if lookup == nil {
		lookup = Lookup{}
	}
	return &Store{lookup: lookup}
}

// Resolve returns the upstream model for an alias using the current
// lookup.
func (s *Store) Resolve(alias string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup.Resolve(alias)
}

// Replace swaps in a new lookup. In-flight Resolve calls finish
// against the old one.
func (s *Store) Replace(lookup Lookup) {
	if lookup == nil {
		lookup = Lookup{}
	}
	s.mu.Lock()
	s.lookup = lookup
	s.mu.Unlock()
}

// Snapshot returns a copy of the current lookup.
func (s *Store) Snapshot() Lookup {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make(Lookup, len(s.lookup))
	for alias, upstream := range s.lookup {
		snapshot[alias] = upstream
	}
	return snapshot
}

// Len reports the number of configured aliases.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lookup)
}
