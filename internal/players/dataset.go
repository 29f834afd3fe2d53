// Package players loads the read-only reference dataset of valid footballer
// names. The file maps team -> era -> names; the game only ever asks for the
// deduplicated name list of one mode.
package players

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"azfootball/internal/game"
)

const (
	ModeLegacy = "legacy"
	ModeModern = "modern"
)

// Store holds the per-mode name lists and lazily-built matchers.
type Store struct {
	mu       sync.Mutex
	byMode   map[string][]string
	matchers map[string]*game.Matcher
}

// Load reads the dataset file. The format is
// {"Team": {"legacy": ["..."], "modern": ["..."]}, ...}.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var db map[string]map[string][]string
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	byMode := make(map[string][]string)
	for _, mode := range []string{ModeLegacy, ModeModern} {
		seen := make(map[string]struct{})
		names := make([]string, 0)
		for _, team := range db {
			for _, name := range team[mode] {
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
		sort.Strings(names)
		byMode[mode] = names
	}

	return &Store{
		byMode:   byMode,
		matchers: make(map[string]*game.Matcher),
	}, nil
}

// Names returns the deduplicated, sorted name list for a mode.
func (s *Store) Names(mode string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names, ok := s.byMode[mode]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return names, nil
}

// MatcherFor returns the fuzzy matcher for a mode, building it on first use.
// Unknown modes get nil, which puts rooms in degraded validation mode.
func (s *Store) MatcherFor(mode string) *game.Matcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matchers[mode]; ok {
		return m
	}
	names, ok := s.byMode[mode]
	if !ok {
		return nil
	}
	m := game.NewMatcher(names)
	s.matchers[mode] = m
	return m
}
