package game

import (
	"strings"

	"github.com/agext/levenshtein"
)

const (
	// minMatchLength rejects inputs too short to identify anyone.
	minMatchLength = 2
	// matchThreshold is the similarity a candidate must reach (0.3 distance).
	matchThreshold = 0.7
)

var levParams = levenshtein.NewParams()

type MatchResult struct {
	Matched    bool
	Entity     string
	Similarity float64
}

// Matcher holds a reference name list and answers "which entry, if any, does
// this input identify". It is pure: identical input and candidate set always
// yield identical output.
type Matcher struct {
	names      []string
	normalized []string
}

func NewMatcher(names []string) *Matcher {
	m := &Matcher{
		names:      make([]string, len(names)),
		normalized: make([]string, len(names)),
	}
	copy(m.names, names)
	for i, n := range names {
		m.normalized[i] = Normalize(n)
	}
	return m
}

// Match scores the input against every candidate and returns the best one,
// matched only if its similarity reaches the threshold. Candidates are
// scanned in list order and ties keep the earlier entry, so results are
// deterministic.
func (m *Matcher) Match(input string) MatchResult {
	trimmed := strings.TrimSpace(input)
	if len([]rune(trimmed)) < minMatchLength {
		return MatchResult{}
	}
	norm := Normalize(trimmed)
	if norm == "" {
		return MatchResult{}
	}

	best := -1.0
	bestIx := -1
	for i, cand := range m.normalized {
		if cand == "" {
			continue
		}
		if sim := levenshtein.Similarity(norm, cand, levParams); sim > best {
			best = sim
			bestIx = i
		}
	}
	if bestIx < 0 {
		return MatchResult{}
	}
	return MatchResult{
		Matched:    best >= matchThreshold,
		Entity:     m.names[bestIx],
		Similarity: best,
	}
}
