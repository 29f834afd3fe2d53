package game

import "strings"

type Reason string

const (
	ReasonNone        Reason = ""
	ReasonEmpty       Reason = "empty"
	ReasonWrongLetter Reason = "wrong_letter"
	ReasonAlreadyUsed Reason = "already_used"
	ReasonNotFound    Reason = "not_found"
)

// Verdict is the outcome of validating one submitted answer. Validation
// outcomes are data, not errors; an invalid answer is a normal result.
type Verdict struct {
	Valid         bool
	Reason        Reason
	MatchedEntity string
}

// Normalize folds a name for comparison: lowercase, letters and spaces only,
// collapsed whitespace.
func Normalize(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// namesConflict reports whether two normalized names count as the same
// answer. Exact matches always conflict; for longer names, sharing a word
// (or one word containing the other) conflicts too, which catches reusing a
// surname after the full name was already played.
func namesConflict(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) <= 3 || len(b) <= 3 {
		return false
	}
	for _, ta := range strings.Fields(a) {
		if len(ta) <= 2 {
			continue
		}
		for _, tb := range strings.Fields(b) {
			if len(tb) <= 2 {
				continue
			}
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				return true
			}
		}
	}
	return false
}

func conflictsWithUsed(norm string, used []string) bool {
	for _, u := range used {
		if namesConflict(norm, u) {
			return true
		}
	}
	return false
}

// Validate decides whether input is an acceptable answer for the active
// letter. Checks run in order and short-circuit on the first failure. A nil
// matcher is the degraded mode used when no reference dataset is available:
// entity recognition is skipped and the trimmed input stands in for the
// matched name.
func Validate(input string, letter byte, used []string, m *Matcher) Verdict {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Verdict{Reason: ReasonEmpty}
	}
	if !strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(string(letter))) {
		return Verdict{Reason: ReasonWrongLetter}
	}
	norm := Normalize(trimmed)
	if conflictsWithUsed(norm, used) {
		return Verdict{Reason: ReasonAlreadyUsed}
	}
	if m == nil {
		return Verdict{Valid: true, MatchedEntity: trimmed}
	}
	res := m.Match(trimmed)
	if !res.Matched {
		return Verdict{Reason: ReasonNotFound}
	}
	if conflictsWithUsed(Normalize(res.Entity), used) {
		return Verdict{Reason: ReasonAlreadyUsed}
	}
	return Verdict{Valid: true, MatchedEntity: res.Entity}
}
