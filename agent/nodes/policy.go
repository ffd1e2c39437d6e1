package nodes

import "github.com/scambait/honeynet/agent/state"

// Thresholds are the end-condition knobs. Zero values take the defaults.
type Thresholds struct {
	// MaxMessages closes the session once the history reaches this many
	// accepted messages.
	MaxMessages int
	// IntelTargets closes the session once this many of the four hard
	// intelligence categories (upiIds, bankAccounts, phoneNumbers,
	// phishingLinks) are populated.
	IntelTargets int
}

const (
	DefaultMaxMessages  = 20
	DefaultIntelTargets = 2
)

func (t Thresholds) withDefaults() Thresholds {
	if t.MaxMessages <= 0 {
		t.MaxMessages = DefaultMaxMessages
	}
	if t.IntelTargets <= 0 {
		t.IntelTargets = DefaultIntelTargets
	}
	return t
}

// ShouldClose is the end-condition: a pure predicate over current session
// state, re-evaluated after every update.
func ShouldClose(s *state.Session, t Thresholds) bool {
	t = t.withDefaults()
	if len(s.History) >= t.MaxMessages {
		return true
	}
	return s.Intelligence.NonEmptyHardCategories() >= t.IntelTargets
}
