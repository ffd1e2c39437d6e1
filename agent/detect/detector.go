// Package detect classifies a single message as a scam attempt. The
// decision is pure and deterministic: case-insensitive substring matching
// against configured phrase lists, no state, no side effects.
package detect

import "strings"

// Config carries the phrase lists. Matching is done on lowercased text, so
// the lists may be supplied in any case.
type Config struct {
	// Indicators are the scam indicator phrases. Each distinct phrase
	// counts at most once no matter how often it repeats; two phrases that
	// overlap in the text both count.
	Indicators []string
	// UrgencyWords and FinancialWords feed the secondary rule: a message
	// containing at least one of each is classified as a scam even below
	// the indicator threshold.
	UrgencyWords   []string
	FinancialWords []string
	// MinIndicators is the indicator count threshold. Zero means the
	// default of 2.
	MinIndicators int
}

// DefaultConfig returns the stock phrase lists.
func DefaultConfig() Config {
	return Config{
		Indicators: []string{
			"account blocked", "verify immediately", "suspend", "kyc update",
			"prize winner", "claim reward", "urgent action", "otp",
			"bank details", "upi id", "arrest warrant", "legal notice",
			"tax pending", "refund", "click here", "password",
		},
		UrgencyWords:   []string{"urgent", "immediately", "now", "today"},
		FinancialWords: []string{"account", "bank", "upi", "pay", "transfer"},
		MinIndicators:  2,
	}
}

type Detector struct {
	indicators    []string
	urgency       []string
	financial     []string
	minIndicators int
}

func New(cfg Config) *Detector {
	minIndicators := cfg.MinIndicators
	if minIndicators <= 0 {
		minIndicators = 2
	}
	return &Detector{
		indicators:    lowerAll(cfg.Indicators),
		urgency:       lowerAll(cfg.UrgencyWords),
		financial:     lowerAll(cfg.FinancialWords),
		minIndicators: minIndicators,
	}
}

// IsScam reports whether text looks like a scam attempt:
// indicatorCount >= threshold, or urgency and financial cues co-occur.
func (d *Detector) IsScam(text string) bool {
	lower := strings.ToLower(text)

	count := 0
	for _, phrase := range d.indicators {
		if strings.Contains(lower, phrase) {
			count++
		}
	}
	if count >= d.minIndicators {
		return true
	}
	return containsAny(lower, d.urgency) && containsAny(lower, d.financial)
}

func containsAny(lower string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
