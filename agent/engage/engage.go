// Package engage generates persona replies. The provider boundary is
// absorbing: any provider failure, timeout or fully-sanitized output falls
// back to a neutral reply pool, so reply generation itself never fails a
// request.
package engage

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/scambait/honeynet/agent/contract"
	"github.com/scambait/honeynet/agent/prompt"
)

const defaultMaxTurns = 6

// sentencePattern splits raw replies on terminal punctuation, keeping the
// punctuation with each sentence.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Config tunes the agent. Zero values take the stock defaults.
type Config struct {
	// MaxTurns bounds the prior-turn window in the prompt context.
	MaxTurns int
	// ForbiddenWords must never appear in a reply; any sentence
	// containing one is dropped (case-insensitive whole-word match).
	ForbiddenWords []string
	// FallbackReplies is the neutral reply pool, rotated per session.
	FallbackReplies []string
}

func DefaultConfig() Config {
	return Config{
		MaxTurns: defaultMaxTurns,
		ForbiddenWords: []string{
			"scam", "fraud", "suspicious", "ai", "fake", "bot", "honeypot",
		},
		FallbackReplies: []string{
			"I'm confused. What exactly should I do?",
			"Can you give me your contact number to verify this?",
			"Which organization is this? How can I confirm it's real?",
			"I need help understanding this. What's your contact number?",
		},
	}
}

type Agent struct {
	provider  contract.Provider
	persona   string
	maxTurns  int
	forbidden []*regexp.Regexp
	fallbacks []string
}

func New(provider contract.Provider, cfg Config) *Agent {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	fallbacks := cfg.FallbackReplies
	if len(fallbacks) == 0 {
		fallbacks = DefaultConfig().FallbackReplies
	}

	forbidden := make([]*regexp.Regexp, 0, len(cfg.ForbiddenWords))
	for _, w := range cfg.ForbiddenWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		forbidden = append(forbidden, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}

	return &Agent{
		provider:  provider,
		persona:   prompt.Persona(),
		maxTurns:  maxTurns,
		forbidden: forbidden,
		fallbacks: fallbacks,
	}
}

// GenerateReply builds the bounded context, calls the provider, sanitizes
// the raw text, and falls back on any failure. nextFallback supplies the
// session's rotation counter so repeated fallbacks cycle through the pool.
// The returned reply is always non-empty.
func (a *Agent) GenerateReply(
	ctx context.Context,
	current contract.Message,
	history []contract.Message,
	intel contract.Intelligence,
	nextFallback func() int,
) string {
	pc := BuildContext(current, history, intel, a.maxTurns)
	input, err := pc.Serialize()
	if err != nil {
		log.Error().Err(err).Msg("serialize prompt context")
		return a.fallback(nextFallback)
	}

	raw, err := a.provider.Complete(ctx, a.persona, input)
	if err != nil {
		log.Warn().Err(err).Msg("provider failed, using fallback reply")
		return a.fallback(nextFallback)
	}

	reply := a.Sanitize(raw)
	if reply == "" {
		log.Warn().Msg("reply fully sanitized, using fallback reply")
		return a.fallback(nextFallback)
	}
	return reply
}

// Sanitize drops every sentence containing a forbidden word and rejoins
// the rest. An empty result signals the caller to take the fallback path.
func (a *Agent) Sanitize(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" {
		return ""
	}

	var kept []string
	for _, sentence := range sentencePattern.FindAllString(raw, -1) {
		if a.containsForbidden(sentence) {
			continue
		}
		trimmed := strings.TrimSpace(sentence)
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}

func (a *Agent) containsForbidden(sentence string) bool {
	for _, re := range a.forbidden {
		if re.MatchString(sentence) {
			return true
		}
	}
	return false
}

func (a *Agent) fallback(next func() int) string {
	return a.fallbacks[next()%len(a.fallbacks)]
}
