// Package intel extracts structured intelligence from a conversation:
// payment identifiers, contact points, phishing links and tactic keywords.
// Extraction is pure; merging into a session is a monotonic union handled
// by contract.Intelligence.
package intel

import (
	"regexp"
	"sort"
	"strings"

	"github.com/scambait/honeynet/agent/contract"
)

var (
	upiPattern      = regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9.\-]*@[a-zA-Z0-9][a-zA-Z0-9.\-]*\b`)
	digitRunPattern = regexp.MustCompile(`\b\d{10,18}\b`)
	phonePlusRE     = regexp.MustCompile(`\+91[\s\-]?\d{10}`)
	linkPattern     = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
)

// emailTLDs marks address-shaped tokens that are ordinary e-mail addresses
// rather than UPI handles.
var emailTLDs = []string{".com", ".org", ".net"}

// Config holds the keyword list. The list is broader than the detector's
// indicator phrases; the configured keyword itself (not the raw text span)
// is what gets collected.
type Config struct {
	SuspiciousKeywords []string
}

func DefaultConfig() Config {
	return Config{
		SuspiciousKeywords: []string{
			"urgent", "immediately", "verify", "suspend", "blocked", "expire",
			"account", "bank", "kyc", "pan", "aadhar", "otp", "password",
			"prize", "winner", "congratulations", "claim", "reward",
			"arrest", "legal", "court", "police", "tax", "fine",
		},
	}
}

type Extractor struct {
	keywords []keywordMatcher
}

type keywordMatcher struct {
	keyword string
	re      *regexp.Regexp
}

func New(cfg Config) *Extractor {
	matchers := make([]keywordMatcher, 0, len(cfg.SuspiciousKeywords))
	for _, kw := range cfg.SuspiciousKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		matchers = append(matchers, keywordMatcher{
			keyword: kw,
			re:      regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}
	return &Extractor{keywords: matchers}
}

// Extract runs every category's pattern search over the conversation. The
// corpus is all message texts, both senders, joined in arrival order, so
// first-seen ordering is stable across calls.
func (e *Extractor) Extract(history []contract.Message) contract.Intelligence {
	texts := make([]string, 0, len(history))
	for _, m := range history {
		texts = append(texts, m.Text)
	}
	corpus := strings.Join(texts, " ")

	phones, banks := e.classifyNumbers(corpus)
	out := contract.Intelligence{
		PhoneNumbers: phones,
		BankAccounts: banks,
	}
	out.UPIIDs = dedupe(e.extractUPIs(corpus))
	out.PhishingLinks = dedupe(linkPattern.FindAllString(corpus, -1))
	out.SuspiciousKeywords = e.extractKeywords(corpus)
	return out
}

func (e *Extractor) extractUPIs(corpus string) []string {
	var upis []string
	for _, tok := range upiPattern.FindAllString(corpus, -1) {
		if isEmailLike(tok) {
			continue
		}
		upis = append(upis, tok)
	}
	return upis
}

func isEmailLike(token string) bool {
	lower := strings.ToLower(token)
	for _, tld := range emailTLDs {
		if strings.HasSuffix(lower, tld) {
			return true
		}
	}
	return false
}

// classifyNumbers walks every candidate in corpus order and applies the
// phone/bank tie-break per matched digit run: a run is a phone number only
// if it independently satisfies the phone shape (10 digits, first digit
// 6-9); any other run of 10-18 digits is a bank account. +91-prefixed
// matches are always phones.
func (e *Extractor) classifyNumbers(corpus string) (phones, banks []string) {
	type candidate struct {
		pos   int
		text  string
		phone bool
	}
	var cands []candidate

	plusSpans := phonePlusRE.FindAllStringIndex(corpus, -1)
	for _, loc := range plusSpans {
		cands = append(cands, candidate{pos: loc[0], text: corpus[loc[0]:loc[1]], phone: true})
	}
	for _, loc := range digitRunPattern.FindAllStringIndex(corpus, -1) {
		if insideAny(loc[0], plusSpans) {
			// The run is the tail of a +91 match already collected.
			continue
		}
		run := corpus[loc[0]:loc[1]]
		cands = append(cands, candidate{pos: loc[0], text: run, phone: isMobileRun(run)})
	}

	sort.SliceStable(cands, func(a, b int) bool { return cands[a].pos < cands[b].pos })

	for _, c := range cands {
		if c.phone {
			phones = append(phones, c.text)
		} else {
			banks = append(banks, c.text)
		}
	}
	return dedupe(phones), dedupe(banks)
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

func isMobileRun(run string) bool {
	return len(run) == 10 && run[0] >= '6' && run[0] <= '9'
}

// extractKeywords returns the configured keywords present in the corpus,
// ordered by first occurrence.
func (e *Extractor) extractKeywords(corpus string) []string {
	type hit struct {
		keyword string
		pos     int
	}
	var hits []hit
	for _, m := range e.keywords {
		loc := m.re.FindStringIndex(corpus)
		if loc == nil {
			continue
		}
		hits = append(hits, hit{keyword: m.keyword, pos: loc[0]})
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.keyword)
	}
	return out
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
