package contract

import (
	"encoding/json"
	"strings"
	"time"
)

type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderUser    Sender = "user"
)

func (s Sender) Valid() bool {
	return s == SenderScammer || s == SenderUser
}

// Message is one conversation turn. Immutable once appended to a history.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Metadata struct {
	Channel  string `json:"channel,omitempty"`
	Language string `json:"language,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// EngageRequest is the already-authenticated inbound payload handed to the
// session manager by the transport layer.
type EngageRequest struct {
	SessionID           string    `json:"sessionId"`
	Message             Message   `json:"message"`
	ConversationHistory []Message `json:"conversationHistory"`
	Metadata            *Metadata `json:"metadata,omitempty"`
}

// EngageResult carries the generated reply plus the session facts the
// transport layer may want to log.
type EngageResult struct {
	Reply         string `json:"reply"`
	ScamDetected  bool   `json:"scamDetected"`
	SessionClosed bool   `json:"sessionClosed"`
}

// FinalReport is built once per session and dispatched at most once.
type FinalReport struct {
	SessionID              string       `json:"sessionId"`
	ScamDetected           bool         `json:"scamDetected"`
	TotalMessagesExchanged int          `json:"totalMessagesExchanged"`
	ExtractedIntelligence  Intelligence `json:"extractedIntelligence"`
	AgentNotes             string       `json:"agentNotes"`
}

// Intelligence holds the five extraction categories. Each slice is an
// ordered set: unique entries in first-seen order. Categories only grow
// over a session's lifetime.
type Intelligence struct {
	UPIIDs             []string `json:"upiIds"`
	BankAccounts       []string `json:"bankAccounts"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	PhishingLinks      []string `json:"phishingLinks"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Merge unions other into i, preserving first-seen order per category.
func (i *Intelligence) Merge(other Intelligence) {
	i.UPIIDs = appendUnique(i.UPIIDs, other.UPIIDs)
	i.BankAccounts = appendUnique(i.BankAccounts, other.BankAccounts)
	i.PhoneNumbers = appendUnique(i.PhoneNumbers, other.PhoneNumbers)
	i.PhishingLinks = appendUnique(i.PhishingLinks, other.PhishingLinks)
	i.SuspiciousKeywords = appendUnique(i.SuspiciousKeywords, other.SuspiciousKeywords)
}

// NonEmptyHardCategories counts populated categories among the four that
// feed the end-condition. Keywords are advisory and excluded.
func (i Intelligence) NonEmptyHardCategories() int {
	n := 0
	for _, c := range [][]string{i.UPIIDs, i.BankAccounts, i.PhoneNumbers, i.PhishingLinks} {
		if len(c) > 0 {
			n++
		}
	}
	return n
}

// EmptyCategories lists the categories with no entries yet, in engagement
// priority order: payment identifiers, then contact points, then links,
// then everything else.
func (i Intelligence) EmptyCategories() []string {
	var gaps []string
	for _, c := range []struct {
		name    string
		entries []string
	}{
		{"upiIds", i.UPIIDs},
		{"bankAccounts", i.BankAccounts},
		{"phoneNumbers", i.PhoneNumbers},
		{"phishingLinks", i.PhishingLinks},
		{"suspiciousKeywords", i.SuspiciousKeywords},
	} {
		if len(c.entries) == 0 {
			gaps = append(gaps, c.name)
		}
	}
	return gaps
}

// MarshalJSON emits every category as an array. The slices stay nil until
// populated, and nil would encode as null — the outbound report schema
// promises arrays, and strict receivers reject null.
func (i Intelligence) MarshalJSON() ([]byte, error) {
	type plain Intelligence
	p := plain(i)
	p.UPIIDs = emptyIfNil(p.UPIIDs)
	p.BankAccounts = emptyIfNil(p.BankAccounts)
	p.PhoneNumbers = emptyIfNil(p.PhoneNumbers)
	p.PhishingLinks = emptyIfNil(p.PhishingLinks)
	p.SuspiciousKeywords = emptyIfNil(p.SuspiciousKeywords)
	return json.Marshal(p)
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (i Intelligence) Clone() Intelligence {
	return Intelligence{
		UPIIDs:             append([]string(nil), i.UPIIDs...),
		BankAccounts:       append([]string(nil), i.BankAccounts...),
		PhoneNumbers:       append([]string(nil), i.PhoneNumbers...),
		PhishingLinks:      append([]string(nil), i.PhishingLinks...),
		SuspiciousKeywords: append([]string(nil), i.SuspiciousKeywords...),
	}
}

func appendUnique(dst []string, add []string) []string {
	if len(add) == 0 {
		return dst
	}
	seen := make(map[string]struct{}, len(dst)+len(add))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
