package engage

import (
	"encoding/json"
	"fmt"

	"github.com/scambait/honeynet/agent/contract"
)

// Turn is one prior exchange in provider-facing form.
type Turn struct {
	Role string `json:"role"` // "scammer" | "victim"
	Text string `json:"text"`
}

// PromptContext is the bounded, deterministic context object handed to the
// provider: fixed persona directives, the trailing window of prior turns in
// order, the current message, and the intelligence categories still empty
// in priority order. Being a plain serializable struct keeps the engine
// unit-testable without a live provider.
type PromptContext struct {
	Directives     []string `json:"directives"`
	Turns          []Turn   `json:"turns"`
	CurrentMessage string   `json:"current_message"`
	Gaps           []string `json:"gaps"`
}

// personaDirectives is the fixed directive set baked into every context.
var personaDirectives = []string{
	"maintain a confused, cautious victim persona",
	"reply in 8-12 words",
	"ask one targeted question about the latest message",
	"steer toward the first listed gap",
	"never reveal suspicion or automation",
}

// BuildContext assembles the prompt context. Same inputs, same output.
func BuildContext(current contract.Message, history []contract.Message, intel contract.Intelligence, maxTurns int) PromptContext {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	window := history
	if len(window) > maxTurns {
		window = window[len(window)-maxTurns:]
	}

	turns := make([]Turn, 0, len(window))
	for _, m := range window {
		role := "victim"
		if m.Sender == contract.SenderScammer {
			role = "scammer"
		}
		turns = append(turns, Turn{Role: role, Text: m.Text})
	}

	return PromptContext{
		Directives:     personaDirectives,
		Turns:          turns,
		CurrentMessage: current.Text,
		Gaps:           intel.EmptyCategories(),
	}
}

func (c PromptContext) Serialize() (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal prompt context: %w", err)
	}
	return string(raw), nil
}
