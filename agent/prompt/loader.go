package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/persona.txt
var personaRaw string

// Persona returns the trimmed persona directive block handed to the
// provider as the system prompt. The embed is compile-time; safe for
// concurrent use.
func Persona() string {
	return strings.TrimSpace(personaRaw)
}
