package voice

import (
	"fmt"
	"strings"

	"github.com/ent0n29/vaani/internal/provider"
)

const (
	DefaultReplyMaxWords  = 50
	DefaultReplyMaxTokens = 100

	closingDirective = "Always be respectful, helpful, and culturally sensitive."
)

// BuildSystemInstruction appends the language and brevity directive and the
// closing directive to an agent's own instruction.
func BuildSystemInstruction(base, languageName string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultReplyMaxWords
	}
	if strings.TrimSpace(languageName) == "" {
		languageName = "English"
	}
	var b strings.Builder
	if base = strings.TrimSpace(base); base != "" {
		b.WriteString(base)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "(Respond in %s, keep response under %d words) %s", languageName, maxWords, closingDirective)
	return b.String()
}

// NormalizeLanguage reduces a tag to the base subtag TTS engines expect.
func NormalizeLanguage(tag string) string {
	return provider.BaseLanguage(tag)
}
