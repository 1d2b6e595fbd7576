package persona

import (
	"fmt"
	"strings"

	"github.com/0muji4/persona-prompt/internal/document"
)

// BuildPrompt flattens a persona document into a system prompt. Sections
// appear in a fixed order and empty sections are left out. A document that
// renders no section at all is rejected with ErrValidation.
func BuildPrompt(doc *document.Node) (string, error) {
	persona := section(doc, "persona")
	identity := section(doc, "identity")
	behavior := section(doc, "behavior")
	languages := section(doc, "languages")
	memory := section(doc, "memory")

	sections := []string{
		formatHeader(persona),
		formatBlock("Identity", identity.Get("description")),
		formatList("Core traits", identity.Get("core_traits")),
		formatList("Behavior rules", behavior.Get("general_rules")),
		formatPairs("Interaction style", behavior.Get("interaction_style")),
		formatList("Supported languages", languages.Get("supported")),
		formatList("Language rules", languages.Get("rules")),
		formatFlexible("Short-term memory", memory.Get("short_term")),
		formatFlexible("Long-term memory", memory.Get("long_term")),
		formatList("Memory rules", memory.Get("rules")),
	}

	var out []string
	for _, s := range sections {
		if s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return "", fmt.Errorf("persona document did not produce a prompt; check required fields: %w", ErrValidation)
	}
	return strings.Join(out, "\n\n"), nil
}

// section returns a top-level mapping, or nil when absent or of another shape.
func section(doc *document.Node, key string) *document.Node {
	n := doc.Get(key)
	if n == nil || n.Kind != document.Mapping {
		return nil
	}
	return n
}

func formatHeader(persona *document.Node) string {
	var bits []string
	for _, key := range []string{"name", "role", "id"} {
		if s := strings.TrimSpace(persona.Get(key).Inline()); s != "" {
			bits = append(bits, s)
		}
	}
	if len(bits) == 0 {
		return ""
	}
	return "Persona: " + strings.Join(bits, ", ")
}

func formatBlock(title string, n *document.Node) string {
	body := strings.TrimSpace(n.Inline())
	if body == "" {
		return ""
	}
	return title + ":\n" + body
}

func formatList(title string, n *document.Node) string {
	if n.IsEmpty() {
		return ""
	}
	items := []*document.Node{n}
	if n.Kind == document.Sequence {
		items = n.Items
	}
	var lines []string
	for _, item := range items {
		if s := item.Inline(); s != "" {
			lines = append(lines, s)
		}
	}
	return bulleted(title, lines)
}

func formatPairs(title string, n *document.Node) string {
	if n.IsEmpty() || n.Kind != document.Mapping {
		return ""
	}
	var lines []string
	for _, p := range n.Pairs {
		if v := p.Value.Inline(); v != "" {
			lines = append(lines, p.Key+": "+v)
		}
	}
	return bulleted(title, lines)
}

// formatFlexible renders a value that may be a mapping, a sequence or a scalar.
func formatFlexible(title string, n *document.Node) string {
	if n.IsNull() {
		return ""
	}
	switch n.Kind {
	case document.Mapping:
		return formatPairs(title, n)
	case document.Sequence:
		return formatList(title, n)
	default:
		return formatBlock(title, n)
	}
}

func bulleted(title string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return title + ":\n- " + strings.Join(lines, "\n- ")
}
