package agentloop

import (
	"fmt"
	"strings"
)

// BaseInstructions is the default system-prompt preamble when the caller
// supplies none.
const BaseInstructions = "You are an autonomous agent working on a task. " +
	"Use the available tools when they help, and finish with a clear, complete answer."

// SkillBlock is one unit of injected domain knowledge. Blocks come from an
// external selector, already filtered and ranked; the builder concatenates
// them verbatim.
type SkillBlock struct {
	Name         string
	Category     string
	Instructions string
}

// PromptSpec assembles a system prompt: base instructions, then an optional
// identity block, then skill blocks, in that order.
type PromptSpec struct {
	Base     string // defaults to BaseInstructions
	Identity string // optional persona text
	Skills   []SkillBlock
}

// Build renders the system prompt.
func (p PromptSpec) Build() string {
	base := p.Base
	if base == "" {
		base = BaseInstructions
	}

	var sb strings.Builder
	sb.WriteString(base)

	if p.Identity != "" {
		sb.WriteString("\n\n# Identity\n\n")
		sb.WriteString(p.Identity)
	}

	for _, skill := range p.Skills {
		header := skill.Name
		if skill.Category != "" {
			header = fmt.Sprintf("%s (%s)", skill.Name, skill.Category)
		}
		fmt.Fprintf(&sb, "\n\n# Skill: %s\n\n%s", header, skill.Instructions)
	}

	return sb.String()
}
