package agentloop

import (
	"strings"
	"testing"
)

func TestPromptSpecDefaults(t *testing.T) {
	got := PromptSpec{}.Build()
	if got != BaseInstructions {
		t.Errorf("empty spec should render the base instructions: %q", got)
	}
}

func TestPromptSpecOrdering(t *testing.T) {
	got := PromptSpec{
		Base:     "Base rules.",
		Identity: "You are Ada.",
		Skills: []SkillBlock{
			{Name: "sql", Category: "data", Instructions: "Prefer CTEs."},
			{Name: "go", Instructions: "Run gofmt."},
		},
	}.Build()

	// Base, then identity, then skills, in order.
	base := strings.Index(got, "Base rules.")
	identity := strings.Index(got, "You are Ada.")
	first := strings.Index(got, "Prefer CTEs.")
	second := strings.Index(got, "Run gofmt.")
	if base == -1 || identity == -1 || first == -1 || second == -1 {
		t.Fatalf("missing sections: %q", got)
	}
	if !(base < identity && identity < first && first < second) {
		t.Errorf("sections out of order: %q", got)
	}
	if !strings.Contains(got, "# Skill: sql (data)") {
		t.Errorf("category missing from skill header: %q", got)
	}
	if !strings.Contains(got, "# Skill: go\n") {
		t.Errorf("uncategorized skill header wrong: %q", got)
	}
}

func TestPromptSpecVerbatimSkills(t *testing.T) {
	instructions := "Line one.\n  Indented line.\n\nBlank-separated."
	got := PromptSpec{Skills: []SkillBlock{{Name: "fmt", Instructions: instructions}}}.Build()
	if !strings.Contains(got, instructions) {
		t.Errorf("skill instructions must be concatenated verbatim: %q", got)
	}
}
