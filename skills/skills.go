// Package skills loads knowledge files and selects the ones relevant to a
// task. A skill file is markdown with a YAML frontmatter block carrying
// name, category, and description; the body is free-text instructions
// injected verbatim into the agent's system prompt.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Skill is one loaded knowledge block.
type Skill struct {
	Name         string `yaml:"name"`
	Category     string `yaml:"category"`
	Description  string `yaml:"description"`
	Instructions string `yaml:"-"`
}

const frontmatterDelimiter = "---"

// Parse splits a skill file into frontmatter and instructions.
func Parse(content string) (Skill, error) {
	var skill Skill

	rest, found := strings.CutPrefix(content, frontmatterDelimiter+"\n")
	if !found {
		return skill, fmt.Errorf("skill file has no frontmatter block")
	}
	frontmatter, body, found := strings.Cut(rest, "\n"+frontmatterDelimiter)
	if !found {
		return skill, fmt.Errorf("skill frontmatter is not terminated")
	}

	if err := yaml.Unmarshal([]byte(frontmatter), &skill); err != nil {
		return skill, fmt.Errorf("skill frontmatter: %w", err)
	}
	if skill.Name == "" {
		return skill, fmt.Errorf("skill frontmatter is missing a name")
	}
	skill.Instructions = strings.TrimSpace(strings.TrimPrefix(body, "\n"))
	return skill, nil
}

// LoadDir loads every .md file in dir. A missing directory is not an error:
// it just means no skills are installed.
func LoadDir(dir string) ([]Skill, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("skills: %w", err)
	}

	var skills []Skill
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("skills: %w", err)
		}
		skill, err := Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("skills: %s: %w", entry.Name(), err)
		}
		skills = append(skills, skill)
	}
	return skills, nil
}

// Select ranks skills by keyword overlap with the task text and returns the
// top max with a positive score. Ties break by name for determinism.
func Select(skills []Skill, task string, max int) []Skill {
	if max <= 0 || len(skills) == 0 {
		return nil
	}
	taskWords := keywords(task)
	if len(taskWords) == 0 {
		return nil
	}

	type scored struct {
		skill Skill
		score int
	}
	var ranked []scored
	for _, skill := range skills {
		text := strings.Join([]string{skill.Name, skill.Category, skill.Description}, " ")
		score := 0
		for word := range keywords(text) {
			if taskWords[word] {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{skill, score})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].skill.Name < ranked[j].skill.Name
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]Skill, len(ranked))
	for i, r := range ranked {
		out[i] = r.skill
	}
	return out
}

// stopWords are too common to signal relevance.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "is": true,
	"it": true, "of": true, "on": true, "or": true, "that": true, "the": true,
	"this": true, "to": true, "with": true,
}

func keywords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(field) < 2 || stopWords[field] {
			continue
		}
		words[field] = true
	}
	return words
}
