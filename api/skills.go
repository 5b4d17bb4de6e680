package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillPro          SkillLevel = "pro"
)

// AllSkillLevels is the vocabulary in display order.
var AllSkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced, SkillPro}

var skillAliases = map[string]SkillLevel{
	"beginner":     SkillBeginner,
	"beginners":    SkillBeginner,
	"novice":       SkillBeginner,
	"intermediate": SkillIntermediate,
	"advanced":     SkillAdvanced,
	"pro":          SkillPro,
	"professional": SkillPro,
}

// ParseSkillLevel maps a single token onto the vocabulary.
func ParseSkillLevel(input string) (SkillLevel, bool) {
	level, ok := skillAliases[strings.ToLower(strings.TrimSpace(input))]
	return level, ok
}

// SkillLevels is a de-duplicated set of skill levels kept in vocabulary order.
type SkillLevels []SkillLevel

// NewSkillLevels normalizes raw tokens. Unknown tokens are dropped; "all"
// expands to the whole vocabulary.
func NewSkillLevels(tokens ...string) SkillLevels {
	seen := map[SkillLevel]bool{}
	for _, token := range tokens {
		normalized := strings.ToLower(strings.TrimSpace(token))
		if normalized == "all" || normalized == "all levels" || normalized == "all-levels" {
			for _, level := range AllSkillLevels {
				seen[level] = true
			}
			continue
		}
		if level, ok := skillAliases[normalized]; ok {
			seen[level] = true
		}
	}
	out := SkillLevels{}
	for _, level := range AllSkillLevels {
		if seen[level] {
			out = append(out, level)
		}
	}
	return out
}

// ParseSkillLevels parses a delimited list and rejects unknown tokens.
func ParseSkillLevels(input string) (SkillLevels, error) {
	tokens := splitSkillTokens(input)
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, ok := skillAliases[lower]; ok {
			continue
		}
		if lower == "all" || lower == "all levels" || lower == "all-levels" {
			continue
		}
		return nil, fmt.Errorf("unknown skill level %q (expected one of %s)", token, joinSkills(AllSkillLevels))
	}
	return NewSkillLevels(tokens...), nil
}

func (s SkillLevels) Has(level SkillLevel) bool {
	for _, l := range s {
		if l == level {
			return true
		}
	}
	return false
}

// Intersects reports whether any level appears in both sets.
func (s SkillLevels) Intersects(other SkillLevels) bool {
	for _, level := range other {
		if s.Has(level) {
			return true
		}
	}
	return false
}

func (s SkillLevels) String() string {
	return joinSkills(s)
}

// UnmarshalJSON accepts an array, a delimited string, or a string holding an
// embedded JSON array. Non-string array elements and any other JSON shape are
// dropped rather than failing the record.
func (s *SkillLevels) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		*s = NewSkillLevels(stringElements(list)...)
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		*s = SkillLevels{}
		return nil
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var embedded []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &embedded); err == nil {
			*s = NewSkillLevels(stringElements(embedded)...)
			return nil
		}
	}
	*s = NewSkillLevels(splitSkillTokens(trimmed)...)
	return nil
}

func stringElements(list []json.RawMessage) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			out = append(out, text)
		}
	}
	return out
}

func splitSkillTokens(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '|' || r == ';' || r == '/'
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(strings.TrimSpace(field), `"'[]`)
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

func joinSkills(levels []SkillLevel) string {
	parts := make([]string, 0, len(levels))
	for _, level := range levels {
		parts = append(parts, string(level))
	}
	return strings.Join(parts, ", ")
}
