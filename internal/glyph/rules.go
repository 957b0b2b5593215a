package glyph

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Replacement is one literal substitution.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Rules is the correction table applied after legacy conversion.
type Rules struct {
	Replacements []Replacement `yaml:"replacements"`
	KeepHalanta  []string      `yaml:"keep_halanta"`
	WordFixes    []Replacement `yaml:"word_fixes"`
}

// DefaultRules returns the built-in table.
func DefaultRules() Rules {
	rules, err := ParseRules(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("glyph: embedded rules.yaml is invalid: %v", err))
	}
	return rules
}

// LoadRules reads a rules table from disk. An empty path yields the defaults.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read glyph rules: %w", err)
	}
	return ParseRules(data)
}

func ParseRules(data []byte) (Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("failed to parse glyph rules: %w", err)
	}
	for i, r := range rules.Replacements {
		if r.From == "" {
			return Rules{}, fmt.Errorf("replacement %d has an empty pattern", i)
		}
	}
	for i, r := range rules.WordFixes {
		if r.From == "" {
			return Rules{}, fmt.Errorf("word fix %d has an empty pattern", i)
		}
	}
	return rules, nil
}
