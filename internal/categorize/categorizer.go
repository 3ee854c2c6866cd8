// Package categorize assigns spending categories to transaction descriptions
// using an ordered, first-match-wins rule table.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dvloznov/spend-insight/internal/domain"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embeddedRules []byte

// Synthetic labels for inflows. They never appear in the rule table.
const (
	IncomeLabel        = "Доход"
	InsightIncomeLabel = "Поступления"
)

type ruleSet struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// Categorizer evaluates a fixed rule table. It is immutable and safe for
// concurrent use.
type Categorizer struct {
	rules []domain.CategoryRule
}

var defaultCategorizer = mustLoadEmbedded()

func mustLoadEmbedded() *Categorizer {
	c, err := New(embeddedRules)
	if err != nil {
		panic(fmt.Sprintf("categorize: embedded rules.yaml is invalid: %v", err))
	}
	return c
}

// Default returns the categorizer built from the embedded rule table.
func Default() *Categorizer {
	return defaultCategorizer
}

// New parses and validates a YAML rule table. Every rule needs a name and at
// least one pattern, every pattern must compile, and the last rule must match
// any description so that Classify is total.
func New(data []byte) (*Categorizer, error) {
	var set ruleSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("New: parse rules: %w", err)
	}
	if len(set.Rules) == 0 {
		return nil, fmt.Errorf("New: no rules defined")
	}

	seen := make(map[string]bool, len(set.Rules))
	rules := make([]domain.CategoryRule, 0, len(set.Rules))
	for i, spec := range set.Rules {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("New: rule %d: name is required", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("New: rule %q defined twice", name)
		}
		if name == IncomeLabel || name == InsightIncomeLabel {
			return nil, fmt.Errorf("New: rule %q uses a reserved income label", name)
		}
		if len(spec.Patterns) == 0 {
			return nil, fmt.Errorf("New: rule %q: at least one pattern is required", name)
		}
		seen[name] = true

		rule := domain.CategoryRule{Name: name}
		for _, p := range spec.Patterns {
			if strings.TrimSpace(p) == "" {
				return nil, fmt.Errorf("New: rule %q: empty pattern", name)
			}
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("New: rule %q: pattern %q: %w", name, p, err)
			}
			rule.Matchers = append(rule.Matchers, re)
		}
		rules = append(rules, rule)
	}

	if last := rules[len(rules)-1]; !last.Match("") {
		return nil, fmt.Errorf("New: last rule %q must match every description", last.Name)
	}

	return &Categorizer{rules: rules}, nil
}

// LoadFromFile builds a categorizer from a YAML rule file on disk.
func LoadFromFile(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadFromFile: %w", err)
	}
	c, err := New(data)
	if err != nil {
		return nil, fmt.Errorf("LoadFromFile %s: %w", path, err)
	}
	return c, nil
}

// Classify returns the name of the first rule matching the description.
func (c *Categorizer) Classify(description string) string {
	description = norm.NFKC.String(description)
	for _, rule := range c.rules {
		if rule.Match(description) {
			return rule.Name
		}
	}
	// unreachable: New guarantees a catch-all last rule
	return c.rules[len(c.rules)-1].Name
}

// ClassifyTransaction labels inflows with IncomeLabel and classifies outflows
// by description.
func (c *Categorizer) ClassifyTransaction(tx domain.Transaction) string {
	if tx.IsIncome() {
		return IncomeLabel
	}
	return c.Classify(tx.Description)
}

// Names lists the category names in rule order.
func (c *Categorizer) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Classify classifies with the default rule table.
func Classify(description string) string {
	return defaultCategorizer.Classify(description)
}
