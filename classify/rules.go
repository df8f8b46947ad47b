package classify

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/poiesic/fraudlens/core"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// PatternGroup yields its tags when any of its patterns matches.
type PatternGroup struct {
	Patterns []*regexp.Regexp
	Tags     []string
}

// Rule is a fraud category with the pattern groups that select it.
type Rule struct {
	Category    core.FraudType
	Label       string
	Explanation string
	Groups      []PatternGroup
}

// RuleSet is an ordered, immutable rule table. Order is precedence.
type RuleSet struct {
	rules []Rule
	index map[core.FraudType]int
}

type rulesFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Category    string       `yaml:"category"`
	Label       string       `yaml:"label"`
	Explanation string       `yaml:"explanation"`
	Groups      []groupEntry `yaml:"groups"`
}

type groupEntry struct {
	Patterns []string `yaml:"patterns"`
	Tags     []string `yaml:"tags"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules compiles a YAML rule table.
func ParseRules(data []byte) (*RuleSet, error) {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRules, err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrInvalidRules)
	}

	rs := &RuleSet{
		rules: make([]Rule, 0, len(file.Rules)),
		index: make(map[core.FraudType]int, len(file.Rules)),
	}
	for i, entry := range file.Rules {
		rule, err := compileRule(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %w", ErrInvalidRules, i, err)
		}
		if _, dup := rs.index[rule.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidRules, rule.Category)
		}
		rs.index[rule.Category] = len(rs.rules)
		rs.rules = append(rs.rules, rule)
	}
	return rs, nil
}

func compileRule(entry ruleEntry) (Rule, error) {
	if entry.Category == "" {
		return Rule{}, ErrEmptyCategory
	}
	if len(entry.Groups) == 0 {
		return Rule{}, fmt.Errorf("%w: %s", ErrNoPatternGroups, entry.Category)
	}

	rule := Rule{
		Category:    core.FraudType(entry.Category),
		Label:       entry.Label,
		Explanation: entry.Explanation,
		Groups:      make([]PatternGroup, 0, len(entry.Groups)),
	}
	if rule.Label == "" {
		rule.Label = entry.Category
	}

	for _, g := range entry.Groups {
		if len(g.Patterns) == 0 {
			return Rule{}, fmt.Errorf("%w: %s", ErrNoPatterns, entry.Category)
		}
		group := PatternGroup{Tags: g.Tags}
		for _, p := range g.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return Rule{}, fmt.Errorf("category %s: %w", entry.Category, err)
			}
			group.Patterns = append(group.Patterns, re)
		}
		rule.Groups = append(rule.Groups, group)
	}
	return rule, nil
}

// Rules returns the rules in precedence order.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Categories returns the category names in precedence order.
func (rs *RuleSet) Categories() []core.FraudType {
	out := make([]core.FraudType, len(rs.rules))
	for i, r := range rs.rules {
		out[i] = r.Category
	}
	return out
}

// Labels maps every category to its human label.
func (rs *RuleSet) Labels() map[core.FraudType]string {
	out := make(map[core.FraudType]string, len(rs.rules))
	for _, r := range rs.rules {
		out[r.Category] = r.Label
	}
	return out
}

// Label returns the human label for a category, or the category name when unknown.
func (rs *RuleSet) Label(category core.FraudType) string {
	if i, ok := rs.index[category]; ok {
		return rs.rules[i].Label
	}
	return string(category)
}

// Explanation returns the description of a category, or "" when unknown.
func (rs *RuleSet) Explanation(category core.FraudType) string {
	if i, ok := rs.index[category]; ok {
		return rs.rules[i].Explanation
	}
	return ""
}

// matches reports whether any pattern in the group matches text.
func (g *PatternGroup) matches(text string) bool {
	for _, p := range g.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
