package validation

import (
	"fmt"
	"regexp"
)

// RuleSpec is the configured form of a Rule.
type RuleSpec struct {
	Name    string `mapstructure:"name" yaml:"name" json:"name" validate:"required"`
	Pattern string `mapstructure:"pattern" yaml:"pattern" json:"pattern" validate:"required,regex"`
}

// Rule is a named content pattern.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// CompileRules compiles specs in order. Names must be unique.
func CompileRules(specs []RuleSpec) ([]Rule, error) {
	rules := make([]Rule, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("rule name is required")
		}
		if _, dup := seen[spec.Name]; dup {
			return nil, fmt.Errorf("rule %q declared twice", spec.Name)
		}
		seen[spec.Name] = struct{}{}

		pattern, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		rules = append(rules, Rule{Name: spec.Name, Pattern: pattern})
	}
	return rules, nil
}

// FirstMatch returns the first rule, in declaration order, whose pattern
// matches data.
func FirstMatch(data []byte, rules []Rule) (Rule, bool) {
	for _, rule := range rules {
		if rule.Pattern.Match(data) {
			return rule, true
		}
	}
	return Rule{}, false
}
