// Package dlp implements sensitive-data detection over transcribed speech.
//
// Rules are a data-driven table keyed by category. Categories are evaluated
// in a fixed priority order and the first matching rule wins, so the same
// input always classifies the same way.
package dlp

import (
	"fmt"
	"os"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/linedesk/callcore/pkg/contracts"
)

// Rule is one detection pattern with its severity and human-readable reason.
type Rule struct {
	Pattern  string             `yaml:"pattern"`
	Severity contracts.Severity `yaml:"severity"`
	Reason   string             `yaml:"reason"`

	re *regexp.Regexp
}

// RuleSet is an ordered table of detection rules. Order determines category
// priority during scanning.
type RuleSet struct {
	Version string                        `yaml:"version"`
	Order   []contracts.Category          `yaml:"order"`
	Rules   map[contracts.Category][]Rule `yaml:"rules"`
}

// DefaultRuleSet returns the built-in US-format rule table.
// Digit-length heuristics are US-specific; internationalized formats are
// not covered.
func DefaultRuleSet() *RuleSet {
	rs := &RuleSet{
		Version: "1.0.0",
		Order: []contracts.Category{
			contracts.CategoryBanking,
			contracts.CategoryPersonal,
			contracts.CategoryMedical,
			contracts.CategoryConfidential,
		},
		Rules: map[contracts.Category][]Rule{
			contracts.CategoryBanking: {
				{Pattern: `\b\d{13,19}\b`, Severity: contracts.SeverityCritical,
					Reason: "Potential credit card or banking account number detected"},
				{Pattern: `\b\d{9}(?:-\d{2})?(?:-\d{4})?\b`, Severity: contracts.SeverityCritical,
					Reason: "Potential routing or account number detected"},
				{Pattern: `(?i)\brouting\s+number\s*:?\s*\d{9}`, Severity: contracts.SeverityCritical,
					Reason: "Routing number disclosed"},
				{Pattern: `(?i)\baccount\s+number\s*:?\s*\d{8,}`, Severity: contracts.SeverityCritical,
					Reason: "Account number disclosed"},
			},
			contracts.CategoryPersonal: {
				{Pattern: `\b\d{3}-\d{2}-\d{4}\b`, Severity: contracts.SeverityCritical,
					Reason: "Potential Social Security Number detected"},
				{Pattern: `(?i)(?:date of birth|dob)\s*:?\s*\d{1,2}/\d{1,2}/\d{2,4}`, Severity: contracts.SeverityCritical,
					Reason: "Date of birth disclosed"},
				{Pattern: `(?i)mother['\s]*s\s+maiden\s+name`, Severity: contracts.SeverityCritical,
					Reason: "Security question answer solicited"},
			},
			contracts.CategoryMedical: {
				{Pattern: `(?i)patient\s+id\s*:?\s*\d+`, Severity: contracts.SeverityHigh,
					Reason: "Patient identifier detected"},
				{Pattern: `(?i)medical\s+record\s+number`, Severity: contracts.SeverityHigh,
					Reason: "Medical record reference detected"},
			},
			contracts.CategoryConfidential: {
				{Pattern: `(?i)confidential|secret|classified`, Severity: contracts.SeverityHigh,
					Reason: "Confidential material referenced"},
				{Pattern: `(?i)password|api.?key|token`, Severity: contracts.SeverityHigh,
					Reason: "Credential material referenced"},
			},
		},
	}
	if err := rs.Compile(); err != nil {
		// Built-in patterns are fixed; a compile failure is a programming error.
		panic(err)
	}
	return rs
}

// LoadRuleSet reads a rule table from a YAML file and compiles it.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet decodes and compiles a YAML rule table.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("decode rule set: %w", err)
	}
	if err := rs.Compile(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Compile validates the version, order, and patterns of the rule set.
func (rs *RuleSet) Compile() error {
	if _, err := semver.StrictNewVersion(rs.Version); err != nil {
		return fmt.Errorf("rule set version %q: %w", rs.Version, err)
	}
	if len(rs.Order) == 0 {
		return fmt.Errorf("rule set declares no category order")
	}
	for _, cat := range rs.Order {
		rules := rs.Rules[cat]
		if len(rules) == 0 {
			return fmt.Errorf("category %q has no rules", cat)
		}
		for i := range rules {
			re, err := regexp.Compile(rules[i].Pattern)
			if err != nil {
				return fmt.Errorf("category %q pattern %q: %w", cat, rules[i].Pattern, err)
			}
			rules[i].re = re
			if rules[i].Severity == "" {
				rules[i].Severity = contracts.SeverityHigh
			}
		}
		rs.Rules[cat] = rules
	}
	return nil
}

// AddRule appends a custom rule to a category. Unknown categories are
// appended to the end of the scan order.
func (rs *RuleSet) AddRule(cat contracts.Category, rule Rule) error {
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return fmt.Errorf("custom pattern %q: %w", rule.Pattern, err)
	}
	rule.re = re
	if rule.Severity == "" {
		rule.Severity = contracts.SeverityHigh
	}
	if _, known := rs.Rules[cat]; !known {
		rs.Order = append(rs.Order, cat)
	}
	rs.Rules[cat] = append(rs.Rules[cat], rule)
	return nil
}
