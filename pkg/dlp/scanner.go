package dlp

import (
	"golang.org/x/text/unicode/norm"

	"github.com/linedesk/callcore/pkg/contracts"
)

// RedactedText replaces flagged utterances in transcripts.
const RedactedText = "[REDACTED]"

// Scanner classifies utterances against an ordered rule table. It is pure
// and stateless: the same input always yields the same result.
type Scanner struct {
	rules *RuleSet
}

// NewScanner creates a scanner over the given rule set.
func NewScanner(rules *RuleSet) *Scanner {
	if rules == nil {
		rules = DefaultRuleSet()
	}
	return &Scanner{rules: rules}
}

// RuleSetVersion reports the version of the active rule table.
func (s *Scanner) RuleSetVersion() string {
	return s.rules.Version
}

// Scan classifies text against the rule table. Categories are checked in
// priority order and the first matching rule wins; there is no
// multi-category merge.
func (s *Scanner) Scan(text string) contracts.ScanResult {
	text = normalize(text)
	for _, cat := range s.rules.Order {
		for _, rule := range s.rules.Rules[cat] {
			if rule.re.MatchString(text) {
				return contracts.ScanResult{
					ViolationsFound: true,
					Category:        cat,
					Severity:        rule.Severity,
					Reason:          rule.Reason,
				}
			}
		}
	}
	return contracts.ScanResult{Severity: contracts.SeverityNone}
}

// Redact replaces every rule match in text with RedactedText, across all
// categories.
func (s *Scanner) Redact(text string) string {
	text = normalize(text)
	for _, cat := range s.rules.Order {
		for _, rule := range s.rules.Rules[cat] {
			text = rule.re.ReplaceAllString(text, RedactedText)
		}
	}
	return text
}

// normalize applies NFKC so that fullwidth or otherwise decorated digits
// cannot slip past the digit-run rules.
func normalize(text string) string {
	return norm.NFKC.String(text)
}
