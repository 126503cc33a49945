package dlp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linedesk/callcore/pkg/contracts"
)

func TestScanClassification(t *testing.T) {
	s := NewScanner(nil)

	tests := []struct {
		name     string
		text     string
		found    bool
		category contracts.Category
		severity contracts.Severity
	}{
		{
			name: "clean utterance",
			text: "Thank you for calling, how can I help you today?",
		},
		{
			name:     "credit card number",
			text:     "My card is 4111111111111111",
			found:    true,
			category: contracts.CategoryBanking,
			severity: contracts.SeverityCritical,
		},
		{
			name:     "social security number",
			text:     "My SSN is 123-45-6789",
			found:    true,
			category: contracts.CategoryPersonal,
			severity: contracts.SeverityCritical,
		},
		{
			name:     "routing number phrase",
			text:     "the routing number: 021000021 for my checking",
			found:    true,
			category: contracts.CategoryBanking,
			severity: contracts.SeverityCritical,
		},
		{
			name:     "date of birth",
			text:     "date of birth: 4/15/1987",
			found:    true,
			category: contracts.CategoryPersonal,
			severity: contracts.SeverityCritical,
		},
		{
			name:     "patient identifier",
			text:     "pulling up patient id: 55012",
			found:    true,
			category: contracts.CategoryMedical,
			severity: contracts.SeverityHigh,
		},
		{
			name:     "credential material",
			text:     "the password is hunter2",
			found:    true,
			category: contracts.CategoryConfidential,
			severity: contracts.SeverityHigh,
		},
		{
			name:     "confidential reference",
			text:     "this document is classified",
			found:    true,
			category: contracts.CategoryConfidential,
			severity: contracts.SeverityHigh,
		},
		{
			name: "short digit run is not banking",
			text: "my extension is 4432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Scan(tt.text)
			assert.Equal(t, tt.found, got.ViolationsFound)
			if tt.found {
				assert.Equal(t, tt.category, got.Category)
				assert.Equal(t, tt.severity, got.Severity)
				assert.NotEmpty(t, got.Reason)
			} else {
				assert.Equal(t, contracts.SeverityNone, got.Severity)
				assert.Empty(t, got.Category)
			}
		})
	}
}

func TestScanCategoryPriority(t *testing.T) {
	s := NewScanner(nil)

	// Matches both banking (digit run) and confidential (keyword); banking
	// is checked first and wins.
	got := s.Scan("the secret account is 4111111111111111")
	require.True(t, got.ViolationsFound)
	assert.Equal(t, contracts.CategoryBanking, got.Category)
	assert.Equal(t, contracts.SeverityCritical, got.Severity)
}

func TestScanIsDeterministic(t *testing.T) {
	s := NewScanner(nil)
	text := "My SSN is 123-45-6789 and my password is hunter2"

	first := s.Scan(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Scan(text))
	}
}

func TestScanNormalizesFullwidthDigits(t *testing.T) {
	s := NewScanner(nil)

	// Fullwidth digits fold to ASCII under NFKC before the rules run.
	got := s.Scan("card ４１１１１１１１１１１１１１１１")
	require.True(t, got.ViolationsFound)
	assert.Equal(t, contracts.CategoryBanking, got.Category)
}

func TestRedact(t *testing.T) {
	s := NewScanner(nil)

	got := s.Redact("card 4111111111111111 and ssn 123-45-6789")
	assert.NotContains(t, got, "4111111111111111")
	assert.NotContains(t, got, "123-45-6789")
	assert.Equal(t, 2, strings.Count(got, RedactedText))
}

func TestRedactCleanTextUnchanged(t *testing.T) {
	s := NewScanner(nil)
	text := "nothing sensitive here"
	assert.Equal(t, text, s.Redact(text))
}

func TestRuleSetVersion(t *testing.T) {
	s := NewScanner(nil)
	assert.Equal(t, "1.0.0", s.RuleSetVersion())
}
