package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

// DefaultThreshold is the minimum score a rule needs to win.
const DefaultThreshold = 2.0

// Rule scores one kind.
type Rule struct {
	Kind             domain.Kind `yaml:"kind"`
	Keywords         []string    `yaml:"keywords"`
	FilenameKeywords []string    `yaml:"filename_keywords"`
	Weight           float64     `yaml:"weight"`
}

// Policy is an ordered rule table. Earlier rules win ties.
type Policy struct {
	Threshold float64 `yaml:"threshold"`
	Rules     []Rule  `yaml:"rules"`
}

// Validate normalizes kinds and weights and rejects unusable tables.
func (p *Policy) Validate() error {
	if p.Threshold <= 0 {
		p.Threshold = DefaultThreshold
	}
	if len(p.Rules) == 0 {
		return fmt.Errorf("policy has no rules: %w", domain.ErrInvalidInput)
	}
	for i := range p.Rules {
		r := &p.Rules[i]
		k, ok := domain.ParseKind(string(r.Kind))
		if !ok || k == domain.KindUnknown {
			return fmt.Errorf("rule %d: kind %q: %w", i, r.Kind, domain.ErrInvalidInput)
		}
		r.Kind = k
		if r.Weight <= 0 {
			r.Weight = 1
		}
		if len(r.Keywords) == 0 && len(r.FilenameKeywords) == 0 {
			return fmt.Errorf("rule %d (%s) has no keywords: %w", i, r.Kind, domain.ErrInvalidInput)
		}
	}
	return nil
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses a YAML policy.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	return &p, nil
}

// DefaultPolicy returns the built-in rule table:
// document structure first, then receipt amounts, then form field labels.
func DefaultPolicy() *Policy {
	return &Policy{
		Threshold: DefaultThreshold,
		Rules: []Rule{
			{
				Kind:   domain.KindDocument,
				Weight: 1,
				Keywords: []string{
					"assignment", "submitted", "essay", "report", "chapter",
					"abstract", "introduction", "conclusion", "references",
					"bibliography", "dr", "professor", "thesis", "summary",
					"lecture", "syllabus", "coursework", "homework",
				},
				FilenameKeywords: []string{
					"assignment", "essay", "report", "thesis", "notes",
					"paper", "homework", "resume", "cv",
				},
			},
			{
				Kind:   domain.KindReceipt,
				Weight: 1,
				Keywords: []string{
					"receipt", "subtotal", "total", "tax", "vat", "amount paid",
					"change due", "cash", "visa", "mastercard", "invoice",
					"qty", "unit price", "thank you for your purchase",
				},
				FilenameKeywords: []string{
					"receipt", "invoice", "bill", "order",
				},
			},
			{
				Kind:   domain.KindForm,
				Weight: 1,
				Keywords: []string{
					"full name", "date of birth", "signature", "applicant",
					"please fill", "sign here", "for office use only",
					"phone number", "mailing address", "checkbox", "consent",
				},
				FilenameKeywords: []string{
					"form", "application", "registration", "consent",
				},
			},
		},
	}
}
