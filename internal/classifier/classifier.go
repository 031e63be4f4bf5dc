// Package classifier assigns a semantic kind to a file by keyword scoring
// over its extracted text and filename.
package classifier

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
	"github.com/custodia-labs/grabdocs/internal/core/ports/driven"
	"github.com/custodia-labs/grabdocs/internal/logger"
)

// Verify interface compliance.
var _ driven.Classifier = (*Classifier)(nil)

// Classifier scores text and filename tokens against a Policy.
type Classifier struct {
	policy *Policy
	rules  []compiledRule
}

type compiledRule struct {
	kind     domain.Kind
	weight   float64
	text     []string
	filename []string
}

// Option configures the classifier.
type Option func(*Classifier)

// WithPolicy replaces the default rule table.
func WithPolicy(p *Policy) Option {
	return func(c *Classifier) {
		if p != nil {
			c.policy = p
		}
	}
}

// New creates a classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}

	for _, r := range c.policy.Rules {
		c.rules = append(c.rules, compiledRule{
			kind:     r.Kind,
			weight:   r.Weight,
			text:     normalizeKeywords(r.Keywords),
			filename: normalizeKeywords(r.FilenameKeywords),
		})
	}
	return c
}

// Classify returns the highest-scoring kind, or domain.KindUnknown when no
// rule reaches the threshold. Identical inputs always give identical kinds.
func (c *Classifier) Classify(text, filename string) domain.Kind {
	scores := c.Scores(text, filename)

	best, bestScore := domain.KindUnknown, 0.0
	for _, r := range c.rules {
		s := scores[r.kind]
		// Strictly greater keeps the earlier rule on ties.
		if s >= c.policy.Threshold && s > bestScore {
			best, bestScore = r.kind, s
		}
	}

	logger.Debug("classifier: %q -> %s (scores %v)", filename, best, scores)
	return best
}

// Scores returns the score of every rule's kind.
func (c *Classifier) Scores(text, filename string) map[domain.Kind]float64 {
	body := tokenize(text)
	name := tokenize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))

	scores := make(map[domain.Kind]float64, len(c.rules))
	for _, r := range c.rules {
		hits := 0.0
		if body != "" {
			hits += float64(countHits(body, r.text))
		}
		if name != "" {
			hits += 2 * float64(countHits(name, r.filename))
		}
		scores[r.kind] += hits * r.weight
	}
	return scores
}

// countHits counts distinct keywords present as whole words.
func countHits(haystack string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			n++
		}
	}
	return n
}

// tokenize lower-cases s, turns every non-alphanumeric rune into a space,
// splits letter/digit runs, and pads the result so " kw " matches whole words.
func tokenize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')

	prev := ' '
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if prev != ' ' && unicode.IsDigit(r) != unicode.IsDigit(prev) {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			prev = r
		default:
			if prev != ' ' {
				b.WriteByte(' ')
				prev = ' '
			}
		}
	}
	if prev != ' ' {
		b.WriteByte(' ')
	}

	out := b.String()
	if strings.TrimSpace(out) == "" {
		return ""
	}
	return out
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		t := tokenize(kw)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
