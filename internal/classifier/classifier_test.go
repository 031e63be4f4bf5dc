package classifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name     string
		text     string
		filename string
		want     domain.Kind
	}{
		{
			name:     "assignment",
			text:     "Assignment 1 submitted to Dr. X",
			filename: "upload.txt",
			want:     domain.KindDocument,
		},
		{
			name:     "receipt",
			text:     "RECEIPT\nSubtotal $10.00\nTax $0.80\nTotal $10.80\nPaid by VISA",
			filename: "IMG_2041.pdf",
			want:     domain.KindReceipt,
		},
		{
			name:     "form",
			text:     "Full name: ______\nDate of birth: ______\nSignature: ______",
			filename: "scan.pdf",
			want:     domain.KindForm,
		},
		{
			name:     "filename alone clears threshold",
			text:     "",
			filename: "Invoice_2024-03.pdf",
			want:     domain.KindReceipt,
		},
		{
			name:     "concatenated words do not match",
			text:     "",
			filename: "registrationform2.docx",
			want:     domain.KindUnknown,
		},
		{
			name:     "empty input",
			text:     "   \n\t",
			filename: "",
			want:     domain.KindUnknown,
		},
		{
			name:     "single weak hit",
			text:     "the total is unclear",
			filename: "misc.txt",
			want:     domain.KindUnknown,
		},
		{
			name:     "tie goes to document",
			text:     "report essay receipt invoice",
			filename: "",
			want:     domain.KindDocument,
		},
		{
			name:     "keywords match whole words only",
			text:     "drought totally taxonomy",
			filename: "",
			want:     domain.KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text, tt.filename))
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New()
	text := "Invoice total tax essay report signature"
	first := c.Classify(text, "x.pdf")
	for range 20 {
		assert.Equal(t, first, c.Classify(text, "x.pdf"))
	}
}

func TestScores_FilenameWeighsDouble(t *testing.T) {
	c := New()
	s := c.Scores("", "receipt.png")
	assert.InDelta(t, 2.0, s[domain.KindReceipt], 1e-9)

	s = c.Scores("receipt", "")
	assert.InDelta(t, 1.0, s[domain.KindReceipt], 1e-9)
}

func TestParsePolicy(t *testing.T) {
	data := []byte(`
threshold: 1
rules:
  - kind: Forms
    keywords: [waiver]
  - kind: documents
    weight: 3
    keywords: [memo]
`)
	p, err := ParsePolicy(data)
	require.NoError(t, err)
	assert.Equal(t, domain.KindForm, p.Rules[0].Kind)
	assert.InDelta(t, 1.0, p.Rules[0].Weight, 1e-9)

	c := New(WithPolicy(p))
	assert.Equal(t, domain.KindForm, c.Classify("liability waiver", ""))
	assert.Equal(t, domain.KindDocument, c.Classify("memo waiver", ""))
	assert.Equal(t, domain.KindUnknown, c.Classify("anything else", ""))
}

func TestParsePolicy_Invalid(t *testing.T) {
	tests := map[string]string{
		"no rules":     "threshold: 2\n",
		"unknown kind": "rules:\n  - kind: memes\n    keywords: [lol]\n",
		"unknown rule": "rules:\n  - kind: unknown\n    keywords: [x]\n",
		"no keywords":  "rules:\n  - kind: form\n",
		"bad yaml":     "rules: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - kind: receipt\n    keywords: [till, tip]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.InDelta(t, DefaultThreshold, p.Threshold, 1e-9)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
