package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/core/domain"
)

func TestDefaultTheme(t *testing.T) {
	theme := DefaultTheme()

	require.NotNil(t, theme)
	for _, c := range []lipgloss.Color{
		theme.Primary, theme.Secondary, theme.Foreground, theme.Muted,
		theme.Success, theme.Warning, theme.Error, theme.Border,
		theme.Document, theme.Receipt, theme.Form,
	} {
		assert.NotEmpty(t, string(c))
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.NotNil(t, s.Theme())
}

func TestKindColor_DistinctPerKind(t *testing.T) {
	s := DefaultStyles()

	seen := map[lipgloss.Color]domain.Kind{}
	for _, k := range domain.AllKinds() {
		c := s.KindColor(k)
		if prev, ok := seen[c]; ok {
			t.Fatalf("%s and %s share colour %s", prev, k, c)
		}
		seen[c] = k
	}
	assert.Equal(t, s.Theme().Muted, s.KindColor(domain.KindUnknown))
}

func TestKindBadge(t *testing.T) {
	s := DefaultStyles()

	assert.Contains(t, s.KindBadge(domain.KindReceipt), "[receipt]")
	assert.Contains(t, s.KindBadge(domain.KindUnknown), "[unknown]")
}
