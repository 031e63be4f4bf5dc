package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui"
	"github.com/custodia-labs/grabdocs/internal/adapters/driving/tui/messages"
)

func TestTUICmd_Exists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Use == "tui" {
			found = true
			break
		}
	}
	assert.True(t, found, "tui command should be registered")
}

func TestTUICmd_ShortDescription(t *testing.T) {
	assert.Equal(t, "Launch the interactive terminal UI", tuiCmd.Short)
}

func TestTUICmd_HelpOutput(t *testing.T) {
	out, err := run(t, "tui", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "interactive terminal interface")
	assert.Contains(t, out, "Controls:")
}

func TestNewTUIApp(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	app, err := newTUIApp()

	require.NoError(t, err)
	assert.Equal(t, messages.ViewMenu, app.CurrentView())
}

func TestNewTUIApp_MissingServices(t *testing.T) {
	app, err := newTUIApp()

	assert.Nil(t, app)
	assert.ErrorIs(t, err, tui.ErrMissingQueryService)
}
