package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCmd_Structure(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)

	var serve bool
	for _, c := range mcpCmd.Commands() {
		serve = serve || c.Name() == "serve"
	}
	assert.True(t, serve)

	port := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, port)
	assert.Equal(t, "p", port.Shorthand)
	assert.Equal(t, "0", port.DefValue)
}

func TestMCPServe_RequiresServices(t *testing.T) {
	servicesInjected = true
	defer func() { servicesInjected = false }()

	_, err := run(t, "mcp", "serve")

	assert.Error(t, err)
}

func TestMCPServe_Help(t *testing.T) {
	out, err := run(t, "mcp", "serve", "--help")

	require.NoError(t, err)
	assert.Contains(t, out, "--owner")
	assert.Contains(t, out, "single owner")
}
