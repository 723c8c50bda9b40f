package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestVersionCommandJSON(t *testing.T) {
	out, err := executeCommand(t, "version", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"platform"`)

	// Restore the default for subsequent tests.
	_, err = executeCommand(t, "version", "--output", "text")
	require.NoError(t, err)
}

func TestGetVersion(t *testing.T) {
	v := getVersion()
	assert.Contains(t, v, "dev")
	assert.Contains(t, v, "unknown")
}

func TestGlobalFlags(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "string", flag.Value.Type())

	flag = rootCmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, flag)
	assert.Equal(t, "disabled", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("output")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("quiet")
	require.NotNil(t, flag)
	assert.Equal(t, "bool", flag.Value.Type())
}

func TestCommandAvailability(t *testing.T) {
	for _, name := range []string{"eval", "parse", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		assert.NoError(t, err, "command %s should be available", name)
		assert.Equal(t, name, cmd.Name())
	}
}
