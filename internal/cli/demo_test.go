package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoCommand(t *testing.T) {
	cfg := writeConfig(t, `
errors:
  locale: en
  backoff:
    initial: 1ms
    max: 5ms
`)

	stdout, _, err := execute(t, "-c", cfg, "demo", "--latency", "0s")
	require.NoError(t, err)

	assert.Contains(t, stdout, "loaded 3 projects (2 active)")
	assert.Contains(t, stdout, `created "Community library"`)
	assert.Contains(t, stdout, `selected "Community library and study hall"`)
	assert.Contains(t, stdout, "load missing project: The requested resource was not found.")
	assert.Contains(t, stdout, "3 projects left")
	assert.Contains(t, stdout, "last route: /projects")
}

func TestDemoCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	demo, _, err := cmd.Find([]string{"demo"})
	require.NoError(t, err)

	latency := demo.Flags().Lookup("latency")
	require.NotNil(t, latency)
	assert.Equal(t, "50ms", latency.DefValue)

	addr := demo.Flags().Lookup("metrics-addr")
	require.NotNil(t, addr)
	assert.Empty(t, addr.DefValue)
}

func TestDemoCommand_PreferencesNotPersisted(t *testing.T) {
	cfg := writeConfig(t, `
errors:
  locale: en
  backoff:
    initial: 1ms
    max: 5ms
storage:
  maxBytes: 1
`)

	stdout, _, err := execute(t, "-c", cfg, "demo", "--latency", "0s")
	require.NoError(t, err)

	assert.Contains(t, stdout, "failed to persist app_language")
	assert.Contains(t, stdout, "failed to persist app_last_route")
	assert.Contains(t, stdout, "loaded 3 projects (2 active)")
	assert.NotContains(t, stdout, "last route:")
}
