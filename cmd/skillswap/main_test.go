package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns everything it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

const testConfigTemplate = `
logging:
  level: info
  format: json
  output: stderr
cache:
  cleanup_interval_ms: -1
  storage:
    mode: file
    file:
      path: %s
channel:
  url: %s
  max_reconnect_attempts: 2
  reconnect_delay_ms: 5
  reconnect_delay_max_ms: 10
  emit_rate: -1
health:
  health_check:
    enabled: false
`

// writeTestConfig writes a config whose durable tier lives in dir.
func writeTestConfig(t *testing.T, dir, channelURL string) string {
	t.Helper()
	path := filepath.Join(dir, defaultConfigFile)
	body := fmt.Sprintf(testConfigTemplate, filepath.Join(dir, "cache.db"), channelURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestFindConfigIn_WorkingDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, defaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))

	assert.Equal(t, path, findConfigIn(dir, t.TempDir()))
}

func TestFindConfigIn_HomeDir(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	configDir := filepath.Join(home, ".config", appName)
	require.NoError(t, os.MkdirAll(configDir, 0o750))
	path := filepath.Join(configDir, defaultConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o600))

	assert.Equal(t, path, findConfigIn(t.TempDir(), home))
}

func TestFindConfigIn_NotFound(t *testing.T) {
	t.Parallel()

	assert.Empty(t, findConfigIn(t.TempDir(), t.TempDir()))
	assert.Empty(t, findConfigIn(t.TempDir(), ""))
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	root := newRootCmd()
	names := make([]string, 0, len(root.Commands()))
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "listen", "emit", "cache", "session", "config", "version"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, appName+" ")
	assert.Contains(t, out, "commit:")

	out, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}
