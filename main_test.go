package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "sysdash version dev\n", out)
}

func TestSnapshotRejectsUnknownGroup(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	_, err := execute(t, "--config", cfg, "snapshot", "--groups", "cpu,fan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fan")
	assert.FileExists(t, cfg, "missing config file is created with defaults")
}
