// cmd/simple-bolus/main_test.go
package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "mcp-simple-bolus version 1.0.0\n", out.String())
}

func TestServeRejectsInvalidConfig(t *testing.T) {
	t.Setenv("SIMPLE_BOLUS_DOSING_MAXIMUM_BOLUS", "0")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", "--db-path", t.TempDir() + "/bolus.db"})

	assert.ErrorContains(t, root.Execute(), "invalid config")
}
