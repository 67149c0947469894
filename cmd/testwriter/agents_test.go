package main

import (
	"bytes"
	"os/exec"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentsCommand_Table(t *testing.T) {
	var buf bytes.Buffer
	probe := &cobra.Command{}
	probe.SetOut(&buf)

	err := agentsCmd.RunE(probe, nil)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "extraction")
	assert.Contains(t, output, "Text Extraction")
	assert.Contains(t, output, "finalization")
	assert.Contains(t, output, "advanced")
	assert.Contains(t, output, "understanding, decomposition, edge_case")
}

func TestVersionFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "--version")
	output, err := cmd.CombinedOutput()

	assert.NoError(t, err)
	assert.Contains(t, string(output), "0.1.0")
}
