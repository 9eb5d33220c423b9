package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// conflictStack leaves its third level with no freedom; the command is [3, -1].
const conflictStack = `
solver: rank_threshold: 1e-9

stack: [
	{name: "sum", kind: "equality", jacobian: [[1, 1]], reference: [2]},
	{name: "x", kind: "equality", jacobian: [[1, 0]], reference: [3]},
	{name: "y", kind: "equality", jacobian: [[0, 1]], reference: [5]},
]
`

// raggedStack mixes command dimensions 2 and 3.
const raggedStack = `
stack: [
	{name: "a", kind: "equality", jacobian: [[1, 0]], reference: [1]},
	{name: "b", kind: "equality", jacobian: [[1, 0, 0]], reference: [1]},
]
`

// harnessScenarios is the harness package's scenario directory.
var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse unmarshals a JSON response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}
