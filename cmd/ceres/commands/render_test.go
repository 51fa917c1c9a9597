package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceres-project/ceres/pkg/ceres"
)

func TestRenderCommand(t *testing.T) {
	root := setUpTreeWithNode(t, "metric.cpu", 60)
	writeTestPoints(t, root, "metric.cpu", ceres.Point(0, 1), ceres.Point(60, 2))

	output := filepath.Join(t.TempDir(), "chart.html")

	cmd := buildRenderCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{root, "metric.cpu", "0", "120", "--output", output})

	require.NoError(t, cmd.Execute())

	contents, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(contents), "metric.cpu")
}

func TestRenderCommand_NoOutput(t *testing.T) {
	root := setUpTreeWithNode(t, "metric.cpu", 60)

	cmd := buildRenderCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{root, "metric.cpu", "0", "120"})

	err := cmd.Execute()
	require.ErrorIs(t, err, ErrRenderNoOutput)
}
