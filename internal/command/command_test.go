package command

import (
	"context"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_RunPassesEnv(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	c := NewCommand(slog.New(slog.NewTextHandler(io.Discard, nil)))

	out, err := c.Run(context.Background(), []string{"DESKWATCH_EVENT=vd_desktop_created"}, "sh", "-c", "echo $DESKWATCH_EVENT")

	require.NoError(t, err)
	assert.Equal(t, "vd_desktop_created", out)
}

func TestCommand_RunReportsFailure(t *testing.T) {
	c := NewCommand(slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := c.Run(context.Background(), nil, "deskwatch-command-that-does-not-exist")

	require.Error(t, err)
}
