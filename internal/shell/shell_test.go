package shell

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessName_CurrentProcess(t *testing.T) {
	name, err := processName(uint32(os.Getpid()))

	require.NoError(t, err)
	assert.NotEmpty(t, name)
}

func TestProcessName_Unknown(t *testing.T) {
	_, err := processName(0x7ffffff0)

	require.Error(t, err)
}
