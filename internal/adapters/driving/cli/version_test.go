package cli

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	original := version
	SetVersion("1.4.2")
	defer func() { version = original }()

	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "overlayc version 1.4.2")
	assert.Contains(t, out, runtime.GOOS+"/"+runtime.GOARCH)

	out, err = execute(t, "", "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "1.4.2\n", out)
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	_, err := execute(t, "", "version", "extra")
	assert.Error(t, err)
}
