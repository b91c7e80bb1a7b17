package devenv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePassthrough(t *testing.T) {
	path, err := ResolvePath("/var/lib/loto6")
	require.NoError(t, err)
	require.Equal(t, "/var/lib/loto6", path)
}

func TestResolveDevState(t *testing.T) {
	root, err := GetWorkspaceRoot()
	require.NoError(t, err)

	path, err := ResolvePath("<dev_state>/archive")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "dev", ".state", "archive"), path)
}
