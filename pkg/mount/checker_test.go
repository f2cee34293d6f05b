package mount

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteProbeRoundTrip(t *testing.T) {
	checker := NewChecker()
	dir := t.TempDir()

	err := checker.WriteProbe(dir)
	assert.NoError(t, err)

	// The marker file must not be left behind
	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteProbeMissingDir(t *testing.T) {
	checker := NewChecker()

	err := checker.WriteProbe(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestIsMountPoint(t *testing.T) {
	checker := NewChecker()

	// A plain directory is not a mount point, even though it exists
	assert.False(t, checker.IsMountPoint(t.TempDir()))

	// The root filesystem always is
	assert.True(t, checker.IsMountPoint("/"))
}
