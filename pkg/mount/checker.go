package mount

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/moby/sys/mountinfo"
)

// Checker answers the only two questions either process ever asks about the
// shared path: is it a live mount point, and can it serve a write round-trip.
// A plain directory sitting at the path is not a mount point; treating it as
// one would let workload writes vanish into the ephemeral layer.
type Checker struct{}

func NewChecker() *Checker {
	return &Checker{}
}

// IsMountPoint reports whether path is currently a live mount point
// according to the kernel's mount table.
func (c *Checker) IsMountPoint(path string) bool {
	mounted, err := mountinfo.Mounted(path)
	if err != nil {
		return false
	}

	return mounted
}

// WriteProbe verifies a write-then-delete round-trip under path using a
// uniquely named marker file.
func (c *Checker) WriteProbe(path string) error {
	marker := filepath.Join(path, fmt.Sprintf(".probe-%s", uuid.New().String()))

	if err := os.WriteFile(marker, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("write probe failed: %w", err)
	}

	if err := os.Remove(marker); err != nil {
		return fmt.Errorf("probe cleanup failed: %w", err)
	}

	return nil
}
