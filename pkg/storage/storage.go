package storage

import (
	"context"

	"golang.org/x/sys/unix"
)

// Storage is the mounter's view of the filesystem client. Format must be
// idempotent; Mount returns once the path is confirmed to be a live mount
// point and Wait blocks until the serving process exits.
type Storage interface {
	Format(ctx context.Context, fsName string) error
	Mount(ctx context.Context, localPath string) error
	Wait() error
	Unmount(localPath string) error
}

// isFuseMounted uses statfs to check if the specified FUSE mount point is available
func isFuseMounted(mountPoint string) bool {
	var statfs unix.Statfs_t
	if err := unix.Statfs(mountPoint, &statfs); err != nil {
		return false
	}

	// FUSE filesystems usually have a magic number 0x65735546 (FUSE_SUPER_MAGIC)
	const FUSE_SUPER_MAGIC = 0x65735546
	return statfs.Type == FUSE_SUPER_MAGIC
}
