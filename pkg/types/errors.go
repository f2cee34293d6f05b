package types

import (
	"fmt"
	"time"
)

// ErrMetadataUnreachable is returned once the metadata-store connect budget
// is exhausted. It is always fatal to the mounter.
type ErrMetadataUnreachable struct {
	Attempts int
	Cause    error
}

func (e *ErrMetadataUnreachable) Error() string {
	return fmt.Sprintf("metadata store unreachable after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ErrMetadataUnreachable) Unwrap() error {
	return e.Cause
}

// ErrMountWaitTimeout is returned by the consumer when the shared path never
// became a live mount point within the configured deadline.
type ErrMountWaitTimeout struct {
	Path   string
	Waited time.Duration
}

func (e *ErrMountWaitTimeout) Error() string {
	return fmt.Sprintf("path '%s' did not become a mount point within %s", e.Path, e.Waited)
}

// ErrVolumeFormat is returned when formatting fails for a reason other than
// the volume already existing.
type ErrVolumeFormat struct {
	Name  string
	Cause error
}

func (e *ErrVolumeFormat) Error() string {
	return fmt.Sprintf("unable to format volume '%s': %v", e.Name, e.Cause)
}

func (e *ErrVolumeFormat) Unwrap() error {
	return e.Cause
}
