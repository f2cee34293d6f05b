package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/types"
)

const (
	juiceFsMountTimeout time.Duration = 30 * time.Second
	mountStopTimeout    time.Duration = 5 * time.Second
)

var juicefsBinary = "juicefs"

type commandRunner func(ctx context.Context, name string, arg ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, arg ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, arg...).CombinedOutput()
}

// JuiceFsStorage drives the external juicefs binary. The mount runs in the
// foreground so process supervision maps one-to-one onto filesystem
// availability.
type JuiceFsStorage struct {
	mountCmd *exec.Cmd
	waitCh   chan error
	config   types.MounterConfig

	mountTimeout time.Duration
	runCommand   commandRunner
}

func NewJuiceFsStorage(config types.MounterConfig) (Storage, error) {
	return &JuiceFsStorage{
		config:       config,
		waitCh:       make(chan error, 1),
		mountTimeout: juiceFsMountTimeout,
		runCommand:   defaultCommandRunner,
	}, nil
}

// Format creates the logical volume. It is idempotent: when the create
// attempt fails but a status query confirms the volume already exists, the
// prior format is reused and no error is surfaced.
func (s *JuiceFsStorage) Format(ctx context.Context, fsName string) error {
	blockSize := strconv.FormatInt(s.config.Volume.BlockSize, 10)
	if s.config.Volume.BlockSize <= 0 {
		blockSize = "4096"
	}

	args := []string{
		"format",
		"--storage", "s3",
		"--bucket", s.config.ObjectStore.BucketName,
		"--block-size", blockSize,
		s.config.Metadata.URI,
		fsName,
		"--no-update",
	}

	if s.config.ObjectStore.AccessKey != "" || s.config.ObjectStore.SecretKey != "" {
		args = append(args,
			"--access-key", s.config.ObjectStore.AccessKey,
			"--secret-key", s.config.ObjectStore.SecretKey,
		)
	}

	output, err := s.runCommand(ctx, "juicefs", args...)
	if err == nil {
		return nil
	}

	if s.alreadyFormatted(ctx, fsName) {
		log.Info().Str("volume", fsName).Msg("volume already formatted, reusing")
		return nil
	}

	return &types.ErrVolumeFormat{Name: fsName, Cause: fmt.Errorf("%v, output: %s", err, string(output))}
}

// alreadyFormatted queries the metadata engine for an existing volume with
// the given name.
func (s *JuiceFsStorage) alreadyFormatted(ctx context.Context, fsName string) bool {
	output, err := s.runCommand(ctx, "juicefs", "status", s.config.Metadata.URI)
	if err != nil {
		return false
	}

	var status struct {
		Setting struct {
			Name string `json:"Name"`
		} `json:"Setting"`
	}
	if err := json.Unmarshal(output, &status); err != nil {
		return false
	}

	return status.Setting.Name == fsName
}

// Mount starts the filesystem client in the foreground and returns once the
// path is confirmed to be a live mount point. Wait blocks on the serving
// process afterwards.
func (s *JuiceFsStorage) Mount(ctx context.Context, localPath string) error {
	log.Info().Str("local_path", localPath).Msg("juicefs filesystem mounting")

	cacheSize := strconv.FormatInt(s.config.Volume.CacheSize, 10)

	prefetch := strconv.FormatInt(s.config.Volume.Prefetch, 10)
	if s.config.Volume.Prefetch <= 0 {
		prefetch = "1"
	}

	bufferSize := strconv.FormatInt(s.config.Volume.BufferSize, 10)
	if s.config.Volume.BufferSize <= 0 {
		bufferSize = "300"
	}

	args := []string{
		"mount",
		s.config.Metadata.URI,
		localPath,
		"--bucket", s.config.ObjectStore.BucketName,
		"--cache-size", cacheSize,
		"--prefetch", prefetch,
		"--buffer-size", bufferSize,
		"--no-bgjob",
		"--no-usage-report",
	}

	if s.config.Volume.CacheDir != "" {
		args = append(args, "--cache-dir", s.config.Volume.CacheDir)
	}

	// The mount command is deliberately not bound to ctx: cancellation would
	// SIGKILL the FUSE client and forfeit its flush and teardown. Shutdown
	// goes through Unmount (or stopMountClient) instead.
	s.mountCmd = exec.Command(juicefsBinary, args...)
	if err := s.mountCmd.Start(); err != nil {
		return fmt.Errorf("error starting juicefs mount: %w", err)
	}

	go func() {
		s.waitCh <- s.mountCmd.Wait()
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(s.mountTimeout)

	for {
		select {
		case <-ctx.Done():
			s.stopMountClient()
			return ctx.Err()
		case err := <-s.waitCh:
			return fmt.Errorf("juicefs mount exited before '%s' became a mount point: %v", localPath, err)
		case <-timeout:
			s.stopMountClient()
			return fmt.Errorf("failed to mount juicefs filesystem to: '%s'", localPath)
		case <-ticker.C:
			if isFuseMounted(localPath) {
				log.Info().Str("local_path", localPath).Msg("juicefs filesystem mounted")
				return nil
			}
		}
	}
}

// stopMountClient asks the foreground client to exit and reaps it. SIGTERM
// first so the client can flush; SIGKILL only if it ignores the request.
func (s *JuiceFsStorage) stopMountClient() error {
	if s.mountCmd == nil || s.mountCmd.Process == nil {
		return nil
	}

	s.mountCmd.Process.Signal(syscall.SIGTERM)

	select {
	case err := <-s.waitCh:
		return err
	case <-time.After(mountStopTimeout):
		s.mountCmd.Process.Kill()
		return <-s.waitCh
	}
}

// Wait blocks until the foreground mount process exits.
func (s *JuiceFsStorage) Wait() error {
	return <-s.waitCh
}

func (s *JuiceFsStorage) Unmount(localPath string) error {
	output, err := s.runCommand(context.Background(), "juicefs", "umount", localPath)
	if err != nil {
		return fmt.Errorf("error executing juicefs umount: %v, output: %s", err, string(output))
	}

	log.Info().Str("local_path", localPath).Msg("juicefs filesystem unmounted")
	return nil
}
