package consumer

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/common"
	"github.com/runlayer/sidemount/pkg/metrics"
	"github.com/runlayer/sidemount/pkg/mount"
	"github.com/runlayer/sidemount/pkg/types"
)

const (
	defaultPollInterval     = 1 * time.Second
	defaultMountWaitTimeout = 120 * time.Second
	shutdownTimeout         = 10 * time.Second
)

// MountChecker is the consumer's only window onto the mounter: it observes
// whether the shared path is a live mount point, with no back-channel to
// learn why it might not be one yet.
type MountChecker interface {
	IsMountPoint(path string) bool
	WriteProbe(path string) error
}

// Consumer waits for the shared path to become a live mount point, then
// serves the workspace rooted there. It receives no credential material, no
// object-store address, and no metadata-store address; its configuration
// type cannot even express them.
type Consumer struct {
	ctx    context.Context
	cancel context.CancelFunc

	config   types.ConsumerAppConfig
	checker  MountChecker
	registry *metrics.Registry
}

func NewConsumer() (*Consumer, error) {
	configManager, err := common.NewConfigManager[types.ConsumerAppConfig]()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		ctx:      ctx,
		cancel:   cancel,
		config:   configManager.GetConfig(),
		checker:  mount.NewChecker(),
		registry: metrics.NewRegistry(),
	}, nil
}

// Run blocks until the mount is confirmed, prepares the workspace, and
// serves it until terminated. A mount-wait timeout is fatal: proceeding
// against a plain directory would let workload writes vanish into an
// ephemeral, unsynced location.
func (c *Consumer) Run() error {
	go c.listenForShutdown()

	start := time.Now()
	if err := c.awaitMount(); err != nil {
		return err
	}
	c.registry.RecordMountWait(time.Since(start))

	c.prepareWorkspace()

	server := NewServer(c.config.Consumer, c.checker, c.registry, os.Stdout, c.config.DebugMode)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("workspace server failed")
		}
	}()

	<-c.ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// awaitMount polls the shared path until it is a live mount point or the
// deadline passes. It performs no filesystem writes while waiting.
func (c *Consumer) awaitMount() error {
	interval := c.config.Consumer.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	maxWait := c.config.Consumer.MountWaitTimeout
	if maxWait <= 0 {
		maxWait = defaultMountWaitTimeout
	}

	path := c.config.Consumer.MountPath
	log.Info().Str("path", path).Dur("max_wait", maxWait).Msg("waiting for mount")

	if c.checker.IsMountPoint(path) {
		log.Info().Str("path", path).Msg("mount point ready")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(maxWait)

	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case <-deadline:
			return &types.ErrMountWaitTimeout{Path: path, Waited: maxWait}
		case <-ticker.C:
			if c.checker.IsMountPoint(path) {
				log.Info().Str("path", path).Msg("mount point ready")
				return nil
			}
		}
	}
}

// prepareWorkspace runs a best-effort write probe and creates the workload's
// subdirectory structure. Probe and mkdir failures are logged and tolerated:
// ownership adjustments may legitimately fail without blocking startup.
func (c *Consumer) prepareWorkspace() {
	path := c.config.Consumer.MountPath

	if err := c.checker.WriteProbe(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("workspace write probe failed, continuing")
	}

	for _, dir := range c.config.Consumer.WorkspaceDirs {
		target := filepath.Join(path, dir)
		if err := os.MkdirAll(target, 0755); err != nil {
			log.Warn().Err(err).Str("dir", target).Msg("unable to create workspace directory")
		}
	}
}

// listenForShutdown listens for SIGINT and SIGTERM signals and cancels the consumer context
func (c *Consumer) listenForShutdown() {
	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGINT, syscall.SIGTERM)

	<-terminate
	log.Info().Msg("shutdown signal received")

	c.cancel()
}
