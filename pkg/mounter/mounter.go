package mounter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/common"
	"github.com/runlayer/sidemount/pkg/health"
	"github.com/runlayer/sidemount/pkg/metrics"
	"github.com/runlayer/sidemount/pkg/mount"
	"github.com/runlayer/sidemount/pkg/storage"
	"github.com/runlayer/sidemount/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// Mounter owns the volume credentials and the mount lifecycle. It formats
// the logical volume against the metadata store, mounts it at the shared
// path, and serves the mount in the foreground until terminated. The mount
// propagates to sibling processes through the shared mount namespace; the
// consumer never talks to the mounter directly.
type Mounter struct {
	ctx    context.Context
	cancel context.CancelFunc

	config   types.MounterAppConfig
	storage  storage.Storage
	state    *mount.StateMachine
	checker  *mount.Checker
	registry *metrics.Registry
	dial     DialFunc
}

func NewMounter() (*Mounter, error) {
	configManager, err := common.NewConfigManager[types.MounterAppConfig]()
	if err != nil {
		return nil, err
	}
	config := configManager.GetConfig()

	if err := validateConfig(&config.Mounter); err != nil {
		return nil, err
	}

	s, err := storage.NewJuiceFsStorage(config.Mounter)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Mounter{
		ctx:      ctx,
		cancel:   cancel,
		config:   config,
		storage:  s,
		state:    mount.NewStateMachine(),
		checker:  mount.NewChecker(),
		registry: metrics.NewRegistry(),
		dial:     defaultDial,
	}, nil
}

func validateConfig(config *types.MounterConfig) error {
	if config.Metadata.URI == "" {
		return errors.New("mounter: metadata uri is required")
	}
	if config.ObjectStore.BucketName == "" {
		return errors.New("mounter: object store bucket is required")
	}
	if config.Volume.Name == "" || config.Volume.MountPath == "" {
		return errors.New("mounter: volume name and mount path are required")
	}
	return nil
}

// Run executes the mount lifecycle and blocks serving the mount until the
// process is terminated or the filesystem client exits.
func (m *Mounter) Run() error {
	go m.listenForShutdown()

	client, err := connectMetadataStore(m.ctx, m.config.Mounter.Metadata, m.dial, m.registry)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.config.Mounter.ObjectStore.VerifyBucket {
		if err := m.verifyObjectStore(); err != nil {
			return err
		}
	}

	if err := m.setState(mount.StateMountInProgress); err != nil {
		return err
	}

	volume := m.config.Mounter.Volume
	if err := os.MkdirAll(volume.MountPath, 0755); err != nil {
		return err
	}

	if err := m.storage.Format(m.ctx, volume.Name); err != nil {
		m.setState(mount.StateMountFailed)
		return err
	}

	if err := m.storage.Mount(m.ctx, volume.MountPath); err != nil {
		m.setState(mount.StateMountFailed)
		return err
	}

	if err := m.setState(mount.StateMounted); err != nil {
		return err
	}

	monitor := health.NewMonitor(
		m.config.Mounter.Health.CheckInterval,
		m.config.Mounter.Health.FailureThreshold,
		health.Check{Name: "mountpoint", Run: m.checkMountPoint},
		health.Check{Name: "write_probe", Run: m.checkWriteProbe},
	)
	go monitor.Start(m.ctx)

	server := health.NewServer(m.config.Mounter.Health.Port, monitor.Healthy, m.ready, m.registry.Registrar())
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server failed")
		}
	}()

	// Block serving the mount. Control only returns on termination or when
	// the filesystem client itself exits.
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- m.storage.Wait()
	}()

	var runErr error
	clientExited := false
	select {
	case <-m.ctx.Done():
	case err := <-waitErr:
		clientExited = true
		runErr = fmt.Errorf("filesystem client exited unexpectedly: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	// Unmount first, then wait for the foreground client to flush and exit
	// on its own. The client is never killed before the unmount request.
	if err := m.storage.Unmount(volume.MountPath); err != nil {
		log.Error().Err(err).Msg("unmount failed during shutdown")
	} else {
		m.setState(mount.StateUnmounted)
	}

	if !clientExited {
		select {
		case <-waitErr:
		case <-time.After(shutdownTimeout):
			log.Warn().Msg("filesystem client did not exit after unmount")
		}
	}

	return runErr
}

// ready implements the readiness contract: the path must be a live mount
// point, nothing more. Liveness is stricter and also requires the write
// probe to keep passing.
func (m *Mounter) ready() error {
	if !m.checker.IsMountPoint(m.config.Mounter.Volume.MountPath) {
		return fmt.Errorf("'%s' is not a mount point", m.config.Mounter.Volume.MountPath)
	}
	return nil
}

func (m *Mounter) checkMountPoint(ctx context.Context) error {
	if !m.checker.IsMountPoint(m.config.Mounter.Volume.MountPath) {
		m.registry.RecordProbeFailure()
		return fmt.Errorf("'%s' is not a mount point", m.config.Mounter.Volume.MountPath)
	}
	return nil
}

func (m *Mounter) checkWriteProbe(ctx context.Context) error {
	if err := m.checker.WriteProbe(m.config.Mounter.Volume.MountPath); err != nil {
		m.registry.RecordProbeFailure()
		return err
	}
	return nil
}

func (m *Mounter) verifyObjectStore() error {
	client, err := common.NewObjectStoreClient(m.ctx, m.config.Mounter.ObjectStore)
	if err != nil {
		return err
	}

	if err := common.VerifyBucket(m.ctx, client, m.config.Mounter.ObjectStore.BucketName); err != nil {
		return fmt.Errorf("object store bucket '%s' is not reachable: %w", m.config.Mounter.ObjectStore.BucketName, err)
	}

	return nil
}

func (m *Mounter) setState(s mount.State) error {
	if err := m.state.Transition(s); err != nil {
		return err
	}

	m.registry.SetMountState(int(s))
	return nil
}

// listenForShutdown listens for SIGINT and SIGTERM signals and cancels the mounter context
func (m *Mounter) listenForShutdown() {
	terminate := make(chan os.Signal, 1)
	signal.Notify(terminate, syscall.SIGINT, syscall.SIGTERM)

	<-terminate
	log.Info().Msg("shutdown signal received")

	m.cancel()
}
