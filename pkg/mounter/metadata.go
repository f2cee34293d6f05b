package mounter

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/runlayer/sidemount/pkg/common"
	"github.com/runlayer/sidemount/pkg/metrics"
	"github.com/runlayer/sidemount/pkg/types"
)

const (
	defaultConnectAttempts      = 30
	defaultConnectRetryInterval = 2 * time.Second
)

// DialFunc opens a verified connection to the metadata store.
type DialFunc func(ctx context.Context, config types.MetadataConfig) (*common.RedisClient, error)

func defaultDial(ctx context.Context, config types.MetadataConfig) (*common.RedisClient, error) {
	return common.NewRedisClient(config, common.WithClientName("SidemountMounter"))
}

// connectMetadataStore dials the metadata engine with a fixed-interval retry
// budget. Exhausting the budget is the caller's signal to exit: this is the
// one place where retries are bounded and failure is fatal rather than
// recoverable.
func connectMetadataStore(ctx context.Context, config types.MetadataConfig, dial DialFunc, registry *metrics.Registry) (*common.RedisClient, error) {
	attempts := config.ConnectAttempts
	if attempts <= 0 {
		attempts = defaultConnectAttempts
	}

	interval := config.ConnectRetryInterval
	if interval <= 0 {
		interval = defaultConnectRetryInterval
	}

	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(attempts-1))

	var client *common.RedisClient
	var lastErr error
	tried := 0

	operation := func() error {
		tried++
		if registry != nil {
			registry.RecordMetadataConnectAttempt()
		}

		c, err := dial(ctx, config)
		if err != nil {
			lastErr = err
			return err
		}

		client = c
		return nil
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx),
		func(err error, d time.Duration) {
			log.Warn().Err(err).Dur("retry_in", d).Int("attempt", tried).Msg("metadata store unreachable, retrying")
		})
	if err != nil {
		return nil, &types.ErrMetadataUnreachable{Attempts: tried, Cause: lastErr}
	}

	log.Info().Int("attempts", tried).Msg("connected to metadata store")
	return client, nil
}
