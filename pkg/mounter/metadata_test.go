package mounter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/runlayer/sidemount/pkg/common"
	"github.com/runlayer/sidemount/pkg/types"
)

var errRefused = errors.New("connection refused")

// newFlakyDial fails the first n attempts, then succeeds.
func newFlakyDial(n int, calls *int) DialFunc {
	return func(ctx context.Context, config types.MetadataConfig) (*common.RedisClient, error) {
		*calls++
		if *calls <= n {
			return nil, errRefused
		}
		return &common.RedisClient{}, nil
	}
}

func fastConfig(attempts int) types.MetadataConfig {
	return types.MetadataConfig{
		URI:                  "redis://localhost:6379/0",
		ConnectAttempts:      attempts,
		ConnectRetryInterval: time.Millisecond,
	}
}

func TestConnectSucceedsOnLastAttempt(t *testing.T) {
	calls := 0
	dial := newFlakyDial(29, &calls)

	client, err := connectMetadataStore(context.Background(), fastConfig(30), dial, nil)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 30, calls)
}

func TestConnectExhaustsRetryBudget(t *testing.T) {
	calls := 0
	dial := newFlakyDial(1000, &calls)

	client, err := connectMetadataStore(context.Background(), fastConfig(30), dial, nil)
	assert.Nil(t, client)
	assert.Error(t, err)

	// The budget caps total attempts at 30: a store that would have come up
	// on attempt 31 is never observed
	assert.Equal(t, 30, calls)

	var unreachable *types.ErrMetadataUnreachable
	assert.ErrorAs(t, err, &unreachable)
	assert.Equal(t, 30, unreachable.Attempts)
	assert.ErrorIs(t, err, errRefused)
}

func TestConnectFirstTry(t *testing.T) {
	calls := 0
	dial := newFlakyDial(0, &calls)

	client, err := connectMetadataStore(context.Background(), fastConfig(30), dial, nil)
	assert.NoError(t, err)
	assert.NotNil(t, client)
	assert.Equal(t, 1, calls)
}

func TestConnectRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	dial := func(dctx context.Context, config types.MetadataConfig) (*common.RedisClient, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return nil, errRefused
	}

	_, err := connectMetadataStore(ctx, fastConfig(30), dial, nil)
	assert.Error(t, err)
	assert.Less(t, calls, 30)
}

func TestConnectAgainstRealStore(t *testing.T) {
	s, err := miniredis.Run()
	assert.NoError(t, err)
	defer s.Close()

	config := types.MetadataConfig{
		URI:                  fmt.Sprintf("redis://%s/0", s.Addr()),
		ConnectAttempts:      3,
		ConnectRetryInterval: time.Millisecond,
	}

	client, err := connectMetadataStore(context.Background(), config, defaultDial, nil)
	assert.NoError(t, err)
	assert.NotNil(t, client)

	assert.NoError(t, client.Ping(context.Background()).Err())
}
