package common

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/runlayer/sidemount/pkg/types"
)

var (
	ErrConnectionIssue = errors.New("redis: connection issue")
	ErrInvalidURI      = errors.New("redis: invalid metadata uri")
)

// RedisClient wraps the go-redis client used to reach the metadata engine.
// Only the mounter ever constructs one.
type RedisClient struct {
	*redis.Client
}

func WithClientName(name string) func(*redis.Options) {
	// Remove empty spaces and new lines
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "\n", "")

	// Remove special characters using a regular expression
	reg := regexp.MustCompile("[^a-zA-Z0-9]+")
	name = reg.ReplaceAllString(name, "")

	return func(o *redis.Options) {
		o.ClientName = name
	}
}

// NewRedisClient connects to the metadata store described by config.URI
// (redis://host:port/db) and verifies the connection with a ping.
func NewRedisClient(config types.MetadataConfig, options ...func(*redis.Options)) (*RedisClient, error) {
	opts, err := redis.ParseURL(config.URI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	for _, opt := range options {
		opt(opts)
	}

	client := redis.NewClient(opts)

	err = client.Ping(context.TODO()).Err()
	if err != nil {
		return nil, fmt.Errorf("%s: %s", ErrConnectionIssue, err)
	}

	return &RedisClient{Client: client}, nil
}
