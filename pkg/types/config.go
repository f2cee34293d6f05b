package types

import (
	"time"
)

// MounterAppConfig is the full configuration tree loaded by the mounter
// binary. It is the only place credential material ever appears.
type MounterAppConfig struct {
	DebugMode bool          `key:"debugMode" json:"debug_mode"`
	Mounter   MounterConfig `key:"mounter" json:"mounter"`
}

// ConsumerAppConfig is the configuration tree loaded by the consumer binary.
// It deliberately contains no credential, metadata-store, or object-store
// fields: the consumer's view of the world is a mount path and its own
// server settings, nothing else.
type ConsumerAppConfig struct {
	DebugMode bool           `key:"debugMode" json:"debug_mode"`
	Consumer  ConsumerConfig `key:"consumer" json:"consumer"`
}

type MounterConfig struct {
	Metadata    MetadataConfig    `key:"metadata" json:"metadata"`
	ObjectStore ObjectStoreConfig `key:"objectStore" json:"object_store"`
	Volume      VolumeConfig      `key:"volume" json:"volume"`
	Health      HealthConfig      `key:"health" json:"health"`
}

// MetadataConfig points at the metadata engine backing the volume. The URI
// carries the address and logical database index (redis://host:port/db).
type MetadataConfig struct {
	URI                  string        `key:"uri" json:"uri"`
	ConnectAttempts      int           `key:"connectAttempts" json:"connect_attempts"`
	ConnectRetryInterval time.Duration `key:"connectRetryInterval" json:"connect_retry_interval"`
}

type ObjectStoreConfig struct {
	BucketName   string `key:"bucketName" json:"bucket_name"`
	EndpointURL  string `key:"endpointURL" json:"endpoint_url"`
	Region       string `key:"region" json:"region"`
	AccessKey    string `key:"accessKey" json:"access_key"`
	SecretKey    string `key:"secretKey" json:"secret_key"`
	VerifyBucket bool   `key:"verifyBucket" json:"verify_bucket"`
}

type VolumeConfig struct {
	Name       string `key:"name" json:"name"`
	MountPath  string `key:"mountPath" json:"mount_path"`
	CacheDir   string `key:"cacheDir" json:"cache_dir"`
	CacheSize  int64  `key:"cacheSize" json:"cache_size"`
	BlockSize  int64  `key:"blockSize" json:"block_size"`
	BufferSize int64  `key:"bufferSize" json:"buffer_size"`
	Prefetch   int64  `key:"prefetch" json:"prefetch"`
}

type HealthConfig struct {
	Port             int           `key:"port" json:"port"`
	CheckInterval    time.Duration `key:"checkInterval" json:"check_interval"`
	FailureThreshold int           `key:"failureThreshold" json:"failure_threshold"`
}

type ConsumerConfig struct {
	MountPath        string        `key:"mountPath" json:"mount_path"`
	PollInterval     time.Duration `key:"pollInterval" json:"poll_interval"`
	MountWaitTimeout time.Duration `key:"mountWaitTimeout" json:"mount_wait_timeout"`
	WorkspaceDirs    []string      `key:"workspaceDirs" json:"workspace_dirs"`
	Server           ServerConfig  `key:"server" json:"server"`
}

type ServerConfig struct {
	Port int `key:"port" json:"port"`
}
