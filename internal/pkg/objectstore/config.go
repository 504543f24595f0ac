package objectstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/env"
)

// Config holds the S3 mirror configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PathPrefix      string
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PathPrefix:      env.GetEnv("S3_PATH_PREFIX", "coloring"),
		Enabled:         env.GetEnvBool("S3_MIRROR_ENABLED", false),
	}

	if cfg.Enabled {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks the fields required to talk to the bucket
func (c *Config) Validate() error {
	if c.AccessKeyID == "" {
		return errors.New("S3_ACCESS_KEY_ID is required when the S3 mirror is enabled")
	}
	if c.SecretAccessKey == "" {
		return errors.New("S3_SECRET_ACCESS_KEY is required when the S3 mirror is enabled")
	}
	if c.BucketName == "" {
		return errors.New("S3_BUCKET_NAME is required when the S3 mirror is enabled")
	}
	return nil
}

// IsEnabled returns true if mirroring is enabled
func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled
}

// ObjectKey builds the object key of a generated file.
// Format: <prefix>/YYYY/MM/<uuid>/<name>
func (c *Config) ObjectKey(pageUUID, name string, createdAt time.Time) string {
	key := fmt.Sprintf("%04d/%02d/%s/%s", createdAt.Year(), int(createdAt.Month()), pageUUID, name)
	if c.PathPrefix == "" {
		return key
	}
	return c.PathPrefix + "/" + key
}
