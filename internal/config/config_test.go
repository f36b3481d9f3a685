package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("TRASH_PREFIX", "/.trash/")
	t.Setenv("PRESIGN_TTL", "720h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StorageBackendMemory, cfg.StorageBackend)
	assert.Equal(t, ".trash", cfg.TrashPrefix)
	assert.Equal(t, 720*time.Hour, cfg.TrashRetention)
	assert.Equal(t, MaxPresignTTL, cfg.PresignTTL)
	assert.Equal(t, 500, cfg.SearchMaxResults)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, uint64(DefaultS3PartSize), cfg.S3PartSize)
}

func TestLoadPartSize(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("S3_BUCKET", "files")
	t.Setenv("S3_PART_SIZE", "64MiB")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(64<<20), cfg.S3PartSize)

	t.Setenv("S3_PART_SIZE", "1MiB")
	_, err = Load()
	require.ErrorContains(t, err, "S3_PART_SIZE")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:       "8080",
			JWTSecret:        "secret",
			StorageBackend:   StorageBackendS3,
			S3Bucket:         "files",
			S3PartSize:       DefaultS3PartSize,
			TrashPrefix:      ".trash",
			TrashRetention:   time.Hour,
			PresignTTL:       time.Hour,
			SearchMaxResults: 10,
			MoveConcurrency:  2,
			MaxUploadSize:    1024,
			RequestTimeout:   time.Second,
			TransferTimeout:  time.Hour,
		}
	}

	require.NoError(t, valid().Validate())

	t.Run("missing secret", func(t *testing.T) {
		cfg := valid()
		cfg.JWTSecret = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("s3 backend needs a bucket", func(t *testing.T) {
		cfg := valid()
		cfg.S3Bucket = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("part size below the s3 minimum", func(t *testing.T) {
		cfg := valid()
		cfg.S3PartSize = 1 << 20
		require.Error(t, cfg.Validate())
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := valid()
		cfg.StorageBackend = "ftp"
		require.Error(t, cfg.Validate())
	})

	t.Run("nested trash prefix", func(t *testing.T) {
		cfg := valid()
		cfg.TrashPrefix = "a/b"
		require.Error(t, cfg.Validate())
	})

	t.Run("short presign ttl is clamped", func(t *testing.T) {
		cfg := valid()
		cfg.PresignTTL = time.Second
		require.NoError(t, cfg.Validate())
		assert.Equal(t, MinPresignTTL, cfg.PresignTTL)
	})
}
