package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

const (
	StorageBackendS3     = "s3"
	StorageBackendMemory = "memory"

	MinPresignTTL = time.Minute
	MaxPresignTTL = 7 * 24 * time.Hour

	MinS3PartSize     = 5 << 20
	MaxS3PartSize     = 5 << 30
	DefaultS3PartSize = 16 << 20
)

type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration
	TransferTimeout         time.Duration
	TransferIdleTimeout     time.Duration
	LogLevel                string

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	StorageBackend   string
	S3Endpoint       string
	S3Region         string
	S3Bucket         string
	S3AccessKey      string
	S3SecretKey      string
	S3UseSSL         bool
	S3ForcePathStyle bool
	S3CreateBucket   bool
	S3PartSize       uint64

	TrashPrefix        string
	TrashRetention     time.Duration
	TrashSweepInterval time.Duration
	AuditRetention     time.Duration

	PresignTTL       time.Duration
	SearchMaxResults int
	MoveConcurrency  int
	MaxUploadSize    int64

	JWTSecret     string
	JWTAccessTTL  time.Duration
	AdminUsername string
	AdminPassword string

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 10*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 0),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 60*time.Second),
		TransferTimeout:         getDuration("TRANSFER_TIMEOUT", 6*time.Hour),
		TransferIdleTimeout:     getDuration("TRANSFER_IDLE_TIMEOUT", 2*time.Minute),
		LogLevel:                getEnv("LOG_LEVEL", "info"),

		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:  int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:  int32(getInt("DB_MIN_CONNS", 1)),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", StorageBackendS3)),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3AccessKey:      strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		S3SecretKey:      strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		S3UseSSL:         getBool("S3_USE_SSL", true),
		S3ForcePathStyle: getBool("S3_FORCE_PATH_STYLE", false),
		S3CreateBucket:   getBool("S3_CREATE_BUCKET", false),
		S3PartSize:       getBytes("S3_PART_SIZE", DefaultS3PartSize),

		TrashPrefix:        getEnv("TRASH_PREFIX", ".trash"),
		TrashRetention:     getDuration("TRASH_RETENTION", 720*time.Hour),
		TrashSweepInterval: getDuration("TRASH_SWEEP_INTERVAL", time.Hour),
		AuditRetention:     getDuration("AUDIT_RETENTION", 0),

		PresignTTL:       getDuration("PRESIGN_TTL", time.Hour),
		SearchMaxResults: getInt("SEARCH_MAX_RESULTS", 500),
		MoveConcurrency:  getInt("MOVE_CONCURRENCY", 8),
		MaxUploadSize:    getInt64("MAX_UPLOAD_SIZE", 5368709120),

		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTAccessTTL:  getDuration("JWT_ACCESS_TTL", 8*time.Hour),
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),

		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:     getInt("RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM: getInt("AUTH_RATE_LIMIT_RPM", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	switch c.StorageBackend {
	case StorageBackendS3:
		if strings.TrimSpace(c.S3Bucket) == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
		if c.S3PartSize < MinS3PartSize || c.S3PartSize > MaxS3PartSize {
			return fmt.Errorf("S3_PART_SIZE must be between %s and %s",
				humanize.IBytes(MinS3PartSize), humanize.IBytes(MaxS3PartSize))
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q", StorageBackendS3, StorageBackendMemory)
	}

	trimmed := strings.Trim(strings.TrimSpace(c.TrashPrefix), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return fmt.Errorf("TRASH_PREFIX must be a single non-empty path segment")
	}
	c.TrashPrefix = trimmed

	if c.TrashRetention <= 0 {
		return fmt.Errorf("TRASH_RETENTION must be positive")
	}

	if c.TrashSweepInterval < 0 {
		return fmt.Errorf("TRASH_SWEEP_INTERVAL cannot be negative")
	}

	if c.AuditRetention < 0 {
		return fmt.Errorf("AUDIT_RETENTION cannot be negative")
	}

	c.PresignTTL = ClampPresignTTL(c.PresignTTL)

	if c.SearchMaxResults <= 0 {
		return fmt.Errorf("SEARCH_MAX_RESULTS must be positive")
	}

	if c.MoveConcurrency <= 0 {
		return fmt.Errorf("MOVE_CONCURRENCY must be positive")
	}

	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.TransferTimeout <= 0 {
		return fmt.Errorf("TRANSFER_TIMEOUT must be positive")
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}

	return nil
}

// ClampPresignTTL bounds a presigned URL lifetime to what S3 accepts.
func ClampPresignTTL(ttl time.Duration) time.Duration {
	if ttl < MinPresignTTL {
		return MinPresignTTL
	}
	if ttl > MaxPresignTTL {
		return MaxPresignTTL
	}

	return ttl
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}

	return v
}

// getBytes accepts plain byte counts and humanized sizes such as "16MiB".
func getBytes(key string, fallback uint64) uint64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := humanize.ParseBytes(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
