package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names read by parseEnv.
const (
	EnvHTTPAddr        = "HTTP_ADDR"
	EnvDatabaseDSN     = "DATABASE_DSN"
	EnvJWTSecret       = "JWT_SECRET"
	EnvTokenTTL        = "TOKEN_TTL"
	EnvUploadsDir      = "UPLOADS_DIR"
	EnvMaxUploadSize   = "MAX_UPLOAD_SIZE"
	EnvStorageBackend  = "STORAGE_BACKEND"
	EnvS3RootUser      = "S3_ROOT_USER"
	EnvS3RootPassword  = "S3_ROOT_PASSWORD"
	EnvS3Bucket        = "S3_BUCKET"
	EnvS3Region        = "S3_REGION"
	EnvS3BaseEndpoint  = "S3_BASE_ENDPOINT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
	EnvLogLevel        = "LOG_LEVEL"
)

// parseEnv overlays config with non-empty environment variables.
// Unparseable numeric or duration values are ignored.
func parseEnv(config *Config) {
	config.EndpointAddrHTTP = getEnvOrDefault(EnvHTTPAddr, config.EndpointAddrHTTP)
	config.DatabaseDSN = getEnvOrDefault(EnvDatabaseDSN, config.DatabaseDSN)
	config.SecretKey = getEnvOrDefault(EnvJWTSecret, config.SecretKey)
	config.AccessTokenValidityDuration = getEnvDuration(EnvTokenTTL, config.AccessTokenValidityDuration)
	config.UploadsDir = getEnvOrDefault(EnvUploadsDir, config.UploadsDir)
	config.MaxUploadSize = getEnvInt64(EnvMaxUploadSize, config.MaxUploadSize)
	config.StorageBackend = getEnvOrDefault(EnvStorageBackend, config.StorageBackend)
	config.S3RootUser = getEnvOrDefault(EnvS3RootUser, config.S3RootUser)
	config.S3RootPassword = getEnvOrDefault(EnvS3RootPassword, config.S3RootPassword)
	config.S3Bucket = getEnvOrDefault(EnvS3Bucket, config.S3Bucket)
	config.S3Region = getEnvOrDefault(EnvS3Region, config.S3Region)
	config.S3BaseEndpoint = getEnvOrDefault(EnvS3BaseEndpoint, config.S3BaseEndpoint)
	config.ShutdownTimeout = getEnvDuration(EnvShutdownTimeout, config.ShutdownTimeout)
	config.LogLevel = getEnvOrDefault(EnvLogLevel, config.LogLevel)
}

func getEnvOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
