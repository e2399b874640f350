package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Config holds settings for AWS S3 or another S3-compatible service reached
// through the AWS SDK.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	UsePathStyle    bool
}

// FSConfig holds settings for the local filesystem backend.
type FSConfig struct {
	Root      string
	URLPrefix string
}

// StorageConfig selects and configures the blob storage backend.
// Backend is one of "minio", "s3", "fs" or "memory".
type StorageConfig struct {
	Backend string
	MinIO   MinIOConfig
	S3      S3Config
	FS      FSConfig
}

// PhotoConfig holds the declaration of the photo image field.
type PhotoConfig struct {
	// UploadTo is a strftime template for the upload directory, e.g. "photos/%Y/%m/%d".
	UploadTo string
	// Thumbnails is a JSON object mapping variant key to transform spec.
	Thumbnails string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Timezone string
	Database DatabaseConfig
	Storage  StorageConfig
	Photo    PhotoConfig
}

// DefaultThumbnails is used when PHOTO_THUMBNAILS is unset.
const DefaultThumbnails = `{"thumb":{"w":150,"h":150,"fit":true},"display":{"w":1024,"fit":true}}`

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Timezone: getEnv("APP_TIMEZONE", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", "minio"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:          getEnv("S3_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
			},
			FS: FSConfig{
				Root:      getEnv("FS_ROOT", "./data/media"),
				URLPrefix: getEnv("FS_URL_PREFIX", ""),
			},
		},
		Photo: PhotoConfig{
			UploadTo:   getEnv("PHOTO_UPLOAD_TO", "photos/%Y/%m/%d"),
			Thumbnails: getEnv("PHOTO_THUMBNAILS", DefaultThumbnails),
		},
	}
}

// ParseThumbnails decodes a JSON object of variant key to transform spec.
func ParseThumbnails(raw string) (map[string]map[string]any, error) {
	var specs map[string]map[string]any
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		return nil, fmt.Errorf("parse thumbnails: %w", err)
	}
	for key, spec := range specs {
		if key == "" || key == "original" {
			return nil, fmt.Errorf("parse thumbnails: invalid variant key %q", key)
		}
		if spec == nil {
			return nil, fmt.Errorf("parse thumbnails: variant %q has no spec", key)
		}
	}
	return specs, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
