package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a storage path does not exist.
var ErrNotFound = errors.New("file not found")

// Storage interface for file storage operations. Every operation is
// fallible; callers must never assume success.
type Storage interface {
	// Upload stores data under storagePath and returns the path together
	// with the number of bytes durably written. An empty storagePath gets
	// a generated one under uploads/.
	Upload(ctx context.Context, storagePath string, data io.Reader) (string, int64, error)

	// Download retrieves a file by storage path.
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes a file by storage path.
	Delete(ctx context.Context, storagePath string) error

	// PresignURL returns a time-limited download URL for the path. For
	// local storage this is a simulated token, not a signed capability.
	PresignURL(ctx context.Context, storagePath string, expiresIn time.Duration) (string, error)
}

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case StorageTypeS3:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// NewStorageFromEnv creates a storage instance from environment variables
func NewStorageFromEnv() (Storage, error) {
	storageType := os.Getenv("STORAGE_TYPE")
	if storageType == "" {
		storageType = "local" // Default to local for development
	}

	switch StorageType(storageType) {
	case StorageTypeLocal:
		localPath := os.Getenv("STORAGE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./storage/files" // Default local storage path
		}
		return NewLocalStorage(localPath)

	case StorageTypeS3:
		cfg := StorageConfig{Type: StorageTypeS3}
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1" // Default region
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

		return NewS3Storage(cfg)

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageType)
	}
}

// UserScopedPath builds the storage path for a user upload:
// users/<userId>/<sanitized filename>.
func UserScopedPath(userID string, filename string) string {
	return path.Join("users", userID, SanitizeFilename(filename))
}

// VersionScopedPath builds a unique storage path for a new version of a
// user's file: users/<userId>/versions/<uuid>_<sanitized filename>. Every
// version owns its object; an upload must never land on a path an earlier
// version still points at.
func VersionScopedPath(userID string, filename string) string {
	return path.Join("users", userID, "versions", uuid.New().String()+"_"+SanitizeFilename(filename))
}

// SanitizeFilename strips path separators and whitespace that would break
// the storage layout.
func SanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == ".." {
		name = "unnamed"
	}
	return name
}

// generatedPath creates a unique storage path for callers that did not
// provide one.
func generatedPath() string {
	return "uploads/" + uuid.New().String()
}
