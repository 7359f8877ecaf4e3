package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// resolve maps a storage path onto the base directory. Paths whose cleaned
// form is absolute or climbs above the base directory are rejected before
// touching the filesystem.
func (s *LocalStorage) resolve(storagePath string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(storagePath))
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage path escapes the storage root: %s", storagePath)
	}
	return filepath.Join(s.basePath, rel), nil
}

// Upload stores a file locally and returns the path plus bytes written.
// The size comes from the bytes actually copied to disk, never from a
// caller-declared length.
func (s *LocalStorage) Upload(ctx context.Context, storagePath string, data io.Reader) (string, int64, error) {
	if storagePath == "" {
		storagePath = generatedPath()
	}
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return "", 0, err
	}

	// Create directory structure
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath) // Clean up on error
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return storagePath, written, nil
}

// Download retrieves a file from local storage
func (s *LocalStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Delete removes a file from local storage
func (s *LocalStorage) Delete(ctx context.Context, storagePath string) error {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// PresignURL simulates a presigned URL for a local file. The token embeds
// an expiry timestamp and is a plain digest, not a signed capability;
// callers must not treat it as tamper-proof.
func (s *LocalStorage) PresignURL(ctx context.Context, storagePath string, expiresIn time.Duration) (string, error) {
	fullPath, err := s.resolve(storagePath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, storagePath)
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	expires := time.Now().Add(expiresIn).Unix()
	token := localToken(storagePath, expires)

	u := url.URL{Path: "/public/files/" + storagePath}
	q := url.Values{}
	q.Set("token", token)
	q.Set("expires", strconv.FormatInt(expires, 10))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// ValidateLocalToken checks a token produced by PresignURL against the
// path and expiry it was issued for.
func ValidateLocalToken(storagePath string, token string, expires int64) bool {
	if time.Now().Unix() > expires {
		return false
	}
	return token == localToken(storagePath, expires)
}

func localToken(storagePath string, expires int64) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d", storagePath, expires)))
	return hex.EncodeToString(sum[:])
}
