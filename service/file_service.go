package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"filenet-backend/models"
	"filenet-backend/repository"
	"filenet-backend/storage"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound     = errors.New("file not found")
	ErrVersionNotFound  = errors.New("file version not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
)

// FileService sequences registry reads, permission checks and storage
// calls. Every file operation runs the access gate; there is no bypass,
// including for read-only metadata.
type FileService struct {
	fileRepo   repository.FileRepository
	storage    storage.Storage
	presignTTL time.Duration
}

// FileServiceOption is a functional option for FileService
type FileServiceOption func(*FileService)

// FileWithRepository sets the file repository
func FileWithRepository(repo repository.FileRepository) FileServiceOption {
	return func(s *FileService) {
		s.fileRepo = repo
	}
}

// FileWithStorage sets the storage backend
func FileWithStorage(st storage.Storage) FileServiceOption {
	return func(s *FileService) {
		s.storage = st
	}
}

// FileWithPresignTTL sets the lifetime of presigned download URLs
func FileWithPresignTTL(ttl time.Duration) FileServiceOption {
	return func(s *FileService) {
		s.presignTTL = ttl
	}
}

// NewFileService creates a new file service
func NewFileService(opts ...FileServiceOption) *FileService {
	s := &FileService{
		presignTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadRequest carries a new file upload.
type UploadRequest struct {
	OwnerID  uuid.UUID
	Filename string
	FileType string
	Metadata models.FileMetadata
	Data     io.Reader
}

// Upload writes the bytes to storage under users/<owner>/<filename>, then
// creates the file record with its implicit version 1. The recorded size
// is the byte count the storage adapter reports after the write completes.
func (s *FileService) Upload(ctx context.Context, req UploadRequest) (*models.File, error) {
	if req.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}

	storagePath := storage.UserScopedPath(req.OwnerID.String(), req.Filename)
	storedPath, size, err := s.storage.Upload(ctx, storagePath, req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	file := &models.File{
		UserID:      req.OwnerID,
		Filename:    storage.SanitizeFilename(req.Filename),
		FileType:    req.FileType,
		Size:        size,
		StoragePath: storedPath,
		Metadata:    req.Metadata,
		Permissions: models.NewOwnerPermissions(req.OwnerID.String()),
	}
	if err := s.fileRepo.Create(ctx, file, "Initial version"); err != nil {
		// Registry insert failed; remove the orphaned bytes.
		if cleanupErr := s.storage.Delete(ctx, storedPath); cleanupErr != nil {
			return nil, fmt.Errorf("failed to create file record: %w (cleanup also failed: %v)", err, cleanupErr)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}
	return file, nil
}

// Get returns the file record after running the read gate for actorID.
func (s *FileService) Get(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID) (*models.File, error) {
	return s.loadAndAuthorize(ctx, actorID, fileID, models.ActionRead)
}

// Download opens the file's bytes. A versionNumber of zero means the
// current version.
func (s *FileService) Download(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, versionNumber int) (io.ReadCloser, *models.File, error) {
	file, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionRead)
	if err != nil {
		return nil, nil, err
	}

	storagePath := file.StoragePath
	if versionNumber > 0 {
		version, err := s.fileRepo.GetVersion(ctx, fileID, versionNumber)
		if err != nil {
			return nil, nil, mapRepoError(err)
		}
		storagePath = version.StoragePath
	}

	reader, err := s.storage.Download(ctx, storagePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file contents: %w", err)
	}
	return reader, file, nil
}

// PresignedDownload returns a time-limited download URL for the current
// version.
func (s *FileService) PresignedDownload(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID) (string, *models.File, error) {
	file, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionRead)
	if err != nil {
		return "", nil, err
	}
	url, err := s.storage.PresignURL(ctx, file.StoragePath, s.presignTTL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to presign download: %w", err)
	}
	return url, file, nil
}

// UpdateMetadata replaces the free-form metadata; requires write access.
func (s *FileService) UpdateMetadata(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, metadata models.FileMetadata) (*models.File, error) {
	if _, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionWrite); err != nil {
		return nil, err
	}
	if err := s.fileRepo.UpdateMetadata(ctx, fileID, metadata); err != nil {
		return nil, mapRepoError(err)
	}
	return s.fileRepo.GetByID(ctx, fileID)
}

// AddVersion stores new bytes under a fresh storage path and appends a
// version; requires write access. The version number is assigned by the
// registry and is strictly greater than any number the file has ever
// used.
func (s *FileService) AddVersion(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, data io.Reader, comment string) (*models.FileVersion, error) {
	file, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionWrite)
	if err != nil {
		return nil, err
	}

	// Each version gets its own object; reusing an earlier version's path
	// would overwrite the bytes that version still points at.
	storagePath := storage.VersionScopedPath(file.UserID.String(), file.Filename)
	storedPath, size, err := s.storage.Upload(ctx, storagePath, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	version := &models.FileVersion{
		FileID:      fileID,
		StoragePath: storedPath,
		Size:        size,
		Comment:     comment,
		CreatedBy:   actorID,
	}
	if _, err := s.fileRepo.AddVersion(ctx, version); err != nil {
		// Registry append failed; remove the orphaned bytes.
		if cleanupErr := s.storage.Delete(ctx, storedPath); cleanupErr != nil {
			return nil, fmt.Errorf("failed to record version: %w (cleanup also failed: %v)", mapRepoError(err), cleanupErr)
		}
		return nil, mapRepoError(err)
	}
	return version, nil
}

// RestoreVersion repoints the file at versionNumber; requires write
// access. No version rows are touched, so restoring and editing again
// continues the counter rather than rewinding it.
func (s *FileService) RestoreVersion(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, versionNumber int) (*models.File, error) {
	if _, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionWrite); err != nil {
		return nil, err
	}
	if err := s.fileRepo.RestoreVersion(ctx, fileID, versionNumber); err != nil {
		return nil, mapRepoError(err)
	}
	return s.fileRepo.GetByID(ctx, fileID)
}

// ListVersions returns the full history, newest first; requires read
// access.
func (s *FileService) ListVersions(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID) ([]*models.FileVersion, error) {
	if _, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionRead); err != nil {
		return nil, err
	}
	return s.fileRepo.ListVersions(ctx, fileID)
}

// SoftDelete flags the file as deleted; requires delete access. The
// record and its versions stay in storage.
func (s *FileService) SoftDelete(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID) error {
	if _, err := s.loadAndAuthorize(ctx, actorID, fileID, models.ActionDelete); err != nil {
		return err
	}
	return mapRepoError(s.fileRepo.SoftDelete(ctx, fileID))
}

// Share replaces the permission sets. Only the owner may share, and the
// owner is re-inserted into all three sets whatever the submitted form
// contains.
func (s *FileService) Share(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, permissions models.Permissions) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if file.UserID != actorID {
		return nil, fmt.Errorf("%w: only the owner can modify sharing settings", ErrPermissionDenied)
	}

	permissions.Owner = file.UserID.String()
	permissions.EnsureOwner()

	if err := s.fileRepo.UpdatePermissions(ctx, fileID, permissions); err != nil {
		return nil, mapRepoError(err)
	}
	return s.fileRepo.GetByID(ctx, fileID)
}

// Search matches query against filenames and metadata, restricted to
// files actorID owns or can read. Soft-deleted files never appear.
func (s *FileService) Search(ctx context.Context, actorID uuid.UUID, query string) ([]*models.File, error) {
	return s.fileRepo.Search(ctx, query, actorID.String())
}

// ListUserFiles returns the actor's own files.
func (s *FileService) ListUserFiles(ctx context.Context, actorID uuid.UUID) ([]*models.File, error) {
	return s.fileRepo.ListByUserID(ctx, actorID)
}

func (s *FileService) loadAndAuthorize(ctx context.Context, actorID uuid.UUID, fileID uuid.UUID, action models.Action) (*models.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !file.Permissions.Allows(actorID.String(), action) {
		return nil, fmt.Errorf("%w: %s access to %s", ErrPermissionDenied, action, fileID)
	}
	return file, nil
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrFileNotFound):
		return ErrFileNotFound
	case errors.Is(err, repository.ErrVersionNotFound):
		return ErrVersionNotFound
	default:
		return err
	}
}
