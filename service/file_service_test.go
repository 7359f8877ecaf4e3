package service_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"filenet-backend/models"
	"filenet-backend/repository"
	"filenet-backend/service"
	"filenet-backend/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileService(t *testing.T) *service.FileService {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return service.NewFileService(
		service.FileWithRepository(repository.NewMemoryFileRepository()),
		service.FileWithStorage(st),
	)
}

func uploadFile(t *testing.T, svc *service.FileService, owner uuid.UUID, filename, content string) *models.File {
	t.Helper()
	file, err := svc.Upload(context.Background(), service.UploadRequest{
		OwnerID:  owner,
		Filename: filename,
		FileType: "txt",
		Metadata: models.FileMetadata{Title: filename},
		Data:     strings.NewReader(content),
	})
	require.NoError(t, err)
	return file
}

func TestUpload(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()

	file := uploadFile(t, svc, owner, "a.txt", "0123456789")

	assert.Equal(t, owner, file.UserID)
	assert.Equal(t, "a.txt", file.Filename)
	assert.Equal(t, int64(10), file.Size)
	assert.Equal(t, 1, file.CurrentVersion)
	assert.Equal(t, owner.String(), file.Permissions.Owner)
	assert.False(t, file.IsDeleted)

	versions, err := svc.ListVersions(context.Background(), owner, file.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, "Initial version", versions[0].Comment)
	assert.Equal(t, int64(10), versions[0].Size)
}

func TestUploadRequiresFilename(t *testing.T) {
	svc := newFileService(t)

	_, err := svc.Upload(context.Background(), service.UploadRequest{
		OwnerID: uuid.New(),
		Data:    strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestVersionLifecycle(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "0123456789")

	// Edit: version 2 with different bytes.
	v2, err := svc.AddVersion(ctx, owner, file.ID, strings.NewReader("01234567890123456789"), "second draft")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, int64(20), v2.Size)

	current, err := svc.Get(ctx, owner, file.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.CurrentVersion)
	assert.Equal(t, int64(20), current.Size)

	// Restore version 1: the pointer moves, no history is lost.
	restored, err := svc.RestoreVersion(ctx, owner, file.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.CurrentVersion)
	assert.Equal(t, int64(10), restored.Size)

	versions, err := svc.ListVersions(ctx, owner, file.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	// Editing after a restore continues the counter instead of reusing 2.
	v3, err := svc.AddVersion(ctx, owner, file.ID, strings.NewReader("new"), "after restore")
	require.NoError(t, err)
	assert.Equal(t, 3, v3.VersionNumber)

	versions, err = svc.ListVersions(ctx, owner, file.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, 3, versions[0].VersionNumber)
	assert.Equal(t, 2, versions[1].VersionNumber)
	assert.Equal(t, 1, versions[2].VersionNumber)
}

func TestDownloadSpecificVersion(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "first")
	_, err := svc.AddVersion(ctx, owner, file.ID, strings.NewReader("second"), "")
	require.NoError(t, err)

	// Current version serves the latest bytes.
	reader, _, err := svc.Download(ctx, owner, file.ID, 0)
	require.NoError(t, err)
	data, _ := io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "second", string(data))

	// Old versions keep their own bytes.
	reader, _, err = svc.Download(ctx, owner, file.ID, 1)
	require.NoError(t, err)
	data, _ = io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "first", string(data))

	// Missing version is reported as such.
	_, _, err = svc.Download(ctx, owner, file.ID, 9)
	assert.ErrorIs(t, err, service.ErrVersionNotFound)
}

func TestVersionsKeepDistinctObjects(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "first")
	_, err := svc.AddVersion(ctx, owner, file.ID, strings.NewReader("second"), "")
	require.NoError(t, err)
	_, err = svc.AddVersion(ctx, owner, file.ID, strings.NewReader("third"), "")
	require.NoError(t, err)

	// Every version points at its own storage object.
	versions, err := svc.ListVersions(ctx, owner, file.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	paths := make(map[string]bool)
	for _, v := range versions {
		paths[v.StoragePath] = true
	}
	assert.Len(t, paths, 3)

	// Earlier bytes survive later edits.
	for version, want := range map[int]string{1: "first", 2: "second", 3: "third"} {
		reader, _, err := svc.Download(ctx, owner, file.ID, version)
		require.NoError(t, err)
		data, err := io.ReadAll(reader)
		reader.Close()
		require.NoError(t, err)
		assert.Equal(t, want, string(data), "version %d", version)
	}
}

func TestRestoreMissingVersion(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()

	file := uploadFile(t, svc, owner, "a.txt", "first")

	_, err := svc.RestoreVersion(context.Background(), owner, file.ID, 5)
	assert.ErrorIs(t, err, service.ErrVersionNotFound)
}

func TestPermissionGates(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	reader := uuid.New()
	editor := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "shared.txt", "content")

	_, err := svc.Share(ctx, owner, file.ID, models.Permissions{
		Read:  []string{reader.String(), editor.String()},
		Write: []string{editor.String()},
	})
	require.NoError(t, err)

	// Reader: read yes, write no, delete no.
	_, err = svc.Get(ctx, reader, file.ID)
	assert.NoError(t, err)
	_, err = svc.UpdateMetadata(ctx, reader, file.ID, models.FileMetadata{Title: "nope"})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
	err = svc.SoftDelete(ctx, reader, file.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Editor: read and write yes, delete no.
	_, err = svc.AddVersion(ctx, editor, file.ID, strings.NewReader("edited"), "")
	assert.NoError(t, err)
	err = svc.SoftDelete(ctx, editor, file.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Stranger: nothing.
	_, err = svc.Get(ctx, stranger, file.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	// Owner keeps full access even though the share form omitted them.
	_, err = svc.Get(ctx, owner, file.ID)
	assert.NoError(t, err)
	err = svc.SoftDelete(ctx, owner, file.ID)
	assert.NoError(t, err)
}

func TestShareOwnerOnly(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	editor := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "content")
	_, err := svc.Share(ctx, owner, file.ID, models.Permissions{
		Read:  []string{editor.String()},
		Write: []string{editor.String()},
	})
	require.NoError(t, err)

	// Write access does not grant sharing rights.
	_, err = svc.Share(ctx, editor, file.ID, models.Permissions{
		Read: []string{editor.String()},
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)
}

func TestShareReinsertsOwner(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "content")

	// Submitted sets omit the owner entirely.
	shared, err := svc.Share(ctx, owner, file.ID, models.Permissions{
		Read: []string{uuid.New().String()},
	})
	require.NoError(t, err)

	assert.Equal(t, owner.String(), shared.Permissions.Owner)
	assert.Contains(t, shared.Permissions.Read, owner.String())
	assert.Contains(t, shared.Permissions.Write, owner.String())
	assert.Contains(t, shared.Permissions.Delete, owner.String())
}

func TestSoftDelete(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "a.txt", "content")
	require.NoError(t, svc.SoftDelete(ctx, owner, file.ID))

	// Deleted files disappear from reads, listings and search.
	_, err := svc.Get(ctx, owner, file.ID)
	assert.ErrorIs(t, err, service.ErrFileNotFound)

	files, err := svc.ListUserFiles(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, files)

	results, err := svc.Search(ctx, owner, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchVisibility(t *testing.T) {
	svc := newFileService(t)
	owner := uuid.New()
	reader := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()

	file := uploadFile(t, svc, owner, "quarterly-report.pdf", "content")
	_, err := svc.Share(ctx, owner, file.ID, models.Permissions{
		Read: []string{reader.String()},
	})
	require.NoError(t, err)

	results, err := svc.Search(ctx, owner, "quarterly")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = svc.Search(ctx, reader, "quarterly")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = svc.Search(ctx, stranger, "quarterly")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetMissingFile(t *testing.T) {
	svc := newFileService(t)

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, service.ErrFileNotFound)
}
