package repository_test

import (
	"context"
	"testing"

	"filenet-backend/models"
	"filenet-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFile(t *testing.T, repo *repository.MemoryFileRepository, owner uuid.UUID, filename string, metadata models.FileMetadata) *models.File {
	t.Helper()
	file := &models.File{
		UserID:      owner,
		Filename:    filename,
		FileType:    "txt",
		Size:        1,
		StoragePath: "users/" + owner.String() + "/" + filename,
		Metadata:    metadata,
		Permissions: models.NewOwnerPermissions(owner.String()),
	}
	require.NoError(t, repo.Create(context.Background(), file, "Initial version"))
	return file
}

func TestSearchMatchesKeywordsPerElement(t *testing.T) {
	repo := repository.NewMemoryFileRepository()
	owner := uuid.New()
	ctx := context.Background()

	seedFile(t, repo, owner, "a.txt", models.FileMetadata{
		Keywords: []string{"finance", "q3"},
	})
	seedFile(t, repo, owner, "b.txt", models.FileMetadata{
		Keywords: []string{"engineering"},
	})

	results, err := repo.Search(ctx, "finance", owner.String())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].Filename)

	// Keywords match element by element; the list's punctuation is not
	// part of any keyword.
	results, err = repo.Search(ctx, `["finance`, owner.String())
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchTreatsWildcardsLiterally(t *testing.T) {
	repo := repository.NewMemoryFileRepository()
	owner := uuid.New()
	ctx := context.Background()

	seedFile(t, repo, owner, "discount-50%.txt", models.FileMetadata{})
	seedFile(t, repo, owner, "plain.txt", models.FileMetadata{})

	results, err := repo.Search(ctx, "50%", owner.String())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "discount-50%.txt", results[0].Filename)

	results, err = repo.Search(ctx, "_", owner.String())
	require.NoError(t, err)
	assert.Empty(t, results)
}
