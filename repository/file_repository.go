package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"filenet-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrFileNotFound is returned when a file is absent or soft-deleted.
	ErrFileNotFound = errors.New("file not found")
	// ErrVersionNotFound is returned when a version number does not exist for a file.
	ErrVersionNotFound = errors.New("file version not found")
)

// FileRepository is the file registry: file records, version history and
// permission sets, keyed by generated UUIDs. Soft-deleted records are
// excluded from every read unless noted otherwise.
type FileRepository interface {
	// Create inserts the file record together with its implicit version 1.
	Create(ctx context.Context, file *models.File, versionComment string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.File, error)
	// Search matches query case-insensitively against filename, title,
	// description and keywords. A non-empty userID restricts results to
	// files owned by or readable by that user.
	Search(ctx context.Context, query string, userID string) ([]*models.File, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, metadata models.FileMetadata) error
	UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// AddVersion appends a new version row and advances the parent record's
	// current pointer in a single transaction. The assigned version number
	// is one greater than the highest ever used for the file; it is never
	// rolled back by restores. Returns the assigned number.
	AddVersion(ctx context.Context, version *models.FileVersion) (int, error)
	// RestoreVersion repoints the file at an existing version without
	// touching the version history.
	RestoreVersion(ctx context.Context, fileID uuid.UUID, versionNumber int) error
	ListVersions(ctx context.Context, fileID uuid.UUID) ([]*models.FileVersion, error)
	GetVersion(ctx context.Context, fileID uuid.UUID, versionNumber int) (*models.FileVersion, error)
}

// postgresFileRepository implements FileRepository on pgx.
type postgresFileRepository struct {
	db *pgxpool.Pool
}

// NewFileRepository creates a Postgres-backed file repository.
func NewFileRepository(db *pgxpool.Pool) FileRepository {
	return &postgresFileRepository{db: db}
}

const fileColumns = `id, user_id, filename, file_type, size, storage_path,
	metadata, permissions, current_version, is_deleted, created_at, modified_at`

func scanFile(row pgx.Row) (*models.File, error) {
	file := &models.File{}
	err := row.Scan(
		&file.ID,
		&file.UserID,
		&file.Filename,
		&file.FileType,
		&file.Size,
		&file.StoragePath,
		&file.Metadata,
		&file.Permissions,
		&file.CurrentVersion,
		&file.IsDeleted,
		&file.CreatedAt,
		&file.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return file, nil
}

func (r *postgresFileRepository) Create(ctx context.Context, file *models.File, versionComment string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO files (
			user_id, filename, file_type, size, storage_path, metadata, permissions, current_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		RETURNING id, created_at, modified_at`

	err = tx.QueryRow(
		ctx, query,
		file.UserID,
		file.Filename,
		file.FileType,
		file.Size,
		file.StoragePath,
		file.Metadata,
		file.Permissions,
	).Scan(&file.ID, &file.CreatedAt, &file.ModifiedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}
	file.CurrentVersion = 1

	_, err = tx.Exec(ctx, `
		INSERT INTO file_versions (file_id, version_number, storage_path, size, comment, created_by)
		VALUES ($1, 1, $2, $3, $4, $5)`,
		file.ID, file.StoragePath, file.Size, versionComment, file.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert initial version: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *postgresFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND is_deleted = false`
	return scanFile(r.db.QueryRow(ctx, query, id))
}

func (r *postgresFileRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id = $1 AND is_deleted = false
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFiles(rows)
}

func (r *postgresFileRepository) Search(ctx context.Context, query string, userID string) ([]*models.File, error) {
	pattern := "%" + escapeLikePattern(query) + "%"

	sql := `SELECT ` + fileColumns + ` FROM files
		WHERE is_deleted = false
		AND (filename ILIKE $1
			OR metadata->>'title' ILIKE $1
			OR metadata->>'description' ILIKE $1
			OR EXISTS (
				SELECT 1 FROM jsonb_array_elements_text(metadata->'keywords') AS kw
				WHERE kw.value ILIKE $1
			))`

	args := []any{pattern}
	if userID != "" {
		sql += ` AND (user_id::text = $2 OR permissions->'read' ? $2)`
		args = append(args, userID)
	}
	sql += ` ORDER BY modified_at DESC`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFiles(rows)
}

func (r *postgresFileRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata models.FileMetadata) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE files SET metadata = $2, modified_at = NOW()
		WHERE id = $1 AND is_deleted = false`,
		id, metadata,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *postgresFileRepository) UpdatePermissions(ctx context.Context, id uuid.UUID, permissions models.Permissions) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE files SET permissions = $2, modified_at = NOW()
		WHERE id = $1 AND is_deleted = false`,
		id, permissions,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *postgresFileRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE files SET is_deleted = true, modified_at = NOW()
		WHERE id = $1 AND is_deleted = false`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *postgresFileRepository) AddVersion(ctx context.Context, version *models.FileVersion) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the parent row so concurrent appends serialize on the file.
	var fileID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM files WHERE id = $1 AND is_deleted = false FOR UPDATE`,
		version.FileID,
	).Scan(&fileID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrFileNotFound
		}
		return 0, err
	}

	// Next number is max+1, not current_version+1: a restore moves the
	// current pointer backwards but the counter never rewinds.
	var next int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version_number), 0) + 1 FROM file_versions WHERE file_id = $1`,
		version.FileID,
	).Scan(&next)
	if err != nil {
		return 0, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO file_versions (file_id, version_number, storage_path, size, comment, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		version.FileID, next, version.StoragePath, version.Size, version.Comment, version.CreatedBy,
	).Scan(&version.ID, &version.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert version: %w", err)
	}
	version.VersionNumber = next

	_, err = tx.Exec(ctx, `
		UPDATE files
		SET current_version = $2, storage_path = $3, size = $4, modified_at = NOW()
		WHERE id = $1`,
		version.FileID, next, version.StoragePath, version.Size,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update current version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit version append: %w", err)
	}
	return next, nil
}

func (r *postgresFileRepository) RestoreVersion(ctx context.Context, fileID uuid.UUID, versionNumber int) error {
	target, err := r.GetVersion(ctx, fileID, versionNumber)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE files
		SET current_version = $2, storage_path = $3, size = $4, modified_at = NOW()
		WHERE id = $1 AND is_deleted = false`,
		fileID, target.VersionNumber, target.StoragePath, target.Size,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}

func (r *postgresFileRepository) ListVersions(ctx context.Context, fileID uuid.UUID) ([]*models.FileVersion, error) {
	query := `
		SELECT id, file_id, version_number, storage_path, size, comment, created_by, created_at
		FROM file_versions
		WHERE file_id = $1
		ORDER BY version_number DESC`

	rows, err := r.db.Query(ctx, query, fileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*models.FileVersion
	for rows.Next() {
		v := &models.FileVersion{}
		err := rows.Scan(
			&v.ID,
			&v.FileID,
			&v.VersionNumber,
			&v.StoragePath,
			&v.Size,
			&v.Comment,
			&v.CreatedBy,
			&v.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *postgresFileRepository) GetVersion(ctx context.Context, fileID uuid.UUID, versionNumber int) (*models.FileVersion, error) {
	v := &models.FileVersion{}
	err := r.db.QueryRow(ctx, `
		SELECT id, file_id, version_number, storage_path, size, comment, created_by, created_at
		FROM file_versions
		WHERE file_id = $1 AND version_number = $2`,
		fileID, versionNumber,
	).Scan(
		&v.ID,
		&v.FileID,
		&v.VersionNumber,
		&v.StoragePath,
		&v.Size,
		&v.Comment,
		&v.CreatedBy,
		&v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, err
	}
	return v, nil
}

// escapeLikePattern escapes ILIKE metacharacters so user input is matched
// literally, as the in-memory implementation does.
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func collectFiles(rows pgx.Rows) ([]*models.File, error) {
	var files []*models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}
