package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"filenet-backend/models"

	"github.com/google/uuid"
)

// MemoryFileRepository is an in-memory FileRepository with the same
// contract as the Postgres implementation. It backs tests and local
// development without a database.
type MemoryFileRepository struct {
	mu       sync.Mutex
	files    map[uuid.UUID]*models.File
	versions map[uuid.UUID][]*models.FileVersion
}

// NewMemoryFileRepository creates an empty in-memory file repository.
func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{
		files:    make(map[uuid.UUID]*models.File),
		versions: make(map[uuid.UUID][]*models.FileVersion),
	}
}

func (r *MemoryFileRepository) Create(_ context.Context, file *models.File, versionComment string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	file.ID = uuid.New()
	file.CurrentVersion = 1
	file.CreatedAt = now
	file.ModifiedAt = now

	stored := *file
	r.files[file.ID] = &stored
	r.versions[file.ID] = []*models.FileVersion{{
		ID:            uuid.New(),
		FileID:        file.ID,
		VersionNumber: 1,
		StoragePath:   file.StoragePath,
		Size:          file.Size,
		Comment:       versionComment,
		CreatedBy:     file.UserID,
		CreatedAt:     now,
	}}
	return nil
}

func (r *MemoryFileRepository) GetByID(_ context.Context, id uuid.UUID) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getActive(id)
}

func (r *MemoryFileRepository) getActive(id uuid.UUID) (*models.File, error) {
	file, ok := r.files[id]
	if !ok || file.IsDeleted {
		return nil, ErrFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (r *MemoryFileRepository) ListByUserID(_ context.Context, userID uuid.UUID) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var files []*models.File
	for _, file := range r.files {
		if file.UserID == userID && !file.IsDeleted {
			copied := *file
			files = append(files, &copied)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].CreatedAt.After(files[j].CreatedAt) })
	return files, nil
}

func (r *MemoryFileRepository) Search(_ context.Context, query string, userID string) ([]*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(query)
	var files []*models.File
	for _, file := range r.files {
		if file.IsDeleted {
			continue
		}
		if !matchesQuery(file, needle) {
			continue
		}
		if userID != "" && file.UserID.String() != userID && !contains(file.Permissions.Read, userID) {
			continue
		}
		copied := *file
		files = append(files, &copied)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModifiedAt.After(files[j].ModifiedAt) })
	return files, nil
}

func matchesQuery(file *models.File, needle string) bool {
	if strings.Contains(strings.ToLower(file.Filename), needle) ||
		strings.Contains(strings.ToLower(file.Metadata.Title), needle) ||
		strings.Contains(strings.ToLower(file.Metadata.Description), needle) {
		return true
	}
	for _, kw := range file.Metadata.Keywords {
		if strings.Contains(strings.ToLower(kw), needle) {
			return true
		}
	}
	return false
}

func contains(set []string, id string) bool {
	for _, existing := range set {
		if existing == id {
			return true
		}
	}
	return false
}

func (r *MemoryFileRepository) UpdateMetadata(_ context.Context, id uuid.UUID, metadata models.FileMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || file.IsDeleted {
		return ErrFileNotFound
	}
	file.Metadata = metadata
	file.ModifiedAt = time.Now()
	return nil
}

func (r *MemoryFileRepository) UpdatePermissions(_ context.Context, id uuid.UUID, permissions models.Permissions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || file.IsDeleted {
		return ErrFileNotFound
	}
	file.Permissions = permissions
	file.ModifiedAt = time.Now()
	return nil
}

func (r *MemoryFileRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[id]
	if !ok || file.IsDeleted {
		return ErrFileNotFound
	}
	file.IsDeleted = true
	file.ModifiedAt = time.Now()
	return nil
}

func (r *MemoryFileRepository) AddVersion(_ context.Context, version *models.FileVersion) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[version.FileID]
	if !ok || file.IsDeleted {
		return 0, ErrFileNotFound
	}

	next := 1
	for _, v := range r.versions[version.FileID] {
		if v.VersionNumber >= next {
			next = v.VersionNumber + 1
		}
	}

	version.ID = uuid.New()
	version.VersionNumber = next
	version.CreatedAt = time.Now()
	stored := *version
	r.versions[version.FileID] = append(r.versions[version.FileID], &stored)

	file.CurrentVersion = next
	file.StoragePath = version.StoragePath
	file.Size = version.Size
	file.ModifiedAt = version.CreatedAt
	return next, nil
}

func (r *MemoryFileRepository) RestoreVersion(_ context.Context, fileID uuid.UUID, versionNumber int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, ok := r.files[fileID]
	if !ok || file.IsDeleted {
		return ErrFileNotFound
	}
	for _, v := range r.versions[fileID] {
		if v.VersionNumber == versionNumber {
			file.CurrentVersion = v.VersionNumber
			file.StoragePath = v.StoragePath
			file.Size = v.Size
			file.ModifiedAt = time.Now()
			return nil
		}
	}
	return ErrVersionNotFound
}

func (r *MemoryFileRepository) ListVersions(_ context.Context, fileID uuid.UUID) ([]*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var versions []*models.FileVersion
	for _, v := range r.versions[fileID] {
		copied := *v
		versions = append(versions, &copied)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].VersionNumber > versions[j].VersionNumber })
	return versions, nil
}

func (r *MemoryFileRepository) GetVersion(_ context.Context, fileID uuid.UUID, versionNumber int) (*models.FileVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, v := range r.versions[fileID] {
		if v.VersionNumber == versionNumber {
			copied := *v
			return &copied, nil
		}
	}
	return nil, ErrVersionNotFound
}

// MemoryUserRepository is an in-memory UserRepository for tests and local
// development.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*models.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *MemoryUserRepository) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []*models.User
	for _, user := range r.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

// MemorySettingsRepository is an in-memory SettingsRepository.
type MemorySettingsRepository struct {
	mu       sync.Mutex
	settings *models.AdminSettings
}

// NewMemorySettingsRepository creates an in-memory settings repository.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{}
}

func (r *MemorySettingsRepository) Get(_ context.Context) (*models.AdminSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settings == nil {
		defaults := models.DefaultAdminSettings()
		defaults.UpdatedAt = time.Now()
		r.settings = &defaults
	}
	copied := *r.settings
	return &copied, nil
}

func (r *MemorySettingsRepository) Update(_ context.Context, settings *models.AdminSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings.UpdatedAt = time.Now()
	copied := *settings
	r.settings = &copied
	return nil
}
