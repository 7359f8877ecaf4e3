package models

import (
	"time"

	"github.com/google/uuid"
)

// Action is a permission-gated operation on a file.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"
)

// FileMetadata holds the free-form descriptive fields attached to a file.
type FileMetadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Permissions is the per-file access list. The owner is always treated as
// a member of all three sets, whether or not the slices list them.
type Permissions struct {
	Owner  string   `json:"owner"`
	Read   []string `json:"read"`
	Write  []string `json:"write"`
	Delete []string `json:"delete"`
}

// NewOwnerPermissions returns the permission set a freshly uploaded file
// starts with: the owner in every set.
func NewOwnerPermissions(ownerID string) Permissions {
	return Permissions{
		Owner:  ownerID,
		Read:   []string{ownerID},
		Write:  []string{ownerID},
		Delete: []string{ownerID},
	}
}

// Allows reports whether userID may perform action on the file.
func (p *Permissions) Allows(userID string, action Action) bool {
	if userID == "" {
		return false
	}
	if userID == p.Owner {
		return true
	}
	var set []string
	switch action {
	case ActionRead:
		set = p.Read
	case ActionWrite:
		set = p.Write
	case ActionDelete:
		set = p.Delete
	default:
		return false
	}
	for _, id := range set {
		if id == userID {
			return true
		}
	}
	return false
}

// EnsureOwner re-inserts the owner into all three sets. Sharing forms may
// omit the owner; applying them verbatim must never lock the owner out.
func (p *Permissions) EnsureOwner() {
	p.Read = appendMissing(p.Read, p.Owner)
	p.Write = appendMissing(p.Write, p.Owner)
	p.Delete = appendMissing(p.Delete, p.Owner)
}

func appendMissing(set []string, id string) []string {
	for _, existing := range set {
		if existing == id {
			return set
		}
	}
	return append(set, id)
}

// File represents the current state of a logical file. The storage path is
// never serialized; clients download through handlers or presigned URLs.
type File struct {
	ID             uuid.UUID    `json:"id"`
	UserID         uuid.UUID    `json:"user_id"`
	Filename       string       `json:"filename"`
	FileType       string       `json:"file_type"`
	Size           int64        `json:"size"`
	StoragePath    string       `json:"-"`
	Metadata       FileMetadata `json:"metadata"`
	Permissions    Permissions  `json:"permissions"`
	CurrentVersion int          `json:"current_version"`
	IsDeleted      bool         `json:"is_deleted"`
	CreatedAt      time.Time    `json:"created_at"`
	ModifiedAt     time.Time    `json:"modified_at"`
}

// FileVersion is one immutable revision of a file's bytes. Versions are
// append-only: rows are never mutated or removed, and version numbers are
// never reused, even after a restore.
type FileVersion struct {
	ID            uuid.UUID `json:"id"`
	FileID        uuid.UUID `json:"file_id"`
	VersionNumber int       `json:"version_number"`
	StoragePath   string    `json:"-"`
	Size          int64     `json:"size"`
	Comment       string    `json:"comment"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}
