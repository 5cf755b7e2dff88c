// Package remote describes the object store holding violation evidence and
// provides a Google Drive implementation of it.
package remote

import (
	"context"
	"errors"
	"strings"
)

const (
	FolderMimeType = "application/vnd.google-apps.folder"
	JSONMimeType   = "application/json"

	RoleWriter = "writer"
	RoleReader = "reader"

	PermissionTypeUser = "user"
)

var ErrNotFound = errors.New("remote: not found")

type Permission struct {
	ID           string `json:"id,omitempty"`
	Type         string `json:"type"`
	Role         string `json:"role"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type Folder struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	WebViewLink string       `json:"webViewLink,omitempty"`
	Trashed     bool         `json:"trashed,omitempty"`
	Permissions []Permission `json:"permissions,omitempty"`
}

// HasPrincipal reports whether email appears in the folder's permission list.
// Addresses compare case-insensitively.
func (f *Folder) HasPrincipal(email string) bool {
	for _, p := range f.Permissions {
		if strings.EqualFold(p.EmailAddress, email) {
			return true
		}
	}
	return false
}

type File struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// Store is the subset of object store operations the engine relies on.
// Implementations return ErrNotFound (possibly wrapped) for missing objects.
type Store interface {
	// Identity is the principal (e-mail) the store acts as.
	Identity() string
	// FindFolders lists non-trashed folders named name. An empty parentID searches everywhere.
	FindFolders(ctx context.Context, name, parentID string) ([]Folder, error)
	GetFolder(ctx context.Context, id string) (*Folder, error)
	CreateFolder(ctx context.Context, name, parentID string) (*Folder, error)
	CreatePermission(ctx context.Context, fileID string, perm Permission, notify bool) error
	GetFileContent(ctx context.Context, id string) ([]byte, error)
	// ListFiles lists non-trashed children of parentID.
	ListFiles(ctx context.Context, parentID string) ([]File, error)
}
