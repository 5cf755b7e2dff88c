package testutil

import (
	"context"
	"fmt"
	"safetywatch/internal/remote"
	"sync"
)

// MockStore is an in-memory remote.Store. Failures are injected per object id.
type MockStore struct {
	mu       sync.Mutex
	self     string
	nextID   int
	folders  map[string]*remote.Folder
	parents  map[string]string
	files    map[string][]remote.File
	contents map[string][]byte

	FindErr       error
	ContentErr    error
	GetFolderErr  map[string]error
	ListFilesErr  map[string]error
	PermissionErr map[string]error

	Permissions []PermissionCall
	Calls       map[string]int
}

type PermissionCall struct {
	FileID     string
	Permission remote.Permission
	Notify     bool
}

func NewMockStore(self string) *MockStore {
	return &MockStore{
		self:          self,
		folders:       make(map[string]*remote.Folder),
		parents:       make(map[string]string),
		files:         make(map[string][]remote.File),
		contents:      make(map[string][]byte),
		GetFolderErr:  make(map[string]error),
		ListFilesErr:  make(map[string]error),
		PermissionErr: make(map[string]error),
		Calls:         make(map[string]int),
	}
}

func (s *MockStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

func (s *MockStore) count(op string) {
	s.Calls[op]++
}

// AddFolder creates a folder under parentID. The store's own identity holds a
// writer permission on it only when accessible is true.
func (s *MockStore) AddFolder(name, parentID string, accessible bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addFolder(name, parentID, accessible)
}

func (s *MockStore) addFolder(name, parentID string, accessible bool) string {
	id := s.id("folder-")
	f := &remote.Folder{ID: id, Name: name, WebViewLink: "https://drive.test/" + id}
	if accessible {
		f.Permissions = []remote.Permission{{Type: remote.PermissionTypeUser, Role: remote.RoleWriter, EmailAddress: s.self}}
	}
	s.folders[id] = f
	s.parents[id] = parentID
	if parentID != "" {
		s.files[parentID] = append(s.files[parentID], remote.File{ID: id, Name: name, MimeType: remote.FolderMimeType})
	}
	return id
}

func (s *MockStore) AddFile(parentID, name, mimeType string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id("file-")
	s.files[parentID] = append(s.files[parentID], remote.File{ID: id, Name: name, MimeType: mimeType})
	return id
}

// PutContent creates or replaces a JSON file named name under parentID.
func (s *MockStore) PutContent(parentID, name string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files[parentID] {
		if f.Name == name {
			s.contents[f.ID] = data
			return f.ID
		}
	}
	id := s.id("file-")
	s.files[parentID] = append(s.files[parentID], remote.File{ID: id, Name: name, MimeType: remote.JSONMimeType})
	s.contents[id] = data
	return id
}

func (s *MockStore) TrashFolder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.folders[id]; ok {
		f.Trashed = true
	}
}

func (s *MockStore) DeleteFolder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.folders, id)
}

func (s *MockStore) Folder(id string) (remote.Folder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.folders[id]
	if !ok {
		return remote.Folder{}, false
	}
	return copyFolder(f), true
}

func (s *MockStore) CallCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Calls[op]
}

func copyFolder(f *remote.Folder) remote.Folder {
	out := *f
	out.Permissions = append([]remote.Permission(nil), f.Permissions...)
	return out
}

func (s *MockStore) Identity() string {
	return s.self
}

func (s *MockStore) FindFolders(_ context.Context, name, parentID string) ([]remote.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("FindFolders")
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	var out []remote.Folder
	for id, f := range s.folders {
		if f.Name != name || f.Trashed {
			continue
		}
		if parentID != "" && s.parents[id] != parentID {
			continue
		}
		out = append(out, copyFolder(f))
	}
	return out, nil
}

func (s *MockStore) GetFolder(_ context.Context, id string) (*remote.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("GetFolder")
	if err := s.GetFolderErr[id]; err != nil {
		return nil, err
	}
	f, ok := s.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, remote.ErrNotFound)
	}
	out := copyFolder(f)
	return &out, nil
}

func (s *MockStore) CreateFolder(_ context.Context, name, parentID string) (*remote.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("CreateFolder")
	id := s.addFolder(name, parentID, true)
	out := copyFolder(s.folders[id])
	return &out, nil
}

func (s *MockStore) CreatePermission(_ context.Context, fileID string, perm remote.Permission, notify bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("CreatePermission")
	if err := s.PermissionErr[fileID]; err != nil {
		return err
	}
	f, ok := s.folders[fileID]
	if !ok {
		return fmt.Errorf("permission on %s: %w", fileID, remote.ErrNotFound)
	}
	f.Permissions = append(f.Permissions, perm)
	s.Permissions = append(s.Permissions, PermissionCall{FileID: fileID, Permission: perm, Notify: notify})
	return nil
}

func (s *MockStore) GetFileContent(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("GetFileContent")
	if s.ContentErr != nil {
		return nil, s.ContentErr
	}
	data, ok := s.contents[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, remote.ErrNotFound)
	}
	return data, nil
}

func (s *MockStore) ListFiles(_ context.Context, parentID string) ([]remote.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count("ListFiles")
	if err := s.ListFilesErr[parentID]; err != nil {
		return nil, err
	}
	var out []remote.File
	for _, f := range s.files[parentID] {
		if folder, ok := s.folders[f.ID]; ok && folder.Trashed {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}
