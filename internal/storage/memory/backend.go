// Package memory keeps archive folders, files and ledger rows in-memory for
// development and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
)

// Folder is a folder stored by Backend.
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// StoredFile is a file stored by Backend.
type StoredFile struct {
	ID          string
	Name        string
	ParentID    string
	ContentType string
	Data        []byte
}

// Backend implements archive.Backend in-memory and returns pseudo ids.
type Backend struct {
	mu          sync.RWMutex
	next        int
	folders     []Folder
	files       []StoredFile
	permissions map[string][]archive.Permission
}

// NewBackend creates an empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{permissions: make(map[string][]archive.Permission)}
}

// FindFolder returns the first folder with the given name under parentID.
func (b *Backend) FindFolder(_ context.Context, name, parentID string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, f := range b.folders {
		if f.Name == name && (parentID == "" || f.ParentID == parentID) {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

// CreateFolder always creates a new folder, even if one with the same name exists.
func (b *Backend) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID("folder")
	b.folders = append(b.folders, Folder{ID: id, Name: name, ParentID: parentID})
	return id, nil
}

// CreateFile persists a copy of the file content.
func (b *Backend) CreateFile(_ context.Context, file archive.File) (string, error) {
	if file.Body == nil {
		return "", errors.New("file body is required")
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read data from reader: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID("file")
	b.files = append(b.files, StoredFile{
		ID:          id,
		Name:        file.Name,
		ParentID:    file.ParentID,
		ContentType: file.ContentType,
		Data:        append([]byte(nil), data...),
	})
	return id, nil
}

// CreatePermission records perm against resourceID.
func (b *Backend) CreatePermission(_ context.Context, resourceID string, perm archive.Permission) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.existsLocked(resourceID) {
		return fmt.Errorf("resource %q not found", resourceID)
	}
	b.permissions[resourceID] = append(b.permissions[resourceID], perm)
	return nil
}

// Folders returns every folder created so far.
func (b *Backend) Folders() []Folder {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Folder(nil), b.folders...)
}

// Files returns every file created so far.
func (b *Backend) Files() []StoredFile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]StoredFile(nil), b.files...)
}

// Permissions returns the grants recorded on resourceID.
func (b *Backend) Permissions(resourceID string) []archive.Permission {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]archive.Permission(nil), b.permissions[resourceID]...)
}

func (b *Backend) nextID(kind string) string {
	b.next++
	return fmt.Sprintf("memory-%s-%d", kind, b.next)
}

func (b *Backend) existsLocked(id string) bool {
	for _, f := range b.folders {
		if f.ID == id {
			return true
		}
	}
	for _, f := range b.files {
		if f.ID == id {
			return true
		}
	}
	return false
}
