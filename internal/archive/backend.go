// Package archive resolves the remote folder tree, uploads report documents
// into it and shares folders with the report recipient.
package archive

import (
	"context"
	"io"
)

// FolderMimeType marks folder resources in remote storage.
const FolderMimeType = "application/vnd.google-apps.folder"

// File describes a document to store under a folder.
type File struct {
	Name        string
	ParentID    string
	ContentType string
	Body        io.Reader
}

// Permission is an access grant on a remote resource.
type Permission struct {
	Role         string
	Type         string
	EmailAddress string
}

// Backend is the remote storage the archive writes to. FindFolder treats an
// empty parentID as "anywhere"; CreateFolder treats it as "no parent".
type Backend interface {
	FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error)
	CreateFolder(ctx context.Context, name, parentID string) (string, error)
	CreateFile(ctx context.Context, file File) (string, error)
	CreatePermission(ctx context.Context, resourceID string, perm Permission) error
}
