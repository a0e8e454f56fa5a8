// Package drive implements the archive backend on Google Drive.
package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
)

// Config captures the parameters required to reach Drive.
type Config struct {
	CredentialsFile string
}

// Backend stores archive folders and files in Drive.
type Backend struct {
	svc *drive.Service
}

// New builds a Drive service authenticated with the configured service
// account. Extra options are appended after the credentials.
func New(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Backend, error) {
	clientOpts := []option.ClientOption{option.WithScopes(drive.DriveScope)}
	if cfg.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	clientOpts = append(clientOpts, opts...)
	svc, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return NewWithService(svc)
}

// NewWithService wraps an existing Drive service.
func NewWithService(svc *drive.Service) (*Backend, error) {
	if svc == nil {
		return nil, errors.New("drive service is required")
	}
	return &Backend{svc: svc}, nil
}

// FindFolder looks up a non-trashed folder by name. An empty parentID searches
// the whole drive.
func (b *Backend) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	resp, err := b.svc.Files.List().
		Q(folderQuery(name, parentID)).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", false, fmt.Errorf("list folders: %w", describe(err))
	}
	if len(resp.Files) == 0 {
		return "", false, nil
	}
	return resp.Files[0].Id, true, nil
}

// CreateFolder creates a folder under parentID, or at the drive root when
// parentID is empty.
func (b *Backend) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{Name: name, MimeType: archive.FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := b.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create folder: %w", describe(err))
	}
	return created.Id, nil
}

// CreateFile uploads file content with a multipart media request.
func (b *Backend) CreateFile(ctx context.Context, file archive.File) (string, error) {
	if file.Body == nil {
		return "", errors.New("file body is required")
	}
	meta := &drive.File{Name: file.Name}
	if file.ParentID != "" {
		meta.Parents = []string{file.ParentID}
	}
	created, err := b.svc.Files.Create(meta).
		Media(file.Body, googleapi.ContentType(file.ContentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("upload file: %w", describe(err))
	}
	return created.Id, nil
}

// CreatePermission grants perm on resourceID.
func (b *Backend) CreatePermission(ctx context.Context, resourceID string, perm archive.Permission) error {
	_, err := b.svc.Permissions.Create(resourceID, &drive.Permission{
		Role:         perm.Role,
		Type:         perm.Type,
		EmailAddress: perm.EmailAddress,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create permission: %w", describe(err))
	}
	return nil
}

func folderQuery(name, parentID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "mimeType = '%s' and name = '%s' and trashed = false", archive.FolderMimeType, escape(name))
	if parentID != "" {
		fmt.Fprintf(&b, " and '%s' in parents", escape(parentID))
	}
	return b.String()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// describe keeps the googleapi error in the chain but surfaces its status.
func describe(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %w", apiErr.Code, err)
	}
	return err
}
