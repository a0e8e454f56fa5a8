// Package gcs implements the archive backend on Google Cloud Storage.
//
// Folders are object prefixes with a zero-byte marker object named after the
// prefix. File ids are gs:// URIs carrying the object generation. Uploads
// never replace an existing object: a name collision gets a unique suffix.
// Grants are object ACLs on everything under the folder prefix.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/JakeFAU/annual-report-harvester/internal/archive"
	"github.com/JakeFAU/annual-report-harvester/internal/id/uuid"
)

const maxCreateAttempts = 3

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// Backend writes archive folders and documents to a configured bucket.
type Backend struct {
	client *storage.Client
	bucket string
	newID  func() string
}

// New creates a GCS-backed archive backend.
func New(client *storage.Client, cfg Config) (*Backend, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &Backend{
		client: client,
		bucket: cfg.Bucket,
		newID:  uuid.New().NewRequestID,
	}, nil
}

// FindFolder checks for the folder's marker object.
func (b *Backend) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	prefix := childPrefix(parentID, name)
	_, err := b.client.Bucket(b.bucket).Object(prefix).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stat folder marker: %w", err)
	}
	return prefix, true, nil
}

// CreateFolder writes the folder's marker object and returns its prefix.
func (b *Backend) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	prefix := childPrefix(parentID, name)
	if _, err := b.put(ctx, prefix, archive.FolderMimeType, strings.NewReader(""), nil); err != nil {
		return "", err
	}
	return prefix, nil
}

// CreateFile uploads the document under its folder prefix. An existing
// object with the same name is kept and the upload is stored under a
// suffixed name instead.
func (b *Backend) CreateFile(ctx context.Context, file archive.File) (string, error) {
	if file.Body == nil {
		return "", fmt.Errorf("file body is required")
	}
	if strings.TrimSpace(file.Name) == "" {
		return "", fmt.Errorf("file name is required")
	}
	data, err := io.ReadAll(file.Body)
	if err != nil {
		return "", fmt.Errorf("read file body: %w", err)
	}
	name := file.Name
	for attempt := 1; ; attempt++ {
		objPath := strings.TrimSuffix(childPrefix(file.ParentID, name), "/")
		attrs, err := b.put(ctx, objPath, file.ContentType, bytes.NewReader(data), &storage.Conditions{DoesNotExist: true})
		if err == nil {
			return objectURI(b.bucket, objPath, attrs.Generation), nil
		}
		if !isPreconditionFailed(err) || attempt == maxCreateAttempts {
			return "", err
		}
		name = suffixedName(file.Name, b.newID())
	}
}

// CreatePermission adds an object ACL entry for the recipient on the folder
// marker and every object under it.
func (b *Backend) CreatePermission(ctx context.Context, resourceID string, perm archive.Permission) error {
	if perm.EmailAddress == "" {
		return fmt.Errorf("email address is required")
	}
	if resourceID == "" {
		return fmt.Errorf("resource id is required")
	}
	role, err := aclRole(perm.Role)
	if err != nil {
		return err
	}
	entity := storage.ACLEntity("user-" + perm.EmailAddress)
	bucket := b.client.Bucket(b.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: resourceID})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("list folder objects: %w", err)
		}
		if err := bucket.Object(attrs.Name).ACL().Set(ctx, entity, role); err != nil {
			return fmt.Errorf("set object acl on %s: %w", attrs.Name, err)
		}
	}
}

func (b *Backend) put(
	ctx context.Context,
	objPath, contentType string,
	r io.Reader,
	conds *storage.Conditions,
) (*storage.ObjectAttrs, error) {
	obj := b.client.Bucket(b.bucket).Object(objPath)
	if conds != nil {
		obj = obj.If(*conds)
	}
	writer := obj.NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}
	return writer.Attrs(), nil
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

// suffixedName inserts id before the extension: "Acme.pdf" -> "Acme-<id>.pdf".
func suffixedName(name, id string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + id + ext
}

func childPrefix(parentID, name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "/", "_")
	return parentID + name + "/"
}

func objectURI(bucket, path string, generation int64) string {
	return fmt.Sprintf("gs://%s/%s#%d", bucket, path, generation)
}

func aclRole(role string) (storage.ACLRole, error) {
	switch strings.ToLower(role) {
	case "", "writer":
		return storage.RoleWriter, nil
	case "reader":
		return storage.RoleReader, nil
	case "owner":
		return storage.RoleOwner, nil
	default:
		return "", fmt.Errorf("unsupported role %q", role)
	}
}
