package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

// DefaultContentType is used when no content type is configured.
const DefaultContentType = "application/pdf"

// Uploader implements harvest.Uploader. Every call creates a new file; it
// never checks for an existing one.
type Uploader struct {
	backend     Backend
	contentType string
	logger      *zap.Logger
}

// NewUploader constructs an Uploader.
func NewUploader(backend Backend, contentType string, logger *zap.Logger) *Uploader {
	if contentType == "" {
		contentType = DefaultContentType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{backend: backend, contentType: contentType, logger: logger}
}

// Upload streams body into parentFolderID under fileName.
func (u *Uploader) Upload(ctx context.Context, body io.Reader, fileName, parentFolderID string) (harvest.UploadResult, error) {
	if u.backend == nil {
		return harvest.UploadResult{}, errors.New("archive backend is not configured")
	}
	if fileName == "" || parentFolderID == "" {
		return harvest.UploadResult{}, errors.New("file name and parent folder are required")
	}
	id, err := u.backend.CreateFile(ctx, File{
		Name:        fileName,
		ParentID:    parentFolderID,
		ContentType: u.contentType,
		Body:        body,
	})
	metrics.ObserveUpload(err == nil)
	if err != nil {
		return harvest.UploadResult{}, fmt.Errorf("upload %q: %w", fileName, err)
	}
	u.logger.Info("document archived", zap.String("file", fileName), zap.String("folder", parentFolderID), zap.String("id", id))
	return harvest.UploadResult{FileID: id}, nil
}
