package harvest

import (
	"context"
	"io"
	"time"
)

// Navigator scrapes listings from the exchange site. Every method degrades to
// an empty value on failure and reports the cause through Result.Err.
type Navigator interface {
	FetchIndustryList(ctx context.Context) Result[[]Industry]
	FetchCompanyList(ctx context.Context, industryCode, industryName string) Result[[]Company]
	LocateReportDocuments(ctx context.Context, profileURL string) Result[[]string]
}

// DocumentFetcher downloads a document body.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// ContactMiner turns documents into contact records.
type ContactMiner interface {
	Extract(ctx context.Context, documentURL string) Result[ContactRecord]
	Mine(data []byte) Result[ContactRecord]
}

// FolderResolver resolves a folder path, creating missing levels.
type FolderResolver interface {
	Ensure(ctx context.Context, segments []string, rootParentID string) (string, error)
}

// Uploader stores a document under a folder.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, fileName, parentFolderID string) (UploadResult, error)
}

// Granter shares a folder with one recipient.
type Granter interface {
	Grant(ctx context.Context, folderID, recipient string) bool
}

// Notifier relays a notification to the downstream consumer.
type Notifier interface {
	Notify(ctx context.Context, n Notification) (NotificationResponse, error)
}

// Ledger records archived documents per run.
type Ledger interface {
	Record(ctx context.Context, entry ArchiveEntry) error
	ListRun(ctx context.Context, runID string) ([]ArchiveEntry, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
