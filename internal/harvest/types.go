package harvest

import (
	"errors"
	"time"
)

// ErrTooFewDocuments is returned when a company's report page lists fewer
// documents than the pipeline needs to pick an annual report.
var ErrTooFewDocuments = errors.New("too few report documents located")

// Industry is a market-sector category listed on the exchange site.
type Industry struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// Company is one row of an industry listing.
type Company struct {
	Name       string `json:"CompanyName"`
	ProfileURL string `json:"CompanyUrl"`
}

// HasProfile reports whether the company carries a usable profile link.
func (c Company) HasProfile() bool {
	return c.ProfileURL != ""
}

// ContactRecord holds the distinct emails and phone numbers mined from a
// document. Slices keep first-seen order and never contain duplicates.
type ContactRecord struct {
	Emails []string `json:"emails"`
	Phones []string `json:"phones"`
}

// EmptyContacts returns a record with non-nil empty sets.
func EmptyContacts() ContactRecord {
	return ContactRecord{Emails: []string{}, Phones: []string{}}
}

// IsEmpty reports whether nothing was found.
func (c ContactRecord) IsEmpty() bool {
	return len(c.Emails) == 0 && len(c.Phones) == 0
}

// FolderNode is one resolved level of the archive folder tree.
type FolderNode struct {
	Name     string `json:"name"`
	RemoteID string `json:"remote_id"`
	ParentID string `json:"parent_id,omitempty"`
}

// UploadResult identifies an archived document in remote storage.
type UploadResult struct {
	FileID string `json:"file_id"`
}

// Result pairs the value a degrading step produced with the failure, if any,
// that forced it to degrade. Value is always usable: on failure it holds the
// empty result the legacy callers expect.
type Result[T any] struct {
	Value T
	Err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failed wraps a degraded value with the failure that caused it.
func Failed[T any](v T, err error) Result[T] {
	return Result[T]{Value: v, Err: err}
}

// Failed reports whether the step degraded because of an error.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// ArchiveEntry is the ledger row written for every uploaded document.
type ArchiveEntry struct {
	RunID       string    `json:"run_id"`
	Industry    string    `json:"industry"`
	Company     string    `json:"company"`
	DocumentURL string    `json:"document_url"`
	FolderID    string    `json:"folder_id"`
	FileID      string    `json:"file_id"`
	SHA256      string    `json:"sha256"`
	Emails      []string  `json:"emails"`
	Phones      []string  `json:"phones"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// Notification is the payload relayed to the downstream consumer for one
// company. Field names follow the consumer's contract.
type Notification struct {
	CompanyName string   `json:"Company_Name"`
	Link        string   `json:"Link"`
	Emails      []string `json:"emails"`
}

// NotificationResponse is the decoded downstream reply. Raw keeps the body as
// received so it can be forwarded verbatim.
type NotificationResponse struct {
	Message string `json:"message"`
	Raw     []byte `json:"-"`
}
