package pipeline

import (
	"sync"
	"time"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// Mode selects which steps run for each company.
type Mode string

const (
	// ModeFull mines, archives and notifies.
	ModeFull Mode = "full"
	// ModeArchiveOnly archives the report without mining or notifying.
	ModeArchiveOnly Mode = "archive-only"
)

// State is a step of a run.
type State string

// Run states, in the order a run walks through them.
const (
	StateIdle         State = "idle"
	StatePerIndustry  State = "per_industry"
	StateDiscoverDocs State = "discover_docs"
	StateMine         State = "mine"
	StateArchive      State = "archive"
	StateNotify       State = "notify"
	StateGranted      State = "granted"
	StateDone         State = "done"
)

// Outcome summarizes what happened to one company.
type Outcome string

// Company outcomes.
const (
	OutcomeNoProfile      Outcome = "skipped_no_profile"
	OutcomeTooFewDocs     Outcome = "skipped_too_few_documents"
	OutcomeDownloadFailed Outcome = "download_failed"
	OutcomeArchived       Outcome = "archived"
	OutcomeNotified       Outcome = "notified"
	OutcomeNotifyFailed   Outcome = "notify_failed"
)

// Report is the per-run summary returned by the orchestrator.
type Report struct {
	mu sync.Mutex

	RunID      string           `json:"run_id"`
	Mode       Mode             `json:"mode"`
	State      State            `json:"state"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Industries []IndustryReport `json:"industries"`
}

// IndustryReport summarizes one industry of a run.
type IndustryReport struct {
	Name      string          `json:"name"`
	FolderID  string          `json:"folder_id,omitempty"`
	GrantedOn string          `json:"granted_on,omitempty"`
	Granted   bool            `json:"granted"`
	Companies []CompanyReport `json:"companies"`
}

// CompanyReport summarizes one company.
type CompanyReport struct {
	Name        string                 `json:"name"`
	Outcome     Outcome                `json:"outcome"`
	DocumentURL string                 `json:"document_url,omitempty"`
	FileID      string                 `json:"file_id,omitempty"`
	Contacts    *harvest.ContactRecord `json:"contacts,omitempty"`
	Error       string                 `json:"error,omitempty"`
	NotifyError string                 `json:"notify_error,omitempty"`
}

// Succeeded reports whether every processed industry was granted.
func (r *Report) Succeeded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Industries) == 0 {
		return false
	}
	for _, ind := range r.Industries {
		if !ind.Granted {
			return false
		}
	}
	return true
}

// CurrentState returns the state the run is in.
func (r *Report) CurrentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.State
}

func (r *Report) setState(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = s
}

func (r *Report) addIndustry(ind IndustryReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Industries = append(r.Industries, ind)
}
