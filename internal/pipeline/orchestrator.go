// Package pipeline drives a harvesting run: it walks industries and their
// companies, locates each annual report, mines it for contacts, archives it
// under root/industry/company, notifies the downstream consumer and finally
// shares the industry folder with the report recipient.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/metrics"
)

var (
	// ErrGrantFailed is returned when sharing a folder with the recipient fails.
	ErrGrantFailed = errors.New("folder grant failed")
	// ErrNoIndustries is returned when a run is started without industries.
	ErrNoIndustries = errors.New("no industries to process")
)

// DefaultRootFolder names the top of the archive tree.
const DefaultRootFolder = "archive"

// DefaultMinDocuments is the shortest document list a company must have.
const DefaultMinDocuments = 2

// IndustryBatch is one industry with the companies to process for it.
type IndustryBatch struct {
	Name      string            `json:"industryName"`
	Companies []harvest.Company `json:"companies"`
}

// Deps are the collaborators a run needs. Miner and Notifier are only
// required for ModeFull.
type Deps struct {
	Navigator harvest.Navigator
	Fetcher   harvest.DocumentFetcher
	Miner     harvest.ContactMiner
	Folders   harvest.FolderResolver
	Uploader  harvest.Uploader
	Granter   harvest.Granter
	Notifier  harvest.Notifier
	Ledger    harvest.Ledger
	Hasher    harvest.Hasher
	Clock     harvest.Clock
	IDs       harvest.IDGenerator
}

// Config tunes a run.
type Config struct {
	RootFolder             string
	Recipient              string
	HaltAfterFirstIndustry bool
	MinDocuments           int
	Selector               *ReportSelector
}

// Orchestrator runs the harvesting state machine.
type Orchestrator struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New validates deps and cfg and returns an Orchestrator.
func New(deps Deps, cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	switch {
	case deps.Navigator == nil:
		return nil, errors.New("navigator is required")
	case deps.Fetcher == nil:
		return nil, errors.New("document fetcher is required")
	case deps.Folders == nil || deps.Uploader == nil || deps.Granter == nil:
		return nil, errors.New("archive components are required")
	case deps.Ledger == nil:
		return nil, errors.New("ledger is required")
	case deps.Hasher == nil || deps.Clock == nil || deps.IDs == nil:
		return nil, errors.New("hasher, clock and id generator are required")
	}
	if cfg.Recipient == "" {
		return nil, errors.New("recipient is required")
	}
	if cfg.RootFolder == "" {
		cfg.RootFolder = DefaultRootFolder
	}
	if cfg.MinDocuments <= 0 {
		cfg.MinDocuments = DefaultMinDocuments
	}
	if cfg.Selector == nil {
		sel, err := NewReportSelector("", DefaultReportIndex)
		if err != nil {
			return nil, err
		}
		cfg.Selector = sel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{deps: deps, cfg: cfg, logger: logger.Named("pipeline")}, nil
}

// RunIndustry scrapes the industry's company listing and runs it in full
// mode.
func (o *Orchestrator) RunIndustry(ctx context.Context, industry harvest.Industry) (*Report, error) {
	companies := o.deps.Navigator.FetchCompanyList(ctx, industry.Code, industry.Name)
	if companies.Failed() {
		o.logger.Warn("company listing degraded", zap.String("industry", industry.Name), zap.Error(companies.Err))
	}
	return o.Run(ctx, ModeFull, []IndustryBatch{{Name: industry.Name, Companies: companies.Value}})
}

// Run processes batches in order. With HaltAfterFirstIndustry the run ends
// after the first industry is granted, whatever follows. The returned report
// is never nil.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, batches []IndustryBatch) (*Report, error) {
	report := &Report{Mode: mode, State: StateIdle, StartedAt: o.deps.Clock.Now()}
	runID, err := o.deps.IDs.NewID()
	if err != nil {
		return report, fmt.Errorf("generate run id: %w", err)
	}
	report.RunID = runID
	logger := o.logger.With(zap.String("run_id", runID), zap.String("mode", string(mode)))

	if mode == ModeFull && (o.deps.Miner == nil || o.deps.Notifier == nil) {
		return report, errors.New("full mode requires a miner and a notifier")
	}
	if len(batches) == 0 {
		return report, ErrNoIndustries
	}

	metrics.IncActiveRuns()
	defer metrics.DecActiveRuns()
	defer func() {
		report.FinishedAt = o.deps.Clock.Now()
	}()

	logger.Info("run started", zap.Int("industries", len(batches)))
	var grantErr error
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("run canceled: %w", err)
		}
		o.transition(logger, report, StatePerIndustry)
		ind, err := o.processIndustry(ctx, logger, report, mode, batch)
		report.addIndustry(ind)
		if err != nil {
			return report, err
		}
		if !ind.Granted {
			grantErr = fmt.Errorf("%w: industry %q", ErrGrantFailed, batch.Name)
		}
		if o.cfg.HaltAfterFirstIndustry {
			break
		}
	}
	o.transition(logger, report, StateDone)
	logger.Info("run finished", zap.Bool("succeeded", grantErr == nil))
	return report, grantErr
}

func (o *Orchestrator) processIndustry(
	ctx context.Context,
	logger *zap.Logger,
	report *Report,
	mode Mode,
	batch IndustryBatch,
) (IndustryReport, error) {
	ind := IndustryReport{Name: batch.Name, Companies: []CompanyReport{}}
	logger = logger.With(zap.String("industry", batch.Name))

	rootID, err := o.deps.Folders.Ensure(ctx, []string{o.cfg.RootFolder}, "")
	if err != nil {
		return ind, fmt.Errorf("resolve root folder: %w", err)
	}
	industryID, err := o.deps.Folders.Ensure(ctx, []string{batch.Name}, rootID)
	if err != nil {
		return ind, fmt.Errorf("resolve industry folder: %w", err)
	}
	ind.FolderID = industryID

	for _, company := range batch.Companies {
		if err := ctx.Err(); err != nil {
			return ind, fmt.Errorf("run canceled: %w", err)
		}
		cr, err := o.processCompany(ctx, logger, report, mode, batch.Name, industryID, company)
		metrics.ObserveCompany(string(cr.Outcome))
		ind.Companies = append(ind.Companies, cr)
		if err != nil {
			return ind, err
		}
	}

	// Archive-only runs share the whole tree, full runs only the industry.
	target := industryID
	if mode == ModeArchiveOnly {
		target = rootID
	}
	ind.GrantedOn = target
	ind.Granted = o.deps.Granter.Grant(ctx, target, o.cfg.Recipient)
	if ind.Granted {
		o.transition(logger, report, StateGranted)
	}
	return ind, nil
}

func (o *Orchestrator) processCompany(
	ctx context.Context,
	logger *zap.Logger,
	report *Report,
	mode Mode,
	industry, industryFolderID string,
	company harvest.Company,
) (CompanyReport, error) {
	cr := CompanyReport{Name: company.Name}
	logger = logger.With(zap.String("company", company.Name))
	if !company.HasProfile() {
		cr.Outcome = OutcomeNoProfile
		logger.Debug("company skipped: no profile link")
		return cr, nil
	}

	o.transition(logger, report, StateDiscoverDocs)
	docs := o.deps.Navigator.LocateReportDocuments(ctx, company.ProfileURL)
	if docs.Failed() {
		cr.Error = docs.Err.Error()
	}
	if len(docs.Value) < o.cfg.MinDocuments {
		cr.Outcome = OutcomeTooFewDocs
		logger.Info("company skipped: too few documents", zap.Int("documents", len(docs.Value)))
		return cr, nil
	}
	docURL, err := o.cfg.Selector.Select(docs.Value)
	if err != nil {
		cr.Outcome = OutcomeTooFewDocs
		cr.Error = err.Error()
		logger.Info("company skipped: no report selected", zap.Error(err))
		return cr, nil
	}
	cr.DocumentURL = docURL

	data, fetchErr := o.deps.Fetcher.FetchDocument(ctx, docURL)
	if fetchErr != nil {
		cr.Error = fetchErr.Error()
		logger.Warn("report download failed; archive skipped", zap.String("url", docURL), zap.Error(fetchErr))
	} else {
		metrics.ObserveDocumentBytes(len(data))
	}

	contacts := harvest.EmptyContacts()
	if mode == ModeFull && fetchErr == nil {
		o.transition(logger, report, StateMine)
		mined := o.deps.Miner.Mine(data)
		if mined.Failed() {
			logger.Warn("contact mining degraded", zap.Error(mined.Err))
		}
		contacts = mined.Value
	}
	if mode == ModeFull {
		cr.Contacts = &contacts
	}

	if fetchErr == nil {
		o.transition(logger, report, StateArchive)
		fileID, err := o.archive(ctx, report.RunID, industry, industryFolderID, company.Name, docURL, data, contacts)
		if err != nil {
			cr.Error = err.Error()
			return cr, err
		}
		cr.FileID = fileID
		cr.Outcome = OutcomeArchived
	} else {
		cr.Outcome = OutcomeDownloadFailed
	}

	if mode != ModeFull {
		return cr, nil
	}
	o.transition(logger, report, StateNotify)
	resp, err := o.deps.Notifier.Notify(ctx, harvest.Notification{
		CompanyName: company.Name,
		Link:        docURL,
		Emails:      contacts.Emails,
	})
	if err != nil {
		cr.NotifyError = err.Error()
		if fetchErr == nil {
			cr.Outcome = OutcomeNotifyFailed
		}
		return cr, nil
	}
	logger.Debug("downstream acknowledged", zap.String("message", resp.Message))
	if fetchErr == nil {
		cr.Outcome = OutcomeNotified
	}
	return cr, nil
}

func (o *Orchestrator) archive(
	ctx context.Context,
	runID, industry, industryFolderID, company, docURL string,
	data []byte,
	contacts harvest.ContactRecord,
) (string, error) {
	companyID, err := o.deps.Folders.Ensure(ctx, []string{company}, industryFolderID)
	if err != nil {
		return "", fmt.Errorf("resolve company folder: %w", err)
	}
	uploaded, err := o.deps.Uploader.Upload(ctx, bytes.NewReader(data), company+".pdf", companyID)
	if err != nil {
		return "", fmt.Errorf("archive report: %w", err)
	}
	digest, err := o.deps.Hasher.Hash(data)
	if err != nil {
		o.logger.Warn("hash report failed", zap.String("company", company), zap.Error(err))
	}
	entry := harvest.ArchiveEntry{
		RunID:       runID,
		Industry:    industry,
		Company:     company,
		DocumentURL: docURL,
		FolderID:    companyID,
		FileID:      uploaded.FileID,
		SHA256:      digest,
		Emails:      contacts.Emails,
		Phones:      contacts.Phones,
		ArchivedAt:  o.deps.Clock.Now(),
	}
	if err := o.deps.Ledger.Record(ctx, entry); err != nil {
		o.logger.Warn("ledger write failed", zap.String("run_id", runID), zap.String("company", company), zap.Error(err))
	}
	return uploaded.FileID, nil
}

func (o *Orchestrator) transition(logger *zap.Logger, report *Report, next State) {
	prev := report.CurrentState()
	report.setState(next)
	if prev != next {
		logger.Debug("state transition", zap.String("from", string(prev)), zap.String("to", string(next)))
	}
}
