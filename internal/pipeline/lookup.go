package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
)

// Industries returns the exchange's industry list. Scrape failures degrade to
// an empty list.
func (o *Orchestrator) Industries(ctx context.Context) []harvest.Industry {
	res := o.deps.Navigator.FetchIndustryList(ctx)
	if res.Value == nil {
		return []harvest.Industry{}
	}
	return res.Value
}

// Companies returns the companies listed for an industry.
func (o *Orchestrator) Companies(ctx context.Context, industry harvest.Industry) []harvest.Company {
	res := o.deps.Navigator.FetchCompanyList(ctx, industry.Code, industry.Name)
	if res.Value == nil {
		return []harvest.Company{}
	}
	return res.Value
}

// LocateReport discovers a company's documents and selects its annual
// report. It fails with harvest.ErrTooFewDocuments when the list is shorter
// than the configured minimum.
func (o *Orchestrator) LocateReport(ctx context.Context, profileURL string) (string, error) {
	docs := o.deps.Navigator.LocateReportDocuments(ctx, profileURL)
	if len(docs.Value) < o.cfg.MinDocuments {
		if docs.Failed() {
			return "", fmt.Errorf("%w: %w", harvest.ErrTooFewDocuments, docs.Err)
		}
		return "", fmt.Errorf("%w: found %d", harvest.ErrTooFewDocuments, len(docs.Value))
	}
	return o.cfg.Selector.Select(docs.Value)
}

// Contacts mines the annual report of the company at profileURL. Any failure
// yields an empty record.
func (o *Orchestrator) Contacts(ctx context.Context, profileURL string) harvest.ContactRecord {
	docURL, err := o.LocateReport(ctx, profileURL)
	if err != nil {
		o.logger.Info("contacts unavailable", zap.String("profile", profileURL), zap.Error(err))
		return harvest.EmptyContacts()
	}
	if o.deps.Miner == nil {
		return harvest.EmptyContacts()
	}
	return o.deps.Miner.Extract(ctx, docURL).Value
}

// NotifyCompany mines one company's report and relays the notification,
// returning the consumer's reply.
func (o *Orchestrator) NotifyCompany(ctx context.Context, companyName, profileURL string) (harvest.NotificationResponse, error) {
	if o.deps.Miner == nil || o.deps.Notifier == nil {
		return harvest.NotificationResponse{}, fmt.Errorf("notification requires a miner and a notifier")
	}
	docURL, err := o.LocateReport(ctx, profileURL)
	if err != nil {
		return harvest.NotificationResponse{}, err
	}
	contacts := o.deps.Miner.Extract(ctx, docURL).Value
	resp, err := o.deps.Notifier.Notify(ctx, harvest.Notification{
		CompanyName: companyName,
		Link:        docURL,
		Emails:      contacts.Emails,
	})
	if err != nil {
		return resp, fmt.Errorf("notify %q: %w", companyName, err)
	}
	return resp, nil
}

// RunEntries returns the ledger rows written by a run.
func (o *Orchestrator) RunEntries(ctx context.Context, runID string) ([]harvest.ArchiveEntry, error) {
	entries, err := o.deps.Ledger.ListRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("list run %q: %w", runID, err)
	}
	return entries, nil
}
